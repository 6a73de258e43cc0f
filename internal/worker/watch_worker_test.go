package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"neowatch/internal/clients"
	"neowatch/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fakeWatchlistRepo держит записи в памяти
type fakeWatchlistRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*models.WatchedAsteroid
	loadErr error
}

func newFakeWatchlistRepo() *fakeWatchlistRepo {
	return &fakeWatchlistRepo{items: make(map[uuid.UUID]*models.WatchedAsteroid)}
}

func (f *fakeWatchlistRepo) add(item models.WatchedAsteroid) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items[item.ID] = &item
	return item.ID
}

func (f *fakeWatchlistRepo) Create(ctx context.Context, item *models.WatchedAsteroid) error {
	item.ID = f.add(*item)
	return nil
}

func (f *fakeWatchlistRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WatchedAsteroid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.items[id]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeWatchlistRepo) GetByUserAndAsteroid(ctx context.Context, userID, asteroidID string) (*models.WatchedAsteroid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.UserID == userID && item.AsteroidID == asteroidID {
			copied := *item
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeWatchlistRepo) GetByUser(ctx context.Context, userID string) ([]models.WatchedAsteroid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []models.WatchedAsteroid
	for _, item := range f.items {
		if item.UserID == userID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (f *fakeWatchlistRepo) GetAll(ctx context.Context) ([]models.WatchedAsteroid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	items := make([]models.WatchedAsteroid, 0, len(f.items))
	for _, item := range f.items {
		items = append(items, *item)
	}
	return items, nil
}

func (f *fakeWatchlistRepo) Update(ctx context.Context, item *models.WatchedAsteroid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *item
	f.items[item.ID] = &copied
	return nil
}

func (f *fakeWatchlistRepo) UpdateSnapshot(ctx context.Context, id uuid.UUID, snapshot datatypes.JSON, score int, level models.RiskLevel, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.AsteroidData = snapshot
	item.RiskScore = score
	item.RiskLevel = level
	item.LastChecked = checkedAt
	return nil
}

func (f *fakeWatchlistRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeWatchlistRepo) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.items)), nil
}

// fakeAlertService копит созданные алерты
type fakeAlertService struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (f *fakeAlertService) CreateAlert(ctx context.Context, alert *models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, *alert)
	return nil
}

func (f *fakeAlertService) GetAlerts(ctx context.Context, userID string, unreadOnly bool) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Alert(nil), f.alerts...), nil
}

func (f *fakeAlertService) MarkRead(ctx context.Context, userID string, alertID uuid.UUID) (*models.Alert, error) {
	return nil, nil
}

func (f *fakeAlertService) MarkAllRead(ctx context.Context, userID string) error { return nil }

func (f *fakeAlertService) DeleteAlert(ctx context.Context, userID string, alertID uuid.UUID) error {
	return nil
}

// fakeNEOClient отдает заранее подготовленные документы по id
type fakeNEOClient struct {
	mu        sync.Mutex
	asteroids map[string]*clients.Asteroid
	failing   map[string]bool
	calls     int
	release   chan struct{}
}

func (f *fakeNEOClient) FetchByID(ctx context.Context, id string) (*clients.Asteroid, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[id] {
		return nil, &clients.ProviderError{Op: "lookup", Status: 503}
	}
	if a, ok := f.asteroids[id]; ok {
		return a, nil
	}
	return nil, &clients.ProviderError{Op: "lookup", Status: 404}
}

func (f *fakeNEOClient) FetchFeed(ctx context.Context, startDate, endDate string) (*clients.FeedResponse, error) {
	return nil, &clients.ProviderError{Op: "feed", Status: 500}
}

func (f *fakeNEOClient) Browse(ctx context.Context, page, size int) (*clients.BrowsePage, error) {
	return nil, &clients.ProviderError{Op: "browse", Status: 500}
}

func testAsteroid(t *testing.T, id string, hazardous bool, missAU string, velocity string) *clients.Asteroid {
	t.Helper()
	doc := fmt.Sprintf(`{
		"id": %q,
		"name": "NEO %s",
		"is_potentially_hazardous_asteroid": %v,
		"estimated_diameter": {"meters": {"estimated_diameter_min": 100, "estimated_diameter_max": 300}},
		"close_approach_data": [{
			"close_approach_date_full": "2026-Sep-15 08:30",
			"miss_distance": {"astronomical": %q},
			"relative_velocity": {"kilometers_per_second": %q}
		}]
	}`, id, id, hazardous, missAU, velocity)

	var a clients.Asteroid
	require.NoError(t, json.Unmarshal([]byte(doc), &a))
	return &a
}

func newTestWorker(repo *fakeWatchlistRepo, alerts *fakeAlertService, client *fakeNEOClient) *WatchWorker {
	return NewWatchWorker(repo, alerts, client, time.Hour, 1000)
}

func watchedItem(userID, asteroidID string, score int, notify bool, threshold float64) models.WatchedAsteroid {
	return models.WatchedAsteroid{
		UserID:            userID,
		AsteroidID:        asteroidID,
		AsteroidName:      "NEO " + asteroidID,
		AsteroidData:      datatypes.JSON(`{}`),
		RiskScore:         score,
		RiskLevel:         models.RiskLevelLow,
		NotifyOnApproach:  notify,
		DistanceThreshold: threshold,
	}
}

func TestRunTickFailureIsolation(t *testing.T) {
	repo := newFakeWatchlistRepo()
	alerts := &fakeAlertService{}
	client := &fakeNEOClient{
		asteroids: map[string]*clients.Asteroid{
			"1": testAsteroid(t, "1", false, "0.5", "5"),
			"3": testAsteroid(t, "3", false, "0.5", "5"),
		},
		failing: map[string]bool{"2": true},
	}

	id1 := repo.add(watchedItem("user-a", "1", 0, false, 0.05))
	id2 := repo.add(watchedItem("user-a", "2", 0, false, 0.05))
	id3 := repo.add(watchedItem("user-b", "3", 0, false, 0.05))

	worker := newTestWorker(repo, alerts, client)

	summary, err := worker.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)

	// Упавший элемент не тронут, остальные обновлены
	failed, _ := repo.GetByID(context.Background(), id2)
	assert.True(t, failed.LastChecked.IsZero())

	for _, id := range []uuid.UUID{id1, id3} {
		item, _ := repo.GetByID(context.Background(), id)
		assert.False(t, item.LastChecked.IsZero())
		assert.Greater(t, item.RiskScore, 0)
	}
}

func TestRunTickRiskIncreaseTrigger(t *testing.T) {
	repo := newFakeWatchlistRepo()
	alerts := &fakeAlertService{}

	// Новая оценка: 0 + 5 (0.5 а.е.) + 10 (200 м) + 3 (5 км/с) = 18
	client := &fakeNEOClient{
		asteroids: map[string]*clients.Asteroid{
			"boundary": testAsteroid(t, "boundary", false, "0.5", "5"),
			"fires":    testAsteroid(t, "fires", false, "0.5", "5"),
		},
	}

	// 18 == 8+10: строгое неравенство, триггер молчит
	repo.add(watchedItem("user-a", "boundary", 8, false, 0.05))
	// 18 > 7+10: триггер срабатывает
	repo.add(watchedItem("user-a", "fires", 7, false, 0.05))

	worker := newTestWorker(repo, alerts, client)

	summary, err := worker.RunTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Alerts)

	require.Len(t, alerts.alerts, 1)
	alert := alerts.alerts[0]
	assert.Equal(t, models.AlertTypeRiskIncrease, alert.AlertType)
	assert.Equal(t, models.SeverityWarning, alert.Severity)
	assert.Contains(t, alert.Message, "NEO fires")
	assert.Contains(t, alert.Message, "18")
}

func TestRunTickRiskIncreaseCriticalSeverity(t *testing.T) {
	repo := newFakeWatchlistRepo()
	alerts := &fakeAlertService{}

	// 40 + 30 (0.03 а.е.) + 10 + 10 (35 км/с) = 90 -> CRITICAL
	client := &fakeNEOClient{
		asteroids: map[string]*clients.Asteroid{
			"big": testAsteroid(t, "big", true, "0.03", "35"),
		},
	}
	repo.add(watchedItem("user-a", "big", 10, false, 0.001))

	worker := newTestWorker(repo, alerts, client)

	_, err := worker.RunTick(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, models.SeverityCritical, alerts.alerts[0].Severity)
}

func TestRunTickCloseApproachTrigger(t *testing.T) {
	repo := newFakeWatchlistRepo()
	alerts := &fakeAlertService{}
	client := &fakeNEOClient{
		asteroids: map[string]*clients.Asteroid{
			"near": testAsteroid(t, "near", false, "0.0300", "5"),
		},
	}

	repo.add(watchedItem("user-a", "near", 48, true, 0.05))

	worker := newTestWorker(repo, alerts, client)

	_, err := worker.RunTick(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts.alerts, 1)
	alert := alerts.alerts[0]
	assert.Equal(t, models.AlertTypeCloseApproach, alert.AlertType)
	assert.Equal(t, models.SeverityWarning, alert.Severity)
	assert.Contains(t, alert.Message, "0.0300 AU")
	assert.Contains(t, alert.Message, "2026-Sep-15 08:30")
}

func TestRunTickNoApproachAlertWhenDisabled(t *testing.T) {
	repo := newFakeWatchlistRepo()
	alerts := &fakeAlertService{}
	client := &fakeNEOClient{
		asteroids: map[string]*clients.Asteroid{
			"near": testAsteroid(t, "near", false, "0.001", "5"),
		},
	}

	// Сближение ближе порога, но уведомления выключены
	repo.add(watchedItem("user-a", "near", 48, false, 0.05))

	worker := newTestWorker(repo, alerts, client)

	_, err := worker.RunTick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts.alerts)
}

func TestRunTickBothTriggersSameItem(t *testing.T) {
	repo := newFakeWatchlistRepo()
	alerts := &fakeAlertService{}

	// 40+30+10+10 = 90: и рост риска, и сближение
	client := &fakeNEOClient{
		asteroids: map[string]*clients.Asteroid{
			"both": testAsteroid(t, "both", true, "0.03", "35"),
		},
	}
	repo.add(watchedItem("user-a", "both", 0, true, 0.05))

	worker := newTestWorker(repo, alerts, client)

	summary, err := worker.RunTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Alerts)

	types := map[models.AlertType]bool{}
	for _, alert := range alerts.alerts {
		types[alert.AlertType] = true
	}
	assert.True(t, types[models.AlertTypeRiskIncrease])
	assert.True(t, types[models.AlertTypeCloseApproach])
}

func TestRunTickLoadFailureIsFatal(t *testing.T) {
	repo := newFakeWatchlistRepo()
	repo.loadErr = errors.New("connection refused")

	worker := newTestWorker(repo, &fakeAlertService{}, &fakeNEOClient{})

	_, err := worker.RunTick(context.Background())
	require.Error(t, err)
}

func TestRunTickSingleFlight(t *testing.T) {
	repo := newFakeWatchlistRepo()
	alerts := &fakeAlertService{}

	release := make(chan struct{})
	client := &fakeNEOClient{
		asteroids: map[string]*clients.Asteroid{
			"1": testAsteroid(t, "1", false, "0.5", "5"),
		},
		release: release,
	}
	repo.add(watchedItem("user-a", "1", 0, false, 0.05))

	worker := newTestWorker(repo, alerts, client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := worker.RunTick(context.Background())
		assert.NoError(t, err)
	}()

	// Дожидаемся, пока первый тик повиснет на вызове провайдера
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.calls > 0
	}, time.Second, 5*time.Millisecond)

	_, err := worker.RunTick(context.Background())
	assert.ErrorIs(t, err, ErrTickInProgress)

	close(release)
	<-done

	// После завершения тик снова доступен
	_, err = worker.RunTick(context.Background())
	assert.NoError(t, err)
}
