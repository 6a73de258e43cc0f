package service

import (
	"context"
	"encoding/json"
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

type memWatchlistRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.WatchedAsteroid
}

func newMemWatchlistRepo() *memWatchlistRepo {
	return &memWatchlistRepo{items: make(map[uuid.UUID]*models.WatchedAsteroid)}
}

func (m *memWatchlistRepo) Create(ctx context.Context, item *models.WatchedAsteroid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = uuid.New()
	item.AddedAt = time.Now().UTC()
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *memWatchlistRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WatchedAsteroid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memWatchlistRepo) GetByUserAndAsteroid(ctx context.Context, userID, asteroidID string) (*models.WatchedAsteroid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.UserID == userID && item.AsteroidID == asteroidID {
			copied := *item
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memWatchlistRepo) GetByUser(ctx context.Context, userID string) ([]models.WatchedAsteroid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.WatchedAsteroid
	for _, item := range m.items {
		if item.UserID == userID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (m *memWatchlistRepo) GetAll(ctx context.Context) ([]models.WatchedAsteroid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.WatchedAsteroid, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, *item)
	}
	return items, nil
}

func (m *memWatchlistRepo) Update(ctx context.Context, item *models.WatchedAsteroid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *memWatchlistRepo) UpdateSnapshot(ctx context.Context, id uuid.UUID, snapshot datatypes.JSON, score int, level models.RiskLevel, checkedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.AsteroidData = snapshot
	item.RiskScore = score
	item.RiskLevel = level
	item.LastChecked = checkedAt
	return nil
}

func (m *memWatchlistRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memWatchlistRepo) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}

type stubNEOClient struct {
	asteroid *clients.Asteroid
	err      error
	calls    int
}

func (s *stubNEOClient) FetchByID(ctx context.Context, id string) (*clients.Asteroid, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.asteroid, nil
}

func (s *stubNEOClient) FetchFeed(ctx context.Context, startDate, endDate string) (*clients.FeedResponse, error) {
	return nil, &clients.ProviderError{Op: "feed", Status: 500}
}

func (s *stubNEOClient) Browse(ctx context.Context, page, size int) (*clients.BrowsePage, error) {
	return nil, &clients.ProviderError{Op: "browse", Status: 500}
}

func stubAsteroid(t *testing.T) *clients.Asteroid {
	t.Helper()
	doc := `{
		"id": "2099942",
		"name": "99942 Apophis (2004 MN4)",
		"is_potentially_hazardous_asteroid": true,
		"estimated_diameter": {"meters": {"estimated_diameter_min": 310, "estimated_diameter_max": 680}},
		"close_approach_data": [{
			"close_approach_date_full": "2029-Apr-13 21:46",
			"miss_distance": {"astronomical": "0.0002"},
			"relative_velocity": {"kilometers_per_second": "7.42"}
		}]
	}`
	var a clients.Asteroid
	require.NoError(t, json.Unmarshal([]byte(doc), &a))
	return &a
}

func TestAddToWatchlist(t *testing.T) {
	repo := newMemWatchlistRepo()
	client := &stubNEOClient{asteroid: stubAsteroid(t)}
	svc := NewWatchlistService(repo, client)

	item, err := svc.AddToWatchlist(context.Background(), "user-a", "2099942")
	require.NoError(t, err)

	assert.Equal(t, "99942 Apophis (2004 MN4)", item.AsteroidName)
	// 40 + 30 (0.0002 а.е.) + 10 (средний диаметр 495 м) + 3
	assert.Equal(t, 83, item.RiskScore)
	assert.Equal(t, models.RiskLevelCritical, item.RiskLevel)
	// Настройки алертов по умолчанию
	assert.True(t, item.NotifyOnApproach)
	assert.InDelta(t, 0.05, item.DistanceThreshold, 1e-9)
	assert.Equal(t, 1, client.calls)
	assert.NotEmpty(t, []byte(item.AsteroidData))
}

func TestAddToWatchlistDuplicate(t *testing.T) {
	repo := newMemWatchlistRepo()
	client := &stubNEOClient{asteroid: stubAsteroid(t)}
	svc := NewWatchlistService(repo, client)

	_, err := svc.AddToWatchlist(context.Background(), "user-a", "2099942")
	require.NoError(t, err)

	_, err = svc.AddToWatchlist(context.Background(), "user-a", "2099942")
	assert.ErrorIs(t, err, ErrAlreadyWatched)

	// Другой пользователь может наблюдать тот же астероид
	_, err = svc.AddToWatchlist(context.Background(), "user-b", "2099942")
	assert.NoError(t, err)
}

func TestAddToWatchlistProviderFailure(t *testing.T) {
	repo := newMemWatchlistRepo()
	client := &stubNEOClient{err: &clients.ProviderError{Op: "lookup", Status: 503}}
	svc := NewWatchlistService(repo, client)

	_, err := svc.AddToWatchlist(context.Background(), "user-a", "2099942")
	require.Error(t, err)

	var providerErr *clients.ProviderError
	assert.ErrorAs(t, err, &providerErr)

	count, _ := repo.Count(context.Background())
	assert.EqualValues(t, 0, count)
}

func TestRemoveFromWatchlist(t *testing.T) {
	repo := newMemWatchlistRepo()
	client := &stubNEOClient{asteroid: stubAsteroid(t)}
	svc := NewWatchlistService(repo, client)

	item, err := svc.AddToWatchlist(context.Background(), "user-a", "2099942")
	require.NoError(t, err)

	// Чужая запись неотличима от отсутствующей
	err = svc.RemoveFromWatchlist(context.Background(), "user-b", item.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.RemoveFromWatchlist(context.Background(), "user-a", item.ID)
	assert.NoError(t, err)

	err = svc.RemoveFromWatchlist(context.Background(), "user-a", item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveNeverWatched(t *testing.T) {
	repo := newMemWatchlistRepo()
	svc := NewWatchlistService(repo, &stubNEOClient{})

	err := svc.RemoveFromWatchlist(context.Background(), "user-a", uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAlertSettingsPartialPatch(t *testing.T) {
	repo := newMemWatchlistRepo()
	client := &stubNEOClient{asteroid: stubAsteroid(t)}
	svc := NewWatchlistService(repo, client)

	item, err := svc.AddToWatchlist(context.Background(), "user-a", "2099942")
	require.NoError(t, err)

	threshold := 0.1
	updated, err := svc.UpdateAlertSettings(context.Background(), "user-a", item.ID,
		AlertSettingsPatch{DistanceThreshold: &threshold})
	require.NoError(t, err)

	// Порог обновлен, флаг уведомлений не тронут
	assert.InDelta(t, 0.1, updated.DistanceThreshold, 1e-9)
	assert.True(t, updated.NotifyOnApproach)

	notify := false
	updated, err = svc.UpdateAlertSettings(context.Background(), "user-a", item.ID,
		AlertSettingsPatch{NotifyOnApproach: &notify})
	require.NoError(t, err)
	assert.False(t, updated.NotifyOnApproach)
	assert.InDelta(t, 0.1, updated.DistanceThreshold, 1e-9)

	_, err = svc.UpdateAlertSettings(context.Background(), "user-b", item.ID, AlertSettingsPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}
