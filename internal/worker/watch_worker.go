package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"neowatch/internal/clients"
	"neowatch/internal/models"
	"neowatch/internal/repository"
	"neowatch/internal/risk"
	"neowatch/internal/service"

	"golang.org/x/time/rate"
	"gorm.io/datatypes"
)

// ErrTickInProgress возвращается, если предыдущий тик еще не завершился
var ErrTickInProgress = errors.New("watch tick already in progress")

// TickSummary содержит итог одного прохода по списку наблюдения
type TickSummary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Alerts    int `json:"alerts"`
}

// WatchWorker периодически перепроверяет все наблюдаемые астероиды:
// свежий снапшот от провайдера, пересчет риска, diff с прошлой оценкой,
// алерты по триггерам. Ошибка одного элемента не прерывает тик.
type WatchWorker struct {
	watchRepo repository.WatchlistRepository
	alerts    service.AlertService
	client    clients.NEOClient
	limiter   *rate.Limiter
	interval  time.Duration
	stopChan  chan struct{}
	running   bool
	ticking   int32
}

func NewWatchWorker(
	watchRepo repository.WatchlistRepository,
	alerts service.AlertService,
	client clients.NEOClient,
	interval time.Duration,
	providerRPS float64,
) *WatchWorker {
	if providerRPS <= 0 {
		providerRPS = 5
	}
	return &WatchWorker{
		watchRepo: watchRepo,
		alerts:    alerts,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(providerRPS), 1),
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

func (w *WatchWorker) Start() {
	if w.running {
		return
	}

	w.running = true
	log.Printf("Watch Worker started with interval %v", w.interval)

	go w.run()
}

func (w *WatchWorker) Stop() {
	if !w.running {
		return
	}

	close(w.stopChan)
	w.running = false
	log.Println("Watch Worker stopped")
}

func (w *WatchWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Первый проход сразу при старте
	w.tick()

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-w.stopChan:
			return
		}
	}
}

func (w *WatchWorker) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	summary, err := w.RunTick(ctx)
	if err != nil {
		log.Printf("Watch Worker tick error: %v", err)
		return
	}

	log.Printf("Watch Worker tick completed: %d processed, %d failed, %d alerts",
		summary.Processed, summary.Failed, summary.Alerts)
}

// RunTick выполняет один полный проход. Повторный вход запрещен:
// пока тик идет, таймер и ручной триггер получают ErrTickInProgress.
func (w *WatchWorker) RunTick(ctx context.Context) (TickSummary, error) {
	if !atomic.CompareAndSwapInt32(&w.ticking, 0, 1) {
		return TickSummary{}, ErrTickInProgress
	}
	defer atomic.StoreInt32(&w.ticking, 0)

	var summary TickSummary

	// Падение загрузки всего набора фатально для тика,
	// повтор только по следующему расписанию
	items, err := w.watchRepo.GetAll(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to load watched asteroids: %w", err)
	}

	for i := range items {
		if err := w.limiter.Wait(ctx); err != nil {
			return summary, fmt.Errorf("tick cancelled: %w", err)
		}

		created, err := w.checkAsteroid(ctx, &items[i])
		summary.Alerts += created
		if err != nil {
			log.Printf("Watch Worker: asteroid %s (user %s) check failed: %v",
				items[i].AsteroidID, items[i].UserID, err)
			summary.Failed++
			continue
		}
		summary.Processed++
	}

	return summary, nil
}

func (w *WatchWorker) checkAsteroid(ctx context.Context, item *models.WatchedAsteroid) (int, error) {
	asteroid, err := w.client.FetchByID(ctx, item.AsteroidID)
	if err != nil {
		// last_checked не обновляем: данные не получены
		return 0, err
	}

	analysis := risk.Analyze(asteroid)
	previousScore := item.RiskScore

	alertsCreated := 0

	// Триггер 1: заметный рост риска (строго больше порога)
	if analysis.Score > previousScore+10 {
		severity := models.SeverityWarning
		if analysis.Level == models.RiskLevelCritical {
			severity = models.SeverityCritical
		}

		alert := &models.Alert{
			UserID:       item.UserID,
			AsteroidID:   item.AsteroidID,
			AsteroidName: item.AsteroidName,
			AlertType:    models.AlertTypeRiskIncrease,
			Message:      fmt.Sprintf("Risk level increased for %s. New risk score: %d", item.AsteroidName, analysis.Score),
			Severity:     severity,
		}
		if err := w.alerts.CreateAlert(ctx, alert); err != nil {
			log.Printf("Watch Worker: failed to create risk alert for %s: %v", item.AsteroidID, err)
		} else {
			alertsCreated++
		}
	}

	// Триггер 2: сближение ближе порога владельца.
	// Оба триггера независимы и могут сработать в одном тике.
	if item.NotifyOnApproach && analysis.Factors.MissDistanceAU != nil &&
		*analysis.Factors.MissDistanceAU <= item.DistanceThreshold {
		alert := &models.Alert{
			UserID:       item.UserID,
			AsteroidID:   item.AsteroidID,
			AsteroidName: item.AsteroidName,
			AlertType:    models.AlertTypeCloseApproach,
			Message: fmt.Sprintf("%s is approaching within %.4f AU on %s",
				item.AsteroidName, *analysis.Factors.MissDistanceAU, analysis.Factors.CloseApproachDate),
			Severity: models.SeverityWarning,
		}
		if err := w.alerts.CreateAlert(ctx, alert); err != nil {
			log.Printf("Watch Worker: failed to create approach alert for %s: %v", item.AsteroidID, err)
		} else {
			alertsCreated++
		}
	}

	// Снапшот пишем всегда, независимо от сработавших триггеров
	err = w.watchRepo.UpdateSnapshot(ctx, item.ID,
		datatypes.JSON(asteroid.Raw()), analysis.Score, analysis.Level, time.Now().UTC())
	if err != nil {
		return alertsCreated, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	return alertsCreated, nil
}
