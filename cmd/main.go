package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neowatch/internal/clients"
	"neowatch/internal/config"
	"neowatch/internal/handlers"
	"neowatch/internal/middleware"
	"neowatch/internal/repository"
	"neowatch/internal/service"
	"neowatch/internal/worker"
	"neowatch/internal/ws"
	"neowatch/pkg/database"
	"neowatch/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	// Загрузка .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("=== NEO Watch Backend Starting ===")

	// Загрузка конфигурации
	cfg := config.Load()

	// Подключение к PostgreSQL
	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	// Подключение к Redis
	redisClient, err := redis.Connect(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	// Автомиграция моделей
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Инициализация репозиториев
	watchlistRepo := repository.NewWatchlistRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	chatRepo := repository.NewChatRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	neoClient := clients.NewNEOClient(cfg.NEO)

	// Инициализация сервисов
	neoService := service.NewNEOService(cacheRepo, neoClient)
	watchlistService := service.NewWatchlistService(watchlistRepo, neoClient)
	alertService := service.NewAlertService(alertRepo)

	// Чат-хаб с персистентным журналом
	chatHub := ws.NewHub(chatRepo)

	// Фоновая перепроверка списка наблюдения
	scheduler := worker.NewScheduler()
	watchWorker := worker.NewWatchWorker(
		watchlistRepo, alertService, neoClient,
		cfg.Workers.WatchInterval, cfg.Workers.ProviderRPS,
	)

	if cfg.Workers.WatchEnabled {
		scheduler.AddWorker(watchWorker)
		log.Printf("Watch Worker enabled (interval: %v)", cfg.Workers.WatchInterval)
	}

	go scheduler.Start()
	defer scheduler.Stop()

	// Инициализация Gin
	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("Running in DEBUG mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// CORS для React фронтенда
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.App.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Name"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiting (только для продакшена)
	if !cfg.App.Debug {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		r.Use(middleware.RateLimitMiddleware(limiter))
		log.Printf("Rate limiting enabled: %d req/sec, burst: %d",
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	asteroidHandler := handlers.NewAsteroidHandler(neoService)
	watchlistHandler := handlers.NewWatchlistHandler(watchlistService)
	alertHandler := handlers.NewAlertHandler(alertService)
	chatHandler := handlers.NewChatHandler(chatHub)

	// Группа API v1
	api := r.Group("/api/v1")

	// Health check открыт без токена
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services": gin.H{
				"database": "connected",
				"redis":    "connected",
				"neo_api":  "enabled",
			},
		})
	})

	// Остальные маршруты требуют принципала от внешней аутентификации
	authed := api.Group("")
	authed.Use(middleware.PrincipalMiddleware())

	// 1. Данные NeoWs с оценкой риска
	authed.GET("/asteroids/feed", asteroidHandler.GetFeed)
	authed.GET("/asteroids/browse", asteroidHandler.Browse)
	authed.GET("/asteroids/:id", asteroidHandler.GetByID)

	// 2. Список наблюдения
	authed.GET("/watchlist", watchlistHandler.GetWatchlist)
	authed.POST("/watchlist", watchlistHandler.AddToWatchlist)
	authed.DELETE("/watchlist/:id", watchlistHandler.RemoveFromWatchlist)
	authed.PUT("/watchlist/:id/alerts", watchlistHandler.UpdateAlertSettings)

	// 3. Алерты
	authed.GET("/alerts", alertHandler.GetAlerts)
	authed.PUT("/alerts/read-all", alertHandler.MarkAllRead)
	authed.PUT("/alerts/:id/read", alertHandler.MarkRead)
	authed.DELETE("/alerts/:id", alertHandler.DeleteAlert)

	// 4. Realtime чат по комнатам-астероидам
	authed.GET("/ws", chatHandler.Serve)

	// 5. Системные эндпоинты
	authed.GET("/system/stats", func(c *gin.Context) {
		ctx := c.Request.Context()

		redisStats, _ := redis.GetStats(redisClient)
		watchedCount, _ := watchlistRepo.Count(ctx)
		generalMessages, _ := chatRepo.CountByRoom(ctx, ws.GeneralRoom)
		unreadAlerts, _ := alertRepo.CountUnread(ctx, middleware.UserID(c))

		c.JSON(200, gin.H{
			"database": gin.H{
				"watched_asteroids":     watchedCount,
				"general_chat_messages": generalMessages,
			},
			"unread_alerts": unreadAlerts,
			"redis": redisStats,
			"workers": gin.H{
				"watch_enabled":  cfg.Workers.WatchEnabled,
				"watch_interval": cfg.Workers.WatchInterval.String(),
			},
		})
	})

	// 6. Ручной запуск тика (для дебага)
	if cfg.App.Debug {
		authed.POST("/refresh/watchlist", func(c *gin.Context) {
			summary, err := watchWorker.RunTick(c.Request.Context())
			if err != nil {
				if errors.Is(err, worker.ErrTickInProgress) {
					c.JSON(409, gin.H{"error": err.Error()})
					return
				}
				c.JSON(500, gin.H{"error": err.Error()})
				return
			}
			c.JSON(200, gin.H{"message": "watchlist refreshed", "summary": summary})
		})
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.App.Port)
		log.Printf("API available at http://localhost:%s/api/v1", cfg.App.Port)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited properly")
}
