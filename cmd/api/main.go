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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/yourusername/parajuriste-api/internal/config"
	"github.com/yourusername/parajuriste-api/internal/handler"
	"github.com/yourusername/parajuriste-api/internal/jobs"
	"github.com/yourusername/parajuriste-api/internal/middleware"
	pgRepo "github.com/yourusername/parajuriste-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/parajuriste-api/internal/repository/redis"
	"github.com/yourusername/parajuriste-api/internal/service"
	"github.com/yourusername/parajuriste-api/internal/service/progress"
	"github.com/yourusername/parajuriste-api/pkg/auth"
	"github.com/yourusername/parajuriste-api/pkg/database"
	"github.com/yourusername/parajuriste-api/pkg/logger"
	"github.com/yourusername/parajuriste-api/pkg/monitoring"
	"github.com/yourusername/parajuriste-api/pkg/tracing"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}
	gin.SetMode(cfg.Server.Mode)
	isProduction := gin.Mode() == gin.ReleaseMode

	logger.InitLogger(cfg)
	defer logger.Sync()
	applog := logger.Log.Named("main")

	// Создаем контекст с отменой для фоновых задач
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := tracing.InitOTel(ctx, cfg.Tracing)
	monitoring.Init()

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
	if err != nil {
		applog.Fatal("Failed to connect to database", zap.Error(err))
	}
	if sqlDB, err := database.GetSQLDB(db); err == nil {
		defer sqlDB.Close()
	}

	// Применяем миграции
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		applog.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
	if err != nil {
		applog.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	applog.Info("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	moduleRepo := pgRepo.NewModuleRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db).WithConflictHook(func() {
		monitoring.WriteConflicts.WithLabelValues("attempt_number").Inc()
	})
	moduleProgressRepo := pgRepo.NewModuleProgressRepo(db)
	overallRepo := pgRepo.NewOverallProgressRepo(db)
	certificateRepo := pgRepo.NewCertificateRepo(db)
	activityRepo := pgRepo.NewActivityRepo(db)
	reportRepo := pgRepo.NewReportRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient, cfg.Redis.KeyPrefix)
	if err != nil {
		applog.Fatal("Failed to initialize CacheRepo", zap.Error(err))
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		applog.Fatal("Failed to initialize JWTService", zap.Error(err))
	}

	// Правило прогресса выбирается по языку пользователя
	aggregator := progress.NewAggregator(moduleRepo, overallRepo,
		progress.NewQuizBasedRule(attemptRepo),
		progress.NewAudioBasedRule(moduleProgressRepo),
	)

	// Инициализируем сервисы
	activityService := service.NewActivityService(activityRepo, cfg.Progress.ActivityListLimit)
	authService, err := service.NewAuthService(userRepo, jwtService, activityService)
	if err != nil {
		applog.Fatal("Failed to initialize AuthService", zap.Error(err))
	}
	quizService := service.NewQuizService(
		moduleRepo, attemptRepo, moduleProgressRepo, userRepo, cacheRepo,
		aggregator, activityService, cfg.Progress.ModuleCacheTTL,
	)
	progressService := service.NewProgressService(service.ProgressDeps{
		Users:        userRepo,
		Modules:      moduleRepo,
		Progress:     moduleProgressRepo,
		Overall:      overallRepo,
		Attempts:     attemptRepo,
		Activities:   activityRepo,
		Certificates: certificateRepo,
		Cache:        cacheRepo,
	}, aggregator, activityService, cfg.Progress)
	certificateService := service.NewCertificateService(service.CertificateDeps{
		Users:        userRepo,
		Certificates: certificateRepo,
		Overall:      overallRepo,
		Attempts:     attemptRepo,
		Modules:      moduleRepo,
	}, aggregator, activityService, cfg.Certificate)
	reportService := service.NewReportService(reportRepo, userRepo, activityService)

	// Инициализируем обработчики
	if err := handler.RegisterValidators(); err != nil {
		applog.Fatal("Failed to register validators", zap.Error(err))
	}
	authHandler := handler.NewAuthHandler(authService)
	moduleHandler := handler.NewModuleHandler(quizService)
	progressHandler := handler.NewProgressHandler(progressService, activityService)
	certificateHandler := handler.NewCertificateHandler(certificateService)
	reportHandler := handler.NewReportHandler(reportService)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)
	verifyLimiter := middleware.NewIPLimiter(cfg.Certificate.VerifyRatePerMinute)

	// Фоновый пересчет статистики
	scheduler := jobs.NewScheduler(progressService, cacheRepo, cfg.Progress.StatsCron)
	if err := scheduler.Start(); err != nil {
		applog.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Инициализируем роутер Gin
	router := gin.Default()

	// В production не доверяем прокси-заголовкам (защита от IP spoofing)
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			applog.Warn("failed to set trusted proxies", zap.Error(err))
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			applog.Warn("failed to set trusted proxies", zap.Error(err))
		}
	}

	// Настройка CORS
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Session-ID"},
		ExposeHeaders: []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))
	router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	router.Use(monitoring.MetricsMiddleware())

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Аутентификация
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", rateLimiter.Limit(middleware.StrictAuthRateLimitConfig()), authHandler.Register)
			authGroup.POST("/login", rateLimiter.Limit(middleware.StrictAuthRateLimitConfig()), authHandler.Login)
			authGroup.GET("/me", authMiddleware.RequireAuth(), authHandler.Me)
		}

		// Публичная проверка сертификата
		api.GET("/certificates/verify/:code", verifyLimiter.Middleware(), certificateHandler.Verify)

		authed := api.Group("")
		authed.Use(authMiddleware.RequireAuth())

		// Модули и квизы
		modules := authed.Group("/modules")
		{
			modules.GET("", moduleHandler.ListModules)
			modules.GET("/status", moduleHandler.ModuleStatus)

			moduleWithID := modules.Group("/:id")
			moduleWithID.Use(middleware.ExtractUintParam("id", handler.ContextModuleID))
			{
				moduleWithID.GET("", moduleHandler.GetModule)
				moduleWithID.POST("/start", progressHandler.MarkStarted)
				moduleWithID.POST("/quiz/submit",
					rateLimiter.LimitByUser(middleware.QuizSubmitRateLimitConfig(cfg.RateLimit.QuizSubmitPerMinute)),
					moduleHandler.SubmitQuiz,
				)
				moduleWithID.GET("/quiz/best", moduleHandler.BestAttempt)
				moduleWithID.POST("/audio-progress", progressHandler.TrackAudio)
				moduleWithID.GET("/stats", authMiddleware.StaffOnly(), moduleHandler.ModuleStats)
			}
		}

		authed.GET("/quiz/attempts", moduleHandler.ListAttempts)

		// Прогресс
		progressGroup := authed.Group("/progress")
		{
			progressGroup.GET("/overall", progressHandler.Overall)
			progressGroup.GET("/summary", progressHandler.Summary)
			progressGroup.GET("/leaderboard", progressHandler.Leaderboard)
			progressGroup.GET("/statistics", authMiddleware.StaffOnly(), progressHandler.Statistics)
		}

		authed.GET("/activities", progressHandler.ListActivities)
		authed.POST("/activities", progressHandler.RecordActivity)

		// Сертификаты
		certificates := authed.Group("/certificates")
		{
			certificates.POST("/request", certificateHandler.Request)
			certificates.GET("/fon-info", certificateHandler.FonInfo)
			certificates.POST("/revoke", authMiddleware.StaffOnly(), certificateHandler.Revoke)
		}

		// Сообщения о проблемах
		reports := authed.Group("/reports")
		{
			reports.POST("", reportHandler.Submit)
			reports.GET("/mine", reportHandler.ListMine)
			reports.GET("/summary", reportHandler.Summary)
			reports.GET("/statistics", authMiddleware.StaffOnly(), reportHandler.Statistics)
			reports.GET("/:report_id", reportHandler.Get)
			reports.DELETE("/:report_id", reportHandler.Delete)
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		applog.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	applog.Info("Shutting down server...")

	cancel()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	scheduler.Stop(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		applog.Warn("tracer shutdown failed", zap.Error(err))
	}

	applog.Info("Server exited properly")
}
