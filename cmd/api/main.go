package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/schoolrun/internal/cancellation"
	"github.com/richxcame/schoolrun/internal/matching"
	"github.com/richxcame/schoolrun/internal/notifications"
	"github.com/richxcame/schoolrun/internal/paymentcards"
	"github.com/richxcame/schoolrun/internal/profiles"
	"github.com/richxcame/schoolrun/internal/rides"
	"github.com/richxcame/schoolrun/internal/scheduler"
	"github.com/richxcame/schoolrun/internal/store/memory"
	"github.com/richxcame/schoolrun/internal/wallet"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/database"
	"github.com/richxcame/schoolrun/pkg/health"
	"github.com/richxcame/schoolrun/pkg/logger"
	"github.com/richxcame/schoolrun/pkg/middleware"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/richxcame/schoolrun/pkg/ratelimit"
	"github.com/richxcame/schoolrun/pkg/redis"
	"github.com/richxcame/schoolrun/pkg/resilience"
	"github.com/richxcame/schoolrun/pkg/secrets"
	"github.com/richxcame/schoolrun/pkg/tracing"
	"go.uber.org/zap"
)

const serviceName = "schoolrun-api"

// repositories is the persistence layer selected by STORAGE_DRIVER
type repositories struct {
	tx            database.Transactor
	wallets       wallet.RepositoryInterface
	cards         paymentcards.RepositoryInterface
	rides         interface {
		rides.RepositoryInterface
		matching.RideSource
	}
	notifications notifications.RepositoryInterface
	profiles      profiles.RepositoryInterface
}

func postgresRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		tx:            database.NewTxManager(pool),
		wallets:       wallet.NewRepository(pool),
		cards:         paymentcards.NewRepository(pool),
		rides:         rides.NewRepository(pool),
		notifications: notifications.NewRepository(pool),
		profiles:      profiles.NewRepository(pool),
	}
}

func memoryRepositories(store *memory.Store) repositories {
	return repositories{
		tx:            store,
		wallets:       store.Wallets(),
		cards:         store.Cards(),
		rides:         store.Rides(),
		notifications: store.Notifications(),
		profiles:      store.Profiles(),
	}
}

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := secrets.NewResolver(cfg.Secrets)
	defer resolver.Close()
	if err := resolver.ApplyTo(ctx, cfg); err != nil {
		logger.Fatal("failed to resolve secrets", zap.Error(err))
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, serviceName, cfg.Server.Version, cfg.Server.Environment)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Server.Environment,
			Release:          serviceName + "@" + cfg.Server.Version,
			EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			logger.Warn("failed to initialize sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Persistence
	var (
		repos  repositories
		checks = map[string]common.DependencyCheck{}
	)
	switch cfg.Server.StorageDriver {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		repos = memoryRepositories(memory.New())
	default:
		if cfg.Database.RunMigrations {
			if err := database.Migrate(&cfg.Database); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
			logger.Info("database migrations applied")
		}
		pool, err := database.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close(pool)
		repos = postgresRepositories(pool)
		checks["database"] = health.DatabaseChecker(pool)
	}

	redisClient, err := redis.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	checks["redis"] = health.RedisChecker(redisClient.Client)

	// Notifications
	publisher, err := notifications.NewPublisher(cfg.Events)
	if err != nil {
		logger.Fatal("failed to connect to event broker", zap.Error(err))
	}
	breaker := resilience.NewBreaker(resilience.BuildSettings("notifications-publish", 60, 30, 5, 1))
	notificationService := notifications.NewService(repos.notifications, publisher, breaker)

	// Services
	profileService := profiles.NewService(repos.profiles)
	notificationService.SetLanguageResolver(profileService)

	cardService := paymentcards.NewService(repos.cards, repos.tx)
	walletService := wallet.NewService(repos.wallets, repos.tx, cardService, cfg.Business)

	policy, err := cancellation.NewPolicy(cfg.Business.PenaltyRules)
	if err != nil {
		logger.Fatal("invalid cancellation penalty rules", zap.Error(err))
	}
	cancellationService := cancellation.NewService(policy, walletService)

	matchingService := matching.NewService(redisClient.Client, repos.rides, cfg.Business)

	rideService := rides.NewService(
		repos.rides, repos.tx, walletService, cancellationService,
		matchingService, notificationService, cfg.Business,
	)
	rideService.SetChildDirectory(profileService)
	rideService.SetAttemptLimiter(ratelimit.NewLimiter(redisClient.Client, "otp_attempts", ratelimit.Rule{
		Limit:  cfg.RateLimit.OTPMaxAttempts,
		Window: cfg.RateLimit.OTPWindowPeriod,
	}, cfg.RateLimit.Enabled))

	// Handlers
	matchingHandler := matching.NewHandler(matchingService)
	rideHandler := rides.NewHandler(rideService, matchingHandler)
	walletHandler := wallet.NewHandler(walletService)
	cardHandler := paymentcards.NewHandler(cardService)
	cancellationHandler := cancellation.NewHandler(cancellationService)
	profileHandler := profiles.NewHandler(profileService)
	notificationHandler := notifications.NewHandler(notificationService)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders(cfg.Server.Environment == "production"))
	router.Use(middleware.Metrics(serviceName))
	router.Use(tracing.Middleware(serviceName))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitOrigins(cfg.Server.CORSOrigins)
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	// Health check and metrics (no auth required)
	router.GET("/healthz", common.HealthCheckWithDeps(serviceName, cfg.Server.Version, 3*time.Second, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(timeout.New(
		timeout.WithTimeout(time.Duration(cfg.Server.RequestTimeout)*time.Second),
		timeout.WithResponse(func(c *gin.Context) {
			common.AppErrorResponse(c, common.NewServiceUnavailableError("request timed out"))
		}),
	))
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		rideHandler.RegisterRoutes(api)
		matchingHandler.RegisterRoutes(api.Group("/drivers", middleware.RequireRole(models.RoleDriver)))
		walletHandler.RegisterRoutes(api)
		cardHandler.RegisterRoutes(api)
		cancellationHandler.RegisterRoutes(api)
		profileHandler.RegisterRoutes(api)
		notificationHandler.RegisterRoutes(api)
	}

	// Request expiry
	expiry := scheduler.NewWorker(rideService, logger.Get(), cfg.Business.ExpirySweepInterval)
	go expiry.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("service", serviceName),
			zap.String("port", cfg.Server.Port),
			zap.String("storage", cfg.Server.StorageDriver),
			zap.String("events", cfg.Events.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	expiry.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := notificationService.Close(); err != nil {
		logger.Warn("failed to close event publisher", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("failed to flush traces", zap.Error(err))
	}

	logger.Info("server exited")
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
