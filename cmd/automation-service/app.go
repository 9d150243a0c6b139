package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"autoclip/internal/action"
	"autoclip/internal/analytics"
	"autoclip/internal/broker"
	"autoclip/internal/config"
	"autoclip/internal/learning"
	"autoclip/internal/logger"
	"autoclip/internal/notify"
	"autoclip/internal/rule"
	"autoclip/internal/scene"
	"autoclip/pkg/bootstrap"
	"autoclip/pkg/health"
	"autoclip/pkg/metrics"
	"autoclip/pkg/resilience"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	*bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector
	redis       *redis.Client
	mongoClient *mongo.Client

	ruleStore  *rule.MongoStore
	sceneStore scene.Store
	engine     *rule.Engine
	notifier   notify.Notifier
	server     *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	a.redis = rdb

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	a.mongoClient = mongoClient

	if err := a.InitBroker(a.retryPolicy()); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initEngine(ctx); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	metrics.RegisterEngineMetrics()
	metrics.RegisterFilterMetrics()
	metrics.RegisterResilienceMetrics()
	metrics.RegisterBrokerMetrics()

	a.initHTTPServer()

	return nil
}

func (a *App) retryPolicy() resilience.Policy {
	retryCfg := a.Config.Engine.Retry
	return resilience.Policy{
		MaxRetries:   retryCfg.MaxRetries,
		InitialDelay: retryCfg.InitialDelay,
		MaxDelay:     retryCfg.MaxDelay,
		Multiplier:   retryCfg.Multiplier,
	}
}

func (a *App) initEngine(ctx context.Context) error {
	db := a.mongoClient.Database(a.Config.Database.MongoDB.Database)

	a.ruleStore = rule.NewMongoStore(db)
	if err := a.ruleStore.EnsureIndexes(ctx); err != nil {
		return err
	}

	sceneMongo := scene.NewMongoStore(db)
	if err := sceneMongo.EnsureIndexes(ctx); err != nil {
		return err
	}
	featureCache := scene.NewRedisFeatureCache(a.redis, a.Config.Engine.FeatureCache.TTL)
	a.sceneStore = scene.NewCachedStore(sceneMongo, featureCache, a.Logger)

	breakerCfg := resilience.DefaultBreakerConfig("")
	breakerCfg.FailureThreshold = a.Config.Engine.CircuitBreaker.FailureThreshold
	breakerCfg.ResetTimeout = a.Config.Engine.CircuitBreaker.ResetTimeout
	breakerCfg.HalfOpenRequests = a.Config.Engine.CircuitBreaker.HalfOpenRequests
	registry := resilience.NewRegistry(a.retryPolicy(), breakerCfg)

	a.notifier = notify.NopNotifier{}
	if a.Config.Notifications.Enabled && a.Config.Broker.Kafka.NotificationsTopic != "" {
		a.notifier = notify.NewKafkaNotifier(a.Config.Broker.Kafka)
	}

	learners := learning.NewRegistry(a.sceneStore, a.Logger)

	commands := action.NewKafkaCommandService(a.Producer, a.Config.Broker.Kafka.CommandTopic, a.Logger)
	dispatcher := action.NewDispatcher(registry, a.Logger)
	dispatcher.Register(rule.ActionContent, action.NewContentHandler(commands))
	dispatcher.Register(rule.ActionPublish, action.NewPublishHandler(commands))
	dispatcher.Register(rule.ActionSchedule, action.NewScheduleHandler(commands))
	dispatcher.Register(rule.ActionNotify, action.NewNotifyHandler(a.notifier))
	dispatcher.Register(rule.ActionWebhook, action.NewWebhookHandler(action.NewHTTPWebhookSender()))
	dispatcher.Register(rule.ActionEmail, action.NewEmailHandler(commands))
	dispatcher.Register(rule.ActionSceneDetection, action.NewSceneDetectionHandler(commands))
	dispatcher.Register(rule.ActionClipCreation, action.NewClipCreationHandler(commands))
	dispatcher.Register(rule.ActionCaptionGeneration, action.NewCaptionHandler(commands))
	dispatcher.Register(rule.ActionCarouselCreation, action.NewCarouselHandler(commands))
	dispatcher.Register(rule.ActionKeyMomentTagging, action.NewKeyMomentHandler())
	dispatcher.Register(rule.ActionAnalyticsExport, action.NewAnalyticsExportHandler(commands))
	dispatcher.Register(rule.ActionAudioFilteredClipCreation, action.NewAudioFilteredClipHandler(commands, learners, a.Logger))
	dispatcher.Register(rule.ActionAudioSegmentSkipping, action.NewAudioSegmentSkipHandler(a.sceneStore, a.Logger))
	// Music generation needs a provider integration this deployment does
	// not ship; rules using it get a "not available" action failure.

	recorder := analytics.NewRecorder(a.ruleStore, a.Logger)

	engine, err := rule.NewEngine(a.ruleStore, a.sceneStore, dispatcher, recorder, a.Logger,
		rule.WithNotifier(a.notifier),
		rule.WithTriggerRateLimit(a.Config.Engine.RateLimit.TriggersPerMinute, a.Config.Engine.RateLimit.Burst),
	)
	if err != nil {
		return err
	}
	a.engine = engine
	return nil
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewRedisChecker(a.redis))
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Starting content event consumer",
			"topic", a.Config.Broker.Kafka.EventTopic,
		)
		return a.Consumer.Consume(gCtx, a.Config.Broker.Kafka.EventTopic, broker.EngineHandler(a.engine, a.Logger))
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("Shutting down automation service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if closer, ok := a.notifier.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("notifier close error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
