package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/config"
	"github.com/readnext/readnext/internal/database"
	"github.com/readnext/readnext/internal/graph"
	"github.com/readnext/readnext/internal/handlers"
	"github.com/readnext/readnext/internal/messaging"
	"github.com/readnext/readnext/internal/middleware"
	"github.com/readnext/readnext/internal/services"
	"github.com/readnext/readnext/internal/store"
)

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	db        *database.Database
	reminders *messaging.ReminderPublisher
	handlers  *handlers.Handlers
	router    *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	// Stores
	catalog := store.NewBookCatalogStore(db.PG, app.logger)
	history := store.NewBorrowHistoryStore(db.PG, app.logger)

	usePgvector := db.HasPgvector(context.Background())
	embeddings := store.NewEmbeddingStore(db.PG, db.Redis, usePgvector, &cfg.Recommendation, app.logger)

	// Recall paths and fusion
	recCfg := &cfg.Recommendation
	profiles := services.NewSemanticProfileBuilder(history, catalog, embeddings, recCfg.TrendingSampleSize, app.logger)
	semantic := services.NewSemanticRecall(profiles, history, embeddings, app.logger)
	deep := services.NewDeepMatchRecall(profiles, catalog, history, embeddings, recCfg.CandidateMultiplier, app.logger)
	graphBuilder := graph.NewBuilder(history, recCfg.MaxBooksPerUser, recCfg.MaxBorrowersPerBook, app.logger)

	metrics := services.NewMetrics(prometheus.DefaultRegisterer)
	recommender := services.NewRecommendationService(
		graphBuilder, semantic, deep, catalog, history, recCfg, metrics, app.logger,
	)

	app.reminders = messaging.NewReminderPublisher(&cfg.Kafka, app.logger)

	app.handlers = &handlers.Handlers{
		Recommendation: handlers.NewRecommendationHandler(recommender, app.logger),
		Embedding:      handlers.NewEmbeddingHandler(embeddings, app.logger),
		Reminder:       handlers.NewReminderHandler(app.reminders, app.logger),
		Health:         handlers.NewHealthHandler(db, app.logger),
	}

	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.reminders.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing reminder publisher")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/recommendations/:userId", a.handlers.Recommendation.Get)

		api.PUT("/embeddings/:bookId", a.handlers.Embedding.Upsert)
		api.GET("/books/:bookId/similar", a.handlers.Embedding.Similar)

		api.POST("/reminders", a.handlers.Reminder.Create)
	}

	a.router = router
}
