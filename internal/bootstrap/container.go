// Package bootstrap arma el grafo de dependencias compartido por la API y el CLI de jobs.
package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
	"github.com/jhoicas/retail-suggestions/internal/infrastructure/metrics"
	inframongo "github.com/jhoicas/retail-suggestions/internal/infrastructure/mongo"
	"github.com/jhoicas/retail-suggestions/internal/infrastructure/notify"
	infrapdf "github.com/jhoicas/retail-suggestions/internal/infrastructure/pdf"
	"github.com/jhoicas/retail-suggestions/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/retail-suggestions/internal/infrastructure/redis"
	infraxlsx "github.com/jhoicas/retail-suggestions/internal/infrastructure/xlsx"
	"github.com/jhoicas/retail-suggestions/pkg/config"
	"github.com/jhoicas/retail-suggestions/pkg/logger"
)

// notificationsPerSecond tope de publicaciones a Redis por proceso.
const notificationsPerSecond = 50

// Container casos de uso listos para usar y los recursos que hay que cerrar.
type Container struct {
	Pool     *pgxpool.Pool
	Registry *prometheus.Registry
	Recorder *metrics.Recorder
	JobLock  *infraredis.JobLock  // nil si no hay Redis
	Inbox    *infraredis.Notifier // nil si no hay Redis

	Engine       *suggestion.Engine
	Fallback     *suggestion.FallbackHandler
	Confirmation *suggestion.ConfirmationHandler
	Expiring     *suggestion.ExpiringUseCase
	Queries      *suggestion.QueryUseCase
	Reports      *suggestion.ReportUseCase

	redis  *goredis.Client
	mongo  *mongodrv.Client
	logger *logger.Logger
}

// Build conecta los almacenes configurados y construye los casos de uso.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{logger: log}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	c.Pool = pool

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Recorder = metrics.NewRecorder(c.Registry)

	sales, err := c.salesLedger(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	notifier, err := c.notifier(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	products := postgres.NewProductRepository(pool)
	batches := postgres.NewInventoryBatchRepository(pool)
	retailers := postgres.NewRetailerRepository(pool)
	purchases := postgres.NewPurchaseRepository(pool)
	suggestions := postgres.NewSuggestionRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	engineCfg := suggestion.Config{
		MaxCandidates: cfg.Suggestion.MaxCandidates,
		WriteRetries:  cfg.Suggestion.WriteRetries,
		StaleAfter:    cfg.Suggestion.StaleAfter,
		ExpiryHorizon: cfg.Suggestion.ExpiryHorizon(),
		Workers:       cfg.Suggestion.Workers,
	}

	ranker := suggestion.NewRetailerRanker(purchases, sales, cfg.Suggestion.MaxCandidates)
	c.Engine = suggestion.NewEngine(products, batches, retailers, suggestions, ranker, notifier, c.Recorder,
		engineCfg, log.Component("engine"))
	c.Fallback = suggestion.NewFallbackHandler(products, batches, suggestions, ranker, notifier, c.Recorder,
		engineCfg, log.Component("fallback"))
	c.Confirmation = suggestion.NewConfirmationHandler(txRunner, suggestions, products, c.Fallback, c.Recorder,
		engineCfg, log.Component("confirmation"))
	c.Expiring = suggestion.NewExpiringUseCase(c.Engine, batches, suggestions, c.Recorder,
		engineCfg, log.Component("expiring"))
	c.Queries = suggestion.NewQueryUseCase(suggestions, products, retailers, ranker)
	c.Reports = suggestion.NewReportUseCase(c.Queries, map[string]suggestion.ReportRenderer{
		suggestion.ReportFormatPDF:  infrapdf.NewExpiredReportGenerator(cfg.App.Name),
		suggestion.ReportFormatXLSX: infraxlsx.ExpiredSheet{},
	})
	return c, nil
}

func (c *Container) salesLedger(ctx context.Context, cfg *config.Config) (repository.SalesLedger, error) {
	if cfg.Mongo.SalesLedgerBackend != config.SalesLedgerMongo {
		return postgres.NewSalesLedger(c.Pool), nil
	}
	client, db, err := inframongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, fmt.Errorf("conexión a MongoDB: %w", err)
	}
	c.mongo = client
	c.logger.Info().Str("database", cfg.Mongo.Database).Msg("libro de ventas en MongoDB")
	return inframongo.NewSalesLedger(db), nil
}

func (c *Container) notifier(ctx context.Context, cfg *config.Config) (suggestion.Notifier, error) {
	if !cfg.Redis.Enabled() {
		c.logger.Warn().Msg("REDIS_ADDR vacío: notificaciones solo en log y sin candado de jobs")
		return notify.NewLogNotifier(c.logger.Component("notifier")), nil
	}
	rdb, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("conexión a Redis: %w", err)
	}
	c.redis = rdb
	c.JobLock = infraredis.NewJobLock(rdb, cfg.App.Name)
	c.Inbox = infraredis.NewNotifier(rdb, notificationsPerSecond)
	return c.Inbox, nil
}

// Close libera las conexiones abiertas.
func (c *Container) Close() {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Error().Err(err).Msg("cerrar Redis")
		}
	}
	if c.mongo != nil {
		if err := inframongo.Disconnect(c.mongo); err != nil {
			c.logger.Error().Err(err).Msg("cerrar MongoDB")
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
