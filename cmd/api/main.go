package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/retail-suggestions/internal/bootstrap"
	httpRouter "github.com/jhoicas/retail-suggestions/internal/interfaces/http"
	"github.com/jhoicas/retail-suggestions/internal/jobs"
	"github.com/jhoicas/retail-suggestions/pkg/config"
	"github.com/jhoicas/retail-suggestions/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer c.Close()

	// Disparadores periódicos: tick de lotes por vencer y barrido de sugerencias sin respuesta.
	var scheduler *jobs.Scheduler
	if cfg.Suggestion.SchedulerEnabled {
		var locker jobs.Locker
		if c.JobLock != nil {
			locker = c.JobLock
		}
		jobLog := log.Component("jobs")
		scheduler = jobs.NewScheduler(jobLog, locker, c.Recorder)
		scheduler.Add(jobs.ExpiringTickJob(c.Expiring, cfg.Suggestion.TickInterval, jobLog))
		scheduler.Add(jobs.StaleSweepJob(c.Fallback, cfg.Suggestion.SweepInterval, jobLog))
		scheduler.Start(ctx)
	} else {
		log.Info().Msg("scheduler deshabilitado: usar suggestions-job desde cron")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Retail Suggestions API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:       c.Engine,
		Fallback:     c.Fallback,
		Confirmation: c.Confirmation,
		Expiring:     c.Expiring,
		Queries:      c.Queries,
		Reports:      c.Reports,
		Gatherer:     c.Registry,
		JWTSecret:    cfg.JWT.Secret,
		ServiceName:  cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
