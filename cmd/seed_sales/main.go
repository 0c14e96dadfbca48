// seed_sales carga el historial de ventas de los minoristas en el libro de ventas configurado
// (PostgreSQL o MongoDB según SALES_LEDGER_BACKEND) a partir de un CSV separado por ';'.
//
// Uso: go run ./cmd/seed_sales [--utf8] ventas.csv
// Por defecto el archivo se decodifica como ISO-8859-1. La carga es idempotente por ID de venta.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	inframongo "github.com/jhoicas/retail-suggestions/internal/infrastructure/mongo"
	"github.com/jhoicas/retail-suggestions/internal/infrastructure/postgres"
	"github.com/jhoicas/retail-suggestions/pkg/config"
	"github.com/jhoicas/retail-suggestions/pkg/logger"
)

// recorder lo implementan los dos libros de ventas.
type recorder interface {
	Record(ctx context.Context, ev *entity.SalesEvent) error
}

func main() {
	utf8 := flag.Bool("utf8", false, "el CSV ya está en UTF-8")
	flag.Parse()
	csvPath := "ventas.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_sales"})

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	events, err := parseSales(f, !*utf8)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var ledger recorder
	switch cfg.Mongo.SalesLedgerBackend {
	case config.SalesLedgerMongo:
		client, db, err := inframongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a MongoDB")
		}
		defer func() { _ = inframongo.Disconnect(client) }()
		ledger = inframongo.NewSalesLedger(db)
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		ledger = postgres.NewSalesLedger(pool)
	}

	failed := 0
	for _, ev := range events {
		if err := ledger.Record(ctx, ev); err != nil {
			failed++
			log.Error().Err(err).Str("sale_id", ev.ID).Msg("registrar venta")
		}
	}
	log.Info().
		Str("backend", cfg.Mongo.SalesLedgerBackend).
		Int("read", len(events)).
		Int("failed", failed).
		Msg("carga de ventas terminada")
	if failed > 0 {
		os.Exit(1)
	}
}
