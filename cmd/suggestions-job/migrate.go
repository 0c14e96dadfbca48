package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/retail-suggestions/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica el esquema SQL embebido (idempotente)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		defer pool.Close()

		applied, err := postgres.ApplySchema(ctx, pool)
		if err != nil {
			return err
		}
		for _, name := range applied {
			log.Info().Str("file", name).Msg("esquema aplicado")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
