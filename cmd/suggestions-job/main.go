package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/retail-suggestions/pkg/config"
	"github.com/jhoicas/retail-suggestions/pkg/logger"
)

var (
	cfg *config.Config
	log *logger.Logger
)

// rootCmd comando base: disparadores del motor de sugerencias para cron externo.
var rootCmd = &cobra.Command{
	Use:   "suggestions-job",
	Short: "Disparadores del motor de sugerencias para ejecutar desde cron",
	Long: `Ejecuta una vez los disparadores periódicos del motor de sugerencias
(tick de lotes por vencer y barrido de sugerencias sin respuesta), aplica el esquema
de base de datos o emite tokens de acceso. Con Redis configurado, cada job toma un
candado para que dos réplicas no lo ejecuten a la vez.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

func persistentPreRun(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log = logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
		Out:     os.Stderr,
	})
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
