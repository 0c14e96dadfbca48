package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/retail-suggestions/internal/bootstrap"
	"github.com/jhoicas/retail-suggestions/internal/jobs"
)

var jobTimeout time.Duration

var expiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "Vence lotes pasados y sugiere para los que vencen dentro del horizonte",
	Example: `  suggestions-job expiring
  SUGGESTION_EXPIRY_HORIZON_DAYS=5 suggestions-job expiring --timeout 10m`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(jobs.JobExpiringTick, func(ctx context.Context, c *bootstrap.Container) (interface{}, error) {
			return c.Expiring.RunTick(ctx)
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reasigna sugerencias sin respuesta y rechazos con fallback pendiente",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(jobs.JobStaleSweep, func(ctx context.Context, c *bootstrap.Container) (interface{}, error) {
			return c.Fallback.Sweep(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(expiringCmd, sweepCmd)
	for _, c := range []*cobra.Command{expiringCmd, sweepCmd} {
		c.Flags().DurationVar(&jobTimeout, "timeout", 30*time.Minute, "tiempo máximo de ejecución")
	}
}

// runJob ejecuta el job una vez con candado y métricas, e imprime el reporte en JSON por stdout.
func runJob(name string, fn func(ctx context.Context, c *bootstrap.Container) (interface{}, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	var locker jobs.Locker
	if c.JobLock != nil {
		locker = c.JobLock
	}
	scheduler := jobs.NewScheduler(log.Component("jobs"), locker, c.Recorder)

	var report interface{}
	result := scheduler.RunOnce(ctx, jobs.Job{
		Name:    name,
		Timeout: jobTimeout,
		Run: func(ctx context.Context) error {
			r, err := fn(ctx, c)
			report = r
			return err
		},
	})

	switch result {
	case jobs.ResultSkipped:
		log.Warn().Str("job", name).Msg("otra instancia ya ejecuta el job")
		return nil
	case jobs.ResultError:
		return fmt.Errorf("job %s falló", name)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
