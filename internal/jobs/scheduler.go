// Package jobs ejecuta los disparadores periódicos del motor de sugerencias.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Resultados de una ejecución, usados como etiqueta de métricas.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Locker candado entre réplicas. acquired=false si otra instancia ya ejecuta el job.
type Locker interface {
	TryAcquire(ctx context.Context, job string, ttl time.Duration) (release func(), acquired bool, err error)
}

// RunRecorder registra el resultado de cada ejecución.
type RunRecorder interface {
	JobRun(job, result string)
}

// Job tarea periódica con nombre.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // 0 = Interval
	Run      func(ctx context.Context) error
}

// Scheduler corre cada Job en su propio ticker hasta Stop o cancelación del contexto.
type Scheduler struct {
	jobs     []Job
	locker   Locker
	recorder RunRecorder
	logger   zerolog.Logger

	mu      sync.Mutex
	running map[string]bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler construye el scheduler. locker y recorder son opcionales.
func NewScheduler(logger zerolog.Logger, locker Locker, recorder RunRecorder) *Scheduler {
	return &Scheduler{
		locker:   locker,
		recorder: recorder,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		running:  make(map[string]bool),
	}
}

// Add registra un job. Debe llamarse antes de Start.
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start lanza una goroutine por job y retorna de inmediato.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, j := range s.jobs {
		if j.Interval <= 0 {
			s.logger.Warn().Str("job", j.Name).Msg("intervalo inválido, job deshabilitado")
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
}

// Stop cancela los tickers y espera a que terminen las ejecuciones en curso (máx 10s).
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info().Msg("scheduler detenido")
	case <-time.After(10 * time.Second):
		s.logger.Warn().Msg("scheduler no terminó a tiempo")
	}
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	defer s.wg.Done()
	s.logger.Info().Str("job", j.Name).Dur("interval", j.Interval).Msg("job programado")

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx, j)
		}
	}
}

// RunOnce ejecuta el job una vez: sin solaparse consigo mismo y, si hay Locker, con candado entre réplicas.
// Devuelve el resultado registrado (ok, error o skipped).
func (s *Scheduler) RunOnce(ctx context.Context, j Job) string {
	if !s.begin(j.Name) {
		s.logger.Debug().Str("job", j.Name).Msg("ejecución anterior en curso, se omite")
		return s.record(j.Name, ResultSkipped)
	}
	defer s.end(j.Name)

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = j.Interval
	}
	if timeout <= 0 {
		timeout = time.Hour
	}

	if s.locker != nil {
		release, ok, err := s.locker.TryAcquire(ctx, j.Name, timeout)
		if err != nil {
			s.logger.Error().Err(err).Str("job", j.Name).Msg("no se pudo tomar el candado")
			return s.record(j.Name, ResultError)
		}
		if !ok {
			s.logger.Debug().Str("job", j.Name).Msg("otra instancia ejecuta el job")
			return s.record(j.Name, ResultSkipped)
		}
		defer release()
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := safeRun(runCtx, j.Run)
	logEvt := s.logger.Info()
	result := ResultOK
	if err != nil {
		logEvt = s.logger.Error().Err(err)
		result = ResultError
	}
	logEvt.Str("job", j.Name).Dur("duration", time.Since(start)).Msg("job ejecutado")
	return s.record(j.Name, result)
}

func (s *Scheduler) begin(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) end(name string) {
	s.mu.Lock()
	delete(s.running, name)
	s.mu.Unlock()
}

func (s *Scheduler) record(job, result string) string {
	if s.recorder != nil {
		s.recorder.JobRun(job, result)
	}
	return result
}

// safeRun convierte un panic del job en error para que el ticker siga vivo.
func safeRun(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
