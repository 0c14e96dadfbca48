package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
)

var _ suggestion.Metrics = (*Recorder)(nil)

// Recorder métricas Prometheus del motor de sugerencias y de los jobs periódicos.
type Recorder struct {
	outcomes       *prometheus.CounterVec
	changes        *prometheus.CounterVec
	reassignments  *prometheus.CounterVec
	expirations    *prometheus.CounterVec
	confirmations  prometheus.Counter
	rejections     prometheus.Counter
	writeConflicts *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	jobRuns        *prometheus.CounterVec
}

// NewRecorder registra las métricas en reg (prometheus.DefaultRegisterer en producción).
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "suggestions_outcomes_total",
			Help: "Resultados de Suggest por motivo (ok o motivo de no sugerencia)",
		}, []string{"reason"}),
		changes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "suggestions_upserts_total",
			Help: "Efecto del upsert sobre el almacén de sugerencias",
		}, []string{"change"}),
		reassignments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "suggestions_reassignments_total",
			Help: "Reasignaciones por disparador (rejection, stale)",
		}, []string{"trigger"}),
		expirations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "suggestions_expired_total",
			Help: "Sugerencias expiradas por causa",
		}, []string{"cause"}),
		confirmations: f.NewCounter(prometheus.CounterOpts{
			Name: "suggestions_confirmed_total",
			Help: "Sugerencias confirmadas",
		}),
		rejections: f.NewCounter(prometheus.CounterOpts{
			Name: "suggestions_rejected_total",
			Help: "Sugerencias rechazadas",
		}),
		writeConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "suggestions_write_conflicts_total",
			Help: "Conflictos de escritura concurrente reintentados por operación",
		}, []string{"op"}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "suggestions_sweep_duration_seconds",
			Help:    "Duración del barrido de sugerencias sin respuesta",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		jobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "suggestions_job_runs_total",
			Help: "Ejecuciones de jobs periódicos por job y resultado",
		}, []string{"job", "result"}),
	}
}

func (r *Recorder) SuggestOutcome(reason string) { r.outcomes.WithLabelValues(reason).Inc() }

func (r *Recorder) SuggestionChanged(change entity.SuggestionChange) {
	r.changes.WithLabelValues(string(change)).Inc()
}

func (r *Recorder) Reassigned(trigger string) { r.reassignments.WithLabelValues(trigger).Inc() }
func (r *Recorder) Expired(cause string)      { r.expirations.WithLabelValues(cause).Inc() }
func (r *Recorder) Confirmed()                { r.confirmations.Inc() }
func (r *Recorder) Rejected()                 { r.rejections.Inc() }
func (r *Recorder) WriteConflict(op string)   { r.writeConflicts.WithLabelValues(op).Inc() }

func (r *Recorder) SweepDuration(d time.Duration) { r.sweepDuration.Observe(d.Seconds()) }

// JobRun cuenta una ejecución de job (result: ok, error, skipped).
func (r *Recorder) JobRun(job, result string) { r.jobRuns.WithLabelValues(job, result).Inc() }
