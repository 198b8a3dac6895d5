// Package metrics expone métricas Prometheus del motor de aprobación.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/farmadist-api/internal/domain"
)

// Recorder contadores e histogramas de acciones sobre registros.
type Recorder struct {
	registry       *prometheus.Registry
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
}

// New registra las métricas en un registro propio (más las del runtime de Go).
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "farmadist",
				Subsystem: "approval",
				Name:      "actions_total",
				Help:      "Acciones sobre registros de aprobación por resultado.",
			},
			[]string{"action", "outcome"},
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "farmadist",
				Subsystem: "approval",
				Name:      "action_duration_seconds",
				Help:      "Duración de las acciones sobre registros de aprobación.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "farmadist",
				Subsystem: "approval",
				Name:      "status_transitions_total",
				Help:      "Cambios de estado de registros por tipo y estado destino.",
			},
			[]string{"type", "status"},
		),
	}
	r.registry.MustRegister(
		r.actionsTotal, r.actionDuration, r.transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveAction registra una acción con su resultado (ok o código de error).
func (r *Recorder) ObserveAction(action string, err error, d time.Duration) {
	r.actionsTotal.WithLabelValues(action, Outcome(err)).Inc()
	r.actionDuration.WithLabelValues(action).Observe(d.Seconds())
}

// ObserveStatus registra que un registro pasó a status.
func (r *Recorder) ObserveStatus(recordType, status string) {
	r.transitions.WithLabelValues(recordType, status).Inc()
}

// Handler handler HTTP del registro propio.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry para pruebas.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

var outcomes = []struct {
	kind error
	name string
}{
	{domain.ErrPermissionDenied, "permission_denied"},
	{domain.ErrIncompleteDecisions, "incomplete_decisions"},
	{domain.ErrQuantityOutOfRange, "quantity_out_of_range"},
	{domain.ErrInvalidItemReference, "invalid_item_reference"},
	{domain.ErrOutOfSequenceApproval, "out_of_sequence_approval"},
	{domain.ErrInvalidTransition, "invalid_transition"},
	{domain.ErrRecordNotFound, "record_not_found"},
	{domain.ErrConcurrentModification, "concurrent_modification"},
	{domain.ErrInvalidInput, "invalid_input"},
	{domain.ErrDuplicate, "duplicate"},
}

// Outcome etiqueta acotada para el resultado de una acción.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.kind) {
			return o.name
		}
	}
	return "error"
}
