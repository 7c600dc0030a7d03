package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

// Turn outcomes
const (
	OutcomeAdvanced = "advanced"
	OutcomeStayed   = "stayed"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics records conversation metrics in Prometheus.
type Metrics struct {
	turnsTotal       *prometheus.CounterVec
	turnDuration     *prometheus.HistogramVec
	validationsTotal *prometheus.CounterVec
	judgeAttempts    *prometheus.HistogramVec
	documentsTotal   *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		turnsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cv_turns_total",
				Help: "Conversation turns by starting section and outcome",
			},
			[]string{"section", "outcome"},
		),
		turnDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cv_turn_duration_seconds",
				Help:    "Duration of a conversation turn in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"section"},
		),
		validationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cv_validations_total",
				Help: "Section validations by tier and result",
			},
			[]string{"section", "tier", "result"},
		),
		judgeAttempts: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cv_judge_attempts",
				Help:    "Judge attempts needed per semantic validation",
				Buckets: []float64{1, 2, 3, 5},
			},
			[]string{"section"},
		),
		documentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cv_documents_total",
				Help: "Document generations by status",
			},
			[]string{"status"},
		),
	}
}

// ObserveTurn records one turn that started in section.
func (m *Metrics) ObserveTurn(section types.Section, outcome string, d time.Duration) {
	m.turnsTotal.WithLabelValues(string(section), outcome).Inc()
	m.turnDuration.WithLabelValues(string(section)).Observe(d.Seconds())
}

// ObserveValidation implements validation.Observer.
func (m *Metrics) ObserveValidation(section types.Section, tier validation.Tier, valid bool) {
	result := "pass"
	if !valid {
		result = "fail"
	}
	m.validationsTotal.WithLabelValues(string(section), string(tier), result).Inc()
}

// ObserveJudgeAttempts implements validation.Observer.
func (m *Metrics) ObserveJudgeAttempts(section types.Section, attempts int) {
	m.judgeAttempts.WithLabelValues(string(section)).Observe(float64(attempts))
}

// ObserveDocument records a generate request; status is "generated" or "failed".
func (m *Metrics) ObserveDocument(status string) {
	m.documentsTotal.WithLabelValues(status).Inc()
}
