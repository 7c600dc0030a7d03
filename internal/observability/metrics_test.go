package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveTurn(types.SectionSkills, OutcomeAdvanced, 10*time.Millisecond)
	m.ObserveTurn(types.SectionSkills, OutcomeAdvanced, 20*time.Millisecond)
	m.ObserveValidation(types.SectionPersonalInfo, validation.TierStructural, false)
	m.ObserveJudgeAttempts(types.SectionEducation, 3)
	m.ObserveDocument("generated")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("skills", OutcomeAdvanced)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationsTotal.WithLabelValues("personal_info", "structural", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsTotal.WithLabelValues("generated")))

	n, err := testutil.GatherAndCount(reg, "cv_judge_attempts")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_ImplementsObserver(t *testing.T) {
	var _ validation.Observer = NewMetrics(prometheus.NewRegistry())
}
