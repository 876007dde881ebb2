package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitialize_Singleton(t *testing.T) {
	a := Initialize()
	b := Get()
	assert.Same(t, a, b)
}

func TestStudyCounters(t *testing.T) {
	m := Get()

	before := testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("result_log", "ok"))
	m.SubmissionsTotal.WithLabelValues("result_log", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("result_log", "ok")))

	clicks := testutil.ToFloat64(m.ClicksTotal)
	m.ClicksTotal.Inc()
	assert.Equal(t, clicks+1, testutil.ToFloat64(m.ClicksTotal))
}
