package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsolatedRegistries(t *testing.T) {
	a := prometheus.NewRegistry()
	b := prometheus.NewRegistry()

	ma := New(a)
	mb := New(b)

	ma.Appends.Add(3)
	mb.Appends.Add(5)
	ma.EmitterBuilds.WithLabelValues("static").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(ma.Appends))
	assert.Equal(t, 5.0, testutil.ToFloat64(mb.Appends))
	assert.Equal(t, 1.0, testutil.ToFloat64(ma.EmitterBuilds.WithLabelValues("static")))

	n, err := testutil.GatherAndCount(a, "attractors_step_thread_appends_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_NilRegisterer(t *testing.T) {
	m := New(nil)
	m.RunningThread.Set(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunningThread))
}
