package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterAndSetQueue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetQueue(map[string]int{"X": 3, "Y": 1})
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueLength.WithLabelValues("X")))

	m.SetQueue(map[string]int{"Y": 2})
	assert.Equal(t, 1, testutil.CollectAndCount(m.QueueLength))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
