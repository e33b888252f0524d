package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics(t *testing.T) {
	Register()
	Register()

	before := counterValue(t, httpRequests.WithLabelValues("GET /jobs", http.MethodGet, "200"))
	ObserveHTTP("GET /jobs", http.MethodGet, http.StatusOK, 15*time.Millisecond)
	after := counterValue(t, httpRequests.WithLabelValues("GET /jobs", http.MethodGet, "200"))
	assert.Equal(t, before+1, after)

	assert.NotPanics(t, func() {
		ObserveHTTP("", http.MethodGet, http.StatusNotFound, time.Millisecond)
		IncJobEvent("job_created")
	})
	assert.Equal(t, float64(1), counterValue(t, httpRequests.WithLabelValues("unmatched", http.MethodGet, "404")))

	before = counterValue(t, syncTasks.WithLabelValues("completed"))
	IncSyncTask("completed")
	assert.Equal(t, before+1, counterValue(t, syncTasks.WithLabelValues("completed")))
}
