package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNop_RecordSplit(t *testing.T) {
	collector := NewNop()

	require.NotPanics(t, func() {
		collector.RecordSplit(OutcomeOK, time.Millisecond, 10, 2)
		collector.RecordSplit("", 0, 0, 0)
		collector.RecordSplit(OutcomeError, -1, -1, -1)
	})
}

func TestPrometheus_RecordSplit(t *testing.T) {
	p := NewPrometheus("")

	p.RecordSplit(OutcomeOK, 2*time.Millisecond, 12, 2)
	p.RecordSplit(OutcomeOK, time.Millisecond, 4, 1)
	p.RecordSplit(OutcomeDegraded, time.Second, 5000, 3)
	p.RecordSplit(OutcomeUnfulfillable, 0, 0, 0)

	require.Equal(t, 2.0, testutil.ToFloat64(p.splits.WithLabelValues(OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(p.splits.WithLabelValues(OutcomeDegraded)))
	require.Equal(t, 1.0, testutil.ToFloat64(p.splits.WithLabelValues(OutcomeUnfulfillable)))

	count, err := testutil.GatherAndCount(p.Registry(), "basket_splitter_search_nodes")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus("splitter_test")
	p.RecordSplit(OutcomeOK, time.Millisecond, 3, 1)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `splitter_test_splits_total{outcome="ok"} 1`)
	require.Contains(t, rec.Body.String(), "splitter_test_split_duration_seconds_bucket")
}
