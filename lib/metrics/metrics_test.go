package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMetrics(t *testing.T) {
	j := NewJobMetrics("metrics-test")
	assert.Zero(t, testutil.ToFloat64(j.FramesConverted))

	j.FramesConverted.Inc()
	j.BytesWritten.Add(512)
	assert.Equal(t, 1.0, testutil.ToFloat64(FramesConverted.WithLabelValues("metrics-test")))
	assert.Equal(t, 512.0, testutil.ToFloat64(BytesWritten.WithLabelValues("metrics-test")))
}

func TestWarning(t *testing.T) {
	before := testutil.ToFloat64(ConversionWarnings.WithLabelValues("metrics-test"))
	Warning("metrics-test")
	assert.Equal(t, before+1, testutil.ToFloat64(ConversionWarnings.WithLabelValues("metrics-test")))
}

func TestHandler(t *testing.T) {
	NewJobMetrics("exported")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `framexform_frames_converted_total{job="exported"} 0`)
}
