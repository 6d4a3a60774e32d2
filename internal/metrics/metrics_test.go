package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder("thalrakshak")

	r.ObserveIntent("check_stock")
	r.ObserveIntent("check_stock")
	r.ObserveUpload(UploadTooManyPages)
	r.ObserveRefresh("fallback")
	r.SessionOpened()
	r.SessionOpened()
	r.SessionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.intents.WithLabelValues("check_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.uploads.WithLabelValues(UploadTooManyPages)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessions))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder("thalrakshak")
	r.ObserveIntent("help")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `thalrakshak_intents_classified_total{intent="help"} 1`)
}
