package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentHandlerRecordsRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := InstrumentHandler(mux)

	before := testutil.CollectAndCount(httpDuration)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.CollectAndCount(httpDuration))

	// same route, same status: no new series
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/43", nil))
	assert.Equal(t, before+1, testutil.CollectAndCount(httpDuration))
}

func TestPurchaseCounters(t *testing.T) {
	before := testutil.ToFloat64(PurchasesTotal.WithLabelValues("committed"))
	PurchasesTotal.WithLabelValues("committed").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PurchasesTotal.WithLabelValues("committed")))
}
