package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestClientGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"u-1"}`))
		case "/denied":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"no"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(noop.NewTracerProvider().Tracer("test"))

	var out struct {
		ID string `json:"id"`
	}
	err := c.GetJSON(context.Background(), srv.URL+"/ok", http.Header{"Authorization": {"Bearer abc"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "u-1", out.ID)

	err = c.GetJSON(context.Background(), srv.URL+"/denied", nil, &out)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "no")
}
