package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"ticketing/internal/pkg/httpclient"
	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/domain/port"
)

type staticResolver struct {
	url string
	err error
}

func (r staticResolver) ResolveBaseURL(string) (string, error) { return r.url, r.err }

func newIdentityServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, currentUserPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer manager-token":
			_, _ = w.Write([]byte(`{"status":"success","data":{"id":"m-1","role":"eventmanager"}}`))
		case "Bearer legacy-token":
			_, _ = w.Write([]byte(`{"data":{"cid":"u-9","role":"user"}}`))
		case "Bearer odd-role":
			_, _ = w.Write([]byte(`{"data":{"id":"u-3","role":"superuser"}}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid token"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIdentityHTTPAdapter(t *testing.T) {
	srv := newIdentityServer(t)
	client := httpclient.NewClient(noop.NewTracerProvider().Tracer("test"))
	adapter := NewIdentityHTTPAdapter(client, srv.URL+"/", "", nil, time.Second)
	ctx := context.Background()

	p, err := adapter.CurrentUser(ctx, port.Credentials{BearerToken: "manager-token"})
	require.NoError(t, err)
	assert.Equal(t, &domain.Principal{UserID: "m-1", Role: domain.RoleEventManager}, p)

	p, err = adapter.CurrentUser(ctx, port.Credentials{BearerToken: "legacy-token"})
	require.NoError(t, err)
	assert.Equal(t, "u-9", p.UserID)

	_, err = adapter.CurrentUser(ctx, port.Credentials{BearerToken: "expired"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = adapter.CurrentUser(ctx, port.Credentials{BearerToken: "odd-role"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = adapter.CurrentUser(ctx, port.Credentials{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestIdentityHTTPAdapterDiscoversBaseURL(t *testing.T) {
	srv := newIdentityServer(t)
	client := httpclient.NewClient(noop.NewTracerProvider().Tracer("test"))

	adapter := NewIdentityHTTPAdapter(client, "", "identity-service", staticResolver{url: srv.URL}, time.Second)
	p, err := adapter.CurrentUser(context.Background(), port.Credentials{BearerToken: "manager-token"})
	require.NoError(t, err)
	assert.Equal(t, "m-1", p.UserID)

	adapter = NewIdentityHTTPAdapter(client, "", "identity-service", staticResolver{err: errors.New("no healthy instance")}, time.Second)
	_, err = adapter.CurrentUser(context.Background(), port.Credentials{BearerToken: "manager-token"})
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestIdentityHeaderAdapter(t *testing.T) {
	a := NewIdentityHeaderAdapter()
	ctx := context.Background()

	p, err := a.CurrentUser(ctx, port.Credentials{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, p.Role)

	p, err = a.CurrentUser(ctx, port.Credentials{UserID: "a-1", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)

	_, err = a.CurrentUser(ctx, port.Credentials{UserID: "x", Role: "root"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = a.CurrentUser(ctx, port.Credentials{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
