package adapter

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"ticketing/internal/pkg/httpclient"
	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/domain/port"
)

const currentUserPath = "/api/v1/users/me"

// BaseURLResolver finds the identity service, typically through Nacos.
type BaseURLResolver interface {
	ResolveBaseURL(serviceName string) (string, error)
}

// IdentityHTTPAdapter implements port.IdentityProvider against the identity service.
type IdentityHTTPAdapter struct {
	client      *httpclient.Client
	baseURL     string
	serviceName string
	resolver    BaseURLResolver
	timeout     time.Duration
}

// NewIdentityHTTPAdapter uses baseURL when set and otherwise asks resolver for serviceName.
func NewIdentityHTTPAdapter(client *httpclient.Client, baseURL, serviceName string, resolver BaseURLResolver, timeout time.Duration) *IdentityHTTPAdapter {
	return &IdentityHTTPAdapter{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		serviceName: serviceName,
		resolver:    resolver,
		timeout:     timeout,
	}
}

type currentUserResponse struct {
	Data struct {
		ID   string `json:"id"`
		CID  string `json:"cid"`
		Role string `json:"role"`
	} `json:"data"`
}

func (a *IdentityHTTPAdapter) CurrentUser(ctx context.Context, creds port.Credentials) (*domain.Principal, error) {
	if creds.BearerToken == "" {
		return nil, domain.NewUnauthorized("authentication required")
	}
	base, err := a.base()
	if err != nil {
		return nil, err
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+creds.BearerToken)
	header.Set("Accept", "application/json")

	var resp currentUserResponse
	if err := a.client.GetJSON(ctx, base+currentUserPath, header, &resp); err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
			return nil, domain.NewUnauthorized("invalid or expired token")
		}
		return nil, errors.Wrap(err, "identity lookup")
	}

	id := resp.Data.ID
	if id == "" {
		id = resp.Data.CID
	}
	role := domain.Role(resp.Data.Role)
	if id == "" || !role.Valid() {
		return nil, domain.NewUnauthorized("identity service returned no usable principal")
	}
	return &domain.Principal{UserID: id, Role: role}, nil
}

func (a *IdentityHTTPAdapter) base() (string, error) {
	if a.baseURL != "" {
		return a.baseURL, nil
	}
	if a.resolver == nil {
		return "", errors.New("identity service has neither a base url nor a resolver")
	}
	url, err := a.resolver.ResolveBaseURL(a.serviceName)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", a.serviceName)
	}
	return strings.TrimRight(url, "/"), nil
}
