package port

import (
	"context"

	"ticketing/internal/service/ticketing/domain"
)

// Credentials is what a request presents to identify its caller.
type Credentials struct {
	BearerToken string
	UserID      string
	Role        string
}

func (c Credentials) Empty() bool {
	return c.BearerToken == "" && c.UserID == ""
}

// IdentityProvider resolves credentials to a principal. Invalid or unknown credentials
// yield a domain Unauthorized error.
type IdentityProvider interface {
	CurrentUser(ctx context.Context, creds Credentials) (*domain.Principal, error)
}
