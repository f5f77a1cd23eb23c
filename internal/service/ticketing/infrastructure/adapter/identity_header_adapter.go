package adapter

import (
	"context"

	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/domain/port"
)

// IdentityHeaderAdapter trusts X-User-ID and X-User-Role set by an upstream gateway.
type IdentityHeaderAdapter struct{}

func NewIdentityHeaderAdapter() *IdentityHeaderAdapter {
	return &IdentityHeaderAdapter{}
}

func (IdentityHeaderAdapter) CurrentUser(_ context.Context, creds port.Credentials) (*domain.Principal, error) {
	if creds.UserID == "" {
		return nil, domain.NewUnauthorized("authentication required")
	}
	role := domain.Role(creds.Role)
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, domain.NewUnauthorized("unknown role " + creds.Role)
	}
	return &domain.Principal{UserID: creds.UserID, Role: role}, nil
}
