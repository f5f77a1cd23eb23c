package port

import "context"

// IdempotencyStore remembers the outcome of keyed requests per caller.
type IdempotencyStore interface {
	// Begin claims key for scope. It returns the stored result when the key already
	// completed, a domain Conflict error while another request holds it, and (nil, nil)
	// when the caller now owns the key.
	Begin(ctx context.Context, scope, key string) ([]byte, error)
	// Complete stores the result of an owned key.
	Complete(ctx context.Context, scope, key string, result []byte) error
	// Release drops an owned key so it can be retried.
	Release(ctx context.Context, scope, key string) error
}
