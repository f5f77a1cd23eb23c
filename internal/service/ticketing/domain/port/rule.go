package port

import (
	"context"
	"time"
)

// ConditionFacts are the variables a tier condition can reference.
type ConditionFacts struct {
	TicketCount int
	Role        string
	UserID      string
	Now         time.Time
}

// ConditionEvaluator checks per-tier eligibility expressions.
type ConditionEvaluator interface {
	// Compile validates expr without evaluating it.
	Compile(expr string) error
	Evaluate(ctx context.Context, expr string, facts ConditionFacts) (bool, error)
}
