package rule

import (
	"context"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/domain/port"
)

const maxCachedPrograms = 1024

// CELConditionEngine evaluates tier conditions written in CEL, for example
// `ticket_count <= 2 && role == "user"`. Compiled programs are cached per expression,
// at most maxCachedPrograms at a time.
type CELConditionEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
	limit    int
	group    singleflight.Group
}

func NewCELConditionEngine() (*CELConditionEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("ticket_count", cel.IntType),
		cel.Variable("role", cel.StringType),
		cel.Variable("user_id", cel.StringType),
		cel.Variable("now", cel.TimestampType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel env")
	}
	return &CELConditionEngine{env: env, programs: make(map[string]cel.Program), limit: maxCachedPrograms}, nil
}

func (e *CELConditionEngine) Compile(expr string) error {
	_, err := e.program(expr)
	return err
}

func (e *CELConditionEngine) Evaluate(ctx context.Context, expr string, facts port.ConditionFacts) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.ContextEval(ctx, map[string]any{
		"ticket_count": int64(facts.TicketCount),
		"role":         facts.Role,
		"user_id":      facts.UserID,
		"now":          facts.Now.UTC(),
	})
	if err != nil {
		return false, errors.Wrapf(err, "evaluate condition %q", expr)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, errors.Errorf("condition %q returned %s, want bool", expr, out.Type().TypeName())
	}
	return ok, nil
}

func (e *CELConditionEngine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	v, err, _ := e.group.Do(expr, func() (any, error) {
		ast, iss := e.env.Compile(expr)
		if iss.Err() != nil {
			return nil, domain.NewValidation("invalid_condition", "invalid condition: %s", iss.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, domain.NewValidation("invalid_condition", "condition must evaluate to bool, got %s", ast.OutputType())
		}
		prg, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
		if err != nil {
			return nil, errors.Wrap(err, "build cel program")
		}
		e.store(expr, prg)
		return prg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(cel.Program), nil
}

// store evicts an arbitrary entry when the cache is full.
func (e *CELConditionEngine) store(expr string, prg cel.Program) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.programs[expr]; !ok && len(e.programs) >= e.limit {
		for k := range e.programs {
			delete(e.programs, k)
			break
		}
	}
	e.programs[expr] = prg
}

