package rule

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/domain/port"
)

func TestCELConditionEngine(t *testing.T) {
	engine, err := NewCELConditionEngine()
	require.NoError(t, err)

	facts := port.ConditionFacts{
		TicketCount: 2,
		Role:        "user",
		UserID:      "u-42",
		Now:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	cases := []struct {
		expr string
		want bool
	}{
		{`ticket_count <= 2`, true},
		{`ticket_count == 1`, false},
		{`role == "user" && user_id.startsWith("u-")`, true},
		{`role in ["eventmanager", "admin"]`, false},
		{`now < timestamp("2026-04-01T00:00:00Z")`, true},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			require.NoError(t, engine.Compile(tc.expr))
			got, err := engine.Evaluate(context.Background(), tc.expr, facts)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCELConditionEngineRejectsBadExpressions(t *testing.T) {
	engine, err := NewCELConditionEngine()
	require.NoError(t, err)

	for _, expr := range []string{`ticket_count +`, `ticket_count + 1`, `unknown_var > 3`} {
		err := engine.Compile(expr)
		require.Error(t, err, expr)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestCELConditionEngineCachesConcurrently(t *testing.T) {
	engine, err := NewCELConditionEngine()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := engine.Evaluate(context.Background(), `ticket_count > 3`, port.ConditionFacts{TicketCount: n})
			assert.NoError(t, err)
			assert.Equal(t, n > 3, ok)
		}(i)
	}
	wg.Wait()
	assert.Len(t, engine.programs, 1)
}

func TestCELConditionEngineCacheIsBounded(t *testing.T) {
	engine, err := NewCELConditionEngine()
	require.NoError(t, err)
	engine.limit = 3

	for i := 0; i < 10; i++ {
		require.NoError(t, engine.Compile(fmt.Sprintf("ticket_count <= %d", i)))
		assert.LessOrEqual(t, len(engine.programs), 3)
	}

	ok, err := engine.Evaluate(context.Background(), "ticket_count <= 0", port.ConditionFacts{TicketCount: 0})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, engine.programs, 3)
}
