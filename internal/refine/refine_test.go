// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuraryu/deep-research/internal/reason/reasontest"
	"github.com/kuraryu/deep-research/pkg/types"
)

func TestRefineTriggersBelowThreshold(t *testing.T) {
	var calls int
	mock := &reasontest.Mock{
		RefineQueryFunc: func(_ context.Context, query string, resultCount int) (string, error) {
			calls++
			assert.Equal(t, "quantum error mitigation NISQ", query)
			assert.Equal(t, 0, resultCount)
			return "quantum computing error correction techniques", nil
		},
	}
	e := NewEngine(mock, 2, nil)

	q := types.SubQuery{ID: "q1", Text: "quantum error mitigation NISQ", Origin: types.OriginInitial, ResultCount: 0}
	refined := e.Refine(context.Background(), q)
	require.NotNil(t, refined)

	assert.Equal(t, 1, calls, "exactly one refinement attempt per pass")
	assert.Equal(t, types.OriginRefined, refined.Origin)
	assert.Equal(t, "q1", refined.ParentID)
	assert.NotEmpty(t, refined.ID)
	assert.NotEqual(t, q.ID, refined.ID, "refinement creates a new query, never mutates in place")
}

func TestRefineSkipsAtOrAboveThreshold(t *testing.T) {
	e := NewEngine(&reasontest.Mock{}, 2, nil)

	q := types.SubQuery{ID: "q1", Text: "well covered topic", ResultCount: 2}
	assert.Nil(t, e.Refine(context.Background(), q), "mock errors on unexpected calls, so nil proves no call happened")
}

func TestRefineNeverChainsOnRefinedQueries(t *testing.T) {
	e := NewEngine(&reasontest.Mock{}, 2, nil)

	q := types.SubQuery{ID: "q2", Text: "already refined", Origin: types.OriginRefined, ResultCount: 0}
	assert.Nil(t, e.Refine(context.Background(), q))
}

func TestRefineReasonFailureIsNonFatal(t *testing.T) {
	mock := &reasontest.Mock{
		RefineQueryFunc: func(_ context.Context, _ string, _ int) (string, error) {
			return "", fmt.Errorf("model unavailable")
		},
	}
	e := NewEngine(mock, 2, nil)

	q := types.SubQuery{ID: "q1", Text: "obscure topic", ResultCount: 0}
	assert.Nil(t, e.Refine(context.Background(), q))
}

func TestRefineRejectsIdenticalRewrite(t *testing.T) {
	mock := &reasontest.Mock{
		RefineQueryFunc: func(_ context.Context, query string, _ int) (string, error) {
			return "  " + query + " ", nil
		},
	}
	e := NewEngine(mock, 2, nil)

	q := types.SubQuery{ID: "q1", Text: "Same Query", ResultCount: 1}
	assert.Nil(t, e.Refine(context.Background(), q))
}
