// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deepdive

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuraryu/deep-research/internal/reason/reasontest"
	"github.com/kuraryu/deep-research/pkg/types"
)

// stubCitations maps a document identifier to the citations it yields.
type stubCitations struct {
	mu      sync.Mutex
	results map[string][]types.Document
	errs    map[string]error
	queried []string
}

func (s *stubCitations) Name() string           { return "stub" }
func (s *stubCitations) Kind() types.SourceKind { return types.SourceDeepDive }

func (s *stubCitations) Search(_ context.Context, identifier string) ([]types.Document, error) {
	s.mu.Lock()
	s.queried = append(s.queried, identifier)
	s.mu.Unlock()
	if err := s.errs[identifier]; err != nil {
		return nil, err
	}
	return s.results[identifier], nil
}

func doc(id string) types.Document {
	return types.Document{Identifier: id, SourceKind: types.SourceAcademic, Title: "paper " + id}
}

func ddDoc(id string) types.Document {
	return types.Document{Identifier: id, SourceKind: types.SourceDeepDive, Title: "cited " + id}
}

// selectAll selects every document it is shown.
func selectAll() *reasontest.Mock {
	return &reasontest.Mock{
		SelectForDeepDiveFunc: func(_ context.Context, docs []types.Document) ([]string, error) {
			var ids []string
			for _, d := range docs {
				ids = append(ids, d.Identifier)
			}
			return ids, nil
		},
	}
}

func TestExploreRespectsDepthBound(t *testing.T) {
	// Every expansion yields one fresh document, so only the depth bound
	// can stop the loop.
	citations := &stubCitations{results: map[string][]types.Document{
		"a":  {ddDoc("a1")},
		"a1": {ddDoc("a2")},
		"a2": {ddDoc("a3")},
		"a3": {ddDoc("a4")},
	}}
	x := NewExplorer(selectAll(), citations, 2, nil)

	result := x.Explore(context.Background(), []types.Document{doc("a")})
	require.Len(t, result.Documents, 2)

	for _, d := range result.Documents {
		assert.LessOrEqual(t, d.Depth, 2)
	}
	assert.Equal(t, 1, result.Documents[0].Depth)
	assert.Equal(t, "a", result.Documents[0].OriginQueryID)
	assert.Equal(t, 2, result.Documents[1].Depth)
	assert.Equal(t, "a1", result.Documents[1].OriginQueryID)
}

func TestExploreZeroDepthIsTerminal(t *testing.T) {
	x := NewExplorer(&reasontest.Mock{}, &stubCitations{}, 0, nil)
	result := x.Explore(context.Background(), []types.Document{doc("a")})
	assert.Empty(t, result.Documents, "MAX_DEPTH=0 means no expansion and no model calls")
}

func TestExploreRediscoveryKeepsFirstSeenDepth(t *testing.T) {
	// Expanding "a" and "b" at depth 0: "b"'s citations include "a",
	// already present at depth 0, plus a genuinely new document.
	citations := &stubCitations{results: map[string][]types.Document{
		"a": {ddDoc("new1")},
		"b": {ddDoc("a"), ddDoc("new2")},
	}}
	x := NewExplorer(selectAll(), citations, 1, nil)

	result := x.Explore(context.Background(), []types.Document{doc("a"), doc("b")})

	var ids []string
	for _, d := range result.Documents {
		ids = append(ids, d.Identifier)
		assert.Equal(t, 1, d.Depth)
	}
	assert.ElementsMatch(t, []string{"new1", "new2"}, ids,
		"a document already known at depth 0 must not reappear at depth 1")
}

func TestExploreClampsSelectionToKnownDocuments(t *testing.T) {
	mock := &reasontest.Mock{
		SelectForDeepDiveFunc: func(_ context.Context, _ []types.Document) ([]string, error) {
			return []string{"hallucinated", "a", "a"}, nil
		},
	}
	citations := &stubCitations{results: map[string][]types.Document{"a": {ddDoc("a1")}}}
	x := NewExplorer(mock, citations, 3, nil)

	result := x.Explore(context.Background(), []types.Document{doc("a")})

	assert.NotContains(t, citations.queried, "hallucinated")
	assert.Equal(t, []string{"a"}, result.SelectedByDepth[0], "repeats collapse to one expansion")
	require.Len(t, result.Documents, 1)
}

func TestExploreSelectionFailureStopsQuietly(t *testing.T) {
	mock := &reasontest.Mock{
		SelectForDeepDiveFunc: func(_ context.Context, _ []types.Document) ([]string, error) {
			return nil, fmt.Errorf("model down")
		},
	}
	x := NewExplorer(mock, &stubCitations{}, 2, nil)

	result := x.Explore(context.Background(), []types.Document{doc("a")})
	assert.Empty(t, result.Documents)
}

func TestExploreBranchFailureDegradesThatBranchOnly(t *testing.T) {
	citations := &stubCitations{
		results: map[string][]types.Document{"b": {ddDoc("b1")}},
		errs:    map[string]error{"a": fmt.Errorf("citation API down")},
	}
	x := NewExplorer(selectAll(), citations, 1, nil)

	result := x.Explore(context.Background(), []types.Document{doc("a"), doc("b")})
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "b1", result.Documents[0].Identifier)
}

func TestExploreEmptySelectionStops(t *testing.T) {
	mock := &reasontest.Mock{
		SelectForDeepDiveFunc: func(_ context.Context, _ []types.Document) ([]string, error) {
			return nil, nil
		},
	}
	x := NewExplorer(mock, &stubCitations{}, 2, nil)

	result := x.Explore(context.Background(), []types.Document{doc("a")})
	assert.Empty(t, result.Documents)
	assert.Empty(t, result.SelectedByDepth)
}
