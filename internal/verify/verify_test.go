// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuraryu/deep-research/internal/reason/reasontest"
	"github.com/kuraryu/deep-research/pkg/types"
)

var testNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestVerifier(r *reasontest.Mock) *Verifier {
	v := NewVerifier(r, 2*365*24*time.Hour, nil)
	v.now = func() time.Time { return testNow }
	return v
}

func TestVerifyGroupsBySubQuery(t *testing.T) {
	var topics []string
	mock := &reasontest.Mock{
		DetectContradictionsFunc: func(_ context.Context, topic string, docs []types.Document) ([]types.Contradiction, error) {
			topics = append(topics, topic)
			if topic == "efficiency" {
				return []types.Contradiction{{Summary: "conflict", DocumentIDs: []string{"c", "d"}}}, nil
			}
			return nil, nil
		},
	}
	v := newTestVerifier(mock)

	subs := []types.SubQuery{
		{ID: "sq1", Text: "accuracy"},
		{ID: "sq2", Text: "efficiency"},
		{ID: "sq3", Text: "no documents here"},
	}
	docs := []types.Document{
		{Identifier: "a", OriginQueryID: "sq1", Published: testNow},
		{Identifier: "b", OriginQueryID: "sq1", Published: testNow},
		{Identifier: "c", OriginQueryID: "sq2", Published: testNow},
		{Identifier: "d", OriginQueryID: "sq2", Published: testNow},
		{Identifier: "e", OriginQueryID: "a", Depth: 1, Published: testNow},
		{Identifier: "f", OriginQueryID: "c", Depth: 2, Published: testNow},
	}

	result := v.Verify(context.Background(), subs, docs)

	assert.Equal(t, []string{"accuracy", "efficiency", "citation deep-dive"}, topics,
		"groups follow sub-query insertion order with deep-dive pooled last")
	require.Len(t, result.Contradictions, 1)
	assert.Equal(t, []string{"c", "d"}, result.Contradictions[0].DocumentIDs)
}

func TestVerifySkipsSingletonGroups(t *testing.T) {
	v := newTestVerifier(&reasontest.Mock{})

	subs := []types.SubQuery{{ID: "sq1", Text: "lonely"}}
	docs := []types.Document{{Identifier: "a", OriginQueryID: "sq1", Published: testNow}}

	// The mock errors on unexpected calls; no panic/error proves no call.
	result := v.Verify(context.Background(), subs, docs)
	assert.Empty(t, result.Contradictions)
}

func TestVerifyGroupFailureIsAdvisory(t *testing.T) {
	mock := &reasontest.Mock{
		DetectContradictionsFunc: func(_ context.Context, topic string, _ []types.Document) ([]types.Contradiction, error) {
			if topic == "first" {
				return nil, fmt.Errorf("model down")
			}
			return []types.Contradiction{{Summary: "s", DocumentIDs: []string{"c", "d"}}}, nil
		},
	}
	v := newTestVerifier(mock)

	subs := []types.SubQuery{{ID: "sq1", Text: "first"}, {ID: "sq2", Text: "second"}}
	docs := []types.Document{
		{Identifier: "a", OriginQueryID: "sq1", Published: testNow},
		{Identifier: "b", OriginQueryID: "sq1", Published: testNow},
		{Identifier: "c", OriginQueryID: "sq2", Published: testNow},
		{Identifier: "d", OriginQueryID: "sq2", Published: testNow},
	}

	result := v.Verify(context.Background(), subs, docs)
	require.Len(t, result.Contradictions, 1, "one group failing must not abort the others")
}

func TestVerifyNeverMutatesDocuments(t *testing.T) {
	mock := &reasontest.Mock{
		DetectContradictionsFunc: func(_ context.Context, _ string, _ []types.Document) ([]types.Contradiction, error) {
			return []types.Contradiction{{Summary: "s", DocumentIDs: []string{"a", "b"}}}, nil
		},
	}
	v := newTestVerifier(mock)

	subs := []types.SubQuery{{ID: "sq1", Text: "t"}}
	docs := []types.Document{
		{Identifier: "a", OriginQueryID: "sq1", Published: testNow},
		{Identifier: "b", OriginQueryID: "sq1", Published: testNow},
	}
	before := make([]types.Document, len(docs))
	copy(before, docs)

	v.Verify(context.Background(), subs, docs)
	assert.Equal(t, before, docs)
}

func TestReliabilityNotes(t *testing.T) {
	v := newTestVerifier(&reasontest.Mock{})

	docs := []types.Document{
		{Identifier: "fresh", SourceKind: types.SourceAcademic, OriginQueryID: "sq1", Published: testNow.AddDate(0, -6, 0)},
		{Identifier: "old", SourceKind: types.SourceAcademic, OriginQueryID: "sq1", Published: testNow.AddDate(-5, 0, 0)},
		{Identifier: "undated-web", SourceKind: types.SourceWeb, OriginQueryID: "sq1"},
	}

	// Only one group and it has 3 docs, so give the mock a no-op detector.
	v.reason = &reasontest.Mock{
		DetectContradictionsFunc: func(_ context.Context, _ string, _ []types.Document) ([]types.Contradiction, error) {
			return nil, nil
		},
	}

	result := v.Verify(context.Background(), []types.SubQuery{{ID: "sq1", Text: "t"}}, docs)
	require.Len(t, result.ReliabilityNotes, 2)
	assert.Contains(t, result.ReliabilityNotes[0], "2 of 3 sources are stale")
	assert.Contains(t, result.ReliabilityNotes[1], "1 of 3 sources are web results")
}
