// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuraryu/deep-research/pkg/types"
)

// scriptedBackend returns canned responses per call, in order.
type scriptedBackend struct {
	responses []string
	errs      []error
	calls     int
	kinds     []PromptKind
}

func (s *scriptedBackend) Complete(_ context.Context, kind PromptKind, _ string) (string, error) {
	i := s.calls
	s.calls++
	s.kinds = append(s.kinds, kind)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func TestDecompose(t *testing.T) {
	b := &scriptedBackend{responses: []string{`{"subqueries": ["a", " b ", ""]}`}}
	c := NewClient(b, nil)

	subs, err := c.Decompose(context.Background(), "topic")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, subs)
	assert.Equal(t, []PromptKind{KindDecompose}, b.kinds)
}

func TestDecomposeEmptyIsMalformed(t *testing.T) {
	b := &scriptedBackend{responses: []string{`{"subqueries": []}`, `{"subqueries": []}`}}
	c := NewClient(b, nil)

	_, err := c.Decompose(context.Background(), "topic")
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, 2, b.calls, "malformed response should be retried exactly once")
}

func TestRetryOnceThenSucceed(t *testing.T) {
	b := &scriptedBackend{
		responses: []string{"", `{"query": "broader question"}`},
		errs:      []error{fmt.Errorf("transport down"), nil},
	}
	c := NewClient(b, nil)

	q, err := c.RefineQuery(context.Background(), "narrow question", 0)
	require.NoError(t, err)
	assert.Equal(t, "broader question", q)
	assert.Equal(t, 2, b.calls)
}

func TestRetryExhaustedReturnsError(t *testing.T) {
	b := &scriptedBackend{
		errs: []error{fmt.Errorf("down"), fmt.Errorf("still down")},
	}
	c := NewClient(b, nil)

	_, err := c.RefineQuery(context.Background(), "q", 0)
	assert.Error(t, err)
	assert.Equal(t, 2, b.calls)
}

func TestEvaluateCoverage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    types.CoverageVerdict
		wantErr bool
	}{
		{
			name: "sufficient",
			raw:  `{"sufficient": true, "missing_aspects": []}`,
			want: types.CoverageVerdict{Sufficient: true},
		},
		{
			name: "insufficient with aspects",
			raw:  `{"sufficient": false, "missing_aspects": ["history", "benchmarks"]}`,
			want: types.CoverageVerdict{Sufficient: false, MissingAspects: []string{"history", "benchmarks"}},
		},
		{
			name:    "insufficient without aspects is malformed",
			raw:     `{"sufficient": false, "missing_aspects": []}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &scriptedBackend{responses: []string{tt.raw, tt.raw}}
			c := NewClient(b, nil)

			got, err := c.EvaluateCoverage(context.Background(), "q", []string{"s1"}, nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectContradictionsFiltersInvalid(t *testing.T) {
	raw := `{"contradictions": [
		{"summary": "A says X, B says not-X", "document_ids": ["a", "b"]},
		{"summary": "only one party", "document_ids": ["a"]},
		{"summary": "", "document_ids": ["a", "b"]}
	]}`
	b := &scriptedBackend{responses: []string{raw}}
	c := NewClient(b, nil)

	got, err := c.DetectContradictions(context.Background(), "topic", nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a", "b"}, got[0].DocumentIDs)
}

func TestDecodeJSONStripsSurroundingText(t *testing.T) {
	var resp struct {
		Query string `json:"query"`
	}
	raw := "Sure, here is the JSON:\n```json\n{\"query\": \"q\"}\n```\n"
	require.NoError(t, decodeJSON(raw, &resp))
	assert.Equal(t, "q", resp.Query)

	assert.Error(t, decodeJSON("no json here", &resp))
}

func TestGenerateOutlinePlainText(t *testing.T) {
	b := &scriptedBackend{responses: []string{"# Outline\n## Section 1\n"}}
	c := NewClient(b, nil)

	out, err := c.GenerateOutline(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "# Outline")
}

func TestSelectForDeepDiveEmptySelectionIsValid(t *testing.T) {
	b := &scriptedBackend{responses: []string{`{"identifiers": []}`}}
	c := NewClient(b, nil)

	ids, err := c.SelectForDeepDive(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 1, b.calls, "empty selection must not trigger a retry")
}
