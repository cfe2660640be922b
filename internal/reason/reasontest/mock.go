// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reasontest provides a scriptable reason.Capability for
// deterministic orchestration tests.
package reasontest

import (
	"context"
	"fmt"

	"github.com/kuraryu/deep-research/pkg/types"
)

// Mock implements reason.Capability with per-call function fields. Unset
// fields return an error so tests fail loudly on unexpected calls rather
// than silently degrading.
type Mock struct {
	DecomposeFunc            func(ctx context.Context, query string) ([]string, error)
	RefineQueryFunc          func(ctx context.Context, query string, resultCount int) (string, error)
	EvaluateCoverageFunc     func(ctx context.Context, query string, subQueries []string, docs []types.Document) (types.CoverageVerdict, error)
	SelectForDeepDiveFunc    func(ctx context.Context, docs []types.Document) ([]string, error)
	DetectContradictionsFunc func(ctx context.Context, topic string, docs []types.Document) ([]types.Contradiction, error)
	GenerateOutlineFunc      func(ctx context.Context, query string, docs []types.Document) (string, error)
	GenerateArticleFunc      func(ctx context.Context, query, outline string, docs []types.Document) (string, error)
}

func (m *Mock) Decompose(ctx context.Context, query string) ([]string, error) {
	if m.DecomposeFunc == nil {
		return nil, fmt.Errorf("unexpected Decompose call")
	}
	return m.DecomposeFunc(ctx, query)
}

func (m *Mock) RefineQuery(ctx context.Context, query string, resultCount int) (string, error) {
	if m.RefineQueryFunc == nil {
		return "", fmt.Errorf("unexpected RefineQuery call")
	}
	return m.RefineQueryFunc(ctx, query, resultCount)
}

func (m *Mock) EvaluateCoverage(ctx context.Context, query string, subQueries []string, docs []types.Document) (types.CoverageVerdict, error) {
	if m.EvaluateCoverageFunc == nil {
		return types.CoverageVerdict{}, fmt.Errorf("unexpected EvaluateCoverage call")
	}
	return m.EvaluateCoverageFunc(ctx, query, subQueries, docs)
}

func (m *Mock) SelectForDeepDive(ctx context.Context, docs []types.Document) ([]string, error) {
	if m.SelectForDeepDiveFunc == nil {
		return nil, fmt.Errorf("unexpected SelectForDeepDive call")
	}
	return m.SelectForDeepDiveFunc(ctx, docs)
}

func (m *Mock) DetectContradictions(ctx context.Context, topic string, docs []types.Document) ([]types.Contradiction, error) {
	if m.DetectContradictionsFunc == nil {
		return nil, fmt.Errorf("unexpected DetectContradictions call")
	}
	return m.DetectContradictionsFunc(ctx, topic, docs)
}

func (m *Mock) GenerateOutline(ctx context.Context, query string, docs []types.Document) (string, error) {
	if m.GenerateOutlineFunc == nil {
		return "", fmt.Errorf("unexpected GenerateOutline call")
	}
	return m.GenerateOutlineFunc(ctx, query, docs)
}

func (m *Mock) GenerateArticle(ctx context.Context, query, outline string, docs []types.Document) (string, error) {
	if m.GenerateArticleFunc == nil {
		return "", fmt.Errorf("unexpected GenerateArticle call")
	}
	return m.GenerateArticleFunc(ctx, query, outline, docs)
}
