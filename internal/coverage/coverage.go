// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coverage judges whether the accumulated evidence answers the
// sub-query set, and turns missing aspects into follow-up sub-queries.
package coverage

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kuraryu/deep-research/internal/reason"
	"github.com/kuraryu/deep-research/pkg/types"
)

// Evaluator wraps the model's coverage judgment for the workflow loop.
type Evaluator struct {
	reason reason.Capability
	log    *zap.Logger
}

// NewEvaluator returns an Evaluator over the given reasoning capability.
func NewEvaluator(r reason.Capability, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{reason: r, log: log}
}

// Evaluate asks the model whether the documents sufficiently cover the
// sub-queries. When the model cannot be reached or answers malformed even
// after retry, the verdict degrades to sufficient: evidence gathering is
// best-effort and an unjudgeable evidence set must not stall the pipeline.
func (e *Evaluator) Evaluate(ctx context.Context, query string, subQueries []types.SubQuery, docs []types.Document) types.CoverageVerdict {
	texts := make([]string, 0, len(subQueries))
	for _, sq := range subQueries {
		texts = append(texts, sq.Text)
	}

	verdict, err := e.reason.EvaluateCoverage(ctx, query, texts, docs)
	if err != nil {
		e.log.Warn("coverage evaluation degraded to sufficient", zap.Error(err))
		return types.CoverageVerdict{Sufficient: true}
	}
	return verdict
}

// FollowUps builds one new sub-query per missing aspect, skipping aspects
// whose text duplicates an existing sub-query.
func FollowUps(verdict types.CoverageVerdict, existing []types.SubQuery) []types.SubQuery {
	if verdict.Sufficient {
		return nil
	}

	seen := make(map[string]bool, len(existing))
	for _, sq := range existing {
		seen[NormalizeText(sq.Text)] = true
	}

	var out []types.SubQuery
	for _, aspect := range verdict.MissingAspects {
		key := NormalizeText(aspect)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, types.SubQuery{
			ID:     uuid.NewString(),
			Text:   strings.TrimSpace(aspect),
			Origin: types.OriginFollowUp,
		})
	}
	return out
}

// NormalizeText lowercases and strips punctuation so near-identical query
// texts collapse to one key. The workflow uses the same key when merging
// refined sub-queries into its state.
func NormalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
