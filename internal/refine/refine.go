// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refine rewrites under-performing search queries. A query whose
// last search returned fewer hits than the configured threshold gets exactly
// one rewrite attempt per search pass; the rewrite's results augment the
// original's, never replace them.
package refine

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kuraryu/deep-research/internal/reason"
	"github.com/kuraryu/deep-research/pkg/types"
)

// Engine produces rewritten queries for under-performing searches.
type Engine struct {
	reason    reason.Capability
	threshold int
	log       *zap.Logger
}

// NewEngine returns an Engine that triggers below the given result-count
// threshold.
func NewEngine(r reason.Capability, threshold int, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{reason: r, threshold: threshold, log: log}
}

// Threshold returns the result count below which refinement triggers.
func (e *Engine) Threshold() int { return e.threshold }

// Refine returns a new refined sub-query when q under-performed, or nil
// when no refinement applies. Reason failures and unusable rewrites are
// non-fatal: the caller keeps the original results and moves on. The
// refined query links back to q through ParentID; a refined query is never
// itself refined in the same pass, which prevents rewrite chains.
func (e *Engine) Refine(ctx context.Context, q types.SubQuery) *types.SubQuery {
	if q.ResultCount >= e.threshold {
		return nil
	}
	if q.Origin == types.OriginRefined {
		return nil
	}

	rewritten, err := e.reason.RefineQuery(ctx, q.Text, q.ResultCount)
	if err != nil {
		e.log.Warn("query refinement failed",
			zap.String("query", q.Text),
			zap.Int("result_count", q.ResultCount),
			zap.Error(err))
		return nil
	}

	if strings.EqualFold(strings.TrimSpace(rewritten), strings.TrimSpace(q.Text)) {
		e.log.Debug("refinement produced identical query", zap.String("query", q.Text))
		return nil
	}

	return &types.SubQuery{
		ID:       uuid.NewString(),
		Text:     rewritten,
		Origin:   types.OriginRefined,
		ParentID: q.ID,
	}
}
