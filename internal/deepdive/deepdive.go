// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deepdive expands high-value documents by following their
// citations. Expansion runs as an explicit depth-indexed loop rather than
// call-stack recursion, so the depth bound and cancellation are checked in
// one place per level.
package deepdive

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kuraryu/deep-research/internal/connector"
	"github.com/kuraryu/deep-research/internal/reason"
	"github.com/kuraryu/deep-research/pkg/types"
)

// Explorer drives depth-bounded citation expansion.
type Explorer struct {
	reason    reason.Capability
	citations connector.Connector
	maxDepth  int
	log       *zap.Logger
}

// NewExplorer returns an Explorer bounded at maxDepth hops.
func NewExplorer(r reason.Capability, citations connector.Connector, maxDepth int, log *zap.Logger) *Explorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Explorer{reason: r, citations: citations, maxDepth: maxDepth, log: log}
}

// Result holds the documents discovered by one exploration plus the
// identifiers selected for expansion at each depth level.
type Result struct {
	Documents       []types.Document
	SelectedByDepth map[int][]string
}

// Explore expands the given document view level by level until the depth
// bound or an empty level. Which documents deserve expansion, and how many,
// is the model's decision; the explorer only enforces the bound, clamps the
// selection to documents actually present at the level, and deduplicates
// discoveries against everything already known. A document rediscovered at
// a later depth keeps its first-seen depth and is not re-added.
//
// Every failure inside a level — selection, one branch's citation search —
// degrades to "no further expansion there"; Explore itself never fails.
func (x *Explorer) Explore(ctx context.Context, existing []types.Document) Result {
	result := Result{SelectedByDepth: make(map[int][]string)}

	known := make(map[string]bool, len(existing))
	for _, d := range existing {
		known[d.DedupKey()] = true
	}

	current := existing
	for depth := 0; depth < x.maxDepth; depth++ {
		if len(current) == 0 {
			break
		}
		if ctx.Err() != nil {
			break
		}

		ids, err := x.reason.SelectForDeepDive(ctx, current)
		if err != nil {
			x.log.Warn("deep-dive selection failed, stopping expansion",
				zap.Int("depth", depth), zap.Error(err))
			break
		}

		selected := clampSelection(ids, current)
		if len(selected) == 0 {
			break
		}

		result.SelectedByDepth[depth] = identifiers(selected)
		x.log.Info("expanding documents",
			zap.Int("depth", depth),
			zap.Int("selected", len(selected)))

		branches := make([][]types.Document, len(selected))
		g, gctx := errgroup.WithContext(ctx)
		for i, doc := range selected {
			i, doc := i, doc
			g.Go(func() error {
				docs, err := x.citations.Search(gctx, doc.Identifier)
				if err != nil {
					x.log.Warn("citation search failed",
						zap.String("document", doc.Identifier),
						zap.Error(err))
					return nil
				}
				for j := range docs {
					docs[j].Depth = depth + 1
					docs[j].OriginQueryID = doc.Identifier
				}
				branches[i] = docs
				return nil
			})
		}
		// Branch errors are swallowed above; Wait is the per-level merge
		// barrier.
		g.Wait()

		var next []types.Document
		for _, branch := range branches {
			for _, d := range branch {
				key := d.DedupKey()
				if key == "" || known[key] {
					continue
				}
				known[key] = true
				result.Documents = append(result.Documents, d)
				next = append(next, d)
			}
		}
		current = next
	}

	return result
}

// clampSelection keeps only identifiers that name a document in the current
// level, preserving the level's order and dropping repeats.
func clampSelection(ids []string, current []types.Document) []types.Document {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var out []types.Document
	for _, d := range current {
		if wanted[d.Identifier] {
			out = append(out, d)
			wanted[d.Identifier] = false
		}
	}
	return out
}

func identifiers(docs []types.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Identifier
	}
	return out
}
