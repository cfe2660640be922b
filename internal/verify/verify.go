// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify cross-checks the collected evidence: it groups documents
// to bound prompt size, asks the model for conflicting claims, and derives
// reliability notes from source tiers and staleness. Its output is
// advisory — it annotates the report and never discards a document.
package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kuraryu/deep-research/internal/reason"
	"github.com/kuraryu/deep-research/pkg/types"
)

// Verifier runs the reliability and contradiction pass.
type Verifier struct {
	reason    reason.Capability
	staleness time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// NewVerifier returns a Verifier using the given staleness threshold.
func NewVerifier(r reason.Capability, staleness time.Duration, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{reason: r, staleness: staleness, log: log, now: time.Now}
}

// Result holds the advisory findings of one verification pass.
type Result struct {
	Contradictions   []types.Contradiction
	ReliabilityNotes []string
}

// Verify checks the document set for contradictions and reliability
// caveats. Documents are grouped by the sub-query that found them, with
// deep-dive discoveries pooled into one citation group, so each model call
// sees a topically coherent, bounded slice of the evidence. Groups with a
// single document are skipped: a contradiction needs two parties.
func (v *Verifier) Verify(ctx context.Context, subQueries []types.SubQuery, docs []types.Document) Result {
	var result Result

	for _, group := range groupByOrigin(subQueries, docs) {
		if len(group.docs) < 2 {
			continue
		}
		found, err := v.reason.DetectContradictions(ctx, group.topic, group.docs)
		if err != nil {
			v.log.Warn("contradiction detection skipped for group",
				zap.String("topic", group.topic), zap.Error(err))
			continue
		}
		result.Contradictions = append(result.Contradictions, found...)
	}

	result.ReliabilityNotes = v.reliabilityNotes(docs)
	return result
}

type docGroup struct {
	topic string
	docs  []types.Document
}

// groupByOrigin splits the documents by originating sub-query, in sub-query
// insertion order, followed by one group for all deep-dive discoveries.
func groupByOrigin(subQueries []types.SubQuery, docs []types.Document) []docGroup {
	byQuery := make(map[string][]types.Document)
	var deepDive []types.Document
	for _, d := range docs {
		if d.Depth > 0 {
			deepDive = append(deepDive, d)
			continue
		}
		byQuery[d.OriginQueryID] = append(byQuery[d.OriginQueryID], d)
	}

	var groups []docGroup
	for _, sq := range subQueries {
		if group := byQuery[sq.ID]; len(group) > 0 {
			groups = append(groups, docGroup{topic: sq.Text, docs: group})
		}
	}
	if len(deepDive) > 0 {
		groups = append(groups, docGroup{topic: "citation deep-dive", docs: deepDive})
	}
	return groups
}

// reliabilityNotes summarizes staleness and corroboration caveats across
// the evidence set.
func (v *Verifier) reliabilityNotes(docs []types.Document) []string {
	now := v.now()
	var stale, uncorroborated int
	for _, d := range docs {
		if d.Stale(v.staleness, now) {
			stale++
		}
		if d.Tier() == types.TierCorroborate {
			uncorroborated++
		}
	}

	var notes []string
	if stale > 0 {
		notes = append(notes, fmt.Sprintf("%d of %d sources are stale (older than %s or undated); treat their claims with caution", stale, len(docs), v.staleness))
	}
	if uncorroborated > 0 {
		notes = append(notes, fmt.Sprintf("%d of %d sources are web results that require corroboration from higher-trust sources", uncorroborated, len(docs)))
	}
	return notes
}
