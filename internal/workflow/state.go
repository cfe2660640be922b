// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/kuraryu/deep-research/internal/coverage"
	"github.com/kuraryu/deep-research/pkg/types"
)

// Stage names a position in the workflow state machine.
type Stage string

const (
	StageGeneratingSubQueries Stage = "generating-subqueries"
	StageSearching            Stage = "searching"
	StageEvaluatingCoverage   Stage = "evaluating-coverage"
	StageDeepDiving           Stage = "deep-diving"
	StageVerifying            Stage = "verifying"
	StageOutlining            Stage = "outlining"
	StageWriting              Stage = "writing"
	StageDone                 Stage = "done"
)

// ResearchState is the single mutable aggregate of one research run. The
// Controller owns it exclusively: all other components receive copies of
// its contents and hand back deltas that the Controller merges at defined
// barriers. Documents and sub-queries are append-only; nothing is removed
// once added.
type ResearchState struct {
	RunID string       `json:"run_id"`
	Query string       `json:"query"`
	Stage Stage        `json:"stage"`

	// SubQueries in insertion order. The order determines report structure
	// and is stable across iterations.
	SubQueries []types.SubQuery `json:"sub_queries"`

	// Documents unique by dedup key, kept at their first-seen depth.
	Documents []types.Document `json:"documents"`

	// Iterations counts completed search/evaluate passes.
	Iterations int `json:"iterations"`

	// SelectedByDepth records which documents the deep-dive stage expanded
	// at each depth level.
	SelectedByDepth map[int][]string `json:"selected_by_depth,omitempty"`

	Contradictions   []types.Contradiction `json:"contradictions,omitempty"`
	ReliabilityNotes []string              `json:"reliability_notes,omitempty"`

	Verdict types.CoverageVerdict `json:"verdict"`
	Outline string                `json:"outline"`
	Article string                `json:"article"`

	// Degraded marks a run that finished on incomplete evidence or with a
	// failed synthesis step; DegradedReasons says why.
	Degraded        bool     `json:"degraded"`
	DegradedReasons []string `json:"degraded_reasons,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	seen      map[string]bool
	seenQuery map[string]bool
}

func newState(query string) *ResearchState {
	return &ResearchState{
		RunID:           uuid.NewString(),
		Query:           query,
		Stage:           StageGeneratingSubQueries,
		SelectedByDepth: make(map[int][]string),
		StartedAt:       time.Now(),
		seen:            make(map[string]bool),
		seenQuery:       make(map[string]bool),
	}
}

// addDocuments merges a delta of documents, skipping any whose dedup key is
// already present. Rediscoveries keep the stored document untouched, so a
// document's recorded depth never changes. Returns the number added.
func (s *ResearchState) addDocuments(docs []types.Document) int {
	added := 0
	for _, d := range docs {
		key := d.DedupKey()
		if key == "" || s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.Documents = append(s.Documents, d)
		added++
	}
	return added
}

// addSubQueries appends new sub-queries, preserving insertion order and
// skipping any whose normalized text already entered the state. Refinement
// can propose the same rewrite across iterations; only the first copy is
// searched again.
func (s *ResearchState) addSubQueries(subs []types.SubQuery) {
	for _, sq := range subs {
		key := coverage.NormalizeText(sq.Text)
		if key == "" || s.seenQuery[key] {
			continue
		}
		s.seenQuery[key] = true
		s.SubQueries = append(s.SubQueries, sq)
	}
}

// documentsView returns a copy of the document set for handing to
// components, keeping the canonical slice private to the controller.
func (s *ResearchState) documentsView() []types.Document {
	view := make([]types.Document, len(s.Documents))
	copy(view, s.Documents)
	return view
}

// markDegraded flags the run and records why. Degraded runs still produce
// a full report.
func (s *ResearchState) markDegraded(reason string) {
	s.Degraded = true
	s.DegradedReasons = append(s.DegradedReasons, reason)
}

// SourceCounts tallies documents per source kind for the report.
func (s *ResearchState) SourceCounts() map[types.SourceKind]int {
	counts := make(map[types.SourceKind]int)
	for _, d := range s.Documents {
		counts[d.SourceKind]++
	}
	return counts
}

// HasDocument reports whether a document with the given identifier was
// collected. Used by report rendering to validate inline citations.
func (s *ResearchState) HasDocument(identifier string) bool {
	for _, d := range s.Documents {
		if d.Identifier == identifier {
			return true
		}
	}
	return false
}
