// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// QueryOrigin records how a sub-query entered the workflow.
type QueryOrigin string

const (
	// OriginInitial marks sub-queries produced by the first decomposition.
	OriginInitial QueryOrigin = "initial"

	// OriginRefined marks rewrites of an under-performing query.
	OriginRefined QueryOrigin = "refined"

	// OriginFollowUp marks sub-queries derived from missing coverage aspects.
	OriginFollowUp QueryOrigin = "follow-up"
)

// SubQuery is one search question issued during the workflow. A sub-query is
// immutable once issued: refinement creates a new SubQuery linked through
// ParentID rather than rewriting the original in place. ResultCount is the
// one annotation updated after each search pass.
type SubQuery struct {
	// ID is a unique identifier for this sub-query within a run.
	ID string `json:"id" yaml:"id"`

	// Text is the search question.
	Text string `json:"text" yaml:"text"`

	// Origin records how the sub-query entered the workflow.
	Origin QueryOrigin `json:"origin" yaml:"origin"`

	// ParentID links a refined query to the query it rewrites. Empty for
	// initial and follow-up queries.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`

	// ResultCount is the hit count of the last search for this query.
	ResultCount int `json:"result_count" yaml:"result_count"`
}

// CoverageVerdict is the coverage evaluator's judgment of the evidence set.
type CoverageVerdict struct {
	// Sufficient reports whether the collected documents answer the
	// sub-query set well enough to stop searching.
	Sufficient bool `json:"sufficient" yaml:"sufficient"`

	// MissingAspects lists topics the evidence does not yet cover. Each
	// aspect becomes one follow-up sub-query when coverage is insufficient.
	MissingAspects []string `json:"missing_aspects,omitempty" yaml:"missing_aspects,omitempty"`
}

// Contradiction records a conflict between the claims of two or more
// collected documents. Contradictions are advisory: they are surfaced in
// the report and never used to discard evidence.
type Contradiction struct {
	// Summary describes the conflicting claims.
	Summary string `json:"summary" yaml:"summary"`

	// DocumentIDs lists the identifiers of the conflicting documents.
	DocumentIDs []string `json:"document_ids" yaml:"document_ids"`
}
