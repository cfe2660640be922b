// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the deep-research
// workflow: documents, sub-queries, verdicts, contradictions, and the
// configuration consumed at workflow start.
package types

import (
	"strings"
	"time"
)

// SourceKind identifies the connector family that produced a Document.
type SourceKind string

const (
	SourceAcademic    SourceKind = "academic"
	SourceWeb         SourceKind = "web"
	SourceDataset     SourceKind = "dataset"
	SourceCompetition SourceKind = "competition"
	SourceNotebook    SourceKind = "notebook"

	// SourceDeepDive marks documents discovered by following citations
	// from an already-collected academic document.
	SourceDeepDive SourceKind = "academic-deepdive"
)

// ReliabilityTier is the trust level assigned to a source kind.
type ReliabilityTier string

const (
	TierHigh        ReliabilityTier = "high"
	TierMedium      ReliabilityTier = "medium"
	TierCorroborate ReliabilityTier = "requires-corroboration"
)

// Document is one retrieved unit of evidence with its provenance.
type Document struct {
	// Identifier is the canonical ID from the source (arXiv ID, Kaggle ref,
	// Semantic Scholar paper ID, or URL when the source has no native ID).
	Identifier string `json:"identifier" yaml:"identifier"`

	// SourceKind identifies the connector family that found this document.
	SourceKind SourceKind `json:"source_kind" yaml:"source_kind"`

	// Title is the document title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Summary is the abstract, snippet, or description text.
	Summary string `json:"summary" yaml:"summary"`

	// URL is the document's web address.
	URL string `json:"url" yaml:"url"`

	// Authors lists the authors in source order, when known.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Published is the publication date. Zero when the source provides none.
	Published time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// OriginQueryID is the ID of the sub-query that found this document,
	// or the identifier of the selecting document for deep-dive results.
	OriginQueryID string `json:"origin_query_id" yaml:"origin_query_id"`

	// Depth is the number of deep-dive hops from an original sub-query.
	// Documents from the initial and refined search phases have depth 0.
	Depth int `json:"depth" yaml:"depth"`
}

// ReliabilityTier derives the trust level from the source kind. The mapping
// is a pure function so a policy change needs no stored-data migration.
func (k SourceKind) ReliabilityTier() ReliabilityTier {
	switch k {
	case SourceAcademic, SourceDeepDive:
		return TierHigh
	case SourceDataset, SourceCompetition, SourceNotebook:
		return TierMedium
	default:
		return TierCorroborate
	}
}

// Tier returns the document's reliability tier, derived from its source kind.
func (d Document) Tier() ReliabilityTier {
	return d.SourceKind.ReliabilityTier()
}

// Stale reports whether the document's publication date is absent or older
// than the threshold. Staleness annotates a document for verification and
// citation caveats; it never excludes it.
func (d Document) Stale(threshold time.Duration, now time.Time) bool {
	if d.Published.IsZero() {
		return true
	}
	return now.Sub(d.Published) > threshold
}

// DedupKey returns the stable key used to deduplicate documents across
// connectors and depths: the source-native identifier when present,
// otherwise the normalized URL.
func (d Document) DedupKey() string {
	if d.Identifier != "" {
		return strings.ToLower(strings.TrimSpace(d.Identifier))
	}
	return NormalizeURL(d.URL)
}

// NormalizeURL lowercases a URL and strips the scheme and trailing slash so
// http/https and slash variants of the same address collapse to one key.
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	return strings.TrimSuffix(u, "/")
}
