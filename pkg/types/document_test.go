// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"
)

func TestReliabilityTierMapping(t *testing.T) {
	cases := []struct {
		kind SourceKind
		want ReliabilityTier
	}{
		{SourceAcademic, TierHigh},
		{SourceDeepDive, TierHigh},
		{SourceDataset, TierMedium},
		{SourceCompetition, TierMedium},
		{SourceNotebook, TierMedium},
		{SourceWeb, TierCorroborate},
		{SourceKind("unknown"), TierCorroborate},
	}
	for _, c := range cases {
		if got := c.kind.ReliabilityTier(); got != c.want {
			t.Errorf("%s: got %s, want %s", c.kind, got, c.want)
		}
	}
}

func TestStale(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	threshold := 2 * 365 * 24 * time.Hour

	fresh := Document{Published: now.AddDate(0, -6, 0)}
	if fresh.Stale(threshold, now) {
		t.Error("six-month-old document flagged stale")
	}

	old := Document{Published: now.AddDate(-3, 0, 0)}
	if !old.Stale(threshold, now) {
		t.Error("three-year-old document not flagged stale")
	}

	undated := Document{}
	if !undated.Stale(threshold, now) {
		t.Error("undated document must be treated as stale")
	}
}

func TestDedupKey(t *testing.T) {
	withID := Document{Identifier: " 2301.07041 ", URL: "https://arxiv.org/abs/2301.07041"}
	if got := withID.DedupKey(); got != "2301.07041" {
		t.Errorf("identifier key: got %q", got)
	}

	// Without a native identifier, scheme and trailing-slash variants of the
	// same URL collapse to one key.
	a := Document{URL: "https://Example.com/Page/"}
	b := Document{URL: "http://example.com/page"}
	if a.DedupKey() != b.DedupKey() {
		t.Errorf("URL variants did not collapse: %q vs %q", a.DedupKey(), b.DedupKey())
	}

	empty := Document{}
	if empty.DedupKey() != "" {
		t.Errorf("empty document should have empty key, got %q", empty.DedupKey())
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Workflow.MaxIterations != 3 || cfg.Workflow.MaxDepth != 2 || cfg.Workflow.MinResultsThreshold != 2 {
		t.Errorf("unexpected workflow defaults: %+v", cfg.Workflow)
	}
	if cfg.Connectors.MaxResults != 5 {
		t.Errorf("unexpected connector max results: %d", cfg.Connectors.MaxResults)
	}
	if cfg.Report.OutputDir != "reports" || cfg.Archive.Dir != "archive" {
		t.Errorf("unexpected output defaults: %+v %+v", cfg.Report, cfg.Archive)
	}

	// Defaults never override explicit settings.
	cfg2 := Config{Workflow: WorkflowConfig{MaxIterations: 5}}
	cfg2.ApplyDefaults()
	if cfg2.Workflow.MaxIterations != 5 {
		t.Errorf("explicit setting overridden: %d", cfg2.Workflow.MaxIterations)
	}
}
