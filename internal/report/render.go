// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a finished research run as a Markdown document
// with YAML frontmatter, and persists it to the reports directory.
package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/kuraryu/deep-research/internal/workflow"
	"github.com/kuraryu/deep-research/pkg/types"
)

// citationPattern matches inline citations: [id] or [id1; id2].
var citationPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// sourceOrder fixes the section order of per-source counts.
var sourceOrder = []types.SourceKind{
	types.SourceAcademic,
	types.SourceWeb,
	types.SourceDataset,
	types.SourceCompetition,
	types.SourceNotebook,
	types.SourceDeepDive,
}

// Renderer turns a ResearchState into a Markdown report.
type Renderer struct {
	staleness time.Duration
	now       func() time.Time
}

// NewRenderer returns a Renderer that flags sources older than the given
// staleness threshold.
func NewRenderer(staleness time.Duration) *Renderer {
	return &Renderer{staleness: staleness, now: time.Now}
}

type frontmatter struct {
	Query       string `yaml:"query"`
	RunID       string `yaml:"run_id"`
	GeneratedAt string `yaml:"generated_at"`
	Iterations  int    `yaml:"iterations"`
	Documents   int    `yaml:"documents"`
	Degraded    bool   `yaml:"degraded"`
}

// Render produces the full Markdown report for a completed run.
func (r *Renderer) Render(st *workflow.ResearchState) (string, error) {
	fm, err := yaml.Marshal(frontmatter{
		Query:       st.Query,
		RunID:       st.RunID,
		GeneratedAt: r.now().UTC().Format(time.RFC3339),
		Iterations:  st.Iterations,
		Documents:   len(st.Documents),
		Degraded:    st.Degraded,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# Research Report: %s\n\n", st.Query)

	r.writeProcess(&b, st)
	r.writeSources(&b, st)
	r.writeVerification(&b, st)

	if st.Outline != "" {
		b.WriteString("## Outline\n\n")
		b.WriteString(strings.TrimSpace(st.Outline))
		b.WriteString("\n\n")
	}
	if st.Article != "" {
		b.WriteString("## Article\n\n")
		b.WriteString(strings.TrimSpace(st.Article))
		b.WriteString("\n\n")
	}

	r.writeCaveats(&b, st)

	return b.String(), nil
}

// writeProcess enumerates the sub-queries in the order they entered the
// workflow, with the lineage of refined and follow-up queries.
func (r *Renderer) writeProcess(b *strings.Builder, st *workflow.ResearchState) {
	b.WriteString("## Research Process\n\n")
	fmt.Fprintf(b, "%d search iterations across %d sub-queries.\n\n", st.Iterations, len(st.SubQueries))

	textByID := make(map[string]string, len(st.SubQueries))
	for _, sq := range st.SubQueries {
		textByID[sq.ID] = sq.Text
	}

	for i, sq := range st.SubQueries {
		fmt.Fprintf(b, "%d. %s (%s, %d results", i+1, sq.Text, sq.Origin, sq.ResultCount)
		if parent, ok := textByID[sq.ParentID]; ok && sq.ParentID != "" {
			fmt.Fprintf(b, ", refined from %q", parent)
		}
		b.WriteString(")\n")
	}
	b.WriteString("\n")
}

// writeSources prints per-source counts and the full source list with
// reliability tiers and staleness caveats.
func (r *Renderer) writeSources(b *strings.Builder, st *workflow.ResearchState) {
	b.WriteString("## Sources\n\n")

	counts := st.SourceCounts()
	for _, kind := range orderedKinds(counts) {
		fmt.Fprintf(b, "- %s: %d\n", kind, counts[kind])
	}
	b.WriteString("\n")

	now := r.now()
	for i, d := range st.Documents {
		fmt.Fprintf(b, "%d. **%s** `%s` (%s, %s reliability", i+1, d.Title, d.Identifier, d.SourceKind, d.Tier())
		if d.Stale(r.staleness, now) {
			b.WriteString(", stale")
		}
		b.WriteString(")")
		if d.URL != "" {
			fmt.Fprintf(b, " — %s", d.URL)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (r *Renderer) writeVerification(b *strings.Builder, st *workflow.ResearchState) {
	if len(st.Contradictions) > 0 {
		b.WriteString("## Contradiction Notes\n\n")
		for _, c := range st.Contradictions {
			fmt.Fprintf(b, "- %s (between %s)\n", c.Summary, strings.Join(c.DocumentIDs, ", "))
		}
		b.WriteString("\n")
	}
	if len(st.ReliabilityNotes) > 0 {
		b.WriteString("## Reliability Notes\n\n")
		for _, note := range st.ReliabilityNotes {
			fmt.Fprintf(b, "- %s\n", note)
		}
		b.WriteString("\n")
	}
}

// writeCaveats reports degradations and any article citations that do not
// resolve to a collected document.
func (r *Renderer) writeCaveats(b *strings.Builder, st *workflow.ResearchState) {
	unknown := UnknownCitations(st)
	if !st.Degraded && len(unknown) == 0 {
		return
	}
	b.WriteString("## Caveats\n\n")
	for _, reason := range st.DegradedReasons {
		fmt.Fprintf(b, "- %s\n", reason)
	}
	if len(unknown) > 0 {
		fmt.Fprintf(b, "- article cites sources not in the collected set: %s\n", strings.Join(unknown, ", "))
	}
	b.WriteString("\n")
}

// UnknownCitations scans the article for inline citation keys and returns
// those with no corresponding collected document, sorted.
func UnknownCitations(st *workflow.ResearchState) []string {
	seen := make(map[string]bool)
	for _, key := range extractCitationKeys(st.Article) {
		if !st.HasDocument(key) && !seen[key] {
			seen[key] = true
		}
	}
	var missing []string
	for key := range seen {
		missing = append(missing, key)
	}
	sort.Strings(missing)
	return missing
}

// extractCitationKeys finds citation keys in bracketed text, handling
// multi-citations like [id1; id2].
func extractCitationKeys(text string) []string {
	var keys []string
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		for _, part := range strings.Split(m[1], ";") {
			key := strings.TrimSpace(part)
			if isCitationKey(key) {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// isCitationKey checks whether bracket content looks like a document
// identifier rather than prose or a Markdown link. Identifiers never
// contain spaces and mix digits with other characters (arXiv IDs, DOIs,
// kaggle refs all do); a bare number like a year is prose.
func isCitationKey(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	hasDigit, hasOther := false, false
	for _, c := range s {
		if c >= '0' && c <= '9' {
			hasDigit = true
		} else {
			hasOther = true
		}
	}
	return hasDigit && hasOther
}

// orderedKinds returns the kinds present in counts, known kinds first in
// report order, any others appended alphabetically.
func orderedKinds(counts map[types.SourceKind]int) []types.SourceKind {
	known := make(map[types.SourceKind]bool, len(sourceOrder))
	var kinds []types.SourceKind
	for _, k := range sourceOrder {
		known[k] = true
		if counts[k] > 0 {
			kinds = append(kinds, k)
		}
	}
	var extra []types.SourceKind
	for k := range counts {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(kinds, extra...)
}
