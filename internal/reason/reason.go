// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reason is the single boundary to the language model. It exposes a
// closed set of prompt kinds with validated response shapes so the
// orchestration logic can be tested deterministically against a mock.
package reason

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kuraryu/deep-research/pkg/types"
)

// PromptKind identifies one of the fixed model call sites.
type PromptKind string

const (
	KindDecompose            PromptKind = "decompose"
	KindRefineQuery          PromptKind = "refine-query"
	KindEvaluateCoverage     PromptKind = "evaluate-coverage"
	KindSelectForDeepDive    PromptKind = "select-for-deepdive"
	KindDetectContradictions PromptKind = "detect-contradictions"
	KindGenerateOutline      PromptKind = "generate-outline"
	KindGenerateArticle      PromptKind = "generate-article"
)

// ErrMalformed marks a model response that did not match the expected shape
// for its prompt kind, after retry.
var ErrMalformed = errors.New("malformed model response")

// Backend performs a single model call and returns the raw response text.
// Implementations exist for the Anthropic Messages API and the OpenAI chat
// API; tests supply a scripted mock.
type Backend interface {
	Complete(ctx context.Context, kind PromptKind, prompt string) (string, error)
}

// Capability is the reasoning surface the workflow components consume. One
// typed method per prompt kind keeps response shapes compile-checked.
type Capability interface {
	Decompose(ctx context.Context, query string) ([]string, error)
	RefineQuery(ctx context.Context, query string, resultCount int) (string, error)
	EvaluateCoverage(ctx context.Context, query string, subQueries []string, docs []types.Document) (types.CoverageVerdict, error)
	SelectForDeepDive(ctx context.Context, docs []types.Document) ([]string, error)
	DetectContradictions(ctx context.Context, topic string, docs []types.Document) ([]types.Contradiction, error)
	GenerateOutline(ctx context.Context, query string, docs []types.Document) (string, error)
	GenerateArticle(ctx context.Context, query, outline string, docs []types.Document) (string, error)
}

// Client implements Capability on top of a Backend. Every call is attempted
// twice: transport errors and malformed responses get one retry, then the
// error is returned for the caller to degrade per its own rules.
type Client struct {
	backend Backend
	log     *zap.Logger
}

// NewClient returns a Client over the given backend.
func NewClient(backend Backend, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{backend: backend, log: log}
}

// complete runs one prompt with a single retry on failure. parse validates
// and captures the response; a parse failure counts as malformed.
func (c *Client) complete(ctx context.Context, kind PromptKind, prompt string, parse func(raw string) error) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := c.backend.Complete(ctx, kind, prompt)
		if err != nil {
			lastErr = fmt.Errorf("%s call: %w", kind, err)
			c.log.Warn("model call failed", zap.String("kind", string(kind)), zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		if err := parse(raw); err != nil {
			lastErr = fmt.Errorf("%w: %s: %v", ErrMalformed, kind, err)
			c.log.Warn("model response malformed", zap.String("kind", string(kind)), zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		return nil
	}
	return lastErr
}

// Decompose asks the model to split the research query into sub-queries.
func (c *Client) Decompose(ctx context.Context, query string) ([]string, error) {
	prompt, err := renderPrompt(decomposeTmpl, map[string]any{"Query": query})
	if err != nil {
		return nil, err
	}

	var out []string
	err = c.complete(ctx, KindDecompose, prompt, func(raw string) error {
		var resp struct {
			SubQueries []string `json:"subqueries"`
		}
		if err := decodeJSON(raw, &resp); err != nil {
			return err
		}
		out = cleanStrings(resp.SubQueries)
		if len(out) == 0 {
			return fmt.Errorf("no subqueries in response")
		}
		return nil
	})
	return out, err
}

// RefineQuery asks the model to rewrite an under-performing query.
func (c *Client) RefineQuery(ctx context.Context, query string, resultCount int) (string, error) {
	prompt, err := renderPrompt(refineTmpl, map[string]any{"Query": query, "ResultCount": resultCount})
	if err != nil {
		return "", err
	}

	var out string
	err = c.complete(ctx, KindRefineQuery, prompt, func(raw string) error {
		var resp struct {
			Query string `json:"query"`
		}
		if err := decodeJSON(raw, &resp); err != nil {
			return err
		}
		out = strings.TrimSpace(resp.Query)
		if out == "" {
			return fmt.Errorf("empty rewritten query")
		}
		return nil
	})
	return out, err
}

// EvaluateCoverage asks the model whether the evidence set answers the
// sub-query set, and which aspects are missing if not.
func (c *Client) EvaluateCoverage(ctx context.Context, query string, subQueries []string, docs []types.Document) (types.CoverageVerdict, error) {
	prompt, err := renderPrompt(coverageTmpl, map[string]any{
		"Query":      query,
		"SubQueries": subQueries,
		"Documents":  formatDocs(docs, 200),
	})
	if err != nil {
		return types.CoverageVerdict{}, err
	}

	var out types.CoverageVerdict
	err = c.complete(ctx, KindEvaluateCoverage, prompt, func(raw string) error {
		var resp struct {
			Sufficient     bool     `json:"sufficient"`
			MissingAspects []string `json:"missing_aspects"`
		}
		if err := decodeJSON(raw, &resp); err != nil {
			return err
		}
		out = types.CoverageVerdict{
			Sufficient:     resp.Sufficient,
			MissingAspects: cleanStrings(resp.MissingAspects),
		}
		if !out.Sufficient && len(out.MissingAspects) == 0 {
			return fmt.Errorf("insufficient verdict without missing aspects")
		}
		return nil
	})
	return out, err
}

// SelectForDeepDive asks the model which documents are worth expanding via
// citation search. The returned identifiers are a model decision; callers
// clamp them to documents actually present.
func (c *Client) SelectForDeepDive(ctx context.Context, docs []types.Document) ([]string, error) {
	prompt, err := renderPrompt(selectTmpl, map[string]any{"Documents": formatDocs(docs, 200)})
	if err != nil {
		return nil, err
	}

	var out []string
	err = c.complete(ctx, KindSelectForDeepDive, prompt, func(raw string) error {
		var resp struct {
			Identifiers []string `json:"identifiers"`
		}
		if err := decodeJSON(raw, &resp); err != nil {
			return err
		}
		out = cleanStrings(resp.Identifiers)
		return nil
	})
	return out, err
}

// DetectContradictions asks the model to find conflicting claims within a
// group of documents. The group is pre-bounded by the caller.
func (c *Client) DetectContradictions(ctx context.Context, topic string, docs []types.Document) ([]types.Contradiction, error) {
	prompt, err := renderPrompt(contradictionsTmpl, map[string]any{
		"Topic":     topic,
		"Documents": formatDocs(docs, 400),
	})
	if err != nil {
		return nil, err
	}

	var out []types.Contradiction
	err = c.complete(ctx, KindDetectContradictions, prompt, func(raw string) error {
		var resp struct {
			Contradictions []struct {
				Summary     string   `json:"summary"`
				DocumentIDs []string `json:"document_ids"`
			} `json:"contradictions"`
		}
		if err := decodeJSON(raw, &resp); err != nil {
			return err
		}
		out = out[:0]
		for _, c := range resp.Contradictions {
			// A contradiction needs at least two parties.
			if strings.TrimSpace(c.Summary) == "" || len(c.DocumentIDs) < 2 {
				continue
			}
			out = append(out, types.Contradiction{
				Summary:     strings.TrimSpace(c.Summary),
				DocumentIDs: cleanStrings(c.DocumentIDs),
			})
		}
		return nil
	})
	return out, err
}

// GenerateOutline asks the model for an article outline over the evidence.
func (c *Client) GenerateOutline(ctx context.Context, query string, docs []types.Document) (string, error) {
	prompt, err := renderPrompt(outlineTmpl, map[string]any{
		"Query":     query,
		"Documents": formatDocs(docs, 300),
	})
	if err != nil {
		return "", err
	}

	var out string
	err = c.complete(ctx, KindGenerateOutline, prompt, func(raw string) error {
		out = strings.TrimSpace(raw)
		if out == "" {
			return fmt.Errorf("empty outline")
		}
		return nil
	})
	return out, err
}

// GenerateArticle asks the model for the final cited article.
func (c *Client) GenerateArticle(ctx context.Context, query, outline string, docs []types.Document) (string, error) {
	prompt, err := renderPrompt(articleTmpl, map[string]any{
		"Query":     query,
		"Outline":   outline,
		"Documents": formatDocs(docs, 1000),
	})
	if err != nil {
		return "", err
	}

	var out string
	err = c.complete(ctx, KindGenerateArticle, prompt, func(raw string) error {
		out = strings.TrimSpace(raw)
		if out == "" {
			return fmt.Errorf("empty article")
		}
		return nil
	})
	return out, err
}

// decodeJSON strictly decodes the first JSON object found in raw. Models
// sometimes wrap JSON in code fences or prose; everything outside the
// outermost braces is discarded.
func decodeJSON(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	dec := json.NewDecoder(strings.NewReader(raw[start : end+1]))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// cleanStrings trims entries and drops empties, preserving order.
func cleanStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// formatDocs renders documents as a compact numbered list for prompts,
// truncating each summary to keep prompt size bounded.
func formatDocs(docs []types.Document, summaryLimit int) string {
	var b strings.Builder
	for i, d := range docs {
		summary := d.Summary
		if len(summary) > summaryLimit {
			summary = summary[:summaryLimit] + "..."
		}
		fmt.Fprintf(&b, "%d. [%s] id=%s %s\n   %s\n", i+1, d.SourceKind, d.Identifier, d.Title, summary)
	}
	return b.String()
}
