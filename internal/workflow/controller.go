// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow sequences the research run: sub-query generation,
// coverage-driven iterative search with refinement, depth-bounded deep-dive,
// contradiction verification, and report synthesis. The Controller owns the
// ResearchState; every other component is a pure collaborator returning
// deltas that are merged here, at the end of an iteration or depth level.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kuraryu/deep-research/internal/connector"
	"github.com/kuraryu/deep-research/internal/coverage"
	"github.com/kuraryu/deep-research/internal/deepdive"
	"github.com/kuraryu/deep-research/internal/reason"
	"github.com/kuraryu/deep-research/internal/refine"
	"github.com/kuraryu/deep-research/internal/verify"
	"github.com/kuraryu/deep-research/pkg/types"
)

// ErrEmptyDecomposition is fatal: with zero sub-queries the workflow cannot
// proceed.
var ErrEmptyDecomposition = errors.New("decomposition produced no sub-queries")

// ErrNoEvidence is fatal: every source returned nothing for every sub-query
// in the first iteration.
var ErrNoEvidence = errors.New("no documents found across any source")

// Deps bundles the Controller's collaborators.
type Deps struct {
	Reason     reason.Capability
	Connectors []connector.Connector
	Refiner    *refine.Engine
	Evaluator  *coverage.Evaluator
	Explorer   *deepdive.Explorer
	Verifier   *verify.Verifier
	Log        *zap.Logger
	Progress   io.Writer
}

// Controller drives the workflow state machine for one run at a time.
type Controller struct {
	cfg  types.WorkflowConfig
	deps Deps
}

// NewController returns a Controller with the given bounds and
// collaborators.
func NewController(cfg types.WorkflowConfig, deps Deps) *Controller {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Progress == nil {
		deps.Progress = io.Discard
	}
	return &Controller{cfg: cfg, deps: deps}
}

// Run executes the full workflow for query. The returned state is always
// non-nil: on fatal errors it preserves whatever was gathered before the
// failure. Cancellation is honored between stages, never mid-search, and
// turns the run into a degraded best-effort report.
func (c *Controller) Run(ctx context.Context, query string) (*ResearchState, error) {
	st := newState(query)
	log := c.deps.Log.With(zap.String("run_id", st.RunID))
	defer func() {
		st.FinishedAt = time.Now()
	}()

	// GENERATING_SUBQUERIES
	fmt.Fprintf(c.deps.Progress, "Generating sub-queries...\n")
	subTexts, err := c.deps.Reason.Decompose(ctx, query)
	if err != nil || len(subTexts) == 0 {
		if err != nil {
			return st, fmt.Errorf("%w: %v", ErrEmptyDecomposition, err)
		}
		return st, ErrEmptyDecomposition
	}
	for _, text := range subTexts {
		st.addSubQueries([]types.SubQuery{{
			ID:     uuid.NewString(),
			Text:   text,
			Origin: types.OriginInitial,
		}})
	}
	log.Info("decomposed query", zap.Int("sub_queries", len(st.SubQueries)))
	fmt.Fprintf(c.deps.Progress, "Generated %d sub-queries\n", len(st.SubQueries))

	// SEARCHING <-> EVALUATING_COVERAGE loop, bounded by MaxIterations.
	for st.Iterations < c.cfg.MaxIterations {
		if c.cancelled(ctx, st) {
			return st, nil
		}
		st.Iterations++
		st.Stage = StageSearching
		fmt.Fprintf(c.deps.Progress, "Searching sources (iteration %d/%d)...\n", st.Iterations, c.cfg.MaxIterations)

		added := c.searchIteration(ctx, st, log)
		log.Info("search iteration complete",
			zap.Int("iteration", st.Iterations),
			zap.Int("documents_added", added),
			zap.Int("documents_total", len(st.Documents)))
		fmt.Fprintf(c.deps.Progress, "Collected %d sources (%d total)\n", added, len(st.Documents))

		if st.Iterations == 1 && len(st.Documents) == 0 {
			return st, ErrNoEvidence
		}

		if c.cancelled(ctx, st) {
			return st, nil
		}
		st.Stage = StageEvaluatingCoverage
		fmt.Fprintf(c.deps.Progress, "Evaluating coverage...\n")
		st.Verdict = c.deps.Evaluator.Evaluate(ctx, st.Query, st.SubQueries, st.documentsView())
		if st.Verdict.Sufficient {
			break
		}

		if st.Iterations == c.cfg.MaxIterations {
			// The iteration cap forces progress regardless of the verdict.
			st.markDegraded(fmt.Sprintf("coverage still insufficient after %d iterations", st.Iterations))
			break
		}

		followUps := coverage.FollowUps(st.Verdict, st.SubQueries)
		st.addSubQueries(followUps)
		log.Info("coverage insufficient, looping",
			zap.Strings("missing_aspects", st.Verdict.MissingAspects),
			zap.Int("follow_ups", len(followUps)))
	}

	// DEEP_DIVING
	if c.cancelled(ctx, st) {
		return st, nil
	}
	st.Stage = StageDeepDiving
	fmt.Fprintf(c.deps.Progress, "Deep-diving into significant sources...\n")
	dive := c.deps.Explorer.Explore(ctx, st.documentsView())
	st.addDocuments(dive.Documents)
	st.SelectedByDepth = dive.SelectedByDepth
	if len(dive.Documents) == 0 {
		st.markDegraded("deep-dive produced no additional documents")
	}
	log.Info("deep-dive complete", zap.Int("documents_added", len(dive.Documents)))

	// VERIFYING
	if c.cancelled(ctx, st) {
		return st, nil
	}
	st.Stage = StageVerifying
	fmt.Fprintf(c.deps.Progress, "Cross-checking sources for contradictions...\n")
	verified := c.deps.Verifier.Verify(ctx, st.SubQueries, st.documentsView())
	st.Contradictions = verified.Contradictions
	st.ReliabilityNotes = verified.ReliabilityNotes

	// OUTLINING
	if c.cancelled(ctx, st) {
		return st, nil
	}
	st.Stage = StageOutlining
	fmt.Fprintf(c.deps.Progress, "Generating outline...\n")
	outline, err := c.deps.Reason.GenerateOutline(ctx, st.Query, st.documentsView())
	if err != nil {
		st.markDegraded("outline generation failed")
		log.Warn("outline generation failed", zap.Error(err))
	}
	st.Outline = outline

	// WRITING
	if c.cancelled(ctx, st) {
		return st, nil
	}
	st.Stage = StageWriting
	fmt.Fprintf(c.deps.Progress, "Writing article...\n")
	article, err := c.deps.Reason.GenerateArticle(ctx, st.Query, st.Outline, st.documentsView())
	if err != nil {
		st.markDegraded("article generation failed")
		log.Warn("article generation failed", zap.Error(err))
	}
	st.Article = article

	st.Stage = StageDone
	return st, nil
}

// queryDelta is one sub-query's contribution to an iteration, assembled
// concurrently and merged into state only after every search in the
// iteration has finished.
type queryDelta struct {
	resultCount int
	docs        []types.Document
	refined     *types.SubQuery
}

// searchIteration searches every sub-query once, concurrently, refining
// those that under-return. The errgroup wait is the iteration's single
// serialization barrier: no state is touched until all deltas are in.
// Returns the number of documents added.
func (c *Controller) searchIteration(ctx context.Context, st *ResearchState, log *zap.Logger) int {
	queries := make([]types.SubQuery, len(st.SubQueries))
	copy(queries, st.SubQueries)

	deltas := make([]queryDelta, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, sq := range queries {
		i, sq := i, sq
		g.Go(func() error {
			deltas[i] = c.searchOne(gctx, sq, log)
			return nil
		})
	}
	g.Wait()

	// Merge point: annotate result counts, append refined queries in
	// sub-query order, then add documents.
	added := 0
	for i := range queries {
		st.SubQueries[i].ResultCount = deltas[i].resultCount
		if deltas[i].refined != nil {
			st.addSubQueries([]types.SubQuery{*deltas[i].refined})
		}
		added += st.addDocuments(deltas[i].docs)
	}
	return added
}

// searchOne searches a single sub-query across all connectors and applies
// at most one refinement pass when it under-returns. Refined results
// augment the original's; they never replace them.
func (c *Controller) searchOne(ctx context.Context, sq types.SubQuery, log *zap.Logger) queryDelta {
	docs := connector.SearchAll(ctx, c.deps.Connectors, sq.Text, log)
	for i := range docs {
		docs[i].OriginQueryID = sq.ID
		docs[i].Depth = 0
	}

	delta := queryDelta{resultCount: len(docs), docs: docs}

	sq.ResultCount = len(docs)
	refined := c.deps.Refiner.Refine(ctx, sq)
	if refined == nil {
		return delta
	}

	refinedDocs := connector.SearchAll(ctx, c.deps.Connectors, refined.Text, log)
	for i := range refinedDocs {
		refinedDocs[i].OriginQueryID = refined.ID
		refinedDocs[i].Depth = 0
	}
	refined.ResultCount = len(refinedDocs)

	delta.refined = refined
	delta.docs = append(delta.docs, refinedDocs...)
	return delta
}

// cancelled checks for an external interrupt between stages. A cancelled
// run keeps everything gathered so far and is reported as degraded.
func (c *Controller) cancelled(ctx context.Context, st *ResearchState) bool {
	if ctx.Err() == nil {
		return false
	}
	st.markDegraded("run interrupted: " + ctx.Err().Error())
	st.Stage = StageDone
	return true
}
