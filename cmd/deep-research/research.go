// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kuraryu/deep-research/internal/connector"
	"github.com/kuraryu/deep-research/internal/coverage"
	"github.com/kuraryu/deep-research/internal/deepdive"
	"github.com/kuraryu/deep-research/internal/reason"
	"github.com/kuraryu/deep-research/internal/refine"
	"github.com/kuraryu/deep-research/internal/report"
	"github.com/kuraryu/deep-research/internal/store"
	"github.com/kuraryu/deep-research/internal/verify"
	"github.com/kuraryu/deep-research/internal/workflow"
	"github.com/kuraryu/deep-research/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research [query]",
	Short: "Run the full research workflow for a query",
	Long: `Research executes the complete workflow: sub-query generation, iterative
multi-source search with refinement, citation deep-dive, contradiction
verification, and report synthesis. The rendered report is written to the
reports directory and the run is archived.

Interrupting with Ctrl-C finishes the current stage and produces a
best-effort report from the evidence gathered so far.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("empty research query")
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	backend, err := buildBackend(cfg.Reason)
	if err != nil {
		return err
	}
	client := reason.NewClient(backend, log)

	citations := connector.NewCitationConnector(cfg.Connectors)
	ctrl := workflow.NewController(cfg.Workflow, workflow.Deps{
		Reason:     client,
		Connectors: buildConnectors(cfg.Connectors),
		Refiner:    refine.NewEngine(client, cfg.Workflow.MinResultsThreshold, log),
		Evaluator:  coverage.NewEvaluator(client, log),
		Explorer:   deepdive.NewExplorer(client, citations, cfg.Workflow.MaxDepth, log),
		Verifier:   verify.NewVerifier(client, cfg.Workflow.StalenessThreshold, log),
		Log:        log,
		Progress:   os.Stderr,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := ctrl.Run(ctx, query)
	if err != nil {
		if errors.Is(err, workflow.ErrEmptyDecomposition) || errors.Is(err, workflow.ErrNoEvidence) {
			return err
		}
		return fmt.Errorf("research run failed: %w", err)
	}

	content, err := report.NewRenderer(cfg.Workflow.StalenessThreshold).Render(st)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	path, err := report.Save(cfg.Report.OutputDir, content)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	archiveRun(cfg.Archive, st, path, log)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	printSummary(st, path)
	return nil
}

// archiveRun persists the finished run. Archive failures are reported but
// never fail the run: the report file already exists on disk.
func archiveRun(cfg types.ArchiveConfig, st *workflow.ResearchState, path string, log *zap.Logger) {
	s, err := store.NewStore(cfg)
	if err != nil {
		log.Warn("opening archive failed", zap.Error(err))
		return
	}
	defer s.Close()
	// A fresh context: the run context may already be cancelled.
	if err := s.SaveRun(context.Background(), st, path); err != nil {
		log.Warn("archiving run failed", zap.Error(err))
	}
}

func printSummary(st *workflow.ResearchState, path string) {
	fmt.Printf("\nResearch complete in %s.\n", st.FinishedAt.Sub(st.StartedAt).Round(time.Second))
	fmt.Printf("  Sub-queries: %d\n", len(st.SubQueries))
	fmt.Printf("  Iterations:  %d\n", st.Iterations)
	fmt.Printf("  Sources:     %d", len(st.Documents))
	counts := st.SourceCounts()
	var parts []string
	for _, kind := range []types.SourceKind{types.SourceAcademic, types.SourceWeb, types.SourceDataset, types.SourceCompetition, types.SourceNotebook, types.SourceDeepDive} {
		if counts[kind] > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", kind, counts[kind]))
		}
	}
	if len(parts) > 0 {
		fmt.Printf(" (%s)", strings.Join(parts, ", "))
	}
	fmt.Println()
	if len(st.Contradictions) > 0 {
		fmt.Printf("  Contradictions flagged: %d\n", len(st.Contradictions))
	}
	if st.Degraded {
		fmt.Printf("  Degraded: %s\n", strings.Join(st.DegradedReasons, "; "))
	}
	fmt.Printf("\nReport saved to %s\n", path)
}

// buildConfig assembles the run configuration from the config file,
// environment, flags, and loaded secrets, then fills defaults.
func buildConfig(cmd *cobra.Command) (types.Config, error) {
	var cfg types.Config

	cfg.Workflow.MaxIterations = viper.GetInt("workflow.max_iterations")
	cfg.Workflow.MaxDepth = viper.GetInt("workflow.max_depth")
	cfg.Workflow.MinResultsThreshold = viper.GetInt("workflow.min_results_threshold")
	cfg.Workflow.StalenessThreshold = viper.GetDuration("workflow.staleness_threshold")

	cfg.Connectors.MaxResults = viper.GetInt("connectors.max_results")
	cfg.Connectors.Timeout = viper.GetDuration("connectors.timeout")
	cfg.Connectors.UserAgent = viper.GetString("connectors.user_agent")

	cfg.Reason.Provider = types.ReasonProvider(viper.GetString("reason.provider"))
	cfg.Reason.Model = viper.GetString("reason.model")
	cfg.Reason.MaxTokens = viper.GetInt("reason.max_tokens")
	cfg.Reason.Timeout = viper.GetDuration("reason.timeout")

	cfg.Report.OutputDir = viper.GetString("report.output_dir")
	cfg.Archive.Dir = viper.GetString("archive.dir")

	// Flags override the config file.
	if cmd.Flags().Changed("max-iterations") {
		cfg.Workflow.MaxIterations, _ = cmd.Flags().GetInt("max-iterations")
	}
	if cmd.Flags().Changed("max-depth") {
		cfg.Workflow.MaxDepth, _ = cmd.Flags().GetInt("max-depth")
	}
	if cmd.Flags().Changed("max-results") {
		cfg.Connectors.MaxResults, _ = cmd.Flags().GetInt("max-results")
	}
	if cmd.Flags().Changed("provider") {
		provider, _ := cmd.Flags().GetString("provider")
		cfg.Reason.Provider = types.ReasonProvider(provider)
	}
	if cmd.Flags().Changed("model") {
		cfg.Reason.Model, _ = cmd.Flags().GetString("model")
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Report.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}

	cfg.Connectors.EnableArxiv, _ = cmd.Flags().GetBool("arxiv")
	cfg.Connectors.EnableWeb, _ = cmd.Flags().GetBool("web")
	cfg.Connectors.EnableKaggle, _ = cmd.Flags().GetBool("kaggle")

	cfg.Connectors.KaggleUsername = secretDefault("kaggle-username", viper.GetString("connectors.kaggle_username"))
	cfg.Connectors.KaggleKey = secretDefault("kaggle-key", viper.GetString("connectors.kaggle_key"))
	cfg.Connectors.SemanticScholarAPIKey = secretDefault("semantic-scholar-api-key", viper.GetString("connectors.semantic_scholar_api_key"))

	cfg.ApplyDefaults()

	switch cfg.Reason.Provider {
	case types.ProviderAnthropic:
		cfg.Reason.APIKey = secretDefault("anthropic-api-key", viper.GetString("reason.api_key"))
	case types.ProviderOpenAI:
		cfg.Reason.APIKey = secretDefault("openai-api-key", viper.GetString("reason.api_key"))
	default:
		return cfg, fmt.Errorf("unknown provider %q: use anthropic or openai", cfg.Reason.Provider)
	}
	if cfg.Reason.APIKey == "" {
		return cfg, fmt.Errorf("no API key for provider %s: add it to .secrets/ or the config file", cfg.Reason.Provider)
	}

	return cfg, nil
}

func buildBackend(cfg types.ReasonConfig) (reason.Backend, error) {
	switch cfg.Provider {
	case types.ProviderAnthropic:
		return reason.NewAnthropicBackend(cfg), nil
	case types.ProviderOpenAI:
		return reason.NewOpenAIBackend(cfg), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// buildConnectors assembles the enabled search connectors. When both the
// web and Kaggle sources are enabled, a site-scoped web connector covers
// Kaggle discussions alongside the dataset, competition, and notebook APIs.
func buildConnectors(cfg types.ConnectorConfig) []connector.Connector {
	client := &http.Client{Timeout: cfg.Timeout}

	var conns []connector.Connector
	if cfg.EnableArxiv {
		conns = append(conns, &connector.ArxivConnector{
			Client:     client,
			MaxResults: cfg.MaxResults,
			UserAgent:  cfg.UserAgent,
		})
	}
	if cfg.EnableWeb {
		conns = append(conns, &connector.WebConnector{
			Client:     client,
			MaxResults: cfg.MaxResults,
			UserAgent:  cfg.UserAgent,
		})
		if cfg.EnableKaggle {
			conns = append(conns, &connector.WebConnector{
				Client:     client,
				MaxResults: cfg.MaxResults,
				UserAgent:  cfg.UserAgent,
				SiteScope:  "kaggle.com/discussions",
			})
		}
	}
	if cfg.EnableKaggle {
		datasets, competitions, notebooks := connector.NewKaggleConnectors(cfg)
		conns = append(conns, datasets, competitions, notebooks)
	}
	return conns
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func init() {
	researchCmd.Flags().Int("max-iterations", 3, "maximum search/evaluate iterations")
	researchCmd.Flags().Int("max-depth", 2, "maximum citation deep-dive depth")
	researchCmd.Flags().Int("max-results", 5, "maximum results per source per query")
	researchCmd.Flags().String("provider", "", "LLM provider: anthropic or openai")
	researchCmd.Flags().String("model", "", "model identifier for the provider")
	researchCmd.Flags().String("output-dir", "", "directory for rendered reports")
	researchCmd.Flags().Bool("arxiv", true, "search arXiv")
	researchCmd.Flags().Bool("web", true, "search the web")
	researchCmd.Flags().Bool("kaggle", true, "search Kaggle datasets, competitions, notebooks, and discussions")
	researchCmd.Flags().Bool("json", false, "emit the final research state as JSON instead of a summary")
	researchCmd.Flags().Bool("verbose", false, "verbose (development) logging")

	rootCmd.AddCommand(researchCmd)
}
