package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/horizon/internal/cache"
	"github.com/ppiankov/horizon/internal/llm"
	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/pipeline"
	"github.com/ppiankov/horizon/internal/search"
	"github.com/ppiankov/horizon/internal/sources"
	"github.com/ppiankov/horizon/internal/store"
	"github.com/ppiankov/horizon/internal/util"
	"github.com/ppiankov/horizon/internal/worker"
)

var (
	hours      int
	threshold  float64
	runTimeout time.Duration
	noFooter   bool
	noEnrich   bool
	noCache    bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, score and write today's briefing",
	Long: `Run executes one briefing:
- Fetch recent items from every enabled source
- Drop items reported in earlier briefings
- Merge duplicates that point at the same URL
- Score every item with the configured language model
- Keep items at or above the score threshold, best first
- Enrich selected items with a grounded explanation
- Suggest new sources, then write the Markdown briefing

Example:
  horizon run
  horizon run --hours 48 --threshold 8
  horizon run --config ./horizon.yaml --no-enrich`,
	Args: cobra.NoArgs,
	RunE: runBriefing,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&hours, "hours", 0, "lookback window in hours (default: filtering.time_window_hours)")
	runCmd.Flags().Float64Var(&threshold, "threshold", -1, "score threshold 0-10 (default: filtering.score_threshold)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall run timeout")
	runCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in the Markdown briefing")
	runCmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "skip the enrichment stage")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the search result cache")
}

func runBriefing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg)

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, model.ErrNoSources) {
			return fmt.Errorf("%w: enable at least one source in %s", err, configHint())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	st, err := store.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer func() { _ = st.Close() }()

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return fmt.Errorf("configure LLM provider: %w", err)
	}
	throttle := worker.NewThrottle("llm", cfg.LLM.Concurrency, cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)
	throttled := llm.NewThrottledProvider(provider, throttle)

	client := util.NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)

	var searchCache cache.Cache
	if cfg.Cache.Enabled {
		searchCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}
	searcher := search.NewFromConfig(cfg, client, searchCache, logger)

	fetcher := sources.NewFetcherFromConfig(cfg.HTTP, client, logger)
	srcs := sources.FromConfig(cfg.Sources, fetcher)

	p, err := pipeline.New(cfg, pipeline.Deps{
		Sources:  srcs,
		Provider: throttled,
		Searcher: searcher,
		Seen:     st,
		Reports:  st,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	p.SetFooter(!noFooter)

	since := time.Now().Add(-time.Duration(cfg.Filtering.TimeWindowHours) * time.Hour)
	logger.Info("starting briefing", "sources", len(srcs), "since", since.Format(time.RFC3339), "provider", provider.Name())

	result, err := p.Run(ctx, since)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Print(pipeline.NewRenderer(false).RenderSummary(result.Report, result.OutputPath))
	if verbose {
		fmt.Fprintf(os.Stderr, "\nScoring: %d scored, %d defaulted, %d skipped\n",
			result.Scoring.Scored, result.Scoring.Defaulted, result.Scoring.Skipped)
		fmt.Fprintf(os.Stderr, "Enrichment: %d enriched, %d skipped\n",
			result.Enrichment.Enriched, result.Enrichment.Skipped)
	}
	return nil
}

func applyRunFlags(cfg *model.Config) {
	if hours > 0 {
		cfg.Filtering.TimeWindowHours = hours
	}
	if threshold >= 0 {
		cfg.Filtering.ScoreThreshold = threshold
	}
	if noEnrich {
		cfg.Enrichment.Enabled = false
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
}

func configHint() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return "~/.horizon/config.yaml"
}
