package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/pipeline"
	"github.com/ppiankov/horizon/internal/recommend"
	"github.com/ppiankov/horizon/internal/store"
)

var historyLimit int

// sourcesCmd lists what a run would fetch
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the enabled content sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		current := recommend.CurrentSources(cfg.Sources)
		if len(current) == 0 {
			fmt.Println("No sources enabled.")
			return nil
		}
		for _, s := range current {
			fmt.Printf("  %s\n", s)
		}
		fmt.Printf("\n%d source(s) enabled\n", len(current))
		return nil
	},
}

// historyCmd lists archived briefings
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous briefings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st *store.Store) error {
			reports, err := st.RecentReports(ctx, historyLimit)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Println("No briefings yet. Run 'horizon run' first.")
				return nil
			}
			for _, r := range reports {
				fmt.Printf("%s  %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04"), r.ID)
			}
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an archived briefing as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st *store.Store) error {
			payload, err := st.Report(ctx, args[0])
			if err != nil {
				return err
			}
			var report model.Report
			if err := json.Unmarshal(payload, &report); err != nil {
				return fmt.Errorf("decode report %s: %w", args[0], err)
			}
			fmt.Print(pipeline.NewRenderer(true).RenderMarkdown(&report))
			return nil
		})
	},
}

func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer func() { _ = st.Close() }()

	return fn(ctx, st)
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of briefings to list")
}
