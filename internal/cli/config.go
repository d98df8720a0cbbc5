package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/horizon/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Horizon configuration",
	Long: `Manage Horizon configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (HORIZON_*, e.g. HORIZON_FILTERING_SCORE_THRESHOLD)
3. Config file (~/.horizon/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, the config file and environment variables. API keys are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		cfg.LLM.APIKey = mask(cfg.LLM.APIKey)
		cfg.Sources.GitHub.Token = mask(cfg.Sources.GitHub.Token)

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  Current Configuration")
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		fmt.Println(string(yamlData))

		if err := cfg.Validate(); err != nil {
			fmt.Printf("⚠ Configuration problem: %v\n", err)
		} else {
			fmt.Println("✓ Configuration is valid")
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.horizon/config.yaml (or the --config path) with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("error finding home directory: %w", err)
			}
			configPath = filepath.Join(home, ".horizon", "config.yaml")
		}

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'horizon config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
		if err := writeDefaultConfig(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close config file: %w", err)
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nOnly Hacker News is enabled. Add RSS feeds, subreddits, Telegram channels\n")
		fmt.Printf("or GitHub sources under 'sources', then run:\n")
		fmt.Printf("  horizon run\n\n")
		return nil
	},
}

// writeDefaultConfig writes the defaults plus one disabled example per source kind
func writeDefaultConfig(w io.Writer) error {
	cfg := model.DefaultConfig()
	cfg.Sources.RSS = []model.RSSFeedConfig{
		{Name: "go-blog", URL: "https://go.dev/blog/feed.atom", Enabled: false, Category: "golang"},
	}
	cfg.Sources.Reddit.Subreddits = []model.RedditSubredditConfig{
		{Subreddit: "golang", Enabled: false, Sort: "top", TimeFilter: "day", FetchLimit: 25, MinScore: 20},
	}
	cfg.Sources.Telegram.Channels = []model.TelegramChannelConfig{
		{Channel: "example_channel", Enabled: false, FetchLimit: 20},
	}
	cfg.Sources.GitHub.Sources = []model.GitHubSourceConfig{
		{Type: "repo_releases", Owner: "golang", Repo: "go", Enabled: false},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	header := `# Horizon Configuration File
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (HORIZON_*)
#   3. This config file
#   4. Built-in defaults
#
# RSS URLs may reference environment variables: https://${FEED_HOST}/feed.xml

`
	footer := `
# API Keys (recommended to use environment variables instead):
#   export OPENAI_API_KEY=sk-...
#   export ANTHROPIC_API_KEY=sk-ant-...
#   export OLLAMA_BASE_URL=http://localhost:11434
#   export GITHUB_TOKEN=ghp_...
`
	for _, part := range [][]byte{[]byte(header), data, []byte(footer)} {
		if _, err := w.Write(part); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}
	}
	return nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
