package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/horizon/internal/logging"
	"github.com/ppiankov/horizon/internal/model"
)

// version is overridden at build time with -ldflags "-X .../cli.version=..."
var version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "horizon",
	Short: "Horizon - AI-curated technical news briefings",
	Long: `Horizon collects recent items from Hacker News, RSS feeds, Reddit,
Telegram channels and GitHub, merges duplicates across sources, scores every
item with a language model and writes a Markdown briefing of what is worth
reading.

Selected items are enriched with a grounded explanation, and the briefing
suggests new sources based on what scored well.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Horizon.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("horizon %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.horizon/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".horizon"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Register every default key so HORIZON_* variables can override
	// settings the config file does not mention
	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	// HORIZON_LLM_MODEL overrides llm.model
	viper.SetEnvPrefix("HORIZON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	for key, value := range tree {
		v.SetDefault(key, value)
	}
	return nil
}

// loadConfig merges defaults, the config file and the environment, then
// fills API credentials from the provider's conventional variables
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if strings.EqualFold(cfg.LLM.Provider, "ollama") && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.Sources.GitHub.Token == "" {
		cfg.Sources.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) (*slog.Logger, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}
