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

	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/model"
)

// Version is set at build time.
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "veritas",
	Short: "Veritas - evidence-scored truthfulness verdicts",
	Long: `Veritas checks content against web-searched evidence and assigns a
truthfulness verdict with a confidence score.

Content can be plain text, a URL, or an image or video with pre-extracted
text. Every verdict lists the sources it was judged against and how each
source was scored.

Verdicts are heuristic. Read the sources.`,
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
	Long:  `Display the version number of Veritas.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("veritas %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.veritas/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, text)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// secretEnv maps config keys to the conventional variables holding them.
var secretEnv = map[string][]string{
	"search.api_key":   {"SEARCH_API_KEY", "GOOGLE_API_KEY"},
	"search.engine_id": {"SEARCH_ENGINE_ID", "GOOGLE_SEARCH_ENGINE_ID"},
	"llm.api_key":      {"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"},
	"llm.base_url":     {"OLLAMA_BASE_URL"},
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".veritas"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// VERITAS_LLM_API_KEY overrides llm.api_key, and so on
	viper.SetEnvPrefix("VERITAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for key := range secretEnv {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every field of cfg as a viper default so that
// environment overrides apply to keys absent from the config file.
func setDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	flattenInto("", tree, viper.SetDefault)
	return nil
}

func flattenInto(prefix string, tree map[string]any, set func(string, any)) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok && len(sub) > 0 {
			flattenInto(key, sub, set)
			continue
		}
		set(key, v)
	}
}

// loadConfig resolves the effective configuration: defaults, config file,
// VERITAS_* variables, then conventional secret variables for keys still
// empty.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// A Gemini key alone selects Gemini, so the model path runs without
	// an explicit llm.provider.
	if cfg.LLM.Provider == "" && os.Getenv("GEMINI_API_KEY") != "" {
		cfg.LLM.Provider = "gemini"
	}

	for key, envs := range secretEnv {
		if viper.GetString(key) != "" {
			continue
		}
		switch key {
		case "llm.api_key":
			envs = llmKeyEnv(cfg.LLM.Provider)
		case "llm.base_url":
			if !strings.EqualFold(cfg.LLM.Provider, "ollama") {
				continue
			}
		}
		for _, env := range envs {
			if val := os.Getenv(env); val != "" {
				setSecret(cfg, key, val)
				break
			}
		}
	}

	return cfg, nil
}

func llmKeyEnv(provider string) []string {
	switch strings.ToLower(provider) {
	case "openai":
		return []string{"OPENAI_API_KEY"}
	case "anthropic", "claude":
		return []string{"ANTHROPIC_API_KEY"}
	case "gemini", "google":
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		return nil
	}
}

func setSecret(cfg *model.Config, key, val string) {
	switch key {
	case "search.api_key":
		cfg.Search.APIKey = val
	case "search.engine_id":
		cfg.Search.EngineID = val
	case "llm.api_key":
		cfg.LLM.APIKey = val
	case "llm.base_url":
		cfg.LLM.BaseURL = val
	}
}

// setupLogger installs the structured logger on stderr.
func setupLogger(cfg *model.Config) (*slog.Logger, error) {
	lc := cfg.Logging
	if verbose && lc.Level == "info" {
		lc.Level = "debug"
	}
	return logging.Setup(lc, os.Stderr)
}
