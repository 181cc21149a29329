package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/veritas/internal/model"
)

const configHeader = `# Veritas configuration
#
# Precedence, highest first: flags, VERITAS_* variables (VERITAS_LLM_MODEL
# sets llm.model), this file, built-in defaults.

`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
	Long: `Inspect the effective configuration or write a default file.

Values are resolved from flags, VERITAS_* variables, the config file
(~/.veritas/config.yaml unless --config is given) and defaults, in that
order. Empty secrets also fall back to the provider's usual variable,
such as OPENAI_API_KEY or SEARCH_API_KEY.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		source := viper.ConfigFileUsed()
		if source == "" {
			source = "none, defaults and environment only"
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "# source: %s\n", source)

		out, err := yaml.Marshal(maskSecrets(*cfg))
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to ~/.veritas/config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("locate home directory: %w", err)
			}
			path = filepath.Join(home, ".veritas", "config.yaml")
		}

		if err := writeDefaultConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nrun 'veritas config show' to see the resolved values\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// writeDefaultConfig writes the commented default configuration to path.
// It refuses to overwrite an existing file.
func writeDefaultConfig(path string) error {
	body, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.Write(body)
	writeEnvHints(&buf)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	// O_EXCL keeps an existing file intact.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s already exists; remove it to regenerate", path)
		}
		return fmt.Errorf("create config file: %w", err)
	}
	if _, err := buf.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	return f.Close()
}

// writeEnvHints lists the variables read for secrets left empty in the file.
func writeEnvHints(w io.Writer) {
	keys := make([]string, 0, len(secretEnv))
	for key := range secretEnv {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n# Secrets are best kept out of this file. When empty they are read from:\n")
	for _, key := range keys {
		fmt.Fprintf(w, "#   %-17s %s\n", key, strings.Join(secretEnv[key], ", "))
	}
}

func maskSecrets(cfg model.Config) model.Config {
	cfg.Search.APIKey = mask(cfg.Search.APIKey)
	cfg.LLM.APIKey = mask(cfg.LLM.APIKey)
	return cfg
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****" + s[len(s)-2:]
	}
}
