package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/tinthat/internal/model"
)

var version = "v0.3.0"

var (
	cfgFile  string
	verbose  bool
	logLevel string
	dbDriver string
	kbFile   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tinthat",
	Short: "TinThật - fact-checking for Vietnamese news against a trusted knowledge base",
	Long: `TinThật checks the factual claims in a Vietnamese news article against a
knowledge base of trusted statements.

Each claim is matched to its nearest trusted sentences, checked by hard
numeric/date rules and then by a natural-language-inference model. The
article is labelled REAL, FAKE, NEUTRAL or UNDEFINED with a confidence
and the evidence behind the decision.`,
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
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tinthat " + version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.tinthat/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "knowledge store driver (postgres, memory)")
	rootCmd.PersistentFlags().StringVar(&kbFile, "kb-file", "", "JSONL knowledge base for the memory driver")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("database.driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	_ = viper.BindPFlag("database.kb_file", rootCmd.PersistentFlags().Lookup("kb-file"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and TINTHAT_* variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.tinthat")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// TINTHAT_RETRIEVAL_DISTANCE_THRESHOLD overrides retrieval.distance_threshold
	viper.SetEnvPrefix("TINTHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := registerDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to viper so that
// environment variables can override keys absent from the file
func registerDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	for section, fields := range tree {
		for key, value := range fields {
			viper.SetDefault(section+"."+key, value)
		}
	}

	// Secrets and optional keys are not written to YAML
	for _, key := range []string{
		"database.dsn",
		"embedding.api_key",
		"nli.api_key",
		"server.admin_token",
		"http.http_proxy",
		"http.https_proxy",
		"http.no_proxy",
	} {
		_ = viper.BindEnv(key)
	}
	return nil
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.NLI.APIKey == "" && cfg.NLI.Provider == "openai" {
		cfg.NLI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// reloadConfig re-reads the config file before loading. A config file that
// does not exist leaves defaults, environment and flags in effect.
func reloadConfig() (*model.Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return loadConfig()
}
