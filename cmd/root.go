package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "grant-matcher"
)

type Config struct {
	Organizations *OrganizationsConfig `mapstructure:"organizations"`
	Sources       []*SourceConfig      `mapstructure:"sources"`
	Cache         *CacheConfig         `mapstructure:"cache"`
	Aggregator    *AggregatorConfig    `mapstructure:"aggregator"`
	Matching      *MatchingConfig      `mapstructure:"matching"`
	Filters       *FiltersConfig       `mapstructure:"filters"`
	// Weights maps dimension names to weights. Every dimension must be listed.
	Weights map[string]any `mapstructure:"weights"`
	AI      *AIConfig      `mapstructure:"ai"`
}

type OrganizationsConfig struct {
	File   string `mapstructure:"file"`
	SQLite string `mapstructure:"sqlite"`
}

type SourceConfig struct {
	Name string `mapstructure:"name"`
	// Type is "file" or "http".
	Type      string            `mapstructure:"type"`
	Kind      string            `mapstructure:"kind"`
	Path      string            `mapstructure:"path"`
	All       bool              `mapstructure:"all"`
	URL       string            `mapstructure:"url"`
	TokenFile string            `mapstructure:"token-file"`
	TokenEnv  string            `mapstructure:"token-env"`
	PerPage   int               `mapstructure:"per-page"`
	MaxPages  int               `mapstructure:"max-pages"`
	Fields    map[string]string `mapstructure:"fields"`
	Params    map[string]string `mapstructure:"params"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	Cache     *bool             `mapstructure:"cache"`
}

type CacheConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	PasswordFile string        `mapstructure:"password-file"`
	DB           int           `mapstructure:"db"`
	TTL          time.Duration `mapstructure:"ttl"`
}

type AggregatorConfig struct {
	SourceTimeout time.Duration `mapstructure:"source-timeout"`
	Workers       int           `mapstructure:"workers"`
}

type MatchingConfig struct {
	RunTimeout     time.Duration `mapstructure:"run-timeout"`
	FetchLimit     int           `mapstructure:"fetch-limit"`
	Workers        int           `mapstructure:"workers"`
	MinLeadDays    int           `mapstructure:"min-lead-days"`
	MaxBudgetShare float64       `mapstructure:"max-budget-share"`
}

type FiltersConfig struct {
	ExcludedFunders []string `mapstructure:"excluded-funders"`
	DismissedFile   string   `mapstructure:"dismissed-file"`
	// Disabled maps a filter name to the reason it is turned off.
	Disabled map[string]string `mapstructure:"disabled"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "grant-matcher finds, ranks and explains grant opportunities for a nonprofit",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("cache.password-file", "REDIS_PASSWORD_FILE"); err != nil {
		log.Fatalf("binding REDIS_PASSWORD_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is grant-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// version does not need a config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}

	return config, nil
}
