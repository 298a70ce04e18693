package cmd

import (
	"log"
	"time"

	"github.com/autovagas/autovagas/internal/core"
	"github.com/autovagas/autovagas/internal/scoring"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "autovagas"
)

type Config struct {
	// Account identifies whose quota and history this process drives.
	Account   string                     `mapstructure:"account"`
	UserAgent string                     `mapstructure:"user-agent"`
	Platforms map[string]*PlatformConfig `mapstructure:"platforms"`
	Profile   *core.CandidateProfile     `mapstructure:"profile"`
	Search    *core.JobSearchParams      `mapstructure:"search"`
	Match     *MatchConfig               `mapstructure:"match"`
	Quota     *QuotaConfig               `mapstructure:"quota"`
	History   *HistoryConfig             `mapstructure:"history"`
	Apply     *ApplyConfig               `mapstructure:"apply"`
	Run       *RunConfig                 `mapstructure:"run"`
	AI        *AIConfig                  `mapstructure:"ai"`
}

type PlatformConfig struct {
	APIURL    string `mapstructure:"api-url"`
	TokenFile string `mapstructure:"token-file"`
}

type MatchConfig struct {
	Threshold int             `mapstructure:"threshold"`
	Weights   scoring.Weights `mapstructure:"weights"`
}

type QuotaConfig struct {
	DailyLimit int    `mapstructure:"daily-limit"`
	StateFile  string `mapstructure:"state-file"`
	RedisURL   string `mapstructure:"redis-url"`
}

type HistoryConfig struct {
	PostgresURL string `mapstructure:"postgres-url"`
}

type ApplyConfig struct {
	Message    string        `mapstructure:"message"`
	MinDelay   time.Duration `mapstructure:"min-delay"`
	MaxDelay   time.Duration `mapstructure:"max-delay"`
	MaxRetries int           `mapstructure:"max-retries"`
	Exclude    *struct {
		Employers []string
	} `mapstructure:"exclude"`
}

type RunConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	CycleTimeout time.Duration `mapstructure:"cycle-timeout"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
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
		Short: "autovagas searches job boards, scores each listing against your profile, and applies for you",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is autovagas.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for commands that talk to the boards.
	if runCmd.CalledAs() == "" && statusCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
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

	return config, nil
}
