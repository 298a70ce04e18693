package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/autovagas/autovagas/internal/aggregate"
	"github.com/autovagas/autovagas/internal/ai/gemini"
	"github.com/autovagas/autovagas/internal/core"
	"github.com/autovagas/autovagas/internal/events"
	"github.com/autovagas/autovagas/internal/executor"
	"github.com/autovagas/autovagas/internal/history"
	"github.com/autovagas/autovagas/internal/logger"
	"github.com/autovagas/autovagas/internal/orchestrator"
	"github.com/autovagas/autovagas/internal/platform"
	"github.com/autovagas/autovagas/internal/platform/rest"
	"github.com/autovagas/autovagas/internal/quota"
	"github.com/autovagas/autovagas/internal/scoring"
	"github.com/autovagas/autovagas/internal/secrets"
	"github.com/autovagas/autovagas/internal/session"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes             = "Yes"
	PromptNo              = "No"
	PromptReportByCompany = "Report by company"
	PromptListingsToFile  = "Dump listings to file"

	defaultUserAgent = "autovagas (github.com/autovagas/autovagas)"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Start applying automatically?",
	Items: []string{PromptYes, PromptNo, PromptReportByCompany, PromptListingsToFile},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the auto-apply loop",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("do-not-exclude-applied", "f", false, "keep listings in the queue even if already applied")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before activating")
}

// run wires every collaborator together and drives the orchestrator
// until the process receives an interrupt.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting autovagas", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if err := validateConfig(config); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	sessions, credentials := buildSessions(ctx, config, logger)

	quotaStore := buildQuotaStore(ctx, config, logger)
	quotaManager := quota.NewManager(quotaStore, config.Account, config.Quota.DailyLimit, logger)

	historyStore := buildHistoryStore(ctx, config, logger)

	writer := buildMessageWriter(ctx, config, logger)

	exec := executor.New(
		executor.Config{
			DefaultMessage: config.Apply.Message,
			MaxAttempts:    config.Apply.MaxRetries,
		},
		executor.Deps{
			Sessions: sessions,
			Quota:    quotaManager,
			History:  historyStore,
			Delay:    executor.NewRandomDelay(config.Apply.MinDelay, config.Apply.MaxDelay),
			Writer:   writer,
			Logger:   logger,
		},
	)

	bus := events.NewBus()
	bus.Subscribe(events.NewLoggingListener(logger))

	aggregator := aggregate.New(sessions, config.Run.CycleTimeout/2, logger)

	orch := orchestrator.New(orchestrator.Deps{
		Sessions:   sessions,
		Aggregator: aggregator,
		Scorer:     scoring.New(config.Match.Weights),
		Quota:      quotaManager,
		Executor:   exec,
		History:    historyStore,
		Bus:        bus,
		Logger:     logger,
	})

	orchCfg := &orchestrator.Config{
		Credentials:           credentials,
		Search:                config.Search,
		MatchThreshold:        config.Match.Threshold,
		MaxApplicationsPerDay: config.Quota.DailyLimit,
		RunInterval:           config.Run.Interval,
		CycleTimeout:          config.Run.CycleTimeout,
		IgnoreApplied:         cmd.Flag("do-not-exclude-applied").Value.String() == "true",
	}
	if config.Apply.Exclude != nil {
		orchCfg.ExcludedEmployers = config.Apply.Exclude.Employers
	}

	if err := orch.Configure(orchCfg); err != nil {
		logger.Fatal("configuring the orchestrator", zap.Error(err))
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		if err := review(ctx, cmd, config, sessions, aggregator, historyStore, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("reviewing listings", zap.Error(err))
		}
	}

	// Cycles run detached from the signal context: a SIGINT stops the
	// loop through Deactivate, which lets an in-flight application
	// finish instead of cutting it off mid-submission.
	if err := orch.Activate(context.WithoutCancel(ctx), config.Profile); err != nil {
		logger.Fatal("activating the orchestrator", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("shutting down", zap.String("reason", "signal received"))
	orch.Deactivate()
}

// review runs a preview search so the operator sees what the automation
// would work on before approving it. The sessions established here are
// reused by the first cycle.
func review(ctx context.Context, cmd *cobra.Command, config *Config, sessions *session.Manager, aggregator *aggregate.Aggregator, historyStore history.Store, logger *zap.Logger) error {
	logger.Info("configured platforms", zap.Strings("platforms", sessions.Platforms()))

	for name, err := range sessions.LoginAll(ctx) {
		if err != nil {
			logger.Warn("login failed", zap.String("platform", name), zap.Error(err))
		}
	}

	jobs, errs := aggregator.SearchAll(ctx, config.Search)
	for _, err := range errs {
		logger.Warn("preview search", zap.Error(err))
	}

	if cmd.Flag("do-not-exclude-applied").Value.String() == "false" {
		appliedKeys, err := historyStore.AppliedKeys(ctx)
		if err != nil {
			return fmt.Errorf("load applied history: %w", err)
		}

		applied := make(map[core.JobKey]struct{}, len(appliedKeys))
		for _, key := range appliedKeys {
			applied[key] = struct{}{}
		}

		if excluded := jobs.ExcludeKeys(applied); len(excluded) > 0 {
			logger.Info("excluding already applied listings from the preview", zap.Int("count", len(excluded)))
		}
	}

	if config.Apply.Exclude != nil {
		if excluded := jobs.ExcludeCompanies(config.Apply.Exclude.Employers); len(excluded) > 0 {
			logger.Info("excluding listings from banned employers", zap.Int("count", len(excluded)))
		}
	}

	for {
		logger.Info("current list of listings", zap.Int("count", jobs.Len()))

		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		if err := handleAction(action, jobs, logger); err != nil {
			return err
		}

		if action == PromptYes {
			return nil
		}
	}
}

func handleAction(action string, jobs *core.Jobs, logger *zap.Logger) error {
	switch action {
	case PromptYes:
		return nil
	case PromptNo:
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(jobs.ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("listings count", jobs.Len()))
		return nil
	case PromptListingsToFile:
		filename, err := jobs.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump listings to file: %w", err)
		}
		logger.Info("dumping listings to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is required")
	}
	if strings.TrimSpace(config.Account) == "" {
		return fmt.Errorf("account is required")
	}
	if len(config.Platforms) == 0 {
		return fmt.Errorf("at least one platform is required")
	}
	if config.Profile == nil {
		return fmt.Errorf("candidate profile is required")
	}
	if config.Search == nil {
		return fmt.Errorf("search parameters are required")
	}
	if config.Match == nil {
		return fmt.Errorf("match section is required")
	}
	if config.Quota == nil || config.Quota.DailyLimit <= 0 {
		return fmt.Errorf("quota.daily-limit must be positive")
	}
	if config.Apply == nil {
		return fmt.Errorf("apply section is required")
	}
	if config.Run == nil || config.Run.Interval <= 0 {
		return fmt.Errorf("run.interval must be positive")
	}
	return nil
}

// buildSessions registers one REST adapter per configured platform and
// resolves its token.
func buildSessions(_ context.Context, config *Config, logger *zap.Logger) (*session.Manager, map[string]*platform.Credential) {
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	sessions := session.NewManager(logger)
	credentials := make(map[string]*platform.Credential, len(config.Platforms))

	for name, pc := range config.Platforms {
		if pc == nil || pc.APIURL == "" {
			logger.Fatal("platform api-url is required", zap.String("platform", name))
		}

		token, err := secrets.Load(secrets.Source{
			Name: fmt.Sprintf("%s token", name),
			File: pc.TokenFile,
			Env:  strings.ToUpper(name) + "_TOKEN",
		})
		if err != nil {
			logger.Fatal("loading platform token",
				zap.String("platform", name),
				zap.Error(err),
				zap.String("hint", "set platforms.<name>.token-file or the <NAME>_TOKEN environment variable"),
			)
		}

		cred := &platform.Credential{Platform: name, AccessToken: token}
		credentials[name] = cred
		sessions.Register(rest.New(name, pc.APIURL, userAgent, logger), cred)
	}

	return sessions, credentials
}

func buildQuotaStore(ctx context.Context, config *Config, logger *zap.Logger) quota.Store {
	switch {
	case config.Quota.RedisURL != "":
		store, err := quota.NewRedisStore(ctx, config.Quota.RedisURL)
		if err != nil {
			logger.Fatal("connecting to redis quota store", zap.Error(err))
		}
		return store
	case config.Quota.StateFile != "":
		return quota.NewFileStore(config.Quota.StateFile)
	default:
		logger.Warn("no durable quota store configured; the daily counter resets on restart",
			zap.String("hint", "set quota.state-file or quota.redis-url"),
		)
		return quota.NewMemoryStore()
	}
}

func buildHistoryStore(ctx context.Context, config *Config, logger *zap.Logger) history.Store {
	if config.History != nil && config.History.PostgresURL != "" {
		store, err := history.NewPostgresStore(ctx, config.History.PostgresURL)
		if err != nil {
			logger.Fatal("connecting to postgres history store", zap.Error(err))
		}
		return store
	}

	logger.Warn("no durable history store configured; applied-job history is lost on restart",
		zap.String("hint", "set history.postgres-url"),
	)
	return history.NewMemoryStore()
}

func buildMessageWriter(ctx context.Context, config *Config, logger *zap.Logger) executor.MessageWriter {
	if config.AI == nil || !config.AI.Enabled {
		return nil
	}
	if config.AI.Gemini == nil {
		logger.Fatal("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: config.AI.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		logger.Fatal("loading gemini api key", zap.Error(err))
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.AI.Gemini.Model)
	if err != nil {
		logger.Fatal("creating gemini generator", zap.Error(err))
	}

	writerLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", config.AI.Gemini.Model),
	)

	return gemini.NewWriter(generator, config.AI.Gemini.MaxRetries, config.AI.Gemini.MaxLogLength, writerLogger)
}
