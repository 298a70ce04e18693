package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/autovagas/autovagas/internal/logger"
	"github.com/autovagas/autovagas/internal/platform"
	"github.com/autovagas/autovagas/internal/platform/rest"
	"github.com/autovagas/autovagas/internal/secrets"
	"github.com/autovagas/autovagas/internal/session"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var statusCmd = &cobra.Command{
	Use:   "status <platform> <application-id>",
	Short: "Check the board-side status of a submitted application",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		checkStatus(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func checkStatus(platformName, applicationID string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	pc, ok := config.Platforms[platformName]
	if !ok || pc == nil {
		logger.Fatal("platform is not configured", zap.String("platform", platformName))
	}

	token, err := secrets.Load(secrets.Source{
		Name: fmt.Sprintf("%s token", platformName),
		File: pc.TokenFile,
		Env:  strings.ToUpper(platformName) + "_TOKEN",
	})
	if err != nil {
		logger.Fatal("loading platform token", zap.Error(err))
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	sessions := session.NewManager(logger)
	sessions.Register(
		rest.New(platformName, pc.APIURL, userAgent, logger),
		&platform.Credential{Platform: platformName, AccessToken: token},
	)

	if err := sessions.Login(ctx, platformName); err != nil {
		logger.Fatal("login failed", zap.Error(err))
	}

	adapter, _ := sessions.Adapter(platformName)
	status, err := adapter.ApplicationStatus(ctx, applicationID)
	if err != nil {
		logger.Fatal("checking application status", zap.Error(err))
	}

	fmt.Printf("%s application %s: %s\n", platformName, applicationID, status)
}
