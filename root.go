package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/oauth2"

	"github.com/etnz/drivefiles/catalog"
	"github.com/etnz/drivefiles/internal/config"
	"github.com/etnz/drivefiles/internal/metrics"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath  string
	flagVerbose     bool
	flagCode        string
	flagJSON        bool
	flagMetricsFile string
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Config

// runMetrics collects the counters of the current invocation. It is written
// to --metrics-file when the command returns.
var runMetrics = metrics.New()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivefiles",
		Short: "List, read and update the xml, txt and json files of a Google Drive",
		Long: `drivefiles lists the xml, txt and json files of a Google Drive with their
full folder path, downloads them, and replaces their content in place.

Every command authorizes once: it opens a browser on the Google consent page
and waits for the redirect, or uses the code given with --code.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flagCode, "code", "", "authorization code obtained from the auth-url page")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	cmd.AddCommand(newAuthURLCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())

	return cmd
}

// loadConfig resolves the configuration from defaults, file and
// environment, and stores it in resolvedCfg.
func loadConfig() error {
	cfg, err := config.Resolve(config.ReadEnvOverrides(), flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg

	return nil
}

// buildLogger creates a console logger on stderr. The configured level is the
// baseline; --verbose forces debug.
func buildLogger() *zap.Logger {
	level := zapcore.WarnLevel
	if resolvedCfg != nil {
		if err := level.UnmarshalText([]byte(resolvedCfg.Logging.Level)); err != nil {
			level = zapcore.WarnLevel
		}
	}

	if flagVerbose {
		level = zapcore.DebugLevel
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.DisableStacktrace = true
	zcfg.OutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}

	return logger
}

// oauthSettings maps the resolved configuration to catalog settings.
func oauthSettings() catalog.Settings {
	return catalog.Settings{
		ClientID:     resolvedCfg.OAuth.ClientID,
		ClientSecret: resolvedCfg.OAuth.ClientSecret,
		RedirectURL:  resolvedCfg.OAuth.RedirectURL,
		AuthURL:      resolvedCfg.OAuth.AuthURL,
		TokenURL:     resolvedCfg.OAuth.TokenURL,
	}
}

// authenticate obtains fresh credentials: from --code when given, otherwise
// through the browser login. Nothing is stored.
func authenticate(ctx context.Context, logger *zap.Logger) (*oauth2.Token, error) {
	settings := oauthSettings()
	ex := catalog.NewExchanger(settings, &http.Client{Timeout: resolvedCfg.HTTPTimeout()}, logger)

	if flagCode != "" {
		return ex.Exchange(ctx, flagCode)
	}

	grant, err := catalog.Login(ctx, settings, browser.OpenURL, logger)
	if err != nil {
		return nil, err
	}

	return ex.ExchangeWithRedirect(ctx, grant.Code, grant.RedirectURL)
}

// clientOptions returns the catalog options derived from the resolved
// configuration. Flags of individual commands are applied by the caller.
func clientOptions(logger *zap.Logger) []catalog.Option {
	return []catalog.Option{
		catalog.WithOAuth(oauthSettings().OAuth2Config()),
		catalog.WithTimeout(resolvedCfg.HTTPTimeout()),
		catalog.WithLogger(logger),
		catalog.WithMetrics(runMetrics),
		catalog.WithPageSize(resolvedCfg.Catalog.PageSize),
		catalog.WithAllPages(resolvedCfg.Catalog.AllPages),
		catalog.WithMaxDepth(resolvedCfg.Catalog.MaxDepth),
	}
}

// newClient authenticates and builds a Drive client for one command run.
// Each run gets its own correlation label.
func newClient(ctx context.Context, extra ...catalog.Option) (*catalog.Client, *zap.Logger, error) {
	logger := buildLogger()

	tok, err := authenticate(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := append(clientOptions(logger), extra...)
	c, err := catalog.NewClient(ctx, tok, uuid.NewString(), opts...)
	if err != nil {
		return nil, nil, err
	}

	return c, logger, nil
}

// writeMetrics writes runMetrics to --metrics-file, if set.
func writeMetrics() {
	if flagMetricsFile == "" {
		return
	}

	if err := runMetrics.WriteFile(flagMetricsFile); err != nil {
		fmt.Fprintf(os.Stderr, "writing metrics: %v\n", err)
	}
}
