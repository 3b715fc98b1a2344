package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	config "github.com/cochaviz/cloudbuild/config"
	"github.com/cochaviz/cloudbuild/internal/build"
	"github.com/cochaviz/cloudbuild/internal/logging"
	"github.com/cochaviz/cloudbuild/internal/setup"
	"github.com/cochaviz/cloudbuild/platform"
)

const (
	defaultLogLevel  = "warning"
	defaultLogFormat = "cli"

	exitOK          = 0
	exitFailure     = 1
	exitValidation  = 2
	exitBuildFailed = 3
	exitInterrupted = 130
)

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelWarn)

	handler := logging.NewSwitchable(logging.NewCLI(os.Stderr, &levelVar).Handler())
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(logger, &levelVar, handler)
	err := root.ExecuteContext(ctx)
	if code := exitCode(logger, err); code != exitOK {
		stop()
		os.Exit(code)
	}
}

// exitCode logs err and maps it onto the process exit status.
func exitCode(logger *slog.Logger, err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, context.Canceled) {
		logger.Warn("command interrupted", "error", err)
		return exitInterrupted
	}

	logger.Error("command execution failed", "error", err)

	var remoteErr *build.RemoteError
	if errors.As(err, &remoteErr) {
		if hint := remoteErr.Hint(); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
	}

	var validationErr *build.ValidationError
	if errors.As(err, &validationErr) {
		return exitValidation
	}
	var failedErr *build.BuildFailedError
	if errors.As(err, &failedErr) {
		return exitBuildFailed
	}
	return exitFailure
}

func newRootCommand(logger *slog.Logger, levelVar *slog.LevelVar, handler *logging.Switchable) *cobra.Command {
	setup.SetLogger(logger.With("component", "setup"))

	var (
		logLevel   = defaultLogLevel
		logFormat  = defaultLogFormat
		configPath string
	)

	root := &cobra.Command{
		Use:           "cloudbuild",
		Short:         "Trigger native builds on the remote build service and fetch their artifacts",
		Version:       config.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", defaultLogFormat, "Log output format (cli, json)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to the settings file (default "+setup.ConfigPath()+")")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if levelVar != nil {
			levelVar.Set(level)
		}
		mode, err := logging.ParseMode(logFormat)
		if err != nil {
			return err
		}
		if handler != nil {
			handler.Set(logging.New(mode, os.Stderr, levelVar).Handler())
		}
		return nil
	}

	settingsPath := func() string { return strings.TrimSpace(configPath) }

	root.AddCommand(
		newBuildCommand(logger, settingsPath),
		newSetupCommand(logger, settingsPath),
		newMockServerCommand(logger),
	)
	return root
}

type buildFlags struct {
	appID           string
	token           string
	apiURL          string
	commit          string
	targetPlatform  string
	securityProfile string
	environment     string
	nativeConfig    string
	artifactName    string
	apkName         string
	ipaName         string
	outputDir       string
	pollInterval    time.Duration
	noDownload      bool
}

func newBuildCommand(logger *slog.Logger, settingsPath func() string) *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "build <platform> <build-type>",
		Args:  cobra.ExactArgs(2),
		Short: "Build the current commit and download the resulting package",
		Long: "Build the current commit on the remote build service, stream its log and download the package.\n\n" +
			"Platforms: android (debug, release), ios (development, ad-hoc, app-store, enterprise).",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := setup.Load(settingsPath())
			if err != nil {
				return err
			}
			applyBuildOverrides(cmd, &settings, flags)
			if err := setup.Verify(settings); err != nil {
				return &build.ValidationError{Field: "token", Message: err.Error()}
			}

			p := platform.Normalize(args[0])
			if p == "" {
				p = platform.Platform(strings.TrimSpace(args[0]))
			}
			artifactName, err := resolveArtifactName(p, flags)
			if err != nil {
				return err
			}

			request := &build.BuildRequest{
				AppID:     settings.AppID,
				Token:     settings.Token,
				Platform:  p,
				BuildType: platform.BuildType(strings.ToLower(strings.TrimSpace(args[1]))),
				Options: build.CreateOptions{
					CommitSHA:        strings.TrimSpace(flags.commit),
					StackName:        strings.TrimSpace(flags.targetPlatform),
					ProfileName:      strings.TrimSpace(flags.securityProfile),
					EnvironmentName:  strings.TrimSpace(flags.environment),
					NativeConfigName: strings.TrimSpace(flags.nativeConfig),
				},
				ArtifactName: artifactName,
				SkipDownload: flags.noDownload,
			}

			cmdLogger := logger.With("command", "build", "run_id", uuid.NewString())
			cmdLogger.Info("starting build", "app_id", request.AppID, "platform", request.Platform, "build_type", request.BuildType, "api_url", settings.APIURL)

			result, err := config.Build(cmd.Context(), request, settings, flags.outputDir, cmd.OutOrStdout(), cmdLogger)
			if err != nil {
				return err
			}

			cmdLogger.Info("build completed", "job_id", result.Job.ID, "artifact", result.ArtifactName)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.appID, "app-id", "", "Application id on the build service (default from settings)")
	cmd.Flags().StringVar(&flags.token, "token", "", "API token (default from settings or CLOUDBUILD_TOKEN)")
	cmd.Flags().StringVar(&flags.apiURL, "api-url", "", "Build service base URL (default from settings)")
	cmd.Flags().StringVar(&flags.commit, "commit", "", "Commit to build (default: git rev-parse HEAD)")
	cmd.Flags().StringVar(&flags.targetPlatform, "target-platform", "", "Build stack to run the build on")
	cmd.Flags().StringVar(&flags.securityProfile, "security-profile", "", "Signing credentials profile")
	cmd.Flags().StringVar(&flags.environment, "environment", "", "Environment providing build variables")
	cmd.Flags().StringVar(&flags.nativeConfig, "native-config", "", "Native configuration to apply")
	cmd.Flags().StringVar(&flags.artifactName, "artifact-name", "", "File name for the downloaded package")
	cmd.Flags().StringVar(&flags.apkName, "apk-name", "", "File name for the downloaded APK (android only)")
	cmd.Flags().StringVar(&flags.ipaName, "ipa-name", "", "File name for the downloaded IPA (ios only)")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", config.DefaultOutputDir, "Directory the package is written to")
	cmd.Flags().DurationVar(&flags.pollInterval, "poll-interval", setup.DefaultPollInterval, "Delay between status polls")
	cmd.Flags().BoolVar(&flags.noDownload, "no-download", false, "Stop after a successful build without downloading the package")

	return cmd
}

// applyBuildOverrides lets explicitly set flags win over loaded settings.
func applyBuildOverrides(cmd *cobra.Command, settings *setup.Settings, flags buildFlags) {
	if v := strings.TrimSpace(flags.appID); v != "" {
		settings.AppID = v
	}
	if v := strings.TrimSpace(flags.token); v != "" {
		settings.Token = v
	}
	if v := strings.TrimSpace(flags.apiURL); v != "" {
		settings.APIURL = v
	}
	if cmd.Flags().Changed("poll-interval") && flags.pollInterval > 0 {
		settings.PollInterval = flags.pollInterval
	}
}

// resolveArtifactName merges the generic and platform-specific name flags.
func resolveArtifactName(p platform.Platform, flags buildFlags) (string, error) {
	name := strings.TrimSpace(flags.artifactName)

	candidates := []struct {
		flag     string
		value    string
		platform platform.Platform
	}{
		{flag: "apk-name", value: strings.TrimSpace(flags.apkName), platform: platform.Android},
		{flag: "ipa-name", value: strings.TrimSpace(flags.ipaName), platform: platform.IOS},
	}
	for _, candidate := range candidates {
		if candidate.value == "" {
			continue
		}
		if p != candidate.platform {
			return "", &build.ValidationError{
				Field:   "artifact name",
				Message: fmt.Sprintf("--%s only applies to %s builds", candidate.flag, candidate.platform),
			}
		}
		if name != "" && name != candidate.value {
			return "", &build.ValidationError{
				Field:   "artifact name",
				Message: fmt.Sprintf("--artifact-name %q conflicts with --%s %q", name, candidate.flag, candidate.value),
			}
		}
		name = candidate.value
	}
	return name, nil
}

func newSetupCommand(logger *slog.Logger, settingsPath func() string) *cobra.Command {
	var (
		clearConfig  bool
		token        string
		appID        string
		apiURL       string
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Store the API token and defaults used by the build command",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := logger.With("command", "setup")
			path := settingsPath()
			if path == "" {
				path = setup.ConfigPath()
			}

			if clearConfig {
				if err := setup.ClearConfig(path); err != nil {
					cmdLogger.Error("clear configuration failed", "error", err)
					return fmt.Errorf("clear configuration: %w", err)
				}
				cmdLogger.Info("existing configuration cleared", "path", path)
				if token == "" && appID == "" && apiURL == "" && !cmd.Flags().Changed("poll-interval") {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", path)
					return nil
				}
			}

			settings, err := setup.Load(path)
			if err != nil {
				return err
			}
			if v := strings.TrimSpace(token); v != "" {
				settings.Token = v
			}
			if v := strings.TrimSpace(appID); v != "" {
				settings.AppID = v
			}
			if v := strings.TrimSpace(apiURL); v != "" {
				settings.APIURL = v
			}
			if cmd.Flags().Changed("poll-interval") {
				if pollInterval <= 0 {
					return &build.ValidationError{Field: "poll interval", Message: "must be positive"}
				}
				settings.PollInterval = pollInterval
			}

			if err := setup.Verify(settings); err != nil {
				cmdLogger.Error("setup verification failed", "error", err)
				return &build.ValidationError{Field: "token", Message: err.Error()}
			}
			if err := setup.Save(path, settings); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Settings saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token for the build service")
	cmd.Flags().StringVar(&appID, "app-id", "", "Default application id")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Build service base URL")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", setup.DefaultPollInterval, "Default delay between status polls")
	cmd.Flags().BoolVarP(&clearConfig, "clear", "C", false, "Remove existing settings before applying the given values")

	return cmd
}

func newMockServerCommand(logger *slog.Logger) *cobra.Command {
	var (
		addr  string
		token string
	)

	cmd := &cobra.Command{
		Use:    "mock-server",
		Short:  "Serve a local stand-in of the build service for offline trial runs",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := logger.With("command", "mock-server")
			cmdLogger.Info("starting simulator; press Ctrl+C to stop", "addr", addr, "api_url", "http://"+addr)

			if err := config.ServeSimulator(cmd.Context(), addr, token, cmdLogger); err != nil {
				return err
			}

			cmdLogger.Info("simulator stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultSimulatorAddr, "Listen address")
	cmd.Flags().StringVar(&token, "token", "", "Accepted bearer token (empty accepts any)")

	return cmd
}
