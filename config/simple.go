package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cochaviz/cloudbuild/internal/build"
	"github.com/cochaviz/cloudbuild/internal/build/adapters/appflow"
	"github.com/cochaviz/cloudbuild/internal/build/adapters/download"
	"github.com/cochaviz/cloudbuild/internal/build/adapters/git"
	"github.com/cochaviz/cloudbuild/internal/build/adapters/terminal"
	"github.com/cochaviz/cloudbuild/internal/buildsim"
	"github.com/cochaviz/cloudbuild/internal/logging"
	"github.com/cochaviz/cloudbuild/internal/setup"
)

// Version is reported in the User-Agent header. Overridden at link time.
var Version = "dev"

var DefaultOutputDir = "."
var DefaultSimulatorAddr = "127.0.0.1:8080"

// Build runs one build request end to end against the service named in
// settings, writing human-facing progress to out.
func Build(ctx context.Context, request *build.BuildRequest, settings setup.Settings, outputDir string, out io.Writer, logger *slog.Logger) (*build.BuildResult, error) {
	logger = logging.Ensure(logger).With("component", "config.simple")

	if request == nil {
		return nil, fmt.Errorf("build request is required")
	}
	if strings.TrimSpace(outputDir) == "" {
		outputDir = DefaultOutputDir
	}
	if out == nil {
		out = io.Discard
	}

	client := appflow.NewClient(settings.APIURL, logger.With("adapter", "appflow"))
	client.UserAgent = "cloudbuild/" + Version

	buildService := build.BuildService{
		Logger: logger.With("service", "build"),
		Client: client,
		Tailer: &build.LogTailer{
			Logger:   logger.With("service", "tailer"),
			Interval: settings.PollInterval,
		},
		Downloader: &download.HTTPDownloader{
			Logger: logger.With("adapter", "download"),
			Dir:    outputDir,
		},
		CommitResolver: &git.HeadResolver{},
		Reporter:       terminal.NewReporter(out),
	}

	logger.Debug("orchestrating build", "api_url", client.BaseURL, "request_id", client.RequestID, "output_dir", outputDir)
	return buildService.Run(ctx, request)
}

// ServeSimulator runs the local build service stand-in until ctx is cancelled.
func ServeSimulator(ctx context.Context, addr, token string, logger *slog.Logger) error {
	logger = logging.Ensure(logger).With("component", "config.simple")
	if strings.TrimSpace(addr) == "" {
		addr = DefaultSimulatorAddr
	}

	server := buildsim.New(token, buildsim.DefaultScenario(), logger.With("service", "buildsim"))
	return server.ListenAndServe(ctx, addr)
}
