package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// BuildService runs one remote build from creation to downloaded artifact.
type BuildService struct {
	Logger         *slog.Logger
	Client         JobClient
	Tailer         *LogTailer
	Downloader     ArtifactDownloader
	CommitResolver CommitResolver
	Reporter       Reporter
}

// Run creates the job described by request, follows its log until it finishes
// and downloads the artifact of a successful build.
func (s *BuildService) Run(ctx context.Context, request *BuildRequest) (*BuildResult, error) {
	if s.Client == nil {
		return nil, errors.New("job client is not configured")
	}
	if request == nil {
		return nil, errors.New("build request is required")
	}
	if err := validateRequest(request); err != nil {
		return nil, err
	}
	if !request.SkipDownload && s.Downloader == nil {
		return nil, errors.New("artifact downloader is not configured")
	}

	logger := s.logger().With(
		"app_id", request.AppID,
		"platform", request.Platform,
		"build_type", request.BuildType,
	)

	options := request.Options
	if options.CommitSHA == "" {
		commit, err := s.resolveCommit(ctx)
		if err != nil {
			return nil, err
		}
		options.CommitSHA = commit
	}

	job, err := s.Client.CreateJob(ctx, request.AppID, request.Token, request.Platform, request.BuildType, options)
	if err != nil {
		logRemoteHint(logger, err)
		return nil, fmt.Errorf("create build: %w", err)
	}
	logger = logger.With("job_id", job.ID)
	logger.Info("build created", "commit", options.CommitSHA, "state", job.State)

	s.reporter().JobSummary(job)

	job, err = s.tailer().Tail(ctx, request.AppID, request.Token, job)
	if err != nil {
		logRemoteHint(logger, err)
		return nil, err
	}

	if job.State != JobStateSuccess {
		logger.Warn("build did not succeed", "state", job.State)
		return nil, &BuildFailedError{JobID: job.ID, State: job.State}
	}
	logger.Info("build succeeded")

	if request.SkipDownload {
		s.reporter().Completed(job, "")
		return &BuildResult{Job: job}, nil
	}

	descriptor, err := s.Client.FetchDownloadURL(ctx, request.AppID, job.ID, request.Token)
	if err != nil {
		logRemoteHint(logger, err)
		return nil, fmt.Errorf("resolve artifact of build %d: %w", job.ID, err)
	}
	if strings.TrimSpace(descriptor.URL) == "" {
		return nil, &InconsistentResponseError{JobID: job.ID, Message: "build succeeded but no download URL was returned"}
	}

	name, err := s.Downloader.Download(ctx, descriptor.URL, request.ArtifactName)
	if err != nil {
		return nil, err
	}
	logger.Info("artifact downloaded", "artifact", name)

	s.reporter().Completed(job, name)
	return &BuildResult{Job: job, ArtifactName: name}, nil
}

func validateRequest(request *BuildRequest) error {
	if strings.TrimSpace(request.AppID) == "" {
		return &ValidationError{Field: "app id", Message: "must not be empty"}
	}
	if !request.Platform.IsValid() {
		return &ValidationError{Field: "platform", Message: fmt.Sprintf("unsupported platform %q", request.Platform)}
	}
	if !request.Platform.Supports(request.BuildType) {
		return &ValidationError{
			Field:   "build type",
			Message: fmt.Sprintf("%q is not available for %s", request.BuildType, request.Platform),
		}
	}
	if request.ArtifactName != "" {
		if err := ValidateArtifactName(request.ArtifactName); err != nil {
			return err
		}
	}
	return nil
}

func (s *BuildService) resolveCommit(ctx context.Context) (string, error) {
	if s.CommitResolver == nil {
		return "", &ValidationError{Field: "commit", Message: "no commit given and no resolver configured"}
	}
	commit, err := s.CommitResolver.ResolveCommit(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve commit: %w", err)
	}
	return commit, nil
}

func (s *BuildService) tailer() *LogTailer {
	if s.Tailer != nil {
		if s.Tailer.Client != nil && s.Tailer.Reporter != nil {
			return s.Tailer
		}
		tailer := *s.Tailer
		if tailer.Client == nil {
			tailer.Client = s.Client
		}
		if tailer.Reporter == nil {
			tailer.Reporter = s.reporter()
		}
		return &tailer
	}
	return &LogTailer{
		Logger:   s.logger(),
		Client:   s.Client,
		Reporter: s.reporter(),
	}
}

func (s *BuildService) reporter() Reporter {
	if s.Reporter != nil {
		return s.Reporter
	}
	return DiscardReporter{}
}

func (s *BuildService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func logRemoteHint(logger *slog.Logger, err error) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		if hint := remoteErr.Hint(); hint != "" {
			logger.Warn("build service rejected the credentials", "hint", hint)
		}
	}
}
