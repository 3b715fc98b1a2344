package build

import (
	"context"
	"time"

	"github.com/cochaviz/cloudbuild/platform"
)

// JobClient issues the remote operations of the build service. Implementations
// keep no state between calls.
type JobClient interface {
	// CreateJob triggers a new remote build. It is not idempotent.
	CreateJob(ctx context.Context, appID, token string, p platform.Platform, t platform.BuildType, opts CreateOptions) (Job, error)
	FetchJobStatus(ctx context.Context, appID string, jobID int64, token string) (Job, error)
	FetchDownloadURL(ctx context.Context, appID string, jobID int64, token string) (DownloadDescriptor, error)
}

// ArtifactDownloader streams an artifact to local disk and returns the file name used.
type ArtifactDownloader interface {
	Download(ctx context.Context, url, overrideName string) (string, error)
}

// CommitResolver supplies the commit to build when the caller did not pass one.
type CommitResolver interface {
	ResolveCommit(ctx context.Context) (string, error)
}

// Reporter receives the user-facing progress of a run.
type Reporter interface {
	JobSummary(job Job)
	QueuedNotice(job Job)
	LogChunk(chunk string)
	Completed(job Job, artifactName string)
}

// Sleeper suspends the poll loop between status fetches.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper waits on a timer and returns early with the context error.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DiscardReporter drops every message.
type DiscardReporter struct{}

func (DiscardReporter) JobSummary(Job)        {}
func (DiscardReporter) QueuedNotice(Job)      {}
func (DiscardReporter) LogChunk(string)       {}
func (DiscardReporter) Completed(Job, string) {}
