package build

import (
	"time"

	"github.com/cochaviz/cloudbuild/platform"
)

// JobState captures the lifecycle states reported by the build service.
type JobState string

// Known job states. Only JobStateSuccess and JobStateFailed are terminal.
const (
	JobStateCreated  JobState = "created" // accepted, waiting on the concurrency limit
	JobStatePending  JobState = "pending"
	JobStateRunning  JobState = "running"
	JobStateSuccess  JobState = "success"
	JobStateFailed   JobState = "failed"
	JobStateCanceled JobState = "canceled"
)

// Terminal reports whether polling stops at this state.
func (s JobState) Terminal() bool {
	return s == JobStateSuccess || s == JobStateFailed
}

// Queued reports whether the job is held back by the concurrency limit.
func (s JobState) Queued() bool {
	return s == JobStateCreated
}

// Job is a snapshot of one remote build. Snapshots are replaced by re-fetching,
// never mutated locally.
type Job struct {
	ID        int64
	Platform  platform.Platform
	BuildType platform.BuildType

	CommitSHA        string
	StackName        string
	ProfileName      string
	EnvironmentName  string
	NativeConfigName string

	State      JobState
	Trace      string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// CreateOptions holds the optional parameters of a job creation request.
type CreateOptions struct {
	CommitSHA        string
	StackName        string
	ProfileName      string
	EnvironmentName  string
	NativeConfigName string
}

// DownloadDescriptor points at the artifact of a successful job. URL may be
// empty when the service answered without one.
type DownloadDescriptor struct {
	URL string
}

// BuildRequest describes one orchestration run.
type BuildRequest struct {
	AppID     string
	Token     string
	Platform  platform.Platform
	BuildType platform.BuildType
	Options   CreateOptions

	// ArtifactName overrides the downloaded file name when non-empty.
	ArtifactName string
	SkipDownload bool
}

// BuildResult is returned by a successful run.
type BuildResult struct {
	Job          Job
	ArtifactName string
}
