package appflow

import (
	"time"

	"github.com/cochaviz/cloudbuild/internal/build"
	"github.com/cochaviz/cloudbuild/platform"
)

// envelope is the shape of every successful response.
type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type createJobRequest struct {
	Platform         string `json:"platform"`
	BuildType        string `json:"build_type"`
	CommitSHA        string `json:"commit_sha,omitempty"`
	StackName        string `json:"stack_name,omitempty"`
	ProfileName      string `json:"profile_name,omitempty"`
	EnvironmentName  string `json:"environment_name,omitempty"`
	NativeConfigName string `json:"native_config_name,omitempty"`
}

// PackageBuild is the build service representation of a job.
type PackageBuild struct {
	ID               int64      `json:"id"`
	JobID            int64      `json:"job_id"`
	Platform         string     `json:"platform"`
	BuildType        string     `json:"build_type"`
	State            string     `json:"state"`
	Created          *time.Time `json:"created,omitempty"`
	Finished         *time.Time `json:"finished,omitempty"`
	Commit           *Commit    `json:"commit,omitempty"`
	Stack            *Stack     `json:"stack,omitempty"`
	ProfileTag       string     `json:"profile_tag,omitempty"`
	EnvironmentName  string     `json:"environment_name,omitempty"`
	NativeConfigName string     `json:"native_config_name,omitempty"`
	Job              *JobTrace  `json:"job,omitempty"`
}

type Commit struct {
	SHA string `json:"sha"`
}

type Stack struct {
	FriendlyName string `json:"friendly_name"`
}

type JobTrace struct {
	Trace string `json:"trace"`
}

// Download is the body of the download endpoint. URL is null until the
// artifact has been published.
type Download struct {
	URL *string `json:"url"`
}

func (b PackageBuild) toJob() build.Job {
	id := b.JobID
	if id == 0 {
		id = b.ID
	}
	job := build.Job{
		ID:               id,
		Platform:         platform.Normalize(b.Platform),
		BuildType:        platform.BuildType(b.BuildType),
		ProfileName:      b.ProfileTag,
		EnvironmentName:  b.EnvironmentName,
		NativeConfigName: b.NativeConfigName,
		State:            build.JobState(b.State),
		FinishedAt:       b.Finished,
	}
	if b.Created != nil {
		job.CreatedAt = *b.Created
	}
	if b.Commit != nil {
		job.CommitSHA = b.Commit.SHA
	}
	if b.Stack != nil {
		job.StackName = b.Stack.FriendlyName
	}
	if b.Job != nil {
		job.Trace = b.Job.Trace
	}
	return job
}
