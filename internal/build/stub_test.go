package build

import (
	"context"
	"errors"
	"time"

	"github.com/cochaviz/cloudbuild/platform"
)

type stubJobClient struct {
	created   Job
	createErr error

	snapshots []Job
	statusErr error

	download    DownloadDescriptor
	downloadErr error

	createCalls   int
	statusCalls   int
	downloadCalls int
	lastOptions   CreateOptions
}

func (c *stubJobClient) CreateJob(ctx context.Context, appID, token string, p platform.Platform, t platform.BuildType, opts CreateOptions) (Job, error) {
	c.createCalls++
	c.lastOptions = opts
	if c.createErr != nil {
		return Job{}, c.createErr
	}
	return c.created, nil
}

func (c *stubJobClient) FetchJobStatus(ctx context.Context, appID string, jobID int64, token string) (Job, error) {
	c.statusCalls++
	if c.statusErr != nil {
		return Job{}, c.statusErr
	}
	if len(c.snapshots) == 0 {
		return Job{}, errors.New("no more snapshots")
	}
	next := c.snapshots[0]
	if len(c.snapshots) > 1 {
		c.snapshots = c.snapshots[1:]
	}
	return next, nil
}

func (c *stubJobClient) FetchDownloadURL(ctx context.Context, appID string, jobID int64, token string) (DownloadDescriptor, error) {
	c.downloadCalls++
	if c.downloadErr != nil {
		return DownloadDescriptor{}, c.downloadErr
	}
	return c.download, nil
}

type recordingReporter struct {
	summaries []Job
	queued    int
	chunks    []string
	completed []string
}

func (r *recordingReporter) JobSummary(job Job)   { r.summaries = append(r.summaries, job) }
func (r *recordingReporter) QueuedNotice(job Job) { r.queued++ }
func (r *recordingReporter) LogChunk(chunk string) {
	r.chunks = append(r.chunks, chunk)
}
func (r *recordingReporter) Completed(job Job, name string) {
	r.completed = append(r.completed, name)
}

type stubDownloader struct {
	name  string
	err   error
	calls int
	url   string
	ovr   string
}

func (d *stubDownloader) Download(ctx context.Context, url, overrideName string) (string, error) {
	d.calls++
	d.url = url
	d.ovr = overrideName
	if d.err != nil {
		return "", d.err
	}
	if overrideName != "" {
		return overrideName, nil
	}
	return d.name, nil
}

type stubCommitResolver struct {
	commit string
	err    error
	calls  int
}

func (r *stubCommitResolver) ResolveCommit(ctx context.Context) (string, error) {
	r.calls++
	return r.commit, r.err
}

type countingSleeper struct {
	calls int
}

func (s *countingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.calls++
	return ctx.Err()
}

func snapshot(state JobState, trace string) Job {
	return Job{ID: 42, Platform: platform.Android, BuildType: platform.Debug, State: state, Trace: trace}
}
