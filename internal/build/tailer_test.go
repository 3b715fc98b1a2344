package build

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestTailer(client JobClient, reporter Reporter, sleeper Sleeper) *LogTailer {
	return &LogTailer{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Client:   client,
		Reporter: reporter,
		Sleeper:  sleeper,
		Interval: time.Millisecond,
	}
}

func TestTailEmitsAppendOnlyLogExactlyOnce(t *testing.T) {
	t.Parallel()

	client := &stubJobClient{snapshots: []Job{
		snapshot(JobStatePending, ""),
		snapshot(JobStateRunning, "step 1\n"),
		snapshot(JobStateRunning, "step 1\n"),
		snapshot(JobStateRunning, "step 1\nstep 2\n"),
		snapshot(JobStateRunning, "step 1\nstep 2\nstep 3\nstep 4\n"),
		snapshot(JobStateSuccess, "step 1\nstep 2\nstep 3\nstep 4\ndone\n"),
	}}
	reporter := &recordingReporter{}
	sleeper := &countingSleeper{}

	job, err := newTestTailer(client, reporter, sleeper).Tail(context.Background(), "app", "token", snapshot(JobStateCreated, ""))
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if job.State != JobStateSuccess {
		t.Fatalf("Tail() state = %q, want success", job.State)
	}

	got := strings.Join(reporter.chunks, "")
	if got != job.Trace {
		t.Fatalf("emitted log = %q, want %q", got, job.Trace)
	}
	if len(reporter.chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %q", len(reporter.chunks), reporter.chunks)
	}
	if client.statusCalls != 6 || sleeper.calls != 6 {
		t.Fatalf("expected 6 polls and sleeps, got %d polls and %d sleeps", client.statusCalls, sleeper.calls)
	}
}

func TestTailQueuedNoticeEmittedOnce(t *testing.T) {
	t.Parallel()

	client := &stubJobClient{snapshots: []Job{
		snapshot(JobStateCreated, ""),
		snapshot(JobStateCreated, ""),
		snapshot(JobStateCreated, ""),
		snapshot(JobStateRunning, "building\n"),
		snapshot(JobStateCreated, "building\n"),
		snapshot(JobStateFailed, "building\nerror\n"),
	}}
	reporter := &recordingReporter{}

	job, err := newTestTailer(client, reporter, &countingSleeper{}).Tail(context.Background(), "app", "token", snapshot(JobStateCreated, ""))
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if job.State != JobStateFailed {
		t.Fatalf("Tail() state = %q, want failed", job.State)
	}
	if reporter.queued != 1 {
		t.Fatalf("queued notice emitted %d times, want 1", reporter.queued)
	}
}

func TestTailContinuesOnNonTerminalStates(t *testing.T) {
	t.Parallel()

	client := &stubJobClient{snapshots: []Job{
		snapshot(JobStateCanceled, ""),
		snapshot(JobState("unknown"), ""),
		snapshot(JobStatePending, ""),
		snapshot(JobStateSuccess, ""),
	}}

	job, err := newTestTailer(client, &recordingReporter{}, &countingSleeper{}).Tail(context.Background(), "app", "token", snapshot(JobStateCreated, ""))
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if job.State != JobStateSuccess {
		t.Fatalf("Tail() state = %q, want success", job.State)
	}
	if client.statusCalls != 4 {
		t.Fatalf("expected 4 polls, got %d", client.statusCalls)
	}
}

func TestTailRejectsRewrittenLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		trace string
	}{
		{name: "shrunk", trace: "one\n"},
		{name: "replaced", trace: "uno\ntwo\nthree\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubJobClient{snapshots: []Job{
				snapshot(JobStateRunning, "one\ntwo\n"),
				snapshot(JobStateRunning, tt.trace),
				snapshot(JobStateSuccess, tt.trace),
			}}

			_, err := newTestTailer(client, &recordingReporter{}, &countingSleeper{}).Tail(context.Background(), "app", "token", snapshot(JobStateCreated, ""))
			var rewritten *LogRewrittenError
			if !errors.As(err, &rewritten) {
				t.Fatalf("Tail() error = %v, want LogRewrittenError", err)
			}
			if rewritten.Cursor != len("one\ntwo\n") {
				t.Fatalf("LogRewrittenError.Cursor = %d, want %d", rewritten.Cursor, len("one\ntwo\n"))
			}
		})
	}
}

func TestTailAbortsOnFetchError(t *testing.T) {
	t.Parallel()

	fetchErr := &RemoteError{Operation: "fetch build", StatusCode: 500}
	client := &stubJobClient{statusErr: fetchErr}

	_, err := newTestTailer(client, &recordingReporter{}, &countingSleeper{}).Tail(context.Background(), "app", "token", snapshot(JobStateCreated, ""))
	if !errors.Is(err, fetchErr) {
		t.Fatalf("Tail() error = %v, want %v", err, fetchErr)
	}
	if client.statusCalls != 1 {
		t.Fatalf("expected exactly one fetch, got %d", client.statusCalls)
	}
}

func TestTailStopsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &stubJobClient{snapshots: []Job{snapshot(JobStateRunning, "")}}
	tailer := newTestTailer(client, &recordingReporter{}, TimerSleeper{})
	tailer.Interval = time.Hour

	_, err := tailer.Tail(ctx, "app", "token", snapshot(JobStateCreated, ""))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Tail() error = %v, want context.Canceled", err)
	}
	if client.statusCalls != 0 {
		t.Fatalf("expected no fetch after cancellation, got %d", client.statusCalls)
	}
}

func TestNextChunk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cursor   int
		emitted  string
		trace    string
		want     string
		wantNext int
		wantErr  bool
	}{
		{cursor: 0, emitted: "", trace: "", want: "", wantNext: 0},
		{cursor: 0, emitted: "", trace: "abc", want: "abc", wantNext: 3},
		{cursor: 3, emitted: "abc", trace: "abc", want: "", wantNext: 3},
		{cursor: 3, emitted: "abc", trace: "abcdef", want: "def", wantNext: 6},
		{cursor: 3, emitted: "abc", trace: "ab", wantErr: true},
		{cursor: 3, emitted: "abc", trace: "xbcdef", wantErr: true},
	}

	for _, tt := range tests {
		got, next, err := nextChunk(tt.cursor, tt.emitted, tt.trace)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("nextChunk(%d, %q, %q) error = nil, want non-nil", tt.cursor, tt.emitted, tt.trace)
			}
			continue
		}
		if err != nil {
			t.Fatalf("nextChunk(%d, %q, %q) error = %v", tt.cursor, tt.emitted, tt.trace, err)
		}
		if got != tt.want || next != tt.wantNext {
			t.Fatalf("nextChunk(%d, %q, %q) = (%q, %d), want (%q, %d)", tt.cursor, tt.emitted, tt.trace, got, next, tt.want, tt.wantNext)
		}
	}
}
