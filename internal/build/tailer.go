package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultPollInterval is the wait between two status fetches.
const DefaultPollInterval = 5 * time.Second

// LogTailer polls a job until it reaches a terminal state and forwards the
// newly appended part of its log on every tick.
type LogTailer struct {
	Logger   *slog.Logger
	Client   JobClient
	Reporter Reporter
	Sleeper  Sleeper
	Interval time.Duration
}

// Tail drives job to a terminal state and returns the last fetched snapshot.
// A failed fetch ends the loop; it is not retried.
func (t *LogTailer) Tail(ctx context.Context, appID, token string, job Job) (Job, error) {
	if t.Client == nil {
		return Job{}, errors.New("job client is not configured")
	}

	logger := t.logger().With("job_id", job.ID)
	reporter := t.reporter()
	sleeper := t.sleeper()
	interval := t.interval()

	cursor := 0
	emitted := ""
	queuedNotified := false

	for {
		if err := sleeper.Sleep(ctx, interval); err != nil {
			return job, err
		}

		current, err := t.Client.FetchJobStatus(ctx, appID, job.ID, token)
		if err != nil {
			return job, fmt.Errorf("fetch build %d: %w", job.ID, err)
		}
		job = current

		if job.State.Queued() && !queuedNotified {
			reporter.QueuedNotice(job)
			queuedNotified = true
		}

		chunk, next, err := nextChunk(cursor, emitted, job.Trace)
		if err != nil {
			return job, &LogRewrittenError{JobID: job.ID, Cursor: cursor, Length: len(job.Trace)}
		}
		if chunk != "" {
			reporter.LogChunk(chunk)
			emitted = job.Trace
		}
		cursor = next

		logger.Debug("polled build", "state", job.State, "cursor", cursor)

		if job.State.Terminal() {
			return job, nil
		}
	}
}

var errLogRewritten = errors.New("log rewritten")

// nextChunk returns the part of trace after cursor and the advanced cursor.
// emitted is the text already forwarded; trace must extend it.
func nextChunk(cursor int, emitted, trace string) (string, int, error) {
	if len(trace) < cursor || !strings.HasPrefix(trace, emitted[:cursor]) {
		return "", cursor, errLogRewritten
	}
	return trace[cursor:], len(trace), nil
}

func (t *LogTailer) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func (t *LogTailer) reporter() Reporter {
	if t.Reporter != nil {
		return t.Reporter
	}
	return DiscardReporter{}
}

func (t *LogTailer) sleeper() Sleeper {
	if t.Sleeper != nil {
		return t.Sleeper
	}
	return TimerSleeper{}
}

func (t *LogTailer) interval() time.Duration {
	if t.Interval > 0 {
		return t.Interval
	}
	return DefaultPollInterval
}
