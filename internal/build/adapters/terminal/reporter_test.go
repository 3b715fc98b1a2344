package terminal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cochaviz/cloudbuild/internal/build"
	"github.com/cochaviz/cloudbuild/platform"
)

func TestReporterWritesSummaryAndLog(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := NewReporter(&out)

	job := build.Job{
		ID:              42,
		Platform:        platform.IOS,
		BuildType:       platform.AppStore,
		CommitSHA:       "feedface",
		ProfileName:     "distribution",
		EnvironmentName: "production",
	}
	r.JobSummary(job)
	r.QueuedNotice(job)
	r.LogChunk("line 1\n")
	r.LogChunk("line 2\n")
	r.Completed(job, "custom.ipa")

	got := out.String()
	for _, want := range []string{
		"Build ID", "42",
		"Platform", "ios",
		"app-store", "feedface",
		"Security Profile", "distribution",
		"Environment", "production",
		queuedMessage,
		"line 1\nline 2\n",
		"Artifact saved as custom.ipa",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Native Config") {
		t.Fatalf("empty native config should be omitted:\n%s", got)
	}
}

func TestReporterLogChunkIsRaw(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	NewReporter(&out).LogChunk("\x1b[32mcolored\x1b[0m partial")

	if out.String() != "\x1b[32mcolored\x1b[0m partial" {
		t.Fatalf("LogChunk altered output: %q", out.String())
	}
}
