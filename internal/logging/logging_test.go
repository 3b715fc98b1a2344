package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIHandlerFormatsRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewCLI(&buf, slog.LevelDebug).With("component", "build")

	logger.WithGroup("job").Info("build created", "id", 42, "commit", "feed face", "error", errors.New("boom"))

	line := buf.String()
	for _, want := range []string{"INFO ", " | build created", "component=build", "job.id=42", `job.commit="feed face"`, "job.error=boom"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("non-terminal output contains escape codes: %q", line)
	}
}

func TestCLIHandlerRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var level slog.LevelVar
	level.Set(slog.LevelWarn)
	logger := NewCLI(&buf, &level)

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %q", buf.String())
	}

	level.Set(slog.LevelInfo)
	logger.Info("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("info record missing after lowering level: %q", buf.String())
	}
}

func TestSwitchableReplacesHandler(t *testing.T) {
	t.Parallel()

	var cli, js bytes.Buffer
	switchable := NewSwitchable(NewCLI(&cli, slog.LevelInfo).Handler())
	logger := slog.New(switchable).With("command", "build").WithGroup("job").With("id", 7)

	logger.Info("first")
	switchable.Set(NewJSON(&js, slog.LevelInfo).Handler())
	logger.Info("second")

	if !strings.Contains(cli.String(), "first") || strings.Contains(cli.String(), "second") {
		t.Fatalf("unexpected cli output: %q", cli.String())
	}

	var record map[string]any
	if err := json.Unmarshal(js.Bytes(), &record); err != nil {
		t.Fatalf("decode json record: %v (%q)", err, js.String())
	}
	if record["msg"] != "second" || record["command"] != "build" {
		t.Fatalf("unexpected json record: %v", record)
	}
	job, ok := record["job"].(map[string]any)
	if !ok || job["id"] != float64(7) {
		t.Fatalf("group attributes lost: %v", record)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"err":     slog.LevelError,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("ParseLevel(verbose) error = nil, want non-nil")
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	if mode, err := ParseMode("json"); err != nil || mode != ModeJSON {
		t.Fatalf("ParseMode(json) = %v, %v", mode, err)
	}
	if mode, err := ParseMode("cli"); err != nil || mode != ModeCLI {
		t.Fatalf("ParseMode(cli) = %v, %v", mode, err)
	}
	if _, err := ParseMode("xml"); err == nil {
		t.Fatal("ParseMode(xml) error = nil, want non-nil")
	}
}
