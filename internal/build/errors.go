package build

import (
	"fmt"
	"net/http"
	"strings"
)

// ReauthenticateHint is shown next to unauthorized remote errors.
const ReauthenticateHint = "run 'cloudbuild setup --token <token>' to re-authenticate"

// ValidationError reports an invalid request. No remote call follows it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// RemoteError is any failure of a build service operation. StatusCode is 0
// when no response was received.
type RemoteError struct {
	Operation  string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString(e.Operation)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the service rejected the credentials.
func (e *RemoteError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Hint returns a user-facing follow-up for the error, if any.
func (e *RemoteError) Hint() string {
	if e.Unauthorized() {
		return ReauthenticateHint
	}
	return ""
}

// BuildFailedError reports a job that finished in a non-success state.
type BuildFailedError struct {
	JobID int64
	State JobState
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build %d finished with state %q", e.JobID, e.State)
}

// InconsistentResponseError reports a response that contradicts an earlier one,
// such as a successful job without a download URL.
type InconsistentResponseError struct {
	JobID   int64
	Message string
}

func (e *InconsistentResponseError) Error() string {
	return fmt.Sprintf("inconsistent response for build %d: %s", e.JobID, e.Message)
}

// LogRewrittenError reports a job log that shrank or changed its already
// emitted prefix between two polls.
type LogRewrittenError struct {
	JobID  int64
	Cursor int
	Length int
}

func (e *LogRewrittenError) Error() string {
	return fmt.Sprintf("log of build %d was rewritten (emitted %d bytes, now %d bytes)", e.JobID, e.Cursor, e.Length)
}

// IOError wraps a local file failure during download.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NetworkError wraps a transfer failure during download.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
