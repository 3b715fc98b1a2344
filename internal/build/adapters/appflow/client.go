package appflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cochaviz/cloudbuild/internal/build"
	"github.com/cochaviz/cloudbuild/platform"
)

// Ensure Client satisfies the job client interface.
var _ build.JobClient = (*Client)(nil)

const (
	DefaultBaseURL = "https://api.ionicjs.com"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

// Client talks to the package build endpoints of the build service.
type Client struct {
	Logger     *slog.Logger
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	// RequestID is sent with every request so server logs of one run can be correlated.
	RequestID string
}

// NewClient returns a client for baseURL with a fresh request id.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		Logger:     logger,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		UserAgent:  "cloudbuild",
		RequestID:  uuid.NewString(),
	}
}

// CreateJob triggers a package build. The request is never retried.
func (c *Client) CreateJob(ctx context.Context, appID, token string, p platform.Platform, t platform.BuildType, opts build.CreateOptions) (build.Job, error) {
	body := createJobRequest{
		Platform:         p.String(),
		BuildType:        t.String(),
		CommitSHA:        opts.CommitSHA,
		StackName:        opts.StackName,
		ProfileName:      opts.ProfileName,
		EnvironmentName:  opts.EnvironmentName,
		NativeConfigName: opts.NativeConfigName,
	}

	var created PackageBuild
	if err := c.do(ctx, "create build", http.MethodPost, c.packagesPath(appID, "verbose_post"), token, body, &created); err != nil {
		return build.Job{}, err
	}
	return created.toJob(), nil
}

// FetchJobStatus returns the current snapshot of a job.
func (c *Client) FetchJobStatus(ctx context.Context, appID string, jobID int64, token string) (build.Job, error) {
	var current PackageBuild
	if err := c.do(ctx, "fetch build", http.MethodGet, c.packagesPath(appID, strconv.FormatInt(jobID, 10)), token, nil, &current); err != nil {
		return build.Job{}, err
	}
	job := current.toJob()
	if job.ID == 0 {
		job.ID = jobID
	}
	return job, nil
}

// FetchDownloadURL resolves the artifact URL of a finished job.
func (c *Client) FetchDownloadURL(ctx context.Context, appID string, jobID int64, token string) (build.DownloadDescriptor, error) {
	var download Download
	if err := c.do(ctx, "fetch download url", http.MethodGet, c.packagesPath(appID, strconv.FormatInt(jobID, 10), "download"), token, nil, &download); err != nil {
		return build.DownloadDescriptor{}, err
	}
	if download.URL == nil {
		return build.DownloadDescriptor{}, nil
	}
	return build.DownloadDescriptor{URL: *download.URL}, nil
}

func (c *Client) packagesPath(appID string, segments ...string) string {
	parts := append([]string{"apps", url.PathEscape(appID), "packages"}, segments...)
	return "/" + strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, operation, method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &build.RemoteError{Operation: operation, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return &build.RemoteError{Operation: operation, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.RequestID != "" {
		req.Header.Set("X-Request-Id", c.RequestID)
	}

	logger := c.logger().With("operation", operation, "method", method, "path", path)
	logger.Debug("sending request")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &build.RemoteError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	logger.Debug("received response", "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeRemoteError(operation, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope{Data: out}); err != nil {
		return &build.RemoteError{Operation: operation, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func decodeRemoteError(operation string, resp *http.Response) error {
	remoteErr := &build.RemoteError{Operation: operation, StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return remoteErr
	}
	var payload errorEnvelope
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != nil {
		remoteErr.Code = payload.Error.Code
		remoteErr.Message = payload.Error.Message
		return remoteErr
	}
	remoteErr.Message = strings.TrimSpace(string(data))
	return remoteErr
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
