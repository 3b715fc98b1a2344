// Package buildsim is an in-process stand-in for the remote build service.
// It serves the package build endpoints with a scripted job lifecycle so the
// client can be exercised without network access or credentials.
package buildsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/cochaviz/cloudbuild/internal/build"
	"github.com/cochaviz/cloudbuild/internal/build/adapters/appflow"
	"github.com/cochaviz/cloudbuild/platform"
)

// Scenario scripts the lifecycle every created job goes through. Each status
// fetch advances the job by one step.
type Scenario struct {
	// QueuedPolls is the number of fetches reporting the concurrency-limited state.
	QueuedPolls int
	// LogLines are appended to the trace, one per fetch, while running.
	LogLines []string
	// Outcome is the terminal state reached after the last log line.
	Outcome build.JobState

	ArtifactName    string
	Artifact        []byte
	OmitDownloadURL bool
}

// DefaultScenario is used by the mock-server command.
func DefaultScenario() Scenario {
	return Scenario{
		QueuedPolls: 1,
		LogLines: []string{
			"Fetching source\n",
			"Installing dependencies\n",
			"Running native build\n",
			"Signing package\n",
		},
		Outcome:      build.JobStateSuccess,
		ArtifactName: "app-debug.apk",
		Artifact:     []byte("simulated artifact\n"),
	}
}

type simJob struct {
	appID         string
	pkg           appflow.PackageBuild
	polls         int
	artifactToken string
}

// Server holds the simulated jobs. It is safe for concurrent use.
type Server struct {
	Logger   *slog.Logger
	Token    string
	Scenario Scenario

	mu        sync.Mutex
	nextID    int64
	jobs      map[int64]*simJob
	artifacts map[string]*simJob
}

// New returns a server accepting token as the only valid bearer token. An
// empty token disables authentication.
func New(token string, scenario Scenario, logger *slog.Logger) *Server {
	if scenario.Outcome == "" {
		scenario.Outcome = build.JobStateSuccess
	}
	return &Server{
		Logger:    logger,
		Token:     token,
		Scenario:  scenario,
		nextID:    1000,
		jobs:      make(map[int64]*simJob),
		artifacts: make(map[string]*simJob),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/apps/{appID}/packages", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/verbose_post", s.createJob)
		r.Get("/{jobID}", s.getJob)
		r.Get("/{jobID}/download", s.getDownload)
	})
	r.Get("/artifacts/{token}", s.serveArtifact)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger().Warn("shutdown failed", "error", err)
		}
	}()

	s.logger().Info("build service simulator listening", "addr", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Jobs returns the number of jobs created so far.
func (s *Server) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Platform         string `json:"platform"`
		BuildType        string `json:"build_type"`
		CommitSHA        string `json:"commit_sha"`
		StackName        string `json:"stack_name"`
		ProfileName      string `json:"profile_name"`
		EnvironmentName  string `json:"environment_name"`
		NativeConfigName string `json:"native_config_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	p, err := platform.Parse(req.Platform)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_platform", err.Error())
		return
	}
	if _, err := platform.ParseBuildType(p, req.BuildType); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_build_type", err.Error())
		return
	}

	now := time.Now().UTC()

	s.mu.Lock()
	s.nextID++
	job := &simJob{
		appID: chi.URLParam(r, "appID"),
		pkg: appflow.PackageBuild{
			ID:               s.nextID,
			JobID:            s.nextID,
			Platform:         p.String(),
			BuildType:        req.BuildType,
			State:            string(build.JobStateCreated),
			Created:          &now,
			Commit:           &appflow.Commit{SHA: req.CommitSHA},
			Stack:            &appflow.Stack{FriendlyName: req.StackName},
			ProfileTag:       req.ProfileName,
			EnvironmentName:  req.EnvironmentName,
			NativeConfigName: req.NativeConfigName,
			Job:              &appflow.JobTrace{},
		},
	}
	s.jobs[job.pkg.JobID] = job
	pkg := job.pkg
	s.mu.Unlock()

	s.logger().Info("build created", "app_id", job.appID, "job_id", pkg.JobID, "platform", pkg.Platform, "build_type", pkg.BuildType)
	writeData(w, http.StatusCreated, pkg)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	job, ok := s.lookup(r)
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "build not found")
		return
	}
	s.advance(job)
	pkg := job.pkg
	s.mu.Unlock()

	writeData(w, http.StatusOK, pkg)
}

func (s *Server) getDownload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	job, ok := s.lookup(r)
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "build not found")
		return
	}
	if job.pkg.State != string(build.JobStateSuccess) {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "build_not_finished", "build has no artifact")
		return
	}
	if s.Scenario.OmitDownloadURL {
		s.mu.Unlock()
		writeData(w, http.StatusOK, appflow.Download{})
		return
	}
	if job.artifactToken == "" {
		job.artifactToken = uuid.NewString()
		s.artifacts[job.artifactToken] = job
	}
	token := job.artifactToken
	s.mu.Unlock()

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/artifacts/%s", scheme, r.Host, token)
	writeData(w, http.StatusOK, appflow.Download{URL: &url})
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, ok := s.artifacts[chi.URLParam(r, "token")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if name := s.Scenario.ArtifactName; name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(s.Scenario.Artifact)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.Scenario.Artifact)
}

// advance moves job one scripted step forward. Callers hold s.mu.
func (s *Server) advance(job *simJob) {
	if build.JobState(job.pkg.State).Terminal() {
		return
	}
	job.polls++

	running := job.polls - s.Scenario.QueuedPolls
	if running <= 0 {
		job.pkg.State = string(build.JobStateCreated)
		return
	}

	lines := s.Scenario.LogLines
	if running <= len(lines) {
		job.pkg.State = string(build.JobStateRunning)
		job.pkg.Job.Trace = strings.Join(lines[:running], "")
		return
	}

	finished := time.Now().UTC()
	job.pkg.State = string(s.Scenario.Outcome)
	job.pkg.Finished = &finished
	job.pkg.Job.Trace = strings.Join(lines, "")
}

func (s *Server) lookup(r *http.Request) (*simJob, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil {
		return nil, false
	}
	job, ok := s.jobs[id]
	if !ok || job.appID != chi.URLParam(r, "appID") {
		return nil, false
	}
	return job, true
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger().Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", r.Header.Get("X-Request-Id"),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
