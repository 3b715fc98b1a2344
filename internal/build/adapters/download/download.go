package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cochaviz/cloudbuild/internal/build"
)

// Ensure HTTPDownloader satisfies the artifact downloader interface.
var _ build.ArtifactDownloader = (*HTTPDownloader)(nil)

// FallbackName is used when the response carries no usable file name.
const FallbackName = "output.bin"

// HTTPDownloader streams artifacts from pre-signed URLs into Dir.
type HTTPDownloader struct {
	Logger     *slog.Logger
	HTTPClient *http.Client
	// Dir is the target directory; empty means the working directory.
	Dir string
}

// Download writes the body of url to a file named overrideName, or the name
// announced by the response. An existing file is overwritten. A file that was
// partially written before a failure is left in place.
func (d *HTTPDownloader) Download(ctx context.Context, url, overrideName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &build.NetworkError{URL: url, Err: err}
	}

	resp, err := d.httpClient().Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &build.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &build.NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	name := overrideName
	if name == "" {
		name = FileNameFromHeader(resp.Header.Get("Content-Disposition"))
	}
	path := filepath.Join(d.Dir, name)

	logger := d.logger().With("artifact", name, "path", path)
	logger.Debug("downloading artifact", "content_length", resp.ContentLength)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", &build.IOError{Path: path, Err: err}
	}

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		file.Close()
		return "", classifyCopyError(ctx, url, path, err)
	}
	if err := file.Close(); err != nil {
		return "", &build.IOError{Path: path, Err: err}
	}

	logger.Debug("artifact written", "bytes", written)
	return name, nil
}

// FileNameFromHeader extracts the filename parameter of a Content-Disposition
// header value, reduced to its base name. It returns FallbackName when the
// header is absent or unusable.
func FileNameFromHeader(header string) string {
	if strings.TrimSpace(header) == "" {
		return FallbackName
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return FallbackName
	}
	name := strings.TrimSpace(params["filename"])
	// Servers may send Windows style paths.
	name = name[strings.LastIndexAny(name, `/\`)+1:]
	if name == "" || name == "." || name == ".." {
		return FallbackName
	}
	if err := build.ValidateArtifactName(name); err != nil {
		return FallbackName
	}
	return name
}

// classifyCopyError separates local write failures from body read failures.
func classifyCopyError(ctx context.Context, url, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return &build.IOError{Path: path, Err: err}
	}
	return &build.NetworkError{URL: url, Err: fmt.Errorf("read body: %w", err)}
}

func (d *HTTPDownloader) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	// No overall timeout; large artifacts rely on ctx for cancellation.
	return &http.Client{}
}

func (d *HTTPDownloader) logger() *slog.Logger {
	if d != nil && d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
