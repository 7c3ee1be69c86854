package metadata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/guidebuilder/internal/logfields"
	"git.home.luguber.info/inful/guidebuilder/internal/metrics"
	"git.home.luguber.info/inful/guidebuilder/internal/version"
)

// DefaultBuildScanMetadataURL is the metadata document of the build scan plugin marker artifact.
const DefaultBuildScanMetadataURL = "https://plugins.gradle.org/m2/com/gradle/build-scan/com.gradle.build-scan.gradle.plugin/maven-metadata.xml"

// maxDocumentSize caps the body read from the repository.
const maxDocumentSize = 4 << 20

// Resolver fetches a metadata document and extracts the latest version.
type Resolver struct {
	url        string
	httpClient *http.Client
	recorder   metrics.Recorder
}

// NewResolver creates a resolver for the given metadata URL.
func NewResolver(metadataURL string) *Resolver {
	return &Resolver{
		url:        metadataURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		recorder:   metrics.NoopRecorder{},
	}
}

// WithHTTPClient replaces the HTTP client (timeouts, transports, test servers).
func (r *Resolver) WithHTTPClient(c *http.Client) *Resolver {
	if c != nil {
		r.httpClient = c
	}
	return r
}

// WithRecorder injects a metrics recorder.
func (r *Resolver) WithRecorder(rec metrics.Recorder) *Resolver {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

// URL returns the metadata URL this resolver queries.
func (r *Resolver) URL() string {
	return r.url
}

// Resolve fetches the document and returns /metadata/versioning/latest.
// It returns a non-empty version or an error, never both.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	start := time.Now()
	doc, err := r.Fetch(ctx)
	var latest string
	if err == nil {
		latest, err = doc.Latest()
	}
	r.recorder.ObserveResolveDuration(time.Since(start), err == nil)
	if err != nil {
		return "", err
	}
	slog.Info("Resolved latest plugin version",
		logfields.URL(r.url),
		logfields.Version(latest),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1e3))
	return latest, nil
}

// Fetch performs a single GET of the metadata URL and parses the body.
func (r *Resolver) Fetch(ctx context.Context) (*Document, error) {
	if strings.TrimSpace(r.url) == "" {
		return nil, errors.ConfigError("metadata URL is not configured").Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, http.NoBody)
	if err != nil {
		return nil, errors.ConfigError("invalid metadata URL").
			WithCause(err).
			WithContext("url", r.url).
			Build()
	}
	req.Header.Set("Accept", "application/xml, text/xml")
	req.Header.Set("User-Agent", "guidebuilder/"+version.Version)

	slog.Debug("Fetching plugin metadata", logfields.URL(r.url))
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.NetworkError("failed to fetch metadata document").
			WithCause(err).
			WithContext("url", r.url).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		bodyStr := strings.ReplaceAll(string(limitedBody), "\n", " ")
		return nil, errors.NetworkError(fmt.Sprintf("metadata request failed: %s", resp.Status)).
			WithContext("url", r.url).
			WithContext("code", resp.StatusCode).
			WithContext("response", bodyStr).
			Build()
	}

	doc, err := Parse(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		if ce, ok := errors.AsClassified(err); ok {
			return nil, ce.WithContext("url", r.url)
		}
		return nil, err
	}
	return doc, nil
}
