package metadata

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
)

const fixtureDocument = `<?xml version="1.0" encoding="UTF-8"?>
<metadata>
  <groupId>com.gradle.build-scan</groupId>
  <artifactId>com.gradle.build-scan.gradle.plugin</artifactId>
  <versioning>
    <latest>1.2.3</latest>
    <release>1.2.3</release>
    <versions>
      <version>1.0</version>
      <version>1.2.3</version>
      <version>1.1</version>
    </versions>
    <lastUpdated>20190122171430</lastUpdated>
  </versioning>
</metadata>`

func serve(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestResolve_ReturnsLatest(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, fixtureDocument)

	got, err := NewResolver(srv.URL).WithHTTPClient(srv.Client()).Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "1.2.3", got)
}

func TestResolve_FetchesOnEveryCall(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, fixtureDocument)
	r := NewResolver(srv.URL).WithHTTPClient(srv.Client())

	for range 3 {
		_, err := r.Resolve(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestResolve_MissingLatestIsParseError(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `<metadata><versioning><release>1.0</release></versioning></metadata>`)

	got, err := NewResolver(srv.URL).WithHTTPClient(srv.Client()).Resolve(context.Background())

	require.Error(t, err)
	assert.Empty(t, got)
	assert.True(t, errors.HasCategory(err, errors.CategoryParse))
}

func TestResolve_ParseFailures(t *testing.T) {
	cases := map[string]string{
		"malformed":        `<metadata><versioning><latest>1.0</versioning>`,
		"empty body":       ``,
		"wrong root":       `<project><versioning><latest>1.0</latest></versioning></project>`,
		"blank latest":     `<metadata><versioning><latest>  </latest></versioning></metadata>`,
		"no versioning":    `<metadata><groupId>x</groupId></metadata>`,
		"trailing content": `<metadata><versioning><latest>1.0</latest></versioning></metadata><html>oops`,
		"trailing text":    `<metadata><versioning><latest>1.0</latest></versioning></metadata>oops`,
		"second root":      `<metadata><versioning><latest>1.0</latest></versioning></metadata><metadata/>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := serve(t, http.StatusOK, body)
			got, err := NewResolver(srv.URL).WithHTTPClient(srv.Client()).Resolve(context.Background())
			require.Error(t, err)
			assert.Empty(t, got)
			assert.Equal(t, errors.CategoryParse, errors.GetCategory(err))
		})
	}
}

func TestResolve_NonSuccessStatusIsNetworkError(t *testing.T) {
	srv, _ := serve(t, http.StatusNotFound, "not here")

	_, err := NewResolver(srv.URL).WithHTTPClient(srv.Client()).Resolve(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	code, _ := ce.Context().Get("code")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestResolve_UnreachableHostIsNetworkError(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	r := NewResolver("http://" + addr + "/maven-metadata.xml").
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second})
	got, err := r.Resolve(context.Background())

	require.Error(t, err)
	assert.Empty(t, got)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}

func TestResolve_TimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	r := NewResolver(srv.URL).WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond})
	_, err := r.Resolve(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}

func TestResolve_EmptyURLIsConfigError(t *testing.T) {
	_, err := NewResolver("").Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}
