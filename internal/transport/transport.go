// Package transport fetches bytes and maven-metadata.xml documents from an
// upstream Maven repository over HTTP. The resolver depends only on the
// Transport interface, never on *HTTPTransport directly, so tests can
// substitute a fake.
package transport

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/EngineHub/remote-glovebox/internal/mavenxml"
)

// Sentinel errors returned by Transport implementations. Callers should
// compare with errors.Is, since these may be wrapped.
var (
	// ErrNotFound means the upstream responded 404 for the request.
	ErrNotFound = errors.New("transport: artifact or metadata not found")
	// ErrDeserialize means the response body could not be parsed as XML.
	ErrDeserialize = errors.New("transport: failed to parse maven-metadata.xml")
)

// ArtifactRequest describes a single file to fetch from the Maven layout:
// {base}/{group}/{name}/{path_version}/{name}-{file_version}[-{classifier}].{extension}
type ArtifactRequest struct {
	Group       string // slashed, e.g. "org/example"
	Name        string
	PathVersion string
	FileVersion string
	Classifier  string // empty means no classifier segment
	Extension   string
}

// MetadataRequest describes a maven-metadata.xml fetch, optionally scoped
// to a single version:
// {base}/{group}/{name}/[{version}/]maven-metadata.xml
type MetadataRequest struct {
	Group   string // slashed
	Name    string
	Version string // empty means the artifact-level (unscoped) metadata
}

// Transport is the capability the resolver depends on.
type Transport interface {
	// GetArtifact streams the bytes of the requested artifact. Callers must
	// close the returned reader.
	GetArtifact(ctx context.Context, req ArtifactRequest) (io.ReadCloser, error)
	// GetMetadata fetches and parses a maven-metadata.xml document.
	GetMetadata(ctx context.Context, req MetadataRequest) (*mavenxml.Metadata, error)
}

// HTTPTransport is the production Transport backed by net/http, tuned
// with bounded idle connections, a per-request context, and no implicit
// retries.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport returns a Transport that fetches from baseURL (no
// trailing slash expected, but one is tolerated).
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: trimTrailingSlash(baseURL),
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// GetArtifact implements Transport.
func (t *HTTPTransport) GetArtifact(ctx context.Context, req ArtifactRequest) (io.ReadCloser, error) {
	classifierBit := ""
	if req.Classifier != "" {
		classifierBit = "-" + req.Classifier
	}
	url := fmt.Sprintf("%s/%s/%s/%s/%s-%s%s.%s",
		t.baseURL, req.Group, req.Name, req.PathVersion,
		req.Name, req.FileVersion, classifierBit, req.Extension)

	resp, err := t.doGet(ctx, url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetMetadata implements Transport.
func (t *HTTPTransport) GetMetadata(ctx context.Context, req MetadataRequest) (*mavenxml.Metadata, error) {
	versionBit := ""
	if req.Version != "" {
		versionBit = req.Version + "/"
	}
	url := fmt.Sprintf("%s/%s/%s/%smaven-metadata.xml", t.baseURL, req.Group, req.Name, versionBit)

	resp, err := t.doGet(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var metadata mavenxml.Metadata
	if err := xml.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, errors.Wrapf(ErrDeserialize, "decoding %s: %v", url, err)
	}
	return &metadata, nil
}

// doGet performs the request and classifies the response status, leaving
// the body open for the caller to consume or close on success.
func (t *HTTPTransport) doGet(ctx context.Context, url string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", url)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", url)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errors.Wrapf(ErrNotFound, "%s", url)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("transport: unexpected status %d for %s", resp.StatusCode, url)
	}
	return resp, nil
}
