package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/etaflow/internal/domain/model"
)

const (
	maxErrorBody       = 512
	defaultMaxBodySize = 4 << 20
)

// HTTPFetcher reads a JSON object from a provider endpoint. The driver and
// load identifiers are sent as query parameters.
type HTTPFetcher struct {
	endpoint string
	client   *http.Client
	header   http.Header
	maxBody  int64
}

// HTTPOption applies a configuration option to an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithHeader adds a header sent with every request, for example an API key.
func WithHeader(key, value string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.header.Add(key, value)
	}
}

// WithMaxBodySize caps how many bytes of a success body are decoded. A
// larger payload fails the fetch. The default is 4 MiB.
func WithMaxBodySize(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// NewHTTPFetcher validates endpoint and returns a fetcher for it.
func NewHTTPFetcher(endpoint string, opts ...HTTPOption) (*HTTPFetcher, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q: scheme must be http or https", endpoint)
	}
	f := &HTTPFetcher{endpoint: endpoint, client: http.DefaultClient, header: http.Header{}, maxBody: defaultMaxBodySize}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch performs one GET. Deadlines come from ctx.
func (f *HTTPFetcher) Fetch(ctx context.Context, fc model.FetchContext) (model.RawData, error) {
	u, _ := url.Parse(f.endpoint)
	q := u.Query()
	q.Set("driver_id", fc.DriverID)
	q.Set("load_id", fc.LoadID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = f.header.Clone()
	req.Header.Set("Accept", "application/json")
	if fc.RunID != "" {
		req.Header.Set("X-Request-ID", fc.RunID)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var data model.RawData
	if err := json.NewDecoder(io.LimitReader(resp.Body, f.maxBody)).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decode body: %w", ErrUpstream, err)
	}
	return data, nil
}
