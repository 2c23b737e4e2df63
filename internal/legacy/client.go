package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GyroZepelix/mithril-studio/internal/metrics"
)

const (
	contentTypeEndpoint   = "/studio/api/1/services/api/1/content/get-content-type.json"
	contentTypesEndpoint  = "/studio/api/1/services/api/1/content/get-content-types.json"
	configurationEndpoint = "/studio/api/1/services/api/1/site/get-configuration.json"
	defaultTimeout        = 10 * time.Second
	maxErrorBodyBytes     = 64 << 10
)

// Client fetches legacy documents from a Studio instance over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	headers    map[string]string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request. Zero disables the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithHeaders adds static headers (session cookies, XSRF tokens) to every
// request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// NewClient creates a Client for the Studio instance at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
		headers:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentType implements Source.
func (c *Client) ContentType(ctx context.Context, site, contentTypeID string) (*ContentType, error) {
	q := url.Values{}
	q.Set("site_id", site)
	q.Set("type", contentTypeID)

	var ct *ContentType
	if err := c.get(ctx, "get-content-type", contentTypeEndpoint, q, &ct); err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, fmt.Errorf("legacy get-content-type: empty response for %q: %w", contentTypeID, ErrNotFound)
	}
	return ct, nil
}

// ContentTypes implements Source. Failures are normalised into *APIError.
func (c *Client) ContentTypes(ctx context.Context, site, path string) ([]ContentType, error) {
	q := url.Values{}
	q.Set("site", site)
	if path != "" {
		q.Set("path", path)
	}

	var list List[ContentType]
	if err := c.get(ctx, "get-content-types", contentTypesEndpoint, q, &list); err != nil {
		return nil, normalizeAPIError(err)
	}
	return list.Items(), nil
}

// FormDefinition implements Source.
func (c *Client) FormDefinition(ctx context.Context, site, contentTypeID string) (*FormDefinition, error) {
	q := url.Values{}
	q.Set("site", site)
	q.Set("path", FormDefinitionPath(contentTypeID))

	var def *FormDefinition
	if err := c.get(ctx, "get-configuration", configurationEndpoint, q, &def); err != nil {
		return nil, err
	}
	return def, nil
}

// get performs a GET against endpoint and decodes the JSON body into v.
func (c *Client) get(ctx context.Context, name, endpoint string, query url.Values, v any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.LegacyFetches.WithLabelValues(name, outcome).Inc()
		metrics.LegacyFetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL + endpoint + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("legacy %s: building request: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("legacy %s: %w", name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		slog.Debug("legacy fetch failed",
			"endpoint", name,
			"status", resp.StatusCode,
			"url", target,
		)
		return &StatusError{
			Endpoint:   name,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("legacy %s: reading body: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("legacy %s: decoding body: %w", name, err)
	}
	return nil
}
