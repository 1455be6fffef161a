// Package disk implements a read-only client for the Yandex Disk public
// resources API. It issues a single pass-through request per call and
// normalizes the single-file and directory payload shapes into one flat
// entry list.
package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public resources endpoint of the upstream provider.
const DefaultBaseURL = "https://cloud-api.yandex.net/v1/disk/public/resources"

const defaultRequestTimeout = 10 * time.Second

// Entry is one normalized item from a public share: a display name, the
// upstream resource kind ("file" or "dir"), and the opaque download
// reference supplied by the provider.
type Entry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// UpstreamError reports a failed upstream call, carrying the status and
// message returned by the provider when available.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream returned %d", e.StatusCode)
}

// Option configures a Client instance.
type Option func(*Client)

// WithBaseURL overrides the upstream endpoint, primarily for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds each upstream request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client queries the upstream provider's public resources endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client with a conservative default timeout.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// publicResource matches both upstream payload shapes: a single file carries
// a top-level "file" download link, a directory embeds its items.
type publicResource struct {
	Name     string `json:"name"`
	File     string `json:"file"`
	Embedded struct {
		Items []struct {
			Name string `json:"name"`
			Type string `json:"type"`
			File string `json:"file"`
		} `json:"items"`
	} `json:"_embedded"`
}

type upstreamErrorBody struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

// ListPublic fetches the resource behind the provided public share URL and
// returns its normalized entry list. A payload with a "file" field yields a
// single-element list; anything else is treated as a directory, with an
// empty (never nil) list when the share has no items. Upstream order is
// preserved.
func (c *Client) ListPublic(ctx context.Context, publicURL string) ([]Entry, error) {
	if strings.TrimSpace(publicURL) == "" {
		return nil, errors.New("public url is required")
	}

	endpoint := fmt.Sprintf("%s?public_key=%s", c.baseURL, url.QueryEscape(publicURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamErrorFromResponse(resp)
	}

	var payload publicResource
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode upstream payload: %v", err)}
	}

	if payload.File != "" {
		return []Entry{{Name: payload.Name, Type: "file", Path: payload.File}}, nil
	}

	entries := make([]Entry, 0, len(payload.Embedded.Items))
	for _, item := range payload.Embedded.Items {
		entries = append(entries, Entry{Name: item.Name, Type: item.Type, Path: item.File})
	}
	return entries, nil
}

func upstreamErrorFromResponse(resp *http.Response) *UpstreamError {
	message := resp.Status
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(body) > 0 {
		var parsed upstreamErrorBody
		if json.Unmarshal(body, &parsed) == nil {
			switch {
			case parsed.Message != "":
				message = parsed.Message
			case parsed.Description != "":
				message = parsed.Description
			}
		}
	}
	return &UpstreamError{StatusCode: resp.StatusCode, Message: message}
}
