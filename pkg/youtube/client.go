// Package youtube provides a client for the YouTube Data API v3 search and
// videos endpoints.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the YouTube Data API operations used by the video connector.
type Client interface {
	// Search finds videos matching the query.
	Search(ctx context.Context, apiKey, query string, maxResults int) (*SearchResponse, error)
	// Videos fetches statistics for the given video IDs.
	Videos(ctx context.Context, apiKey string, ids []string) (*VideosResponse, error)
}

// SearchResponse is the parsed /search response.
type SearchResponse struct {
	Items []SearchItem `json:"items"`
}

// SearchItem is one search result.
type SearchItem struct {
	ID      VideoID `json:"id"`
	Snippet Snippet `json:"snippet"`
}

// VideoID holds the video identifier.
type VideoID struct {
	VideoID string `json:"videoId"`
}

// Snippet holds the video metadata.
type Snippet struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"publishedAt"`
}

// VideosResponse is the parsed /videos response.
type VideosResponse struct {
	Items []VideoItem `json:"items"`
}

// VideoItem is one video with statistics.
type VideoItem struct {
	ID         string     `json:"id"`
	Statistics Statistics `json:"statistics"`
}

// Statistics holds engagement counters. The API returns them as strings.
type Statistics struct {
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
}

// StatusError reports a non-200 response. A 403 from this API usually means
// the daily quota is exhausted rather than a permissions problem.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("youtube: status %d: %s", e.StatusCode, e.Body)
}

// QuotaExhausted reports whether the error body names the quota reason.
func (e *StatusError) QuotaExhausted() bool {
	return e.StatusCode == http.StatusForbidden &&
		strings.Contains(e.Body, "quotaExceeded")
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a YouTube Data API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://www.googleapis.com/youtube/v3",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "youtube: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "youtube: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "youtube: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "youtube: unmarshal response")
	}
	return nil
}

func (c *httpClient) Search(ctx context.Context, apiKey, query string, maxResults int) (*SearchResponse, error) {
	if maxResults <= 0 {
		maxResults = 15
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))
	params.Set("key", apiKey)

	var result SearchResponse
	if err := c.get(ctx, c.baseURL+"/search?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) Videos(ctx context.Context, apiKey string, ids []string) (*VideosResponse, error) {
	params := url.Values{}
	params.Set("part", "statistics")
	params.Set("id", strings.Join(ids, ","))
	params.Set("key", apiKey)

	var result VideosResponse
	if err := c.get(ctx, c.baseURL+"/videos?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
