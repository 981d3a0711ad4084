package source

import (
	"context"
	"time"

	"github.com/sells-group/market-scout/internal/credential"
	"github.com/sells-group/market-scout/pkg/newsapi"
	"github.com/sells-group/market-scout/pkg/reddit"
	"github.com/sells-group/market-scout/pkg/serp"
	"github.com/sells-group/market-scout/pkg/twitter"
	"github.com/sells-group/market-scout/pkg/youtube"
)

func testManager(service string, keys ...string) *credential.Manager {
	return credential.NewManager([]credential.PoolSpec{
		{Service: service, Primary: keys, Cooldown: time.Minute},
	})
}

type mockNewsClient struct {
	resp    *newsapi.EverythingResponse
	err     error
	lastKey string
	calls   int
}

func (m *mockNewsClient) Everything(_ context.Context, apiKey, _ string, _ int) (*newsapi.EverythingResponse, error) {
	m.calls++
	m.lastKey = apiKey
	return m.resp, m.err
}

type mockYouTubeClient struct {
	searchResp *youtube.SearchResponse
	searchErr  error
	videosResp *youtube.VideosResponse
	videosErr  error
}

func (m *mockYouTubeClient) Search(_ context.Context, _, _ string, _ int) (*youtube.SearchResponse, error) {
	return m.searchResp, m.searchErr
}

func (m *mockYouTubeClient) Videos(_ context.Context, _ string, _ []string) (*youtube.VideosResponse, error) {
	return m.videosResp, m.videosErr
}

type mockTwitterClient struct {
	resp *twitter.RecentSearchResponse
	err  error
}

func (m *mockTwitterClient) RecentSearch(_ context.Context, _, _ string, _ int) (*twitter.RecentSearchResponse, error) {
	return m.resp, m.err
}

type mockRedditClient struct {
	resp *reddit.SearchResponse
	err  error
}

func (m *mockRedditClient) Search(_ context.Context, _ string, _ int) (*reddit.SearchResponse, error) {
	return m.resp, m.err
}

type mockSerpClient struct {
	resp *serp.SearchResponse
	err  error
}

func (m *mockSerpClient) Search(_ context.Context, _, _ string, _ int) (*serp.SearchResponse, error) {
	return m.resp, m.err
}
