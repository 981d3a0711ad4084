package source

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-scout/internal/credential"
	"github.com/sells-group/market-scout/pkg/newsapi"
	"github.com/sells-group/market-scout/pkg/reddit"
	"github.com/sells-group/market-scout/pkg/serp"
	"github.com/sells-group/market-scout/pkg/twitter"
	"github.com/sells-group/market-scout/pkg/youtube"
)

func TestKindFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, Unauthenticated},
		{403, Unauthenticated},
		{429, RateLimited},
		{500, Network},
		{503, Network},
		{404, Malformed},
	}
	for _, tt := range tests {
		se := kindFromStatus("news", tt.status, "body")
		assert.Equal(t, tt.want, se.Kind, "status %d", tt.status)
	}
}

func TestClassify(t *testing.T) {
	se := classify("news", &json.SyntaxError{})
	assert.Equal(t, Malformed, se.Kind)

	se = classify("news", eris.New("connection refused"))
	assert.Equal(t, Network, se.Kind)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(NewSourceError(Network, "news", eris.New("x"))))
	assert.True(t, Retryable(NewSourceError(Malformed, "news", eris.New("x"))))
	assert.False(t, Retryable(NewSourceError(Unauthenticated, "news", eris.New("x"))))
	assert.False(t, Retryable(NewSourceError(RateLimited, "news", eris.New("x"))))
	assert.False(t, Retryable(NewSourceError(QuotaExceeded, "news", eris.New("x"))))
	assert.False(t, Retryable(eris.New("not a source error")))
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, credential.Success, outcomeFor(nil))
	assert.Equal(t, credential.RateLimited, outcomeFor(NewSourceError(RateLimited, "news", eris.New("x"))))
	assert.Equal(t, credential.QuotaExceeded, outcomeFor(NewSourceError(QuotaExceeded, "news", eris.New("x"))))
	assert.Equal(t, credential.TransientError, outcomeFor(NewSourceError(Network, "news", eris.New("x"))))
}

func TestNewsConnectorQuery(t *testing.T) {
	client := &mockNewsClient{resp: &newsapi.EverythingResponse{
		Articles: []newsapi.Article{
			{Title: "iPhone 15 Pro review", Description: "Worth it?", URL: "https://news.example/a",
				PublishedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
			{Title: "", Description: ""},
		},
	}}
	c := NewNewsConnector(client, testManager("news", "key-n"))

	snippets, err := c.Query(context.Background(), "iPhone 15 vs", 10)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "news", snippets[0].Service)
	assert.Equal(t, "iPhone 15 Pro review Worth it?", snippets[0].Text)
	assert.False(t, snippets[0].HasMetrics)
	assert.Equal(t, "key-n", client.lastKey)
}

func TestNewsConnectorMapsStatusErrors(t *testing.T) {
	creds := testManager("news", "key-n")
	client := &mockNewsClient{err: &newsapi.StatusError{StatusCode: 429, Body: "rateLimited"}}
	c := NewNewsConnector(client, creds)

	_, err := c.Query(context.Background(), "iPhone 15 vs", 10)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, RateLimited, kind)

	// The credential went into its service cooldown.
	_, err = creds.Acquire("news")
	require.Error(t, err)
	assert.True(t, eris.Is(err, credential.ErrUnavailable))
}

func TestNewsConnectorNoCredential(t *testing.T) {
	c := NewNewsConnector(&mockNewsClient{}, testManager("news"))

	_, err := c.Query(context.Background(), "iPhone 15 vs", 10)
	require.Error(t, err)
	assert.True(t, eris.Is(err, credential.ErrUnavailable))
}

func TestVideoConnectorMergesStatistics(t *testing.T) {
	client := &mockYouTubeClient{
		searchResp: &youtube.SearchResponse{Items: []youtube.SearchItem{{
			ID:      youtube.VideoID{VideoID: "vid-1"},
			Snippet: youtube.Snippet{Title: "Pixel 8 vs iPhone 15", Description: "camera test"},
		}}},
		videosResp: &youtube.VideosResponse{Items: []youtube.VideoItem{{
			ID:         "vid-1",
			Statistics: youtube.Statistics{ViewCount: "2000", LikeCount: "150", CommentCount: "40"},
		}}},
	}
	c := NewVideoConnector(client, testManager("video", "key-v"))

	snippets, err := c.Query(context.Background(), "Pixel 8 vs", 5)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.True(t, snippets[0].HasMetrics)
	assert.Equal(t, 2000, snippets[0].Views)
	assert.Equal(t, 150, snippets[0].Likes)
	assert.Equal(t, 40, snippets[0].Replies)
}

func TestVideoConnectorDegradesWithoutStatistics(t *testing.T) {
	client := &mockYouTubeClient{
		searchResp: &youtube.SearchResponse{Items: []youtube.SearchItem{{
			ID:      youtube.VideoID{VideoID: "vid-1"},
			Snippet: youtube.Snippet{Title: "Pixel 8 review"},
		}}},
		videosErr: &youtube.StatusError{StatusCode: 500, Body: "backend error"},
	}
	c := NewVideoConnector(client, testManager("video", "key-v"))

	snippets, err := c.Query(context.Background(), "Pixel 8", 5)
	require.NoError(t, err, "statistics failure must not fail the query")
	require.Len(t, snippets, 1)
	assert.False(t, snippets[0].HasMetrics)
}

func TestVideoConnectorQuotaExhausted(t *testing.T) {
	client := &mockYouTubeClient{
		searchErr: &youtube.StatusError{StatusCode: 403, Body: `{"reason":"quotaExceeded"}`},
	}
	c := NewVideoConnector(client, testManager("video", "key-v"))

	_, err := c.Query(context.Background(), "Pixel 8", 5)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, QuotaExceeded, kind)
}

func TestMicroblogConnectorMetrics(t *testing.T) {
	client := &mockTwitterClient{resp: &twitter.RecentSearchResponse{
		Data: []twitter.Tweet{{
			ID:   "t1",
			Text: "Galaxy S24 Ultra is wild",
			PublicMetrics: twitter.PublicMetrics{
				LikeCount: 10, RetweetCount: 4, QuoteCount: 1, ReplyCount: 3,
			},
		}},
	}}
	c := NewMicroblogConnector(client, testManager("microblog", "bearer-1"))

	snippets, err := c.Query(context.Background(), "Galaxy S24", 10)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, 10, snippets[0].Likes)
	assert.Equal(t, 5, snippets[0].Shares, "retweets plus quotes")
	assert.Equal(t, 3, snippets[0].Replies)
	assert.True(t, snippets[0].HasMetrics)
}

func TestForumConnectorCredentialFree(t *testing.T) {
	client := &mockRedditClient{resp: &reddit.SearchResponse{}}
	client.resp.Data.Children = []reddit.Child{{
		Data: reddit.Post{Title: "Best phone 2026?", Score: 57, NumComments: 120, Permalink: "/r/phones/1"},
	}}
	c := NewForumConnector(client)

	snippets, err := c.Query(context.Background(), "best phone", 10)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, 57, snippets[0].Votes)
	assert.Equal(t, 120, snippets[0].Replies)
}

func TestWebConnectorTreats429AsQuota(t *testing.T) {
	client := &mockSerpClient{err: &serp.StatusError{StatusCode: 429, Body: "run out of searches"}}
	c := NewWebConnector(client, testManager("web", "key-w"))

	_, err := c.Query(context.Background(), "best phone", 10)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, QuotaExceeded, kind)
}
