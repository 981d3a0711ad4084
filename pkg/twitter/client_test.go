package twitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "Galaxy S24 -is:retweet lang:en", r.URL.Query().Get("query"))
		assert.Equal(t, "created_at,public_metrics", r.URL.Query().Get("tweet.fields"))

		json.NewEncoder(w).Encode(RecentSearchResponse{
			Data: []Tweet{{ID: "t1", Text: "Galaxy S24 Ultra is wild",
				PublicMetrics: PublicMetrics{LikeCount: 10, RetweetCount: 4}}},
			Meta: Meta{ResultCount: 1},
		})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.RecentSearch(context.Background(), "test-token", "Galaxy S24", 20)

	require.NoError(t, err)
	require.Len(t, got.Data, 1)
	assert.Equal(t, 10, got.Data[0].PublicMetrics.LikeCount)
}

func TestRecentSearch_ClampsMaxResults(t *testing.T) {
	t.Parallel()

	var gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMax = r.URL.Query().Get("max_results")
		json.NewEncoder(w).Encode(RecentSearchResponse{})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))

	_, err := client.RecentSearch(context.Background(), "tok", "q", 3)
	require.NoError(t, err)
	assert.Equal(t, "10", gotMax)

	_, err = client.RecentSearch(context.Background(), "tok", "q", 500)
	require.NoError(t, err)
	assert.Equal(t, "100", gotMax)
}

func TestRecentSearch_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"title":"Unauthorized"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.RecentSearch(context.Background(), "bad-token", "q", 10)

	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}
