package source

import (
	"context"
	"errors"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-scout/internal/credential"
	"github.com/sells-group/market-scout/internal/model"
	"github.com/sells-group/market-scout/pkg/youtube"
)

// VideoConnector adapts the YouTube Data API.
type VideoConnector struct {
	client youtube.Client
	creds  *credential.Manager
}

// NewVideoConnector creates the video connector.
func NewVideoConnector(client youtube.Client, creds *credential.Manager) *VideoConnector {
	return &VideoConnector{client: client, creds: creds}
}

func (c *VideoConnector) Service() string { return "video" }

// Query searches videos and enriches results with like/view statistics in a
// second call. A failed statistics call degrades to metric-less snippets
// rather than failing the query; the search results are still signal.
func (c *VideoConnector) Query(ctx context.Context, term string, limit int) ([]model.RawSnippet, error) {
	cred, err := c.creds.Acquire(c.Service())
	if err != nil {
		return nil, eris.Wrap(err, "video: acquire credential")
	}

	resp, err := c.client.Search(ctx, cred.Secret, term, limit)
	if err != nil {
		se := c.mapErr(err)
		c.creds.Report(cred, outcomeFor(se))
		return nil, se
	}

	var ids []string
	for _, item := range resp.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}

	stats := make(map[string]youtube.Statistics, len(ids))
	if len(ids) > 0 {
		vids, err := c.client.Videos(ctx, cred.Secret, ids)
		if err != nil {
			zap.L().Warn("video statistics lookup failed, continuing without metrics",
				zap.Error(err),
			)
		} else {
			for _, v := range vids.Items {
				stats[v.ID] = v.Statistics
			}
		}
	}
	c.creds.Report(cred, credential.Success)

	snippets := make([]model.RawSnippet, 0, len(resp.Items))
	for _, item := range resp.Items {
		text := item.Snippet.Title
		if item.Snippet.Description != "" {
			text += " " + item.Snippet.Description
		}
		if text == "" {
			continue
		}

		s := model.RawSnippet{
			Service:     c.Service(),
			Text:        text,
			PublishedAt: item.Snippet.PublishedAt,
			URL:         "https://www.youtube.com/watch?v=" + item.ID.VideoID,
		}
		if st, ok := stats[item.ID.VideoID]; ok {
			s.Likes = atoiOrZero(st.LikeCount)
			s.Views = atoiOrZero(st.ViewCount)
			s.Replies = atoiOrZero(st.CommentCount)
			s.HasMetrics = true
		}
		snippets = append(snippets, s)
	}
	return snippets, nil
}

func (c *VideoConnector) mapErr(err error) *SourceError {
	var st *youtube.StatusError
	if errors.As(err, &st) {
		if st.QuotaExhausted() {
			return NewSourceError(QuotaExceeded, c.Service(), err)
		}
		return kindFromStatus(c.Service(), st.StatusCode, st.Body)
	}
	return classify(c.Service(), err)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
