package source

import (
	"context"
	"errors"

	"github.com/sells-group/market-scout/internal/model"
	"github.com/sells-group/market-scout/pkg/reddit"
)

// ForumConnector adapts Reddit's public search. The public JSON endpoints
// take no credential, so this connector never touches the pool.
type ForumConnector struct {
	client reddit.Client
}

// NewForumConnector creates the forum connector.
func NewForumConnector(client reddit.Client) *ForumConnector {
	return &ForumConnector{client: client}
}

func (c *ForumConnector) Service() string { return "forum" }

// Query searches posts across subreddits. Vote score is the engagement
// metric for forum snippets.
func (c *ForumConnector) Query(ctx context.Context, term string, limit int) ([]model.RawSnippet, error) {
	resp, err := c.client.Search(ctx, term, limit)
	if err != nil {
		return nil, c.mapErr(err)
	}

	snippets := make([]model.RawSnippet, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		post := child.Data
		text := post.Title
		if post.SelfText != "" {
			text += " " + post.SelfText
		}
		if text == "" {
			continue
		}
		snippets = append(snippets, model.RawSnippet{
			Service:     c.Service(),
			Text:        text,
			Votes:       post.Score,
			Replies:     post.NumComments,
			HasMetrics:  true,
			PublishedAt: post.Created(),
			URL:         "https://www.reddit.com" + post.Permalink,
		})
	}
	return snippets, nil
}

func (c *ForumConnector) mapErr(err error) *SourceError {
	var st *reddit.StatusError
	if errors.As(err, &st) {
		return kindFromStatus(c.Service(), st.StatusCode, st.Body)
	}
	return classify(c.Service(), err)
}
