package source

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-scout/internal/credential"
	"github.com/sells-group/market-scout/internal/model"
	"github.com/sells-group/market-scout/pkg/twitter"
)

// MicroblogConnector adapts the Twitter v2 recent search.
type MicroblogConnector struct {
	client twitter.Client
	creds  *credential.Manager
}

// NewMicroblogConnector creates the microblog connector.
func NewMicroblogConnector(client twitter.Client, creds *credential.Manager) *MicroblogConnector {
	return &MicroblogConnector{client: client, creds: creds}
}

func (c *MicroblogConnector) Service() string { return "microblog" }

// Query searches recent tweets. Likes, retweets and replies ride along as
// engagement metrics.
func (c *MicroblogConnector) Query(ctx context.Context, term string, limit int) ([]model.RawSnippet, error) {
	cred, err := c.creds.Acquire(c.Service())
	if err != nil {
		return nil, eris.Wrap(err, "microblog: acquire credential")
	}

	resp, err := c.client.RecentSearch(ctx, cred.Secret, term, limit)
	if err != nil {
		se := c.mapErr(err)
		c.creds.Report(cred, outcomeFor(se))
		return nil, se
	}
	c.creds.Report(cred, credential.Success)

	snippets := make([]model.RawSnippet, 0, len(resp.Data))
	for _, t := range resp.Data {
		if t.Text == "" {
			continue
		}
		snippets = append(snippets, model.RawSnippet{
			Service:     c.Service(),
			Text:        t.Text,
			Likes:       t.PublicMetrics.LikeCount,
			Shares:      t.PublicMetrics.RetweetCount + t.PublicMetrics.QuoteCount,
			Replies:     t.PublicMetrics.ReplyCount,
			HasMetrics:  true,
			PublishedAt: t.CreatedAt,
			URL:         "https://twitter.com/i/status/" + t.ID,
		})
	}
	return snippets, nil
}

func (c *MicroblogConnector) mapErr(err error) *SourceError {
	var st *twitter.StatusError
	if errors.As(err, &st) {
		return kindFromStatus(c.Service(), st.StatusCode, st.Body)
	}
	return classify(c.Service(), err)
}
