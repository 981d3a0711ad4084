package source

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-scout/internal/credential"
	"github.com/sells-group/market-scout/internal/model"
	"github.com/sells-group/market-scout/pkg/newsapi"
)

// NewsConnector adapts the NewsAPI article search.
type NewsConnector struct {
	client newsapi.Client
	creds  *credential.Manager
}

// NewNewsConnector creates the news connector.
func NewNewsConnector(client newsapi.Client, creds *credential.Manager) *NewsConnector {
	return &NewsConnector{client: client, creds: creds}
}

func (c *NewsConnector) Service() string { return "news" }

// Query searches recent articles. Article title and description are joined
// into one snippet; NewsAPI reports no engagement metrics.
func (c *NewsConnector) Query(ctx context.Context, term string, limit int) ([]model.RawSnippet, error) {
	cred, err := c.creds.Acquire(c.Service())
	if err != nil {
		return nil, eris.Wrap(err, "news: acquire credential")
	}

	resp, err := c.client.Everything(ctx, cred.Secret, term, limit)
	if err != nil {
		se := c.mapErr(err)
		c.creds.Report(cred, outcomeFor(se))
		return nil, se
	}
	c.creds.Report(cred, credential.Success)

	snippets := make([]model.RawSnippet, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		text := a.Title
		if a.Description != "" {
			text += " " + a.Description
		}
		if text == "" {
			continue
		}
		snippets = append(snippets, model.RawSnippet{
			Service:     c.Service(),
			Text:        text,
			PublishedAt: a.PublishedAt,
			URL:         a.URL,
		})
	}
	return snippets, nil
}

func (c *NewsConnector) mapErr(err error) *SourceError {
	var st *newsapi.StatusError
	if errors.As(err, &st) {
		// The developer tier reports daily exhaustion as 429 with a
		// rateLimited code; there is no separate quota status.
		return kindFromStatus(c.Service(), st.StatusCode, st.Body)
	}
	return classify(c.Service(), err)
}
