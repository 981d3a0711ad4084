package source

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-scout/internal/credential"
	"github.com/sells-group/market-scout/internal/model"
	"github.com/sells-group/market-scout/pkg/serp"
)

// WebConnector adapts a SerpAPI-backed Google web search.
type WebConnector struct {
	client serp.Client
	creds  *credential.Manager
}

// NewWebConnector creates the web search connector.
func NewWebConnector(client serp.Client, creds *credential.Manager) *WebConnector {
	return &WebConnector{client: client, creds: creds}
}

func (c *WebConnector) Service() string { return "web" }

// Query runs a web search. Organic results carry no engagement metrics.
func (c *WebConnector) Query(ctx context.Context, term string, limit int) ([]model.RawSnippet, error) {
	cred, err := c.creds.Acquire(c.Service())
	if err != nil {
		return nil, eris.Wrap(err, "web: acquire credential")
	}

	resp, err := c.client.Search(ctx, cred.Secret, term, limit)
	if err != nil {
		se := c.mapErr(err)
		c.creds.Report(cred, outcomeFor(se))
		return nil, se
	}
	c.creds.Report(cred, credential.Success)

	snippets := make([]model.RawSnippet, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		text := r.Title
		if r.Snippet != "" {
			text += " " + r.Snippet
		}
		if text == "" {
			continue
		}
		snippets = append(snippets, model.RawSnippet{
			Service: c.Service(),
			Text:    text,
			URL:     r.Link,
		})
	}
	return snippets, nil
}

func (c *WebConnector) mapErr(err error) *SourceError {
	var st *serp.StatusError
	if errors.As(err, &st) {
		// SerpAPI reports a spent monthly search budget as 429 with a
		// run-out-of-searches message; treat any 429 here as quota, not a
		// momentary rate limit, since the plan resets monthly.
		if st.StatusCode == 429 {
			return NewSourceError(QuotaExceeded, c.Service(), err)
		}
		return kindFromStatus(c.Service(), st.StatusCode, st.Body)
	}
	return classify(c.Service(), err)
}
