package source

import (
	"context"
	"errors"

	"github.com/sells-group/market-scout/internal/model"
	"github.com/sells-group/market-scout/pkg/wikipedia"
)

// KnowledgeConnector adapts the Wikipedia search API. Credential-free.
type KnowledgeConnector struct {
	client wikipedia.Client
}

// NewKnowledgeConnector creates the knowledge base connector.
func NewKnowledgeConnector(client wikipedia.Client) *KnowledgeConnector {
	return &KnowledgeConnector{client: client}
}

func (c *KnowledgeConnector) Service() string { return "knowledge" }

// Query searches article titles and content.
func (c *KnowledgeConnector) Query(ctx context.Context, term string, limit int) ([]model.RawSnippet, error) {
	resp, err := c.client.Search(ctx, term, limit)
	if err != nil {
		return nil, c.mapErr(err)
	}

	snippets := make([]model.RawSnippet, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		text := hit.Title + " " + hit.PlainSnippet()
		snippets = append(snippets, model.RawSnippet{
			Service:     c.Service(),
			Text:        text,
			PublishedAt: hit.Timestamp,
			URL:         "https://en.wikipedia.org/wiki/" + hit.Title,
		})
	}
	return snippets, nil
}

func (c *KnowledgeConnector) mapErr(err error) *SourceError {
	var st *wikipedia.StatusError
	if errors.As(err, &st) {
		return kindFromStatus(c.Service(), st.StatusCode, st.Body)
	}
	return classify(c.Service(), err)
}
