package waterfall

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-scout/internal/config"
	"github.com/sells-group/market-scout/internal/credential"
	"github.com/sells-group/market-scout/internal/model"
	"github.com/sells-group/market-scout/internal/source"
)

func testConfig(services ...string) *config.Config {
	cfg := &config.Config{
		Services: make(map[string]config.ServiceConfig),
		Extract:  config.ExtractConfig{MinNameLength: 4, YearWindow: 6, TextWindow: 80},
		Rank: config.RankConfig{
			SimilarityThreshold: 0.82,
			EngagementPivot:     50,
			DirectThreshold:     1.5,
			IndirectThreshold:   0.7,
		},
		Waterfall: config.WaterfallConfig{
			QueryTimeoutSecs:    5,
			RequestDeadlineSecs: 30,
			MaxRetries:          2,
			SnippetLimit:        10,
		},
	}
	for i, svc := range services {
		cfg.Services[svc] = config.ServiceConfig{Enabled: true, Priority: i + 1, Weight: 1.0}
	}
	return cfg
}

func phoneRequest() model.DiscoveryRequest {
	return model.DiscoveryRequest{
		Subject:  "Galaxy S24",
		Category: "smartphones",
		Mode:     model.ModeCompetitors,
	}
}

func TestRunCollectsAndRanks(t *testing.T) {
	news := newStub("news", stubStep{snippets: []model.RawSnippet{
		snippet("news", "iPhone 15 Pro priced at $999"),
		snippet("news", "Pixel 8 gets a price cut to $549"),
	}})
	forum := newStub("forum", stubStep{snippets: []model.RawSnippet{
		snippet("forum", "iPhone 15 Pro still worth it?"),
	}})

	o := New(testConfig("news", "forum"), []source.Connector{news, forum})
	res, err := o.Run(context.Background(), phoneRequest())

	require.NoError(t, err)
	assert.Equal(t, model.SourceLive, res.Source)
	require.Len(t, res.Entities, 2)
	// Two sources corroborate the iPhone; it outranks the single-source Pixel.
	assert.Equal(t, "iphone 15 pro", res.Entities[0].NormalizedName)
	assert.ElementsMatch(t, []string{"news", "forum"}, res.Entities[0].Sources)
	assert.Equal(t, 999.0, res.Entities[0].Price)

	require.Len(t, res.Connectors, 2)
	assert.Equal(t, model.StateCollected, res.Connectors[0].State)
	assert.Equal(t, model.StateCollected, res.Connectors[1].State)
	assert.NotEmpty(t, res.Provenance)
}

func TestRunSkipsUnauthenticatedConnector(t *testing.T) {
	news := newStub("news", stubStep{
		err: source.NewSourceError(source.Unauthenticated, "news", eris.New("status 401")),
	})
	forum := newStub("forum", stubStep{snippets: []model.RawSnippet{
		snippet("forum", "Pixel 8 on sale"),
	}})

	o := New(testConfig("news", "forum"), []source.Connector{news, forum})
	res, err := o.Run(context.Background(), phoneRequest())

	require.NoError(t, err)
	assert.Equal(t, model.SourceLive, res.Source)
	require.Len(t, res.Connectors, 2)
	assert.Equal(t, model.StateSkipped, res.Connectors[0].State)
	assert.Equal(t, "unauthenticated", res.Connectors[0].Reason)
	assert.Equal(t, model.StateCollected, res.Connectors[1].State)
	// No retries for auth failures: one call per term, then done.
	assert.Equal(t, 1, news.callCount())
}

func TestRunSkipsWhenNoCredentialAvailable(t *testing.T) {
	news := newStub("news", stubStep{
		err: eris.Wrap(credential.ErrUnavailable, "news: acquire credential"),
	})

	o := New(testConfig("news"), []source.Connector{news})
	res, err := o.Run(context.Background(), phoneRequest())

	require.NoError(t, err)
	require.Len(t, res.Connectors, 1)
	assert.Equal(t, model.StateSkipped, res.Connectors[0].State)
	assert.Equal(t, "no credential available", res.Connectors[0].Reason)
}

func TestRunRetriesNetworkErrors(t *testing.T) {
	news := newStub("news",
		stubStep{err: source.NewSourceError(source.Network, "news", eris.New("connection reset"))},
		stubStep{snippets: []model.RawSnippet{snippet("news", "iPhone 15 Pro review roundup")}},
	)

	o := New(testConfig("news"), []source.Connector{news})
	res, err := o.Run(context.Background(), phoneRequest())

	require.NoError(t, err)
	assert.Equal(t, model.SourceLive, res.Source)
	require.Len(t, res.Entities, 1)
	assert.GreaterOrEqual(t, news.callCount(), 2)
}

func TestRunFallsBackWhenAllSourcesFail(t *testing.T) {
	news := newStub("news", stubStep{
		err: source.NewSourceError(source.QuotaExceeded, "news", eris.New("quota spent")),
	})
	forum := newStub("forum", stubStep{
		err: source.NewSourceError(source.Unauthenticated, "forum", eris.New("status 403")),
	})

	o := New(testConfig("news", "forum"), []source.Connector{news, forum})
	res, err := o.Run(context.Background(), phoneRequest())

	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, res.Source)
	assert.NotEmpty(t, res.Entities)
	assert.Contains(t, res.Provenance, "fallback")
}

func TestRunEarlyStopOnTargetCount(t *testing.T) {
	news := newStub("news", stubStep{snippets: []model.RawSnippet{
		snippet("news", "iPhone 15 Pro tops the charts"),
	}})
	forum := newStub("forum", stubStep{snippets: []model.RawSnippet{
		snippet("forum", "Pixel 8 discussion"),
	}})

	req := phoneRequest()
	req.TargetCount = 1

	o := New(testConfig("news", "forum"), []source.Connector{news, forum})
	res, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, res.Connectors, 2)
	assert.Equal(t, model.StateCollected, res.Connectors[0].State)
	assert.Equal(t, model.StateSkipped, res.Connectors[1].State)
	assert.Equal(t, "target count reached", res.Connectors[1].Reason)
	assert.Zero(t, forum.callCount())
}

func TestRunHonorsPriorityOrder(t *testing.T) {
	forum := newStub("forum", stubStep{snippets: nil})
	news := newStub("news", stubStep{snippets: nil})

	// news has priority 1, forum priority 2, regardless of slice order.
	o := New(testConfig("news", "forum"), []source.Connector{forum, news})
	res, err := o.Run(context.Background(), phoneRequest())

	require.NoError(t, err)
	require.Len(t, res.Connectors, 2)
	assert.Equal(t, "news", res.Connectors[0].Service)
	assert.Equal(t, "forum", res.Connectors[1].Service)
}

func TestRunIgnoresDisabledServices(t *testing.T) {
	cfg := testConfig("news")
	cfg.Services["forum"] = config.ServiceConfig{Enabled: false}

	news := newStub("news", stubStep{snippets: nil})
	forum := newStub("forum", stubStep{snippets: nil})

	o := New(cfg, []source.Connector{news, forum})
	res, err := o.Run(context.Background(), phoneRequest())

	require.NoError(t, err)
	require.Len(t, res.Connectors, 1)
	assert.Equal(t, "news", res.Connectors[0].Service)
	assert.Zero(t, forum.callCount())
}

func TestRunConcurrentQueriesAllConnectors(t *testing.T) {
	cfg := testConfig("news", "forum", "web")
	cfg.Waterfall.Concurrent = true
	cfg.Waterfall.MaxConcurrent = 2

	news := newStub("news", stubStep{snippets: []model.RawSnippet{
		snippet("news", "iPhone 15 Pro priced at $999"),
	}})
	forum := newStub("forum", stubStep{snippets: []model.RawSnippet{
		snippet("forum", "iPhone 15 Pro thread"),
	}})
	web := newStub("web", stubStep{snippets: []model.RawSnippet{
		snippet("web", "Pixel 8 deals"),
	}})

	o := New(cfg, []source.Connector{news, forum, web})
	res, err := o.Run(context.Background(), phoneRequest())

	require.NoError(t, err)
	require.Len(t, res.Entities, 2)
	assert.Equal(t, "iphone 15 pro", res.Entities[0].NormalizedName)
	for _, s := range res.Connectors {
		assert.Equal(t, model.StateCollected, s.State)
	}
}

func TestRunDeadlineProducesPartialResult(t *testing.T) {
	cfg := testConfig("news", "forum")
	cfg.Waterfall.RequestDeadlineSecs = 1

	news := newStub("news", stubStep{snippets: []model.RawSnippet{
		snippet("news", "iPhone 15 Pro priced at $999"),
	}})
	slow := &slowConnector{service: "forum", delay: 2 * time.Second}

	o := New(cfg, []source.Connector{news, slow})
	res, err := o.Run(context.Background(), phoneRequest())

	require.NoError(t, err)
	assert.Equal(t, model.SourceLive, res.Source)
	require.NotEmpty(t, res.Entities)
	assert.Equal(t, "iphone 15 pro", res.Entities[0].NormalizedName)
}

type slowConnector struct {
	service string
	delay   time.Duration
}

func (s *slowConnector) Service() string { return s.service }

func (s *slowConnector) Query(ctx context.Context, _ string, _ int) ([]model.RawSnippet, error) {
	select {
	case <-ctx.Done():
		return nil, source.NewSourceError(source.Network, s.service, ctx.Err())
	case <-time.After(s.delay):
		return nil, nil
	}
}

func TestRunAllBoundedPool(t *testing.T) {
	news := newStub("news", stubStep{snippets: []model.RawSnippet{
		snippet("news", "iPhone 15 Pro priced at $999"),
	}})

	o := New(testConfig("news"), []source.Connector{news})
	reqs := []model.DiscoveryRequest{phoneRequest(), {
		Subject:  "Galaxy Book 3",
		Category: "laptops",
		Mode:     model.ModeCompetitors,
	}}

	results, err := o.RunAll(context.Background(), reqs, 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Galaxy S24", results[0].Request.Subject)
	assert.Equal(t, "Galaxy Book 3", results[1].Request.Subject)
	for _, r := range results {
		assert.NotEmpty(t, r.Entities)
	}
}
