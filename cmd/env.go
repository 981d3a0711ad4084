package main

import (
	"context"

	"github.com/sells-group/market-scout/internal/config"
	"github.com/sells-group/market-scout/internal/credential"
	"github.com/sells-group/market-scout/internal/source"
	"github.com/sells-group/market-scout/internal/store"
	"github.com/sells-group/market-scout/internal/waterfall"
	"github.com/sells-group/market-scout/pkg/newsapi"
	"github.com/sells-group/market-scout/pkg/reddit"
	"github.com/sells-group/market-scout/pkg/serp"
	"github.com/sells-group/market-scout/pkg/twitter"
	"github.com/sells-group/market-scout/pkg/wikipedia"
	"github.com/sells-group/market-scout/pkg/youtube"
)

// env bundles the wired engine for the command layer.
type env struct {
	creds *credential.Manager
	orch  *waterfall.Orchestrator
	store store.Store
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// credentialManager builds one pool per configured service.
func credentialManager(cfg *config.Config) *credential.Manager {
	specs := make([]credential.PoolSpec, 0, len(cfg.Services))
	for name, sc := range cfg.Services {
		specs = append(specs, credential.PoolSpec{
			Service:   name,
			Override:  sc.KeyOverride,
			Primary:   sc.Keys,
			Secondary: sc.KeysSecondary,
			Cooldown:  sc.Cooldown(),
		})
	}
	return credential.NewManager(specs)
}

// connectors builds every known connector. The orchestrator drops the ones
// whose service is disabled in config.
func connectors(cfg *config.Config, creds *credential.Manager) []source.Connector {
	var newsOpts []newsapi.Option
	if u := cfg.Services["news"].BaseURL; u != "" {
		newsOpts = append(newsOpts, newsapi.WithBaseURL(u))
	}
	var videoOpts []youtube.Option
	if u := cfg.Services["video"].BaseURL; u != "" {
		videoOpts = append(videoOpts, youtube.WithBaseURL(u))
	}
	var microblogOpts []twitter.Option
	if u := cfg.Services["microblog"].BaseURL; u != "" {
		microblogOpts = append(microblogOpts, twitter.WithBaseURL(u))
	}
	var forumOpts []reddit.Option
	if u := cfg.Services["forum"].BaseURL; u != "" {
		forumOpts = append(forumOpts, reddit.WithBaseURL(u))
	}
	var webOpts []serp.Option
	if u := cfg.Services["web"].BaseURL; u != "" {
		webOpts = append(webOpts, serp.WithBaseURL(u))
	}
	var knowledgeOpts []wikipedia.Option
	if u := cfg.Services["knowledge"].BaseURL; u != "" {
		knowledgeOpts = append(knowledgeOpts, wikipedia.WithBaseURL(u))
	}

	return []source.Connector{
		source.NewNewsConnector(newsapi.NewClient(newsOpts...), creds),
		source.NewVideoConnector(youtube.NewClient(videoOpts...), creds),
		source.NewMicroblogConnector(twitter.NewClient(microblogOpts...), creds),
		source.NewForumConnector(reddit.NewClient(forumOpts...)),
		source.NewWebConnector(serp.NewClient(webOpts...), creds),
		source.NewKnowledgeConnector(wikipedia.NewClient(knowledgeOpts...)),
	}
}

// initEnv wires the engine. withStore controls whether the audit store is
// opened; read-only commands like "keys" skip it.
func initEnv(ctx context.Context, withStore bool) (*env, error) {
	creds := credentialManager(cfg)
	orch := waterfall.New(cfg, connectors(cfg, creds))

	e := &env{creds: creds, orch: orch}
	if withStore {
		s, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		e.store = s
	}
	return e, nil
}
