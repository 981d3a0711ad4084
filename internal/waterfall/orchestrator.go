// Package waterfall orchestrates discovery requests across source connectors
// in priority order, with retries, rate compliance and a curated fallback.
package waterfall

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/market-scout/internal/config"
	"github.com/sells-group/market-scout/internal/credential"
	"github.com/sells-group/market-scout/internal/extract"
	"github.com/sells-group/market-scout/internal/fallback"
	"github.com/sells-group/market-scout/internal/model"
	"github.com/sells-group/market-scout/internal/rank"
	"github.com/sells-group/market-scout/internal/resilience"
	"github.com/sells-group/market-scout/internal/source"
)

// Orchestrator runs one discovery request through the connector waterfall.
type Orchestrator struct {
	cfg        config.WaterfallConfig
	extractCfg config.ExtractConfig
	connectors []source.Connector
	ranker     *rank.Ranker
	limiters   map[string]*rate.Limiter
	now        func() time.Time
}

// New builds an orchestrator from the full config and the available
// connectors. Disabled services are dropped; the rest are ordered by their
// configured priority (lowest number first).
func New(cfg *config.Config, connectors []source.Connector) *Orchestrator {
	weights := make(map[string]float64)
	limiters := make(map[string]*rate.Limiter)
	var active []source.Connector

	for _, c := range connectors {
		sc, ok := cfg.Services[c.Service()]
		if !ok || !sc.Enabled {
			zap.L().Info("connector disabled", zap.String("service", c.Service()))
			continue
		}
		active = append(active, c)
		weights[c.Service()] = sc.Weight

		limit := rate.Inf
		if iv := sc.MinInterval(); iv > 0 {
			limit = rate.Every(iv)
		}
		limiters[c.Service()] = rate.NewLimiter(limit, 1)
	}

	sort.SliceStable(active, func(i, j int) bool {
		return cfg.Services[active[i].Service()].Priority < cfg.Services[active[j].Service()].Priority
	})

	return &Orchestrator{
		cfg:        cfg.Waterfall,
		extractCfg: cfg.Extract,
		connectors: active,
		ranker:     rank.New(cfg.Rank, weights),
		limiters:   limiters,
		now:        time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (o *Orchestrator) WithNow(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Run executes the waterfall for one request. It never returns an empty
// result for a healthy process: when every live source fails the curated
// fallback dataset is returned, tagged as such.
func (o *Orchestrator) Run(ctx context.Context, req model.DiscoveryRequest) (*model.DiscoveryResult, error) {
	started := o.now()

	if d := o.cfg.RequestDeadline(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	extractor := extract.New(o.extractCfg, req)
	terms := extract.Terms(req)

	var observations []model.EntityObservation
	var statuses []model.ConnectorStatus
	if o.cfg.Concurrent {
		observations, statuses = o.runConcurrent(ctx, extractor, terms)
	} else {
		observations, statuses = o.runSequential(ctx, extractor, terms, req.TargetCount)
	}

	entities := o.ranker.Rank(observations)

	result := &model.DiscoveryResult{
		Request:    req,
		Entities:   entities,
		Source:     model.SourceLive,
		Connectors: statuses,
		StartedAt:  started,
	}

	if len(entities) == 0 {
		curated, err := fallback.Entities(req)
		if err != nil {
			return nil, err
		}
		zap.L().Warn("live discovery produced no entities, serving fallback",
			zap.String("subject", req.Subject),
			zap.String("category", req.Category),
		)
		result.Entities = curated
		result.Source = model.SourceFallback
		result.Provenance = fmt.Sprintf("curated fallback dataset for category %q", req.Category)
	} else {
		collected := 0
		for _, s := range statuses {
			if s.State == model.StateCollected {
				collected++
			}
		}
		result.Provenance = fmt.Sprintf("live discovery: %d of %d sources collected, %d observations",
			collected, len(o.connectors), len(observations))
	}

	result.Duration = o.now().Sub(started)
	return result, nil
}

// runSequential walks connectors in priority order, stopping early once the
// unique canonical count reaches the target or the request deadline expires.
func (o *Orchestrator) runSequential(ctx context.Context, extractor *extract.Extractor, terms []string, target int) ([]model.EntityObservation, []model.ConnectorStatus) {
	var observations []model.EntityObservation
	statuses := make([]model.ConnectorStatus, 0, len(o.connectors))

	for i, c := range o.connectors {
		if ctx.Err() != nil {
			statuses = append(statuses, skipRest(o.connectors[i:], "request deadline reached")...)
			break
		}
		if target > 0 && o.ranker.UniqueCount(observations) >= target {
			statuses = append(statuses, skipRest(o.connectors[i:], "target count reached")...)
			break
		}

		obs, status := o.queryConnector(ctx, c, extractor, terms)
		observations = append(observations, obs...)
		statuses = append(statuses, status)
	}
	return observations, statuses
}

// runConcurrent queries all connectors at once through a bounded pool. Each
// connector owns a distinct service, so the credential pools and rate
// limiters remain the only shared state. Early stop does not apply; the
// deterministic merge step makes arrival order irrelevant.
func (o *Orchestrator) runConcurrent(ctx context.Context, extractor *extract.Extractor, terms []string) ([]model.EntityObservation, []model.ConnectorStatus) {
	statuses := make([]model.ConnectorStatus, len(o.connectors))
	perConnector := make([][]model.EntityObservation, len(o.connectors))

	g, gctx := errgroup.WithContext(ctx)
	limit := o.cfg.MaxConcurrent
	if limit <= 0 {
		limit = len(o.connectors)
	}
	g.SetLimit(limit)

	for i, c := range o.connectors {
		g.Go(func() error {
			perConnector[i], statuses[i] = o.queryConnector(gctx, c, extractor, terms)
			return nil
		})
	}
	_ = g.Wait()

	var observations []model.EntityObservation
	for _, obs := range perConnector {
		observations = append(observations, obs...)
	}
	return observations, statuses
}

// queryConnector runs every term against one connector, applying the rate
// compliance delay, the per-call timeout and the retry policy. A failure that
// survives retries ends the connector for this request; snippets gathered by
// earlier terms are kept.
func (o *Orchestrator) queryConnector(ctx context.Context, c source.Connector, extractor *extract.Extractor, terms []string) ([]model.EntityObservation, model.ConnectorStatus) {
	status := model.ConnectorStatus{Service: c.Service()}
	limiter := o.limiters[c.Service()]

	var observations []model.EntityObservation
	for _, term := range terms {
		if err := limiter.Wait(ctx); err != nil {
			return observations, terminal(status, model.StateSkipped, "request deadline reached")
		}

		snippets, err := o.query(ctx, c, term)
		if err != nil {
			state, reason := disposition(err)
			if status.Snippets > 0 {
				// Partial collection still counts; note the cutoff.
				status.State = model.StateCollected
				status.Reason = reason
				return observations, status
			}
			return observations, terminal(status, state, reason)
		}

		status.Snippets += len(snippets)
		for _, s := range snippets {
			observations = append(observations, extractor.Extract(s)...)
		}
	}

	status.State = model.StateCollected
	return observations, status
}

// query performs a single term lookup with timeout and retries.
func (o *Orchestrator) query(ctx context.Context, c source.Connector, term string) ([]model.RawSnippet, error) {
	retryCfg := resilience.RetryConfig{
		MaxAttempts: o.cfg.MaxRetries + 1,
		ShouldRetry: source.Retryable,
		OnRetry:     resilience.RetryLogger(c.Service(), term),
	}

	return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([]model.RawSnippet, error) {
		qctx := ctx
		if t := o.cfg.QueryTimeout(); t > 0 {
			var cancel context.CancelFunc
			qctx, cancel = context.WithTimeout(ctx, t)
			defer cancel()
		}

		snippets, err := c.Query(qctx, term, o.cfg.SnippetLimit)
		if err != nil && errors.Is(qctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			// The per-call budget expired, not the request. Treat as a slow
			// network, which the retry policy covers.
			return nil, source.NewSourceError(source.Network, c.Service(), err)
		}
		return snippets, err
	})
}

// disposition maps a terminal query error to the connector's final state.
// Credential exhaustion and auth or quota failures skip the connector (no
// point hammering it again this request); worn-out retries mark it failed.
func disposition(err error) (model.ConnectorState, string) {
	if errors.Is(err, credential.ErrUnavailable) {
		return model.StateSkipped, "no credential available"
	}
	if kind, ok := source.KindOf(err); ok {
		switch kind {
		case source.Unauthenticated, source.QuotaExceeded, source.RateLimited:
			return model.StateSkipped, kind.String()
		}
	}
	return model.StateFailed, err.Error()
}

func terminal(status model.ConnectorStatus, state model.ConnectorState, reason string) model.ConnectorStatus {
	status.State = state
	status.Reason = reason
	if state != model.StateCollected {
		zap.L().Warn("connector did not collect",
			zap.String("service", status.Service),
			zap.String("state", string(state)),
			zap.String("reason", reason),
		)
	}
	return status
}

func skipRest(rest []source.Connector, reason string) []model.ConnectorStatus {
	statuses := make([]model.ConnectorStatus, 0, len(rest))
	for _, c := range rest {
		statuses = append(statuses, model.ConnectorStatus{
			Service: c.Service(),
			State:   model.StateSkipped,
			Reason:  reason,
		})
	}
	return statuses
}
