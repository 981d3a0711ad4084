package waterfall

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/market-scout/internal/model"
)

// RunAll executes independent requests through a bounded worker pool. The
// pool size caps pressure on shared per-service rate budgets; results come
// back in request order. A failed request aborts the batch.
func (o *Orchestrator) RunAll(ctx context.Context, reqs []model.DiscoveryRequest, maxConcurrent int) ([]*model.DiscoveryResult, error) {
	results := make([]*model.DiscoveryResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	g.SetLimit(maxConcurrent)

	for i, req := range reqs {
		g.Go(func() error {
			res, err := o.Run(gctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
