package montecarlo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runPool executes tasks 1..n on at most workers goroutines and hands
// outcomes, in completion order, to collect on a single goroutine — the
// experiment record stays a single-writer resource. It returns once every
// started task has been collected. Tasks not yet started when ctx is
// cancelled are skipped; in-flight replicas run to completion and are
// still delivered, so the collector decides what to do with them.
func runPool(ctx context.Context, n, workers int, makeTask func(i int) replicaTask, collect func(replicaOutcome)) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	outcomes := make(chan replicaOutcome, workers)
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for o := range outcomes {
			collect(o)
		}
	}()

	for i := 1; i <= n; i++ {
		if gctx.Err() != nil {
			break
		}
		task := makeTask(i)
		g.Go(func() error {
			outcomes <- runReplica(task)
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)
	<-collectorDone
}
