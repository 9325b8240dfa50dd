package replay

import (
	"context"

	"golang.org/x/sync/errgroup"

	"apitap/internal/skillstore"
)

const maxConcurrentReplays = 6

// BatchItem is one request within a batch replay.
type BatchItem struct {
	Skill      *skillstore.SkillFile
	EndpointID string
	Params     Params
}

// BatchResult pairs a BatchItem's outcome with its originating index so
// callers can correlate results back to their input order.
type BatchResult struct {
	Index  int
	Result Result
	Err    error
}

// ReplayBatch runs every item concurrently, bounded by
// maxConcurrentReplays, isolating failures per request: one item's error
// never aborts the others.
func (e *Engine) ReplayBatch(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentReplays)

	for i, item := range items {
		i, item := i, item
		group.Go(func() error {
			result, err := e.Replay(groupCtx, item.Skill, item.EndpointID, item.Params)
			results[i] = BatchResult{Index: i, Result: result, Err: err}
			return nil // isolate: never fail the group for one item's error
		})
	}
	_ = group.Wait()
	return results
}
