package source

import (
	"context"
	"time"

	"github.com/hpungsan/glean/internal/pipeline"
	"github.com/hpungsan/glean/internal/snapshot"
)

// FileResult is the outcome of replaying one snapshot file.
type FileResult struct {
	Path   string          `json:"path"`
	Result pipeline.Result `json:"result"`
}

// ReplayFiles delivers each file as one event, in order, waiting gap
// between deliveries so a rate limiter does not drop them. It stops at
// the first file that cannot be read or decoded.
func ReplayFiles(ctx context.Context, sink Sink, paths []string, gap time.Duration) ([]FileResult, error) {
	results := make([]FileResult, 0, len(paths))
	for i, path := range paths {
		if i > 0 && gap > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(gap):
			}
		}

		doc, err := snapshot.ReadFile(path)
		if err != nil {
			return results, err
		}
		res, _ := deliver(ctx, sink, doc)
		results = append(results, FileResult{Path: path, Result: res})
	}
	return results, nil
}
