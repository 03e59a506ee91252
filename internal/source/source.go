// Package source delivers snapshot events to the pipeline, one at a time.
package source

import (
	"context"

	"github.com/hpungsan/glean/internal/pipeline"
	"github.com/hpungsan/glean/internal/snapshot"
)

// Sink consumes events. *pipeline.Coordinator implements it.
type Sink interface {
	HandleEvent(ctx context.Context, ev pipeline.Event) pipeline.Result
}

// deliver wraps doc in a tree, hands it to sink and returns the result
// along with the tree so callers can check handle accounting.
func deliver(ctx context.Context, sink Sink, doc *snapshot.Doc) (pipeline.Result, *snapshot.Tree) {
	tree := snapshot.NewTree(doc)
	return sink.HandleEvent(ctx, pipeline.NewEvent(tree.Root())), tree
}
