package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/hpungsan/glean/internal/feed"
)

// feedPrinter prints the items of each feed snapshot that were not in the
// previous one, oldest first.
type feedPrinter struct {
	seen    map[string]bool
	started bool
}

func (p *feedPrinter) print(w io.Writer, s feed.Snapshot) {
	if p.seen == nil {
		p.seen = make(map[string]bool)
	}
	gray := color.New(color.FgHiBlack).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fresh := make([]string, 0, len(s.Items))
	for i := len(s.Items) - 1; i >= 0; i-- {
		if !p.seen[s.Items[i]] {
			fresh = append(fresh, s.Items[i])
		}
	}

	next := make(map[string]bool, len(s.Items))
	for _, it := range s.Items {
		next[it] = true
	}
	p.seen = next

	stamp := s.At.Format("15:04:05")
	if !p.started {
		p.started = true
		fmt.Fprintf(w, "%s %d recent item(s)\n", gray(stamp), len(fresh))
	}
	for _, it := range fresh {
		fmt.Fprintf(w, "%s %s\n", gray(stamp), cyan(it))
	}
}
