package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FeedStats counts the samples that went in and out of a feed during a run. There is no error
// count: a failing source aborts the run via ErrorSource, so a completed run has none.
type FeedStats struct {
	In  int64
	Out int64
}

// runStats accumulates per-feed statistics over the course of an engine run. All methods are safe
// for concurrent use by multiple workers.
type runStats struct {
	m     sync.Mutex
	feeds map[Feed]*FeedStats
}

func newRunStats(feeds []Feed) runStats {
	fs := make(map[Feed]*FeedStats, len(feeds))
	for _, f := range feeds {
		fs[f] = &FeedStats{}
	}
	return runStats{feeds: fs}
}

func (r *runStats) IncrFeedIn(f Feed) {
	r.m.Lock()
	defer r.m.Unlock()
	r.feeds[f].In++
}

func (r *runStats) IncrFeedOut(f Feed) {
	r.m.Lock()
	defer r.m.Unlock()
	r.feeds[f].Out++
}

// Summary returns a human-readable description of the stats, one feed per line.
func (r *runStats) Summary() string {
	r.m.Lock()
	defer r.m.Unlock()

	var names []string
	byName := make(map[string]*FeedStats, len(r.feeds))
	for f, stats := range r.feeds {
		names = append(names, f.Name())
		byName[f.Name()] = stats
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		stats := byName[name]
		fmt.Fprintf(&b, "%s: in=%d out=%d\n", name, stats.In, stats.Out)
	}
	return b.String()
}
