package pipeline

import (
	"fmt"
	"io"
	"log"
)

// worker holds per-worker clones of a pipeline's dependent feeds, letting several workers push
// records through the graph concurrently.
type worker struct {
	clone  PipeClone
	stats  *runStats
	logger io.Writer
}

func newWorker(r *runner) (worker, error) {
	clone, err := r.clone.CloneForWorker()
	if err != nil {
		return worker{}, err
	}

	return worker{
		clone:  clone,
		stats:  &r.stats,
		logger: r.opts.Logger,
	}, nil
}

// Process pushes one record from the given source through every dependent reachable from it.
func (w worker) Process(s Source, rec Record) {
	w.logf("processing %s/%s", s.Name(), rec.Key)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic processing source %s, key %v", s.Name(), rec.Key)
			panic(r)
		}
	}()

	for _, dep := range w.clone.Dependents[s] {
		w.feed(dep, rec.Value)
	}
}

// ClonedAggregator returns this worker's clone of the given shard-level aggregator.
func (w worker) ClonedAggregator(agg Aggregator) Aggregator {
	return w.clone.OrigToClone[agg].(Aggregator)
}

// feed hands the sample to d and, if d is a Transform, recursively feeds its outputs to d's own
// dependents. A nil transform output always means "done for this input": unrecoverable input
// problems never travel through the graph, they are reported by the source via ErrorSource and
// abort the run.
func (w worker) feed(d Dependent, in Sample) {
	w.stats.IncrFeedIn(w.clone.CloneToOrig[d])

	d.In(in)

	t, ok := d.(Transform)
	if !ok {
		return
	}

	for {
		out := t.TransformOut()
		if out == nil {
			return
		}

		w.stats.IncrFeedOut(w.clone.CloneToOrig[t])

		for _, dep := range w.clone.Dependents[t] {
			w.feed(dep, out)
		}
	}
}

func (w worker) logf(fstr string, args ...interface{}) {
	if w.logger != nil {
		fmt.Fprintf(w.logger, fstr+"\n", args...)
	}
}
