package pipeline

import (
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"
)

// EngineOptions modify how the engine runs a pipeline.
type EngineOptions struct {
	// NumWorkers is the number of workers that concurrently run records through the pipeline.
	// If <= 0, the number of CPUs is used.
	NumWorkers int
	// Logger, if non-nil, receives verbose per-record logging. Useful for debugging, very noisy
	// for real runs.
	Logger io.Writer
	// OnlyKeys optionally restricts the records processed from a source (keyed by source name) to
	// the given record keys. Useful for debugging specific records.
	OnlyKeys map[string][]string
}

// DefaultEngineOptions to use for running a pipeline.
var DefaultEngineOptions = EngineOptions{}

// Engine runs a Pipeline to completion and aggregates the results of its Aggregators.
type Engine struct {
	pipe Pipeline
	opts EngineOptions
}

// NewEngine validates the pipeline and returns an engine that can run it.
func NewEngine(pipe Pipeline, opts EngineOptions) (*Engine, error) {
	if err := pipe.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline %s: %v", pipe.Name, err)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = runtime.NumCPU()
	}

	return &Engine{
		pipe: pipe,
		opts: opts,
	}, nil
}

// Run the pipeline until all sources are exhausted, then aggregate. The returned map contains the
// final Sample for each Aggregator in the pipeline.
//
// Sources are drained one at a time, each one concurrently by NumWorkers workers. If a source
// implements ErrorSource and reports an error after draining, the run is aborted and the error
// returned.
func (e *Engine) Run() (map[Aggregator]Sample, error) {
	r, err := newRunner(e.pipe, e.opts)
	if err != nil {
		return nil, err
	}
	return r.run()
}

type runner struct {
	pipe Pipeline
	opts EngineOptions

	// clone of the pipeline for this shard; workers are cloned from this
	clone PipeClone

	stats runStats
}

func newRunner(pipe Pipeline, opts EngineOptions) (*runner, error) {
	clone, err := pipe.CloneForShard(0, 1)
	if err != nil {
		return nil, fmt.Errorf("error cloning pipeline %s for shard: %v", pipe.Name, err)
	}

	var feeds []Feed
	for _, s := range clone.Sources {
		feeds = append(feeds, s)
	}
	for dep := range clone.Parents {
		feeds = append(feeds, dep)
	}

	return &runner{
		pipe:  pipe,
		opts:  opts,
		clone: clone,
		stats: newRunStats(feeds),
	}, nil
}

func (r *runner) run() (map[Aggregator]Sample, error) {
	workers := make([]worker, 0, r.opts.NumWorkers)
	for i := 0; i < r.opts.NumWorkers; i++ {
		w, err := newWorker(r)
		if err != nil {
			return nil, fmt.Errorf("error creating worker: %v", err)
		}
		workers = append(workers, w)
	}

	for _, source := range r.clone.Sources {
		if err := r.drainSource(source, workers); err != nil {
			return nil, err
		}
	}

	results := make(map[Aggregator]Sample)

	for _, agg := range r.pipe.Aggregators() {
		shardAgg := r.clone.OrigToClone[agg].(Aggregator)

		clones := make([]Aggregator, 0, len(workers))
		for _, w := range workers {
			clones = append(clones, w.ClonedAggregator(shardAgg))
		}

		res, err := shardAgg.AggregateLocal(clones)
		if err != nil {
			return nil, fmt.Errorf("error aggregating %s: %v", agg.Name(), err)
		}
		if err := shardAgg.Finalize(); err != nil {
			return nil, fmt.Errorf("error finalizing %s: %v", agg.Name(), err)
		}
		results[agg] = res
	}

	log.Printf("pipeline %s done:\n%s", r.pipe.Name, r.stats.Summary())

	return results, nil
}

func (r *runner) drainSource(source Source, workers []worker) error {
	only := r.onlyKeys(source)

	recs := make(chan Record, len(workers))

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w worker) {
			defer wg.Done()
			for rec := range recs {
				w.Process(source, rec)
			}
		}(w)
	}

	for {
		rec := source.SourceOut()
		if rec == (Record{}) {
			break
		}
		if only != nil {
			if _, found := only[rec.Key]; !found {
				continue
			}
		}
		recs <- rec
	}
	close(recs)
	wg.Wait()

	if es, ok := source.(ErrorSource); ok {
		if err := es.Err(); err != nil {
			return fmt.Errorf("source %s failed: %v", source.Name(), err)
		}
	}

	return nil
}

func (r *runner) onlyKeys(source Source) map[string]struct{} {
	keys, found := r.opts.OnlyKeys[source.Name()]
	if !found {
		return nil
	}

	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}
