package pipeline

import (
	"fmt"
)

// PipeClone is a copy of a pipeline's feed graph in which some feeds have been replaced by clones:
// sources and aggregators for a shard clone, every dependent for a worker clone. The bidirectional
// feed mapping lets the engine and workers translate between a clone and its original.
type PipeClone struct {
	Sources    []Source
	Parents    ParentMap
	Dependents DependentMap

	OrigToClone map[Feed]Feed
	CloneToOrig map[Feed]Feed
}

// CloneForShard clones the pipeline's sources and aggregators for one shard via their ForShard
// methods. Other dependents are carried as-is; they are cloned per worker, not per shard.
func (p Pipeline) CloneForShard(shard, totalShards int) (PipeClone, error) {
	return clonePipe(p.Sources, p.Parents, func(f Feed) (Feed, error) {
		var c Feed
		var err error
		switch f := f.(type) {
		case Source:
			c, err = f.ForShard(shard, totalShards)
		case Aggregator:
			c, err = f.ForShard(shard, totalShards)
		default:
			return f, nil
		}
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("feed %s returned a nil shard clone", f.Name())
		}
		return c, nil
	})
}

// CloneForWorker clones every dependent of a shard-level PipeClone for one worker. The sources are
// shared: workers pull records from a common source, they only need private dependent state.
func (p PipeClone) CloneForWorker() (PipeClone, error) {
	return clonePipe(p.Sources, p.Parents, func(f Feed) (Feed, error) {
		d, ok := f.(Dependent)
		if !ok {
			return f, nil
		}

		c := d.Clone()
		if c == nil {
			return nil, fmt.Errorf("feed %s returned a nil clone", f.Name())
		}
		if _, ok := d.(Transform); ok {
			if _, ok := c.(Transform); !ok {
				return nil, fmt.Errorf("clone of transform %s is not a Transform", f.Name())
			}
		}
		if _, ok := d.(Aggregator); ok {
			if _, ok := c.(Aggregator); !ok {
				return nil, fmt.Errorf("clone of aggregator %s is not an Aggregator", f.Name())
			}
		}
		return c, nil
	})
}

func clonePipe(sources []Source, parents ParentMap, cloneFn func(Feed) (Feed, error)) (PipeClone, error) {
	c := PipeClone{
		OrigToClone: make(map[Feed]Feed, len(sources)+len(parents)),
		CloneToOrig: make(map[Feed]Feed, len(sources)+len(parents)),
	}

	for _, src := range sources {
		cl, err := cloneFn(src)
		if err != nil {
			return PipeClone{}, fmt.Errorf("error cloning source %s: %v", src.Name(), err)
		}
		c.Sources = append(c.Sources, cl.(Source))
		c.OrigToClone[src] = cl
		c.CloneToOrig[cl] = src
	}

	for dep := range parents {
		cl, err := cloneFn(dep)
		if err != nil {
			return PipeClone{}, fmt.Errorf("error cloning dependent %s: %v", dep.Name(), err)
		}
		c.OrigToClone[dep] = cl
		c.CloneToOrig[cl] = dep
	}

	cloneOf := func(f Feed) Feed {
		if cl, found := c.OrigToClone[f]; found {
			return cl
		}
		return f
	}

	c.Parents = make(ParentMap, len(parents))
	for dep, parent := range parents {
		c.Parents[cloneOf(dep).(Dependent)] = cloneOf(parent)
	}
	c.Dependents = NewDependentMap(c.Parents)

	return c, nil
}
