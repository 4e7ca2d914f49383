package cogroup

import (
	"os"
	"sort"

	"github.com/witml/witbuild/awsutil"
	"github.com/witml/witbuild/errors"
	"github.com/witml/witbuild/pipeline"
)

// GroupedEntry holds, for a single key, the samples each stream contributed. Streams that did not
// contribute any samples for the key have an empty slice; this is what makes the co-group a full
// outer join.
type GroupedEntry struct {
	// Values[i] holds the samples from stream i (in the order the streams were passed to
	// NewGroupedSource) that shared the key.
	Values [][]pipeline.Sample
}

// SampleTag implements pipeline.Sample
func (GroupedEntry) SampleTag() {}

// Stream returns the samples contributed by stream i.
func (g GroupedEntry) Stream(i int) []pipeline.Sample {
	return g.Values[i]
}

// GroupedSource is a pipeline.Source that replays a spool written by Spoolers, emitting one record
// per distinct key. The record value is a pipeline.Keyed wrapping a GroupedEntry. Keys within a
// partition are emitted in sorted order, so replaying the same spool always produces the same
// sequence of records.
type GroupedSource struct {
	opts    Opts
	name    string
	dir     string
	streams []Stream

	parts []int
	pos   int

	recs []pipeline.Record
	idx  int

	err error
}

// NewGroupedSource replaying the spool files for the given streams under dir. The streams must be
// passed in the same order as the tags their Spoolers were created with.
func NewGroupedSource(opts Opts, name, dir string, streams ...Stream) *GroupedSource {
	if opts.Partitions <= 0 {
		opts.Partitions = DefaultOpts.Partitions
	}

	return &GroupedSource{
		opts:    opts,
		name:    name,
		dir:     dir,
		streams: streams,
	}
}

// Name implements pipeline.Source
func (g *GroupedSource) Name() string {
	return g.name
}

// ForShard implements pipeline.Source; partitions are striped across shards.
func (g *GroupedSource) ForShard(shard, totalShards int) (pipeline.Source, error) {
	gg := NewGroupedSource(g.opts, g.name, g.dir, g.streams...)
	for p := 0; p < g.opts.Partitions; p++ {
		if p%totalShards == shard {
			gg.parts = append(gg.parts, p)
		}
	}
	return gg, nil
}

// SourceOut implements pipeline.Source
func (g *GroupedSource) SourceOut() pipeline.Record {
	for g.idx >= len(g.recs) {
		if g.err != nil || g.pos >= len(g.parts) {
			return pipeline.Record{}
		}
		if err := g.loadPartition(g.parts[g.pos]); err != nil {
			g.err = err
			return pipeline.Record{}
		}
		g.pos++
	}

	rec := g.recs[g.idx]
	g.idx++
	return rec
}

// Err implements pipeline.ErrorSource
func (g *GroupedSource) Err() error {
	return g.err
}

func (g *GroupedSource) loadPartition(p int) error {
	logf(g.opts.Logger, "%s: grouping partition %d", g.name, p)

	entries := make(map[string]*GroupedEntry)
	var keys []string

	for i, stream := range g.streams {
		if err := g.loadStream(i, stream, p, func(key string, s pipeline.Sample) {
			e := entries[key]
			if e == nil {
				e = &GroupedEntry{Values: make([][]pipeline.Sample, len(g.streams))}
				entries[key] = e
				keys = append(keys, key)
			}
			e.Values[i] = append(e.Values[i], s)
		}); err != nil {
			return err
		}
	}

	sort.Strings(keys)

	g.recs = g.recs[:0]
	g.idx = 0
	for _, key := range keys {
		g.recs = append(g.recs, pipeline.Record{
			Key: key,
			Value: pipeline.Keyed{
				Key:    key,
				Sample: *entries[key],
			},
		})
	}
	return nil
}

func (g *GroupedSource) loadStream(tag int, stream Stream, p int, add func(string, pipeline.Sample)) error {
	path := SpoolPath(g.dir, stream.Name, p)
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "error opening spool file %s", path)
	}
	defer f.Close()

	it := awsutil.NewEMRIterator(f)
	for it.Next() {
		if it.Tag() != tag {
			return errors.Errorf("stream %s: unexpected tag %d (want %d) in %s", stream.Name, it.Tag(), tag, path)
		}

		s, err := stream.Decode(it.Value())
		if err != nil {
			return errors.Wrapf(err, "stream %s: error decoding sample for key %s", stream.Name, it.Key())
		}
		add(it.Key(), s)
	}
	if err := it.Err(); err != nil {
		return errors.Wrapf(err, "error reading spool file %s", path)
	}
	return nil
}
