// Package cogroup implements a disk-backed co-group of keyed sample streams.
//
// Joining streams that are too large to hold in memory happens in two phases. In the first phase, a
// Spooler per stream hash-partitions incoming keyed samples into spool files on disk. In the second
// phase, a GroupedSource replays the spool one partition at a time, grouping the samples of all
// streams that share a key into a single GroupedEntry. Only one partition's worth of keys is held
// in memory at any point.
package cogroup

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	spooky "github.com/dgryski/go-spooky"

	"github.com/witml/witbuild/awsutil"
	"github.com/witml/witbuild/errors"
	"github.com/witml/witbuild/fileutil"
	"github.com/witml/witbuild/pipeline"
	"github.com/witml/witbuild/pipeline/sample"
)

// Stream describes one logical input stream of the co-group.
type Stream struct {
	// Name of the stream; used in spool file names, so it should be unique within a spool dir.
	Name string
	// Encode serializes a sample for spooling.
	Encode func(pipeline.Sample) ([]byte, error)
	// Decode deserializes a sample that was spooled.
	Decode func([]byte) (pipeline.Sample, error)
}

// Opts for configuring a co-group
type Opts struct {
	// Partitions is the number of spool partitions the key space is hashed into. More partitions
	// means less memory used while grouping, at the cost of more files.
	Partitions int
	// Logger, if non-nil, receives per-partition logging.
	Logger io.Writer
}

// DefaultOpts ...
var DefaultOpts = Opts{
	Partitions: 64,
}

// SpoolPath returns the path of the spool file for the given stream and partition.
func SpoolPath(dir, stream string, part int) string {
	return fileutil.Join(dir, fmt.Sprintf("%s-part-%04d.emr", stream, part))
}

func partitionOf(key string, parts int) int {
	return int(spooky.Hash64([]byte(key)) % uint64(parts))
}

// Spooler is a pipeline.Aggregator that hash-partitions keyed samples from one stream into spool
// files. All clones share the underlying partition writers; every partition file is created up
// front so that the replaying side can rely on the full set existing even for empty partitions.
type Spooler struct {
	opts   Opts
	name   string
	dir    string
	tag    int
	stream Stream

	parts []*partition
	files []string
}

type partition struct {
	m    sync.Mutex
	wc   io.WriteCloser
	w    *awsutil.EMRWriter
	path string
}

// NewSpooler spooling the given stream into dir. The tag is written on every record and verified
// when the spool is replayed, guarding against mixing up streams.
func NewSpooler(opts Opts, name, dir string, tag int, stream Stream) *Spooler {
	if opts.Partitions <= 0 {
		opts.Partitions = DefaultOpts.Partitions
	}

	return &Spooler{
		opts:   opts,
		name:   name,
		dir:    dir,
		tag:    tag,
		stream: stream,
	}
}

// Name implements pipeline.Aggregator
func (s *Spooler) Name() string {
	return s.name
}

// Clone implements pipeline.Aggregator
func (s *Spooler) Clone() pipeline.Dependent {
	return s
}

// ForShard implements pipeline.Aggregator
func (s *Spooler) ForShard(shard, totalShards int) (pipeline.Aggregator, error) {
	if totalShards != 1 {
		return nil, errors.Errorf("spooler %s only supports a single shard, got %d", s.name, totalShards)
	}

	ss := NewSpooler(s.opts, s.name, s.dir, s.tag, s.stream)
	if err := ss.open(); err != nil {
		return nil, err
	}
	return ss, nil
}

func (s *Spooler) open() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrapf(err, "error creating spool dir %s", s.dir)
	}

	for p := 0; p < s.opts.Partitions; p++ {
		path := SpoolPath(s.dir, s.stream.Name, p)
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "error creating spool file %s", path)
		}
		s.parts = append(s.parts, &partition{
			wc:   f,
			w:    awsutil.NewEMRWriter(f),
			path: path,
		})
		s.files = append(s.files, path)
	}
	return nil
}

// In implements pipeline.Aggregator
func (s *Spooler) In(sam pipeline.Sample) {
	k := sam.(pipeline.Keyed)

	buf, err := s.stream.Encode(k.Sample)
	noErr(err)

	part := s.parts[partitionOf(k.Key, s.opts.Partitions)]
	part.m.Lock()
	defer part.m.Unlock()
	noErr(part.w.EmitWithTag(k.Key, s.tag, buf))
}

// AggregateLocal implements pipeline.Aggregator
func (s *Spooler) AggregateLocal(clones []pipeline.Aggregator) (pipeline.Sample, error) {
	for _, p := range s.parts {
		if err := p.w.Close(); err != nil {
			return nil, errors.Wrapf(err, "error flushing spool file %s", p.path)
		}
		if err := p.wc.Close(); err != nil {
			return nil, errors.Wrapf(err, "error closing spool file %s", p.path)
		}
	}
	return sample.StringSlice(s.files), nil
}

// Finalize implements pipeline.Aggregator
func (s *Spooler) Finalize() error {
	return nil
}

// RemoveSpool deletes the spool files written for the given streams.
func RemoveSpool(opts Opts, dir string, streams ...Stream) error {
	if opts.Partitions <= 0 {
		opts.Partitions = DefaultOpts.Partitions
	}

	var errs errors.Errors
	for _, stream := range streams {
		for p := 0; p < opts.Partitions; p++ {
			if err := os.Remove(SpoolPath(dir, stream.Name, p)); err != nil && !os.IsNotExist(err) {
				errs = errors.Append(errs, err)
			}
		}
	}
	if errs != nil {
		return errs
	}
	return nil
}

func logf(w io.Writer, fstr string, args ...interface{}) {
	if w == nil {
		return
	}
	if !strings.HasSuffix(fstr, "\n") {
		fstr += "\n"
	}
	fmt.Fprintf(w, fstr, args...)
}

func noErr(err error) {
	if err != nil {
		panic(err)
	}
}
