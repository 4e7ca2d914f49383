package source

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/witml/witbuild/errors"
	"github.com/witml/witbuild/fileutil"
	"github.com/witml/witbuild/pipeline"
)

// ProcessFn extracts the records contained in a single dataset file. It should call emit once for
// each record and return an error if the file cannot be processed; such errors are treated as fatal
// for the whole dataset.
type ProcessFn func(path string, r io.Reader, emit func(pipeline.Record)) error

// DatasetOpts for configuring a Dataset
type DatasetOpts struct {
	// NumGo is the number of goroutines that concurrently process files.
	NumGo int
	// Logger, if non-nil, receives per-file logging.
	Logger io.Writer
	// PanicOnError causes the dataset to panic when a file fails to process instead of recording
	// the error; useful for debugging.
	PanicOnError bool
	// MaxRecords optionally caps the total number of records emitted; 0 means no limit.
	MaxRecords int
}

// DefaultDatasetOpts ...
var DefaultDatasetOpts = DatasetOpts{
	NumGo: 4,
}

// Dataset is a pipeline.Source backed by a list of files, each containing any number of records.
// Files ending in .gz are transparently decompressed. The first error encountered while opening
// or processing a file stops the dataset and is reported via Err, so that the engine aborts the
// run instead of producing partial output.
type Dataset struct {
	name  string
	opts  DatasetOpts
	fn    ProcessFn
	files []string

	records chan pipeline.Record
	emitted int64

	m   sync.Mutex
	err error
}

// NewDataset that applies fn to each of the provided files to extract records.
func NewDataset(opts DatasetOpts, name string, fn ProcessFn, files ...string) *Dataset {
	if opts.NumGo <= 0 {
		opts.NumGo = DefaultDatasetOpts.NumGo
	}

	return &Dataset{
		name:  name,
		opts:  opts,
		fn:    fn,
		files: files,
	}
}

// Name implements pipeline.Source
func (d *Dataset) Name() string {
	return d.name
}

// ForShard implements pipeline.Source
func (d *Dataset) ForShard(shard, totalShards int) (pipeline.Source, error) {
	var files []string
	for i, f := range d.files {
		if i%totalShards == shard {
			files = append(files, f)
		}
	}

	ds := &Dataset{
		name:    d.name,
		opts:    d.opts,
		fn:      d.fn,
		files:   files,
		records: make(chan pipeline.Record, 10*d.opts.NumGo),
	}
	ds.start()
	return ds, nil
}

// SourceOut implements pipeline.Source
func (d *Dataset) SourceOut() pipeline.Record {
	rec, ok := <-d.records
	if !ok {
		return pipeline.Record{}
	}
	return rec
}

// Err implements pipeline.ErrorSource
func (d *Dataset) Err() error {
	d.m.Lock()
	defer d.m.Unlock()
	return d.err
}

func (d *Dataset) start() {
	paths := make(chan string)

	var wg sync.WaitGroup
	for i := 0; i < d.opts.NumGo; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				if d.Err() != nil || d.maxed() {
					continue
				}
				if err := d.processFile(path); err != nil {
					if d.opts.PanicOnError {
						panic(err)
					}
					d.setErr(err)
				}
			}
		}()
	}

	go func() {
		for _, path := range d.files {
			paths <- path
		}
		close(paths)
		wg.Wait()
		close(d.records)
	}()
}

func (d *Dataset) processFile(path string) error {
	logf(d.opts.Logger, "%s: processing %s", d.name, path)

	r, err := fileutil.NewReader(path)
	if err != nil {
		return errors.Wrapf(err, "error opening %s", path)
	}
	defer r.Close()

	var reader io.Reader = r
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return errors.Wrapf(err, "error ungzipping %s", path)
		}
		defer gz.Close()
		reader = gz
	}

	emit := func(rec pipeline.Record) {
		if d.maxed() {
			return
		}
		atomic.AddInt64(&d.emitted, 1)
		d.records <- rec
	}

	if err := d.fn(path, reader, emit); err != nil {
		return errors.Wrapf(err, "error processing %s", path)
	}
	return nil
}

func (d *Dataset) maxed() bool {
	return d.opts.MaxRecords > 0 && atomic.LoadInt64(&d.emitted) >= int64(d.opts.MaxRecords)
}

func (d *Dataset) setErr(err error) {
	d.m.Lock()
	defer d.m.Unlock()
	if d.err == nil {
		d.err = err
	}
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
