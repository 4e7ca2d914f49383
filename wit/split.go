package wit

import (
	"io"
	"io/ioutil"
	"os"
	"sync"

	"github.com/witml/witbuild/errors"
	"github.com/witml/witbuild/pipeline"
	"github.com/witml/witbuild/pipeline/aggregator"
	"github.com/witml/witbuild/pipeline/cogroup"
	"github.com/witml/witbuild/pipeline/dependent"
	"github.com/witml/witbuild/pipeline/sample"
	"github.com/witml/witbuild/pipeline/source"
)

// SplitPaths holds the already-extracted input file locations for one split.
type SplitPaths struct {
	SampleFiles    []string
	PixelFiles     []string
	EmbeddingFiles []string
}

// BuildOpts for BuildSplit
type BuildOpts struct {
	// SpoolDir holds the intermediate partition files; a temp dir is created (and removed)
	// when empty. Must be on a local filesystem.
	SpoolDir string
	// Partitions for the co-group spool; see cogroup.Opts.
	Partitions int
	// NumWorkers processing records concurrently; defaults to the CPU count.
	NumWorkers int
	// NumGo is the number of goroutines reading input files per source.
	NumGo int
	// Compress gzips the output files.
	Compress bool
	// KeepSpool leaves the spool files behind for inspection.
	KeepSpool bool
	// TmpDir for locally buffering output files headed to S3.
	TmpDir string
	// Logger, if non-nil, receives verbose logging.
	Logger io.Writer
}

// BuildSplit runs the full two-phase pipeline for one split and writes one JSON record per output
// example to outDir (local or s3). It returns the paths of the files written.
//
// Phase one reads the three input collections concurrently and spools them into key-hashed
// partitions on local disk. Phase two replays the spool partition by partition, grouping the three
// streams by image URL and synthesizing the output examples. Only one partition's keys are in
// memory at a time, so the split size is bounded by disk, not RAM.
func BuildSplit(cfg SplitConfig, paths SplitPaths, outDir string, opts BuildOpts) ([]string, error) {
	var files []string
	err := buildSplit(cfg, paths, opts, func(b builder) (pipeline.Dependent, func(pipeline.Sample) error) {
		writer := aggregator.NewJSONWriter(aggregator.WriterOpts{
			NumGo:      b.dsOpts.NumGo,
			Logger:     opts.Logger,
			FilePrefix: cfg.Name,
			Compress:   opts.Compress,
			TmpDir:     opts.TmpDir,
		}, cfg.Name+"-writer", outDir)

		return writer, func(res pipeline.Sample) error {
			files = []string(res.(sample.StringSlice))
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// BuildSplitFunc runs the same two-phase pipeline as BuildSplit, but hands each synthesized record
// to fn instead of writing files. fn is called concurrently from multiple workers. Errors fn
// returns do not stop the run; the first one is returned once the run completes.
func BuildSplitFunc(cfg SplitConfig, paths SplitPaths, opts BuildOpts, fn func(OutputRecord) error) error {
	var m sync.Mutex
	var fnErr error

	err := buildSplit(cfg, paths, opts, func(b builder) (pipeline.Dependent, func(pipeline.Sample) error) {
		sink := dependent.NewFromFunc(cfg.Name+"-sink", func(s pipeline.Sample) {
			if err := fn(s.(OutputRecord)); err != nil {
				m.Lock()
				if fnErr == nil {
					fnErr = err
				}
				m.Unlock()
			}
		})
		return sink, nil
	})
	if err != nil {
		return err
	}
	return fnErr
}

// builder carries the shared per-build configuration into the sink constructor.
type builder struct {
	dsOpts source.DatasetOpts
}

// buildSplit runs both pipeline phases with the sink returned by newSink terminating the second.
// When the sink is an aggregator, newSink may also return a result callback that receives its
// finalized sample.
func buildSplit(cfg SplitConfig, paths SplitPaths, opts BuildOpts,
	newSink func(builder) (pipeline.Dependent, func(pipeline.Sample) error)) error {

	spoolDir := opts.SpoolDir
	if spoolDir == "" {
		var err error
		spoolDir, err = ioutil.TempDir("", "wit-spool-")
		if err != nil {
			return errors.Wrapf(err, "error creating spool dir")
		}
		if !opts.KeepSpool {
			defer os.RemoveAll(spoolDir)
		}
	}

	co := cogroup.Opts{
		Partitions: opts.Partitions,
		Logger:     opts.Logger,
	}
	streams := Streams(cfg)

	dsOpts := source.DefaultDatasetOpts
	dsOpts.Logger = opts.Logger
	if opts.NumGo > 0 {
		dsOpts.NumGo = opts.NumGo
	}

	engOpts := pipeline.DefaultEngineOptions
	engOpts.NumWorkers = opts.NumWorkers

	samples := NewSampleSource(cfg, dsOpts, paths.SampleFiles)
	pixels := NewPixelsSource(cfg, dsOpts, paths.PixelFiles)
	embeddings := NewEmbeddingsSource(cfg, dsOpts, paths.EmbeddingFiles)

	spoolPipe := pipeline.Pipeline{
		Name: cfg.Name + "-spool",
		Parents: pipeline.ParentMap{
			cogroup.NewSpooler(co, cfg.Name+"-spool-samples", spoolDir, SamplesStream, streams[SamplesStream]):          samples,
			cogroup.NewSpooler(co, cfg.Name+"-spool-pixels", spoolDir, PixelsStream, streams[PixelsStream]):             pixels,
			cogroup.NewSpooler(co, cfg.Name+"-spool-embeddings", spoolDir, EmbeddingsStream, streams[EmbeddingsStream]): embeddings,
		},
		Sources: []pipeline.Source{samples, pixels, embeddings},
		Params: map[string]interface{}{
			"split": cfg.Name,
		},
	}

	engine, err := pipeline.NewEngine(spoolPipe, engOpts)
	if err != nil {
		return err
	}
	if _, err := engine.Run(); err != nil {
		return err
	}

	grouped := cogroup.NewGroupedSource(co, cfg.Name+"-grouped", spoolDir, streams...)
	sink, result := newSink(builder{dsOpts: dsOpts})

	parents := make(pipeline.ParentMap)
	parents.Chain(grouped, NewSynthesizer(cfg), sink)

	outPipe := pipeline.Pipeline{
		Name:    cfg.Name + "-synthesize",
		Parents: parents,
		Sources: []pipeline.Source{grouped},
		Params: map[string]interface{}{
			"split": cfg.Name,
		},
	}

	engine, err = pipeline.NewEngine(outPipe, engOpts)
	if err != nil {
		return err
	}
	res, err := engine.Run()
	if err != nil {
		return err
	}

	if !opts.KeepSpool {
		if err := cogroup.RemoveSpool(co, spoolDir, streams...); err != nil {
			return err
		}
	}

	if result != nil {
		if agg, ok := sink.(pipeline.Aggregator); ok {
			return result(res[agg])
		}
	}
	return nil
}
