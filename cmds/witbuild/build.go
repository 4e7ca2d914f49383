package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"

	"github.com/witml/witbuild/cmdline"
	"github.com/witml/witbuild/errors"
	"github.com/witml/witbuild/fileutil"
	"github.com/witml/witbuild/status"
	"github.com/witml/witbuild/wit"
)

var buildCmd = cmdline.Command{
	Name:     "build",
	Synopsis: "build the merged examples for one split",
	Args: &buildArgs{
		Partitions: 64,
	},
}

type buildArgs struct {
	Split       string `arg:"positional,required" help:"split to build (train or test)"`
	Samples     string `arg:"--samples,required" help:"directory containing the sample files"`
	Pixels      string `arg:"--pixels,required" help:"directory containing the pixel files"`
	Embeddings  string `arg:"--embeddings,required" help:"directory containing the embedding files"`
	Out         string `arg:"--out,required" help:"output directory (local or s3)"`
	Spool       string `arg:"--spool" help:"local directory for intermediate spool files; a temp dir is used if unset"`
	Tmp         string `arg:"--tmp" help:"local directory for buffering output files headed to s3"`
	Partitions  int    `arg:"--partitions" help:"number of spool partitions"`
	Workers     int    `arg:"--workers" help:"number of concurrent workers; defaults to the CPU count"`
	Compress    bool   `arg:"--compress" help:"gzip the output files"`
	CountersCSV string `arg:"--counters" help:"also write the diagnostic counters to this CSV file"`
	Verbose     bool   `arg:"--verbose" help:"verbose per-record logging"`
}

func (a *buildArgs) Validate() error {
	if _, err := splitByName(a.Split); err != nil {
		return err
	}
	return nil
}

func (a *buildArgs) Handle() error {
	cfg, err := splitByName(a.Split)
	if err != nil {
		return err
	}

	paths := wit.SplitPaths{}
	for _, in := range []struct {
		dir   string
		files *[]string
	}{
		{a.Samples, &paths.SampleFiles},
		{a.Pixels, &paths.PixelFiles},
		{a.Embeddings, &paths.EmbeddingFiles},
	} {
		fs, err := fileutil.ListDir(in.dir)
		if err != nil {
			return errors.Wrapf(err, "error listing %s", in.dir)
		}
		if len(fs) == 0 {
			return errors.Errorf("no input files found in %s", in.dir)
		}
		*in.files = fs
	}

	opts := wit.BuildOpts{
		SpoolDir:   a.Spool,
		Partitions: a.Partitions,
		NumWorkers: a.Workers,
		Compress:   a.Compress,
		TmpDir:     a.Tmp,
	}
	if a.Verbose {
		opts.Logger = os.Stderr
	}

	start := time.Now()
	files, err := wit.BuildSplit(cfg, paths, a.Out, opts)
	if err != nil {
		return err
	}
	log.Printf("built split %s: %s output files in %s",
		cfg.Name, humanize.Comma(int64(len(files))), time.Since(start))

	status.Dump(os.Stderr)

	if a.CountersCSV != "" {
		if err := writeCountersCSV(a.CountersCSV); err != nil {
			return errors.Wrapf(err, "error writing counters to %s", a.CountersCSV)
		}
	}
	return nil
}

type counterRow struct {
	Section string `csv:"section"`
	Counter string `csv:"counter"`
	Value   int64  `csv:"value"`
}

func writeCountersCSV(path string) (err error) {
	var rows []counterRow
	for sname, section := range status.Get().Sections {
		for cname, counter := range section.Counters {
			rows = append(rows, counterRow{
				Section: sname,
				Counter: cname,
				Value:   counter.GetValue(),
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Section != rows[j].Section {
			return rows[i].Section < rows[j].Section
		}
		return rows[i].Counter < rows[j].Counter
	})

	f, err := fileutil.NewBufferedWriter(path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)

	return gocsv.Marshal(&rows, f)
}

var splitsCmd = cmdline.Command{
	Name:     "splits",
	Synopsis: "list the known splits and their schemas",
	Args:     &splitsArgs{},
}

type splitsArgs struct{}

func (splitsArgs) Handle() error {
	for _, cfg := range wit.Splits {
		fmt.Printf("%s: %d columns, embedding dim %d\n", cfg.Name, len(cfg.Fields), cfg.EmbeddingDim)
		for _, f := range cfg.Fields {
			marker := " "
			if f == wit.KeyField {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, f)
		}
	}
	return nil
}

func splitByName(name string) (wit.SplitConfig, error) {
	for _, cfg := range wit.Splits {
		if cfg.Name == name {
			return cfg, nil
		}
	}
	return wit.SplitConfig{}, errors.Errorf("unknown split %q", name)
}
