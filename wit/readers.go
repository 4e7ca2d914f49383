package wit

import (
	"bufio"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/witml/witbuild/pipeline"
	"github.com/witml/witbuild/pipeline/source"
)

// base64 pixel rows for large images can run to several MB
const maxRowBytes = 64 << 20

// NewSampleSource reads the split's sample files. Each emitted record is a pipeline.Keyed wrapping
// a SampleInfo, keyed by image URL. The files are sorted so that sample Seq numbers, and therefore
// per-key sample order, do not depend on the order the caller discovered the files in.
func NewSampleSource(cfg SplitConfig, opts source.DatasetOpts, files []string) *source.Dataset {
	sorted := sortedCopy(files)
	return source.NewDataset(opts, cfg.Name+"-samples", SampleProcessFn(cfg, sorted), sorted...)
}

// NewPixelsSource reads pixel files, emitting a pipeline.Keyed wrapping a Pixels per row.
func NewPixelsSource(cfg SplitConfig, opts source.DatasetOpts, files []string) *source.Dataset {
	return source.NewDataset(opts, cfg.Name+"-pixels", PixelProcessFn(), sortedCopy(files)...)
}

// NewEmbeddingsSource reads embedding files, emitting a pipeline.Keyed wrapping an Embedding per row.
func NewEmbeddingsSource(cfg SplitConfig, opts source.DatasetOpts, files []string) *source.Dataset {
	return source.NewDataset(opts, cfg.Name+"-embeddings", EmbeddingProcessFn(cfg), sortedCopy(files)...)
}

func sortedCopy(files []string) []string {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	return sorted
}

// SampleProcessFn parses tab-separated sample files with a header row and all fields quoted. The
// provided file list must be the full (sorted) list the dataset reads, so that each file gets a
// stable index for Seq assignment.
func SampleProcessFn(cfg SplitConfig, files []string) source.ProcessFn {
	bases := make(map[string]int64, len(files))
	for i, f := range files {
		bases[f] = int64(i) << 32
	}

	return func(path string, r io.Reader, emit func(pipeline.Record)) error {
		cr := csv.NewReader(r)
		cr.Comma = '\t'
		cr.FieldsPerRecord = -1

		header, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return MalformedRowError{Path: path, Line: 1, Msg: err.Error()}
		}

		cols := make(map[string]int, len(header))
		for i, name := range header {
			cols[name] = i
		}
		for _, field := range cfg.Fields {
			if _, found := cols[field]; !found {
				return SchemaMismatchError{Path: path, Field: field}
			}
		}

		base := bases[path]
		for row := int64(0); ; row++ {
			rec, err := cr.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return MalformedRowError{Path: path, Line: int(row) + 2, Msg: err.Error()}
			}
			if len(rec) != len(header) {
				return MalformedRowError{
					Path: path,
					Line: int(row) + 2,
					Msg:  fmt.Sprintf("expected %d columns, got %d", len(header), len(rec)),
				}
			}

			fields := make(map[string]string, len(cfg.Fields))
			for _, field := range cfg.Fields {
				fields[field] = rec[cols[field]]
			}

			key := fields[KeyField]
			if key == "" {
				return MalformedRowError{Path: path, Line: int(row) + 2, Msg: "empty " + KeyField}
			}

			emit(pipeline.Record{
				Key: key,
				Value: pipeline.Keyed{
					Key: key,
					Sample: SampleInfo{
						Seq:    base | row,
						Fields: fields,
					},
				},
			})
		}
	}
}

// PixelProcessFn parses headerless pixel files with rows of the form
//
//	image_url \t base64_image_bytes \t metadata_url
func PixelProcessFn() source.ProcessFn {
	return func(path string, r io.Reader, emit func(pipeline.Record)) error {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 1<<20), maxRowBytes)

		var line int
		for scanner.Scan() {
			line++
			parts := strings.Split(scanner.Text(), "\t")
			if len(parts) != 3 {
				return MalformedRowError{
					Path: path,
					Line: line,
					Msg:  fmt.Sprintf("expected 3 columns, got %d", len(parts)),
				}
			}
			if parts[0] == "" {
				return MalformedRowError{Path: path, Line: line, Msg: "empty " + KeyField}
			}

			img, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				return MalformedRowError{
					Path: path,
					Line: line,
					Msg:  fmt.Sprintf("invalid base64 image: %v", err),
				}
			}

			emit(pipeline.Record{
				Key: parts[0],
				Value: pipeline.Keyed{
					Key: parts[0],
					Sample: Pixels{
						Image:       img,
						MetadataURL: parts[2],
					},
				},
			})
		}
		return scanner.Err()
	}
}

// EmbeddingProcessFn parses headerless embedding files with rows of the form
//
//	image_url \t comma_separated_floats
//
// Vectors must have exactly cfg.EmbeddingDim entries.
func EmbeddingProcessFn(cfg SplitConfig) source.ProcessFn {
	return func(path string, r io.Reader, emit func(pipeline.Record)) error {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 1<<20), maxRowBytes)

		var line int
		for scanner.Scan() {
			line++
			parts := strings.Split(scanner.Text(), "\t")
			if len(parts) != 2 {
				return MalformedRowError{
					Path: path,
					Line: line,
					Msg:  fmt.Sprintf("expected 2 columns, got %d", len(parts)),
				}
			}
			if parts[0] == "" {
				return MalformedRowError{Path: path, Line: line, Msg: "empty " + KeyField}
			}

			vals := strings.Split(parts[1], ",")
			if len(vals) != cfg.EmbeddingDim {
				return MalformedRowError{
					Path: path,
					Line: line,
					Msg:  fmt.Sprintf("expected %d floats, got %d", cfg.EmbeddingDim, len(vals)),
				}
			}
			for _, v := range vals {
				if _, err := strconv.ParseFloat(strings.TrimSpace(v), 32); err != nil {
					return MalformedRowError{
						Path: path,
						Line: line,
						Msg:  fmt.Sprintf("invalid float %q: %v", v, err),
					}
				}
			}

			emit(pipeline.Record{
				Key: parts[0],
				Value: pipeline.Keyed{
					Key:    parts[0],
					Sample: Embedding(parts[1]),
				},
			})
		}
		return scanner.Err()
	}
}
