package wit

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/witml/witbuild/pipeline"
	"github.com/witml/witbuild/pipeline/cogroup"
	"github.com/witml/witbuild/pipeline/transform"
	"github.com/witml/witbuild/status"
)

// Indices of the three input streams within a GroupedEntry.
const (
	SamplesStream = iota
	PixelsStream
	EmbeddingsStream
)

// Diagnostic counters tracking keys whose pixel or embedding association could not be resolved.
// They never influence the output: both the missing and the multiple case fall back to the
// sentinel values, since there is no way to tell which of several conflicting values is
// authoritative.
var (
	pixelsSection  = status.NewSection("image_pixels")
	pixelsMissing  = pixelsSection.Counter("missing")
	pixelsMultiple = pixelsSection.Counter("multiple")
	resnetSection  = status.NewSection("image_resnet")
	resnetMissing  = resnetSection.Counter("missing")
	resnetMultiple = resnetSection.Counter("multiple")
)

// Streams returns the co-group streams for a split, in GroupedEntry index order. Samples and
// pixels are spooled as JSON; embeddings are spooled in their raw comma-separated form.
func Streams(cfg SplitConfig) []cogroup.Stream {
	return []cogroup.Stream{
		{
			Name: "samples",
			Encode: func(s pipeline.Sample) ([]byte, error) {
				return json.Marshal(s.(SampleInfo))
			},
			Decode: func(buf []byte) (pipeline.Sample, error) {
				var s SampleInfo
				err := json.Unmarshal(buf, &s)
				return s, err
			},
		},
		{
			Name: "pixels",
			Encode: func(s pipeline.Sample) ([]byte, error) {
				return json.Marshal(s.(Pixels))
			},
			Decode: func(buf []byte) (pipeline.Sample, error) {
				var p Pixels
				err := json.Unmarshal(buf, &p)
				return p, err
			},
		},
		{
			Name: "embeddings",
			Encode: func(s pipeline.Sample) ([]byte, error) {
				return []byte(s.(Embedding)), nil
			},
			Decode: func(buf []byte) (pipeline.Sample, error) {
				return Embedding(buf), nil
			},
		},
	}
}

// NewSynthesizer returns a pipeline.Transform that expands each grouped key into its output
// records.
func NewSynthesizer(cfg SplitConfig) pipeline.Transform {
	return transform.NewMap(cfg.Name+"-synthesize", func(s pipeline.Sample) []pipeline.Sample {
		k := s.(pipeline.Keyed)
		recs := Synthesize(cfg, k.Key, k.Sample.(cogroup.GroupedEntry))

		out := make([]pipeline.Sample, 0, len(recs))
		for _, rec := range recs {
			out = append(out, rec)
		}
		return out
	})
}

// Synthesize produces the output records for one grouped key: one record per sample, each carrying
// the key's resolved pixels and embedding. Keys without samples produce no output. Samples are
// ordered by Seq, so the "{index}_{key}" ids are stable across runs over the same input.
func Synthesize(cfg SplitConfig, key string, entry cogroup.GroupedEntry) []OutputRecord {
	samples := make([]SampleInfo, 0, len(entry.Stream(SamplesStream)))
	for _, s := range entry.Stream(SamplesStream) {
		samples = append(samples, s.(SampleInfo))
	}
	if len(samples) == 0 {
		// pixels or embeddings for a key no sample references
		return nil
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Seq < samples[j].Seq
	})

	pixels := resolvePixels(entry.Stream(PixelsStream))
	embedding := resolveEmbedding(cfg, entry.Stream(EmbeddingsStream))

	recs := make([]OutputRecord, 0, len(samples))
	for i, s := range samples {
		var caption string
		if cfg.CaptionField != "" {
			caption = s.Fields[cfg.CaptionField]
		}

		recs = append(recs, OutputRecord{
			ID: fmt.Sprintf("%d_%s", i, key),
			Example: Example{
				Fields:      s.Fields,
				Caption:     caption,
				Image:       pixels.Image,
				MetadataURL: pixels.MetadataURL,
				Embedding:   embedding,
			},
		})
	}
	return recs
}

// resolvePixels picks the pixel representation for a key from the distinct values observed.
// Anything other than exactly one distinct value falls back to the placeholder image.
func resolvePixels(observed []pipeline.Sample) Pixels {
	distinct := make(map[pixelsKey]Pixels, 1)
	for _, s := range observed {
		p := s.(Pixels)
		distinct[p.distinctKey()] = p
	}

	switch len(distinct) {
	case 1:
		for _, p := range distinct {
			return p
		}
	case 0:
		pixelsMissing.Add(1)
	default:
		pixelsMultiple.Add(1)
	}

	return Pixels{Image: EmptyImage()}
}

// resolveEmbedding is symmetric to resolvePixels, over distinct raw embedding rows.
func resolveEmbedding(cfg SplitConfig, observed []pipeline.Sample) []float32 {
	distinct := make(map[Embedding]struct{}, 1)
	for _, s := range observed {
		distinct[s.(Embedding)] = struct{}{}
	}

	switch len(distinct) {
	case 1:
		for e := range distinct {
			floats, err := e.Floats()
			if err != nil {
				// rows are validated by the reader before they are spooled
				panic(err)
			}
			return floats
		}
	case 0:
		resnetMissing.Add(1)
	default:
		resnetMultiple.Add(1)
	}

	return ZeroEmbedding(cfg.EmbeddingDim)
}
