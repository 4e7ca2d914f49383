package wit

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SampleInfo is one logical sample row from a sample file. A key may have several samples, one per
// language/caption variant.
type SampleInfo struct {
	// Seq orders samples deterministically: the high 32 bits hold the index of the originating
	// file within the sorted file list, the low 32 bits the row number within the file.
	Seq int64
	// Fields maps column name to value for the split's configured columns.
	Fields map[string]string
}

// SampleTag implements pipeline.Sample
func (SampleInfo) SampleTag() {}

// Pixels is one pixel-representation row: the decoded image bytes and the URL of the image
// metadata record.
type Pixels struct {
	Image       []byte
	MetadataURL string
}

// SampleTag implements pipeline.Sample
func (Pixels) SampleTag() {}

// pixelsKey identifies a Pixels value for duplicate detection. Rows are duplicates only if both
// the image bytes and the metadata URL match; a struct key keeps the two fields from aliasing,
// since the image bytes are arbitrary binary.
type pixelsKey struct {
	image       string
	metadataURL string
}

func (p Pixels) distinctKey() pixelsKey {
	return pixelsKey{image: string(p.Image), metadataURL: p.MetadataURL}
}

// Embedding is one embedding row in its raw comma-separated form. Keeping the raw form makes
// duplicate detection an exact string comparison, with no float round-tripping involved.
type Embedding string

// SampleTag implements pipeline.Sample
func (Embedding) SampleTag() {}

// Floats parses the vector. The reader validates rows on the way in, so this does not fail for
// embeddings that came through a reader.
func (e Embedding) Floats() ([]float32, error) {
	parts := strings.Split(string(e), ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out = append(out, float32(f))
	}
	return out, nil
}

// Example is the merged output for one logical sample: the split-specific sample fields plus the
// resolved common fields.
type Example struct {
	Fields      map[string]string
	Caption     string
	Image       []byte
	MetadataURL string
	Embedding   []float32
}

// SampleTag implements pipeline.Sample
func (Example) SampleTag() {}

// OutputRecord pairs an Example with its unique id of the form "{index}_{key}".
type OutputRecord struct {
	ID      string
	Example Example
}

// SampleTag implements pipeline.Sample
func (OutputRecord) SampleTag() {}

// MarshalJSON flattens the record into a single object: the sample fields at the top level,
// alongside the id and the resolved common fields. The id key is "example_id" so it cannot
// collide with the test split's "id" sample column. Image bytes are encoded as base64 (the
// default for []byte).
func (r OutputRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(r.Example.Fields)+5)
	for k, v := range r.Example.Fields {
		m[k] = v
	}
	m["example_id"] = r.ID
	m[CaptionField] = r.Example.Caption
	m["image"] = r.Example.Image
	m["metadata_url"] = r.Example.MetadataURL
	m["embedding"] = r.Example.Embedding
	return json.Marshal(m)
}
