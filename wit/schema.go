// Package wit builds merged image/caption examples from the three keyed input collections of the
// WIT (Wikipedia-based Image Text) Kaggle competition data: per-language sample rows, base64 image
// pixels, and ResNet embedding vectors, all keyed by image URL.
package wit

import "encoding/base64"

// KeyField is the sample column whose value joins the three input streams.
const KeyField = "image_url"

// CaptionField is the ground-truth caption column; it is only present in the train split.
const CaptionField = "caption_title_and_reference_description"

// DefaultEmbeddingDim is the length of the image embedding vectors in the released data.
const DefaultEmbeddingDim = 2048

// SplitConfig describes the schema of one dataset split.
type SplitConfig struct {
	Name string
	// Fields are the columns expected in the split's sample files. The key column must be
	// among them.
	Fields []string
	// CaptionField names the ground-truth caption column, or is empty for splits that have
	// no ground truth; such splits get an empty caption in every output example.
	CaptionField string
	// EmbeddingDim is the expected length of the embedding vectors.
	EmbeddingDim int
}

// Train split: one sample row per language/caption variant of a page image.
var Train = SplitConfig{
	Name: "train",
	Fields: []string{
		"language",
		"page_url",
		"image_url",
		"page_title",
		"section_title",
		"hierarchical_section_title",
		"caption_reference_description",
		"caption_attribution_description",
		"caption_alt_text_description",
		"mime_type",
		"original_height",
		"original_width",
		"is_main_image",
		"attribution_passes_lang_id",
		"page_changed_recently",
		"context_page_description",
		"context_section_description",
		CaptionField,
	},
	CaptionField: CaptionField,
	EmbeddingDim: DefaultEmbeddingDim,
}

// Test split: no ground-truth caption.
var Test = SplitConfig{
	Name: "test",
	Fields: []string{
		"id",
		"image_url",
	},
	EmbeddingDim: DefaultEmbeddingDim,
}

// Splits that the competition data ships with.
var Splits = []SplitConfig{Train, Test}

// 1x1 transparent PNG
const emptyImageBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z/C/HgAGgwJ/lK3Q6wAAAABJRU5ErkJggg=="

// EmptyImage returns the placeholder image bytes used when no authoritative pixels exist for a key.
func EmptyImage() []byte {
	buf, err := base64.StdEncoding.DecodeString(emptyImageBase64)
	if err != nil {
		panic(err)
	}
	return buf
}

// ZeroEmbedding returns the sentinel vector used when no authoritative embedding exists for a key.
func ZeroEmbedding(dim int) []float32 {
	return make([]float32, dim)
}
