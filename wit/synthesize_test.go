package wit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witml/witbuild/pipeline"
	"github.com/witml/witbuild/pipeline/cogroup"
	"github.com/witml/witbuild/status"
)

func grouped(samples []SampleInfo, pixels []Pixels, embeddings []Embedding) cogroup.GroupedEntry {
	e := cogroup.GroupedEntry{Values: make([][]pipeline.Sample, 3)}
	for _, s := range samples {
		e.Values[SamplesStream] = append(e.Values[SamplesStream], s)
	}
	for _, p := range pixels {
		e.Values[PixelsStream] = append(e.Values[PixelsStream], p)
	}
	for _, em := range embeddings {
		e.Values[EmbeddingsStream] = append(e.Values[EmbeddingsStream], em)
	}
	return e
}

func caption(c string) map[string]string {
	return map[string]string{
		"language":   "en",
		"image_url":  "u1",
		CaptionField: c,
	}
}

func TestSynthesizeFanOut(t *testing.T) {
	entry := grouped([]SampleInfo{
		{Seq: 2, Fields: caption("third")},
		{Seq: 0, Fields: caption("first")},
		{Seq: 1, Fields: caption("second")},
	}, nil, nil)

	recs := Synthesize(miniSplit, "u1", entry)
	require.Len(t, recs, 3)

	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, fmt.Sprintf("%d_u1", i), recs[i].ID)
		assert.Equal(t, want, recs[i].Example.Caption)
	}
}

func TestSynthesizeNoSampleDrop(t *testing.T) {
	entry := grouped(nil,
		[]Pixels{{Image: []byte("img"), MetadataURL: "m1"}},
		[]Embedding{"0.1,0.2"})

	assert.Empty(t, Synthesize(miniSplit, "u1", entry))
}

func TestSynthesizeUniquePixels(t *testing.T) {
	status.Reset()

	// two rows, one distinct value
	entry := grouped(
		[]SampleInfo{{Fields: caption("c")}},
		[]Pixels{
			{Image: []byte("img"), MetadataURL: "m1"},
			{Image: []byte("img"), MetadataURL: "m1"},
		},
		[]Embedding{"0.1,0.2"})

	recs := Synthesize(miniSplit, "u1", entry)
	require.Len(t, recs, 1)

	assert.Equal(t, []byte("img"), recs[0].Example.Image)
	assert.Equal(t, "m1", recs[0].Example.MetadataURL)
	assert.Equal(t, []float32{0.1, 0.2}, recs[0].Example.Embedding)

	assert.EqualValues(t, 0, pixelsMissing.GetValue())
	assert.EqualValues(t, 0, pixelsMultiple.GetValue())
	assert.EqualValues(t, 0, resnetMissing.GetValue())
	assert.EqualValues(t, 0, resnetMultiple.GetValue())
}

func TestSynthesizeMissingPixels(t *testing.T) {
	status.Reset()

	entry := grouped([]SampleInfo{{Fields: caption("c")}}, nil, []Embedding{"0.1,0.2"})

	recs := Synthesize(miniSplit, "u1", entry)
	require.Len(t, recs, 1)

	assert.Equal(t, EmptyImage(), recs[0].Example.Image)
	assert.Equal(t, "", recs[0].Example.MetadataURL)

	assert.EqualValues(t, 1, pixelsMissing.GetValue())
	assert.EqualValues(t, 0, pixelsMultiple.GetValue())
}

func TestSynthesizeMultiplePixels(t *testing.T) {
	status.Reset()

	entry := grouped(
		[]SampleInfo{{Fields: caption("c")}},
		[]Pixels{
			{Image: []byte("img"), MetadataURL: "m1"},
			{Image: []byte("other"), MetadataURL: "m1"},
		},
		[]Embedding{"0.1,0.2"})

	recs := Synthesize(miniSplit, "u1", entry)
	require.Len(t, recs, 1)

	// conflicting pixel rows fall back to the placeholder, counted separately from missing
	assert.Equal(t, EmptyImage(), recs[0].Example.Image)
	assert.Equal(t, "", recs[0].Example.MetadataURL)

	assert.EqualValues(t, 0, pixelsMissing.GetValue())
	assert.EqualValues(t, 1, pixelsMultiple.GetValue())
}

func TestSynthesizePixelsFieldBoundary(t *testing.T) {
	status.Reset()

	// the two rows differ, even though image+metadata concatenate to the same bytes
	entry := grouped(
		[]SampleInfo{{Fields: caption("c")}},
		[]Pixels{
			{Image: []byte("a\tb"), MetadataURL: "c"},
			{Image: []byte("a"), MetadataURL: "b\tc"},
		},
		[]Embedding{"0.1,0.2"})

	recs := Synthesize(miniSplit, "u1", entry)
	require.Len(t, recs, 1)

	assert.Equal(t, EmptyImage(), recs[0].Example.Image)
	assert.Equal(t, "", recs[0].Example.MetadataURL)

	assert.EqualValues(t, 0, pixelsMissing.GetValue())
	assert.EqualValues(t, 1, pixelsMultiple.GetValue())
}

func TestSynthesizeEmbeddingSentinel(t *testing.T) {
	status.Reset()

	missing := grouped([]SampleInfo{{Fields: caption("c")}}, nil, nil)
	recs := Synthesize(miniSplit, "u1", missing)
	require.Len(t, recs, 1)
	assert.Equal(t, []float32{0, 0}, recs[0].Example.Embedding)
	assert.EqualValues(t, 1, resnetMissing.GetValue())
	assert.EqualValues(t, 0, resnetMultiple.GetValue())

	multiple := grouped([]SampleInfo{{Fields: caption("c")}}, nil,
		[]Embedding{"0.1,0.2", "0.3,0.4"})
	recs = Synthesize(miniSplit, "u1", multiple)
	require.Len(t, recs, 1)
	assert.Equal(t, []float32{0, 0}, recs[0].Example.Embedding)
	assert.EqualValues(t, 1, resnetMissing.GetValue())
	assert.EqualValues(t, 1, resnetMultiple.GetValue())

	// duplicate rows of one distinct vector resolve normally
	dup := grouped([]SampleInfo{{Fields: caption("c")}}, nil,
		[]Embedding{"0.1,0.2", "0.1,0.2"})
	recs = Synthesize(miniSplit, "u1", dup)
	require.Len(t, recs, 1)
	assert.Equal(t, []float32{0.1, 0.2}, recs[0].Example.Embedding)
}

func TestSynthesizeNoCaptionSplit(t *testing.T) {
	noCaption := SplitConfig{
		Name:         "test",
		Fields:       []string{"id", "image_url"},
		EmbeddingDim: 2,
	}

	entry := grouped([]SampleInfo{
		{Fields: map[string]string{"id": "42", "image_url": "u1"}},
	}, nil, nil)

	recs := Synthesize(noCaption, "u1", entry)
	require.Len(t, recs, 1)
	assert.Equal(t, "", recs[0].Example.Caption)
	assert.Equal(t, "42", recs[0].Example.Fields["id"])
}

func TestSynthesizeConcreteScenario(t *testing.T) {
	entry := grouped(
		[]SampleInfo{
			{Seq: 0, Fields: caption("cat")},
			{Seq: 1, Fields: caption("gato")},
		},
		[]Pixels{{Image: []byte{0, 0, 0}, MetadataURL: "m1"}}, // decode("AAAA")
		[]Embedding{"0.1,0.2"})

	recs := Synthesize(miniSplit, "u1", entry)
	require.Len(t, recs, 2)

	byID := make(map[string]Example, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec.Example
	}

	require.Contains(t, byID, "0_u1")
	require.Contains(t, byID, "1_u1")

	assert.Equal(t, "cat", byID["0_u1"].Caption)
	assert.Equal(t, "gato", byID["1_u1"].Caption)
	for _, ex := range byID {
		assert.Equal(t, []byte{0, 0, 0}, ex.Image)
		assert.Equal(t, "m1", ex.MetadataURL)
		assert.Equal(t, []float32{0.1, 0.2}, ex.Embedding)
	}
}
