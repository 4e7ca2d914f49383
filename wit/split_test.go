package wit

import (
	"bufio"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witml/witbuild/errors"
)

func writeInput(t *testing.T, path string, lines ...string) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var w io.WriteCloser = f
	if strings.HasSuffix(path, ".gz") {
		w = gzip.NewWriter(f)
		defer w.Close()
	}

	for _, line := range lines {
		_, err := w.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
}

func readOutput(t *testing.T, files []string) map[string]map[string]interface{} {
	byID := make(map[string]map[string]interface{})
	for _, path := range files {
		f, err := os.Open(path)
		require.NoError(t, err)

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 1<<20), maxRowBytes)
		for scanner.Scan() {
			var rec map[string]interface{}
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))

			id := rec["example_id"].(string)
			_, dup := byID[id]
			require.False(t, dup, "duplicate example id %s", id)
			byID[id] = rec
		}
		require.NoError(t, scanner.Err())
		f.Close()
	}
	return byID
}

func TestBuildSplit(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	img := base64.StdEncoding.EncodeToString([]byte("pixels"))

	samplePath := filepath.Join(dir, "samples.tsv.gz")
	writeInput(t, samplePath,
		`"language"	"image_url"	"caption_title_and_reference_description"`,
		`"en"	"u1"	"cat"`,
		`"es"	"u1"	"gato"`,
		`"en"	"u2"	"dog"`,
		`"en"	"u3"	"bird"`)

	pixelPath := filepath.Join(dir, "pixels.tsv")
	writeInput(t, pixelPath,
		"u1\t"+img+"\tm1",
		// u3 has two conflicting representations
		"u3\t"+img+"\tm3",
		"u3\t"+base64.StdEncoding.EncodeToString([]byte("other"))+"\tm3",
		// u4 has pixels but no sample
		"u4\t"+img+"\tm4")

	embeddingPath := filepath.Join(dir, "embeddings.tsv.gz")
	writeInput(t, embeddingPath,
		"u1\t0.1,0.2",
		"u3\t0.5,0.6")

	paths := SplitPaths{
		SampleFiles:    []string{samplePath},
		PixelFiles:     []string{pixelPath},
		EmbeddingFiles: []string{embeddingPath},
	}
	opts := BuildOpts{
		Partitions: 4,
		NumWorkers: 2,
	}

	build := func(outDir string) map[string]map[string]interface{} {
		files, err := BuildSplit(miniSplit, paths, outDir, opts)
		require.NoError(t, err)
		require.NotEmpty(t, files)
		return readOutput(t, files)
	}

	got := build(filepath.Join(dir, "out"))

	// u1: two samples, resolved pixels and embedding
	// u2: one sample, no pixels or embedding
	// u3: one sample, conflicting pixels, resolved embedding
	// u4: dropped, no sample
	require.Len(t, got, 4)
	for _, id := range []string{"0_u1", "1_u1", "0_u2", "0_u3"} {
		require.Contains(t, got, id)
	}

	assert.Equal(t, "cat", got["0_u1"]["caption_title_and_reference_description"])
	assert.Equal(t, "gato", got["1_u1"]["caption_title_and_reference_description"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("pixels")), got["0_u1"]["image"])
	assert.Equal(t, "m1", got["0_u1"]["metadata_url"])
	assert.Equal(t, []interface{}{0.1, 0.2}, got["0_u1"]["embedding"])

	placeholder := base64.StdEncoding.EncodeToString(EmptyImage())
	assert.Equal(t, placeholder, got["0_u2"]["image"])
	assert.Equal(t, "", got["0_u2"]["metadata_url"])
	assert.Equal(t, []interface{}{float64(0), float64(0)}, got["0_u2"]["embedding"])

	assert.Equal(t, placeholder, got["0_u3"]["image"])
	assert.Equal(t, "", got["0_u3"]["metadata_url"])
	assert.Equal(t, []interface{}{0.5, 0.6}, got["0_u3"]["embedding"])

	// re-running over the same input yields the identical id -> record mapping
	again := build(filepath.Join(dir, "out2"))
	assert.Equal(t, got, again)
}

func TestBuildSplitFunc(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	img := base64.StdEncoding.EncodeToString([]byte("pixels"))

	samplePath := filepath.Join(dir, "samples.tsv")
	writeInput(t, samplePath,
		`"language"	"image_url"	"caption_title_and_reference_description"`,
		`"en"	"u1"	"cat"`,
		`"en"	"u2"	"dog"`)

	pixelPath := filepath.Join(dir, "pixels.tsv")
	writeInput(t, pixelPath, "u1\t"+img+"\tm1")

	embeddingPath := filepath.Join(dir, "embeddings.tsv")
	writeInput(t, embeddingPath, "u1\t0.1,0.2")

	paths := SplitPaths{
		SampleFiles:    []string{samplePath},
		PixelFiles:     []string{pixelPath},
		EmbeddingFiles: []string{embeddingPath},
	}

	var m sync.Mutex
	byID := make(map[string]Example)
	err = BuildSplitFunc(miniSplit, paths, BuildOpts{Partitions: 4, NumWorkers: 2},
		func(rec OutputRecord) error {
			m.Lock()
			defer m.Unlock()
			byID[rec.ID] = rec.Example
			return nil
		})
	require.NoError(t, err)

	require.Len(t, byID, 2)
	assert.Equal(t, []byte("pixels"), byID["0_u1"].Image)
	assert.Equal(t, "m1", byID["0_u1"].MetadataURL)
	assert.Equal(t, []float32{0.1, 0.2}, byID["0_u1"].Embedding)
	assert.Equal(t, EmptyImage(), byID["0_u2"].Image)

	sinkErr := errors.New("sink failed")
	err = BuildSplitFunc(miniSplit, paths, BuildOpts{Partitions: 4},
		func(OutputRecord) error { return sinkErr })
	require.Equal(t, sinkErr, err)
}

func TestBuildSplitMalformedInput(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	samplePath := filepath.Join(dir, "samples.tsv")
	writeInput(t, samplePath,
		`"language"	"image_url"	"caption_title_and_reference_description"`,
		`"en"	"u1"	"cat"`)

	pixelPath := filepath.Join(dir, "pixels.tsv")
	writeInput(t, pixelPath, "u1\tonly-two-columns")

	embeddingPath := filepath.Join(dir, "embeddings.tsv")
	writeInput(t, embeddingPath, "u1\t0.1,0.2")

	_, err = BuildSplit(miniSplit, SplitPaths{
		SampleFiles:    []string{samplePath},
		PixelFiles:     []string{pixelPath},
		EmbeddingFiles: []string{embeddingPath},
	}, filepath.Join(dir, "out"), BuildOpts{Partitions: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed row")
}
