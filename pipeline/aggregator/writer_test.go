package aggregator

import (
	"bufio"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witml/witbuild/fileutil"
	"github.com/witml/witbuild/pipeline"
	"github.com/witml/witbuild/pipeline/sample"
)

type jsonSample struct {
	Name string
}

func (jsonSample) SampleTag() {}

func TestJSONWriter(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	w := NewJSONWriter(DefaultWriterOpts, "writer", dir)

	agg, err := w.ForShard(0, 1)
	require.NoError(t, err)

	clone := agg.Clone().(pipeline.Aggregator)
	for i := 0; i < 3; i++ {
		clone.In(jsonSample{Name: fmt.Sprintf("s%d", i)})
	}

	res, err := agg.AggregateLocal([]pipeline.Aggregator{clone})
	require.NoError(t, err)
	require.NoError(t, agg.Finalize())

	files := res.(sample.StringSlice)
	require.Len(t, files, 1)
	assert.False(t, filepath.Ext(files[0]) == ".tmp")

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	sort.Strings(lines)

	assert.Equal(t, []string{`{"Name":"s0"}`, `{"Name":"s1"}`, `{"Name":"s2"}`}, lines)

	// the DONE marker should be present but excluded from ListDir
	_, err = os.Stat(fileutil.Join(dir, DoneFilename))
	require.NoError(t, err)

	listed, err := ListDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string(files), listed)
}

func TestSumAggregator(t *testing.T) {
	agg := NewSumAggregator("counts",
		func() sample.Addable { return make(sample.Counts) },
		func(s pipeline.Sample) sample.Addable { return s.(sample.Counts) })

	shard, err := agg.ForShard(0, 1)
	require.NoError(t, err)

	c1 := shard.Clone().(pipeline.Aggregator)
	c2 := shard.Clone().(pipeline.Aggregator)

	c1.In(sample.Counts{"a": 1})
	c1.In(sample.Counts{"a": 2, "b": 1})
	c2.In(sample.Counts{"b": 3})

	res, err := shard.AggregateLocal([]pipeline.Aggregator{c1, c2})
	require.NoError(t, err)

	assert.Equal(t, sample.Counts{"a": 3, "b": 4}, res)
}

func TestSharedSumAggregator(t *testing.T) {
	agg := NewSharedSumAggregator("counts",
		func() sample.Addable { return make(sample.Counts) },
		func(s pipeline.Sample) sample.Addable { return s.(sample.Counts) })

	shard, err := agg.ForShard(0, 1)
	require.NoError(t, err)

	// clones of a shared aggregator are the aggregator itself
	c1 := shard.Clone().(pipeline.Aggregator)
	c2 := shard.Clone().(pipeline.Aggregator)
	assert.Same(t, shard, c1)
	assert.Same(t, c1, c2)

	c1.In(sample.Counts{"a": 1})
	c2.In(sample.Counts{"a": 2, "b": 1})

	res, err := shard.AggregateLocal([]pipeline.Aggregator{c1, c2})
	require.NoError(t, err)

	assert.Equal(t, sample.Counts{"a": 3, "b": 1}, res)
}
