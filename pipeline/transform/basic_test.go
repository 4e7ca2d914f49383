package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witml/witbuild/pipeline"
)

type intSample int

func (intSample) SampleTag() {}

// drain feeds one sample through a transform and collects its outputs.
func drain(tr pipeline.Transform, in pipeline.Sample) []pipeline.Sample {
	tr.In(in)

	var out []pipeline.Sample
	for {
		s := tr.TransformOut()
		if s == nil {
			return out
		}
		out = append(out, s)
	}
}

func TestOneInOneOut(t *testing.T) {
	double := NewOneInOneOut("double", func(s pipeline.Sample) pipeline.Sample {
		return intSample(2 * s.(intSample))
	})

	assert.Equal(t, []pipeline.Sample{intSample(6)}, drain(double, intSample(3)))

	clone := double.Clone().(pipeline.Transform)
	assert.Equal(t, []pipeline.Sample{intSample(2)}, drain(clone, intSample(1)))
	// draining a clone must not leave state behind in the original
	assert.Nil(t, double.TransformOut())
}

func TestOneInOneOutKeyed(t *testing.T) {
	evens := NewOneInOneOutKeyed("evens", func(s pipeline.Sample) pipeline.Sample {
		if s.(intSample)%2 != 0 {
			return nil
		}
		return s
	})

	out := drain(evens, pipeline.Keyed{Key: "a", Sample: intSample(4)})
	require.Len(t, out, 1)
	assert.Equal(t, pipeline.Keyed{Key: "a", Sample: intSample(4)}, out[0])

	// a nil result drops the sample, key and all
	assert.Empty(t, drain(evens, pipeline.Keyed{Key: "b", Sample: intSample(3)}))
}

func TestMap(t *testing.T) {
	repeat := NewMap("repeat", func(s pipeline.Sample) []pipeline.Sample {
		return []pipeline.Sample{s, s}
	})

	assert.Equal(t, []pipeline.Sample{intSample(7), intSample(7)}, drain(repeat, intSample(7)))

	empty := NewMap("empty", func(pipeline.Sample) []pipeline.Sample { return nil })
	assert.Empty(t, drain(empty, intSample(1)))
}

func TestFilter(t *testing.T) {
	positive := NewFilter("positive", func(s pipeline.Sample) bool {
		return s.(intSample) > 0
	})

	assert.Equal(t, []pipeline.Sample{intSample(1)}, drain(positive, intSample(1)))
	assert.Empty(t, drain(positive, intSample(-1)))
}

func TestKeyedNilFilter(t *testing.T) {
	f := NewKeyedNilFilter("nonnil")

	keyed := pipeline.Keyed{Key: "a", Sample: intSample(1)}
	assert.Equal(t, []pipeline.Sample{keyed}, drain(f, keyed))
	assert.Empty(t, drain(f, pipeline.Keyed{Key: "b"}))
}
