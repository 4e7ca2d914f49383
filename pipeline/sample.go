package pipeline

// Sample represents a piece of data that is used as input/output for a Feed.
//
// Samples carry data only. Feeds that hit an unrecoverable problem do not emit an error-valued
// sample; sources report the failure via ErrorSource and the engine aborts the run.
type Sample interface {
	SampleTag()
}

// Keyed wraps a sample and a string key
type Keyed struct {
	Key    string
	Sample Sample
}

// SampleTag implements pipeline.Sample
func (Keyed) SampleTag() {}
