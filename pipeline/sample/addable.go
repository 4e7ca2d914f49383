package sample

// Addable describes samples that can be aggregated by summing.
type Addable interface {
	SampleTag()
	// Add the other Addable to the receiver, returning the result. The receiver may be mutated.
	Add(Addable) Addable
}

// Counts maps names to counts.
type Counts map[string]int64

// SampleTag implements pipeline.Sample
func (Counts) SampleTag() {}

// Add implements Addable
func (c Counts) Add(other Addable) Addable {
	for k, v := range other.(Counts) {
		c[k] += v
	}
	return c
}

// Hit increments the count for the given name.
func (c Counts) Hit(name string) {
	c[name]++
}
