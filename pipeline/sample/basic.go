package sample

// StringSlice is a slice of strings
type StringSlice []string

// SampleTag implements pipeline.Sample
func (StringSlice) SampleTag() {}

// String wraps a string
type String string

// SampleTag ...
func (String) SampleTag() {}
