package status

import "sync/atomic"

// Counter is a basic monotonic counter metric.
type Counter struct {
	Value int64
}

func newCounter() *Counter {
	return &Counter{}
}

// Add increments the counter by delta.
func (c *Counter) Add(delta int64) {
	atomic.AddInt64(&c.Value, delta)
}

// Set sets the counter to val.
func (c *Counter) Set(val int64) {
	atomic.StoreInt64(&c.Value, val)
}

// GetValue returns the current value.
func (c *Counter) GetValue() int64 {
	return atomic.LoadInt64(&c.Value)
}

// --

// Ratio reports the percentage of Hit calls vs total Hit+Miss calls.
type Ratio struct {
	Numerator   int64
	Denominator int64
}

func newRatio() *Ratio {
	return &Ratio{}
}

// Hit increments the ratio and total count.
func (r *Ratio) Hit() {
	atomic.AddInt64(&r.Numerator, 1)
	atomic.AddInt64(&r.Denominator, 1)
}

// Miss increments the total count without changing the numerator.
func (r *Ratio) Miss() {
	atomic.AddInt64(&r.Denominator, 1)
}

func (r *Ratio) reset() {
	atomic.StoreInt64(&r.Numerator, 0)
	atomic.StoreInt64(&r.Denominator, 0)
}

// Value returns the current ratio as a percentage.
func (r *Ratio) Value() float64 {
	num, den := atomic.LoadInt64(&r.Numerator), atomic.LoadInt64(&r.Denominator)
	if den == 0 {
		return 0
	}
	return 100.0 * float64(num) / float64(den)
}
