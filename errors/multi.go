package errors

import (
	"bytes"
	"fmt"
)

// Errors collects multiple errors into one. Any non-nil Errors value holds at
// least one underlying error, so callers may compare an Errors with nil to
// check for the absence of errors.
type Errors interface {
	error
	// Slice returns a copy of the underlying (non-nil) errors.
	Slice() []error
	// Len is always > 0 for a non-nil Errors.
	Len() int
}

type errorSlice []error

func (m errorSlice) Slice() []error {
	return append([]error(nil), m...)
}

func (m errorSlice) Len() int {
	return len(m)
}

func (m errorSlice) Error() string {
	var b bytes.Buffer
	for i, err := range m {
		if i > 0 {
			fmt.Fprint(&b, "\n")
		}
		fmt.Fprint(&b, err)
	}
	return b.String()
}

// Append adds err to errs; either may be nil.
func Append(errs Errors, err error) Errors {
	if err == nil {
		return errs
	}
	var s errorSlice
	if errs != nil {
		s = errorSlice(errs.Slice())
	}
	if e, ok := err.(Errors); ok {
		return errorSlice(append(s, e.Slice()...))
	}
	return append(s, err)
}

// Combine merges e and f into a single error, flattening nested Errors.
func Combine(e, f error) error {
	if e == nil {
		return f
	}
	if f == nil {
		return e
	}
	errs, _ := Append(nil, e).(Errors)
	if combined := Append(errs, f); combined != nil {
		return combined
	}
	return nil
}

// Defer is a helper for deferring error-returning cleanup functions:
//   defer errors.Defer(&err, f.Close)
func Defer(err *error, f func() error) {
	*err = Combine(*err, f())
}
