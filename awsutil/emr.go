package awsutil

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The EMR record format is line-oriented: each record is
//
//	key \t tag \t base64(value) \n
//
// Keys must not contain tabs or newlines. The tag is a small integer that
// lets several logical streams share one file; records written without an
// explicit tag carry tag 0. Values are base64-encoded so they may contain
// arbitrary bytes.

// EMRWriter emits key/value records to a writer.
type EMRWriter struct {
	w *bufio.Writer
}

// NewEMRWriter returns a writer that emits records to w.
func NewEMRWriter(w io.Writer) *EMRWriter {
	return &EMRWriter{
		w: bufio.NewWriter(w),
	}
}

// Emit writes a record with tag 0.
func (w *EMRWriter) Emit(key string, value []byte) error {
	return w.EmitWithTag(key, 0, value)
}

// EmitWithTag writes a record with the provided tag.
func (w *EMRWriter) EmitWithTag(key string, tag int, value []byte) error {
	if strings.ContainsAny(key, "\t\n") {
		return fmt.Errorf("key %q contains a delimiter character", key)
	}
	_, err := fmt.Fprintf(w.w, "%s\t%d\t%s\n", key, tag, base64.StdEncoding.EncodeToString(value))
	return err
}

// Close flushes any buffered records.
func (w *EMRWriter) Close() error {
	return w.w.Flush()
}

// EMRReader reads key/value records from a reader.
type EMRReader struct {
	r *bufio.Reader
}

// NewEMRReader returns a reader that reads records from r.
func NewEMRReader(r io.Reader) *EMRReader {
	return &EMRReader{
		// records holding base64 image bytes can get large
		r: bufio.NewReaderSize(r, 1<<20),
	}
}

// Read returns the next record, or io.EOF once the stream is exhausted.
func (r *EMRReader) Read() (string, []byte, error) {
	key, _, value, err := r.read()
	return key, value, err
}

// ReadWithTag returns the next record along with its tag.
func (r *EMRReader) ReadWithTag() (string, int, []byte, error) {
	return r.read()
}

func (r *EMRReader) read() (string, int, []byte, error) {
	line, err := r.r.ReadString('\n')
	if err == io.EOF && line == "" {
		return "", 0, nil, io.EOF
	}
	if err != nil && err != io.EOF {
		return "", 0, nil, err
	}

	line = strings.TrimSuffix(line, "\n")
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return "", 0, nil, fmt.Errorf("malformed record line: %q", line)
	}

	tag, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, nil, fmt.Errorf("malformed record tag %q: %v", parts[1], err)
	}

	value, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", 0, nil, fmt.Errorf("malformed record value for key %s: %v", parts[0], err)
	}

	return parts[0], tag, value, nil
}

// EMRIterator provides iterator-style access to a stream of records.
type EMRIterator struct {
	r *EMRReader

	key   string
	tag   int
	value []byte
	err   error
}

// NewEMRIterator returns an iterator over the records in r.
func NewEMRIterator(r io.Reader) *EMRIterator {
	return &EMRIterator{
		r: NewEMRReader(r),
	}
}

// Next advances to the next record; it returns false once the stream is
// exhausted or an error occurred (check Err).
func (i *EMRIterator) Next() bool {
	key, tag, value, err := i.r.read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		i.err = err
		return false
	}
	i.key, i.tag, i.value = key, tag, value
	return true
}

// Key of the current record.
func (i *EMRIterator) Key() string {
	return i.key
}

// Tag of the current record.
func (i *EMRIterator) Tag() int {
	return i.tag
}

// Value of the current record.
func (i *EMRIterator) Value() []byte {
	return i.value
}

// Err returns the first error encountered while iterating, if any.
func (i *EMRIterator) Err() error {
	return i.err
}
