package wit

import "fmt"

// MalformedRowError indicates a row in an input file that does not match the expected shape.
// It is fatal for the split being processed: malformed rows mean a corrupt or truncated shard,
// and re-running will not fix static input.
type MalformedRowError struct {
	Path string
	Line int
	Msg  string
}

func (e MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row at %s:%d: %s", e.Path, e.Line, e.Msg)
}

// SchemaMismatchError indicates that a sample file's header is missing an expected column.
// Fatal for the split being processed.
type SchemaMismatchError struct {
	Path  string
	Field string
}

func (e SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s: missing column %q", e.Path, e.Field)
}
