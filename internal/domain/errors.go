package domain

import "fmt"

// ParseError reports a malformed domain-table line. Parsing continues past
// it; the line is skipped and counted.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ChunkError reports the failure of one worker chunk. Sibling chunks are
// unaffected; the run continues with whatever chunks succeeded.
type ChunkError struct {
	Chunk int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Chunk, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// SinkError reports the failure of one output destination. The remaining
// sinks still receive the results.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
