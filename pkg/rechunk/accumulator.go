package rechunk

import (
	"bytes"
	"fmt"
)

// InsufficientBufferError is returned by Accumulator.Pop when the requested
// byte count exceeds what is currently buffered. The accumulator is left
// unchanged.
type InsufficientBufferError struct {
	Requested int
	Buffered  int
}

func (e *InsufficientBufferError) Error() string {
	return fmt.Sprintf("insufficient buffer: requested %d bytes, have %d", e.Requested, e.Buffered)
}

// Accumulator holds an ordered queue of byte segments and supports exact-length
// extraction across segment boundaries. Not safe for concurrent use.
type Accumulator struct {
	segments [][]byte
	buffered int
}

// Len returns the number of bytes currently buffered.
func (a *Accumulator) Len() int {
	return a.buffered
}

// Push appends a segment to the tail of the queue. Zero-length input is allowed
// and is a no-op.
func (a *Accumulator) Push(p []byte) {
	if len(p) == 0 {
		return
	}
	a.segments = append(a.segments, p)
	a.buffered += len(p)
}

// Pop removes exactly n bytes from the head of the queue, splicing across
// segments as needed. A head segment larger than the remaining request is split
// and its tail stays queued. Fails without consuming anything if fewer than n
// bytes are buffered.
func (a *Accumulator) Pop(n int) ([]byte, error) {
	if n < 0 || n > a.buffered {
		return nil, &InsufficientBufferError{Requested: n, Buffered: a.buffered}
	}
	out := make([]byte, 0, n)
	for len(out) < n {
		head := a.segments[0]
		need := n - len(out)
		if len(head) > need {
			out = append(out, head[:need]...)
			a.segments[0] = head[need:]
		} else {
			out = append(out, head...)
			a.segments = a.segments[1:]
		}
	}
	a.buffered -= n
	return out, nil
}

// Flush returns all buffered bytes concatenated in order and resets the
// accumulator. Returns an empty slice when nothing is buffered.
func (a *Accumulator) Flush() []byte {
	if a.buffered == 0 {
		a.segments = nil
		return []byte{}
	}
	out := bytes.Join(a.segments, nil)
	a.segments = nil
	a.buffered = 0
	return out
}
