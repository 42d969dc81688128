package rechunk

// Options configures a Rechunker.
type Options struct {
	// Flush emits the final short remainder as one last buffer when input is
	// exhausted. When false, an incomplete remainder is silently dropped.
	Flush bool
}

// Rechunker consumes byte buffers of arbitrary size and re-emits them as
// buffers of exactly chunkSize bytes, in input byte order. A single instance
// handles one session; it is not resumable after Close and not safe for
// concurrent use.
type Rechunker struct {
	chunkSize int
	flush     bool
	acc       Accumulator
	closed    bool
	drained   bool
}

// New creates a Rechunker emitting chunkSize-byte buffers. Panics if chunkSize
// is not positive.
func New(chunkSize int, opts Options) *Rechunker {
	if chunkSize <= 0 {
		panic("rechunk: chunk size must be positive")
	}
	return &Rechunker{
		chunkSize: chunkSize,
		flush:     opts.Flush,
	}
}

// Push feeds an input buffer. Pushing after Close is a no-op.
func (r *Rechunker) Push(p []byte) {
	if r.closed {
		return
	}
	r.acc.Push(p)
}

// Next returns the next full chunk if one is available. After Close it also
// returns the final short remainder once, when the rechunker was configured
// with Flush. The second return is false when nothing is ready.
func (r *Rechunker) Next() ([]byte, bool) {
	if r.acc.Len() >= r.chunkSize {
		chunk, err := r.acc.Pop(r.chunkSize)
		if err != nil {
			// Len was checked, Pop cannot fail here.
			panic(err)
		}
		return chunk, true
	}
	if r.closed && !r.drained {
		r.drained = true
		if r.flush && r.acc.Len() > 0 {
			return r.acc.Flush(), true
		}
		r.acc.Flush()
	}
	return nil, false
}

// Close marks the input as exhausted.
func (r *Rechunker) Close() {
	r.closed = true
}

// Pipe transforms a channel of arbitrarily sized buffers into a channel of
// fixed-size chunks. The output channel is closed once the input channel is
// closed and all pending chunks have been emitted.
func (r *Rechunker) Pipe(in <-chan []byte) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for p := range in {
			r.Push(p)
			for {
				chunk, ok := r.Next()
				if !ok {
					break
				}
				out <- chunk
			}
		}
		r.Close()
		for {
			chunk, ok := r.Next()
			if !ok {
				return
			}
			out <- chunk
		}
	}()
	return out
}
