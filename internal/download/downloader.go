package download

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/weaveget/weaveget/internal/gateway"
	"github.com/weaveget/weaveget/internal/utils"
)

// Options configures one download invocation.
type Options struct {
	// Concurrency bounds the number of chunk fetches in flight during the
	// parallel phase. Defaults to utils.DefaultConcurrency.
	Concurrency int
}

// SizeMismatchError reports that the bytes emitted by a finished stream do not
// add up to the size declared by the gateway.
type SizeMismatchError struct {
	Declared *big.Int
	Received *big.Int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: declared %s bytes, received %s", e.Declared, e.Received)
}

type fetchResult struct {
	data []byte
	err  error
}

// ChunkStream emits the chunks of one transaction strictly in ascending index
// order, keeping up to Concurrency fetches outstanding for all but the final
// two chunks. The gateway may have rebalanced those two to satisfy its
// minimum chunk size, so they are fetched one at a time once the parallel
// window drains. A stream is finite, not restartable, and owned by a single
// consumer.
type ChunkStream struct {
	client      *gateway.Client
	log         zerolog.Logger
	plan        *Plan
	concurrency int
	parallel    int64

	next      int64 // next chunk index to schedule
	window    []chan fetchResult
	processed *big.Int
	tailDone  bool
	finished  bool
	err       error
}

// NewStream fetches offset metadata for the transaction and prepares a chunk
// stream. No chunk requests are issued until the first Next call.
func NewStream(ctx context.Context, client *gateway.Client, id string, opts Options) (*ChunkStream, error) {
	log := utils.GetLogger("download").With().Str("tx", id).Logger()
	meta, err := client.TxOffset(ctx, id)
	if err != nil {
		return nil, err
	}
	plan, err := newPlan(meta)
	if err != nil {
		return nil, err
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = utils.DefaultConcurrency
	}
	parallel := plan.ChunkCount - 2
	if parallel < 0 {
		parallel = 0
	}
	if int64(concurrency) > parallel {
		concurrency = int(parallel)
	}
	log.Debug().Str("size", plan.Size.String()).Int64("chunks", plan.ChunkCount).Int("concurrency", concurrency).Msg("Prepared chunk plan")
	return &ChunkStream{
		client:      client,
		log:         log,
		plan:        plan,
		concurrency: concurrency,
		parallel:    parallel,
		processed:   new(big.Int),
	}, nil
}

// Size returns the declared total byte length of the transaction data.
func (s *ChunkStream) Size() *big.Int {
	return new(big.Int).Set(s.plan.Size)
}

// Next returns the next chunk in ascending index order. It returns io.EOF
// after the final chunk once the byte total has been verified against the
// declared size. Any error is terminal for the stream.
func (s *ChunkStream) Next(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.finished {
		return nil, io.EOF
	}

	// Parallel phase: keep the window topped up, then wait on its head. The
	// head wait is what pins the output order to the chunk index even when a
	// newer fetch resolves first.
	if s.next < s.parallel || len(s.window) > 0 {
		for s.next < s.parallel && len(s.window) < s.concurrency {
			s.schedule(ctx, s.next)
			s.next++
		}
		head := s.window[0]
		s.window = s.window[1:]
		res := <-head
		if res.err != nil {
			return nil, s.fail(res.err)
		}
		s.account(res.data)
		return res.data, nil
	}

	// Tail phase: the penultimate chunk is always fetched.
	if !s.tailDone && s.plan.ChunkCount > 0 {
		s.tailDone = true
		data, err := s.fetch(ctx, s.next)
		s.next++
		if err != nil {
			return nil, s.fail(err)
		}
		s.account(data)
		return data, nil
	}

	// The last offset slot is only queried when the penultimate chunk did not
	// already cover the declared size (rebalancing may absorb it entirely).
	if s.next < s.plan.ChunkCount && s.processed.Cmp(s.plan.Size) < 0 {
		data, err := s.fetch(ctx, s.next)
		s.next++
		if err != nil {
			return nil, s.fail(err)
		}
		s.account(data)
		return data, nil
	}

	if s.processed.Cmp(s.plan.Size) != 0 {
		return nil, s.fail(&SizeMismatchError{
			Declared: new(big.Int).Set(s.plan.Size),
			Received: new(big.Int).Set(s.processed),
		})
	}
	s.finished = true
	s.log.Debug().Str("bytes", s.processed.String()).Msg("Chunk stream completed")
	return nil, io.EOF
}

// schedule issues the fetch for one chunk index and appends its pending result
// to the window. The result channel is buffered so an abandoned fetch never
// leaks its goroutine.
func (s *ChunkStream) schedule(ctx context.Context, index int64) {
	ch := make(chan fetchResult, 1)
	offset := s.plan.ChunkOffset(index)
	go func() {
		chunk, err := s.client.Chunk(ctx, offset)
		if err != nil {
			ch <- fetchResult{err: err}
			return
		}
		ch <- fetchResult{data: chunk.Data}
	}()
	s.window = append(s.window, ch)
}

func (s *ChunkStream) fetch(ctx context.Context, index int64) ([]byte, error) {
	chunk, err := s.client.Chunk(ctx, s.plan.ChunkOffset(index))
	if err != nil {
		return nil, err
	}
	return chunk.Data, nil
}

func (s *ChunkStream) account(data []byte) {
	s.processed.Add(s.processed, big.NewInt(int64(len(data))))
}

func (s *ChunkStream) fail(err error) error {
	s.err = err
	return err
}

// DownloadData drains the chunk stream for a transaction into one contiguous
// buffer sized to the declared total.
func DownloadData(ctx context.Context, client *gateway.Client, id string, opts Options) ([]byte, error) {
	stream, err := NewStream(ctx, client, id, opts)
	if err != nil {
		return nil, err
	}
	size := stream.Size()
	if !size.IsInt64() || size.Int64() > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("transaction data too large for in-memory assembly: %s bytes", size)
	}
	buf := make([]byte, 0, size.Int64())
	for {
		chunk, err := stream.Next(ctx)
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}
}

// DownloadTo streams the transaction data into w, reporting cumulative
// progress through the optional callback. Returns the byte count written.
func DownloadTo(ctx context.Context, client *gateway.Client, id string, w io.Writer, progress func(n int64), opts Options) (int64, error) {
	stream, err := NewStream(ctx, client, id, opts)
	if err != nil {
		return 0, err
	}
	var written int64
	for {
		chunk, err := stream.Next(ctx)
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("error writing chunk data: %v", err)
		}
		if progress != nil {
			progress(written)
		}
	}
}
