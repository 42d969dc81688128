package download

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaveget/weaveget/internal/gateway"
	"github.com/weaveget/weaveget/internal/utils"
)

// fakeWeave serves the offset and chunk endpoints for a single transaction.
// Chunk lengths are configurable per index so rebalanced tail layouts can be
// emulated; requests for an index with no configured chunk get a 404.
type fakeWeave struct {
	txID   string
	data   []byte
	start  int64
	chunks []int

	delays map[int]time.Duration
	fail   map[int]int // index -> forced status code

	mu          sync.Mutex
	requested   map[int]int
	inFlight    int
	maxInFlight int
}

func newFakeWeave(txID string, data []byte, start int64, chunkLens []int) *fakeWeave {
	return &fakeWeave{
		txID:      txID,
		data:      data,
		start:     start,
		chunks:    chunkLens,
		delays:    make(map[int]time.Duration),
		fail:      make(map[int]int),
		requested: make(map[int]int),
	}
}

// evenChunks splits n bytes into MaxChunkSize pieces with a short last piece.
func evenChunks(n int) []int {
	var lens []int
	for n > 0 {
		l := gateway.MaxChunkSize
		if n < l {
			l = n
		}
		lens = append(lens, l)
		n -= l
	}
	return lens
}

func (f *fakeWeave) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == fmt.Sprintf("/tx/%s/offset", f.txID) {
			end := f.start + int64(len(f.data)) - 1
			json.NewEncoder(w).Encode(map[string]string{
				"size":   fmt.Sprintf("%d", len(f.data)),
				"offset": fmt.Sprintf("%d", end),
			})
			return
		}
		var offset int64
		if _, err := fmt.Sscanf(r.URL.Path, "/chunk/%d", &offset); err != nil {
			http.NotFound(w, r)
			return
		}
		index := int((offset - f.start) / gateway.MaxChunkSize)

		f.mu.Lock()
		f.requested[index]++
		f.inFlight++
		if f.inFlight > f.maxInFlight {
			f.maxInFlight = f.inFlight
		}
		delay := f.delays[index]
		status := f.fail[index]
		f.mu.Unlock()

		defer func() {
			f.mu.Lock()
			f.inFlight--
			f.mu.Unlock()
		}()

		if delay > 0 {
			time.Sleep(delay)
		}
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if index < 0 || index >= len(f.chunks) {
			http.NotFound(w, r)
			return
		}
		dataStart := 0
		for i := 0; i < index; i++ {
			dataStart += f.chunks[i]
		}
		payload := f.data[dataStart : dataStart+f.chunks[index]]
		json.NewEncoder(w).Encode(map[string]string{
			"chunk":     base64.RawURLEncoding.EncodeToString(payload),
			"data_path": "ZGF0YQ",
			"tx_path":   "dHg",
		})
	})
}

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func testClient(server *httptest.Server) *gateway.Client {
	return gateway.NewClient(server.URL, utils.HTTPClientConfig{Timeout: 30 * time.Second})
}

func TestDownloadDataReassemblesInOrder(t *testing.T) {
	data := testData(gateway.MaxChunkSize*4 + 100)
	fw := newFakeWeave("tx1", data, 7_000_000, evenChunks(len(data)))
	server := httptest.NewServer(fw.handler())
	defer server.Close()

	got, err := DownloadData(context.Background(), testClient(server), "tx1", Options{Concurrency: 3})
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDownloadOutOfOrderCompletion(t *testing.T) {
	// Chunk 0 resolves well after chunks 1 and 2; output must still be in
	// index order, enforced by waiting on the window head.
	data := testData(gateway.MaxChunkSize * 5)
	fw := newFakeWeave("tx2", data, 0, evenChunks(len(data)))
	fw.delays[0] = 150 * time.Millisecond
	server := httptest.NewServer(fw.handler())
	defer server.Close()

	got, err := DownloadData(context.Background(), testClient(server), "tx2", Options{Concurrency: 3})
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDownloadConcurrencyBound(t *testing.T) {
	// 10 chunks, 8 parallel, window of 4. A uniform delay lets the window
	// fill so the high-water mark is meaningful.
	data := testData(gateway.MaxChunkSize * 10)
	fw := newFakeWeave("tx3", data, 123, evenChunks(len(data)))
	for i := 0; i < 10; i++ {
		fw.delays[i] = 20 * time.Millisecond
	}
	server := httptest.NewServer(fw.handler())
	defer server.Close()

	got, err := DownloadData(context.Background(), testClient(server), "tx3", Options{Concurrency: 4})
	require.NoError(t, err)
	assert.Equal(t, data, got)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	assert.LessOrEqual(t, fw.maxInFlight, 4)
}

func TestDownloadRebalancedTailSkipsLastSlot(t *testing.T) {
	// The gateway absorbed the short last chunk into the penultimate one, so
	// the final offset slot must never be queried.
	size := gateway.MaxChunkSize*4 + 100
	data := testData(size)
	lens := []int{gateway.MaxChunkSize, gateway.MaxChunkSize, gateway.MaxChunkSize, gateway.MaxChunkSize + 100}
	fw := newFakeWeave("tx4", data, 0, lens)
	server := httptest.NewServer(fw.handler())
	defer server.Close()

	got, err := DownloadData(context.Background(), testClient(server), "tx4", Options{})
	require.NoError(t, err)
	assert.Equal(t, data, got)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	assert.Zero(t, fw.requested[4], "last chunk slot should not be fetched")
}

func TestDownloadSingleChunk(t *testing.T) {
	data := testData(1000)
	fw := newFakeWeave("tx5", data, 42, []int{1000})
	server := httptest.NewServer(fw.handler())
	defer server.Close()

	got, err := DownloadData(context.Background(), testClient(server), "tx5", Options{})
	require.NoError(t, err)
	assert.Equal(t, data, got)
	fw.mu.Lock()
	defer fw.mu.Unlock()
	assert.Equal(t, 1, fw.requested[0])
}

func TestDownloadEmptyTransaction(t *testing.T) {
	fw := newFakeWeave("tx6", nil, 9, nil)
	server := httptest.NewServer(fw.handler())
	defer server.Close()

	stream, err := NewStream(context.Background(), testClient(server), "tx6", Options{})
	require.NoError(t, err)
	_, err = stream.Next(context.Background())
	assert.Equal(t, io.EOF, err)
	fw.mu.Lock()
	defer fw.mu.Unlock()
	assert.Empty(t, fw.requested)
}

func TestDownloadSizeMismatch(t *testing.T) {
	// Declared size covers three chunks but the last one comes back short.
	size := gateway.MaxChunkSize*2 + 5000
	data := testData(size)
	lens := []int{gateway.MaxChunkSize, gateway.MaxChunkSize, 50}
	fw := newFakeWeave("tx7", data, 0, lens)
	server := httptest.NewServer(fw.handler())
	defer server.Close()

	_, err := DownloadData(context.Background(), testClient(server), "tx7", Options{})
	var sme *SizeMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, int64(size), sme.Declared.Int64())
	assert.Equal(t, int64(gateway.MaxChunkSize*2+50), sme.Received.Int64())
}

func TestDownloadMetadataError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewStream(context.Background(), testClient(server), "missing", Options{})
	var mfe *gateway.MetadataFetchError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, "missing", mfe.ID)
	assert.Equal(t, http.StatusNotFound, mfe.StatusCode)
}

func TestDownloadChunkErrorIsTerminal(t *testing.T) {
	data := testData(gateway.MaxChunkSize * 6)
	fw := newFakeWeave("tx8", data, 0, evenChunks(len(data)))
	fw.fail[2] = http.StatusInternalServerError
	server := httptest.NewServer(fw.handler())
	defer server.Close()

	stream, err := NewStream(context.Background(), testClient(server), "tx8", Options{Concurrency: 4})
	require.NoError(t, err)

	var streamErr error
	for {
		_, err := stream.Next(context.Background())
		if err != nil {
			streamErr = err
			break
		}
	}
	var cfe *gateway.ChunkFetchError
	require.ErrorAs(t, streamErr, &cfe)
	assert.Equal(t, http.StatusInternalServerError, cfe.StatusCode)

	// The failure is sticky.
	_, err = stream.Next(context.Background())
	assert.Equal(t, streamErr, err)
}

func TestDownloadTo(t *testing.T) {
	data := testData(gateway.MaxChunkSize + 100)
	fw := newFakeWeave("tx9", data, 0, evenChunks(len(data)))
	server := httptest.NewServer(fw.handler())
	defer server.Close()

	var sb strings.Builder
	var last int64
	n, err := DownloadTo(context.Background(), testClient(server), "tx9", &sb, func(n int64) { last = n }, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, int64(len(data)), last)
	assert.Equal(t, string(data), sb.String())
}
