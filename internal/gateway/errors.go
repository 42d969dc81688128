package gateway

import (
	"fmt"
	"math/big"
)

// MetadataFetchError reports a non-success response from the transaction
// offset endpoint. It aborts a download before any chunk work begins.
type MetadataFetchError struct {
	ID         string
	StatusCode int
}

func (e *MetadataFetchError) Error() string {
	return fmt.Sprintf("error fetching offset metadata for %s: status %d", e.ID, e.StatusCode)
}

// ChunkFetchError reports a non-success response from the chunk endpoint.
type ChunkFetchError struct {
	Offset     *big.Int
	StatusCode int
}

func (e *ChunkFetchError) Error() string {
	return fmt.Sprintf("error fetching chunk at offset %s: status %d", e.Offset, e.StatusCode)
}
