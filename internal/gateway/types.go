package gateway

import "math/big"

// MaxChunkSize is the gateway's nominal chunk size. The final chunks of a
// transaction may be smaller when the gateway rebalances them to satisfy its
// minimum chunk size.
const MaxChunkSize = 256 * 1024

// TxOffset is the size/offset metadata for one transaction. Size is the total
// byte length of the data; Offset is the absolute end position of the data in
// the weave address space, so the first byte lives at Offset-Size+1. Both are
// served as decimal strings and may exceed the int64 range.
type TxOffset struct {
	Size   *big.Int
	Offset *big.Int
}

type txOffsetResponse struct {
	Size   string `json:"size"`
	Offset string `json:"offset"`
}

type chunkResponse struct {
	Chunk    string `json:"chunk"`
	DataPath string `json:"data_path"`
	TxPath   string `json:"tx_path"`
}

// Chunk is one decoded chunk along with its untouched merkle proof fields.
// Proof verification is not this client's concern.
type Chunk struct {
	Data     []byte
	DataPath string
	TxPath   string
}
