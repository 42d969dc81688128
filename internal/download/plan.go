package download

import (
	"fmt"
	"math/big"

	"github.com/weaveget/weaveget/internal/gateway"
)

var bigMaxChunkSize = big.NewInt(gateway.MaxChunkSize)

// Plan fixes the chunk boundaries for one transaction. All offset math stays
// in big.Int: weave offsets can exceed the int64 range and float conversion
// would silently lose precision.
type Plan struct {
	Size        *big.Int
	StartOffset *big.Int
	ChunkCount  int64
}

func newPlan(meta *gateway.TxOffset) (*Plan, error) {
	if meta.Size.Sign() < 0 {
		return nil, fmt.Errorf("invalid metadata: negative size %s", meta.Size)
	}
	// offset points at the last byte of the data, so offset >= size-1 must
	// hold for the start offset to be non-negative.
	start := new(big.Int).Sub(meta.Offset, meta.Size)
	start.Add(start, big.NewInt(1))
	if start.Sign() < 0 {
		return nil, fmt.Errorf("invalid metadata: offset %s smaller than size %s", meta.Offset, meta.Size)
	}
	quo, rem := new(big.Int).QuoRem(meta.Size, bigMaxChunkSize, new(big.Int))
	if rem.Sign() > 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if !quo.IsInt64() {
		return nil, fmt.Errorf("invalid metadata: chunk count %s out of range", quo)
	}
	return &Plan{
		Size:        new(big.Int).Set(meta.Size),
		StartOffset: start,
		ChunkCount:  quo.Int64(),
	}, nil
}

// ChunkOffset returns the absolute weave offset of the chunk at index i.
func (p *Plan) ChunkOffset(i int64) *big.Int {
	off := new(big.Int).Mul(big.NewInt(i), bigMaxChunkSize)
	return off.Add(off, p.StartOffset)
}
