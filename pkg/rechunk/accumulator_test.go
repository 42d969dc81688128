package rechunk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorPopAcrossSegments(t *testing.T) {
	var acc Accumulator
	acc.Push([]byte("hello"))
	acc.Push([]byte(" "))
	acc.Push([]byte("world"))
	require.Equal(t, 11, acc.Len())

	got, err := acc.Pop(7)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello w"), got)
	assert.Equal(t, 4, acc.Len())

	got, err = acc.Pop(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("orld"), got)
	assert.Equal(t, 0, acc.Len())
}

func TestAccumulatorHeadSplitKeepsRemainder(t *testing.T) {
	var acc Accumulator
	acc.Push([]byte("abcdef"))

	got, err := acc.Pop(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), got)

	got, err = acc.Pop(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("cd"), got)

	assert.Equal(t, []byte("ef"), acc.Flush())
}

func TestAccumulatorInsufficientLeavesStateUnchanged(t *testing.T) {
	var acc Accumulator
	acc.Push([]byte("abc"))

	_, err := acc.Pop(4)
	var ibe *InsufficientBufferError
	require.ErrorAs(t, err, &ibe)
	assert.Equal(t, 4, ibe.Requested)
	assert.Equal(t, 3, ibe.Buffered)

	// Nothing was consumed by the failed pop.
	got, err := acc.Pop(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestAccumulatorFlushEmpty(t *testing.T) {
	var acc Accumulator
	assert.Empty(t, acc.Flush())
	acc.Push(nil)
	acc.Push([]byte{})
	assert.Equal(t, 0, acc.Len())
	assert.Empty(t, acc.Flush())
}

func TestAccumulatorOrderPreserved(t *testing.T) {
	var acc Accumulator
	var want []byte
	for i := 0; i < 40; i++ {
		seg := bytes.Repeat([]byte{byte(i)}, i%7+1)
		want = append(want, seg...)
		acc.Push(seg)
	}
	var got []byte
	for acc.Len() >= 9 {
		part, err := acc.Pop(9)
		require.NoError(t, err)
		got = append(got, part...)
	}
	got = append(got, acc.Flush()...)
	assert.Equal(t, want, got)
}
