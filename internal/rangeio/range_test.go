package rangeio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_TooSmallReturnsWhole(t *testing.T) {
	r := ByteRange{Start: 0, End: 100}
	out := Split(r, 4, 60)
	require.Len(t, out, 1)
	assert.Equal(t, r, out[0])
}

func TestSplit_EvenPartition(t *testing.T) {
	r := ByteRange{Start: 0, End: 1000}
	out := Split(r, 4, 100)
	require.NotEmpty(t, out)

	assert.Equal(t, int64(0), out[0].Start)
	assert.Equal(t, r.End, out[len(out)-1].End)

	for i, chunk := range out {
		assert.False(t, chunk.Empty())
		if i > 0 {
			assert.Equal(t, out[i-1].End, chunk.Start, "chunks must be contiguous")
		}
	}

	var sum int64
	for _, chunk := range out {
		sum += chunk.Len()
	}
	assert.Equal(t, r.Len(), sum, "union must equal the original range")
}

func TestSplit_MidRunHalve(t *testing.T) {
	r := ByteRange{Start: 500, End: 1500}
	out := Split(r, 2, 100)
	require.Len(t, out, 2)
	assert.Equal(t, ByteRange{Start: 500, End: 1000}, out[0])
	assert.Equal(t, ByteRange{Start: 1000, End: 1500}, out[1])
}

func TestSplit_NoTrailingSliver(t *testing.T) {
	r := ByteRange{Start: 0, End: 250}
	out := Split(r, 4, 100)
	for _, chunk := range out {
		assert.GreaterOrEqual(t, chunk.Len(), int64(100))
	}
}

func TestSplit_OddOffsets(t *testing.T) {
	r := ByteRange{Start: 7, End: 1009}
	out := Split(r, 3, 200)
	require.NotEmpty(t, out)
	assert.Equal(t, int64(7), out[0].Start)
	assert.Equal(t, int64(1009), out[len(out)-1].End)
}

// TestSplit_NeverExceedsN guards the exact regression a small minChunk
// relative to n used to trigger: capping n to total/minChunk left a
// remainder that was folded into a trailing chunk only when it was smaller
// than minChunk, so a remainder that landed at or above minChunk produced
// an (n+1)th chunk instead of being absorbed into the requested n.
func TestSplit_NeverExceedsN(t *testing.T) {
	out := Split(ByteRange{Start: 0, End: 20}, 3, 2)
	require.LessOrEqual(t, len(out), 3)

	var sum int64
	for i, chunk := range out {
		sum += chunk.Len()
		if i > 0 {
			assert.Equal(t, out[i-1].End, chunk.Start, "chunks must be contiguous")
		}
	}
	assert.Equal(t, int64(20), sum)
}

// TestSplit_CardinalityBound is a small property sweep: for a range of
// varying lengths, Split must never return more than n chunks.
func TestSplit_CardinalityBound(t *testing.T) {
	for total := int64(1); total <= 200; total++ {
		for n := 1; n <= 10; n++ {
			for _, minChunk := range []int64{1, 2, 3, 7, 11} {
				out := Split(ByteRange{Start: 0, End: total}, n, minChunk)
				require.LessOrEqualf(t, len(out), n, "total=%d n=%d minChunk=%d", total, n, minChunk)

				var sum int64
				for i, chunk := range out {
					if i > 0 {
						require.Equal(t, out[i-1].End, chunk.Start)
					}
					sum += chunk.Len()
				}
				require.Equal(t, total, sum)
			}
		}
	}
}
