package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmapBitOrder(t *testing.T) {
	bm := Bitmap(make([]byte, 2))

	bm.Set(0)
	assert.Equal(t, byte(0x01), bm[0], "bit 0 is the lowest bit of byte 0")
	bm.Set(9)
	assert.Equal(t, byte(0x02), bm[1])

	assert.True(t, bm.IsSet(0))
	assert.False(t, bm.IsSet(1))
	assert.True(t, bm.IsSet(9))

	bm.Clear(0)
	assert.False(t, bm.IsSet(0))
	assert.True(t, bm.IsSet(9))
}

// Out-of-range bits read as allocated so scans stop at the map's edge.
func TestBitmapOutOfRange(t *testing.T) {
	bm := Bitmap(make([]byte, 1))

	assert.True(t, bm.IsSet(8))
	assert.True(t, bm.IsSet(1 << 20))

	// Out-of-range writes are dropped, not wrapped.
	bm.Set(8)
	bm.Clear(8)
	assert.Equal(t, byte(0), bm[0])
}
