package gridtext

import (
	"sync/atomic"

	"github.com/gogpu/gridtext/grid"
)

// ViewportTiles is the tile range currently on screen.
type ViewportTiles struct {
	SheetID string

	// Tiles is the inclusive range of tile indices, see grid.HashesIn.
	Tiles grid.Rect
}

// Half states of a ViewportBuffer.
const (
	halfIdle int32 = iota
	halfWriting
	halfReading
)

type viewportHalf struct {
	state atomic.Int32

	// Guarded by state: only the goroutine that moved state away from
	// halfIdle touches these.
	seq  uint64
	data ViewportTiles
}

// ViewportBuffer advertises the visible tiles to the data engine so it can
// prioritise their cells. It is a ping-pong of two halves, each with an
// atomic flag: the writer fills whichever half is not being read, and the
// reader takes the newest complete half. Neither side ever waits. The
// channel is best effort; a write that finds both halves busy is dropped
// and the next one wins.
type ViewportBuffer struct {
	halves [2]viewportHalf
	seq    atomic.Uint64
}

// Write publishes v and reports whether a half was free.
func (b *ViewportBuffer) Write(v ViewportTiles) bool {
	n := b.seq.Add(1)
	first := int(n % 2)
	for i := range 2 {
		h := &b.halves[(first+i)%2]
		if !h.state.CompareAndSwap(halfIdle, halfWriting) {
			continue
		}
		h.seq, h.data = n, v
		h.state.Store(halfIdle)
		return true
	}
	return false
}

// Read returns the newest complete write. It reports false when nothing
// was written yet or both halves are being written.
func (b *ViewportBuffer) Read() (ViewportTiles, bool) {
	var (
		best     ViewportTiles
		bestSeq  uint64
		anything bool
	)
	for i := range b.halves {
		h := &b.halves[i]
		if !h.state.CompareAndSwap(halfIdle, halfReading) {
			continue
		}
		if h.seq > bestSeq {
			best, bestSeq, anything = h.data, h.seq, true
		}
		h.state.Store(halfIdle)
	}
	return best, anything
}
