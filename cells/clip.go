package cells

import (
	"github.com/gogpu/gridtext/grid"
	"github.com/gogpu/gridtext/label"
	"github.com/gogpu/gridtext/message"
)

// spillsLeft and spillsRight report overflow regardless of visibility:
// hidden labels keep their clips current so showing them again only needs
// a buffer rebuild.
func spillsLeft(l *label.CellLabel) bool {
	return l.Wrap() != message.WrapClip && l.OverflowLeft() > 0
}

func spillsRight(l *label.CellLabel) bool {
	return l.Wrap() != message.WrapClip && l.OverflowRight() > 0
}

// checkClip resolves the clip edges of every label in the tile against its
// nearest neighbours in the same row, and pushes the matching edge onto
// each neighbour. A neighbour's tile is marked dirtyBuffers only when one
// of its labels actually changed, so a second pass does nothing.
func (h *CellsTextHash) checkClip() {
	for _, p := range h.order {
		l := h.labels[p]

		if n, owner := h.sheet.leftNeighbour(h, p); n != nil {
			if spillsLeft(l) {
				l.SetClipLeft(n.Bounds().Right())
			} else {
				l.ClearClipLeft()
			}
			var changed bool
			if spillsRight(n) {
				changed = n.SetClipRight(l.Bounds().Left())
			} else {
				changed = n.ClearClipRight()
			}
			if changed && owner != h {
				owner.markBuffersDirty()
			}
		} else {
			l.ClearClipLeft()
		}

		if n, owner := h.sheet.rightNeighbour(h, p); n != nil {
			if spillsRight(l) {
				l.SetClipRight(n.Bounds().Left())
			} else {
				l.ClearClipRight()
			}
			var changed bool
			if spillsLeft(n) {
				changed = n.SetClipLeft(l.Bounds().Right())
			} else {
				changed = n.ClearClipLeft()
			}
			if changed && owner != h {
				owner.markBuffersDirty()
			}
		} else {
			l.ClearClipRight()
		}
	}
	h.state = StateClipped
}

// leftNeighbour returns the nearest label left of p in the same row and
// the tile owning it. Empty tiles are skipped.
func (s *CellsLabels) leftNeighbour(h *CellsTextHash, p grid.Pos) (*label.CellLabel, *CellsTextHash) {
	for x := p.X - 1; x >= h.rect.MinX; x-- {
		if l, ok := h.labels[grid.Pos{X: x, Y: p.Y}]; ok {
			return l, h
		}
	}
	if t := s.findPreviousHash(h.key.X, p.Y); t != nil {
		return t.lastInRow(p.Y), t
	}
	return nil, nil
}

// rightNeighbour mirrors leftNeighbour.
func (s *CellsLabels) rightNeighbour(h *CellsTextHash, p grid.Pos) (*label.CellLabel, *CellsTextHash) {
	for x := p.X + 1; x <= h.rect.MaxX; x++ {
		if l, ok := h.labels[grid.Pos{X: x, Y: p.Y}]; ok {
			return l, h
		}
	}
	if t := s.findNextHash(h.key.X, p.Y); t != nil {
		return t.firstInRow(p.Y), t
	}
	return nil, nil
}

// recheckNeighbours sends the nearest non-empty tiles on both sides of h,
// row by row, back through the clip pass. Called when h's labels were
// replaced, so a deleted cell releases the clip it imposed.
func (s *CellsLabels) recheckNeighbours(h *CellsTextHash) {
	seen := make(map[*CellsTextHash]bool)
	for row := h.rect.MinY; row <= h.rect.MaxY; row++ {
		for _, t := range []*CellsTextHash{s.findPreviousHash(h.key.X, row), s.findNextHash(h.key.X, row)} {
			if t != nil && !seen[t] {
				seen[t] = true
				t.recheckClip()
			}
		}
	}
}
