package message

import (
	"testing"

	"github.com/gogpu/gridtext/grid"
)

// TestRecorder_Swap tests that staged geometry replaces the displayed tile
// only on FinalizeTile.
func TestRecorder_Swap(t *testing.T) {
	r := NewRecorder()
	key := TileKey{SheetID: "s", X: 1, Y: 2}

	r.Clear(ClearTile{SheetID: "s", HashX: 1, HashY: 2, Bounds: grid.Bounds{Width: 10, Height: 10}})
	r.Segment(MeshSegment{SheetID: "s", HashX: 1, HashY: 2, Indices: []uint16{0, 1, 2, 2, 3, 0}})
	r.Finalize(FinalizeTile{SheetID: "s", HashX: 1, HashY: 2})

	tile, ok := r.Displayed(key)
	if !ok || len(tile.Segments) != 1 {
		t.Fatalf("displayed = %+v, %v", tile, ok)
	}

	// A new update stays staged until finalized.
	r.Clear(ClearTile{SheetID: "s", HashX: 1, HashY: 2})
	tile, _ = r.Displayed(key)
	if len(tile.Segments) != 1 {
		t.Errorf("old geometry replaced before finalize: %+v", tile)
	}
	r.Finalize(FinalizeTile{SheetID: "s", HashX: 1, HashY: 2})
	tile, _ = r.Displayed(key)
	if len(tile.Segments) != 0 {
		t.Errorf("expected empty tile after finalize, got %d segments", len(tile.Segments))
	}

	r.Unload(UnloadTile{SheetID: "s", HashX: 1, HashY: 2})
	if _, ok := r.Displayed(key); ok {
		t.Error("tile still displayed after unload")
	}
	if n := len(r.Events()); n != 6 {
		t.Errorf("events = %d, want 6", n)
	}
}

// TestOverlay_Variants tests the closed overlay set.
func TestOverlay_Variants(t *testing.T) {
	overlays := []Overlay{
		Checkbox{Pos: grid.Pos{X: 1, Y: 1}, Checked: true},
		Dropdown{Pos: grid.Pos{X: 2, Y: 1}},
		Emoji{Pos: grid.Pos{X: 3, Y: 1}, Text: "😀"},
	}
	for i, o := range overlays {
		if o.Cell().X != int64(i+1) {
			t.Errorf("overlay %d cell = %v", i, o.Cell())
		}
		switch v := o.(type) {
		case Checkbox:
			if !v.Checked {
				t.Error("checkbox lost its value")
			}
		case Dropdown:
		case Emoji:
			if v.Text == "" {
				t.Error("emoji lost its text")
			}
		default:
			t.Errorf("unexpected overlay %T", v)
		}
	}
}
