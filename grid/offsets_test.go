package grid

import "testing"

// TestSheetOffsets_Defaults tests positions with no custom sizes.
func TestSheetOffsets_Defaults(t *testing.T) {
	o := NewSheetOffsets()

	x, w := o.ColumnPositionSize(1)
	if x != 0 || w != DefaultColumnWidth {
		t.Errorf("column 1 = (%v, %v)", x, w)
	}
	x, _ = o.ColumnPositionSize(5)
	if x != 4*DefaultColumnWidth {
		t.Errorf("column 5 x = %v", x)
	}
	y, h := o.RowPositionSize(3)
	if y != 2*DefaultRowHeight || h != DefaultRowHeight {
		t.Errorf("row 3 = (%v, %v)", y, h)
	}

	// Column 0 is clamped to column 1.
	x0, _ := o.ColumnPositionSize(0)
	if x0 != 0 {
		t.Errorf("column 0 x = %v", x0)
	}
}

// TestSheetOffsets_Custom tests positions around resized columns.
func TestSheetOffsets_Custom(t *testing.T) {
	o := NewSheetOffsets()

	if d := o.SetColumnWidth(3, 120); d != 20 {
		t.Fatalf("delta = %v, want 20", d)
	}
	if d := o.SetColumnWidth(3, 150); d != 30 {
		t.Fatalf("second delta = %v, want 30", d)
	}

	x, w := o.ColumnPositionSize(3)
	if x != 200 || w != 150 {
		t.Errorf("column 3 = (%v, %v)", x, w)
	}
	x, _ = o.ColumnPositionSize(4)
	if x != 350 {
		t.Errorf("column 4 x = %v, want 350", x)
	}

	tests := []struct {
		x    float32
		want int64
	}{
		{-5, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{200, 3},
		{349, 3},
		{350, 4},
		{449, 4},
		{450, 5},
	}
	for _, tt := range tests {
		if got := o.ColumnFromX(tt.x); got != tt.want {
			t.Errorf("ColumnFromX(%v) = %d, want %d", tt.x, got, tt.want)
		}
	}

	// Restoring the default removes the override.
	if d := o.SetColumnWidth(3, DefaultColumnWidth); d != -50 {
		t.Errorf("reset delta = %v", d)
	}
	x, _ = o.ColumnPositionSize(4)
	if x != 300 {
		t.Errorf("column 4 after reset x = %v", x)
	}
}

// TestSheetOffsets_Clone tests that clones are independent.
func TestSheetOffsets_Clone(t *testing.T) {
	o := NewSheetOffsets()
	o.SetRowHeight(2, 40)
	c := o.Clone()
	c.SetRowHeight(2, 10)

	if _, h := o.RowPositionSize(2); h != 40 {
		t.Errorf("original row height changed to %v", h)
	}
	if _, h := c.RowPositionSize(2); h != 10 {
		t.Errorf("clone row height = %v", h)
	}
}

// TestSheetOffsets_RectBounds tests pixel boxes of cell ranges.
func TestSheetOffsets_RectBounds(t *testing.T) {
	o := NewSheetOffsets()
	b := o.RectBounds(Rect{MinX: 2, MinY: 2, MaxX: 3, MaxY: 4})
	want := Bounds{X: 100, Y: 21, Width: 200, Height: 63}
	if b != want {
		t.Errorf("RectBounds = %+v, want %+v", b, want)
	}
	r := o.CellsIn(Bounds{X: 150, Y: 30, Width: 100, Height: 10})
	if r != (Rect{MinX: 2, MinY: 2, MaxX: 3, MaxY: 2}) {
		t.Errorf("CellsIn = %+v", r)
	}
}
