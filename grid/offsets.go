package grid

import (
	"slices"

	"github.com/chewxy/math32"
)

// Default heading sizes in pixels.
const (
	DefaultColumnWidth float32 = 100
	DefaultRowHeight   float32 = 21
)

// headings stores the sizes of one axis: a default size plus sparse
// overrides. Indices below 1 are clamped to 1.
type headings struct {
	defaultSize float32
	custom      map[int64]float32
	keys        []int64 // sorted keys of custom
}

func newHeadings(defaultSize float32) headings {
	return headings{defaultSize: defaultSize, custom: make(map[int64]float32)}
}

func (h *headings) clone() headings {
	c := headings{
		defaultSize: h.defaultSize,
		custom:      make(map[int64]float32, len(h.custom)),
		keys:        slices.Clone(h.keys),
	}
	for k, v := range h.custom {
		c.custom[k] = v
	}
	return c
}

func (h *headings) size(i int64) float32 {
	if i < 1 {
		i = 1
	}
	if s, ok := h.custom[i]; ok {
		return s
	}
	return h.defaultSize
}

// position returns the leading edge of index i.
func (h *headings) position(i int64) float32 {
	if i < 1 {
		i = 1
	}
	pos := float32(i-1) * h.defaultSize
	for _, k := range h.keys {
		if k >= i {
			break
		}
		pos += h.custom[k] - h.defaultSize
	}
	return pos
}

// set stores a size for index i and returns the change in size.
func (h *headings) set(i int64, size float32) float32 {
	if i < 1 {
		i = 1
	}
	size = math32.Max(size, 0)
	old := h.size(i)
	if size == h.defaultSize {
		if _, ok := h.custom[i]; ok {
			delete(h.custom, i)
			idx, _ := slices.BinarySearch(h.keys, i)
			h.keys = slices.Delete(h.keys, idx, idx+1)
		}
		return size - old
	}
	if _, ok := h.custom[i]; !ok {
		idx, _ := slices.BinarySearch(h.keys, i)
		h.keys = slices.Insert(h.keys, idx, i)
	}
	h.custom[i] = size
	return size - old
}

// find returns the index whose span contains pixel p.
func (h *headings) find(p float32) int64 {
	if p <= 0 {
		return 1
	}
	var pos float32
	next := int64(1)
	for _, k := range h.keys {
		span := float32(k-next) * h.defaultSize
		if p < pos+span {
			return next + int64(math32.Floor((p-pos)/h.defaultSize))
		}
		pos += span
		w := h.custom[k]
		if p < pos+w {
			return k
		}
		pos += w
		next = k + 1
	}
	if h.defaultSize <= 0 {
		return next
	}
	return next + int64(math32.Floor((p-pos)/h.defaultSize))
}

// SheetOffsets maps columns and rows to pixel positions.
//
// SheetOffsets is not safe for concurrent use; it belongs to the render
// thread once handed to the pipeline.
type SheetOffsets struct {
	columns headings
	rows    headings
}

// NewSheetOffsets returns offsets with the default column width and row
// height.
func NewSheetOffsets() *SheetOffsets {
	return &SheetOffsets{
		columns: newHeadings(DefaultColumnWidth),
		rows:    newHeadings(DefaultRowHeight),
	}
}

// Clone returns an independent copy of o.
func (o *SheetOffsets) Clone() *SheetOffsets {
	return &SheetOffsets{columns: o.columns.clone(), rows: o.rows.clone()}
}

// ColumnPositionSize returns the left edge and width of column.
func (o *SheetOffsets) ColumnPositionSize(column int64) (x, width float32) {
	return o.columns.position(column), o.columns.size(column)
}

// RowPositionSize returns the top edge and height of row.
func (o *SheetOffsets) RowPositionSize(row int64) (y, height float32) {
	return o.rows.position(row), o.rows.size(row)
}

// ColumnFromX returns the column containing pixel x.
func (o *SheetOffsets) ColumnFromX(x float32) int64 {
	return o.columns.find(x)
}

// RowFromY returns the row containing pixel y.
func (o *SheetOffsets) RowFromY(y float32) int64 {
	return o.rows.find(y)
}

// CellBounds returns the pixel box of cell (column, row).
func (o *SheetOffsets) CellBounds(column, row int64) Bounds {
	x, w := o.ColumnPositionSize(column)
	y, h := o.RowPositionSize(row)
	return Bounds{X: x, Y: y, Width: w, Height: h}
}

// RectBounds returns the pixel box covering the cell rectangle r.
func (o *SheetOffsets) RectBounds(r Rect) Bounds {
	left := o.columns.position(r.MinX)
	right := o.columns.position(r.MaxX) + o.columns.size(r.MaxX)
	top := o.rows.position(r.MinY)
	bottom := o.rows.position(r.MaxY) + o.rows.size(r.MaxY)
	return BoundsFromEdges(left, top, right, bottom)
}

// CellsIn returns the cell rectangle covering the pixel box b.
func (o *SheetOffsets) CellsIn(b Bounds) Rect {
	return Rect{
		MinX: o.ColumnFromX(b.Left()),
		MinY: o.RowFromY(b.Top()),
		MaxX: o.ColumnFromX(b.Right()),
		MaxY: o.RowFromY(b.Bottom()),
	}
}

// SetColumnWidth sets the width of column and returns the change in width.
func (o *SheetOffsets) SetColumnWidth(column int64, width float32) float32 {
	return o.columns.set(column, width)
}

// SetRowHeight sets the height of row and returns the change in height.
func (o *SheetOffsets) SetRowHeight(row int64, height float32) float32 {
	return o.rows.set(row, height)
}
