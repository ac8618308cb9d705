// Package message defines the typed payloads exchanged between the text
// pipeline and its collaborators.
//
// Inbound payloads come from the grid data engine (sheet snapshots, cell
// batches, heading resizes, dirty-tile notifications) and from the canvas
// owner (viewport updates). Outbound payloads carry finished geometry to the
// canvas owner through a [Publisher].
//
// Each message category has its own struct type; there is no string-keyed
// event bus.
package message

import (
	"github.com/gogpu/gridtext/grid"
	"github.com/gogpu/gridtext/numfmt"
)

// Special marks cells that are not rendered as their literal value.
type Special uint8

const (
	// SpecialNone is an ordinary cell.
	SpecialNone Special = iota
	// SpecialCheckbox renders a checkbox overlay instead of text.
	SpecialCheckbox
	// SpecialList renders its value plus a dropdown overlay.
	SpecialList
	// SpecialSpillError marks a formula whose output could not spill.
	SpecialSpillError
	// SpecialRunError marks a formula that failed to run.
	SpecialRunError
	// SpecialChart marks a chart or image placeholder.
	SpecialChart
	// SpecialLogical marks a boolean value.
	SpecialLogical
)

// String returns the special kind name.
func (s Special) String() string {
	switch s {
	case SpecialNone:
		return "None"
	case SpecialCheckbox:
		return "Checkbox"
	case SpecialList:
		return "List"
	case SpecialSpillError:
		return "SpillError"
	case SpecialRunError:
		return "RunError"
	case SpecialChart:
		return "Chart"
	case SpecialLogical:
		return "Logical"
	default:
		return "Unknown"
	}
}

// Align is the horizontal text alignment.
type Align uint8

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
	AlignJustify
)

// VerticalAlign is the vertical text alignment.
type VerticalAlign uint8

const (
	VerticalBottom VerticalAlign = iota
	VerticalMiddle
	VerticalTop
)

// Wrap is the cell wrap mode.
type Wrap uint8

const (
	// WrapOverflow lets text spill into empty neighbouring cells.
	WrapOverflow Wrap = iota
	// WrapWrap breaks lines at the cell width.
	WrapWrap
	// WrapClip truncates text at the cell edges.
	WrapClip
)

// RenderCell is one cell as delivered by the grid data engine.
type RenderCell struct {
	X, Y int64

	// Value is the display string. For numeric cells (Number != nil) it is
	// the raw decimal string.
	Value string

	Special Special

	// Number formats Value when the cell is numeric.
	Number *numfmt.Format

	Bold   *bool
	Italic *bool

	// TextColor is a CSS hex color ("#rgb" or "#rrggbb"). Empty means the
	// default text color.
	TextColor string

	Align         Align
	VerticalAlign VerticalAlign
	Wrap          Wrap

	// FontSize in pixels; 0 means the default size.
	FontSize float32

	Underline     bool
	StrikeThrough bool
}

// Pos returns the cell location.
func (c RenderCell) Pos() grid.Pos { return grid.Pos{X: c.X, Y: c.Y} }

// SheetSnapshot announces a sheet or replaces its geometry.
type SheetSnapshot struct {
	SheetID string

	// Offsets is the column/row pixel geometry. The pipeline keeps its own
	// clone.
	Offsets *grid.SheetOffsets

	// Bounds is the non-empty content rectangle, nil for an empty sheet.
	Bounds *grid.Rect
}

// CellBatch carries the cells of one tile.
type CellBatch struct {
	SheetID      string
	HashX, HashY int64

	// RequestID echoes the FetchRequest this batch answers. Zero marks an
	// unsolicited push.
	RequestID uint64

	Cells []RenderCell
}

// FetchRequest asks the data engine for every cell in a tile.
type FetchRequest struct {
	SheetID      string
	HashX, HashY int64
	RequestID    uint64

	// Rect is the tile's cell rectangle.
	Rect grid.Rect
}

// HeadingResize reports a column or row size change. Exactly one of Column
// and Row is set.
type HeadingResize struct {
	SheetID string
	Column  *int64
	Row     *int64

	// Size is the new size in pixels. When Transient is set (interactive
	// drag), Delta is applied instead and Size is ignored.
	Size      float32
	Delta     float32
	Transient bool
}

// DirtyTiles marks tiles as needing a refetch.
type DirtyTiles struct {
	SheetID string
	Tiles   []grid.HashKey
}

// Viewport is the visible world rectangle of the focused sheet.
type Viewport struct {
	SheetID string
	Bounds  grid.Bounds
	Scale   float32
}
