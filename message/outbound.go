package message

import "github.com/gogpu/gridtext/grid"

// Overlay is a non-glyph element drawn over a tile by the canvas owner.
//
// The set of variants is closed: [Checkbox], [Dropdown] and [Emoji].
// Consumers type-switch over them.
type Overlay interface {
	// Cell returns the cell the overlay belongs to.
	Cell() grid.Pos

	overlay()
}

// Checkbox is a boolean cell drawn as a checkbox.
type Checkbox struct {
	Pos     grid.Pos
	Bounds  grid.Bounds
	Checked bool
}

// Dropdown is the list indicator of a validated cell.
type Dropdown struct {
	Pos    grid.Pos
	Bounds grid.Bounds
}

// Emoji is an emoji grapheme drawn from a sprite sheet rather than the font.
type Emoji struct {
	Pos    grid.Pos
	Bounds grid.Bounds
	Text   string
}

func (c Checkbox) Cell() grid.Pos { return c.Pos }
func (d Dropdown) Cell() grid.Pos { return d.Pos }
func (e Emoji) Cell() grid.Pos    { return e.Pos }

func (Checkbox) overlay() {}
func (Dropdown) overlay() {}
func (Emoji) overlay()    {}

// ClearTile starts a tile update. The consumer keeps showing the tile's old
// geometry until the matching FinalizeTile arrives.
type ClearTile struct {
	SheetID      string
	HashX, HashY int64

	// Bounds is the union of every glyph and overlay extent in the tile.
	Bounds grid.Bounds

	// OverflowGridLines lists the vertical grid lines hidden by overflowing
	// text. Pos.X is the column whose left edge is suppressed.
	OverflowGridLines []grid.Pos

	Overlays []Overlay

	// Occupancy has bit grid.CellIndex(x, y) set for every cell with a
	// label.
	Occupancy []uint64
}

// MeshSegment carries one finished buffer segment. Ownership of the slices
// moves to the consumer.
type MeshSegment struct {
	SheetID      string
	HashX, HashY int64

	FontName  string
	FontSize  float32
	TextureID uint32
	HasColor  bool

	// Vertices holds x,y pairs; UVs holds u,v pairs; Colors holds r,g,b,a
	// and is nil unless HasColor.
	Vertices []float32
	UVs      []float32
	Colors   []float32
	Indices  []uint16
}

// FinalizeTile swaps in the geometry sent since the last ClearTile.
type FinalizeTile struct {
	SheetID      string
	HashX, HashY int64
}

// UnloadTile drops a tile's geometry.
type UnloadTile struct {
	SheetID      string
	HashX, HashY int64
}

// FirstRenderComplete is sent once, after the focused sheet's visible tiles
// are all rendered for the first time.
type FirstRenderComplete struct {
	SheetID string
}
