// Package grid holds the coordinate model shared by every stage of the
// text pipeline: cell positions, cell rectangles, pixel boxes, the tile
// ("hash") partition of a sheet, and the column/row pixel geometry.
//
// The tile size is shared with the grid data engine. Both sides bucket
// cells with [GetHash], so dirty notifications and fetch responses agree on
// tile boundaries without negotiation.
package grid

import "fmt"

// Tile dimensions in cells.
const (
	// HashWidth is the number of columns in one tile.
	HashWidth = 15

	// HashHeight is the number of rows in one tile.
	HashHeight = 30

	// HashCells is the number of cells in one tile.
	HashCells = HashWidth * HashHeight
)

// MaxCoordinate bounds accepted cell coordinates. Anything beyond it is
// treated as malformed input from the data engine.
const MaxCoordinate int64 = 1 << 31

// Pos is a cell location (column X, row Y). Columns and rows start at 1;
// 0 is reserved and clamped to 1 where geometry is needed.
type Pos struct {
	X, Y int64
}

// String returns the position as "(x,y)".
func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Valid reports whether p lies within [-MaxCoordinate, MaxCoordinate].
func (p Pos) Valid() bool {
	return p.X >= -MaxCoordinate && p.X <= MaxCoordinate &&
		p.Y >= -MaxCoordinate && p.Y <= MaxCoordinate
}

// Rect is an inclusive rectangle of cells.
type Rect struct {
	MinX, MinY, MaxX, MaxY int64
}

// NewRect returns the rectangle spanning both corners in any order.
func NewRect(x0, y0, x1, y1 int64) Rect {
	return Rect{
		MinX: min(x0, x1),
		MinY: min(y0, y1),
		MaxX: max(x0, x1),
		MaxY: max(y0, y1),
	}
}

// Contains reports whether the cell (x, y) is inside r.
func (r Rect) Contains(x, y int64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Intersects reports whether r and o share at least one cell.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && o.MinX <= r.MaxX && r.MinY <= o.MaxY && o.MinY <= r.MaxY
}

// Width returns the number of columns in r.
func (r Rect) Width() int64 { return r.MaxX - r.MinX + 1 }

// Height returns the number of rows in r.
func (r Rect) Height() int64 { return r.MaxY - r.MinY + 1 }

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: min(r.MinX, o.MinX),
		MinY: min(r.MinY, o.MinY),
		MaxX: max(r.MaxX, o.MaxX),
		MaxY: max(r.MaxY, o.MaxY),
	}
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// GetHash returns the tile index containing cell (x, y).
//
// Tiles are aligned at zero: columns 0..HashWidth-1 are tile 0 and
// HashWidth is the first column of tile 1. Negative coordinates map to
// negative tiles.
func GetHash(x, y int64) (hashX, hashY int64) {
	return floorDiv(x, HashWidth), floorDiv(y, HashHeight)
}

// HashRect returns the cell rectangle covered by tile (hashX, hashY).
func HashRect(hashX, hashY int64) Rect {
	return Rect{
		MinX: hashX * HashWidth,
		MinY: hashY * HashHeight,
		MaxX: hashX*HashWidth + HashWidth - 1,
		MaxY: hashY*HashHeight + HashHeight - 1,
	}
}

// HashesIn returns the inclusive tile range covering the cell rectangle r.
func HashesIn(r Rect) Rect {
	x0, y0 := GetHash(r.MinX, r.MinY)
	x1, y1 := GetHash(r.MaxX, r.MaxY)
	return Rect{MinX: x0, MinY: y0, MaxX: x1, MaxY: y1}
}

// CellIndex returns the index of cell (x, y) within its tile, in row-major
// order. It is the bit index used by tile occupancy sets.
func CellIndex(x, y int64) uint {
	hx, hy := GetHash(x, y)
	dx := x - hx*HashWidth
	dy := y - hy*HashHeight
	return uint(dy*HashWidth + dx)
}

// HashKey identifies a tile within a sheet.
type HashKey struct {
	X, Y int64
}

// String returns the key as "x,y".
func (k HashKey) String() string {
	return fmt.Sprintf("%d,%d", k.X, k.Y)
}
