// Package cells manages the rendered text of a sheet, one tile at a time.
//
// A sheet is partitioned into fixed-size tiles (see [grid.GetHash]). Each
// tile is a [CellsTextHash]: it fetches its cells from the data engine,
// lays out one [label.CellLabel] per cell, clips overflowing text against
// neighbouring cells (also across tiles), builds mesh buffers and publishes
// them. [CellsLabels] owns the tiles of one sheet, creates them lazily,
// and answers neighbour and column/row size queries.
//
// Everything in this package runs on the render goroutine except
// [CellSource.FetchCells], which is called on its own goroutine and reports
// back through a [FetchResult] queue.
package cells

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gridtext/grid"
	"github.com/gogpu/gridtext/message"
)

// CellSource is the grid data engine as seen by the text pipeline.
type CellSource interface {
	// FetchCells returns every cell of req.Rect. It is called on a
	// dedicated goroutine and must honour ctx cancellation.
	FetchCells(ctx context.Context, req message.FetchRequest) ([]message.RenderCell, error)
}

// CellSourceFunc adapts a function to CellSource.
type CellSourceFunc func(ctx context.Context, req message.FetchRequest) ([]message.RenderCell, error)

// FetchCells calls f.
func (f CellSourceFunc) FetchCells(ctx context.Context, req message.FetchRequest) ([]message.RenderCell, error) {
	return f(ctx, req)
}

// FetchResult is the outcome of one fetch, delivered to the render
// goroutine.
type FetchResult struct {
	SheetID      string
	HashX, HashY int64
	RequestID    uint64
	Cells        []message.RenderCell
	Err          error
}

// Key returns the tile the result belongs to.
func (r FetchResult) Key() grid.HashKey { return grid.HashKey{X: r.HashX, Y: r.HashY} }

// Errors returned by the package.
var (
	// ErrTileNotLoaded is returned when an operation needs a tile's cells
	// and the tile has none.
	ErrTileNotLoaded = errors.New("cells: tile not loaded")

	// ErrStaleFetch is returned for a fetch result that no longer matches
	// the tile's outstanding request.
	ErrStaleFetch = errors.New("cells: stale fetch result")
)

// FetchError records a failed tile fetch. The tile is dirty again and is
// retried on a later tick.
type FetchError struct {
	Sheet string
	Tile  grid.HashKey
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cells: fetch %s tile %s: %v", e.Sheet, e.Tile, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
