package cells

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gogpu/gridtext/font"
	"github.com/gogpu/gridtext/grid"
	"github.com/gogpu/gridtext/message"
)

// Options are the collaborators shared by every tile of a sheet.
type Options struct {
	Fonts     *font.Fonts
	Publisher message.Publisher
	Source    CellSource

	// Results receives fetch outcomes. The owner drains it on the render
	// goroutine and hands each result to ApplyFetch.
	Results chan<- FetchResult

	// FetchTimeout bounds a single fetch. Zero means no limit.
	FetchTimeout time.Duration

	Logger *slog.Logger
}

func (o Options) validate() error {
	switch {
	case o.Fonts == nil:
		return errors.New("cells: Options.Fonts is nil")
	case o.Publisher == nil:
		return errors.New("cells: Options.Publisher is nil")
	case o.Source == nil:
		return errors.New("cells: Options.Source is nil")
	case o.Results == nil:
		return errors.New("cells: Options.Results is nil")
	}
	return nil
}

// CellsLabels owns the tiles of one sheet.
type CellsLabels struct {
	id      string
	offsets *grid.SheetOffsets
	content *grid.Rect
	hashes  map[grid.HashKey]*CellsTextHash

	// hidden cells are being edited and drawn by the editor instead.
	hidden map[grid.Pos]bool

	fonts        *font.Fonts
	publisher    message.Publisher
	source       CellSource
	results      chan<- FetchResult
	fetchTimeout time.Duration
	logger       *slog.Logger

	lastRequest uint64
}

// NewCellsLabels returns the coordinator of the sheet described by snap.
func NewCellsLabels(snap message.SheetSnapshot, opts Options) (*CellsLabels, error) {
	if snap.SheetID == "" {
		return nil, errors.New("cells: empty sheet id")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &CellsLabels{
		id:           snap.SheetID,
		hashes:       make(map[grid.HashKey]*CellsTextHash),
		hidden:       make(map[grid.Pos]bool),
		fonts:        opts.Fonts,
		publisher:    opts.Publisher,
		source:       opts.Source,
		results:      opts.Results,
		fetchTimeout: opts.FetchTimeout,
		logger:       logger.With("sheet", snap.SheetID),
	}
	s.setSnapshot(snap)
	return s, nil
}

// ID returns the sheet id.
func (s *CellsLabels) ID() string { return s.id }

// Offsets returns the sheet's column/row geometry.
func (s *CellsLabels) Offsets() *grid.SheetOffsets { return s.offsets }

// ContentBounds returns the non-empty cell rectangle.
func (s *CellsLabels) ContentBounds() (grid.Rect, bool) {
	if s.content == nil {
		return grid.Rect{}, false
	}
	return *s.content, true
}

func (s *CellsLabels) setSnapshot(snap message.SheetSnapshot) {
	if snap.Offsets != nil {
		s.offsets = snap.Offsets.Clone()
	} else {
		s.offsets = grid.NewSheetOffsets()
	}
	s.content = nil
	if snap.Bounds != nil {
		b := *snap.Bounds
		s.content = &b
	}
}

// UpdateSnapshot replaces the sheet's geometry and content bounds. Loaded
// tiles are relaid out against the new geometry.
func (s *CellsLabels) UpdateSnapshot(snap message.SheetSnapshot) {
	s.setSnapshot(snap)
	for _, h := range s.hashes {
		h.relayout()
	}
}

// GetHash returns the tile containing cell (x, y).
func (s *CellsLabels) GetHash(x, y int64) grid.HashKey {
	hx, hy := grid.GetHash(x, y)
	return grid.HashKey{X: hx, Y: hy}
}

// Hash returns an existing tile.
func (s *CellsLabels) Hash(key grid.HashKey) (*CellsTextHash, bool) {
	h, ok := s.hashes[key]
	return h, ok
}

// hash returns the tile for key, creating it.
func (s *CellsLabels) hash(key grid.HashKey) *CellsTextHash {
	h, ok := s.hashes[key]
	if !ok {
		h = newCellsTextHash(s, key)
		s.hashes[key] = h
	}
	return h
}

// EnsureHashes creates the tiles covering cells of r that are inside the
// content bounds, and returns how many were created.
func (s *CellsLabels) EnsureHashes(r grid.Rect) int {
	if s.content == nil || !s.content.Intersects(r) {
		return 0
	}
	r = grid.Rect{
		MinX: max(r.MinX, s.content.MinX),
		MinY: max(r.MinY, s.content.MinY),
		MaxX: min(r.MaxX, s.content.MaxX),
		MaxY: min(r.MaxY, s.content.MaxY),
	}
	tiles := grid.HashesIn(r)
	created := 0
	for hy := tiles.MinY; hy <= tiles.MaxY; hy++ {
		for hx := tiles.MinX; hx <= tiles.MaxX; hx++ {
			key := grid.HashKey{X: hx, Y: hy}
			if _, ok := s.hashes[key]; !ok {
				s.hashes[key] = newCellsTextHash(s, key)
				created++
			}
		}
	}
	return created
}

// Hashes returns every tile, top to bottom then left to right.
func (s *CellsLabels) Hashes() []*CellsTextHash {
	out := make([]*CellsTextHash, 0, len(s.hashes))
	for _, h := range s.hashes {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b *CellsTextHash) int {
		if c := cmp.Compare(a.key.Y, b.key.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.key.X, b.key.X)
	})
	return out
}

// MarkDirty schedules a refetch of tiles.
func (s *CellsLabels) MarkDirty(tiles []grid.HashKey) {
	for _, key := range tiles {
		s.hash(key).MarkDirty()
	}
}

// Push applies a cell batch. Batches with a request id answer a fetch;
// the rest replace the tile's cells outright.
func (s *CellsLabels) Push(batch message.CellBatch) error {
	if batch.RequestID != 0 {
		return s.ApplyFetch(FetchResult{
			SheetID:   batch.SheetID,
			HashX:     batch.HashX,
			HashY:     batch.HashY,
			RequestID: batch.RequestID,
			Cells:     batch.Cells,
		})
	}
	s.hash(grid.HashKey{X: batch.HashX, Y: batch.HashY}).push(batch.Cells)
	return nil
}

// ApplyFetch hands a fetch result to its tile. Results for tiles that were
// unloaded, marked dirty again or deleted return ErrStaleFetch and are
// otherwise ignored.
func (s *CellsLabels) ApplyFetch(res FetchResult) error {
	h, ok := s.hashes[res.Key()]
	if !ok {
		return fmt.Errorf("tile %s: %w", res.Key(), ErrStaleFetch)
	}
	return h.applyFetch(res)
}

func (s *CellsLabels) nextRequestID() uint64 {
	s.lastRequest++
	return s.lastRequest
}

// fetch runs the cell source on its own goroutine. Cancelled fetches are
// never delivered.
func (s *CellsLabels) fetch(ctx context.Context, req message.FetchRequest) {
	s.logger.Debug("fetching tile", "tile", grid.HashKey{X: req.HashX, Y: req.HashY}, "request", req.RequestID)
	go func() {
		fctx := ctx
		if s.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()
		}
		cells, err := s.source.FetchCells(fctx, req)
		res := FetchResult{
			SheetID:   req.SheetID,
			HashX:     req.HashX,
			HashY:     req.HashY,
			RequestID: req.RequestID,
			Cells:     cells,
			Err:       err,
		}
		select {
		case s.results <- res:
		case <-ctx.Done():
		}
	}()
}

// ResizeHeading applies a column or row resize to the offsets and the
// tiles. It returns the size change in pixels.
func (s *CellsLabels) ResizeHeading(msg message.HeadingResize) float32 {
	var delta float32
	switch {
	case msg.Column != nil:
		size := msg.Size
		if msg.Transient {
			_, w := s.offsets.ColumnPositionSize(*msg.Column)
			size = w + msg.Delta
		}
		delta = s.offsets.SetColumnWidth(*msg.Column, size)
	case msg.Row != nil:
		size := msg.Size
		if msg.Transient {
			_, h := s.offsets.RowPositionSize(*msg.Row)
			size = h + msg.Delta
		}
		delta = s.offsets.SetRowHeight(*msg.Row, size)
	default:
		return 0
	}
	if delta != 0 {
		s.AdjustHeadings(msg.Column, msg.Row, delta)
	}
	return delta
}

// AdjustHeadings moves every tile past the resized column or row by delta
// without relayout, and relays out the tiles containing it. The offsets
// must already hold the new size.
func (s *CellsLabels) AdjustHeadings(column, row *int64, delta float32) {
	for _, h := range s.hashes {
		h.adjustHeadings(column, row, delta)
	}
}

// ShowLabel shows or hides the label of cell (x, y). The state survives a
// refetch of the tile.
func (s *CellsLabels) ShowLabel(x, y int64, visible bool) {
	p := grid.Pos{X: x, Y: y}
	if visible {
		delete(s.hidden, p)
	} else {
		s.hidden[p] = true
	}
	if h, ok := s.hashes[s.GetHash(x, y)]; ok {
		h.showLabel(p, visible)
	}
}

// ColumnMaxWidth returns the widest unwrapped text in column across all
// tiles that have been laid out, including unloaded ones.
func (s *CellsLabels) ColumnMaxWidth(column int64) (float32, bool) {
	hx, _ := grid.GetHash(column, 0)
	var widest float32
	found := false
	for key, h := range s.hashes {
		if key.X != hx {
			continue
		}
		if w, ok := h.ColumnMaxWidth(column); ok {
			widest = max(widest, w)
			found = true
		}
	}
	return widest, found
}

// RowMaxHeight returns the tallest text in row across all tiles that have
// been laid out, including unloaded ones.
func (s *CellsLabels) RowMaxHeight(row int64) (float32, bool) {
	_, hy := grid.GetHash(0, row)
	var tallest float32
	found := false
	for key, h := range s.hashes {
		if key.Y != hy {
			continue
		}
		if v, ok := h.RowMaxHeight(row); ok {
			tallest = max(tallest, v)
			found = true
		}
	}
	return tallest, found
}

// hashRange returns the tile range of the content bounds.
func (s *CellsLabels) hashRange() (grid.Rect, bool) {
	if s.content == nil {
		return grid.Rect{}, false
	}
	return grid.HashesIn(*s.content), true
}

// findPreviousHash returns the nearest loaded tile left of hashX, in the
// tile row of row, that has a label in row. The scan stops at the content
// bounds.
func (s *CellsLabels) findPreviousHash(hashX, row int64) *CellsTextHash {
	tiles, ok := s.hashRange()
	if !ok {
		return nil
	}
	_, hy := grid.GetHash(0, row)
	for hx := min(hashX-1, tiles.MaxX); hx >= tiles.MinX; hx-- {
		if h, ok := s.hashes[grid.HashKey{X: hx, Y: hy}]; ok && h.hasRow(row) {
			return h
		}
	}
	return nil
}

// findNextHash mirrors findPreviousHash to the right.
func (s *CellsLabels) findNextHash(hashX, row int64) *CellsTextHash {
	tiles, ok := s.hashRange()
	if !ok {
		return nil
	}
	_, hy := grid.GetHash(0, row)
	for hx := max(hashX+1, tiles.MinX); hx <= tiles.MaxX; hx++ {
		if h, ok := s.hashes[grid.HashKey{X: hx, Y: hy}]; ok && h.hasRow(row) {
			return h
		}
	}
	return nil
}

// Bytes returns the published geometry size of every tile.
func (s *CellsLabels) Bytes() int {
	n := 0
	for _, h := range s.hashes {
		n += h.bytes
	}
	return n
}

// Close unloads every tile and forgets them.
func (s *CellsLabels) Close() {
	for _, h := range s.hashes {
		h.Unload()
	}
	clear(s.hashes)
}
