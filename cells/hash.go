package cells

import (
	"cmp"
	"context"
	"slices"

	"github.com/bits-and-blooms/bitset"

	"github.com/gogpu/gridtext/grid"
	"github.com/gogpu/gridtext/label"
	"github.com/gogpu/gridtext/mesh"
	"github.com/gogpu/gridtext/message"
)

// State is the processing stage of a tile.
type State uint8

const (
	// StateUnloaded means the tile holds no cells.
	StateUnloaded State = iota

	// StateFetching means a fetch is outstanding.
	StateFetching

	// StateLaidOut means the labels are laid out but not clipped.
	StateLaidOut

	// StateClipped means clip edges are resolved; buffers are next.
	StateClipped

	// StateBuffered means the tile's geometry is published.
	StateBuffered
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateFetching:
		return "fetching"
	case StateLaidOut:
		return "laid-out"
	case StateClipped:
		return "clipped"
	case StateBuffered:
		return "buffered"
	default:
		return "unknown"
	}
}

// CellsTextHash is the rendered text of one tile.
//
// The tile walks unloaded → fetching → laid-out → clipped → buffered, one
// step per [CellsTextHash.Update] call. Dirty flags send it back to the
// earliest stage that is stale:
//
//   - dirty: cells must be refetched
//   - pending: a cell payload waits to replace the current labels
//   - dirtyText: column/row geometry changed, labels need relayout
//   - dirtyBuffers, dirtyShow: only the geometry needs rebuilding
type CellsTextHash struct {
	sheet *CellsLabels
	key   grid.HashKey
	rect  grid.Rect

	// nominal is the pixel box of the tile's cells; bounds also covers
	// everything the tile draws.
	nominal grid.Bounds
	bounds  grid.Bounds

	state  State
	loaded bool

	labels    map[grid.Pos]*label.CellLabel
	order     []grid.Pos // row-major
	occupancy *bitset.BitSet

	dirty        bool
	pending      []message.RenderCell
	hasPending   bool
	dirtyText    bool
	dirtyBuffers bool
	dirtyShow    bool

	requestID uint64
	cancel    context.CancelFunc

	gridLines []grid.Pos
	overlays  []message.Overlay
	bytes     int
	published bool

	// Column and row size caches survive Unload so auto-size queries
	// still see evicted tiles.
	columnsMax map[int64]float32
	rowsMax    map[int64]float32
}

func newCellsTextHash(sheet *CellsLabels, key grid.HashKey) *CellsTextHash {
	if sheet == nil {
		panic("cells: tile without a sheet")
	}
	rect := grid.HashRect(key.X, key.Y)
	nominal := sheet.offsets.RectBounds(rect)
	return &CellsTextHash{
		sheet:      sheet,
		key:        key,
		rect:       rect,
		nominal:    nominal,
		bounds:     nominal,
		dirty:      true,
		labels:     make(map[grid.Pos]*label.CellLabel),
		occupancy:  bitset.New(grid.HashCells),
		columnsMax: make(map[int64]float32),
		rowsMax:    make(map[int64]float32),
	}
}

// Key returns the tile index.
func (h *CellsTextHash) Key() grid.HashKey { return h.key }

// Rect returns the tile's cell rectangle.
func (h *CellsTextHash) Rect() grid.Rect { return h.rect }

// Bounds returns the pixel box covering the tile's cells and everything it
// draws, including overflow into other tiles.
func (h *CellsTextHash) Bounds() grid.Bounds { return h.bounds }

// State returns the tile's processing stage.
func (h *CellsTextHash) State() State {
	if h.requestID != 0 {
		return StateFetching
	}
	return h.state
}

// Loaded reports whether the tile holds cell data.
func (h *CellsTextHash) Loaded() bool { return h.loaded }

// Fetching reports whether a fetch is outstanding.
func (h *CellsTextHash) Fetching() bool { return h.requestID != 0 }

// NeedsFetch reports whether the tile waits for a refetch.
func (h *CellsTextHash) NeedsFetch() bool { return h.dirty }

// Dirty reports whether Update has work to do.
func (h *CellsTextHash) Dirty() bool {
	return h.dirty || h.hasPending || h.dirtyText || h.dirtyBuffers || h.dirtyShow ||
		h.state == StateLaidOut || h.state == StateClipped
}

// Busy reports whether the tile is dirty or waiting on a fetch.
func (h *CellsTextHash) Busy() bool { return h.Dirty() || h.Fetching() }

// Bytes returns the size of the tile's published geometry.
func (h *CellsTextHash) Bytes() int { return h.bytes }

// Len returns the number of labels.
func (h *CellsTextHash) Len() int { return len(h.labels) }

// Label returns the label of cell p.
func (h *CellsTextHash) Label(p grid.Pos) (*label.CellLabel, bool) {
	l, ok := h.labels[p]
	return l, ok
}

// Labels returns the labels in row-major order.
func (h *CellsTextHash) Labels() []*label.CellLabel {
	out := make([]*label.CellLabel, 0, len(h.order))
	for _, p := range h.order {
		out = append(out, h.labels[p])
	}
	return out
}

// GridLines returns the grid lines hidden by overflow at the last build.
func (h *CellsTextHash) GridLines() []grid.Pos { return h.gridLines }

// Overlays returns the overlays published at the last build.
func (h *CellsTextHash) Overlays() []message.Overlay { return h.overlays }

// MarkDirty schedules a refetch. An outstanding fetch is cancelled and its
// result will be dropped.
func (h *CellsTextHash) MarkDirty() {
	h.cancelFetch()
	h.dirty = true
}

func (h *CellsTextHash) cancelFetch() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.requestID = 0
}

// Update advances the tile by one step and reports whether it did any
// work. Fetches are only started when fetchAllowed is set; a dirty tile
// otherwise stays dirty.
func (h *CellsTextHash) Update(ctx context.Context, fetchAllowed bool) bool {
	switch {
	case h.dirty && fetchAllowed && h.requestID == 0:
		h.startFetch(ctx)
	case h.hasPending:
		h.applyCells(h.pending)
		h.pending, h.hasPending = nil, false
		h.layout()
	case h.dirtyText && h.loaded:
		h.layout()
	case h.state == StateLaidOut:
		h.checkClip()
	case h.loaded && (h.state == StateClipped || h.dirtyBuffers || h.dirtyShow):
		h.buildBuffers()
	default:
		return false
	}
	return true
}

func (h *CellsTextHash) startFetch(ctx context.Context) {
	h.dirty = false
	id := h.sheet.nextRequestID()
	fctx, cancel := context.WithCancel(ctx)
	h.requestID, h.cancel = id, cancel
	h.sheet.fetch(fctx, message.FetchRequest{
		SheetID:   h.sheet.id,
		HashX:     h.key.X,
		HashY:     h.key.Y,
		RequestID: id,
		Rect:      h.rect,
	})
}

// applyFetch accepts the result of the outstanding fetch.
func (h *CellsTextHash) applyFetch(res FetchResult) error {
	if h.requestID == 0 || res.RequestID != h.requestID {
		return ErrStaleFetch
	}
	h.cancelFetch()
	if res.Err != nil {
		h.dirty = true
		return &FetchError{Sheet: h.sheet.id, Tile: h.key, Err: res.Err}
	}
	h.setPending(res.Cells)
	return nil
}

// push replaces the tile's cells with an unsolicited payload. It supersedes
// any outstanding fetch.
func (h *CellsTextHash) push(cells []message.RenderCell) {
	h.cancelFetch()
	h.setPending(cells)
}

func (h *CellsTextHash) setPending(cells []message.RenderCell) {
	h.pending, h.hasPending = cells, true
	h.dirty = false
}

// applyCells replaces the labels with cells.
func (h *CellsTextHash) applyCells(cells []message.RenderCell) {
	clear(h.labels)
	h.order = h.order[:0]
	h.occupancy.ClearAll()

	offsets := h.sheet.offsets
	for _, c := range cells {
		p := c.Pos()
		if !p.Valid() {
			h.sheet.logger.Warn("dropping out-of-range cell", "tile", h.key, "cell", p)
			continue
		}
		if !h.rect.Contains(p.X, p.Y) {
			h.sheet.logger.Warn("dropping cell outside its tile", "tile", h.key, "cell", p)
			continue
		}
		if _, dup := h.labels[p]; !dup {
			h.order = append(h.order, p)
		}
		l := label.New(c, offsets.CellBounds(p.X, p.Y))
		if h.sheet.hidden[p] {
			l.SetVisible(false)
		}
		h.labels[p] = l
		h.occupancy.Set(grid.CellIndex(p.X, p.Y))
	}
	slices.SortFunc(h.order, func(a, b grid.Pos) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})

	h.loaded = true
	h.sheet.recheckNeighbours(h)
}

// layout lays out every label against the current sheet geometry.
func (h *CellsTextHash) layout() {
	offsets := h.sheet.offsets
	h.nominal = offsets.RectBounds(h.rect)
	for _, p := range h.order {
		l := h.labels[p]
		l.SetBounds(offsets.CellBounds(p.X, p.Y))
		if err := l.Layout(h.sheet.fonts, h.sheet.logger); err != nil {
			h.sheet.logger.Warn("label layout failed", "tile", h.key, "cell", p, "err", err)
		}
	}
	h.updateSizeCaches()
	h.dirtyText = false
	h.state = StateLaidOut
}

func (h *CellsTextHash) updateSizeCaches() {
	clear(h.columnsMax)
	clear(h.rowsMax)
	for _, p := range h.order {
		l := h.labels[p]
		if !l.LaidOut() {
			continue
		}
		h.columnsMax[p.X] = max(h.columnsMax[p.X], l.UnwrappedWidth())
		h.rowsMax[p.Y] = max(h.rowsMax[p.Y], l.HeightWithDescenders())
	}
}

// ColumnMaxWidth returns the widest unwrapped label in column.
func (h *CellsTextHash) ColumnMaxWidth(column int64) (float32, bool) {
	w, ok := h.columnsMax[column]
	return w, ok
}

// RowMaxHeight returns the tallest label in row.
func (h *CellsTextHash) RowMaxHeight(row int64) (float32, bool) {
	v, ok := h.rowsMax[row]
	return v, ok
}

// buildBuffers writes every label into fresh meshes and publishes them.
func (h *CellsTextHash) buildBuffers() {
	meshes := mesh.NewLabelMeshes()
	for _, p := range h.order {
		h.labels[p].Reserve(meshes)
	}
	meshes.Prepare()

	written := grid.EmptyBounds()
	h.gridLines = nil
	h.overlays = nil
	for _, p := range h.order {
		l := h.labels[p]
		if !l.LaidOut() {
			continue
		}
		b, err := l.Emit(meshes)
		if err != nil {
			h.sheet.logger.Warn("label emit failed", "tile", h.key, "cell", p, "err", err)
			continue
		}
		written = written.Union(b)
		h.gridLines = append(h.gridLines, l.GridLines(h.sheet.offsets)...)
		for _, o := range l.Overlays() {
			h.overlays = append(h.overlays, o)
			written = written.Union(overlayBounds(o))
		}
	}
	meshes.Finalize()

	h.bounds = h.nominal.Union(written)
	h.bytes = meshes.Bytes()
	batches := meshes.Len()
	h.publish(meshes)

	h.dirtyBuffers, h.dirtyShow = false, false
	h.state = StateBuffered
	h.sheet.logger.Debug("tile buffered", "tile", h.key, "labels", len(h.order), "batches", batches, "bytes", h.bytes)
}

func overlayBounds(o message.Overlay) grid.Bounds {
	switch o := o.(type) {
	case message.Checkbox:
		return o.Bounds
	case message.Dropdown:
		return o.Bounds
	case message.Emoji:
		return o.Bounds
	default:
		panic("cells: unknown overlay type")
	}
}

// publish sends clear, one message per segment, then finalize. The segment
// slices move to the publisher.
func (h *CellsTextHash) publish(meshes *mesh.LabelMeshes) {
	pub := h.sheet.publisher
	id := h.sheet.id
	pub.Clear(message.ClearTile{
		SheetID:           id,
		HashX:             h.key.X,
		HashY:             h.key.Y,
		Bounds:            h.bounds,
		OverflowGridLines: slices.Clone(h.gridLines),
		Overlays:          slices.Clone(h.overlays),
		Occupancy:         slices.Clone(h.occupancy.Bytes()),
	})
	for _, m := range meshes.All() {
		for _, s := range m.Segments() {
			pub.Segment(message.MeshSegment{
				SheetID:   id,
				HashX:     h.key.X,
				HashY:     h.key.Y,
				FontName:  m.Key.FontName,
				FontSize:  m.Key.FontSize,
				TextureID: m.Key.TextureID,
				HasColor:  m.Key.HasColor,
				Vertices:  s.Vertices,
				UVs:       s.UVs,
				Colors:    s.Colors,
				Indices:   s.Indices,
			})
		}
	}
	meshes.Clear()
	pub.Finalize(message.FinalizeTile{SheetID: id, HashX: h.key.X, HashY: h.key.Y})
	h.published = true
}

// Unload frees the tile's labels and geometry. The tile is dirty again and
// refetches when next updated; the column/row size caches are kept.
func (h *CellsTextHash) Unload() {
	h.cancelFetch()
	if h.published {
		h.sheet.publisher.Unload(message.UnloadTile{SheetID: h.sheet.id, HashX: h.key.X, HashY: h.key.Y})
		h.published = false
	}
	clear(h.labels)
	h.order = nil
	h.occupancy.ClearAll()
	h.pending, h.hasPending = nil, false
	h.dirtyText, h.dirtyBuffers, h.dirtyShow = false, false, false
	h.gridLines, h.overlays = nil, nil
	h.bytes = 0
	h.bounds = h.nominal
	h.loaded = false
	h.state = StateUnloaded
	h.dirty = true
}

// adjustHeadings applies a column or row resize of delta pixels. Tiles past
// the resized heading move without relayout; the tile containing it is
// relaid out.
func (h *CellsTextHash) adjustHeadings(column, row *int64, delta float32) {
	var dx, dy float32
	switch {
	case column != nil && h.rect.MinX > *column:
		dx = delta
	case column != nil && h.rect.MaxX >= *column:
		h.relayout()
		return
	case column != nil:
		h.recheckRightClips()
		return
	case row != nil && h.rect.MinY > *row:
		dy = delta
	case row != nil && h.rect.MaxY >= *row:
		h.relayout()
		return
	default:
		return
	}

	h.nominal = h.nominal.Translate(dx, dy)
	h.bounds = h.bounds.Translate(dx, dy)
	for _, l := range h.labels {
		l.Translate(dx, dy)
	}
	if h.loaded {
		h.dirtyBuffers = true
	}
}

func (h *CellsTextHash) relayout() {
	h.nominal = h.sheet.offsets.RectBounds(h.rect)
	if h.loaded {
		h.dirtyText = true
	} else {
		h.bounds = h.nominal
	}
}

// recheckRightClips queues a clip pass when a label of the tile is clipped
// on its right, since the clipping neighbour may have moved.
func (h *CellsTextHash) recheckRightClips() {
	for _, l := range h.labels {
		if _, ok := l.ClipRight(); ok {
			h.recheckClip()
			return
		}
	}
}

// recheckClip sends a laid-out tile back through the clip pass.
func (h *CellsTextHash) recheckClip() {
	if h.loaded && h.state > StateLaidOut {
		h.state = StateLaidOut
	}
}

// markBuffersDirty is called when a neighbouring tile changed a clip edge
// of one of h's labels.
func (h *CellsTextHash) markBuffersDirty() {
	if h.loaded {
		h.dirtyBuffers = true
	}
}

// showLabel toggles the visibility of cell p.
func (h *CellsTextHash) showLabel(p grid.Pos, visible bool) {
	if l, ok := h.labels[p]; ok && l.SetVisible(visible) {
		h.dirtyShow = true
	}
}

// hasRow reports whether any cell of row holds a label.
func (h *CellsTextHash) hasRow(row int64) bool {
	if !h.loaded || row < h.rect.MinY || row > h.rect.MaxY {
		return false
	}
	start := grid.CellIndex(h.rect.MinX, row)
	next, ok := h.occupancy.NextSet(start)
	return ok && next < start+grid.HashWidth
}

// firstInRow returns the leftmost label of row.
func (h *CellsTextHash) firstInRow(row int64) *label.CellLabel {
	for x := h.rect.MinX; x <= h.rect.MaxX; x++ {
		if l, ok := h.labels[grid.Pos{X: x, Y: row}]; ok {
			return l
		}
	}
	return nil
}

// lastInRow returns the rightmost label of row.
func (h *CellsTextHash) lastInRow(row int64) *label.CellLabel {
	for x := h.rect.MaxX; x >= h.rect.MinX; x-- {
		if l, ok := h.labels[grid.Pos{X: x, Y: row}]; ok {
			return l
		}
	}
	return nil
}
