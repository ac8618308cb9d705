package cells

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gridtext/font"
	"github.com/gogpu/gridtext/grid"
	"github.com/gogpu/gridtext/message"
)

const longText = "This text is definitely much longer than a single cell of the sheet"

// memSource is an in-memory CellSource.
type memSource struct {
	mu    sync.Mutex
	cells map[grid.Pos]message.RenderCell
	calls int
	fail  int // number of calls left that fail
}

func newMemSource(cells ...message.RenderCell) *memSource {
	m := &memSource{cells: make(map[grid.Pos]message.RenderCell)}
	for _, c := range cells {
		m.cells[c.Pos()] = c
	}
	return m
}

func (m *memSource) FetchCells(ctx context.Context, req message.FetchRequest) ([]message.RenderCell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail > 0 {
		m.fail--
		return nil, errors.New("engine busy")
	}
	var out []message.RenderCell
	for p, c := range m.cells {
		if req.Rect.Contains(p.X, p.Y) {
			out = append(out, c)
		}
	}
	return out, ctx.Err()
}

func (m *memSource) set(c message.RenderCell) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[c.Pos()] = c
}

func (m *memSource) remove(x, y int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cells, grid.Pos{X: x, Y: y})
}

func (m *memSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type testSheet struct {
	*CellsLabels
	src     *memSource
	results chan FetchResult
	rec     *message.Recorder
}

var (
	fontsOnce sync.Once
	fonts     *font.Fonts
	fontsErr  error
)

func testFonts(t *testing.T) *font.Fonts {
	t.Helper()
	fontsOnce.Do(func() { fonts, fontsErr = font.Default(nil) })
	if fontsErr != nil {
		t.Fatalf("font.Default: %v", fontsErr)
	}
	return fonts
}

func newTestSheet(t *testing.T, src *memSource, content grid.Rect) *testSheet {
	t.Helper()
	results := make(chan FetchResult, 64)
	rec := message.NewRecorder()
	s, err := NewCellsLabels(message.SheetSnapshot{SheetID: "sheet1", Bounds: &content}, Options{
		Fonts:     testFonts(t),
		Publisher: rec,
		Source:    src,
		Results:   results,
	})
	if err != nil {
		t.Fatalf("NewCellsLabels: %v", err)
	}
	t.Cleanup(s.Close)
	s.EnsureHashes(content)
	return &testSheet{CellsLabels: s, src: src, results: results, rec: rec}
}

// settle updates every tile until nothing is left to do, waiting for
// fetches as needed.
func (ts *testSheet) settle(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for range 10000 {
		worked := false
		fetching := false
		for _, h := range ts.Hashes() {
			if h.Update(ctx, true) {
				worked = true
			}
			fetching = fetching || h.Fetching()
		}
		if fetching {
			select {
			case res := <-ts.results:
				if err := ts.ApplyFetch(res); err != nil && !errors.Is(err, ErrStaleFetch) {
					var fe *FetchError
					if !errors.As(err, &fe) {
						t.Fatalf("ApplyFetch: %v", err)
					}
				}
				worked = true
			case <-time.After(5 * time.Second):
				t.Fatal("timed out waiting for a fetch")
			}
		}
		if !worked {
			return
		}
	}
	t.Fatal("tiles never settled")
}

func (ts *testSheet) label(t *testing.T, x, y int64) *CellsTextHash {
	t.Helper()
	h, ok := ts.Hash(ts.GetHash(x, y))
	if !ok {
		t.Fatalf("no tile for (%d,%d)", x, y)
	}
	if _, ok := h.Label(grid.Pos{X: x, Y: y}); !ok {
		t.Fatalf("no label at (%d,%d)", x, y)
	}
	return h
}

func text(x, y int64, v string) message.RenderCell {
	return message.RenderCell{X: x, Y: y, Value: v}
}

// TestCheckClip_SameTile tests clipping at the next occupied cell and
// grid-line suppression over the empty one.
func TestCheckClip_SameTile(t *testing.T) {
	ts := newTestSheet(t, newMemSource(text(5, 1, longText), text(7, 1, "x")), grid.NewRect(1, 1, 20, 40))
	ts.settle(t)

	h := ts.label(t, 5, 1)
	l, _ := h.Label(grid.Pos{X: 5, Y: 1})
	if x, ok := l.ClipRight(); !ok || x != 600 {
		t.Errorf("clip right = %v, %v; want 600", x, ok)
	}
	lines := h.GridLines()
	if len(lines) != 1 || lines[0] != (grid.Pos{X: 6, Y: 1}) {
		t.Errorf("grid lines = %v, want [(6,1)]", lines)
	}

	tile, ok := ts.rec.Displayed(message.TileKey{SheetID: "sheet1", X: 0, Y: 0})
	if !ok {
		t.Fatal("tile (0,0) not displayed")
	}
	if len(tile.Clear.OverflowGridLines) != 1 || len(tile.Segments) == 0 {
		t.Errorf("published tile = %+v", tile.Clear)
	}
	if !tile.Clear.Bounds.Contains(l.Bounds()) {
		t.Errorf("tile bounds %+v miss cell %+v", tile.Clear.Bounds, l.Bounds())
	}
}

// TestCheckClip_AcrossTiles tests clipping by a neighbour in the next tile
// and un-clipping when that neighbour is deleted.
func TestCheckClip_AcrossTiles(t *testing.T) {
	src := newMemSource(text(13, 2, longText), text(16, 2, "y"))
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 40, 40))
	ts.settle(t)

	h := ts.label(t, 13, 2)
	l, _ := h.Label(grid.Pos{X: 13, Y: 2})
	if x, ok := l.ClipRight(); !ok || x != 1500 {
		t.Fatalf("clip right = %v, %v; want 1500", x, ok)
	}

	src.remove(16, 2)
	ts.MarkDirty([]grid.HashKey{{X: 1, Y: 0}})
	ts.settle(t)

	if x, ok := l.ClipRight(); ok {
		t.Errorf("clip right still %v after the neighbour was deleted", x)
	}
	if len(h.GridLines()) < 3 {
		t.Errorf("grid lines = %v", h.GridLines())
	}
}

// TestCheckClip_Idempotent tests that a repeated clip pass marks nothing.
func TestCheckClip_Idempotent(t *testing.T) {
	src := newMemSource(
		text(13, 2, longText),
		message.RenderCell{X: 16, Y: 2, Value: longText, Align: message.AlignRight},
		text(20, 2, "z"),
	)
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 40, 40))
	ts.settle(t)

	left, _ := ts.Hash(grid.HashKey{X: 0, Y: 0})
	right, _ := ts.Hash(grid.HashKey{X: 1, Y: 0})
	for _, h := range []*CellsTextHash{left, right} {
		if h.Dirty() {
			t.Fatalf("tile %s dirty after settle", h.Key())
		}
	}

	for range 2 {
		left.checkClip()
		right.checkClip()
		if left.dirtyBuffers || right.dirtyBuffers {
			t.Fatal("repeated clip pass marked a neighbour dirty")
		}
	}

	l16, _ := right.Label(grid.Pos{X: 16, Y: 2})
	if x, ok := l16.ClipLeft(); !ok || x != 1300 {
		t.Errorf("(16,2) clip left = %v, %v; want 1300", x, ok)
	}
}

// TestSpills tests which labels take part in clipping.
func TestSpills(t *testing.T) {
	src := newMemSource(
		text(2, 1, longText),
		message.RenderCell{X: 8, Y: 1, Value: longText, Align: message.AlignRight},
		message.RenderCell{X: 2, Y: 3, Value: longText, Wrap: message.WrapClip},
	)
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 20, 40))
	ts.settle(t)

	h := ts.label(t, 2, 1)
	tests := []struct {
		pos         grid.Pos
		left, right bool
	}{
		{grid.Pos{X: 2, Y: 1}, false, true},
		{grid.Pos{X: 8, Y: 1}, true, false},
		{grid.Pos{X: 2, Y: 3}, false, false},
	}
	for _, tt := range tests {
		l, ok := h.Label(tt.pos)
		if !ok {
			t.Fatalf("no label at %v", tt.pos)
		}
		if got := spillsLeft(l); got != tt.left {
			t.Errorf("%v: spillsLeft = %v, want %v", tt.pos, got, tt.left)
		}
		if got := spillsRight(l); got != tt.right {
			t.Errorf("%v: spillsRight = %v, want %v", tt.pos, got, tt.right)
		}
	}
}

// TestAdjustHeadings tests that a column resize moves later tiles without
// refetch or relayout.
func TestAdjustHeadings(t *testing.T) {
	src := newMemSource(text(3, 1, "three"), text(10, 1, "ten"), text(20, 1, "twenty"), text(35, 5, "far"))
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 40, 40))
	ts.settle(t)
	calls := src.callCount()

	tile0, _ := ts.Hash(grid.HashKey{X: 0, Y: 0})
	tile1, _ := ts.Hash(grid.HashKey{X: 1, Y: 0})
	l20, _ := tile1.Label(grid.Pos{X: 20, Y: 1})
	beforeX, beforeText := l20.Bounds().X, l20.TextLeft()
	beforeBounds := tile1.Bounds()

	col := int64(3)
	if d := ts.ResizeHeading(message.HeadingResize{SheetID: "sheet1", Column: &col, Size: 120}); d != 20 {
		t.Fatalf("delta = %v, want 20", d)
	}

	if l20.Bounds().X != beforeX+20 || l20.TextLeft() != beforeText+20 {
		t.Errorf("(20,1) moved %v -> %v", beforeX, l20.Bounds().X)
	}
	if !l20.LaidOut() {
		t.Error("label in a later tile lost its layout")
	}
	if tile1.Bounds().X != beforeBounds.X+20 {
		t.Errorf("tile bounds x %v -> %v", beforeBounds.X, tile1.Bounds().X)
	}
	if !tile1.dirtyBuffers || tile1.dirtyText || tile1.NeedsFetch() {
		t.Errorf("tile1 flags: buffers=%v text=%v fetch=%v", tile1.dirtyBuffers, tile1.dirtyText, tile1.NeedsFetch())
	}
	if !tile0.dirtyText || tile0.NeedsFetch() {
		t.Errorf("tile0 flags: text=%v fetch=%v", tile0.dirtyText, tile0.NeedsFetch())
	}

	ts.settle(t)
	if got := src.callCount(); got != calls {
		t.Errorf("resize refetched: %d -> %d calls", calls, got)
	}
	l10, _ := tile0.Label(grid.Pos{X: 10, Y: 1})
	if l10.Bounds().X != 920 {
		t.Errorf("(10,1) x = %v, want 920", l10.Bounds().X)
	}
	tile, _ := ts.rec.Displayed(message.TileKey{SheetID: "sheet1", X: 1, Y: 0})
	if tile.Clear.Bounds.X != beforeBounds.X+20 {
		t.Errorf("published bounds x = %v", tile.Clear.Bounds.X)
	}
}

// TestAdjustHeadings_Transient tests drag deltas on rows.
func TestAdjustHeadings_Transient(t *testing.T) {
	src := newMemSource(text(1, 40, "below"))
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 10, 40))
	ts.settle(t)

	row := int64(2)
	if d := ts.ResizeHeading(message.HeadingResize{Row: &row, Delta: 9, Transient: true}); d != 9 {
		t.Fatalf("delta = %v", d)
	}
	h := ts.label(t, 1, 40)
	l, _ := h.Label(grid.Pos{X: 1, Y: 40})
	if want := 39*grid.DefaultRowHeight + 9; l.Bounds().Y != want {
		t.Errorf("y = %v, want %v", l.Bounds().Y, want)
	}
}

// TestFetch_Stale tests that a result for a cancelled request is dropped.
func TestFetch_Stale(t *testing.T) {
	src := newMemSource(text(1, 1, "a"))
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 5, 5))
	h, _ := ts.Hash(grid.HashKey{})

	if !h.Update(context.Background(), true) || h.State() != StateFetching {
		t.Fatalf("state = %v", h.State())
	}
	stale := h.requestID
	h.MarkDirty()
	if h.Fetching() || !h.NeedsFetch() {
		t.Fatal("MarkDirty did not cancel the fetch")
	}

	err := ts.ApplyFetch(FetchResult{SheetID: "sheet1", RequestID: stale, Cells: []message.RenderCell{text(1, 1, "old")}})
	if !errors.Is(err, ErrStaleFetch) {
		t.Fatalf("ApplyFetch = %v, want ErrStaleFetch", err)
	}
	if !h.NeedsFetch() || h.Loaded() {
		t.Error("stale result was applied")
	}

	ts.settle(t)
	l, ok := h.Label(grid.Pos{X: 1, Y: 1})
	if !ok || l.Text() != "a" {
		t.Errorf("label = %v", l)
	}
	if err := ts.ApplyFetch(FetchResult{HashX: 9, HashY: 9, RequestID: 1}); !errors.Is(err, ErrStaleFetch) {
		t.Errorf("unknown tile: %v", err)
	}
}

// TestFetch_Error tests that a failed fetch leaves the tile dirty.
func TestFetch_Error(t *testing.T) {
	src := newMemSource(text(1, 1, "a"))
	src.fail = 1
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 5, 5))
	h, _ := ts.Hash(grid.HashKey{})

	h.Update(context.Background(), true)
	res := <-ts.results
	err := ts.ApplyFetch(res)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Tile != (grid.HashKey{}) || fe.Sheet != "sheet1" {
		t.Fatalf("ApplyFetch = %v", err)
	}
	if !h.NeedsFetch() {
		t.Fatal("failed fetch cleared the dirty flag")
	}

	ts.settle(t)
	if !h.Loaded() || h.State() != StateBuffered {
		t.Errorf("state = %v", h.State())
	}
}

// TestUpdate_Transaction tests that fetches wait for the transaction.
func TestUpdate_Transaction(t *testing.T) {
	src := newMemSource(text(1, 1, "a"))
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 5, 5))
	h, _ := ts.Hash(grid.HashKey{})

	if h.Update(context.Background(), false) {
		t.Error("Update worked during a transaction")
	}
	if !h.NeedsFetch() || h.Fetching() {
		t.Error("dirty flag lost during a transaction")
	}
}

// TestPush tests unsolicited batches and coordinate validation.
func TestPush(t *testing.T) {
	src := newMemSource()
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 5, 5))

	err := ts.Push(message.CellBatch{
		SheetID: "sheet1",
		Cells: []message.RenderCell{
			text(1, 1, "kept"),
			text(40, 1, "other tile"),
			text(grid.MaxCoordinate+1, 1, "bogus"),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	ts.settle(t)

	h, _ := ts.Hash(grid.HashKey{})
	if h.Len() != 1 {
		t.Errorf("labels = %d, want 1", h.Len())
	}
	if src.callCount() != 0 {
		t.Errorf("pushed tile was fetched %d times", src.callCount())
	}
	tile, _ := ts.rec.Displayed(message.TileKey{SheetID: "sheet1"})
	if len(tile.Clear.Occupancy) == 0 || tile.Clear.Occupancy[0]&(1<<grid.CellIndex(1, 1)) == 0 {
		t.Errorf("occupancy = %v", tile.Clear.Occupancy)
	}
}

// TestUnload tests eviction and the surviving size caches.
func TestUnload(t *testing.T) {
	ts := newTestSheet(t, newMemSource(text(2, 3, "cached")), grid.NewRect(1, 1, 5, 5))
	ts.settle(t)
	h, _ := ts.Hash(grid.HashKey{})
	if h.Bytes() == 0 {
		t.Fatal("no bytes after build")
	}

	h.Unload()
	if h.Loaded() || h.Bytes() != 0 || !h.NeedsFetch() || h.State() != StateUnloaded {
		t.Errorf("after unload: loaded=%v bytes=%d state=%v", h.Loaded(), h.Bytes(), h.State())
	}
	if _, ok := ts.rec.Displayed(message.TileKey{SheetID: "sheet1"}); ok {
		t.Error("tile still displayed")
	}
	if w, ok := ts.ColumnMaxWidth(2); !ok || w <= 0 {
		t.Errorf("ColumnMaxWidth = %v, %v", w, ok)
	}
	if v, ok := ts.RowMaxHeight(3); !ok || v <= 0 {
		t.Errorf("RowMaxHeight = %v, %v", v, ok)
	}
	if _, ok := ts.ColumnMaxWidth(3); ok {
		t.Error("ColumnMaxWidth of an empty column")
	}
}

// TestShowLabel tests that hiding rebuilds buffers only and survives a
// refetch.
func TestShowLabel(t *testing.T) {
	src := newMemSource(text(1, 1, "shown"), text(1, 2, "edited"))
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 5, 5))
	ts.settle(t)
	calls := src.callCount()
	key := message.TileKey{SheetID: "sheet1"}
	before, _ := ts.rec.Displayed(key)

	ts.ShowLabel(1, 2, false)
	h, _ := ts.Hash(grid.HashKey{})
	if !h.dirtyShow {
		t.Fatal("ShowLabel did not mark the tile")
	}
	ts.settle(t)
	if src.callCount() != calls {
		t.Error("ShowLabel refetched")
	}
	after, _ := ts.rec.Displayed(key)
	if quads(after) >= quads(before) {
		t.Errorf("quads %d -> %d", quads(before), quads(after))
	}

	ts.MarkDirty([]grid.HashKey{{}})
	ts.settle(t)
	l, _ := h.Label(grid.Pos{X: 1, Y: 2})
	if l.Visible() {
		t.Error("hidden label reappeared after refetch")
	}
}

func quads(t message.Tile) int {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Indices) / 6
	}
	return n
}

// TestFindHash tests neighbour scans over empty tiles.
func TestFindHash(t *testing.T) {
	src := newMemSource(text(1, 1, "a"), text(50, 1, "b"), text(50, 2, "c"))
	ts := newTestSheet(t, src, grid.NewRect(1, 1, 60, 10))
	ts.settle(t)

	if h := ts.findNextHash(0, 1); h == nil || h.Key().X != 3 {
		t.Errorf("findNextHash(0, 1) = %v", h)
	}
	if h := ts.findNextHash(0, 3); h != nil {
		t.Errorf("findNextHash(0, 3) = %v", h.Key())
	}
	if h := ts.findPreviousHash(3, 1); h == nil || h.Key().X != 0 {
		t.Errorf("findPreviousHash(3, 1) = %v", h)
	}
	if h := ts.findPreviousHash(3, 2); h != nil {
		t.Errorf("findPreviousHash(3, 2) = %v", h.Key())
	}
}

// TestNewCellsLabels_Errors tests option validation.
func TestNewCellsLabels_Errors(t *testing.T) {
	if _, err := NewCellsLabels(message.SheetSnapshot{}, Options{}); err == nil {
		t.Error("accepted an empty sheet id")
	}
	if _, err := NewCellsLabels(message.SheetSnapshot{SheetID: "s"}, Options{}); err == nil {
		t.Error("accepted missing collaborators")
	}
}
