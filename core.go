package gridtext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gridtext/cells"
	"github.com/gogpu/gridtext/font"
	"github.com/gogpu/gridtext/message"
)

var (
	// ErrSheetNotFound is returned for queries about an unknown sheet.
	ErrSheetNotFound = errors.New("gridtext: sheet not found")

	// ErrClosed is returned once the Core is closed.
	ErrClosed = errors.New("gridtext: core closed")
)

// queue is a goroutine-safe FIFO drained by the render goroutine.
type queue[T any] struct {
	mu    sync.Mutex
	items []T
}

func (q *queue[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

func (q *queue[T]) drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

type showRequest struct {
	sheetID string
	x, y    int64
	visible bool
}

type sizeQuery struct {
	sheetID string
	column  *int64
	row     *int64
	reply   chan sizeReply
}

type sizeReply struct {
	size float32
	ok   bool
	err  error
}

// Stats is a snapshot of the Core's resident state.
type Stats struct {
	Sheets   int
	Tiles    int
	Loaded   int
	Dirty    int
	Fetching int

	// Bytes is the size of all published geometry.
	Bytes int
}

// Core is the text rendering pipeline of one client. It owns every open
// sheet and runs on a single render goroutine, driven by Tick or Run.
//
// The inbound methods (UpdateSheet, PushCells, ResizeHeading, ...) are safe
// to call from any goroutine. They only enqueue; the render goroutine
// applies them at the start of its next tick. Finished geometry goes to the
// Publisher, always from the render goroutine.
type Core struct {
	cfg       Config
	logger    *slog.Logger
	fonts     *font.Fonts
	publisher message.Publisher
	source    cells.CellSource

	snapshots queue[message.SheetSnapshot]
	deletes   queue[string]
	batches   queue[message.CellBatch]
	resizes   queue[message.HeadingResize]
	dirty     queue[message.DirtyTiles]
	shows     queue[showRequest]
	queries   queue[sizeQuery]

	viewport     atomic.Pointer[message.Viewport]
	transactions atomic.Int32
	closed       atomic.Bool
	stats        atomic.Pointer[Stats]

	wake    chan struct{}
	results chan cells.FetchResult

	viewportTiles ViewportBuffer

	// Render goroutine state.
	sheets      map[string]*cells.CellsLabels
	firstRender bool
	overBudget  bool
	inTxn       bool
}

// NewCore creates a Core that fetches cells from source and publishes
// geometry to publisher.
func NewCore(source cells.CellSource, publisher message.Publisher, opts ...Option) (*Core, error) {
	if source == nil {
		return nil, errors.New("gridtext: nil cell source")
	}
	if publisher == nil {
		return nil, errors.New("gridtext: nil publisher")
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = Logger()
	}
	if cfg.Fonts == nil {
		f, err := font.Default(cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("gridtext: default fonts: %w", err)
		}
		cfg.Fonts = f
	}

	c := &Core{
		cfg:       cfg,
		logger:    cfg.Logger,
		fonts:     cfg.Fonts,
		publisher: publisher,
		source:    source,
		wake:      make(chan struct{}, 1),
		results:   make(chan cells.FetchResult, cfg.QueueSize),
		sheets:    make(map[string]*cells.CellsLabels),
	}
	c.stats.Store(&Stats{})
	return c, nil
}

// Config returns the Core's configuration.
func (c *Core) Config() Config { return c.cfg }

// Fonts returns the glyph registry.
func (c *Core) Fonts() *font.Fonts { return c.fonts }

// ViewportBuffer returns the buffer advertising the visible tiles.
func (c *Core) ViewportBuffer() *ViewportBuffer { return &c.viewportTiles }

func (c *Core) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// UpdateSheet adds a sheet or replaces its geometry and content bounds.
func (c *Core) UpdateSheet(snap message.SheetSnapshot) {
	if c.closed.Load() {
		return
	}
	c.snapshots.push(snap)
	c.signal()
}

// DeleteSheet drops a sheet and all its tiles.
func (c *Core) DeleteSheet(sheetID string) {
	if c.closed.Load() {
		return
	}
	c.deletes.push(sheetID)
	c.signal()
}

// PushCells delivers the cells of a tile, either as the answer to a fetch
// (RequestID set) or as an unsolicited update.
func (c *Core) PushCells(batch message.CellBatch) {
	if c.closed.Load() {
		return
	}
	c.batches.push(batch)
	c.signal()
}

// ResizeHeading queues a column or row resize.
func (c *Core) ResizeHeading(r message.HeadingResize) {
	if c.closed.Load() {
		return
	}
	c.resizes.push(r)
	c.signal()
}

// MarkDirty schedules tiles for refetch.
func (c *Core) MarkDirty(d message.DirtyTiles) {
	if c.closed.Load() {
		return
	}
	c.dirty.push(d)
	c.signal()
}

// BeginTransaction suspends new fetches until the matching EndTransaction.
// Fetches already in flight when the outermost transaction starts are
// dropped, and their tiles fetch again once it ends. Transactions nest.
func (c *Core) BeginTransaction() {
	c.transactions.Add(1)
	c.signal()
}

// EndTransaction ends a transaction started by BeginTransaction.
func (c *Core) EndTransaction() {
	if c.transactions.Add(-1) < 0 {
		c.transactions.Store(0)
	}
	c.signal()
}

// InTransaction reports whether fetches are suspended.
func (c *Core) InTransaction() bool { return c.transactions.Load() > 0 }

// SetViewport sets the visible rectangle. Only the latest viewport
// matters; its sheet becomes the focused sheet.
func (c *Core) SetViewport(v message.Viewport) {
	c.viewport.Store(&v)
	c.signal()
}

// ShowLabel shows or hides one cell's text, e.g. while it is being edited.
func (c *Core) ShowLabel(sheetID string, x, y int64, visible bool) {
	if c.closed.Load() {
		return
	}
	c.shows.push(showRequest{sheetID: sheetID, x: x, y: y, visible: visible})
	c.signal()
}

// ColumnMaxWidth returns the width the widest text of column needs. The
// query is answered by the render goroutine; it blocks until then or until
// ctx ends. ok is false when the column has no laid-out text.
func (c *Core) ColumnMaxWidth(ctx context.Context, sheetID string, column int64) (width float32, ok bool, err error) {
	return c.query(ctx, sizeQuery{sheetID: sheetID, column: &column})
}

// RowMaxHeight returns the height the tallest text of row needs. See
// ColumnMaxWidth.
func (c *Core) RowMaxHeight(ctx context.Context, sheetID string, row int64) (height float32, ok bool, err error) {
	return c.query(ctx, sizeQuery{sheetID: sheetID, row: &row})
}

func (c *Core) query(ctx context.Context, q sizeQuery) (float32, bool, error) {
	if c.closed.Load() {
		return 0, false, ErrClosed
	}
	q.reply = make(chan sizeReply, 1)
	c.queries.push(q)
	c.signal()
	select {
	case r := <-q.reply:
		return r.size, r.ok, r.err
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}

// Stats returns the state after the last tick. Safe for concurrent use.
func (c *Core) Stats() Stats { return *c.stats.Load() }

// Run drives Tick until ctx ends, parking while there is nothing to do.
func (c *Core) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.closed.Load() {
			return ErrClosed
		}
		if c.Tick(ctx) {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		case res := <-c.results:
			c.applyFetch(res)
		}
	}
}

// Close unloads every sheet and rejects further input. It must be called
// from the goroutine driving Tick, or after Run has returned.
func (c *Core) Close() error {
	if c.closed.Swap(true) {
		return ErrClosed
	}
	for id, s := range c.sheets {
		s.Close()
		delete(c.sheets, id)
	}
	for _, q := range c.queries.drain() {
		q.reply <- sizeReply{err: ErrClosed}
	}
	c.signal()
	return nil
}

// drainInbound applies queued input and reports whether there was any.
func (c *Core) drainInbound() bool {
	worked := false

	for _, id := range c.deletes.drain() {
		worked = true
		if s, ok := c.sheets[id]; ok {
			s.Close()
			delete(c.sheets, id)
			c.logger.Info("sheet removed", "sheet", id)
		}
	}

	for _, snap := range c.snapshots.drain() {
		worked = true
		if s, ok := c.sheets[snap.SheetID]; ok {
			s.UpdateSnapshot(snap)
			continue
		}
		s, err := cells.NewCellsLabels(snap, cells.Options{
			Fonts:        c.fonts,
			Publisher:    c.publisher,
			Source:       c.source,
			Results:      c.results,
			FetchTimeout: c.cfg.FetchTimeout,
			Logger:       c.logger,
		})
		if err != nil {
			c.logger.Warn("rejecting sheet", "sheet", snap.SheetID, "err", err)
			continue
		}
		c.sheets[snap.SheetID] = s
		c.logger.Info("sheet added", "sheet", snap.SheetID)
	}

	for _, b := range c.batches.drain() {
		worked = true
		s, ok := c.sheets[b.SheetID]
		if !ok {
			c.logger.Warn("cells for unknown sheet", "sheet", b.SheetID)
			continue
		}
		if err := s.Push(b); err != nil {
			c.logFetchError(err)
		}
	}

	for _, d := range c.dirty.drain() {
		worked = true
		if s, ok := c.sheets[d.SheetID]; ok {
			s.MarkDirty(d.Tiles)
		}
	}

	for _, r := range c.shows.drain() {
		worked = true
		if s, ok := c.sheets[r.sheetID]; ok {
			s.ShowLabel(r.x, r.y, r.visible)
		}
	}

	for _, q := range c.queries.drain() {
		worked = true
		q.reply <- c.answer(q)
	}
	return worked
}

func (c *Core) answer(q sizeQuery) sizeReply {
	s, ok := c.sheets[q.sheetID]
	if !ok {
		return sizeReply{err: fmt.Errorf("%w: %q", ErrSheetNotFound, q.sheetID)}
	}
	if q.column != nil {
		w, ok := s.ColumnMaxWidth(*q.column)
		return sizeReply{size: w, ok: ok}
	}
	h, ok := s.RowMaxHeight(*q.row)
	return sizeReply{size: h, ok: ok}
}

// drainFetches applies every fetch result waiting in the queue.
// abortFetches cancels every in-flight fetch when a transaction starts, so
// no tile shows cells read before the transaction's edits.
func (c *Core) abortFetches() bool {
	in := c.transactions.Load() > 0
	started := in && !c.inTxn
	c.inTxn = in
	if !started {
		return false
	}
	aborted := 0
	for _, s := range c.sheets {
		for _, h := range s.Hashes() {
			if h.Fetching() {
				h.MarkDirty()
				aborted++
			}
		}
	}
	if aborted > 0 {
		c.logger.Debug("fetches aborted by transaction", "tiles", aborted)
	}
	return aborted > 0
}

func (c *Core) drainFetches() bool {
	worked := false
	for {
		select {
		case res := <-c.results:
			c.applyFetch(res)
			worked = true
		default:
			return worked
		}
	}
}

func (c *Core) applyFetch(res cells.FetchResult) {
	s, ok := c.sheets[res.SheetID]
	if !ok {
		c.logger.Debug("dropping fetch for unknown sheet", "sheet", res.SheetID)
		return
	}
	if err := s.ApplyFetch(res); err != nil {
		c.logFetchError(err)
	}
}

func (c *Core) logFetchError(err error) {
	if errors.Is(err, cells.ErrStaleFetch) {
		c.logger.Debug("dropping stale fetch", "err", err)
		return
	}
	c.logger.Warn("fetch failed", "err", err)
}
