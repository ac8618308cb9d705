package message

import "sync"

// Publisher receives finished geometry. Methods are called from the render
// thread only and must not block.
type Publisher interface {
	Clear(ClearTile)
	Segment(MeshSegment)
	Finalize(FinalizeTile)
	Unload(UnloadTile)
	RenderComplete(FirstRenderComplete)
}

// TileKey identifies a tile across sheets.
type TileKey struct {
	SheetID string
	X, Y    int64
}

// Tile is the geometry a consumer currently displays for one tile.
type Tile struct {
	Clear    ClearTile
	Segments []MeshSegment
}

// Recorder is an in-memory Publisher that applies the swap protocol the
// way a canvas owner does: geometry between ClearTile and FinalizeTile is
// staged, and only replaces the displayed tile on FinalizeTile.
//
// Recorder is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	events    []any
	staged    map[TileKey]*Tile
	displayed map[TileKey]*Tile
	completes []FirstRenderComplete
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		staged:    make(map[TileKey]*Tile),
		displayed: make(map[TileKey]*Tile),
	}
}

// Clear implements Publisher.
func (r *Recorder) Clear(m ClearTile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, m)
	r.staged[TileKey{m.SheetID, m.HashX, m.HashY}] = &Tile{Clear: m}
}

// Segment implements Publisher.
func (r *Recorder) Segment(m MeshSegment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, m)
	if t, ok := r.staged[TileKey{m.SheetID, m.HashX, m.HashY}]; ok {
		t.Segments = append(t.Segments, m)
	}
}

// Finalize implements Publisher.
func (r *Recorder) Finalize(m FinalizeTile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, m)
	key := TileKey{m.SheetID, m.HashX, m.HashY}
	if t, ok := r.staged[key]; ok {
		r.displayed[key] = t
		delete(r.staged, key)
	}
}

// Unload implements Publisher.
func (r *Recorder) Unload(m UnloadTile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, m)
	key := TileKey{m.SheetID, m.HashX, m.HashY}
	delete(r.staged, key)
	delete(r.displayed, key)
}

// RenderComplete implements Publisher.
func (r *Recorder) RenderComplete(m FirstRenderComplete) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, m)
	r.completes = append(r.completes, m)
}

// Events returns a copy of every message received, in order.
func (r *Recorder) Events() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.events))
	copy(out, r.events)
	return out
}

// Displayed returns the finalized geometry of a tile.
func (r *Recorder) Displayed(key TileKey) (Tile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.displayed[key]
	if !ok {
		return Tile{}, false
	}
	return *t, true
}

// DisplayedTiles returns the keys of every displayed tile.
func (r *Recorder) DisplayedTiles() []TileKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]TileKey, 0, len(r.displayed))
	for k := range r.displayed {
		keys = append(keys, k)
	}
	return keys
}

// Completions returns the FirstRenderComplete messages received.
func (r *Recorder) Completions() []FirstRenderComplete {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FirstRenderComplete, len(r.completes))
	copy(out, r.completes)
	return out
}

// Reset forgets the event log but keeps displayed geometry.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
