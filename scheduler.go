package gridtext

import (
	"cmp"
	"context"
	"slices"

	"github.com/gogpu/gridtext/cells"
	"github.com/gogpu/gridtext/grid"
	"github.com/gogpu/gridtext/message"
)

// candidate is one tile as seen by a scheduling pass.
type candidate struct {
	sheet   *cells.CellsLabels
	hash    *cells.CellsTextHash
	visible bool
	near    bool
	dist    float32
}

// pass is the scheduler's view of the world for one tick.
type pass struct {
	focused *cells.CellsLabels
	view    grid.Bounds
	zone    grid.Bounds

	tiles []candidate

	// queue holds the tiles with work, in render order.
	queue []candidate
}

// Tick runs one scheduling step on the calling goroutine and reports
// whether it did any work. A step applies queued input, then advances at
// most one tile: visible tiles first, top to bottom and left to right,
// then tiles of the neighbor zone by distance to the viewport.
//
// Callers normally use Run; Tick exists for hosts that own the loop.
func (c *Core) Tick(ctx context.Context) bool {
	if c.closed.Load() {
		return false
	}
	worked := c.drainInbound()
	if c.abortFetches() {
		worked = true
	}
	if c.drainFetches() {
		worked = true
	}

	if rs := c.resizes.drain(); len(rs) > 0 {
		for _, r := range rs {
			c.applyResize(r)
		}
		c.publishStats(c.candidates(nil))
		return true
	}

	p := c.plan()
	if c.evictUnreachable(p) {
		worked = true
	}
	overBudget := c.enforceBudget(p)
	if c.advance(ctx, p, !overBudget) {
		worked = true
	}
	c.checkFirstRender(p)
	c.publishStats(p.tiles)
	return worked
}

func (c *Core) applyResize(r message.HeadingResize) {
	s, ok := c.sheets[r.SheetID]
	if !ok {
		c.logger.Warn("resize for unknown sheet", "sheet", r.SheetID)
		return
	}
	delta := s.ResizeHeading(r)
	c.logger.Debug("heading resized", "sheet", r.SheetID, "delta", delta)
}

// plan classifies every tile against the current viewport and builds the
// render queue. Tiles of the neighbor zone are created on demand.
func (c *Core) plan() *pass {
	p := &pass{}
	if vp := c.viewport.Load(); vp != nil {
		if s, ok := c.sheets[vp.SheetID]; ok {
			p.focused = s
			p.view = vp.Bounds
			p.zone = vp.Bounds.Expand(vp.Bounds.Width*c.cfg.NeighborX, vp.Bounds.Height*c.cfg.NeighborY)

			offsets := s.Offsets()
			if n := s.EnsureHashes(offsets.CellsIn(p.zone)); n > 0 {
				c.logger.Debug("tiles created", "sheet", s.ID(), "count", n)
			}
			c.viewportTiles.Write(ViewportTiles{
				SheetID: s.ID(),
				Tiles:   grid.HashesIn(offsets.CellsIn(p.view)),
			})
		}
	}

	p.tiles = c.candidates(p)

	for _, cand := range p.tiles {
		if cand.near && cand.hash.Dirty() {
			p.queue = append(p.queue, cand)
		}
	}
	slices.SortStableFunc(p.queue, func(a, b candidate) int {
		switch {
		case a.visible && !b.visible:
			return -1
		case !a.visible && b.visible:
			return 1
		case a.visible:
			ka, kb := a.hash.Key(), b.hash.Key()
			if r := cmp.Compare(ka.Y, kb.Y); r != 0 {
				return r
			}
			return cmp.Compare(ka.X, kb.X)
		}
		return cmp.Compare(a.dist, b.dist)
	})
	return p
}

// evictUnreachable unloads loaded tiles outside the neighbor zone that
// would otherwise need work. Tiles waiting on a fetch are left alone.
func (c *Core) evictUnreachable(p *pass) bool {
	evicted := false
	for _, cand := range p.tiles {
		h := cand.hash
		if cand.near || !h.Loaded() || h.Fetching() || !h.Dirty() {
			continue
		}
		h.Unload()
		evicted = true
		c.logger.Debug("tile unloaded", "sheet", cand.sheet.ID(), "tile", h.Key())
	}
	return evicted
}

// enforceBudget evicts the farthest loaded off-screen tiles while the
// published geometry exceeds the memory ceiling. It never evicts a tile
// closer to the viewport than the next tile queued for rendering. It
// reports whether the ceiling is still exceeded.
func (c *Core) enforceBudget(p *pass) bool {
	total := 0
	for _, s := range c.sheets {
		total += s.Bytes()
	}
	if total <= c.cfg.MemoryCeiling {
		c.overBudget = false
		return false
	}

	limit := float32(-1)
	for _, cand := range p.queue {
		if !cand.visible {
			limit = cand.dist
			break
		}
	}

	victims := make([]candidate, 0, len(p.tiles))
	for _, cand := range p.tiles {
		if cand.visible || !cand.hash.Loaded() || cand.hash.Bytes() == 0 {
			continue
		}
		victims = append(victims, cand)
	}
	slices.SortFunc(victims, func(a, b candidate) int {
		if a.sheet != b.sheet {
			// Tiles of unfocused sheets go first.
			if a.sheet == p.focused {
				return 1
			}
			if b.sheet == p.focused {
				return -1
			}
		}
		return cmp.Compare(b.dist, a.dist)
	})

	for _, v := range victims {
		if total <= c.cfg.MemoryCeiling {
			break
		}
		if v.sheet == p.focused && limit >= 0 && v.dist <= limit {
			break
		}
		total -= v.hash.Bytes()
		v.hash.Unload()
		c.logger.Debug("tile evicted", "sheet", v.sheet.ID(), "tile", v.hash.Key(), "bytes", total)
	}
	over := total > c.cfg.MemoryCeiling
	if over && !c.overBudget {
		c.logger.Warn("memory budget exceeded", "bytes", total, "ceiling", c.cfg.MemoryCeiling)
	}
	c.overBudget = over
	return over
}

// advance updates the first queued tile that has work it can do. Off-screen
// tiles are skipped unless neighbors is set, so a sheet over its memory
// budget only keeps the viewport current.
func (c *Core) advance(ctx context.Context, p *pass, neighbors bool) bool {
	fetchAllowed := c.transactions.Load() == 0
	for _, cand := range p.queue {
		if !cand.visible && !neighbors {
			break
		}
		if cand.hash.Update(ctx, fetchAllowed) {
			c.logger.Debug("tile updated",
				"sheet", cand.sheet.ID(),
				"tile", cand.hash.Key(),
				"state", cand.hash.State(),
				"visible", cand.visible)
			return true
		}
	}
	return false
}

// checkFirstRender announces the first time every visible tile of the
// focused sheet is fully rendered.
func (c *Core) checkFirstRender(p *pass) {
	if c.firstRender || p.focused == nil {
		return
	}
	for _, cand := range p.tiles {
		if cand.visible && cand.hash.Busy() {
			return
		}
	}
	c.firstRender = true
	c.publisher.RenderComplete(message.FirstRenderComplete{SheetID: p.focused.ID()})
	c.logger.Info("first render complete", "sheet", p.focused.ID())
}

// candidates lists every tile of every sheet, classified against p when
// it has a focused sheet.
func (c *Core) candidates(p *pass) []candidate {
	var out []candidate
	for _, s := range c.sheets {
		for _, h := range s.Hashes() {
			cand := candidate{sheet: s, hash: h}
			if p != nil && s == p.focused {
				b := h.Bounds()
				cand.visible = b.Intersects(p.view)
				cand.near = b.Intersects(p.zone)
				cand.dist = b.DistanceSquared(p.view)
			}
			out = append(out, cand)
		}
	}
	return out
}

// publishStats summarizes the tiles a tick already collected.
func (c *Core) publishStats(tiles []candidate) {
	st := &Stats{Sheets: len(c.sheets), Tiles: len(tiles)}
	for _, cand := range tiles {
		h := cand.hash
		if h.Loaded() {
			st.Loaded++
		}
		if h.Dirty() {
			st.Dirty++
		}
		if h.Fetching() {
			st.Fetching++
		}
		st.Bytes += h.Bytes()
	}
	c.stats.Store(st)
}
