// Package gridtext turns spreadsheet cells into GPU-ready text geometry.
//
// # Overview
//
// A sheet is divided into tiles of 15 columns by 30 rows. Each tile fetches
// its cells from a [cells.CellSource], lays out every cell's text with
// bitmap fonts, clips text that overflows into occupied neighbours and
// batches the glyph quads into mesh segments keyed by font, size and
// texture. Finished tiles are handed to a [message.Publisher] with a
// clear / segments / finalize swap protocol, so a consumer never shows a
// half-built tile.
//
// # Quick Start
//
//	core, err := gridtext.NewCore(source, publisher)
//	if err != nil {
//	    return err
//	}
//	defer core.Close()
//
//	core.UpdateSheet(message.SheetSnapshot{SheetID: "sheet1", Bounds: &content})
//	core.SetViewport(message.Viewport{SheetID: "sheet1", Bounds: visible, Scale: 1})
//
//	go core.Run(ctx)
//
// # Scheduling
//
// [Core] owns all sheets and runs on one render goroutine. Each [Core.Tick]
// drains the inbound queues, then advances a single tile by one step:
// fetch, layout, clip or buffer build. Visible tiles go first, top to
// bottom and left to right; tiles in the neighbor zone around the viewport
// follow by distance. Tiles that leave the zone are unloaded, and tiles
// beyond the memory ceiling are evicted farthest first.
//
// Heading resizes take priority over everything else: tiles past the
// resized column or row are moved without relayout, and only the tile
// containing it is laid out again.
//
// # Packages
//
//   - grid: cell coordinates, tile hashing and sheet offsets
//   - numfmt: number formatting for numeric cells
//   - font: the glyph registry and texture atlases
//   - label: layout and glyph emission of one cell
//   - mesh: text mesh segments and their GPU pipeline
//   - cells: tiles, clipping between neighbours and the per-sheet store
//   - message: inbound and outbound messages and the Publisher interface
//
// # Logging
//
// gridtext logs through [log/slog] and is silent by default. See
// [SetLogger] and [WithLogger].
package gridtext
