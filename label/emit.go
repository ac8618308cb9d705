package label

import (
	"strings"

	"github.com/gogpu/gridtext/grid"
	"github.com/gogpu/gridtext/mesh"
	"github.com/gogpu/gridtext/message"
)

// glyphRect returns the pixel quad of g.
func (l *CellLabel) glyphRect(g *Glyph) grid.Bounds {
	off := l.alignOffsets[g.Line] + g.justify
	x := l.textX + (g.X+off)*l.scale + fixX
	y := l.textY + g.Y*l.scale + fixY
	return grid.Bounds{X: x, Y: y, Width: g.Frame.Width * l.scale, Height: g.Frame.Height * l.scale}
}

// keep reports whether a quad survives clipping. Glyphs are dropped
// whole, never cut.
func (l *CellLabel) keep(r grid.Bounds, clipLeft, clipRight float32) bool {
	if r.Left() < clipLeft || r.Right() > clipRight {
		return false
	}
	return r.Bottom() >= l.cell.Top() && r.Top() <= l.cell.Bottom()
}

func inked(g *Glyph) bool {
	return g.Texture != mesh.SolidTexture && g.Frame.Width > 0 && g.Frame.Height > 0
}

// Reserve counts the label's quads into meshes. It is an upper bound:
// Emit may drop clipped glyphs.
func (l *CellLabel) Reserve(meshes *mesh.LabelMeshes) {
	if !l.visible || !l.laidOut {
		return
	}
	for i := range l.glyphs {
		g := &l.glyphs[i]
		if !inked(g) {
			continue
		}
		id := meshes.Add(l.fontName, l.fontSize, g.Texture, l.hasColor)
		meshes.Get(id).Reserve(1)
	}
	if n := len(l.decorations()); n > 0 {
		id := meshes.Add(l.fontName, l.fontSize, mesh.SolidTexture, true)
		meshes.Get(id).Reserve(n)
	}
}

// Emit writes the label's quads into meshes and returns the union of
// their extents. meshes must have been prepared after Reserve.
func (l *CellLabel) Emit(meshes *mesh.LabelMeshes) (grid.Bounds, error) {
	written := grid.EmptyBounds()
	if !l.visible {
		return written, nil
	}
	if !l.laidOut {
		return written, ErrNotLaidOut
	}

	clipLeft, clipRight := l.clipEdges()
	for i := range l.glyphs {
		g := &l.glyphs[i]
		if !inked(g) {
			continue
		}
		r := l.glyphRect(g)
		if !l.keep(r, clipLeft, clipRight) {
			continue
		}
		id := meshes.Add(l.fontName, l.fontSize, g.Texture, l.hasColor)
		meshes.Get(id).GetBuffer().AddQuad(r.Left(), r.Top(), r.Right(), r.Bottom(), g.UVs, l.color)
		written = written.Union(r)
	}

	for _, r := range l.decorations() {
		id := meshes.Add(l.fontName, l.fontSize, mesh.SolidTexture, true)
		meshes.Get(id).GetBuffer().AddQuad(r.Left(), r.Top(), r.Right(), r.Bottom(), [8]float32{}, l.color)
		written = written.Union(r)
	}
	return written, nil
}

// decorations returns the underline and strike-through rectangles, one
// per line and kind, clipped like the glyphs.
func (l *CellLabel) decorations() []grid.Bounds {
	if (!l.underline && !l.strikeThrough) || len(l.glyphs) == 0 {
		return nil
	}
	clipLeft, clipRight := l.clipEdges()
	lineHeight := LineHeight * (l.fontSize / DefaultFontSize)

	var out []grid.Bounds
	start := 0
	for start < len(l.glyphs) {
		line := l.glyphs[start].Line
		end := start
		for end+1 < len(l.glyphs) && l.glyphs[end+1].Line == line {
			end++
		}
		first, last := &l.glyphs[start], &l.glyphs[end]
		x0 := l.textX + (first.PenX+l.alignOffsets[line]+first.justify)*l.scale + fixX
		x1 := l.textX + (last.PenX+last.Advance+l.alignOffsets[line]+last.justify)*l.scale + fixX
		x0 = max(x0, clipLeft)
		x1 = min(x1, clipRight)

		if x0 < x1 {
			for _, kind := range []struct {
				on     bool
				offset float32
			}{
				{l.underline, underlineOffset},
				{l.strikeThrough, strikeThroughOffset},
			} {
				if !kind.on {
					continue
				}
				y := l.textY + float32(line)*lineHeight + kind.offset*l.scale + fixY
				out = append(out, grid.Bounds{X: x0, Y: y, Width: max(x1-x0, 1), Height: lineThickness})
			}
		}
		start = end + 1
	}
	return out
}

// Overlays returns the checkbox, dropdown and emoji overlays of the label.
func (l *CellLabel) Overlays() []message.Overlay {
	if !l.visible {
		return nil
	}
	var out []message.Overlay
	switch l.special {
	case message.SpecialCheckbox:
		cx, cy := l.cell.Center()
		out = append(out, message.Checkbox{
			Pos:     l.pos,
			Bounds:  grid.Bounds{X: cx - checkboxSize/2, Y: cy - checkboxSize/2, Width: checkboxSize, Height: checkboxSize},
			Checked: strings.EqualFold(strings.TrimSpace(l.value), "true"),
		})
	case message.SpecialList:
		out = append(out, message.Dropdown{
			Pos:    l.pos,
			Bounds: grid.Bounds{X: l.cell.Right() - dropdownWidth, Y: l.cell.Y, Width: dropdownWidth, Height: l.cell.Height},
		})
	}

	if !l.laidOut {
		return out
	}
	clipLeft, clipRight := l.clipEdges()
	lineHeight := LineHeight * (l.fontSize / DefaultFontSize)
	for _, e := range l.emojis {
		size := e.size * l.scale
		b := grid.Bounds{
			X:      l.textX + (e.penX+l.alignOffsets[e.line])*l.scale + fixX,
			Y:      l.textY + float32(e.line)*lineHeight + fixY,
			Width:  size,
			Height: size,
		}
		if !l.keep(b, clipLeft, clipRight) {
			continue
		}
		out = append(out, message.Emoji{Pos: l.pos, Bounds: b, Text: e.text})
	}
	return out
}

// GridLines returns the vertical grid lines covered by the label's
// overflow. Pos.X is the column whose left edge is hidden.
func (l *CellLabel) GridLines(offsets *grid.SheetOffsets) []grid.Pos {
	if !l.visible || !l.laidOut || l.wrap == message.WrapClip {
		return nil
	}
	left, right := l.TextRange()
	col, row := l.pos.X, l.pos.Y

	var out []grid.Pos
	if l.overflowRight > 0 {
		for c := col + 1; ; c++ {
			x, _ := offsets.ColumnPositionSize(c)
			if x >= right {
				break
			}
			out = append(out, grid.Pos{X: c, Y: row})
		}
	}
	if l.overflowLeft > 0 {
		for c := col; c > 1; c-- {
			x, _ := offsets.ColumnPositionSize(c)
			if x <= left {
				break
			}
			out = append(out, grid.Pos{X: c, Y: row})
		}
	}
	return out
}
