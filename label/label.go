// Package label lays out the text of a single cell.
//
// A [CellLabel] turns a cell's display string and style into positioned
// glyphs, measures the block (width, height, unwrapped width), resolves its
// position inside the cell, and reports how far it overflows the cell on
// either side. The owning tile clips overflow against neighbouring cells
// with [CellLabel.SetClipLeft] and [CellLabel.SetClipRight], then writes
// the surviving glyphs into mesh batches with [CellLabel.Emit].
//
// Glyph positions are kept in font units (the bitmap font's em size) and
// scaled to the cell's font size when quads are written.
package label

import (
	"errors"
	"strings"

	"github.com/chewxy/math32"

	"github.com/gogpu/gridtext/font"
	"github.com/gogpu/gridtext/grid"
	"github.com/gogpu/gridtext/message"
	"github.com/gogpu/gridtext/numfmt"
)

// Layout constants in pixels.
const (
	// CellTextMargin is the horizontal gap between text and cell edge.
	CellTextMargin float32 = 3

	// DefaultFontSize is the font size of cells without one.
	DefaultFontSize float32 = 14

	// LineHeight is the line advance at DefaultFontSize.
	LineHeight float32 = 16

	// DefaultCellHeight is the default row height.
	DefaultCellHeight float32 = 21

	// CellVerticalPadding is the gap above and below text.
	CellVerticalPadding float32 = 2.5

	// Glyph quads are nudged by this amount to sit on the pixel grid.
	fixX float32 = 1.8
	fixY float32 = -1.8

	underlineOffset     float32 = 52
	strikeThroughOffset float32 = 32
	lineThickness       float32 = 1

	checkboxSize  float32 = 12
	dropdownWidth float32 = 16
)

// Marker strings of error cells.
const (
	RunErrorText   = " #ERROR"
	SpillErrorText = " #SPILL"
)

var (
	defaultColor = [4]float32{0, 0, 0, 1}
	errorTint    = [4]float32{0.898, 0.224, 0.208, 1} // #e53935
)

// ErrNotLaidOut is returned by operations that need a layout first.
var ErrNotLaidOut = errors.New("label: not laid out")

// Glyph is one positioned glyph.
type Glyph struct {
	Rune rune

	// X and Y are the quad's top-left corner in font units relative to
	// the text block, before alignment.
	X, Y float32

	// PenX is the pen position before the glyph, in font units.
	PenX float32

	// Line is the source line index.
	Line int

	Advance float32
	Frame   font.Frame
	UVs     [8]float32
	Texture uint32

	// justify is the extra offset from justify alignment, in font units.
	justify float32
}

// emojiRun is an emoji grapheme drawn as an overlay.
type emojiRun struct {
	text string
	penX float32
	line int
	size float32 // font units
}

// CellLabel is the renderable text of one cell.
type CellLabel struct {
	pos grid.Pos

	text    string
	special message.Special
	value   string // raw value, kept for numbers and checkboxes

	number   *numfmt.Format
	decimals int // current fractional digits, -1 when unreduced

	bold, italic  bool
	underline     bool
	strikeThrough bool
	color         [4]float32
	hasColor      bool

	align  message.Align
	valign message.VerticalAlign
	wrap   message.Wrap

	fontSize float32
	fontName string
	visible  bool

	cell grid.Bounds

	// layout
	laidOut        bool
	glyphs         []Glyph
	emojis         []emojiRun
	lineWidths     []float32
	lineBroken     []bool
	alignOffsets   []float32
	scale          float32
	textWidth      float32
	textHeight     float32
	glyphHeight    float32
	unwrappedWidth float32

	textX, textY  float32
	overflowLeft  float32
	overflowRight float32

	clipLeft, clipRight       float32
	hasClipLeft, hasClipRight bool
}

// New builds the label of cell within the pixel box bounds.
//
// Error and chart cells get marker text, logical cells are upper-cased
// and centred, and numeric cells are formatted.
func New(cell message.RenderCell, bounds grid.Bounds) *CellLabel {
	l := &CellLabel{
		pos:      cell.Pos(),
		special:  cell.Special,
		value:    cell.Value,
		decimals: -1,
		color:    defaultColor,
		align:    cell.Align,
		valign:   cell.VerticalAlign,
		wrap:     cell.Wrap,
		fontSize: cell.FontSize,
		visible:  true,
		cell:     bounds,
	}
	if l.fontSize <= 0 {
		l.fontSize = DefaultFontSize
	}
	if cell.Bold != nil {
		l.bold = *cell.Bold
	}
	if cell.Italic != nil {
		l.italic = *cell.Italic
	}
	l.underline = cell.Underline
	l.strikeThrough = cell.StrikeThrough
	if cell.TextColor != "" {
		if c, ok := parseColor(cell.TextColor); ok {
			l.color = c
			l.hasColor = c != defaultColor
		}
	}

	switch cell.Special {
	case message.SpecialChart, message.SpecialCheckbox:
		l.text = ""
	case message.SpecialSpillError:
		l.setMarker(SpillErrorText)
	case message.SpecialRunError:
		l.setMarker(RunErrorText)
	case message.SpecialLogical:
		l.text = strings.ToUpper(strings.TrimSpace(cell.Value))
		l.align = message.AlignCenter
	default:
		l.text = cell.Value
		if cell.Number != nil {
			f := *cell.Number
			l.number = &f
			if s, err := numfmt.FormatNumber(cell.Value, f); err == nil {
				l.text = s
			}
		}
	}

	l.fontName = font.Name(l.bold, l.italic)
	return l
}

func (l *CellLabel) setMarker(text string) {
	l.text = text
	l.italic = true
	l.color = errorTint
	l.hasColor = true
}

// Pos returns the cell location.
func (l *CellLabel) Pos() grid.Pos { return l.pos }

// Text returns the display string (after number reduction).
func (l *CellLabel) Text() string { return l.text }

// FontName returns the font variant the label uses.
func (l *CellLabel) FontName() string { return l.fontName }

// FontSize returns the font size in pixels.
func (l *CellLabel) FontSize() float32 { return l.fontSize }

// Wrap returns the wrap mode.
func (l *CellLabel) Wrap() message.Wrap { return l.wrap }

// Special returns the cell's special kind.
func (l *CellLabel) Special() message.Special { return l.special }

// Bounds returns the cell's pixel box.
func (l *CellLabel) Bounds() grid.Bounds { return l.cell }

// Visible reports whether the label is drawn.
func (l *CellLabel) Visible() bool { return l.visible }

// SetVisible shows or hides the label. Hidden labels keep their layout
// and still clip neighbours. It reports whether the flag changed.
func (l *CellLabel) SetVisible(v bool) bool {
	if l.visible == v {
		return false
	}
	l.visible = v
	return true
}

// SetBounds replaces the cell's pixel box. The layout is stale until the
// next Layout call.
func (l *CellLabel) SetBounds(b grid.Bounds) {
	l.cell = b
	l.laidOut = false
}

// Translate moves the cell box and the laid-out text by (dx, dy) without
// relaying out glyphs. Clip edges move with it.
func (l *CellLabel) Translate(dx, dy float32) {
	l.cell = l.cell.Translate(dx, dy)
	l.textX += dx
	l.textY += dy
	if l.hasClipLeft {
		l.clipLeft += dx
	}
	if l.hasClipRight {
		l.clipRight += dx
	}
}

// LaidOut reports whether the layout is current.
func (l *CellLabel) LaidOut() bool { return l.laidOut }

// Glyphs returns the positioned glyphs of the last layout.
func (l *CellLabel) Glyphs() []Glyph { return l.glyphs }

// LineWidths returns each line's width in pixels.
func (l *CellLabel) LineWidths() []float32 {
	out := make([]float32, len(l.lineWidths))
	for i, w := range l.lineWidths {
		out[i] = w * l.scale
	}
	return out
}

// MaxLineWidth returns the wrap limit in pixels, or +Inf when the label
// does not wrap.
func (l *CellLabel) MaxLineWidth() float32 {
	if l.wrap != message.WrapWrap {
		return math32.Inf(1)
	}
	return l.cell.Width - CellTextMargin*3
}

// TextWidth returns the laid-out width in pixels.
func (l *CellLabel) TextWidth() float32 { return l.textWidth }

// TextHeight returns the laid-out height in pixels.
func (l *CellLabel) TextHeight() float32 { return l.textHeight }

// UnwrappedWidth returns the width the text needs on one line, plus
// margins. Column auto-size uses it.
func (l *CellLabel) UnwrappedWidth() float32 { return l.unwrappedWidth }

// HeightWithDescenders returns the row height the text needs.
func (l *CellLabel) HeightWithDescenders() float32 {
	return math32.Round(l.glyphHeight + CellVerticalPadding*2)
}

// TextLeft returns the left edge of the text block.
func (l *CellLabel) TextLeft() float32 { return l.textX }

// TextRight returns the right edge of the text block.
func (l *CellLabel) TextRight() float32 { return l.textX + l.textWidth }

// OverflowLeft returns how far the text extends left of the cell.
func (l *CellLabel) OverflowLeft() float32 { return l.overflowLeft }

// OverflowRight returns how far the text extends right of the cell.
func (l *CellLabel) OverflowRight() float32 { return l.overflowRight }

// ClipLeft returns the left clip edge imposed by a neighbour.
func (l *CellLabel) ClipLeft() (float32, bool) { return l.clipLeft, l.hasClipLeft }

// ClipRight returns the right clip edge imposed by a neighbour.
func (l *CellLabel) ClipRight() (float32, bool) { return l.clipRight, l.hasClipRight }

// SetClipLeft clips the text at x and reports whether anything changed.
func (l *CellLabel) SetClipLeft(x float32) bool {
	if l.hasClipLeft && l.clipLeft == x {
		return false
	}
	l.clipLeft, l.hasClipLeft = x, true
	return true
}

// SetClipRight clips the text at x and reports whether anything changed.
func (l *CellLabel) SetClipRight(x float32) bool {
	if l.hasClipRight && l.clipRight == x {
		return false
	}
	l.clipRight, l.hasClipRight = x, true
	return true
}

// ClearClipLeft removes the left clip and reports whether one was set.
func (l *CellLabel) ClearClipLeft() bool {
	if !l.hasClipLeft {
		return false
	}
	l.clipLeft, l.hasClipLeft = 0, false
	return true
}

// ClearClipRight removes the right clip and reports whether one was set.
func (l *CellLabel) ClearClipRight() bool {
	if !l.hasClipRight {
		return false
	}
	l.clipRight, l.hasClipRight = 0, false
	return true
}

// clipEdges returns the horizontal range glyphs must stay inside.
func (l *CellLabel) clipEdges() (left, right float32) {
	if l.wrap == message.WrapClip {
		return l.cell.Left(), l.cell.Right()
	}
	left, right = math32.Inf(-1), math32.Inf(1)
	if l.hasClipLeft {
		left = l.clipLeft
	}
	if l.hasClipRight {
		right = l.clipRight
	}
	return left, right
}

// TextRange returns the horizontal extent of the text after clipping.
func (l *CellLabel) TextRange() (left, right float32) {
	cl, cr := l.clipEdges()
	return math32.Max(l.TextLeft(), cl), math32.Min(l.TextRight(), cr)
}
