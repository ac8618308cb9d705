package label

import (
	"fmt"
	"log/slog"
	"unicode"

	"github.com/chewxy/math32"
	"github.com/go-text/typesetting/segmenter"

	"github.com/gogpu/gridtext/font"
	"github.com/gogpu/gridtext/message"
	"github.com/gogpu/gridtext/numfmt"
)

// Layout positions the label's glyphs and resolves its place in the cell.
// Glyphs missing from the font are skipped. Numeric labels too wide for
// the cell drop fractional digits until they fit or none are left.
func (l *CellLabel) Layout(fonts *font.Fonts, logger *slog.Logger) error {
	bf, err := fonts.Lookup(l.fontName)
	if err != nil {
		l.reset()
		return fmt.Errorf("label %v: %w", l.pos, err)
	}

	// Start from the full number: the cell may have widened since the
	// last reduction.
	if l.number != nil && l.decimals >= 0 {
		l.text = l.value
		if s, err := numfmt.FormatNumber(l.value, *l.number); err == nil {
			l.text = s
		}
		l.decimals = -1
	}

	l.layoutText(bf)
	l.fitNumber(bf, logger)
	l.laidOut = true
	return nil
}

// fitNumber reduces the decimals of a numeric label until it fits.
func (l *CellLabel) fitNumber(bf *font.BitmapFont, logger *slog.Logger) {
	if l.number == nil || l.wrap == message.WrapWrap {
		return
	}
	avail := l.cell.Width - CellTextMargin*2
	for l.textWidth > avail {
		r, ok := numfmt.ReduceDecimals(l.value, *l.number, l.decimals)
		if !ok {
			if logger != nil {
				logger.Debug("number overflows cell", "cell", l.pos, "text", l.text)
			}
			return
		}
		l.text = r.Text
		l.decimals = r.Decimals
		l.layoutText(bf)
	}
}

func (l *CellLabel) reset() {
	l.glyphs = l.glyphs[:0]
	l.emojis = l.emojis[:0]
	l.lineWidths = l.lineWidths[:0]
	l.lineBroken = l.lineBroken[:0]
	l.alignOffsets = l.alignOffsets[:0]
	l.textWidth, l.textHeight, l.unwrappedWidth = 0, 0, 0
	l.overflowLeft, l.overflowRight = 0, 0
	l.laidOut = false
}

// graphemes splits text into user-perceived characters.
func graphemes(text string) []string {
	var seg segmenter.Segmenter
	seg.InitWithString(text)
	var out []string
	it := seg.GraphemeIterator()
	for it.Next() {
		out = append(out, string(it.Grapheme().Text))
	}
	return out
}

func isNewline(g string) bool {
	return g == "\n" || g == "\r" || g == "\r\n"
}

// layoutText runs the line-breaking pass.
func (l *CellLabel) layoutText(bf *font.BitmapFont) {
	l.reset()

	scale := bf.Scale(l.fontSize)
	l.scale = scale
	lineHeight := (l.fontSize / DefaultFontSize) * LineHeight / scale

	if l.text == "" {
		l.textHeight = LineHeight
		l.glyphHeight = LineHeight
		l.calculatePosition()
		return
	}

	maxWidth := math32.Inf(1)
	if l.wrap == message.WrapWrap {
		maxWidth = (l.cell.Width - CellTextMargin*3) / scale
	}

	chars := graphemes(l.text)

	var (
		penX, penY     float32
		line           int
		lastLineWidth  float32
		maxLineWidth   float32
		prev           rune
		hasPrev        bool
		breakPos       = -1
		breakWidth     float32
		breakGlyphs    int
		breakEmojis    int
		maxDescender   float32
		fontLineHeight = bf.LineHeight
	)

	endLine := func(width float32, broken bool) {
		l.lineWidths = append(l.lineWidths, width)
		l.lineBroken = append(l.lineBroken, broken)
		maxLineWidth = math32.Max(maxLineWidth, width)
		line++
		penX = 0
		penY += lineHeight
		hasPrev = false
		lastLineWidth = 0
		breakPos = -1
	}

	for i := 0; i < len(chars); {
		g := chars[i]
		if isNewline(g) {
			endLine(lastLineWidth, false)
			i++
			continue
		}

		r := []rune(g)[0]

		if isEmoji(g, bf) {
			// Emoji wrap like glyphs, with the line height as advance.
			if penX > 0 && penX+lineHeight > maxWidth && lineHeight < maxWidth {
				if breakPos >= 0 {
					next := breakPos + 1
					l.glyphs = l.glyphs[:breakGlyphs]
					l.emojis = l.emojis[:breakEmojis]
					endLine(breakWidth, true)
					i = next
				} else {
					endLine(lastLineWidth, true)
				}
				continue
			}
			l.emojis = append(l.emojis, emojiRun{text: g, penX: penX, line: line, size: lineHeight})
			penX += lineHeight
			lastLineWidth = penX
			hasPrev = false
			i++
			continue
		}

		cd, ok := bf.Char(r)
		if !ok {
			i++
			continue
		}

		if hasPrev {
			penX += bf.Kerning(prev, r)
		}

		glyphBottom := penY + cd.YOffset + cd.Frame.Height
		lineBottom := float32(line+1) * fontLineHeight
		maxDescender = math32.Max(maxDescender, glyphBottom-lineBottom)

		l.glyphs = append(l.glyphs, Glyph{
			Rune:    r,
			X:       penX + cd.XOffset,
			Y:       penY + cd.YOffset,
			PenX:    penX,
			Line:    line,
			Advance: cd.XAdvance,
			Frame:   cd.Frame,
			UVs:     cd.UVs,
			Texture: cd.TextureID,
		})
		if unicode.IsSpace(r) {
			breakPos = i
			breakWidth = lastLineWidth
			breakGlyphs = len(l.glyphs)
			breakEmojis = len(l.emojis)
		}

		penX += cd.XAdvance
		prev, hasPrev = r, true

		if penX > maxWidth && cd.XAdvance < maxWidth {
			if breakPos >= 0 {
				// Break after the last space; the space stays on this line.
				next := breakPos + 1
				l.glyphs = l.glyphs[:breakGlyphs]
				l.emojis = l.emojis[:breakEmojis]
				endLine(breakWidth, true)
				i = next
			} else {
				// No space on the line: move this glyph to the next one.
				l.glyphs = l.glyphs[:len(l.glyphs)-1]
				endLine(lastLineWidth, true)
			}
			continue
		}

		lastLineWidth = penX
		i++
	}

	l.lineWidths = append(l.lineWidths, lastLineWidth)
	l.lineBroken = append(l.lineBroken, false)
	maxLineWidth = math32.Max(maxLineWidth, lastLineWidth)

	l.applyAlignment(maxLineWidth)

	lines := float32(len(l.lineWidths))
	l.textWidth = maxLineWidth*scale + fixX*2
	l.textHeight = (l.fontSize / DefaultFontSize) * LineHeight * lines
	l.glyphHeight = (lineHeight*lines + math32.Max(maxDescender, 0)) * scale
	l.unwrappedWidth = l.measureUnwrapped(bf, chars)

	l.calculatePosition()
}

// applyAlignment computes each line's offset within the block.
func (l *CellLabel) applyAlignment(maxLineWidth float32) {
	for i, w := range l.lineWidths {
		var off float32
		switch l.align {
		case message.AlignCenter:
			off = (maxLineWidth - w) / 2
		case message.AlignRight:
			off = maxLineWidth - w
		case message.AlignJustify:
			if l.lineBroken[i] {
				l.justifyLine(i, maxLineWidth-w)
			}
		}
		l.alignOffsets = append(l.alignOffsets, off)
	}
}

// justifyLine spreads extra across the spaces between words of line.
// Trailing spaces do not stretch.
func (l *CellLabel) justifyLine(line int, extra float32) {
	if extra <= 0 {
		return
	}
	first, last := -1, -1
	for i := range l.glyphs {
		if l.glyphs[i].Line != line {
			continue
		}
		if first < 0 {
			first = i
		}
		if !unicode.IsSpace(l.glyphs[i].Rune) {
			last = i
		}
	}
	if first < 0 || last < 0 {
		return
	}

	spaces := 0
	for i := first; i < last; i++ {
		if unicode.IsSpace(l.glyphs[i].Rune) {
			spaces++
		}
	}
	if spaces == 0 {
		return
	}

	per := extra / float32(spaces)
	var shift float32
	for i := first; i <= last; i++ {
		l.glyphs[i].justify = shift
		if unicode.IsSpace(l.glyphs[i].Rune) {
			shift += per
		}
	}
}

// measureUnwrapped returns the widest newline-separated line, ignoring
// wrapping, plus margins, in pixels.
func (l *CellLabel) measureUnwrapped(bf *font.BitmapFont, chars []string) float32 {
	var cur, widest float32
	var prev rune
	hasPrev := false
	emojiAdvance := (l.fontSize / DefaultFontSize) * LineHeight / l.scale

	for _, g := range chars {
		if isNewline(g) {
			cur, hasPrev = 0, false
			continue
		}
		if isEmoji(g, bf) {
			cur += emojiAdvance
			hasPrev = false
			widest = math32.Max(widest, cur)
			continue
		}
		r := []rune(g)[0]
		cd, ok := bf.Char(r)
		if !ok {
			continue
		}
		if hasPrev {
			cur += bf.Kerning(prev, r)
		}
		cur += math32.Max(cd.XAdvance, cd.Frame.Width)
		widest = math32.Max(widest, cur)
		prev, hasPrev = r, true
	}
	return (widest + 3*CellTextMargin) * l.scale
}

// calculatePosition places the text block inside the cell and measures
// overflow.
func (l *CellLabel) calculatePosition() {
	l.overflowLeft, l.overflowRight = 0, 0
	left, right := l.cell.Left(), l.cell.Right()

	switch l.align {
	case message.AlignRight:
		l.textX = right - l.textWidth - CellTextMargin
	case message.AlignCenter:
		l.textX = left + (l.cell.Width-l.textWidth)/2
	default:
		l.textX = left + CellTextMargin
	}
	if l.textX < left {
		l.overflowLeft = left - l.textX
	}
	if r := l.textX + l.textWidth; r > right {
		l.overflowRight = r - right
	}

	available := l.cell.Height - l.textHeight
	defaultExtra := DefaultCellHeight - LineHeight
	if available <= defaultExtra {
		l.textY = l.cell.Y + math32.Max(available/2, 0)
		return
	}
	switch l.valign {
	case message.VerticalTop:
		l.textY = l.cell.Y + CellVerticalPadding
	case message.VerticalMiddle:
		l.textY = l.cell.Y + available/2
	default:
		l.textY = l.cell.Bottom() - l.textHeight - CellVerticalPadding
	}
}
