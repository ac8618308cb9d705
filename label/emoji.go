package label

import "github.com/gogpu/gridtext/font"

// Combining marks that turn a preceding character into an emoji.
const (
	variationSelector16 = '\uFE0F'
	keycapCombiner      = '\u20E3'
)

// pictographic reports whether r is in a block made of emoji.
func pictographic(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF, // misc symbols, dingbats
		r >= 0x2B00 && r <= 0x2BFF, // misc symbols and arrows
		r >= 0x2300 && r <= 0x23FF: // misc technical
		return true
	default:
		return false
	}
}

// isEmoji reports whether the grapheme g is drawn as an emoji sprite
// rather than from the font. Supplementary-plane pictographs always are;
// BMP symbols only when they request emoji presentation, form a sequence,
// or the font has no glyph for them.
func isEmoji(g string, bf *font.BitmapFont) bool {
	runes := []rune(g)
	first := runes[0]
	for _, r := range runes[1:] {
		switch r {
		case variationSelector16, keycapCombiner:
			return true
		}
	}
	if !pictographic(first) {
		return false
	}
	if first >= 0x10000 || len(runes) > 1 {
		return true
	}
	_, ok := bf.Char(first)
	return !ok
}
