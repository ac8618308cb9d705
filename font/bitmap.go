package font

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chewxy/math32"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Font geometry constants.
const (
	// EmSize is the pixel size glyph metrics are generated at.
	EmSize float32 = 42

	// DistanceRange is the signed-distance range of the atlas in pixels.
	DistanceRange float32 = 4

	// kernCacheSize bounds the cached kerning pairs per font.
	kernCacheSize = 4096
)

// Frame is the size of a glyph's quad in font pixels.
type Frame struct {
	Width, Height float32
}

// CharData describes one glyph at EmSize.
type CharData struct {
	Rune rune

	// XAdvance moves the pen to the next glyph.
	XAdvance float32

	// XOffset and YOffset place the quad relative to the pen position and
	// the top of the line.
	XOffset, YOffset float32

	Frame Frame

	// UVs holds the atlas corners: top-left, top-right, bottom-right,
	// bottom-left.
	UVs [8]float32

	// TextureID is the atlas page; 0 for glyphs without ink (spaces).
	TextureID uint32

	glyph sfnt.GlyphIndex
}

// BitmapFont is one registered font face.
//
// BitmapFont is safe for concurrent use.
type BitmapFont struct {
	// Name is the registered name.
	Name string

	// Size is the em size metrics are generated at (EmSize).
	Size float32

	// LineHeight is the font's line spacing at Size.
	LineHeight float32

	// Ascent is the distance from the top of a line to the baseline.
	Ascent float32

	// DistanceRange is the atlas distance range at Size.
	DistanceRange float32

	owner *Fonts
	face  *sfnt.Font
	ppem  fixed.Int26_6

	mu      sync.Mutex
	buf     sfnt.Buffer
	chars   map[rune]*CharData
	missing map[rune]struct{}
	kerning *kernCache
	pages   []*atlasPage
}

func newBitmapFont(name string, f *sfnt.Font, owner *Fonts) (*BitmapFont, error) {
	ppem := fixed.Int26_6(EmSize * 64)
	var buf sfnt.Buffer
	m, err := f.Metrics(&buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	return &BitmapFont{
		Name:          name,
		Size:          EmSize,
		LineHeight:    fixedToFloat32(m.Height),
		Ascent:        fixedToFloat32(m.Ascent),
		DistanceRange: DistanceRange,
		owner:         owner,
		face:          f,
		ppem:          ppem,
		chars:         make(map[rune]*CharData),
		missing:       make(map[rune]struct{}),
		kerning:       newKernCache(kernCacheSize),
	}, nil
}

// Scale returns the factor from EmSize to fontSize pixels.
func (b *BitmapFont) Scale(fontSize float32) float32 {
	return fontSize / b.Size
}

// Char returns the glyph for r, generating it on first use. It returns
// false when the font has no glyph for r; the miss is logged once.
func (b *BitmapFont) Char(r rune) (*CharData, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cd, ok := b.chars[r]; ok {
		return cd, true
	}
	if _, ok := b.missing[r]; ok {
		return nil, false
	}

	cd, err := b.loadChar(r)
	if err != nil {
		b.missing[r] = struct{}{}
		b.owner.logger.Warn("glyph skipped", "font", b.Name, "rune", fmt.Sprintf("%U", r), "err", err)
		return nil, false
	}
	b.chars[r] = cd
	return cd, true
}

// loadChar reads the metrics of r and places it on an atlas page.
// Caller must hold b.mu.
func (b *BitmapFont) loadChar(r rune) (*CharData, error) {
	idx, err := b.face.GlyphIndex(&b.buf, r)
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		return nil, ErrGlyphNotFound
	}

	bounds, advance, err := b.face.GlyphBounds(&b.buf, idx, b.ppem, xfont.HintingNone)
	if err != nil {
		return nil, err
	}

	cd := &CharData{
		Rune:     r,
		XAdvance: fixedToFloat32(advance),
		XOffset:  fixedToFloat32(bounds.Min.X),
		YOffset:  b.Ascent + fixedToFloat32(bounds.Min.Y),
		Frame: Frame{
			Width:  fixedToFloat32(bounds.Max.X - bounds.Min.X),
			Height: fixedToFloat32(bounds.Max.Y - bounds.Min.Y),
		},
		glyph: idx,
	}
	if cd.Frame.Width <= 0 || cd.Frame.Height <= 0 {
		cd.Frame = Frame{}
		return cd, nil
	}

	w := int(math32.Ceil(cd.Frame.Width))
	h := int(math32.Ceil(cd.Frame.Height))
	page, x, y, err := b.place(w, h)
	if err != nil {
		return nil, err
	}
	cd.TextureID = page.textureID
	cd.UVs = page.uvs(x, y, w, h)
	return cd, nil
}

var errGlyphTooLarge = errors.New("font: glyph larger than atlas page")

// place finds room for a w×h glyph, opening a new page when the current
// one is full.
func (b *BitmapFont) place(w, h int) (*atlasPage, int, int, error) {
	if n := len(b.pages); n > 0 {
		p := b.pages[n-1]
		if x, y, ok := p.allocate(w, h); ok {
			return p, x, y, nil
		}
	}
	p := newAtlasPage(b.owner.allocTexture(), AtlasSize)
	x, y, ok := p.allocate(w, h)
	if !ok {
		return nil, 0, 0, errGlyphTooLarge
	}
	b.pages = append(b.pages, p)
	b.owner.logger.Debug("atlas page opened", "font", b.Name, "texture", p.textureID)
	return p, x, y, nil
}

// Kerning returns the adjustment between prev and next at Size. Pairs
// without kerning, and runes without glyphs, return 0.
func (b *BitmapFont) Kerning(prev, next rune) float32 {
	first, ok := b.Char(prev)
	if !ok {
		return 0
	}
	second, ok := b.Char(next)
	if !ok {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := kernPair{prev, next}
	if v, ok := b.kerning.get(key); ok {
		return v
	}
	k, err := b.face.Kern(&b.buf, first.glyph, second.glyph, b.ppem, xfont.HintingNone)
	v := float32(0)
	if err == nil {
		v = fixedToFloat32(k)
	}
	b.kerning.set(key, v)
	return v
}

// Pages returns the number of atlas pages the font has opened.
func (b *BitmapFont) Pages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pages)
}

// AtlasUtilization returns the fill ratio of the newest page.
func (b *BitmapFont) AtlasUtilization() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pages) == 0 {
		return 0
	}
	return b.pages[len(b.pages)-1].utilization()
}

// fixedToFloat32 converts a 26.6 fixed-point value to float32.
func fixedToFloat32(x fixed.Int26_6) float32 {
	return float32(x) / 64
}
