// Package font provides the bitmap fonts used by the layout engine.
//
// A [BitmapFont] is built from TrueType data with golang.org/x/image's sfnt
// parser. Metrics are generated once at [EmSize] pixels; the layout engine
// scales them to the cell's font size. Each glyph is assigned a slot in a
// shelf-packed atlas page so its quad carries real texture coordinates and
// a texture id.
//
// The four style variants of a family are registered under
// "<family>", "<family>-Bold", "<family>-Italic" and "<family>-BoldItalic";
// [Name] builds those names.
package font

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// DefaultFamily is the family name the layout engine asks for.
const DefaultFamily = "OpenSans"

var (
	// ErrFontNotFound is returned when a font name is not registered.
	ErrFontNotFound = errors.New("font: font not found")

	// ErrGlyphNotFound is returned when a font has no glyph for a rune.
	ErrGlyphNotFound = errors.New("font: glyph not found")

	// ErrEmptyName is returned when registering a font without a name.
	ErrEmptyName = errors.New("font: empty font name")
)

// ParseError reports font data that could not be parsed.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("font: parse %q: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Name returns the registered name of the DefaultFamily variant.
func Name(bold, italic bool) string {
	switch {
	case bold && italic:
		return DefaultFamily + "-BoldItalic"
	case bold:
		return DefaultFamily + "-Bold"
	case italic:
		return DefaultFamily + "-Italic"
	default:
		return DefaultFamily
	}
}

// Fonts is a registry of bitmap fonts sharing one texture id space.
//
// Fonts is safe for concurrent use.
type Fonts struct {
	mu     sync.RWMutex
	fonts  map[string]*BitmapFont
	logger *slog.Logger

	nextTexture atomic.Uint32
}

// NewFonts returns an empty registry. A nil logger discards output.
func NewFonts(logger *slog.Logger) *Fonts {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fonts{
		fonts:  make(map[string]*BitmapFont),
		logger: logger,
	}
}

// Default returns a registry holding the four DefaultFamily variants, backed
// by the Go fonts.
func Default(logger *slog.Logger) (*Fonts, error) {
	f := NewFonts(logger)
	variants := []struct {
		bold, italic bool
		ttf          []byte
	}{
		{false, false, goregular.TTF},
		{true, false, gobold.TTF},
		{false, true, goitalic.TTF},
		{true, true, gobolditalic.TTF},
	}
	for _, v := range variants {
		if err := f.Register(Name(v.bold, v.italic), v.ttf); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Register parses ttf and adds it under name, replacing any font with the
// same name.
func (f *Fonts) Register(name string, ttf []byte) error {
	if name == "" {
		return ErrEmptyName
	}
	parsed, err := sfnt.Parse(ttf)
	if err != nil {
		return &ParseError{Name: name, Err: err}
	}
	bf, err := newBitmapFont(name, parsed, f)
	if err != nil {
		return &ParseError{Name: name, Err: err}
	}

	f.mu.Lock()
	f.fonts[name] = bf
	f.mu.Unlock()

	f.logger.Debug("font registered", "name", name, "lineHeight", bf.LineHeight)
	return nil
}

// Get returns the font registered under name.
func (f *Fonts) Get(name string) (*BitmapFont, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	bf, ok := f.fonts[name]
	return bf, ok
}

// Lookup is Get with an error for callers that propagate it.
func (f *Fonts) Lookup(name string) (*BitmapFont, error) {
	if bf, ok := f.Get(name); ok {
		return bf, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrFontNotFound, name)
}

// Names returns the registered names in sorted order.
func (f *Fonts) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.fonts))
	for n := range f.fonts {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// TextureCount returns the number of atlas pages allocated so far.
func (f *Fonts) TextureCount() int {
	return int(f.nextTexture.Load())
}

// allocTexture returns a new texture id. Ids start at 1.
func (f *Fonts) allocTexture() uint32 {
	return f.nextTexture.Add(1)
}
