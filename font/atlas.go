package font

// AtlasSize is the width and height of one atlas page in pixels.
const AtlasSize = 1024

// atlasPadding separates neighbouring glyphs on a page.
const atlasPadding = 2

// atlasPage places glyph rectangles on one texture with a shelf packer:
// items go left to right on the current shelf, and a new shelf starts
// below when a row is full.
type atlasPage struct {
	textureID uint32
	size      int
	shelves   []shelf
	usedArea  int
}

type shelf struct {
	y      int
	height int
	x      int
}

func newAtlasPage(textureID uint32, size int) *atlasPage {
	return &atlasPage{
		textureID: textureID,
		size:      size,
		shelves:   make([]shelf, 0, 16),
	}
}

// allocate reserves a w×h rectangle and returns its top-left corner.
func (p *atlasPage) allocate(w, h int) (x, y int, ok bool) {
	paddedW := w + atlasPadding
	paddedH := h + atlasPadding
	if paddedW > p.size || paddedH > p.size {
		return -1, -1, false
	}

	for i := range p.shelves {
		s := &p.shelves[i]
		if s.x+paddedW > p.size {
			continue
		}
		if h > s.height {
			// Only the last shelf can grow.
			if i != len(p.shelves)-1 || s.y+paddedH > p.size {
				continue
			}
			s.height = h
		}
		x, y = s.x, s.y
		s.x += paddedW
		p.usedArea += w * h
		return x, y, true
	}

	newY := 0
	if n := len(p.shelves); n > 0 {
		last := p.shelves[n-1]
		newY = last.y + last.height + atlasPadding
	}
	if newY+paddedH > p.size {
		return -1, -1, false
	}
	p.shelves = append(p.shelves, shelf{y: newY, height: h, x: paddedW})
	p.usedArea += w * h
	return 0, newY, true
}

// utilization returns the fraction of the page covered by glyphs.
func (p *atlasPage) utilization() float64 {
	return float64(p.usedArea) / float64(p.size*p.size)
}

// uvs returns the normalized corners of a placed rectangle in the order
// top-left, top-right, bottom-right, bottom-left.
func (p *atlasPage) uvs(x, y, w, h int) [8]float32 {
	s := float32(p.size)
	u0, v0 := float32(x)/s, float32(y)/s
	u1, v1 := float32(x+w)/s, float32(y+h)/s
	return [8]float32{u0, v0, u1, v0, u1, v1, u0, v1}
}
