package mesh

import "slices"

// Segment is one fixed-capacity buffer of glyph quads. Each quad is four
// vertices (top-left, top-right, bottom-right, bottom-left) and six
// indices forming the triangles 0,1,2 and 2,3,0.
type Segment struct {
	Vertices []float32 // x,y per vertex
	UVs      []float32 // u,v per vertex
	Colors   []float32 // r,g,b,a per vertex; nil for uncoloured batches
	Indices  []uint16

	capacity int // glyphs
	count    int // glyphs written
	hasColor bool
}

func newSegment(capacity int, hasColor bool) *Segment {
	s := &Segment{
		Vertices: make([]float32, 0, capacity*VerticesPerGlyph*2),
		UVs:      make([]float32, 0, capacity*VerticesPerGlyph*2),
		Indices:  make([]uint16, 0, capacity*IndicesPerGlyph),
		capacity: capacity,
		hasColor: hasColor,
	}
	if hasColor {
		s.Colors = make([]float32, 0, capacity*VerticesPerGlyph*4)
	}
	return s
}

// Len returns the number of quads written.
func (s *Segment) Len() int { return s.count }

// Cap returns the number of quads the segment holds.
func (s *Segment) Cap() int { return s.capacity }

// Full reports whether no quad can be added.
func (s *Segment) Full() bool { return s.count >= s.capacity }

// AddQuad writes one glyph quad covering [x0,x1]×[y0,y1]. uvs uses the
// same corner order as the vertices. color is ignored for uncoloured
// segments.
//
// AddQuad panics when the segment is full; callers get segments from
// LabelMesh.GetBuffer, which never returns a full one.
func (s *Segment) AddQuad(x0, y0, x1, y1 float32, uvs [8]float32, color [4]float32) {
	if s.Full() {
		panic("mesh: AddQuad on full segment")
	}
	base := uint16(s.count * VerticesPerGlyph) //nolint:gosec // capacity keeps this below MaxVerticesPerSegment

	s.Vertices = append(s.Vertices,
		x0, y0,
		x1, y0,
		x1, y1,
		x0, y1,
	)
	s.UVs = append(s.UVs, uvs[:]...)
	if s.hasColor {
		for range VerticesPerGlyph {
			s.Colors = append(s.Colors, color[:]...)
		}
	}
	s.Indices = append(s.Indices,
		base+0, base+1, base+2,
		base+2, base+3, base+0,
	)
	s.count++
}

// Bytes returns the size of the segment's buffers.
func (s *Segment) Bytes() int {
	return 4*(len(s.Vertices)+len(s.UVs)+len(s.Colors)) + 2*len(s.Indices)
}

// trim copies the buffers down to their written length.
func (s *Segment) trim() {
	if s.count == s.capacity {
		return
	}
	s.Vertices = slices.Clone(s.Vertices)
	s.UVs = slices.Clone(s.UVs)
	s.Indices = slices.Clone(s.Indices)
	if s.Colors != nil {
		s.Colors = slices.Clone(s.Colors)
	}
	s.capacity = s.count
}
