// Package mesh batches positioned glyph quads into GPU-sized buffers.
//
// Glyphs are grouped by [Key]: font name, font size, atlas texture and
// whether the batch carries per-vertex colour. Each batch ([LabelMesh]) is
// split into [Segment]s of at most [MaxVerticesPerSegment] vertices, so a
// single draw never exceeds a 16-bit index range.
//
// A tile rebuild uses the batcher in three phases:
//
//	id := meshes.Add(font, size, texture, hasColor) // during layout
//	meshes.Get(id).Reserve(n)
//	meshes.Prepare()                                 // allocate segments
//	meshes.Get(id).GetBuffer().AddQuad(...)          // per glyph
//	meshes.Finalize()                                // trim, drop empties
//
// Texture id 0 is the solid-fill texture used for underline and
// strike-through rectangles.
package mesh

// Buffer limits.
const (
	// MaxVerticesPerSegment caps the vertices in one segment.
	MaxVerticesPerSegment = 15000

	// VerticesPerGlyph is the vertex count of one quad.
	VerticesPerGlyph = 4

	// IndicesPerGlyph is the index count of one quad.
	IndicesPerGlyph = 6

	// MaxGlyphsPerSegment is the quad capacity of one segment.
	MaxGlyphsPerSegment = MaxVerticesPerSegment / VerticesPerGlyph
)

// SolidTexture is the texture id of untextured (solid colour) quads.
const SolidTexture uint32 = 0

// Key groups glyphs that can share a draw call.
type Key struct {
	FontName  string
	FontSize  float32
	TextureID uint32
	HasColor  bool
}

// LabelMesh is one batch and its segments.
type LabelMesh struct {
	ID  int
	Key Key

	reserved int
	segments []*Segment
	current  int
}

// Reserve adds n quads to the count Prepare allocates for.
func (m *LabelMesh) Reserve(n int) {
	m.reserved += n
}

// Reserved returns the reserved quad count.
func (m *LabelMesh) Reserved() int { return m.reserved }

// prepare allocates segments for the reserved quads.
func (m *LabelMesh) prepare() {
	m.segments = m.segments[:0]
	m.current = 0
	remaining := m.reserved
	for remaining > 0 {
		n := min(remaining, MaxGlyphsPerSegment)
		m.segments = append(m.segments, newSegment(n, m.Key.HasColor))
		remaining -= n
	}
}

// GetBuffer returns the writable segment, advancing to the next one when
// the current segment is full. Writing more quads than were reserved
// appends a fresh segment.
func (m *LabelMesh) GetBuffer() *Segment {
	for m.current < len(m.segments) && m.segments[m.current].Full() {
		m.current++
	}
	if m.current == len(m.segments) {
		m.segments = append(m.segments, newSegment(MaxGlyphsPerSegment, m.Key.HasColor))
	}
	return m.segments[m.current]
}

// finalize trims every segment and drops empty ones.
func (m *LabelMesh) finalize() {
	kept := m.segments[:0]
	for _, s := range m.segments {
		if s.Len() == 0 {
			continue
		}
		s.trim()
		kept = append(kept, s)
	}
	m.segments = kept
}

// Segments returns the batch's segments.
func (m *LabelMesh) Segments() []*Segment { return m.segments }

// Bytes returns the size of all segments.
func (m *LabelMesh) Bytes() int {
	n := 0
	for _, s := range m.segments {
		n += s.Bytes()
	}
	return n
}

// LabelMeshes is the set of batches of one tile.
type LabelMeshes struct {
	meshes []*LabelMesh
	byKey  map[Key]int
}

// NewLabelMeshes returns an empty set.
func NewLabelMeshes() *LabelMeshes {
	return &LabelMeshes{byKey: make(map[Key]int)}
}

// Add returns the id of the batch for the given key, creating it if
// needed.
func (l *LabelMeshes) Add(fontName string, fontSize float32, textureID uint32, hasColor bool) int {
	key := Key{FontName: fontName, FontSize: fontSize, TextureID: textureID, HasColor: hasColor}
	if id, ok := l.byKey[key]; ok {
		return id
	}
	id := len(l.meshes)
	l.meshes = append(l.meshes, &LabelMesh{ID: id, Key: key})
	l.byKey[key] = id
	return id
}

// Get returns the batch with the given id.
func (l *LabelMeshes) Get(id int) *LabelMesh {
	return l.meshes[id]
}

// Len returns the number of batches.
func (l *LabelMeshes) Len() int { return len(l.meshes) }

// Prepare allocates segments for every batch.
func (l *LabelMeshes) Prepare() {
	for _, m := range l.meshes {
		m.prepare()
	}
}

// Finalize trims every batch after all quads are written.
func (l *LabelMeshes) Finalize() {
	for _, m := range l.meshes {
		m.finalize()
	}
}

// All returns every batch in creation order.
func (l *LabelMeshes) All() []*LabelMesh { return l.meshes }

// Bytes returns the size of all batches.
func (l *LabelMeshes) Bytes() int {
	n := 0
	for _, m := range l.meshes {
		n += m.Bytes()
	}
	return n
}

// Clear removes every batch.
func (l *LabelMeshes) Clear() {
	l.meshes = l.meshes[:0]
	clear(l.byKey)
}
