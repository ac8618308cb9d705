package label

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// parseColor reads a CSS hex colour into straight RGBA.
func parseColor(s string) ([4]float32, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return [4]float32{}, false
	}
	c = c.Clamped()
	return [4]float32{float32(c.R), float32(c.G), float32(c.B), 1}, true
}
