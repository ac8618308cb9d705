package main

import (
	"strings"
	"testing"
)

// TestPipelineTable tests that both glyph shaders compile and their
// stream strides are reported.
func TestPipelineTable(t *testing.T) {
	out, err := pipelineTable()
	if err != nil {
		t.Fatalf("pipelineTable() error = %v", err)
	}
	for _, want := range []string{"plain", "coloured", "[8 8]", "[8 8 16]"} {
		if !strings.Contains(out, want) {
			t.Errorf("pipeline table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([][]string{{"a", "b"}, {"long cell", "x"}})
	if !strings.Contains(out, "long cell") || strings.Count(out, "\n") < 3 {
		t.Errorf("renderTable:\n%s", out)
	}
}
