// Command gridtextdemo renders a synthetic sheet and prints what was
// published per tile.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gogpu/gridtext"
	"github.com/gogpu/gridtext/cells"
	"github.com/gogpu/gridtext/grid"
	"github.com/gogpu/gridtext/mesh"
	"github.com/gogpu/gridtext/message"
	"github.com/gogpu/gridtext/numfmt"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7DD3FC")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#4B5563"))
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
)

func main() {
	var (
		columns = flag.Int64("columns", 60, "sheet columns")
		rows    = flag.Int64("rows", 90, "sheet rows")
		width   = flag.Float64("width", 1280, "viewport width in pixels")
		height  = flag.Float64("height", 720, "viewport height in pixels")
		timeout = flag.Duration("timeout", 10*time.Second, "render timeout")
		debug   = flag.Bool("debug", false, "log scheduling decisions")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	gridtext.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	pipelines, err := pipelineTable()
	if err != nil {
		log.Fatalf("Failed to build glyph pipelines: %v", err)
	}

	rec := message.NewRecorder()
	core, err := gridtext.NewCore(cells.CellSourceFunc(syntheticCells), rec)
	if err != nil {
		log.Fatalf("Failed to create core: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- core.Run(ctx) }()

	content := grid.NewRect(1, 1, *columns, *rows)
	core.UpdateSheet(message.SheetSnapshot{SheetID: "demo", Bounds: &content})
	core.SetViewport(message.Viewport{
		SheetID: "demo",
		Bounds:  grid.Bounds{Width: float32(*width), Height: float32(*height)},
		Scale:   1,
	})

	start := time.Now()
	for len(rec.Completions()) == 0 {
		if ctx.Err() != nil {
			log.Fatalf("First render did not complete: %v", ctx.Err())
		}
		time.Sleep(5 * time.Millisecond)
	}
	elapsed := time.Since(start)

	// Let the neighbor zone finish before reporting.
	for core.Stats().Fetching > 0 && ctx.Err() == nil {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	table := tileTable(rec)
	if err := core.Close(); err != nil {
		log.Printf("Close: %v", err)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("first render in %v", elapsed.Round(time.Millisecond))))
	fmt.Println(table)
	fmt.Println(pipelines)
}

// pipelineTable compiles both glyph shaders and reports the buffer layout a
// renderer needs for each batch kind.
func pipelineTable() (string, error) {
	rows := [][]string{{"batch", "spir-v words", "strides", "index", "vertex usage", "index usage"}}
	for _, hasColor := range []bool{false, true} {
		words, err := mesh.CompileShader(hasColor)
		if err != nil {
			return "", err
		}
		var strides []uint64
		for _, l := range mesh.VertexLayouts(hasColor) {
			strides = append(strides, uint64(l.ArrayStride))
		}
		name := "plain"
		if hasColor {
			name = "coloured"
		}
		rows = append(rows, []string{
			name,
			strconv.Itoa(len(words)),
			fmt.Sprint(strides),
			mesh.IndexFormat.String(),
			fmt.Sprintf("%#x", uint64(mesh.VertexUsage)),
			fmt.Sprintf("%#x", uint64(mesh.IndexUsage)),
		})
	}
	return renderTable(rows), nil
}

// syntheticCells produces a mix of text, numbers and styles for any tile.
func syntheticCells(_ context.Context, req message.FetchRequest) ([]message.RenderCell, error) {
	var out []message.RenderCell
	bold := true
	for y := req.Rect.MinY; y <= req.Rect.MaxY; y++ {
		for x := req.Rect.MinX; x <= req.Rect.MaxX; x++ {
			switch {
			case y == 1:
				out = append(out, message.RenderCell{X: x, Y: y, Value: "Column " + strconv.FormatInt(x, 10), Bold: &bold, Align: message.AlignCenter})
			case x == 1:
				out = append(out, message.RenderCell{X: x, Y: y, Value: fmt.Sprintf("Row %d has a label that overflows", y)})
			case (x+y)%7 == 0:
				out = append(out, message.RenderCell{
					X: x, Y: y,
					Value:  strconv.FormatFloat(float64(x*y)*1234.5678, 'f', -1, 64),
					Number: &numfmt.Format{Kind: numfmt.KindCurrency, Symbol: "$"},
				})
			case (x*y)%11 == 0:
				out = append(out, message.RenderCell{X: x, Y: y, Value: "#" + strconv.FormatInt(x*y, 16), TextColor: "#c0392b", Underline: true})
			}
		}
	}
	return out, nil
}

func tileTable(rec *message.Recorder) string {
	keys := rec.DisplayedTiles()
	slices.SortFunc(keys, func(a, b message.TileKey) int {
		if a.Y != b.Y {
			return int(a.Y - b.Y)
		}
		return int(a.X - b.X)
	})

	header := []string{"tile", "segments", "quads", "fonts"}
	rows := [][]string{header}
	for _, k := range keys {
		t, _ := rec.Displayed(k)
		quads := 0
		var fonts []string
		for _, s := range t.Segments {
			quads += len(s.Indices) / 6
			if !slices.Contains(fonts, s.FontName) {
				fonts = append(fonts, s.FontName)
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("(%d,%d)", k.X, k.Y),
			strconv.Itoa(len(t.Segments)),
			strconv.Itoa(quads),
			fmt.Sprint(fonts),
		})
	}
	return renderTable(rows)
}

// renderTable draws rows with the first one as a header.
func renderTable(rows [][]string) string {
	header := rows[0]

	widths := make([]int, len(header))
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	lines := make([]string, 0, len(rows))
	for i, r := range rows {
		style := cellStyle
		if i == 0 {
			style = headerStyle
		}
		cols := make([]string, len(r))
		for j, c := range r {
			cols[j] = style.Width(widths[j] + 2).Render(c)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
