package gridtext

import (
	"log/slog"
	"time"

	"github.com/gogpu/gridtext/font"
)

// Config holds the tunables of a Core.
type Config struct {
	// Logger receives the Core's log output.
	// Default: the package logger at NewCore time (see SetLogger).
	Logger *slog.Logger

	// Fonts is the glyph registry shared by every sheet.
	// Default: font.Default, the Go font family in four styles.
	Fonts *font.Fonts

	// NeighborX and NeighborY size the zone rendered ahead of scrolling,
	// as a fraction of the viewport width and height added on each side.
	// Default: 1.0 and 0.5
	NeighborX float32
	NeighborY float32

	// MemoryCeiling is the published geometry size, in bytes, above which
	// off-screen tiles are evicted.
	// Default: 192 MiB
	MemoryCeiling int

	// FetchTimeout bounds one tile fetch. Zero disables the limit.
	// Default: 30s
	FetchTimeout time.Duration

	// QueueSize is the capacity of the fetch result queue.
	// Default: 256
	QueueSize int
}

// DefaultConfig returns the default Core configuration.
func DefaultConfig() Config {
	return Config{
		NeighborX:     1,
		NeighborY:     0.5,
		MemoryCeiling: 192 << 20,
		FetchTimeout:  30 * time.Second,
		QueueSize:     256,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.NeighborX < 0 {
		return &ConfigError{Field: "NeighborX", Reason: "must be non-negative"}
	}
	if c.NeighborY < 0 {
		return &ConfigError{Field: "NeighborY", Reason: "must be non-negative"}
	}
	if c.MemoryCeiling <= 0 {
		return &ConfigError{Field: "MemoryCeiling", Reason: "must be positive"}
	}
	if c.FetchTimeout < 0 {
		return &ConfigError{Field: "FetchTimeout", Reason: "must be non-negative"}
	}
	if c.QueueSize < 1 {
		return &ConfigError{Field: "QueueSize", Reason: "must be at least 1"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "gridtext: invalid config." + e.Field + ": " + e.Reason
}

// Option configures a Core during creation.
//
// Example:
//
//	core, err := gridtext.NewCore(source, publisher,
//	    gridtext.WithMemoryCeiling(64<<20),
//	    gridtext.WithNeighborZone(0.5, 0.25),
//	)
type Option func(*Config)

// WithLogger sets the Core's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithFonts sets the glyph registry. Use it to register additional fonts
// or to share one registry between cores.
func WithFonts(f *font.Fonts) Option {
	return func(c *Config) {
		c.Fonts = f
	}
}

// WithNeighborZone sets the speculative render zone around the viewport,
// as fractions of the viewport size added on each side.
func WithNeighborZone(x, y float32) Option {
	return func(c *Config) {
		c.NeighborX, c.NeighborY = x, y
	}
}

// WithMemoryCeiling sets the eviction threshold in bytes.
func WithMemoryCeiling(bytes int) Option {
	return func(c *Config) {
		c.MemoryCeiling = bytes
	}
}

// WithFetchTimeout bounds each tile fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.FetchTimeout = d
	}
}

// WithQueueSize sets the fetch result queue capacity.
func WithQueueSize(n int) Option {
	return func(c *Config) {
		c.QueueSize = n
	}
}
