package gridtext

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.NeighborX != 1 || cfg.NeighborY != 0.5 {
		t.Errorf("neighbor zone = %v x %v, want 1 x 0.5", cfg.NeighborX, cfg.NeighborY)
	}
	if cfg.MemoryCeiling != 192<<20 {
		t.Errorf("MemoryCeiling = %d", cfg.MemoryCeiling)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		opt   Option
		field string
	}{
		{"negative neighbor x", WithNeighborZone(-1, 0), "NeighborX"},
		{"negative neighbor y", WithNeighborZone(0, -0.5), "NeighborY"},
		{"zero ceiling", WithMemoryCeiling(0), "MemoryCeiling"},
		{"negative timeout", WithFetchTimeout(-time.Second), "FetchTimeout"},
		{"empty queue", WithQueueSize(0), "QueueSize"},
		{"zero zone", WithNeighborZone(0, 0), ""},
		{"no timeout", WithFetchTimeout(0), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.opt(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "QueueSize", Reason: "must be at least 1"}
	want := "gridtext: invalid config.QueueSize: must be at least 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestOptions(t *testing.T) {
	l := slog.New(nopHandler{})
	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithLogger(l),
		WithNeighborZone(0.25, 2),
		WithMemoryCeiling(1 << 20),
		WithFetchTimeout(time.Second),
		WithQueueSize(8),
	} {
		opt(&cfg)
	}
	if cfg.Logger != l || cfg.NeighborX != 0.25 || cfg.NeighborY != 2 ||
		cfg.MemoryCeiling != 1<<20 || cfg.FetchTimeout != time.Second || cfg.QueueSize != 8 {
		t.Errorf("options not applied: %+v", cfg)
	}
}
