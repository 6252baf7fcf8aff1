package cachetee

import (
	"errors"
	"testing"
)

func TestPresetConfigs(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{"Default", DefaultConfig()},
		{"Fastest", FastestConfig()},
		{"BestCompression", BestCompressionConfig()},
		{"Compatible", CompatibleConfig()},
		{"LowCPU", LowCPUConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.config == nil {
				t.Fatal("Config is nil")
			}
			if tt.config.Algorithm == "" {
				t.Error("Algorithm not set")
			}
			if tt.config.BufferSize == 0 {
				t.Error("BufferSize not set")
			}
			if err := tt.config.Validate(); err != nil {
				t.Errorf("Preset does not validate: %v", err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Algorithm != AlgorithmZstd {
		t.Errorf("Expected zstd, got %q", config.Algorithm)
	}
	if config.Level != 12 {
		t.Errorf("Expected level 12, got %d", config.Level)
	}
	if config.MaxCacheSize != 2_000_000 {
		t.Errorf("Expected a 2000000 byte budget, got %d", config.MaxCacheSize)
	}
	if config.logger() == nil {
		t.Error("Expected a no-op logger for a nil Logger")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   error
	}{
		{"zero budget", Config{Algorithm: AlgorithmZstd}, ErrInvalidCacheSize},
		{"negative budget", Config{Algorithm: AlgorithmZstd, MaxCacheSize: -1}, ErrInvalidCacheSize},
		{"bad level", Config{Algorithm: AlgorithmBrotli, Level: 12, MaxCacheSize: 1}, ErrInvalidLevel},
		{"no algorithm", Config{MaxCacheSize: 1}, ErrUnsupportedAlgorithm},
		{"ok", Config{Algorithm: AlgorithmSnappy, MaxCacheSize: 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGetCompressionRatio(t *testing.T) {
	if got := GetCompressionRatio(0, 10); got != 0 {
		t.Errorf("Expected 0 for empty input, got %f", got)
	}
	if got := GetCompressionRatio(100, 25); got != 0.25 {
		t.Errorf("Expected 0.25, got %f", got)
	}
}

func TestStatsRatios(t *testing.T) {
	s := &Stats{Hits: 3, Misses: 1, BytesAdmitted: 1000, BytesCompressed: 250}
	if got := s.HitRatio(); got != 0.75 {
		t.Errorf("Expected hit ratio 0.75, got %f", got)
	}
	if got := s.TotalCompressionRatio(); got != 0.25 {
		t.Errorf("Expected compression ratio 0.25, got %f", got)
	}
	empty := &Stats{}
	if empty.HitRatio() != 0 || empty.TotalCompressionRatio() != 0 {
		t.Error("Expected zero ratios for empty stats")
	}
}
