package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIPort != 8500 {
		t.Errorf("expected default api_port 8500, got %d", cfg.APIPort)
	}
	if cfg.EmbeddingDimension != 1024 {
		t.Errorf("expected default embedding_dimension 1024, got %d", cfg.EmbeddingDimension)
	}
	if cfg.PersonThreshold != 0.85 {
		t.Errorf("expected person threshold 0.85, got %f", cfg.PersonThreshold)
	}
	if cfg.DefaultThreshold != 0.80 {
		t.Errorf("expected default threshold 0.80, got %f", cfg.DefaultThreshold)
	}
	if cfg.TimezoneOffsetHours != 3 {
		t.Errorf("expected timezone offset 3, got %d", cfg.TimezoneOffsetHours)
	}
	if cfg.GraphMaxHops != 3 {
		t.Errorf("expected graph_max_hops 3, got %d", cfg.GraphMaxHops)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("API_PORT", "9000")
	t.Setenv("QDRANT_HOST", "qdrant.internal")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIPort != 9000 {
		t.Errorf("expected api_port 9000 from env, got %d", cfg.APIPort)
	}
	if cfg.QdrantHost != "qdrant.internal" {
		t.Errorf("expected qdrant_host from env, got %q", cfg.QdrantHost)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.APIPort = -1 }, true},
		{"overlap exceeds chunk", func(c *Config) { c.ChunkOverlapTokens = c.ChunkMaxTokens }, true},
		{"threshold out of range", func(c *Config) { c.PersonThreshold = 1.5 }, true},
		{"zero hops", func(c *Config) { c.GraphMaxHops = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
