package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seq2seq/internal/model"
)

const testConfigYAML = `
log_level: debug
log_format: json
server_address: 0.0.0.0:9000
rate_limit: 5
model:
  src_seq_len: 33
  d_model: 32
  layers: 3
  seed: 9
  dropout: 0
`

func TestLoadConfig(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(testConfigYAML), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		cfg, err := loadConfig(path)
		if err != nil {
			t.Fatalf("loadConfig: %v", err)
		}
		if cfg.LogLevel != "debug" || cfg.LogFormat != "json" || cfg.ServerAddress != "0.0.0.0:9000" {
			t.Fatalf("unexpected top-level config: %+v", cfg)
		}
		if cfg.RateLimit == nil || *cfg.RateLimit != 5 || cfg.RateBurst != nil {
			t.Fatalf("unexpected rate config: %v / %v", cfg.RateLimit, cfg.RateBurst)
		}
		mc := cfg.Model
		if mc.DModel == nil || *mc.DModel != 32 || mc.Seed == nil || *mc.Seed != 9 {
			t.Fatalf("unexpected model config: %+v", mc)
		}
		if mc.Dropout == nil || *mc.Dropout != 0 {
			t.Fatal("explicit zero dropout should be kept")
		}
		if mc.Heads != nil {
			t.Fatal("unset heads should stay nil")
		}
	})

	t.Run("missing explicit path is an error", func(t *testing.T) {
		if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("missing default file is ignored", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		cfg, err := loadConfig("")
		if err != nil {
			t.Fatalf("loadConfig: %v", err)
		}
		if cfg.Model.DModel != nil || cfg.LogLevel != "" {
			t.Fatalf("expected zero config, got %+v", cfg)
		}
	})

	t.Run("default location", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", dir)
		if err := os.MkdirAll(filepath.Join(dir, "seq2seq"), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "seq2seq", "config.yaml"), []byte(testConfigYAML), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		cfg, err := loadConfig("")
		if err != nil {
			t.Fatalf("loadConfig: %v", err)
		}
		if cfg.Model.Layers == nil || *cfg.Model.Layers != 3 {
			t.Fatalf("config not read from default location: %+v", cfg)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("model: [1, 2"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		_, err := loadConfig(path)
		if err == nil || !strings.Contains(err.Error(), "parse config") {
			t.Fatalf("err = %v, want parse error", err)
		}
	})
}

func TestApplyModelConfigFlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testConfigYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	fc, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	var got model.Config
	cmd := &cli.Command{
		Name:  "test",
		Flags: modelFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			got = applyModelConfig(c, fc.Model)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"test", "--d-model", "64", "--heads", "4"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got.DModel != 64 {
		t.Errorf("DModel = %d, want flag value 64", got.DModel)
	}
	if got.Heads != 4 {
		t.Errorf("Heads = %d, want 4", got.Heads)
	}
	if got.Layers != 3 || got.SrcSeqLen != 33 || got.Seed != 9 || got.Dropout != 0 {
		t.Errorf("file values not applied: %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("resulting config invalid: %v", err)
	}
}

func TestApplyServeConfig(t *testing.T) {
	fc := Config{ServerAddress: "0.0.0.0:9000"}
	rps := 5.0
	fc.RateLimit = &rps

	var (
		addr  = "127.0.0.1:8080"
		limit = 20.0
		burst = 40
	)
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr"},
			&cli.Float64Flag{Name: "rate-limit"},
			&cli.IntFlag{Name: "rate-burst"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			applyServeConfig(c, fc, &addr, &limit, &burst)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"test", "--rate-limit", "2"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if addr != "0.0.0.0:9000" {
		t.Errorf("addr = %q, want config value", addr)
	}
	if limit != 20 {
		t.Errorf("rate limit = %v, explicit flag should block the config value", limit)
	}
	if burst != 40 {
		t.Errorf("burst = %d, want untouched default", burst)
	}
}
