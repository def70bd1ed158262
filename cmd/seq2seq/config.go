package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/seq2seq/internal/logger"
	"github.com/samcharles93/seq2seq/internal/model"
)

// Config represents the seq2seq configuration file
// (~/.config/seq2seq/config.yaml). Pointer fields distinguish "not set" from
// zero values.
type Config struct {
	Model ModelConfig `yaml:"model"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string   `yaml:"server_address"`
	RateLimit     *float64 `yaml:"rate_limit"`
	RateBurst     *int     `yaml:"rate_burst"`
}

// ModelConfig mirrors model.Config.
type ModelConfig struct {
	SrcVocabSize *int     `yaml:"src_vocab_size"`
	TgtVocabSize *int     `yaml:"tgt_vocab_size"`
	SrcSeqLen    *int     `yaml:"src_seq_len"`
	TgtSeqLen    *int     `yaml:"tgt_seq_len"`
	DModel       *int     `yaml:"d_model"`
	Layers       *int     `yaml:"layers"`
	Heads        *int     `yaml:"heads"`
	DFF          *int     `yaml:"d_ff"`
	Dropout      *float64 `yaml:"dropout"`
	Eps          *float64 `yaml:"eps"`
	Seed         *uint64  `yaml:"seed"`
	Workers      *int     `yaml:"workers"`
}

// fileCfg is the config loaded by setup for the running command.
var fileCfg Config

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "seq2seq", "config.yaml")
}

// loadConfig reads path, or the default location when path is empty. A
// missing default file yields a zero Config; a missing explicit file is an
// error.
func loadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// setup loads the config file and installs the logger on the context.
func setup(ctx context.Context, c *cli.Command) (context.Context, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return ctx, err
	}
	fileCfg = cfg
	applyLoggingConfig(c, cfg)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log, err := logger.Setup(os.Stderr, logFormat, level)
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyModelConfig applies config file values to the model flag variables
// when the corresponding flag was not explicitly set, then returns the
// resulting model.Config.
func applyModelConfig(c *cli.Command, mc ModelConfig) model.Config {
	setUnlessFlag(c, "src-vocab", mc.SrcVocabSize, &srcVocab)
	setUnlessFlag(c, "tgt-vocab", mc.TgtVocabSize, &tgtVocab)
	setUnlessFlag(c, "src-len", mc.SrcSeqLen, &srcLen)
	setUnlessFlag(c, "tgt-len", mc.TgtSeqLen, &tgtLen)
	setUnlessFlag(c, "d-model", mc.DModel, &dModel)
	setUnlessFlag(c, "layers", mc.Layers, &layers)
	setUnlessFlag(c, "heads", mc.Heads, &heads)
	setUnlessFlag(c, "d-ff", mc.DFF, &dFF)
	setUnlessFlag(c, "dropout", mc.Dropout, &dropout)
	setUnlessFlag(c, "eps", mc.Eps, &eps)
	setUnlessFlag(c, "seed", mc.Seed, &seed)
	setUnlessFlag(c, "workers", mc.Workers, &workers)

	return model.Config{
		SrcVocabSize: srcVocab,
		TgtVocabSize: tgtVocab,
		SrcSeqLen:    srcLen,
		TgtSeqLen:    tgtLen,
		DModel:       dModel,
		Layers:       layers,
		Heads:        heads,
		DFF:          dFF,
		Dropout:      dropout,
		Eps:          eps,
		Seed:         seed,
		Workers:      workers,
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, rps *float64, burst *int) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	setUnlessFlag(c, "rate-limit", cfg.RateLimit, rps)
	setUnlessFlag(c, "rate-burst", cfg.RateBurst, burst)
}

func setUnlessFlag[T any](c *cli.Command, flag string, v *T, dst *T) {
	if v != nil && !c.IsSet(flag) {
		*dst = *v
	}
}

// buildModel constructs the transformer described by the flags and config
// file, logging through the context logger.
func buildModel(ctx context.Context, c *cli.Command) (*model.Transformer, error) {
	cfg := applyModelConfig(c, fileCfg.Model)
	m, err := model.New(cfg, model.WithLogger(logger.FromContext(ctx)))
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	m.SetTraining(training)
	return m, nil
}
