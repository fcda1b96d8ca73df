// Package config holds the run configuration of the blobmaker CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevel    = "info"
	DefaultMeshCells   = 200
	DefaultTolerance   = 1e-6
	DefaultEvalTimeout = 5 * time.Second
)

// Config is a run configuration. Empty paths disable the matching output.
type Config struct {
	LogLevel string `yaml:"log_level"`
	// Dev switches to the human-readable console logger.
	Dev bool `yaml:"dev"`

	// Journal is the path the Cubit journal is written to.
	Journal string `yaml:"journal"`
	// Report is the path of the JSON materials/boundaries report.
	Report string `yaml:"report"`
	// Preview is the path of the JSON preview meshes.
	Preview string `yaml:"preview"`
	// MetricsFile is a prometheus textfile-collector output path.
	MetricsFile string `yaml:"metrics_file"`

	MeshCells   int           `yaml:"mesh_cells"`
	Tolerance   float64       `yaml:"tolerance"`
	EvalTimeout time.Duration `yaml:"eval_timeout"`
}

var ErrInvalidConfig = errors.New("config: invalid")

// Default returns a Config with every default applied.
func Default() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.MeshCells == 0 {
		c.MeshCells = DefaultMeshCells
	}
	if c.Tolerance == 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.EvalTimeout == 0 {
		c.EvalTimeout = DefaultEvalTimeout
	}
}

// Validate checks values that would make a run fail later.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %s", ErrInvalidConfig, err)
	}
	if c.MeshCells < 0 {
		return fmt.Errorf("%w: mesh_cells must be positive, got %d", ErrInvalidConfig, c.MeshCells)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, c.Tolerance)
	}
	if c.EvalTimeout < 0 {
		return fmt.Errorf("%w: eval_timeout must be positive, got %s", ErrInvalidConfig, c.EvalTimeout)
	}
	return nil
}

// Decode reads a YAML configuration, applies defaults and validates it.
// An empty document yields the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load loads configuration from the file.
func Load(file string) (Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Logger builds the zap logger the configuration asks for.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: log_level: %s", ErrInvalidConfig, err)
	}
	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	if c.Dev {
		zc = zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}
