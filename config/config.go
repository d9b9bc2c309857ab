// Package config loads the settings of the reactor command.
//
// Settings come from three sources. Later sources override earlier ones:
// built-in defaults, a YAML file, and REACTOR_* variables from a .env file or
// the process environment. The process environment wins over the .env file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/reactor/sim/chemistry"
)

// Engine modes.
const (
	ModeSerial = "serial"
	ModeBatch  = "batch"
)

// Batch modes.
const (
	BatchFixed   = "fixed"
	BatchEpsilon = "epsilon"
)

// Replay strategies.
const (
	ReplayEach      = "each"
	ReplayAggregate = "aggregate"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config holds all the settings.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Recording  RecordingConfig  `yaml:"recording"`
	Log        LogConfig        `yaml:"log"`
	Colony     ColonyConfig     `yaml:"colony"`
	Seed       uint64           `yaml:"seed"`
}

// ColonyConfig describes the colony grown by the run command. Its seed is
// the top-level seed.
type ColonyConfig = chemistry.ColonyConfig

// EngineConfig selects and tunes the simulation engine.
type EngineConfig struct {
	Mode string `yaml:"mode"`

	// MaxSteps stops the simulation after that many steps. Zero means no
	// limit.
	MaxSteps uint64 `yaml:"max_steps"`

	// FinalTime stops the simulation before the first reaction that would
	// happen later. Zero means no limit.
	FinalTime float64 `yaml:"final_time"`

	BatchSize int     `yaml:"batch_size"`
	BatchMode string  `yaml:"batch_mode"`
	Epsilon   float64 `yaml:"epsilon"`
	Replay    string  `yaml:"replay"`
}

// MonitoringConfig controls the monitoring server.
type MonitoringConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// RecordingConfig controls the step recorder.
type RecordingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path of the database, without the .sqlite3 extension. An empty path
	// gets a unique name.
	Path string `yaml:"path"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Mode:      ModeSerial,
			BatchSize: runtime.GOMAXPROCS(0),
			BatchMode: BatchFixed,
			Epsilon:   0.1,
			Replay:    ReplayEach,
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatText,
		},
		Colony: chemistry.DefaultColonyConfig(),
		Seed:   1,
	}
}

// Load builds the settings from the defaults, the YAML file at path and the
// environment. Empty paths are skipped. A missing env file is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}

		if err := cfg.mergeYAML(data); err != nil {
			return Config{}, err
		}
	}

	env, err := readEnv(envFile)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.applyEnv(env); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// mergeYAML overrides the settings named in the document. Unknown keys are
// rejected.
func (c *Config) mergeYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}

	return nil
}

// Validate reports every inconsistent setting.
func (c Config) Validate() error {
	var errs []error

	invalid := func(format string, args ...any) {
		errs = append(errs,
			fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	e := c.Engine

	switch e.Mode {
	case ModeSerial, ModeBatch:
	default:
		invalid("engine.mode %q is neither %q nor %q",
			e.Mode, ModeSerial, ModeBatch)
	}

	if math.IsNaN(e.FinalTime) || e.FinalTime < 0 {
		invalid("engine.final_time must not be negative")
	}

	if e.Mode == ModeBatch {
		if e.BatchSize < 1 {
			invalid("engine.batch_size must be at least 1")
		}

		switch e.BatchMode {
		case BatchFixed:
		case BatchEpsilon:
			if math.IsNaN(e.Epsilon) || e.Epsilon <= 0 {
				invalid("engine.epsilon must be positive")
			}
		default:
			invalid("engine.batch_mode %q is neither %q nor %q",
				e.BatchMode, BatchFixed, BatchEpsilon)
		}

		switch e.Replay {
		case ReplayEach, ReplayAggregate:
		default:
			invalid("engine.replay %q is neither %q nor %q",
				e.Replay, ReplayEach, ReplayAggregate)
		}
	}

	if p := c.Monitoring.Port; p != 0 && (p < 1000 || p > 65535) {
		invalid("monitoring.port %d is out of range", p)
	}

	if c.Monitoring.OpenBrowser && !c.Monitoring.Enabled {
		invalid("monitoring.open_browser needs monitoring.enabled")
	}

	col := c.Colony
	for _, rate := range []struct {
		name  string
		value float64
	}{
		{"initial_nutrient", col.InitialNutrient},
		{"growth_rate", col.GrowthRate},
		{"division_rate", col.DivisionRate},
		{"death_rate", col.DeathRate},
		{"feed_rate", col.FeedRate},
	} {
		if math.IsNaN(rate.value) || rate.value < 0 {
			invalid("colony.%s must not be negative", rate.name)
		}
	}

	if math.IsNaN(col.DivisionSize) || col.DivisionSize <= 0 {
		invalid("colony.division_size must be positive")
	}

	if col.MaxCells < 0 {
		invalid("colony.max_cells must not be negative")
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		invalid("log.level: %v", err)
	}

	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		invalid("log.format %q is neither %q nor %q",
			c.Log.Format, FormatText, FormatJSON)
	}

	return errors.Join(errs...)
}
