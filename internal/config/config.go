package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/models"
	"github.com/san-kum/swervesim/internal/sim"
)

const (
	DefaultDuration = 90.0
	DefaultMaxTicks = 10000
	DefaultSource   = "sinusoidal"
	DefaultSink     = "file"
	DefaultDir      = "runs"
	DefaultLogEvery = 100

	// EnvPrefix prefixes environment overrides, e.g. SWERVESIM_SINK_DSN.
	EnvPrefix = "SWERVESIM"
)

type Config struct {
	Dt           float64            `yaml:"dt" mapstructure:"dt"`
	Duration     float64            `yaml:"duration" mapstructure:"duration"`
	MaxTicks     int64              `yaml:"max_ticks" mapstructure:"max_ticks"`
	Seed         int64              `yaml:"seed" mapstructure:"seed"`
	Realtime     bool               `yaml:"realtime" mapstructure:"realtime"`
	Parallel     bool               `yaml:"parallel" mapstructure:"parallel"`
	Source       string             `yaml:"source" mapstructure:"source"`
	SourceParams map[string]float64 `yaml:"source_params,omitempty" mapstructure:"source_params"`
	Physics      models.Params      `yaml:"physics" mapstructure:"physics"`
	Sink         SinkConfig         `yaml:"sink" mapstructure:"sink"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	LogEvery     int64              `yaml:"log_every" mapstructure:"log_every"`
}

type SinkConfig struct {
	// Type is a comma-separated list of sinks, e.g. "file,sqlite".
	Type        string       `yaml:"type" mapstructure:"type"`
	Dir         string       `yaml:"dir" mapstructure:"dir"`
	DSN         string       `yaml:"dsn" mapstructure:"dsn"`
	Influx      InfluxConfig `yaml:"influx" mapstructure:"influx"`
	Stream      StreamConfig `yaml:"stream" mapstructure:"stream"`
	MaxFailures int          `yaml:"max_failures" mapstructure:"max_failures"`
}

type InfluxConfig struct {
	URL        string `yaml:"url" mapstructure:"url"`
	Token      string `yaml:"token" mapstructure:"token"`
	Org        string `yaml:"org" mapstructure:"org"`
	Bucket     string `yaml:"bucket" mapstructure:"bucket"`
	BackupPath string `yaml:"backup_path" mapstructure:"backup_path"`
}

type StreamConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
	// Every sends one tick in Every; 1 sends all of them.
	Every int `yaml:"every" mapstructure:"every"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

func DefaultConfig() *Config {
	return &Config{
		Dt:       sim.DefaultDt,
		Duration: DefaultDuration,
		MaxTicks: DefaultMaxTicks,
		Realtime: true,
		Source:   DefaultSource,
		Physics:  models.DefaultParams(),
		Sink: SinkConfig{
			Type: DefaultSink,
			Dir:  DefaultDir,
			Influx: InfluxConfig{
				URL:        "http://localhost:8086",
				Org:        "swervesim",
				Bucket:     "swerve",
				BackupPath: "influx-backup.lp.gz",
			},
			Stream: StreamConfig{Listen: "127.0.0.1:8765", Every: 10},
		},
		Log:      LogConfig{Level: "info", Pretty: true},
		LogEvery: DefaultLogEvery,
	}
}

// Load reads defaults, then the YAML file at path (if non-empty), then
// SWERVESIM_* environment variables, each layer overriding the last.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.EngineConfig().Validate(); err != nil {
		return err
	}
	if err := c.Limits().Validate(); err != nil {
		return err
	}
	if len(c.SinkTypes()) == 0 {
		return fmt.Errorf("%w: no sink configured", dynamo.ErrInvalidConfig)
	}
	if c.Sink.Stream.Every < 0 || c.Sink.MaxFailures < 0 {
		return fmt.Errorf("%w: negative sink setting", dynamo.ErrInvalidConfig)
	}
	return nil
}

func (c *Config) EngineConfig() sim.Config {
	return sim.Config{Dt: c.Dt, Params: c.Physics, Parallel: c.Parallel}
}

func (c *Config) Limits() sim.Limits {
	return sim.Limits{Duration: c.Duration, MaxTicks: c.MaxTicks}
}

// Period is the tick period as a wall-clock duration.
func (c *Config) Period() time.Duration {
	return time.Duration(c.Dt * float64(time.Second))
}

// SinkTypes splits Sink.Type into trimmed, lower-case names.
func (c *Config) SinkTypes() []string {
	var out []string
	for _, t := range strings.Split(c.Sink.Type, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SetParam sets a numeric field by its YAML name. Physics fields are
// addressed by their bare name ("turn_tau"); anything unrecognised goes to
// SourceParams.
func (c *Config) SetParam(name string, value float64) {
	switch name {
	case "dt":
		c.Dt = value
		return
	case "duration":
		c.Duration = value
		return
	case "max_ticks":
		c.MaxTicks = int64(value)
		return
	case "seed":
		c.Seed = int64(value)
		return
	}

	if f := c.physicsField(name); f != nil {
		*f = value
		return
	}

	if c.SourceParams == nil {
		c.SourceParams = make(map[string]float64)
	}
	c.SourceParams[name] = value
}

func (c *Config) physicsField(name string) *float64 {
	p := &c.Physics
	fields := map[string]*float64{
		"max_turn_rate":      &p.MaxTurnRate,
		"turn_tau":           &p.TurnTau,
		"drive_tau":          &p.DriveTau,
		"max_speed":          &p.MaxSpeed,
		"deadband":           &p.Deadband,
		"omega_angle_gain":   &p.OmegaAngleGain,
		"omega_speed_gain":   &p.OmegaSpeedGain,
		"angle_noise":        &p.AngleNoise,
		"speed_noise":        &p.SpeedNoise,
		"drive_base_current": &p.DriveBaseCurrent,
		"drive_slip_gain":    &p.DriveSlipGain,
		"drive_load_gain":    &p.DriveLoadGain,
		"turn_base_current":  &p.TurnBaseCurrent,
		"turn_error_gain":    &p.TurnErrorGain,
		"drive_heating":      &p.DriveHeating,
		"turn_heating":       &p.TurnHeating,
		"cooling":            &p.Cooling,
		"initial_temp":       &p.InitialTemp,
		"yaw_gain":           &p.YawGain,
		"yaw_noise":          &p.YawNoise,
		"nominal_voltage":    &p.NominalVoltage,
		"floor_voltage":      &p.FloorVoltage,
		"sag_coefficient":    &p.SagCoefficient,
	}
	return fields[strings.TrimPrefix(name, "physics.")]
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.SourceParams != nil {
		out.SourceParams = make(map[string]float64, len(c.SourceParams))
		for k, v := range c.SourceParams {
			out.SourceParams[k] = v
		}
	}
	return &out
}
