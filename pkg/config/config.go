// Package config loads kexbuild settings from defaults, an optional config
// file, KEXBUILD_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chazu/kexbuild/pkg/engine"
	"github.com/chazu/kexbuild/pkg/logging"
	"github.com/chazu/kexbuild/pkg/placement"
	"github.com/chazu/kexbuild/pkg/world"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. KEXBUILD_PLACEMENT_GRIDSIZE.
const EnvPrefix = "KEXBUILD"

// PlacementConfig holds the snap settings. Mode is kept as text so config
// files stay readable.
type PlacementConfig struct {
	GridSize float64          `json:"gridSize" mapstructure:"gridSize"`
	Mode     string           `json:"mode" mapstructure:"mode"`
	Workers  int              `json:"workers" mapstructure:"workers"`
	Tuning   placement.Tuning `json:"tuning" mapstructure:"tuning"`
}

// KernelConfig holds geometry kernel settings.
type KernelConfig struct {
	MeshCells int `json:"meshCells" mapstructure:"meshCells"`
}

// EngineConfig holds catalog DSL settings.
type EngineConfig struct {
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Config is the full kexbuild configuration.
type Config struct {
	LogLevel  string          `json:"logLevel" mapstructure:"logLevel"`
	LogFormat string          `json:"logFormat" mapstructure:"logFormat"`
	LogsDir   string          `json:"logsDir" mapstructure:"logsDir"`
	Catalog   string          `json:"catalog" mapstructure:"catalog"`
	Placement PlacementConfig `json:"placement" mapstructure:"placement"`
	Terrain   world.Terrain   `json:"terrain" mapstructure:"terrain"`
	Kernel    KernelConfig    `json:"kernel" mapstructure:"kernel"`
	Engine    EngineConfig    `json:"engine" mapstructure:"engine"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"log-level":  "logLevel",
	"log-format": "logFormat",
	"logs-dir":  "logsDir",
	"catalog":   "catalog",
	"grid-size": "placement.gridSize",
	"mode":      "placement.mode",
	"workers":   "placement.workers",
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", logging.FormatConsole)
	v.SetDefault("logsDir", "")
	v.SetDefault("catalog", "")

	s := placement.DefaultSettings()
	v.SetDefault("placement.gridSize", s.GridSize)
	v.SetDefault("placement.mode", s.Mode.String())
	v.SetDefault("placement.workers", 0)

	tu := s.Tuning
	v.SetDefault("placement.tuning.maxRayDistance", tu.MaxRayDistance)
	v.SetDefault("placement.tuning.minBuildDistance", tu.MinBuildDistance)
	v.SetDefault("placement.tuning.snapThreshold", tu.SnapThreshold)
	v.SetDefault("placement.tuning.rayDistanceWeight", tu.RayDistanceWeight)
	v.SetDefault("placement.tuning.originDistanceWeight", tu.OriginDistanceWeight)
	v.SetDefault("placement.tuning.angleWeight", tu.AngleWeight)
	v.SetDefault("placement.tuning.primaryMultiplier", tu.PrimaryMultiplier)
	v.SetDefault("placement.tuning.downcastHeight", tu.DowncastHeight)
	v.SetDefault("placement.tuning.smoothingRate", tu.SmoothingRate)
	v.SetDefault("placement.tuning.minDirectionLengthSq", tu.MinDirectionLengthSq)
	v.SetDefault("placement.tuning.horizontalEpsilon", tu.HorizontalEpsilon)

	v.SetDefault("terrain.height", 0.0)
	v.SetDefault("terrain.extent", world.DefaultGroundExtent)
	v.SetDefault("terrain.disabled", false)

	v.SetDefault("kernel.meshCells", 32)
	v.SetDefault("engine.timeout", engine.EvalTimeout.String())
}

// RegisterFlags adds the command line flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml or json)")
	fs.String("log-level", "info", "log level: trace, debug, info, warn, error")
	fs.String("log-format", logging.FormatConsole, "log format: console, json")
	fs.String("logs-dir", "", "directory for a session log file")
	fs.String("catalog", "", "building catalog (.yaml, .yml or DSL source)")
	fs.Float64("grid-size", placement.DefaultSettings().GridSize, "snap grid size in world units")
	fs.String("mode", placement.DefaultSettings().Mode.String(), "snap mode: none, simple, advanced")
	fs.Int("workers", 0, "pending objects resolved concurrently (0 = GOMAXPROCS)")
}

// Load reads configuration. path may be empty for defaults only; when fs
// is non-nil, flags that were set on the command line override the file.
// A "config" flag, if set, takes the place of path.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration with no file, environment or flags.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Settings converts the placement section into pipeline settings.
func (c Config) Settings() (placement.Settings, error) {
	mode, err := placement.ParseMode(c.Placement.Mode)
	if err != nil {
		return placement.Settings{}, fmt.Errorf("config: %w: %w", ErrInvalid, err)
	}
	s := placement.Settings{
		GridSize: c.Placement.GridSize,
		Mode:     mode,
		Tuning:   c.Placement.Tuning,
	}
	if err := s.Validate(); err != nil {
		return placement.Settings{}, fmt.Errorf("config: %w: %w", ErrInvalid, err)
	}
	return s, nil
}

// Validate checks the values that have no safe fallback.
func (c Config) Validate() error {
	if _, err := c.Settings(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("config: %w: unknown log format %q", ErrInvalid, c.LogFormat)
	}
	if c.Placement.Workers < 0 {
		return fmt.Errorf("config: %w: workers must not be negative", ErrInvalid)
	}
	if c.Kernel.MeshCells <= 0 {
		return fmt.Errorf("config: %w: kernel mesh cells must be positive", ErrInvalid)
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("config: %w: engine timeout must be positive", ErrInvalid)
	}
	return nil
}
