package placement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/kexbuild/pkg/catalog"
)

// Mode selects which snap points take part in matching.
type Mode uint8

const (
	// ModeNone disables snapping; the default target is used verbatim.
	ModeNone Mode = iota
	// ModeSimple matches Primary points only.
	ModeSimple
	// ModeAdvanced matches every point.
	ModeAdvanced
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeSimple:
		return "simple"
	case ModeAdvanced:
		return "advanced"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode parses the names produced by Mode.String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return ModeNone, nil
	case "simple":
		return ModeSimple, nil
	case "advanced":
		return ModeAdvanced, nil
	}
	return ModeNone, fmt.Errorf("placement: unknown snap mode %q", s)
}

// Next cycles Simple -> Advanced -> None -> Simple.
func (m Mode) Next() Mode {
	switch m {
	case ModeSimple:
		return ModeAdvanced
	case ModeAdvanced:
		return ModeNone
	default:
		return ModeSimple
	}
}

// Allows reports whether a point of priority p participates under m.
func (m Mode) Allows(p catalog.Priority) bool {
	switch m {
	case ModeSimple:
		return p == catalog.Primary
	case ModeAdvanced:
		return true
	default:
		return false
	}
}

// UnsetY marks a pending object that has never been rendered. Its first
// resolved pose is applied without smoothing.
const UnsetY = -999.0

// MaxOffset bounds the vertical and depth offsets in grid steps.
const MaxOffset = 10

// YawStep is the rotation applied per Rotate step, in degrees.
const YawStep = 15.0

// Tuning holds the scoring and ray constants. They are tuned values with no
// derivation beyond matching observed behavior, so all of them are
// configurable.
type Tuning struct {
	MaxRayDistance       float64 `json:"maxRayDistance" mapstructure:"maxRayDistance"`
	MinBuildDistance     float64 `json:"minBuildDistance" mapstructure:"minBuildDistance"`
	SnapThreshold        float64 `json:"snapThreshold" mapstructure:"snapThreshold"`
	RayDistanceWeight    float64 `json:"rayDistanceWeight" mapstructure:"rayDistanceWeight"`
	OriginDistanceWeight float64 `json:"originDistanceWeight" mapstructure:"originDistanceWeight"`
	AngleWeight          float64 `json:"angleWeight" mapstructure:"angleWeight"`
	PrimaryMultiplier    float64 `json:"primaryMultiplier" mapstructure:"primaryMultiplier"`
	DowncastHeight       float64 `json:"downcastHeight" mapstructure:"downcastHeight"`
	SmoothingRate        float64 `json:"smoothingRate" mapstructure:"smoothingRate"`
	MinDirectionLengthSq float64 `json:"minDirectionLengthSq" mapstructure:"minDirectionLengthSq"`
	HorizontalEpsilon    float64 `json:"horizontalEpsilon" mapstructure:"horizontalEpsilon"`
}

// DefaultTuning returns the stock constants.
func DefaultTuning() Tuning {
	return Tuning{
		MaxRayDistance:       10,
		MinBuildDistance:     1,
		SnapThreshold:        0.5,
		RayDistanceWeight:    0.4,
		OriginDistanceWeight: 0.4,
		AngleWeight:          0.2,
		PrimaryMultiplier:    0.5,
		DowncastHeight:       100,
		SmoothingRate:        30,
		MinDirectionLengthSq: 0.01,
		HorizontalEpsilon:    0.001,
	}
}

// Settings are the global snap settings shared by every stage.
type Settings struct {
	GridSize float64 `json:"gridSize" mapstructure:"gridSize"`
	Mode     Mode    `json:"mode" mapstructure:"-"`
	Tuning   Tuning  `json:"tuning" mapstructure:"tuning"`
}

// DefaultSettings returns a 0.5 unit grid in Simple mode with DefaultTuning.
func DefaultSettings() Settings {
	return Settings{GridSize: 0.5, Mode: ModeSimple, Tuning: DefaultTuning()}
}

// ErrInvalidSettings is returned by Validate.
var ErrInvalidSettings = errors.New("invalid placement settings")

// Validate checks the values every stage divides by or ranges over.
func (s Settings) Validate() error {
	switch {
	case s.GridSize <= 0:
		return fmt.Errorf("%w: grid size %g must be positive", ErrInvalidSettings, s.GridSize)
	case s.Mode > ModeAdvanced:
		return fmt.Errorf("%w: %s", ErrInvalidSettings, s.Mode)
	case s.Tuning.MaxRayDistance <= 0:
		return fmt.Errorf("%w: max ray distance must be positive", ErrInvalidSettings)
	case s.Tuning.SnapThreshold <= 0:
		return fmt.Errorf("%w: snap threshold must be positive", ErrInvalidSettings)
	case s.Tuning.MinBuildDistance < 0:
		return fmt.Errorf("%w: min build distance must not be negative", ErrInvalidSettings)
	case s.Tuning.SmoothingRate < 0:
		return fmt.Errorf("%w: smoothing rate must not be negative", ErrInvalidSettings)
	}
	return nil
}
