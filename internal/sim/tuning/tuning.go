package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// GridSize is the snap cell edge length in world units.
	GridSize float64 `yaml:"grid_size"`

	Envelope Envelope `yaml:"build_envelope"`

	// TouchTolerance is the slack allowed when deciding two blocks are flush.
	TouchTolerance float64 `yaml:"touch_tolerance"`
	// ConnectTolerance caps the attachment point distance for auto-connect.
	// Zero means one grid cell.
	ConnectTolerance float64 `yaml:"connect_tolerance"`

	MaxBlocks int `yaml:"max_blocks"`

	Constraint  ConstraintTuning  `yaml:"constraint"`
	Placeholder PlaceholderTuning `yaml:"placeholder_body"`
}

// Envelope holds the half-extents of the build area, centered on the origin.
type Envelope struct {
	HalfWidth  float64 `yaml:"half_width"`
	HalfHeight float64 `yaml:"half_height"`
}

type ConstraintTuning struct {
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
	Length    float64 `yaml:"length"`
}

type PlaceholderTuning struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Mass   float64 `yaml:"mass"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		GridSize:        32,
		Envelope:        Envelope{HalfWidth: 480, HalfHeight: 320},
		TouchTolerance:  2,
		Constraint:      ConstraintTuning{Stiffness: 0.9, Damping: 0.1, Length: 0},
		Placeholder:     PlaceholderTuning{Width: 1, Height: 1, Mass: 1},
	}
}

// EffectiveConnectTolerance resolves the zero default to one grid cell.
func (t Tuning) EffectiveConnectTolerance() float64 {
	if t.ConnectTolerance > 0 {
		return t.ConnectTolerance
	}
	return t.GridSize
}

func (t Tuning) Validate() error {
	if t.GridSize <= 0 {
		return fmt.Errorf("tuning: grid_size must be > 0")
	}
	if t.Envelope.HalfWidth <= 0 || t.Envelope.HalfHeight <= 0 {
		return fmt.Errorf("tuning: build_envelope half extents must be > 0")
	}
	if t.TouchTolerance < 0 || t.ConnectTolerance < 0 {
		return fmt.Errorf("tuning: tolerances must be >= 0")
	}
	if t.MaxBlocks < 0 {
		return fmt.Errorf("tuning: max_blocks must be >= 0")
	}
	if t.Placeholder.Mass <= 0 || t.Placeholder.Width <= 0 || t.Placeholder.Height <= 0 {
		return fmt.Errorf("tuning: placeholder_body must have positive size and mass")
	}
	return nil
}

// Load reads a tuning file on top of Defaults, so omitted keys keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}
