package engine

import "github.com/matzehuels/intervis/pkg/errors"

// Params are the fixed analysis parameters applied to every observer of a batch.
type Params struct {
	HorizontalStart float64 `json:"horizontal_start" toml:"horizontal_start"`
	HorizontalEnd   float64 `json:"horizontal_end" toml:"horizontal_end"`
	VerticalLower   float64 `json:"vertical_lower" toml:"vertical_lower"`
	VerticalUpper   float64 `json:"vertical_upper" toml:"vertical_upper"`
	OuterRadius     float64 `json:"outer_radius" toml:"outer_radius"`       // meters
	ObserverOffset  float64 `json:"observer_offset" toml:"observer_offset"` // meters above z
	Refraction      float64 `json:"refraction" toml:"refraction"`
}

// DefaultParams returns the full-sweep parameters used for every run.
func DefaultParams() Params {
	return Params{
		HorizontalStart: 0,
		HorizontalEnd:   360,
		VerticalLower:   -90,
		VerticalUpper:   90,
		OuterRadius:     300000,
		ObserverOffset:  2,
		Refraction:      0.13,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.HorizontalStart < 0 || p.HorizontalEnd > 360 || p.HorizontalStart >= p.HorizontalEnd:
		return errors.New(errors.ErrCodeInvalidConfig,
			"horizontal sweep %v..%v must lie within 0..360", p.HorizontalStart, p.HorizontalEnd)
	case p.VerticalLower < -90 || p.VerticalUpper > 90 || p.VerticalLower >= p.VerticalUpper:
		return errors.New(errors.ErrCodeInvalidConfig,
			"vertical sweep %v..%v must lie within -90..90", p.VerticalLower, p.VerticalUpper)
	case p.OuterRadius <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "outer radius must be positive")
	case p.ObserverOffset < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "observer offset must not be negative")
	case p.Refraction < 0 || p.Refraction >= 1:
		return errors.New(errors.ErrCodeInvalidConfig, "refraction %v must lie within [0,1)", p.Refraction)
	}
	return nil
}
