// Package sigma implements the observation-error model: a fixed 4-term
// polynomial in the observed concentration, scaled (proportional class) or
// offset (additive class) by gamma, mapping each observation to its
// standard deviation for the likelihood evaluator.
package sigma

import "fmt"

// Class selects how gamma combines with the base polynomial value.
type Class int

const (
	// Additive sigma is gamma + base.
	Additive Class = iota
	// Proportional sigma is gamma * base.
	Proportional
)

func (c Class) String() string {
	switch c {
	case Additive:
		return "additive"
	case Proportional:
		return "proportional"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ParseClass parses the configuration string for an error class.
func ParseClass(s string) (Class, error) {
	switch s {
	case "additive":
		return Additive, nil
	case "proportional":
		return Proportional, nil
	default:
		return 0, fmt.Errorf("sigma: unknown error class %q", s)
	}
}

// Polynomial is the fixed-coefficient base error polynomial:
// base(y) = C0 + C1*y + C2*y^2 + C3*y^3.
type Polynomial struct {
	C0, C1, C2, C3 float64
}

// Base evaluates the polynomial at y.
func (p Polynomial) Base(y float64) float64 {
	return p.C0 + y*(p.C1+y*(p.C2+y*p.C3))
}

// Model is the complete observation-error model for one cycle: a
// polynomial, an error class, and the current gamma scale.
type Model struct {
	Poly  Polynomial
	Class Class
	Gamma float64
}

// ErrNonPositiveSigma is returned when a computed standard deviation is not
// strictly positive: a fatal condition indicating a misspecified error
// polynomial for the observed values.
type ErrNonPositiveSigma struct {
	Index int
	Y     float64
	Sigma float64
}

func (e *ErrNonPositiveSigma) Error() string {
	return fmt.Sprintf("sigma: non-positive sigma %.6g at observation %d (y=%.6g)", e.Sigma, e.Index, e.Y)
}

// Sigma computes the per-observation standard deviation for each value in
// yObs. It returns *ErrNonPositiveSigma if any resulting sigma is not
// strictly positive.
func (m Model) Sigma(yObs []float64) ([]float64, error) {
	out := make([]float64, len(yObs))
	for i, y := range yObs {
		base := m.Poly.Base(y)

		var s float64
		switch m.Class {
		case Proportional:
			s = m.Gamma * base
		default:
			s = m.Gamma + base
		}

		if s <= 0 {
			return nil, &ErrNonPositiveSigma{Index: i, Y: y, Sigma: s}
		}
		out[i] = s
	}
	return out, nil
}

// WithGamma returns a copy of the model with Gamma replaced by g. Used by
// the driver's gamma line search to build the up/down trial models without
// disturbing the model carried across cycles.
func (m Model) WithGamma(g float64) Model {
	m.Gamma = g
	return m
}
