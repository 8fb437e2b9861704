package bdf

import (
	"errors"
	"fmt"
)

// Constraint restricts one solution component during initial-condition
// checking. The values match the kernel's encoding.
type Constraint int

const (
	Unconstrained Constraint = 0
	NonNegative   Constraint = 1  // y[i] >= 0
	Positive      Constraint = 2  // y[i] > 0
	NonPositive   Constraint = -1 // y[i] <= 0
	Negative      Constraint = -2 // y[i] < 0
)

// VarRole tags a component as differential or algebraic for the
// initial-condition computation that solves the algebraic variables.
type VarRole int

const (
	Differential VarRole = 1
	Algebraic    VarRole = -1
)

// InitCondMode selects how (y, y') are made consistent before integrating.
type InitCondMode int

const (
	// InitNone trusts the caller's initial values.
	InitNone InitCondMode = 0
	// InitDeriveAlgebraic holds the differential components of y fixed and
	// solves for the algebraic components and the differential derivatives.
	// Requires VarRoles.
	InitDeriveAlgebraic InitCondMode = 1
	// InitDeriveY holds y' fixed and solves for y.
	InitDeriveY InitCondMode = 2
)

var (
	ErrToleranceShape  = errors.New("bdf: atol and rtol must be both scalar or both vectors of equal length")
	ErrToleranceLength = errors.New("bdf: tolerance vector length does not match problem size")
	ErrBandShape       = errors.New("bdf: lband and uband must be both set (>= 0) or both unset")
	ErrOrderRange      = errors.New("bdf: max order must be in [1, 5]")
	ErrConstraintsMiss = errors.New("bdf: constraint checking requires constraint kinds (one, or one per component)")
	ErrRolesMiss       = errors.New("bdf: deriving algebraic variables requires a differential/algebraic role per component")
)

// Options configures one backend instance. The bundle is consumed by Reset
// and must not change afterwards; reconfiguring means building a new
// backend.
type Options struct {
	// Scalar tolerances, used unless the vector forms are set.
	RTol float64
	ATol float64
	// Per-component tolerances; set both or neither, equal lengths.
	RTolVec []float64
	ATolVec []float64

	// Banded Jacobian half-bandwidths; set both or neither. With a user
	// Jacobian the callback must return the packed banded layout itself.
	LBand *int
	UBand *int

	// TCrit, when set, is a time the integrator must not step past.
	TCrit *float64

	MaxOrder  int     // BDF order cap, 1..5
	MaxSteps  int     // internal steps allowed per call
	MaxStep   float64 // step size ceiling; 0 means none
	FirstStep float64 // initial step override; 0 lets the kernel choose

	// EnforceNonneg keeps y nonnegative during integration.
	// ConstraintInit checks Constraints during the initial phase.
	EnforceNonneg  bool
	ConstraintInit bool
	// Constraints holds one kind per component, or a single kind applied
	// to all. Required when ConstraintInit is set.
	Constraints []Constraint

	InitCond InitCondMode
	// VarRoles is required by InitDeriveAlgebraic.
	VarRoles []VarRole
}

// DefaultOptions mirrors the kernel's defaults.
func DefaultOptions() Options {
	return Options{
		RTol:     1e-6,
		ATol:     1e-12,
		MaxOrder: 5,
		MaxSteps: 500,
	}
}

// validate enforces everything checkable without knowing the problem size.
// Length checks against n happen at Reset.
func (o *Options) validate() (nonneg int, err error) {
	if (o.RTolVec == nil) != (o.ATolVec == nil) {
		return 0, ErrToleranceShape
	}
	if o.RTolVec != nil && len(o.RTolVec) != len(o.ATolVec) {
		return 0, ErrToleranceShape
	}
	if (o.LBand == nil) != (o.UBand == nil) {
		return 0, ErrBandShape
	}
	if o.LBand != nil && (*o.LBand < 0 || *o.UBand < 0) {
		return 0, ErrBandShape
	}
	if o.MaxOrder < 1 || o.MaxOrder > 5 {
		return 0, ErrOrderRange
	}
	if o.MaxSteps <= 0 {
		return 0, fmt.Errorf("bdf: max steps must be positive, got %d", o.MaxSteps)
	}
	if o.MaxStep < 0 || o.FirstStep < 0 {
		return 0, fmt.Errorf("bdf: step size bounds must be nonnegative")
	}

	switch {
	case o.EnforceNonneg && o.ConstraintInit:
		nonneg = 3
	case o.EnforceNonneg:
		nonneg = 2
	case o.ConstraintInit:
		nonneg = 1
	}
	if (nonneg == 1 || nonneg == 3) && len(o.Constraints) == 0 {
		return 0, ErrConstraintsMiss
	}
	for _, c := range o.Constraints {
		if c < Negative || c > Positive {
			return 0, fmt.Errorf("bdf: unknown constraint kind %d", c)
		}
	}

	switch o.InitCond {
	case InitNone, InitDeriveY:
	case InitDeriveAlgebraic:
		if len(o.VarRoles) == 0 {
			return 0, ErrRolesMiss
		}
	default:
		return 0, fmt.Errorf("bdf: unknown initial-condition mode %d", o.InitCond)
	}
	for _, r := range o.VarRoles {
		if r != Differential && r != Algebraic {
			return 0, fmt.Errorf("bdf: variable role must be differential or algebraic, got %d", r)
		}
	}
	return nonneg, nil
}
