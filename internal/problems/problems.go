// Package problems carries the sample DAE systems the CLI and the
// integration tests run. Each problem is self-contained: residual,
// optional Jacobian, consistent initial values, and sensible tolerances.
package problems

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/daekit/dae/backend"
)

// Problem is one ready-to-solve DAE system.
type Problem struct {
	Name string
	Desc string
	N    int

	Res backend.Residual
	Jac backend.Jacobian // nil when finite differences suffice

	T0  float64
	Y0  []float64
	YP0 []float64

	RTol, ATol  float64
	Checkpoints []float64

	// Exact returns the analytic solution at t, when one is known.
	Exact func(t float64) []float64

	// Params passed through to the backend, e.g. variable roles for
	// systems with algebraic components.
	Params map[string]any
}

var catalog = map[string]func() *Problem{
	"oscillator": Oscillator,
	"robertson":  Robertson,
	"pendulum":   Pendulum,
}

// Get resolves a problem by name.
func Get(name string) (*Problem, error) {
	fn, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("problems: unknown problem: %s", name)
	}
	return fn(), nil
}

// Names lists the catalog in stable order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Oscillator is the free vibration m*u'' + k*u = 0 written first-order as
// G(t, z, z') = [m*z'0 + k*z1, z'1 - z0] with z = [u', u]. The analytic
// solution is u(t) = u0*cos(w t) + u'0*sin(w t)/w, w = sqrt(k/m).
func Oscillator() *Problem {
	const (
		m    = 1.0
		k    = 4.0
		u0   = 1.0
		du0  = 0.1
		freq = 2.0 // sqrt(k/m)
	)
	return &Problem{
		Name: "oscillator",
		Desc: "free vibration of a simple oscillator, solved as a DAE",
		N:    2,
		Res: func(t float64, z, zp, delta []float64) backend.Status {
			delta[0] = m*zp[0] + k*z[1]
			delta[1] = zp[1] - z[0]
			return backend.Continue
		},
		Jac: func(t float64, z, zp []float64, cj float64, pd *mat.Dense) {
			pd.Set(0, 0, cj*m)
			pd.Set(0, 1, k)
			pd.Set(1, 0, -1)
			pd.Set(1, 1, cj)
		},
		T0:          0,
		Y0:          []float64{du0, u0},
		YP0:         []float64{-k * u0, du0},
		RTol:        1e-5,
		ATol:        1e-6,
		Checkpoints: []float64{2.09, 3.0},
		Exact: func(t float64) []float64 {
			u := u0*math.Cos(freq*t) + du0*math.Sin(freq*t)/freq
			du := -u0*freq*math.Sin(freq*t) + du0*math.Cos(freq*t)
			return []float64{du, u}
		},
	}
}

// Robertson is the classic stiff chemical kinetics problem in its DAE
// form, with the mass balance kept as an algebraic equation.
func Robertson() *Problem {
	return &Problem{
		Name: "robertson",
		Desc: "stiff Robertson kinetics with an algebraic mass balance",
		N:    3,
		Res: func(t float64, y, yp, delta []float64) backend.Status {
			delta[0] = yp[0] + 0.04*y[0] - 1e4*y[1]*y[2]
			delta[1] = yp[1] - 0.04*y[0] + 1e4*y[1]*y[2] + 3e7*y[1]*y[1]
			delta[2] = y[0] + y[1] + y[2] - 1
			return backend.Continue
		},
		T0:          0,
		Y0:          []float64{1, 0, 0},
		YP0:         []float64{-0.04, 0.04, 0},
		RTol:        1e-6,
		ATol:        1e-10,
		Checkpoints: []float64{0.4, 4.0},
		Params: map[string]any{
			"algebraic_var": []int{1, 1, -1},
		},
	}
}

// Pendulum is a rigid pendulum in angle coordinates, z = [omega, theta],
// written implicitly.
func Pendulum() *Problem {
	const (
		g = 9.81
		l = 1.0
	)
	return &Problem{
		Name: "pendulum",
		Desc: "rigid pendulum in angle coordinates, implicit form",
		N:    2,
		Res: func(t float64, z, zp, delta []float64) backend.Status {
			delta[0] = zp[0] + g/l*math.Sin(z[1])
			delta[1] = zp[1] - z[0]
			return backend.Continue
		},
		T0:          0,
		Y0:          []float64{0, 0.5},
		YP0:         []float64{-g / l * math.Sin(0.5), 0},
		RTol:        1e-6,
		ATol:        1e-8,
		Checkpoints: []float64{1.0, 2.0, 5.0},
	}
}
