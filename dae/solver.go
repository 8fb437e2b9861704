package dae

import (
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/daekit/dae/backend"
	"github.com/san-kum/daekit/dae/bdf"
)

// Convenience aliases so callers defining problems only need this package.
type (
	Residual = backend.Residual
	Jacobian = backend.Jacobian
	Status   = backend.Status
)

const (
	Continue = backend.Continue
	Retry    = backend.Retry
	Abort    = backend.Abort
)

var (
	// ErrNoInitialValue indicates Solve was called before SetInitialValue.
	ErrNoInitialValue = errors.New("dae: set initial values before solving")

	// ErrBadInitialValue indicates mismatched or empty initial vectors.
	ErrBadInitialValue = errors.New("dae: y and yprime must be non-empty and of equal length")
)

var (
	registryOnce sync.Once
	registry     *backend.Registry
)

// defaultRegistry builds the process-wide backend table exactly once;
// lookup results cannot depend on call order.
func defaultRegistry() *backend.Registry {
	registryOnce.Do(func() {
		registry = backend.NewRegistry()
		registry.Register(bdf.Descriptor())
	})
	return registry
}

// Integrators lists the registered backend names.
func Integrators() []string { return defaultRegistry().Names() }

// Solver owns the problem callables and the current (t, y, yprime) state,
// and delegates all numerical work to the selected backend. The zero
// backend state is explicit: until SetIntegrator or SetInitialValue runs,
// no backend is selected and Successful reports false.
type Solver struct {
	res Residual
	jac Jacobian

	t      float64
	y      []float64
	yprime []float64

	be backend.Backend // nil until selected
}

// New creates a solver for the system defined by res (and optionally jac;
// pass nil to let the backend difference the Jacobian itself).
func New(res Residual, jac Jacobian) *Solver {
	if res == nil {
		panic("dae: residual function is required")
	}
	return &Solver{res: res, jac: jac}
}

// SetIntegrator selects a backend by name (case-insensitive, prefix match;
// empty name selects the first registered backend) and builds a fresh
// instance from params. On any error the previously selected backend is
// left untouched; on success the old backend and its state are discarded
// entirely.
func (s *Solver) SetIntegrator(name string, params map[string]any) error {
	desc, err := defaultRegistry().Find(name)
	if err != nil {
		return err
	}
	be, err := desc.New(params)
	if err != nil {
		return fmt.Errorf("dae: configuring %q: %w", desc.Name, err)
	}
	s.be = be
	return nil
}

// SetInitialValue sets y(t) = y, y'(t) = yprime. It selects the default
// backend if none is selected yet, and always resets the backend: this is
// the single point where the backend's control arrays are rebuilt, so it
// must be called after any change of problem size or Jacobian presence.
func (s *Solver) SetInitialValue(y, yprime []float64, t float64) error {
	if len(y) == 0 || len(y) != len(yprime) {
		return ErrBadInitialValue
	}
	if s.be == nil {
		if err := s.SetIntegrator("", nil); err != nil {
			return err
		}
	}
	s.y = append([]float64(nil), y...)
	s.yprime = append([]float64(nil), yprime...)
	s.t = t
	return s.be.Reset(len(s.y), s.jac != nil)
}

// Solve advances the solution toward t. With step set (and supported by
// the backend) a single internal step is taken; with relax set (and
// supported) the backend stops at or past t. Preference is step, then
// relax, then a plain run; unsupported requests fall back to the plain
// run.
//
// The solver's state is overwritten with whatever the backend returns,
// success or not; check Successful before trusting it. The returned
// slices are the solver's own state; treat them as read-only.
func (s *Solver) Solve(t float64, step, relax bool) ([]float64, []float64, error) {
	if s.y == nil {
		return nil, nil, ErrNoInitialValue
	}
	op := s.be.Run
	caps := s.be.Caps()
	switch {
	case step && caps.Step:
		op = s.be.Step
	case relax && caps.RunRelax:
		op = s.be.RunRelax
	}
	y1, yp1, t1, err := op(s.res, s.jac, s.y, s.yprime, s.t, t)
	if err != nil {
		return s.y, s.yprime, err
	}
	s.y, s.yprime, s.t = y1, yp1, t1
	return s.y, s.yprime, nil
}

// T returns the time the solution currently sits at; after a successful
// Solve this is the requested time, after a failure it is wherever the
// backend stopped.
func (s *Solver) T() float64 { return s.t }

// Successful reports whether the last operation ended in the expected
// stopping condition. It never panics: called before a backend was ever
// selected it selects the default one and reports false until a reset has
// occurred.
func (s *Solver) Successful() bool {
	if s.be == nil {
		if err := s.SetIntegrator("", nil); err != nil {
			return false
		}
	}
	return s.be.Successful()
}
