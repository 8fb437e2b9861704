package backend

import "gonum.org/v1/gonum/mat"

// Status is returned by a Residual to steer the kernel.
type Status int

const (
	// Continue means the residual was evaluated normally.
	Continue Status = 0
	// Retry asks the kernel to retry with a smaller step. Honoring it is
	// backend-dependent; treat it as advisory.
	Retry Status = -1
	// Abort asks the kernel to stop integrating immediately.
	Abort Status = -2
)

// Residual evaluates G(t, y, y') into delta. All three slices have the
// problem size n; delta is owned by the caller and must be fully written.
type Residual func(t float64, y, yprime, delta []float64) Status

// Jacobian fills pd with dG_i/dy_j + cj*dG_i/dy'_j.
//
// In dense mode pd is n-by-n. In banded mode pd is (lband+uband+1)-by-n and
// the function must store entry (i, j) at row i-j+lband, column j; the
// backend does not repack.
type Jacobian func(t float64, y, yprime []float64, cj float64, pd *mat.Dense)

// Capabilities advertises which operations a backend supports beyond plain
// Run. The front-end consults these before dispatching.
type Capabilities struct {
	Step     bool // single internal step per call
	RunRelax bool // stop at or past the requested time
}

// Backend is one integrator implementation bound to a fixed problem size.
//
// Reset moves the backend from its unconfigured state to ready and rebuilds
// all internal control state from scratch; it must be called before any run
// and again whenever the problem size or Jacobian availability changes.
// Run, Step and RunRelax integrate from t0 toward t1 and return the new
// (y, yprime, t). They return an error only for misuse (operation before
// Reset, or an unsupported operation); numerical failure is reported
// through Successful instead, and the returned state is still meaningful.
type Backend interface {
	Reset(n int, hasJac bool) error
	Run(res Residual, jac Jacobian, y, yprime []float64, t0, t1 float64) ([]float64, []float64, float64, error)
	Step(res Residual, jac Jacobian, y, yprime []float64, t0, t1 float64) ([]float64, []float64, float64, error)
	RunRelax(res Residual, jac Jacobian, y, yprime []float64, t0, t1 float64) ([]float64, []float64, float64, error)
	Caps() Capabilities
	Successful() bool
}
