// Package dae is a generic front-end for solving implicit
// differential-algebraic systems G(t, y, y') = 0 with prescribed initial
// conditions, covering in particular systems A*y' = f(t, y) with a
// possibly singular A.
//
// Usage follows a fixed protocol:
//
//	s := dae.New(res, jac) // jac may be nil
//	if err := s.SetIntegrator("bdf", nil); err != nil { ... }
//	if err := s.SetInitialValue(y0, yprime0, 0); err != nil { ... }
//	y, yprime, err := s.Solve(t1, false, false)
//	if !s.Successful() { ... }
//
// Numerical failures never surface as errors: Solve always returns the
// last state the backend produced, and Successful reports whether it can
// be trusted. Errors are reserved for misuse, such as unknown backend
// names, invalid options, or solving before setting initial values.
//
// A Solver and its backend are single-threaded; the residual and Jacobian
// are invoked synchronously and must not re-enter the Solver.
package dae
