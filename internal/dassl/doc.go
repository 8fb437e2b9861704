// Package dassl implements the numerical kernel behind the BDF backend: a
// variable-step, variable-order (1-5) backward-differentiation integrator
// for implicit systems G(t, y, y') = 0, in the tradition of the DASSL and
// DDASPK solvers.
//
// The entry point [Solve] speaks the flat control-array protocol the
// backend emits: an info flag vector, tolerance vectors, and real/integer
// work arrays whose layout the backend computed. Every call is a fresh
// start; the kernel keeps no state between calls. Results are reported as
// an istate code, never as a Go error, because the caller's contract is a
// success/failure classification, not error propagation.
//
// Each step solves the corrector equation with a modified Newton iteration
// whose matrix is dG/dy + cj*dG/dy', factorized with a dense LU. The
// Jacobian comes from the user callback when provided, otherwise from
// finite differences (column-grouped in banded mode).
package dassl
