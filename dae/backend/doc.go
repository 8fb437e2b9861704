// Package backend defines the contract between the DAE front-end and its
// integrator backends.
//
// A backend translates user-facing options into whatever control layout its
// numerical kernel needs, runs the kernel, and classifies the kernel's
// status into a success flag. Backends are registered in a [Registry] and
// looked up by name; the front-end never constructs one directly.
//
// The callable types [Residual] and [Jacobian] are the problem definition:
// a residual G(t, y, y') whose root is the DAE, and optionally the matrix
// dG/dy + cj*dG/dy'.
package backend
