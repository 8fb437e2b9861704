// Package bdf provides the backward-differentiation-formula backend for
// the DAE front-end.
//
// The backend owns no numerics. It validates user options once at
// construction, compiles them into the kernel's flat control arrays on
// every Reset, dispatches Run/Step calls to the kernel, and classifies the
// kernel's istate code into the success flag the front-end exposes.
// Numerical failure is never an error; misconfiguration always is, at the
// call that introduced it.
package bdf
