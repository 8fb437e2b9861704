package bdf

import "fmt"

// messages maps kernel istate codes to the diagnostics logged on failure.
// The taxonomy follows the DDASPK family of solvers.
var messages = map[int]string{
	1: "a step was taken in intermediate-output mode; the target time is not yet reached",
	2: "integration completed by stepping exactly to the stopping time",
	3: "integration completed; solution obtained by interpolation at the target time",
	4: "initial condition calculation completed; no integration steps taken",

	-1:  "a large amount of work has been expended (internal step budget exhausted)",
	-2:  "excess accuracy requested (tolerances too small for this machine)",
	-3:  "a pure relative error test is impossible: a zero ATOL component matched a zero solution component",
	-5:  "repeated failures in the evaluation or processing of the Jacobian",
	-6:  "repeated error test failures on the last attempted step",
	-7:  "the nonlinear system solver could not converge",
	-8:  "the matrix of partial derivatives appears to be singular",
	-9:  "the nonlinear solver failed to converge with repeated error test failures",
	-10: "the nonlinear solver failed because the residual kept requesting retries",
	-11: "the residual requested an abort; control returned to the caller",
	-12: "failed to compute the initial y and yprime",
	-33: "the code encountered trouble it cannot recover from (invalid input detected)",
}

func messageFor(istate int) string {
	if msg, ok := messages[istate]; ok {
		return msg
	}
	return fmt.Sprintf("unexpected istate=%d", istate)
}
