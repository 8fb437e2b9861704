package dassl

import "github.com/san-kum/daekit/dae/backend"

// Runner is the call signature the BDF backend dispatches to. Implementors
// receive the problem callables, the state to start from, the target time,
// and the control arrays; they return the new state, the time actually
// reached, and an istate classification code.
type Runner func(res backend.Residual, jac backend.Jacobian,
	y, yprime []float64, t, tout float64,
	info []int, rtol, atol []float64,
	rwork []float64, iwork []int) ([]float64, []float64, float64, int)

// istate codes, matching the DDASPK taxonomy the backend's message table
// documents.
const (
	StepTaken    = 1 // one internal step taken, target not yet reached
	ReachedTStop = 2 // integrated exactly to the stopping time
	ReachedTOut  = 3 // target reached, solution interpolated at tout

	TooMuchWork    = -1  // internal step budget exhausted
	TolTooSmall    = -2  // requested accuracy not achievable
	BadErrWeight   = -3  // zero ATOL component against a zero solution component
	ErrTestFail    = -6  // repeated error test failures
	CorrectorFail  = -7  // corrector iteration could not converge
	SingularMatrix = -8  // iteration matrix singular
	RepeatedRetry  = -10 // residual kept reporting Retry
	ResAbort       = -11 // residual reported Abort
	InitCondFail   = -12 // initial condition computation failed
	InvalidInput   = -33 // inconsistent control input
)

// info vector slots (20 entries).
const (
	infoTolVec     = 1  // tolerances are per-component
	infoOneStep    = 2  // return after one internal step
	infoTStop      = 3  // rwork[rwTStop] holds a time not to step past
	infoUserJac    = 4  // user supplied a Jacobian callback
	infoBanded     = 5  // Jacobian is banded; iwork[iwML]/iwork[iwMU] hold widths
	infoMaxStep    = 6  // rwork[rwMaxStep] caps the step size
	infoFirstStep  = 7  // rwork[rwFirstStep] overrides the initial step
	infoMaxOrder   = 8  // iwork[iwMaxOrder] caps the BDF order below 5
	infoConstraint = 9  // nonnegativity/constraint mode, 0..3
	infoInitCond   = 10 // initial condition computation mode, 0..2
)

// Fixed rwork/iwork slots ahead of the scratch area.
const (
	rwTStop     = 0
	rwMaxStep   = 1
	rwFirstStep = 2
	rwScratch   = 50 // first scratch index; sized by the backend

	iwML        = 0
	iwMU        = 1
	iwMaxOrder  = 2
	iwMaxSteps  = 5
	iwWarnCap   = 6
	iwSteps     = 10 // statistics written back: steps taken
	iwResEvals  = 11 // residual evaluations
	iwJacEvals  = 12 // iteration matrix builds
	iwVarBlocks = 40 // constraint kinds, then variable roles, each n wide
)

const (
	maxOrderLimit = 5
	uround        = 2.220446049250313e-16
)

// WorkSizes returns the required rwork/iwork lengths for a given
// configuration. The backend computes the same closed forms when sizing the
// arrays; the kernel re-derives them to validate its input.
func WorkSizes(n, maxOrder int, banded, userJac bool, ml, mu int, constraint, initCond bool) (lrw, liw int) {
	span := maxOrder + 4
	if span < 7 {
		span = 7
	}
	lrw = rwScratch + span*n
	switch {
	case !banded:
		lrw += n * n
	case !userJac:
		lrw += (2*ml+mu+1)*n + 2*(n/(ml+mu+1)+1)
	default:
		lrw += (2*ml + mu + 1) * n
	}
	liw = iwVarBlocks + n
	if constraint {
		liw += n
	}
	if initCond {
		liw += n
	}
	return lrw, liw
}
