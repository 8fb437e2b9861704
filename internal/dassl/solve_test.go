package dassl

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/daekit/dae/backend"
)

// controls builds a consistent control-array set for tests.
func controls(n int, banded, userJac bool, ml, mu int, constraint, initCond bool) ([]int, []float64, []int) {
	info := make([]int, 20)
	if banded {
		info[infoBanded] = 1
	}
	if userJac {
		info[infoUserJac] = 1
	}
	lrw, liw := WorkSizes(n, maxOrderLimit, banded, userJac, ml, mu, constraint, initCond)
	rwork := make([]float64, lrw)
	iwork := make([]int, liw)
	if banded {
		iwork[iwML], iwork[iwMU] = ml, mu
	}
	iwork[iwMaxSteps] = 500
	iwork[iwWarnCap] = 2
	return info, rwork, iwork
}

func decayRes(t float64, y, yp, delta []float64) backend.Status {
	delta[0] = yp[0] + y[0]
	return backend.Continue
}

func TestSolveScalarDecay(t *testing.T) {
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	y, yp, tr, ist := Solve(decayRes, nil,
		[]float64{1}, []float64{-1}, 0, 1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)

	if ist != ReachedTOut {
		t.Fatalf("istate = %d, want %d", ist, ReachedTOut)
	}
	if tr != 1 {
		t.Errorf("t = %g, want 1", tr)
	}
	want := math.Exp(-1)
	if math.Abs(y[0]-want) > 1e-3 {
		t.Errorf("y(1) = %g, want %g", y[0], want)
	}
	if math.Abs(yp[0]+want) > 1e-2 {
		t.Errorf("y'(1) = %g, want %g", yp[0], -want)
	}
	if iwork[iwSteps] == 0 || iwork[iwResEvals] == 0 {
		t.Errorf("statistics not written: nst=%d nre=%d", iwork[iwSteps], iwork[iwResEvals])
	}
}

// TestSolveScalarDecayStepCount guards the step and order controller:
// covering a unit interval must take far fewer steps than the budget. A
// controller stuck at order 1 with a non-growing step burns hundreds.
func TestSolveScalarDecayStepCount(t *testing.T) {
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	_, _, _, ist := Solve(decayRes, nil,
		[]float64{1}, []float64{-1}, 0, 1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)
	if ist != ReachedTOut {
		t.Fatalf("istate = %d, want %d", ist, ReachedTOut)
	}
	if nst := iwork[iwSteps]; nst > 100 {
		t.Errorf("took %d steps over a unit interval; the step size is not growing", nst)
	}
}

// TestSolveStepModeReachesTOut restarts the kernel in one-step mode from
// each returned state, the way the backend's step operation drives it.
// Progress per call must not shrink with the remaining distance.
func TestSolveStepModeReachesTOut(t *testing.T) {
	y, yp := []float64{1}, []float64{-1}
	tcur := 0.0
	const tout = 0.5
	for calls := 0; ; calls++ {
		if calls > 2000 {
			t.Fatalf("one-step restarts are not converging on tout; stuck near t=%g", tcur)
		}
		info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
		info[infoOneStep] = 1
		var ist int
		y, yp, tcur, ist = Solve(decayRes, nil, y, yp, tcur, tout,
			info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)
		if ist == ReachedTOut {
			break
		}
		if ist != StepTaken {
			t.Fatalf("istate = %d at t=%g", ist, tcur)
		}
	}
	if tcur != tout {
		t.Errorf("t = %g, want %g", tcur, tout)
	}
	if math.Abs(y[0]-math.Exp(-tout)) > 1e-3 {
		t.Errorf("y = %g, want %g", y[0], math.Exp(-tout))
	}
}

func TestSolveBackward(t *testing.T) {
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	y, _, tr, ist := Solve(decayRes, nil,
		[]float64{1}, []float64{-1}, 0, -1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)

	if ist != ReachedTOut {
		t.Fatalf("istate = %d, want %d", ist, ReachedTOut)
	}
	if tr != -1 {
		t.Errorf("t = %g, want -1", tr)
	}
	want := math.E
	if math.Abs(y[0]-want) > 5e-3*want {
		t.Errorf("y(-1) = %g, want %g", y[0], want)
	}
}

func TestSolveUserJacobian(t *testing.T) {
	jac := func(tt float64, y, yp []float64, cj float64, pd *mat.Dense) {
		pd.Set(0, 0, 1+cj)
	}
	info, rwork, iwork := controls(1, false, true, 0, 0, false, false)
	y, _, _, ist := Solve(decayRes, jac,
		[]float64{1}, []float64{-1}, 0, 1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)

	if ist != ReachedTOut {
		t.Fatalf("istate = %d, want %d", ist, ReachedTOut)
	}
	if math.Abs(y[0]-math.Exp(-1)) > 1e-3 {
		t.Errorf("y(1) = %g, want %g", y[0], math.Exp(-1))
	}
	if iwork[iwJacEvals] == 0 {
		t.Error("the user Jacobian was never used")
	}
}

func TestSolveOneStep(t *testing.T) {
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	info[infoOneStep] = 1
	_, _, tr, ist := Solve(decayRes, nil,
		[]float64{1}, []float64{-1}, 0, 1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)

	if ist != StepTaken {
		t.Fatalf("istate = %d, want %d", ist, StepTaken)
	}
	if tr <= 0 || tr >= 1 {
		t.Errorf("a single step must land strictly inside (0, 1), got %g", tr)
	}
	if iwork[iwSteps] != 1 {
		t.Errorf("nst = %d, want 1", iwork[iwSteps])
	}
}

func TestSolveTStop(t *testing.T) {
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	info[infoTStop] = 1
	rwork[rwTStop] = 0.5
	y, _, tr, ist := Solve(decayRes, nil,
		[]float64{1}, []float64{-1}, 0, 1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)

	if ist != ReachedTStop {
		t.Fatalf("istate = %d, want %d", ist, ReachedTStop)
	}
	if tr != 0.5 {
		t.Errorf("integration must land exactly on the stopping time, got %g", tr)
	}
	if math.Abs(y[0]-math.Exp(-0.5)) > 1e-3 {
		t.Errorf("y(0.5) = %g, want %g", y[0], math.Exp(-0.5))
	}
}

func TestSolveTStopBeyondTOut(t *testing.T) {
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	info[infoTStop] = 1
	rwork[rwTStop] = 2.0
	_, _, tr, ist := Solve(decayRes, nil,
		[]float64{1}, []float64{-1}, 0, 1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)

	if ist != ReachedTOut {
		t.Fatalf("istate = %d, want %d", ist, ReachedTOut)
	}
	if tr != 1 {
		t.Errorf("t = %g, want 1", tr)
	}
}

// tridiag is a weakly coupled chain with a tridiagonal Jacobian.
func tridiagRes(t float64, y, yp, delta []float64) backend.Status {
	n := len(y)
	for i := 0; i < n; i++ {
		delta[i] = yp[i] + 2*y[i]
		if i > 0 {
			delta[i] -= 0.5 * y[i-1]
		}
		if i < n-1 {
			delta[i] -= 0.5 * y[i+1]
		}
	}
	return backend.Continue
}

// consistentTridiagDeriv returns the y' that zeroes tridiagRes at y.
func consistentTridiagDeriv(y []float64) []float64 {
	n := len(y)
	yp := make([]float64, n)
	for i := 0; i < n; i++ {
		d := 2 * y[i]
		if i > 0 {
			d -= 0.5 * y[i-1]
		}
		if i < n-1 {
			d -= 0.5 * y[i+1]
		}
		yp[i] = -d
	}
	return yp
}

func TestSolveBandedAgreesWithDense(t *testing.T) {
	y0 := []float64{1, 0.5, -0.25, 0.75}
	yp0 := consistentTridiagDeriv(y0)

	rtol := []float64{1e-6}
	atol := []float64{1e-9}

	info, rwork, iwork := controls(4, false, false, 0, 0, false, false)
	yd, _, _, ist := Solve(tridiagRes, nil, y0, yp0, 0, 0.5,
		info, rtol, atol, rwork, iwork)
	if ist != ReachedTOut {
		t.Fatalf("dense run istate = %d", ist)
	}

	info, rwork, iwork = controls(4, true, false, 1, 1, false, false)
	yb, _, _, ist := Solve(tridiagRes, nil, y0, yp0, 0, 0.5,
		info, rtol, atol, rwork, iwork)
	if ist != ReachedTOut {
		t.Fatalf("banded run istate = %d", ist)
	}

	for i := range yd {
		if math.Abs(yd[i]-yb[i]) > 1e-4 {
			t.Errorf("component %d: dense %g vs banded %g", i, yd[i], yb[i])
		}
	}
}

func TestSolveBandedUserJacobian(t *testing.T) {
	// Packed layout: entry (i, j) of the band sits at row i-j+ml.
	jac := func(tt float64, y, yp []float64, cj float64, pd *mat.Dense) {
		n := len(y)
		for j := 0; j < n; j++ {
			pd.Set(1, j, 2+cj) // diagonal
			if j > 0 {
				pd.Set(2, j-1, -0.5) // subdiagonal entry (j, j-1)
			}
			if j < n-1 {
				pd.Set(0, j+1, -0.5) // superdiagonal entry (j, j+1)
			}
		}
	}
	y0 := []float64{1, 0.5, -0.25, 0.75}
	yp0 := consistentTridiagDeriv(y0)

	info, rwork, iwork := controls(4, true, true, 1, 1, false, false)
	yb, _, _, ist := Solve(tridiagRes, jac, y0, yp0, 0, 0.5,
		info, []float64{1e-6}, []float64{1e-9}, rwork, iwork)
	if ist != ReachedTOut {
		t.Fatalf("istate = %d", ist)
	}

	info, rwork, iwork = controls(4, false, false, 0, 0, false, false)
	yd, _, _, ist := Solve(tridiagRes, nil, y0, yp0, 0, 0.5,
		info, []float64{1e-6}, []float64{1e-9}, rwork, iwork)
	if ist != ReachedTOut {
		t.Fatalf("reference istate = %d", ist)
	}
	for i := range yd {
		if math.Abs(yd[i]-yb[i]) > 1e-4 {
			t.Errorf("component %d: %g vs %g", i, yd[i], yb[i])
		}
	}
}

func TestSolveTooMuchWork(t *testing.T) {
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	iwork[iwMaxSteps] = 1
	_, _, tr, ist := Solve(decayRes, nil,
		[]float64{1}, []float64{-1}, 0, 1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)

	if ist != TooMuchWork {
		t.Fatalf("istate = %d, want %d", ist, TooMuchWork)
	}
	if tr <= 0 || tr >= 1 {
		t.Errorf("partial progress expected, got t = %g", tr)
	}
}

func TestSolveSingularMatrix(t *testing.T) {
	// The second equation constrains nothing, so the iteration matrix has
	// a zero column.
	res := func(tt float64, y, yp, delta []float64) backend.Status {
		delta[0] = yp[0] + y[0]
		delta[1] = 0
		return backend.Continue
	}
	info, rwork, iwork := controls(2, false, false, 0, 0, false, false)
	_, _, _, ist := Solve(res, nil,
		[]float64{1, 0}, []float64{-1, 0}, 0, 1,
		info, []float64{1e-6}, []float64{1e-8}, rwork, iwork)
	if ist != SingularMatrix {
		t.Errorf("istate = %d, want %d", ist, SingularMatrix)
	}
}

func TestSolveResidualAbort(t *testing.T) {
	res := func(tt float64, y, yp, delta []float64) backend.Status {
		return backend.Abort
	}
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	_, _, _, ist := Solve(res, nil,
		[]float64{1}, []float64{-1}, 0, 1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)
	if ist != ResAbort {
		t.Errorf("istate = %d, want %d", ist, ResAbort)
	}
}

func TestSolveResidualRetryForever(t *testing.T) {
	res := func(tt float64, y, yp, delta []float64) backend.Status {
		return backend.Retry
	}
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	_, _, _, ist := Solve(res, nil,
		[]float64{1}, []float64{-1}, 0, 1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)
	if ist != RepeatedRetry {
		t.Errorf("istate = %d, want %d", ist, RepeatedRetry)
	}
}

func TestSolveBadErrorWeight(t *testing.T) {
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	_, _, _, ist := Solve(decayRes, nil,
		[]float64{0}, []float64{0}, 0, 1,
		info, []float64{1e-6}, []float64{0}, rwork, iwork)
	if ist != BadErrWeight {
		t.Errorf("zero atol against a zero component: istate = %d, want %d", ist, BadErrWeight)
	}
}

func TestSolveInvalidInput(t *testing.T) {
	base := func() ([]int, []float64, []int) {
		return controls(1, false, false, 0, 0, false, false)
	}
	tests := []struct {
		name string
		run  func() int
	}{
		{"tout equals t", func() int {
			info, rwork, iwork := base()
			_, _, _, ist := Solve(decayRes, nil, []float64{1}, []float64{-1}, 0, 0,
				info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)
			return ist
		}},
		{"undersized rwork", func() int {
			info, _, iwork := base()
			_, _, _, ist := Solve(decayRes, nil, []float64{1}, []float64{-1}, 0, 1,
				info, []float64{1e-6}, []float64{1e-10}, make([]float64, 10), iwork)
			return ist
		}},
		{"negative tolerance", func() int {
			info, rwork, iwork := base()
			_, _, _, ist := Solve(decayRes, nil, []float64{1}, []float64{-1}, 0, 1,
				info, []float64{-1e-6}, []float64{1e-10}, rwork, iwork)
			return ist
		}},
		{"user jac flag without callback", func() int {
			info, rwork, iwork := base()
			info[infoUserJac] = 1
			_, _, _, ist := Solve(decayRes, nil, []float64{1}, []float64{-1}, 0, 1,
				info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)
			return ist
		}},
		{"tstop behind the start", func() int {
			info, rwork, iwork := base()
			info[infoTStop] = 1
			rwork[rwTStop] = -0.5
			_, _, _, ist := Solve(decayRes, nil, []float64{1}, []float64{-1}, 0, 1,
				info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)
			return ist
		}},
		{"bandwidth wider than the system", func() int {
			info, rwork, iwork := controls(2, true, false, 1, 1, false, false)
			iwork[iwML] = 2
			_, _, _, ist := Solve(tridiagRes, nil, []float64{1, 1}, []float64{0, 0}, 0, 1,
				info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)
			return ist
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ist := tt.run(); ist != InvalidInput {
				t.Errorf("istate = %d, want %d", ist, InvalidInput)
			}
		})
	}
}

func TestSolveInitDeriveY(t *testing.T) {
	res := func(tt float64, y, yp, delta []float64) backend.Status {
		delta[0] = y[0] - 2
		return backend.Continue
	}
	info, rwork, iwork := controls(1, false, false, 0, 0, false, true)
	info[infoInitCond] = 2
	y, _, _, ist := Solve(res, nil,
		[]float64{0}, []float64{0}, 0, 1,
		info, []float64{1e-6}, []float64{1e-8}, rwork, iwork)

	if ist != ReachedTOut {
		t.Fatalf("istate = %d, want %d", ist, ReachedTOut)
	}
	if math.Abs(y[0]-2) > 1e-6 {
		t.Errorf("y = %g, want 2", y[0])
	}
}

func TestSolveInitDeriveAlgebraic(t *testing.T) {
	res := func(tt float64, y, yp, delta []float64) backend.Status {
		delta[0] = yp[0] + y[0]
		delta[1] = y[1] - y[0]
		return backend.Continue
	}
	info, rwork, iwork := controls(2, false, false, 0, 0, false, true)
	info[infoInitCond] = 1
	iwork[iwVarBlocks] = 1    // differential
	iwork[iwVarBlocks+1] = -1 // algebraic

	// y[1] starts inconsistent and yp[0] starts wrong; both must be fixed
	// before the first step.
	y, _, tr, ist := Solve(res, nil,
		[]float64{1, 0.3}, []float64{0, 0}, 0, 0.5,
		info, []float64{1e-6}, []float64{1e-9}, rwork, iwork)

	if ist != ReachedTOut {
		t.Fatalf("istate = %d, want %d", ist, ReachedTOut)
	}
	if tr != 0.5 {
		t.Errorf("t = %g", tr)
	}
	if math.Abs(y[1]-y[0]) > 1e-4 {
		t.Errorf("algebraic relation violated: y = %v", y)
	}
	if math.Abs(y[0]-math.Exp(-0.5)) > 1e-3 {
		t.Errorf("y[0] = %g, want %g", y[0], math.Exp(-0.5))
	}
}

func TestSolveConstraintViolationAtInit(t *testing.T) {
	info, rwork, iwork := controls(1, false, false, 0, 0, true, false)
	info[infoConstraint] = 1
	iwork[iwVarBlocks] = 2 // strictly positive
	_, _, _, ist := Solve(decayRes, nil,
		[]float64{0}, []float64{0}, 0, 1,
		info, []float64{1e-6}, []float64{1e-8}, rwork, iwork)
	if ist != InitCondFail {
		t.Errorf("istate = %d, want %d", ist, InitCondFail)
	}
}

func TestSolveDoesNotMutateInput(t *testing.T) {
	y0 := []float64{1}
	yp0 := []float64{-1}
	info, rwork, iwork := controls(1, false, false, 0, 0, false, false)
	Solve(decayRes, nil, y0, yp0, 0, 1,
		info, []float64{1e-6}, []float64{1e-10}, rwork, iwork)
	if y0[0] != 1 || yp0[0] != -1 {
		t.Errorf("caller state mutated: y0=%v yp0=%v", y0, yp0)
	}
}
