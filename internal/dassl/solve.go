package dassl

import "github.com/san-kum/daekit/dae/backend"

// Solve integrates G(t, y, y') = 0 from t toward tout under the control
// arrays described in protocol.go, and is the package's [Runner]. It
// returns the reached state and an istate code; it never panics on bad
// control input (istate -33 instead) and never reports numerical failure
// as anything but a negative istate.
func Solve(res backend.Residual, jac backend.Jacobian,
	y0, yprime0 []float64, t, tout float64,
	info []int, rtol, atol []float64,
	rwork []float64, iwork []int) ([]float64, []float64, float64, int) {

	y := clone(y0)
	yp := clone(yprime0)

	cfg, bad := parseConfig(y, yp, t, tout, info, rtol, atol, rwork, iwork, jac != nil)
	if bad != 0 {
		return y, yp, t, bad
	}

	s := newSolver(cfg, res, jac, t, tout)
	finish := func(yr, ypr []float64, tr float64, istate int) ([]float64, []float64, float64, int) {
		if len(iwork) > iwJacEvals {
			iwork[iwSteps] = s.nst
			iwork[iwResEvals] = s.nre
			iwork[iwJacEvals] = s.nje
		}
		return yr, ypr, tr, istate
	}

	if ist := s.initialConditions(y, yp); ist != 0 {
		return finish(y, yp, t, ist)
	}

	s.histT = []float64{t}
	s.histY = [][]float64{clone(y)}
	s.yp = clone(yp)
	if bad := s.updateEwt(y); bad != 0 {
		return finish(y, yp, t, bad)
	}
	s.h = s.initialStep(tout)

	for {
		if s.nst >= cfg.maxSteps {
			return finish(clone(s.histY[0]), clone(s.yp), s.t, TooMuchWork)
		}
		if ist := s.step(tout); ist != 0 {
			return finish(clone(s.histY[0]), clone(s.yp), s.t, ist)
		}
		s.nst++

		// Landing exactly on the hard stopping time dominates every other
		// stopping condition.
		if s.stopHit && s.dir*(cfg.tstop-tout) <= 0 {
			return finish(clone(s.histY[0]), clone(s.yp), s.t, ReachedTStop)
		}
		if s.dir*(s.t-tout) >= 0 {
			yo, ypo := s.interpolate(tout)
			return finish(yo, ypo, tout, ReachedTOut)
		}
		if cfg.oneStep {
			return finish(clone(s.histY[0]), clone(s.yp), s.t, StepTaken)
		}
	}
}

func clone(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}
