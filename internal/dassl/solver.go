package dassl

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/daekit/dae/backend"
)

// solver carries the state of one Solve call.
type solver struct {
	cfg *config
	res backend.Residual
	jac backend.Jacobian

	dir float64 // +1 forward, -1 backward
	t   float64
	h   float64
	k   int // current BDF order

	// Solution history, newest first. histY[0] is the current solution at
	// histT[0]; yp is its derivative.
	histT []float64
	histY [][]float64
	yp    []float64

	// Scratch vectors wired into the caller-sized rwork area.
	ewt  []float64
	pred []float64
	dvec []float64
	ycor []float64
	ypc  []float64
	r0   []float64
	r1   []float64

	// Iteration matrix storage. jm is the dense matrix handed to the LU;
	// packed is the user-facing banded layout when info requests it.
	jm      *mat.Dense
	packed  *mat.Dense
	saveY   []float64 // banded finite differences: saved components
	saveYP  []float64
	lu      mat.LU
	factOK  bool
	hmin    float64
	nst     int
	nre     int
	nje     int
	stopHit bool // last step landed exactly on tstop
}

func newSolver(cfg *config, res backend.Residual, jac backend.Jacobian, t, tout float64) *solver {
	n := cfg.n
	s := &solver{cfg: cfg, res: res, jac: jac, t: t, k: 1, dir: 1}
	if tout < t {
		s.dir = -1
	}
	s.hmin = 4 * uround * math.Max(math.Abs(t), math.Abs(tout))

	off := rwScratch
	grab := func() []float64 {
		v := cfg.rwork[off : off+n]
		off += n
		return v
	}
	s.ewt, s.pred, s.dvec, s.ycor, s.ypc, s.r0, s.r1 =
		grab(), grab(), grab(), grab(), grab(), grab(), grab()

	span := cfg.maxord + 4
	if span < 7 {
		span = 7
	}
	jacOff := rwScratch + span*n
	switch {
	case !cfg.banded:
		s.jm = mat.NewDense(n, n, cfg.rwork[jacOff:jacOff+n*n])
	case cfg.userJac:
		rows := cfg.ml + cfg.mu + 1
		s.packed = mat.NewDense(rows, n, cfg.rwork[jacOff:jacOff+rows*n])
		s.jm = mat.NewDense(n, n, nil)
	default:
		mb := cfg.ml + cfg.mu + 1
		used := (2*cfg.ml + cfg.mu + 1) * n
		per := n/mb + 1
		s.saveY = cfg.rwork[jacOff+used : jacOff+used+per]
		s.saveYP = cfg.rwork[jacOff+used+per : jacOff+used+2*per]
		s.jm = mat.NewDense(n, n, nil)
	}
	return s
}

// updateEwt recomputes the error weights from the given solution. A
// non-positive weight means a pure relative test against a zero component.
func (s *solver) updateEwt(y []float64) int {
	for i := range y {
		s.ewt[i] = s.cfg.rtol[i]*math.Abs(y[i]) + s.cfg.atol[i]
		if s.ewt[i] <= 0 {
			return BadErrWeight
		}
	}
	return 0
}

// wrms is the weighted root-mean-square norm used for both the Newton
// convergence test and the local error test.
func (s *solver) wrms(v []float64) float64 {
	sum := 0.0
	for i, vi := range v {
		w := vi / s.ewt[i]
		sum += w * w
	}
	return math.Sqrt(sum / float64(len(v)))
}

// initialStep picks the first step size. The default comes from the
// solution's own scale, never from the distance to tout: one-step callers
// restart here on every call, and a distance-based default would shrink
// toward zero as tout nears.
func (s *solver) initialStep(tout float64) float64 {
	h := s.cfg.h0
	if h == 0 {
		h = 1e-3
		ynorm := s.wrms(s.histY[0])
		if ypnorm := s.wrms(s.yp); ypnorm*h > 0.5*(ynorm+1) {
			h = 0.5 * (ynorm + 1) / ypnorm
		}
	}
	h = math.Abs(h)
	if s.cfg.hmax > 0 && h > s.cfg.hmax {
		h = s.cfg.hmax
	}
	if h < s.hmin {
		h = s.hmin
	}
	return s.dir * h
}

// pushHistory prepends an accepted solution, reusing the evicted tail
// allocation once the window is full.
func (s *solver) pushHistory(t float64, y []float64) {
	var buf []float64
	limit := s.cfg.maxord + 2
	if len(s.histY) >= limit {
		buf = s.histY[len(s.histY)-1]
		s.histY = s.histY[:len(s.histY)-1]
		s.histT = s.histT[:len(s.histT)-1]
	} else {
		buf = make([]float64, len(y))
	}
	copy(buf, y)
	s.histY = append([][]float64{buf}, s.histY...)
	s.histT = append([]float64{t}, s.histT...)
}

// interpolate evaluates the solution polynomial and its derivative at tx.
func (s *solver) interpolate(tx float64) ([]float64, []float64) {
	m := s.k + 1
	if m > len(s.histT) {
		m = len(s.histT)
	}
	nodes := s.histT[:m]
	yo := make([]float64, s.cfg.n)
	ypo := make([]float64, s.cfg.n)
	combine(yo, evalWeights(tx, nodes), s.histY[:m])
	combine(ypo, derivWeights(tx, nodes), s.histY[:m])
	return yo, ypo
}

// step takes one accepted BDF step, retrying internally with smaller step
// sizes and lower orders as needed. It returns 0 on success or a negative
// istate on an unrecoverable failure.
func (s *solver) step(tout float64) int {
	var errFails, convFails, retries, singular int
	for {
		h := s.h
		if s.cfg.hmax > 0 && math.Abs(h) > s.cfg.hmax {
			h = s.dir * s.cfg.hmax
		}
		clipped := false
		if s.cfg.hasTStop && s.dir*(s.t+h-s.cfg.tstop) >= 0 {
			h = s.cfg.tstop - s.t
			clipped = true
		}
		tNew := s.t + h
		if clipped {
			tNew = s.cfg.tstop
		}

		k := s.k
		if k > len(s.histT) {
			k = len(s.histT)
		}

		// Predictor: extrapolate through the newest history points. On the
		// very first step the only polynomial available is the tangent.
		m := k + 1
		if m > len(s.histT) {
			m = len(s.histT)
		}
		if m == 1 {
			for i := range s.pred {
				s.pred[i] = s.histY[0][i] + h*s.yp[i]
			}
		} else {
			combine(s.pred, evalWeights(tNew, s.histT[:m]), s.histY[:m])
		}

		// Corrector: y'(tNew) = cj*y(tNew) + dvec, the derivative of the
		// polynomial through the new point and k history points.
		nodes := make([]float64, k+1)
		nodes[0] = tNew
		copy(nodes[1:], s.histT[:k])
		dw := derivWeights(tNew, nodes)
		cj := dw[0]
		combine(s.dvec, dw[1:], s.histY[:k])

		copy(s.ycor, s.pred)
		st := s.newton(tNew, cj)

		switch st {
		case newtonOK:
			for i := range s.r0 {
				s.r0[i] = s.ycor[i] - s.pred[i]
			}
			errNorm := s.wrms(s.r0) / float64(k+1)
			if errNorm <= 1 {
				errLow, errHigh := s.orderErrors(tNew, k)
				s.pushHistory(tNew, s.ycor)
				s.t = tNew
				s.stopHit = clipped
				copy(s.yp, s.ypc)
				if bad := s.updateEwt(s.ycor); bad != 0 {
					return bad
				}
				s.adjust(errNorm, errLow, errHigh, k, h)
				return 0
			}
			errFails++
			if errFails >= 10 {
				return ErrTestFail
			}
			scale := 0.9 * math.Pow(errNorm, -1.0/float64(k+1))
			if scale > 0.5 {
				scale = 0.5
			}
			if scale < 0.1 {
				scale = 0.1
			}
			s.h = h * scale
			if s.k > 1 {
				s.k--
			}
			if math.Abs(s.h) < s.hmin {
				return TolTooSmall
			}
		case newtonFail:
			convFails++
			if convFails >= 10 {
				return CorrectorFail
			}
			s.h = h * 0.25
			if s.k > 1 {
				s.k--
			}
			if math.Abs(s.h) < s.hmin {
				return CorrectorFail
			}
		case newtonSingular:
			singular++
			if singular >= 3 {
				return SingularMatrix
			}
			s.h = h * 0.25
			if math.Abs(s.h) < s.hmin {
				return SingularMatrix
			}
		case newtonRetryRes:
			retries++
			if retries >= 10 {
				return RepeatedRetry
			}
			s.h = h * 0.25
			if math.Abs(s.h) < s.hmin {
				return RepeatedRetry
			}
		case newtonAbortRes:
			return ResAbort
		}
	}
}

// orderErrors estimates the local error the accepted step would have shown
// at the neighboring orders, from the interpolants through one fewer and
// one more history point. The differences scale as h^k and h^(k+2), so
// comparing them against the order-k estimate ranks the orders directly.
// An estimate that is not computable yet comes back as +Inf.
func (s *solver) orderErrors(tNew float64, k int) (errLow, errHigh float64) {
	errLow, errHigh = math.Inf(1), math.Inf(1)
	if k > 1 {
		combine(s.r1, evalWeights(tNew, s.histT[:k]), s.histY[:k])
		for i := range s.r1 {
			s.r1[i] = s.ycor[i] - s.r1[i]
		}
		errLow = s.wrms(s.r1) / float64(k)
	}
	if k < s.cfg.maxord && len(s.histT) >= k+2 {
		combine(s.r1, evalWeights(tNew, s.histT[:k+2]), s.histY[:k+2])
		for i := range s.r1 {
			s.r1[i] = s.ycor[i] - s.r1[i]
		}
		errHigh = s.wrms(s.r1) / float64(k+2)
	}
	return errLow, errHigh
}

// adjust picks the next order by comparing the error estimates at k-1, k
// and k+1, then the next step size from the estimate at the chosen order.
func (s *solver) adjust(errNorm, errLow, errHigh float64, k int, h float64) {
	kNew, est := k, errNorm
	switch {
	case errLow < errNorm && errLow <= errHigh:
		kNew, est = k-1, errLow
	case errHigh < errNorm:
		kNew, est = k+1, errHigh
	}
	if est < 1e-10 {
		est = 1e-10
	}
	scale := 0.9 * math.Pow(est, -1.0/float64(kNew+1))
	if scale > 2 {
		scale = 2
	}
	if scale < 0.25 {
		scale = 0.25
	}
	s.k = kNew
	s.h = h * scale
	if s.cfg.hmax > 0 && math.Abs(s.h) > s.cfg.hmax {
		s.h = s.dir * s.cfg.hmax
	}
}
