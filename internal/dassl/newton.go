package dassl

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/daekit/dae/backend"
)

const (
	newtonOK = iota
	newtonFail
	newtonSingular
	newtonRetryRes
	newtonAbortRes

	maxNewtonIter = 4
	newtonTol     = 0.33
)

// newton runs the modified Newton corrector at tNew. s.ycor enters holding
// the predictor and leaves holding the corrected solution; s.ypc leaves
// holding cj*ycor + dvec.
func (s *solver) newton(tNew, cj float64) int {
	for i := range s.ypc {
		s.ypc[i] = cj*s.ycor[i] + s.dvec[i]
	}

	if st := s.buildMatrix(tNew, cj, s.ycor, s.ypc); st != newtonOK {
		return st
	}
	s.lu.Factorize(s.jm)

	dx := mat.NewVecDense(s.cfg.n, s.r1)
	rhs := mat.NewVecDense(s.cfg.n, s.r0)
	prevNorm := math.Inf(1)

	for it := 0; it < maxNewtonIter; it++ {
		switch s.eval(tNew, s.ycor, s.ypc, s.r0) {
		case backend.Retry:
			return newtonRetryRes
		case backend.Abort:
			return newtonAbortRes
		}
		if hasNaN(s.r0) {
			return newtonFail
		}

		if err := s.lu.SolveVecTo(dx, false, rhs); err != nil {
			// gonum reports an exactly singular factor as Condition(+Inf).
			cond, ill := err.(mat.Condition)
			if !ill || math.IsInf(float64(cond), 0) {
				return newtonSingular
			}
		}
		for i := range s.ycor {
			s.ycor[i] -= s.r1[i]
			s.ypc[i] = cj*s.ycor[i] + s.dvec[i]
		}
		if s.cfg.nonneg == 2 || s.cfg.nonneg == 3 {
			for i := range s.ycor {
				if s.ycor[i] < 0 {
					s.ycor[i] = 0
					s.ypc[i] = s.dvec[i]
				}
			}
		}

		norm := s.wrms(s.r1)
		if norm <= newtonTol {
			return newtonOK
		}
		if it > 0 && norm > 0.9*prevNorm {
			return newtonFail
		}
		prevNorm = norm
	}
	return newtonFail
}

func (s *solver) eval(t float64, y, yp, delta []float64) backend.Status {
	s.nre++
	return s.res(t, y, yp, delta)
}

// buildMatrix assembles the iteration matrix dG/dy + cj*dG/dy' into s.jm,
// from the user callback when configured, otherwise by finite differences.
func (s *solver) buildMatrix(tNew, cj float64, y, yp []float64) int {
	s.nje++
	switch {
	case s.cfg.userJac && !s.cfg.banded:
		s.jm.Zero()
		s.jac(tNew, y, yp, cj, s.jm)
		return newtonOK
	case s.cfg.userJac:
		s.packed.Zero()
		s.jac(tNew, y, yp, cj, s.packed)
		s.expandPacked()
		return newtonOK
	case s.cfg.banded:
		return s.bandedDifferences(tNew, cj, y, yp)
	default:
		return s.denseDifferences(tNew, cj, y, yp)
	}
}

// expandPacked scatters the packed banded layout pd[i-j+ml, j] into the
// dense matrix handed to the LU.
func (s *solver) expandPacked() {
	n, ml, mu := s.cfg.n, s.cfg.ml, s.cfg.mu
	s.jm.Zero()
	for j := 0; j < n; j++ {
		lo, hi := j-ml, j+mu
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		for i := lo; i <= hi; i++ {
			s.jm.Set(i, j, s.packed.At(i-j+ml, j))
		}
	}
}

// fdDelta picks the perturbation size for column j.
func (s *solver) fdDelta(j int, y, yp []float64) float64 {
	d := math.Abs(y[j])
	if v := math.Abs(s.h * yp[j]); v > d {
		d = v
	}
	if s.ewt[j] > d {
		d = s.ewt[j]
	}
	return math.Sqrt(uround) * d
}

func (s *solver) denseDifferences(tNew, cj float64, y, yp []float64) int {
	n := s.cfg.n
	if st := s.eval(tNew, y, yp, s.r0); st != backend.Continue {
		return resStatusToNewton(st)
	}
	for j := 0; j < n; j++ {
		del := s.fdDelta(j, y, yp)
		ySave, ypSave := y[j], yp[j]
		y[j] += del
		yp[j] += cj * del
		del = y[j] - ySave // the increment actually applied
		st := s.eval(tNew, y, yp, s.r1)
		y[j], yp[j] = ySave, ypSave
		if st != backend.Continue {
			return resStatusToNewton(st)
		}
		for i := 0; i < n; i++ {
			s.jm.Set(i, j, (s.r1[i]-s.r0[i])/del)
		}
	}
	return newtonOK
}

// bandedDifferences perturbs whole column groups at once; columns a full
// bandwidth apart cannot share a nonzero row.
func (s *solver) bandedDifferences(tNew, cj float64, y, yp []float64) int {
	n, ml, mu := s.cfg.n, s.cfg.ml, s.cfg.mu
	mb := ml + mu + 1
	if st := s.eval(tNew, y, yp, s.r0); st != backend.Continue {
		return resStatusToNewton(st)
	}
	s.jm.Zero()
	for g := 0; g < mb; g++ {
		idx := 0
		for j := g; j < n; j += mb {
			s.saveY[idx] = y[j]
			s.saveYP[idx] = yp[j]
			del := s.fdDelta(j, y, yp)
			y[j] += del
			yp[j] += cj * del
			idx++
		}
		st := s.eval(tNew, y, yp, s.r1)
		idx = 0
		for j := g; j < n; j += mb {
			del := y[j] - s.saveY[idx]
			y[j] = s.saveY[idx]
			yp[j] = s.saveYP[idx]
			idx++
			lo, hi := j-ml, j+mu
			if lo < 0 {
				lo = 0
			}
			if hi > n-1 {
				hi = n - 1
			}
			for i := lo; i <= hi; i++ {
				s.jm.Set(i, j, (s.r1[i]-s.r0[i])/del)
			}
		}
		if st != backend.Continue {
			return resStatusToNewton(st)
		}
	}
	return newtonOK
}

func resStatusToNewton(st backend.Status) int {
	if st == backend.Abort {
		return newtonAbortRes
	}
	return newtonRetryRes
}

func hasNaN(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}
	return false
}
