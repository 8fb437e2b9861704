package dassl

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/daekit/dae/backend"
)

const (
	initMaxIter = 15
	initTol     = 0.01
)

// initialConditions brings (y, yp) to a consistent state at s.t per the
// configured mode, then verifies the constraint kinds when constraint
// checking is on. Mode 2 solves G(t, y, yp0) = 0 for y with yp held fixed;
// mode 1 solves for the algebraic components of y and the derivatives of
// the differential components, holding the differential y fixed.
func (s *solver) initialConditions(y, yp []float64) int {
	if bad := s.updateEwt(y); bad != 0 {
		return bad
	}

	switch s.cfg.initCond {
	case 2:
		if !s.initNewton(y, yp, func(j int) *float64 { return &y[j] }) {
			return InitCondFail
		}
	case 1:
		target := func(j int) *float64 {
			if s.cfg.roles[j] == -1 {
				return &y[j]
			}
			return &yp[j]
		}
		if !s.initNewton(y, yp, target) {
			return InitCondFail
		}
	}

	if s.cfg.nonneg == 1 || s.cfg.nonneg == 3 {
		for i, kind := range s.cfg.constraints {
			if !meetsConstraint(y[i], kind) {
				return InitCondFail
			}
		}
	}
	return 0
}

// initNewton solves G(t, y, yp) = 0 over the unknowns selected by target
// (one scalar per equation) with a finite-difference Jacobian.
func (s *solver) initNewton(y, yp []float64, target func(j int) *float64) bool {
	n := s.cfg.n
	jm := mat.NewDense(n, n, nil)
	dx := mat.NewVecDense(n, s.r1)
	rhs := mat.NewVecDense(n, s.r0)

	for it := 0; it < initMaxIter; it++ {
		if st := s.eval(s.t, y, yp, s.r0); st != backend.Continue {
			return false
		}
		if hasNaN(s.r0) {
			return false
		}

		for j := 0; j < n; j++ {
			p := target(j)
			save := *p
			del := math.Sqrt(uround) * math.Max(math.Abs(save), s.ewt[j])
			*p = save + del
			del = *p - save
			st := s.eval(s.t, y, yp, s.pred)
			*p = save
			if st != backend.Continue {
				return false
			}
			for i := 0; i < n; i++ {
				jm.Set(i, j, (s.pred[i]-s.r0[i])/del)
			}
		}

		var lu mat.LU
		lu.Factorize(jm)
		if err := lu.SolveVecTo(dx, false, rhs); err != nil {
			cond, ill := err.(mat.Condition)
			if !ill || math.IsInf(float64(cond), 0) {
				return false
			}
		}
		for j := 0; j < n; j++ {
			*target(j) -= s.r1[j]
		}
		if s.cfg.nonneg == 2 || s.cfg.nonneg == 3 {
			for i := range y {
				if y[i] < 0 {
					y[i] = 0
				}
			}
		}
		if s.wrms(s.r1) <= initTol {
			return true
		}
	}
	return false
}
