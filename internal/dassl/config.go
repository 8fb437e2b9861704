package dassl

import "math"

// config is the parsed, validated form of one Solve call's control arrays.
type config struct {
	n    int
	rtol []float64 // length n
	atol []float64 // length n

	oneStep  bool
	hasTStop bool
	tstop    float64
	userJac  bool
	banded   bool
	ml, mu   int
	hmax     float64 // 0 = unlimited
	h0       float64 // 0 = pick automatically
	maxord   int
	nonneg   int // 0..3
	initCond int // 0..2
	maxSteps int

	constraints []int // per-component kinds, nonneg mode 1 or 3
	roles       []int // +1 differential, -1 algebraic, init-cond modes

	rwork []float64
	iwork []int
}

func parseConfig(y, yprime []float64, t, tout float64, info []int,
	rtol, atol, rwork []float64, iwork []int, haveJacFn bool) (*config, int) {

	n := len(y)
	if n == 0 || len(yprime) != n || len(info) < 20 || len(iwork) < iwVarBlocks+n {
		return nil, InvalidInput
	}
	if tout == t {
		return nil, InvalidInput
	}

	c := &config{n: n, rwork: rwork, iwork: iwork}

	// Tolerances: scalar (length >= 1) or per-component (length n).
	if info[infoTolVec] != 0 {
		if len(rtol) != n || len(atol) != n {
			return nil, InvalidInput
		}
		c.rtol, c.atol = rtol[:n], atol[:n]
	} else {
		if len(rtol) < 1 || len(atol) < 1 {
			return nil, InvalidInput
		}
		c.rtol = make([]float64, n)
		c.atol = make([]float64, n)
		for i := 0; i < n; i++ {
			c.rtol[i] = rtol[0]
			c.atol[i] = atol[0]
		}
	}
	for i := 0; i < n; i++ {
		if c.rtol[i] < 0 || c.atol[i] < 0 {
			return nil, InvalidInput
		}
	}

	c.oneStep = info[infoOneStep] != 0
	c.userJac = info[infoUserJac] != 0
	if c.userJac && !haveJacFn {
		return nil, InvalidInput
	}

	dir := 1.0
	if tout < t {
		dir = -1.0
	}
	if info[infoTStop] != 0 {
		c.hasTStop = true
		c.tstop = rwork[rwTStop]
		if dir*(c.tstop-t) < 0 {
			return nil, InvalidInput
		}
	}

	if info[infoBanded] != 0 {
		c.banded = true
		c.ml, c.mu = iwork[iwML], iwork[iwMU]
		if c.ml < 0 || c.mu < 0 || c.ml >= n || c.mu >= n {
			return nil, InvalidInput
		}
	}

	if info[infoMaxStep] != 0 {
		c.hmax = rwork[rwMaxStep]
		if c.hmax <= 0 {
			return nil, InvalidInput
		}
	}
	if info[infoFirstStep] != 0 {
		c.h0 = rwork[rwFirstStep]
		if c.h0 == 0 || math.IsNaN(c.h0) {
			return nil, InvalidInput
		}
	}

	c.maxord = maxOrderLimit
	if info[infoMaxOrder] != 0 {
		c.maxord = iwork[iwMaxOrder]
		if c.maxord < 1 || c.maxord > maxOrderLimit {
			return nil, InvalidInput
		}
	}

	c.maxSteps = iwork[iwMaxSteps]
	if c.maxSteps <= 0 {
		c.maxSteps = 500
	}

	c.nonneg = info[infoConstraint]
	if c.nonneg < 0 || c.nonneg > 3 {
		return nil, InvalidInput
	}
	c.initCond = info[infoInitCond]
	if c.initCond < 0 || c.initCond > 2 {
		return nil, InvalidInput
	}

	// Optional iwork blocks sit after the fixed region, constraint kinds
	// first, then variable roles; their presence follows the flags.
	next := iwVarBlocks
	if c.nonneg == 1 || c.nonneg == 3 {
		if len(iwork) < next+n {
			return nil, InvalidInput
		}
		c.constraints = iwork[next : next+n]
		for _, k := range c.constraints {
			if k < -2 || k > 2 {
				return nil, InvalidInput
			}
		}
		next += n
	}
	if c.initCond != 0 {
		if len(iwork) < next+n {
			return nil, InvalidInput
		}
		c.roles = iwork[next : next+n]
		if c.initCond == 1 {
			for _, r := range c.roles {
				if r != 1 && r != -1 {
					return nil, InvalidInput
				}
			}
		}
	}

	lrw, liw := WorkSizes(n, c.maxord, c.banded, c.userJac, c.ml, c.mu,
		c.nonneg == 1 || c.nonneg == 3, c.initCond != 0)
	if len(rwork) < lrw || len(iwork) < liw {
		return nil, InvalidInput
	}
	return c, 0
}

// meetsConstraint reports whether v satisfies one constraint kind.
func meetsConstraint(v float64, kind int) bool {
	switch kind {
	case 1:
		return v >= 0
	case 2:
		return v > 0
	case -1:
		return v <= 0
	case -2:
		return v < 0
	default:
		return true
	}
}
