package bdf

import (
	"fmt"
	"log"

	"github.com/san-kum/daekit/dae/backend"
	"github.com/san-kum/daekit/internal/dassl"
)

// Acceptable istate codes per operation. A full run should end at tout (by
// interpolation) or exactly at tcrit; a single step normally ends at an
// internal point, or at tcrit.
var (
	runAccept  = []int{dassl.ReachedTStop, dassl.ReachedTOut}
	stepAccept = []int{dassl.StepTaken, dassl.ReachedTStop}
)

// Backend is the BDF integrator backend. Build one with New (or through
// the registry via NewFromParams), call Reset to bind it to a problem
// size, then Run or Step. Instances are not safe for concurrent use.
type Backend struct {
	opts   Options
	nonneg int

	n          int
	configured bool
	success    bool

	info  []int
	rtol  []float64
	atol  []float64
	rwork []float64
	iwork []int

	run    dassl.Runner
	logger *log.Logger
}

// New validates opts and returns an unconfigured backend; Reset must be
// called before integrating (the front-end does this in SetInitialValue).
func New(opts Options) (*Backend, error) {
	nonneg, err := opts.validate()
	if err != nil {
		return nil, err
	}
	return &Backend{
		opts:   opts,
		nonneg: nonneg,
		run:    dassl.Solve,
		logger: log.Default(),
	}, nil
}

// SetLogger redirects the diagnostic messages emitted on failed or
// unexpected runs.
func (b *Backend) SetLogger(l *log.Logger) { b.logger = l }

func (b *Backend) Caps() backend.Capabilities {
	return backend.Capabilities{Step: true, RunRelax: false}
}

func (b *Backend) Successful() bool { return b.success }

// Reset rebuilds the control arrays from scratch for a problem of size n.
// It is idempotent: identical inputs produce identical arrays. Nothing is
// patched incrementally; any stale layout from a previous configuration is
// discarded wholesale.
func (b *Backend) Reset(n int, hasJac bool) error {
	if n <= 0 {
		return fmt.Errorf("bdf: problem size must be positive, got %d", n)
	}
	o := &b.opts

	info := make([]int, 20)
	var rtol, atol []float64
	if o.RTolVec != nil {
		if len(o.RTolVec) != n {
			return fmt.Errorf("%w: have %d, need %d", ErrToleranceLength, len(o.RTolVec), n)
		}
		info[1] = 1
		rtol = append([]float64(nil), o.RTolVec...)
		atol = append([]float64(nil), o.ATolVec...)
	} else {
		rtol = []float64{o.RTol}
		atol = []float64{o.ATol}
	}

	if hasJac {
		info[4] = 1
	}
	banded := o.LBand != nil
	var ml, mu int
	if banded {
		ml, mu = *o.LBand, *o.UBand
		info[5] = 1
	}

	// Real work length: fixed header, history/scratch proportional to the
	// order, plus exactly one Jacobian-storage term. Undersizing any branch
	// would let the kernel write out of bounds, so the three branches are
	// kept in the exact closed forms the kernel assumes.
	span := o.MaxOrder + 4
	if span < 7 {
		span = 7
	}
	lrw := 50 + span*n
	switch {
	case !banded:
		lrw += n * n
	case !hasJac:
		lrw += (2*ml+mu+1)*n + 2*(n/(ml+mu+1)+1)
	default:
		lrw += (2*ml + mu + 1) * n
	}
	rwork := make([]float64, lrw)

	// Integer work length: fixed header plus n bookkeeping, plus one n-wide
	// block per active feature, laid out in a fixed order with cumulative
	// offsets.
	constraintOn := b.nonneg == 1 || b.nonneg == 3
	initOn := o.InitCond != InitNone
	liw := 40 + n
	if constraintOn {
		liw += n
	}
	if initOn {
		liw += n
	}
	iwork := make([]int, liw)

	if o.TCrit != nil {
		info[3] = 1
		rwork[0] = *o.TCrit
	}
	if o.MaxStep > 0 {
		info[6] = 1
		rwork[1] = o.MaxStep
	}
	if o.FirstStep > 0 {
		info[7] = 1
		rwork[2] = o.FirstStep
	}

	if banded {
		iwork[0], iwork[1] = ml, mu
	}
	if o.MaxOrder < 5 {
		info[8] = 1
		iwork[2] = o.MaxOrder
	}
	iwork[5] = o.MaxSteps
	iwork[6] = 2 // step-warning cap, kernel convention

	info[9] = b.nonneg
	lid := 40
	if constraintOn {
		if len(o.Constraints) != 1 && len(o.Constraints) != n {
			return fmt.Errorf("%w: have %d kinds, need 1 or %d", ErrConstraintsMiss, len(o.Constraints), n)
		}
		for i := 0; i < n; i++ {
			kind := o.Constraints[0]
			if len(o.Constraints) == n {
				kind = o.Constraints[i]
			}
			iwork[lid+i] = int(kind)
		}
		lid += n
	}

	info[10] = int(o.InitCond)
	if initOn && len(o.VarRoles) > 0 {
		if len(o.VarRoles) != n {
			return fmt.Errorf("%w: have %d roles, need %d", ErrRolesMiss, len(o.VarRoles), n)
		}
		for i, r := range o.VarRoles {
			iwork[lid+i] = int(r)
		}
	}

	b.n = n
	b.info = info
	b.rtol, b.atol = rtol, atol
	b.rwork, b.iwork = rwork, iwork
	b.configured = true
	b.success = true
	return nil
}

func (b *Backend) Run(res backend.Residual, jac backend.Jacobian, y, yprime []float64, t0, t1 float64) ([]float64, []float64, float64, error) {
	return b.exec(runAccept, res, jac, y, yprime, t0, t1)
}

// Step takes a single internal step toward t1. The one-step flag is a
// transient override: it is set for the duration of the call and restored
// whatever the outcome.
func (b *Backend) Step(res backend.Residual, jac backend.Jacobian, y, yprime []float64, t0, t1 float64) ([]float64, []float64, float64, error) {
	if !b.configured {
		return nil, nil, t0, backend.ErrNotConfigured
	}
	b.info[2] = 1
	defer func() { b.info[2] = 0 }()
	return b.exec(stepAccept, res, jac, y, yprime, t0, t1)
}

func (b *Backend) RunRelax(backend.Residual, backend.Jacobian, []float64, []float64, float64, float64) ([]float64, []float64, float64, error) {
	return nil, nil, 0, fmt.Errorf("%w: bdf has no relax mode", backend.ErrUnsupported)
}

// exec invokes the kernel and classifies its istate against the accepted
// set. Negative codes and unexpected nonnegative codes both mark the run
// unsuccessful; the returned state is the kernel's either way.
func (b *Backend) exec(accept []int, res backend.Residual, jac backend.Jacobian, y, yprime []float64, t0, t1 float64) ([]float64, []float64, float64, error) {
	if !b.configured {
		return nil, nil, t0, backend.ErrNotConfigured
	}
	y1, yp1, tr, istate := b.run(res, jac, y, yprime, t0, t1, b.info, b.rtol, b.atol, b.rwork, b.iwork)
	switch {
	case istate < 0:
		b.logger.Printf("bdf: %s", messageFor(istate))
		b.success = false
	case !acceptable(accept, istate):
		b.logger.Printf("bdf: run stopped early, istate=%d: %s", istate, messageFor(istate))
		b.success = false
	default:
		b.success = true
	}
	return y1, yp1, tr, nil
}

func acceptable(accept []int, istate int) bool {
	for _, a := range accept {
		if a == istate {
			return true
		}
	}
	return false
}
