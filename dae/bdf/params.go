package bdf

import (
	"fmt"
	"strings"

	"github.com/san-kum/daekit/dae/backend"
)

// Descriptor registers this backend with a registry.
func Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name: "bdf",
		Caps: backend.Capabilities{Step: true, RunRelax: false},
		New:  NewFromParams,
	}
}

// NewFromParams builds a backend from a keyword-style parameter map, the
// form the front-end's SetIntegrator passes through. Unrecognized keys are
// a configuration error.
func NewFromParams(params map[string]any) (backend.Backend, error) {
	opts := DefaultOptions()
	for key, v := range params {
		var err error
		switch key {
		case "rtol":
			err = floatOrVec(v, &opts.RTol, &opts.RTolVec)
		case "atol":
			err = floatOrVec(v, &opts.ATol, &opts.ATolVec)
		case "lband":
			opts.LBand, err = intPtr(v)
		case "uband":
			opts.UBand, err = intPtr(v)
		case "tcrit":
			var f float64
			if f, err = floatVal(v); err == nil {
				opts.TCrit = &f
			}
		case "order":
			opts.MaxOrder, err = intVal(v)
		case "nsteps":
			opts.MaxSteps, err = intVal(v)
		case "max_step":
			opts.MaxStep, err = floatVal(v)
		case "first_step":
			opts.FirstStep, err = floatVal(v)
		case "enforce_nonnegativity":
			opts.EnforceNonneg, err = boolVal(v)
		case "constraint_init":
			opts.ConstraintInit, err = boolVal(v)
		case "constraint_type":
			opts.Constraints, err = constraintVal(v)
		case "compute_initcond":
			opts.InitCond, err = initCondVal(v)
		case "algebraic_var":
			opts.VarRoles, err = rolesVal(v)
		default:
			return nil, fmt.Errorf("bdf: unrecognized option %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("bdf: option %q: %w", key, err)
		}
	}
	return New(opts)
}

func floatVal(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("want a number, got %T", v)
	}
}

func intVal(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case float64:
		if x == float64(int(x)) {
			return int(x), nil
		}
	}
	return 0, fmt.Errorf("want an integer, got %T", v)
}

func intPtr(v any) (*int, error) {
	i, err := intVal(v)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func boolVal(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("want a bool, got %T", v)
}

func floatOrVec(v any, scalar *float64, vec *[]float64) error {
	switch x := v.(type) {
	case []float64:
		*vec = append([]float64(nil), x...)
		return nil
	default:
		f, err := floatVal(v)
		if err != nil {
			return err
		}
		*scalar = f
		return nil
	}
}

func constraintVal(v any) ([]Constraint, error) {
	switch x := v.(type) {
	case []int:
		out := make([]Constraint, len(x))
		for i, k := range x {
			out[i] = Constraint(k)
		}
		return out, nil
	default:
		i, err := intVal(v)
		if err != nil {
			return nil, fmt.Errorf("want an int or []int, got %T", v)
		}
		return []Constraint{Constraint(i)}, nil
	}
}

func initCondVal(v any) (InitCondMode, error) {
	s, ok := v.(string)
	if !ok {
		return InitNone, fmt.Errorf("want a string, got %T", v)
	}
	switch strings.ToLower(s) {
	case "":
		return InitNone, nil
	case "yprime0":
		return InitDeriveY, nil
	case "yode0":
		return InitDeriveAlgebraic, nil
	default:
		return InitNone, fmt.Errorf("unknown initial-condition mode %q", s)
	}
}

func rolesVal(v any) ([]VarRole, error) {
	x, ok := v.([]int)
	if !ok {
		return nil, fmt.Errorf("want []int with +1 differential, -1 algebraic, got %T", v)
	}
	out := make([]VarRole, len(x))
	for i, r := range x {
		out[i] = VarRole(r)
	}
	return out, nil
}
