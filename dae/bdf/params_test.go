package bdf

import (
	"strings"
	"testing"
)

func TestNewFromParams(t *testing.T) {
	be, err := NewFromParams(map[string]any{
		"rtol":       1e-4,
		"atol":       1e-8,
		"order":      3,
		"nsteps":     2000,
		"max_step":   0.1,
		"first_step": 1e-5,
		"tcrit":      10.0,
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	b := be.(*Backend)
	if b.opts.RTol != 1e-4 || b.opts.ATol != 1e-8 {
		t.Errorf("tolerances = %g, %g", b.opts.RTol, b.opts.ATol)
	}
	if b.opts.MaxOrder != 3 || b.opts.MaxSteps != 2000 {
		t.Errorf("order/nsteps = %d, %d", b.opts.MaxOrder, b.opts.MaxSteps)
	}
	if b.opts.MaxStep != 0.1 || b.opts.FirstStep != 1e-5 {
		t.Errorf("step bounds = %g, %g", b.opts.MaxStep, b.opts.FirstStep)
	}
	if b.opts.TCrit == nil || *b.opts.TCrit != 10.0 {
		t.Errorf("tcrit = %v", b.opts.TCrit)
	}
}

func TestNewFromParamsVectorsAndBands(t *testing.T) {
	be, err := NewFromParams(map[string]any{
		"rtol":  []float64{1e-5, 1e-6},
		"atol":  []float64{1e-8, 1e-9},
		"lband": 1,
		"uband": 0,
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	b := be.(*Backend)
	if len(b.opts.RTolVec) != 2 || b.opts.RTolVec[1] != 1e-6 {
		t.Errorf("rtol vector = %v", b.opts.RTolVec)
	}
	if b.opts.LBand == nil || *b.opts.LBand != 1 || *b.opts.UBand != 0 {
		t.Errorf("bands = %v, %v", b.opts.LBand, b.opts.UBand)
	}
}

func TestNewFromParamsModesAndRoles(t *testing.T) {
	be, err := NewFromParams(map[string]any{
		"compute_initcond":      "yode0",
		"algebraic_var":         []int{1, 1, -1},
		"enforce_nonnegativity": true,
		"constraint_init":       true,
		"constraint_type":       1,
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	b := be.(*Backend)
	if b.opts.InitCond != InitDeriveAlgebraic {
		t.Errorf("init mode = %d", b.opts.InitCond)
	}
	if len(b.opts.VarRoles) != 3 || b.opts.VarRoles[2] != Algebraic {
		t.Errorf("roles = %v", b.opts.VarRoles)
	}
	if b.nonneg != 3 {
		t.Errorf("nonneg = %d, want 3", b.nonneg)
	}
	if len(b.opts.Constraints) != 1 || b.opts.Constraints[0] != NonNegative {
		t.Errorf("constraints = %v", b.opts.Constraints)
	}

	be, err = NewFromParams(map[string]any{"compute_initcond": "yprime0"})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if be.(*Backend).opts.InitCond != InitDeriveY {
		t.Error("yprime0 must select the derive-y mode")
	}
}

func TestNewFromParamsRejects(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		substr string
	}{
		{"unrecognized key", map[string]any{"jacfn": nil}, "unrecognized option"},
		{"fractional nsteps", map[string]any{"nsteps": 1.5}, "nsteps"},
		{"rtol of wrong type", map[string]any{"rtol": "tight"}, "rtol"},
		{"bad init mode", map[string]any{"compute_initcond": "guess"}, "compute_initcond"},
		{"roles of wrong type", map[string]any{"algebraic_var": []float64{1, -1}}, "algebraic_var"},
		{"lband without uband", map[string]any{"lband": 1}, "lband"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromParams(tt.params)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not mention %q", err, tt.substr)
			}
		})
	}
}

func TestDescriptor(t *testing.T) {
	d := Descriptor()
	if d.Name != "bdf" {
		t.Errorf("name = %s", d.Name)
	}
	if !d.Caps.Step || d.Caps.RunRelax {
		t.Errorf("caps = %+v", d.Caps)
	}
	if _, err := d.New(nil); err != nil {
		t.Errorf("default construction failed: %v", err)
	}
}
