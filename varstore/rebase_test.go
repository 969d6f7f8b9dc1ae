package varstore

import "testing"

func TestRebaseTentDefaultPeakBothArmsClipped(t *testing.T) {
	tent := Triple{Min: -1, Peak: 0, Max: 1}
	limit := AxisLimit{Triple: Triple{Min: -0.5, Peak: 0, Max: 0.7}, Distance: AxisDistance{Neg: 1, Pos: 1}}

	sols := rebaseTent(tent, limit)
	if len(sols) != 1 {
		t.Fatalf("len(solutions) = %d, want 1", len(sols))
	}
	got := sols[0]
	want := Triple{Min: -1, Peak: -1, Max: 0}
	if got.Tent != want {
		t.Fatalf("Tent = %+v, want %+v", got.Tent, want)
	}
	// The negative side carries the larger triple-distance-weighted reach
	// (its new half-width is 0.5 of the axis vs. 0.7 on the positive side,
	// but the source tent's value at its own new bound, -0.5, is higher:
	// 0.5 against 0.3), so the single retained solution anchors there with
	// a scalar matching the source tent's true value at that bound.
	wantScalar := 0.5
	if d := got.Scalar - wantScalar; d < -1e-9 || d > 1e-9 {
		t.Fatalf("Scalar = %v, want %v", got.Scalar, wantScalar)
	}
}

func TestRebaseTentOneSidedOverflowSplitsIntoTwoSolutions(t *testing.T) {
	tent := Triple{Min: -1, Peak: 0, Max: 1}
	limit := AxisLimit{Triple: Triple{Min: -0.5, Peak: 0, Max: 1}, Distance: AxisDistance{Neg: 1, Pos: 1}}

	sols := rebaseTent(tent, limit)
	if len(sols) != 2 {
		t.Fatalf("len(solutions) = %d, want 2", len(sols))
	}

	retained := sols[0]
	if retained.Scalar != 1 {
		t.Fatalf("retained Scalar = %v, want 1", retained.Scalar)
	}
	wantRetained := Triple{Min: -1, Peak: 0, Max: 1}
	if retained.Tent != wantRetained {
		t.Fatalf("retained Tent = %+v, want %+v", retained.Tent, wantRetained)
	}

	correction := sols[1]
	wantCorrection := Triple{Min: -1, Peak: -1, Max: 0}
	if correction.Tent != wantCorrection {
		t.Fatalf("correction Tent = %+v, want %+v", correction.Tent, wantCorrection)
	}
	if correction.Scalar != 0.5 {
		t.Fatalf("correction Scalar = %v, want 0.5", correction.Scalar)
	}
}

func TestRebaseTentPinEvaluatesAtPoint(t *testing.T) {
	tent := Triple{Min: 0, Peak: 1, Max: 1}
	limit := AxisLimit{Triple: Triple{Min: 0.5, Peak: 0.5, Max: 0.5}}

	sols := rebaseTent(tent, limit)
	if len(sols) != 1 {
		t.Fatalf("len(solutions) = %d, want 1", len(sols))
	}
	if sols[0].Scalar != 0.5 {
		t.Fatalf("Scalar = %v, want 0.5", sols[0].Scalar)
	}
	if sols[0].Tent != (Triple{}) {
		t.Fatalf("Tent = %+v, want empty (axis pinned away)", sols[0].Tent)
	}
}

func TestRebaseTentOutOfRangeDropsTuple(t *testing.T) {
	tent := Triple{Min: 0.5, Peak: 0.8, Max: 1}
	limit := AxisLimit{Triple: Triple{Min: -0.5, Peak: 0, Max: 0.6}}

	sols := rebaseTent(tent, limit)
	if sols != nil {
		t.Fatalf("solutions = %+v, want nil (peak beyond new range)", sols)
	}
}

func TestRebaseTentNoOverflowIsIdentityUpToRescale(t *testing.T) {
	tent := Triple{Min: -1, Peak: 1, Max: 1}
	limit := AxisLimit{Triple: Triple{Min: -1, Peak: 0, Max: 1}}

	sols := rebaseTent(tent, limit)
	if len(sols) != 1 {
		t.Fatalf("len(solutions) = %d, want 1", len(sols))
	}
	if sols[0].Scalar != 1 {
		t.Fatalf("Scalar = %v, want 1 (limit equals the full axis range)", sols[0].Scalar)
	}
	if sols[0].Tent != tent {
		t.Fatalf("Tent = %+v, want unchanged %+v", sols[0].Tent, tent)
	}
}

func TestRebaseTentMirrorsNegativePeak(t *testing.T) {
	tent := Triple{Min: -1, Peak: -1, Max: 0}
	limit := AxisLimit{Triple: Triple{Min: -1, Peak: 0, Max: 1}}

	sols := rebaseTent(tent, limit)
	if len(sols) != 1 {
		t.Fatalf("len(solutions) = %d, want 1", len(sols))
	}
	if sols[0].Tent != tent {
		t.Fatalf("Tent = %+v, want unchanged %+v (no overflow)", sols[0].Tent, tent)
	}
}
