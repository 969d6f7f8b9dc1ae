package varstore

import "testing"

// buildWghtStore constructs a two-entry, single-axis (wght) store: one
// VarData with two items, each varying over a full-range tent.
func buildWghtStore() *ItemVariationStore {
	region := Region{"wght": {Min: -1, Peak: 1, Max: 1}}
	tup := &TupleDelta{Region: region.clone(), DeltaX: []float64{100, -50}}
	vd := &VarData{ItemCount: 2, Tuples: []*TupleDelta{tup}}
	return &ItemVariationStore{Regions: []Region{region}, VarData: []*VarData{vd}}
}

func TestInstantiateIdentityLimitLeavesStoreUnchanged(t *testing.T) {
	store := buildWghtStore()
	limits := AxisLimits{"wght": {Triple: identityTriple}}

	out := Instantiate(store, limits)
	if len(out.VarData) != 1 || len(out.VarData[0].Tuples) != 1 {
		t.Fatalf("unexpected shape: %+v", out)
	}
	got := out.VarData[0].Tuples[0]
	if got.DeltaX[0] != 100 || got.DeltaX[1] != -50 {
		t.Fatalf("deltas = %v, want unchanged", got.DeltaX)
	}
	if got.Region["wght"] != (Triple{Min: -1, Peak: 1, Max: 1}) {
		t.Fatalf("region = %+v, want unchanged", got.Region)
	}
}

func TestInstantiatePinDropsAxisAndScalesDeltas(t *testing.T) {
	store := buildWghtStore()
	// A second axis keeps the region non-empty once wght is pinned away; a
	// tuple whose region becomes empty is dropped by Instantiate.
	store.VarData[0].Tuples[0].Region["wdth"] = Triple{Min: 0, Peak: 1, Max: 1}
	limits := AxisLimits{"wght": {Triple: Triple{Min: 0, Peak: 0, Max: 0}}}

	out := Instantiate(store, limits)
	if len(out.VarData) != 1 {
		t.Fatalf("len(VarData) = %d, want 1", len(out.VarData))
	}
	if len(out.VarData[0].Tuples) != 1 {
		t.Fatalf("len(Tuples) = %d, want 1", len(out.VarData[0].Tuples))
	}
	tup := out.VarData[0].Tuples[0]
	if _, hasAxis := tup.Region["wght"]; hasAxis {
		t.Fatalf("region still carries wght after pin: %+v", tup.Region)
	}
	if tup.DeltaX[0] != 50 || tup.DeltaX[1] != -25 {
		t.Fatalf("deltas = %v, want scaled by 0.5", tup.DeltaX)
	}
}

func TestInstantiateOutOfRangeDropsTuple(t *testing.T) {
	store := buildWghtStore()
	limits := AxisLimits{"wght": {Triple: Triple{Min: -1, Peak: -1, Max: -0.5}}}

	out := Instantiate(store, limits)
	if len(out.VarData[0].Tuples) != 0 {
		t.Fatalf("Tuples = %+v, want empty (tuple's peak is beyond the limited range)", out.VarData[0].Tuples)
	}
}

func TestSerializeRoundTripsThroughParse(t *testing.T) {
	store := buildWghtStore()
	data, remap, err := Serialize(store)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	parsed, err := Parse(data, []string{"wght"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.VarData) != 1 {
		t.Fatalf("len(VarData) = %d, want 1", len(parsed.VarData))
	}
	if parsed.VarData[0].ItemCount != 2 {
		t.Fatalf("ItemCount = %d, want 2", parsed.VarData[0].ItemCount)
	}
	got := parsed.VarData[0].Tuples[0]
	if got.DeltaX[0] != 100 || got.DeltaX[1] != -50 {
		t.Fatalf("round-tripped deltas = %v, want [100 -50]", got.DeltaX)
	}

	srcIdx := VarIdx{Outer: 0, Inner: 0}
	if _, ok := remap[srcIdx]; !ok {
		t.Fatalf("remap missing entry for %+v", srcIdx)
	}
}

func TestOptimizeEncodingsMergesSharedRegionColumns(t *testing.T) {
	region := Region{"wght": {Min: -1, Peak: 1, Max: 1}}
	tupA := &TupleDelta{Region: region.clone(), DeltaX: []float64{10, 20}}
	tupB := &TupleDelta{Region: region.clone(), DeltaX: []float64{30, 40}}
	vdA := &VarData{ItemCount: 2, Tuples: []*TupleDelta{tupA}}
	vdB := &VarData{ItemCount: 2, Tuples: []*TupleDelta{tupB}}
	store := &ItemVariationStore{Regions: []Region{region}, VarData: []*VarData{vdA, vdB}}

	regionIndexOf := map[string]int{regionKey(region): 0}
	encs := buildEncodings(store, regionIndexOf)
	if len(encs) != 2 {
		t.Fatalf("len(encs) = %d, want 2", len(encs))
	}

	merged := optimizeEncodings(encs)
	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1 (sharing one region column should always merge)", len(merged))
	}
	if len(merged[0].rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4", len(merged[0].rows))
	}
}
