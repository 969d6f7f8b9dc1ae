package varstore

import "fmt"

// AxisLimits restricts one or more axes to a pin or a sub-range, keyed by
// axis tag. An axis absent from the map is left unrestricted.
type AxisLimits map[string]AxisLimit

var identityTriple = Triple{Min: -1, Peak: 0, Max: 1}

func isIdentityLimit(l AxisLimit) bool { return l.Triple == identityTriple }

// Instantiate restricts store to the given axis limits, dropping or
// rescaling every tuple's contribution on each limited axis, merging
// tuples that end up sharing a region, and rebuilding the region list.
func Instantiate(store *ItemVariationStore, limits AxisLimits) *ItemVariationStore {
	newVarData := make([]*VarData, 0, len(store.VarData))
	for _, vd := range store.VarData {
		instanced := make([]*TupleDelta, 0, len(vd.Tuples))
		for _, tup := range vd.Tuples {
			instanced = append(instanced, instantiateTuple(tup, limits)...)
		}
		merged := mergeTuples(instanced)
		newVarData = append(newVarData, &VarData{ItemCount: vd.ItemCount, Tuples: merged})
	}

	regions := buildRegionList(newVarData)
	return &ItemVariationStore{Regions: regions, VarData: newVarData}
}

// instantiateTuple rebases every limited axis of tup's region in turn.
// rebaseTent can return more than one (scalar, tent) pair for a single
// axis, so a tuple that started as one region can fan out into several
// independent tuples as axes are processed; an axis that rejects the tuple
// outright (rebaseTent returns nil) kills every branch descended from it.
func instantiateTuple(tup *TupleDelta, limits AxisLimits) []*TupleDelta {
	branches := []*TupleDelta{tup.clone()}

	for _, axis := range tup.Region.axes() {
		limit, ok := limits[axis]
		if !ok || isIdentityLimit(limit) {
			continue
		}

		var next []*TupleDelta
		for _, nt := range branches {
			sols := rebaseTent(nt.Region[axis], limit)
			for _, sol := range sols {
				branch := nt.clone()
				branch.scale(sol.Scalar)
				if sol.Tent.isDefault() {
					delete(branch.Region, axis)
				} else {
					branch.Region[axis] = sol.Tent
				}
				next = append(next, branch)
			}
		}
		branches = next
	}

	out := make([]*TupleDelta, 0, len(branches))
	for _, nt := range branches {
		if !nt.Region.isEmpty() {
			out = append(out, nt)
		}
	}
	return out
}

// mergeTuples sums the deltas of tuples that ended up with an identical
// region after instancing, since a VarData can't carry two tuples for the
// same region.
func mergeTuples(tuples []*TupleDelta) []*TupleDelta {
	order := make([]string, 0, len(tuples))
	byKey := make(map[string]*TupleDelta, len(tuples))

	for _, t := range tuples {
		key := regionKey(t.Region)
		if existing, ok := byKey[key]; ok {
			addDeltas(existing, t)
			continue
		}
		clone := t.clone()
		byKey[key] = clone
		order = append(order, key)
	}

	out := make([]*TupleDelta, 0, len(order))
	for _, key := range order {
		t := byKey[key]
		if t.isAllZero() {
			continue
		}
		out = append(out, t)
	}
	return out
}

func addDeltas(dst, src *TupleDelta) {
	for i := range dst.DeltaX {
		dst.DeltaX[i] += src.DeltaX[i]
	}
	for i := range dst.DeltaY {
		dst.DeltaY[i] += src.DeltaY[i]
	}
}

func regionKey(r Region) string {
	axes := r.axes()
	key := ""
	for _, a := range axes {
		t := r[a]
		key += fmt.Sprintf("%s:%g,%g,%g;", a, t.Min, t.Peak, t.Max)
	}
	return key
}

// buildRegionList collects every distinct region still referenced by a
// nonzero tuple across all VarData, in first-appearance order. Tuples keep
// their Region value directly; the index into this slice is only needed
// at serialization time.
func buildRegionList(varData []*VarData) []Region {
	var regions []Region
	seen := make(map[string]bool)

	for _, vd := range varData {
		for _, t := range vd.Tuples {
			key := regionKey(t.Region)
			if seen[key] {
				continue
			}
			seen[key] = true
			regions = append(regions, t.Region.clone())
		}
	}
	return regions
}
