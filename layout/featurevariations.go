package layout

import "github.com/boxesandglue/fontcore/otbin"

// ConditionAxis is one axis range within a ConditionSet (format 1: a single
// axis index plus a normalized [min, max] filter range).
type ConditionAxis struct {
	AxisIndex uint16
	FilterMin int16 // F2Dot14
	FilterMax int16 // F2Dot14
}

// ConditionSet is a decoded ConditionSet table: a conjunction of axis
// ranges that must all hold for the FeatureVariationRecord to apply.
type ConditionSet struct {
	Conditions []ConditionAxis
}

// FeatureTableSubstitution replaces a subset of FeatureList entries when its
// owning FeatureVariationRecord's ConditionSet matches.
type FeatureTableSubstitution struct {
	// FeatureIndex -> replacement Feature.
	Substitutions map[uint16]Feature
}

// FeatureVariationRecord pairs a ConditionSet with its substitution table.
type FeatureVariationRecord struct {
	Conditions    ConditionSet
	Substitutions FeatureTableSubstitution
}

// FeatureVariations is the decoded top-level FeatureVariations table.
type FeatureVariations struct {
	Records []FeatureVariationRecord
}

// ParseFeatureVariations reads a FeatureVariations table at off within data.
func ParseFeatureVariations(data []byte, off int) (*FeatureVariations, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return nil, err
	}
	if _, err := p.U32(); err != nil { // majorVersion<<16|minorVersion
		return nil, err
	}
	count, err := p.U32()
	if err != nil {
		return nil, err
	}
	fv := &FeatureVariations{}
	for i := 0; i < int(count); i++ {
		condOff, err := p.U32()
		if err != nil {
			return nil, err
		}
		substOff, err := p.U32()
		if err != nil {
			return nil, err
		}
		cs, err := parseConditionSet(data, off+int(condOff))
		if err != nil {
			return nil, err
		}
		fts, err := parseFeatureTableSubstitution(data, off+int(substOff))
		if err != nil {
			return nil, err
		}
		fv.Records = append(fv.Records, FeatureVariationRecord{Conditions: *cs, Substitutions: *fts})
	}
	return fv, nil
}

func parseConditionSet(data []byte, off int) (*ConditionSet, error) {
	if off == 0 {
		return &ConditionSet{}, nil
	}
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return nil, err
	}
	count, err := p.U16()
	if err != nil {
		return nil, err
	}
	cs := &ConditionSet{}
	for i := 0; i < int(count); i++ {
		condOff, err := p.U32()
		if err != nil {
			return nil, err
		}
		cp := otbin.NewParser(data)
		if err := cp.SetOffset(off + int(condOff)); err != nil {
			return nil, err
		}
		format, err := cp.U16()
		if err != nil {
			return nil, err
		}
		if format != 1 {
			continue // unknown condition format: skip, per permissive traversal
		}
		axisIdx, err := cp.U16()
		if err != nil {
			return nil, err
		}
		minV, err := cp.I16()
		if err != nil {
			return nil, err
		}
		maxV, err := cp.I16()
		if err != nil {
			return nil, err
		}
		cs.Conditions = append(cs.Conditions, ConditionAxis{AxisIndex: axisIdx, FilterMin: minV, FilterMax: maxV})
	}
	return cs, nil
}

func parseFeatureTableSubstitution(data []byte, off int) (*FeatureTableSubstitution, error) {
	if off == 0 {
		return &FeatureTableSubstitution{}, nil
	}
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return nil, err
	}
	if _, err := p.U32(); err != nil { // version
		return nil, err
	}
	count, err := p.U16()
	if err != nil {
		return nil, err
	}
	fts := &FeatureTableSubstitution{Substitutions: map[uint16]Feature{}}
	for i := 0; i < int(count); i++ {
		featureIdx, err := p.U16()
		if err != nil {
			return nil, err
		}
		featOff, err := p.U32()
		if err != nil {
			return nil, err
		}
		f, err := parseFeatureTable(data, off+int(featOff), otbin.Tag(0))
		if err != nil {
			return nil, err
		}
		fts.Substitutions[featureIdx] = f
	}
	return fts, nil
}

// Prune removes empty records from the end of the list only, matching the
// contract that a mid-list empty record (one whose substitution survives
// subsetting as zero entries) is left in place to avoid shifting the
// record-to-condition correspondence used elsewhere.
func (fv *FeatureVariations) Prune() {
	for len(fv.Records) > 0 {
		last := fv.Records[len(fv.Records)-1]
		if len(last.Substitutions.Substitutions) > 0 {
			break
		}
		fv.Records = fv.Records[:len(fv.Records)-1]
	}
}
