package layout

import "github.com/boxesandglue/fontcore/otbin"

// Feature is a decoded Feature record: a tag plus the lookup indices it
// activates. FeatureParams offsets are preserved verbatim (not reinterpreted
// here; 'size' carries a FeatureParams block that must survive subsetting
// even when its lookup list becomes empty).
type Feature struct {
	Tag           otbin.Tag
	LookupIndices []uint16
	HasParams     bool
	Params        []byte
}

// FeatureList is the decoded top-level FeatureList table.
type FeatureList struct {
	Features []Feature
}

// ParseFeatureList reads a FeatureList at off within data.
func ParseFeatureList(data []byte, off int) (*FeatureList, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return nil, err
	}
	count, err := p.U16()
	if err != nil {
		return nil, err
	}
	fl := &FeatureList{}
	for i := 0; i < int(count); i++ {
		tag, err := p.ReadTag()
		if err != nil {
			return nil, err
		}
		featOff, err := p.U16()
		if err != nil {
			return nil, err
		}
		f, err := parseFeatureTable(data, off+int(featOff), tag)
		if err != nil {
			return nil, err
		}
		fl.Features = append(fl.Features, f)
	}
	return fl, nil
}

func parseFeatureTable(data []byte, off int, tag otbin.Tag) (Feature, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return Feature{}, err
	}
	paramsOff, err := p.U16()
	if err != nil {
		return Feature{}, err
	}
	lookupCount, err := p.U16()
	if err != nil {
		return Feature{}, err
	}
	f := Feature{Tag: tag}
	for i := 0; i < int(lookupCount); i++ {
		idx, err := p.U16()
		if err != nil {
			return Feature{}, err
		}
		f.LookupIndices = append(f.LookupIndices, idx)
	}
	if paramsOff != 0 {
		f.HasParams = true
		sub, err := p.SubParserFrom(off + int(paramsOff))
		if err != nil {
			return Feature{}, err
		}
		f.Params = sub.Data()[sub.Offset():]
	}
	return f, nil
}

var tagSize = otbin.MakeTag('s', 'i', 'z', 'e')
var tagPref = otbin.MakeTag('p', 'r', 'e', 'f')

// Subset filters lookup indices through keptLookups (old index -> new
// index), drops features with no surviving lookups unless the feature is
// 'size' (kept even empty, it carries design-size metadata via Params) or
// 'pref' (never dropped), and deduplicates features that share both a tag
// and an identical retained-lookup-index sequence.
func (fl *FeatureList) Subset(keptLookups map[uint16]uint16) *FeatureList {
	out := &FeatureList{}
	type key struct {
		tag  otbin.Tag
		seq  string
	}
	seen := map[key]bool{}

	for _, f := range fl.Features {
		nf := Feature{Tag: f.Tag, HasParams: f.HasParams, Params: f.Params}
		for _, li := range f.LookupIndices {
			if nli, ok := keptLookups[li]; ok {
				nf.LookupIndices = append(nf.LookupIndices, nli)
			}
		}
		if len(nf.LookupIndices) == 0 && f.Tag != tagSize && f.Tag != tagPref {
			continue
		}
		k := key{tag: nf.Tag, seq: lookupSeqKey(nf.LookupIndices)}
		if seen[k] {
			continue
		}
		seen[k] = true
		out.Features = append(out.Features, nf)
	}
	return out
}

func lookupSeqKey(indices []uint16) string {
	buf := make([]byte, len(indices)*2)
	for i, idx := range indices {
		buf[2*i] = byte(idx >> 8)
		buf[2*i+1] = byte(idx)
	}
	return string(buf)
}

// Serialize emits the FeatureList; FeatureParams blocks, when present, are
// appended after the Feature record array and referenced by offset.
func (fl *FeatureList) Serialize() []byte {
	headerLen := 2 + len(fl.Features)*6
	featureRecLen := 4
	w := otbin.NewWriter(headerLen)
	w.U16(uint16(len(fl.Features)))

	// Lay out Feature tables back to back after the header, computing each
	// one's offset before emitting the record array that references them.
	tableOffsets := make([]int, len(fl.Features))
	off := headerLen
	for i, f := range fl.Features {
		tableOffsets[i] = off
		off += featureRecLen + len(f.LookupIndices)*2 + len(f.Params)
	}

	for i, f := range fl.Features {
		w.WriteTag(f.Tag)
		w.U16(uint16(tableOffsets[i]))
	}
	for _, f := range fl.Features {
		paramsOff := 0
		if f.HasParams {
			paramsOff = featureRecLen + len(f.LookupIndices)*2
		}
		w.U16(uint16(paramsOff))
		w.U16(uint16(len(f.LookupIndices)))
		for _, li := range f.LookupIndices {
			w.U16(li)
		}
		w.Write(f.Params)
	}
	return w.Bytes()
}
