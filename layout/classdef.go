package layout

import (
	"sort"

	"github.com/boxesandglue/fontcore/otbin"
)

// ClassDef is a decoded ClassDef table: glyph -> class value, 0 for any
// glyph not explicitly listed.
type ClassDef struct {
	Classes map[GlyphID]uint16
}

// ParseClassDef reads a ClassDef table (format 1 or 2) at off within data.
func ParseClassDef(data []byte, off int) (*ClassDef, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return nil, err
	}
	format, err := p.U16()
	if err != nil {
		return nil, err
	}
	cd := &ClassDef{Classes: map[GlyphID]uint16{}}
	switch format {
	case 1:
		startGlyph, err := p.U16()
		if err != nil {
			return nil, err
		}
		count, err := p.U16()
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(count); i++ {
			v, err := p.U16()
			if err != nil {
				return nil, err
			}
			if v != 0 {
				cd.Classes[GlyphID(startGlyph)+GlyphID(i)] = v
			}
		}
		return cd, nil
	case 2:
		rangeCount, err := p.U16()
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(rangeCount); i++ {
			start, err := p.U16()
			if err != nil {
				return nil, err
			}
			end, err := p.U16()
			if err != nil {
				return nil, err
			}
			class, err := p.U16()
			if err != nil {
				return nil, err
			}
			if class != 0 {
				for g := start; g <= end; g++ {
					cd.Classes[GlyphID(g)] = class
					if g == 0xFFFF {
						break
					}
				}
			}
		}
		return cd, nil
	default:
		return nil, otbin.ErrInvalidTable
	}
}

// SubsetOptions controls ClassDef subsetting.
type SubsetOptions struct {
	// Compact remaps class values to a dense 0..n-1 range, dropping gaps
	// left by classes whose glyphs were all excluded from the subset.
	Compact bool
}

// Subset returns a new ClassDef retaining only glyphs present in glyphMap,
// renumbered through it. When opts.Compact is set, surviving class values
// are remapped to close gaps; class 0 is always preserved as "no class".
func (cd *ClassDef) Subset(glyphMap GlyphMap, opts SubsetOptions) *ClassDef {
	out := &ClassDef{Classes: map[GlyphID]uint16{}}
	for g, class := range cd.Classes {
		ng, ok := glyphMap[g]
		if !ok {
			continue
		}
		out.Classes[ng] = class
	}
	if !opts.Compact {
		return out
	}

	used := map[uint16]bool{}
	for _, class := range out.Classes {
		used[class] = true
	}
	old := make([]uint16, 0, len(used))
	for c := range used {
		old = append(old, c)
	}
	sort.Slice(old, func(i, j int) bool { return old[i] < old[j] })
	remap := map[uint16]uint16{0: 0}
	next := uint16(1)
	for _, c := range old {
		if c == 0 {
			continue
		}
		remap[c] = next
		next++
	}
	for g, c := range out.Classes {
		out.Classes[g] = remap[c]
	}
	return out
}

// UseZeroForUnassigned reports whether, per the size heuristic, glyphs
// outside cd's domain should be folded into class 0 rather than excluded:
// true when more than half of retained glyphs would land in class 0 anyway.
func UseZeroForUnassigned(retained []GlyphID, cd *ClassDef) bool {
	zero := 0
	for _, g := range retained {
		if _, ok := cd.Classes[g]; !ok {
			zero++
		}
	}
	return zero*2 > len(retained)
}

// Serialize emits the ClassDef table, choosing format 1 or 2 by comparing
// the encoded size of each.
func (cd *ClassDef) Serialize() []byte {
	if len(cd.Classes) == 0 {
		w := otbin.NewWriter(4)
		w.U16(2)
		w.U16(0)
		return w.Bytes()
	}

	glyphs := make([]GlyphID, 0, len(cd.Classes))
	for g := range cd.Classes {
		glyphs = append(glyphs, g)
	}
	sort.Slice(glyphs, func(i, j int) bool { return glyphs[i] < glyphs[j] })

	// Format 1 cost: header(6) + span*2.
	span := int(glyphs[len(glyphs)-1]) - int(glyphs[0]) + 1
	format1Cost := 6 + span*2

	ranges := 0
	for i := 0; i < len(glyphs); {
		j := i + 1
		for j < len(glyphs) && glyphs[j] == glyphs[j-1]+1 && cd.Classes[glyphs[j]] == cd.Classes[glyphs[j-1]] {
			j++
		}
		ranges++
		i = j
	}
	format2Cost := 4 + ranges*6

	if format1Cost <= format2Cost {
		w := otbin.NewWriter(format1Cost)
		w.U16(1)
		w.U16(uint16(glyphs[0]))
		w.U16(uint16(span))
		cursor := glyphs[0]
		for _, g := range glyphs {
			for cursor < g {
				w.U16(0)
				cursor++
			}
			w.U16(cd.Classes[g])
			cursor++
		}
		return w.Bytes()
	}

	w := otbin.NewWriter(format2Cost)
	w.U16(2)
	w.U16(uint16(ranges))
	for i := 0; i < len(glyphs); {
		j := i + 1
		for j < len(glyphs) && glyphs[j] == glyphs[j-1]+1 && cd.Classes[glyphs[j]] == cd.Classes[glyphs[j-1]] {
			j++
		}
		w.U16(uint16(glyphs[i]))
		w.U16(uint16(glyphs[j-1]))
		w.U16(cd.Classes[glyphs[i]])
		i = j
	}
	return w.Bytes()
}
