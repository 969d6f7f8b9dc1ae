// Package layout holds GSUB/GPOS table-subsetting primitives: Coverage,
// ClassDef, ScriptList, FeatureList, FeatureVariations and DeltaSetIndexMap.
// The repack and varstore packages do not import it.
package layout

import (
	"sort"

	"github.com/boxesandglue/fontcore/otbin"
)

// GlyphID is a 16-bit glyph identifier.
type GlyphID uint16

// NotCovered is returned when a glyph is absent from a Coverage table.
const NotCovered = ^uint32(0)

// Coverage is a decoded Coverage table: an ordered list of glyphs, each
// implicitly indexed by its position.
type Coverage struct {
	Glyphs []GlyphID
}

// ParseCoverage reads a Coverage table (format 1 or 2) at off within data.
func ParseCoverage(data []byte, off int) (*Coverage, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return nil, err
	}
	format, err := p.U16()
	if err != nil {
		return nil, err
	}
	switch format {
	case 1:
		count, err := p.U16()
		if err != nil {
			return nil, err
		}
		glyphs := make([]GlyphID, count)
		for i := range glyphs {
			g, err := p.U16()
			if err != nil {
				return nil, err
			}
			glyphs[i] = GlyphID(g)
		}
		return &Coverage{Glyphs: glyphs}, nil
	case 2:
		rangeCount, err := p.U16()
		if err != nil {
			return nil, err
		}
		var glyphs []GlyphID
		for i := 0; i < int(rangeCount); i++ {
			start, err := p.U16()
			if err != nil {
				return nil, err
			}
			end, err := p.U16()
			if err != nil {
				return nil, err
			}
			if _, err := p.U16(); err != nil { // startCoverageIndex, implied by position
				return nil, err
			}
			for g := start; g <= end; g++ {
				glyphs = append(glyphs, GlyphID(g))
				if g == 0xFFFF {
					break
				}
			}
		}
		return &Coverage{Glyphs: glyphs}, nil
	default:
		return nil, otbin.ErrInvalidTable
	}
}

// Index returns the coverage index of g, or NotCovered.
func (c *Coverage) Index(g GlyphID) uint32 {
	lo, hi := 0, len(c.Glyphs)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case c.Glyphs[mid] < g:
			lo = mid + 1
		case c.Glyphs[mid] > g:
			hi = mid
		default:
			return uint32(mid)
		}
	}
	return NotCovered
}

// GlyphMap maps old glyph IDs to new glyph IDs in a subset font.
type GlyphMap map[GlyphID]GlyphID

// Subset returns a new Coverage retaining only glyphs present in glyphMap,
// renumbered through it, preserving relative order.
func (c *Coverage) Subset(glyphMap GlyphMap) *Coverage {
	kept := make([]GlyphID, 0, len(c.Glyphs))
	for _, g := range c.Glyphs {
		if ng, ok := glyphMap[g]; ok {
			kept = append(kept, ng)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })
	return &Coverage{Glyphs: kept}
}

// countRanges returns the number of contiguous runs in the sorted glyph
// list, used to choose between coverage format 1 and 2.
func countRanges(glyphs []GlyphID) int {
	if len(glyphs) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(glyphs); i++ {
		if glyphs[i] != glyphs[i-1]+1 {
			n++
		}
	}
	return n
}

// Serialize emits the Coverage table, choosing format 1 when
// glyphs <= 3*ranges (as the array format is then no larger than the range
// format), else format 2.
func (c *Coverage) Serialize() []byte {
	glyphs := append([]GlyphID(nil), c.Glyphs...)
	sort.Slice(glyphs, func(i, j int) bool { return glyphs[i] < glyphs[j] })

	ranges := countRanges(glyphs)
	w := otbin.NewWriter(4 + len(glyphs)*2)
	if len(glyphs) <= 3*ranges {
		w.U16(1)
		w.U16(uint16(len(glyphs)))
		for _, g := range glyphs {
			w.U16(uint16(g))
		}
		return w.Bytes()
	}

	w.U16(2)
	w.U16(uint16(ranges))
	i := 0
	startCov := uint16(0)
	for i < len(glyphs) {
		j := i + 1
		for j < len(glyphs) && glyphs[j] == glyphs[j-1]+1 {
			j++
		}
		w.U16(uint16(glyphs[i]))
		w.U16(uint16(glyphs[j-1]))
		w.U16(startCov)
		startCov += uint16(j - i)
		i = j
	}
	return w.Bytes()
}
