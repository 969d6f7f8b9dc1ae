// Package ift decodes Incremental Font Transfer patch-map tables (IFT and
// IFTX) and expands the resulting patch URIs.
package ift

import (
	"errors"

	"github.com/boxesandglue/fontcore/intset"
)

// ErrMalformed is returned for any decode failure: truncated data, an
// invalid enum tag, or a structural inconsistency (out-of-range index,
// forward copy-index reference, id-delta overflow).
var ErrMalformed = errors.New("ift: malformed patch map")

// Encoding discriminates how a patch must be applied.
type Encoding int

const (
	EncodingTableKeyedFull Encoding = iota + 1
	EncodingTableKeyedPartial
	EncodingGlyphKeyed
)

// SourceTable names which of IFT/IFTX an entry came from, plus the font's
// declared compatibility id for that table (read from the table header, so
// clients can detect a stale patch-map cache).
type SourceTable struct {
	IsIFTX          bool
	CompatibilityID [4]uint32
}

// IntersectionInfo records how many subset-request elements an entry
// matched, used by client-side patch-selection heuristics.
type IntersectionInfo struct {
	IntersectingCodepoints int
	IntersectingLayoutTags int
}

// PatchURI is one resolved, not-yet-expanded patch reference.
type PatchURI struct {
	Template         string
	ID               []byte // numeric ids are stored big-endian, leading zero bytes trimmed by URI expansion
	Source           SourceTable
	ApplicationBitPos int
	Encoding         Encoding
	Intersection     IntersectionInfo
}

// SubsetDefinition is the subset request intersected against a patch map:
// codepoints, feature tags, and per-axis normalized ranges.
type SubsetDefinition struct {
	Codepoints *intset.Set[uint32]
	Features   map[uint32]bool // 4-byte tags packed big-endian into u32
	AxisRanges map[uint32][]AxisRange
}

// AxisRange is an inclusive normalized-coordinate range on one axis.
type AxisRange struct {
	Min, Max float64
}

func (a AxisRange) overlaps(b AxisRange) bool {
	return a.Min <= b.Max && b.Min <= a.Max
}

// union merges two subset definitions' codepoint and feature sets (axis
// ranges are not unioned here: format 1 entries never carry axis data).
func unionSubsetDef(a, b *SubsetDefinition) *SubsetDefinition {
	out := &SubsetDefinition{
		Codepoints: a.Codepoints.Union(b.Codepoints),
		Features:   map[uint32]bool{},
	}
	for k := range a.Features {
		out.Features[k] = true
	}
	for k := range b.Features {
		out.Features[k] = true
	}
	return out
}
