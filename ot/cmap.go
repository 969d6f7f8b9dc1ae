package ot

import (
	"encoding/binary"
	"sort"
)

// Cmap maps Unicode codepoints to glyph IDs using whichever subtable in the
// table's encoding-record list looks most useful. Variation-selector
// sequences (format 14) aren't needed by patch-map intersection and aren't
// decoded here.
type Cmap struct {
	data     []byte
	subtable cmapSubtable
}

// cmapSubtable is satisfied by each decoded subtable format.
type cmapSubtable interface {
	// Lookup returns the glyph for a codepoint, or (0, false) if unmapped.
	Lookup(cp Codepoint) (GlyphID, bool)
}

// ParseCmap decodes a cmap table and selects its best encoding record.
func ParseCmap(data []byte) (*Cmap, error) {
	if len(data) < 4 {
		return nil, ErrInvalidTable
	}

	p := NewParser(data)

	version, _ := p.U16()
	if version != 0 {
		return nil, ErrInvalidFormat
	}

	numTables, _ := p.U16()

	var best cmapSubtable
	bestPriority := -1

	for i := 0; i < int(numTables); i++ {
		platformID, _ := p.U16()
		encodingID, _ := p.U16()
		offset, _ := p.U32()

		priority := cmapRecordPriority(platformID, encodingID)
		if priority <= bestPriority {
			continue
		}
		st, err := parseCmapSubtable(data, int(offset))
		if err != nil || st == nil {
			continue
		}
		best = st
		bestPriority = priority
	}

	if best == nil {
		return nil, ErrInvalidTable
	}
	return &Cmap{data: data, subtable: best}, nil
}

// cmapRecordPriority ranks a platform/encoding pair the way HarfBuzz's
// find_best_subtable does: full-Unicode encodings beat BMP-only ones, and
// Windows/Unicode platforms beat legacy Mac ones.
func cmapRecordPriority(platformID, encodingID uint16) int {
	switch {
	case platformID == 3 && encodingID == 0:
		return 100 // Windows Symbol
	case platformID == 3 && encodingID == 10:
		return 90 // Windows UCS-4
	case platformID == 0 && encodingID == 6:
		return 89 // Unicode full repertoire
	case platformID == 0 && encodingID == 4:
		return 88 // Unicode 2.0+ full repertoire
	case platformID == 3 && encodingID == 1:
		return 80 // Windows BMP
	case platformID == 0 && encodingID == 3:
		return 79 // Unicode 2.0 BMP
	case platformID == 0 && encodingID == 2:
		return 78 // Unicode ISO/IEC 10646
	case platformID == 0 && encodingID == 1:
		return 77 // Unicode 1.1
	case platformID == 0 && encodingID == 0:
		return 76 // Unicode 1.0
	case platformID == 1 && encodingID == 0:
		return 10 // Mac Roman
	default:
		return 0
	}
}

func parseCmapSubtable(data []byte, offset int) (cmapSubtable, error) {
	if offset+2 > len(data) {
		return nil, ErrInvalidOffset
	}

	switch binary.BigEndian.Uint16(data[offset:]) {
	case 0:
		return parseCmapFormat0(data, offset)
	case 4:
		return parseCmapFormat4(data, offset)
	case 6:
		return parseCmapFormat6(data, offset)
	case 12:
		return parseCmapFormat12(data, offset)
	case 13:
		return parseCmapFormat13(data, offset)
	default:
		return nil, ErrInvalidFormat
	}
}

// Lookup returns the glyph mapped to cp, if any.
func (c *Cmap) Lookup(cp Codepoint) (GlyphID, bool) {
	return c.subtable.Lookup(cp)
}

// --- Format 0: byte encoding table, single-byte codepoints only ---

type cmapFormat0 struct {
	glyphIDs [256]byte
}

func parseCmapFormat0(data []byte, offset int) (*cmapFormat0, error) {
	if offset+262 > len(data) { // 6-byte header + 256 glyph entries
		return nil, ErrInvalidOffset
	}
	f := &cmapFormat0{}
	copy(f.glyphIDs[:], data[offset+6:offset+262])
	return f, nil
}

func (f *cmapFormat0) Lookup(cp Codepoint) (GlyphID, bool) {
	if cp >= 256 {
		return 0, false
	}
	gid := f.glyphIDs[cp]
	if gid == 0 {
		return 0, false
	}
	return GlyphID(gid), true
}

// --- Format 4: segment mapping to delta values, BMP only ---

type cmapFormat4 struct {
	data            []byte
	segCount        int
	endCodeOff      int
	startCodeOff    int
	idDeltaOff      int
	idRangeOffOff   int
	glyphIdArrayOff int
	glyphIdArrayLen int
}

func parseCmapFormat4(data []byte, offset int) (*cmapFormat4, error) {
	if offset+14 > len(data) {
		return nil, ErrInvalidOffset
	}

	length := int(binary.BigEndian.Uint16(data[offset+2:]))
	if offset+length > len(data) {
		return nil, ErrInvalidOffset
	}

	segCountX2 := int(binary.BigEndian.Uint16(data[offset+6:]))
	segCount := segCountX2 / 2

	f := &cmapFormat4{
		data:     data[offset : offset+length],
		segCount: segCount,
	}

	f.endCodeOff = 14
	f.startCodeOff = f.endCodeOff + segCountX2 + 2 // +2 skips reservedPad
	f.idDeltaOff = f.startCodeOff + segCountX2
	f.idRangeOffOff = f.idDeltaOff + segCountX2
	f.glyphIdArrayOff = f.idRangeOffOff + segCountX2
	f.glyphIdArrayLen = (length - f.glyphIdArrayOff) / 2

	return f, nil
}

func (f *cmapFormat4) Lookup(cp Codepoint) (GlyphID, bool) {
	if cp > 0xFFFF {
		return 0, false
	}

	segIdx := f.searchSegment(uint16(cp))
	if segIdx < 0 {
		return 0, false
	}

	startCode := f.startCodeAt(segIdx)
	if uint16(cp) < startCode {
		return 0, false
	}

	idRangeOffset := f.idRangeOffsetAt(segIdx)
	idDelta := f.idDeltaAt(segIdx)

	var gid uint16
	if idRangeOffset == 0 {
		gid = uint16(int(cp) + int(idDelta))
	} else {
		// glyphIdArray is indexed through idRangeOffset using the same
		// offset-from-self arithmetic the format was designed for when the
		// array lived directly after idRangeOffset in the table.
		index := int(idRangeOffset)/2 + int(uint16(cp)-startCode) + segIdx - f.segCount
		if index < 0 || index >= f.glyphIdArrayLen {
			return 0, false
		}
		gid = binary.BigEndian.Uint16(f.data[f.glyphIdArrayOff+index*2:])
		if gid == 0 {
			return 0, false
		}
		gid = uint16(int(gid) + int(idDelta))
	}

	if gid == 0 {
		return 0, false
	}
	return GlyphID(gid), true
}

func (f *cmapFormat4) searchSegment(cp uint16) int {
	lo, hi := 0, f.segCount
	for lo < hi {
		mid := (lo + hi) / 2
		if cp > f.endCodeAt(mid) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= f.segCount {
		return -1
	}
	return lo
}

func (f *cmapFormat4) endCodeAt(i int) uint16 {
	return binary.BigEndian.Uint16(f.data[f.endCodeOff+i*2:])
}

func (f *cmapFormat4) startCodeAt(i int) uint16 {
	return binary.BigEndian.Uint16(f.data[f.startCodeOff+i*2:])
}

func (f *cmapFormat4) idDeltaAt(i int) int16 {
	return int16(binary.BigEndian.Uint16(f.data[f.idDeltaOff+i*2:]))
}

func (f *cmapFormat4) idRangeOffsetAt(i int) uint16 {
	return binary.BigEndian.Uint16(f.data[f.idRangeOffOff+i*2:])
}

// --- Format 6: trimmed table mapping, contiguous BMP range ---

type cmapFormat6 struct {
	firstCode uint16
	glyphIDs  []uint16
}

func parseCmapFormat6(data []byte, offset int) (*cmapFormat6, error) {
	if offset+10 > len(data) {
		return nil, ErrInvalidOffset
	}

	length := int(binary.BigEndian.Uint16(data[offset+2:]))
	if offset+length > len(data) {
		return nil, ErrInvalidOffset
	}

	firstCode := binary.BigEndian.Uint16(data[offset+6:])
	entryCount := int(binary.BigEndian.Uint16(data[offset+8:]))
	if offset+10+entryCount*2 > len(data) {
		return nil, ErrInvalidOffset
	}

	f := &cmapFormat6{firstCode: firstCode, glyphIDs: make([]uint16, entryCount)}
	for i := 0; i < entryCount; i++ {
		f.glyphIDs[i] = binary.BigEndian.Uint16(data[offset+10+i*2:])
	}
	return f, nil
}

func (f *cmapFormat6) Lookup(cp Codepoint) (GlyphID, bool) {
	if cp > 0xFFFF {
		return 0, false
	}
	idx := int(cp) - int(f.firstCode)
	if idx < 0 || idx >= len(f.glyphIDs) {
		return 0, false
	}
	gid := f.glyphIDs[idx]
	if gid == 0 {
		return 0, false
	}
	return GlyphID(gid), true
}

// --- Formats 12 and 13: segmented coverage over full Unicode ---
//
// Both share the same (startCharCode, endCharCode, startGlyphID) group
// layout; they differ only in how a group's glyph is derived. Format 12
// strides the glyph ID with the codepoint, format 13 maps the whole range
// onto a single glyph.

type cmapGroup struct {
	startCharCode uint32
	endCharCode   uint32
	startGlyphID  uint32
}

func parseCmapGroups(data []byte, offset int) ([]cmapGroup, error) {
	if offset+16 > len(data) {
		return nil, ErrInvalidOffset
	}

	length := binary.BigEndian.Uint32(data[offset+4:])
	if uint32(offset)+length > uint32(len(data)) {
		return nil, ErrInvalidOffset
	}

	numGroups := int(binary.BigEndian.Uint32(data[offset+12:]))
	if offset+16+numGroups*12 > len(data) {
		return nil, ErrInvalidOffset
	}

	groups := make([]cmapGroup, numGroups)
	off := offset + 16
	for i := range groups {
		groups[i] = cmapGroup{
			startCharCode: binary.BigEndian.Uint32(data[off:]),
			endCharCode:   binary.BigEndian.Uint32(data[off+4:]),
			startGlyphID:  binary.BigEndian.Uint32(data[off+8:]),
		}
		off += 12
	}
	return groups, nil
}

func findCmapGroup(groups []cmapGroup, cp Codepoint) (*cmapGroup, bool) {
	idx := sort.Search(len(groups), func(i int) bool {
		return groups[i].endCharCode >= cp
	})
	if idx >= len(groups) {
		return nil, false
	}
	g := &groups[idx]
	if cp < g.startCharCode || cp > g.endCharCode {
		return nil, false
	}
	return g, true
}

type cmapFormat12 struct {
	groups []cmapGroup
}

func parseCmapFormat12(data []byte, offset int) (*cmapFormat12, error) {
	groups, err := parseCmapGroups(data, offset)
	if err != nil {
		return nil, err
	}
	return &cmapFormat12{groups: groups}, nil
}

func (f *cmapFormat12) Lookup(cp Codepoint) (GlyphID, bool) {
	g, ok := findCmapGroup(f.groups, cp)
	if !ok {
		return 0, false
	}
	gid := g.startGlyphID + (cp - g.startCharCode)
	if gid == 0 || gid > 0xFFFF {
		return 0, false
	}
	return GlyphID(gid), true
}

type cmapFormat13 struct {
	groups []cmapGroup
}

func parseCmapFormat13(data []byte, offset int) (*cmapFormat13, error) {
	groups, err := parseCmapGroups(data, offset)
	if err != nil {
		return nil, err
	}
	return &cmapFormat13{groups: groups}, nil
}

func (f *cmapFormat13) Lookup(cp Codepoint) (GlyphID, bool) {
	g, ok := findCmapGroup(f.groups, cp)
	if !ok {
		return 0, false
	}
	if g.startGlyphID == 0 || g.startGlyphID > 0xFFFF {
		return 0, false
	}
	return GlyphID(g.startGlyphID), true
}
