package ift

import (
	"encoding/binary"
	"testing"

	"github.com/boxesandglue/fontcore/intset"
)

// buildFormat1Table constructs a minimal format-1 table body (the part
// after the common 20-byte IFT table header) with a one-byte-per-glyph glyph
// map and no feature map, for use as ParseFormat1's input.
func buildFormat1Table(t *testing.T, numGlyphs int, glyphEntries []uint16, uri string) []byte {
	t.Helper()
	const headerLen = 27
	glyphMapOff := headerLen
	glyphMapLen := 1 + numGlyphs // entryIdSize byte + 1 byte per glyph
	uriOff := glyphMapOff + glyphMapLen

	buf := make([]byte, uriOff+len(uri))
	binary.BigEndian.PutUint32(buf[0:4], uint32(numGlyphs))
	binary.BigEndian.PutUint16(buf[4:6], 1)  // maxEntryIndex
	binary.BigEndian.PutUint16(buf[6:8], 1)  // maxGlyphMapEntryIndex
	binary.BigEndian.PutUint32(buf[8:12], uint32(glyphMapOff))
	binary.BigEndian.PutUint32(buf[12:16], 0) // no feature map
	binary.BigEndian.PutUint32(buf[16:20], uint32(uriOff))
	binary.BigEndian.PutUint16(buf[20:22], uint16(len(uri)))
	buf[22] = byte(EncodingTableKeyedFull)
	binary.BigEndian.PutUint32(buf[23:27], 0) // no applied bitmap

	buf[glyphMapOff] = 1 // entryIdSize = 1 byte/glyph
	for g, e := range glyphEntries {
		buf[glyphMapOff+1+g] = byte(e)
	}
	copy(buf[uriOff:], uri)
	return buf
}

func TestParseFormat1GlyphEntries(t *testing.T) {
	data := buildFormat1Table(t, 4, []uint16{0, 1, 0, 1}, "//fonts.example/{id}")
	table, err := ParseFormat1(data, 4)
	if err != nil {
		t.Fatalf("ParseFormat1: %v", err)
	}
	if table.URITemplate != "//fonts.example/{id}" {
		t.Fatalf("URITemplate = %q", table.URITemplate)
	}
	if table.GlyphEntries[1] != 1 || table.GlyphEntries[3] != 1 {
		t.Fatalf("glyph entries = %v", table.GlyphEntries)
	}
}

func TestParseFormat1RejectsGlyphCountMismatch(t *testing.T) {
	data := buildFormat1Table(t, 4, []uint16{0, 0, 0, 0}, "//a/{id}")
	if _, err := ParseFormat1(data, 5); err != ErrMalformed {
		t.Fatalf("ParseFormat1 with mismatched glyph count: err = %v, want ErrMalformed", err)
	}
}

func TestFormat1IntersectingPatchesSkipsEntryZero(t *testing.T) {
	data := buildFormat1Table(t, 4, []uint16{0, 1, 0, 0}, "//fonts.example/{id}")
	table, err := ParseFormat1(data, 4)
	if err != nil {
		t.Fatalf("ParseFormat1: %v", err)
	}

	subset := &SubsetDefinition{
		Codepoints: intset.NewU32(0x10FFFF),
		Features:   map[uint32]bool{},
	}
	subset.Codepoints.Insert(0x41) // maps to glyph 0 below
	subset.Codepoints.Insert(0x42) // maps to glyph 1

	lookup := func(cp uint32) (uint16, bool) {
		switch cp {
		case 0x41:
			return 0, true
		case 0x42:
			return 1, true
		}
		return 0, false
	}

	patches, err := table.IntersectingPatches(subset, lookup, SourceTable{})
	if err != nil {
		t.Fatalf("IntersectingPatches: %v", err)
	}
	if len(patches) != 1 {
		t.Fatalf("len(patches) = %d, want 1 (glyph 0 resolves to entry 0 and must be skipped)", len(patches))
	}
}
