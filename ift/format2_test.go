package ift

import (
	"encoding/binary"
	"testing"

	"github.com/boxesandglue/fontcore/intset"
)

// buildFormat2Table constructs a minimal format-2 table body with a single
// entry carrying an explicit codepoint range (format 1: sparse bit set).
func buildFormat2Table(t *testing.T, uri string, entryCodepoints *intset.Set[uint32]) []byte {
	t.Helper()
	encoded, err := intset.EncodeSparseBitSet(entryCodepoints, 0x10FFFF, 8)
	if err != nil {
		t.Fatalf("EncodeSparseBitSet: %v", err)
	}

	const headerLen = 15
	uriOff := headerLen
	entryStart := uriOff + len(uri)

	buf := make([]byte, entryStart)
	buf[0] = byte(EncodingTableKeyedFull)
	binary.BigEndian.PutUint16(buf[2:4], 1) // entryCount
	binary.BigEndian.PutUint32(buf[4:8], uint32(entryStart))
	binary.BigEndian.PutUint32(buf[8:12], uint32(uriOff))
	binary.BigEndian.PutUint16(buf[12:14], uint16(len(uri)))
	copy(buf[uriOff:], uri)

	// entry: flags byte (codepoint format 1, no id delta, not ignored),
	// idLen=0, then the sparse-bit-set length+bytes.
	entry := make([]byte, 0, 1+2+4+len(encoded))
	entry = append(entry, 0x02) // codepoints format field = (flags>>1)&0x3 == 1 -> flags bit pattern 0b010
	entry = append(entry, 0, 0) // idLen = 0
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(encoded)))
	entry = append(entry, lenBuf...)
	entry = append(entry, encoded...)

	return append(buf, entry...)
}

func TestParseFormat2BasicEntry(t *testing.T) {
	cps := intset.NewU32(0x10FFFF)
	cps.InsertRange(0x41, 0x5A)

	data := buildFormat2Table(t, "//fonts.example/{id}", cps)
	table, err := ParseFormat2(data)
	if err != nil {
		t.Fatalf("ParseFormat2: %v", err)
	}
	if table.URITemplate != "//fonts.example/{id}" {
		t.Fatalf("URITemplate = %q", table.URITemplate)
	}
	if len(table.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(table.Entries))
	}
	if !table.Entries[0].Codepoints.Contains(0x41) {
		t.Fatalf("entry codepoints missing 0x41")
	}
}

func TestFormat2IntersectingPatches(t *testing.T) {
	cps := intset.NewU32(0x10FFFF)
	cps.InsertRange(0x41, 0x5A)
	data := buildFormat2Table(t, "//fonts.example/{id}", cps)
	table, err := ParseFormat2(data)
	if err != nil {
		t.Fatalf("ParseFormat2: %v", err)
	}

	subset := &SubsetDefinition{Codepoints: intset.NewU32(0x10FFFF), Features: map[uint32]bool{}}
	subset.Codepoints.Insert(0x42)

	patches, err := table.IntersectingPatches(subset, SourceTable{})
	if err != nil {
		t.Fatalf("IntersectingPatches: %v", err)
	}
	if len(patches) != 1 {
		t.Fatalf("len(patches) = %d, want 1", len(patches))
	}

	subset2 := &SubsetDefinition{Codepoints: intset.NewU32(0x10FFFF), Features: map[uint32]bool{}}
	subset2.Codepoints.Insert(0x100)
	patches2, err := table.IntersectingPatches(subset2, SourceTable{})
	if err != nil {
		t.Fatalf("IntersectingPatches: %v", err)
	}
	if len(patches2) != 0 {
		t.Fatalf("len(patches2) = %d, want 0 (no overlap)", len(patches2))
	}
}

func TestFormat2RejectsForwardCopyIndex(t *testing.T) {
	table := &Format2Table{
		Entries: []Format2Entry{
			{Codepoints: intset.NewU32(0x10), CopyIndices: []int{1}},
			{Codepoints: intset.NewU32(0x10)},
		},
	}
	_, err := table.IntersectingPatches(&SubsetDefinition{Codepoints: intset.NewU32(0x10), Features: map[uint32]bool{}}, SourceTable{})
	if err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}
