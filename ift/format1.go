package ift

import (
	"encoding/binary"
	"sort"
	"unicode/utf8"

	"github.com/boxesandglue/fontcore/intset"
)

// CmapLookup maps a Unicode codepoint to a glyph ID, returning ok=false if
// the codepoint is unmapped. Callers typically pass (*ot.Cmap).Lookup.
type CmapLookup func(codepoint uint32) (glyph uint16, ok bool)

// Format1Table is a decoded patch-map-format-1 IFT table.
type Format1Table struct {
	GlyphCount            uint32
	MaxEntryIndex         uint16
	MaxGlyphMapEntryIndex uint16
	GlyphEntries          []uint16 // index by glyph id
	FeatureRecords        []featureRecord1
	EntryRecords          []entryRecord1
	AppliedBitmapOffset   int
	AppliedBitmap         []byte
	URITemplate           string
	Encoding              Encoding
}

type featureRecord1 struct {
	Tag              uint32
	FirstEntryIdx    uint16 // index into EntryRecords where this feature's window starts
	EntryRecordCount uint16
}

type entryRecord1 struct {
	FirstEntryIndex  uint16
	LastEntryIndex   uint16
	MappedEntryIndex uint16
}

// ParseFormat1 decodes a patch-map-format-1 table. numGlyphs is the font's
// reported glyph count, checked against the table's own GlyphCount per the
// format's validation contract.
func ParseFormat1(data []byte, numGlyphs uint32) (*Format1Table, error) {
	if len(data) < 27 {
		return nil, ErrMalformed
	}
	t := &Format1Table{}
	t.GlyphCount = binary.BigEndian.Uint32(data[0:4])
	if t.GlyphCount != numGlyphs {
		return nil, ErrMalformed
	}
	t.MaxEntryIndex = binary.BigEndian.Uint16(data[4:6])
	t.MaxGlyphMapEntryIndex = binary.BigEndian.Uint16(data[6:8])
	if t.MaxGlyphMapEntryIndex > t.MaxEntryIndex {
		return nil, ErrMalformed
	}
	glyphMapOff := binary.BigEndian.Uint32(data[8:12])
	featureMapOff := binary.BigEndian.Uint32(data[12:16])
	uriTemplateOff := binary.BigEndian.Uint32(data[16:20])
	uriTemplateLen := binary.BigEndian.Uint16(data[20:22])
	encodingByte := data[22]
	t.Encoding = Encoding(encodingByte)
	if t.Encoding < EncodingTableKeyedFull || t.Encoding > EncodingGlyphKeyed {
		return nil, ErrMalformed
	}
	appliedBitmapOff := binary.BigEndian.Uint32(data[23:27])

	if int(uriTemplateOff)+int(uriTemplateLen) > len(data) {
		return nil, ErrMalformed
	}
	uriBytes := data[uriTemplateOff : uriTemplateOff+uint32(uriTemplateLen)]
	if !utf8.Valid(uriBytes) {
		return nil, ErrMalformed
	}
	t.URITemplate = string(uriBytes)

	if appliedBitmapOff != 0 {
		if int(appliedBitmapOff)+2 > len(data) {
			return nil, ErrMalformed
		}
		bitmapLen := int(binary.BigEndian.Uint16(data[appliedBitmapOff:]))
		start := int(appliedBitmapOff) + 2
		if start+bitmapLen > len(data) {
			return nil, ErrMalformed
		}
		t.AppliedBitmapOffset = start
		t.AppliedBitmap = data[start : start+bitmapLen]
	}

	entryWidth := 1
	if t.MaxGlyphMapEntryIndex > 0xFF {
		entryWidth = 2
	}
	t.GlyphEntries = make([]uint16, numGlyphs)
	base := int(glyphMapOff) + 1 // entryIdSize byte precedes the array
	if base-1 >= len(data) {
		return nil, ErrMalformed
	}
	for g := uint32(0); g < numGlyphs; g++ {
		off := base + int(g)*entryWidth
		if off+entryWidth > len(data) {
			return nil, ErrMalformed
		}
		if entryWidth == 1 {
			t.GlyphEntries[g] = uint16(data[off])
		} else {
			t.GlyphEntries[g] = binary.BigEndian.Uint16(data[off:])
		}
	}

	if featureMapOff != 0 {
		if err := parseFeatureMap1(data, int(featureMapOff), t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func parseFeatureMap1(data []byte, off int, t *Format1Table) error {
	if off+2 > len(data) {
		return ErrMalformed
	}
	featureCount := binary.BigEndian.Uint16(data[off:])
	cursor := off + 2
	// entryIndexDeltaBits header byte, skip
	cursor++

	var lastTag uint32 = 0
	first := true
	entryCursor := 0
	for i := 0; i < int(featureCount); i++ {
		if cursor+8 > len(data) {
			return ErrMalformed
		}
		tag := binary.BigEndian.Uint32(data[cursor:])
		recordCount := binary.BigEndian.Uint16(data[cursor+4:])
		cursor += 8

		if !first && tag <= lastTag {
			// Out-of-order or duplicate feature record: silently skipped,
			// per the documented compatibility behavior.
			cursor += int(recordCount) * 6
			continue
		}
		first = false
		lastTag = tag

		fr := featureRecord1{Tag: tag, FirstEntryIdx: uint16(entryCursor), EntryRecordCount: recordCount}
		for j := 0; j < int(recordCount); j++ {
			if cursor+6 > len(data) {
				return ErrMalformed
			}
			er := entryRecord1{
				FirstEntryIndex:  binary.BigEndian.Uint16(data[cursor:]),
				LastEntryIndex:   binary.BigEndian.Uint16(data[cursor+2:]),
				MappedEntryIndex: binary.BigEndian.Uint16(data[cursor+4:]),
			}
			t.EntryRecords = append(t.EntryRecords, er)
			cursor += 6
			entryCursor++
		}
		t.FeatureRecords = append(t.FeatureRecords, fr)
	}
	return nil
}

// IntersectingPatches computes the accumulated, per-entry subset
// definitions and returns the list of resulting PatchURIs, excluding entry
// 0 ("already in font") and any entry already marked applied.
func (t *Format1Table) IntersectingPatches(subset *SubsetDefinition, lookup CmapLookup, source SourceTable) ([]PatchURI, error) {
	entries := map[uint16]*SubsetDefinition{}
	touchedCodepoints := map[uint16]map[uint32]bool{}

	cps, _ := subset.Codepoints.InclusiveIter()
	for _, cp := range cps {
		glyph, ok := lookup(cp)
		if !ok {
			continue
		}
		if int(glyph) >= len(t.GlyphEntries) {
			continue
		}
		entryIdx := t.GlyphEntries[glyph]
		if entryIdx == 0 || entryIdx > t.MaxGlyphMapEntryIndex {
			continue
		}
		def, ok := entries[entryIdx]
		if !ok {
			def = &SubsetDefinition{Codepoints: intset.NewU32(0x10FFFF), Features: map[uint32]bool{}}
			entries[entryIdx] = def
		}
		if t.Encoding != EncodingGlyphKeyed {
			def.Codepoints.Insert(cp)
			if touchedCodepoints[entryIdx] == nil {
				touchedCodepoints[entryIdx] = map[uint32]bool{}
			}
			touchedCodepoints[entryIdx][cp] = true
		}
	}

	for _, fr := range t.FeatureRecords {
		if !subset.Features[fr.Tag] {
			continue
		}
		for j := 0; j < int(fr.EntryRecordCount); j++ {
			er := t.EntryRecords[int(fr.FirstEntryIdx)+j]
			var merged *SubsetDefinition
			for e := er.FirstEntryIndex; e <= er.LastEntryIndex; e++ {
				if src, ok := entries[e]; ok {
					if merged == nil {
						merged = &SubsetDefinition{Codepoints: src.Codepoints.Clone(), Features: map[uint32]bool{}}
					} else {
						merged = unionSubsetDef(merged, src)
					}
				}
				if e == 0xFFFF {
					break
				}
			}
			if merged == nil {
				continue
			}
			merged.Features[fr.Tag] = true
			dst, ok := entries[er.MappedEntryIndex]
			if !ok {
				entries[er.MappedEntryIndex] = merged
			} else {
				entries[er.MappedEntryIndex] = unionSubsetDef(dst, merged)
			}
		}
	}

	var out []PatchURI
	idxs := make([]uint16, 0, len(entries))
	for idx := range entries {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

	for _, idx := range idxs {
		if idx == 0 || t.isApplied(idx) {
			continue
		}
		def := entries[idx]
		bitPos := t.AppliedBitmapOffset*8 + int(idx)
		out = append(out, PatchURI{
			Template:          t.URITemplate,
			ID:                uint16ToBytes(idx),
			Source:            source,
			ApplicationBitPos: bitPos,
			Encoding:          t.Encoding,
			Intersection: IntersectionInfo{
				IntersectingCodepoints: len(touchedCodepoints[idx]),
			},
		})
	}
	return out, nil
}

func (t *Format1Table) isApplied(entryIdx uint16) bool {
	bitIdx := int(entryIdx)
	byteOff := bitIdx / 8
	if byteOff >= len(t.AppliedBitmap) {
		return false
	}
	return t.AppliedBitmap[byteOff]&(1<<uint(bitIdx%8)) != 0
}

func uint16ToBytes(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}
