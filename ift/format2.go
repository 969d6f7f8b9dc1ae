package ift

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/boxesandglue/fontcore/intset"
)

// format2EntryFlags bit positions within an entry's format-flags byte.
const (
	flagIDDeltaPresent     = 1 << 0
	flagCodepointsFormat   = 0x06 // 2-bit field, values 0-3, shifted right 1
	flagFeaturesPresent    = 1 << 3
	flagDesignSpacePresent = 1 << 4
	flagCopyIndicesPresent = 1 << 5
	flagIgnored            = 1 << 6
)

// Format2Entry is one self-delimited entry record.
type Format2Entry struct {
	Ignored     bool
	IDDelta     int32
	IDString    []byte
	Features    []uint32
	DesignSpace map[uint32]AxisRange
	Codepoints  *intset.Set[uint32]
	CopyIndices []int // entries this one's codepoint set extends, by forward-filled reference
	Encoding    Encoding
}

// Format2Table is a decoded patch-map-format-2 table.
type Format2Table struct {
	DefaultEncoding Encoding
	Entries         []Format2Entry
	URITemplate     string
}

// ParseFormat2 decodes a patch-map-format-2 table. The entry array is
// self-delimited: each entry's format-flags byte determines which optional
// fields follow it, so entries cannot be random-accessed without walking
// from the start.
func ParseFormat2(data []byte) (*Format2Table, error) {
	if len(data) < 15 {
		return nil, ErrMalformed
	}
	t := &Format2Table{}
	t.DefaultEncoding = Encoding(data[0])
	if t.DefaultEncoding < EncodingTableKeyedFull || t.DefaultEncoding > EncodingGlyphKeyed {
		return nil, ErrMalformed
	}
	entryCount := binary.BigEndian.Uint16(data[2:4])
	cursor := int(binary.BigEndian.Uint32(data[4:8]))
	uriTemplateOff := binary.BigEndian.Uint32(data[8:12])
	uriTemplateLen := binary.BigEndian.Uint16(data[12:14])
	if int(uriTemplateOff)+int(uriTemplateLen) > len(data) {
		return nil, ErrMalformed
	}
	uriBytes := data[uriTemplateOff : uriTemplateOff+uint32(uriTemplateLen)]
	if !utf8.Valid(uriBytes) {
		return nil, ErrMalformed
	}
	t.URITemplate = string(uriBytes)

	var lastID []byte

	for i := 0; i < int(entryCount); i++ {
		if cursor >= len(data) {
			return nil, ErrMalformed
		}
		flags := data[cursor]
		cursor++

		e := Format2Entry{Ignored: flags&flagIgnored != 0}

		if flags&flagIDDeltaPresent != 0 {
			if cursor+2 > len(data) {
				return nil, ErrMalformed
			}
			delta := int16(binary.BigEndian.Uint16(data[cursor:]))
			cursor += 2
			e.IDDelta = int32(delta)
		}

		if cursor+2 > len(data) {
			return nil, ErrMalformed
		}
		idLen := binary.BigEndian.Uint16(data[cursor:])
		cursor += 2
		var idStr []byte
		if idLen == 0xFFFF {
			// Absent length: reuse the previous entry's id string verbatim.
			idStr = lastID
		} else {
			if cursor+int(idLen) > len(data) {
				return nil, ErrMalformed
			}
			idStr = data[cursor : cursor+int(idLen)]
			cursor += int(idLen)
		}
		lastID = idStr
		e.IDString = idStr

		if flags&flagFeaturesPresent != 0 {
			if cursor+1 > len(data) {
				return nil, ErrMalformed
			}
			n := int(data[cursor])
			cursor++
			if cursor+4*n > len(data) {
				return nil, ErrMalformed
			}
			for j := 0; j < n; j++ {
				e.Features = append(e.Features, binary.BigEndian.Uint32(data[cursor:]))
				cursor += 4
			}
		}

		if flags&flagDesignSpacePresent != 0 {
			if cursor+1 > len(data) {
				return nil, ErrMalformed
			}
			n := int(data[cursor])
			cursor++
			e.DesignSpace = make(map[uint32]AxisRange, n)
			for j := 0; j < n; j++ {
				if cursor+8 > len(data) {
					return nil, ErrMalformed
				}
				axis := binary.BigEndian.Uint32(data[cursor:])
				min := f2dot14(int16(binary.BigEndian.Uint16(data[cursor+4:])))
				max := f2dot14(int16(binary.BigEndian.Uint16(data[cursor+6:])))
				cursor += 8
				e.DesignSpace[axis] = AxisRange{Min: min, Max: max}
			}
		}

		if flags&flagCopyIndicesPresent != 0 {
			if cursor+1 > len(data) {
				return nil, ErrMalformed
			}
			n := int(data[cursor])
			cursor++
			if cursor+2*n > len(data) {
				return nil, ErrMalformed
			}
			for j := 0; j < n; j++ {
				e.CopyIndices = append(e.CopyIndices, int(binary.BigEndian.Uint16(data[cursor:])))
				cursor += 2
			}
		}

		cpFormat := (flags & flagCodepointsFormat) >> 1
		cs, newCursor, err := parseFormat2Codepoints(data, cursor, cpFormat)
		if err != nil {
			return nil, err
		}
		cursor = newCursor
		e.Codepoints = cs

		for _, ci := range e.CopyIndices {
			if ci < 0 || ci >= len(t.Entries) {
				return nil, ErrMalformed
			}
			e.Codepoints = e.Codepoints.Union(t.Entries[ci].Codepoints)
		}

		t.Entries = append(t.Entries, e)
	}
	return t, nil
}

// f2dot14 converts a 16-bit 2.14 fixed-point value (the font format used for
// normalized variation coordinates) to float64.
func f2dot14(v int16) float64 {
	return float64(v) / 16384.0
}

// parseFormat2Codepoints reads an entry's codepoint set. Format 0 means no
// codepoints (an empty set). Formats 1, 2 and 3 are all read the same way:
// a u32 byte length followed by a sparse bit set bounded by 0x10FFFF; no
// bias is read or applied for any of them.
func parseFormat2Codepoints(data []byte, cursor int, format byte) (*intset.Set[uint32], int, error) {
	switch format {
	case 0:
		return intset.NewU32(0x10FFFF), cursor, nil
	case 1, 2, 3:
		if cursor+4 > len(data) {
			return nil, 0, ErrMalformed
		}
		length := int(binary.BigEndian.Uint32(data[cursor:]))
		cursor += 4
		if cursor+length > len(data) {
			return nil, 0, ErrMalformed
		}
		set, _, err := intset.DecodeSparseBitSet(data[cursor:cursor+length], 0x10FFFF)
		if err != nil {
			return nil, 0, err
		}
		cursor += length
		return set, cursor, nil
	default:
		return nil, 0, ErrMalformed
	}
}

// Intersects reports whether subset's codepoints, features and axis ranges
// all intersect the entry's own (AND combined across categories; an
// ignored entry never intersects).
func (e *Format2Entry) Intersects(subset *SubsetDefinition) bool {
	if e.Ignored {
		return false
	}
	if e.Codepoints != nil && e.Codepoints.Len() > 0 {
		if !e.Codepoints.IntersectsSet(subset.Codepoints) {
			return false
		}
	}
	if len(e.Features) > 0 {
		matched := false
		for _, f := range e.Features {
			if subset.Features[f] {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for axis, want := range e.DesignSpace {
		ranges, ok := subset.AxisRanges[axis]
		if !ok {
			continue
		}
		matched := false
		for _, r := range ranges {
			if want.overlaps(r) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// IntersectingPatches returns a PatchURI for every non-ignored entry that
// intersects subset. CopyIndices that reference an entry occurring later in
// the array are a decode error: the format requires copy targets to have
// already been seen.
func (t *Format2Table) IntersectingPatches(subset *SubsetDefinition, source SourceTable) ([]PatchURI, error) {
	var out []PatchURI
	for i := range t.Entries {
		e := &t.Entries[i]
		for _, ci := range e.CopyIndices {
			if ci >= i {
				return nil, ErrMalformed
			}
		}
		if !e.Intersects(subset) {
			continue
		}
		enc := e.Encoding
		if enc == 0 {
			enc = t.DefaultEncoding
		}
		id, err := applyIDDelta(e.IDString, e.IDDelta)
		if err != nil {
			return nil, err
		}
		out = append(out, PatchURI{
			Template: t.URITemplate,
			ID:       id,
			Source:   source,
			Encoding: enc,
		})
	}
	return out, nil
}

// applyIDDelta treats idString as a big-endian unsigned integer and adds
// delta to it, returning an error if the result would be negative or would
// need more bytes than idString already has (both are malformed-table
// conditions, not legitimate patch ids).
func applyIDDelta(idString []byte, delta int32) ([]byte, error) {
	if delta == 0 {
		return idString, nil
	}
	var v int64
	for _, b := range idString {
		v = v<<8 | int64(b)
	}
	v += int64(delta)
	if v < 0 {
		return nil, ErrMalformed
	}
	out := make([]byte, len(idString))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	if v != 0 {
		return nil, ErrMalformed
	}
	return out, nil
}
