package ift

import (
	"encoding/binary"

	"github.com/boxesandglue/fontcore/ot"
)

var (
	tagIFT  = ot.MakeTag('I', 'F', 'T', ' ')
	tagIFTX = ot.MakeTag('I', 'F', 'T', 'X')
)

const (
	tableFormat1 = 1
	tableFormat2 = 2
)

// IntersectingPatches reads the IFT and, if present, IFTX tables from font
// and returns every PatchURI whose entry intersects subset, across both
// tables.
func IntersectingPatches(font *ot.Font, subset *SubsetDefinition) ([]PatchURI, error) {
	var out []PatchURI

	if data, err := font.TableData(tagIFT); err == nil {
		patches, err := intersectingPatchesInTable(font, data, false, subset)
		if err != nil {
			return nil, err
		}
		out = append(out, patches...)
	}
	if data, err := font.TableData(tagIFTX); err == nil {
		patches, err := intersectingPatchesInTable(font, data, true, subset)
		if err != nil {
			return nil, err
		}
		out = append(out, patches...)
	}

	return out, nil
}

// intersectingPatchesInTable reads the common 20-byte IFT table header
// (format, reserved, compatibility id) and dispatches to the format 1 or
// format 2 body decoder.
func intersectingPatchesInTable(font *ot.Font, data []byte, isIFTX bool, subset *SubsetDefinition) ([]PatchURI, error) {
	if len(data) < 20 {
		return nil, ErrMalformed
	}
	var compatID [4]uint32
	for i := range compatID {
		compatID[i] = binary.BigEndian.Uint32(data[4+4*i:])
	}
	source := SourceTable{IsIFTX: isIFTX, CompatibilityID: compatID}

	format := data[0]
	body := data[20:]

	switch format {
	case tableFormat1:
		cmapData, err := font.TableData(ot.TagCmap)
		if err != nil {
			return nil, err
		}
		cmap, err := ot.ParseCmap(cmapData)
		if err != nil {
			return nil, err
		}
		lookup := func(cp uint32) (uint16, bool) {
			g, ok := cmap.Lookup(ot.Codepoint(cp))
			return uint16(g), ok
		}
		t, err := ParseFormat1(body, uint32(font.NumGlyphs()))
		if err != nil {
			return nil, err
		}
		return t.IntersectingPatches(subset, lookup, source)
	case tableFormat2:
		t, err := ParseFormat2(body)
		if err != nil {
			return nil, err
		}
		return t.IntersectingPatches(subset, source)
	default:
		return nil, ErrMalformed
	}
}
