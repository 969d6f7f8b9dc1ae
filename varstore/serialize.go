package varstore

import (
	"encoding/binary"
	"errors"
	"sort"
)

// ErrMalformed reports a structurally invalid ItemVariationStore.
var ErrMalformed = errors.New("varstore: malformed ItemVariationStore")

// Parse decodes a format-1 ItemVariationStore, using axisTags (in fvar
// axis order) to translate the wire region list's positional F2Dot14
// triples into tagged Regions.
func Parse(data []byte, axisTags []string) (*ItemVariationStore, error) {
	if len(data) < 8 {
		return nil, ErrMalformed
	}
	format := binary.BigEndian.Uint16(data[0:])
	if format != 1 {
		return nil, ErrMalformed
	}

	regionListOff := binary.BigEndian.Uint32(data[2:])
	dataSetCount := int(binary.BigEndian.Uint16(data[6:]))
	if len(data) < 8+dataSetCount*4 {
		return nil, ErrMalformed
	}

	if int(regionListOff) >= len(data) {
		return nil, ErrMalformed
	}
	regions, err := parseRegionList(data[regionListOff:], axisTags)
	if err != nil {
		return nil, err
	}

	varData := make([]*VarData, dataSetCount)
	for i := 0; i < dataSetCount; i++ {
		off := binary.BigEndian.Uint32(data[8+i*4:])
		if int(off) >= len(data) {
			return nil, ErrMalformed
		}
		vd, err := parseVarData(data[off:], regions)
		if err != nil {
			return nil, err
		}
		varData[i] = vd
	}

	return &ItemVariationStore{Regions: regions, VarData: varData}, nil
}

// f2dot14 converts a 16-bit 2.14 fixed-point value to float64.
func f2dot14(v int16) float64 {
	return float64(v) / 16384.0
}

func parseRegionList(data []byte, axisTags []string) ([]Region, error) {
	if len(data) < 4 {
		return nil, ErrMalformed
	}
	axisCount := int(binary.BigEndian.Uint16(data[0:]))
	regionCount := int(binary.BigEndian.Uint16(data[2:]))
	if axisCount > len(axisTags) {
		return nil, ErrMalformed
	}
	if len(data) < 4+regionCount*axisCount*6 {
		return nil, ErrMalformed
	}

	regions := make([]Region, regionCount)
	for r := 0; r < regionCount; r++ {
		reg := make(Region, axisCount)
		base := 4 + r*axisCount*6
		for a := 0; a < axisCount; a++ {
			off := base + a*6
			min := f2dot14(int16(binary.BigEndian.Uint16(data[off:])))
			peak := f2dot14(int16(binary.BigEndian.Uint16(data[off+2:])))
			max := f2dot14(int16(binary.BigEndian.Uint16(data[off+4:])))
			tent := Triple{Min: min, Peak: peak, Max: max}
			if !tent.isDefault() {
				reg[axisTags[a]] = tent
			}
		}
		regions[r] = reg
	}
	return regions, nil
}

func parseVarData(data []byte, regions []Region) (*VarData, error) {
	if len(data) < 6 {
		return nil, ErrMalformed
	}
	itemCount := int(binary.BigEndian.Uint16(data[0:]))
	wordSizeCount := binary.BigEndian.Uint16(data[2:])
	regionIdxCount := int(binary.BigEndian.Uint16(data[4:]))

	longWords := wordSizeCount&0x8000 != 0
	wordCount := int(wordSizeCount & 0x7FFF)
	if wordCount > regionIdxCount {
		return nil, ErrMalformed
	}

	if len(data) < 6+regionIdxCount*2 {
		return nil, ErrMalformed
	}
	regionIndices := make([]int, regionIdxCount)
	for i := range regionIndices {
		regionIndices[i] = int(binary.BigEndian.Uint16(data[6+i*2:]))
		if regionIndices[i] >= len(regions) {
			return nil, ErrMalformed
		}
	}

	var rowSize int
	if longWords {
		rowSize = wordCount*4 + (regionIdxCount-wordCount)*2
	} else {
		rowSize = wordCount*2 + (regionIdxCount - wordCount)
	}

	rowsStart := 6 + regionIdxCount*2
	if len(data) < rowsStart+itemCount*rowSize {
		return nil, ErrMalformed
	}

	tuples := make([]*TupleDelta, regionIdxCount)
	for c, regionIdx := range regionIndices {
		tuples[c] = &TupleDelta{Region: regions[regionIdx].clone(), DeltaX: make([]float64, itemCount)}
	}

	for item := 0; item < itemCount; item++ {
		row := data[rowsStart+item*rowSize:]
		for c := 0; c < regionIdxCount; c++ {
			var v int32
			if longWords {
				if c < wordCount {
					v = int32(binary.BigEndian.Uint32(row[c*4:]))
				} else {
					v = int32(int16(binary.BigEndian.Uint16(row[wordCount*4+(c-wordCount)*2:])))
				}
			} else {
				if c < wordCount {
					v = int32(int16(binary.BigEndian.Uint16(row[c*2:])))
				} else {
					v = int32(int8(row[wordCount*2+(c-wordCount)]))
				}
			}
			tuples[c].DeltaX[item] = float64(v)
		}
	}

	return &VarData{ItemCount: itemCount, Tuples: tuples}, nil
}

// Serialize encodes store back into a format-1 ItemVariationStore, first
// running the row-encoding optimization pass and assigning fresh varidxs.
// It returns the wire bytes and the old-to-new varidx remap table needed
// to rewrite any glyph table that references these variation indices.
func Serialize(store *ItemVariationStore) ([]byte, map[VarIdx]uint32, error) {
	axisTags := retainedAxes(store.Regions)
	regionIndexOf := make(map[string]int, len(store.Regions))
	for i, r := range store.Regions {
		regionIndexOf[regionKey(r)] = i
	}

	encs := buildEncodings(store, regionIndexOf)
	encs = optimizeEncodings(encs)

	remap := make(map[VarIdx]uint32)
	varDataBlobs := make([][]byte, len(encs))
	for major, enc := range encs {
		blob := serializeEncoding(enc)
		varDataBlobs[major] = blob
		for inner, src := range enc.sourceVarIdx {
			if allZeroRow(enc.rows[inner]) {
				remap[src] = NoVariation
			} else {
				remap[src] = packVarIdx(VarIdx{Outer: uint16(major), Inner: uint16(inner)})
			}
		}
	}

	regionListBlob := serializeRegionList(store.Regions, axisTags)

	header := make([]byte, 8+len(encs)*4)
	binary.BigEndian.PutUint16(header[0:], 1)
	regionListOff := uint32(len(header))
	binary.BigEndian.PutUint32(header[2:], regionListOff)
	binary.BigEndian.PutUint16(header[6:], uint16(len(encs)))

	out := append([]byte(nil), header...)
	out = append(out, regionListBlob...)
	dataSetOffsets := make([]uint32, len(encs))
	for i, blob := range varDataBlobs {
		dataSetOffsets[i] = uint32(len(out))
		out = append(out, blob...)
	}
	for i, off := range dataSetOffsets {
		binary.BigEndian.PutUint32(out[8+i*4:], off)
	}

	return out, remap, nil
}

func retainedAxes(regions []Region) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, r := range regions {
		for axis := range r {
			if !seen[axis] {
				seen[axis] = true
				tags = append(tags, axis)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

func serializeRegionList(regions []Region, axisTags []string) []byte {
	buf := make([]byte, 4+len(regions)*len(axisTags)*6)
	binary.BigEndian.PutUint16(buf[0:], uint16(len(axisTags)))
	binary.BigEndian.PutUint16(buf[2:], uint16(len(regions)))
	for r, region := range regions {
		base := 4 + r*len(axisTags)*6
		for a, tag := range axisTags {
			t := region[tag]
			off := base + a*6
			binary.BigEndian.PutUint16(buf[off:], uint16(int16(t.Min*16384)))
			binary.BigEndian.PutUint16(buf[off+2:], uint16(int16(t.Peak*16384)))
			binary.BigEndian.PutUint16(buf[off+4:], uint16(int16(t.Max*16384)))
		}
	}
	return buf
}

func allZeroRow(row []int32) bool {
	for _, v := range row {
		if v != 0 {
			return false
		}
	}
	return true
}

// serializeEncoding writes one ItemVariationData subtable. OpenType packs
// the wide-delta columns before the narrow ones and records only a count,
// so columns are first reordered by descending width (stable, to keep a
// deterministic layout across runs).
func serializeEncoding(enc *encoding) []byte {
	order := make([]int, len(enc.widths))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return enc.widths[order[a]] > enc.widths[order[b]] })

	widths := make([]int, len(order))
	regionIndices := make([]int, len(order))
	for i, col := range order {
		widths[i] = enc.widths[col]
		regionIndices[i] = enc.regionIndices[col]
	}
	rows := make([][]int32, len(enc.rows))
	for r, row := range enc.rows {
		newRow := make([]int32, len(order))
		for i, col := range order {
			newRow[i] = row[col]
		}
		rows[r] = newRow
	}

	wordCount := 0
	longWords := false
	for _, w := range widths {
		if w == 4 {
			longWords = true
		}
	}
	for _, w := range widths {
		if longWords {
			if w == 4 {
				wordCount++
			}
		} else if w == 2 {
			wordCount++
		}
	}

	regionIdxCount := len(regionIndices)
	itemCount := len(rows)

	var rowSize int
	if longWords {
		rowSize = wordCount*4 + (regionIdxCount-wordCount)*2
	} else {
		rowSize = wordCount*2 + (regionIdxCount - wordCount)
	}

	header := make([]byte, 6+regionIdxCount*2)
	binary.BigEndian.PutUint16(header[0:], uint16(itemCount))
	wsc := uint16(wordCount)
	if longWords {
		wsc |= 0x8000
	}
	binary.BigEndian.PutUint16(header[2:], wsc)
	binary.BigEndian.PutUint16(header[4:], uint16(regionIdxCount))
	for i, ri := range regionIndices {
		binary.BigEndian.PutUint16(header[6+i*2:], uint16(ri))
	}

	out := append([]byte(nil), header...)
	for _, row := range rows {
		rowBuf := make([]byte, rowSize)
		for c, v := range row {
			if longWords {
				if c < wordCount {
					binary.BigEndian.PutUint32(rowBuf[c*4:], uint32(v))
				} else {
					binary.BigEndian.PutUint16(rowBuf[wordCount*4+(c-wordCount)*2:], uint16(int16(v)))
				}
			} else {
				if c < wordCount {
					binary.BigEndian.PutUint16(rowBuf[c*2:], uint16(int16(v)))
				} else {
					rowBuf[wordCount*2+(c-wordCount)] = byte(int8(v))
				}
			}
		}
		out = append(out, rowBuf...)
	}

	return out
}
