package layout

import "github.com/boxesandglue/fontcore/otbin"

// VarIdx is a split (outer, inner) variation index into an
// ItemVariationStore.
type VarIdx struct {
	Outer, Inner uint16
}

// DeltaSetIndexMap maps a glyph or other domain index to a VarIdx.
type DeltaSetIndexMap struct {
	Map []VarIdx
}

// ParseDeltaSetIndexMap reads a DeltaSetIndexMap (format 0 or 1) at off.
func ParseDeltaSetIndexMap(data []byte, off int) (*DeltaSetIndexMap, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return nil, err
	}
	format, err := p.U8()
	if err != nil {
		return nil, err
	}
	entryFormat, err := p.U8()
	if err != nil {
		return nil, err
	}
	innerBits := int(entryFormat&0x0F) + 1
	entrySize := int(entryFormat>>4) + 1

	var mapCount int
	switch format {
	case 0:
		c, err := p.U16()
		if err != nil {
			return nil, err
		}
		mapCount = int(c)
	case 1:
		c, err := p.U32()
		if err != nil {
			return nil, err
		}
		mapCount = int(c)
	default:
		return nil, otbin.ErrInvalidTable
	}

	dm := &DeltaSetIndexMap{Map: make([]VarIdx, mapCount)}
	for i := 0; i < mapCount; i++ {
		raw, err := readUintN(p, entrySize)
		if err != nil {
			return nil, err
		}
		dm.Map[i] = VarIdx{
			Outer: uint16(raw >> uint(innerBits)),
			Inner: uint16(raw & (1<<uint(innerBits) - 1)),
		}
	}
	return dm, nil
}

func readUintN(p *otbin.Parser, n int) (uint32, error) {
	b, err := p.Bytes(n)
	if err != nil {
		return 0, err
	}
	var v uint32
	for _, x := range b {
		v = v<<8 | uint32(x)
	}
	return v, nil
}

// Serialize emits a DeltaSetIndexMap, picking format 0 when mapCount fits in
// 16 bits, else format 1; entry width is ceil((outerBits+innerBits)/8) and
// innerBits-1 is stored in entryFormat's low nibble.
func (dm *DeltaSetIndexMap) Serialize() []byte {
	var maxOuter, maxInner uint16
	for _, v := range dm.Map {
		if v.Outer > maxOuter {
			maxOuter = v.Outer
		}
		if v.Inner > maxInner {
			maxInner = v.Inner
		}
	}
	innerBits := bitWidth(uint32(maxInner))
	if innerBits == 0 {
		innerBits = 1
	}
	outerBits := bitWidth(uint32(maxOuter))
	if outerBits == 0 {
		outerBits = 1
	}
	entrySize := (outerBits + innerBits + 7) / 8
	if entrySize < 1 {
		entrySize = 1
	}
	if entrySize > 4 {
		entrySize = 4
	}
	entryFormat := byte((entrySize-1)<<4) | byte(innerBits-1)

	format := byte(0)
	if len(dm.Map) > 0xFFFF {
		format = 1
	}

	w := otbin.NewWriter(4 + len(dm.Map)*entrySize)
	w.U8(format)
	w.U8(entryFormat)
	if format == 0 {
		w.U16(uint16(len(dm.Map)))
	} else {
		w.U32(uint32(len(dm.Map)))
	}
	for _, v := range dm.Map {
		raw := uint32(v.Outer)<<uint(innerBits) | uint32(v.Inner)
		writeUintN(w, raw, entrySize)
	}
	return w.Bytes()
}

func writeUintN(w *otbin.Writer, v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		w.U8(byte(v >> uint(8*i)))
	}
}

func bitWidth(v uint32) int {
	n := 0
	for v != 0 {
		v >>= 1
		n++
	}
	return n
}
