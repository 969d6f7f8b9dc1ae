package layout

import "github.com/boxesandglue/fontcore/otbin"

// Lookup is a decoded Lookup table: its type, flags, and the byte ranges of
// its subtables (left as opaque spans; no subtable format is decoded in this
// package).
type Lookup struct {
	Type          uint16
	Flags         uint16
	SubtableSpans [][]byte
	MarkFilterSet uint16 // only meaningful when Flags&0x0010 != 0
}

// LookupList is the decoded top-level LookupList table.
type LookupList struct {
	Lookups []Lookup
}

// ParseLookupList reads a LookupList at off within data.
func ParseLookupList(data []byte, off int) (*LookupList, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return nil, err
	}
	count, err := p.U16()
	if err != nil {
		return nil, err
	}
	ll := &LookupList{}
	for i := 0; i < int(count); i++ {
		lookupOff, err := p.U16()
		if err != nil {
			return nil, err
		}
		l, err := parseLookup(data, off+int(lookupOff))
		if err != nil {
			return nil, err
		}
		ll.Lookups = append(ll.Lookups, l)
	}
	return ll, nil
}

func parseLookup(data []byte, off int) (Lookup, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return Lookup{}, err
	}
	typ, err := p.U16()
	if err != nil {
		return Lookup{}, err
	}
	flags, err := p.U16()
	if err != nil {
		return Lookup{}, err
	}
	subCount, err := p.U16()
	if err != nil {
		return Lookup{}, err
	}
	l := Lookup{Type: typ, Flags: flags}
	subOffs := make([]uint16, subCount)
	for i := range subOffs {
		so, err := p.U16()
		if err != nil {
			return Lookup{}, err
		}
		subOffs[i] = so
	}
	if flags&0x0010 != 0 {
		mfs, err := p.U16()
		if err != nil {
			return Lookup{}, err
		}
		l.MarkFilterSet = mfs
	}
	for _, so := range subOffs {
		// Subtable length is not self-described here, so each span runs from
		// the subtable's start to the end of data.
		l.SubtableSpans = append(l.SubtableSpans, data[off+int(so):])
	}
	return l, nil
}

// extensionTypeFor returns the extension lookup type of the table: 7 for
// GSUB, 9 for GPOS. typ is not consulted; every lookup type gets the same
// answer.
func extensionTypeFor(isGSUB bool, typ uint16) uint16 {
	if isGSUB {
		return 7
	}
	return 9
}
