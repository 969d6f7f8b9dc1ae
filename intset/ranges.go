package intset

// valueRange is an inclusive [Lo, Hi] range of raw u32 values.
type valueRange struct {
	Lo, Hi uint32
}

// rawRanges returns the sorted, merged list of raw (mode-resolved) member
// ranges within [0, max], inclusive. For an inclusive bitSet this only
// visits stored (sparse) pages; for an exclusive bitSet it walks the stored
// removed-pages once and infers the kept gaps between them, bounded by the
// domain's Max() rather than by 2^32.
func (s *bitSet) rawRanges(max uint32) []valueRange {
	if s.exclusive {
		return s.exclusiveRanges(max)
	}
	return s.inclusiveRanges(max)
}

func (s *bitSet) inclusiveRanges(max uint32) []valueRange {
	var out []valueRange
	for _, p := range s.pages {
		base := p.key * pageBits
		if base > max {
			break
		}
		hiBit := pageBits - 1
		if base+uint32(hiBit) > max {
			hiBit = int(max - base)
		}
		for _, r := range pageRuns(p, hiBit, true) {
			appendMerged(&out, valueRange{base + r.Lo, base + r.Hi})
		}
	}
	return out
}

func (s *bitSet) exclusiveRanges(max uint32) []valueRange {
	var out []valueRange
	var cursor uint32 // next unvisited value
	maxKey := max / pageBits
	for _, p := range s.pages {
		if p.key > maxKey {
			break
		}
		base := p.key * pageBits
		if base > cursor {
			appendMerged(&out, valueRange{cursor, base - 1})
		}
		hiBit := pageBits - 1
		if base+uint32(hiBit) > max {
			hiBit = int(max - base)
		}
		for _, r := range pageRuns(p, hiBit, false) {
			appendMerged(&out, valueRange{base + r.Lo, base + r.Hi})
		}
		cursor = base + uint32(hiBit) + 1
		if base+pageBits-1 > max {
			cursor = max + 1
		}
	}
	if cursor <= max {
		appendMerged(&out, valueRange{cursor, max})
	}
	return out
}

// appendMerged appends r to out, merging with the previous entry if the two
// are contiguous.
func appendMerged(out *[]valueRange, r valueRange) {
	if r.Lo > r.Hi {
		return
	}
	if n := len(*out); n > 0 && (*out)[n-1].Hi+1 == r.Lo {
		(*out)[n-1].Hi = r.Hi
		return
	}
	*out = append(*out, r)
}

// pageRuns scans bit positions [0, maxBit] of p (local page-relative bit
// indices) for runs where the bit equals wantSet, returning them as local
// [lo, hi] ranges.
func pageRuns(p *page, maxBit int, wantSet bool) []valueRange {
	var out []valueRange
	open := false
	var lo int
	for bit := 0; bit <= maxBit; bit++ {
		set := p.words[bit/64]&(uint64(1)<<(uint(bit)%64)) != 0
		if set == wantSet {
			if !open {
				open = true
				lo = bit
			}
		} else if open {
			out = append(out, valueRange{uint32(lo), uint32(bit - 1)})
			open = false
		}
	}
	if open {
		out = append(out, valueRange{uint32(lo), uint32(maxBit)})
	}
	return out
}
