package intset

import (
	"math/bits"
	"sort"
)

// pageBits is the number of bits (values) held in one page of the sparse
// bitmap.
const pageBits = 512
const pageWords = pageBits / 64

// page is a fixed-width bitmap of pageBits consecutive u32 values starting
// at key*pageBits.
type page struct {
	key   uint32
	words [pageWords]uint64
}

func (p *page) empty() bool {
	for _, w := range p.words {
		if w != 0 {
			return false
		}
	}
	return true
}

func (p *page) count() int {
	n := 0
	for _, w := range p.words {
		n += bits.OnesCount64(w)
	}
	return n
}

func (p *page) get(bit uint32) bool {
	return p.words[bit/64]&(uint64(1)<<(bit%64)) != 0
}

func (p *page) set(bit uint32) {
	p.words[bit/64] |= uint64(1) << (bit % 64)
}

func (p *page) clear(bit uint32) {
	p.words[bit/64] &^= uint64(1) << (bit % 64)
}

// bitSet is the u32-keyed sparse, page-addressed bitmap that backs IntSet[T]
// regardless of T: T's bijection to u32 (via a Domain) is applied at the
// edges, all storage and set algebra happens here.
type bitSet struct {
	// pages is sorted ascending by key; empty pages are never stored.
	pages []*page
	// exclusive mode inverts the meaning of every query: a bitSet in
	// exclusive mode stores the *removed* members of the full u32 universe.
	exclusive bool
}

func newBitSet() *bitSet { return &bitSet{} }

func allBitSet() *bitSet { return &bitSet{exclusive: true} }

func (s *bitSet) clone() *bitSet {
	pages := make([]*page, len(s.pages))
	for i, p := range s.pages {
		cp := *p
		pages[i] = &cp
	}
	return &bitSet{pages: pages, exclusive: s.exclusive}
}

func (s *bitSet) pageIndex(key uint32) (int, bool) {
	i := sort.Search(len(s.pages), func(i int) bool { return s.pages[i].key >= key })
	if i < len(s.pages) && s.pages[i].key == key {
		return i, true
	}
	return i, false
}

func (s *bitSet) getPage(key uint32) *page {
	i, ok := s.pageIndex(key)
	if !ok {
		return nil
	}
	return s.pages[i]
}

func (s *bitSet) getOrCreatePage(key uint32) *page {
	i, ok := s.pageIndex(key)
	if ok {
		return s.pages[i]
	}
	p := &page{key: key}
	s.pages = append(s.pages, nil)
	copy(s.pages[i+1:], s.pages[i:])
	s.pages[i] = p
	return p
}

func (s *bitSet) dropPageIfEmpty(key uint32) {
	i, ok := s.pageIndex(key)
	if !ok || !s.pages[i].empty() {
		return
	}
	s.pages = append(s.pages[:i], s.pages[i+1:]...)
}

// rawInsert sets v in the page structure (not mode-aware).
func (s *bitSet) rawInsert(v uint32) {
	key := v / pageBits
	s.getOrCreatePage(key).set(v % pageBits)
}

// rawRemove clears v in the page structure (not mode-aware).
func (s *bitSet) rawRemove(v uint32) {
	key := v / pageBits
	p := s.getPage(key)
	if p == nil {
		return
	}
	p.clear(v % pageBits)
	s.dropPageIfEmpty(key)
}

func (s *bitSet) rawContains(v uint32) bool {
	p := s.getPage(v / pageBits)
	if p == nil {
		return false
	}
	return p.get(v % pageBits)
}

// Insert/Remove/Contains are mode-aware: for an exclusive set, "insert"
// means "ensure present" which removes it from the stored removed-set.
func (s *bitSet) insert(v uint32) bool {
	already := s.contains(v)
	if s.exclusive {
		s.rawRemove(v)
	} else {
		s.rawInsert(v)
	}
	return !already
}

func (s *bitSet) remove(v uint32) bool {
	was := s.contains(v)
	if s.exclusive {
		s.rawInsert(v)
	} else {
		s.rawRemove(v)
	}
	return was
}

func (s *bitSet) contains(v uint32) bool {
	raw := s.rawContains(v)
	if s.exclusive {
		return !raw
	}
	return raw
}

func (s *bitSet) insertRange(lo, hi uint32) {
	if lo > hi {
		return
	}
	for v := lo; ; v++ {
		s.insert(v)
		if v == hi {
			break
		}
	}
}

func (s *bitSet) removeRange(lo, hi uint32) {
	if lo > hi {
		return
	}
	for v := lo; ; v++ {
		s.remove(v)
		if v == hi {
			break
		}
	}
}

// len reports the number of members for an inclusive set; for an exclusive
// set this would require knowing the universe size, so callers must not use
// len() on exclusive sets representing IntSet.All() without a bounded
// universe — see Set.Len, which handles this via the Domain's Max().
func (s *bitSet) rawLen() int {
	n := 0
	for _, p := range s.pages {
		n += p.count()
	}
	return n
}

func (s *bitSet) isEmptyRaw() bool { return len(s.pages) == 0 }

func (s *bitSet) invert() *bitSet {
	return &bitSet{pages: s.pages, exclusive: !s.exclusive}
}

func (s *bitSet) clear() *bitSet {
	return &bitSet{exclusive: false}
}

// union implements the four inclusive/exclusive mode combinations:
//
//	inc ∪ inc = inc (page union)
//	inc ∪ exc = exc (exc's removed pages minus inc's members, stays exclusive)
//	exc ∪ exc = exc (page intersection of the removed sets)
func (s *bitSet) union(o *bitSet) *bitSet {
	switch {
	case !s.exclusive && !o.exclusive:
		return &bitSet{pages: pageUnion(s.pages, o.pages), exclusive: false}
	case s.exclusive && o.exclusive:
		return &bitSet{pages: pageIntersect(s.pages, o.pages), exclusive: true}
	case !s.exclusive && o.exclusive:
		// exc \ inc, stays exclusive.
		return &bitSet{pages: pageDifference(o.pages, s.pages), exclusive: true}
	default: // s.exclusive && !o.exclusive
		return &bitSet{pages: pageDifference(s.pages, o.pages), exclusive: true}
	}
}

// intersect implements intersection using the identity a ∩ ¬b = a \ b for
// the cases involving an exclusive operand.
func (s *bitSet) intersect(o *bitSet) *bitSet {
	switch {
	case !s.exclusive && !o.exclusive:
		return &bitSet{pages: pageIntersect(s.pages, o.pages), exclusive: false}
	case s.exclusive && o.exclusive:
		return &bitSet{pages: pageUnion(s.pages, o.pages), exclusive: true}
	case !s.exclusive && o.exclusive:
		// a \ (removed-set of o) = a minus o's removed pages
		return &bitSet{pages: pageDifference(s.pages, o.pages), exclusive: false}
	default: // s.exclusive && !o.exclusive
		return &bitSet{pages: pageDifference(o.pages, s.pages), exclusive: false}
	}
}

func pageUnion(a, b []*page) []*page {
	var out []*page
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i].key < b[j].key):
			cp := *a[i]
			out = append(out, &cp)
			i++
		case i >= len(a) || b[j].key < a[i].key:
			cp := *b[j]
			out = append(out, &cp)
			j++
		default:
			cp := page{key: a[i].key}
			for w := range cp.words {
				cp.words[w] = a[i].words[w] | b[j].words[w]
			}
			if !cp.empty() {
				out = append(out, &cp)
			}
			i++
			j++
		}
	}
	return out
}

func pageIntersect(a, b []*page) []*page {
	var out []*page
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].key < b[j].key:
			i++
		case b[j].key < a[i].key:
			j++
		default:
			cp := page{key: a[i].key}
			for w := range cp.words {
				cp.words[w] = a[i].words[w] & b[j].words[w]
			}
			if !cp.empty() {
				out = append(out, &cp)
			}
			i++
			j++
		}
	}
	return out
}

// pageDifference computes a \ b.
func pageDifference(a, b []*page) []*page {
	var out []*page
	i, j := 0, 0
	for i < len(a) {
		switch {
		case j >= len(b) || a[i].key < b[j].key:
			cp := *a[i]
			out = append(out, &cp)
			i++
		case b[j].key < a[i].key:
			j++
		default:
			cp := page{key: a[i].key}
			for w := range cp.words {
				cp.words[w] = a[i].words[w] &^ b[j].words[w]
			}
			if !cp.empty() {
				out = append(out, &cp)
			}
			i++
			j++
		}
	}
	return out
}

func (s *bitSet) intersectsSet(o *bitSet) bool {
	switch {
	case !s.exclusive && !o.exclusive:
		i, j := 0, 0
		for i < len(s.pages) && j < len(o.pages) {
			switch {
			case s.pages[i].key < o.pages[j].key:
				i++
			case o.pages[j].key < s.pages[i].key:
				j++
			default:
				for w := range s.pages[i].words {
					if s.pages[i].words[w]&o.pages[j].words[w] != 0 {
						return true
					}
				}
				i++
				j++
			}
		}
		return false
	default:
		return !s.intersect(o).isEmptyRaw() || modeImpliesNonEmptyIntersection(s, o)
	}
}

// modeImpliesNonEmptyIntersection covers ¬A ∩ ¬B, which intersect() computes
// as a page union: that union is only empty when A and B together cover
// every u32, which isn't cheaply decidable from the sparse page lists alone.
// Treat it as non-empty, which matches how exclusive sets are actually used
// here (as IntSet.All() with a handful of removals, never as two
// near-complementary exclusive sets).
func modeImpliesNonEmptyIntersection(s, o *bitSet) bool {
	return s.exclusive && o.exclusive
}

// first and last scan the stored pages directly and are only meaningful for
// an inclusive bitSet; Set[T] routes exclusive-mode First/Last through the
// domain-bounded exclusiveRanges instead, since an exclusive set has no
// stored "first member" to scan for.
func (s *bitSet) first() (uint32, bool) {
	if len(s.pages) == 0 {
		return 0, false
	}
	p := s.pages[0]
	for i, w := range p.words {
		if w != 0 {
			return p.key*pageBits + uint32(i*64+bits.TrailingZeros64(w)), true
		}
	}
	return 0, false
}

func (s *bitSet) last() (uint32, bool) {
	if len(s.pages) == 0 {
		return 0, false
	}
	p := s.pages[len(s.pages)-1]
	for i := len(p.words) - 1; i >= 0; i-- {
		if p.words[i] != 0 {
			return p.key*pageBits + uint32(i*64+63-bits.LeadingZeros64(p.words[i])), true
		}
	}
	return 0, false
}
