// Package intset implements Set[T], a sparse, ordered, invertible integer
// set, and the sparse-bit-set wire codec used by the Incremental Font
// Transfer patch map to encode codepoint and feature-index sets.
package intset

import "hash/fnv"

// Set is a sparse, ordered, invertible set of T, backed by a page-addressed
// bitmap. A Set is either inclusive (its pages list the members) or
// exclusive (its pages list what's removed from Domain's universe).
type Set[T any] struct {
	dom  Domain[T]
	bits *bitSet
}

// Empty returns an empty inclusive set over dom.
func Empty[T any](dom Domain[T]) *Set[T] {
	return &Set[T]{dom: dom, bits: newBitSet()}
}

// All returns a set containing every value in dom's universe, represented
// exclusively (no members materialized).
func All[T any](dom Domain[T]) *Set[T] {
	return &Set[T]{dom: dom, bits: allBitSet()}
}

// NewU32 is a convenience constructor for the common case of a plain u32
// domain bounded by max.
func NewU32(max uint32) *Set[uint32] {
	return Empty[uint32](Uint32Domain{MaxValue: max})
}

// Clone returns a deep, independent copy.
func (s *Set[T]) Clone() *Set[T] {
	return &Set[T]{dom: s.dom, bits: s.bits.clone()}
}

// Domain returns the domain this set was constructed with.
func (s *Set[T]) Domain() Domain[T] { return s.dom }

// IsExclusive reports whether the set is stored in exclusive mode.
func (s *Set[T]) IsExclusive() bool { return s.bits.exclusive }

// Insert adds v to the set. Returns true if v was not already present.
func (s *Set[T]) Insert(v T) bool { return s.bits.insert(s.dom.ToU32(v)) }

// Remove removes v from the set. Returns true if v was present.
func (s *Set[T]) Remove(v T) bool { return s.bits.remove(s.dom.ToU32(v)) }

// InsertRange inserts every domain value in [lo, hi] (inclusive, in u32
// terms) present in the domain.
func (s *Set[T]) InsertRange(lo, hi T) {
	s.bits.insertRange(s.dom.ToU32(lo), s.dom.ToU32(hi))
}

// RemoveRange removes every value in [lo, hi].
func (s *Set[T]) RemoveRange(lo, hi T) {
	s.bits.removeRange(s.dom.ToU32(lo), s.dom.ToU32(hi))
}

// Extend inserts every value from a sorted-ascending sequence; callers that
// cannot guarantee order must use ExtendUnsorted. Knowing the input is
// sorted lets runs of consecutive u32 values collapse into a single
// InsertRange instead of one insert per value.
func (s *Set[T]) Extend(values []T) {
	i := 0
	for i < len(values) {
		runStart := i
		i++
		for i < len(values) && s.dom.ToU32(values[i]) == s.dom.ToU32(values[i-1])+1 {
			i++
		}
		s.InsertRange(values[runStart], values[i-1])
	}
}

// ExtendUnsorted inserts every value regardless of input order.
func (s *Set[T]) ExtendUnsorted(values []T) {
	for _, v := range values {
		s.Insert(v)
	}
}

// RemoveAll removes every value in values from the set.
func (s *Set[T]) RemoveAll(values []T) {
	for _, v := range values {
		s.Remove(v)
	}
}

// Contains reports whether v is a member.
func (s *Set[T]) Contains(v T) bool { return s.bits.contains(s.dom.ToU32(v)) }

// Len returns the number of members. For an exclusive set this is derived
// arithmetically from the domain's bounded universe size (Max()+1 minus
// removed count) rather than by enumerating members.
func (s *Set[T]) Len() int {
	if !s.bits.exclusive {
		return s.bits.rawLen()
	}
	universe := int64(s.dom.Max()) + 1
	return int(universe - int64(s.bits.rawLen()))
}

// IsEmpty reports whether the set has no members.
func (s *Set[T]) IsEmpty() bool {
	if !s.bits.exclusive {
		return s.bits.isEmptyRaw()
	}
	return s.Len() == 0
}

// First returns the smallest member, if any.
func (s *Set[T]) First() (T, bool) {
	if s.bits.exclusive {
		v, ok := s.firstExclusive()
		return s.dom.FromU32(v), ok
	}
	v, ok := s.bits.first()
	return s.dom.FromU32(v), ok
}

func (s *Set[T]) firstExclusive() (uint32, bool) {
	ranges := s.bits.exclusiveRanges(s.dom.Max())
	if len(ranges) == 0 {
		return 0, false
	}
	return ranges[0].Lo, true
}

// Last returns the largest member, if any.
func (s *Set[T]) Last() (T, bool) {
	if s.bits.exclusive {
		ranges := s.bits.exclusiveRanges(s.dom.Max())
		if len(ranges) == 0 {
			return s.dom.FromU32(0), false
		}
		return s.dom.FromU32(ranges[len(ranges)-1].Hi), true
	}
	v, ok := s.bits.last()
	return s.dom.FromU32(v), ok
}

// Invert flips inclusive<->exclusive in place without touching pages (the
// stored pages keep their bits; only the interpretation mode changes).
func (s *Set[T]) Invert() { s.bits = s.bits.invert() }

// Inverted returns an inverted copy, leaving the receiver unchanged.
func (s *Set[T]) Inverted() *Set[T] {
	c := s.Clone()
	c.Invert()
	return c
}

// Clear empties the set, leaving it inclusive.
func (s *Set[T]) Clear() { s.bits = s.bits.clear() }

// Union returns s ∪ other.
func (s *Set[T]) Union(other *Set[T]) *Set[T] {
	return &Set[T]{dom: s.dom, bits: s.bits.union(other.bits)}
}

// Intersect returns s ∩ other.
func (s *Set[T]) Intersect(other *Set[T]) *Set[T] {
	return &Set[T]{dom: s.dom, bits: s.bits.intersect(other.bits)}
}

// IntersectsSet reports whether s and other share any member.
func (s *Set[T]) IntersectsSet(other *Set[T]) bool {
	if !s.bits.exclusive && !other.bits.exclusive {
		return s.bits.intersectsSet(other.bits)
	}
	return !s.Intersect(other).IsEmpty()
}

// IntersectsRange reports whether s has any member in [lo, hi].
func (s *Set[T]) IntersectsRange(lo, hi T) bool {
	r := Empty[T](s.dom)
	r.InsertRange(lo, hi)
	return s.IntersectsSet(r)
}

// Iter returns the members in ascending order.
func (s *Set[T]) Iter() []T {
	var out []T
	for _, r := range s.ranges() {
		for v := r.Lo; ; v++ {
			out = append(out, s.dom.FromU32(v))
			if v == r.Hi {
				break
			}
		}
	}
	return out
}

// IterAfter returns members strictly greater than v, in ascending order.
func (s *Set[T]) IterAfter(v T) []T {
	after := s.dom.ToU32(v)
	var out []T
	for _, r := range s.ranges() {
		if r.Hi <= after {
			continue
		}
		lo := r.Lo
		if lo <= after {
			lo = after + 1
		}
		for x := lo; ; x++ {
			out = append(out, s.dom.FromU32(x))
			if x == r.Hi {
				break
			}
		}
	}
	return out
}

// Range is an inclusive [Lo, Hi] range of domain values, as produced by
// IterRanges.
type Range[T any] struct {
	Lo, Hi T
}

// IterRanges returns the members grouped into merged ranges, merging two
// consecutive raw ranges when the domain declares their endpoints adjacent
// in T's own order. This lets a discontinuous domain (e.g. one that only
// maps even integers to u32) report {4,6,8} as a single range rather than
// three singletons, while a domain whose T already equals its u32 form
// (Adjacent(a,b) = b==a+1) sees no extra merging beyond the raw u32 ranges.
func (s *Set[T]) IterRanges() []Range[T] {
	raw := s.ranges()
	var out []Range[T]
	for _, r := range raw {
		lo, hi := s.dom.FromU32(r.Lo), s.dom.FromU32(r.Hi)
		if n := len(out); n > 0 && s.dom.Adjacent(out[n-1].Hi, lo) {
			out[n-1].Hi = hi
			continue
		}
		out = append(out, Range[T]{lo, hi})
	}
	return out
}

// InclusiveIter returns the members in ascending order, or (nil, false) if
// the set is exclusive.
func (s *Set[T]) InclusiveIter() ([]T, bool) {
	if s.bits.exclusive {
		return nil, false
	}
	return s.Iter(), true
}

func (s *Set[T]) ranges() []valueRange {
	return s.bits.rawRanges(s.dom.Max())
}

// Equal compares effective membership: an inclusive and an exclusive set
// can be equal if they denote the same members.
func (s *Set[T]) Equal(other *Set[T]) bool {
	if s.bits.exclusive == other.bits.exclusive {
		return equalPages(s.bits.pages, other.bits.pages)
	}
	if s.Len() != other.Len() {
		return false
	}
	a, b := s.ranges(), other.ranges()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalPages(a, b []*page) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].key != b[i].key || a[i].words != b[i].words {
			return false
		}
	}
	return true
}

// Hash returns a hash derived from the set's range iteration, so that equal
// sets (per Equal, regardless of inclusive/exclusive mode) hash equal.
func (s *Set[T]) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, r := range s.ranges() {
		putU32(buf[0:4], r.Lo)
		putU32(buf[4:8], r.Hi)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
