package intset

import "golang.org/x/exp/constraints"

// Domain describes how a concrete element type T participates in an
// IntSet[T]: a total order, a bijection to u32 preserving that order,
// whether T's values map to a contiguous range of u32, and adjacency between
// consecutive T values for range merging.
//
// Go has no trait/typeclass mechanism to attach these capabilities directly
// to a type parameter, so they are supplied as a value (the strategy
// pattern) rather than inferred from T's own method set.
type Domain[T any] interface {
	// ToU32 maps a domain value to its order-preserving u32 representation.
	ToU32(v T) uint32
	// FromU32 is the inverse of ToU32; u must be a value ToU32 can produce.
	FromU32(u uint32) T
	// Contiguous reports whether every u32 in [0, Max()] corresponds to a
	// valid T value (no gaps in the bijection's range).
	Contiguous() bool
	// Max returns the largest u32 value any T in this domain maps to; it
	// bounds "all of T" so IntSet[T].All() never has to materialize a
	// 2^32-sized representation.
	Max() uint32
	// Adjacent reports whether b immediately follows a when walking T in
	// its own order, with no domain member in between. Used by IterRanges
	// to decide whether two consecutive range-iterator yields should be
	// merged into one reported range.
	Adjacent(a, b T) bool
}

// Uint32Domain is the Domain for plain integer-like types that map onto a
// contiguous range of u32 starting at 0 (glyph IDs, codepoints, feature
// indices, ...). It is the default most callers use.
type Uint32Domain struct {
	// MaxValue is the largest representable value (e.g. 0x10FFFF for Unicode
	// scalar values, 0xFFFF for a 16-bit glyph ID space).
	MaxValue uint32
}

func (d Uint32Domain) ToU32(v uint32) uint32   { return v }
func (d Uint32Domain) FromU32(u uint32) uint32 { return u }
func (d Uint32Domain) Contiguous() bool        { return true }
func (d Uint32Domain) Max() uint32             { return d.MaxValue }
func (d Uint32Domain) Adjacent(a, b uint32) bool {
	return b == a+1
}

// FullU32Domain is Uint32Domain spanning the entire u32 range.
var FullU32Domain = Uint32Domain{MaxValue: ^uint32(0)}

// IntegerDomain is a Domain for any built-in integer type T (glyph IDs as
// uint16, feature or lookup indices as int32, ...) that maps contiguously
// onto u32 starting at 0. Callers working with a narrower integer type than
// uint32 use this instead of writing a one-off Domain implementation.
type IntegerDomain[T constraints.Integer] struct {
	MaxValue T
}

func (d IntegerDomain[T]) ToU32(v T) uint32   { return uint32(v) }
func (d IntegerDomain[T]) FromU32(u uint32) T { return T(u) }
func (d IntegerDomain[T]) Contiguous() bool   { return true }
func (d IntegerDomain[T]) Max() uint32        { return uint32(d.MaxValue) }
func (d IntegerDomain[T]) Adjacent(a, b T) bool {
	return b == a+1
}
