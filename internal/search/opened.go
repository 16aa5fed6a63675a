package search

import "math/bits"

// OpenedSet is a bitmask over valve ordinals. It is a value: With returns a
// new set and never touches the receiver, so sibling branches share a parent
// set freely.
type OpenedSet uint64

func (s OpenedSet) Has(ordinal int) bool {
	return s&(1<<uint(ordinal)) != 0
}

func (s OpenedSet) With(ordinal int) OpenedSet {
	return s | 1<<uint(ordinal)
}

func (s OpenedSet) Len() int {
	return bits.OnesCount64(uint64(s))
}
