package model

// ChildCount is the number of child windows a controller keeps tiled.
const ChildCount = 4

// ChildSet is the ordered set of managed child window handles. The last
// element is the top slot: it is focused last when children are raised.
type ChildSet []Handle

// Contains reports whether h is in the set.
func (s ChildSet) Contains(h Handle) bool {
	for _, id := range s {
		if id == h {
			return true
		}
	}
	return false
}

// Without returns a copy of the set with every occurrence of h removed.
func (s ChildSet) Without(h Handle) ChildSet {
	out := make(ChildSet, 0, len(s))
	for _, id := range s {
		if id != h {
			out = append(out, id)
		}
	}
	return out
}

// Retain returns the handles present in live, preserving the set's order.
func (s ChildSet) Retain(live map[Handle]bool) ChildSet {
	out := make(ChildSet, 0, len(s))
	for _, id := range s {
		if live[id] {
			out = append(out, id)
		}
	}
	return out
}

// Clone returns an independent copy of the set.
func (s ChildSet) Clone() ChildSet {
	if s == nil {
		return nil
	}
	out := make(ChildSet, len(s))
	copy(out, s)
	return out
}

// Complete reports whether the set holds a full complement of children.
func (s ChildSet) Complete() bool {
	return len(s) >= ChildCount
}
