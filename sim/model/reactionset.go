package model

// A ReactionSet is a set of reactions that remembers insertion order, so that
// iterating over it is deterministic.
type ReactionSet struct {
	order []Reaction
	index map[Reaction]int
}

// NewReactionSet creates a set holding the given reactions.
func NewReactionSet(reactions ...Reaction) *ReactionSet {
	s := &ReactionSet{
		index: make(map[Reaction]int, len(reactions)),
	}

	for _, r := range reactions {
		s.Add(r)
	}

	return s
}

// Add inserts a reaction and reports whether it was not in the set yet.
func (s *ReactionSet) Add(r Reaction) bool {
	if s.index == nil {
		s.index = make(map[Reaction]int)
	}

	if _, found := s.index[r]; found {
		return false
	}

	s.index[r] = len(s.order)
	s.order = append(s.order, r)

	return true
}

// Remove deletes a reaction and reports whether it was in the set.
func (s *ReactionSet) Remove(r Reaction) bool {
	i, found := s.index[r]
	if !found {
		return false
	}

	copy(s.order[i:], s.order[i+1:])
	s.order = s.order[:len(s.order)-1]
	delete(s.index, r)

	for j := i; j < len(s.order); j++ {
		s.index[s.order[j]] = j
	}

	return true
}

// Contains tells if the reaction is in the set.
func (s *ReactionSet) Contains(r Reaction) bool {
	if s == nil {
		return false
	}

	_, found := s.index[r]

	return found
}

// Len returns the number of reactions in the set.
func (s *ReactionSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.order)
}

// Union adds all the reactions of other into s.
func (s *ReactionSet) Union(other *ReactionSet) *ReactionSet {
	if other == nil {
		return s
	}

	for _, r := range other.order {
		s.Add(r)
	}

	return s
}

// Slice returns the reactions in insertion order. The returned slice must not
// be modified.
func (s *ReactionSet) Slice() []Reaction {
	if s == nil {
		return nil
	}

	return s.order
}

// Clone returns an independent copy of the set.
func (s *ReactionSet) Clone() *ReactionSet {
	if s == nil {
		return NewReactionSet()
	}

	return NewReactionSet(s.order...)
}
