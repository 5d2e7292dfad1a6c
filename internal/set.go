package internal

// Set is an unordered collection of unique comparable values. It is not safe
// for concurrent use.
type Set[T comparable] struct {
	m map[T]struct{}
}

func NewSet[T comparable]() *Set[T] {
	return &Set[T]{
		m: make(map[T]struct{}),
	}
}

// Add inserts item and reports whether it was absent before.
func (s *Set[T]) Add(item T) bool {
	if _, exists := s.m[item]; exists {
		return false
	}
	s.m[item] = struct{}{}
	return true
}

func (s *Set[T]) Remove(item T) {
	delete(s.m, item)
}

func (s *Set[T]) Contains(item T) bool {
	_, exists := s.m[item]
	return exists
}

func (s *Set[T]) Len() int {
	return len(s.m)
}

func (s *Set[T]) Elements() []T {
	elements := make([]T, 0, len(s.m))
	for item := range s.m {
		elements = append(elements, item)
	}
	return elements
}
