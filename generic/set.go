package generic

import "sort"

type Set[T comparable] interface {
	Add(item T) bool
	Contains(items ...T) bool
	ContainsAny(items ...T) bool
	Count() int
	Remove(item T) bool
	ToSlice() []T
}

func NewSet[T comparable](items ...T) Set[T] {
	res := make(set[T])
	for _, item := range items {
		res.Add(item)
	}
	return &res
}

type set[T comparable] map[T]Void

func (s *set[T]) Add(item T) bool {
	_, found := (*s)[item]
	if found {
		return false
	}
	(*s)[item] = NewVoid()
	return true
}

// Contains is true only if every item is in the set.
func (s *set[T]) Contains(items ...T) bool {
	for _, item := range items {
		if _, found := (*s)[item]; !found {
			return false
		}
	}
	return true
}

// ContainsAny is true if at least one item is in the set.
func (s *set[T]) ContainsAny(items ...T) bool {
	for _, item := range items {
		if _, found := (*s)[item]; found {
			return true
		}
	}
	return false
}

func (s *set[T]) Count() int {
	return len(*s)
}

func (s *set[T]) Remove(item T) bool {
	_, found := (*s)[item]
	if !found {
		return false
	}
	delete(*s, item)
	return true
}

func (s *set[T]) ToSlice() []T {
	slice := make([]T, 0, s.Count())
	for item := range *s {
		slice = append(slice, item)
	}
	return slice
}

// SortedStrings returns the members of a string-like set in ascending order.
func SortedStrings[T ~string](s Set[T]) []T {
	items := s.ToSlice()
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}
