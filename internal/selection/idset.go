package selection

import (
	"maps"
	"slices"
)

// IDSet は勤務日 ID の集合
type IDSet map[int64]struct{}

func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id int64) {
	s[id] = struct{}{}
}

func (s IDSet) Remove(id int64) {
	delete(s, id)
}

// Toggle は id の所属を反転し、反転後に含まれているかを返す
func (s IDSet) Toggle(id int64) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s IDSet) Len() int {
	return len(s)
}

func (s IDSet) Clone() IDSet {
	if s == nil {
		return IDSet{}
	}
	return maps.Clone(s)
}

func (s IDSet) Union(other IDSet) IDSet {
	out := s.Clone()
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

func (s IDSet) Intersect(other IDSet) IDSet {
	out := IDSet{}
	for id := range s {
		if other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted は昇順の ID スライスを返す
func (s IDSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
