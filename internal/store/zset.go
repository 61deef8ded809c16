package store

import (
	"sort"

	"golang.org/x/exp/slices"
)

// zsetEntry is one member of a sorted set, ordered first by score ascending
// then by member lexicographically for ties.
type zsetEntry struct {
	score  float64
	member string
}

// SortedSet keeps a dual index over (member, score) pairs: an ordered
// sequence for rank-based access (ZRANGE) and a map for O(1) score lookup
// (ZSCORE). Every mutation keeps both indices consistent by removing the
// old entry before inserting the new one, never the reverse — inserting
// first could momentarily leave two entries for the same member in the
// ordered sequence.
type SortedSet struct {
	entries []zsetEntry
	index   map[string]float64
}

// NewSortedSet returns an empty SortedSet.
func NewSortedSet() *SortedSet {
	return &SortedSet{index: make(map[string]float64)}
}

// Add sets member's score, returning true if member is new to the set.
// Re-scoring an existing member returns false, matching ZADD's "elements
// added" count, which excludes score-only updates.
func (z *SortedSet) Add(member string, score float64) bool {
	old, exists := z.index[member]
	if exists {
		if old == score {
			return false
		}
		z.removeFromSequence(old, member)
	}
	z.index[member] = score
	z.insertIntoSequence(score, member)
	return !exists
}

// Remove deletes member, returning true if it was present.
func (z *SortedSet) Remove(member string) bool {
	score, ok := z.index[member]
	if !ok {
		return false
	}
	delete(z.index, member)
	z.removeFromSequence(score, member)
	return true
}

// Score returns member's score and whether it is present.
func (z *SortedSet) Score(member string) (float64, bool) {
	s, ok := z.index[member]
	return s, ok
}

// Len returns the number of members.
func (z *SortedSet) Len() int {
	return len(z.entries)
}

// RangeByRank returns members in ascending-score order for the inclusive
// rank interval [start, stop], already normalized by the caller.
func (z *SortedSet) RangeByRank(start, stop int) []Ranked {
	if start > stop || start >= len(z.entries) {
		return []Ranked{}
	}
	if stop >= len(z.entries) {
		stop = len(z.entries) - 1
	}
	out := make([]Ranked, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		e := z.entries[i]
		out = append(out, Ranked{Member: e.member, Score: e.score})
	}
	return out
}

// Rank returns member's zero-based position in ascending-score order.
func (z *SortedSet) Rank(member string) (int, bool) {
	score, ok := z.index[member]
	if !ok {
		return 0, false
	}
	i := z.lowerBound(score, member)
	return i, true
}

// Ranked is one (member, score) pair returned from a range query.
type Ranked struct {
	Member string
	Score  float64
}

func (z *SortedSet) less(i int, score float64, member string) bool {
	if z.entries[i].score != score {
		return z.entries[i].score < score
	}
	return z.entries[i].member < member
}

// lowerBound returns the index of the first entry not less than
// (score, member) under the set's ordering.
func (z *SortedSet) lowerBound(score float64, member string) int {
	return sort.Search(len(z.entries), func(i int) bool {
		return !z.less(i, score, member)
	})
}

func (z *SortedSet) insertIntoSequence(score float64, member string) {
	i := z.lowerBound(score, member)
	z.entries = slices.Insert(z.entries, i, zsetEntry{score: score, member: member})
}

func (z *SortedSet) removeFromSequence(score float64, member string) {
	i := z.lowerBound(score, member)
	if i >= len(z.entries) || z.entries[i].member != member {
		return
	}
	z.entries = slices.Delete(z.entries, i, i+1)
}
