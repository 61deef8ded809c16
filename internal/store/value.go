// Package store implements the per-shard data model: a tagged-union Value
// type covering strings, lists, hashes, sets and sorted sets, and a Shard
// that owns one exclusive slice of the keyspace. A Shard is touched by
// exactly one worker goroutine for its entire lifetime, so nothing in this
// package takes a lock — the concurrency safety comes from the topology
// package's ownership discipline, not from mutexes here.
package store

import (
	"container/list"
	"errors"
)

// Kind discriminates the Value union.
type Kind byte

const (
	KindNone Kind = iota
	KindString
	KindList
	KindHash
	KindSet
	KindZSet
)

// ErrWrongType is the wrong-type error as a Go error value. Nothing in this
// package returns it: command handlers compare Kind themselves and reply
// with resp.MakeWrongTypeError.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// Value is QuineDB's tagged union: exactly one of the typed fields is
// meaningful, selected by Kind.
type Value struct {
	Kind Kind
	Str  []byte
	List *List
	Hash map[string][]byte
	Set  map[string]struct{}
	ZSet *SortedSet
}

// StringValue builds a Kind: String Value.
func StringValue(b []byte) Value {
	return Value{Kind: KindString, Str: b}
}

// List is a double-ended sequence of byte strings, backed by the standard
// library's doubly linked list so both ends push/pop in O(1) — the Go
// stand-in for the original's std::deque<std::string>.
type List struct {
	l *list.List
}

// NewList returns an empty List.
func NewList() *List {
	return &List{l: list.New()}
}

// PushFront prepends v and returns the new length.
func (d *List) PushFront(v []byte) int {
	d.l.PushFront(v)
	return d.l.Len()
}

// PushBack appends v and returns the new length.
func (d *List) PushBack(v []byte) int {
	d.l.PushBack(v)
	return d.l.Len()
}

// PopFront removes and returns the first element.
func (d *List) PopFront() ([]byte, bool) {
	e := d.l.Front()
	if e == nil {
		return nil, false
	}
	d.l.Remove(e)
	return e.Value.([]byte), true
}

// PopBack removes and returns the last element.
func (d *List) PopBack() ([]byte, bool) {
	e := d.l.Back()
	if e == nil {
		return nil, false
	}
	d.l.Remove(e)
	return e.Value.([]byte), true
}

// Len returns the number of elements.
func (d *List) Len() int {
	return d.l.Len()
}

// Range returns the inclusive slice [start, stop] with Python-style
// negative-index normalization already applied by the caller — see
// dispatch.NormalizeRange.
func (d *List) Range(start, stop int) [][]byte {
	if start > stop {
		return [][]byte{}
	}
	out := make([][]byte, 0, stop-start+1)
	i := 0
	for e := d.l.Front(); e != nil; e = e.Next() {
		if i > stop {
			break
		}
		if i >= start {
			out = append(out, e.Value.([]byte))
		}
		i++
	}
	return out
}
