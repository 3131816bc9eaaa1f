// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import "fmt"

// A *Dict represents a dictionary: an unordered mapping from hashable
// keys to values. Iteration follows insertion order, but insertion
// order never affects content digests.
type Dict struct {
	ht hashtable
}

// NewDict returns a new empty dictionary with capacity for size entries.
func NewDict(size int) *Dict {
	dict := new(Dict)
	dict.ht.init(size)
	return dict
}

func (d *Dict) SetKey(k, v Value) error           { return d.ht.insert(k, v) }
func (d *Dict) Get(k Value) (Value, bool, error)  { return d.ht.lookup(k) }
func (d *Dict) Delete(k Value) (Value, bool, error) { return d.ht.delete(k) }
func (d *Dict) Keys() []Value                     { return d.ht.keys() }
func (d *Dict) Len() int                          { return int(d.ht.len) }

// Items returns the entries as a list of (key, value) pairs in
// insertion order.
func (d *Dict) Items() []Tuple {
	items := make([]Tuple, 0, d.ht.len)
	array := make([]Value, 2*d.ht.len) // allocate a single backing array
	for _, e := range d.ht.entries() {
		pair := Tuple(array[:2:2])
		array = array[2:]
		pair[0] = e.key
		pair[1] = e.value
		items = append(items, pair)
	}
	return items
}

func (d *Dict) Freeze()               { d.ht.freeze() }
func (d *Dict) String() string        { return toString(d) }
func (d *Dict) Type() string          { return "dict" }
func (d *Dict) Truth() Bool           { return d.Len() > 0 }
func (d *Dict) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: dict") }

// A *Set represents an unordered collection of distinct hashable values.
type Set struct {
	ht hashtable // values are all None
}

// NewSet returns a new empty set with capacity for size elements.
func NewSet(size int) *Set {
	set := new(Set)
	set.ht.init(size)
	return set
}

func (s *Set) Add(v Value) error               { return s.ht.insert(v, None) }
func (s *Set) Has(v Value) (bool, error)       { _, found, err := s.ht.lookup(v); return found, err }
func (s *Set) Delete(v Value) (bool, error)    { _, found, err := s.ht.delete(v); return found, err }
func (s *Set) Elems() []Value                  { return s.ht.keys() }
func (s *Set) Len() int                        { return int(s.ht.len) }

func (s *Set) Freeze()               { s.ht.freeze() }
func (s *Set) String() string        { return toString(s) }
func (s *Set) Type() string          { return "set" }
func (s *Set) Truth() Bool           { return s.Len() > 0 }
func (s *Set) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: set") }
