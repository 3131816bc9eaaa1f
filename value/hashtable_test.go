// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"math/rand"
	"testing"
)

func TestHashtable(t *testing.T) {
	testHashtable(t, make(map[int64]bool))
}

func BenchmarkHashtable(b *testing.B) {
	for i := 0; i < b.N; i++ {
		testHashtable(b, nil)
	}
}

// testHashtable is both a test and a benchmark of hashtable.
// When sane != nil, it acts as a test against the semantics of Go's map.
func testHashtable(tb testing.TB, sane map[int64]bool) {
	zipf := rand.NewZipf(rand.New(rand.NewSource(0)), 1.1, 1.0, 1000.0)
	var ht hashtable

	// Insert 10000 random ints into the map.
	for j := 0; j < 10000; j++ {
		k := int64(zipf.Uint64())
		if err := ht.insert(MakeInt64(k), None); err != nil {
			tb.Fatal(err)
		}
		if sane != nil {
			sane[k] = true
		}
	}

	// Do 10000 random lookups in the map.
	for j := 0; j < 10000; j++ {
		k := int64(zipf.Uint64())
		_, found, err := ht.lookup(MakeInt64(k))
		if err != nil {
			tb.Fatal(err)
		}
		if sane != nil {
			_, found2 := sane[k]
			if found != found2 {
				tb.Fatal("sanity check failed")
			}
		}
	}

	// Do 10000 random deletes from the map.
	for j := 0; j < 10000; j++ {
		k := int64(zipf.Uint64())
		_, found, err := ht.delete(MakeInt64(k))
		if err != nil {
			tb.Fatal(err)
		}
		if sane != nil {
			_, found2 := sane[k]
			if found != found2 {
				tb.Fatal("sanity check failed")
			}
			delete(sane, k)
		}
	}

	if sane != nil {
		if int(ht.len) != len(sane) {
			tb.Fatal("sanity check failed")
		}
	}
}

func TestHashtableInsertionOrder(t *testing.T) {
	var ht hashtable
	words := []string{"pear", "apple", "plum", "mango", "cherry"}
	for _, w := range words {
		if err := ht.insert(String(w), None); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := ht.delete(String("plum")); err != nil {
		t.Fatal(err)
	}
	if err := ht.insert(String("plum"), None); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, k := range ht.keys() {
		got = append(got, string(k.(String)))
	}
	want := []string{"pear", "apple", "mango", "cherry", "plum"}
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
}

func TestHashtableUnhashable(t *testing.T) {
	var ht hashtable
	if err := ht.insert(NewList(nil), None); err == nil {
		t.Error("insert of list: got nil error, want unhashable")
	}
	if _, _, err := ht.lookup(NewDict(0)); err == nil {
		t.Error("lookup of dict: got nil error, want unhashable")
	}
}
