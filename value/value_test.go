// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"math"
	"math/big"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	inner := NewList([]Value{MakeInt(1), MakeInt(2)})
	for _, test := range []struct {
		v    Value
		want string
	}{
		{None, "None"},
		{True, "True"},
		{False, "False"},
		{MakeInt(42), "42"},
		{MakeInt64(-1 << 40), "-1099511627776"},
		{Float(3), "3.0"},
		{Float(0.25), "0.25"},
		{Float(math.Inf(+1)), "+inf"},
		{Float(math.Inf(-1)), "-inf"},
		{Float(math.NaN()), "nan"},
		{String("hi\"there"), `"hi\"there"`},
		{Bytes("abc"), `b"abc"`},
		{NewBytearray([]byte("abc")), `bytearray(b"abc")`},
		{NewList(nil), "[]"},
		{NewList([]Value{MakeInt(1), String("a")}), `[1, "a"]`},
		{Tuple{MakeInt(1)}, "(1,)"},
		{Tuple{MakeInt(1), Tuple{}}, "(1, ())"},
	} {
		if got := test.v.String(); got != test.want {
			t.Errorf("String(%s) = %q, want %q", test.v.Type(), got, test.want)
		}
	}

	// Containers print their elements in insertion order.
	d := NewDict(2)
	d.SetKey(String("k"), inner)
	d.SetKey(MakeInt(3), None)
	if got, want := d.String(), `{"k": [1, 2], 3: None}`; got != want {
		t.Errorf("dict String = %q, want %q", got, want)
	}
	s := NewSet(2)
	s.Add(String("b"))
	s.Add(String("a"))
	if got, want := s.String(), `set(["b", "a"])`; got != want {
		t.Errorf("set String = %q, want %q", got, want)
	}
}

func TestStringCycle(t *testing.T) {
	l := NewList(nil)
	l.Append(MakeInt(1))
	l.Append(l)
	if got, want := l.String(), "[1, [...]]"; got != want {
		t.Errorf("cyclic list String = %q, want %q", got, want)
	}

	d := NewDict(1)
	d.SetKey(String("self"), d)
	if got, want := d.String(), `{"self": {...}}`; got != want {
		t.Errorf("cyclic dict String = %q, want %q", got, want)
	}
}

func TestEqual(t *testing.T) {
	one := MakeInt(1)
	list := NewList([]Value{one})
	for _, test := range []struct {
		x, y Value
		want bool
	}{
		{None, None, true},
		{None, False, false},
		{True, True, true},
		{MakeInt(1), MakeInt(1), true},
		{MakeInt(1), MakeBigInt(big.NewInt(1)), true},
		{MakeInt(1), Float(1), false}, // distinct types are never equal
		{MakeInt64(1 << 40), MakeInt64(1 << 40), true},
		{Float(0), Float(math.Copysign(0, -1)), true},
		{String("a"), String("a"), true},
		{String("a"), String("b"), false},
		{Bytes("a"), Bytes("a"), true},
		{Bytes("a"), String("a"), false},
		{Tuple{one}, Tuple{MakeInt(1)}, true},
		{NewList([]Value{one}), NewList([]Value{MakeInt(1)}), true},
		{NewList([]Value{one}), NewList([]Value{MakeInt(2)}), false},
		{list, list, true},
		{NewDict(0), NewDict(0), false}, // mutable maps compare by identity
	} {
		got, err := Equal(test.x, test.y)
		if err != nil {
			t.Errorf("Equal(%s, %s): %v", test.x, test.y, err)
		} else if got != test.want {
			t.Errorf("Equal(%s, %s) = %v, want %v", test.x, test.y, got, test.want)
		}
	}
}

func TestEqualDepthLimit(t *testing.T) {
	// Two structurally equal lists deeper than CompareLimit.
	deep := func() Value {
		v := Value(MakeInt(0))
		for i := 0; i < CompareLimit+1; i++ {
			v = NewList([]Value{v})
		}
		return v
	}
	_, err := Equal(deep(), deep())
	if err == nil || !strings.Contains(err.Error(), "recursion") {
		t.Errorf("Equal on deep lists: got %v, want recursion depth error", err)
	}
}

func TestFreeze(t *testing.T) {
	l := NewList([]Value{MakeInt(1)})
	inner := NewBytearray([]byte("x"))
	l.Append(inner)
	l.Freeze()
	if err := l.Append(None); err == nil {
		t.Error("Append to frozen list: got nil error")
	}
	if err := l.SetIndex(0, None); err == nil {
		t.Error("SetIndex on frozen list: got nil error")
	}
	if err := inner.SetBytes([]byte("y")); err == nil {
		t.Error("SetBytes on transitively frozen bytearray: got nil error")
	}

	d := NewDict(1)
	d.SetKey(String("k"), None)
	d.Freeze()
	if err := d.SetKey(String("k2"), None); err == nil {
		t.Error("SetKey on frozen dict: got nil error")
	}
	if _, _, err := d.Delete(String("k")); err == nil {
		t.Error("Delete on frozen dict: got nil error")
	}
}

func TestHashConsistency(t *testing.T) {
	// Equal values must have equal bucket hashes.
	pairs := [][2]Value{
		{MakeInt(7), MakeBigInt(big.NewInt(7))},
		{Tuple{MakeInt(1), String("x")}, Tuple{MakeInt(1), String("x")}},
		{String(""), String("")},
	}
	for _, p := range pairs {
		h0, err0 := p[0].Hash()
		h1, err1 := p[1].Hash()
		if err0 != nil || err1 != nil {
			t.Errorf("Hash(%s): %v, %v", p[0], err0, err1)
		} else if h0 != h1 {
			t.Errorf("Hash(%s) = %d != %d = Hash(%s)", p[0], h0, h1, p[1])
		}
	}

	for _, v := range []Value{NewList(nil), NewDict(0), NewSet(0), NewBytearray(nil)} {
		if _, err := v.Hash(); err == nil {
			t.Errorf("Hash(%s): got nil error, want unhashable", v.Type())
		}
	}
}

func TestDictTypedKeys(t *testing.T) {
	d := NewDict(2)
	if err := d.SetKey(MakeInt(1), String("int")); err != nil {
		t.Fatal(err)
	}
	if err := d.SetKey(Float(1), String("float")); err != nil {
		t.Fatal(err)
	}
	// An int key and a float key of the same magnitude are distinct.
	if d.Len() != 2 {
		t.Fatalf("dict has %d entries, want 2", d.Len())
	}
	v, found, err := d.Get(MakeInt(1))
	if err != nil || !found || v != String("int") {
		t.Errorf("Get(1) = %v, %v, %v; want \"int\", true, nil", v, found, err)
	}
}

func TestStringDict(t *testing.T) {
	sd := StringDict{"zeta": None, "alpha": MakeInt(1)}
	keys := sd.Keys()
	if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "zeta" {
		t.Errorf("Keys() = %v, want [alpha zeta]", keys)
	}
	if !sd.Has("zeta") || sd.Has("iota") {
		t.Error("Has gave wrong answer")
	}
}
