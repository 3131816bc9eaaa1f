// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"math"
	"math/big"
	"testing"
)

func TestIntRepresentation(t *testing.T) {
	for _, x := range []int64{0, 1, -1, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64} {
		v := MakeInt64(x)
		got, ok := v.Int64()
		if !ok || got != x {
			t.Errorf("MakeInt64(%d).Int64() = %d, %v", x, got, ok)
		}
		if b := v.BigInt(); b.Int64() != x {
			t.Errorf("MakeInt64(%d).BigInt() = %v", x, b)
		}
		if want := signum64(x); v.Sign() != want {
			t.Errorf("MakeInt64(%d).Sign() = %d, want %d", x, v.Sign(), want)
		}
	}
}

func TestIntHuge(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 100)
	v := MakeBigInt(huge)
	if _, ok := v.Int64(); ok {
		t.Error("2**100 claims to fit in int64")
	}
	if v.BigInt().Cmp(huge) != 0 {
		t.Errorf("BigInt() = %v, want %v", v.BigInt(), huge)
	}
	if got, want := v.String(), "1267650600228229401496703205376"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	// The constructor copies its argument.
	huge.SetInt64(0)
	if v.Sign() != 1 {
		t.Error("MakeBigInt aliased its argument")
	}
}

func TestIntCompare(t *testing.T) {
	vals := []Int{
		MakeBigInt(new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 80))),
		MakeInt64(math.MinInt64),
		MakeInt(-1),
		MakeInt(0),
		MakeInt(1),
		MakeInt64(math.MaxInt64),
		MakeBigInt(new(big.Int).Lsh(big.NewInt(1), 80)),
	}
	for i, x := range vals {
		for j, y := range vals {
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = +1
			}
			if got := cmpInt(x, y); got != want {
				t.Errorf("cmpInt(%s, %s) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestIntNormalization(t *testing.T) {
	// Every constructor must yield the canonical representation, so
	// that equal ints always have equal bucket hashes.
	for _, x := range []int64{0, 1, -1, 12345, math.MaxInt32, math.MinInt32, math.MaxInt64} {
		a := MakeInt64(x)
		b := MakeBigInt(big.NewInt(x))
		if eq, err := Equal(a, b); err != nil || !eq {
			t.Errorf("Equal(%d, %d) = %v, %v", x, x, eq, err)
		}
		h1, err1 := a.Hash()
		h2, err2 := b.Hash()
		if err1 != nil || err2 != nil {
			t.Fatalf("Hash(%d): %v, %v", x, err1, err2)
		}
		if h1 != h2 {
			t.Errorf("Hash(%d): %d != %d", x, h1, h2)
		}
	}
}
