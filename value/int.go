// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"math"
	"math/big"
	"strconv"
)

// Int is the type of integers. Ints are immutable and of arbitrary
// precision.
type Int interface {
	Value

	// Int64 returns the value as an int64.
	// If it is not exactly representable the result is undefined and ok is false.
	Int64() (_ int64, ok bool)

	// BigInt returns a new big.Int with the same value as the Int.
	BigInt() *big.Int

	// Sign returns -1, 0, or +1.
	Sign() int

	// bigInt returns the value as a big.Int.
	// It differs from BigInt in that this method returns the actual
	// reference and callers must not modify the result.
	bigInt() *big.Int
}

// --- high-level accessors ---

// MakeInt returns an Int for the specified signed integer.
func MakeInt(x int) Int { return MakeInt64(int64(x)) }

// MakeInt64 returns an Int for the specified int64.
func MakeInt64(x int64) Int {
	if math.MinInt32 <= x && x <= math.MaxInt32 {
		return makeSmallInt(x)
	}
	return makeBigInt(big.NewInt(x))
}

// MakeBigInt returns an Int for the specified big.Int.
// The new Int value will contain a copy of x. The caller is safe to modify x.
func MakeBigInt(x *big.Int) Int {
	if isSmall(x) {
		return makeSmallInt(x.Int64())
	}
	z := new(big.Int).Set(x)
	return makeBigInt(z)
}

func isSmall(x *big.Int) bool {
	n := x.BitLen()
	return n < 32 || n == 32 && x.Int64() == math.MinInt32
}

// cmpInt returns -1, 0, or +1 according to the ordering of x and y.
func cmpInt(x, y Int) int {
	xSmall, xBig := int_get(x)
	ySmall, yBig := int_get(y)
	if xBig != nil || yBig != nil {
		return x.bigInt().Cmp(y.bigInt())
	}
	return signum64(xSmall - ySmall) // safe: small ints are in int32 range
}

func signum64(x int64) int { return int(uint64(x>>63) | uint64(-x)>>63) }

func int_hash(lo big.Word) (uint32, error) { return 12582917 * uint32(lo+3), nil }

// intSmall is the representation of small ints where a pointer-packed
// representation is unavailable.
type intSmall int64

var _ Int = intSmall(0)

func (i intSmall) Freeze()        {} // immutable
func (i intSmall) Type() string   { return "int" }
func (i intSmall) String() string { return strconv.FormatInt(int64(i), 10) }
func (i intSmall) Truth() Bool    { return i != 0 }
func (i intSmall) Hash() (uint32, error) {
	return int_hash(big.Word(i))
}
func (i intSmall) Int64() (int64, bool) { return int64(i), true }
func (i intSmall) BigInt() *big.Int     { return big.NewInt(int64(i)) }
func (i intSmall) bigInt() *big.Int     { return big.NewInt(int64(i)) }
func (i intSmall) Sign() int            { return signum64(int64(i)) }

// intBig is the representation of ints that do not fit in int32.
type intBig big.Int

var _ Int = (*intBig)(nil)

func (x *intBig) Freeze()        {} // immutable
func (x *intBig) Type() string   { return "int" }
func (x *intBig) String() string { return (*big.Int)(x).Text(10) }
func (x *intBig) Truth() Bool    { return true } // a big int is never zero
func (x *intBig) Hash() (uint32, error) {
	return int_hash((*big.Int)(x).Bits()[0])
}
func (x *intBig) Int64() (int64, bool) {
	b := (*big.Int)(x)
	if b.IsInt64() {
		return b.Int64(), true
	}
	return 0, false
}
func (x *intBig) BigInt() *big.Int { return new(big.Int).Set((*big.Int)(x)) }
func (x *intBig) bigInt() *big.Int { return (*big.Int)(x) }
func (x *intBig) Sign() int        { return (*big.Int)(x).Sign() }
