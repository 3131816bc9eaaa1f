// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build (linux || darwin || dragonfly || freebsd || netbsd || solaris) && (amd64 || arm64 || mips64x || ppc64x || loong64) && !noposixint
// +build linux darwin dragonfly freebsd netbsd solaris
// +build amd64 arm64 mips64x ppc64x loong64
// +build !noposixint

package value

// This file defines an optimized Int implementation for 64-bit machines
// running POSIX. It reserves a 4GB portion of the address space using
// mmap and represents int32 values as addresses within that range. This
// disambiguates int32 values from *big.Int pointers, letting all Int
// values be represented as an unsafe.Pointer, so that Int-to-Value
// interface conversion need not allocate.

import (
	"log"
	"math"
	"math/big"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"
)

// intPosix64 represents a union of (int32, *big.Int) in a single pointer,
// so that Int-to-Value conversions need not allocate.
//
// The pointer is either a *big.Int, if the value is big, or a pointer into a
// reserved portion of the address space (smallints), if the value is small
// and the address space allocation succeeded.
//
// See int.go for the basic representation concepts.
type intPosix64 struct {
	impl unsafe.Pointer
}

const hasPosixInts = true

var _ Int = intPosix64{}

func (i intPosix64) get() (int64, *big.Int) {
	if ptr := uintptr(i.impl); ptr >= smallints && ptr < smallints+1<<32 {
		return math.MinInt32 + int64(ptr-smallints), nil
	}
	return 0, (*big.Int)(i.impl)
}

// smallints is the base address of a 2^32 byte memory region.
// Pointers to addresses in this region represent int32 values.
// We assume smallints is not at the very top of the address space.
//
// Zero means the optimization is disabled and all Ints allocate a big.Int.
var smallints = reserveAddresses(1 << 32)

func reserveAddresses(len int) uintptr {
	b, err := unix.Mmap(-1, 0, len, unix.PROT_READ, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		log.Printf("failed to allocate 4GB address space: %v. Integer performance may suffer.", err)
		return 0 // optimization disabled
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func (i intPosix64) Freeze()      {} // immutable
func (i intPosix64) Type() string { return "int" }
func (i intPosix64) String() string {
	iSmall, iBig := i.get()
	if iBig != nil {
		return iBig.Text(10)
	}
	return strconv.FormatInt(iSmall, 10)
}
func (i intPosix64) Truth() Bool { return i.Sign() != 0 }
func (i intPosix64) Hash() (uint32, error) {
	iSmall, iBig := i.get()
	var lo big.Word
	if iBig != nil {
		lo = iBig.Bits()[0]
	} else {
		lo = big.Word(iSmall)
	}
	return int_hash(lo)
}

func (i intPosix64) Int64() (_ int64, ok bool) {
	iSmall, iBig := i.get()
	if iBig != nil {
		if !iBig.IsInt64() {
			return // inexact
		}
		return iBig.Int64(), true
	}
	return iSmall, true
}

func (i intPosix64) BigInt() *big.Int {
	iSmall, iBig := i.get()
	if iBig != nil {
		return new(big.Int).Set(iBig)
	}
	return big.NewInt(iSmall)
}

func (i intPosix64) bigInt() *big.Int {
	iSmall, iBig := i.get()
	if iBig != nil {
		return iBig
	}
	return big.NewInt(iSmall)
}

func (i intPosix64) Sign() int {
	iSmall, iBig := i.get()
	if iBig != nil {
		return iBig.Sign()
	}
	return signum64(iSmall)
}

// int_get returns the (small, big) arms of the union.
func int_get(i Int) (int64, *big.Int) {
	switch i := i.(type) {
	case intSmall:
		return int64(i), nil
	case *intBig:
		return 0, (*big.Int)(i)
	case intPosix64:
		return i.get()
	default:
		panic("Int is not an int?")
	}
}

// Precondition: x cannot be represented as int32.
func makeBigInt(x *big.Int) Int {
	if smallints == 0 {
		return (*intBig)(x)
	}
	return intPosix64{unsafe.Pointer(x)}
}

// Precondition: math.MinInt32 <= x && x <= math.MaxInt32
func makeSmallInt(x int64) Int {
	if smallints == 0 {
		// optimization disabled
		return intSmall(x)
	}

	return intPosix64{unsafe.Pointer(uintptr(x-math.MinInt32) + smallints)}
}
