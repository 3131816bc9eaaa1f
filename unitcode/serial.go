// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unitcode

// This file defines the portable serialized form of a Unit tree.
// The encoding is a flat varint-based stream, like the instruction
// stream itself. A decoded Unit carries no binding environment: it is
// code only, and is hashed as such.

import (
	"fmt"
	"math"
	"math/big"

	"google.golang.org/protobuf/encoding/protowire"
)

// The first four bytes of a serialized unit.
const magic = "ucd\x01"

// Constant kind codes in the serialized form.
const (
	serNone = iota
	serFalse
	serTrue
	serInt64
	serBigInt
	serFloat
	serString
	serBytes
)

// Encode returns the serialized form of the unit and its nested units.
func Encode(u *Unit) []byte {
	b := []byte(magic)
	return appendUnit(b, u)
}

func appendUnit(b []byte, u *Unit) []byte {
	b = protowire.AppendString(b, u.Name)
	b = protowire.AppendString(b, u.Module)
	b = protowire.AppendString(b, u.Path)
	b = protowire.AppendBytes(b, u.Code)

	b = protowire.AppendVarint(b, uint64(len(u.Constants)))
	for _, c := range u.Constants {
		b = appendConstant(b, c)
	}

	for _, tab := range [][]string{u.Names, u.Locals, u.CellVars, u.FreeVars} {
		b = protowire.AppendVarint(b, uint64(len(tab)))
		for _, s := range tab {
			b = protowire.AppendString(b, s)
		}
	}
	b = protowire.AppendVarint(b, uint64(u.NumParams))

	b = protowire.AppendVarint(b, uint64(len(u.Units)))
	for _, nested := range u.Units {
		b = appendUnit(b, nested)
	}
	return b
}

func appendConstant(b []byte, c interface{}) []byte {
	switch c := c.(type) {
	case nil:
		return protowire.AppendVarint(b, serNone)
	case bool:
		if c {
			return protowire.AppendVarint(b, serTrue)
		}
		return protowire.AppendVarint(b, serFalse)
	case int64:
		b = protowire.AppendVarint(b, serInt64)
		return protowire.AppendVarint(b, protowire.EncodeZigZag(c))
	case *big.Int:
		b = protowire.AppendVarint(b, serBigInt)
		if c.Sign() < 0 {
			b = protowire.AppendVarint(b, 1)
		} else {
			b = protowire.AppendVarint(b, 0)
		}
		return protowire.AppendBytes(b, c.Bytes())
	case float64:
		b = protowire.AppendVarint(b, serFloat)
		return protowire.AppendFixed64(b, math.Float64bits(c))
	case string:
		b = protowire.AppendVarint(b, serString)
		return protowire.AppendString(b, c)
	case []byte:
		b = protowire.AppendVarint(b, serBytes)
		return protowire.AppendBytes(b, c)
	}
	panic(fmt.Sprintf("unitcode: invalid constant type %T", c))
}

// DecodeUnit decodes a unit tree serialized by Encode.
func DecodeUnit(data []byte) (*Unit, error) {
	if len(data) < len(magic) || string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("unitcode: not a serialized unit")
	}
	d := decoder{rest: data[len(magic):]}
	u := d.unit()
	if d.err != nil {
		return nil, fmt.Errorf("unitcode: corrupt serialized unit: %v", d.err)
	}
	if len(d.rest) > 0 {
		return nil, fmt.Errorf("unitcode: %d bytes of trailing garbage", len(d.rest))
	}
	return u, nil
}

type decoder struct {
	rest []byte
	err  error
}

func (d *decoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = fmt.Errorf(format, args...)
		d.rest = nil
	}
}

func (d *decoder) uvarint() uint64 {
	v, n := protowire.ConsumeVarint(d.rest)
	if n < 0 {
		d.fail("truncated varint")
		return 0
	}
	d.rest = d.rest[n:]
	return v
}

func (d *decoder) bytes() []byte {
	b, n := protowire.ConsumeBytes(d.rest)
	if n < 0 {
		d.fail("truncated bytes")
		return nil
	}
	d.rest = d.rest[n:]
	// Copy out of the input buffer: Units are immutable.
	return append([]byte(nil), b...)
}

func (d *decoder) string() string { return string(d.bytes()) }

func (d *decoder) strings() []string {
	n := d.uvarint()
	var tab []string
	for i := uint64(0); i < n && d.err == nil; i++ {
		tab = append(tab, d.string())
	}
	return tab
}

func (d *decoder) constant() interface{} {
	switch kind := d.uvarint(); kind {
	case serNone:
		return nil
	case serFalse:
		return false
	case serTrue:
		return true
	case serInt64:
		return protowire.DecodeZigZag(d.uvarint())
	case serBigInt:
		neg := d.uvarint() != 0
		x := new(big.Int).SetBytes(d.bytes())
		if neg {
			x.Neg(x)
		}
		return x
	case serFloat:
		v, n := protowire.ConsumeFixed64(d.rest)
		if n < 0 {
			d.fail("truncated float")
			return nil
		}
		d.rest = d.rest[n:]
		return math.Float64frombits(v)
	case serString:
		return d.string()
	case serBytes:
		return d.bytes()
	default:
		d.fail("invalid constant kind %d", kind)
		return nil
	}
}

func (d *decoder) unit() *Unit {
	u := &Unit{
		Name:   d.string(),
		Module: d.string(),
		Path:   d.string(),
		Code:   d.bytes(),
	}
	nconst := d.uvarint()
	for i := uint64(0); i < nconst && d.err == nil; i++ {
		u.Constants = append(u.Constants, d.constant())
	}
	u.Names = d.strings()
	u.Locals = d.strings()
	u.CellVars = d.strings()
	u.FreeVars = d.strings()
	u.NumParams = int(d.uvarint())
	nunits := d.uvarint()
	for i := uint64(0); i < nunits && d.err == nil; i++ {
		nested := d.unit()
		if nested != nil {
			nested.parent = u
		}
		u.Units = append(u.Units, nested)
	}
	if d.err != nil {
		return nil
	}
	if err := u.checkCode(); err != nil {
		d.fail("unit %s: %v", u.Name, err)
		return nil
	}
	return u
}

// checkCode validates the instruction stream of a decoded unit: every
// opcode is known, every operand is complete, and every table operand
// indexes within its table. Consumers of Instructions rely on this.
func (u *Unit) checkCode() error {
	code := u.Code
	for len(code) > 0 {
		op := Opcode(code[0])
		code = code[1:]
		if op > OpcodeMax {
			return fmt.Errorf("invalid opcode %d", op)
		}
		if op < OpcodeArgMin {
			continue
		}
		v, n := protowire.ConsumeVarint(code)
		if n < 0 {
			return fmt.Errorf("truncated operand for %s", op)
		}
		code = code[n:]
		arg := int(uint32(v))

		var size int
		var table string
		switch op {
		case CONST:
			size, table = len(u.Constants), "constants"
		case GLOBAL, ATTR, SETFIELD, LOADMOD:
			size, table = len(u.Names), "names"
		case LOCAL, SETLOCAL:
			size, table = len(u.Locals), "locals"
		case FREE:
			size, table = len(u.CellVars)+len(u.FreeVars), "cell and free variables"
		case MAKEFUNC:
			size, table = len(u.Units), "nested units"
		default:
			continue // jump targets and counts do not index a table
		}
		if arg >= size {
			return fmt.Errorf("%s operand %d out of range (%d %s)", op, arg, size, table)
		}
	}
	return nil
}
