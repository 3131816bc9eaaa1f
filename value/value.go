// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package value defines the closed data model over which codedigest
// computes content digests: the usual scalars, ordered and unordered
// containers, and the callable values that wrap a unitcode.Unit.
//
// Values are comparable for equality and, when immutable, hashable for
// use as Dict keys and Set elements. The Hash method here is a cheap
// 32-bit bucket hash and has nothing to do with the content digests
// computed by the codedigest package.
package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is the interface implemented by every value in the model.
// Any implementation outside this package is treated by the hasher as
// an opaque object.
type Value interface {
	// String returns the string representation of the value.
	String() string

	// Type returns a short string describing the value's type.
	Type() string

	// Freeze causes the value, and all values transitively
	// reachable from it through collections, to be marked as frozen.
	// All subsequent mutations will fail.
	Freeze()

	// Truth returns the truth value of an object.
	Truth() Bool

	// Hash returns a function of the value such that equal values
	// yield the same hash. Hash fails for mutable types.
	Hash() (uint32, error)
}

// A HasAttrs value has queryable attributes, such as the members of a
// module or a class. Attribute chains on such values can be followed
// statically by the reference extractor.
type HasAttrs interface {
	Value
	Attr(name string) (Value, error) // returns (nil, nil) if attribute not present
	AttrNames() []string             // callers must not modify the result
}

// NoneType is the type of None. Its only legal value is None.
type NoneType byte

const None = NoneType(0)

func (NoneType) String() string        { return "None" }
func (NoneType) Type() string          { return "NoneType" }
func (NoneType) Freeze()               {} // immutable
func (NoneType) Truth() Bool           { return False }
func (NoneType) Hash() (uint32, error) { return 0, nil }

// Bool is the type of booleans.
type Bool bool

const (
	False Bool = false
	True  Bool = true
)

func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}
func (b Bool) Type() string { return "bool" }
func (b Bool) Freeze()      {} // immutable
func (b Bool) Truth() Bool  { return b }
func (b Bool) Hash() (uint32, error) {
	if b {
		return 1, nil
	}
	return 0, nil
}

// Float is the type of floating-point numbers.
type Float float64

func (f Float) String() string {
	var buf strings.Builder
	f.format(&buf)
	return buf.String()
}

func (f Float) format(buf *strings.Builder) {
	ff := float64(f)
	if !isFinite(ff) {
		if math.IsInf(ff, +1) {
			buf.WriteString("+inf")
		} else if math.IsInf(ff, -1) {
			buf.WriteString("-inf")
		} else {
			buf.WriteString("nan")
		}
		return
	}

	// Go's strconv.FormatFloat dropped the trailing ".0" we want.
	s := strconv.FormatFloat(ff, 'g', -1, 64)
	buf.WriteString(s)
	if !strings.ContainsAny(s, ".eE") {
		buf.WriteString(".0") // aesthetic
	}
}

func (f Float) Type() string { return "float" }
func (f Float) Freeze()      {} // immutable
func (f Float) Truth() Bool  { return f != 0.0 }
func (f Float) Hash() (uint32, error) {
	bits := math.Float64bits(float64(f))
	return uint32(bits>>32) ^ uint32(bits), nil
}

func isFinite(f float64) bool { return math.Abs(f) <= math.MaxFloat64 }

// String is the type of text strings.
// Strings are immutable.
type String string

func (s String) String() string        { return strconv.Quote(string(s)) }
func (s String) GoString() string      { return string(s) }
func (s String) Type() string          { return "string" }
func (s String) Freeze()               {} // immutable
func (s String) Truth() Bool           { return len(s) > 0 }
func (s String) Hash() (uint32, error) { return hashString(string(s)), nil }
func (s String) Len() int              { return len(s) }

// Bytes is the type of immutable byte strings.
type Bytes []byte

func (b Bytes) String() string        { return "b" + strconv.Quote(string(b)) }
func (b Bytes) Type() string          { return "bytes" }
func (b Bytes) Freeze()               {} // immutable by convention; callers must not alias
func (b Bytes) Truth() Bool           { return len(b) > 0 }
func (b Bytes) Hash() (uint32, error) { return hashString(string(b)), nil }
func (b Bytes) Len() int              { return len(b) }

// A *Bytearray is a mutable byte buffer.
type Bytearray struct {
	data   []byte
	frozen bool
}

// NewBytearray returns a bytearray containing a copy of data.
func NewBytearray(data []byte) *Bytearray {
	return &Bytearray{data: append([]byte(nil), data...)}
}

func (b *Bytearray) String() string        { return "bytearray(b" + strconv.Quote(string(b.data)) + ")" }
func (b *Bytearray) Type() string          { return "bytearray" }
func (b *Bytearray) Freeze()               { b.frozen = true }
func (b *Bytearray) Truth() Bool           { return len(b.data) > 0 }
func (b *Bytearray) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: bytearray") }
func (b *Bytearray) Len() int              { return len(b.data) }

// Bytes returns the buffer contents. Callers must not modify the result.
func (b *Bytearray) Bytes() []byte { return b.data }

// SetBytes replaces the buffer contents.
func (b *Bytearray) SetBytes(data []byte) error {
	if b.frozen {
		return fmt.Errorf("cannot modify frozen bytearray")
	}
	b.data = append(b.data[:0], data...)
	return nil
}

// A *List represents a list of values.
type List struct {
	elems  []Value
	frozen bool
}

// NewList returns a list containing the specified elements.
// Callers should not subsequently modify elems.
func NewList(elems []Value) *List { return &List{elems: elems} }

func (l *List) Freeze() {
	if !l.frozen {
		l.frozen = true
		for _, elem := range l.elems {
			elem.Freeze()
		}
	}
}

func (l *List) String() string        { return toString(l) }
func (l *List) Type() string          { return "list" }
func (l *List) Truth() Bool           { return l.Len() > 0 }
func (l *List) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: list") }
func (l *List) Len() int              { return len(l.elems) }
func (l *List) Index(i int) Value     { return l.elems[i] }

func (l *List) SetIndex(i int, v Value) error {
	if l.frozen {
		return fmt.Errorf("cannot assign to element of frozen list")
	}
	l.elems[i] = v
	return nil
}

func (l *List) Append(v Value) error {
	if l.frozen {
		return fmt.Errorf("cannot append to frozen list")
	}
	l.elems = append(l.elems, v)
	return nil
}

// A Tuple represents an immutable tuple of values.
type Tuple []Value

func (t Tuple) Len() int          { return len(t) }
func (t Tuple) Index(i int) Value { return t[i] }

func (t Tuple) Freeze() {
	for _, elem := range t {
		elem.Freeze()
	}
}
func (t Tuple) String() string { return toString(t) }
func (t Tuple) Type() string   { return "tuple" }
func (t Tuple) Truth() Bool    { return len(t) > 0 }

func (t Tuple) Hash() (uint32, error) {
	// Use same algorithm as Python.
	var x, mult uint32 = 0x345678, 1000003
	for _, elem := range t {
		y, err := elem.Hash()
		if err != nil {
			return 0, err
		}
		x = x ^ y*mult
		mult += 82520 + uint32(len(t)+len(t))
	}
	return x, nil
}

// toString renders v, guarding against cycles through mutable
// containers by printing "..." on re-entry.
func toString(v Value) string {
	var buf bytes.Buffer
	path := make([]Value, 0, 4)
	writeValue(&buf, v, path)
	return buf.String()
}

// writeValue writes x to out, using path to detect cycles.
// It does not use x.String() for sequence types to avoid
// unbounded recursion.
func writeValue(out *bytes.Buffer, x Value, path []Value) {
	switch x := x.(type) {
	case *List:
		out.WriteByte('[')
		if pathContains(path, x) {
			out.WriteString("...") // list contains itself
		} else {
			for i, elem := range x.elems {
				if i > 0 {
					out.WriteString(", ")
				}
				writeValue(out, elem, append(path, x))
			}
		}
		out.WriteByte(']')

	case Tuple:
		out.WriteByte('(')
		for i, elem := range x {
			if i > 0 {
				out.WriteString(", ")
			}
			writeValue(out, elem, path)
		}
		if len(x) == 1 {
			out.WriteByte(',')
		}
		out.WriteByte(')')

	case *Dict:
		out.WriteByte('{')
		if pathContains(path, x) {
			out.WriteString("...") // dict contains itself
		} else {
			sep := ""
			for _, e := range x.ht.entries() {
				out.WriteString(sep)
				writeValue(out, e.key, path)
				out.WriteString(": ")
				writeValue(out, e.value, append(path, x))
				sep = ", "
			}
		}
		out.WriteByte('}')

	case *Set:
		out.WriteString("set([")
		if pathContains(path, x) {
			out.WriteString("...")
		} else {
			for i, elem := range x.Elems() {
				if i > 0 {
					out.WriteString(", ")
				}
				writeValue(out, elem, append(path, x))
			}
		}
		out.WriteString("])")

	default:
		out.WriteString(x.String())
	}
}

func pathContains(path []Value, x Value) bool {
	for _, y := range path {
		if x == y {
			return true
		}
	}
	return false
}

// CompareLimit is the depth limit on recursive equality of
// values that contain values.
const CompareLimit = 10

// Equal reports whether two values are structurally equal.
// Values of distinct types are never equal.
func Equal(x, y Value) (bool, error) {
	if x, ok := x.(String); ok {
		return x == y, nil // fast path for an important special case
	}
	return equalDepth(x, y, CompareLimit)
}

func equalDepth(x, y Value, depth int) (bool, error) {
	if depth < 1 {
		return false, fmt.Errorf("comparison exceeded maximum recursion depth")
	}
	if x.Type() != y.Type() {
		return false, nil
	}
	switch x := x.(type) {
	case NoneType:
		return true, nil
	case Bool:
		return x == y.(Bool), nil
	case Float:
		return x == y.(Float), nil
	case String:
		return x == y.(String), nil
	case Bytes:
		return bytes.Equal(x, y.(Bytes)), nil
	case Int:
		return cmpInt(x, y.(Int)) == 0, nil
	case Tuple:
		return sliceEqual(x, y.(Tuple), depth)
	case *List:
		yl := y.(*List)
		if x == yl {
			return true, nil
		}
		return sliceEqual(x.elems, yl.elems, depth)
	default:
		// Mutable or identity-bearing types compare by identity.
		return x == y, nil
	}
}

func sliceEqual(x, y []Value, depth int) (bool, error) {
	if len(x) != len(y) {
		return false, nil
	}
	for i, xe := range x {
		eq, err := equalDepth(xe, y[i], depth-1)
		if err != nil || !eq {
			return eq, err
		}
	}
	return true, nil
}
