// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codedigest

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"log"
	"math"
	"math/big"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/memoflow/codedigest/unitcode"
	"github.com/memoflow/codedigest/value"
)

// A Digest is a fixed-size content fingerprint, safe to compare for
// equality and to persist as a cache key.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DefaultMaxDepth bounds the recursion of a single Hash call. Nesting
// deeper than this is treated as pathological and reported as a
// *TooDeepError rather than risking stack exhaustion.
const DefaultMaxDepth = 10000

// A TooDeepError reports that a value graph exceeded the hasher's
// depth limit.
type TooDeepError struct {
	Limit int
}

func (e *TooDeepError) Error() string {
	return fmt.Sprintf("value graph exceeds maximum digest depth (%d)", e.Limit)
}

// cycleDigest is the sentinel substituted for a value that is
// encountered again while its own digest is still being computed,
// which breaks both data cycles and mutual recursion of functions.
var cycleDigest = Digest(sha256.Sum256([]byte("codedigest: in progress")))

// A Hasher computes content digests. The zero value is ready to use.
//
// A Hasher carries no state between Hash calls: captured free
// variables may mutate between calls and must be re-observed every
// time, so digests are never cached across independent invocations.
// A Hasher may be used from multiple goroutines simultaneously.
type Hasher struct {
	// IsInternal classifies a function's defining module, given its
	// name and origin file path. Functions from external modules are
	// digested by origin and name only, so that changes to code the
	// caller does not control never invalidate caches. If nil, every
	// module is considered internal.
	IsInternal func(module, path string) bool

	// Warn receives non-fatal analysis warnings, such as an opaque
	// object whose digest cannot reflect its contents. If nil,
	// warnings go to the standard log.
	Warn func(format string, args ...interface{})

	// MaxDepth overrides DefaultMaxDepth if positive.
	MaxDepth int
}

// Hash returns the content digest of v.
//
// Equal inputs yield equal digests across calls and across processes;
// a change to any ingredient of v, including values transitively
// referenced by functions, changes the digest with overwhelming
// probability.
func (h *Hasher) Hash(v value.Value) (Digest, error) {
	return h.newState().hash(v)
}

// HashUnit returns the content digest of a bare compiled unit with no
// bound environment, such as one decoded by unitcode.DecodeUnit. Only
// instructions, constants, and nested units participate; there are no
// captures to resolve.
func (h *Hasher) HashUnit(u *unitcode.Unit) (Digest, error) {
	return h.newState().hashBareUnit(u)
}

var defaultHasher Hasher

// Hash returns the content digest of v using a default Hasher.
func Hash(v value.Value) (Digest, error) { return defaultHasher.Hash(v) }

// hashState is the per-call state of one top-level Hash invocation.
// It must not outlive the call.
type hashState struct {
	opts     *Hasher
	maxDepth int
	depth    int
	busy     map[interface{}]bool   // values whose digest is being computed
	memo     map[interface{}]Digest // completed digests, by identity
	warned   map[string]bool        // opaque type names warned about
}

func (h *Hasher) newState() *hashState {
	maxDepth := h.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &hashState{
		opts:     h,
		maxDepth: maxDepth,
		busy:     make(map[interface{}]bool),
		memo:     make(map[interface{}]Digest),
		warned:   make(map[string]bool),
	}
}

func (s *hashState) warnf(format string, args ...interface{}) {
	if s.opts.Warn != nil {
		s.opts.Warn(format, args...)
	} else {
		log.Printf(format, args...)
	}
}

// identityKey returns a key identifying v for the cycle guard and the
// per-call memo, or nil if v has no useful identity. Only
// pointer-shaped values can close a reference cycle or be profitably
// memoized; scalars and tuples are digested structurally every time.
func identityKey(v value.Value) interface{} {
	switch v.(type) {
	case *value.List, *value.Set, *value.Dict, *value.Bytearray,
		*value.Function, *value.BoundMethod, *value.Class, *value.Module:
		return v
	}
	return nil
}

func (s *hashState) hash(v value.Value) (Digest, error) {
	if v == nil {
		return Digest{}, fmt.Errorf("cannot digest nil value")
	}
	if s.depth >= s.maxDepth {
		return Digest{}, &TooDeepError{s.maxDepth}
	}

	key := identityKey(v)
	if key != nil {
		if s.busy[key] {
			// The digest of v is still being computed below us:
			// substitute the sentinel instead of recursing forever.
			// The sentinel is valid only at this position in the
			// traversal and is never memoized.
			return cycleDigest, nil
		}
		if d, ok := s.memo[key]; ok {
			return d, nil
		}
		s.busy[key] = true
		defer delete(s.busy, key)
	}

	s.depth++
	d, err := s.hashValue(v)
	s.depth--
	if err == nil && key != nil {
		s.memo[key] = d
	}
	return d, err
}

func (s *hashState) hashValue(v value.Value) (Digest, error) {
	e := newEncoder()
	switch v := v.(type) {
	case value.NoneType:
		e.tag(tagNone)

	case value.Bool:
		e.tag(tagBool)
		if v {
			e.byte(1)
		} else {
			e.byte(0)
		}

	case value.Int:
		e.tag(tagInt)
		e.byte(byte(v.Sign() + 1))
		e.bytes(v.BigInt().Bytes()) // magnitude, big-endian, no leading zeros

	case value.Float:
		e.tag(tagFloat)
		e.float(float64(v))

	case value.String:
		e.tag(tagString)
		e.string(string(v))

	case value.Bytes:
		e.tag(tagBytes)
		e.bytes(v)

	case *value.Bytearray:
		e.tag(tagBytearray)
		e.bytes(v.Bytes())

	case *value.List:
		e.tag(tagList)
		e.uvarint(uint64(v.Len()))
		for i := 0; i < v.Len(); i++ {
			d, err := s.hash(v.Index(i))
			if err != nil {
				return Digest{}, err
			}
			e.digest(d)
		}

	case value.Tuple:
		e.tag(tagTuple)
		e.uvarint(uint64(len(v)))
		for _, elem := range v {
			d, err := s.hash(elem)
			if err != nil {
				return Digest{}, err
			}
			e.digest(d)
		}

	case *value.Set:
		// Insertion order must not leak into the digest.
		e.tag(tagSet)
		elems := v.Elems()
		e.uvarint(uint64(len(elems)))
		ds := make([]Digest, len(elems))
		for i, elem := range elems {
			d, err := s.hash(elem)
			if err != nil {
				return Digest{}, err
			}
			ds[i] = d
		}
		e.sorted(ds)

	case *value.Dict:
		e.tag(tagDict)
		items := v.Items()
		e.uvarint(uint64(len(items)))
		ds := make([]Digest, len(items))
		for i, item := range items {
			kd, err := s.hash(item[0])
			if err != nil {
				return Digest{}, err
			}
			vd, err := s.hash(item[1])
			if err != nil {
				return Digest{}, err
			}
			ds[i] = entryDigest(kd, vd)
		}
		e.sorted(ds)

	case *value.Function:
		return s.hashFunction(v.Unit(), FunctionContext(v), v.Defaults())

	case *value.BoundMethod:
		return s.hashFunction(v.Fn.Unit(), MethodContext(v), v.Fn.Defaults())

	case *value.Class:
		// Only the qualified name: digesting class bodies member by
		// member is deliberately deferred.
		e.tag(tagClass)
		e.string(v.QualName())

	case *value.Builtin:
		// Platform routines are versioned externally; origin and name
		// stand in for behavior.
		e.tag(tagBuiltin)
		e.string(v.Module())
		e.string(v.Name())

	case *value.Module:
		e.tag(tagModule)
		e.string(v.Name)

	default:
		// An object this package cannot decompose. Its digest
		// reflects only its type, so equal-looking inputs may produce
		// false cache hits; tell the caller, once per call.
		e.tag(tagDefault)
		e.string(v.Type())
		if !s.warned[v.Type()] {
			s.warned[v.Type()] = true
			s.warnf("found a complex object of type %s; its digest does not reflect its contents", v.Type())
		}
	}
	return e.sum(), nil
}

// hashFunction digests an executable unit together with its binding
// context: instructions, constants, parameter defaults, and then every
// reference the unit makes, in emission order. Functions defined in
// external modules are digested by origin and name only.
func (s *hashState) hashFunction(u *unitcode.Unit, ctx *Context, defaults []value.Value) (Digest, error) {
	if s.opts.IsInternal != nil && !s.opts.IsInternal(u.Module, u.Path) {
		e := newEncoder()
		e.tag(tagExtFunc)
		e.string(u.Module)
		e.string(u.QualName())
		return e.sum(), nil
	}

	e := newEncoder()
	e.tag(tagFunction)
	e.bytes(u.Code)

	e.uvarint(uint64(len(u.Constants)))
	for _, c := range u.Constants {
		d, err := s.hash(constValue(c))
		if err != nil {
			return Digest{}, err
		}
		e.digest(d)
	}

	e.uvarint(uint64(len(defaults)))
	for _, dflt := range defaults {
		d, err := s.hash(dflt)
		if err != nil {
			return Digest{}, err
		}
		e.digest(d)
	}

	refs := ExtractRefs(u, ctx, s.warnf)
	e.uvarint(uint64(len(refs)))
	for _, r := range refs {
		var d Digest
		var err error
		switch {
		case r.Unit != nil:
			// A nested unit shares the enclosing binding context; its
			// own references are expanded here, never inlined flat.
			d, err = s.hashNestedUnit(r.Unit, ctx)
		case r.Value != nil:
			d, err = s.hash(r.Value)
		default:
			d, err = s.hash(value.String(r.Name))
		}
		if err != nil {
			return Digest{}, err
		}
		e.digest(d)
	}
	return e.sum(), nil
}

// A nestedKey identifies a nested unit under one binding context. The
// digest of a nested unit depends on both: two closures sharing a unit
// but capturing different values must not share a memo entry.
type nestedKey struct {
	unit *unitcode.Unit
	ctx  *Context
}

func (s *hashState) hashNestedUnit(u *unitcode.Unit, ctx *Context) (Digest, error) {
	if s.depth >= s.maxDepth {
		return Digest{}, &TooDeepError{s.maxDepth}
	}
	key := nestedKey{u, ctx}
	if s.busy[key] {
		return cycleDigest, nil
	}
	if d, ok := s.memo[key]; ok {
		return d, nil
	}
	s.busy[key] = true
	defer delete(s.busy, key)

	s.depth++
	d, err := s.hashFunction(u, ctx, nil)
	s.depth--
	if err == nil {
		s.memo[key] = d
	}
	return d, err
}

// hashBareUnit digests a unit that has no binding environment:
// instructions, constants, and nested units only.
func (s *hashState) hashBareUnit(u *unitcode.Unit) (Digest, error) {
	if s.depth >= s.maxDepth {
		return Digest{}, &TooDeepError{s.maxDepth}
	}
	s.depth++
	defer func() { s.depth-- }()

	e := newEncoder()
	e.tag(tagUnit)
	e.bytes(u.Code)
	e.uvarint(uint64(len(u.Constants)))
	for _, c := range u.Constants {
		d, err := s.hash(constValue(c))
		if err != nil {
			return Digest{}, err
		}
		e.digest(d)
	}
	e.uvarint(uint64(len(u.Units)))
	for _, nested := range u.Units {
		d, err := s.hashBareUnit(nested)
		if err != nil {
			return Digest{}, err
		}
		e.digest(d)
	}
	return e.sum(), nil
}

// constValue converts a unit constant to its value representation.
// An invalid constant is a programming error: Units reject them at
// assembly and at decode.
func constValue(c interface{}) value.Value {
	switch c := c.(type) {
	case nil:
		return value.None
	case bool:
		return value.Bool(c)
	case int64:
		return value.MakeInt64(c)
	case *big.Int:
		return value.MakeBigInt(c)
	case float64:
		return value.Float(c)
	case string:
		return value.String(c)
	case []byte:
		return value.Bytes(c)
	}
	panic(fmt.Sprintf("invalid unit constant %T", c))
}

// entryDigest combines a key digest and value digest into one
// mapping-entry digest.
func entryDigest(kd, vd Digest) Digest {
	h := sha256.New()
	h.Write(kd[:])
	h.Write(vd[:])
	var d Digest
	h.Sum(d[:0])
	return d
}

// Markers distinguishing float special values, which are digested as
// canonical byte patterns rather than via numeric formatting.
const (
	floatOrdinary = iota
	floatNaN
	floatPosInf
	floatNegInf
	floatNegZero
)

// An encoder accumulates one value's digest preimage.
type encoder struct {
	h       hash.Hash
	scratch []byte
}

func newEncoder() *encoder { return &encoder{h: sha256.New()} }

func (e *encoder) tag(t typeTag) {
	if t == 0 || t > tagMax {
		panic(fmt.Sprintf("codedigest: %s reached the encoder", t))
	}
	e.byte(byte(t))
}

func (e *encoder) byte(b byte) {
	e.scratch = append(e.scratch[:0], b)
	e.h.Write(e.scratch)
}

func (e *encoder) uvarint(x uint64) {
	e.scratch = protowire.AppendVarint(e.scratch[:0], x)
	e.h.Write(e.scratch)
}

func (e *encoder) bytes(b []byte) {
	e.uvarint(uint64(len(b)))
	e.h.Write(b)
}

func (e *encoder) string(s string) {
	e.uvarint(uint64(len(s)))
	io.WriteString(e.h, s)
}

func (e *encoder) float(f float64) {
	switch {
	case math.IsNaN(f):
		e.byte(floatNaN)
	case math.IsInf(f, +1):
		e.byte(floatPosInf)
	case math.IsInf(f, -1):
		e.byte(floatNegInf)
	case f == 0 && math.Signbit(f):
		e.byte(floatNegZero)
	default:
		e.byte(floatOrdinary)
		e.scratch = e.scratch[:0]
		e.scratch = append(e.scratch, 0, 0, 0, 0, 0, 0, 0, 0)
		binary.BigEndian.PutUint64(e.scratch, math.Float64bits(f))
		e.h.Write(e.scratch)
	}
}

func (e *encoder) digest(d Digest) { e.h.Write(d[:]) }

// sorted folds digests into the preimage in an order-independent way.
func (e *encoder) sorted(ds []Digest) {
	sort.Slice(ds, func(i, j int) bool {
		return bytes.Compare(ds[i][:], ds[j][:]) < 0
	})
	for _, d := range ds {
		e.digest(d)
	}
}

func (e *encoder) sum() Digest {
	var d Digest
	e.h.Sum(d[:0])
	return d
}
