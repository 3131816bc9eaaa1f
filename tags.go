// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codedigest

import "fmt"

// A typeTag is the first byte of every value's digest preimage. The
// tag keeps values of different categories from ever sharing a
// preimage: int 1, True, and 1.0 differ in their first byte before any
// payload is considered.
//
// Digests are persisted by callers as cache keys, so tags are part of
// the stable format. Never renumber or reuse a tag; add new ones at
// the end.
type typeTag byte

const (
	tagNone      typeTag = 0x01
	tagBool      typeTag = 0x02
	tagInt       typeTag = 0x03
	tagFloat     typeTag = 0x04
	tagString    typeTag = 0x05
	tagBytes     typeTag = 0x06
	tagBytearray typeTag = 0x07
	tagList      typeTag = 0x08
	tagTuple     typeTag = 0x09
	tagSet       typeTag = 0x0a
	tagDict      typeTag = 0x0b
	tagFunction  typeTag = 0x0c // executable unit with bound environment
	tagExtFunc   typeTag = 0x0d // function from an external module
	tagUnit      typeTag = 0x0e // compiled unit with no bound environment
	tagClass     typeTag = 0x0f
	tagBuiltin   typeTag = 0x10
	tagModule    typeTag = 0x11
	tagDefault   typeTag = 0x12 // opaque fallback

	tagMax = tagDefault
)

var tagNames = [tagMax + 1]string{
	tagNone:      "none",
	tagBool:      "bool",
	tagInt:       "int",
	tagFloat:     "float",
	tagString:    "string",
	tagBytes:     "bytes",
	tagBytearray: "bytearray",
	tagList:      "list",
	tagTuple:     "tuple",
	tagSet:       "set",
	tagDict:      "dict",
	tagFunction:  "function",
	tagExtFunc:   "external function",
	tagUnit:      "unit",
	tagClass:     "class",
	tagBuiltin:   "builtin",
	tagModule:    "module",
	tagDefault:   "default",
}

func (t typeTag) String() string {
	if t <= tagMax && tagNames[t] != "" {
		return tagNames[t]
	}
	return fmt.Sprintf("illegal tag (%d)", byte(t))
}
