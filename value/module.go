// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"bytes"
	"fmt"
	"sort"
)

// A Module is a named collection of values: the environment a unit's
// global references resolve against, and a receiver for attribute
// chains like m.sub.f.
type Module struct {
	Name    string
	Members StringDict
}

var _ HasAttrs = (*Module)(nil)

func (m *Module) Attr(name string) (Value, error) { return m.Members[name], nil }
func (m *Module) AttrNames() []string             { return m.Members.Keys() }
func (m *Module) Freeze()                         { m.Members.Freeze() }
func (m *Module) Hash() (uint32, error)           { return 0, fmt.Errorf("unhashable: %s", m.Type()) }
func (m *Module) String() string                  { return fmt.Sprintf("<module %q>", m.Name) }
func (m *Module) Truth() Bool                     { return true }
func (m *Module) Type() string                    { return "module" }

// A StringDict is a mapping from names to values, and represents
// an environment such as the global variables of a module.
// It is not a true Value.
type StringDict map[string]Value

// Keys returns a new sorted slice of d's keys.
func (d StringDict) Keys() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d StringDict) String() string {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	sep := ""
	for _, name := range d.Keys() {
		buf.WriteString(sep)
		buf.WriteString(name)
		buf.WriteString(": ")
		writeValue(buf, d[name], nil)
		sep = ", "
	}
	buf.WriteByte('}')
	return buf.String()
}

func (d StringDict) Freeze() {
	for _, v := range d {
		v.Freeze()
	}
}

// Has reports whether the dictionary contains the specified key.
func (d StringDict) Has(key string) bool { _, ok := d[key]; return ok }
