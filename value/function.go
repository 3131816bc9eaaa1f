// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"fmt"

	"github.com/memoflow/codedigest/unitcode"
)

// A Cell is the mutable holder of a captured variable, shared between
// the closures that capture it and the scope that defined it. The
// contents a closure observes are read at digest time, not at closure
// creation time.
type Cell struct {
	v Value
}

// NewCell returns a cell holding v.
func NewCell(v Value) *Cell { return &Cell{v} }

// Get returns the current contents of the cell.
func (c *Cell) Get() Value { return c.v }

// Set replaces the contents of the cell.
func (c *Cell) Set(v Value) { c.v = v }

// A Function is a value representing a function, closure, or nested
// block: an executable unit bound to its defining module's live global
// namespace and to the cells of its captured free variables.
type Function struct {
	unit      *unitcode.Unit
	globals   StringDict
	freeCells []*Cell // parallel to unit.FreeVars
	defaults  []Value // parameter default values, in order
}

// NewFunction returns a function value for the given unit.
// freeCells must have one cell per free variable of the unit.
// Callers should not subsequently modify defaults.
func NewFunction(unit *unitcode.Unit, globals StringDict, freeCells []*Cell, defaults []Value) *Function {
	if len(freeCells) != len(unit.FreeVars) {
		panic(fmt.Sprintf("function %s: %d cells for %d free variables",
			unit.QualName(), len(freeCells), len(unit.FreeVars)))
	}
	return &Function{unit: unit, globals: globals, freeCells: freeCells, defaults: defaults}
}

// Unit returns the function's executable unit.
func (fn *Function) Unit() *unitcode.Unit { return fn.unit }

// Globals returns the global namespace of the function's defining module.
func (fn *Function) Globals() StringDict { return fn.globals }

// FreeCells returns the cells of the function's free variables,
// parallel to fn.Unit().FreeVars. Callers must not modify the result.
func (fn *Function) FreeCells() []*Cell { return fn.freeCells }

// Defaults returns the parameter default values in order.
// Callers must not modify the result.
func (fn *Function) Defaults() []Value { return fn.defaults }

func (fn *Function) Name() string     { return fn.unit.Name }
func (fn *Function) Module() string   { return fn.unit.Module }
func (fn *Function) Path() string     { return fn.unit.Path }
func (fn *Function) QualName() string { return fn.unit.QualName() }

func (fn *Function) String() string { return fmt.Sprintf("<function %s>", fn.Name()) }
func (fn *Function) Type() string   { return "function" }
func (fn *Function) Truth() Bool    { return true }
func (fn *Function) Hash() (uint32, error) {
	return hashString(fn.unit.QualName()), nil
}
func (fn *Function) Freeze() {
	for _, d := range fn.defaults {
		d.Freeze()
	}
}

// A BoundMethod is a function bound to a receiver. In the method's
// unit the receiver occupies the first parameter.
type BoundMethod struct {
	Recv Value
	Fn   *Function
}

// NewBoundMethod returns a bound method value.
func NewBoundMethod(recv Value, fn *Function) *BoundMethod {
	return &BoundMethod{Recv: recv, Fn: fn}
}

func (m *BoundMethod) Name() string   { return m.Fn.Name() }
func (m *BoundMethod) String() string { return fmt.Sprintf("<bound method %s>", m.Fn.QualName()) }
func (m *BoundMethod) Type() string   { return "method" }
func (m *BoundMethod) Truth() Bool    { return true }
func (m *BoundMethod) Hash() (uint32, error) {
	h, err := m.Fn.Hash()
	return h ^ 0x5e1f, err
}
func (m *BoundMethod) Freeze() {
	m.Recv.Freeze()
	m.Fn.Freeze()
}

// A *Builtin is a routine provided by the platform itself rather than
// defined by user code. Only its origin identity (defining module and
// name), not its behavior, participates in content digests: platform
// routines are presumed to be versioned externally.
type Builtin struct {
	name   string
	module string
}

// NewBuiltin returns a builtin routine value.
func NewBuiltin(module, name string) *Builtin {
	return &Builtin{name: name, module: module}
}

func (b *Builtin) Name() string   { return b.name }
func (b *Builtin) Module() string { return b.module }

func (b *Builtin) String() string        { return fmt.Sprintf("<built-in function %s>", b.name) }
func (b *Builtin) Type() string          { return "builtin_function_or_method" }
func (b *Builtin) Truth() Bool           { return true }
func (b *Builtin) Freeze()               {} // immutable
func (b *Builtin) Hash() (uint32, error) { return hashString(b.name), nil }

// A *Class is a type object. Content digests inspect only its
// qualified name; member-by-member digesting of class bodies is
// deliberately deferred.
type Class struct {
	name    string
	module  string
	Members StringDict
}

// NewClass returns a class value with the given members.
func NewClass(module, name string, members StringDict) *Class {
	return &Class{name: name, module: module, Members: members}
}

var _ HasAttrs = (*Class)(nil)

func (c *Class) Name() string     { return c.name }
func (c *Class) Module() string   { return c.module }
func (c *Class) QualName() string { return c.module + "." + c.name }

func (c *Class) Attr(name string) (Value, error) { return c.Members[name], nil }
func (c *Class) AttrNames() []string             { return c.Members.Keys() }

func (c *Class) String() string        { return fmt.Sprintf("<class %s>", c.QualName()) }
func (c *Class) Type() string          { return "type" }
func (c *Class) Truth() Bool           { return true }
func (c *Class) Freeze()               { c.Members.Freeze() }
func (c *Class) Hash() (uint32, error) { return hashString(c.QualName()), nil }
