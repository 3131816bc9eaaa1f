// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unitcode

import (
	"fmt"
	"math/big"

	"google.golang.org/protobuf/encoding/protowire"
)

// An Assembler builds a Unit one instruction at a time. It interns
// constants and names, assigns local and free variable slots, and
// records nested units. It is the construction API used by compiler
// front ends and by tests.
//
// Misuse (an operand for an operand-less opcode, an invalid constant,
// an undeclared name) is a programming error and panics.
type Assembler struct {
	Name   string // unit name, e.g. "fib"
	Module string // defining module name
	Path   string // origin file path of the defining module

	code        []byte
	constants   []interface{}
	constIndex  map[constKey]uint32
	names       []string
	nameIndex   map[string]uint32
	locals      []string
	localIndex  map[string]uint32
	cellvars    []string
	freevars    []string
	freeIndex   map[string]uint32
	numParams   int
	units       []*Unit
	cellsSealed bool
	done        bool
}

// Constants are interned by kind and printed form so that, say,
// int64(1), float64(1), and "1" never share a slot.
type constKey struct {
	kind string
	repr string
}

// NewAssembler returns an empty Assembler for a unit of the given
// qualified origin.
func NewAssembler(module, path, name string) *Assembler {
	return &Assembler{
		Name:       name,
		Module:     module,
		Path:       path,
		constIndex: make(map[constKey]uint32),
		nameIndex:  make(map[string]uint32),
		localIndex: make(map[string]uint32),
		freeIndex:  make(map[string]uint32),
	}
}

// Param declares the next parameter. All parameters must be declared
// before any other local.
func (a *Assembler) Param(name string) {
	if len(a.locals) != a.numParams {
		panic(fmt.Sprintf("unitcode: parameter %q declared after non-parameter local", name))
	}
	a.declareLocal(name)
	a.numParams++
}

func (a *Assembler) declareLocal(name string) uint32 {
	if _, ok := a.localIndex[name]; ok {
		panic(fmt.Sprintf("unitcode: duplicate local %q in %s", name, a.Name))
	}
	i := uint32(len(a.locals))
	a.locals = append(a.locals, name)
	a.localIndex[name] = i
	return i
}

// DeclareCell declares a local that is captured by a nested unit.
// All cells must be declared before the first FREE instruction is
// emitted, since FREE operands index CellVars followed by FreeVars.
func (a *Assembler) DeclareCell(name string) {
	if a.cellsSealed {
		panic(fmt.Sprintf("unitcode: cell %q declared after a FREE instruction", name))
	}
	a.cellvars = append(a.cellvars, name)
}

// DeclareFree declares a name captured from an enclosing unit.
func (a *Assembler) DeclareFree(name string) {
	if _, ok := a.freeIndex[name]; ok {
		panic(fmt.Sprintf("unitcode: duplicate free variable %q in %s", name, a.Name))
	}
	a.freeIndex[name] = uint32(len(a.freevars))
	a.freevars = append(a.freevars, name)
}

// Constant interns c and returns its index in the constants table.
func (a *Assembler) Constant(c interface{}) uint32 {
	if err := checkConstant(c); err != nil {
		panic(err.Error())
	}
	key := constKey{fmt.Sprintf("%T", c), constString(c)}
	if i, ok := a.constIndex[key]; ok {
		return i
	}
	i := uint32(len(a.constants))
	a.constants = append(a.constants, c)
	a.constIndex[key] = i
	return i
}

// NameIndex interns name in the global/attribute name table.
func (a *Assembler) NameIndex(name string) uint32 {
	if i, ok := a.nameIndex[name]; ok {
		return i
	}
	i := uint32(len(a.names))
	a.names = append(a.names, name)
	a.nameIndex[name] = i
	return i
}

// Op emits an operand-less instruction.
func (a *Assembler) Op(op Opcode) {
	if op >= OpcodeArgMin {
		panic(fmt.Sprintf("unitcode: missing operand for %s", op))
	}
	a.code = append(a.code, byte(op))
}

// Op1 emits an instruction with an operand.
func (a *Assembler) Op1(op Opcode, arg uint32) {
	if op < OpcodeArgMin {
		panic(fmt.Sprintf("unitcode: unwanted operand for %s", op))
	}
	a.code = append(a.code, byte(op))
	a.code = protowire.AppendVarint(a.code, uint64(arg))
}

// Const emits CONST for the interned constant c.
func (a *Assembler) Const(c interface{}) { a.Op1(CONST, a.Constant(c)) }

// Int emits CONST for an integer literal, choosing the compact
// representation when the value fits in an int64.
func (a *Assembler) Int(x *big.Int) {
	if x.IsInt64() {
		a.Const(x.Int64())
	} else {
		a.Const(new(big.Int).Set(x))
	}
}

// Global emits GLOBAL for a module-level name lookup.
func (a *Assembler) Global(name string) { a.Op1(GLOBAL, a.NameIndex(name)) }

// Local emits LOCAL, declaring the local if needed.
func (a *Assembler) Local(name string) {
	i, ok := a.localIndex[name]
	if !ok {
		i = a.declareLocal(name)
	}
	a.Op1(LOCAL, i)
}

// SetLocal emits SETLOCAL, declaring the local if needed.
func (a *Assembler) SetLocal(name string) {
	i, ok := a.localIndex[name]
	if !ok {
		i = a.declareLocal(name)
	}
	a.Op1(SETLOCAL, i)
}

// Free emits FREE for a variable captured from an enclosing unit,
// declaring it if needed.
func (a *Assembler) Free(name string) {
	i, ok := a.freeIndex[name]
	if !ok {
		a.DeclareFree(name)
		i = a.freeIndex[name]
	}
	a.cellsSealed = true
	a.Op1(FREE, uint32(len(a.cellvars))+i)
}

// Cell emits FREE for one of this unit's own captured locals,
// declaring the cell if needed.
func (a *Assembler) Cell(name string) {
	for i, c := range a.cellvars {
		if c == name {
			a.cellsSealed = true
			a.Op1(FREE, uint32(i))
			return
		}
	}
	a.DeclareCell(name)
	a.cellsSealed = true
	a.Op1(FREE, uint32(len(a.cellvars)-1))
}

// Attr emits ATTR for an attribute or method lookup.
func (a *Assembler) Attr(name string) { a.Op1(ATTR, a.NameIndex(name)) }

// SetField emits SETFIELD for a field update.
func (a *Assembler) SetField(name string) { a.Op1(SETFIELD, a.NameIndex(name)) }

// Call emits CALL of a callable with argc arguments.
func (a *Assembler) Call(argc int) { a.Op1(CALL, uint32(argc)) }

// LoadMod emits LOADMOD, a dynamic in-unit module import.
func (a *Assembler) LoadMod(name string) { a.Op1(LOADMOD, a.NameIndex(name)) }

// MakeFunc records nested as a nested unit and emits MAKEFUNC for it.
func (a *Assembler) MakeFunc(nested *Unit) {
	if nested.parent != nil {
		panic(fmt.Sprintf("unitcode: unit %s already nested in %s", nested.Name, nested.parent.Name))
	}
	i := uint32(len(a.units))
	a.units = append(a.units, nested)
	a.Op1(MAKEFUNC, i)
}

// Return emits RETURN.
func (a *Assembler) Return() { a.Op(RETURN) }

// Assemble finalizes and returns the Unit.
// The Assembler must not be used again afterwards.
func (a *Assembler) Assemble() *Unit {
	if a.done {
		panic("unitcode: Assemble called twice")
	}
	a.done = true
	u := &Unit{
		Name:      a.Name,
		Module:    a.Module,
		Path:      a.Path,
		Code:      a.code,
		Constants: a.constants,
		Names:     a.names,
		Locals:    a.locals,
		CellVars:  a.cellvars,
		FreeVars:  a.freevars,
		NumParams: a.numParams,
		Units:     a.units,
	}
	for _, nested := range a.units {
		nested.parent = u
	}
	return u
}
