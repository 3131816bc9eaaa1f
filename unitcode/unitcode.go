// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package unitcode defines the executable unit representation analyzed
// by codedigest: a compact instruction stream over tables of constants,
// names, and nested units.
//
// A Unit is produced once, by a compiler front end or by an Assembler,
// and never mutated afterwards. Many callers may share the same Unit.
// The instruction encoding is a single opcode byte optionally followed
// by an unsigned varint operand; opcodes at or above OpcodeArgMin carry
// an operand, the rest do not.
package unitcode

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// An Opcode identifies one instruction in a Unit's code stream.
type Opcode uint8

const (
	NOP Opcode = iota // - NOP -

	// stack operations
	NONE   // - NONE none
	TRUE   // - TRUE true
	FALSE  // - FALSE false
	POP    // x POP -
	DUP    // x DUP x x
	RETURN // x RETURN -

	// unary operators
	NOT // x NOT bool
	NEG // x NEG -x

	// binary operators
	ADD // x y ADD x+y
	SUB // x y SUB x-y
	MUL // x y MUL x*y
	DIV // x y DIV x/y
	MOD // x y MOD x%y
	EQL // x y EQL bool
	NEQ // x y NEQ bool
	LT  // x y LT  bool
	LE  // x y LE  bool
	GT  // x y GT  bool
	GE  // x y GE  bool

	// indexing
	INDEX    // x i INDEX x[i]
	SETINDEX // x i y SETINDEX -

	// iteration
	ITERPUSH // iterable ITERPUSH -
	ITERPOP  // - ITERPOP -

	// --- opcodes with an argument must go below this line ---

	JMP     // - JMP<addr> -
	CJMP    // cond CJMP<addr> -
	ITERJMP // - ITERJMP<addr> elem (or jump if exhausted)

	CONST     // - CONST<constidx> value
	GLOBAL    // - GLOBAL<nameidx> value
	LOCAL     // - LOCAL<localidx> value
	SETLOCAL  // x SETLOCAL<localidx> -
	FREE      // - FREE<derefidx> value; derefidx indexes CellVars then FreeVars
	ATTR      // x ATTR<nameidx> y
	SETFIELD  // x y SETFIELD<nameidx> -
	CALL      // fn arg0 ... argN CALL<n> result
	MAKEFUNC  // defaults MAKEFUNC<unitidx> fn
	MAKELIST  // x0 ... xN MAKELIST<n> list
	MAKETUPLE // x0 ... xN MAKETUPLE<n> tuple
	MAKEDICT  // k0 v0 ... kN vN MAKEDICT<n> dict
	MAKESET   // x0 ... xN MAKESET<n> set
	LOADMOD   // - LOADMOD<nameidx> module

	OpcodeArgMin = JMP
	OpcodeMax    = LOADMOD
)

var opcodeNames = [OpcodeMax + 1]string{
	ADD:       "add",
	ATTR:      "attr",
	CALL:      "call",
	CJMP:      "cjmp",
	CONST:     "const",
	DIV:       "div",
	DUP:       "dup",
	EQL:       "eql",
	FALSE:     "false",
	FREE:      "free",
	GE:        "ge",
	GLOBAL:    "global",
	GT:        "gt",
	INDEX:     "index",
	ITERJMP:   "iterjmp",
	ITERPOP:   "iterpop",
	ITERPUSH:  "iterpush",
	JMP:       "jmp",
	LE:        "le",
	LOADMOD:   "loadmod",
	LOCAL:     "local",
	LT:        "lt",
	MAKEDICT:  "makedict",
	MAKEFUNC:  "makefunc",
	MAKELIST:  "makelist",
	MAKESET:   "makeset",
	MAKETUPLE: "maketuple",
	MOD:       "mod",
	MUL:       "mul",
	NEG:       "neg",
	NEQ:       "neq",
	NONE:      "none",
	NOP:       "nop",
	NOT:       "not",
	POP:       "pop",
	RETURN:    "return",
	SETFIELD:  "setfield",
	SETINDEX:  "setindex",
	SETLOCAL:  "setlocal",
	TRUE:      "true",
	SUB:       "sub",
}

func (op Opcode) String() string {
	if op <= OpcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// A Unit is one executable unit: the compiled representation of a
// function, closure, or nested block.
//
// All fields are logically immutable after assembly.
type Unit struct {
	Name      string        // name of the unit within its module
	Module    string        // name of the defining module
	Path      string        // origin file path of the defining module
	Code      []byte        // encoded instruction stream
	Constants []interface{} // ordered literals: nil, bool, int64, *big.Int, float64, string, []byte
	Names     []string      // global and attribute names, indexed by GLOBAL/ATTR/SETFIELD/LOADMOD
	Locals    []string      // declared local names, parameters first
	CellVars  []string      // locals captured by nested units
	FreeVars  []string      // names captured from an enclosing unit
	NumParams int           // number of parameters (a prefix of Locals)
	Units     []*Unit       // nested units, in definition order

	parent *Unit // enclosing unit, or nil; set by Assemble
}

// Parent returns the enclosing unit, or nil for a top-level unit.
func (u *Unit) Parent() *Unit { return u.parent }

// QualName returns the qualified origin identifier of the unit:
// the defining module followed by the names on the nesting path.
func (u *Unit) QualName() string {
	var names []string
	for x := u; x != nil; x = x.parent {
		names = append(names, x.Name)
	}
	var sb strings.Builder
	sb.WriteString(u.Module)
	for i := len(names) - 1; i >= 0; i-- {
		sb.WriteByte('.')
		sb.WriteString(names[i])
	}
	return sb.String()
}

func (u *Unit) String() string { return fmt.Sprintf("<unit %s>", u.QualName()) }

// DerefName returns the name of the cell-or-free variable at combined
// index i: the unit's CellVars followed by its FreeVars, the index
// space used by the FREE opcode.
func (u *Unit) DerefName(i int) string {
	if i < len(u.CellVars) {
		return u.CellVars[i]
	}
	return u.FreeVars[i-len(u.CellVars)]
}

// An Instr is one decoded instruction.
// Arg is meaningful only for opcodes at or above OpcodeArgMin.
type Instr struct {
	Op  Opcode
	Arg uint32
}

// Instructions decodes the unit's code stream.
// It panics if the stream is malformed; Units built by an Assembler or
// by DecodeUnit are well formed by construction.
func (u *Unit) Instructions() []Instr {
	var insns []Instr
	code := u.Code
	for len(code) > 0 {
		op := Opcode(code[0])
		code = code[1:]
		var arg uint32
		if op >= OpcodeArgMin {
			v, n := protowire.ConsumeVarint(code)
			if n < 0 {
				panic(fmt.Sprintf("unitcode: truncated operand for %s in %s", op, u.QualName()))
			}
			arg = uint32(v)
			code = code[n:]
		}
		insns = append(insns, Instr{op, arg})
	}
	return insns
}

// Disassemble formats the instruction stream for debugging and tests,
// one instruction per "op; op<arg>; ..." clause. Name-table and
// unit-table operands are shown symbolically.
func (u *Unit) Disassemble() string {
	var sb strings.Builder
	for i, insn := range u.Instructions() {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(insn.Op.String())
		if insn.Op < OpcodeArgMin {
			continue
		}
		arg := int(insn.Arg)
		switch insn.Op {
		case CONST:
			sb.WriteByte(' ')
			sb.WriteString(constString(u.Constants[arg]))
		case GLOBAL, ATTR, SETFIELD, LOADMOD:
			sb.WriteByte(' ')
			sb.WriteString(u.Names[arg])
		case LOCAL, SETLOCAL:
			sb.WriteByte(' ')
			sb.WriteString(u.Locals[arg])
		case FREE:
			sb.WriteByte(' ')
			sb.WriteString(u.DerefName(arg))
		case MAKEFUNC:
			sb.WriteByte(' ')
			sb.WriteString(u.Units[arg].Name)
		default:
			fmt.Fprintf(&sb, "<%d>", arg)
		}
	}
	return sb.String()
}

func constString(c interface{}) string {
	switch c := c.(type) {
	case nil:
		return "None"
	case bool:
		if c {
			return "True"
		}
		return "False"
	case string:
		return strconv.Quote(c)
	case []byte:
		return "b" + strconv.Quote(string(c))
	case int64:
		return strconv.FormatInt(c, 10)
	case *big.Int:
		return c.Text(10)
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	}
	return fmt.Sprintf("<invalid constant %T>", c)
}

// checkConstant reports whether c is a legal Unit constant.
func checkConstant(c interface{}) error {
	switch c.(type) {
	case nil, bool, string, []byte, int64, *big.Int, float64:
		return nil
	}
	return fmt.Errorf("unitcode: invalid constant type %T", c)
}
