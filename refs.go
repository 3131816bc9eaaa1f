// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codedigest

// This file finds the references of an executable unit: the objects
// and symbolic names its instruction stream loads from outside its own
// locals. The name tables of a unit record only flat names, so a
// chained access like m.sub.f must be recovered by walking the
// instructions and tracking what each ATTR consumes.

import (
	"github.com/memoflow/codedigest/unitcode"
	"github.com/memoflow/codedigest/value"
)

// A Reference is one dependency of an executable unit, emitted in the
// order the corresponding access occurs in the instruction stream.
// Exactly one of the fields is set:
//
//   - Value: the access was resolved statically to a concrete object;
//   - Unit: the access constructs a closure over a nested unit;
//   - Name: the access could not be resolved, and only the symbolic
//     (possibly dotted) name is known.
type Reference struct {
	Value value.Value
	Unit  *unitcode.Unit
	Name  string
}

// Resolved reports whether the reference carries a concrete object
// rather than a bare name.
func (r Reference) Resolved() bool { return r.Value != nil || r.Unit != nil }

// A Context is the binding environment a unit's references resolve
// against, snapshotted from a live function when digesting begins.
// It is constructed fresh per digest call: captured cells may mutate
// between calls and must be re-observed.
type Context struct {
	// Globals is the global namespace of the defining module.
	Globals value.StringDict

	// Cells maps each free variable to the current contents of its
	// cell, and each local captured by a nested unit to its own name
	// (its value cannot be observed without executing the unit).
	Cells map[string]Reference

	// Varnames tracks local variables whose value is statically known,
	// such as the receiver of a bound method.
	Varnames map[string]Reference
}

// FunctionContext returns the binding context of fn, reading the
// contents of its free-variable cells now.
func FunctionContext(fn *value.Function) *Context {
	u := fn.Unit()
	cells := make(map[string]Reference, len(u.FreeVars))
	for i, name := range u.FreeVars {
		cells[name] = Reference{Value: fn.FreeCells()[i].Get()}
	}
	return &Context{
		Globals:  fn.Globals(),
		Cells:    cells,
		Varnames: make(map[string]Reference),
	}
}

// MethodContext returns the binding context of a bound method: the
// context of its function, with the receiver seeded as the first
// parameter.
func MethodContext(m *value.BoundMethod) *Context {
	ctx := FunctionContext(m.Fn)
	if u := m.Fn.Unit(); u.NumParams > 0 {
		ctx.Varnames[u.Locals[0]] = Reference{Value: m.Recv}
	}
	return ctx
}

func (ctx *Context) clone() *Context {
	cells := make(map[string]Reference, len(ctx.Cells))
	for k, v := range ctx.Cells {
		cells[k] = v
	}
	varnames := make(map[string]Reference, len(ctx.Varnames))
	for k, v := range ctx.Varnames {
		varnames[k] = v
	}
	return &Context{Globals: ctx.Globals, Cells: cells, Varnames: varnames}
}

// ExtractRefs returns the references of u in instruction order,
// resolving against ctx. Duplicates are preserved: order and
// repetition are part of a unit's content.
//
// The walk is a single linear pass; branches and loops are scanned,
// not simulated. No analyzed code is executed. A consequence is that
// any receiver produced by a call is unknowable here, so an attribute
// access on it yields only the bare attribute name. warn, which may be
// nil, receives non-fatal analysis warnings.
func ExtractRefs(u *unitcode.Unit, ctx *Context, warn func(format string, args ...interface{})) []Reference {
	// The walk mutates the context, and the caller's context may be
	// shared between an outer and a nested unit, so work on a copy.
	ctx = ctx.clone()
	for _, name := range u.CellVars {
		ctx.Cells[name] = Reference{Name: name}
	}

	var refs []Reference

	// tos tracks the top of the operand stack, when statically known.
	var tos *Reference

	// setTOS replaces the tracked top of stack. If an item is already
	// tracked, every instruction that could consume it has been seen,
	// so it is a completed reference.
	setTOS := func(t *Reference) {
		if tos != nil {
			refs = append(refs, *tos)
		}
		tos = t
	}

	for _, insn := range u.Instructions() {
		switch insn.Op {
		case unitcode.GLOBAL:
			name := u.Names[insn.Arg]
			if v, ok := ctx.Globals[name]; ok {
				setTOS(&Reference{Value: v})
			} else {
				// The name is unbound, or bound only at run time.
				// Track it symbolically; it may still be the head of
				// a dotted chain into another module.
				setTOS(&Reference{Name: name})
			}

		case unitcode.FREE:
			name := u.DerefName(int(insn.Arg))
			if r, ok := ctx.Cells[name]; ok {
				r := r
				setTOS(&r)
			} else {
				setTOS(&Reference{Name: name})
			}

		case unitcode.ATTR:
			name := u.Names[insn.Arg]
			switch {
			case tos == nil:
				// The receiver is an argument or the result of a
				// call; only the attribute name is knowable.
				refs = append(refs, Reference{Name: name})
			case !tos.Resolved():
				tos.Name += "." + name
			default:
				var attr value.Value
				if x, ok := tos.Value.(value.HasAttrs); ok {
					if v, err := x.Attr(name); err == nil {
						attr = v
					}
				}
				if attr != nil {
					tos = &Reference{Value: attr}
				} else {
					// Missing attribute: record the bare name, and
					// keep tracking the receiver.
					refs = append(refs, Reference{Name: name})
				}
			}

		case unitcode.SETLOCAL:
			if tos != nil {
				ctx.Varnames[u.Locals[insn.Arg]] = *tos
				tos = nil
			}

		case unitcode.LOCAL:
			if r, ok := ctx.Varnames[u.Locals[insn.Arg]]; ok {
				r := r
				setTOS(&r)
			} else {
				setTOS(nil)
			}

		case unitcode.MAKEFUNC:
			setTOS(&Reference{Unit: u.Units[insn.Arg]})

		case unitcode.LOADMOD:
			// An import inside a unit is resolved only at run time.
			if warn != nil {
				warn("unit %s loads module %q dynamically; changes inside the module will not be detected",
					u.QualName(), u.Names[insn.Arg])
			}
			setTOS(nil)

		default:
			// Any other instruction consumes the tracked item in a
			// way we do not model.
			setTOS(nil)
		}
	}
	return refs
}
