// Package types defines the type model, compile-time values, symbols and
// lexical scopes shared by the resolver, the IR generator and the backends.
package types

import (
	"fmt"
	"strings"
)

// Kind defines the kind of a Type
type Kind int

const (
	KindNone Kind = iota
	KindInteger
	KindBoolean
	KindFunction
	KindArray
)

// Type is a tagged variant; Function and Array carry their substructure.
// Size and Alignment are used for stack layout only.
type Type struct {
	Kind      Kind
	Name      string
	Size      int
	Alignment int
	Function  *FunctionType
	Element   *Type
}

type FunctionType struct {
	ReturnType *Type
	Arity      int
	Parameters []*Symbol
	Scope      *Scope
}

// Primitive types, interned once and shared by every stage
var (
	None    = &Type{Kind: KindNone, Name: "none", Size: 0, Alignment: 1}
	Integer = &Type{Kind: KindInteger, Name: "int", Size: 4, Alignment: 4}
	Boolean = &Type{Kind: KindBoolean, Name: "bool", Size: 1, Alignment: 1}
)

var table = map[string]*Type{
	None.Name:    None,
	Integer.Name: Integer,
	Boolean.Name: Boolean,
}

// Lookup returns the interned primitive type with the given name
func Lookup(name string) (*Type, bool) {
	t, ok := table[name]
	return t, ok
}

const pointerSize = 8

func NewArray(element *Type) *Type {
	return &Type{Kind: KindArray, Name: "array", Size: pointerSize, Alignment: pointerSize, Element: element}
}

func NewFunction(returnType *Type) *Type {
	return &Type{
		Kind: KindFunction, Name: "function", Size: pointerSize, Alignment: pointerSize,
		Function: &FunctionType{ReturnType: returnType},
	}
}

func (t *Type) IsNone() bool { return t == nil || t.Kind == KindNone }

// Equal reports structural equality; there are no implicit conversions
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindArray:
		return Equal(a.Element, b.Element)
	case KindFunction:
		fa, fb := a.Function, b.Function
		if fa.Arity != fb.Arity || !Equal(fa.ReturnType, fb.ReturnType) {
			return false
		}
		for i := range fa.Parameters {
			if !Equal(fa.Parameters[i].Type, fb.Parameters[i].Type) {
				return false
			}
		}
	}
	return true
}

func (t *Type) String() string {
	if t == nil {
		return "none"
	}
	switch t.Kind {
	case KindArray:
		return "[" + t.Element.String() + "]"
	case KindFunction:
		params := make([]string, len(t.Function.Parameters))
		for i, p := range t.Function.Parameters {
			params[i] = p.Type.String()
		}
		return fmt.Sprintf("(%s) => %s", strings.Join(params, ", "), t.Function.ReturnType)
	}
	return t.Name
}

type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueInteger
	ValueBoolean
)

// Value is a compile-time constant, when one is known
type Value struct {
	Kind    ValueKind
	Integer int64
	Boolean bool
}

func IntegerValue(v int64) Value { return Value{Kind: ValueInteger, Integer: v} }
func BooleanValue(v bool) Value  { return Value{Kind: ValueBoolean, Boolean: v} }

func (v Value) IsConstant() bool { return v.Kind != ValueNone }

func (v Value) String() string {
	switch v.Kind {
	case ValueInteger:
		return fmt.Sprintf("%d", v.Integer)
	case ValueBoolean:
		if v.Boolean {
			return "true"
		}
		return "false"
	}
	return "none"
}
