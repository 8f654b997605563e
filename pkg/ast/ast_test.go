package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tacc/pkg/token"
)

func TestWalkOrderAndParents(t *testing.T) {
	tok := token.Token{}
	// f : int = (n : int) => { if n > 1 then return n; else return f(n - 1); };
	param := NewParam(tok, "n", NewTypeSpec(tok, "int", nil))
	cond := NewBinary(tok, token.Gt, NewVariable(tok, "n"), NewInteger(tok, "1"))
	call := NewCall(tok, NewVariable(tok, "f"), []*Node{NewBinary(tok, token.Minus, NewVariable(tok, "n"), NewInteger(tok, "1"))})
	ifStmt := NewIf(tok, cond, NewReturn(tok, NewVariable(tok, "n")), NewReturn(tok, call))
	fn := NewFunction(tok, []*Node{param}, NewBlock(tok, []*Node{ifStmt}))
	decl := NewFuncDecl(tok, "f", NewTypeSpec(tok, "int", nil), fn)

	var got []string
	Walk(decl, func(n *Node) bool {
		got = append(got, n.Type.String())
		return n.Type != Call
	})
	want := []string{
		"FuncDecl", "TypeSpec", "Function", "Param", "TypeSpec", "Block",
		"If", "Binary", "Variable", "Integer", "Return", "Variable", "Return", "Call",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk order (-want +got):\n%s", diff)
	}

	Walk(decl, func(n *Node) bool {
		for _, child := range Children(n) {
			if child.Parent != n {
				t.Errorf("%s child %s has parent %v", n.Type, child.Type, child.Parent)
			}
		}
		return true
	})
	if decl.Parent != nil {
		t.Error("root has a parent")
	}
}

func TestChildrenOfArrayType(t *testing.T) {
	tok := token.Token{}
	elem := NewTypeSpec(tok, "int", nil)
	arr := NewTypeSpec(tok, "array", elem)
	if kids := Children(arr); len(kids) != 1 || kids[0] != elem {
		t.Errorf("children = %v, want the element type", kids)
	}
	if len(Children(elem)) != 0 {
		t.Error("primitive type specifier has children")
	}
}
