package ir

type ContextKind int

const (
	ContextWhile ContextKind = iota
	ContextIf
)

// Context is the bookkeeping for one control-flow statement being lowered
type Context struct {
	Kind       ContextKind
	StartLabel string
	ExitLabel  string
	// ExitNotGenerated guards the single LABEL of an if-chain's shared exit
	ExitNotGenerated bool
	// NewContext is cleared while an `else if` arm is lowered so that the
	// arm reuses the chain's context instead of opening its own.
	NewContext bool
}

type contextStack []*Context

func (s *contextStack) push(ctx *Context) { *s = append(*s, ctx) }

func (s *contextStack) pop() {
	if len(*s) > 0 {
		*s = (*s)[:len(*s)-1]
	}
}

// top returns the innermost context, or nil outside any statement
func (s contextStack) top() *Context {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// nearest searches top-down for the innermost context of the given kind
func (s contextStack) nearest(kind ContextKind) *Context {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Kind == kind {
			return s[i]
		}
	}
	return nil
}
