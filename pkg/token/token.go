package token

type Type int

const (
	EOF Type = iota
	Illegal
	Directive
	Ident
	Number
	If
	Then
	Else
	While
	Do
	Return
	Break
	Continue
	True
	False
	And
	Or
	Not
	Int
	Bool
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Colon
	Eq
	Define
	Arrow
	Plus
	Minus
	Star
	Slash
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
)

var KeywordMap = map[string]Type{
	"if":       If,
	"then":     Then,
	"else":     Else,
	"while":    While,
	"do":       Do,
	"return":   Return,
	"break":    Break,
	"continue": Continue,
	"true":     True,
	"false":    False,
	"and":      And,
	"or":       Or,
	"not":      Not,
	"int":      Int,
	"bool":     Bool,
}

var punctuation = map[Type]string{
	EOF:      "end of file",
	Illegal:  "illegal character",
	Ident:    "identifier",
	Number:   "integer",
	LParen:   "(",
	RParen:   ")",
	LBrace:   "{",
	RBrace:   "}",
	LBracket: "[",
	RBracket: "]",
	Semi:     ";",
	Comma:    ",",
	Colon:    ":",
	Eq:       "=",
	Define:   ":=",
	Arrow:    "=>",
	Plus:     "+",
	Minus:    "-",
	Star:     "*",
	Slash:    "/",
	EqEq:     "==",
	Neq:      "!=",
	Lt:       "<",
	Gt:       ">",
	Lte:      "<=",
	Gte:      ">=",
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range punctuation {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "directive"
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
