package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/token"
)

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		src  string
		want []token.Type
	}{
		{"x : int = 1;", []token.Type{token.Ident, token.Colon, token.Int, token.Eq, token.Number, token.Semi, token.EOF}},
		{"a := b == c != d", []token.Type{token.Ident, token.Define, token.Ident, token.EqEq, token.Ident, token.Neq, token.Ident, token.EOF}},
		{"() => {}", []token.Type{token.LParen, token.RParen, token.Arrow, token.LBrace, token.RBrace, token.EOF}},
		{"<= >= < > + - * /", []token.Type{token.Lte, token.Gte, token.Lt, token.Gt, token.Plus, token.Minus, token.Star, token.Slash, token.EOF}},
		{"if then else while do return break continue", []token.Type{token.If, token.Then, token.Else, token.While, token.Do, token.Return, token.Break, token.Continue, token.EOF}},
		{"true false and or not bool [int]", []token.Type{token.True, token.False, token.And, token.Or, token.Not, token.Bool, token.LBracket, token.Int, token.RBracket, token.EOF}},
		{"x // a comment\ny", []token.Type{token.Ident, token.Ident, token.EOF}},
		{"a $ b", []token.Type{token.Ident, token.Illegal, token.Ident, token.EOF}},
		{"!", []token.Type{token.Illegal, token.EOF}},
		{"_a1 B2", []token.Type{token.Ident, token.Ident, token.EOF}},
		{"été", []token.Type{token.Illegal, token.Ident, token.Illegal, token.EOF}},
		{"xα", []token.Type{token.Ident, token.Illegal, token.EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := types(NewLexer([]rune(tt.src), 0, config.NewConfig()).Tokenize())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("token types mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNumberLexemeIsRaw(t *testing.T) {
	toks := NewLexer([]rune("00012 99999999999999"), 0, config.NewConfig()).Tokenize()
	got := []string{toks[0].Value, toks[1].Value}
	if diff := cmp.Diff([]string{"00012", "99999999999999"}, got); diff != "" {
		t.Errorf("lexemes (-want +got):\n%s", diff)
	}
}

func TestPositions(t *testing.T) {
	toks := NewLexer([]rune("a\n  bb := 1"), 3, config.NewConfig()).Tokenize()
	type pos struct{ Line, Column, Len, File int }
	var got []pos
	for _, tok := range toks[:4] {
		got = append(got, pos{tok.Line, tok.Column, tok.Len, tok.FileIndex})
	}
	want := []pos{{1, 1, 1, 3}, {2, 3, 2, 3}, {2, 6, 2, 3}, {2, 9, 1, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("positions (-want +got):\n%s", diff)
	}
}

func TestDirectives(t *testing.T) {
	src := "// [tacc]: -Wno-shadow -Ffold\nx"

	toks := NewLexer([]rune(src), 0, config.NewConfig()).Tokenize()
	if toks[0].Type != token.Directive || toks[0].Value != "-Wno-shadow -Ffold" {
		t.Fatalf("got %v %q, want a directive", toks[0].Type, toks[0].Value)
	}

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatNoDirectives, true)
	toks = NewLexer([]rune(src), 0, cfg).Tokenize()
	if diff := cmp.Diff([]token.Type{token.Ident, token.EOF}, types(toks)); diff != "" {
		t.Errorf("directives should be plain comments (-want +got):\n%s", diff)
	}
}
