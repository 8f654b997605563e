package lexer

import (
	"strings"

	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/token"
)

const directivePrefix = "[tacc]:"

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
	}
}

// Tokenize scans the whole source. The returned slice always ends with EOF.
func (l *Lexer) Tokenize() []token.Token {
	var tokens []token.Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

// Next returns the next token. Characters outside the language come back
// as Illegal tokens carrying the offending text; the parser reports them.
func (l *Lexer) Next() token.Token {
	for {
		l.skipWhitespace()
		startPos, startCol, startLine := l.pos, l.column, l.line

		if l.isAtEnd() {
			return l.makeToken(token.EOF, "", startPos, startCol, startLine)
		}

		if l.peek() == '/' && l.peekNext() == '/' {
			if !l.cfg.IsFeatureEnabled(config.FeatNoDirectives) {
				if tok, isDirective := l.lineCommentOrDirective(startPos, startCol, startLine); isDirective {
					return tok
				}
			}
			l.lineComment()
			continue
		}

		ch := l.peek()
		if isIdentStart(ch) {
			l.advance()
			return l.identifierOrKeyword(startPos, startCol, startLine)
		}
		if isDigit(ch) {
			return l.numberLiteral(startPos, startCol, startLine)
		}

		l.advance()
		switch ch {
		case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine)
		case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine)
		case '{': return l.makeToken(token.LBrace, "", startPos, startCol, startLine)
		case '}': return l.makeToken(token.RBrace, "", startPos, startCol, startLine)
		case '[': return l.makeToken(token.LBracket, "", startPos, startCol, startLine)
		case ']': return l.makeToken(token.RBracket, "", startPos, startCol, startLine)
		case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine)
		case ',': return l.makeToken(token.Comma, "", startPos, startCol, startLine)
		case '+': return l.makeToken(token.Plus, "", startPos, startCol, startLine)
		case '-': return l.makeToken(token.Minus, "", startPos, startCol, startLine)
		case '*': return l.makeToken(token.Star, "", startPos, startCol, startLine)
		case '/': return l.makeToken(token.Slash, "", startPos, startCol, startLine)
		case ':': return l.matchThen('=', token.Define, token.Colon, startPos, startCol, startLine)
		case '<': return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine)
		case '>': return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine)
		case '=':
			if l.match('=') {
				return l.makeToken(token.EqEq, "", startPos, startCol, startLine)
			}
			if l.match('>') {
				return l.makeToken(token.Arrow, "", startPos, startCol, startLine)
			}
			return l.makeToken(token.Eq, "", startPos, startCol, startLine)
		case '!':
			if l.match('=') {
				return l.makeToken(token.Neq, "", startPos, startCol, startLine)
			}
		}

		return l.makeToken(token.Illegal, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
	}
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) lineComment() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) lineCommentOrDirective(startPos, startCol, startLine int) (token.Token, bool) {
	preCommentPos, preCommentCol, preCommentLine := l.pos, l.column, l.line
	l.advance()
	l.advance()
	commentStartPos := l.pos
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
	trimmedContent := strings.TrimSpace(string(l.source[commentStartPos:l.pos]))

	if strings.HasPrefix(trimmedContent, directivePrefix) {
		directiveContent := strings.TrimSpace(strings.TrimPrefix(trimmedContent, directivePrefix))
		return l.makeToken(token.Directive, directiveContent, startPos, startCol, startLine), true
	}

	l.pos, l.column, l.line = preCommentPos, preCommentCol, preCommentLine
	return token.Token{}, false
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for isIdentStart(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Ident, value, startPos, startCol, startLine)

	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		tok.Type = tokType
		tok.Value = ""
	}
	return tok
}

// numberLiteral keeps the decimal lexeme as written; range checking
// belongs to the resolver.
func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	return l.makeToken(token.Number, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, "", sPos, sCol, sLine)
	}
	return l.makeToken(elseType, "", sPos, sCol, sLine)
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

// identifiers are ASCII so they can be used as assembler labels
func isIdentStart(ch rune) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}
