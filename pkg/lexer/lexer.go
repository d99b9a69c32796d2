// Package lexer turns Orion source text into a flat token sequence.
package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/orion-lang/orion/pkg/config"
	"github.com/orion-lang/orion/pkg/token"
	"github.com/orion-lang/orion/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
	err       *util.Diagnostic
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
	}
}

// Tokenize runs the lexer over the whole input and returns the token
// sequence terminated by one EOF token. Consecutive newlines collapse to a
// single Newline token. The first lex error aborts the scan.
func (l *Lexer) Tokenize() ([]token.Token, *util.Diagnostic) {
	var toks []token.Token
	for {
		tok := l.Next()
		if l.err != nil {
			return nil, l.err
		}
		if tok.Type == token.Newline && len(toks) > 0 && toks[len(toks)-1].Type == token.Newline {
			continue
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

// Next scans and returns the next token.
func (l *Lexer) Next() token.Token {
	for {
		l.skipWhitespaceAndComments()
		startPos, startCol, startLine := l.pos, l.column, l.line

		if l.isAtEnd() {
			return l.makeToken(token.EOF, "", startPos, startCol, startLine)
		}

		ch := l.peek()
		if ch == '\n' {
			l.advance()
			return l.makeToken(token.Newline, "", startPos, startCol, startLine)
		}
		if unicode.IsLetter(ch) || ch == '_' {
			l.advance()
			return l.identifierOrKeyword(startPos, startCol, startLine)
		}
		if unicode.IsDigit(ch) {
			return l.numberLiteral(startPos, startCol, startLine)
		}

		l.advance()
		switch ch {
		case '(':
			return l.makeToken(token.LParen, "", startPos, startCol, startLine)
		case ')':
			return l.makeToken(token.RParen, "", startPos, startCol, startLine)
		case '{':
			return l.makeToken(token.LBrace, "", startPos, startCol, startLine)
		case '}':
			return l.makeToken(token.RBrace, "", startPos, startCol, startLine)
		case '[':
			return l.makeToken(token.LBracket, "", startPos, startCol, startLine)
		case ']':
			return l.makeToken(token.RBracket, "", startPos, startCol, startLine)
		case ',':
			return l.makeToken(token.Comma, "", startPos, startCol, startLine)
		case ':':
			return l.makeToken(token.Colon, "", startPos, startCol, startLine)
		case ';':
			tok := l.makeToken(token.Semi, "", startPos, startCol, startLine)
			if !l.cfg.IsFeatureEnabled(config.FeatSemicolons) {
				l.fail(tok, "';' statement terminators are not enabled")
			}
			return tok
		case '+':
			return l.matchThen('=', token.PlusAssign, token.Plus, startPos, startCol, startLine)
		case '-':
			if l.match('>') {
				return l.makeToken(token.Arrow, "", startPos, startCol, startLine)
			}
			return l.matchThen('=', token.MinusAssign, token.Minus, startPos, startCol, startLine)
		case '*':
			if l.match('*') {
				return l.makeToken(token.Power, "", startPos, startCol, startLine)
			}
			return l.matchThen('=', token.StarAssign, token.Star, startPos, startCol, startLine)
		case '/':
			if l.match('/') {
				return l.makeToken(token.FloorDiv, "", startPos, startCol, startLine)
			}
			return l.matchThen('=', token.SlashAssign, token.Slash, startPos, startCol, startLine)
		case '%':
			return l.matchThen('=', token.PercentAssign, token.Percent, startPos, startCol, startLine)
		case '=':
			if l.match('=') {
				return l.makeToken(token.EqEq, "", startPos, startCol, startLine)
			}
			if l.match('>') {
				return l.makeToken(token.FatArrow, "", startPos, startCol, startLine)
			}
			return l.makeToken(token.Assign, "", startPos, startCol, startLine)
		case '!':
			if l.match('=') {
				return l.makeToken(token.Neq, "", startPos, startCol, startLine)
			}
		case '<':
			return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine)
		case '>':
			return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine)
		case '"':
			return l.stringLiteral(startPos, startCol, startLine)
		}

		tok := l.makeToken(token.EOF, "", startPos, startCol, startLine)
		l.fail(tok, "Unexpected character: '%c'", ch)
		return tok
	}
}

func (l *Lexer) fail(tok token.Token, format string, args ...interface{}) {
	if l.err == nil {
		l.err = util.Errorf(util.DiagLex, tok, format, args...)
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

// skipWhitespaceAndComments consumes spaces, tabs, carriage returns and
// '#' line comments. Newlines are significant and left for Next.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\r':
			l.advance()
		case '#':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
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

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}

	isFloat := false
	if l.peek() == '.' && unicode.IsDigit(l.peekNext()) {
		isFloat = true
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}

	valueStr := string(l.source[startPos:l.pos])
	if isFloat {
		tok := l.makeToken(token.Float, valueStr, startPos, startCol, startLine)
		if !l.cfg.IsFeatureEnabled(config.FeatFloat) {
			l.fail(tok, "Floating-point literals are not enabled")
		}
		return tok
	}

	tok := l.makeToken(token.Int, valueStr, startPos, startCol, startLine)
	if _, err := strconv.ParseInt(valueStr, 10, 64); err != nil {
		util.Warn(l.cfg, config.WarnOverflow, tok, "Integer constant overflow: %s", valueStr)
	}
	return tok
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) token.Token {
	var sb strings.Builder
	for !l.isAtEnd() {
		c := l.peek()
		if c == '"' {
			l.advance()
			return l.makeToken(token.String, sb.String(), startPos, startCol, startLine)
		}
		if c == '\n' {
			break
		}
		if c == '\\' {
			l.advance()
			sb.WriteRune(l.decodeEscape(startPos, startCol, startLine))
			continue
		}
		l.advance()
		sb.WriteRune(c)
	}
	tok := l.makeToken(token.String, "", startPos, startCol, startLine)
	l.fail(tok, "Unterminated string literal")
	return tok
}

func (l *Lexer) decodeEscape(startPos, startCol, startLine int) rune {
	if l.isAtEnd() {
		l.fail(l.makeToken(token.EOF, "", l.pos, l.column, l.line), "Unterminated escape sequence")
		return 0
	}
	c := l.advance()
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case '\\':
		return '\\'
	case '"':
		return '"'
	case '0':
		return 0
	}
	l.fail(l.makeToken(token.String, "", startPos, startCol, startLine),
		"Unrecognized escape sequence '\\%c'", c)
	return c
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, "", sPos, sCol, sLine)
	}
	return l.makeToken(elseType, "", sPos, sCol, sLine)
}
