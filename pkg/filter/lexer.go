package filter

import (
	"fmt"
	"strings"
)

// tokenType тип токена выражения WHERE
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIllegal

	tokenIdent  // Company
	tokenQuoted // "Age (Years)" или [Age (Years)]
	tokenString // 'значение'
	tokenNumber // 30, 2.5, -1

	tokenAnd
	tokenOr
	tokenIn
	tokenIs
	tokenNull

	tokenEq     // =
	tokenLParen // (
	tokenRParen // )
	tokenComma  // ,
)

// token лексема с позицией в исходной строке
type token struct {
	typ     tokenType
	literal string
	pos     int
}

func (t token) String() string {
	if t.typ == tokenEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q at %d", t.literal, t.pos)
}

// lexer лексический анализатор выражений WHERE
type lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readChar()
	return l
}

// next возвращает следующую лексему
func (l *lexer) next() (token, error) {
	l.skipWhitespace()

	tok := token{pos: l.pos}

	switch l.ch {
	case 0:
		tok.typ = tokenEOF
		return tok, nil
	case '=':
		tok.typ, tok.literal = tokenEq, "="
	case '(':
		tok.typ, tok.literal = tokenLParen, "("
	case ')':
		tok.typ, tok.literal = tokenRParen, ")"
	case ',':
		tok.typ, tok.literal = tokenComma, ","
	case '\'':
		s, err := l.readQuoted('\'')
		if err != nil {
			return tok, err
		}
		tok.typ, tok.literal = tokenString, s
		return tok, nil
	case '"':
		s, err := l.readQuoted('"')
		if err != nil {
			return tok, err
		}
		tok.typ, tok.literal = tokenQuoted, s
		return tok, nil
	case '[':
		s, err := l.readQuoted(']')
		if err != nil {
			return tok, err
		}
		tok.typ, tok.literal = tokenQuoted, s
		return tok, nil
	case '-':
		if !isDigit(l.peekChar()) {
			tok.typ, tok.literal = tokenIllegal, "-"
			break
		}
		tok.typ, tok.literal = tokenNumber, l.readNumber()
		return tok, nil
	default:
		if isDigit(l.ch) {
			tok.typ, tok.literal = tokenNumber, l.readNumber()
			return tok, nil
		}
		if isLetter(l.ch) {
			tok.literal = l.readIdentifier()
			tok.typ = lookupKeyword(tok.literal)
			return tok, nil
		}
		tok.typ, tok.literal = tokenIllegal, string(l.ch)
	}

	l.readChar()
	return tok, nil
}

func (l *lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *lexer) readNumber() string {
	start := l.pos
	if l.ch == '-' {
		l.readChar()
	}
	dot := false
	for isDigit(l.ch) || (l.ch == '.' && !dot) {
		if l.ch == '.' {
			dot = true
		}
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readQuoted читает строку до закрывающего символа.
// Удвоенный закрывающий символ означает сам символ.
func (l *lexer) readQuoted(closing byte) (string, error) {
	start := l.pos
	l.readChar()

	var b strings.Builder
	for {
		switch {
		case l.ch == 0 && l.pos >= len(l.input):
			return "", fmt.Errorf("unterminated quote starting at %d", start)
		case l.ch == closing && l.peekChar() == closing:
			b.WriteByte(closing)
			l.readChar()
			l.readChar()
		case l.ch == closing:
			l.readChar()
			return b.String(), nil
		default:
			b.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func (l *lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// isLetter принимает ASCII-буквы, подчеркивание и любые байты UTF-8 выше ASCII
func isLetter(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func lookupKeyword(ident string) tokenType {
	switch strings.ToUpper(ident) {
	case "AND":
		return tokenAnd
	case "OR":
		return tokenOr
	case "IN":
		return tokenIn
	case "IS":
		return tokenIs
	case "NULL":
		return tokenNull
	}
	return tokenIdent
}
