package pattern

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokBad
	tokLBrack
	tokRBrack
	tokLParen
	tokRParen
	tokColon
	tokDot
	tokComma
	tokAsterisk
	tokEq
	tokNeq
	tokLt
	tokLe
	tokGt
	tokGe
	tokString
	tokInt
	tokFloat
	tokBool
	tokTimestamp
	tokHex
	tokBinary
	tokIdent
	tokKeyword
)

var keywords = map[string]struct{}{
	"AND": {}, "OR": {}, "NOT": {}, "FOLLOWEDBY": {}, "LIKE": {}, "MATCHES": {},
	"ISSUPERSET": {}, "ISSUBSET": {}, "EXISTS": {}, "IN": {}, "START": {}, "STOP": {},
	"WITHIN": {}, "SECONDS": {}, "REPEATS": {}, "TIMES": {},
}

type token struct {
	kind tokenKind
	text string
	col  int
	// val holds the unescaped body of quoted literals.
	val string
}

func (t token) is(kw string) bool { return t.kind == tokKeyword && t.text == kw }

func (t token) display() string {
	if t.kind == tokEOF {
		return "<EOF>"
	}
	return t.text
}

type lexer struct {
	src []rune
	pos int
}

func lex(s string) []token {
	l := &lexer{src: []rune(s)}
	var out []token
	for {
		t := l.next()
		out = append(out, t)
		if t.kind == tokEOF {
			return out
		}
	}
}

func (l *lexer) peekRune(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) next() token {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, col: start}
	}
	r := l.src[l.pos]
	single := func(k tokenKind) token {
		l.pos++
		return token{kind: k, text: string(r), col: start}
	}
	switch r {
	case '[':
		return single(tokLBrack)
	case ']':
		return single(tokRBrack)
	case '(':
		return single(tokLParen)
	case ')':
		return single(tokRParen)
	case ':':
		return single(tokColon)
	case '.':
		return single(tokDot)
	case ',':
		return single(tokComma)
	case '*':
		return single(tokAsterisk)
	case '=':
		return single(tokEq)
	case '!':
		if l.peekRune(1) == '=' {
			l.pos += 2
			return token{kind: tokNeq, text: "!=", col: start}
		}
		return single(tokBad)
	case '<':
		switch l.peekRune(1) {
		case '=':
			l.pos += 2
			return token{kind: tokLe, text: "<=", col: start}
		case '>':
			l.pos += 2
			return token{kind: tokNeq, text: "<>", col: start}
		}
		return single(tokLt)
	case '>':
		if l.peekRune(1) == '=' {
			l.pos += 2
			return token{kind: tokGe, text: ">=", col: start}
		}
		return single(tokGt)
	case '\'':
		return l.quoted(tokString, start, 0)
	case '"':
		// Not a STIX string delimiter; consumed whole so the error names the literal.
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			l.pos++
		}
		if l.pos < len(l.src) {
			l.pos++
		}
		return token{kind: tokBad, text: string(l.src[start:l.pos]), col: start}
	}
	if (r == 't' || r == 'h' || r == 'b') && l.peekRune(1) == '\'' {
		kind := map[rune]tokenKind{'t': tokTimestamp, 'h': tokHex, 'b': tokBinary}[r]
		return l.quoted(kind, start, 1)
	}
	if unicode.IsDigit(r) || (r == '-' && unicode.IsDigit(l.peekRune(1))) || (r == '+' && unicode.IsDigit(l.peekRune(1))) {
		return l.number(start)
	}
	if unicode.IsLetter(r) || r == '_' {
		for l.pos < len(l.src) && isIdentRune(l.src[l.pos]) {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		if _, ok := keywords[text]; ok {
			return token{kind: tokKeyword, text: text, col: start}
		}
		if text == "true" || text == "false" {
			return token{kind: tokBool, text: text, col: start}
		}
		return token{kind: tokIdent, text: text, col: start}
	}
	return single(tokBad)
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

func (l *lexer) quoted(kind tokenKind, start, prefix int) token {
	l.pos += prefix + 1
	var body strings.Builder
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if r == '\\' && l.pos+1 < len(l.src) && (l.src[l.pos+1] == '\'' || l.src[l.pos+1] == '\\') {
			body.WriteRune(l.src[l.pos+1])
			l.pos += 2
			continue
		}
		if r == '\'' {
			l.pos++
			return token{kind: kind, text: string(l.src[start:l.pos]), col: start, val: body.String()}
		}
		body.WriteRune(r)
		l.pos++
	}
	return token{kind: tokBad, text: string(l.src[start:l.pos]), col: start}
}

func (l *lexer) number(start int) token {
	l.pos++
	kind := tokInt
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if unicode.IsDigit(r) {
			l.pos++
			continue
		}
		if r == '.' && kind == tokInt && unicode.IsDigit(l.peekRune(1)) {
			kind = tokFloat
			l.pos++
			continue
		}
		break
	}
	return token{kind: kind, text: string(l.src[start:l.pos]), col: start}
}
