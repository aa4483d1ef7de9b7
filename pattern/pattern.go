// Package pattern validates STIX patterning expressions as used by indicators.
//
// Only syntax is checked: the validator reports the first error it finds with
// a line/column prefix and does not build an AST for callers.
package pattern

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SyntaxError describes the first problem found in a pattern.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("FAIL: Error found at line %d:%d. %s", e.Line, e.Column, e.Msg)
}

// Validate reports whether s is a syntactically valid STIX pattern.
func Validate(s string) error {
	start := strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(start, "[") && !strings.HasPrefix(start, "(") {
		return &SyntaxError{Line: 1, Column: 0, Msg: "input is missing square brackets"}
	}
	p := &parser{toks: lex(s)}
	if err := p.observationExpressions(); err != nil {
		return err
	}
	if t := p.peek(); t.kind != tokEOF {
		return p.mismatch(t, "<EOF>")
	}
	return nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) mismatch(t token, expecting string) error {
	if t.kind == tokEOF {
		return &SyntaxError{Line: 1, Column: t.col, Msg: "mismatched input '<EOF>' expecting " + expecting}
	}
	return &SyntaxError{Line: 1, Column: t.col, Msg: fmt.Sprintf("mismatched input '%s' expecting %s", t.display(), expecting)}
}

func (p *parser) expect(k tokenKind, expecting string) (token, error) {
	t := p.peek()
	if t.kind != k {
		return t, p.mismatch(t, expecting)
	}
	return p.advance(), nil
}

func (p *parser) expectKeyword(kw string) error {
	t := p.peek()
	if !t.is(kw) {
		return p.mismatch(t, "'"+kw+"'")
	}
	p.advance()
	return nil
}

// observationExpressions := or ('FOLLOWEDBY' or)*
func (p *parser) observationExpressions() error {
	if err := p.observationOr(); err != nil {
		return err
	}
	for p.peek().is("FOLLOWEDBY") {
		p.advance()
		if err := p.observationOr(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) observationOr() error {
	if err := p.observationAnd(); err != nil {
		return err
	}
	for p.peek().is("OR") {
		p.advance()
		if err := p.observationAnd(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) observationAnd() error {
	if err := p.observation(); err != nil {
		return err
	}
	for p.peek().is("AND") {
		p.advance()
		if err := p.observation(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) observation() error {
	t := p.peek()
	switch t.kind {
	case tokLBrack:
		p.advance()
		if err := p.comparisonOr(); err != nil {
			return err
		}
		if _, err := p.expect(tokRBrack, "']'"); err != nil {
			return err
		}
	case tokLParen:
		p.advance()
		if err := p.observationExpressions(); err != nil {
			return err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return err
		}
	default:
		return p.mismatch(t, "{'[', '('}")
	}
	return p.qualifiers()
}

func (p *parser) qualifiers() error {
	for {
		t := p.peek()
		switch {
		case t.is("START"):
			p.advance()
			if err := p.timestamp(); err != nil {
				return err
			}
			if err := p.expectKeyword("STOP"); err != nil {
				return err
			}
			if err := p.timestamp(); err != nil {
				return err
			}
		case t.is("WITHIN"):
			p.advance()
			n := p.peek()
			if n.kind != tokInt && n.kind != tokFloat {
				return p.mismatch(n, "{IntPosLiteral, FloatPosLiteral}")
			}
			if strings.HasPrefix(n.text, "-") {
				return &SyntaxError{Line: 1, Column: n.col, Msg: "WITHIN qualifier requires a positive number of seconds"}
			}
			p.advance()
			if err := p.expectKeyword("SECONDS"); err != nil {
				return err
			}
		case t.is("REPEATS"):
			p.advance()
			n, err := p.expect(tokInt, "IntPosLiteral")
			if err != nil {
				return err
			}
			if v, _ := strconv.Atoi(n.text); v <= 0 {
				return &SyntaxError{Line: 1, Column: n.col, Msg: "REPEATS qualifier requires a positive integer"}
			}
			if err := p.expectKeyword("TIMES"); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *parser) timestamp() error {
	t, err := p.expect(tokTimestamp, "TimestampLiteral")
	if err != nil {
		return err
	}
	if _, perr := time.Parse(time.RFC3339Nano, t.val); perr != nil {
		return &SyntaxError{Line: 1, Column: t.col, Msg: fmt.Sprintf("invalid timestamp literal %s", t.text)}
	}
	return nil
}

func (p *parser) comparisonOr() error {
	if err := p.comparisonAnd(); err != nil {
		return err
	}
	for p.peek().is("OR") {
		p.advance()
		if err := p.comparisonAnd(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) comparisonAnd() error {
	if err := p.propTest(); err != nil {
		return err
	}
	for p.peek().is("AND") {
		p.advance()
		if err := p.propTest(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) propTest() error {
	t := p.peek()
	if t.kind == tokLParen {
		p.advance()
		if err := p.comparisonOr(); err != nil {
			return err
		}
		_, err := p.expect(tokRParen, "')'")
		return err
	}
	if t.is("EXISTS") {
		p.advance()
		return p.objectPath()
	}
	if err := p.objectPath(); err != nil {
		return err
	}
	if p.peek().is("NOT") {
		p.advance()
	}
	op := p.advance()
	switch {
	case op.kind == tokEq || op.kind == tokNeq:
		return p.literal(equalityLiterals, "{StringLiteral, IntLiteral, FloatLiteral, BoolLiteral, TimestampLiteral, HexLiteral, BinaryLiteral}")
	case op.kind == tokLt || op.kind == tokLe || op.kind == tokGt || op.kind == tokGe:
		return p.literal(orderableLiterals, "{StringLiteral, IntLiteral, FloatLiteral, TimestampLiteral, HexLiteral, BinaryLiteral}")
	case op.is("IN"):
		return p.setLiteral()
	case op.is("LIKE"), op.is("MATCHES"), op.is("ISSUBSET"), op.is("ISSUPERSET"):
		return p.literal(map[tokenKind]bool{tokString: true}, "StringLiteral")
	default:
		return p.mismatch(op, "{'=', '!=', '<>', '<', '<=', '>', '>=', 'IN', 'LIKE', 'MATCHES', 'ISSUBSET', 'ISSUPERSET'}")
	}
}

var equalityLiterals = map[tokenKind]bool{
	tokString: true, tokInt: true, tokFloat: true, tokBool: true,
	tokTimestamp: true, tokHex: true, tokBinary: true,
}

var orderableLiterals = map[tokenKind]bool{
	tokString: true, tokInt: true, tokFloat: true,
	tokTimestamp: true, tokHex: true, tokBinary: true,
}

func (p *parser) literal(allowed map[tokenKind]bool, expecting string) error {
	t := p.peek()
	if !allowed[t.kind] {
		return p.mismatch(t, expecting)
	}
	p.advance()
	if t.kind == tokTimestamp {
		if _, err := time.Parse(time.RFC3339Nano, t.val); err != nil {
			return &SyntaxError{Line: 1, Column: t.col, Msg: fmt.Sprintf("invalid timestamp literal %s", t.text)}
		}
	}
	return nil
}

func (p *parser) setLiteral() error {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return err
	}
	if p.peek().kind == tokRParen {
		p.advance()
		return nil
	}
	for {
		if err := p.literal(equalityLiterals, "PrimitiveLiteral"); err != nil {
			return err
		}
		t := p.advance()
		switch t.kind {
		case tokComma:
			continue
		case tokRParen:
			return nil
		default:
			return p.mismatch(t, "{',', ')'}")
		}
	}
}

// objectPath := objectType ':' component ('.' component | '[' index ']')*
func (p *parser) objectPath() error {
	if _, err := p.expect(tokIdent, "IdentifierWithAlpha"); err != nil {
		return err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return err
	}
	if t := p.peek(); t.kind != tokIdent && t.kind != tokString {
		return p.mismatch(t, "{IdentifierWithAlpha, StringLiteral}")
	}
	p.advance()
	for {
		switch p.peek().kind {
		case tokDot:
			p.advance()
			if t := p.peek(); t.kind != tokIdent && t.kind != tokString {
				return p.mismatch(t, "{IdentifierWithAlpha, StringLiteral}")
			}
			p.advance()
		case tokLBrack:
			p.advance()
			if t := p.peek(); t.kind != tokInt && t.kind != tokAsterisk {
				return p.mismatch(t, "{IntPosLiteral, '*'}")
			}
			p.advance()
			if _, err := p.expect(tokRBrack, "']'"); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
