package decoder

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokCaret
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

var operators = map[rune]tokenKind{
	'+': tokPlus,
	'-': tokMinus,
	'*': tokStar,
	'^': tokCaret,
	'(': tokLParen,
	')': tokRParen,
}

// lex splits one expression into tokens. Whitespace is ignored.
func lex(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isDigit(r):
			start := i
			for i < len(runes) && isDigit(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[start:i]), pos: start})
		case isIdentStart(r):
			start := i
			for i < len(runes) && (isIdentStart(runes[i]) || isDigit(runes[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[start:i]), pos: start})
		default:
			kind, ok := operators[r]
			if !ok {
				return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrEvaluation, r, i)
			}
			tokens = append(tokens, token{kind: kind, text: string(r), pos: i})
			i++
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(runes)}), nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// parser is a recursive-descent evaluator over one expression.
//
//	xor    := sum ('^' sum)*
//	sum    := term (('+' | '-') term)*
//	term   := unary ('*' unary)*
//	unary  := '-' unary | atom
//	atom   := number | ident | '(' xor ')'
type parser struct {
	tokens []token
	pos    int
	vars   map[string]int64
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) xor() (int64, error) {
	v, err := p.sum()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokCaret {
		p.next()
		rhs, err := p.sum()
		if err != nil {
			return 0, err
		}
		v ^= rhs
	}
	return v, nil
}

func (p *parser) sum() (int64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			v += rhs
		case tokMinus:
			p.next()
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (p *parser) term() (int64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokStar {
		p.next()
		rhs, err := p.unary()
		if err != nil {
			return 0, err
		}
		v *= rhs
	}
	return v, nil
}

func (p *parser) unary() (int64, error) {
	if p.peek().kind == tokMinus {
		p.next()
		v, err := p.unary()
		return -v, err
	}
	return p.atom()
}

func (p *parser) atom() (int64, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad integer %q: %v", ErrEvaluation, t.text, err)
		}
		return v, nil
	case tokIdent:
		v, ok := p.vars[t.text]
		if !ok {
			return 0, fmt.Errorf("%w: unknown identifier %q", ErrEvaluation, t.text)
		}
		return v, nil
	case tokLParen:
		v, err := p.xor()
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return 0, fmt.Errorf("%w: expected ')' at %d", ErrEvaluation, closing.pos)
		}
		return v, nil
	case tokEOF:
		return 0, fmt.Errorf("%w: unexpected end of expression", ErrEvaluation)
	default:
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrEvaluation, t.text, t.pos)
	}
}

// evalExpr evaluates a single expression against the known variables.
func evalExpr(src string, vars map[string]int64) (int64, error) {
	tokens, err := lex(src)
	if err != nil {
		return 0, err
	}
	p := &parser{tokens: tokens, vars: vars}
	v, err := p.xor()
	if err != nil {
		return 0, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return 0, fmt.Errorf("%w: trailing %q at %d in %q", ErrEvaluation, t.text, t.pos, src)
	}
	return v, nil
}

// Evaluate runs a ';'-separated list of "name=expression" assignments in
// order. Later statements may reference earlier names.
func Evaluate(program string) (CipherTable, error) {
	table := make(CipherTable)
	for _, stmt := range strings.Split(program, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		name, expr, ok := strings.Cut(stmt, "=")
		name = strings.TrimSpace(name)
		if !ok || !isIdentifier(name) {
			return nil, fmt.Errorf("%w: malformed assignment %q", ErrEvaluation, stmt)
		}
		v, err := evalExpr(expr, table)
		if err != nil {
			return nil, fmt.Errorf("evaluating %q: %w", name, err)
		}
		table[name] = v
	}
	return table, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentStart(r) && !isDigit(r) {
			return false
		}
	}
	return true
}
