// Package lexer tokenizes a single expression line into the token stream
// consumed by the shunting-yard parser.
package lexer

import (
	"strings"
	"unicode"

	"numscript/internal/ierr"
	"numscript/internal/token"
)

// threeCharOps and twoCharOps are the greedy longest-match multi-character
// operator tables, mirroring the reference tokenizer's opr3/opr2 lookups.
var threeCharOps = map[string]bool{
	">>>": true,
}

var twoCharOps = map[string]bool{
	"==": true, "!=": true, "<=": true, ">=": true,
	"<<": true, ">>": true,
	"++": true, "--": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
}

const oneCharOps = "=+-*/%!&|^<>()[]"

// Lex converts a source expression into its token stream: an Expr token
// carrying the original text, followed by the fully tokenized and
// prefix-±±-fused sequence.
func Lex(expr string) ([]token.Token, error) {
	normalized := strings.ReplaceAll(expr, `"`, `'`)
	out := []token.Token{token.New(token.Expr, normalized)}

	raw, err := scan(normalized)
	if err != nil {
		return nil, err
	}
	out = append(out, fusePrefixIncDec(raw)...)
	return out, nil
}

// scan runs the {idle, variable, number, string} state machine described
// in spec §4.2, returning the flat token sequence before ±± fusion.
func scan(in string) ([]token.Token, error) {
	runes := []rune(in)
	n := len(runes)
	var out []token.Token
	var acc []rune
	const (
		stIdle = iota
		stVariable
		stNumber
		stString
	)
	state := stIdle
	gateID := 0

	finalizeVariable := func(next rune, hasNext bool) {
		name := string(acc)
		acc = nil
		switch {
		case hasNext && next == '(':
			out = append(out, token.New(token.FuncHead, name))
		case hasNext && next == '[':
			out = append(out, token.New(token.ArrayHead, name))
		default:
			out = append(out, token.New(token.Variable, name))
		}
	}

	finalizeNumber := func() {
		val := string(acc)
		acc = nil
		if (strings.HasPrefix(val, "+") || strings.HasPrefix(val, "-")) && len(out) > 0 {
			top := out[len(out)-1]
			if top.Kind == token.Value || top.Kind == token.Variable || top.Kind == token.String {
				out = append(out, token.New(token.Operator, val[:1]))
				out = append(out, token.New(token.Value, val[1:]))
				return
			}
		}
		out = append(out, token.New(token.Value, val))
	}

	isHexDigit := func(r rune) bool {
		return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	}

	for i := 0; i < n; i++ {
		c := runes[i]
		var c2 rune
		hasC2 := i+1 < n
		if hasC2 {
			c2 = runes[i+1]
		}

		switch state {
		case stIdle:
			switch {
			case unicode.IsDigit(c) || c == '.' || ((c == '-' || c == '+') && hasC2 && unicode.IsDigit(c2)):
				acc = []rune{c}
				state = stNumber
			case unicode.IsLetter(c) || c == '_':
				acc = []rune{c}
				state = stVariable
			case c == '\'':
				acc = nil
				state = stString
			case c == '&' && hasC2 && c2 == '&':
				out = append(out, token.Gate("S&", gateID))
				out = append(out, token.Gate("&&", gateID))
				gateID++
				i++
			case c == '|' && hasC2 && c2 == '|':
				out = append(out, token.Gate("S|", gateID))
				out = append(out, token.Gate("||", gateID))
				gateID++
				i++
			case i+2 < n && threeCharOps[string(runes[i:i+3])]:
				out = append(out, token.New(token.Operator, string(runes[i:i+3])))
				i += 2
			case i+1 < n && twoCharOps[string(runes[i:i+2])]:
				out = append(out, token.New(token.Operator, string(runes[i:i+2])))
				i++
			case c == ',':
				out = append(out, token.New(token.Comma, ","))
			case strings.ContainsRune(oneCharOps, c):
				out = append(out, token.New(token.Operator, string(c)))
			case unicode.IsSpace(c):
				// condensed away
			default:
				return nil, ierr.New(ierr.SyntaxError, "unexpected character %q", c).WithExpr(in)
			}

		case stVariable:
			if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '.' || c == '_' || c == ':' {
				acc = append(acc, c)
			} else {
				finalizeVariable(c, true)
				state = stIdle
				i--
			}

		case stNumber:
			switch {
			case unicode.IsDigit(c) || c == '.':
				acc = append(acc, c)
			case len(acc) == 1 && acc[0] == '0' && (c == 'x' || c == 'X'):
				acc = append(acc, c)
			case len(acc) >= 2 && (acc[1] == 'x' || acc[1] == 'X') && isHexDigit(c):
				acc = append(acc, c)
			default:
				finalizeNumber()
				state = stIdle
				i--
			}

		case stString:
			if c == '\'' {
				out = append(out, token.New(token.String, string(acc)))
				acc = nil
				state = stIdle
			} else {
				acc = append(acc, c)
			}
		}
	}

	switch state {
	case stVariable:
		finalizeVariable(0, false)
	case stNumber:
		finalizeNumber()
	case stString:
		return nil, ierr.New(ierr.SyntaxError, "unterminated string literal").WithExpr(in)
	}

	return out, nil
}

// fusePrefixIncDec scans the raw token stream for ++/-- directly preceding
// a variable or array-head token, attaching a pre-± marker to that lvalue
// token and dropping the operator token (spec §4.2's pre-pass).
func fusePrefixIncDec(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == token.Operator && (t.Text == "++" || t.Text == "--") && i+1 < len(toks) {
			next := toks[i+1]
			if next.Kind == token.Variable || next.Kind == token.ArrayHead {
				if t.Text == "++" {
					next.PrePost = token.PreInc
				} else {
					next.PrePost = token.PreDec
				}
				out = append(out, next)
				i++
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
