// Package parser converts a tokenized expression into postfix (RPN) form
// using a shunting-yard operator-stack algorithm.
package parser

import (
	"numscript/internal/ierr"
	"numscript/internal/token"
)

// Parse converts tokens (as produced by internal/lexer, Expr tag first)
// into a postfix token vector, fusing any trailing ++/-- onto the
// preceding lvalue token (spec §4.3's post-pass).
func Parse(tokens []token.Token) ([]token.Token, error) {
	var out []token.Token
	var stack []token.Token
	parenCount := 0
	brackCount := 0

	for _, tok := range tokens {
		switch tok.Kind {
		case token.Expr, token.Variable, token.Value, token.String:
			out = append(out, tok)

		case token.Comma:
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.Text == "(" || top.Text == "[" {
					break
				}
				stack = stack[:len(stack)-1]
				out = append(out, top)
			}

		case token.Operator, token.ArrayHead, token.FuncHead:
			switch tok.Text {
			case "(":
				parenCount++
				stack = append(stack, tok)

			case ")":
				parenCount--
				for len(stack) > 0 && stack[len(stack)-1].Text != "(" {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					out = append(out, top)
				}
				if len(stack) == 0 {
					return nil, ierr.New(ierr.SyntaxError, "unbalanced ()")
				}
				stack = stack[:len(stack)-1] // discard "("
				if len(stack) > 0 && stack[len(stack)-1].Kind == token.FuncHead {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					out = append(out, top)
				}

			case "[":
				brackCount++
				stack = append(stack, tok)

			case "]":
				brackCount--
				for len(stack) > 0 && stack[len(stack)-1].Text != "[" {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					out = append(out, top)
				}
				if len(stack) == 0 {
					return nil, ierr.New(ierr.SyntaxError, "unbalanced []")
				}
				stack = stack[:len(stack)-1] // discard "["
				if len(stack) == 0 || stack[len(stack)-1].Kind != token.ArrayHead {
					return nil, ierr.New(ierr.SyntaxError, "missing array for matching []")
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				out = append(out, top)

			default:
				for len(stack) > 0 {
					top := stack[len(stack)-1]
					if top.Text == "(" || top.Text == "[" || top.Prec <= tok.Prec {
						break
					}
					stack = stack[:len(stack)-1]
					out = append(out, top)
				}
				stack = append(stack, tok)
			}
		}
	}

	if parenCount != 0 {
		return nil, ierr.New(ierr.SyntaxError, "unbalanced ()")
	}
	if brackCount != 0 {
		return nil, ierr.New(ierr.SyntaxError, "unbalanced []")
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.Text != "(" && top.Text != "[" {
			out = append(out, top)
		}
	}

	return fusePostfixIncDec(out), nil
}

// fusePostfixIncDec fuses a trailing ++/-- onto the immediately preceding
// variable or array-head token, dropping the operator token (spec §4.3's
// post-pass). Mirrors the reference implementation's unconditional
// overwrite of any earlier-set pre-± marker on the same token.
func fusePostfixIncDec(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == token.Operator && (t.Text == "++" || t.Text == "--") && len(out) > 0 {
			prev := out[len(out)-1]
			if prev.Kind == token.Variable || prev.Kind == token.ArrayHead {
				if t.Text == "++" {
					prev.PrePost = token.PostInc
				} else {
					prev.PrePost = token.PostDec
				}
				out[len(out)-1] = prev
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
