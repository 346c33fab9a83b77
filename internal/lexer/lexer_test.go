package lexer

import (
	"testing"

	"numscript/internal/token"
)

func kinds(t *testing.T, toks []token.Token) []token.Kind {
	t.Helper()
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestLexAlwaysLeadsWithExpr(t *testing.T) {
	toks, err := Lex("1+2")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != token.Expr || toks[0].Text != "1+2" {
		t.Errorf("first token = %+v, want Expr(1+2)", toks[0])
	}
}

func TestLexNumberVariableString(t *testing.T) {
	toks, err := Lex("a + 'hi' + 3.5")
	if err != nil {
		t.Fatal(err)
	}
	got := kinds(t, toks[1:])
	want := []token.Kind{token.Variable, token.Operator, token.String, token.Operator, token.Value}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d kind = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexFuncHeadVsVariable(t *testing.T) {
	toks, err := Lex("foo(1)")
	if err != nil {
		t.Fatal(err)
	}
	if toks[1].Kind != token.FuncHead || toks[1].Text != "foo" {
		t.Errorf("toks[1] = %+v, want FuncHead(foo)", toks[1])
	}
}

func TestLexArrayHeadVsVariable(t *testing.T) {
	toks, err := Lex("a[0]")
	if err != nil {
		t.Fatal(err)
	}
	if toks[1].Kind != token.ArrayHead || toks[1].Text != "a" {
		t.Errorf("toks[1] = %+v, want ArrayHead(a)", toks[1])
	}
}

func TestLexHexLiteral(t *testing.T) {
	toks, err := Lex("0xFF")
	if err != nil {
		t.Fatal(err)
	}
	if toks[1].Kind != token.Value || toks[1].Text != "0xFF" {
		t.Errorf("toks[1] = %+v, want Value(0xFF)", toks[1])
	}
}

func TestLexShortCircuitGatesShareID(t *testing.T) {
	toks, err := Lex("a && b")
	if err != nil {
		t.Fatal(err)
	}
	var gate, op token.Token
	for _, tok := range toks {
		if tok.Text == "S&" {
			gate = tok
		}
		if tok.Text == "&&" {
			op = tok
		}
	}
	if gate.ShortcutID < 0 || gate.ShortcutID != op.ShortcutID {
		t.Errorf("gate id %d, op id %d, want matching non-negative ids", gate.ShortcutID, op.ShortcutID)
	}
}

func TestLexOrGate(t *testing.T) {
	toks, err := Lex("a || b")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, tok := range toks {
		if tok.Text == "S|" {
			found = true
		}
	}
	if !found {
		t.Error("expected an S| gate token for ||")
	}
}

func TestLexPrefixIncDecFusesOntoVariable(t *testing.T) {
	toks, err := Lex("++a")
	if err != nil {
		t.Fatal(err)
	}
	// Expr, then the fused variable -- no separate "++" operator token.
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2: %v", len(toks), toks)
	}
	if toks[1].Kind != token.Variable || toks[1].PrePost != token.PreInc {
		t.Errorf("toks[1] = %+v, want Variable(a) with PreInc", toks[1])
	}
}

func TestLexSignFoldingAfterValue(t *testing.T) {
	// "3-4" must not be read as the single number "3-4"; the '-' after a
	// value is a binary operator.
	toks, err := Lex("3-4")
	if err != nil {
		t.Fatal(err)
	}
	got := kinds(t, toks[1:])
	want := []token.Kind{token.Value, token.Operator, token.Value}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLexUnterminatedString(t *testing.T) {
	if _, err := Lex("'abc"); err == nil {
		t.Error("unterminated string literal should error")
	}
}

func TestLexUnexpectedCharacter(t *testing.T) {
	if _, err := Lex("a $ b"); err == nil {
		t.Error("unexpected character should error")
	}
}
