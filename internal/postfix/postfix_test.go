package postfix

import (
	"testing"

	"numscript/internal/lexer"
	"numscript/internal/numval"
	"numscript/internal/parser"
	"numscript/internal/value"
)

func eval(t *testing.T, env *value.Environment, expr string) value.Value {
	t.Helper()
	toks, err := lexer.Lex(expr)
	if err != nil {
		t.Fatalf("Lex(%q): %v", expr, err)
	}
	pf, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse(%q): %v", expr, err)
	}
	v, err := Eval(pf, env, nil)
	if err != nil {
		t.Fatalf("Eval(%q): %v", expr, err)
	}
	return v
}

func evalErr(t *testing.T, env *value.Environment, expr string) error {
	t.Helper()
	toks, err := lexer.Lex(expr)
	if err != nil {
		return err
	}
	pf, err := parser.Parse(toks)
	if err != nil {
		return err
	}
	_, err = Eval(pf, env, nil)
	return err
}

func TestArithmeticPrecedence(t *testing.T) {
	env := value.NewEnvironment()
	got := eval(t, env, "1+2*3")
	if got.String() != "7" {
		t.Errorf("1+2*3 = %s, want 7", got.String())
	}
}

func TestAssignmentReturnsAssignedValue(t *testing.T) {
	env := value.NewEnvironment()
	got := eval(t, env, "a=5")
	if got.String() != "5" {
		t.Errorf("a=5 evaluates to %s, want 5", got.String())
	}
	av, _ := env.Get("a")
	if av.String() != "5" {
		t.Errorf("env[a] = %s, want 5", av.String())
	}
}

func TestCompoundAssignment(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("a", value.NumOf(mustNum(t, "10")))
	got := eval(t, env, "a+=5")
	if got.String() != "15" {
		t.Errorf("a+=5 = %s, want 15", got.String())
	}
}

func TestShortCircuitAndSkipsRight(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("flag", value.BoolOf(false))
	// If the right side were evaluated, the unknown function call would
	// raise a NameError; short-circuiting must skip it entirely.
	got := eval(t, env, "flag && undefinedFn()")
	if b, ok := got.AsBool(); !ok || b {
		t.Errorf("flag && undefinedFn() = %v, want false", got)
	}
}

func TestShortCircuitOrSkipsRight(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("flag", value.BoolOf(true))
	got := eval(t, env, "flag || undefinedFn()")
	if b, ok := got.AsBool(); !ok || !b {
		t.Errorf("flag || undefinedFn() = %v, want true", got)
	}
}

func TestPrePostIncrementSequence(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("i", value.NumOf(mustNum(t, "0")))

	post := eval(t, env, "i++")
	if post.String() != "0" {
		t.Errorf("i++ evaluates to %s, want 0 (prior value)", post.String())
	}
	iv, _ := env.Get("i")
	if iv.String() != "1" {
		t.Errorf("i after i++ = %s, want 1", iv.String())
	}

	pre := eval(t, env, "++i")
	if pre.String() != "2" {
		t.Errorf("++i evaluates to %s, want 2 (new value)", pre.String())
	}
}

func TestArrayPrePostIsLazyAndPersists(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("arr", value.ArrayOf(value.NewArray()))
	eval(t, env, "arr[0]=10")
	got := eval(t, env, "arr[0]++")
	if got.String() != "10" {
		t.Errorf("arr[0]++ = %s, want 10 (prior value)", got.String())
	}
	after := eval(t, env, "arr[0]")
	if after.String() != "11" {
		t.Errorf("arr[0] after ++ = %s, want 11", after.String())
	}
}

func TestArrayAbsentReadIsNull(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("arr", value.ArrayOf(value.NewArray()))
	got := eval(t, env, "arr[5]")
	if !got.IsNull() {
		t.Errorf("reading an unset array slot = %v, want Null", got)
	}
}

func TestArrayIndexMustBeInteger(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("arr", value.ArrayOf(value.NewArray()))
	if err := evalErr(t, env, "arr[1.5]"); err == nil {
		t.Error("non-integer array index should error")
	}
}

func TestStringConcatCoercion(t *testing.T) {
	env := value.NewEnvironment()
	got := eval(t, env, "'x='+5")
	if got.String() != "x=5" {
		t.Errorf("'x='+5 = %s, want x=5", got.String())
	}
	got2 := eval(t, env, "5+'=y'")
	if got2.String() != "5=y" {
		t.Errorf("5+'=y' = %s, want 5=y", got2.String())
	}
}

func TestNullComparisonOnlyForEquality(t *testing.T) {
	env := value.NewEnvironment()
	got := eval(t, env, "null==null")
	if b, _ := got.AsBool(); !b {
		t.Error("null==null should be true")
	}
	if err := evalErr(t, env, "null<5"); err == nil {
		t.Error("null<5 should be a TypeError")
	}
}

func TestStringVsNumberComparisonIsTypeError(t *testing.T) {
	env := value.NewEnvironment()
	if err := evalErr(t, env, "'a'<5"); err == nil {
		t.Error("string vs number ordering should be a TypeError")
	}
}

func TestBitwiseOnDecimalIsTypeMismatch(t *testing.T) {
	env := value.NewEnvironment()
	if err := evalErr(t, env, "1.5 & 1"); err == nil {
		t.Error("bitwise on a decimal operand should be a TypeMismatch")
	}
}

func TestUnknownFunctionIsNameError(t *testing.T) {
	env := value.NewEnvironment()
	if err := evalErr(t, env, "nope()"); err == nil {
		t.Error("calling an undefined function should be a NameError")
	}
}

func TestHostFunctionResolvesBeforeBuiltin(t *testing.T) {
	env := value.NewEnvironment()
	hostFuncs := map[string]value.HostFunction{
		"max": func(stack *value.Stack) (value.Value, error) {
			stack.Pop()
			stack.Pop()
			return value.StrOf("shadowed"), nil
		},
	}
	toks, err := lexer.Lex("max(1,2)")
	if err != nil {
		t.Fatal(err)
	}
	pf, err := parser.Parse(toks)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Eval(pf, env, hostFuncs)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "shadowed" {
		t.Errorf("host max() = %s, want host function to take priority over the built-in", got.String())
	}
}

func TestBuiltinRadix(t *testing.T) {
	env := value.NewEnvironment()
	got := eval(t, env, "radix(255,16)")
	if got.String() != "FF" {
		t.Errorf("radix(255,16) = %s, want FF", got.String())
	}
}

func mustNum(t *testing.T, lit string) numval.NumVal {
	t.Helper()
	n, err := numval.Parse(lit)
	if err != nil {
		t.Fatalf("numval.Parse(%q): %v", lit, err)
	}
	return n
}
