// Package postfix evaluates a postfix (RPN) token vector against an
// environment and a host/builtin function table, producing a single
// runtime value.
package postfix

import (
	"strings"

	"numscript/internal/builtin"
	"numscript/internal/ierr"
	"numscript/internal/numval"
	"numscript/internal/token"
	"numscript/internal/value"
)

// Eval walks expr (expr[0] is the Expr diagnostic token) against env,
// resolving function-head tokens first against hostFuncs then against the
// built-in table. It returns the single value left on the stack, or an
// *ierr.Error.
func Eval(expr []token.Token, env *value.Environment, hostFuncs map[string]value.HostFunction) (value.Value, error) {
	exprText := ""
	if len(expr) > 0 && expr[0].Kind == token.Expr {
		exprText = expr[0].Text
	}

	stack := value.NewStack()
	shortcutID := -1

	for _, tok := range expr {
		if shortcutID >= 0 {
			if tok.ShortcutID == shortcutID {
				shortcutID = -1
			}
			continue
		}

		var err error
		switch tok.Kind {
		case token.Expr:
			// diagnostic only, already captured above

		case token.Value:
			var n numval.NumVal
			n, err = numval.Parse(tok.Text)
			if err == nil {
				stack.Push(value.NumOf(n))
			} else {
				err = ierr.New(ierr.SyntaxError, "%v", err)
			}

		case token.String:
			stack.Push(value.StrOf(tok.Text))

		case token.Variable:
			var v value.Value
			v, err = readVariable(tok, env)
			if err == nil {
				stack.Push(v)
			}

		case token.ArrayHead:
			err = evalArrayHead(tok, env, stack)

		case token.FuncHead:
			err = evalCall(tok, hostFuncs, stack)

		case token.Comma:
			// never appears in well-formed postfix output

		case token.Operator:
			switch tok.Text {
			case "S&", "S|":
				shortcutID, err = evalGate(tok, stack)
			case "!":
				err = evalNot(stack)
			default:
				err = evalBinary(tok, expr, env, stack)
			}
		}

		if err != nil {
			return value.Null, withExpr(err, exprText)
		}
	}

	if stack.Len() != 1 {
		return value.Null, ierr.New(ierr.InternalError, "leftover on stack after eval (%d item(s))", stack.Len()).WithExpr(exprText)
	}
	result, _ := stack.Pop()
	if result.Kind == value.LValueKind {
		result = result.LValue.Get()
	}
	return result, nil
}

func withExpr(err error, exprText string) error {
	if ie, ok := err.(*ierr.Error); ok {
		return ie.WithExpr(exprText)
	}
	return ierr.New(ierr.InternalError, "%v", err).WithExpr(exprText)
}

// readVariable resolves a Variable token: the literal names true/false/null
// are language literals rather than environment lookups (the reference
// tokenizer treats them as ordinary identifiers and special-cases them at
// read time); otherwise the binding is read from env, applying and
// clearing any pre/post ±± marker immediately.
func readVariable(tok token.Token, env *value.Environment) (value.Value, error) {
	switch tok.Text {
	case "true":
		return value.BoolOf(true), nil
	case "false":
		return value.BoolOf(false), nil
	case "null":
		return value.Null, nil
	}
	v, ok := env.Get(tok.Text)
	if !ok {
		return value.Null, nil
	}
	return value.ResolvePrePost(v, tok.PrePost, func(nv value.Value) { env.Set(tok.Text, nv) }), nil
}

// evalArrayHead pops the index, resolves (lazily creating) the named
// array binding, and pushes an LValue bound to that slot. The pre/post
// marker, if any, is applied lazily when the LValue is read.
func evalArrayHead(tok token.Token, env *value.Environment, stack *value.Stack) error {
	idxVal, ok := stack.Pop()
	if !ok {
		return ierr.New(ierr.InternalError, "stack underflow reading array index")
	}
	if idxVal.Kind != value.NumKind || !idxVal.Num.IsInt() {
		return ierr.New(ierr.TypeError, "array index must be an integer")
	}
	arrVal, ok := env.Get(tok.Text)
	var arr *value.Array
	if ok && arrVal.Kind == value.ArrayKind {
		arr = arrVal.Array
	} else {
		arr = value.NewArray()
		env.Set(tok.Text, value.ArrayOf(arr))
	}
	lv := &value.LValue{Kind: value.LVArraySlot, Array: arr, Index: idxVal.Num.IntValue(), PrePost: tok.PrePost}
	stack.Push(value.LValueOf(lv))
	return nil
}

func evalCall(tok token.Token, hostFuncs map[string]value.HostFunction, stack *value.Stack) error {
	name := strings.ToLower(tok.Text)
	fn, ok := hostFuncs[name]
	if !ok {
		fn, ok = builtin.Table[name]
	}
	if !ok {
		return ierr.New(ierr.NameError, "unknown function %s()", tok.Text)
	}
	result, err := fn(stack)
	if err != nil {
		return err
	}
	stack.Push(result)
	return nil
}

func evalGate(tok token.Token, stack *value.Stack) (int, error) {
	top, ok := stack.Peek()
	if !ok {
		return -1, ierr.New(ierr.InternalError, "stack underflow at short-circuit gate")
	}
	b, isBool := top.AsBool()
	if !isBool {
		return -1, ierr.New(ierr.TypeError, "&&/|| require boolean operands")
	}
	switch tok.Text {
	case "S&":
		if !b {
			return tok.ShortcutID, nil
		}
	case "S|":
		if b {
			return tok.ShortcutID, nil
		}
	}
	return -1, nil
}

func evalNot(stack *value.Stack) error {
	v, ok := stack.Pop()
	if !ok {
		return ierr.New(ierr.InternalError, "stack underflow at unary !")
	}
	switch v.Kind {
	case value.BoolKind:
		stack.Push(value.BoolOf(!v.Bool))
		return nil
	case value.NumKind:
		n, err := v.Num.Not()
		if err != nil {
			return ierr.New(ierr.TypeMismatch, "%v", err)
		}
		stack.Push(value.NumOf(n))
		return nil
	default:
		return ierr.New(ierr.TypeError, "! requires a boolean or integer operand")
	}
}

// evalBinary handles every remaining operator: comparisons, assignment
// (simple and compound), arithmetic, bitwise/logical, and shifts. lArg and
// rArg are resolved from any LValue operand before dispatch — matching
// the reference evaluator's unconditional getValue() on both operands,
// which also fires (and thus applies ±±) on the left side of a plain
// assignment even though the resolved value itself goes unused there.
func evalBinary(tok token.Token, fullExpr []token.Token, env *value.Environment, stack *value.Stack) error {
	rRaw, ok := stack.Pop()
	if !ok {
		return ierr.New(ierr.InternalError, "stack underflow (right operand of %s)", tok.Text)
	}
	lRaw, ok := stack.Pop()
	if !ok {
		return ierr.New(ierr.InternalError, "stack underflow (left operand of %s)", tok.Text)
	}

	var lLV *value.LValue
	lArg := lRaw
	if lRaw.Kind == value.LValueKind {
		lLV = lRaw.LValue
		lArg = lLV.Get()
	}
	rArg := rRaw
	if rRaw.Kind == value.LValueKind {
		rArg = rRaw.LValue.Get()
	}

	switch tok.Text {
	case "<", "<=", ">", ">=", "==", "!=":
		res, err := evalComparison(tok.Text, lArg, rArg)
		if err != nil {
			return err
		}
		stack.Push(res)
		return nil

	case "=":
		return assign(fullExpr, lLV, env, rArg, stack, "=")

	case "+", "+=":
		res, err := evalAdd(lArg, rArg)
		if err != nil {
			return err
		}
		if tok.Text == "+=" {
			return assign(fullExpr, lLV, env, res, stack, "+=")
		}
		stack.Push(res)
		return nil

	case "-", "-=":
		return arithAssignOrPush(tok.Text, fullExpr, lLV, env, lArg, rArg, stack, numval.NumVal.Subtract)

	case "*", "*=":
		return arithAssignOrPush(tok.Text, fullExpr, lLV, env, lArg, rArg, stack, numval.NumVal.Multiply)

	case "/", "/=":
		return arithAssignOrPushErr(tok.Text, fullExpr, lLV, env, lArg, rArg, stack, numval.NumVal.Divide)

	case "%", "%=":
		return arithAssignOrPushErr(tok.Text, fullExpr, lLV, env, lArg, rArg, stack, numval.NumVal.Mod)

	case "<<":
		return shiftPush(lArg, rArg, stack, numval.NumVal.ShiftLeft)
	case ">>":
		return shiftPush(lArg, rArg, stack, numval.NumVal.ShiftRightSigned)
	case ">>>":
		return shiftPush(lArg, rArg, stack, numval.NumVal.ShiftRightUnsigned)

	case "&", "&&":
		return logicalPush(tok.Text, lArg, rArg, stack,
			func(a, b bool) bool { return a && b }, numval.NumVal.And)
	case "|", "||":
		return logicalPush(tok.Text, lArg, rArg, stack,
			func(a, b bool) bool { return a || b }, numval.NumVal.Or)
	case "^":
		return logicalPush(tok.Text, lArg, rArg, stack,
			func(a, b bool) bool { return a != b }, numval.NumVal.Xor)

	default:
		return ierr.New(ierr.SyntaxError, "unknown operator %s", tok.Text)
	}
}

func assign(fullExpr []token.Token, lLV *value.LValue, env *value.Environment, v value.Value, stack *value.Stack, opName string) error {
	if lLV != nil {
		lLV.Set(v)
		stack.Push(v)
		return nil
	}
	if len(fullExpr) > 1 && fullExpr[1].Kind == token.Variable {
		env.Set(fullExpr[1].Text, v)
		stack.Push(v)
		return nil
	}
	return ierr.New(ierr.SyntaxError, "%s assignment to non variable", opName)
}

func numOf(v value.Value) (numval.NumVal, bool) {
	if v.Kind != value.NumKind {
		return numval.NumVal{}, false
	}
	return v.Num, true
}

func evalAdd(lArg, rArg value.Value) (value.Value, error) {
	if lArg.Kind == value.StrKind {
		return value.StrOf(lArg.Str + rArg.String()), nil
	}
	if rArg.Kind == value.StrKind {
		return value.StrOf(lArg.String() + rArg.Str), nil
	}
	ln, lok := numOf(lArg)
	rn, rok := numOf(rArg)
	if !lok || !rok {
		return value.Null, ierr.New(ierr.TypeError, "illegal args for operator +")
	}
	return value.NumOf(ln.Add(rn)), nil
}

func arithAssignOrPush(op string, fullExpr []token.Token, lLV *value.LValue, env *value.Environment, lArg, rArg value.Value, stack *value.Stack, fn func(numval.NumVal, numval.NumVal) numval.NumVal) error {
	ln, lok := numOf(lArg)
	rn, rok := numOf(rArg)
	if !lok || !rok {
		return ierr.New(ierr.TypeError, "illegal args for operator %s", op)
	}
	res := value.NumOf(fn(ln, rn))
	if strings.HasSuffix(op, "=") {
		return assign(fullExpr, lLV, env, res, stack, op)
	}
	stack.Push(res)
	return nil
}

func arithAssignOrPushErr(op string, fullExpr []token.Token, lLV *value.LValue, env *value.Environment, lArg, rArg value.Value, stack *value.Stack, fn func(numval.NumVal, numval.NumVal) (numval.NumVal, error)) error {
	ln, lok := numOf(lArg)
	rn, rok := numOf(rArg)
	if !lok || !rok {
		return ierr.New(ierr.TypeError, "illegal args for operator %s", op)
	}
	n, err := fn(ln, rn)
	if err != nil {
		return ierr.New(ierr.TypeMismatch, "%v", err)
	}
	res := value.NumOf(n)
	if strings.HasSuffix(op, "=") {
		return assign(fullExpr, lLV, env, res, stack, op)
	}
	stack.Push(res)
	return nil
}

func shiftPush(lArg, rArg value.Value, stack *value.Stack, fn func(numval.NumVal, numval.NumVal) (numval.NumVal, error)) error {
	ln, lok := numOf(lArg)
	rn, rok := numOf(rArg)
	if !lok || !rok {
		return ierr.New(ierr.TypeMismatch, "shift requires integer operands")
	}
	n, err := fn(ln, rn)
	if err != nil {
		return ierr.New(ierr.TypeMismatch, "%v", err)
	}
	stack.Push(value.NumOf(n))
	return nil
}

func logicalPush(op string, lArg, rArg value.Value, stack *value.Stack, boolFn func(bool, bool) bool, numFn func(numval.NumVal, numval.NumVal) (numval.NumVal, error)) error {
	if lArg.Kind == value.BoolKind && rArg.Kind == value.BoolKind {
		stack.Push(value.BoolOf(boolFn(lArg.Bool, rArg.Bool)))
		return nil
	}
	ln, lok := numOf(lArg)
	rn, rok := numOf(rArg)
	if lok && rok {
		n, err := numFn(ln, rn)
		if err != nil {
			return ierr.New(ierr.TypeMismatch, "%v", err)
		}
		stack.Push(value.NumOf(n))
		return nil
	}
	return ierr.New(ierr.TypeError, "illegal args for operator %s", op)
}

func evalComparison(op string, lArg, rArg value.Value) (value.Value, error) {
	if lArg.IsNull() || rArg.IsNull() {
		switch op {
		case "==":
			return value.BoolOf(lArg.IsNull() && rArg.IsNull()), nil
		case "!=":
			return value.BoolOf(!(lArg.IsNull() && rArg.IsNull())), nil
		default:
			return value.Null, ierr.New(ierr.TypeError, "illegal comparison to null value for operator %s", op)
		}
	}

	var comp int
	switch {
	case lArg.Kind == value.StrKind && rArg.Kind == value.StrKind:
		comp = strings.Compare(lArg.Str, rArg.Str)
	case lArg.Kind == value.NumKind && rArg.Kind == value.NumKind:
		comp = lArg.Num.Compare(rArg.Num)
	default:
		return value.Null, ierr.New(ierr.TypeError, "illegal args for operator %s", op)
	}

	switch op {
	case "<":
		return value.BoolOf(comp < 0), nil
	case "<=":
		return value.BoolOf(comp <= 0), nil
	case ">":
		return value.BoolOf(comp > 0), nil
	case ">=":
		return value.BoolOf(comp >= 0), nil
	case "==":
		return value.BoolOf(comp == 0), nil
	default: // "!="
		return value.BoolOf(comp != 0), nil
	}
}
