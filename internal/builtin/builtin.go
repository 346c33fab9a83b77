// Package builtin implements the language's built-in function table
// (max, min, abs, pow, trunc, radix, bit, set, clr, flip, millis),
// matching the function map in the reference expression evaluator.
package builtin

import (
	"time"

	"numscript/internal/ierr"
	"numscript/internal/numval"
	"numscript/internal/value"
)

// Table maps a built-in's lowercase name to its implementation. The
// postfix evaluator resolves function-head tokens case-insensitively
// against the host-supplied map first, then against this table.
var Table = map[string]value.HostFunction{
	"max":    fnMax,
	"min":    fnMin,
	"abs":    fnAbs,
	"pow":    fnPow,
	"trunc":  fnTrunc,
	"radix":  fnRadix,
	"bit":    fnBit,
	"set":    fnSet,
	"clr":    fnClr,
	"flip":   fnFlip,
	"millis": fnMillis,
}

func popNum(stack *value.Stack, fn string) (numval.NumVal, error) {
	v, ok := stack.Pop()
	if !ok {
		return numval.NumVal{}, ierr.New(ierr.InternalError, "%s(): missing argument", fn)
	}
	if v.Kind != value.NumKind {
		return numval.NumVal{}, ierr.New(ierr.TypeError, "%s(): expected a number, got %s", fn, v.TypeName())
	}
	return v.Num, nil
}

func fnMax(stack *value.Stack) (value.Value, error) {
	b, err := popNum(stack, "max")
	if err != nil {
		return value.Null, err
	}
	a, err := popNum(stack, "max")
	if err != nil {
		return value.Null, err
	}
	return value.NumOf(a.Max(b)), nil
}

func fnMin(stack *value.Stack) (value.Value, error) {
	b, err := popNum(stack, "min")
	if err != nil {
		return value.Null, err
	}
	a, err := popNum(stack, "min")
	if err != nil {
		return value.Null, err
	}
	return value.NumOf(a.Min(b)), nil
}

func fnAbs(stack *value.Stack) (value.Value, error) {
	a, err := popNum(stack, "abs")
	if err != nil {
		return value.Null, err
	}
	return value.NumOf(a.Abs()), nil
}

func fnPow(stack *value.Stack) (value.Value, error) {
	exp, err := popNum(stack, "pow")
	if err != nil {
		return value.Null, err
	}
	base, err := popNum(stack, "pow")
	if err != nil {
		return value.Null, err
	}
	r, err := base.Pow(exp)
	if err != nil {
		return value.Null, ierr.New(ierr.TypeMismatch, "pow(): %v", err)
	}
	return value.NumOf(r), nil
}

func fnTrunc(stack *value.Stack) (value.Value, error) {
	places, err := popNum(stack, "trunc")
	if err != nil {
		return value.Null, err
	}
	v, err := popNum(stack, "trunc")
	if err != nil {
		return value.Null, err
	}
	r, err := v.Trunc(places.IntValue())
	if err != nil {
		return value.Null, ierr.New(ierr.TypeMismatch, "trunc(): %v", err)
	}
	return value.NumOf(r), nil
}

func fnRadix(stack *value.Stack) (value.Value, error) {
	radix, err := popNum(stack, "radix")
	if err != nil {
		return value.Null, err
	}
	v, err := popNum(stack, "radix")
	if err != nil {
		return value.Null, err
	}
	s, err := v.Radix(radix.IntValue())
	if err != nil {
		return value.Null, ierr.New(ierr.TypeMismatch, "radix(): %v", err)
	}
	return value.StrOf(s), nil
}

func fnBit(stack *value.Stack) (value.Value, error) {
	bit, err := popNum(stack, "bit")
	if err != nil {
		return value.Null, err
	}
	v, err := popNum(stack, "bit")
	if err != nil {
		return value.Null, err
	}
	b, err := v.Bit(bit.IntValue())
	if err != nil {
		return value.Null, ierr.New(ierr.TypeMismatch, "bit(): %v", err)
	}
	return value.BoolOf(b), nil
}

func fnSet(stack *value.Stack) (value.Value, error) {
	bit, err := popNum(stack, "set")
	if err != nil {
		return value.Null, err
	}
	v, err := popNum(stack, "set")
	if err != nil {
		return value.Null, err
	}
	r, err := v.SetBit(bit.IntValue())
	if err != nil {
		return value.Null, ierr.New(ierr.TypeMismatch, "set(): %v", err)
	}
	return value.NumOf(r), nil
}

func fnClr(stack *value.Stack) (value.Value, error) {
	bit, err := popNum(stack, "clr")
	if err != nil {
		return value.Null, err
	}
	v, err := popNum(stack, "clr")
	if err != nil {
		return value.Null, err
	}
	r, err := v.ClearBit(bit.IntValue())
	if err != nil {
		return value.Null, ierr.New(ierr.TypeMismatch, "clr(): %v", err)
	}
	return value.NumOf(r), nil
}

func fnFlip(stack *value.Stack) (value.Value, error) {
	bit, err := popNum(stack, "flip")
	if err != nil {
		return value.Null, err
	}
	v, err := popNum(stack, "flip")
	if err != nil {
		return value.Null, err
	}
	r, err := v.FlipBit(bit.IntValue())
	if err != nil {
		return value.Null, ierr.New(ierr.TypeMismatch, "flip(): %v", err)
	}
	return value.NumOf(r), nil
}

func fnMillis(_ *value.Stack) (value.Value, error) {
	return value.NumOf(numval.FromInt64(time.Now().UnixMilli())), nil
}
