// Package numval implements the unified arbitrary-precision numeric value
// (NumVal) used throughout the interpreter: an integer or a decimal payload
// that auto-promotes integer to decimal whenever the two are mixed.
package numval

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// ctx mirrors java.math.MathContext.DECIMAL128: 34 significant digits,
// round-half-up.
var ctx = apd.BaseContext.WithPrecision(34)

func init() {
	ctx.Rounding = apd.RoundHalfUp
}

// One is the increment/decrement delta used by pre/post ++/--.
var One = FromInt64(1)

// NumVal is either an arbitrary-precision integer or an arbitrary-precision
// decimal. Exactly one of i/d is non-nil.
type NumVal struct {
	i *big.Int
	d *apd.Decimal
}

// FromInt64 builds an integer NumVal.
func FromInt64(v int64) NumVal {
	return NumVal{i: big.NewInt(v)}
}

// FromBigInt builds an integer NumVal from an existing big.Int.
func FromBigInt(v *big.Int) NumVal {
	return NumVal{i: v}
}

// FromDecimal builds a decimal NumVal from an existing apd.Decimal.
func FromDecimal(v *apd.Decimal) NumVal {
	return NumVal{d: v}
}

// Parse constructs a NumVal from its source text: a "." makes it a decimal,
// a "0x"/"0X" prefix makes it a hex integer, otherwise it is a base-10
// integer.
func Parse(lit string) (NumVal, error) {
	if strings.Contains(lit, ".") {
		d, _, err := apd.NewFromString(lit)
		if err != nil {
			return NumVal{}, fmt.Errorf("invalid decimal literal %q: %w", lit, err)
		}
		return NumVal{d: d}, nil
	}
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
		i, ok := new(big.Int).SetString(lit[2:], 16)
		if !ok {
			return NumVal{}, fmt.Errorf("invalid hex literal %q", lit)
		}
		return NumVal{i: i}, nil
	}
	i, ok := new(big.Int).SetString(lit, 10)
	if !ok {
		return NumVal{}, fmt.Errorf("invalid integer literal %q", lit)
	}
	return NumVal{i: i}, nil
}

// IsInt reports whether the value carries an integer payload.
func (n NumVal) IsInt() bool { return n.i != nil }

// IsDec reports whether the value carries a decimal payload.
func (n NumVal) IsDec() bool { return n.d != nil }

// Int returns the integer payload; only valid when IsInt is true.
func (n NumVal) Int() *big.Int { return n.i }

// Dec returns the decimal payload; only valid when IsDec is true.
func (n NumVal) Dec() *apd.Decimal { return n.d }

// IntValue truncates the value to a Go int, as java.lang.Number.intValue()
// does: used for indices, bit numbers, shift counts and radices.
func (n NumVal) IntValue() int {
	if n.i != nil {
		return int(n.i.Int64())
	}
	down := *ctx
	down.Rounding = apd.RoundDown
	whole := new(apd.Decimal)
	if _, err := down.Quantize(whole, n.d, 0); err != nil {
		return 0
	}
	i, _ := whole.Int64()
	return int(i)
}

func (n NumVal) String() string {
	if n.i != nil {
		return n.i.String()
	}
	return n.d.Text('f')
}

func (n NumVal) toDecimal() *apd.Decimal {
	if n.d != nil {
		return n.d
	}
	d := new(apd.Decimal)
	d.Coeff.SetMathBigInt(n.i)
	d.Coeff.Abs(&d.Coeff)
	d.Negative = n.i.Sign() < 0
	return d
}

// binaryDec runs a decimal-context operation, promoting both operands.
func binaryDec(op func(res, a, b *apd.Decimal) (apd.Condition, error), a, b NumVal) NumVal {
	res := new(apd.Decimal)
	if _, err := op(res, a.toDecimal(), b.toDecimal()); err != nil {
		panic(err) // apd context ops only fail on malformed contexts, never on values here
	}
	return NumVal{d: res}
}

// Add returns a+b, promoting to decimal if either operand is decimal.
func (a NumVal) Add(b NumVal) NumVal {
	if a.i != nil && b.i != nil {
		return NumVal{i: new(big.Int).Add(a.i, b.i)}
	}
	return binaryDec(ctx.Add, a, b)
}

// Subtract returns a-b.
func (a NumVal) Subtract(b NumVal) NumVal {
	if a.i != nil && b.i != nil {
		return NumVal{i: new(big.Int).Sub(a.i, b.i)}
	}
	return binaryDec(ctx.Sub, a, b)
}

// Multiply returns a*b.
func (a NumVal) Multiply(b NumVal) NumVal {
	if a.i != nil && b.i != nil {
		return NumVal{i: new(big.Int).Mul(a.i, b.i)}
	}
	return binaryDec(ctx.Mul, a, b)
}

// Divide returns a/b. Integer÷integer truncates toward zero and stays
// integer; any decimal operand yields a 34-digit-precision decimal result.
func (a NumVal) Divide(b NumVal) (NumVal, error) {
	if a.i != nil && b.i != nil {
		if b.i.Sign() == 0 {
			return NumVal{}, fmt.Errorf("division by zero")
		}
		return NumVal{i: new(big.Int).Quo(a.i, b.i)}, nil
	}
	res := new(apd.Decimal)
	if _, err := ctx.Quo(res, a.toDecimal(), b.toDecimal()); err != nil {
		return NumVal{}, err
	}
	return NumVal{d: res}, nil
}

// Min returns the lesser of a and b, keeping decimal-ness if either operand
// is decimal.
func (a NumVal) Min(b NumVal) NumVal {
	r := b
	if a.Compare(b) <= 0 {
		r = a
	}
	if a.d != nil || b.d != nil {
		return NumVal{d: r.toDecimal()}
	}
	return r
}

// Max returns the greater of a and b.
func (a NumVal) Max(b NumVal) NumVal {
	if a.Compare(b) >= 0 {
		return a
	}
	return b
}

// Mod requires both operands integer; the result follows math/big's
// Euclidean modulus (always non-negative for a positive divisor), matching
// java.math.BigInteger.mod().
func (a NumVal) Mod(b NumVal) (NumVal, error) {
	if a.i == nil || b.i == nil {
		return NumVal{}, fmt.Errorf("%w: mod requires integer operands", ErrTypeMismatch)
	}
	if b.i.Sign() == 0 {
		return NumVal{}, fmt.Errorf("division by zero")
	}
	return NumVal{i: new(big.Int).Mod(a.i, b.i)}, nil
}

// And requires both operands integer.
func (a NumVal) And(b NumVal) (NumVal, error) {
	if a.i == nil || b.i == nil {
		return NumVal{}, fmt.Errorf("%w: and requires integer operands", ErrTypeMismatch)
	}
	return NumVal{i: new(big.Int).And(a.i, b.i)}, nil
}

// Or requires both operands integer.
func (a NumVal) Or(b NumVal) (NumVal, error) {
	if a.i == nil || b.i == nil {
		return NumVal{}, fmt.Errorf("%w: or requires integer operands", ErrTypeMismatch)
	}
	return NumVal{i: new(big.Int).Or(a.i, b.i)}, nil
}

// Xor requires both operands integer.
func (a NumVal) Xor(b NumVal) (NumVal, error) {
	if a.i == nil || b.i == nil {
		return NumVal{}, fmt.Errorf("%w: xor requires integer operands", ErrTypeMismatch)
	}
	return NumVal{i: new(big.Int).Xor(a.i, b.i)}, nil
}

// Not requires an integer operand.
func (a NumVal) Not() (NumVal, error) {
	if a.i == nil {
		return NumVal{}, fmt.Errorf("%w: not requires an integer operand", ErrTypeMismatch)
	}
	return NumVal{i: new(big.Int).Not(a.i)}, nil
}

// ShiftLeft is the signed left shift (<<).
func (a NumVal) ShiftLeft(b NumVal) (NumVal, error) {
	if a.i == nil || b.i == nil {
		return NumVal{}, fmt.Errorf("%w: << requires integer operands", ErrTypeMismatch)
	}
	return NumVal{i: new(big.Int).Lsh(a.i, uint(b.IntValue()))}, nil
}

// ShiftRightSigned is the signed right shift (>>), matching
// java.math.BigInteger.shiftRight: an arithmetic (sign-extending, floor-
// dividing) shift, not truncate-toward-zero division.
func (a NumVal) ShiftRightSigned(b NumVal) (NumVal, error) {
	if a.i == nil || b.i == nil {
		return NumVal{}, fmt.Errorf("%w: >> requires integer operands", ErrTypeMismatch)
	}
	return NumVal{i: new(big.Int).Rsh(a.i, uint(b.IntValue()))}, nil
}

// ShiftRightUnsigned is the ">>>" operator. In this dialect it behaves
// identically to the arithmetic right shift (known quirk, see spec §9),
// matching the reference implementation's use of BigInteger.shiftRight,
// which is arithmetic (sign-extending), not a true unsigned shift.
func (a NumVal) ShiftRightUnsigned(b NumVal) (NumVal, error) {
	if a.i == nil || b.i == nil {
		return NumVal{}, fmt.Errorf("%w: >>> requires integer operands", ErrTypeMismatch)
	}
	return NumVal{i: new(big.Int).Rsh(a.i, uint(b.IntValue()))}, nil
}

// Pow raises a to an integer power p. The result is decimal iff a is
// decimal.
func (a NumVal) Pow(p NumVal) (NumVal, error) {
	if p.i == nil {
		return NumVal{}, fmt.Errorf("%w: pow() exponent must be an integer", ErrTypeMismatch)
	}
	exp := p.IntValue()
	if exp < 0 {
		return NumVal{}, fmt.Errorf("%w: pow() exponent must not be negative", ErrTypeMismatch)
	}
	if a.i != nil {
		return NumVal{i: new(big.Int).Exp(a.i, big.NewInt(int64(exp)), nil)}, nil
	}
	res := new(apd.Decimal)
	if _, err := ctx.Pow(res, a.d, toDecimalInt(exp)); err != nil {
		return NumVal{}, err
	}
	return NumVal{d: res}, nil
}

func toDecimalInt(v int) *apd.Decimal {
	d := new(apd.Decimal)
	d.Coeff.SetInt64(int64(v))
	if v < 0 {
		d.Negative = true
		d.Coeff.Abs(&d.Coeff)
	}
	return d
}

// Abs returns the absolute value.
func (a NumVal) Abs() NumVal {
	if a.i != nil {
		return NumVal{i: new(big.Int).Abs(a.i)}
	}
	d := new(apd.Decimal)
	d.Abs(a.d)
	return NumVal{d: d}
}

// Compare is scale-invariant between decimals (2.000 compares equal to 2.0
// and to the integer 2) and numeric-correct across the integer/decimal
// divide.
func (a NumVal) Compare(b NumVal) int {
	if a.i != nil && b.i != nil {
		return a.i.Cmp(b.i)
	}
	res := new(apd.Decimal)
	if _, err := ctx.Cmp(res, a.toDecimal(), b.toDecimal()); err != nil {
		panic(err) // comparison context ops never fail on already-valid decimals
	}
	c, _ := res.Int64()
	return int(c)
}

// Bit tests bit b of an integer value (0-indexed from the least significant
// bit), matching java.math.BigInteger.testBit's two's-complement semantics.
func (a NumVal) Bit(b int) (bool, error) {
	if a.i == nil {
		return false, fmt.Errorf("%w: bit() requires an integer", ErrTypeMismatch)
	}
	return twosComplementBit(a.i, b), nil
}

// SetBit returns a copy of a with bit b set.
func (a NumVal) SetBit(b int) (NumVal, error) {
	if a.i == nil {
		return NumVal{}, fmt.Errorf("%w: set() requires an integer", ErrTypeMismatch)
	}
	return NumVal{i: withTwosComplementBit(a.i, b, true)}, nil
}

// ClearBit returns a copy of a with bit b cleared.
func (a NumVal) ClearBit(b int) (NumVal, error) {
	if a.i == nil {
		return NumVal{}, fmt.Errorf("%w: clr() requires an integer", ErrTypeMismatch)
	}
	return NumVal{i: withTwosComplementBit(a.i, b, false)}, nil
}

// FlipBit returns a copy of a with bit b toggled.
func (a NumVal) FlipBit(b int) (NumVal, error) {
	if a.i == nil {
		return NumVal{}, fmt.Errorf("%w: flip() requires an integer", ErrTypeMismatch)
	}
	cur := twosComplementBit(a.i, b)
	return NumVal{i: withTwosComplementBit(a.i, b, !cur)}, nil
}

// Radix renders an integer value in uppercase base r, matching
// java.math.BigInteger.toString(radix).toUpperCase().
func (a NumVal) Radix(r int) (string, error) {
	if a.i == nil {
		return "", fmt.Errorf("%w: radix() requires an integer", ErrTypeMismatch)
	}
	return strings.ToUpper(a.i.Text(r)), nil
}

// Trunc implements trunc(v, n): n==0 floors to an Int, n>0 rounds
// half-up to n decimal places and stays Dec.
func (a NumVal) Trunc(places int) (NumVal, error) {
	if a.d == nil {
		return NumVal{}, fmt.Errorf("%w: trunc() requires a decimal value", ErrTypeMismatch)
	}
	if places == 0 {
		floor := *ctx
		floor.Rounding = apd.RoundFloor
		whole := new(apd.Decimal)
		if _, err := floor.Quantize(whole, a.d, 0); err != nil {
			return NumVal{}, err
		}
		i, ok := new(big.Int).SetString(whole.Text('f'), 10)
		if !ok {
			return NumVal{}, fmt.Errorf("trunc(): cannot convert %s to an integer", whole.Text('f'))
		}
		return NumVal{i: i}, nil
	}
	if places < 0 {
		return NumVal{}, fmt.Errorf("%w: trunc() requires a non-negative place count", ErrTypeMismatch)
	}
	res := new(apd.Decimal)
	if _, err := ctx.Quantize(res, a.d, -int32(places)); err != nil {
		return NumVal{}, err
	}
	return NumVal{d: res}, nil
}

// twosComplementBit tests bit b of the two's-complement representation of
// v, matching BigInteger.testBit (b must be >= 0). For v < 0, bit b of v
// equals NOT(bit b of (-v-1)), since -v-1 == ^v in infinite-precision
// two's complement.
func twosComplementBit(v *big.Int, b int) bool {
	if v.Sign() >= 0 {
		return v.Bit(b) == 1
	}
	t := new(big.Int).Neg(v)
	t.Sub(t, big.NewInt(1))
	return t.Bit(b) == 0
}

// withTwosComplementBit returns a copy of v with two's-complement bit b set
// to the given value.
func withTwosComplementBit(v *big.Int, b int, set bool) *big.Int {
	if v.Sign() >= 0 {
		res := new(big.Int).Set(v)
		bit := uint(0)
		if set {
			bit = 1
		}
		res.SetBit(res, b, bit)
		return res
	}
	t := new(big.Int).Neg(v)
	t.Sub(t, big.NewInt(1))
	bit := uint(1)
	if set {
		bit = 0
	}
	t.SetBit(t, b, bit)
	res := new(big.Int).Add(t, big.NewInt(1))
	res.Neg(res)
	return res
}

// ErrTypeMismatch is wrapped into errors raised by operations that require
// integer operands but received a decimal.
var ErrTypeMismatch = fmt.Errorf("type mismatch")
