package numscript_test

import (
	"errors"
	"fmt"
	"testing"

	"numscript"
)

func run(t *testing.T, src string, hostFuncs map[string]numscript.HostFunction) numscript.Value {
	t.Helper()
	v, err := numscript.Run(src, hostFuncs, nil)
	if err != nil {
		t.Fatalf("Run(%q): %v", src, err)
	}
	return v
}

func TestWhileLoopFinalValueAndObserverRevisits(t *testing.T) {
	src := "ii = 0\nwhile ii < 3\n  ii = ii + 1\nend\nreturn ii\n"

	var lines []int
	_, err := numscript.Run(src, nil, func(lineNum int, env map[string]numscript.Value) error {
		if lineNum != 0 {
			lines = append(lines, lineNum)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	got := run(t, src, nil)
	if got.String() != "3" {
		t.Errorf("ii after loop = %s, want 3", got.String())
	}

	// The while header is observed once on entry; the loop condition itself
	// is re-evaluated silently on each pass. The body line is observed once
	// per iteration.
	counts := map[int]int{}
	for _, l := range lines {
		counts[l]++
	}
	if counts[2] != 1 {
		t.Errorf("while header (line 2) observed %d times, want 1", counts[2])
	}
	if counts[3] != 3 {
		t.Errorf("loop body (line 3) observed %d times, want 3", counts[3])
	}
}

func TestForLoopPrintsEachIteration(t *testing.T) {
	var out []string
	hostFuncs := map[string]numscript.HostFunction{
		"println": func(stack *numscript.Stack) (numscript.Value, error) {
			v, _ := stack.Pop()
			out = append(out, v.String())
			return numscript.Null, nil
		},
	}
	src := "for (ii = 0; ii < 10; ii++)\n  println(ii)\nend\n"
	run(t, src, hostFuncs)
	if len(out) != 10 {
		t.Fatalf("println called %d times, want 10", len(out))
	}
	for i, s := range out {
		if s != fmt.Sprint(i) {
			t.Errorf("out[%d] = %s, want %d", i, s, i)
		}
	}
}

func TestUserFunctionSum(t *testing.T) {
	var out string
	hostFuncs := map[string]numscript.HostFunction{
		"println": func(stack *numscript.Stack) (numscript.Value, error) {
			v, _ := stack.Pop()
			out = v.String()
			return numscript.Null, nil
		},
	}
	src := "function sum(a, b)\n  return a + b\nend\nprintln(sum(2, 3))\n"
	run(t, src, hostFuncs)
	if out != "5" {
		t.Errorf("sum(2,3) printed %s, want 5", out)
	}
}

func TestArbitraryPrecisionSumOfCubes(t *testing.T) {
	// 569936821221962380720^3 + (-569936821113563493509)^3 + (-472715493453327032)^3 == 3
	src := "a = 569936821221962380720\n" +
		"b = -569936821113563493509\n" +
		"c = -472715493453327032\n" +
		"return a*a*a + b*b*b + c*c*c\n"
	got := run(t, src, nil)
	if got.String() != "3" {
		t.Errorf("sum of cubes = %s, want 3", got.String())
	}
}

func TestBreakpointCancelStopsObserverEarly(t *testing.T) {
	src := "a = 1\nb = 2\nc = 3\nd = 4\nreturn d\n"
	var seen []int
	_, err := numscript.Run(src, nil, func(lineNum int, env map[string]numscript.Value) error {
		if lineNum != 0 {
			seen = append(seen, lineNum)
		}
		if lineNum == 2 {
			return numscript.ErrStopped
		}
		return nil
	})
	if !errors.Is(err, numscript.ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
	for _, l := range seen {
		if l > 2 {
			t.Errorf("observer saw line %d after the breakpoint fired at line 2", l)
		}
	}
}

func TestTruncAndPowMixedTypes(t *testing.T) {
	got := run(t, "return trunc(1.0/3, 2)\n", nil)
	if got.String() != "0.33" {
		t.Errorf("trunc(1.0/3, 2) = %s, want 0.33", got.String())
	}

	got = run(t, "return trunc(1.22, 0)\n", nil)
	if got.String() != "1" {
		t.Errorf("trunc(1.22, 0) = %s, want 1", got.String())
	}

	got = run(t, "return pow(3.0, 2)\n", nil)
	nine := run(t, "return 9\n", nil)
	if got.Num.Compare(nine.Num) != 0 {
		t.Errorf("pow(3.0, 2) = %s, want a value equal to 9", got.String())
	}
	if !got.Num.IsDec() {
		t.Errorf("pow(3.0, 2) kind = int, want decimal base to stay decimal")
	}

	got = run(t, "return pow(3, 2)\n", nil)
	if got.String() != "9" || !got.Num.IsInt() {
		t.Errorf("pow(3, 2) = %s, want integer 9 (stays integer)", got.String())
	}
}

func TestHostFunctionsResolveThroughPublicAPI(t *testing.T) {
	hostFuncs := map[string]numscript.HostFunction{
		"shout": func(stack *numscript.Stack) (numscript.Value, error) {
			v, _ := stack.Pop()
			return numscript.StrOf(v.String() + "!"), nil
		},
	}
	got := run(t, "return shout('hi')\n", hostFuncs)
	if got.String() != "hi!" {
		t.Errorf("shout('hi') = %s, want hi!", got.String())
	}
}
