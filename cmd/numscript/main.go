// Command numscript runs a script file, optionally pausing at
// breakpoints or in single-step mode for interactive inspection.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"numscript"
)

func main() {
	log.SetFlags(0)

	step := flag.Bool("step", false, "pause before every statement line")
	breakFlag := flag.String("break", "", "comma-separated line numbers to pause at")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-step] [-break 3,7,12] <script>\n", os.Args[0])
		os.Exit(2)
	}

	breakpoints, err := parseBreakpoints(*breakFlag)
	if err != nil {
		log.Fatalf("invalid -break list: %v", err)
	}

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s: %v", path, err)
	}

	hostFuncs := map[string]numscript.HostFunction{
		"print":   fnPrint,
		"println": fnPrintln,
		"reverse": fnReverse,
	}

	d := newDebugger(*step, breakpoints)
	defer d.close()

	result, err := numscript.Run(string(data), hostFuncs, d.observe)
	if err != nil {
		if d.quit {
			fmt.Fprintln(os.Stderr, "stopped")
			os.Exit(1)
		}
		log.Fatalf("%v", err)
	}
	if !result.IsNull() {
		fmt.Println(result.String())
	}
}

func parseBreakpoints(spec string) (map[int]bool, error) {
	bp := map[int]bool{}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return bp, nil
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		bp[n] = true
	}
	return bp, nil
}

func fnPrint(stack *numscript.Stack) (numscript.Value, error) {
	v, _ := stack.Pop()
	fmt.Print(v.String())
	return numscript.Null, nil
}

func fnPrintln(stack *numscript.Stack) (numscript.Value, error) {
	v, _ := stack.Pop()
	fmt.Println(v.String())
	return numscript.Null, nil
}

func fnReverse(stack *numscript.Stack) (numscript.Value, error) {
	v, _ := stack.Pop()
	s := v.String()
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return numscript.StrOf(string(runes)), nil
}

// debugger implements numscript.LineObserver, pausing into an interactive
// liner shell on a breakpoint line or while single-stepping.
type debugger struct {
	stepping    bool
	breakpoints map[int]bool
	line        *liner.State
	quit        bool
}

func newDebugger(stepping bool, breakpoints map[int]bool) *debugger {
	d := &debugger{stepping: stepping, breakpoints: breakpoints}
	if stepping || len(breakpoints) > 0 {
		d.line = liner.NewLiner()
		d.line.SetCtrlCAborts(true)
	}
	return d
}

func (d *debugger) close() {
	if d.line != nil {
		d.line.Close()
	}
}

func (d *debugger) observe(lineNum int, env map[string]numscript.Value) error {
	if lineNum == 0 || d.line == nil {
		return nil
	}
	if !d.stepping && !d.breakpoints[lineNum] {
		return nil
	}
	return d.shell(lineNum, env)
}

func (d *debugger) shell(lineNum int, env map[string]numscript.Value) error {
	fmt.Printf("-- line %d --\n", lineNum)
	for {
		input, err := d.line.Prompt("(numscript) ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			d.quit = true
			return numscript.ErrStopped
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		d.line.AppendHistory(input)

		fields := strings.Fields(input)
		switch fields[0] {
		case "c", "continue":
			d.stepping = false
			return nil
		case "s", "step":
			d.stepping = true
			return nil
		case "p", "print":
			if len(fields) < 2 {
				fmt.Println("usage: print <name>")
				continue
			}
			v, ok := env[fields[1]]
			if !ok {
				fmt.Println("null")
				continue
			}
			fmt.Println(v.String())
		case "vars":
			printVars(env)
		case "q", "quit":
			d.quit = true
			return numscript.ErrStopped
		default:
			fmt.Println("commands: continue|c, step|s, print|p <name>, vars, quit|q")
		}
	}
}

func printVars(env map[string]numscript.Value) {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s = %s\n", name, env[name].String())
	}
}
