package script

import (
	"strings"
	"time"
	"unicode"

	"numscript/internal/ierr"
	"numscript/internal/lexer"
	"numscript/internal/parser"
	"numscript/internal/postfix"
	"numscript/internal/value"
)

// lineCheckSleep is the yield the reference interpreter takes after every
// line check (10000ns via Thread.sleep(0, 10000)), so a script's own
// infinite loop can't starve a host control thread that shares the runtime
// with the interpreter.
const lineCheckSleep = 10000 * time.Nanosecond

// Observer is invoked once per executed statement line (and once more with
// lineNum 0 at the end of every node-list walk that reaches its last node,
// including nested blocks, loop bodies and function calls; a walk ended
// early by a return line makes no lineNum 0 call). Returning a non-nil error — typically
// an *ierr.Error of kind Stopped — aborts the run.
type Observer func(lineNum int, env map[string]value.Value) error

// Runner walks a preprocessed node tree against a merged function table
// (host-supplied functions plus script-declared ones, sharing one
// namespace exactly as the reference implementation's single funcs map
// does) and an observer.
type Runner struct {
	funcs    map[string]value.HostFunction
	observer Observer
}

// NewRunner builds a Runner. hostFuncs is copied, never mutated in place,
// so the caller's map is safe to reuse across runs.
func NewRunner(hostFuncs map[string]value.HostFunction, observer Observer) *Runner {
	funcs := make(map[string]value.HostFunction, len(hostFuncs))
	for name, fn := range hostFuncs {
		funcs[strings.ToLower(name)] = fn
	}
	return &Runner{funcs: funcs, observer: observer}
}

// Run preprocesses and executes script, returning whatever the top-level
// node list's return value is (Null if it never hit a return line).
func (r *Runner) Run(script string) (value.Value, error) {
	nodes := Preprocess(script)
	env := value.NewEnvironment()
	rv, _, err := r.evalList(nodes, env)
	return rv, err
}

func (r *Runner) callObserver(lineNum int, env *value.Environment) error {
	if r.observer == nil {
		time.Sleep(lineCheckSleep)
		return nil
	}
	if err := r.observer(lineNum, env.Snapshot()); err != nil {
		return err
	}
	time.Sleep(lineCheckSleep)
	return nil
}

func (r *Runner) evalExprLine(text string, env *value.Environment) (value.Value, error) {
	toks, err := lexer.Lex(text)
	if err != nil {
		return value.Null, err
	}
	pf, err := parser.Parse(toks)
	if err != nil {
		return value.Null, err
	}
	return postfix.Eval(pf, env, r.funcs)
}

// splitKeyword splits a trimmed statement line into its leading whitespace-
// delimited keyword and the remainder, trimmed. Unlike the reference
// interpreter's raw startsWith("if") checks (which also match an identifier
// like "iffy"), this requires an actual word boundary — a deliberate,
// more robust reading of spec's "classify the line by its first keyword."
func splitKeyword(line string) (keyword, rest string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexFunc(line, unicode.IsSpace)
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx:])
}

// evalList walks one sibling list (the top-level program, a function body,
// or any block's children), returning the return value and whether a
// `return` line (at this level or bubbled up from a nested block) fired.
func (r *Runner) evalList(nodes []*Node, env *value.Environment) (value.Value, bool, error) {
	for i := 0; i < len(nodes); i++ {
		node := nodes[i]
		if err := r.callObserver(node.LineNum, env); err != nil {
			return value.Null, false, err
		}

		if node.Kind == BlockNode {
			rv, ret, err := r.evalList(node.Children, env)
			if err != nil {
				return value.Null, false, err
			}
			if ret {
				return rv, true, nil
			}
			continue
		}

		keyword, rest := splitKeyword(node.Text)
		switch keyword {
		case "if":
			newI, rv, ret, err := r.evalIfChain(nodes, i, rest, env)
			i = newI
			if err != nil {
				return value.Null, false, err
			}
			if ret {
				return rv, true, nil
			}

		case "while":
			rv, ret, err := r.evalWhile(nodes, &i, rest, env)
			if err != nil {
				return value.Null, false, err
			}
			if ret {
				return rv, true, nil
			}

		case "for":
			rv, ret, err := r.evalForLoop(nodes, &i, rest, env)
			if err != nil {
				return value.Null, false, err
			}
			if ret {
				return rv, true, nil
			}

		case "function":
			if err := r.evalFunctionDecl(nodes, &i, rest); err != nil {
				return value.Null, false, err
			}

		case "return":
			v, err := r.evalExprLine(rest, env)
			if err != nil {
				return value.Null, false, err
			}
			return v, true, nil

		case "end":
			// syntactic sugar only

		default:
			if _, err := r.evalExprLine(node.Text, env); err != nil {
				return value.Null, false, err
			}
		}
	}

	if err := r.callObserver(0, env); err != nil {
		return value.Null, false, err
	}
	return value.Null, false, nil
}

// evalBranchBlock evaluates block against a copy of env, reconciling
// mutations back into env afterward regardless of outcome (spec §5's
// block-propagation policy).
func (r *Runner) evalBranchBlock(block *Node, env *value.Environment) (value.Value, bool, error) {
	clone := env.Clone()
	defer env.MergeBack(clone)
	return r.evalList(block.Children, clone)
}

// evalIfChain handles an if line together with any following elif/else
// siblings, returning the index of the last sibling it consumed so the
// caller's loop resumes just past the whole chain.
func (r *Runner) evalIfChain(nodes []*Node, i int, condText string, env *value.Environment) (int, value.Value, bool, error) {
	if i+1 >= len(nodes) || nodes[i+1].Kind != BlockNode {
		return i, value.Null, false, ierr.New(ierr.SyntaxError, "if() missing body").WithExpr(condText)
	}
	block := nodes[i+1]
	i++

	cond, err := r.evalExprLine(condText, env)
	if err != nil {
		return i, value.Null, false, err
	}
	taken, ok := cond.AsBool()
	if !ok {
		return i, value.Null, false, ierr.New(ierr.TypeError, "if() expression not boolean").WithExpr(condText)
	}
	if taken {
		rv, ret, err := r.evalBranchBlock(block, env)
		if err != nil {
			return i, value.Null, false, err
		}
		if ret {
			return i, rv, true, nil
		}
	}

	for i+1 < len(nodes) && nodes[i+1].Kind == LineNode && startsWithKeyword(nodes[i+1].Text, "elif") {
		elifLine := nodes[i+1]
		if err := r.callObserver(elifLine.LineNum, env); err != nil {
			return i, value.Null, false, err
		}
		_, exprText := splitKeyword(elifLine.Text)
		i++
		if i+1 >= len(nodes) || nodes[i+1].Kind != BlockNode {
			return i, value.Null, false, ierr.New(ierr.SyntaxError, "elif() missing body").WithExpr(exprText)
		}
		elifBlock := nodes[i+1]
		i++

		if !taken {
			cond, err := r.evalExprLine(exprText, env)
			if err != nil {
				return i, value.Null, false, err
			}
			b, ok := cond.AsBool()
			if !ok {
				return i, value.Null, false, ierr.New(ierr.TypeError, "elif() expression not boolean").WithExpr(exprText)
			}
			if b {
				taken = true
				rv, ret, err := r.evalBranchBlock(elifBlock, env)
				if err != nil {
					return i, value.Null, false, err
				}
				if ret {
					return i, rv, true, nil
				}
			}
		}
	}

	if i+1 < len(nodes) && nodes[i+1].Kind == LineNode && startsWithKeyword(nodes[i+1].Text, "else") {
		elseLine := nodes[i+1]
		if err := r.callObserver(elseLine.LineNum, env); err != nil {
			return i, value.Null, false, err
		}
		i++
		if i+1 >= len(nodes) || nodes[i+1].Kind != BlockNode {
			return i, value.Null, false, ierr.New(ierr.SyntaxError, "else() missing body")
		}
		elseBlock := nodes[i+1]
		i++

		if !taken {
			rv, ret, err := r.evalBranchBlock(elseBlock, env)
			if err != nil {
				return i, value.Null, false, err
			}
			if ret {
				return i, rv, true, nil
			}
		}
	}

	return i, value.Null, false, nil
}

func startsWithKeyword(line, kw string) bool {
	k, _ := splitKeyword(line)
	return k == kw
}

// evalWhile consumes the block sibling following a while line and runs it
// against one shared environment copy for the loop's full lifetime,
// reconciling back into env only once the loop exits.
func (r *Runner) evalWhile(nodes []*Node, i *int, condText string, env *value.Environment) (value.Value, bool, error) {
	if *i+1 >= len(nodes) || nodes[*i+1].Kind != BlockNode {
		return value.Null, false, ierr.New(ierr.SyntaxError, "while() missing body").WithExpr(condText)
	}
	block := nodes[*i+1]
	*i++

	clone := env.Clone()
	defer env.MergeBack(clone)

	for {
		cond, err := r.evalExprLine(condText, clone)
		if err != nil {
			return value.Null, false, err
		}
		b, ok := cond.AsBool()
		if !ok {
			return value.Null, false, ierr.New(ierr.TypeError, "while() expression not boolean").WithExpr(condText)
		}
		if !b {
			return value.Null, false, nil
		}
		rv, ret, err := r.evalList(block.Children, clone)
		if err != nil {
			return value.Null, false, err
		}
		if ret {
			return rv, true, nil
		}
	}
}

// evalForLoop parses "for (init; cond; step)" (the surrounding parens are
// optional and stripped) and runs it the same way evalWhile does: one
// shared environment copy for the whole loop.
func (r *Runner) evalForLoop(nodes []*Node, i *int, rest string, env *value.Environment) (value.Value, bool, error) {
	if *i+1 >= len(nodes) || nodes[*i+1].Kind != BlockNode {
		return value.Null, false, ierr.New(ierr.SyntaxError, "for() missing body").WithExpr(rest)
	}
	block := nodes[*i+1]
	*i++

	expr := strings.TrimSpace(rest)
	for strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	parts := strings.Split(expr, ";")
	if len(parts) != 3 {
		return value.Null, false, ierr.New(ierr.SyntaxError, "for() missing needed subexpression").WithExpr(rest)
	}
	initExpr := strings.TrimSpace(parts[0])
	condExpr := strings.TrimSpace(parts[1])
	stepExpr := strings.TrimSpace(parts[2])

	clone := env.Clone()
	defer env.MergeBack(clone)

	if _, err := r.evalExprLine(initExpr, clone); err != nil {
		return value.Null, false, err
	}
	for {
		cond, err := r.evalExprLine(condExpr, clone)
		if err != nil {
			return value.Null, false, err
		}
		b, ok := cond.AsBool()
		if !ok {
			return value.Null, false, ierr.New(ierr.TypeError, "for() expression not boolean").WithExpr(condExpr)
		}
		if !b {
			return value.Null, false, nil
		}
		rv, ret, err := r.evalList(block.Children, clone)
		if err != nil {
			return value.Null, false, err
		}
		if ret {
			return rv, true, nil
		}
		if _, err := r.evalExprLine(stepExpr, clone); err != nil {
			return value.Null, false, err
		}
	}
}

// evalFunctionDecl registers name -> HostFunction in r.funcs, the same
// shared namespace host functions live in (a script declaration can shadow
// a host-supplied function of the same name, matching the reference
// implementation's single funcs map).
func (r *Runner) evalFunctionDecl(nodes []*Node, i *int, rest string) error {
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return ierr.New(ierr.SyntaxError, "error defining function: %s", rest)
	}
	name := strings.TrimSpace(rest[:open])
	closeIdx := strings.LastIndexByte(rest, ')')
	if closeIdx < open || name == "" {
		return ierr.New(ierr.SyntaxError, "error defining function: %s", rest)
	}

	var params []string
	for _, p := range strings.Split(rest[open+1:closeIdx], ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			params = append(params, p)
		}
	}

	if *i+1 >= len(nodes) || nodes[*i+1].Kind != BlockNode {
		return ierr.New(ierr.SyntaxError, "error defining function: %s", name)
	}
	body := nodes[*i+1].Children
	*i++

	r.funcs[strings.ToLower(name)] = r.makeUserFunction(name, params, body)
	return nil
}

func (r *Runner) makeUserFunction(name string, params []string, body []*Node) value.HostFunction {
	return func(stack *value.Stack) (value.Value, error) {
		frame := value.NewEnvironment()
		for _, p := range params {
			v, ok := stack.Pop()
			if !ok {
				return value.Null, ierr.New(ierr.InternalError, "missing argument for %s()", name)
			}
			frame.Set(p, v)
		}
		rv, _, err := r.evalList(body, frame)
		return rv, err
	}
}
