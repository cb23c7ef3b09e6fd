package feel

import (
	"fmt"

	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
)

// Scope binds names to values for one evaluation.
type Scope = map[string]any

// Node is a parsed FEEL expression. Nodes are immutable and safe for concurrent use.
type Node interface {
	Eval(scope Scope) (any, error)
}

func evalErrorf(format string, a ...any) error {
	return dmnerr.New(dmnerr.FEELEvaluation, format, a...)
}

type Literal struct {
	Value any
}

func (n *Literal) Eval(Scope) (any, error) {
	return n.Value, nil
}

type Name struct {
	Name string
}

func (n *Name) Eval(scope Scope) (any, error) {
	v, ok := scope[n.Name]
	if !ok {
		return nil, evalErrorf("undefined variable '%s'", n.Name)
	}
	return Normalize(v), nil
}

// Path is dotted navigation a.b.c starting from a scope variable.
type Path struct {
	Root     string
	Segments []string
}

func (n *Path) Eval(scope Scope) (any, error) {
	var current any = scope[n.Root]
	for _, segment := range n.Segments {
		current = navigate(current, segment)
	}
	return Normalize(current), nil
}

type LetBinding struct {
	Name string
	Expr Node
}

// Let evaluates every binding against the enclosing scope, so bindings do not see
// each other, then evaluates Body against a copy of the scope extended with them.
type Let struct {
	Bindings []LetBinding
	Body     Node
}

func (n *Let) Eval(scope Scope) (any, error) {
	values := make([]any, len(n.Bindings))
	for i, b := range n.Bindings {
		v, err := b.Expr.Eval(scope)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	extended := make(Scope, len(scope)+len(n.Bindings))
	for k, v := range scope {
		extended[k] = v
	}
	for i, b := range n.Bindings {
		extended[b.Name] = values[i]
	}
	return n.Body.Eval(extended)
}

type If struct {
	Cond Node
	Then Node
	Else Node // nil when the expression has no else branch
}

func (n *If) Eval(scope Scope) (any, error) {
	c, err := n.Cond.Eval(scope)
	if err != nil {
		return nil, err
	}
	cond, err := asCondition(c, "if condition")
	if err != nil {
		return nil, err
	}
	if cond {
		return n.Then.Eval(scope)
	}
	if n.Else == nil {
		return nil, nil
	}
	return n.Else.Eval(scope)
}

func asCondition(v any, what string) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	}
	return false, evalErrorf("%s must be boolean, got %s", what, TypeName(v))
}

// Call invokes a scope callable or builtin and then follows Chain as dotted navigation.
type Call struct {
	Name  string
	Args  []Node
	Chain []string
}

func (n *Call) Eval(scope Scope) (any, error) {
	fn, err := resolveFunction(n.Name, scope)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := a.Eval(scope)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	result, err := fn.Call(args)
	if err != nil {
		if dmnerr.KindOf(err) == 0 {
			return nil, dmnerr.Wrap(dmnerr.FEELEvaluation, err, "%s()", n.Name)
		}
		return nil, err
	}
	for _, segment := range n.Chain {
		result = navigate(result, segment)
	}
	return Normalize(result), nil
}

func resolveFunction(name string, scope Scope) (Function, error) {
	if v, ok := scope[name]; ok {
		if fn, ok := asFunction(v); ok {
			return fn, nil
		}
	}
	if b, ok := builtins[name]; ok {
		return b, nil
	}
	return nil, evalErrorf("undefined function '%s'", name)
}

type Or struct {
	Operands []Node
}

func (n *Or) Eval(scope Scope) (any, error) {
	for _, o := range n.Operands {
		v, err := o.Eval(scope)
		if err != nil {
			return nil, err
		}
		b, err := asCondition(v, "operand of or")
		if err != nil {
			return nil, err
		}
		if b {
			return true, nil
		}
	}
	return false, nil
}

type And struct {
	Operands []Node
}

func (n *And) Eval(scope Scope) (any, error) {
	for _, o := range n.Operands {
		v, err := o.Eval(scope)
		if err != nil {
			return nil, err
		}
		b, err := asCondition(v, "operand of and")
		if err != nil {
			return nil, err
		}
		if !b {
			return false, nil
		}
	}
	return true, nil
}

type Compare struct {
	Op    string
	Left  Node
	Right Node
}

func (n *Compare) Eval(scope Scope) (any, error) {
	l, err := n.Left.Eval(scope)
	if err != nil {
		return nil, err
	}
	r, err := n.Right.Eval(scope)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "=":
		return Equal(l, r), nil
	case "!=":
		return !Equal(l, r), nil
	}
	c, err := compare(l, r)
	if err != nil {
		return nil, evalErrorf("%s: %v", n.Op, err)
	}
	switch n.Op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return nil, evalErrorf("unknown comparison operator %s", n.Op)
}

type Arithmetic struct {
	Op    string
	Left  Node
	Right Node
}

func (n *Arithmetic) Eval(scope Scope) (any, error) {
	l, err := n.Left.Eval(scope)
	if err != nil {
		return nil, err
	}
	r, err := n.Right.Eval(scope)
	if err != nil {
		return nil, err
	}
	v, err := arithmetic(n.Op, l, r)
	if err != nil {
		return nil, evalErrorf("%v", err)
	}
	return v, nil
}

// In is list membership: Value in List.
type In struct {
	Value Node
	List  Node
}

func (n *In) Eval(scope Scope) (any, error) {
	v, err := n.Value.Eval(scope)
	if err != nil {
		return nil, err
	}
	l, err := n.List.Eval(scope)
	if err != nil {
		return nil, err
	}
	list, ok := Normalize(l).([]any)
	if !ok {
		return nil, evalErrorf("right side of 'in' must be a list, got %s", TypeName(l))
	}
	for _, item := range list {
		if Equal(v, item) {
			return true, nil
		}
	}
	return false, nil
}

type Not struct {
	Operand Node
}

func (n *Not) Eval(scope Scope) (any, error) {
	v, err := n.Operand.Eval(scope)
	if err != nil {
		return nil, err
	}
	b, ok := v.(bool)
	if !ok {
		return nil, evalErrorf("not expects a boolean, got %s", TypeName(v))
	}
	return !b, nil
}

type Negate struct {
	Operand Node
}

func (n *Negate) Eval(scope Scope) (any, error) {
	v, err := n.Operand.Eval(scope)
	if err != nil {
		return nil, err
	}
	i, f, isInt, ok := number(v)
	if !ok {
		return nil, evalErrorf("cannot negate %s", TypeName(v))
	}
	if isInt {
		return -i, nil
	}
	return -f, nil
}

type List struct {
	Items []Node
}

func (n *List) Eval(scope Scope) (any, error) {
	out := make([]any, len(n.Items))
	for i, item := range n.Items {
		v, err := item.Eval(scope)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type ContextEntry struct {
	Key   string
	Value Node
}

type Context struct {
	Entries []ContextEntry
}

func (n *Context) Eval(scope Scope) (any, error) {
	out := make(map[string]any, len(n.Entries))
	for _, e := range n.Entries {
		v, err := e.Value.Eval(scope)
		if err != nil {
			return nil, fmt.Errorf("context entry %s: %w", e.Key, err)
		}
		out[e.Key] = v
	}
	return out, nil
}
