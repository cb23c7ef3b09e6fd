package feel

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
)

var (
	numberPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	pathPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)
	chainPattern  = regexp.MustCompile(`^(\.[A-Za-z_][A-Za-z0-9_]*)+$`)
)

func syntaxErrorf(format string, a ...any) error {
	return dmnerr.New(dmnerr.FEELSyntax, format, a...)
}

// Parse normalizes whitespace in expression and classifies it into an AST.
func Parse(expression string) (Node, error) {
	return parse(normalize(expression))
}

// parse tries the grammar productions in a fixed priority order; the first
// production that accepts the text wins.
func parse(s string) (Node, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, syntaxErrorf("empty expression")
	}

	switch s {
	case "null":
		return &Literal{Value: nil}, nil
	case "true":
		return &Literal{Value: true}, nil
	case "false":
		return &Literal{Value: false}, nil
	}

	if isKeywordAt(s, 0, "let") {
		return parseLet(s)
	}
	if isKeywordAt(s, 0, "if") {
		return parseIf(s)
	}
	if node, ok, err := parseCall(s); ok {
		return node, err
	}
	if parts := splitKeyword(s, "or"); len(parts) > 1 {
		operands, err := parseAll(parts, "or")
		if err != nil {
			return nil, err
		}
		return &Or{Operands: operands}, nil
	}
	if parts := splitKeyword(s, "and"); len(parts) > 1 {
		operands, err := parseAll(parts, "and")
		if err != nil {
			return nil, err
		}
		return &And{Operands: operands}, nil
	}
	if node, ok, err := parseComparison(s); ok {
		return node, err
	}
	for _, tier := range [][]string{{"+", "-"}, {"*", "/"}, {"**"}} {
		if node, ok, err := parseArithmetic(s, tier); ok {
			return node, err
		}
	}
	if idx := indexKeyword(s, "in"); idx > 0 {
		value, err := parse(s[:idx])
		if err != nil {
			return nil, err
		}
		list, err := parse(s[idx+len("in"):])
		if err != nil {
			return nil, err
		}
		return &In{Value: value, List: list}, nil
	}
	if isKeywordAt(s, 0, "not") {
		operand, err := parse(s[len("not"):])
		if err != nil {
			return nil, err
		}
		return &Not{Operand: operand}, nil
	}
	if s[0] == '[' && matchingClose(s, 0) == len(s)-1 {
		return parseList(s)
	}
	if s[0] == '{' && matchingClose(s, 0) == len(s)-1 {
		return parseContext(s)
	}
	if (s[0] == '"' || s[0] == '\'') && closingQuote(s, 0) == len(s)-1 {
		return &Literal{Value: unquote(s)}, nil
	}
	if numberPattern.MatchString(s) {
		return parseNumber(s)
	}
	if s[0] == '-' {
		operand, err := parse(s[1:])
		if err != nil {
			return nil, err
		}
		return &Negate{Operand: operand}, nil
	}
	if s[0] == '@' && len(s) > 2 && (s[1] == '"' || s[1] == '\'') && closingQuote(s, 1) == len(s)-1 {
		d, err := ParseDate(unquote(s[1:]))
		if err != nil {
			return nil, syntaxErrorf("%v", err)
		}
		return &Literal{Value: d}, nil
	}
	if pathPattern.MatchString(s) {
		segments := strings.Split(s, ".")
		return &Path{Root: segments[0], Segments: segments[1:]}, nil
	}
	if isIdentifier(s) {
		return &Name{Name: s}, nil
	}
	if s[0] == '(' && matchingClose(s, 0) == len(s)-1 {
		return parse(s[1 : len(s)-1])
	}
	return nil, syntaxErrorf("cannot parse expression '%s'", s)
}

func parseAll(parts []string, operator string) ([]Node, error) {
	nodes := make([]Node, len(parts))
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, syntaxErrorf("missing operand for '%s'", operator)
		}
		n, err := parse(p)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

// indexKeyword returns the first top level position of the delimited word kw, or -1.
func indexKeyword(s string, kw string) int {
	found := -1
	topLevel(s, func(i int) bool {
		if isKeywordAt(s, i, kw) {
			found = i
			return false
		}
		return true
	})
	return found
}

func splitKeyword(s string, kw string) []string {
	var parts []string
	start := 0
	topLevel(s, func(i int) bool {
		if i >= start && i > 0 && isKeywordAt(s, i, kw) {
			parts = append(parts, s[start:i])
			start = i + len(kw)
		}
		return true
	})
	return append(parts, s[start:])
}

func parseLet(s string) (Node, error) {
	in := indexKeyword(s, "in")
	if in < 0 {
		return nil, syntaxErrorf("let without 'in': '%s'", s)
	}
	body, err := parse(s[in+len("in"):])
	if err != nil {
		return nil, err
	}
	var bindings []LetBinding
	for _, b := range splitTopLevel(s[len("let"):in], ",") {
		eq := indexTopLevel(b, "=", 0)
		if eq < 0 {
			return nil, syntaxErrorf("invalid let binding '%s'", strings.TrimSpace(b))
		}
		name := strings.TrimSpace(b[:eq])
		if !isIdentifier(name) {
			return nil, syntaxErrorf("invalid let binding name '%s'", name)
		}
		expr, err := parse(b[eq+1:])
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, LetBinding{Name: name, Expr: expr})
	}
	return &Let{Bindings: bindings, Body: body}, nil
}

// parseIf locates 'then' and 'else' of the outermost conditional. Nested ifs open a
// level that their own 'else' closes, so only a depth zero 'else' ends the then branch.
func parseIf(s string) (Node, error) {
	thenIdx, elseIdx := -1, -1
	depth := 0
	topLevel(s, func(i int) bool {
		if i == 0 {
			return true
		}
		switch {
		case isKeywordAt(s, i, "if"):
			depth++
		case isKeywordAt(s, i, "then"):
			if depth == 0 && thenIdx < 0 {
				thenIdx = i
			}
		case isKeywordAt(s, i, "else"):
			if depth > 0 {
				depth--
			} else if thenIdx >= 0 {
				elseIdx = i
				return false
			}
		}
		return true
	})
	if thenIdx < 0 {
		return nil, syntaxErrorf("if without 'then': '%s'", s)
	}
	cond, err := parse(s[len("if"):thenIdx])
	if err != nil {
		return nil, err
	}
	thenEnd := len(s)
	if elseIdx >= 0 {
		thenEnd = elseIdx
	}
	then, err := parse(s[thenIdx+len("then") : thenEnd])
	if err != nil {
		return nil, err
	}
	node := &If{Cond: cond, Then: then}
	if elseIdx >= 0 {
		node.Else, err = parse(s[elseIdx+len("else"):])
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// parseCall accepts name(args) optionally followed by .property chains. ok is false
// when s is not shaped like a call.
func parseCall(s string) (Node, bool, error) {
	if !isIdentStart(s[0]) {
		return nil, false, nil
	}
	open := 1
	for open < len(s) && isIdentChar(s[open]) {
		open++
	}
	if open >= len(s) || s[open] != '(' {
		return nil, false, nil
	}
	closeIdx := matchingClose(s, open)
	if closeIdx < 0 {
		return nil, false, nil
	}
	var chain []string
	if rest := s[closeIdx+1:]; rest != "" {
		if !chainPattern.MatchString(rest) {
			return nil, false, nil
		}
		chain = strings.Split(rest[1:], ".")
	}
	name := s[:open]
	var args []Node
	if inner := strings.TrimSpace(s[open+1 : closeIdx]); inner != "" {
		for _, a := range splitTopLevel(inner, ",") {
			n, err := parse(a)
			if err != nil {
				return nil, true, err
			}
			args = append(args, n)
		}
	}
	if name == "not" && chain == nil {
		if len(args) != 1 {
			return nil, true, syntaxErrorf("not() expects exactly one argument")
		}
		return &Not{Operand: args[0]}, true, nil
	}
	return &Call{Name: name, Args: args, Chain: chain}, true, nil
}

// comparisonOperators are checked in this order so that two character operators
// are never split as their one character prefix.
var comparisonOperators = []string{"!=", "<=", ">=", "=", "<", ">"}

func parseComparison(s string) (Node, bool, error) {
	for _, op := range comparisonOperators {
		idx := indexTopLevel(s, op, 0)
		if idx < 0 {
			continue
		}
		left, err := parse(s[:idx])
		if err != nil {
			return nil, true, err
		}
		right, err := parse(s[idx+len(op):])
		if err != nil {
			return nil, true, err
		}
		return &Compare{Op: op, Left: left, Right: right}, true, nil
	}
	return nil, false, nil
}

// arithmeticOperatorAt returns the tier operator starting at s[i], or "".
func arithmeticOperatorAt(s string, i int, tier []string) string {
	c := s[i]
	for _, op := range tier {
		switch op {
		case "+", "-":
			if c != op[0] {
				continue
			}
			j := i - 1
			for j >= 0 && s[j] == ' ' {
				j--
			}
			if j >= 0 && endsOperand(s, j) {
				return op
			}
		case "*":
			if c == '*' && (i+1 >= len(s) || s[i+1] != '*') && (i == 0 || s[i-1] != '*') {
				return op
			}
		case "/":
			if c == '/' {
				return op
			}
		case "**":
			if strings.HasPrefix(s[i:], "**") {
				return op
			}
		}
	}
	return ""
}

// parseArithmetic splits s at every top level operator of one precedence tier and
// folds the operands left to right.
func parseArithmetic(s string, tier []string) (Node, bool, error) {
	var operands []string
	var operators []string
	start := 0
	topLevel(s, func(i int) bool {
		if i < start {
			return true
		}
		if op := arithmeticOperatorAt(s, i, tier); op != "" {
			operands = append(operands, s[start:i])
			operators = append(operators, op)
			start = i + len(op)
		}
		return true
	})
	if len(operators) == 0 {
		return nil, false, nil
	}
	operands = append(operands, s[start:])
	nodes, err := parseAll(operands, operators[0])
	if err != nil {
		return nil, true, err
	}
	node := nodes[0]
	for i, op := range operators {
		node = &Arithmetic{Op: op, Left: node, Right: nodes[i+1]}
	}
	return node, true, nil
}

func parseList(s string) (Node, error) {
	inner := strings.TrimSpace(s[1 : len(s)-1])
	list := &List{}
	if inner == "" {
		return list, nil
	}
	for _, item := range splitTopLevel(inner, ",") {
		n, err := parse(item)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, n)
	}
	return list, nil
}

func parseContext(s string) (Node, error) {
	inner := strings.TrimSpace(s[1 : len(s)-1])
	ctx := &Context{}
	if inner == "" {
		return ctx, nil
	}
	for _, entry := range splitTopLevel(inner, ",") {
		colon := indexTopLevel(entry, ":", 0)
		if colon < 0 {
			return nil, syntaxErrorf("invalid context entry '%s'", strings.TrimSpace(entry))
		}
		key := strings.TrimSpace(entry[:colon])
		if key == "" {
			return nil, syntaxErrorf("empty context key in '%s'", s)
		}
		if (key[0] == '"' || key[0] == '\'') && closingQuote(key, 0) == len(key)-1 {
			key = unquote(key)
		}
		value, err := parse(entry[colon+1:])
		if err != nil {
			return nil, err
		}
		ctx.Entries = append(ctx.Entries, ContextEntry{Key: key, Value: value})
	}
	return ctx, nil
}

func parseNumber(s string) (Node, error) {
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, syntaxErrorf("invalid decimal '%s'", s)
		}
		return &Literal{Value: f}, nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, syntaxErrorf("invalid integer '%s'", s)
	}
	return &Literal{Value: i}, nil
}
