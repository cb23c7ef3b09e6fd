package feel

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Builtin is a function from the fixed builtin set.
type Builtin struct {
	Name string
	fn   func(args []any) (any, error)
}

func (b *Builtin) Call(args []any) (any, error) {
	return b.fn(args)
}

// builtins is read only after package initialization.
var builtins = map[string]*Builtin{}

func init() {
	register := func(name string, fn func(args []any) (any, error)) {
		builtins[name] = &Builtin{Name: name, fn: fn}
	}
	register("years", builtinYears)
	register("date", builtinDate)
	register("today", func(args []any) (any, error) {
		if err := arity("today", args, 0); err != nil {
			return nil, err
		}
		now := time.Now()
		return NewDate(now.Year(), now.Month(), now.Day()), nil
	})
	register("now", func(args []any) (any, error) {
		if err := arity("now", args, 0); err != nil {
			return nil, err
		}
		return time.Now(), nil
	})
	register("min", func(args []any) (any, error) { return extremum("min", args, -1) })
	register("max", func(args []any) (any, error) { return extremum("max", args, 1) })
	register("sum", builtinSum)
	register("mean", builtinMean)
	register("abs", builtinAbs)
	register("floor", func(args []any) (any, error) { return rounding("floor", args, math.Floor) })
	register("ceiling", func(args []any) (any, error) { return rounding("ceiling", args, math.Ceil) })
	register("count", builtinCount)
	register("upper", func(args []any) (any, error) { return stringFunc("upper", args, strings.ToUpper) })
	register("lower", func(args []any) (any, error) { return stringFunc("lower", args, strings.ToLower) })
}

// IsBuiltin reports whether name is a builtin function.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func arity(name string, args []any, n int) error {
	if len(args) != n {
		return evalErrorf("%s() expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func toDate(name string, v any) (time.Time, error) {
	switch t := Normalize(v).(type) {
	case time.Time:
		return t, nil
	case string:
		d, err := ParseDate(t)
		if err != nil {
			return time.Time{}, evalErrorf("%s(): %v", name, err)
		}
		return d, nil
	}
	return time.Time{}, evalErrorf("%s() expects a date, got %s", name, TypeName(v))
}

// builtinYears returns the number of whole years from the first date to the second;
// the difference is decremented when the anniversary has not been reached yet.
func builtinYears(args []any) (any, error) {
	if err := arity("years", args, 2); err != nil {
		return nil, err
	}
	from, err := toDate("years", args[0])
	if err != nil {
		return nil, err
	}
	to, err := toDate("years", args[1])
	if err != nil {
		return nil, err
	}
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return int64(years), nil
}

func builtinDate(args []any) (any, error) {
	if err := arity("date", args, 1); err != nil {
		return nil, err
	}
	d, err := toDate("date", args[0])
	if err != nil {
		return nil, err
	}
	return NewDate(d.Year(), d.Month(), d.Day()), nil
}

// listArgs accepts either one list argument or the values as varargs.
func listArgs(args []any) []any {
	if len(args) == 1 {
		if l, ok := Normalize(args[0]).([]any); ok {
			return l
		}
	}
	return args
}

func extremum(name string, args []any, sign int) (any, error) {
	values := listArgs(args)
	if len(values) == 0 {
		return nil, nil
	}
	best := Normalize(values[0])
	for _, v := range values[1:] {
		c, err := compare(v, best)
		if err != nil {
			return nil, evalErrorf("%s(): %v", name, err)
		}
		if c*sign > 0 {
			best = Normalize(v)
		}
	}
	return best, nil
}

func builtinSum(args []any) (any, error) {
	var total any = int64(0)
	for _, v := range listArgs(args) {
		if !isNumber(v) {
			return nil, evalErrorf("sum() expects numbers, got %s", TypeName(v))
		}
		next, err := arithmetic("+", total, v)
		if err != nil {
			return nil, evalErrorf("sum(): %v", err)
		}
		total = next
	}
	return total, nil
}

func builtinMean(args []any) (any, error) {
	values := listArgs(args)
	if len(values) == 0 {
		return int64(0), nil
	}
	total, err := builtinSum([]any{values})
	if err != nil {
		return nil, err
	}
	_, f, _, _ := number(total)
	return f / float64(len(values)), nil
}

func builtinAbs(args []any) (any, error) {
	if err := arity("abs", args, 1); err != nil {
		return nil, err
	}
	i, f, isInt, ok := number(args[0])
	if !ok {
		return nil, evalErrorf("abs() expects a number, got %s", TypeName(args[0]))
	}
	if isInt {
		if i < 0 {
			return -i, nil
		}
		return i, nil
	}
	return math.Abs(f), nil
}

func rounding(name string, args []any, fn func(float64) float64) (any, error) {
	if err := arity(name, args, 1); err != nil {
		return nil, err
	}
	i, f, isInt, ok := number(args[0])
	if !ok {
		return nil, evalErrorf("%s() expects a number, got %s", name, TypeName(args[0]))
	}
	if isInt {
		return i, nil
	}
	return int64(fn(f)), nil
}

func builtinCount(args []any) (any, error) {
	if err := arity("count", args, 1); err != nil {
		return nil, err
	}
	l, ok := Normalize(args[0]).([]any)
	if !ok {
		return nil, evalErrorf("count() expects a list, got %s", TypeName(args[0]))
	}
	return int64(len(l)), nil
}

func stringFunc(name string, args []any, fn func(string) string) (any, error) {
	if err := arity(name, args, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, evalErrorf("%s() expects a string, got %s", name, TypeName(args[0]))
	}
	return fn(s), nil
}

func (b *Builtin) String() string {
	return fmt.Sprintf("builtin %s", b.Name)
}
