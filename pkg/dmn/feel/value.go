package feel

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// Function is a callable FEEL value. Builtins, bound business knowledge models and
// bound decision services implement it.
type Function interface {
	Call(args []any) (any, error)
}

// FunctionFunc adapts an ordinary Go function to Function.
type FunctionFunc func(args []any) (any, error)

func (f FunctionFunc) Call(args []any) (any, error) {
	return f(args)
}

const dateLayout = "2006-01-02"

// NewDate returns the date value for year, month and day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO date (YYYY-MM-DD) or date-time.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func asFunction(v any) (Function, bool) {
	switch f := v.(type) {
	case Function:
		return f, true
	case func(args []any) (any, error):
		return FunctionFunc(f), true
	}
	return nil, false
}

// Normalize converts Go values into the FEEL value domain: integer kinds become
// int64, float kinds float64, slices []any and string keyed maps map[string]any.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, int64, float64, string, time.Time, []any, map[string]any:
		return v
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	}
	if _, ok := asFunction(v); ok {
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	}
	return v
}

// number returns v as int64 or float64; isInt tells which one is meaningful.
func number(v any) (i int64, f float64, isInt bool, ok bool) {
	switch n := Normalize(v).(type) {
	case int64:
		return n, float64(n), true, true
	case float64:
		return 0, n, false, true
	}
	return 0, 0, false, false
}

func isNumber(v any) bool {
	_, _, _, ok := number(v)
	return ok
}

// Equal reports FEEL equality. Integers and decimals compare numerically, lists and
// contexts compare element wise.
func Equal(a any, b any) bool {
	a, b = Normalize(a), Normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ai, af, aInt, ok := number(a); ok {
		bi, bf, bInt, ok := number(b)
		if !ok {
			return false
		}
		if aInt && bInt {
			return ai == bi
		}
		return af == bf
	}
	switch at := a.(type) {
	case bool:
		bt, ok := b.(bool)
		return ok && at == bt
	case string:
		bt, ok := b.(string)
		return ok && at == bt
	case time.Time:
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !Equal(at[i], bt[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bt, ok := b.(map[string]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, v := range at {
			bv, ok := bt[k]
			if !ok || !Equal(v, bv) {
				return false
			}
		}
		return true
	}
	if _, ok := asFunction(a); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two numbers, strings or dates.
func compare(a any, b any) (int, error) {
	a, b = Normalize(a), Normalize(b)
	if ai, af, aInt, ok := number(a); ok {
		if bi, bf, bInt, ok := number(b); ok {
			if aInt && bInt {
				return cmpOrdered(ai, bi), nil
			}
			return cmpOrdered(af, bf), nil
		}
	}
	switch at := a.(type) {
	case string:
		if bt, ok := b.(string); ok {
			return strings.Compare(at, bt), nil
		}
	case time.Time:
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s with %s", TypeName(a), TypeName(b))
}

func cmpOrdered[T int64 | float64](a T, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// TypeName names the FEEL type of v for error messages.
func TypeName(v any) string {
	switch Normalize(v).(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int64:
		return "integer"
	case float64:
		return "decimal"
	case string:
		return "string"
	case time.Time:
		return "date"
	case []any:
		return "list"
	case map[string]any:
		return "context"
	}
	if _, ok := asFunction(v); ok {
		return "function"
	}
	return fmt.Sprintf("%T", v)
}

func arithmetic(op string, l any, r any) (any, error) {
	l, r = Normalize(l), Normalize(r)
	if op == "+" {
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
	}
	li, lf, lInt, lok := number(l)
	ri, rf, rInt, rok := number(r)
	if !lok || !rok {
		return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", op, TypeName(l), TypeName(r))
	}
	bothInt := lInt && rInt
	switch op {
	case "+":
		if bothInt {
			if sum, ok := addInt(li, ri); ok {
				return sum, nil
			}
		}
		return lf + rf, nil
	case "-":
		if bothInt {
			if difference, ok := subInt(li, ri); ok {
				return difference, nil
			}
		}
		return lf - rf, nil
	case "*":
		if bothInt {
			if product, ok := mulInt(li, ri); ok {
				return product, nil
			}
		}
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return lf / rf, nil
	case "**":
		if bothInt && ri >= 0 {
			if power, ok := powInt(li, ri); ok {
				return power, nil
			}
		}
		return math.Pow(lf, rf), nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

// Integer operations report ok=false on int64 overflow; callers fall back to float64.

func addInt(a int64, b int64) (int64, bool) {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		return 0, false
	}
	return sum, true
}

func subInt(a int64, b int64) (int64, bool) {
	difference := a - b
	if (a >= 0 && b < 0 && difference < 0) || (a < 0 && b > 0 && difference >= 0) {
		return 0, false
	}
	return difference, true
}

func mulInt(a int64, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	product := a * b
	if product/b != a {
		return 0, false
	}
	return product, true
}

// powInt computes base**exp by squaring, exp must not be negative.
func powInt(base int64, exp int64) (int64, bool) {
	result := int64(1)
	var ok bool
	for exp > 0 {
		if exp&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}

// navigate resolves one step of a dotted path. Missing keys and unsupported
// values yield nil.
func navigate(v any, key string) any {
	switch t := Normalize(v).(type) {
	case nil:
		return nil
	case map[string]any:
		return t[key]
	case time.Time:
		switch key {
		case "year":
			return int64(t.Year())
		case "month":
			return int64(t.Month())
		case "day":
			return int64(t.Day())
		case "weekday":
			wd := int64(t.Weekday())
			if wd == 0 {
				wd = 7
			}
			return wd
		}
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := strings.Split(field.Tag.Get("json"), ",")[0]
		if tag == key || strings.EqualFold(field.Name, key) {
			return rv.Field(i).Interface()
		}
	}
	return nil
}
