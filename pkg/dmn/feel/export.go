package feel

// SplitList splits s at its top level commas. Commas inside string literals and
// brackets do not split.
func SplitList(s string) []string {
	return splitTopLevel(s, ",")
}

// HasTopLevelComma reports whether s contains a comma outside literals and brackets.
func HasTopLevelComma(s string) bool {
	return hasTopLevel(s, ",")
}

// CallBuiltin invokes the builtin function name with args.
func CallBuiltin(name string, args []any) (any, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, evalErrorf("undefined function '%s'", name)
	}
	return b.Call(args)
}
