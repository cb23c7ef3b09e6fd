package dmn

import (
	"strings"
)

// refId extracts the referenced element id from an href such as "#decision_1"
// or "other.dmn#decision_1".
func refId(href string) string {
	if idx := strings.LastIndex(href, "#"); idx >= 0 {
		return href[idx+1:]
	}
	return href
}

// decisionRef keeps the document part of a required decision href so that decisions of
// imported definitions stay distinguishable: "#decision_1" gives "decision_1" and
// "other.dmn#decision_1" is kept as is.
func decisionRef(href string) string {
	return strings.TrimPrefix(href, "#")
}

// splitRef splits a reference produced by decisionRef into its document and id.
func splitRef(ref string) (string, string) {
	if idx := strings.LastIndex(ref, "#"); idx >= 0 {
		return ref[:idx], ref[idx+1:]
	}
	return "", ref
}

// defaultVariableName derives the variable binding from a display name.
func defaultVariableName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func copyVariables(variables map[string]any) map[string]any {
	copied := make(map[string]any, len(variables))
	for key, value := range variables {
		copied[key] = value
	}
	return copied
}
