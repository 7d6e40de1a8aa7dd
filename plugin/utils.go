package plugin

import (
	"strings"

	"github.com/NethermindEth/snplugin/syntax"
)

func isFelt252(typeText string) bool {
	return typeText == "felt252"
}

// maybeStripUnderscore removes at most one leading underscore, so `_name`
// and `name` compare equal.
func maybeStripUnderscore(name string) string {
	return strings.TrimPrefix(name, "_")
}

// isStateParam reports whether the parameter is the implicit contract
// state parameter conventionally at index 0.
func isStateParam(param *syntax.Param) bool {
	return maybeStripUnderscore(param.Name) == "self"
}
