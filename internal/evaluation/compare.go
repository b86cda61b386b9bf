package evaluation

import (
	"strings"

	"github.com/itstheanurag/codejudge/internal/harness/canonical"
	"github.com/itstheanurag/codejudge/internal/signature"
)

// Normalize trims every line, drops one trailing blank line and trims the
// result.
func Normalize(output string) string {
	output = strings.ReplaceAll(output, "\r\n", "\n")
	lines := strings.Split(output, "\n")
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "" {
		lines = lines[:n-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Matches compares normalized outputs. Single-line outputs that both parse
// as ret are also compared in canonical form, so "[1, 2]" matches "[1,2]"
// and "2.0" matches "2".
func Matches(actual, expected string, ret signature.DataType) bool {
	a, e := Normalize(actual), Normalize(expected)
	if a == e {
		return true
	}
	if !ret.Valid() || strings.Contains(a, "\n") || strings.Contains(e, "\n") {
		return false
	}
	ca, err := canonical.Canonicalize(ret, a)
	if err != nil {
		return false
	}
	ce, err := canonical.Canonicalize(ret, e)
	if err != nil {
		return false
	}
	return ca == ce
}
