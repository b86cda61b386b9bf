// Package canonical is the Go reference for the judge's text encoding of
// values: collections are bracketed and comma-joined without spaces, string
// elements are double-quoted, booleans are lowercase and chars are bare.
package canonical

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/itstheanurag/codejudge/internal/signature"
)

var ErrSyntax = errors.New("malformed canonical value")

// Parse decodes text into a Go value for t: int64, float64, bool, rune or
// string for scalars, a slice of those for 1-D types and a slice of slices
// for 2-D types.
func Parse(t signature.DataType, text string) (any, error) {
	text = strings.TrimSpace(text)
	switch t.Kind() {
	case signature.KindScalar:
		return parseScalar(t, text, false)
	case signature.KindArray, signature.KindList:
		items, err := splitList(text)
		if err != nil {
			return nil, err
		}
		return parseRow(t.Elem(), items)
	case signature.KindArray2D, signature.KindMatrix:
		rows, err := splitList(text)
		if err != nil {
			return nil, err
		}
		switch t.Elem() {
		case signature.Int, signature.Long:
			out := make([][]int64, 0, len(rows))
			for _, r := range rows {
				v, err := parseNested(t.Elem(), r)
				if err != nil {
					return nil, err
				}
				out = append(out, v.([]int64))
			}
			return out, nil
		case signature.String:
			out := make([][]string, 0, len(rows))
			for _, r := range rows {
				v, err := parseNested(t.Elem(), r)
				if err != nil {
					return nil, err
				}
				out = append(out, v.([]string))
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported type %s", ErrSyntax, t)
}

// Format encodes v, which must have the Go shape Parse returns for t.
func Format(t signature.DataType, v any) (string, error) {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return formatFloat(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case rune:
		return string(x), nil
	case string:
		if t.IsCollection() {
			return quote(x), nil
		}
		return x, nil
	case []int64:
		return join(x, func(n int64) string { return strconv.FormatInt(n, 10) }), nil
	case []float64:
		return join(x, formatFloat), nil
	case []bool:
		return join(x, strconv.FormatBool), nil
	case []rune:
		return join(x, func(r rune) string { return string(r) }), nil
	case []string:
		return join(x, quote), nil
	case [][]int64:
		return join(x, func(row []int64) string {
			return join(row, func(n int64) string { return strconv.FormatInt(n, 10) })
		}), nil
	case [][]string:
		return join(x, func(row []string) string { return join(row, quote) }), nil
	}
	return "", fmt.Errorf("%w: cannot format %T as %s", ErrSyntax, v, t)
}

// Canonicalize re-renders text in canonical form.
func Canonicalize(t signature.DataType, text string) (string, error) {
	v, err := Parse(t, text)
	if err != nil {
		return "", err
	}
	return Format(t, v)
}

func parseNested(elem signature.DataType, row string) (any, error) {
	items, err := splitList(row)
	if err != nil {
		return nil, err
	}
	return parseRow(elem, items)
}

func parseRow(elem signature.DataType, items []string) (any, error) {
	var (
		ints   []int64
		floats []float64
		bools  []bool
		runes  []rune
		strs   []string
	)
	for _, item := range items {
		v, err := parseScalar(elem, item, true)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case int64:
			ints = append(ints, x)
		case float64:
			floats = append(floats, x)
		case bool:
			bools = append(bools, x)
		case rune:
			runes = append(runes, x)
		case string:
			strs = append(strs, x)
		}
	}
	switch elem {
	case signature.Int, signature.Long:
		return nonNil(ints), nil
	case signature.Double, signature.Float:
		return nonNil(floats), nil
	case signature.Bool:
		return nonNil(bools), nil
	case signature.Char:
		return nonNil(runes), nil
	default:
		return nonNil(strs), nil
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func parseScalar(t signature.DataType, s string, element bool) (any, error) {
	s = strings.TrimSpace(s)
	switch t {
	case signature.Int, signature.Long:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrSyntax, s)
		}
		return n, nil
	case signature.Double, signature.Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrSyntax, s)
		}
		return f, nil
	case signature.Bool:
		switch strings.ToLower(s) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not a boolean", ErrSyntax, s)
	case signature.Char:
		s = unquote(s)
		if utf8.RuneCountInString(s) != 1 {
			return nil, fmt.Errorf("%w: %q is not a single character", ErrSyntax, s)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	case signature.String:
		if element {
			return unquote(s), nil
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s is not a scalar type", ErrSyntax, t)
}

// splitList strips one bracket pair and splits the body on commas that are
// outside quotes and nested brackets.
func splitList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("%w: %q is not a bracketed list", ErrSyntax, s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, nil
	}

	var (
		items   []string
		depth   int
		quoted  bool
		escaped bool
		start   int
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == ',' && depth == 0:
			items = append(items, strings.TrimSpace(body[start:i]))
			start = i + 1
		}
	}
	if quoted || depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced %q", ErrSyntax, s)
	}
	return append(items, strings.TrimSpace(body[start:])), nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		if s[0] == '"' {
			if u, err := strconv.Unquote(s); err == nil {
				return u
			}
		}
		return s[1 : len(s)-1]
	}
	return s
}

func quote(s string) string {
	return `"` + s + `"`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func join[T any](items []T, f func(T) string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = f(it)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
