// Package harness generates the wrapper program that reads one input line
// per parameter, calls the submitted function and prints its result in the
// canonical text format.
package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itstheanurag/codejudge/internal/signature"
)

var ErrUnsupportedType = errors.New("unsupported type for harness")

// Emitter produces harness code for one submission language.
type Emitter interface {
	Language() string
	MapType(spelling string) (signature.DataType, error)
	ParseSignature(declaration string) (*signature.MethodSignature, error)
	Imports() string
	// InputParseExpr returns an expression converting the raw line held by
	// src into a value of type t.
	InputParseExpr(t signature.DataType, src string) (string, error)
	// OutputFormatStmt returns a statement printing value in canonical form.
	OutputFormatStmt(t signature.DataType, value string) (string, error)
	// HelperCode returns the helper routines needed by types, or "" when
	// none are.
	HelperCode(types []signature.DataType) string
	Build(sig *signature.MethodSignature, userCode string) (*Program, error)
}

// codec is one row of a language's dispatch table. In parse "{in}" stands
// for the raw input line; in format "{out}" stands for the value.
type codec struct {
	parse   string
	format  string
	helpers []string
}

type helper struct {
	key  string
	code string
}

type table struct {
	codecs  map[signature.DataType]codec
	helpers []helper
	// wrap, when set, encloses the emitted helpers.
	wrap func(body string) string
}

func (tb *table) lookup(t signature.DataType) (codec, error) {
	c, ok := tb.codecs[t]
	if !ok {
		return codec{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	return c, nil
}

func (tb *table) helperCode(types []signature.DataType) string {
	need := make(map[string]bool)
	for _, t := range types {
		if c, ok := tb.codecs[t]; ok {
			for _, h := range c.helpers {
				need[h] = true
			}
		}
	}
	var parts []string
	for _, h := range tb.helpers {
		if need[h.key] {
			parts = append(parts, h.code)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	body := strings.Join(parts, "\n\n")
	if tb.wrap != nil {
		return tb.wrap(body)
	}
	return body
}

// base implements the table-driven half of Emitter.
type base struct {
	language string
	parser   *signature.Parser
	table    *table
	imports  string
}

func (b *base) Language() string {
	return b.language
}

func (b *base) MapType(spelling string) (signature.DataType, error) {
	return b.parser.MapType(spelling)
}

func (b *base) ParseSignature(declaration string) (*signature.MethodSignature, error) {
	return b.parser.Parse(declaration)
}

func (b *base) Imports() string {
	return b.imports
}

func (b *base) InputParseExpr(t signature.DataType, src string) (string, error) {
	c, err := b.table.lookup(t)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(c.parse, "{in}", src), nil
}

func (b *base) OutputFormatStmt(t signature.DataType, value string) (string, error) {
	c, err := b.table.lookup(t)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(c.format, "{out}", value), nil
}

func (b *base) HelperCode(types []signature.DataType) string {
	return b.table.helperCode(types)
}

// check rejects signatures with types this language cannot emit.
func (b *base) check(sig *signature.MethodSignature) error {
	if sig == nil {
		return fmt.Errorf("%s: %w", b.language, signature.ErrNoSignature)
	}
	for _, t := range sig.Types() {
		if _, err := b.table.lookup(t); err != nil {
			return fmt.Errorf("%s: %w", b.language, err)
		}
	}
	for _, p := range sig.Params {
		if !p.DataType.Valid() {
			return fmt.Errorf("%s parameter %s: %w", b.language, p.Name, ErrUnsupportedType)
		}
	}
	return nil
}

func argList(sig *signature.MethodSignature) string {
	names := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func indent(code, prefix string) string {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
