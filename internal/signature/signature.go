// Package signature maps language type spellings onto DataType and parses
// function declarations into a MethodSignature.
package signature

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	ErrUnknownType = errors.New("unknown type")
	ErrNoSignature = errors.New("no function declaration found")
	ErrBadParam    = errors.New("malformed parameter")
)

type Param struct {
	Type     string
	Name     string
	DataType DataType
}

type MethodSignature struct {
	ReturnType string
	Name       string
	Params     []Param
	Return     DataType
	Void       bool
	// Receiver is set when the function is a method of the Solution class.
	Receiver bool
}

// Types returns the DataTypes used by the signature, return type included,
// without duplicates and in first-use order.
func (s *MethodSignature) Types() []DataType {
	seen := make(map[DataType]bool)
	var out []DataType
	add := func(t DataType) {
		if t.Valid() && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, p := range s.Params {
		add(p.DataType)
	}
	if !s.Void {
		add(s.Return)
	}
	return out
}

// Style says where a parameter's name sits relative to its type.
type Style int

const (
	// TrailingName is "Type name", split at the last whitespace.
	TrailingName Style = iota
	// LeadingName is "name: Type", split at the first colon.
	LeadingName
)

// SplitParams splits a parameter list on commas that are not nested inside
// brackets, so "List<Map<K, V>> a, int b" yields two fragments.
func SplitParams(list string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range list {
		switch r {
		case '<', '[', '(', '{':
			depth++
		case '>', ']', ')', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, list[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, list[start:])

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitTrailing splits "Type name" at its last whitespace boundary.
func SplitTrailing(fragment string) (typ, name string, err error) {
	fragment = strings.TrimSpace(fragment)
	i := strings.LastIndexAny(fragment, " \t\r\n")
	if i <= 0 || i == len(fragment)-1 {
		return "", "", fmt.Errorf("%w: %q has no type/name boundary", ErrBadParam, fragment)
	}
	return strings.TrimSpace(fragment[:i]), strings.TrimSpace(fragment[i+1:]), nil
}

// SplitLeading splits "name: Type" at the first colon. A default value
// ("name: Type = 3") is dropped.
func SplitLeading(fragment string) (name, typ string, err error) {
	fragment = strings.TrimSpace(fragment)
	i := strings.Index(fragment, ":")
	if i <= 0 || i == len(fragment)-1 {
		return "", "", fmt.Errorf("%w: %q has no name: type annotation", ErrBadParam, fragment)
	}
	name = strings.TrimSpace(fragment[:i])
	typ = strings.TrimSpace(fragment[i+1:])
	if j := topLevelIndex(typ, '='); j >= 0 {
		typ = strings.TrimSpace(typ[:j])
	}
	if name == "" || typ == "" || strings.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("%w: %q", ErrBadParam, fragment)
	}
	return name, typ, nil
}

func topLevelIndex(s string, target rune) int {
	depth := 0
	for i, r := range s {
		switch {
		case strings.ContainsRune("<[({", r):
			depth++
		case strings.ContainsRune(">])}", r):
			if depth > 0 {
				depth--
			}
		case r == target && depth == 0:
			return i
		}
	}
	return -1
}

// Parser knows one language's declaration grammar and type table.
type Parser struct {
	language  string
	style     Style
	decls     []*regexp.Regexp
	types     map[string]DataType
	voids     map[string]bool
	receiver  string
	method    bool
	reserved  map[string]bool
	modifiers map[string]bool
	// docComments enables JSDoc @param/@return types.
	docComments bool
}

func (p *Parser) Language() string {
	return p.language
}

// MapType resolves a type spelling. Whitespace inside the spelling is
// insignificant. Unknown spellings are an error naming the input.
func (p *Parser) MapType(spelling string) (DataType, error) {
	key := strings.Join(strings.Fields(spelling), "")
	if t, ok := p.types[key]; ok {
		return t, nil
	}
	return Invalid, fmt.Errorf("%w: %q is not a supported %s type", ErrUnknownType, spelling, p.language)
}

func (p *Parser) IsVoid(spelling string) bool {
	return p.voids[strings.TrimSpace(spelling)]
}

// Parse finds the first function declaration in text and resolves every
// parameter and the return type. For parsers that read doc comments, an
// unannotated declaration takes its types from the JSDoc block right above it.
func (p *Parser) Parse(text string) (*MethodSignature, error) {
	for _, re := range p.decls {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			group := func(name string) string {
				i := re.SubexpIndex(name)
				if i < 0 || loc[2*i] < 0 {
					return ""
				}
				return text[loc[2*i]:loc[2*i+1]]
			}
			name := group("name")
			ret := strings.TrimSpace(group("ret"))
			if p.reserved[name] || p.reserved[ret] {
				continue
			}
			var doc *docTypes
			if p.docComments {
				doc = precedingDoc(text[:loc[0]])
			}
			return p.build(name, ret, group("params"), doc)
		}
	}
	return nil, fmt.Errorf("%w in %s source", ErrNoSignature, p.language)
}

func (p *Parser) build(name, ret, params string, doc *docTypes) (*MethodSignature, error) {
	sig := &MethodSignature{
		ReturnType: ret,
		Name:       name,
		Receiver:   p.method,
	}
	if ret == "" && doc != nil {
		sig.ReturnType = doc.ret
	}

	if p.IsVoid(sig.ReturnType) {
		sig.Void = true
	} else {
		t, err := p.MapType(sig.ReturnType)
		if err != nil {
			return nil, fmt.Errorf("return type of %s: %w", name, err)
		}
		sig.Return = t
	}

	for i, frag := range SplitParams(params) {
		if i == 0 && p.receiver != "" && frag == p.receiver {
			sig.Receiver = true
			continue
		}

		var typ, pname string
		var err error
		switch {
		case p.style == LeadingName && doc != nil && topLevelIndex(frag, ':') < 0:
			pname, typ, err = doc.param(frag)
		case p.style == LeadingName:
			pname, typ, err = SplitLeading(frag)
		default:
			typ, pname, err = SplitTrailing(frag)
			typ = p.stripModifiers(typ)
		}
		if err != nil {
			return nil, err
		}

		dt, err := p.MapType(typ)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", pname, err)
		}
		sig.Params = append(sig.Params, Param{Type: typ, Name: pname, DataType: dt})
	}
	return sig, nil
}

func (p *Parser) stripModifiers(typ string) string {
	fields := strings.Fields(typ)
	for len(fields) > 1 && p.modifiers[fields[0]] {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

var jsdocTag = regexp.MustCompile(`@(param|arg|argument|returns?)\s*\{([^}]*)\}\s*\[?(\w*)`)

type docTypes struct {
	params map[string]string
	ret    string
}

// precedingDoc returns the types of the /** ... */ block that ends text,
// ignoring trailing whitespace, or nil when there is none.
func precedingDoc(text string) *docTypes {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	if !strings.HasSuffix(text, "*/") {
		return nil
	}
	start := strings.LastIndex(text, "/**")
	if start < 0 {
		return nil
	}
	doc := &docTypes{params: make(map[string]string)}
	for _, m := range jsdocTag.FindAllStringSubmatch(text[start:], -1) {
		if strings.HasPrefix(m[1], "return") {
			doc.ret = strings.TrimSpace(m[2])
			continue
		}
		doc.params[m[3]] = strings.TrimSpace(m[2])
	}
	return doc
}

func (d *docTypes) param(fragment string) (name, typ string, err error) {
	name = strings.TrimSpace(fragment)
	if i := topLevelIndex(name, '='); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	typ, ok := d.params[name]
	if !ok || name == "" {
		return "", "", fmt.Errorf("%w: %q has no @param type", ErrBadParam, fragment)
	}
	return name, typ, nil
}

// EraseAnnotations rewrites every typed declaration the parser recognizes
// into an untyped one, so "function f(a: number[]): number {" becomes
// "function f(a) {". Default values are kept.
func (p *Parser) EraseAnnotations(text string) string {
	type cut struct {
		start, end int
		repl       string
	}
	var cuts []cut
	for _, re := range p.decls {
		pi, ri := re.SubexpIndex("params"), re.SubexpIndex("ret")
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			ps, pe := loc[2*pi], loc[2*pi+1]
			frags := SplitParams(text[ps:pe])
			for i, frag := range frags {
				frags[i] = untyped(frag)
			}
			cuts = append(cuts, cut{ps, pe, strings.Join(frags, ", ")})

			if ri >= 0 && loc[2*ri] >= 0 {
				if colon := strings.LastIndex(text[pe:loc[2*ri]], ":"); colon >= 0 {
					cuts = append(cuts, cut{pe + colon, loc[2*ri+1], ""})
				}
			}
		}
	}
	if len(cuts) == 0 {
		return text
	}

	sort.Slice(cuts, func(i, j int) bool { return cuts[i].start > cuts[j].start })
	for _, c := range cuts {
		text = text[:c.start] + c.repl + text[c.end:]
	}
	return text
}

// untyped drops the ": Type" part of "name: Type = default".
func untyped(fragment string) string {
	colon := topLevelIndex(fragment, ':')
	eq := topLevelIndex(fragment, '=')
	if colon < 0 || (eq >= 0 && eq < colon) {
		return fragment
	}
	name := strings.TrimSuffix(strings.TrimSpace(fragment[:colon]), "?")
	if eq >= 0 {
		return name + " = " + strings.TrimSpace(fragment[eq+1:])
	}
	return name
}
