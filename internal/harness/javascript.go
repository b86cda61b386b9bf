package harness

import (
	"fmt"
	"strings"

	"github.com/itstheanurag/codejudge/internal/signature"
)

const (
	jsSplitList = `function __splitList(s) {
  s = s.trim();
  if (s.startsWith("[")) s = s.slice(1);
  if (s.endsWith("]")) s = s.slice(0, -1);
  s = s.trim();
  if (s === "") return [];
  return s.split(",").map((x) => x.trim());
}`

	jsUnquote = `function __unquote(s) {
  s = s.trim();
  if (s.length >= 2 && s[0] === s[s.length - 1] && (s[0] === '"' || s[0] === "'")) {
    return s.slice(1, -1);
  }
  return s;
}`

	jsParseMatrix = `function parseMatrix(s, conv) {
  s = s.trim();
  if (s.startsWith("[")) s = s.slice(1);
  if (s.endsWith("]")) s = s.slice(0, -1);
  s = s.trim();
  if (s === "") return [];
  return s.split(/\]\s*,\s*\[/).map((row) => __splitList(row).map((x) => conv(x)));
}`

	jsFmt = `function __fmt(v) {
  if (Array.isArray(v)) return "[" + v.map(__fmt).join(",") + "]";
  if (typeof v === "string") return '"' + v + '"';
  return String(v);
}`
)

const (
	jsPrint    = `console.log(String({out}));`
	jsPrintFmt = `console.log(__fmt({out}));`
)

func jsArray(conv string, helpers ...string) codec {
	return codec{
		parse:   fmt.Sprintf("__splitList({in}).map((x) => %s)", conv),
		format:  jsPrintFmt,
		helpers: append([]string{"__splitList", "__fmt"}, helpers...),
	}
}

func jsMatrix(conv string, helpers ...string) codec {
	return codec{
		parse:   fmt.Sprintf("parseMatrix({in}, %s)", conv),
		format:  jsPrintFmt,
		helpers: append([]string{"__splitList", "parseMatrix", "__fmt"}, helpers...),
	}
}

var javascriptTable = &table{
	codecs: map[signature.DataType]codec{
		signature.Int:    {parse: `Number({in})`, format: jsPrint},
		signature.Long:   {parse: `BigInt({in}.trim())`, format: jsPrint},
		signature.Double: {parse: `Number({in})`, format: jsPrint},
		signature.Float:  {parse: `Number({in})`, format: jsPrint},
		signature.Bool:   {parse: `{in}.trim() === "true"`, format: jsPrint},
		signature.Char:   {parse: `__unquote({in}).charAt(0)`, format: jsPrint, helpers: []string{"__unquote"}},
		signature.String: {parse: `__unquote({in})`, format: jsPrint, helpers: []string{"__unquote"}},

		signature.ArrayInt:    jsArray("Number(x)"),
		signature.ArrayLong:   jsArray("BigInt(x)"),
		signature.ArrayDouble: jsArray("Number(x)"),
		signature.ArrayFloat:  jsArray("Number(x)"),
		signature.ArrayBool:   jsArray(`x === "true"`),
		signature.ArrayChar: {
			parse:   `__splitList({in}).map((x) => __unquote(x).charAt(0))`,
			format:  `console.log("[" + {out}.join(",") + "]");`,
			helpers: []string{"__splitList", "__unquote"},
		},
		signature.ArrayString: jsArray("__unquote(x)", "__unquote"),

		signature.ListInt:    jsArray("Number(x)"),
		signature.ListLong:   jsArray("BigInt(x)"),
		signature.ListDouble: jsArray("Number(x)"),
		signature.ListString: jsArray("__unquote(x)", "__unquote"),

		signature.Array2DInt:    jsMatrix("Number"),
		signature.Array2DLong:   jsMatrix("BigInt"),
		signature.Array2DString: jsMatrix("__unquote", "__unquote"),
		signature.MatrixInt:     jsMatrix("Number"),
		signature.MatrixLong:    jsMatrix("BigInt"),
		signature.MatrixString:  jsMatrix("__unquote", "__unquote"),
	},
	helpers: []helper{
		{"__splitList", jsSplitList},
		{"__unquote", jsUnquote},
		{"parseMatrix", jsParseMatrix},
		{"__fmt", jsFmt},
	},
}

type JavaScript struct {
	base
}

func NewJavaScript() *JavaScript {
	return &JavaScript{base: base{
		language: "javascript",
		parser:   signature.JavaScript,
		table:    javascriptTable,
		imports:  `const __fs = require("fs");`,
	}}
}

// Build calls the declared function directly; JavaScript submissions have
// no Solution class. Type annotations on the user's declarations are erased
// so that a starter written with them still runs under node.
func (js *JavaScript) Build(sig *signature.MethodSignature, userCode string) (*Program, error) {
	if err := js.check(sig); err != nil {
		return nil, err
	}

	p := &Program{Language: js.language}
	p.add(SectionImports, js.Imports())
	p.add(SectionUserCode, strings.TrimSpace(js.parser.EraseAnnotations(userCode)))
	p.add(SectionHelpers, js.HelperCode(sig.Types()))
	p.add(SectionEntryOpen, "(function main() {\n  const __lines = __fs.readFileSync(0, \"utf8\").split(\"\\n\");")

	for i, param := range sig.Params {
		expr, err := js.InputParseExpr(param.DataType, fmt.Sprintf("(__lines[%d] || \"\")", i))
		if err != nil {
			return nil, err
		}
		p.add(SectionInput, fmt.Sprintf("  const %s = %s;", param.Name, expr))
	}

	call := fmt.Sprintf("%s(%s)", sig.Name, argList(sig))
	if sig.Void {
		p.add(SectionCall, "  "+call+";")
	} else {
		p.add(SectionCall, "  const __result = "+call+";")
		out, err := js.OutputFormatStmt(sig.Return, "__result")
		if err != nil {
			return nil, err
		}
		p.add(SectionOutput, "  "+out)
	}

	p.add(SectionEntryClose, "})();")
	return p, nil
}
