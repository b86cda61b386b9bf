package harness

import (
	"fmt"
	"strings"

	"github.com/itstheanurag/codejudge/internal/signature"
)

const (
	pySplitList = `def _split_list(s):
    s = s.strip()
    if s.startswith("["):
        s = s[1:]
    if s.endswith("]"):
        s = s[:-1]
    s = s.strip()
    if not s:
        return []
    return [x.strip() for x in s.split(",")]`

	pyUnquote = `def _unquote(s):
    s = s.strip()
    if len(s) >= 2 and s[0] == s[-1] and s[0] in "\"'":
        return s[1:-1]
    return s`

	pyParseMatrix = `def _parse_matrix(s, conv):
    s = s.strip()
    if s.startswith("["):
        s = s[1:]
    if s.endswith("]"):
        s = s[:-1]
    s = s.strip()
    if not s:
        return []
    return [[conv(x) for x in _split_list(row)] for row in re.split(r"\]\s*,\s*\[", s)]`

	pyFmt = `def _fmt(v):
    if isinstance(v, bool):
        return "true" if v else "false"
    if isinstance(v, str):
        return '"' + v + '"'
    if isinstance(v, (list, tuple)):
        return "[" + ",".join(_fmt(x) for x in v) + "]"
    return str(v)`
)

const (
	pyPrint    = `print({out})`
	pyPrintFmt = `print(_fmt({out}))`
)

func pyList(conv string, helpers ...string) codec {
	return codec{
		parse:   fmt.Sprintf("[%s for x in _split_list({in})]", conv),
		format:  pyPrintFmt,
		helpers: append([]string{"_split_list", "_fmt"}, helpers...),
	}
}

func pyMatrix(conv string, helpers ...string) codec {
	return codec{
		parse:   fmt.Sprintf("_parse_matrix({in}, %s)", conv),
		format:  pyPrintFmt,
		helpers: append([]string{"_split_list", "_parse_matrix", "_fmt"}, helpers...),
	}
}

var pythonTable = &table{
	codecs: map[signature.DataType]codec{
		signature.Int:    {parse: `int({in})`, format: pyPrint},
		signature.Long:   {parse: `int({in})`, format: pyPrint},
		signature.Double: {parse: `float({in})`, format: pyPrint},
		signature.Float:  {parse: `float({in})`, format: pyPrint},
		signature.Bool:   {parse: `{in}.strip().lower() == "true"`, format: `print("true" if {out} else "false")`},
		signature.Char:   {parse: `_unquote({in})[:1]`, format: pyPrint, helpers: []string{"_unquote"}},
		signature.String: {parse: `_unquote({in})`, format: pyPrint, helpers: []string{"_unquote"}},

		signature.ArrayInt:    pyList("int(x)"),
		signature.ArrayLong:   pyList("int(x)"),
		signature.ArrayDouble: pyList("float(x)"),
		signature.ArrayFloat:  pyList("float(x)"),
		signature.ArrayBool:   pyList(`x.lower() == "true"`),
		signature.ArrayChar: {
			parse:   `[_unquote(x)[:1] for x in _split_list({in})]`,
			format:  `print("[" + ",".join({out}) + "]")`,
			helpers: []string{"_split_list", "_unquote"},
		},
		signature.ArrayString: pyList("_unquote(x)", "_unquote"),

		signature.ListInt:    pyList("int(x)"),
		signature.ListLong:   pyList("int(x)"),
		signature.ListDouble: pyList("float(x)"),
		signature.ListString: pyList("_unquote(x)", "_unquote"),

		signature.Array2DInt:    pyMatrix("int"),
		signature.Array2DLong:   pyMatrix("int"),
		signature.Array2DString: pyMatrix("_unquote", "_unquote"),
		signature.MatrixInt:     pyMatrix("int"),
		signature.MatrixLong:    pyMatrix("int"),
		signature.MatrixString:  pyMatrix("_unquote", "_unquote"),
	},
	helpers: []helper{
		{"_split_list", pySplitList},
		{"_unquote", pyUnquote},
		{"_parse_matrix", pyParseMatrix},
		{"_fmt", pyFmt},
	},
}

type Python struct {
	base
}

func NewPython() *Python {
	return &Python{base: base{
		language: "python",
		parser:   signature.Python,
		table:    pythonTable,
		imports:  "import re\nimport sys\nfrom typing import *",
	}}
}

// Build calls Solution().name(...) when the declaration took self and the
// free function otherwise.
func (py *Python) Build(sig *signature.MethodSignature, userCode string) (*Program, error) {
	if err := py.check(sig); err != nil {
		return nil, err
	}

	p := &Program{Language: py.language}
	p.add(SectionImports, py.Imports())
	p.add(SectionUserCode, strings.TrimSpace(userCode))
	if helpers := py.HelperCode(sig.Types()); helpers != "" {
		p.add(SectionHelpers, strings.ReplaceAll(helpers, "\n\n", "\n\n\n"))
	}
	p.add(SectionEntryOpen, fmt.Sprintf("def _judge_main():\n    _lines = sys.stdin.read().split(\"\\n\") + [\"\"] * %d",
		len(sig.Params)))

	for i, param := range sig.Params {
		expr, err := py.InputParseExpr(param.DataType, fmt.Sprintf("_lines[%d]", i))
		if err != nil {
			return nil, err
		}
		p.add(SectionInput, fmt.Sprintf("    %s = %s", param.Name, expr))
	}

	call := fmt.Sprintf("%s(%s)", sig.Name, argList(sig))
	if sig.Receiver {
		call = "Solution()." + call
	}
	if sig.Void {
		p.add(SectionCall, "    "+call)
	} else {
		p.add(SectionCall, "    _result = "+call)
		out, err := py.OutputFormatStmt(sig.Return, "_result")
		if err != nil {
			return nil, err
		}
		p.add(SectionOutput, indent(out, "    "))
	}

	p.add(SectionEntryClose, "\n\nif __name__ == \"__main__\":\n    _judge_main()")
	return p, nil
}
