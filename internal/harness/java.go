package harness

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/itstheanurag/codejudge/internal/signature"
)

// JavaEntryClass is the public class the Java harness declares, which also
// names the source file.
const JavaEntryClass = "Main"

var publicClass = regexp.MustCompile(`(?m)^([ \t]*)public\s+((?:final\s+|abstract\s+)*)class\s+`)

const (
	javaSplitList = `    static String[] splitList(String s) {
        s = s.trim();
        if (s.startsWith("[")) s = s.substring(1);
        if (s.endsWith("]")) s = s.substring(0, s.length() - 1);
        s = s.trim();
        if (s.isEmpty()) return new String[0];
        String[] parts = s.split(",", -1);
        for (int i = 0; i < parts.length; i++) parts[i] = parts[i].trim();
        return parts;
    }`

	javaUnquote = `    static String unquote(String s) {
        s = s.trim();
        if (s.length() >= 2 && s.charAt(0) == '"' && s.charAt(s.length() - 1) == '"') {
            return s.substring(1, s.length() - 1);
        }
        return s;
    }`

	javaSplitRows = `    static String[] splitRows(String s) {
        s = s.trim();
        if (s.startsWith("[")) s = s.substring(1);
        if (s.endsWith("]")) s = s.substring(0, s.length() - 1);
        s = s.trim();
        if (s.isEmpty()) return new String[0];
        return s.split("\\]\\s*,\\s*\\[", -1);
    }`

	javaFloatArray = `    static float[] parseFloatArray(String s) {
        String[] parts = splitList(s);
        float[] out = new float[parts.length];
        for (int i = 0; i < parts.length; i++) out[i] = Float.parseFloat(parts[i]);
        return out;
    }`

	javaBoolArray = `    static boolean[] parseBoolArray(String s) {
        String[] parts = splitList(s);
        boolean[] out = new boolean[parts.length];
        for (int i = 0; i < parts.length; i++) out[i] = Boolean.parseBoolean(parts[i]);
        return out;
    }`

	javaCharArray = `    static char[] parseCharArray(String s) {
        String[] parts = splitList(s);
        char[] out = new char[parts.length];
        for (int i = 0; i < parts.length; i++) out[i] = unquote(parts[i].replace('\'', '"')).charAt(0);
        return out;
    }`

	java2DInt = `    static int[][] parse2DInt(String s) {
        String[] rows = splitRows(s);
        int[][] out = new int[rows.length][];
        for (int i = 0; i < rows.length; i++) {
            out[i] = Arrays.stream(splitList(rows[i])).mapToInt(Integer::parseInt).toArray();
        }
        return out;
    }`

	java2DLong = `    static long[][] parse2DLong(String s) {
        String[] rows = splitRows(s);
        long[][] out = new long[rows.length][];
        for (int i = 0; i < rows.length; i++) {
            out[i] = Arrays.stream(splitList(rows[i])).mapToLong(Long::parseLong).toArray();
        }
        return out;
    }`

	java2DString = `    static String[][] parse2DString(String s) {
        String[] rows = splitRows(s);
        String[][] out = new String[rows.length][];
        for (int i = 0; i < rows.length; i++) {
            out[i] = Arrays.stream(splitList(rows[i])).map(JudgeIO::unquote).toArray(String[]::new);
        }
        return out;
    }`

	javaMatrixInt = `    static List<List<Integer>> parseMatrixInt(String s) {
        List<List<Integer>> out = new ArrayList<>();
        for (String row : splitRows(s)) {
            out.add(Arrays.stream(splitList(row)).map(Integer::valueOf).collect(Collectors.toCollection(ArrayList::new)));
        }
        return out;
    }`

	javaMatrixLong = `    static List<List<Long>> parseMatrixLong(String s) {
        List<List<Long>> out = new ArrayList<>();
        for (String row : splitRows(s)) {
            out.add(Arrays.stream(splitList(row)).map(Long::valueOf).collect(Collectors.toCollection(ArrayList::new)));
        }
        return out;
    }`

	javaMatrixString = `    static List<List<String>> parseMatrixString(String s) {
        List<List<String>> out = new ArrayList<>();
        for (String row : splitRows(s)) {
            out.add(Arrays.stream(splitList(row)).map(JudgeIO::unquote).collect(Collectors.toCollection(ArrayList::new)));
        }
        return out;
    }`

	javaRender = `    static String render(Object v) {
        if (v == null) return "null";
        if (v instanceof String) return "\"" + v + "\"";
        if (v instanceof Collection) {
            StringBuilder sb = new StringBuilder("[");
            boolean first = true;
            for (Object o : (Collection<?>) v) {
                if (!first) sb.append(',');
                sb.append(render(o));
                first = false;
            }
            return sb.append(']').toString();
        }
        if (v.getClass().isArray()) {
            StringBuilder sb = new StringBuilder("[");
            int n = java.lang.reflect.Array.getLength(v);
            for (int i = 0; i < n; i++) {
                if (i > 0) sb.append(',');
                sb.append(render(java.lang.reflect.Array.get(v, i)));
            }
            return sb.append(']').toString();
        }
        return String.valueOf(v);
    }`
)

const (
	javaJoinNumbers = `System.out.println(Arrays.stream({out}).mapToObj(String::valueOf).collect(Collectors.joining(",", "[", "]")));`
	javaPrint       = `System.out.println({out});`
	javaPrintRender = `System.out.println(JudgeIO.render({out}));`
)

var javaTable = &table{
	codecs: map[signature.DataType]codec{
		signature.Int:    {parse: `Integer.parseInt({in}.trim())`, format: javaPrint},
		signature.Long:   {parse: `Long.parseLong({in}.trim())`, format: javaPrint},
		signature.Double: {parse: `Double.parseDouble({in}.trim())`, format: javaPrint},
		signature.Float:  {parse: `Float.parseFloat({in}.trim())`, format: javaPrint},
		signature.Bool:   {parse: `Boolean.parseBoolean({in}.trim())`, format: javaPrint},
		signature.Char:   {parse: `JudgeIO.unquote({in}.replace('\'', '"')).charAt(0)`, format: javaPrint, helpers: []string{"unquote"}},
		signature.String: {parse: `JudgeIO.unquote({in})`, format: javaPrint, helpers: []string{"unquote"}},

		signature.ArrayInt: {
			parse:   `Arrays.stream(JudgeIO.splitList({in})).mapToInt(Integer::parseInt).toArray()`,
			format:  javaJoinNumbers,
			helpers: []string{"splitList"},
		},
		signature.ArrayLong: {
			parse:   `Arrays.stream(JudgeIO.splitList({in})).mapToLong(Long::parseLong).toArray()`,
			format:  javaJoinNumbers,
			helpers: []string{"splitList"},
		},
		signature.ArrayDouble: {
			parse:   `Arrays.stream(JudgeIO.splitList({in})).mapToDouble(Double::parseDouble).toArray()`,
			format:  javaJoinNumbers,
			helpers: []string{"splitList"},
		},
		signature.ArrayFloat: {
			parse:   `JudgeIO.parseFloatArray({in})`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "parseFloatArray", "render"},
		},
		signature.ArrayBool: {
			parse:   `JudgeIO.parseBoolArray({in})`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "parseBoolArray", "render"},
		},
		signature.ArrayChar: {
			parse:   `JudgeIO.parseCharArray({in})`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "unquote", "parseCharArray", "render"},
		},
		signature.ArrayString: {
			parse:   `Arrays.stream(JudgeIO.splitList({in})).map(JudgeIO::unquote).toArray(String[]::new)`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "unquote", "render"},
		},

		signature.ListInt: {
			parse:   `Arrays.stream(JudgeIO.splitList({in})).map(Integer::valueOf).collect(Collectors.toCollection(ArrayList::new))`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "render"},
		},
		signature.ListLong: {
			parse:   `Arrays.stream(JudgeIO.splitList({in})).map(Long::valueOf).collect(Collectors.toCollection(ArrayList::new))`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "render"},
		},
		signature.ListDouble: {
			parse:   `Arrays.stream(JudgeIO.splitList({in})).map(Double::valueOf).collect(Collectors.toCollection(ArrayList::new))`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "render"},
		},
		signature.ListString: {
			parse:   `Arrays.stream(JudgeIO.splitList({in})).map(JudgeIO::unquote).collect(Collectors.toCollection(ArrayList::new))`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "unquote", "render"},
		},

		signature.Array2DInt: {
			parse:   `JudgeIO.parse2DInt({in})`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "splitRows", "parse2DInt", "render"},
		},
		signature.Array2DLong: {
			parse:   `JudgeIO.parse2DLong({in})`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "splitRows", "parse2DLong", "render"},
		},
		signature.Array2DString: {
			parse:   `JudgeIO.parse2DString({in})`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "unquote", "splitRows", "parse2DString", "render"},
		},

		signature.MatrixInt: {
			parse:   `JudgeIO.parseMatrixInt({in})`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "splitRows", "parseMatrixInt", "render"},
		},
		signature.MatrixLong: {
			parse:   `JudgeIO.parseMatrixLong({in})`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "splitRows", "parseMatrixLong", "render"},
		},
		signature.MatrixString: {
			parse:   `JudgeIO.parseMatrixString({in})`,
			format:  javaPrintRender,
			helpers: []string{"splitList", "unquote", "splitRows", "parseMatrixString", "render"},
		},
	},
	helpers: []helper{
		{"splitList", javaSplitList},
		{"unquote", javaUnquote},
		{"splitRows", javaSplitRows},
		{"parseFloatArray", javaFloatArray},
		{"parseBoolArray", javaBoolArray},
		{"parseCharArray", javaCharArray},
		{"parse2DInt", java2DInt},
		{"parse2DLong", java2DLong},
		{"parse2DString", java2DString},
		{"parseMatrixInt", javaMatrixInt},
		{"parseMatrixLong", javaMatrixLong},
		{"parseMatrixString", javaMatrixString},
		{"render", javaRender},
	},
	wrap: func(body string) string {
		return "final class JudgeIO {\n" + body + "\n}"
	},
}

type Java struct {
	base
}

func NewJava() *Java {
	return &Java{base: base{
		language: "java",
		parser:   signature.Java,
		table:    javaTable,
		imports:  "import java.io.*;\nimport java.util.*;\nimport java.util.stream.*;",
	}}
}

// Build wraps a user-supplied Solution class. A public modifier on the
// user's classes is dropped so that Main is the file's only public class.
func (j *Java) Build(sig *signature.MethodSignature, userCode string) (*Program, error) {
	if err := j.check(sig); err != nil {
		return nil, err
	}

	p := &Program{Language: j.language}
	p.add(SectionImports, j.Imports())
	p.add(SectionUserCode, publicClass.ReplaceAllString(strings.TrimSpace(userCode), "${1}${2}class "))
	p.add(SectionHelpers, j.HelperCode(sig.Types()))
	p.add(SectionEntryOpen, "public class "+JavaEntryClass+" {\n"+
		"    public static void main(String[] __argv) throws Exception {\n"+
		"        BufferedReader __reader = new BufferedReader(new InputStreamReader(System.in));")

	for i, param := range sig.Params {
		line := fmt.Sprintf("__line%d", i)
		expr, err := j.InputParseExpr(param.DataType, line)
		if err != nil {
			return nil, err
		}
		p.add(SectionInput, fmt.Sprintf("        String %[1]s = __reader.readLine();\n"+
			"        if (%[1]s == null) %[1]s = \"\";\n"+
			"        %[2]s %[3]s = %[4]s;", line, param.Type, param.Name, expr))
	}

	call := fmt.Sprintf("new Solution().%s(%s)", sig.Name, argList(sig))
	if sig.Void {
		p.add(SectionCall, "        "+call+";")
	} else {
		p.add(SectionCall, fmt.Sprintf("        %s __result = %s;", sig.ReturnType, call))
		out, err := j.OutputFormatStmt(sig.Return, "__result")
		if err != nil {
			return nil, err
		}
		p.add(SectionOutput, "        "+out)
	}

	p.add(SectionEntryClose, "    }\n}")
	return p, nil
}
