package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itstheanurag/codejudge/internal/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Canonical texts fed through identity functions. Strings avoid commas
// because the generated list parsers split on them.
var runSamples = map[signature.DataType][]string{
	signature.Int:           {"0", "-17", "2147483647"},
	signature.Long:          {"9223372036854775807", "-3"},
	signature.Double:        {"2.5", "-0.125"},
	signature.Float:         {"1.5"},
	signature.Bool:          {"true", "false"},
	signature.Char:          {"a", "#"},
	signature.String:        {"hello world", ""},
	signature.ArrayInt:      {"[]", "[1,2,3]"},
	signature.ArrayLong:     {"[10000000000,-1]"},
	signature.ArrayDouble:   {"[0.5,1.25]"},
	signature.ArrayFloat:    {"[3.5]"},
	signature.ArrayBool:     {"[true,false,true]"},
	signature.ArrayChar:     {"[a,b,c]"},
	signature.ArrayString:   {`["a","bc"]`, "[]"},
	signature.ListInt:       {"[4,5]", "[]"},
	signature.ListLong:      {"[1]"},
	signature.ListDouble:    {"[1.5,2.5]"},
	signature.ListString:    {`["x"]`},
	signature.Array2DInt:    {"[[1,2],[3,4]]", "[]", "[[]]"},
	signature.Array2DLong:   {"[[10000000000],[2,3]]"},
	signature.Array2DString: {`[["a","b"],["c"]]`},
	signature.MatrixInt:     {"[[1,2],[3,4]]"},
	signature.MatrixLong:    {"[[7]]"},
	signature.MatrixString:  {`[["a","b"],["c"]]`},
}

// One spelling per type each language's type table accepts.
var spellings = map[string]map[signature.DataType]string{
	"java": {
		signature.Int:           "int",
		signature.Long:          "long",
		signature.Double:        "double",
		signature.Float:         "float",
		signature.Bool:          "boolean",
		signature.Char:          "char",
		signature.String:        "String",
		signature.ArrayInt:      "int[]",
		signature.ArrayLong:     "long[]",
		signature.ArrayDouble:   "double[]",
		signature.ArrayFloat:    "float[]",
		signature.ArrayBool:     "boolean[]",
		signature.ArrayChar:     "char[]",
		signature.ArrayString:   "String[]",
		signature.ListInt:       "List<Integer>",
		signature.ListLong:      "List<Long>",
		signature.ListDouble:    "List<Double>",
		signature.ListString:    "List<String>",
		signature.Array2DInt:    "int[][]",
		signature.Array2DLong:   "long[][]",
		signature.Array2DString: "String[][]",
		signature.MatrixInt:     "List<List<Integer>>",
		signature.MatrixLong:    "List<List<Long>>",
		signature.MatrixString:  "List<List<String>>",
	},
	"python": {
		signature.Int:          "int",
		signature.Double:       "float",
		signature.Bool:         "bool",
		signature.String:       "str",
		signature.ArrayBool:    "List[bool]",
		signature.ListInt:      "List[int]",
		signature.ListDouble:   "List[float]",
		signature.ListString:   "List[str]",
		signature.MatrixInt:    "List[List[int]]",
		signature.MatrixString: "List[List[str]]",
	},
	"javascript": {
		signature.Int:           "number",
		signature.Long:          "bigint",
		signature.Bool:          "boolean",
		signature.String:        "string",
		signature.ArrayInt:      "number[]",
		signature.ArrayLong:     "bigint[]",
		signature.ArrayBool:     "boolean[]",
		signature.ArrayString:   "string[]",
		signature.Array2DInt:    "number[][]",
		signature.Array2DLong:   "bigint[][]",
		signature.Array2DString: "string[][]",
	},
}

func identitySource(language, spelling string) string {
	switch language {
	case "java":
		return fmt.Sprintf("class Solution {\n    public %[1]s identity(%[1]s v) {\n        return v;\n    }\n}", spelling)
	case "python":
		return fmt.Sprintf("class Solution:\n    def identity(self, v: %[1]s) -> %[1]s:\n        return v\n", spelling)
	default:
		return fmt.Sprintf("/**\n * @param {%[1]s} v\n * @return {%[1]s}\n */\nfunction identity(v) {\n  return v;\n}", spelling)
	}
}

// runner compiles src once and returns a function running it on stdin.
type runner func(t *testing.T, src string) func(stdin string) string

func command(t *testing.T, dir, stdin string, name string, args ...string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		t.Fatalf("%s failed: %v\n%s", name, err, stderr.String())
	}
	require.NoError(t, err)
	return string(out)
}

func interpreted(binary, file string) runner {
	return func(t *testing.T, src string) func(string) string {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(src), 0o644))
		return func(stdin string) string {
			return command(t, dir, stdin, binary, file)
		}
	}
}

func javaRunner(t *testing.T, src string) func(string) string {
	dir := t.TempDir()
	file := JavaEntryClass + ".java"
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(src), 0o644))
	command(t, dir, "", "javac", "-d", ".", file)
	return func(stdin string) string {
		return command(t, dir, stdin, "java", "-cp", ".", JavaEntryClass)
	}
}

func TestGeneratedProgramsRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("runs external interpreters")
	}

	languages := []struct {
		emitter Emitter
		tools   []string
		run     runner
	}{
		{NewPython(), []string{"python3"}, interpreted("python3", "solution.py")},
		{NewJavaScript(), []string{"node"}, interpreted("node", "solution.js")},
		{NewJava(), []string{"javac", "java"}, javaRunner},
	}

	for _, lang := range languages {
		t.Run(lang.emitter.Language(), func(t *testing.T) {
			for _, tool := range lang.tools {
				if _, err := exec.LookPath(tool); err != nil {
					t.Skipf("%s not installed", tool)
				}
			}

			for _, dt := range signature.All() {
				spelling, ok := spellings[lang.emitter.Language()][dt]
				if !ok {
					continue
				}
				t.Run(dt.String(), func(t *testing.T) {
					mapped, err := lang.emitter.MapType(spelling)
					require.NoError(t, err)
					require.Equal(t, dt, mapped)

					code := identitySource(lang.emitter.Language(), spelling)
					sig, err := lang.emitter.ParseSignature(code)
					require.NoError(t, err)
					p, err := lang.emitter.Build(sig, code)
					require.NoError(t, err)

					run := lang.run(t, p.Source())
					for _, text := range runSamples[dt] {
						got := run(text + "\n")
						assert.Equal(t, text, strings.TrimRight(got, "\r\n"), "input %q", text)
					}
				})
			}
		})
	}
}

func TestSpellingsCoverTypeTables(t *testing.T) {
	// Distinct DataTypes in each language's type table.
	supported := map[string]int{"java": 24, "python": 10, "javascript": 11}
	for _, e := range emitters() {
		t.Run(e.Language(), func(t *testing.T) {
			table := spellings[e.Language()]
			assert.Len(t, table, supported[e.Language()])
			for dt, spelling := range table {
				mapped, err := e.MapType(spelling)
				require.NoError(t, err)
				assert.Equal(t, dt, mapped)
				assert.NotEmpty(t, runSamples[dt])
			}
		})
	}
}

func TestTypedJavaScriptStarterRuns(t *testing.T) {
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node not installed")
	}

	code := `function twoSum(nums: number[], target: number): number[] {
  for (let i = 0; i < nums.length; i++) {
    for (let j = i + 1; j < nums.length; j++) {
      if (nums[i] + nums[j] === target) return [i, j];
    }
  }
  return [];
}`
	js := NewJavaScript()
	sig, err := js.ParseSignature(code)
	require.NoError(t, err)
	p, err := js.Build(sig, code)
	require.NoError(t, err)

	run := interpreted("node", "solution.js")(t, p.Source())
	assert.Equal(t, "[0,1]\n", run("[2,7,11,15]\n9\n"))
}
