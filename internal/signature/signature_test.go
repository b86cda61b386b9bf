package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitParams(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "int n", []string{"int n"}},
		{"scalars", "int a, long b", []string{"int a", "long b"}},
		{"nested generic", "List<List<Integer>> grid, int k", []string{"List<List<Integer>> grid", "int k"}},
		{"map generic", "Map<String, Integer> m, String s", []string{"Map<String, Integer> m", "String s"}},
		{"python nested", "grid: List[List[int]], k: int", []string{"grid: List[List[int]]", "k: int"}},
		{"trailing comma", "int a,", []string{"int a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitParams(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitFragments(t *testing.T) {
	typ, name, err := SplitTrailing("  int[][]   matrix ")
	require.NoError(t, err)
	assert.Equal(t, "int[][]", typ)
	assert.Equal(t, "matrix", name)

	_, _, err = SplitTrailing("nums")
	require.ErrorIs(t, err, ErrBadParam)

	name, typ, err = SplitLeading("k: int = 3")
	require.NoError(t, err)
	assert.Equal(t, "k", name)
	assert.Equal(t, "int", typ)

	_, _, err = SplitLeading("nums")
	require.ErrorIs(t, err, ErrBadParam)
}

func TestMapType(t *testing.T) {
	tests := []struct {
		parser   *Parser
		spelling string
		want     DataType
	}{
		{Java, "int", Int},
		{Java, "Integer", Int},
		{Java, "boolean[]", ArrayBool},
		{Java, "List< Integer >", ListInt},
		{Java, "ArrayList<String>", ListString},
		{Java, "List<List<Long>>", MatrixLong},
		{Java, "String [ ] [ ]", Array2DString},
		{Python, "List[List[int]]", MatrixInt},
		{Python, "list[str]", ListString},
		{Python, "float", Double},
		{JavaScript, "number[][]", Array2DInt},
		{JavaScript, "Array<bigint>", ArrayLong},
	}
	for _, tt := range tests {
		t.Run(tt.parser.Language()+"/"+tt.spelling, func(t *testing.T) {
			got, err := tt.parser.MapType(tt.spelling)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Java.MapType("Map<String,Integer>")
	require.ErrorIs(t, err, ErrUnknownType)
	assert.Contains(t, err.Error(), "Map<String,Integer>")
}

func TestParseJava(t *testing.T) {
	src := `class Solution {
    public int[][] rotate(int[][] grid, List<List<Integer>> extra, final int k) {
        return grid;
    }
}`
	sig, err := Java.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "rotate", sig.Name)
	assert.Equal(t, Array2DInt, sig.Return)
	assert.True(t, sig.Receiver)
	require.Len(t, sig.Params, 3)
	assert.Equal(t, Param{Type: "int[][]", Name: "grid", DataType: Array2DInt}, sig.Params[0])
	assert.Equal(t, MatrixInt, sig.Params[1].DataType)
	assert.Equal(t, Param{Type: "int", Name: "k", DataType: Int}, sig.Params[2])
	assert.Equal(t, []DataType{Array2DInt, MatrixInt, Int}, sig.Types())
}

func TestParseJavaSkipsConstructorsAndVoid(t *testing.T) {
	src := `class Solution {
    public Solution() {
    }
    public void touch(String s) {
    }
}`
	sig, err := Java.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "touch", sig.Name)
	assert.True(t, sig.Void)
	assert.Equal(t, []DataType{String}, sig.Types())
}

func TestParsePython(t *testing.T) {
	sig, err := Python.Parse(`class Solution:
    def twoSum(self, nums: List[int], target: int) -> List[int]:
        pass
`)
	require.NoError(t, err)
	assert.Equal(t, "twoSum", sig.Name)
	assert.True(t, sig.Receiver)
	assert.Equal(t, ListInt, sig.Return)
	require.Len(t, sig.Params, 2)
	assert.Equal(t, "nums", sig.Params[0].Name)
	assert.Equal(t, Int, sig.Params[1].DataType)

	free, err := Python.Parse("def flip(grid: List[List[str]]):\n    pass\n")
	require.NoError(t, err)
	assert.False(t, free.Receiver)
	assert.True(t, free.Void)
	assert.Equal(t, MatrixString, free.Params[0].DataType)
}

func TestParseJavaScript(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"function", "function twoSum(nums: number[], target: number): number[] {\n}"},
		{"function expression", "var twoSum = function(nums: number[], target: number): number[] {\n};"},
		{"arrow", "const twoSum = (nums: number[], target: number): number[] => {\n};"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := JavaScript.Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, "twoSum", sig.Name)
			assert.Equal(t, ArrayInt, sig.Return)
			require.Len(t, sig.Params, 2)
			assert.Equal(t, "target", sig.Params[1].Name)
		})
	}
}

func TestParseJavaScriptDocComment(t *testing.T) {
	src := `/**
 * @param {number[]} nums
 * @param {number} target
 * @return {number[]}
 */
var twoSum = function(nums, target) {
};`
	sig, err := JavaScript.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "twoSum", sig.Name)
	assert.Equal(t, ArrayInt, sig.Return)
	require.Len(t, sig.Params, 2)
	assert.Equal(t, Param{Type: "number[]", Name: "nums", DataType: ArrayInt}, sig.Params[0])
	assert.Equal(t, Int, sig.Params[1].DataType)

	void, err := JavaScript.Parse(`/** @param {string[][]} board */
function solve(board) {
}`)
	require.NoError(t, err)
	assert.True(t, void.Void)
	assert.Equal(t, Array2DString, void.Params[0].DataType)

	_, err = JavaScript.Parse(`/** @param {number} a */
function f(a, b) {
}`)
	require.ErrorIs(t, err, ErrBadParam)
}

func TestEraseAnnotations(t *testing.T) {
	tests := map[string]struct {
		src  string
		want string
	}{
		"function": {
			src: `function twoSum(nums: number[], target: number): number[] {
  return [];
}`,
			want: `function twoSum(nums, target) {
  return [];
}`,
		},
		"function expression": {
			src: `var f = function(grid: Array<Array<string>>, k: number = 2): void {
};`,
			want: `var f = function(grid, k = 2) {
};`,
		},
		"arrow": {
			src: `const f = (a: bigint): bigint => {
};`,
			want: `const f = (a) => {
};`,
		},
		"untyped": {
			src: `function f(a, b = {x: 1}) {
}`,
			want: `function f(a, b = {x: 1}) {
}`,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, JavaScript.EraseAnnotations(tt.src))
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Java.Parse("class Solution {}")
	require.ErrorIs(t, err, ErrNoSignature)

	_, err = JavaScript.Parse("function f(a, b) {\n}")
	require.ErrorIs(t, err, ErrBadParam)

	_, err = Python.Parse("def f(x: Dict[str, int]) -> int:\n")
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestTypeTableSizes(t *testing.T) {
	distinct := func(p *Parser) int {
		seen := make(map[DataType]bool)
		for _, dt := range p.types {
			seen[dt] = true
		}
		return len(seen)
	}
	assert.Equal(t, len(All()), distinct(Java))
	assert.Equal(t, 10, distinct(Python))
	assert.Equal(t, 11, distinct(JavaScript))
}

func TestDataTypeKinds(t *testing.T) {
	assert.True(t, MatrixString.Is2D())
	assert.True(t, Array2DLong.Is2D())
	assert.False(t, ListInt.Is2D())
	assert.Equal(t, Long, Array2DLong.Elem())
	assert.Equal(t, Char, Char.Elem())
	assert.False(t, Invalid.Valid())
	assert.Len(t, All(), 24)
}
