package languages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByAlias(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"javascript", "js", "JS", " node "} {
		lang, err := r.Get(id)
		require.NoError(t, err, id)
		assert.Equal(t, "javascript", lang.ID)
	}

	_, err := r.Get("cpp")
	require.ErrorIs(t, err, ErrLanguageNotFound)
}

func TestJavaSourceFileFollowsPublicClass(t *testing.T) {
	r := NewRegistry()
	java, err := r.Get("java")
	require.NoError(t, err)

	rt := java.Resolve("class Solution {}\n\npublic class Main {\n}")
	assert.Equal(t, "Main.java", rt.SourceFile)
	assert.Equal(t, []string{"javac", "-d", ".", "Main.java"}, rt.Compile)
	assert.Equal(t, "Main", rt.Run[len(rt.Run)-1])

	assert.Equal(t, "Solution.java", java.SourceFileFor("class Solution {}"))
}

func TestInterpretedLanguagesHaveNoCompileStep(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"python", "javascript"} {
		lang, err := r.Get(id)
		require.NoError(t, err)
		rt := lang.Resolve("anything")
		assert.Nil(t, rt.Compile, id)
		assert.Contains(t, rt.Run, rt.SourceFile, id)
	}
}

func TestSetImage(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.SetImage("python", "python:3.12-slim"))
	lang, err := r.Get("py")
	require.NoError(t, err)
	assert.Equal(t, "python:3.12-slim", lang.Config.Image)
	assert.Len(t, r.Images(), 3)

	require.ErrorIs(t, r.SetImage("ruby", "ruby"), ErrLanguageNotFound)
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		lang    string
		stderr  string
		compile bool
	}{
		{"java", "Main.java:3: error: ';' expected", true},
		{"java", "Exception in thread \"main\" java.lang.ArithmeticException: / by zero", false},
		{"java", "error: something\njava.lang.NullPointerException", false},
		{"python", "  File \"solution.py\", line 2\n    def f(\nSyntaxError: invalid syntax", true},
		{"python", "IndentationError: unexpected indent", true},
		{"python", "ZeroDivisionError: division by zero", false},
		{"javascript", "SyntaxError: Unexpected token '}'", true},
		{"javascript", "ReferenceError: x is not defined\nSyntaxError", false},
		{"javascript", "TypeError: undefined is not a function", false},
	}
	r := NewRegistry()
	for _, tt := range tests {
		lang, err := r.Get(tt.lang)
		require.NoError(t, err)
		assert.Equal(t, tt.compile, lang.IsCompilationError(tt.stderr), "%s: %q", tt.lang, tt.stderr)
	}
	assert.False(t, Language{}.IsCompilationError("error:"))
}
