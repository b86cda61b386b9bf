package languages

import "strings"

// The markers below are best effort. A failing run only exposes stderr, so
// some outputs will be misclassified.

func javaCompileError(stderr string) bool {
	return strings.Contains(stderr, "error:") && !strings.Contains(stderr, "Exception")
}

func pythonCompileError(stderr string) bool {
	return strings.Contains(stderr, "SyntaxError") || strings.Contains(stderr, "IndentationError")
}

func javascriptCompileError(stderr string) bool {
	return strings.Contains(stderr, "SyntaxError") && !strings.Contains(stderr, "ReferenceError")
}
