package languages

import (
	"regexp"
	"strings"
)

type RuntimeConfig struct {
	Image      string
	SourceFile string
	// Commands may use {file} for the source file name and {name} for the
	// file name without its extension.
	CompileCommand []string
	RunCommand     []string
	Env            []string
}

// Classifier reports whether a failed run's stderr is a compilation error
// rather than a runtime error.
type Classifier func(stderr string) bool

type Language struct {
	ID      string
	Name    string
	Aliases []string
	Config  RuntimeConfig
	// EntryPoint, when set, names the source file after the first public
	// top-level type it captures.
	EntryPoint *regexp.Regexp
	Classify   Classifier
}

// Runtime is a language's commands resolved for one piece of source code.
type Runtime struct {
	Image      string
	SourceFile string
	Compile    []string
	Run        []string
	Env        []string
}

func (l Language) Resolve(code string) Runtime {
	file := l.SourceFileFor(code)
	name := strings.TrimSuffix(file, extension(file))
	return Runtime{
		Image:      l.Config.Image,
		SourceFile: file,
		Compile:    expand(l.Config.CompileCommand, file, name),
		Run:        expand(l.Config.RunCommand, file, name),
		Env:        append([]string(nil), l.Config.Env...),
	}
}

func (l Language) SourceFileFor(code string) string {
	if l.EntryPoint == nil {
		return l.Config.SourceFile
	}
	m := l.EntryPoint.FindStringSubmatch(code)
	if m == nil {
		return l.Config.SourceFile
	}
	return m[1] + extension(l.Config.SourceFile)
}

// IsCompilationError applies the language classifier; languages without one
// never report compilation errors.
func (l Language) IsCompilationError(stderr string) bool {
	if l.Classify == nil {
		return false
	}
	return l.Classify(stderr)
}

func expand(cmd []string, file, name string) []string {
	if len(cmd) == 0 {
		return nil
	}
	out := make([]string, len(cmd))
	r := strings.NewReplacer("{file}", file, "{name}", name)
	for i, c := range cmd {
		out[i] = r.Replace(c)
	}
	return out
}

func extension(file string) string {
	if i := strings.LastIndex(file, "."); i >= 0 {
		return file[i:]
	}
	return ""
}
