package languages

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	ErrLanguageNotFound = errors.New("language not found")
)

type Registry struct {
	mu        sync.RWMutex
	languages map[string]Language
	aliases   map[string]string
}

func NewRegistry() *Registry {
	r := &Registry{
		languages: make(map[string]Language),
		aliases:   make(map[string]string),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) Register(lang Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.languages[lang.ID] = lang
	for _, a := range lang.Aliases {
		r.aliases[a] = lang.ID
	}
}

// Get resolves an id or alias, ignoring case.
func (r *Registry) Get(id string) (Language, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := strings.ToLower(strings.TrimSpace(id))
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	lang, ok := r.languages[key]
	if !ok {
		return Language{}, fmt.Errorf("%w: %q", ErrLanguageNotFound, id)
	}
	return lang, nil
}

// SetImage overrides the execution image of a registered language.
func (r *Registry) SetImage(id, image string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lang, ok := r.languages[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrLanguageNotFound, id)
	}
	lang.Config.Image = image
	r.languages[id] = lang
	return nil
}

func (r *Registry) List() []Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]Language, 0, len(r.languages))
	for _, l := range r.languages {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].ID < langs[j].ID })
	return langs
}

// Images returns every distinct execution image.
func (r *Registry) Images() []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range r.List() {
		if !seen[l.Config.Image] {
			seen[l.Config.Image] = true
			out = append(out, l.Config.Image)
		}
	}
	return out
}

func (r *Registry) registerDefaults() {
	r.Register(Language{
		ID:   "java",
		Name: "Java",
		Config: RuntimeConfig{
			Image:          "localcode-java:latest",
			SourceFile:     "Solution.java",
			CompileCommand: []string{"javac", "-d", ".", "{file}"},
			RunCommand:     []string{"java", "-XX:-UsePerfData", "-XX:+UseSerialGC", "-Xss64m", "-Djava.io.tmpdir=/sandbox", "-cp", ".", "{name}"},
		},
		EntryPoint: regexp.MustCompile(`(?m)^\s*public\s+(?:final\s+|abstract\s+)*class\s+(\w+)`),
		Classify:   javaCompileError,
	})

	r.Register(Language{
		ID:      "python",
		Name:    "Python",
		Aliases: []string{"python3", "py"},
		Config: RuntimeConfig{
			Image:      "localcode-python:latest",
			SourceFile: "solution.py",
			RunCommand: []string{"python3", "-u", "{file}"},
			Env:        []string{"PYTHONDONTWRITEBYTECODE=1"},
		},
		Classify: pythonCompileError,
	})

	r.Register(Language{
		ID:      "javascript",
		Name:    "JavaScript",
		Aliases: []string{"js", "node"},
		Config: RuntimeConfig{
			Image:      "localcode-javascript:latest",
			SourceFile: "solution.js",
			RunCommand: []string{"node", "{file}"},
		},
		Classify: javascriptCompileError,
	})
}
