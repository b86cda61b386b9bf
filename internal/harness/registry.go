package harness

import (
	"errors"
	"sort"
	"sync"
)

var ErrNoEmitter = errors.New("no harness emitter for language")

type Registry struct {
	mu       sync.RWMutex
	emitters map[string]Emitter
}

func NewRegistry() *Registry {
	r := &Registry{
		emitters: make(map[string]Emitter),
	}
	r.Register(NewJava())
	r.Register(NewPython())
	r.Register(NewJavaScript())
	return r
}

func (r *Registry) Register(e Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitters[e.Language()] = e
}

func (r *Registry) Get(language string) (Emitter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.emitters[language]
	if !ok {
		return nil, ErrNoEmitter
	}
	return e, nil
}

func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.emitters))
	for id := range r.emitters {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
