package menu

import (
	"net/http"
	"strings"
	"sync"
)

// Constructor builds a view handler. Construction may be deferred work
// (template parsing, data wiring); the compiler invokes constructors
// concurrently and waits for all of them before publishing a tree.
type Constructor func() http.Handler

// Registry maps known page identifiers to view constructors, and holds the
// separate fixed namespace topic sub-views are resolved from. It replaces
// string-keyed dynamic module loading with an explicit startup-time table: an
// identifier with no registration resolves to nil rather than failing the
// compilation.
type Registry struct {
	mu     sync.RWMutex
	pages  map[string]Constructor
	topics map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		pages:  make(map[string]Constructor),
		topics: make(map[string]Constructor),
	}
}

// RegisterPage binds a view name ("Articles", "Roles") to its constructor.
func (r *Registry) RegisterPage(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[name] = c
}

// RegisterTopicView binds one of the fixed topic sub-views ("pool",
// "follow") to its constructor.
func (r *Registry) RegisterTopicView(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[name] = c
}

// ResolvePage looks a page identifier up by its view name: the identifier
// with its first character upper-cased ("articles" -> "Articles").
func (r *Registry) ResolvePage(identifier string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.pages[ViewName(identifier)]
	return c, ok
}

// ResolveTopicView looks a fixed topic sub-view up by name.
func (r *Registry) ResolveTopicView(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.topics[name]
	return c, ok
}

// ViewName derives the view name for an identifier: first character
// upper-cased, remainder untouched.
func ViewName(identifier string) string {
	if identifier == "" {
		return ""
	}
	return strings.ToUpper(identifier[:1]) + identifier[1:]
}
