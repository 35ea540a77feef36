package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownProvider is returned by Registry.Get for unregistered names
var ErrUnknownProvider = errors.New("unknown provider")

// Registry resolves provider names, and their aliases, to backends
type Registry struct {
	providers map[string]Provider
	aliases   map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		aliases:   make(map[string]string),
	}
}

// Register adds a provider under its name and any extra aliases.
// Names are case-insensitive.
func (r *Registry) Register(provider Provider, aliases ...string) {
	name := strings.ToLower(provider.Name())
	r.providers[name] = provider
	for _, alias := range aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
}

// Get resolves name or an alias to its provider
func (r *Registry) Get(name string) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	if provider, ok := r.providers[key]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("%w %q, choose one of %s", ErrUnknownProvider, name, strings.Join(r.List(), ", "))
}

// List returns the registered provider names, sorted, without aliases
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
