package auth

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe set of named TokenValidators.
//
//	reg := auth.NewRegistry()
//	reg.Register("oidc", verifier)
//	reg.Register("local", jwtSvc)
//	_ = reg.SetDefault("oidc")
//	v, _ := reg.Default()
type Registry struct {
	mu          sync.RWMutex
	validators  map[string]TokenValidator
	defaultName string
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]TokenValidator)}
}

// Register adds or replaces a named validator. The first registration
// becomes the default.
func (r *Registry) Register(name string, v TokenValidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[name] = v
	if r.defaultName == "" {
		r.defaultName = name
	}
}

// Get returns the validator registered under name.
func (r *Registry) Get(name string) (TokenValidator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[name]
	return v, ok
}

// MustGet is Get for wiring code; it panics if name is unknown.
func (r *Registry) MustGet(name string) TokenValidator {
	v, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("auth: validator %q not registered", name))
	}
	return v
}

// Default returns the default validator.
func (r *Registry) Default() (TokenValidator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultName == "" {
		return nil, false
	}
	v, ok := r.validators[r.defaultName]
	return v, ok
}

// DefaultName returns the name of the default validator.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// SetDefault selects an already registered validator as the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.validators[name]; !ok {
		return fmt.Errorf("auth: validator %q not registered", name)
	}
	r.defaultName = name
	return nil
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.validators))
	for name := range r.validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
