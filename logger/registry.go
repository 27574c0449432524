package logger

import (
	"sort"
	"sync"
)

// Component names used by this module's packages.
const (
	ComponentAuth   = "auth"
	ComponentOIDC   = "oidc"
	ComponentJWT    = "jwt"
	ComponentServer = "server"
)

var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// Register stores a named logger in the registry.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get retrieves a named logger. Unregistered names fall back to the global
// logger tagged with the requested component name.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// Registered returns the sorted names of all registered loggers.
func Registered() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.loggers))
	for name := range registry.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaults seeds the registry with component loggers derived from
// the global logger. Call it after Init.
func RegisterDefaults(names ...string) {
	if len(names) == 0 {
		names = []string{ComponentAuth, ComponentOIDC, ComponentJWT, ComponentServer}
	}
	for _, name := range names {
		Register(name, GetGlobalLogger().WithComponent(name))
	}
}
