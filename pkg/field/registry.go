package field

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Constructor builds a fresh Kind instance for one field.
type Constructor func() Kind

// Registry resolves declared type names to Kind constructors. It is safe for
// concurrent use; the process-wide default registry is read-only after init.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Constructor)}
}

// Register adds a constructor under name. Duplicate names return an error.
func (r *Registry) Register(name string, ctor Constructor) error {
	if ctor == nil {
		return fmt.Errorf("field registry: constructor is required")
	}
	key := normalizeKindName(name)
	if key == "" {
		return fmt.Errorf("field registry: kind name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[key]; exists {
		return fmt.Errorf("field registry: kind %q already registered", key)
	}
	r.kinds[key] = ctor
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(name string, ctor Constructor) {
	if err := r.Register(name, ctor); err != nil {
		panic(err)
	}
}

// New instantiates the kind registered under name.
func (r *Registry) New(name string) (Kind, error) {
	key := normalizeKindName(name)
	if key == "" {
		return nil, fmt.Errorf("field registry: kind name is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ctor, ok := r.kinds[key]
	if !ok {
		return nil, fmt.Errorf("field registry: kind %q not found", key)
	}
	return ctor(), nil
}

// Has reports whether a kind is registered.
func (r *Registry) Has(name string) bool {
	key := normalizeKindName(name)
	if key == "" {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.kinds[key]
	return ok
}

// List returns the sorted registered kind names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeKindName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry pre-populated with the built-in
// kinds.
func Default() *Registry { return defaultRegistry }

// NewPassword returns the password text kind. The form layer additionally
// flags fields of this kind so they never appear in round-trip maps.
func NewPassword() Kind { return TextKind{base{name: "password"}} }

// NewReadOnly returns the read-only display kind.
func NewReadOnly() Kind { return TextKind{base{name: "readonly"}} }

func init() {
	defaultRegistry.MustRegister("text", NewText)
	defaultRegistry.MustRegister("textarea", NewTextArea)
	defaultRegistry.MustRegister("hidden", NewHidden)
	defaultRegistry.MustRegister("password", NewPassword)
	defaultRegistry.MustRegister("readonly", NewReadOnly)
	defaultRegistry.MustRegister("integer", NewInteger)
	defaultRegistry.MustRegister("posinteger", NewPosInteger)
	defaultRegistry.MustRegister("number", NewNumber)
	defaultRegistry.MustRegister("boolean", NewBoolean)
	defaultRegistry.MustRegister("select", NewSelect)
	defaultRegistry.MustRegister("multiple", NewMultiple)
	defaultRegistry.MustRegister("date", NewDate)
	defaultRegistry.MustRegister("datesplit", NewDateSplit)
	defaultRegistry.MustRegister("email", NewEmail)
	defaultRegistry.MustRegister("url", NewURL)
}
