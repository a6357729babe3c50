package ws

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/SilGosker/SimpleSockets/internal/authn"
)

// Kind describes one type of connection served by the process.
type Kind struct {
	Name    string
	Path    string
	Options Options

	// Authenticators run in order before the upgrade.
	Authenticators []authn.Authenticator

	// New returns a fresh handler for each accepted connection.
	New func() Handler
}

// Registry maps URL paths to kinds.
type Registry struct {
	mu     sync.RWMutex
	byPath map[string]*Kind
	byName map[string]*Kind
}

func NewRegistry() *Registry {
	return &Registry{byPath: map[string]*Kind{}, byName: map[string]*Kind{}}
}

// Register validates k and makes it reachable at k.Path. Options are
// completed with defaults before validation.
func (r *Registry) Register(k Kind) error {
	if strings.TrimSpace(k.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidKind)
	}
	if !strings.HasPrefix(k.Path, "/") {
		return fmt.Errorf("%w %s: path must start with /", ErrInvalidKind, k.Name)
	}
	if k.New == nil {
		return fmt.Errorf("%w %s: New is required", ErrInvalidKind, k.Name)
	}
	k.Options = k.Options.withDefaults()
	if err := k.Options.Validate(); err != nil {
		return fmt.Errorf("kind %s: %w", k.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPath[k.Path]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, k.Path)
	}
	if _, ok := r.byName[k.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, k.Name)
	}
	r.byPath[k.Path] = &k
	r.byName[k.Name] = &k
	return nil
}

// MustRegister is Register for setup code that cannot continue on error.
func (r *Registry) MustRegister(k Kind) {
	if err := r.Register(k); err != nil {
		panic(err)
	}
}

// Lookup returns the kind served at path.
func (r *Registry) Lookup(path string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byPath[path]
	if !ok {
		return Kind{}, false
	}
	return *k, true
}

// Kinds lists registered kinds ordered by path.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.byPath))
	for _, k := range r.byPath {
		out = append(out, *k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
