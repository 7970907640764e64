package dialect

import (
	"sort"
	"sync"

	"github.com/orionsql/semlayer/internal/model"
)

// Registry is a process-wide, read-only-after-Bootstrap map of dialect
// name to implementation. The core never depends on import-time side
// effects to populate it; Bootstrap must run once before the first
// compile call (spec's design note on dialect self-registration).
type Registry struct {
	mu       sync.RWMutex
	dialects map[string]Dialect
}

var defaultRegistry = &Registry{dialects: map[string]Dialect{}}

// Bootstrap constructs and registers every built-in dialect. Calling it
// more than once is harmless (later calls simply overwrite with fresh
// instances).
func Bootstrap() *Registry {
	r := defaultRegistry
	r.Register(NewPostgres())
	r.Register(NewSnowflake())
	r.Register(NewClickHouse())
	r.Register(NewDremio())
	r.Register(NewDatabricks())
	return r
}

// Register inserts d into the registry under d.Name().
func (r *Registry) Register(d Dialect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialects[d.Name()] = d
}

// Get returns the named dialect, or UNSUPPORTED_DIALECT if it was never
// registered.
func (r *Registry) Get(name string) (Dialect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dialects[name]
	if !ok {
		return nil, model.NewCompileErrorf(model.ErrUnsupportedDialect, "unsupported dialect %q", name)
	}
	return d, nil
}

// Names returns every registered dialect name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.dialects))
	for n := range r.dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns the process-wide registry, bootstrapping it on first use.
func Default() *Registry {
	defaultRegistry.mu.RLock()
	empty := len(defaultRegistry.dialects) == 0
	defaultRegistry.mu.RUnlock()
	if empty {
		Bootstrap()
	}
	return defaultRegistry
}
