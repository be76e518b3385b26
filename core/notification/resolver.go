package notification

import "sync"

// Resolver looks an entity up by ID and reports whether it still exists.
type Resolver func(id string) (interface{}, bool)

// ResolverRegistry maps related-object kinds to their lookup functions.
// Resolution failure (unknown kind, deleted target) yields no related
// object, never an error.
type ResolverRegistry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

func NewResolverRegistry() *ResolverRegistry {
	return &ResolverRegistry{resolvers: make(map[string]Resolver)}
}

func (r *ResolverRegistry) Register(kind string, resolve Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[kind] = resolve
}

func (r *ResolverRegistry) Resolve(ref *RelatedObject) (interface{}, bool) {
	if ref == nil {
		return nil, false
	}
	r.mu.RLock()
	resolve, ok := r.resolvers[ref.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return resolve(ref.ID)
}
