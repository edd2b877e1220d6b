package node

import (
	"fmt"
	"sort"
	"sync"
)

type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]Node)}
}

func (r *Registry) Register(n Node) error {
	desc := n.Describe()
	if desc.Type == "" {
		return fmt.Errorf("node descriptor has empty type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[desc.Type]; exists {
		return fmt.Errorf("node type %q already registered", desc.Type)
	}
	r.nodes[desc.Type] = n
	return nil
}

func (r *Registry) MustRegister(nodes ...Node) {
	for _, n := range nodes {
		if err := r.Register(n); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Lookup(typeName string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[typeName]
	return n, ok
}

func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.nodes))
	for _, n := range r.nodes {
		descs = append(descs, n.Describe())
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Type < descs[j].Type })
	return descs
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.nodes)
}
