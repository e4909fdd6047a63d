package registry

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrTemplateNotFound is returned by catalogs for unknown template IDs.
var ErrTemplateNotFound = errors.New("template not found")

// Catalog is the read side of the named-template namespace.
type Catalog interface {
	Get(ctx context.Context, id string) (*Template, error)
	List(ctx context.Context) ([]*Template, error)
}

// Memory is an in-process catalog, used in tests and single-node setups
// where templates are declared at startup.
type Memory struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

func NewMemory(templates ...*Template) *Memory {
	m := &Memory{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		m.templates[t.ID] = t
	}
	return m
}

// Put adds or replaces a template.
func (m *Memory) Put(t *Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = t
}

func (m *Memory) Get(ctx context.Context, id string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

func (m *Memory) List(ctx context.Context) ([]*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
