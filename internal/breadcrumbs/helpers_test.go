// Test helpers shared by the breadcrumbs tests.
package breadcrumbs

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// item is the entity type used throughout the engine tests.
type item struct {
	ID     string  `json:"id"`
	Parent *string `json:"parent"`
	Name   string  `json:"name"`
}

// node builds a Node; an empty parent makes a root.
func node(id, parent string) Node[item] {
	it := item{ID: id, Name: "name-" + id}
	n := Node[item]{ID: id, Entity: it}
	if parent != "" {
		p := parent
		n.ParentID = &p
		n.Entity.Parent = &p
	}
	return n
}

// malformed builds a node whose source record had no parent field.
func malformed(id string) Node[item] {
	n := node(id, "")
	n.ParentMissing = true
	return n
}

func ids(nodes []Node[item]) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

// sampleTree is A -> A1 -> A12 and A -> A2.
func sampleTree() []Node[item] {
	return []Node[item]{
		node("A", ""),
		node("A1", "A"),
		node("A12", "A1"),
		node("A2", "A"),
	}
}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

// fakeSource serves fixed scopes and can fail selected ones.
type fakeSource struct {
	mu       sync.Mutex
	order    []string
	scopes   map[string][]Node[item]
	failures map[string]error
	listErr  error
	calls    []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		scopes:   make(map[string][]Node[item]),
		failures: make(map[string]error),
	}
}

func (f *fakeSource) add(scope string, nodes ...Node[item]) *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.scopes[scope]; !ok {
		f.order = append(f.order, scope)
	}
	f.scopes[scope] = nodes
	return f
}

func (f *fakeSource) fail(scope string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[scope] = err
}

func (f *fakeSource) ListScopes(_ context.Context, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := append([]string(nil), f.order...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSource) ListEntities(_ context.Context, scope string) ([]Node[item], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scope)
	if err := f.failures[scope]; err != nil {
		return nil, err
	}
	return append([]Node[item](nil), f.scopes[scope]...), nil
}

func (f *fakeSource) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

const zapWarn = zapcore.WarnLevel
