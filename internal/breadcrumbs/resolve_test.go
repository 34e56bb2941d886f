// Tests for ancestor resolution, including cycles and dangling parents.
package breadcrumbs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func indexOf(nodes ...Node[item]) map[string]Node[item] {
	index := make(map[string]Node[item], len(nodes))
	for _, n := range nodes {
		index[n.ID] = n
	}
	return index
}

func TestResolveAncestors(t *testing.T) {
	tests := []struct {
		name      string
		nodes     []Node[item]
		start     string
		want      []string
		wantWarns int
	}{
		{
			name:  "deep node resolves nearest first",
			nodes: sampleTree(),
			start: "A12",
			want:  []string{"A1", "A"},
		},
		{
			name:  "root has no ancestors",
			nodes: sampleTree(),
			start: "A",
			want:  []string{},
		},
		{
			name:      "unknown start warns and returns empty",
			nodes:     sampleTree(),
			start:     "nope",
			want:      []string{},
			wantWarns: 1,
		},
		{
			name:  "dangling parent truncates silently",
			nodes: []Node[item]{node("B", "ghost"), node("B1", "B")},
			start: "B1",
			want:  []string{"B"},
		},
		{
			name:      "missing parent field truncates with warning",
			nodes:     []Node[item]{malformed("M"), node("M1", "M"), node("M2", "M1")},
			start:     "M2",
			want:      []string{"M1", "M"},
			wantWarns: 1,
		},
		{
			name:      "cycle stops with warning",
			nodes:     []Node[item]{node("X", "Z"), node("Y", "X"), node("Z", "Y")},
			start:     "X",
			want:      []string{"Z", "Y"},
			wantWarns: 1,
		},
		{
			name:      "self loop stops immediately",
			nodes:     []Node[item]{node("S", "S")},
			start:     "S",
			want:      []string{},
			wantWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observedLogger()
			got := ResolveAncestors(indexOf(tt.nodes...), tt.start, log)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, tt.wantWarns, logs.FilterLevelExact(zapWarn).Len())
		})
	}
}

func TestResolveAncestors_NilLogger(t *testing.T) {
	got := ResolveAncestors(indexOf(sampleTree()...), "missing", nil)
	assert.Empty(t, got)
}

func TestResolveAncestors_Deterministic(t *testing.T) {
	index := indexOf(sampleTree()...)
	first := ResolveAncestors(index, "A12", nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ResolveAncestors(index, "A12", nil))
	}
}
