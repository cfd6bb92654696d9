package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/forge/internal/presentation/graph"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	blocks := []domain.BlockSnapshot{
		{ID: "block-1", TypeID: "example-block-01", State: domain.StateDone},
		{ID: "block-2", TypeID: "example-block-02", State: domain.StateRunning},
		{ID: "rescue", TypeID: "example-block-02", State: domain.StateCreated},
	}
	lines := []domain.Line{
		{ID: "1-2", From: "block-1", To: "block-2"},
		{ID: "2-r", From: "block-2", To: "rescue", Kind: domain.LineFailure},
	}

	tests := []struct {
		name     string
		overlay  bool
		contains []string
		excludes []string
	}{
		{
			name: "Shapes And Sanitization",
			contains: []string{
				`block_1(("block-1 <br/> example-block-01"))`,
				`block_2["block-2 <br/> example-block-02"]`,
			},
			excludes: []string{"classDef"},
		},
		{
			name: "Line Kinds",
			contains: []string{
				"block_1 --> block_2",
				"block_2 -. failure .-> rescue",
			},
		},
		{
			name:    "Overlay",
			overlay: true,
			contains: []string{
				"class block_1 done;",
				"class block_2 running;",
			},
			excludes: []string{"class rescue"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(blocks, lines, tt.overlay)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}
