package dsl

import (
	"fmt"

	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/instance"
	"github.com/aretw0/forge/pkg/registry"
)

// Catalog builds blocks from named arguments. *registry.Catalog and
// *registry.Registry satisfy it.
type Catalog interface {
	BuildNamed(typeID string, named map[string]any) (block.Block, error)
}

// Builder manages the graph construction.
type Builder struct {
	id     string
	name   string
	blocks map[string]*BlockBuilder
	order  []string
}

// New creates a new graph builder for the instance id.
func New(id string) *Builder {
	return &Builder{
		id:     id,
		blocks: make(map[string]*BlockBuilder),
	}
}

// Name sets the display name of the instance.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Add declares a block of the given type. Blocks tick in the order they are
// added. If the block already exists, it returns the existing builder.
func (b *Builder) Add(id, typeID string) *BlockBuilder {
	if bb, ok := b.blocks[id]; ok {
		return bb
	}
	bb := &BlockBuilder{
		id:     id,
		typeID: typeID,
		args:   map[string]any{registry.ParamInternalBlockID: id, registry.ParamDefaultInputText: ""},
	}
	b.blocks[id] = bb
	b.order = append(b.order, id)
	return bb
}

// Lines returns every declared line in declaration order.
func (b *Builder) Lines() []domain.Line {
	var lines []domain.Line
	for _, id := range b.order {
		lines = append(lines, b.blocks[id].lines...)
	}
	return lines
}

// Build constructs the blocks through the catalog and assembles the instance.
func (b *Builder) Build(catalog Catalog, opts ...instance.Option) (*instance.Instance, error) {
	blocks := make([]block.Block, 0, len(b.order))
	for _, id := range b.order {
		bb := b.blocks[id]
		blk, err := catalog.BuildNamed(bb.typeID, bb.args)
		if err != nil {
			return nil, fmt.Errorf("failed to build block %s: %w", id, err)
		}
		blocks = append(blocks, blk)
	}

	name := b.name
	if name == "" {
		name = b.id
	}
	return instance.New(b.id, name, blocks, b.Lines(), opts...)
}
