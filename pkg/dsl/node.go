package dsl

import (
	"fmt"

	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/registry"
)

// BlockBuilder provides a fluent API for configuring a block.
type BlockBuilder struct {
	id     string
	typeID string
	args   map[string]any
	lines  []domain.Line
}

// Input sets the default input text.
func (n *BlockBuilder) Input(text string) *BlockBuilder {
	n.args[registry.ParamDefaultInputText] = text
	return n
}

// Arg sets an extra named construction argument.
func (n *BlockBuilder) Arg(name string, value any) *BlockBuilder {
	n.args[name] = value
	return n
}

// Go adds a normal line to the target block, followed when this block is done.
func (n *BlockBuilder) Go(target string) *BlockBuilder {
	return n.line(target, domain.LineNormal)
}

// OnFailure adds a failure line to the target block, followed when this block fails.
func (n *BlockBuilder) OnFailure(target string) *BlockBuilder {
	return n.line(target, domain.LineFailure)
}

func (n *BlockBuilder) line(target string, kind domain.LineKind) *BlockBuilder {
	l := domain.Line{ID: fmt.Sprintf("%s->%s", n.id, target), From: n.id, To: target}
	if kind == domain.LineFailure {
		l.ID += ":failure"
		l.Kind = kind
	}
	n.lines = append(n.lines, l)
	return n
}

// Args returns a copy of the named construction arguments.
func (n *BlockBuilder) Args() map[string]any {
	out := make(map[string]any, len(n.args))
	for k, v := range n.args {
		out[k] = v
	}
	return out
}
