package definition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/instance"
	"gopkg.in/yaml.v3"
)

// Definition is an instance as written in a flow file.
type Definition struct {
	ID          string        `yaml:"id" json:"id" mapstructure:"id"`
	Name        string        `yaml:"name" json:"name" mapstructure:"name"`
	Description string        `yaml:"description" json:"description,omitempty" mapstructure:"description"`
	Blocks      []BlockSpec   `yaml:"blocks" json:"blocks" mapstructure:"blocks"`
	Lines       []domain.Line `yaml:"lines" json:"lines" mapstructure:"lines"`
}

// BlockSpec names a block type and its construction arguments.
// Args keys are the parameter names advertised by the registry.
type BlockSpec struct {
	Type string         `yaml:"type" json:"type" mapstructure:"type"`
	Args map[string]any `yaml:"args" json:"args" mapstructure:"args"`
}

// Builder constructs blocks from named arguments.
// *registry.Registry and *registry.Catalog satisfy it.
type Builder interface {
	BuildNamed(typeID string, named map[string]any) (block.Block, error)
}

// Load reads a flow file. Files ending in .json are decoded as JSON,
// anything else as YAML.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		var def Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		return &def, nil
	}
	return Parse(data)
}

// Parse decodes a YAML flow definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks the shape of the definition. Graph checks (unknown
// endpoints, duplicate block ids) happen when the instance is assembled.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("definition missing id")
	}
	for i, b := range d.Blocks {
		if b.Type == "" {
			return fmt.Errorf("definition %s: block %d missing type", d.ID, i)
		}
	}
	for i, l := range d.Lines {
		if l.ID == "" {
			d.Lines[i].ID = fmt.Sprintf("%s->%s", l.From, l.To)
		}
	}
	return nil
}

// Assemble builds every block through b and wires them into an instance.
func (d *Definition) Assemble(b Builder, opts ...instance.Option) (*instance.Instance, error) {
	blocks := make([]block.Block, 0, len(d.Blocks))
	for i, spec := range d.Blocks {
		args := spec.Args
		if args == nil {
			args = map[string]any{}
		}
		blk, err := b.BuildNamed(spec.Type, args)
		if err != nil {
			return nil, fmt.Errorf("definition %s: block %d: %w", d.ID, i, err)
		}
		blocks = append(blocks, blk)
	}

	name := d.Name
	if name == "" {
		name = d.ID
	}
	return instance.New(d.ID, name, blocks, d.Lines, opts...)
}
