package example

import (
	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/registry"
)

// EngineVersion is the host version this builder service was built against.
const EngineVersion = "2.0.5"

// Params are the construction arguments shared by both example blocks.
type Params struct {
	InternalBlockID  string `mapstructure:"internal_block_id"`
	DefaultInputText string `mapstructure:"default_input_text"`
}

var params = []registry.Param{
	{Name: registry.ParamInternalBlockID, Kind: registry.KindString},
	{Name: registry.ParamDefaultInputText, Kind: registry.KindString},
}

// Entries returns the registry entries for the example blocks.
func Entries() []registry.Entry {
	return []registry.Entry{
		registry.Define(BlockOneTypeID, params, func(p Params, opts ...block.Option) (block.Block, error) {
			return NewBlockOne(p.InternalBlockID, p.DefaultInputText, opts...)
		}),
		registry.Define(BlockTwoTypeID, params, func(p Params, opts ...block.Option) (block.Block, error) {
			return NewBlockTwo(p.InternalBlockID, p.DefaultInputText, opts...)
		}),
	}
}

// NewBuilderService returns the registry that builds the example blocks.
// Each block expects two string arguments: the internal block id and the
// default input text.
func NewBuilderService(opts ...registry.Option) *registry.Registry {
	r, err := registry.New(EngineVersion, Entries(), opts...)
	if err != nil {
		// Entries are static; a failure here is a programming error.
		panic(err)
	}
	return r
}
