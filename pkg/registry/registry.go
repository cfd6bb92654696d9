package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// BuildFunc constructs a block from its decoded params struct.
type BuildFunc[P any] func(params P, opts ...block.Option) (block.Block, error)

// Entry maps one block type id to its constructor.
type Entry struct {
	TypeID string
	Params []Param

	build func(named map[string]any, opts []block.Option) (block.Block, error)
}

// Define creates an Entry whose arguments are decoded into P.
//
// P is a struct whose mapstructure tags match the Param names. Decoding is
// strict: missing, unknown and mistyped fields are argument shape errors.
func Define[P any](typeID string, params []Param, build BuildFunc[P]) Entry {
	return Entry{
		TypeID: typeID,
		Params: params,
		build: func(named map[string]any, opts []block.Option) (block.Block, error) {
			var p P
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				Result:      &p,
				ErrorUnused: true,
				ErrorUnset:  true,
			})
			if err != nil {
				return nil, fmt.Errorf("block type %s: %w", typeID, err)
			}
			if err := dec.Decode(named); err != nil {
				return nil, fmt.Errorf("%w for block type id %s: %v", domain.ErrArgumentShape, typeID, err)
			}
			b, err := build(p, opts...)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
	}
}

// Registry is a builder service: a fixed set of block types it can construct.
// It is immutable after New and safe for concurrent use.
type Registry struct {
	version   string
	order     []string
	entries   map[string]Entry
	blockOpts []block.Option
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger handed to every block the registry builds.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.blockOpts = append(r.blockOpts, block.WithLogger(logger))
	}
}

// WithBlockOptions appends options applied to every block the registry builds.
func WithBlockOptions(opts ...block.Option) Option {
	return func(r *Registry) {
		r.blockOpts = append(r.blockOpts, opts...)
	}
}

// New creates a registry advertising entries in the given order.
// Type ids must be unique and non-blank.
func New(engineVersion string, entries []Entry, opts ...Option) (*Registry, error) {
	r := &Registry{
		version: engineVersion,
		entries: make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		if strings.TrimSpace(e.TypeID) == "" {
			return nil, fmt.Errorf("registry: blank block type id")
		}
		if e.build == nil {
			return nil, fmt.Errorf("registry: block type %q has no constructor (use Define)", e.TypeID)
		}
		if _, exists := r.entries[e.TypeID]; exists {
			return nil, fmt.Errorf("registry: block type %q already registered", e.TypeID)
		}
		r.entries[e.TypeID] = e
		r.order = append(r.order, e.TypeID)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ExpectedEngineVersion returns the host version the registry was built against.
func (r *Registry) ExpectedEngineVersion() string {
	return r.version
}

// SupportedBlockTypeIDs returns the type ids in registration order.
func (r *Registry) SupportedBlockTypeIDs() []string {
	return slices.Clone(r.order)
}

// Supports reports whether typeID can be built.
func (r *Registry) Supports(typeID string) bool {
	_, ok := r.entries[typeID]
	return ok
}

// Params returns the positional parameters expected by typeID.
func (r *Registry) Params(typeID string) ([]Param, error) {
	e, err := r.lookup(typeID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(e.Params), nil
}

// Build constructs a block from positional arguments.
//
// It returns domain.ErrUnsupportedType for unknown type ids and
// domain.ErrArgumentShape when the arity or an argument kind is wrong.
func (r *Registry) Build(typeID string, args ...Arg) (block.Block, error) {
	e, err := r.lookup(typeID)
	if err != nil {
		return nil, err
	}
	if len(args) != len(e.Params) {
		return nil, fmt.Errorf("%w: invalid number of arguments for block type id %s: expected %d, got %d",
			domain.ErrArgumentShape, typeID, len(e.Params), len(args))
	}

	named := make(map[string]any, len(args))
	for i, p := range e.Params {
		if args[i].kind != p.Kind {
			return nil, fmt.Errorf("%w: invalid argument %d (%s) for block type id %s: expected %s, got %s",
				domain.ErrArgumentShape, i, p.Name, typeID, p.Kind, args[i].kind)
		}
		named[p.Name] = args[i].value
	}
	return e.build(named, r.blockOpts)
}

// BuildNamed constructs a block from named arguments, as found in definition files.
func (r *Registry) BuildNamed(typeID string, named map[string]any) (block.Block, error) {
	e, err := r.lookup(typeID)
	if err != nil {
		return nil, err
	}
	if len(named) != len(e.Params) {
		return nil, fmt.Errorf("%w: invalid number of arguments for block type id %s: expected %d, got %d",
			domain.ErrArgumentShape, typeID, len(e.Params), len(named))
	}
	for _, p := range e.Params {
		v, ok := named[p.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing argument %q for block type id %s", domain.ErrArgumentShape, p.Name, typeID)
		}
		if k, _ := kindOf(v); k != p.Kind {
			return nil, fmt.Errorf("%w: invalid argument %q for block type id %s: expected %s, got %T",
				domain.ErrArgumentShape, p.Name, typeID, p.Kind, v)
		}
	}
	return e.build(named, r.blockOpts)
}

func (r *Registry) lookup(typeID string) (Entry, error) {
	e, ok := r.entries[typeID]
	if !ok {
		return Entry{}, fmt.Errorf("%w: block type id %s not found", domain.ErrUnsupportedType, typeID)
	}
	return e, nil
}
