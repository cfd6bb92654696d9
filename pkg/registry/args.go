package registry

import (
	"encoding/json"
	"fmt"
)

// Kind is the type of a construction argument.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindBool   Kind = "bool"
)

// Conventional parameter names: the internal block id and the default
// input text every block type takes first.
const (
	ParamInternalBlockID  = "internal_block_id"
	ParamDefaultInputText = "default_input_text"
)

// Param declares one positional construction parameter.
// Name is the mapstructure key of the matching field in the block's params struct.
type Param struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Arg is a tagged construction argument.
type Arg struct {
	kind  Kind
	value any
}

// Text returns a string argument.
func Text(s string) Arg { return Arg{kind: KindString, value: s} }

// Int returns an integer argument.
func Int(n int) Arg { return Arg{kind: KindInt, value: n} }

// Flag returns a boolean argument.
func Flag(b bool) Arg { return Arg{kind: KindBool, value: b} }

func (a Arg) Kind() Kind { return a.kind }
func (a Arg) Value() any { return a.value }

func (a Arg) String() string {
	return fmt.Sprintf("%s(%v)", a.kind, a.value)
}

// kindOf classifies an untyped value, as produced by YAML or JSON decoding.
func kindOf(v any) (Kind, bool) {
	switch n := v.(type) {
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return KindInt, true
		}
		return "", false
	case string:
		return KindString, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt, true
	case bool:
		return KindBool, true
	default:
		return "", false
	}
}
