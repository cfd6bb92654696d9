package definition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/forge/pkg/blocks/example"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demo = `
id: demo
name: Demo flow
blocks:
  - type: example-block-01
    args:
      internal_block_id: block1
      default_input_text: hello
  - type: example-block-02
    args:
      internal_block_id: block2
      default_input_text: world
lines:
  - id: 1-2
    from: block1
    to: block2
  - from: block1
    to: block2
    kind: failure
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(demo))
	require.NoError(t, err)

	assert.Equal(t, "demo", def.ID)
	assert.Equal(t, "Demo flow", def.Name)
	require.Len(t, def.Blocks, 2)
	assert.Equal(t, "example-block-02", def.Blocks[1].Type)
	assert.Equal(t, "world", def.Blocks[1].Args["default_input_text"])
	assert.Equal(t, []domain.Line{
		{ID: "1-2", From: "block1", To: "block2"},
		{ID: "block1->block2", From: "block1", To: "block2", Kind: domain.LineFailure},
	}, def.Lines)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("name: no id"))
	assert.ErrorContains(t, err, "missing id")

	_, err = Parse([]byte("id: x\nblocks:\n  - args: {}"))
	assert.ErrorContains(t, err, "block 0 missing type")

	_, err = Parse([]byte("id: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse definition")
}

func TestAssemble_RunsToDone(t *testing.T) {
	def, err := Parse([]byte(demo))
	require.NoError(t, err)

	catalog, err := registry.NewCatalog("2.0.5", example.NewBuilderService())
	require.NoError(t, err)

	inst, err := def.Assemble(catalog)
	require.NoError(t, err)
	assert.Equal(t, "Demo flow", inst.Name())

	ctx := context.Background()
	require.NoError(t, inst.Start(ctx))
	for i := 0; i < 20 && !inst.State().IsTerminal(); i++ {
		require.NoError(t, inst.Tick(ctx))
	}
	assert.Equal(t, domain.StateDone, inst.State())

	b2, err := inst.Block("block2")
	require.NoError(t, err)
	assert.Equal(t, "world", b2.DefaultInputText())
	assert.Equal(t, domain.StateDone, b2.State())
}

func TestAssemble_BuildErrors(t *testing.T) {
	svc := example.NewBuilderService()

	def := &Definition{ID: "x", Blocks: []BlockSpec{{Type: "nope"}}}
	_, err := def.Assemble(svc)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	def = &Definition{ID: "x", Blocks: []BlockSpec{{
		Type: example.BlockOneTypeID,
		Args: map[string]any{"internal_block_id": "a", "default_input_text": 3},
	}}}
	_, err = def.Assemble(svc)
	assert.ErrorIs(t, err, domain.ErrArgumentShape)

	def = &Definition{
		ID: "x",
		Blocks: []BlockSpec{{
			Type: example.BlockOneTypeID,
			Args: map[string]any{"internal_block_id": "a", "default_input_text": ""},
		}},
		Lines: []domain.Line{{ID: "l", From: "a", To: "ghost"}},
	}
	_, err = def.Assemble(svc)
	assert.ErrorIs(t, err, domain.ErrUnknownBlock)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "flow.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(demo), 0o644))
	def, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Len(t, def.Blocks, 2)

	jsonPath := filepath.Join(dir, "flow.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"id": "j",
		"blocks": [{"type": "example-block-02", "args": {"internal_block_id": "b", "default_input_text": ""}}]
	}`), 0o644))
	def, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "j", def.ID)
	assert.Empty(t, def.Lines)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
