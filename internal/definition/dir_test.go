package definition

import (
	"context"
	"testing"

	"github.com/aretw0/forge/internal/testutils"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const markdownFlow = `---
id: chain
name: Chain
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
  - from: block1
    to: block2
---
Two example blocks in a row.
`

const jsonFlow = `{
  "name": "Single",
  "blocks": [
    {"type": "example-block-02", "args": {"internal_block_id": "only", "default_input_text": "x"}}
  ]
}`

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "chain.md", markdownFlow)
	testutils.WriteFile(t, dir, "single.json", jsonFlow)

	defs, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	chain := defs[0]
	assert.Equal(t, "chain", chain.ID)
	assert.Equal(t, "Chain", chain.Name)
	assert.Equal(t, "Two example blocks in a row.", chain.Description)
	require.Len(t, chain.Blocks, 2)
	assert.Equal(t, "block2", chain.Blocks[1].Args["internal_block_id"])
	assert.Equal(t, []domain.Line{{ID: "block1->block2", From: "block1", To: "block2"}}, chain.Lines)

	single := defs[1]
	assert.Equal(t, "single", single.ID, "id falls back to the file name")
	require.Len(t, single.Blocks, 1)
	assert.Equal(t, "example-block-02", single.Blocks[0].Type)
}

func TestLoadDir_RejectsInvalidDocuments(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "broken.md", "---\nid: broken\nblocks:\n  - args: {}\n---\n")

	_, err := LoadDir(context.Background(), dir)
	assert.ErrorContains(t, err, "block 0 missing type")
}

func TestLoadDir_FrontmatterDescriptionWins(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "described.md", "---\nid: described\ndescription: From frontmatter\nblocks:\n  - type: example-block-01\n    args:\n      internal_block_id: b1\n      default_input_text: hi\n---\nBody text.\n")

	defs, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "From frontmatter", defs[0].Description)
}
