package tui

import (
	"bytes"
	"os"
	"testing"

	"github.com/aretw0/forge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	md := Report(&domain.InstanceSnapshot{
		ID:    "i-1",
		Name:  "Demo",
		State: domain.StateDone,
		Tick:  10,
		Blocks: []domain.BlockSnapshot{
			{ID: "block1", TypeID: "example-block-01", State: domain.StateDone, Result: "a|b"},
			{ID: "block2", TypeID: "example-block-02", State: domain.StateCreated},
		},
	})

	assert.Contains(t, md, "# Demo\n")
	assert.Contains(t, md, "Instance `i-1` is **done** after 10 ticks.")
	assert.Contains(t, md, "| block1 | example-block-01 | done | a\\|b |")
	assert.Contains(t, md, "| block2 | example-block-02 | created | - |")
}

func TestPlainOutputWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
	assert.NotContains(t, buf.String(), "\x1b[", "buffers get no escape codes")

	assert.Equal(t, "done", StateLabel(&buf, domain.StateDone))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	render := NewRenderer(f)
	out, err := render("# Title")
	require.NoError(t, err)
	assert.Equal(t, "# Title", out)
}
