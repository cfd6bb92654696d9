package testutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/stretchr/testify/require"
)

// WriteFile writes content to dir/name and returns the path.
// It fails the test immediately on error.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "Failed to create directory")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write %s", name)
	return path
}

// ScriptedBody is a block body whose running ticks call Fn.
type ScriptedBody struct {
	Fn func(ctx context.Context, t *block.Tracker) error
}

func (ScriptedBody) OnTransition(context.Context, *block.Tracker, domain.StateChangeEvent) error {
	return nil
}

func (b ScriptedBody) Step(ctx context.Context, t *block.Tracker) error {
	if b.Fn == nil {
		return nil
	}
	return b.Fn(ctx, t)
}

func (ScriptedBody) Diagnostics() []block.Field { return nil }

// NewScriptedBlock builds a block of type "scripted" driven by fn.
func NewScriptedBlock(t *testing.T, id string, fn func(ctx context.Context, t *block.Tracker) error, opts ...block.Option) *block.Unit {
	t.Helper()
	u, err := block.New("scripted", id, "", ScriptedBody{Fn: fn}, opts...)
	require.NoError(t, err, "Failed to build scripted block")
	return u
}
