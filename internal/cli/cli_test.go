package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/forge/internal/logging"
	"github.com/aretw0/forge/internal/testutils"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flow = `
id: %s
name: Demo %s
blocks:
  - type: example-block-01
    args: {internal_block_id: block1, default_input_text: hello}
  - type: example-block-02
    args: {internal_block_id: block2, default_input_text: hello}
lines:
  - {id: 1-2, from: block1, to: block2}
`

func writeFlow(t *testing.T, dir, id string) string {
	t.Helper()
	return testutils.WriteFile(t, dir, id+".yaml", strings.ReplaceAll(flow, "%s", id))
}

func plain(s string) (string, error) { return s, nil }

func TestRunBatch_Markdown(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	err := RunBatch(context.Background(), RunOptions{
		Files: []string{writeFlow(t, dir, "one"), writeFlow(t, dir, "two")},
	}, logging.NewNop(), &out, plain)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "# Demo one")
	assert.Contains(t, out.String(), "# Demo two")
	assert.Contains(t, out.String(), "| block2 | example-block-02 | done | Result text of the block2: 4 |")
}

func TestRunBatch_JSON(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	err := RunBatch(context.Background(), RunOptions{
		Files: []string{writeFlow(t, dir, "one")},
		JSON:  true,
	}, logging.NewNop(), &out, plain)
	require.NoError(t, err)

	var snap domain.InstanceSnapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, "one", snap.ID)
	assert.Equal(t, domain.StateDone, snap.State)
	assert.Equal(t, 10, snap.Tick)
}

func TestRunBatch_Dir(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "fromdir.md", "---"+strings.ReplaceAll(flow, "%s", "fromdir")+"---\nLoaded from a directory.\n")
	var out bytes.Buffer

	err := RunBatch(context.Background(), RunOptions{Dir: dir, JSON: true}, logging.NewNop(), &out, plain)
	require.NoError(t, err)

	var snap domain.InstanceSnapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, "fromdir", snap.ID)
	assert.Equal(t, domain.StateDone, snap.State)
}

func TestRunBatch_TickBudgetFailsInstance(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	err := RunBatch(context.Background(), RunOptions{
		Files:      []string{writeFlow(t, dir, "slow")},
		TickBudget: 2,
		JSON:       true,
	}, logging.NewNop(), &out, plain)
	assert.ErrorIs(t, err, ErrInstancesFailed)

	var snap domain.InstanceSnapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, domain.StateFailed, snap.State)
}

func TestRunBatch_Errors(t *testing.T) {
	err := RunBatch(context.Background(), RunOptions{}, logging.NewNop(), &bytes.Buffer{}, plain)
	assert.ErrorContains(t, err, "no definition files")

	dir := t.TempDir()
	bad := testutils.WriteFile(t, dir, "bad.yaml", "id: bad\nblocks:\n  - type: unknown\n")
	err = RunBatch(context.Background(), RunOptions{Files: []string{bad}}, logging.NewNop(), &bytes.Buffer{}, plain)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	err = RunBatch(context.Background(), RunOptions{
		Files:    []string{writeFlow(t, dir, "short")},
		MaxTicks: 3,
	}, logging.NewNop(), &bytes.Buffer{}, plain)
	assert.ErrorContains(t, err, "still running after 3 ticks")
}

func TestRunBatch_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	err := RunBatch(context.Background(), RunOptions{
		Files:     []string{writeFlow(t, dir, "persisted")},
		RedisAddr: mr.Addr(),
		JSON:      true,
	}, logging.NewNop(), &bytes.Buffer{}, plain)
	require.NoError(t, err)

	assert.True(t, mr.Exists("forge:instance:persisted"))
	assert.False(t, mr.Exists("forge:lock:instance:persisted"), "locks are released")
}

func TestNewCatalog(t *testing.T) {
	catalog, err := NewCatalog(logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"example-block-01", "example-block-02"}, catalog.SupportedBlockTypeIDs())
}

func TestNewCatalog_BlocksLogThroughCatalogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWriter(&buf, slog.LevelDebug, logging.FormatText)
	require.NoError(t, err)

	catalog, err := NewCatalog(logger)
	require.NoError(t, err)
	b, err := catalog.BuildNamed("example-block-01", map[string]any{
		"internal_block_id":  "b1",
		"default_input_text": "hi",
	})
	require.NoError(t, err)
	require.NoError(t, b.Run(context.Background()))

	assert.Contains(t, buf.String(), "block_id=b1")
	assert.Equal(t, 1, strings.Count(buf.String(), "old=created"))
}

func TestRunBatch_StoreDir(t *testing.T) {
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "snapshots")

	err := RunBatch(context.Background(), RunOptions{
		Files:    []string{writeFlow(t, dir, "saved")},
		StoreDir: storeDir,
		JSON:     true,
	}, logging.NewNop(), &bytes.Buffer{}, plain)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(storeDir, "saved.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state": "done"`)
}

func TestRunBatch_EncryptedStoreDir(t *testing.T) {
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "snapshots")

	err := RunBatch(context.Background(), RunOptions{
		Files:    []string{writeFlow(t, dir, "sealed")},
		StoreDir: storeDir,
		StoreKey: strings.Repeat("ab", 32),
		Redact:   []string{"^block2$"},
		JSON:     true,
	}, logging.NewNop(), &bytes.Buffer{}, plain)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(storeDir, "sealed.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sealed":`)
	assert.NotContains(t, string(data), "Counter")

	err = RunBatch(context.Background(), RunOptions{
		Files:    []string{writeFlow(t, dir, "badkey")},
		StoreKey: "abcd",
	}, logging.NewNop(), &bytes.Buffer{}, plain)
	assert.ErrorContains(t, err, "active key must be 32 bytes")
}

func TestServe_TicksUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "snapshots")
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := Serve(ctx, RunOptions{
		Files:    []string{writeFlow(t, dir, "served")},
		StoreDir: storeDir,
		Interval: 5 * time.Millisecond,
	}, logging.NewNop(), "127.0.0.1:0")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(storeDir, "served.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state": "done"`)
}

func TestServe_ListenError(t *testing.T) {
	dir := t.TempDir()
	err := Serve(context.Background(), RunOptions{
		Files: []string{writeFlow(t, dir, "unserved")},
	}, logging.NewNop(), "127.0.0.1:99999")
	assert.ErrorContains(t, err, "server error")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	rt, err := Load(context.Background(), RunOptions{Files: []string{writeFlow(t, dir, "loaded")}}, logging.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	inst, err := rt.Processor.Instance("loaded")
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, inst.State())
}
