package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/blocks/example"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/instance"
	"github.com/aretw0/forge/pkg/registry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	catalog, err := registry.NewCatalog(example.EngineVersion, example.NewBuilderService())
	require.NoError(t, err)

	b, err := catalog.Build(example.BlockTwoTypeID, registry.Text("only"), registry.Text(""))
	require.NoError(t, err)
	inst, err := instance.New("i-1", "demo", []block.Block{b}, nil)
	require.NoError(t, err)

	p := instance.NewProcessor()
	require.NoError(t, p.AddInstance(context.Background(), inst, domain.StateReady))
	return NewServer(p, catalog)
}

func TestTickAndGetInstance(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleTick(ctx, mcp.CallToolRequest{}, tickArgs{Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Ticks)
	assert.False(t, resp.Idle)
	require.Len(t, resp.Instances, 1)
	assert.Equal(t, domain.StateRunning, resp.Instances[0].State)

	resp, err = s.handleTick(ctx, mcp.CallToolRequest{}, tickArgs{Count: 50})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Ticks, "stops once idle")
	assert.True(t, resp.Idle)

	snap, err := s.handleGetInstance(ctx, mcp.CallToolRequest{}, instanceArgs{ID: "i-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, snap.State)
	assert.Equal(t, "Result text of the only: 4", snap.Blocks[0].Result)

	_, err = s.handleGetInstance(ctx, mcp.CallToolRequest{}, instanceArgs{ID: "nope"})
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
}

func TestBlockTypesAndSummaries(t *testing.T) {
	s := newTestServer(t)

	types, err := s.blockTypes()
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, example.BlockOneTypeID, types[0].TypeID)
	assert.Len(t, types[0].Params, 2)

	sums := s.summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, "i-1", sums[0].ID)
	assert.Equal(t, domain.StateReady, sums[0].State)
	assert.NotNil(t, s.MCPServer())
}

func TestServeSSE_StopsWithContext(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.NoError(t, s.ServeSSE(ctx, 0))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	h := corsMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/message", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}
