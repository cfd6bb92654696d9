package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/forge/pkg/adapters/memory"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func newSnapshot(id string) *domain.InstanceSnapshot {
	return &domain.InstanceSnapshot{
		ID:        id,
		Name:      "demo",
		State:     domain.StateRunning,
		Tick:      3,
		UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Blocks: []domain.BlockSnapshot{{
			ID:        "block1",
			TypeID:    "example-block-01",
			State:     domain.StateRunning,
			Active:    true,
			Printable: "Block block1 [example-block-01]: running\nCounter: 3",
		}},
	}
}

func mustEncrypt(t *testing.T, config middleware.EncryptionConfig) middleware.Middleware {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(config)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware failed: %v", err)
	}
	return mw
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	secureStore := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)

	ctx := context.Background()
	original := newSnapshot("secret-instance")

	if err := secureStore.Save(ctx, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The underlying store only sees the envelope.
	stored, err := underlyingStore.Load(ctx, original.ID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if len(stored.Blocks) != 0 {
		t.Fatalf("Expected blocks to be hidden, found %d", len(stored.Blocks))
	}
	if stored.Sealed == "" {
		t.Fatal("Expected sealed payload in envelope")
	}
	if strings.Contains(stored.Sealed, "Counter") {
		t.Fatal("Sealed payload leaks plaintext")
	}
	if stored.State != domain.StateRunning || stored.Tick != 3 {
		t.Errorf("Envelope should expose state and tick, got %s/%d", stored.State, stored.Tick)
	}

	loaded, err := secureStore.Load(ctx, original.ID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if len(loaded.Blocks) != 1 || loaded.Blocks[0].Printable != original.Blocks[0].Printable {
		t.Errorf("Expected decrypted blocks, got %+v", loaded.Blocks)
	}
	if loaded.Sealed != "" {
		t.Error("Decrypted snapshot should not carry a sealed payload")
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	snapshot := newSnapshot("rotation")

	if err := secureStoreOld.Save(ctx, snapshot); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStoreNew := mustEncrypt(t, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, snapshot.ID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Tick != 3 {
		t.Errorf("Decryption with fallback key failed")
	}

	loaded.Tick = 4
	if err := secureStoreNew.Save(ctx, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	if _, err := secureStoreOld.Load(ctx, snapshot.ID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainSnapshots(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	if err := underlyingStore.Save(ctx, newSnapshot("plain")); err != nil {
		t.Fatal(err)
	}

	secureStore := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	if _, err := secureStore.Load(ctx, "plain"); err == nil {
		t.Error("Expected plain snapshot to be rejected")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	if err == nil {
		t.Error("Expected error for invalid key size")
	}
}
