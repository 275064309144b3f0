package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
	"github.com/taskpilot/file-api/internal/infrastructure/storage"
)

func newStore(t *testing.T) (*storage.LocalStorage, string) {
	t.Helper()
	base := t.TempDir()
	store, err := storage.NewLocalStorage(base, zerolog.Nop())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	return store, base
}

func TestWriteReadRoundtrip(t *testing.T) {
	store, _ := newStore(t)
	body := []byte("attachment payload bytes")

	written, err := store.Write(context.Background(), "task/t1/att_1.bin", bytes.NewReader(body), 0)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if written != int64(len(body)) {
		t.Fatalf("expected %d bytes written, got %d", len(body), written)
	}

	reader, size, err := store.Read(context.Background(), "task/t1/att_1.bin")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	defer reader.Close()
	if size != int64(len(body)) {
		t.Fatalf("expected size %d, got %d", len(body), size)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if !bytes.Equal(data, body) {
		t.Fatal("read bytes differ from written bytes")
	}
}

func TestWriteEnforcesLimit(t *testing.T) {
	store, base := newStore(t)
	body := bytes.Repeat([]byte{0x01}, 1024)

	_, err := store.Write(context.Background(), "task/t1/att_big.bin", bytes.NewReader(body), 512)
	verr := domain.AsValidationError(err)
	if verr == nil || verr.Reason != domain.ReasonTooLarge {
		t.Fatalf("expected too-large, got %v", err)
	}

	// Neither the object nor a leftover temp file may remain.
	entries, err := os.ReadDir(filepath.Join(base, "task", "t1"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty owner directory, got %d entries", len(entries))
	}
}

func TestReadMissingKeyIsNotFound(t *testing.T) {
	store, _ := newStore(t)
	_, _, err := store.Read(context.Background(), "task/t1/att_missing.bin")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store, _ := newStore(t)
	key := "task/t1/att_1.bin"
	if _, err := store.Write(context.Background(), key, bytes.NewReader([]byte("x")), 0); err != nil {
		t.Fatalf("write: %v", err)
	}

	removed, err := store.Delete(context.Background(), key)
	if err != nil || !removed {
		t.Fatalf("expected first delete to remove, got %v, %v", removed, err)
	}
	removed, err = store.Delete(context.Background(), key)
	if err != nil || removed {
		t.Fatalf("expected second delete to be a no-op, got %v, %v", removed, err)
	}
}

func TestUnsafeKeysRejected(t *testing.T) {
	store, _ := newStore(t)
	keys := []string{
		"",
		"../outside.bin",
		"task/../../outside.bin",
		"/etc/passwd",
	}
	for _, key := range keys {
		if _, err := store.Write(context.Background(), key, bytes.NewReader([]byte("x")), 0); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
		if _, _, err := store.Read(context.Background(), key); err == nil {
			t.Fatalf("expected read of %q to be rejected", key)
		}
		if _, err := store.Delete(context.Background(), key); err == nil {
			t.Fatalf("expected delete of %q to be rejected", key)
		}
	}
}

func TestPurgeOwnerRemovesWholeDirectory(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	for _, key := range []string{"task/t1/a.bin", "task/t1/b.bin", "task/t2/c.bin"} {
		if _, err := store.Write(ctx, key, bytes.NewReader([]byte("x")), 0); err != nil {
			t.Fatalf("write %s: %v", key, err)
		}
	}

	if err := store.PurgeOwner(ctx, domain.OwnerTask, "t1"); err != nil {
		t.Fatalf("purge: %v", err)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "task/t2/c.bin" {
		t.Fatalf("expected only task/t2/c.bin left, got %v", keys)
	}

	// Purging an owner with no objects is not an error.
	if err := store.PurgeOwner(ctx, domain.OwnerSubtask, "never-existed"); err != nil {
		t.Fatalf("purge absent owner: %v", err)
	}
}

func TestKeysSkipsInFlightTempFiles(t *testing.T) {
	store, base := newStore(t)
	ctx := context.Background()

	if _, err := store.Write(ctx, "task/t1/a.bin", bytes.NewReader([]byte("x")), 0); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Write(ctx, "subtask/s1/b.bin", bytes.NewReader([]byte("y")), 0); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Simulate an in-flight upload.
	tmpPath := filepath.Join(base, "task", "t1", ".upload-12345.tmp")
	if err := os.WriteFile(tmpPath, []byte("partial"), 0o644); err != nil {
		t.Fatalf("temp file: %v", err)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	want := []string{"subtask/s1/b.bin", "task/t1/a.bin"}
	if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, keys)
	}
}

func TestKeysOlderThanFiltersByModTime(t *testing.T) {
	store, base := newStore(t)
	ctx := context.Background()

	if _, err := store.Write(ctx, "task/t1/old.bin", bytes.NewReader([]byte("x")), 0); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Write(ctx, "task/t1/fresh.bin", bytes.NewReader([]byte("y")), 0); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(base, "task", "t1", "old.bin"), stale, stale); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	keys, err := store.KeysOlderThan(ctx, time.Now().Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("keys older than: %v", err)
	}
	if len(keys) != 1 || keys[0] != "task/t1/old.bin" {
		t.Fatalf("expected only the backdated object, got %v", keys)
	}

	// A future cutoff includes everything, matching Keys.
	keys, err = store.KeysOlderThan(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("keys older than: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected both objects, got %v", keys)
	}
}

func TestHealthReportsWritableRoot(t *testing.T) {
	store, _ := newStore(t)
	if err := store.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
