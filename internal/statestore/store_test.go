package statestore

import (
	"context"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

func TestMemoryStoreSaveAndLoadRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cp := &models.Checkpoint{
		TaskID:   "task-1",
		Status:   models.TaskRunning,
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	}
	if err := store.Save(ctx, cp, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "task-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Version != 1 {
		t.Fatalf("expected version 1, got %d", loaded.Version)
	}
	if len(loaded.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(loaded.Messages))
	}
}

func TestMemoryStoreSaveRejectsStaleVersion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cp := &models.Checkpoint{TaskID: "task-1", Status: models.TaskRunning}
	if err := store.Save(ctx, cp, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, cp, 0); err != ErrVersionConflict {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if err := store.Save(ctx, cp, 1); err != nil {
		t.Fatalf("Save with correct version: %v", err)
	}
}

func TestMemoryStoreLoadMissingReturnsErrNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Load(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListPendingExcludesTerminalStatuses(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Save(ctx, &models.Checkpoint{TaskID: "running", Status: models.TaskRunning}, 0)
	_ = store.Save(ctx, &models.Checkpoint{TaskID: "done", Status: models.TaskCompleted}, 0)
	_ = store.Save(ctx, &models.Checkpoint{TaskID: "failed", Status: models.TaskFailed}, 0)

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0] != "running" {
		t.Fatalf("expected only [running], got %v", pending)
	}
}
