package repository

import (
	"context"
	"testing"

	"github.com/Dan9191/card-service/internal/config"
)

func TestOpenMemory(t *testing.T) {
	store, closeStore, err := Open(context.Background(), &config.Config{Storage: config.StorageMemory})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}
}
