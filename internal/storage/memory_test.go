package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KevinKickass/ioplusd/internal/types"
	"github.com/google/uuid"
)

func TestMemoryStoreBoards(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, def := range []types.BoardDefinition{
		{ID: uuid.New(), Name: "pump", Stack: 3, Enabled: true},
		{ID: uuid.New(), Name: "lights", Stack: 0, Enabled: true},
	} {
		if err := s.SaveBoard(ctx, def); err != nil {
			t.Fatalf("SaveBoard(%s) failed: %v", def.Name, err)
		}
	}

	if err := s.SaveBoard(ctx, types.BoardDefinition{Name: "other", Stack: 3}); err == nil {
		t.Error("expected stack conflict")
	}

	boards, err := s.LoadBoards(ctx)
	if err != nil {
		t.Fatalf("LoadBoards failed: %v", err)
	}
	if len(boards) != 2 || boards[0].Name != "lights" || boards[1].Name != "pump" {
		t.Fatalf("expected boards ordered by stack, got %+v", boards)
	}

	// update in place keeps the stack
	if err := s.SaveBoard(ctx, types.BoardDefinition{Name: "pump", Stack: 3, Debug: true}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if err := s.DeleteBoard(ctx, "pump"); err != nil {
		t.Fatalf("DeleteBoard failed: %v", err)
	}
	if err := s.DeleteBoard(ctx, "pump"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUnits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.SaveUnit(ctx, types.UnitState{Board: "ghost", Unit: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown board, got %v", err)
	}

	if err := s.SaveBoard(ctx, types.BoardDefinition{Name: "b", Stack: 1}); err != nil {
		t.Fatalf("SaveBoard failed: %v", err)
	}
	now := time.Now()
	for _, u := range []int{9, 1, 4} {
		st := types.UnitState{Board: "b", Unit: u, Name: "x", NValue: 1, SValue: "1", UpdatedAt: now}
		if err := s.SaveUnit(ctx, st); err != nil {
			t.Fatalf("SaveUnit(%d) failed: %v", u, err)
		}
	}

	units, err := s.LoadUnits(ctx, "b")
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}
	if len(units) != 3 || units[0].Unit != 1 || units[2].Unit != 9 {
		t.Fatalf("expected units ordered by id, got %+v", units)
	}

	if err := s.DeleteBoard(ctx, "b"); err != nil {
		t.Fatalf("DeleteBoard failed: %v", err)
	}
	units, _ = s.LoadUnits(ctx, "b")
	if len(units) != 0 {
		t.Errorf("expected units removed with board, got %d", len(units))
	}
}
