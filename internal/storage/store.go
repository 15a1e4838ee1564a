package storage

import (
	"context"
	"errors"

	"github.com/KevinKickass/ioplusd/internal/types"
)

var ErrNotFound = errors.New("not found")

// Store persists board definitions and the unit values of each board.
type Store interface {
	SaveBoard(ctx context.Context, def types.BoardDefinition) error
	LoadBoards(ctx context.Context) ([]types.BoardDefinition, error)
	DeleteBoard(ctx context.Context, name string) error
	SaveUnit(ctx context.Context, state types.UnitState) error
	LoadUnits(ctx context.Context, board string) ([]types.UnitState, error)
}

var (
	_ Store = (*PostgresClient)(nil)
	_ Store = (*MemoryStore)(nil)
)
