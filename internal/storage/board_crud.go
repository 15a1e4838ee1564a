package storage

import (
	"context"
	"fmt"

	"github.com/KevinKickass/ioplusd/internal/types"
)

// SaveBoard inserts or updates a board definition by name
func (p *PostgresClient) SaveBoard(ctx context.Context, def types.BoardDefinition) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO boards (id, name, description, stack, debug, heartbeat_ms, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name)
		DO UPDATE SET
			description = EXCLUDED.description,
			stack = EXCLUDED.stack,
			debug = EXCLUDED.debug,
			heartbeat_ms = EXCLUDED.heartbeat_ms,
			enabled = EXCLUDED.enabled,
			updated_at = NOW()
	`, def.ID, def.Name, def.Description, def.Stack, def.Debug, def.HeartbeatMs, def.Enabled)

	if err != nil {
		return fmt.Errorf("failed to upsert board: %w", err)
	}
	return nil
}

// LoadBoards loads all stored boards ordered by stack level
func (p *PostgresClient) LoadBoards(ctx context.Context) ([]types.BoardDefinition, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, description, stack, debug, heartbeat_ms, enabled
		FROM boards
		ORDER BY stack
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query boards: %w", err)
	}
	defer rows.Close()

	boards := make([]types.BoardDefinition, 0)
	for rows.Next() {
		var def types.BoardDefinition
		if err := rows.Scan(&def.ID, &def.Name, &def.Description, &def.Stack,
			&def.Debug, &def.HeartbeatMs, &def.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, def)
	}

	return boards, rows.Err()
}

// DeleteBoard removes a board and, by cascade, its unit values
func (p *PostgresClient) DeleteBoard(ctx context.Context, name string) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM boards WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("board %s: %w", name, ErrNotFound)
	}
	return nil
}

// SaveUnit stores the last value of a unit
func (p *PostgresClient) SaveUnit(ctx context.Context, st types.UnitState) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO unit_states (board_name, unit, name, type, n_value, s_value, used, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (board_name, unit)
		DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			n_value = EXCLUDED.n_value,
			s_value = EXCLUDED.s_value,
			used = EXCLUDED.used,
			updated_at = EXCLUDED.updated_at
	`, st.Board, st.Unit, st.Name, st.Type, st.NValue, st.SValue, st.Used, st.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert unit %s/%d: %w", st.Board, st.Unit, err)
	}
	return nil
}

func (p *PostgresClient) LoadUnits(ctx context.Context, board string) ([]types.UnitState, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT board_name, unit, name, type, n_value, s_value, used, updated_at
		FROM unit_states
		WHERE board_name = $1
		ORDER BY unit
	`, board)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	units := make([]types.UnitState, 0)
	for rows.Next() {
		var st types.UnitState
		if err := rows.Scan(&st.Board, &st.Unit, &st.Name, &st.Type,
			&st.NValue, &st.SValue, &st.Used, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, st)
	}

	return units, rows.Err()
}
