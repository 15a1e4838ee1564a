package types

import (
	"time"

	"github.com/google/uuid"
)

// BoardDefinition describes one IOplus board handled by the daemon.
type BoardDefinition struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Stack       int       `json:"stack" yaml:"stack"`
	Debug       bool      `json:"debug" yaml:"debug"`
	HeartbeatMs int       `json:"heartbeat_ms,omitempty" yaml:"heartbeat_ms,omitempty"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
}

// Heartbeat returns the poll interval, or fallback when none is set.
func (d BoardDefinition) Heartbeat(fallback time.Duration) time.Duration {
	if d.HeartbeatMs > 0 {
		return time.Duration(d.HeartbeatMs) * time.Millisecond
	}
	return fallback
}

// Board Runtime Info
type BoardStatus struct {
	Definition BoardDefinition `json:"definition"`
	Address    string          `json:"address"`
	Running    bool            `json:"running"`
	LastPoll   *time.Time      `json:"last_poll,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
}

// UnitState is the persisted value of one host unit.
type UnitState struct {
	Board     string    `json:"board"`
	Unit      int       `json:"unit"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	NValue    int       `json:"n_value"`
	SValue    string    `json:"s_value"`
	Used      bool      `json:"used"`
	UpdatedAt time.Time `json:"updated_at"`
}
