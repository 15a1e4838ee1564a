package interfaces

import (
	"context"

	"github.com/KevinKickass/ioplusd/internal/boards"
	"github.com/KevinKickass/ioplusd/internal/config"
	"github.com/KevinKickass/ioplusd/internal/ioplus"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State         string `json:"state"`
	StateChanged  int64  `json:"state_changed"`
	Bus           string `json:"bus"`
	BoardCount    int    `json:"board_count"`
	RunningBoards int    `json:"running_boards"`
	Clients       int    `json:"connected_clients"`
	StartedAt     int64  `json:"started_at,omitempty"`
	Error         string `json:"error,omitempty"`
}

type LifecycleManager interface {
	Config() *config.Config
	Driver() *ioplus.Driver
	BoardManager() *boards.Manager
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
