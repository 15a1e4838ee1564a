package system

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/KevinKickass/ioplusd/internal/api/rest"
	"github.com/KevinKickass/ioplusd/internal/api/websocket"
	"github.com/KevinKickass/ioplusd/internal/auth"
	"github.com/KevinKickass/ioplusd/internal/boards"
	"github.com/KevinKickass/ioplusd/internal/config"
	"github.com/KevinKickass/ioplusd/internal/interfaces"
	"github.com/KevinKickass/ioplusd/internal/ioplus"
	"github.com/KevinKickass/ioplusd/internal/storage"
	"go.uber.org/zap"
)

type LifecycleManager struct {
	config       *config.Config
	store        storage.Store
	transport    ioplus.Transport
	driver       *ioplus.Driver
	boardManager *boards.Manager
	authService  *auth.AuthService
	logger       *zap.Logger

	wsHub      *websocket.Hub
	hubCancel  context.CancelFunc
	restServer *rest.Server
	serverErrs chan error

	stateMu      sync.RWMutex
	currentState SystemState
	changedAt    time.Time
	startedAt    time.Time
	lastErr      error

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewLifecycleManager(
	store storage.Store,
	transport ioplus.Transport,
	cfg *config.Config,
	logger *zap.Logger,
) (*LifecycleManager, error) {
	authService := auth.NewAuthService(cfg.Auth, logger)
	wsHub := websocket.NewHub(logger, authService)
	driver := ioplus.NewDriver(transport)

	boardManager, err := boards.NewManager(
		driver,
		store,
		wsHub,
		cfg.Boards.SearchPaths,
		cfg.Boards.DefaultHeartbeat,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create board manager: %w", err)
	}

	lm := &LifecycleManager{
		config:       cfg,
		store:        store,
		transport:    transport,
		driver:       driver,
		boardManager: boardManager,
		authService:  authService,
		logger:       logger,
		wsHub:        wsHub,
		serverErrs:   make(chan error, 1),
		currentState: StateInitializing,
		changedAt:    time.Now(),
		shutdownChan: make(chan struct{}),
	}
	wsHub.SetStatusProvider(lm)
	return lm, nil
}

// Start starts the entire system
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.logger.Info("Starting ioplusd", zap.String("i2c_bus", lm.config.I2C.Bus))

	hubCtx, cancel := context.WithCancel(context.Background())
	lm.hubCancel = cancel
	go lm.wsHub.Run(hubCtx)

	if err := lm.loadBoards(ctx); err != nil {
		lm.setError(err)
		return err
	}

	lm.restServer = rest.NewServer(lm, lm.logger, lm.wsHub, lm.authService)
	lm.restServer.Start(lm.serverErrs)

	lm.stateMu.Lock()
	lm.startedAt = time.Now()
	lm.stateMu.Unlock()
	if err := lm.setState(StateRunning); err != nil {
		return err
	}
	lm.broadcastStatus()

	lm.logger.Info("System started successfully",
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.Int("boards", len(lm.boardManager.ListBoards())))

	return nil
}

// loadBoards registers every known board and starts the enabled ones. A board
// that fails to start stays registered and is reported in its status.
func (lm *LifecycleManager) loadBoards(ctx context.Context) error {
	defs, err := lm.boardManager.LoadDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load board definitions: %w", err)
	}

	lm.logger.Info("Loading boards", zap.Int("count", len(defs)))

	for _, def := range defs {
		if _, err := lm.boardManager.AddBoard(ctx, def); err != nil {
			lm.logger.Error("Failed to add board",
				zap.String("name", def.Name),
				zap.Error(err))
			continue
		}
		if !def.Enabled {
			continue
		}
		if err := lm.boardManager.StartBoard(def.Name); err != nil {
			lm.logger.Error("Failed to start board",
				zap.String("name", def.Name),
				zap.Int("stack", def.Stack),
				zap.Error(err))
		}
	}

	return nil
}

// Errors reports fatal server errors after Start.
func (lm *LifecycleManager) Errors() <-chan error {
	return lm.serverErrs
}

// Done is closed once Shutdown has completed.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		if err := lm.setState(StateStopping); err != nil {
			lm.logger.Warn("Unexpected state on shutdown", zap.Error(err))
		}
		lm.broadcastStatus()

		shutdownErr = lm.gracefulShutdown(ctx)
		if shutdownErr != nil {
			lm.setError(shutdownErr)
		} else {
			lm.setState(StateStopped)
		}

		close(lm.shutdownChan)
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	// 1. Stop all boards (pollers and plugins)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := lm.boardManager.StopAll(ctx); err != nil {
			errChan <- fmt.Errorf("board manager stop failed: %w", err)
		}
	}()

	// 2. REST API Server graceful shutdown
	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lm.restServer.Shutdown(ctx); err != nil {
				errChan <- fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		select {
		case err = <-errChan:
		default:
		}
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		err = fmt.Errorf("shutdown timeout exceeded")
	}

	// 3. WebSocket clients and the shared bus go last
	if lm.hubCancel != nil {
		lm.hubCancel()
	}
	if c, ok := lm.transport.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing i2c bus failed: %w", cerr)
		}
	}

	if err == nil {
		lm.logger.Info("Graceful shutdown completed")
	}
	return err
}

func (lm *LifecycleManager) setState(state SystemState) error {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, state); err != nil {
		return err
	}
	lm.currentState = state
	lm.changedAt = time.Now()
	return nil
}

func (lm *LifecycleManager) setError(err error) {
	lm.stateMu.Lock()
	lm.currentState = StateError
	lm.changedAt = time.Now()
	lm.lastErr = err
	lm.stateMu.Unlock()

	lm.broadcastStatus()
}

// State returns the current lifecycle state.
func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	list := lm.boardManager.ListBoards()
	running := 0
	for _, b := range list {
		if b.Running {
			running++
		}
	}

	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	status := interfaces.SystemStatus{
		State:         lm.currentState.String(),
		StateChanged:  lm.changedAt.Unix(),
		Bus:           lm.config.I2C.Bus,
		BoardCount:    len(list),
		RunningBoards: running,
		Clients:       lm.wsHub.GetClientCount(),
	}
	if !lm.startedAt.IsZero() {
		status.StartedAt = lm.startedAt.Unix()
	}
	if lm.lastErr != nil {
		status.Error = lm.lastErr.Error()
	}
	return status
}

// GetStatus feeds the status sent to new WebSocket clients.
func (lm *LifecycleManager) GetStatus() any {
	return lm.GetCurrentStatus()
}

func (lm *LifecycleManager) broadcastStatus() {
	lm.wsHub.Broadcast(websocket.NewMessage(websocket.MessageTypeSystemStatus, lm.GetCurrentStatus()))
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

func (lm *LifecycleManager) Driver() *ioplus.Driver {
	return lm.driver
}

// BoardManager returns the board manager
func (lm *LifecycleManager) BoardManager() *boards.Manager {
	return lm.boardManager
}
