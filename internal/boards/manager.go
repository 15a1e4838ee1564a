// Package boards manages the configured IOplus boards: definitions, one
// adapter plugin and heartbeat poller per board, and their unit tables.
package boards

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KevinKickass/ioplusd/internal/adapter"
	"github.com/KevinKickass/ioplusd/internal/ioplus"
	"github.com/KevinKickass/ioplusd/internal/storage"
	"github.com/KevinKickass/ioplusd/internal/types"
)

var (
	ErrBoardNotFound = errors.New("board not found")
	ErrBoardExists   = errors.New("board already exists")
	ErrStackInUse    = errors.New("stack level already in use")
)

// Board is one managed board instance.
type Board struct {
	Definition types.BoardDefinition
	Plugin     *adapter.Plugin
	Registry   *Registry

	mu     sync.RWMutex // guards poller
	poller *Poller
}

func (b *Board) currentPoller() *Poller {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.poller
}

func (b *Board) Status() types.BoardStatus {
	st := types.BoardStatus{
		Definition: b.Definition,
		Address:    fmt.Sprintf("0x%02X", ioplus.Address(b.Definition.Stack)),
		Running:    b.Plugin.Running(),
	}
	if poller := b.currentPoller(); poller != nil {
		last, err := poller.LastResult()
		if !last.IsZero() {
			st.LastPoll = &last
		}
		if err != nil {
			st.LastError = err.Error()
		}
	}
	return st
}

type Manager struct {
	driver           adapter.Board
	store            storage.Store
	notifier         Notifier
	validator        *Validator
	loader           *Loader
	defaultHeartbeat time.Duration
	boards           map[string]*Board
	mu               sync.RWMutex
	logger           *zap.Logger
}

func NewManager(
	driver adapter.Board,
	store storage.Store,
	notifier Notifier,
	searchPaths []string,
	defaultHeartbeat time.Duration,
	logger *zap.Logger,
) (*Manager, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &Manager{
		driver:           driver,
		store:            store,
		notifier:         notifier,
		validator:        validator,
		loader:           NewLoader(searchPaths, validator),
		defaultHeartbeat: defaultHeartbeat,
		boards:           make(map[string]*Board),
		logger:           logger,
	}, nil
}

func (m *Manager) Validator() *Validator {
	return m.validator
}

// LoadDefinitions merges the stored boards with the definition files. A file
// overrides a stored board of the same name.
func (m *Manager) LoadDefinitions(ctx context.Context) ([]types.BoardDefinition, error) {
	stored, err := m.store.LoadBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored boards: %w", err)
	}
	files, err := m.loader.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load board files: %w", err)
	}

	byName := make(map[string]types.BoardDefinition, len(stored)+len(files))
	for _, def := range stored {
		byName[def.Name] = def
	}
	for _, def := range files {
		if prev, ok := byName[def.Name]; ok && def.ID == uuid.Nil {
			def.ID = prev.ID
		}
		byName[def.Name] = def
	}

	defs := make([]types.BoardDefinition, 0, len(byName))
	for _, def := range byName {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Stack < defs[j].Stack })
	return defs, nil
}

// AddBoard validates, persists and registers a board without starting it.
func (m *Manager) AddBoard(ctx context.Context, def types.BoardDefinition) (*Board, error) {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	if err := m.validator.ValidateDefinition(&def); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.boards[def.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrBoardExists, def.Name)
	}
	for _, b := range m.boards {
		if b.Definition.Stack == def.Stack {
			return nil, fmt.Errorf("%w: stack %d is board %s", ErrStackInUse, def.Stack, b.Definition.Name)
		}
	}

	registry := NewRegistry(def.Name, m.store, m.notifier, m.logger)
	if err := registry.Load(ctx); err != nil {
		return nil, err
	}

	if err := m.store.SaveBoard(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to save board: %w", err)
	}

	cfg := &adapter.Config{
		Name:      def.Name,
		Stack:     def.Stack,
		Debug:     def.Debug,
		Heartbeat: def.Heartbeat(m.defaultHeartbeat),
	}
	board := &Board{
		Definition: def,
		Plugin:     adapter.NewPlugin(cfg, m.driver, registry, m.logger),
		Registry:   registry,
	}
	m.boards[def.Name] = board

	m.logger.Info("Board added",
		zap.String("name", def.Name),
		zap.Int("stack", def.Stack),
		zap.Duration("heartbeat", cfg.Heartbeat))

	return board, nil
}

// StartBoard runs the start hook and begins heartbeat polling.
func (m *Manager) StartBoard(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	board, ok := m.boards[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBoardNotFound, name)
	}
	if board.Plugin.Running() {
		return nil
	}

	if err := board.Plugin.OnStart(); err != nil {
		return fmt.Errorf("failed to start board %s: %w", name, err)
	}

	cfg := board.Plugin.Config()
	poller := NewPoller(name, cfg.Heartbeat, board.Plugin.OnHeartbeat, m.logger)
	board.mu.Lock()
	board.poller = poller
	board.mu.Unlock()
	poller.Start()
	return nil
}

// RemoveBoard stops a board and deletes it from the store.
func (m *Manager) RemoveBoard(ctx context.Context, name string) error {
	m.mu.Lock()
	board, ok := m.boards[name]
	if ok {
		delete(m.boards, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrBoardNotFound, name)
	}

	m.stopBoard(board)

	if err := m.store.DeleteBoard(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete board: %w", err)
	}

	m.logger.Info("Board removed", zap.String("name", name))
	return nil
}

func (m *Manager) stopBoard(b *Board) {
	if poller := b.currentPoller(); poller != nil {
		poller.Stop()
	}
	if b.Plugin.Running() {
		b.Plugin.OnStop()
	}
}

// Command forwards a host command to a board's plugin.
func (m *Manager) Command(name string, unit int, command string) error {
	board, ok := m.GetBoard(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBoardNotFound, name)
	}
	return board.Plugin.OnCommand(unit, command)
}

func (m *Manager) GetBoard(name string) (*Board, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	board, ok := m.boards[name]
	return board, ok
}

// ListBoards returns the status of all boards ordered by stack level.
func (m *Manager) ListBoards() []types.BoardStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]types.BoardStatus, 0, len(m.boards))
	for _, b := range m.boards {
		list = append(list, b.Status())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Definition.Stack < list[j].Definition.Stack })
	return list
}

// StopAll stops all pollers and plugins
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.boards {
		m.stopBoard(b)
	}
	return ctx.Err()
}
