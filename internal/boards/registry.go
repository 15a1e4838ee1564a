package boards

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/KevinKickass/ioplusd/internal/adapter"
	"github.com/KevinKickass/ioplusd/internal/storage"
	"github.com/KevinKickass/ioplusd/internal/types"
)

const storeTimeout = 5 * time.Second

// Notifier receives unit value changes, e.g. the WebSocket hub.
type Notifier interface {
	BroadcastUnitUpdate(board string, unit, nValue int, sValue string)
}

// Registry is the device table of one board. It implements adapter.Host on
// top of a Store and reports changed values to a Notifier.
type Registry struct {
	board    string
	store    storage.Store
	notifier Notifier
	logger   *zap.Logger

	mu    sync.RWMutex
	units map[int]adapter.Unit
}

func NewRegistry(board string, store storage.Store, notifier Notifier, logger *zap.Logger) *Registry {
	return &Registry{
		board:    board,
		store:    store,
		notifier: notifier,
		logger:   logger,
		units:    make(map[int]adapter.Unit),
	}
}

// Load restores the persisted units of the board.
func (r *Registry) Load(ctx context.Context) error {
	states, err := r.store.LoadUnits(ctx, r.board)
	if err != nil {
		return fmt.Errorf("failed to load units of %s: %w", r.board, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range states {
		r.units[st.Unit] = adapter.Unit{
			ID:     st.Unit,
			Name:   st.Name,
			Type:   st.Type,
			NValue: st.NValue,
			SValue: st.SValue,
			Used:   st.Used,
		}
	}
	return nil
}

func (r *Registry) HasUnit(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.units[id]
	return ok
}

func (r *Registry) CreateUnit(u adapter.Unit) error {
	r.mu.Lock()
	if _, exists := r.units[u.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("unit %d already exists on %s", u.ID, r.board)
	}
	r.units[u.ID] = u
	r.mu.Unlock()

	r.logger.Info("Unit created",
		zap.String("board", r.board),
		zap.Int("unit", u.ID),
		zap.String("name", u.Name))

	return r.persist(u)
}

func (r *Registry) Unit(id int) (adapter.Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	return u, ok
}

// UpdateUnit stores a new value. Unchanged values are neither persisted nor
// broadcast.
func (r *Registry) UpdateUnit(id, nValue int, sValue string) error {
	r.mu.Lock()
	u, ok := r.units[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unit %d not found on %s", id, r.board)
	}
	if u.NValue == nValue && u.SValue == sValue {
		r.mu.Unlock()
		return nil
	}
	u.NValue, u.SValue = nValue, sValue
	r.units[id] = u
	r.mu.Unlock()

	if r.notifier != nil {
		r.notifier.BroadcastUnitUpdate(r.board, id, nValue, sValue)
	}
	return r.persist(u)
}

// Units returns a snapshot ordered by unit id.
func (r *Registry) Units() []adapter.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	units := make([]adapter.Unit, 0, len(r.units))
	for _, u := range r.units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units
}

func (r *Registry) persist(u adapter.Unit) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	return r.store.SaveUnit(ctx, types.UnitState{
		Board:     r.board,
		Unit:      u.ID,
		Name:      u.Name,
		Type:      u.Type,
		NValue:    u.NValue,
		SValue:    u.SValue,
		Used:      u.Used,
		UpdatedAt: time.Now(),
	})
}
