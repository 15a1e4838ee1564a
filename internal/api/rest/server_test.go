package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KevinKickass/ioplusd/internal/api/websocket"
	"github.com/KevinKickass/ioplusd/internal/auth"
	"github.com/KevinKickass/ioplusd/internal/boards"
	"github.com/KevinKickass/ioplusd/internal/config"
	"github.com/KevinKickass/ioplusd/internal/interfaces"
	"github.com/KevinKickass/ioplusd/internal/ioplus"
	"github.com/KevinKickass/ioplusd/internal/storage"
)

// memBus is a register file per bus address.
type memBus struct {
	mu      sync.Mutex
	regs    map[uint16]*[256]byte
	writes  []busWrite
	openErr error
	// flicker makes every read return a different value
	flicker bool
	reads   int
	// present limits the answering addresses when set
	present map[uint16]bool
}

type busWrite struct {
	addr uint16
	reg  uint8
	data []byte
}

func newMemBus() *memBus {
	return &memBus{regs: make(map[uint16]*[256]byte)}
}

func (b *memBus) page(addr uint16) *[256]byte {
	p, ok := b.regs[addr]
	if !ok {
		p = new([256]byte)
		b.regs[addr] = p
	}
	return p
}

func (b *memBus) Open() (ioplus.Conn, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return memConn{b}, nil
}

func (b *memBus) lastWrite() busWrite {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.writes) == 0 {
		return busWrite{}
	}
	return b.writes[len(b.writes)-1]
}

type memConn struct{ bus *memBus }

func (c memConn) ReadReg(addr uint16, reg uint8, buf []byte) error {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()
	if c.bus.present != nil && !c.bus.present[addr] {
		return errors.New("remote I/O error")
	}
	copy(buf, c.bus.page(addr)[int(reg):])
	if c.bus.flicker {
		c.bus.reads++
		buf[0] = byte(c.bus.reads * 4)
	}
	return nil
}

func (c memConn) WriteReg(addr uint16, reg uint8, data []byte) error {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()
	copy(c.bus.page(addr)[int(reg):], data)
	c.bus.writes = append(c.bus.writes, busWrite{addr, reg, append([]byte(nil), data...)})
	return nil
}

func (c memConn) Close() error { return nil }

type fakeLifecycle struct {
	cfg       *config.Config
	driver    *ioplus.Driver
	mgr       *boards.Manager
	shutdowns int
}

func (f *fakeLifecycle) Config() *config.Config        { return f.cfg }
func (f *fakeLifecycle) Driver() *ioplus.Driver        { return f.driver }
func (f *fakeLifecycle) BoardManager() *boards.Manager { return f.mgr }
func (f *fakeLifecycle) Shutdown(context.Context) error {
	f.shutdowns++
	return nil
}
func (f *fakeLifecycle) GetCurrentStatus() interfaces.SystemStatus {
	return interfaces.SystemStatus{State: "RUNNING", Bus: f.cfg.I2C.Bus}
}

type testEnv struct {
	bus    *memBus
	router http.Handler
	tokens map[string]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	hash, err := auth.NewPasswordHasherWithParams(64, 1, 1).HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	t.Setenv("IOPLUS_TEST_JWT", "0123456789abcdef0123456789abcdef")
	cfg := &config.Config{
		Server: config.ServerConfig{HTTPPort: 0, ShutdownTimeout: time.Second},
		Auth: config.AuthConfig{
			JWTSecretEnv:   "IOPLUS_TEST_JWT",
			AccessTokenTTL: time.Hour,
			Users: []config.UserConfig{
				{Username: "op", PasswordHash: hash, Role: "operator"},
				{Username: "tech", PasswordHash: hash, Role: "technician"},
				{Username: "admin", PasswordHash: hash, Role: "admin"},
			},
		},
		I2C: config.I2CConfig{Bus: "1"},
	}
	authService := auth.NewAuthService(cfg.Auth, logger)
	hub := websocket.NewHub(logger, authService)

	bus := newMemBus()
	driver := ioplus.NewDriver(bus)
	mgr, err := boards.NewManager(driver, storage.NewMemoryStore(), hub, nil, time.Hour, logger)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { mgr.StopAll(context.Background()) })

	lm := &fakeLifecycle{cfg: cfg, driver: driver, mgr: mgr}
	env := &testEnv{
		bus:    bus,
		router: NewServer(lm, logger, hub, authService).Handler(),
		tokens: make(map[string]string),
	}
	for _, u := range []string{"op", "tech", "admin"} {
		w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": u, "password": "pw"})
		if w.Code != http.StatusOK {
			t.Fatalf("login %s: expected 200, got %d: %s", u, w.Code, w.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode login response: %v", err)
		}
		env.tokens[u] = resp.AccessToken
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[user])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "op", "password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRelayPermissions(t *testing.T) {
	env := newTestEnv(t)
	env.bus.page(0x28)[ioplus.RegRelayVal] = 0x05

	w := env.do(t, http.MethodGet, "/api/v1/stacks/0/relays", "op", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if v := decode(t, w)["value"]; v != float64(5) {
		t.Errorf("expected relay byte 5, got %v", v)
	}

	if w := env.do(t, http.MethodPut, "/api/v1/stacks/0/relays/3", "op", gin.H{"state": true}); w.Code != http.StatusForbidden {
		t.Errorf("operator write: expected 403, got %d", w.Code)
	}

	w = env.do(t, http.MethodPut, "/api/v1/stacks/0/relays/3", "tech", gin.H{"state": true})
	if w.Code != http.StatusOK {
		t.Fatalf("technician write: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	last := env.bus.lastWrite()
	if last.addr != 0x28 || last.reg != ioplus.RegRelaySet || !bytes.Equal(last.data, []byte{3}) {
		t.Errorf("unexpected bus write %+v", last)
	}

	if w := env.do(t, http.MethodPut, "/api/v1/stacks/0/optos/1/edge", "tech", gin.H{"edge": "rising"}); w.Code != http.StatusForbidden {
		t.Errorf("technician counter config: expected 403, got %d", w.Code)
	}
}

func TestDriverErrorMapping(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		setup  func(b *memBus)
		want   int
	}{
		{"bad channel", http.MethodGet, "/api/v1/stacks/0/relays/9", nil, nil, http.StatusBadRequest},
		{"bad stack", http.MethodGet, "/api/v1/stacks/8/optos", nil, nil, http.StatusBadRequest},
		{"non numeric stack", http.MethodGet, "/api/v1/stacks/x/optos", nil, nil, http.StatusBadRequest},
		{"missing body field", http.MethodPut, "/api/v1/stacks/0/dac/1", gin.H{}, nil, http.StatusBadRequest},
		{"unknown edge", http.MethodPut, "/api/v1/stacks/0/optos/1/edge", gin.H{"edge": "up"}, nil, http.StatusBadRequest},
		{"empty watchdog", http.MethodPut, "/api/v1/stacks/0/watchdog", gin.H{}, nil, http.StatusBadRequest},
		{"transport", http.MethodGet, "/api/v1/stacks/0/relays", nil,
			func(b *memBus) { b.openErr = errors.New("no such device") }, http.StatusBadGateway},
		{"spurious", http.MethodGet, "/api/v1/stacks/0/adc/1/raw", nil,
			func(b *memBus) { b.flicker = true }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.bus.openErr, env.bus.flicker = nil, false
			if tt.setup != nil {
				tt.setup(env.bus)
			}
			w := env.do(t, tt.method, tt.path, "admin", tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestAnalogAndCounterRoutes(t *testing.T) {
	env := newTestEnv(t)
	page := env.bus.page(0x29)
	page[ioplus.RegADCMilliV+2], page[ioplus.RegADCMilliV+3] = 0xDC, 0x05 // 1500 mV on channel 2
	page[ioplus.RegOptoEdgeCount+4] = 42                                 // channel 2

	w := env.do(t, http.MethodGet, "/api/v1/stacks/1/adc/2", "op", nil)
	if w.Code != http.StatusOK || decode(t, w)["volts"] != 1.5 {
		t.Errorf("unexpected adc response %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/stacks/1/optos/2/count", "op", nil)
	if w.Code != http.StatusOK || decode(t, w)["count"] != float64(42) {
		t.Errorf("unexpected count response %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPut, "/api/v1/stacks/1/dac/1", "tech", gin.H{"volts": 2.5})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if last := env.bus.lastWrite(); last.reg != ioplus.RegDACMilliV || !bytes.Equal(last.data, []byte{0xC4, 0x09}) {
		t.Errorf("unexpected DAC write %+v", last)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/stacks/1/optos/2/count", "admin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if last := env.bus.lastWrite(); last.reg != ioplus.RegOptoCountReset || !bytes.Equal(last.data, []byte{2}) {
		t.Errorf("unexpected reset write %+v", last)
	}
}

func TestBoardRoutes(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodPost, "/api/v1/boards", "tech", gin.H{"name": "kitchen", "stack": 1}); w.Code != http.StatusForbidden {
		t.Errorf("technician create: expected 403, got %d", w.Code)
	}

	w := env.do(t, http.MethodPost, "/api/v1/boards", "admin", gin.H{"name": "kitchen", "stack": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if _, failed := decode(t, w)["start_error"]; failed {
		t.Errorf("board failed to start: %s", w.Body.String())
	}

	conflicts := []struct {
		name string
		body gin.H
		want int
	}{
		{"duplicate name", gin.H{"name": "kitchen", "stack": 2}, http.StatusConflict},
		{"duplicate stack", gin.H{"name": "garage", "stack": 1}, http.StatusConflict},
		{"stack out of range", gin.H{"name": "attic", "stack": 8}, http.StatusBadRequest},
		{"unknown field", gin.H{"name": "attic", "stack": 3, "bus": 2}, http.StatusBadRequest},
	}
	for _, tt := range conflicts {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, http.MethodPost, "/api/v1/boards", "admin", tt.body); w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	w = env.do(t, http.MethodGet, "/api/v1/boards/kitchen/units", "op", nil)
	if w.Code != http.StatusOK || decode(t, w)["count"] != float64(16) {
		t.Errorf("unexpected units response %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/v1/boards/kitchen/units/4/command", "tech", gin.H{"command": "On"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if last := env.bus.lastWrite(); last.addr != 0x29 || last.reg != ioplus.RegRelaySet || !bytes.Equal(last.data, []byte{4}) {
		t.Errorf("unexpected relay write %+v", last)
	}

	if w := env.do(t, http.MethodPost, "/api/v1/boards/kitchen/units/4/command", "tech", gin.H{"command": "Toggle"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown command: expected 400, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/v1/boards/cellar/units/4/command", "tech", gin.H{"command": "On"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown board: expected 404, got %d", w.Code)
	}

	if w := env.do(t, http.MethodDelete, "/api/v1/boards/kitchen", "admin", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/boards/kitchen", "op", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestSystemStatus(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/system/status", "op", nil)
	if w.Code != http.StatusOK || decode(t, w)["state"] != "RUNNING" {
		t.Errorf("unexpected status %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/api/v1/system/shutdown", "op", nil); w.Code != http.StatusForbidden {
		t.Errorf("operator shutdown: expected 403, got %d", w.Code)
	}
}

func TestDetectBoards(t *testing.T) {
	env := newTestEnv(t)
	env.bus.mu.Lock()
	env.bus.present = map[uint16]bool{0x28: true, 0x2A: true}
	env.bus.mu.Unlock()

	w := env.do(t, http.MethodGet, "/api/v1/system/detect", "op", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["count"] != float64(2) {
		t.Fatalf("expected 2 boards, got %v", body)
	}
	found := body["boards"].([]interface{})
	if second := found[1].(map[string]interface{}); second["stack"] != float64(2) || second["address"] != "0x2A" {
		t.Errorf("unexpected second board %v", second)
	}
}
