// Package i2cbus binds the ioplus driver to a Linux I2C bus through periph.io.
package i2cbus

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/KevinKickass/ioplusd/internal/ioplus"
)

// Opener opens a bus by name. Tests replace it with a playback bus.
type Opener func(name string) (i2c.BusCloser, error)

var (
	hostOnce sync.Once
	hostErr  error
)

// InitHost loads the periph host drivers once per process.
func InitHost() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return fmt.Errorf("periph host init: %w", hostErr)
	}
	return nil
}

// OpenHost opens the named bus ("1", "/dev/i2c-1" or "" for the first bus
// found).
func OpenHost(name string) (i2c.BusCloser, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return bus, nil
}

// conn is one handle on an open bus. owned handles close the bus with them.
type conn struct {
	bus   i2c.Bus
	owned i2c.BusCloser
}

func (c *conn) ReadReg(addr uint16, reg uint8, buf []byte) error {
	d := i2c.Dev{Bus: c.bus, Addr: addr}
	if err := d.Tx([]byte{reg}, buf); err != nil {
		return fmt.Errorf("read 0x%02X reg %d: %w", addr, reg, err)
	}
	return nil
}

func (c *conn) WriteReg(addr uint16, reg uint8, data []byte) error {
	d := i2c.Dev{Bus: c.bus, Addr: addr}
	if _, err := d.Write(append([]byte{reg}, data...)); err != nil {
		return fmt.Errorf("write 0x%02X reg %d: %w", addr, reg, err)
	}
	return nil
}

func (c *conn) Close() error {
	if c.owned == nil {
		return nil
	}
	return c.owned.Close()
}

// Transport opens the bus for every driver call and closes it afterwards,
// the way the board's own tools access it.
type Transport struct {
	name   string
	open   Opener
	logger *zap.Logger
}

func NewTransport(name string, open Opener, logger *zap.Logger) *Transport {
	if open == nil {
		open = OpenHost
	}
	return &Transport{name: name, open: open, logger: logger}
}

func (t *Transport) Open() (ioplus.Conn, error) {
	bus, err := t.open(t.name)
	if err != nil {
		t.logger.Debug("I2C bus open failed", zap.String("bus", t.name), zap.Error(err))
		return nil, err
	}
	return &conn{bus: bus, owned: bus}, nil
}

// Shared keeps a single bus handle open across calls. Handles returned by
// Open do not close it; Close does.
type Shared struct {
	name   string
	open   Opener
	logger *zap.Logger

	mu  sync.Mutex
	bus i2c.BusCloser
}

func NewShared(name string, open Opener, logger *zap.Logger) *Shared {
	if open == nil {
		open = OpenHost
	}
	return &Shared{name: name, open: open, logger: logger}
}

func (s *Shared) Open() (ioplus.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bus == nil {
		bus, err := s.open(s.name)
		if err != nil {
			return nil, err
		}
		s.bus = bus
		s.logger.Info("I2C bus opened", zap.String("bus", bus.String()))
	}
	return &conn{bus: s.bus}, nil
}

// Close releases the shared handle. A later Open reopens the bus.
func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bus == nil {
		return nil
	}
	err := s.bus.Close()
	s.bus = nil
	s.logger.Info("I2C bus closed", zap.String("bus", s.name))
	return err
}

// New picks the transport for the keep_open setting.
func New(name string, keepOpen bool, logger *zap.Logger) ioplus.Transport {
	if keepOpen {
		return NewShared(name, nil, logger)
	}
	return NewTransport(name, nil, logger)
}
