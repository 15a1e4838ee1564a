package ioplus

import (
	"encoding/binary"
	"errors"
	"sync"
)

var errNoDevice = errors.New("no device at address")

type busOp struct {
	write bool
	addr  uint16
	reg   uint8
	data  []byte
}

// fakeBus is a register image per bus address. Reads can be scripted per
// register to simulate unstable conversions.
type fakeBus struct {
	mu       sync.Mutex
	mem      map[uint16]*[256]byte
	script   map[uint8][][]byte
	openErr  error
	readErr  error
	writeErr error
	present  map[uint16]bool // nil: every address answers
	opens    int
	closes   int
	ops      []busOp
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		mem:    make(map[uint16]*[256]byte),
		script: make(map[uint8][][]byte),
	}
}

func (b *fakeBus) Open() (Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opens++
	return &fakeConn{bus: b}, nil
}

func (b *fakeBus) image(addr uint16) *[256]byte {
	m, ok := b.mem[addr]
	if !ok {
		m = new([256]byte)
		b.mem[addr] = m
	}
	return m
}

func (b *fakeBus) poke(addr uint16, reg uint8, data ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copy(b.image(addr)[reg:], data)
}

// scriptWords queues successive little-endian word samples for reg.
func (b *fakeBus) scriptWords(reg uint8, words ...uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range words {
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, w)
		b.script[reg] = append(b.script[reg], buf)
	}
}

func (b *fakeBus) scriptBytes(reg uint8, values ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range values {
		b.script[reg] = append(b.script[reg], []byte{v})
	}
}

func (b *fakeBus) reads(reg uint8) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, op := range b.ops {
		if !op.write && op.reg == reg {
			n++
		}
	}
	return n
}

func (b *fakeBus) writes() []busOp {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []busOp
	for _, op := range b.ops {
		if op.write {
			out = append(out, op)
		}
	}
	return out
}

type fakeConn struct {
	bus *fakeBus
}

func (c *fakeConn) ReadReg(addr uint16, reg uint8, buf []byte) error {
	b := c.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, busOp{addr: addr, reg: reg})
	if b.readErr != nil {
		return b.readErr
	}
	if b.present != nil && !b.present[addr] {
		return errNoDevice
	}
	if q := b.script[reg]; len(q) > 0 {
		copy(buf, q[0])
		b.script[reg] = q[1:]
		return nil
	}
	copy(buf, b.image(addr)[reg:])
	return nil
}

func (c *fakeConn) WriteReg(addr uint16, reg uint8, data []byte) error {
	b := c.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, busOp{write: true, addr: addr, reg: reg, data: append([]byte(nil), data...)})
	if b.writeErr != nil {
		return b.writeErr
	}
	copy(b.image(addr)[reg:], data)
	return nil
}

func (c *fakeConn) Close() error {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()
	c.bus.closes++
	return nil
}
