// Package ioplus drives the IOplus expansion board over I2C. Every exported
// operation validates its arguments, opens the transport, performs the
// register transactions of one call and closes the transport again.
package ioplus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// Conn is one open handle on the bus.
type Conn interface {
	// ReadReg selects reg on the device at addr and fills buf.
	ReadReg(addr uint16, reg uint8, buf []byte) error
	// WriteReg writes data starting at reg on the device at addr.
	WriteReg(addr uint16, reg uint8, data []byte) error
	Close() error
}

// Transport hands out bus handles. Implementations may pool them.
type Transport interface {
	Open() (Conn, error)
}

// Driver is the register access driver. It holds no board state; the
// per-stack locks only serialize the transactions of this process.
type Driver struct {
	transport Transport
	retries   int
	locks     [MaxStack + 1]sync.Mutex
}

func NewDriver(transport Transport) *Driver {
	return &Driver{
		transport: transport,
		retries:   Retries,
	}
}

func checkStack(op string, stack int) error {
	if stack < 0 || stack > MaxStack {
		return invalid(op, stack, 0, "stack level must be 0..%d", MaxStack)
	}
	return nil
}

func checkChannel(op string, stack, channel, max int) error {
	if err := checkStack(op, stack); err != nil {
		return err
	}
	if channel < 1 || channel > max {
		return invalid(op, stack, channel, "channel must be 1..%d", max)
	}
	return nil
}

// transact runs fn with an open connection to the board at stack. The
// connection is closed on every path.
func (d *Driver) transact(op string, stack, channel int, fn func(s *session) error) (err error) {
	d.locks[stack].Lock()
	defer d.locks[stack].Unlock()

	conn, err := d.transport.Open()
	if err != nil {
		return &OpError{Op: op, Stack: stack, Channel: channel, Kind: ErrTransport, Err: err}
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = &OpError{Op: op, Stack: stack, Channel: channel, Kind: ErrTransport, Err: cerr}
		}
	}()

	s := &session{conn: conn, addr: Address(stack), retries: d.retries}
	if err := fn(s); err != nil {
		return annotate(op, stack, channel, err)
	}
	return nil
}

func annotate(op string, stack, channel int, err error) error {
	var opErr *OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "" {
			opErr.Op = op
			opErr.Stack = stack
		}
		if opErr.Channel == 0 {
			opErr.Channel = channel
		}
		return opErr
	}
	return &OpError{Op: op, Stack: stack, Channel: channel, Kind: ErrTransport, Err: err}
}

// session is the register view of one open connection.
type session struct {
	conn    Conn
	addr    uint16
	retries int
}

func (s *session) readByte(reg uint8) (uint8, error) {
	buf := make([]byte, 1)
	if err := s.conn.ReadReg(s.addr, reg, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (s *session) readWord(reg uint8) (uint16, error) {
	buf := make([]byte, 2)
	if err := s.conn.ReadReg(s.addr, reg, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (s *session) readBlock(reg uint8, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := s.conn.ReadReg(s.addr, reg, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *session) writeByte(reg, value uint8) error {
	return s.conn.WriteReg(s.addr, reg, []byte{value})
}

func (s *session) writeWord(reg uint8, value uint16) error {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, value)
	return s.conn.WriteReg(s.addr, reg, buf)
}

func (s *session) writeBlock(reg uint8, data []byte) error {
	return s.conn.WriteReg(s.addr, reg, data)
}

// Masks applied to two consecutive samples before comparing them.
const (
	maskExact  = 0xFFFF
	maskAnalog = 0xFFFC // ignore +/-3 counts of conversion jitter
)

// readDebounced reads a 1 or 2 byte register until two consecutive samples
// agree under mask and returns the latest one.
func (s *session) readDebounced(reg uint8, width int, mask uint16) (uint16, error) {
	buf := make([]byte, width)
	var prev uint16
	for i := 0; i < s.retries; i++ {
		if err := s.conn.ReadReg(s.addr, reg, buf); err != nil {
			return 0, err
		}
		var cur uint16
		if width == 1 {
			cur = uint16(buf[0])
		} else {
			cur = binary.LittleEndian.Uint16(buf)
		}
		if i > 0 && cur&mask == prev&mask {
			return cur, nil
		}
		prev = cur
	}
	return 0, &OpError{
		Kind: ErrSpuriousRead,
		Err:  fmt.Errorf("register %d: no two agreeing samples in %d reads", reg, s.retries),
	}
}

func (s *session) readByteDebounced(reg uint8) (uint8, error) {
	v, err := s.readDebounced(reg, 1, maskExact)
	return uint8(v), err
}

func (s *session) readWordDebounced(reg uint8) (uint16, error) {
	return s.readDebounced(reg, 2, maskAnalog)
}

// setBit returns b with bit n (0 based) set or cleared.
func setBit(b uint8, n int, on bool) uint8 {
	if on {
		return b | 1<<n
	}
	return b &^ (1 << n)
}
