package i2cbus

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/KevinKickass/ioplusd/internal/ioplus"
)

func countingOpener(bus i2c.BusCloser, opens *int) Opener {
	return func(name string) (i2c.BusCloser, error) {
		*opens++
		return bus, nil
	}
}

func TestTransportReadsThroughDriver(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x29, W: []byte{ioplus.RegOptoIn}, R: []byte{0x81}},
			{Addr: 0x29, W: []byte{ioplus.RegOptoIn}, R: []byte{0x81}},
		},
		DontPanic: true,
	}
	opens := 0
	d := ioplus.NewDriver(NewTransport("1", countingOpener(bus, &opens), zap.NewNop()))

	val, err := d.Optos(1)
	if err != nil {
		t.Fatalf("Optos failed: %v", err)
	}
	if val != 0x81 {
		t.Errorf("expected 0x81, got %#x", val)
	}
	if opens != 1 {
		t.Errorf("expected one bus open, got %d", opens)
	}
}

func TestTransportWritesRegisterPrefixedData(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x28, W: []byte{ioplus.RegDACMilliV, 0xC4, 0x09}},
		},
		DontPanic: true,
	}
	opens := 0
	d := ioplus.NewDriver(NewTransport("1", countingOpener(bus, &opens), zap.NewNop()))

	if err := d.SetDACVolts(0, 1, 2.5); err != nil {
		t.Fatalf("SetDACVolts failed: %v", err)
	}
}

func TestTransportBusErrorIsTransportKind(t *testing.T) {
	// no scripted ops: any transaction fails
	bus := &i2ctest.Playback{DontPanic: true}
	opens := 0
	d := ioplus.NewDriver(NewTransport("1", countingOpener(bus, &opens), zap.NewNop()))

	if err := d.SetRelay(0, 1, true); !ioplus.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestTransportOpenError(t *testing.T) {
	boom := errors.New("no such bus")
	tr := NewTransport("9", func(string) (i2c.BusCloser, error) { return nil, boom }, zap.NewNop())

	_, err := ioplus.NewDriver(tr).Relays(0)
	if !ioplus.IsTransport(err) || !errors.Is(err, boom) {
		t.Fatalf("expected transport error wrapping %v, got %v", boom, err)
	}
}

func TestSharedOpensOnce(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x28, W: []byte{ioplus.RegRelaySet, 2}},
			{Addr: 0x28, W: []byte{ioplus.RegRelayClr, 2}},
		},
		DontPanic: true,
	}
	opens := 0
	shared := NewShared("1", countingOpener(bus, &opens), zap.NewNop())
	d := ioplus.NewDriver(shared)

	if err := d.SetRelay(0, 2, true); err != nil {
		t.Fatalf("SetRelay on failed: %v", err)
	}
	if err := d.SetRelay(0, 2, false); err != nil {
		t.Fatalf("SetRelay off failed: %v", err)
	}
	if opens != 1 {
		t.Errorf("expected one bus open, got %d", opens)
	}

	if err := shared.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := shared.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
