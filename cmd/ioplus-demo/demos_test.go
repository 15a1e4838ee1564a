package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"

	"github.com/KevinKickass/ioplusd/internal/ioplus"
)

type relayCall struct {
	channel int
	on      bool
}

// MockBoard records outputs and serves counters from function fields.
type MockBoard struct {
	mu     sync.Mutex
	relays []relayCall
	duties []int

	SetRelayFunc  func(stack, channel int, on bool) error
	OptoCountFunc func(stack, channel int) (uint32, error)
	EncoderFunc   func(stack, channel int) (int32, error)

	edge       ioplus.Edge
	encoderOn  bool
	countReset int
}

func (m *MockBoard) SetRelay(stack, channel int, on bool) error {
	m.mu.Lock()
	m.relays = append(m.relays, relayCall{channel, on})
	m.mu.Unlock()
	if m.SetRelayFunc != nil {
		return m.SetRelayFunc(stack, channel, on)
	}
	return nil
}

func (m *MockBoard) SetPWM(stack, channel, duty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duties = append(m.duties, duty)
	return nil
}

func (m *MockBoard) SetOptoEdge(stack, channel int, edge ioplus.Edge) error {
	m.edge = edge
	return nil
}

func (m *MockBoard) OptoCount(stack, channel int) (uint32, error) {
	return m.OptoCountFunc(stack, channel)
}

func (m *MockBoard) ResetOptoCount(stack, channel int) error {
	m.countReset++
	return nil
}

func (m *MockBoard) SetOptoEncoder(stack, channel int, on bool) error {
	m.encoderOn = on
	return nil
}

func (m *MockBoard) OptoEncoderCount(stack, channel int) (int32, error) {
	return m.EncoderFunc(stack, channel)
}

func (m *MockBoard) ResetOptoEncoderCount(stack, channel int) error {
	m.countReset++
	return nil
}

func (m *MockBoard) lastRelay() relayCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.relays[len(m.relays)-1]
}

func testDemo(out *bytes.Buffer) demo {
	return demo{stack: 0, channel: 1, out: out, logger: zap.NewNop(), scale: 100}
}

func TestPWMRampEndsWithOutputOff(t *testing.T) {
	board := &MockBoard{}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := testDemo(nil).pwmRamp(ctx, board); err != nil {
		t.Fatalf("pwmRamp failed: %v", err)
	}

	board.mu.Lock()
	defer board.mu.Unlock()
	if len(board.duties) < 3 {
		t.Fatalf("expected several duty steps, got %v", board.duties)
	}
	if board.duties[0] != 0 || board.duties[1] != 100 || board.duties[2] != 200 {
		t.Errorf("unexpected ramp start %v", board.duties[:3])
	}
	if last := board.duties[len(board.duties)-1]; last != 0 {
		t.Errorf("expected PWM off on exit, got %d", last)
	}
}

func TestRelayTestSwitchesAllOffOnExit(t *testing.T) {
	board := &MockBoard{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := testDemo(nil).relayTest(ctx, board); err != nil {
		t.Fatalf("relayTest failed: %v", err)
	}

	board.mu.Lock()
	defer board.mu.Unlock()
	if board.relays[0] != (relayCall{1, true}) {
		t.Errorf("expected relay 1 on first, got %+v", board.relays[0])
	}
	tail := board.relays[len(board.relays)-ioplus.RelayChannels:]
	for i, c := range tail {
		if c.channel != i+1 || c.on {
			t.Errorf("expected relay %d off on exit, got %+v", i+1, c)
		}
	}
}

func TestRelayTestStopsOnError(t *testing.T) {
	failure := errors.New("bus gone")
	board := &MockBoard{SetRelayFunc: func(_, ch int, on bool) error {
		if ch == 3 && on {
			return failure
		}
		return nil
	}}

	err := testDemo(nil).relayTest(context.Background(), board)
	if !errors.Is(err, failure) {
		t.Fatalf("expected bus error, got %v", err)
	}
}

func TestEdgeCountPrintsChanges(t *testing.T) {
	var (
		mu    sync.Mutex
		reads int
	)
	board := &MockBoard{OptoCountFunc: func(_, _ int) (uint32, error) {
		mu.Lock()
		defer mu.Unlock()
		reads++
		switch {
		case reads == 1:
			return 7, nil
		case reads == 3:
			return 0, errors.New("spurious")
		case reads < 5:
			return 0, nil
		default:
			return 2, nil
		}
	}}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	if err := testDemo(&out).edgeCount(ctx, board); err != nil {
		t.Fatalf("edgeCount failed: %v", err)
	}

	if board.edge != ioplus.EdgeRising || board.countReset != 1 {
		t.Errorf("expected rising edge and one reset, got %v / %d", board.edge, board.countReset)
	}
	got := out.String()
	if !strings.HasPrefix(got, "Counter before loop 7\n") {
		t.Errorf("unexpected header %q", got)
	}
	if strings.Count(got, "\r0 ") != 1 || strings.Count(got, "\r2 ") != 1 {
		t.Errorf("expected each value printed once, got %q", got)
	}
}

func TestEncoderEnablesDecoder(t *testing.T) {
	board := &MockBoard{EncoderFunc: func(_, _ int) (int32, error) { return -3, nil }}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	if err := testDemo(&out).encoder(ctx, board); err != nil {
		t.Fatalf("encoder failed: %v", err)
	}
	if !board.encoderOn || board.countReset != 1 {
		t.Errorf("expected encoder enabled and reset")
	}
	if !strings.Contains(out.String(), "\r-3 ") {
		t.Errorf("expected negative count printed, got %q", out.String())
	}
}

type scriptedButton struct {
	mu     sync.Mutex
	levels []gpio.Level
}

func (b *scriptedButton) Read() gpio.Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	l := b.levels[0]
	if len(b.levels) > 1 {
		b.levels = b.levels[1:]
	}
	return l
}

func TestPushRelayFollowsButton(t *testing.T) {
	board := &MockBoard{}
	button := &scriptedButton{levels: []gpio.Level{gpio.High, gpio.Low, gpio.Low, gpio.High, gpio.Low}}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	d := testDemo(nil)
	d.channel = 5
	if err := d.pushRelay(ctx, board, button); err != nil {
		t.Fatalf("pushRelay failed: %v", err)
	}

	board.mu.Lock()
	got := append([]relayCall(nil), board.relays...)
	board.mu.Unlock()

	want := []relayCall{{5, true}, {5, false}, {5, true}, {5, false}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if last := board.lastRelay(); last.on {
		t.Error("relay left on after exit")
	}
}

type stacksFound []int

func (s stacksFound) Detect() []int { return s }

func TestListPrintsStackLevels(t *testing.T) {
	tests := []struct {
		name  string
		found stacksFound
		want  string
	}{
		{"none", nil, "0 board(s) detected\n"},
		{"two", stacksFound{0, 3}, "2 board(s) detected\nId: 0 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			testDemo(&out).list(tt.found)
			if out.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, out.String())
			}
		})
	}
}
