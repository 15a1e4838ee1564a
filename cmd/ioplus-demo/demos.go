package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"

	"github.com/KevinKickass/ioplusd/internal/ioplus"
)

const (
	rampSteps    = 100
	rampStep     = 20 * time.Millisecond
	relayStep    = 100 * time.Millisecond
	cyclePause   = time.Second
	counterPoll  = 200 * time.Millisecond
	buttonPoll   = 100 * time.Millisecond
	dutyPerStep  = ioplus.PWMMaxDuty / rampSteps
	countPattern = "\r%d    "
)

type pwmOutput interface {
	SetPWM(stack, channel, duty int) error
}

type relayOutput interface {
	SetRelay(stack, channel int, on bool) error
}

type edgeCounter interface {
	SetOptoEdge(stack, channel int, edge ioplus.Edge) error
	OptoCount(stack, channel int) (uint32, error)
	ResetOptoCount(stack, channel int) error
}

type encoderCounter interface {
	SetOptoEncoder(stack, channel int, on bool) error
	OptoEncoderCount(stack, channel int) (int32, error)
	ResetOptoEncoderCount(stack, channel int) error
}

type detector interface {
	Detect() []int
}

// levelReader is the part of gpio.PinIn the push button needs.
type levelReader interface {
	Read() gpio.Level
}

type demo struct {
	stack   int
	channel int
	out     io.Writer
	logger  *zap.Logger

	// tests shorten the delays
	scale time.Duration
}

// wait sleeps for d and reports false once ctx is done.
func (m demo) wait(ctx context.Context, d time.Duration) bool {
	if m.scale > 0 {
		d /= m.scale
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// pwmRamp fades the output up and down with a pause between cycles.
func (m demo) pwmRamp(ctx context.Context, d pwmOutput) (err error) {
	defer func() {
		if offErr := d.SetPWM(m.stack, m.channel, 0); err == nil {
			err = offErr
		}
	}()

	for {
		for i := 0; i < 2*rampSteps; i++ {
			step := i
			if i >= rampSteps {
				step = 2*rampSteps - 1 - i
			}
			if err := d.SetPWM(m.stack, m.channel, step*dutyPerStep); err != nil {
				return err
			}
			if !m.wait(ctx, rampStep) {
				return nil
			}
		}
		if !m.wait(ctx, cyclePause) {
			return nil
		}
	}
}

// relayTest walks all relays on, then off again.
func (m demo) relayTest(ctx context.Context, d relayOutput) (err error) {
	defer func() {
		for ch := 1; ch <= ioplus.RelayChannels; ch++ {
			if offErr := d.SetRelay(m.stack, ch, false); err == nil {
				err = offErr
			}
		}
	}()

	for {
		for _, on := range []bool{true, false} {
			for ch := 1; ch <= ioplus.RelayChannels; ch++ {
				if err := d.SetRelay(m.stack, ch, on); err != nil {
					return err
				}
				if !m.wait(ctx, relayStep) {
					return nil
				}
			}
		}
		if !m.wait(ctx, cyclePause) {
			return nil
		}
	}
}

// edgeCount counts rising edges and prints every change.
func (m demo) edgeCount(ctx context.Context, d edgeCounter) error {
	if err := d.SetOptoEdge(m.stack, m.channel, ioplus.EdgeRising); err != nil {
		return err
	}
	before, err := d.OptoCount(m.stack, m.channel)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Counter before loop %d\n", before)
	if err := d.ResetOptoCount(m.stack, m.channel); err != nil {
		return err
	}

	return m.follow(ctx, func() (int64, error) {
		n, err := d.OptoCount(m.stack, m.channel)
		return int64(n), err
	})
}

// encoder enables the quadrature decoder and prints every change.
func (m demo) encoder(ctx context.Context, d encoderCounter) error {
	if err := d.SetOptoEncoder(m.stack, m.channel, true); err != nil {
		return err
	}
	before, err := d.OptoEncoderCount(m.stack, m.channel)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Counter before loop %d\n", before)
	if err := d.ResetOptoEncoderCount(m.stack, m.channel); err != nil {
		return err
	}

	return m.follow(ctx, func() (int64, error) {
		n, err := d.OptoEncoderCount(m.stack, m.channel)
		return int64(n), err
	})
}

// follow polls a counter and prints it whenever it changes. Read errors are
// logged and the poll continues.
func (m demo) follow(ctx context.Context, read func() (int64, error)) error {
	var last int64
	first := true
	for {
		n, err := read()
		switch {
		case err != nil:
			m.logger.Warn("Counter read failed", zap.Error(err))
		case first || n != last:
			fmt.Fprintf(m.out, countPattern, n)
			last, first = n, false
		}
		if !m.wait(ctx, counterPoll) {
			fmt.Fprintln(m.out)
			return nil
		}
	}
}

// list prints the stack levels that answer on the bus.
func (m demo) list(d detector) {
	stacks := d.Detect()
	fmt.Fprintf(m.out, "%d board(s) detected\n", len(stacks))
	if len(stacks) == 0 {
		return
	}
	fmt.Fprint(m.out, "Id:")
	for _, s := range stacks {
		fmt.Fprintf(m.out, " %d", s)
	}
	fmt.Fprintln(m.out)
}

// pushRelay mirrors a push button (pull-up, pressed = low) onto a relay.
func (m demo) pushRelay(ctx context.Context, d relayOutput, button levelReader) (err error) {
	defer func() {
		if offErr := d.SetRelay(m.stack, m.channel, false); err == nil {
			err = offErr
		}
	}()

	state := gpio.High
	for {
		if level := button.Read(); level != state {
			if err := d.SetRelay(m.stack, m.channel, level == gpio.Low); err != nil {
				return err
			}
			state = level
		}
		if !m.wait(ctx, buttonPoll) {
			return nil
		}
	}
}
