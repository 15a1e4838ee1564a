// ioplus-demo runs small interactive programs against an IOplus board.
//
// Usage:
//
//	ioplus-demo [-bus 1] [-stack 0] <command> [args]
//
// Commands:
//
//	list                       show the stack levels of all connected boards
//	pwm-ramp   [channel]       fade an open-drain PWM output up and down
//	relay-test                 switch all relays on and off in turn
//	edge-count [channel]       count rising edges on an opto input
//	encoder    [channel]       follow a quadrature encoder on an opto pair
//	push-relay [channel]       drive a relay from a push button on a host GPIO
//
// Every command except list runs until interrupted and leaves its outputs off.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/KevinKickass/ioplusd/internal/i2cbus"
	"github.com/KevinKickass/ioplusd/internal/ioplus"
)

func main() {
	busName := flag.String("bus", "1", "I2C bus name")
	stack := flag.Int("stack", 0, "board stack level (0-7)")
	buttonPin := flag.Int("button", 26, "host GPIO (BCM) of the push button for push-relay")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"usage: %s [flags] list|pwm-ramp|relay-test|edge-count|encoder|push-relay [channel]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	logCfg := zap.NewDevelopmentConfig()
	if !*verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	channel := 1
	if flag.NArg() > 1 {
		channel, err = strconv.Atoi(flag.Arg(1))
		if err != nil {
			logger.Fatal("Invalid channel", zap.String("channel", flag.Arg(1)))
		}
	}

	transport := i2cbus.NewShared(*busName, nil, logger)
	defer transport.Close()
	driver := ioplus.NewDriver(transport)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := demo{stack: *stack, channel: channel, out: os.Stdout, logger: logger}

	switch cmd := flag.Arg(0); cmd {
	case "list":
		d.list(driver)
	case "pwm-ramp":
		err = d.pwmRamp(ctx, driver)
	case "relay-test":
		err = d.relayTest(ctx, driver)
	case "edge-count":
		err = d.edgeCount(ctx, driver)
	case "encoder":
		err = d.encoder(ctx, driver)
	case "push-relay":
		var button gpio.PinIn
		button, err = openButton(*buttonPin)
		if err == nil {
			d.channel = min(max(d.channel, 1), ioplus.RelayChannels)
			err = d.pushRelay(ctx, driver, button)
		}
	default:
		logger.Error("Unknown command", zap.String("command", cmd))
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Demo failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		os.Exit(1)
	}
}

// openButton configures a host GPIO as input with pull-up.
func openButton(pin int) (gpio.PinIO, error) {
	if err := i2cbus.InitHost(); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, fmt.Errorf("GPIO%d not found", pin)
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure GPIO%d: %w", pin, err)
	}
	return p, nil
}
