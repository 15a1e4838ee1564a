// Package adapter connects one IOplus board to an automation host: relays
// appear as switch units 1-8 and opto inputs as switch units 9-16.
package adapter

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/KevinKickass/ioplusd/internal/ioplus"
)

const (
	RelayUnits      = ioplus.RelayChannels
	InputUnitOffset = RelayUnits
	InputUnits      = ioplus.OptoChannels

	UnitTypeSwitch = "Switch"

	CommandOn  = "On"
	CommandOff = "Off"
)

var ErrUnknownCommand = errors.New("unknown command")

// Config is built once at startup and handed to the plugin.
type Config struct {
	Name      string
	Stack     int
	Debug     bool
	Heartbeat time.Duration
}

// Unit is one device entry in the host's device table.
type Unit struct {
	ID     int    `json:"unit"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	NValue int    `json:"n_value"`
	SValue string `json:"s_value"`
	Used   bool   `json:"used"`
}

// Host is the device table of the automation host.
type Host interface {
	HasUnit(id int) bool
	CreateUnit(u Unit) error
	Unit(id int) (Unit, bool)
	UpdateUnit(id, nValue int, sValue string) error
}

// Board is the part of the driver the plugin uses.
type Board interface {
	SetRelay(stack, channel int, on bool) error
	Relays(stack int) (uint8, error)
	Optos(stack int) (uint8, error)
}

type Plugin struct {
	cfg     *Config
	board   Board
	host    Host
	logger  *zap.Logger
	running atomic.Bool
}

func NewPlugin(cfg *Config, board Board, host Host, logger *zap.Logger) *Plugin {
	return &Plugin{
		cfg:    cfg,
		board:  board,
		host:   host,
		logger: logger.With(zap.String("board", cfg.Name), zap.Int("stack", cfg.Stack)),
	}
}

func (p *Plugin) Config() *Config {
	return p.cfg
}

func (p *Plugin) Running() bool {
	return p.running.Load()
}

func RelayUnit(channel int) int { return channel }

func InputUnit(channel int) int { return channel + InputUnitOffset }

// IsRelayUnit reports whether a unit id addresses a relay.
func IsRelayUnit(id int) bool {
	return id >= 1 && id <= RelayUnits
}

// OnStart creates missing units and pushes the relay values stored in the
// host back to the board.
func (p *Plugin) OnStart() error {
	p.logger.Info("Plugin starting", zap.Bool("debug", p.cfg.Debug))

	for ch := 1; ch <= RelayUnits; ch++ {
		if err := p.ensureUnit(RelayUnit(ch), fmt.Sprintf("Relay_%d", ch)); err != nil {
			return err
		}
		if err := p.ensureUnit(InputUnit(ch), fmt.Sprintf("Input_%d", ch)); err != nil {
			return err
		}
		u, _ := p.host.Unit(RelayUnit(ch))
		if err := p.setRelay(ch, u.NValue != 0); err != nil {
			return fmt.Errorf("restore relay %d: %w", ch, err)
		}
	}

	p.running.Store(true)
	return nil
}

func (p *Plugin) ensureUnit(id int, name string) error {
	if p.host.HasUnit(id) {
		return nil
	}
	u := Unit{ID: id, Name: name, Type: UnitTypeSwitch, SValue: "0", Used: true}
	if err := p.host.CreateUnit(u); err != nil {
		return fmt.Errorf("create unit %d: %w", id, err)
	}
	return nil
}

func (p *Plugin) OnStop() {
	p.running.Store(false)
	p.logger.Info("Plugin stopping")
}

// OnHeartbeat polls the relay and input bytes and mirrors every bit into
// its unit.
func (p *Plugin) OnHeartbeat() error {
	if !p.running.Load() {
		return nil
	}

	relays, err := p.board.Relays(p.cfg.Stack)
	if err != nil {
		return fmt.Errorf("read relays: %w", err)
	}
	inputs, err := p.board.Optos(p.cfg.Stack)
	if err != nil {
		return fmt.Errorf("read inputs: %w", err)
	}
	if p.cfg.Debug {
		p.logger.Info("Heartbeat",
			zap.String("relays", fmt.Sprintf("%02x", relays)),
			zap.String("inputs", fmt.Sprintf("%02x", inputs)))
	}

	for ch := 1; ch <= RelayUnits; ch++ {
		r := int(relays>>(ch-1)) & 1
		in := int(inputs>>(ch-1)) & 1
		if p.host.HasUnit(RelayUnit(ch)) {
			if err := p.host.UpdateUnit(RelayUnit(ch), r, strconv.Itoa(r)); err != nil {
				return err
			}
		}
		if p.host.HasUnit(InputUnit(ch)) {
			if err := p.host.UpdateUnit(InputUnit(ch), in, strconv.Itoa(in)); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnCommand switches a relay unit and echoes the new value to the host.
// Units outside 1-8 are ignored.
func (p *Plugin) OnCommand(unit int, command string) error {
	if !IsRelayUnit(unit) {
		return nil
	}

	var on bool
	switch command {
	case CommandOn:
		on = true
	case CommandOff:
	default:
		return fmt.Errorf("%w %q", ErrUnknownCommand, command)
	}

	if err := p.setRelay(unit, on); err != nil {
		return err
	}
	v := 0
	if on {
		v = 1
	}
	return p.host.UpdateUnit(unit, v, strconv.Itoa(v))
}

func (p *Plugin) setRelay(channel int, on bool) error {
	if p.cfg.Debug {
		p.logger.Info("Set relay", zap.Int("channel", channel), zap.Bool("on", on))
	}
	return p.board.SetRelay(p.cfg.Stack, channel, on)
}
