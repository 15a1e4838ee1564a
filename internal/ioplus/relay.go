package ioplus

// Relays returns the relay bank of a board, bit n-1 being relay n.
func (d *Driver) Relays(stack int) (uint8, error) {
	const op = "relays"
	if err := checkStack(op, stack); err != nil {
		return 0, err
	}
	var val uint8
	err := d.transact(op, stack, 0, func(s *session) (err error) {
		val, err = s.readByteDebounced(RegRelayVal)
		return err
	})
	return val, err
}

// Relay returns the state of a single relay.
func (d *Driver) Relay(stack, channel int) (bool, error) {
	const op = "relay"
	if err := checkChannel(op, stack, channel, RelayChannels); err != nil {
		return false, err
	}
	var val uint8
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		val, err = s.readByteDebounced(RegRelayVal)
		return err
	})
	if err != nil {
		return false, err
	}
	return val&(1<<(channel-1)) != 0, nil
}

// SetRelay switches one relay. The set/clear registers take the relay
// number, not a mask.
func (d *Driver) SetRelay(stack, channel int, on bool) error {
	const op = "set relay"
	if err := checkChannel(op, stack, channel, RelayChannels); err != nil {
		return err
	}
	reg := uint8(RegRelayClr)
	if on {
		reg = RegRelaySet
	}
	return d.transact(op, stack, channel, func(s *session) error {
		return s.writeByte(reg, uint8(channel))
	})
}

// SetRelays writes the whole relay bank.
func (d *Driver) SetRelays(stack, value int) error {
	const op = "set relays"
	if err := checkStack(op, stack); err != nil {
		return err
	}
	if value < 0 || value > 0xFF {
		return invalid(op, stack, 0, "relays value must be 0..255, got %d", value)
	}
	return d.transact(op, stack, 0, func(s *session) error {
		return s.writeByte(RegRelayVal, uint8(value))
	})
}

// Optos returns the opto-isolated input byte, bit n-1 being input n.
func (d *Driver) Optos(stack int) (uint8, error) {
	const op = "optos"
	if err := checkStack(op, stack); err != nil {
		return 0, err
	}
	var val uint8
	err := d.transact(op, stack, 0, func(s *session) (err error) {
		val, err = s.readByteDebounced(RegOptoIn)
		return err
	})
	return val, err
}

// Opto returns the state of one opto-isolated input.
func (d *Driver) Opto(stack, channel int) (bool, error) {
	const op = "opto"
	if err := checkChannel(op, stack, channel, OptoChannels); err != nil {
		return false, err
	}
	var val uint8
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		val, err = s.readByteDebounced(RegOptoIn)
		return err
	})
	if err != nil {
		return false, err
	}
	return val&(1<<(channel-1)) != 0, nil
}
