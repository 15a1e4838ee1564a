package ioplus

func checkEdge(op string, stack, channel int, edge Edge) error {
	if edge > EdgeBoth {
		return invalid(op, stack, channel, "edge must be 0-none, 1-rising, 2-falling or 3-both, got %d", edge)
	}
	return nil
}

func (s *session) readEdge(risingReg, fallingReg uint8, channel int) (Edge, error) {
	rising, err := s.readByte(risingReg)
	if err != nil {
		return EdgeNone, err
	}
	falling, err := s.readByte(fallingReg)
	if err != nil {
		return EdgeNone, err
	}
	bit := uint8(1) << (channel - 1)
	edge := EdgeNone
	if rising&bit != 0 {
		edge |= EdgeRising
	}
	if falling&bit != 0 {
		edge |= EdgeFalling
	}
	return edge, nil
}

func (s *session) writeEdge(risingReg, fallingReg uint8, channel int, edge Edge) error {
	rising, err := s.readByte(risingReg)
	if err != nil {
		return err
	}
	falling, err := s.readByte(fallingReg)
	if err != nil {
		return err
	}
	rising = setBit(rising, channel-1, edge&EdgeRising != 0)
	falling = setBit(falling, channel-1, edge&EdgeFalling != 0)
	if err := s.writeByte(risingReg, rising); err != nil {
		return err
	}
	return s.writeByte(fallingReg, falling)
}

func (s *session) readCount(reg uint8) (uint32, error) {
	buf, err := s.readBlock(reg, 4)
	if err != nil {
		return 0, err
	}
	return DecodeCount(buf)
}

// SetOptoEdge selects the edges counted on an opto input.
func (d *Driver) SetOptoEdge(stack, channel int, edge Edge) error {
	const op = "set opto edge"
	if err := checkChannel(op, stack, channel, OptoChannels); err != nil {
		return err
	}
	if err := checkEdge(op, stack, channel, edge); err != nil {
		return err
	}
	return d.transact(op, stack, channel, func(s *session) error {
		return s.writeEdge(RegOptoEdgeRising, RegOptoEdgeFalling, channel, edge)
	})
}

// OptoEdge returns the edges counted on an opto input.
func (d *Driver) OptoEdge(stack, channel int) (Edge, error) {
	const op = "opto edge"
	if err := checkChannel(op, stack, channel, OptoChannels); err != nil {
		return EdgeNone, err
	}
	var edge Edge
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		edge, err = s.readEdge(RegOptoEdgeRising, RegOptoEdgeFalling, channel)
		return err
	})
	return edge, err
}

// OptoCount returns the edge counter of an opto input.
func (d *Driver) OptoCount(stack, channel int) (uint32, error) {
	const op = "opto count"
	if err := checkChannel(op, stack, channel, OptoChannels); err != nil {
		return 0, err
	}
	var count uint32
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		count, err = s.readCount(counterReg(RegOptoEdgeCount, channel))
		return err
	})
	return count, err
}

// ResetOptoCount clears the edge counter of an opto input.
func (d *Driver) ResetOptoCount(stack, channel int) error {
	const op = "reset opto count"
	if err := checkChannel(op, stack, channel, OptoChannels); err != nil {
		return err
	}
	return d.transact(op, stack, channel, func(s *session) error {
		return s.writeByte(RegOptoCountReset, uint8(channel))
	})
}

// SetGPIOEdge selects the edges counted on a GPIO pin.
func (d *Driver) SetGPIOEdge(stack, pin int, edge Edge) error {
	const op = "set gpio edge"
	if err := checkChannel(op, stack, pin, GPIOPins); err != nil {
		return err
	}
	if err := checkEdge(op, stack, pin, edge); err != nil {
		return err
	}
	return d.transact(op, stack, pin, func(s *session) error {
		return s.writeEdge(RegGPIOEdgeRising, RegGPIOEdgeFalling, pin, edge)
	})
}

// GPIOEdge returns the edges counted on a GPIO pin.
func (d *Driver) GPIOEdge(stack, pin int) (Edge, error) {
	const op = "gpio edge"
	if err := checkChannel(op, stack, pin, GPIOPins); err != nil {
		return EdgeNone, err
	}
	var edge Edge
	err := d.transact(op, stack, pin, func(s *session) (err error) {
		edge, err = s.readEdge(RegGPIOEdgeRising, RegGPIOEdgeFalling, pin)
		return err
	})
	return edge, err
}

// GPIOCount returns the edge counter of a GPIO pin.
func (d *Driver) GPIOCount(stack, pin int) (uint32, error) {
	const op = "gpio count"
	if err := checkChannel(op, stack, pin, GPIOPins); err != nil {
		return 0, err
	}
	var count uint32
	err := d.transact(op, stack, pin, func(s *session) (err error) {
		count, err = s.readCount(counterReg(RegGPIOEdgeCount, pin))
		return err
	})
	return count, err
}

// ResetGPIOCount clears the edge counter of a GPIO pin.
func (d *Driver) ResetGPIOCount(stack, pin int) error {
	const op = "reset gpio count"
	if err := checkChannel(op, stack, pin, GPIOPins); err != nil {
		return err
	}
	return d.transact(op, stack, pin, func(s *session) error {
		return s.writeByte(RegGPIOCountReset, uint8(pin))
	})
}

// SetOptoEncoder enables or disables the quadrature encoder on an opto
// input pair.
func (d *Driver) SetOptoEncoder(stack, channel int, on bool) error {
	const op = "set opto encoder"
	if err := checkChannel(op, stack, channel, EncoderChannels); err != nil {
		return err
	}
	return d.transact(op, stack, channel, func(s *session) error {
		enabled, err := s.readByte(RegOptoEncEnable)
		if err != nil {
			return err
		}
		return s.writeByte(RegOptoEncEnable, setBit(enabled, channel-1, on))
	})
}

// OptoEncoder reports whether an encoder channel is enabled.
func (d *Driver) OptoEncoder(stack, channel int) (bool, error) {
	const op = "opto encoder"
	if err := checkChannel(op, stack, channel, EncoderChannels); err != nil {
		return false, err
	}
	var enabled uint8
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		enabled, err = s.readByteDebounced(RegOptoEncEnable)
		return err
	})
	if err != nil {
		return false, err
	}
	return enabled&(1<<(channel-1)) != 0, nil
}

// OptoEncoderCount returns the signed position of an encoder channel.
func (d *Driver) OptoEncoderCount(stack, channel int) (int32, error) {
	const op = "opto encoder count"
	if err := checkChannel(op, stack, channel, EncoderChannels); err != nil {
		return 0, err
	}
	var count int32
	err := d.transact(op, stack, channel, func(s *session) error {
		buf, err := s.readBlock(counterReg(RegOptoEncoderCount, channel), 4)
		if err != nil {
			return err
		}
		count, err = DecodeEncoderCount(buf)
		return err
	})
	return count, err
}

// ResetOptoEncoderCount clears the position of an encoder channel.
func (d *Driver) ResetOptoEncoderCount(stack, channel int) error {
	const op = "reset opto encoder count"
	if err := checkChannel(op, stack, channel, EncoderChannels); err != nil {
		return err
	}
	return d.transact(op, stack, channel, func(s *session) error {
		return s.writeByte(RegOptoEncReset, uint8(channel))
	})
}
