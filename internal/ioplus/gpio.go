package ioplus

// GPIOs returns the level of the four GPIO pins, bit n-1 being pin n.
func (d *Driver) GPIOs(stack int) (uint8, error) {
	const op = "gpios"
	if err := checkStack(op, stack); err != nil {
		return 0, err
	}
	var val uint8
	err := d.transact(op, stack, 0, func(s *session) (err error) {
		val, err = s.readByteDebounced(RegGPIOVal)
		return err
	})
	return val, err
}

// SetGPIO drives one output pin through the set/clear registers.
func (d *Driver) SetGPIO(stack, pin int, on bool) error {
	const op = "set gpio"
	if err := checkChannel(op, stack, pin, GPIOPins); err != nil {
		return err
	}
	reg := uint8(RegGPIOClr)
	if on {
		reg = RegGPIOSet
	}
	return d.transact(op, stack, pin, func(s *session) error {
		return s.writeByte(reg, uint8(pin))
	})
}

// SetGPIODirection writes the direction register, one bit per pin
// (1 = input).
func (d *Driver) SetGPIODirection(stack, dir int) error {
	const op = "set gpio direction"
	if err := checkStack(op, stack); err != nil {
		return err
	}
	if dir < 0 || dir > 0x0F {
		return invalid(op, stack, 0, "direction register value must be 0..15, got %d", dir)
	}
	return d.transact(op, stack, 0, func(s *session) error {
		return s.writeByte(RegGPIODir, uint8(dir))
	})
}

// GPIODirection reads the direction register.
func (d *Driver) GPIODirection(stack int) (uint8, error) {
	const op = "gpio direction"
	if err := checkStack(op, stack); err != nil {
		return 0, err
	}
	var dir uint8
	err := d.transact(op, stack, 0, func(s *session) (err error) {
		dir, err = s.readByte(RegGPIODir)
		return err
	})
	return dir & 0x0F, err
}
