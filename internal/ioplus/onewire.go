package ioplus

// OneWireSensorCount returns how many sensors the last bus scan found,
// capped at the size of the board's sensor table.
func (d *Driver) OneWireSensorCount(stack int) (int, error) {
	const op = "one-wire sensor count"
	if err := checkStack(op, stack); err != nil {
		return 0, err
	}
	var n uint8
	err := d.transact(op, stack, 0, func(s *session) (err error) {
		n, err = s.readByte(RegOneWireCount)
		return err
	})
	return min(int(n), OneWireSensors), err
}

// OneWireScan starts a bus scan on the board and returns without waiting
// for it. Read the sensor count afterwards before addressing sensors.
func (d *Driver) OneWireScan(stack int) error {
	const op = "one-wire scan"
	if err := checkStack(op, stack); err != nil {
		return err
	}
	return d.transact(op, stack, 0, func(s *session) error {
		return s.writeByte(RegOneWireScan, 1)
	})
}

// checkSensor reads the sensor count and validates channel against it. A
// count above the table size is not trusted beyond the table.
func (s *session) checkSensor(op string, stack, channel int) error {
	b, err := s.readByte(RegOneWireCount)
	if err != nil {
		return err
	}
	n := min(int(b), OneWireSensors)
	if channel < 1 || channel > n {
		return invalid(op, stack, channel, "sensor index must be 1..%d", n)
	}
	return nil
}

// OneWireSensorID returns the 64-bit ROM code of a sensor.
func (d *Driver) OneWireSensorID(stack, channel int) ([]byte, error) {
	const op = "one-wire sensor id"
	if err := checkChannel(op, stack, channel, OneWireSensors); err != nil {
		return nil, err
	}
	var rom []byte
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		if err := s.checkSensor(op, stack, channel); err != nil {
			return err
		}
		if err := s.writeByte(RegOneWireROMIndex, uint8(channel-1)); err != nil {
			return err
		}
		rom, err = s.readBlock(RegOneWireROMCode, oneWireROMCodeLength)
		return err
	})
	return rom, err
}

// OneWireTemperature returns a sensor temperature in degrees Celsius.
func (d *Driver) OneWireTemperature(stack, channel int) (float64, error) {
	const op = "one-wire temperature"
	if err := checkChannel(op, stack, channel, OneWireSensors); err != nil {
		return 0, err
	}
	var raw uint16
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		if err := s.checkSensor(op, stack, channel); err != nil {
			return err
		}
		raw, err = s.readWord(wordReg(RegOneWireTemp, channel))
		return err
	})
	if err != nil {
		return 0, err
	}
	// centidegrees, two's complement below freezing
	return float64(int16(raw)) / 100, nil
}
