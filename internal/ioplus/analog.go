package ioplus

// ADCRaw returns the raw conversion result of an analog input.
func (d *Driver) ADCRaw(stack, channel int) (uint16, error) {
	const op = "adc raw"
	if err := checkChannel(op, stack, channel, ADCChannels); err != nil {
		return 0, err
	}
	var raw uint16
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		raw, err = s.readWordDebounced(wordReg(RegADCRaw, channel))
		return err
	})
	return raw, err
}

// ADCVolts returns an analog input in volts.
func (d *Driver) ADCVolts(stack, channel int) (float64, error) {
	const op = "adc volts"
	if err := checkChannel(op, stack, channel, ADCChannels); err != nil {
		return 0, err
	}
	var mv uint16
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		mv, err = s.readWordDebounced(wordReg(RegADCMilliV, channel))
		return err
	})
	if err != nil {
		return 0, err
	}
	return float64(mv) / 1000, nil
}

// SetDACVolts drives an analog output. Values outside 0..10 V are clamped.
func (d *Driver) SetDACVolts(stack, channel int, volts float64) error {
	const op = "set dac"
	if err := checkChannel(op, stack, channel, DACChannels); err != nil {
		return err
	}
	mv := milli(clamp(volts, 0, DACMaxVolts))
	return d.transact(op, stack, channel, func(s *session) error {
		return s.writeWord(wordReg(RegDACMilliV, channel), mv)
	})
}

// DACVolts reads back the set point of an analog output.
func (d *Driver) DACVolts(stack, channel int) (float64, error) {
	const op = "dac"
	if err := checkChannel(op, stack, channel, DACChannels); err != nil {
		return 0, err
	}
	var mv uint16
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		mv, err = s.readWordDebounced(wordReg(RegDACMilliV, channel))
		return err
	})
	if err != nil {
		return 0, err
	}
	return float64(mv) / 1000, nil
}

// SetPWM sets the duty cycle of an open-drain output in hundredths of a
// percent. Values outside 0..10000 are clamped.
func (d *Driver) SetPWM(stack, channel, duty int) error {
	const op = "set pwm"
	if err := checkChannel(op, stack, channel, PWMChannels); err != nil {
		return err
	}
	if duty < 0 {
		duty = 0
	}
	if duty > PWMMaxDuty {
		duty = PWMMaxDuty
	}
	return d.transact(op, stack, channel, func(s *session) error {
		return s.writeWord(wordReg(RegPWMRaw, channel), uint16(duty))
	})
}

// PWM reads back the duty cycle of an open-drain output.
func (d *Driver) PWM(stack, channel int) (int, error) {
	const op = "pwm"
	if err := checkChannel(op, stack, channel, PWMChannels); err != nil {
		return 0, err
	}
	var raw uint16
	err := d.transact(op, stack, channel, func(s *session) (err error) {
		raw, err = s.readWordDebounced(wordReg(RegPWMRaw, channel))
		return err
	})
	return int(raw), err
}
