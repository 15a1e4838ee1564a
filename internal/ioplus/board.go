package ioplus

import (
	"encoding/binary"
	"fmt"
)

// BoardInfo is the identity and health block of a board.
type BoardInfo struct {
	HardwareMajor  uint8   `json:"hardware_major"`
	HardwareMinor  uint8   `json:"hardware_minor"`
	FirmwareMajor  uint8   `json:"firmware_major"`
	FirmwareMinor  uint8   `json:"firmware_minor"`
	CPUTemperature int     `json:"cpu_temperature"`
	SupplyVolts    float64 `json:"supply_volts"`
}

func (b BoardInfo) Hardware() string {
	return fmt.Sprintf("%02d.%02d", b.HardwareMajor, b.HardwareMinor)
}

func (b BoardInfo) Firmware() string {
	return fmt.Sprintf("%02d.%02d", b.FirmwareMajor, b.FirmwareMinor)
}

// BoardInfo reads revisions, CPU temperature and the 3V3 rail.
func (d *Driver) BoardInfo(stack int) (BoardInfo, error) {
	const op = "board info"
	var info BoardInfo
	if err := checkStack(op, stack); err != nil {
		return info, err
	}
	err := d.transact(op, stack, 0, func(s *session) error {
		diag, err := s.readBlock(RegDiagTemperature, 3)
		if err != nil {
			return err
		}
		rev, err := s.readBlock(RegRevisionHWMajor, 4)
		if err != nil {
			return err
		}
		info.CPUTemperature = int(diag[0])
		info.SupplyVolts = float64(binary.LittleEndian.Uint16(diag[1:3])) / 1000
		info.HardwareMajor, info.HardwareMinor = rev[0], rev[1]
		info.FirmwareMajor, info.FirmwareMinor = rev[2], rev[3]
		return nil
	})
	return info, err
}

// Detect probes every stack level and returns the levels whose board
// answers a revision read, in ascending order. A level that fails for any
// reason, including an unavailable bus, counts as absent.
func (d *Driver) Detect() []int {
	const op = "detect"
	var found []int
	for stack := 0; stack <= MaxStack; stack++ {
		err := d.transact(op, stack, 0, func(s *session) error {
			_, err := s.readByte(RegRevisionHWMajor)
			return err
		})
		if err == nil {
			found = append(found, stack)
		}
	}
	return found
}

// WatchdogReload kicks the watchdog and arms it if it was disabled.
func (d *Driver) WatchdogReload(stack int) error {
	const op = "watchdog reload"
	if err := checkStack(op, stack); err != nil {
		return err
	}
	return d.transact(op, stack, 0, func(s *session) error {
		return s.writeByte(RegWdtReload, WatchdogReloadKey)
	})
}

func (d *Driver) setWatchdogWord(op string, stack int, reg uint8, seconds int) error {
	if err := checkStack(op, stack); err != nil {
		return err
	}
	if seconds < 1 || seconds > 0xFFFF {
		return invalid(op, stack, 0, "period must be 1..65535 s, got %d", seconds)
	}
	return d.transact(op, stack, 0, func(s *session) error {
		return s.writeWord(reg, uint16(seconds))
	})
}

func (d *Driver) watchdogWord(op string, stack int, reg uint8) (int, error) {
	if err := checkStack(op, stack); err != nil {
		return 0, err
	}
	var v uint16
	err := d.transact(op, stack, 0, func(s *session) (err error) {
		v, err = s.readDebounced(reg, 2, maskExact)
		return err
	})
	return int(v), err
}

// SetWatchdogPeriod sets the interval in seconds within which the watchdog
// must be reloaded.
func (d *Driver) SetWatchdogPeriod(stack, seconds int) error {
	return d.setWatchdogWord("set watchdog period", stack, RegWdtPeriodSet, seconds)
}

func (d *Driver) WatchdogPeriod(stack int) (int, error) {
	return d.watchdogWord("watchdog period", stack, RegWdtPeriodGet)
}

// SetWatchdogInitPeriod sets the period applied after the host powers up.
func (d *Driver) SetWatchdogInitPeriod(stack, seconds int) error {
	return d.setWatchdogWord("set watchdog init period", stack, RegWdtInitPeriodSet, seconds)
}

func (d *Driver) WatchdogInitPeriod(stack int) (int, error) {
	return d.watchdogWord("watchdog init period", stack, RegWdtInitPeriodGet)
}

// SetWatchdogOffPeriod sets how long the watchdog keeps the host powered
// off after expiring.
func (d *Driver) SetWatchdogOffPeriod(stack, seconds int) error {
	const op = "set watchdog off period"
	if err := checkStack(op, stack); err != nil {
		return err
	}
	if seconds < 1 || seconds > WatchdogMaxOffPeriod {
		return invalid(op, stack, 0, "off period must be 1..%d s, got %d", WatchdogMaxOffPeriod, seconds)
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(seconds))
	return d.transact(op, stack, 0, func(s *session) error {
		return s.writeBlock(RegWdtOffPeriodSet, buf)
	})
}

func (d *Driver) WatchdogOffPeriod(stack int) (int, error) {
	const op = "watchdog off period"
	if err := checkStack(op, stack); err != nil {
		return 0, err
	}
	var v uint32
	err := d.transact(op, stack, 0, func(s *session) error {
		buf, err := s.readBlock(RegWdtOffPeriodGet, 4)
		if err != nil {
			return err
		}
		v = binary.LittleEndian.Uint32(buf)
		return nil
	})
	return int(v), err
}

// CalibrationStatus is the state of the last calibration request.
type CalibrationStatus uint8

const (
	CalibrationInProgress CalibrationStatus = 0
	CalibrationDone       CalibrationStatus = 1
	CalibrationError      CalibrationStatus = 2
)

func (c CalibrationStatus) String() string {
	switch c {
	case CalibrationInProgress:
		return "in progress"
	case CalibrationDone:
		return "done"
	case CalibrationError:
		return "error"
	default:
		return "unknown"
	}
}

// calibrate writes the value/channel/key block. calChannel numbers ADC
// inputs 1..8 and DAC outputs 9..12.
func (d *Driver) calibrate(op string, stack, channel, calChannel int, volts float64, key uint8) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf, milli(volts))
	buf[2] = uint8(calChannel)
	buf[3] = key
	return d.transact(op, stack, channel, func(s *session) error {
		return s.writeBlock(RegCalibValue, buf)
	})
}

// CalibrateADC records one calibration point of an analog input. Two points
// at least 2 V apart are needed.
func (d *Driver) CalibrateADC(stack, channel int, volts float64) error {
	const op = "calibrate adc"
	if err := checkChannel(op, stack, channel, ADCChannels); err != nil {
		return err
	}
	if volts < 0 || volts > ADCCalibMaxVolts {
		return invalid(op, stack, channel, "calibration value must be 0..%.1f V", ADCCalibMaxVolts)
	}
	return d.calibrate(op, stack, channel, channel, volts, calibrationKey)
}

func (d *Driver) ResetADCCalibration(stack, channel int) error {
	const op = "reset adc calibration"
	if err := checkChannel(op, stack, channel, ADCChannels); err != nil {
		return err
	}
	return d.calibrate(op, stack, channel, channel, 0, calibrationResetKey)
}

// CalibrateDAC records one calibration point of an analog output.
func (d *Driver) CalibrateDAC(stack, channel int, volts float64) error {
	const op = "calibrate dac"
	if err := checkChannel(op, stack, channel, DACChannels); err != nil {
		return err
	}
	if volts < 0 || volts > DACMaxVolts {
		return invalid(op, stack, channel, "calibration value must be 0..%.0f V", DACMaxVolts)
	}
	return d.calibrate(op, stack, channel, ADCChannels+channel, volts, calibrationKey)
}

func (d *Driver) ResetDACCalibration(stack, channel int) error {
	const op = "reset dac calibration"
	if err := checkChannel(op, stack, channel, DACChannels); err != nil {
		return err
	}
	return d.calibrate(op, stack, channel, ADCChannels+channel, 0, calibrationResetKey)
}

func (d *Driver) CalibrationStatus(stack int) (CalibrationStatus, error) {
	const op = "calibration status"
	if err := checkStack(op, stack); err != nil {
		return 0, err
	}
	var st uint8
	err := d.transact(op, stack, 0, func(s *session) (err error) {
		st, err = s.readByteDebounced(RegCalibStatus)
		return err
	})
	return CalibrationStatus(st), err
}
