package ioplus

// Board address space
const (
	BaseAddress = 0x28 // 7-bit address of stack level 0
	MaxStack    = 7
	Retries     = 10 // debounce read budget
)

// Register offsets inside one board
const (
	RegRelayVal  = 0
	RegRelaySet  = 1
	RegRelayClr  = 2
	RegOptoIn    = 3
	RegGPIOVal   = 4
	RegGPIOSet   = 5
	RegGPIOClr   = 6
	RegGPIODir   = 7
	RegADCRaw    = 8  // 8 x u16
	RegADCMilliV = 24 // 8 x u16
	RegDACMilliV = 40 // 4 x u16
	RegPWMRaw    = 48 // 4 x u16

	RegOptoEdgeRising  = 56
	RegOptoEdgeFalling = 57
	RegGPIOEdgeRising  = 58
	RegGPIOEdgeFalling = 59
	RegOptoCountReset  = 60
	RegGPIOCountReset  = 61

	RegDiagTemperature = 62
	RegDiag3V3         = 63 // u16 mV

	RegCalibValue   = 65 // u16 mV, then channel, then key
	RegCalibChannel = 67
	RegCalibKey     = 68
	RegCalibStatus  = 69

	RegOptoEncEnable = 70
	RegOptoEncReset  = 72

	RegWdtReload         = 100
	RegWdtPeriodSet      = 101 // u16 s
	RegWdtPeriodGet      = 103
	RegWdtInitPeriodSet  = 105
	RegWdtInitPeriodGet  = 107
	RegWdtOffPeriodSet   = 112 // u32 s
	RegWdtOffPeriodGet   = 116
	RegRevisionHWMajor   = 120
	RegRevisionHWMinor   = 121
	RegRevisionFWMajor   = 122
	RegRevisionFWMinor   = 123
	RegOptoEdgeCount     = 128 // 8 x u32 LE
	RegGPIOEdgeCount     = 171 // 4 x u32 LE
	RegOptoEncoderCount  = 187 // 4 x s32
	RegOneWireCount      = 211
	RegOneWireROMIndex   = 212
	RegOneWireROMCode    = 213 // 8 bytes
	RegOneWireScan       = 221
	RegOneWireTemp       = 222 // u16 centidegrees per sensor
	oneWireROMCodeLength = 8
)

// Channel limits per resource family
const (
	RelayChannels   = 8
	OptoChannels    = 8
	ADCChannels     = 8
	DACChannels     = 4
	PWMChannels     = 4
	GPIOPins        = 4
	EncoderChannels = 4
	OneWireSensors  = 10 // firmware sensor table size

	DACMaxVolts      = 10.0
	ADCCalibMaxVolts = 3.3
	PWMMaxDuty       = 10000

	WatchdogReloadKey    = 0xCA
	WatchdogMaxOffPeriod = 4147200 // 48 days in seconds

	calibrationKey      = 0xAA
	calibrationResetKey = 0x55
)

// Edge selects which input transitions a counter counts.
type Edge uint8

const (
	EdgeNone    Edge = 0
	EdgeRising  Edge = 1
	EdgeFalling Edge = 2
	EdgeBoth    Edge = EdgeRising | EdgeFalling
)

func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "invalid"
	}
}

// ParseEdge accepts the names returned by Edge.String.
func ParseEdge(s string) (Edge, bool) {
	switch s {
	case "none":
		return EdgeNone, true
	case "rising":
		return EdgeRising, true
	case "falling":
		return EdgeFalling, true
	case "both":
		return EdgeBoth, true
	}
	return EdgeNone, false
}

// Address returns the bus address of a stack level.
func Address(stack int) uint16 {
	return uint16(BaseAddress + stack)
}

func wordReg(base, channel int) uint8 {
	return uint8(base + 2*(channel-1))
}

func counterReg(base, channel int) uint8 {
	return uint8(base + 4*(channel-1))
}
