package ina233

// PMBus and TI manufacturer-specific command codes of the INA233.
const (
	ClearFaults       byte = 0x03
	RestoreDefaultAll byte = 0x12
	Capability        byte = 0x19
	IoutOCWarnLimit   byte = 0x4A
	VinOVWarnLimit    byte = 0x57
	VinUVWarnLimit    byte = 0x58
	PinOPWarnLimit    byte = 0x6B
	StatusByte        byte = 0x78
	StatusWord        byte = 0x79
	StatusIOUT        byte = 0x7B
	StatusInput       byte = 0x7C
	StatusCML         byte = 0x7E
	StatusMfrSpecific byte = 0x80
	ReadEIN           byte = 0x86
	ReadVIN           byte = 0x88
	ReadIIN           byte = 0x89
	ReadVOUT          byte = 0x8B
	ReadIOUT          byte = 0x8C
	ReadPOUT          byte = 0x96
	ReadPIN           byte = 0x97
	MfrID             byte = 0x99
	MfrModel          byte = 0x9A
	MfrRevision       byte = 0x9B
	MfrADCConfig      byte = 0xD0
	MfrReadVShunt     byte = 0xD1
	MfrAlertMask      byte = 0xD2
	MfrCalibration    byte = 0xD4
	MfrDeviceConfig   byte = 0xD5
	ClearEIN          byte = 0xD6
	TIMfrID           byte = 0xE0
	TIMfrModel        byte = 0xE1
	TIMfrRevision     byte = 0xE2
)

// DefaultAddress is the 7-bit address with A0 and A1 tied to GND.
const DefaultAddress uint16 = 0x40

const (
	// BusVoltageLSB is the fixed bus voltage weight in volts per count.
	BusVoltageLSB = 0.00125
	// ShuntVoltageLSB is the fixed shunt voltage weight in volts per count.
	ShuntVoltageLSB = 0.0000025

	// calibrationScale is the internal fixed value from the CAL equation.
	calibrationScale = 0.00512
	// powerToCurrentRatio ties power_LSB to current_LSB.
	powerToCurrentRatio = 25
	// currentFullScale is 2^15.
	currentFullScale = 1 << 15

	// energyFrameLen is the READ_EIN block length: accumulator (2),
	// rollover count (1) and sample count (3).
	energyFrameLen = 6
	wordLen        = 2
)

var wordRegisters = []byte{
	IoutOCWarnLimit,
	VinOVWarnLimit,
	VinUVWarnLimit,
	PinOPWarnLimit,
	StatusWord,
	ReadVIN,
	ReadIIN,
	ReadVOUT,
	ReadIOUT,
	ReadPOUT,
	ReadPIN,
	MfrADCConfig,
	MfrReadVShunt,
	MfrCalibration,
}
