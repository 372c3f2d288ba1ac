package atecc

import (
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

type IfaceType int

const (
	IfaceI2C IfaceType = iota
	IfaceHID
	IfaceCDC
)

func (t IfaceType) String() string {
	switch t {
	case IfaceI2C:
		return "i2c"
	case IfaceHID:
		return "hid"
	case IfaceCDC:
		return "cdc"
	default:
		return "unknown"
	}
}

// IfaceConfig is the configuration object for a device.
//
// Logical device configurations describe the device type and logical
// interface. Zero values are replaced by the defaults of the interface.
type IfaceConfig struct {
	// IfaceType affects how communication with the device is done.
	IfaceType IfaceType
	// DeviceType affects how communication with the device is done.
	DeviceType DeviceType
	// I2C contains I²C specific configuration.
	I2C I2CConfig
	// HID contains HID specific configuration.
	HID HIDConfig
	// CDC contains USB CDC (serial port) specific configuration.
	CDC CDCConfig
	// WakeDelay defines the time to wait for the device after the wake token.
	//
	// This represents the tWHI and is configured based on device type.
	WakeDelay time.Duration
	// WakeRetries is the number of wake attempts before giving up.
	WakeRetries int
	// RxRetries is the number of times the device is polled for a response.
	RxRetries int
	// PollInterval is the time between two polls.
	PollInterval time.Duration
	// Watchdog overrides the watchdog timeout read from the configuration
	// zone.
	Watchdog time.Duration
	// Debug is used for debug output.
	Debug Logger
}

type I2CConfig struct {
	Address uint16
	Bus     i2c.Bus
	// Speed is the bus speed used for commands. The bus is temporarily
	// lowered to 100kHz to generate the wake token.
	Speed physic.Frequency
	// WakePin optionally drives SDA low directly to wake the device.
	WakePin gpio.PinOut
}

type KitType int

const (
	KitTypeAuto KitType = iota
	KitTypeI2C
	KitTypeSWI
	KitTypeSPI
)

type HIDConfig struct {
	// DevIndex is the HID enumeration index to use unless DevIdentity is set.
	DevIndex int

	// KitType indicates the underlying interface to use.
	//
	// This is known as dev_interface in cryptoauthlib.
	KitType KitType

	// DevIdentity is the identity of the device.
	//
	// For I²C, this is the I²C target address. For the SWI interface, this is
	// the bus number.
	DevIdentity uint8

	// VendorID of the kit.
	VendorID uint16

	// ProductID of the kit.
	ProductID uint16

	// PacketSize is the size of the USB packet.
	PacketSize int
}

type CDCConfig struct {
	// Port is the serial port, for example /dev/ttyACM0.
	Port     string
	BaudRate int
	// ReadTimeout bounds every read from the port.
	ReadTimeout time.Duration
	KitType     KitType
}

// Defaults shared by all interfaces.
const (
	defaultWakeDelay    = 1500 * time.Microsecond
	defaultWakeRetries  = 3
	defaultRxRetries    = 20
	defaultPollInterval = 2 * time.Millisecond
)

// withDefaults returns cfg with every unset timing parameter filled in.
func withDefaults(cfg IfaceConfig) IfaceConfig {
	if cfg.WakeDelay == 0 {
		cfg.WakeDelay = defaultWakeDelay
	}
	if cfg.WakeRetries <= 0 {
		cfg.WakeRetries = defaultWakeRetries
	}
	if cfg.RxRetries <= 0 {
		cfg.RxRetries = defaultRxRetries
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return cfg
}

// ConfigATECCX08A_I2CDefault returns a default config for an ECCx08A device.
//
// The bus is owned by the caller and must outlive the device.
func ConfigATECCX08A_I2CDefault(bus i2c.Bus) IfaceConfig {
	return IfaceConfig{
		IfaceType:    IfaceI2C,
		DeviceType:   DeviceATECC608,
		WakeDelay:    defaultWakeDelay,
		WakeRetries:  defaultWakeRetries,
		RxRetries:    defaultRxRetries,
		PollInterval: defaultPollInterval,
		I2C: I2CConfig{
			Address: 0x60,
			Bus:     bus,
			Speed:   400 * physic.KiloHertz,
		},
	}
}

const (
	vendorAtmel = 0x03eb

	productTrustPlatform = 0x2312
)

// ConfigATECCX08A_KitHIDDefault returns a configuration for the Kit protocol.
func ConfigATECCX08A_KitHIDDefault() IfaceConfig {
	return IfaceConfig{
		IfaceType:  IfaceHID,
		DeviceType: DeviceATECC608,
		RxRetries:  1,
		HID: HIDConfig{
			DevIndex:    0,
			KitType:     KitTypeAuto,
			DevIdentity: 0,
			VendorID:    vendorAtmel,
			ProductID:   productTrustPlatform,
			PacketSize:  64,
		},
	}
}

// ConfigATECCX08A_KitCDCDefault returns a configuration for the Kit protocol
// over a USB serial port.
func ConfigATECCX08A_KitCDCDefault(port string) IfaceConfig {
	return IfaceConfig{
		IfaceType:  IfaceCDC,
		DeviceType: DeviceATECC608,
		RxRetries:  1,
		CDC: CDCConfig{
			Port:        port,
			BaudRate:    115200,
			ReadTimeout: 2 * time.Second,
			KitType:     KitTypeAuto,
		},
	}
}
