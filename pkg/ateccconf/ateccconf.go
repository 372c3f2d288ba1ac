// Package ateccconf describes the configuration zone of the ATECC608.
//
// The configuration zone is 128 bytes. The first 16 bytes are programmed by
// the factory (serial number and revision) and the remaining bytes decide how
// every key slot may be used. Once the configuration zone has been locked its
// content is permanent, so the driver reads it once and uses Config608 to
// validate slots and zones before any command reaches the bus.
package ateccconf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

// Size is the size of the configuration zone in bytes.
const Size = 128

// NumSlots is the number of key slots in the data zone.
const NumSlots = 16

const (
	// ChipModeOffset is the byte offset of ChipMode within the configuration
	// zone.
	ChipModeOffset = 19

	// PermanentOffset608 is the device offset which cannot be written to.
	PermanentOffset608 = 16

	// UserExtraOffset is the offset of UserExtra. UserExtra and UserExtraAdd
	// are only writable using the UpdateExtra command.
	UserExtraOffset = 84

	LockOffsetBlock = 2
	LockOffsetWord  = 5

	// LockOffset is the byte offset to the lock bytes.
	//
	// Note: this offset is bigger than one block size.
	LockOffset = LockOffsetBlock*32 + LockOffsetWord*4
)

// Watchdog durations selected by ChipMode.
const (
	WatchdogShort = 1300 * time.Millisecond
	WatchdogLong  = 10 * time.Second
)

// Default608 is an example configuration for ATECC608A.
//
// First 16 bytes as expected from a normal configuration is not included.
// These are fixed by the factory.
//
// Slot 0 is the primary P256 private key, allowed to sign external messages.
var Default608 = []byte{
	0x6a, 0x00, 0x00, 0x01, 0x85, 0x00, 0x82, 0x00, 0x85, 0x20, 0x85, 0x20, 0x85, 0x20, 0xc6, 0x46,
	0x8f, 0x0f, 0x9f, 0x8f, 0x0f, 0x0f, 0x8f, 0x0f, 0x0f, 0x0f, 0x0f, 0x0f, 0x0f, 0x0f, 0x0f, 0x0f,
	0x0d, 0x1f, 0x0f, 0x0f, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0xf7, 0x00, 0x69, 0x76, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x55, 0x55, 0xff, 0xff, 0x0e, 0x60, 0x00, 0x00, 0x00, 0x00,
	0x53, 0x00, 0x53, 0x00, 0x73, 0x00, 0x73, 0x00, 0x73, 0x00, 0x38, 0x00, 0x7c, 0x00, 0x1c, 0x00,
	0x3c, 0x00, 0x1a, 0x00, 0x3c, 0x00, 0x30, 0x00, 0x3c, 0x00, 0x30, 0x00, 0x12, 0x00, 0x30, 0x00,
}

// DefaultConfig608 returns Default608 parsed into a Config608.
func DefaultConfig608() *Config608 {
	var conf Config608
	err := UnmarshalPartial(Default608, PermanentOffset608, &conf)
	if err != nil {
		panic(err)
	}
	return &conf
}

// Config608 represents the configuration used in ATECC608 devices.
type Config608 struct {
	SN03                  [4]byte               `json:"sn03"`
	RevNum                [4]byte               `json:"revision"`
	SN48                  [5]byte               `json:"sn48"`
	AESEnable             AESEnable             `json:"aes_enable"`
	I2CEnable             I2CEnable             `json:"i2c_enable"`
	Reserved15            byte                  `json:"reserved15"`
	I2CAddress            byte                  `json:"i2c_address"`
	Reserved17            byte                  `json:"reserved17"`
	CountMatch            CountMatch            `json:"count_match"`
	ChipMode              ChipMode608           `json:"chip_mode"`
	SlotConfig            [16]SlotConfig        `json:"slot_config"`
	Counter               [2]Counter            `json:"counter"`
	UseLock               UseLock               `json:"use_lock"`
	VolatileKeyPermission VolatileKeyPermission `json:"volatile_key_permission"`
	SecureBoot            SecureBoot            `json:"secure_boot"`
	KdfIvLoc              byte                  `json:"kdf_iv_loc"`
	KdfIvStr              [2]byte               `json:"kdf_iv_str"`
	Reserved68            [9]byte               `json:"reserved68"`
	UserExtra             byte                  `json:"user_extra"`
	UserExtraAdd          byte                  `json:"user_extra_add"`

	// LockValue indicates if the data and OTP zones have been locked.
	LockValue LockState `json:"lock_value"`
	// LockConfig indicates if the config zone has been locked.
	LockConfig LockState `json:"lock_config"`

	SlotLocked  SlotLocked    `json:"slot_locked"`
	ChipOptions ChipOptions   `json:"chip_options"`
	X509Format  [4]X509Format `json:"x509_format"`
	KeyConfig   [16]KeyConfig `json:"key_config"`
}

// SerialNumber returns the 9 byte serial number (SN<0:3> followed by
// SN<4:8>).
func (c *Config608) SerialNumber() [9]byte {
	var sn [9]byte
	copy(sn[:], c.SN03[:])
	copy(sn[4:], c.SN48[:])
	return sn
}

// Watchdog returns the watchdog timeout configured in ChipMode.
func (c *Config608) Watchdog() time.Duration {
	if c.ChipMode.WatchdogDuration() {
		return WatchdogLong
	}
	return WatchdogShort
}

// Marshal encodes v in the byte order used by the configuration zone.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	err := binary.Write(&buf, binary.BigEndian, v)
	return buf.Bytes(), err
}

// Unmarshal decodes a complete configuration zone into data.
func Unmarshal(config []byte, data any) error {
	r := bytes.NewReader(config)
	return binary.Read(r, binary.BigEndian, data)
}

// UnmarshalPartial decodes config as if it was found at offset within the
// configuration zone. Everything outside of config is zeroed.
func UnmarshalPartial(config []byte, offset int, data any) error {
	var size int
	switch data.(type) {
	case *Config608:
		size = Size
	default:
		return errors.New("ateccconf: unsupported config")
	}

	if offset < 0 || offset+len(config) > size {
		return errors.New("ateccconf: config exceeds maximum size")
	}

	var c [Size]byte
	copy(c[offset:], config)
	return Unmarshal(c[:size], data)
}
