package ateccconf

import "encoding/json"

func bit(b, mask byte) bool {
	return b&mask != 0
}

type AESEnable struct {
	// Bits contains of
	// * enabled 1
	// * reserved 7
	Bits uint8
}

func (a AESEnable) Enabled() bool  { return bit(a.Bits, 0x01) }
func (a AESEnable) Reserved() byte { return a.Bits >> 1 }

func (a AESEnable) MarshalJSON() ([]byte, error) {
	return json.Marshal(enableBits{a.Enabled(), a.Reserved()})
}

type I2CEnable struct {
	// Bits contains of
	// * Enabled 1
	// * Reserved 7
	Bits uint8
}

func (i I2CEnable) Enabled() bool  { return bit(i.Bits, 0x01) }
func (i I2CEnable) Reserved() byte { return i.Bits >> 1 }

func (i I2CEnable) MarshalJSON() ([]byte, error) {
	return json.Marshal(enableBits{i.Enabled(), i.Reserved()})
}

type enableBits struct {
	Enabled  bool `json:"enabled"`
	Reserved byte `json:"reserved"`
}

type CountMatch struct {
	// Bits contains of:
	// * Enabled       1
	// * Reserved      3
	// * CountMatchKey 4
	Bits uint8
}

func (cm CountMatch) Enabled() bool  { return bit(cm.Bits, 0x01) }
func (cm CountMatch) Reserved() byte { return (cm.Bits & 0x0e) >> 1 }
func (cm CountMatch) Key() byte      { return (cm.Bits & 0xf0) >> 4 }

func (cm CountMatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Enabled  bool `json:"enabled"`
		Reserved byte `json:"reserved"`
		Key      byte `json:"key"`
	}{cm.Enabled(), cm.Reserved(), cm.Key()})
}

// ClockDivider selects the internal clock and therefore how long each
// command takes to execute.
type ClockDivider uint8

const (
	// ClockDividerM0 is high speed.
	ClockDividerM0 = ClockDivider(0x00 >> 3)
	ClockDividerM1 = ClockDivider(0x28 >> 3)
	ClockDividerM2 = ClockDivider(0x68 >> 3)
)

func (c ClockDivider) String() string {
	switch c {
	case ClockDividerM0:
		return "m0"
	case ClockDividerM1:
		return "m1"
	case ClockDividerM2:
		return "m2"
	default:
		return "unknown"
	}
}

func (c ClockDivider) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

type ChipMode608 struct {
	// Bits consists of:
	// * UserExtraAdd     1
	//   1 Alternate I2C address mode is enabled
	// * TTLenable        1
	//   0 I/O’s use Fixed Reference mode
	// * WatchdogDuration 1
	//   0 Watchdog Time is set to 1.3s, 1 is 10s
	// * ClockDivider     5
	Bits uint8
}

func (cm ChipMode608) UserExtraAdd() bool     { return bit(cm.Bits, 0x01) }
func (cm ChipMode608) TTLEnabled() bool       { return bit(cm.Bits, 0x02) }
func (cm ChipMode608) WatchdogDuration() bool { return bit(cm.Bits, 0x04) }

func (cm ChipMode608) ClockDivider() ClockDivider {
	return ClockDivider((cm.Bits & 0xf8) >> 3)
}

func (cm ChipMode608) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		UserExtraAdd     bool         `json:"user_extra_add"`
		TTLEnabled       bool         `json:"ttl_enabled"`
		WatchdogDuration bool         `json:"watchdog_duration"`
		ClockDivider     ClockDivider `json:"clock_divider"`
	}{cm.UserExtraAdd(), cm.TTLEnabled(), cm.WatchdogDuration(), cm.ClockDivider()})
}

// Counter is the initial value of a monotonic counter as stored in the
// configuration zone. The live value is read with the Counter command.
type Counter struct {
	Value [8]uint8 `json:"value"`
}

type UseLock struct {
	// Bits consists of
	// * UseLockEnable (4)
	// * UseLocKKey (4)
	Bits byte
}

func (ul UseLock) UseLockEnable() byte { return ul.Bits & 0x0f }
func (ul UseLock) UseLockKey() byte    { return (ul.Bits & 0xf0) >> 4 }

func (ul UseLock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		UseLockEnable byte `json:"use_lock_enable"`
		UseLockKey    byte `json:"use_lock_key"`
	}{ul.UseLockEnable(), ul.UseLockKey()})
}

type VolatileKeyPermission struct {
	// Bits consists of:
	// * VolatileKeyPermitSlot (4)
	// * Reserved (3)
	// * VolatileKeyPermitEnable (1)
	Bits byte
}

func (vkp VolatileKeyPermission) Slot() byte     { return vkp.Bits & 0x0f }
func (vkp VolatileKeyPermission) Reserved() byte { return (vkp.Bits & 0x70) >> 4 }
func (vkp VolatileKeyPermission) Enabled() bool  { return bit(vkp.Bits, 0x80) }

func (vkp VolatileKeyPermission) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Slot     byte `json:"slot"`
		Reserved byte `json:"reserved"`
		Enabled  bool `json:"enabled"`
	}{vkp.Slot(), vkp.Reserved(), vkp.Enabled()})
}

type SecureBoot struct {
	// Bits1 consists of
	// * SecureBootMode             2
	// * Reserved0                  1
	// * SecureBootPersistentEnable 1
	// * SecureBootRandNonce        1
	// * Reserved1                  3
	Bits1 byte
	// Bits2 consists of
	// * SecureBootSigDig           4
	// * SecureBootPubKey           4
	Bits2 byte
}

func (sb SecureBoot) Mode() uint8      { return sb.Bits1 & 0x03 }
func (sb SecureBoot) Reserved0() uint8 { return (sb.Bits1 & 0x04) >> 2 }

// PersistentEnabled indicates if Secure Boot Persistent Latch is enabled.
//
// If enabled, the Primary Private Key will be disabled until a valid Secure
// Boot has occurred.
func (sb SecureBoot) PersistentEnabled() bool { return bit(sb.Bits1, 0x08) }
func (sb SecureBoot) RandNonce() bool         { return bit(sb.Bits1, 0x10) }
func (sb SecureBoot) Reserved1() uint8        { return (sb.Bits1 & 0xe0) >> 5 }
func (sb SecureBoot) SigDig() byte            { return sb.Bits2 & 0x0f }
func (sb SecureBoot) PublicKey() byte         { return (sb.Bits2 & 0xf0) >> 4 }

func (sb SecureBoot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mode              uint8 `json:"mode"`
		Reserved0         uint8 `json:"reserved0"`
		PersistentEnabled bool  `json:"persistent_enabled"`
		RandNonce         bool  `json:"rand_nonce"`
		Reserved1         uint8 `json:"reserved1"`
		SigDig            byte  `json:"sig_dig"`
		PublicKey         byte  `json:"public_key"`
	}{
		Mode:              sb.Mode(),
		Reserved0:         sb.Reserved0(),
		PersistentEnabled: sb.PersistentEnabled(),
		RandNonce:         sb.RandNonce(),
		Reserved1:         sb.Reserved1(),
		SigDig:            sb.SigDig(),
		PublicKey:         sb.PublicKey(),
	})
}

type ChipOptions struct {
	// Bits1 consists of
	// * PowerOnSelfTest       1
	// * IoProtectionKeyEnable 1
	// * KdfAesEnable          1
	// * AutoClearFirstFail    1
	// * Reserved              4
	Bits1 byte
	// Bits2 consists of
	// * EcdhProtectionBits    2
	// * KdfProtectionBits     2
	// * IoProtectionKey       4
	Bits2 byte
}

// PowerOnSelfTest enables Power On Self Tests on wake.
func (co ChipOptions) PowerOnSelfTest() bool        { return bit(co.Bits1, 0x01) }
func (co ChipOptions) IoProtectionKeyEnabled() bool { return bit(co.Bits1, 0x02) }
func (co ChipOptions) KdfAesEnabled() bool          { return bit(co.Bits1, 0x04) }

// AutoClearFirstFail indicates if the Health Test Failure bit is cleared any
// time that a command fails as a result of a health test failure.
func (co ChipOptions) AutoClearFirstFail() bool { return bit(co.Bits1, 0x08) }
func (co ChipOptions) Reserved() byte           { return (co.Bits1 & 0xf0) >> 4 }

// EcdhProtectionBits indicates if ECDH master secret in the clear is allowed.
func (co ChipOptions) EcdhProtectionBits() byte { return co.Bits2 & 0x03 }
func (co ChipOptions) KdfProtectionBits() byte  { return (co.Bits2 & 0x0c) >> 2 }
func (co ChipOptions) IoProtectionKey() byte    { return (co.Bits2 & 0xf0) >> 4 }

func (co ChipOptions) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PowerOnSelfTest        bool `json:"power_on_self_test"`
		IoProtectionKeyEnabled bool `json:"io_protection_key_enabled"`
		KdfAesEnable           bool `json:"kdf_aes_enabled"`
		AutoClearFirstFail     bool `json:"auto_clear_first_fail"`
		Reserved               byte `json:"reserved"`
		EcdhProtectionBits     byte `json:"ecdh_protection_bits"`
		KdfProtectionBits      byte `json:"kdf_protection_bits"`
		IoProtectionKey        byte `json:"io_protection_key"`
	}{
		PowerOnSelfTest:        co.PowerOnSelfTest(),
		IoProtectionKeyEnabled: co.IoProtectionKeyEnabled(),
		KdfAesEnable:           co.KdfAesEnabled(),
		AutoClearFirstFail:     co.AutoClearFirstFail(),
		Reserved:               co.Reserved(),
		EcdhProtectionBits:     co.EcdhProtectionBits(),
		KdfProtectionBits:      co.KdfProtectionBits(),
		IoProtectionKey:        co.IoProtectionKey(),
	})
}

type X509Format struct {
	// Bits consists of
	// * PublicPosition 4
	// * TemplateLength 4
	Bits byte
}

func (xf X509Format) PublicPosition() byte { return xf.Bits & 0x0f }
func (xf X509Format) TemplateLength() byte { return (xf.Bits & 0xf0) >> 4 }

func (xf X509Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PublicPosition byte `json:"public_position"`
		TemplateLength byte `json:"template_length"`
	}{xf.PublicPosition(), xf.TemplateLength()})
}
