package ateccconf

import "encoding/json"

type SlotConfig struct {
	// Bits1 consists of
	// * ReadKey (4)
	// * NoMac (1)
	// * LimitedUse (1)
	// * EncryptRead (1)
	// * IsSecret (1)
	Bits1 byte
	// Bits2 consists of
	// * WriteKey (4)
	// * WriteConfig (4)
	Bits2 byte
}

// ReadKey is the read key slot for data slots. For private key slots the
// bits select which operations the key may be used for, see
// ExternalSignEnabled, InternalSignEnabled and ECDHEnabled.
func (sc SlotConfig) ReadKey() uint16 { return uint16(sc.Bits1 & 0x0f) }

func (sc SlotConfig) NoMac() bool       { return bit(sc.Bits1, 0x10) }
func (sc SlotConfig) LimitedUse() bool  { return bit(sc.Bits1, 0x20) }
func (sc SlotConfig) EncryptRead() bool { return bit(sc.Bits1, 0x40) }
func (sc SlotConfig) IsSecret() bool    { return bit(sc.Bits1, 0x80) }
func (sc SlotConfig) WriteKey() uint16  { return uint16(sc.Bits2 & 0x0f) }

// ExternalSignEnabled reports if the private key may sign arbitrary
// messages.
func (sc SlotConfig) ExternalSignEnabled() bool { return bit(sc.Bits1, 0x01) }

// InternalSignEnabled reports if the private key may sign internally
// generated messages.
func (sc SlotConfig) InternalSignEnabled() bool { return bit(sc.Bits1, 0x02) }

// ECDHEnabled reports if the private key may be used with ECDH.
func (sc SlotConfig) ECDHEnabled() bool { return bit(sc.Bits1, 0x04) }

// WriteConfig returns the 4 write configuration bits.
func (sc SlotConfig) WriteConfig() SlotWriteConfig {
	return SlotWriteConfig((sc.Bits2 & 0xf0) >> 4)
}

func (sc SlotConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ReadKey     uint16          `json:"read_key"`
		NoMAC       bool            `json:"no_mac"`
		LimitedUse  bool            `json:"limited_use"`
		EncryptRead bool            `json:"encrypt_read"`
		IsSecret    bool            `json:"is_secret"`
		WriteKey    uint16          `json:"write_key"`
		WriteConfig SlotWriteConfig `json:"write_config"`
	}{
		ReadKey:     sc.ReadKey(),
		NoMAC:       sc.NoMac(),
		LimitedUse:  sc.LimitedUse(),
		EncryptRead: sc.EncryptRead(),
		IsSecret:    sc.IsSecret(),
		WriteKey:    sc.WriteKey(),
		WriteConfig: sc.WriteConfig(),
	})
}

// SlotWriteConfig is the WriteConfig nibble of a slot. Its meaning depends on
// the command: Write, GenKey and PrivWrite each look at different bits.
type SlotWriteConfig uint8

// Always reports if clear text writes are always allowed.
func (w SlotWriteConfig) Always() bool { return w == 0 }

// GenKeyEnabled reports if GenKey may create a new private key after the data
// zone has been locked.
func (w SlotWriteConfig) GenKeyEnabled() bool { return w&0x02 != 0 }

// PrivWriteEnabled reports if PrivWrite may write an encrypted private key
// after the data zone has been locked.
func (w SlotWriteConfig) PrivWriteEnabled() bool { return w&0x04 != 0 }

func (w SlotWriteConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Bits             uint8 `json:"bits"`
		Always           bool  `json:"always"`
		GenKeyEnabled    bool  `json:"gen_key_enabled"`
		PrivWriteEnabled bool  `json:"priv_write_enabled"`
	}{uint8(w), w.Always(), w.GenKeyEnabled(), w.PrivWriteEnabled()})
}

type KeyType uint8

const (
	// KeyTypePrivate is a P256 NIST ECC private key.
	KeyTypePrivate = KeyType(0x04)

	// KeyTypeAES is 2 AES 128-bit symmetric keys.
	//
	// Indicates a slot that can store up to 2 AES 128-bit (16 byte) symmetric
	// keys.
	KeyTypeAES = KeyType(0x06)

	// KeyTypeOther can contain any kind of data.
	//
	// This is used by the I/O protection key, Secure Boot and more.
	KeyTypeOther = KeyType(0x07)
)

func (k KeyType) String() string {
	switch k {
	case KeyTypePrivate:
		return "private"
	case KeyTypeAES:
		return "aes"
	case KeyTypeOther:
		return "other"
	default:
		return "unknown"
	}
}

func (k KeyType) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

type KeyConfig struct {
	// Bits1 consists of
	// * Private           1
	// * PubInfo           1
	// * KeyType           3
	// * Lockable          1
	// * ReqRandom         1
	// * ReqAuth           1
	Bits1 byte
	// Bits2 consists of
	// * AuthKey           4
	// * PersistentDisable 1
	// * RFU               1
	// * X509id            2
	Bits2 byte
}

func (kc KeyConfig) Private() bool           { return bit(kc.Bits1, 0x01) }
func (kc KeyConfig) PubInfo() bool           { return bit(kc.Bits1, 0x02) }
func (kc KeyConfig) KeyType() KeyType        { return KeyType((kc.Bits1 & 0x1c) >> 2) }
func (kc KeyConfig) Lockable() bool          { return bit(kc.Bits1, 0x20) }
func (kc KeyConfig) RequireRandom() bool     { return bit(kc.Bits1, 0x40) }
func (kc KeyConfig) RequireAuth() bool       { return bit(kc.Bits1, 0x80) }
func (kc KeyConfig) AuthKey() byte           { return kc.Bits2 & 0x0f }
func (kc KeyConfig) PersistentDisable() bool { return bit(kc.Bits2, 0x10) }
func (kc KeyConfig) RFU() bool               { return bit(kc.Bits2, 0x20) }
func (kc KeyConfig) X509ID() byte            { return (kc.Bits2 & 0xc0) >> 6 }

func (kc KeyConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Private           bool    `json:"private"`
		PubInfo           bool    `json:"pub_info"`
		KeyType           KeyType `json:"key_type"`
		Lockable          bool    `json:"lockable"`
		RequireRandom     bool    `json:"require_random"`
		RequireAuth       bool    `json:"require_auth"`
		AuthKey           byte    `json:"auth_key"`
		PersistentDisable bool    `json:"persistent_disable"`
		RFU               bool    `json:"rfu"`
		X509ID            byte    `json:"x509_id"`
	}{
		Private:           kc.Private(),
		PubInfo:           kc.PubInfo(),
		KeyType:           kc.KeyType(),
		Lockable:          kc.Lockable(),
		RequireRandom:     kc.RequireRandom(),
		RequireAuth:       kc.RequireAuth(),
		AuthKey:           kc.AuthKey(),
		PersistentDisable: kc.PersistentDisable(),
		RFU:               kc.RFU(),
		X509ID:            kc.X509ID(),
	})
}

type LockState byte

const (
	// LockStateLocked indicates a locked zone.
	LockStateLocked = LockState(0x00)
	// LockStateUnlocked indicates an unlocked zone.
	LockStateUnlocked = LockState(0x55)
)

func (m LockState) IsLocked() bool {
	return m != LockStateUnlocked
}

func (m LockState) String() string {
	switch m {
	case LockStateLocked:
		return "locked"
	case LockStateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

func (m LockState) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// SlotLocked holds one bit per slot, a cleared bit means the slot is locked.
//
// The device stores the value little endian (byte 88 holds slot 0-7) while
// Unmarshal reads it big endian.
type SlotLocked uint16

func (l SlotLocked) IsLocked(slot int) bool {
	if slot < 0 || slot >= NumSlots {
		panic("slot locked contains only 16 slots")
	}
	v := uint16(l)<<8 | uint16(l)>>8
	return v&(1<<slot) == 0
}

// Lock returns l with slot marked as locked.
func (l SlotLocked) Lock(slot int) SlotLocked {
	if slot < 0 || slot >= NumSlots {
		panic("slot locked contains only 16 slots")
	}
	v := uint16(l)<<8 | uint16(l)>>8
	v &^= 1 << slot
	return SlotLocked(v<<8 | v>>8)
}

func (l SlotLocked) MarshalJSON() ([]byte, error) {
	var slots []bool
	for i := 0; i < NumSlots; i++ {
		slots = append(slots, l.IsLocked(i))
	}
	return json.Marshal(slots)
}
