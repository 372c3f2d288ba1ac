package ateccconf

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"testing"
)

var golden608 = append(
	// 16 first bytes are static inside of the device
	[]byte{
		0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7,
		0x8, 0x9, 0xa, 0xb, 0xc, 0xd, 0xe, 0xf,
	}, Default608...,
)

func TestUnmarshal(t *testing.T) {
	var (
		want = Config608{
			SN03:       [4]byte{0x0, 0x1, 0x2, 0x3},
			RevNum:     [4]byte{0x4, 0x5, 0x6, 0x7},
			SN48:       [5]byte{0x8, 0x9, 0xa, 0xb, 0xc},
			AESEnable:  AESEnable{Bits: 0xd},
			I2CEnable:  I2CEnable{Bits: 0xe},
			Reserved15: 0xf,

			// Default608...
			I2CAddress: 0x6a,
			Reserved17: 0,
			CountMatch: CountMatch{Bits: 0},
			ChipMode:   ChipMode608{Bits: 1},
			SlotConfig: [16]SlotConfig{
				{Bits1: 0x85, Bits2: 0x00},
				{Bits1: 0x82, Bits2: 0x00},
				{Bits1: 0x85, Bits2: 0x20},
				{Bits1: 0x85, Bits2: 0x20},
				{Bits1: 0x85, Bits2: 0x20},
				{Bits1: 0xc6, Bits2: 0x46},
				{Bits1: 0x8f, Bits2: 0x0f},
				{Bits1: 0x9f, Bits2: 0x8f},
				{Bits1: 0x0f, Bits2: 0x0f},
				{Bits1: 0x8f, Bits2: 0x0f},
				{Bits1: 0x0f, Bits2: 0x0f},
				{Bits1: 0x0f, Bits2: 0x0f},
				{Bits1: 0x0f, Bits2: 0x0f},
				{Bits1: 0x0f, Bits2: 0x0f},
				{Bits1: 0x0d, Bits2: 0x1f},
				{Bits1: 0x0f, Bits2: 0x0f},
			},

			Counter: [2]Counter{
				{Value: [8]uint8{0xff, 0xff, 0xff, 0xff, 0x0, 0x0, 0x0, 0x0}},
				{Value: [8]uint8{0xff, 0xff, 0xff, 0xff, 0x0, 0x0, 0x0, 0x0}},
			},

			UseLock: UseLock{Bits: 0x0},

			VolatileKeyPermission: VolatileKeyPermission{Bits: 0x0},

			SecureBoot: SecureBoot{Bits1: 0x3, Bits2: 0xf7},

			KdfIvLoc:     0x0,
			KdfIvStr:     [2]uint8{0x69, 0x76},
			Reserved68:   [9]uint8{0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0},
			UserExtra:    0x0,
			UserExtraAdd: 0x0,
			LockValue:    0x55,
			LockConfig:   0x55,
			SlotLocked:   0xffff,
			ChipOptions:  ChipOptions{Bits1: 0xe, Bits2: 0x60},
			X509Format: [4]X509Format{
				{Bits: 0x0},
				{Bits: 0x0},
				{Bits: 0x0},
				{Bits: 0x0}},
			KeyConfig: [16]KeyConfig{
				{Bits1: 0x53, Bits2: 0x0},
				{Bits1: 0x53, Bits2: 0x0},
				{Bits1: 0x73, Bits2: 0x0},
				{Bits1: 0x73, Bits2: 0x0},
				{Bits1: 0x73, Bits2: 0x0},
				{Bits1: 0x38, Bits2: 0x0},
				{Bits1: 0x7c, Bits2: 0x0},
				{Bits1: 0x1c, Bits2: 0x0},
				{Bits1: 0x3c, Bits2: 0x0},
				{Bits1: 0x1a, Bits2: 0x0},
				{Bits1: 0x3c, Bits2: 0x0},
				{Bits1: 0x30, Bits2: 0x0},
				{Bits1: 0x3c, Bits2: 0x0},
				{Bits1: 0x30, Bits2: 0x0},
				{Bits1: 0x12, Bits2: 0x0},
				{Bits1: 0x30, Bits2: 0x0},
			}}
		got Config608
	)
	if err := Unmarshal(golden608, &got); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf(" got: %v", got)
		t.Errorf("want: %v", want)
	}
}

func TestMarshal(t *testing.T) {
	c := Config608{
		I2CAddress: 0x6a,
		Reserved17: 0,
		CountMatch: CountMatch{Bits: 0},
		ChipMode:   ChipMode608{Bits: 1},
		SlotConfig: [16]SlotConfig{
			{Bits1: 0x85, Bits2: 0x00},
			{Bits1: 0x82, Bits2: 0x00},
		},
	}

	b, err := Marshal(c)
	if err != nil {
		t.Fatal(err)
	}

	got := b[16 : 16+8]
	want := Default608[:8]

	if !bytes.Equal(got, want) {
		t.Errorf(" got: %s", hex.Dump(got))
		t.Errorf("want: %s", hex.Dump(want))
	}
}

func TestMarshalRoundtrip(t *testing.T) {
	c := DefaultConfig608()

	b, err := Marshal(c)
	if err != nil {
		t.Fatal(err)
	}

	got := b[16:]
	want := Default608

	if !bytes.Equal(got, want) {
		t.Errorf(" got: %s", hex.Dump(got))
		t.Errorf("want: %s", hex.Dump(want))
	}
}

func TestUnmarshalPartial(t *testing.T) {
	var (
		want = Config608{
			I2CAddress: 0x6a,
			Reserved17: 0,
			CountMatch: CountMatch{Bits: 0},
			ChipMode:   ChipMode608{Bits: 1},
			SlotConfig: [16]SlotConfig{
				{Bits1: 0x85, Bits2: 0x00},
				{Bits1: 0x82, Bits2: 0x00},
			},
		}
		got Config608
	)
	if err := UnmarshalPartial(Default608[:8], 16, &got); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf(" got: %v", got)
		t.Errorf("want: %v", want)
	}
}

func TestSlotLocked(t *testing.T) {
	// byte 88 (slots 0-7) is the high byte after Unmarshal
	l := SlotLocked(0xfeff)
	for i := 0; i < NumSlots; i++ {
		if got, want := l.IsLocked(i), i == 0; got != want {
			t.Errorf("slot %d: got %v want %v", i, got, want)
		}
	}

	l = SlotLocked(0xffff).Lock(9)
	if l != 0xfffd {
		t.Errorf("got %#x want %#x", uint16(l), 0xfffd)
	}
	if !l.IsLocked(9) || l.IsLocked(1) {
		t.Errorf("unexpected lock state %#x", uint16(l))
	}
}

func TestPolicy(t *testing.T) {
	unlocked := DefaultConfig608()
	locked := DefaultConfig608()
	locked.LockConfig = LockStateLocked
	locked.LockValue = LockStateLocked

	testCases := []struct {
		name string
		got  bool
		want bool
	}{
		{"slot 0 private", locked.IsECCPrivateKey(0), true},
		{"slot 8 data", locked.IsECCPrivateKey(8), false},
		{"slot 16 invalid", locked.IsECCPrivateKey(16), false},
		{"sign slot 0", locked.CanSignExternal(0), true},
		{"sign slot 1 internal only", locked.CanSignExternal(1), false},
		{"sign before data lock", unlocked.CanSignExternal(0), false},
		{"sign data slot", locked.CanSignExternal(8), false},
		{"ecdh slot 2", locked.CanECDH(2), true},
		{"ecdh slot 1", locked.CanECDH(1), false},
		{"genkey unlocked", unlocked.CanGenerateKey(1), true},
		{"genkey slot 2 enabled", locked.CanGenerateKey(2), true},
		{"genkey slot 0 disabled", locked.CanGenerateKey(0), false},
		{"genkey data slot", unlocked.CanGenerateKey(8), false},
		{"write unlocked", unlocked.CanWriteSlot(8), true},
		{"write locked always", locked.CanWriteSlot(8), true},
		{"write locked never", locked.CanWriteSlot(7), false},
		{"write invalid slot", unlocked.CanWriteSlot(-1), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v want %v", tc.got, tc.want)
			}
		})
	}
}

func TestGenerateKeyLockedSlot(t *testing.T) {
	c := DefaultConfig608()
	c.LockValue = LockStateLocked
	c.SlotLocked = c.SlotLocked.Lock(2)
	if c.CanGenerateKey(2) {
		t.Error("expected locked slot to reject key generation")
	}
}

func TestWatchdog(t *testing.T) {
	c := DefaultConfig608()
	if got := c.Watchdog(); got != WatchdogShort {
		t.Errorf("got %v want %v", got, WatchdogShort)
	}
	c.ChipMode.Bits |= 0x04
	if got := c.Watchdog(); got != WatchdogLong {
		t.Errorf("got %v want %v", got, WatchdogLong)
	}
}

func TestSerialNumber(t *testing.T) {
	var c Config608
	if err := Unmarshal(golden608, &c); err != nil {
		t.Fatal(err)
	}
	want := [9]byte{0x0, 0x1, 0x2, 0x3, 0x8, 0x9, 0xa, 0xb, 0xc}
	if got := c.SerialNumber(); got != want {
		t.Errorf("got %x want %x", got, want)
	}
}

func TestMarshalJSON(t *testing.T) {
	var c Config608
	if err := Unmarshal(golden608, &c); err != nil {
		t.Fatal(err)
	}

	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		LockValue  string `json:"lock_value"`
		SlotConfig []struct {
			ReadKey     uint16 `json:"read_key"`
			WriteConfig struct {
				GenKeyEnabled bool `json:"gen_key_enabled"`
			} `json:"write_config"`
		} `json:"slot_config"`
		KeyConfig []struct {
			KeyType string `json:"key_type"`
		} `json:"key_config"`
		SlotLocked []bool `json:"slot_locked"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}

	if got.LockValue != "unlocked" {
		t.Errorf("lock value: got %q", got.LockValue)
	}
	if got.SlotConfig[0].ReadKey != 5 {
		t.Errorf("read key: got %d want 5", got.SlotConfig[0].ReadKey)
	}
	if !got.SlotConfig[2].WriteConfig.GenKeyEnabled {
		t.Error("slot 2: expected gen key enabled")
	}
	if got.KeyConfig[0].KeyType != "private" {
		t.Errorf("key type: got %q", got.KeyConfig[0].KeyType)
	}
	if len(got.SlotLocked) != NumSlots {
		t.Errorf("slot locked: got %d slots", len(got.SlotLocked))
	}
}

func TestUnmarshalPartialOverflow(t *testing.T) {
	var c Config608
	if err := UnmarshalPartial(make([]byte, 8), Size-4, &c); err == nil {
		t.Error("expected error")
	}
}
