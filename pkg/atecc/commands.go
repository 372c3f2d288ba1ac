package atecc

import (
	"errors"
	"fmt"
)

// General device command opcodes
//
//nolint:unused
const (
	atcaCheckMac    = 0x28 // CheckMac command op-code
	atcaDeriveKey   = 0x1c // DeriveKey command op-code
	atcaInfo        = 0x30 // Info command op-code
	atcaGenDig      = 0x15 // GenDig command op-code
	atcaGenKey      = 0x40 // GenKey command op-code
	atcaHMAC        = 0x11 // HMAC command op-code
	atcaLock        = 0x17 // Lock command op-code
	atcaMAC         = 0x08 // MAC command op-code
	atcaNonce       = 0x16 // Nonce command op-code
	atcaPause       = 0x01 // Pause command op-code
	atcaPrivWrite   = 0x46 // PrivWrite command op-code
	atcaRandom      = 0x1b // Random command op-code
	atcaRead        = 0x02 // Read command op-code
	atcaSign        = 0x41 // Sign command op-code
	atcaUpdateExtra = 0x20 // UpdateExtra command op-code
	atcaVerify      = 0x45 // Verify command op-code
	atcaWrite       = 0x12 // Write command op-code
	atcaECDH        = 0x43 // ECDH command op-code
	atcaCounter     = 0x24 // Counter command op-code
	atcaDelete      = 0x13 // Delete command op-code
	atcaSHA         = 0x47 // SHA command op-code
	atcaAES         = 0x51 // AES command op-code
	atcaKDF         = 0x56 // KDF command op-code
	atcaSecureBoot  = 0x80 // Secure Boot command op-code
	atcaSelfTest    = 0x77 // Self test command op-code
)

// atcaZoneReadWrite32 selects 32 byte reads and writes.
const atcaZoneReadWrite32 = 0x80

type infoMode uint8

const (
	infoModeRevision infoMode = 0x0
)

func newInfoCommand(mode infoMode) (*packet, error) {
	return newPacket(atcaInfo, uint8(mode), 0, nil, 4)
}

type lockZone uint8

const (
	lockZoneConfig   = lockZone(0x00)
	lockZoneData     = lockZone(0x01)
	lockZoneDataSlot = lockZone(0x02)
)

type lockMode uint8

const (
	lockModeCRC   = lockMode(0x00)
	lockModeNoCRC = lockMode(0x80)
)

func newLockCommand(zone lockZone, mode lockMode, crc uint16) (*packet, error) {
	return newPacket(atcaLock, uint8(zone)|uint8(mode), crc, nil, 1)
}

func newLockSlotCommand(slot int) (*packet, error) {
	zone := lockZoneDataSlot | lockZone(slot<<2)
	return newPacket(atcaLock, uint8(zone)|uint8(lockModeNoCRC), 0, nil, 1)
}

func newReadCommand(zone Zone, addr uint16, block bool) (*packet, error) {
	param1 := uint8(zone)
	size := atcaWordSize
	if block {
		param1 = param1 | atcaZoneReadWrite32
		size = atcaBlockSize
	}
	return newPacket(atcaRead, param1, addr, nil, size)
}

//nolint:unused
const (
	genKeyModePrivate      = 0x04 // generate private key
	genKeyModePublic       = 0x00 // calculate public key
	genKeyModeDigest       = 0x08 // key digest
	genKeyModePubKeyDigest = 0x10 // public key digest
	genKeyModeMAC          = 0x20 // calculate MAC of public key + session key
)

func newGenKeyCommand(mode uint8, keyID uint16, otherData []byte) (*packet, error) {
	return newPacket(atcaGenKey, mode, keyID, otherData, 64)
}

type randomMode uint8

const (
	randomModeUpdateSeed   randomMode = 0x0
	randomModeNoUpdateSeed randomMode = 0x01
)

func newRandomCommand(mode randomMode) (*packet, error) {
	return newPacket(atcaRandom, uint8(mode), 0x0, nil, 32)
}

type nonceTarget uint8

// Nonce targets.
const (
	nonceTargetTempKey   nonceTarget = 0x0  // TempKey
	nonceTargetMsgDigBuf nonceTarget = 0x40 // Message Digest Buffer (ATECC608)
	nonceTargetAltKeyBuf nonceTarget = 0x80 // Alternate Key Buffer
)

type nonceMode uint8

// Nonce modes.
const (
	nonceModeSeedUpdate   nonceMode = 0x00 // update seed
	nonceModeNoSeedUpdate nonceMode = 0x01 // do not update seed
	nonceModePassthrough  nonceMode = 0x03 // pass-through
)

// Nonce mode flags.
const (
	nonceModeFlagInputLen32 uint8 = 0x00 // Nonce mode: input size is 32 bytes
	nonceModeFlagInputLen64 uint8 = 0x20 // Nonce mode: input size is 64 bytes
)

// nonceNumInSize is the size of the input to the random nonce modes.
const nonceNumInSize = 20

func newNonceCommand(mode nonceMode, target nonceTarget, param2 uint16, keyIn []byte) (*packet, error) {
	param1 := uint8(mode)
	respSize := 32
	if mode == nonceModePassthrough {
		switch len(keyIn) {
		case 32:
			param1 = param1 | nonceModeFlagInputLen32
		case 64:
			param1 = param1 | nonceModeFlagInputLen64
		default:
			return nil, fmt.Errorf("%w: invalid nonce size %d", ErrEncoding, len(keyIn))
		}
		respSize = 1
	} else if len(keyIn) != nonceNumInSize {
		return nil, fmt.Errorf("%w: invalid nonce size %d", ErrEncoding, len(keyIn))
	}

	param1 = param1 | uint8(target)
	return newPacket(atcaNonce, param1, param2, keyIn, respSize)
}

type signMode uint8

//nolint:unused
const (
	signModeInternal   signMode = 0x00 // Sign mode	 0: internal
	signModeInvalidate signMode = 0x01 // Sign mode bit 1: Signature will be used for Verify(Invalidate)
	signModeIncludeSN  signMode = 0x40 // Sign mode bit 6: include serial number
	signModeExternal   signMode = 0x80 // Sign mode bit 7: external
)

type signSource uint8

//nolint:unused
const (
	signSourceTempKey   signSource = 0x00 // Sign mode message source is TempKey
	signSourceMsgDigBuf signSource = 0x20 // Sign mode message source is the Message Digest Buffer
)

func newSignCommand(mode signMode, source signSource, keyID uint16) (*packet, error) {
	return newPacket(atcaSign, uint8(mode)|uint8(source), keyID, nil, 64)
}

type verifyMode uint8

// Verify modes.
//
//nolint:unused
const (
	verifyModeStored           verifyMode = 0x00 // stored
	verifyModeValidateExternal verifyMode = 0x01 // validate external
	verifyModeExternal         verifyMode = 0x02 // external
	verifyModeValidate         verifyMode = 0x03 // validate
	verifyModeInvalidate       verifyMode = 0x07 // invalidate
)

// Verify key types.
//
//nolint:unused
const (
	verifyKeyB283 = 0x0000 // B283
	verifyKeyK283 = 0x0001 // K283
	verifyKeyP256 = 0x0004 // P256
)

type verifySource uint8

//nolint:unused
const (
	verifySourceTempKey   verifySource = 0x00 // TempKey
	verifySourceMsgDigBuf verifySource = 0x20 // Message Digest Buffer (ATECC608)
)

func newVerifyExternCommand(source verifySource, sig, pub []byte) (*packet, error) {
	if len(sig) != 64 {
		return nil, fmt.Errorf("%w: invalid signature size %d", ErrEncoding, len(sig))
	}
	if len(pub) != 64 {
		return nil, errors.New("atecc: invalid public key received")
	}

	data := make([]byte, 0, 128)
	data = append(data, sig...)
	data = append(data, pub...)
	return newPacket(atcaVerify, uint8(verifyModeExternal)|uint8(source), verifyKeyP256, data, 1)
}

func newWriteCommand(zone Zone, addr uint16, value []byte, mac []byte) (*packet, error) {
	param1 := uint8(zone)
	switch len(value) {
	case atcaWordSize:
		if mac != nil {
			return nil, fmt.Errorf("%w: unexpected mac for word write", ErrEncoding)
		}
	case atcaBlockSize:
		param1 = param1 | atcaZoneReadWrite32
	default:
		return nil, fmt.Errorf("%w: write data must be a word or a block", ErrEncoding)
	}

	data := make([]byte, 0, len(value)+len(mac))
	data = append(data, value...)
	data = append(data, mac...)
	return newPacket(atcaWrite, param1, addr, data, 1)
}

type updateMode uint8

const (
	updateModeUserExtra    updateMode = 0x00
	updateModeUserExtraAdd updateMode = 0x01
)

func newUpdateExtraCommand(mode updateMode, newValue byte) (*packet, error) {
	return newPacket(atcaUpdateExtra, uint8(mode), uint16(newValue), nil, 1)
}

type shaMode uint8

// SHA modes.
const (
	shaModeStart        shaMode = 0x00
	shaModeUpdate       shaMode = 0x01
	shaModeEnd          shaMode = 0x02
	shaModeReadContext  shaMode = 0x06
	shaModeWriteContext shaMode = 0x07
)

const (
	shaBlockSize = 64

	// shaContextMaxSize is the largest context returned by the read context
	// mode.
	shaContextMaxSize = 109
)

func newSHACommand(mode shaMode, data []byte) (*packet, error) {
	respSize := 1
	switch mode {
	case shaModeStart:
		if len(data) != 0 {
			return nil, fmt.Errorf("%w: sha start takes no data", ErrEncoding)
		}
	case shaModeUpdate:
		if len(data) != shaBlockSize {
			return nil, fmt.Errorf("%w: sha update takes one block", ErrEncoding)
		}
	case shaModeEnd:
		if len(data) >= shaBlockSize {
			return nil, fmt.Errorf("%w: sha end takes less than one block", ErrEncoding)
		}
		respSize = 32
	case shaModeReadContext:
		respSize = shaContextMaxSize
	case shaModeWriteContext:
		if len(data) == 0 || len(data) > shaContextMaxSize {
			return nil, fmt.Errorf("%w: invalid sha context size %d", ErrEncoding, len(data))
		}
	default:
		return nil, fmt.Errorf("%w: unknown sha mode %#02x", ErrEncoding, mode)
	}
	return newPacket(atcaSHA, uint8(mode), uint16(len(data)), data, respSize)
}

type counterMode uint8

const (
	counterModeRead      counterMode = 0x00
	counterModeIncrement counterMode = 0x01
)

func newCounterCommand(mode counterMode, id uint16) (*packet, error) {
	return newPacket(atcaCounter, uint8(mode), id, nil, 4)
}

// ecdhModeClearOutput writes the shared secret to the output buffer in the
// clear.
const ecdhModeClearOutput = 0x0c

func newECDHCommand(keyID uint16, pub []byte) (*packet, error) {
	if len(pub) != 64 {
		return nil, errors.New("atecc: invalid public key received")
	}
	return newPacket(atcaECDH, ecdhModeClearOutput, keyID, pub, 32)
}
