package atecc

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"

	"github.com/northvolt/go-secureelement/pkg/atecccert"
)

// Revision gets the device revision.
//
// This information is hard coded into the device. Use it to determine the
// version of the device.
func (d *Dev) Revision(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var recv [4]byte
	p, err := newInfoCommand(infoModeRevision)
	if err != nil {
		return nil, err
	}
	n, err := d.execute(ctx, p, recv[:])
	return recv[:n], err
}

// Random returns 32 random bytes from the device.
//
// The RNG seed in EEPROM is updated if updateSeed is set. Updating the seed
// wears the EEPROM and is not needed for every call.
func (d *Dev) Random(ctx context.Context, updateSeed bool) ([32]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mode := randomModeNoUpdateSeed
	if updateSeed {
		mode = randomModeUpdateSeed
	}
	return d.random(ctx, mode)
}

// RandomReader returns a random reader.
//
// The underlying reader reads 32 byte random data from the device at a time.
//
// Use io.ReadFull to fill a buffer. For a random integer in a range, pass the
// reader to crypto/rand.Int.
func (d *Dev) RandomReader(ctx context.Context) io.Reader {
	return &randReader{ctx, d}
}

func (d *Dev) random(ctx context.Context, mode randomMode) ([32]byte, error) {
	var out [32]byte
	p, err := newRandomCommand(mode)
	if err != nil {
		return out, err
	}
	n, err := d.execute(ctx, p, out[:])
	if err != nil {
		return out, err
	} else if n != len(out) {
		return out, fmt.Errorf("atecc: unexpected random size: %d", n)
	}
	return out, nil
}

// Nonce generates a random nonce combined with numIn, 20 bytes, and stores it
// in TempKey. The random number used is returned.
func (d *Dev) Nonce(ctx context.Context, numIn []byte, updateSeed bool) ([32]byte, error) {
	var out [32]byte
	if len(numIn) != nonceNumInSize {
		return out, fmt.Errorf("%w: nonce input must be %d bytes", ErrInvalidParameter, nonceNumInSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	mode := nonceModeNoSeedUpdate
	if updateSeed {
		mode = nonceModeSeedUpdate
	}
	p, err := newNonceCommand(mode, nonceTargetTempKey, 0, numIn)
	if err != nil {
		return out, err
	}
	n, err := d.execute(ctx, p, out[:])
	if err != nil {
		return out, err
	} else if n != len(out) {
		return out, fmt.Errorf("atecc: unexpected nonce size: %d", n)
	}
	return out, nil
}

// nonceLoad loads numIn, 32 or 64 bytes, into target without modification.
func (d *Dev) nonceLoad(ctx context.Context, target nonceTarget, numIn []byte) error {
	p, err := newNonceCommand(nonceModePassthrough, target, 0, numIn)
	if err != nil {
		return err
	}
	var status [1]byte
	_, err = d.execute(ctx, p, status[:])
	return err
}

// digestTarget returns where an external digest is loaded before Sign and
// Verify. The ATECC508 has no message digest buffer and uses TempKey.
func (d *Dev) digestTarget() (nonceTarget, signSource, verifySource) {
	if d.cfg.DeviceType == DeviceATECC508 {
		return nonceTargetTempKey, signSourceTempKey, verifySourceTempKey
	}
	return nonceTargetMsgDigBuf, signSourceMsgDigBuf, verifySourceMsgDigBuf
}

// ECDSASign signs digest using the private key in slot and returns the raw
// signature, R followed by S.
//
// The slot must hold a P256 private key allowed to sign external messages.
func (d *Dev) ECDSASign(ctx context.Context, slot int, digest [32]byte) ([64]byte, error) {
	var sig [64]byte
	if !validSlot(slot) {
		return sig, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conf, err := d.config(ctx)
	if err != nil {
		return sig, err
	}
	if !conf.CanSignExternal(slot) {
		return sig, fmt.Errorf("%w: slot %d can not sign external messages", ErrInvalidSlot, slot)
	}

	budget, err := d.budget(atcaRandom, atcaNonce, atcaSign)
	if err != nil {
		return sig, err
	}
	target, source, _ := d.digestTarget()
	err = d.sequence(ctx, budget, func() error {
		// Make sure RNG has updated its seed
		if _, err := d.random(ctx, randomModeUpdateSeed); err != nil {
			return err
		}
		if err := d.nonceLoad(ctx, target, digest[:]); err != nil {
			return err
		}
		return d.signBase(ctx, signModeExternal, source, uint16(slot), sig[:])
	})
	return sig, err
}

func (d *Dev) signBase(ctx context.Context, mode signMode, source signSource, keyID uint16, sig []byte) error {
	p, err := newSignCommand(mode, source, keyID)
	if err != nil {
		return err
	}
	n, err := d.execute(ctx, p, sig)
	if err != nil {
		return err
	} else if n != 64 {
		return fmt.Errorf("atecc: unexpected signature size: %d", n)
	}
	return nil
}

// Sign signs the digest using the private key in the specified slot.
//
// This function executes the sign command to sign a 32-byte external message
// using the private key in the specified slot. It returns the ASN.1 encoded
// signature.
func (d *Dev) Sign(ctx context.Context, slot int, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("%w: digest must be 32 bytes", ErrInvalidParameter)
	}
	sig, err := d.ECDSASign(ctx, slot, [32]byte(digest))
	if err != nil {
		return nil, err
	}
	return atecccert.MarshalSignature(sig)
}

// ECDSAVerify verifies a raw signature of digest using an external public
// key, X followed by Y.
//
// A signature that does not match returns false and no error.
func (d *Dev) ECDSAVerify(ctx context.Context, pub [64]byte, digest [32]byte, sig [64]byte) (bool, error) {
	if _, err := atecccert.ECDSAPublicKey(pub); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	budget, err := d.budget(atcaNonce, atcaVerify)
	if err != nil {
		return false, err
	}
	target, _, source := d.digestTarget()

	var verified bool
	err = d.sequence(ctx, budget, func() error {
		if err := d.nonceLoad(ctx, target, digest[:]); err != nil {
			return err
		}
		p, err := newVerifyExternCommand(source, sig[:], pub[:])
		if err != nil {
			return err
		}
		var status [1]byte
		_, err = d.execute(ctx, p, status[:])
		switch {
		case errors.Is(err, ErrMiscompare):
			return nil
		case err != nil:
			return err
		}
		verified = true
		return nil
	})
	return verified, err
}

// VerifyExtern verifies a signature using external input.
//
// The signature provided is expected to be in ASN.1 format.
func (d *Dev) VerifyExtern(ctx context.Context, digest, sig []byte, pub crypto.PublicKey) (bool, error) {
	if len(digest) != 32 {
		return false, fmt.Errorf("%w: digest must be 32 bytes", ErrInvalidParameter)
	}
	signature, err := atecccert.ParseSignature(sig)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	pk, err := atecccert.RawPublicKey(pub)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	return d.ECDSAVerify(ctx, pk, [32]byte(digest), signature)
}

// GenerateKey generates a new random private key in slot and returns its
// public key, X followed by Y.
//
// After the data zone has been locked, the slot must be configured to allow
// key generation.
func (d *Dev) GenerateKey(ctx context.Context, slot int) ([64]byte, error) {
	var pub [64]byte
	if !validSlot(slot) {
		return pub, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conf, err := d.config(ctx)
	if err != nil {
		return pub, err
	}
	if !conf.IsECCPrivateKey(slot) {
		return pub, fmt.Errorf("%w: slot %d is not a private key", ErrInvalidSlot, slot)
	}
	if !conf.CanGenerateKey(slot) {
		return pub, fmt.Errorf("%w: slot %d does not allow key generation", ErrZoneLocked, slot)
	}

	err = d.genKeyBase(ctx, genKeyModePrivate, slot, pub[:])
	return pub, err
}

// GenerateKeyECDSA is GenerateKey returning the public key as an
// *ecdsa.PublicKey.
func (d *Dev) GenerateKeyECDSA(ctx context.Context, slot int) (*ecdsa.PublicKey, error) {
	pub, err := d.GenerateKey(ctx, slot)
	if err != nil {
		return nil, err
	}
	return atecccert.ECDSAPublicKey(pub)
}

// PublicKey returns the public key in the specific slot.
func (d *Dev) PublicKey(ctx context.Context, slot int) (crypto.PublicKey, error) {
	if !validSlot(slot) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conf, err := d.config(ctx)
	if err != nil {
		return nil, err
	}
	if !conf.IsECCPrivateKey(slot) {
		return nil, fmt.Errorf("%w: slot %d is not a private key", ErrInvalidSlot, slot)
	}

	var pub [64]byte
	if err := d.genKeyBase(ctx, genKeyModePublic, slot, pub[:]); err != nil {
		return nil, err
	}
	return atecccert.ECDSAPublicKey(pub)
}

func (d *Dev) genKeyBase(ctx context.Context, mode uint8, slot int, pub []byte) error {
	p, err := newGenKeyCommand(mode, uint16(slot), nil)
	if err != nil {
		return err
	}
	n, err := d.execute(ctx, p, pub)
	if err != nil {
		return err
	} else if n != 64 {
		return fmt.Errorf("atecc: unexpected public key size: %d", n)
	}
	return nil
}

// ECDH computes the shared secret between the private key in slot and pub,
// X followed by Y. The secret is returned in the clear.
func (d *Dev) ECDH(ctx context.Context, slot int, pub [64]byte) ([32]byte, error) {
	var secret [32]byte
	if !validSlot(slot) {
		return secret, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	if _, err := atecccert.ECDSAPublicKey(pub); err != nil {
		return secret, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conf, err := d.config(ctx)
	if err != nil {
		return secret, err
	}
	if !conf.CanECDH(slot) {
		return secret, fmt.Errorf("%w: slot %d can not be used for ecdh", ErrInvalidSlot, slot)
	}

	p, err := newECDHCommand(uint16(slot), pub[:])
	if err != nil {
		return secret, err
	}
	n, err := d.execute(ctx, p, secret[:])
	if err != nil {
		return secret, err
	} else if n != len(secret) {
		return secret, fmt.Errorf("atecc: unexpected shared secret size: %d", n)
	}
	return secret, nil
}
