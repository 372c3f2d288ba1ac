package atecc

import (
	"context"
	"crypto"
	"fmt"
	"io"
)

type randReader struct {
	ctx context.Context
	d   *Dev
}

// Read fills b with random data, 32 bytes per command.
func (r *randReader) Read(b []byte) (int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	n := 0
	for n < len(b) {
		buf, err := r.d.random(r.ctx, randomModeNoUpdateSeed)
		if err != nil {
			return n, err
		}
		n += copy(b[n:], buf[:])
	}
	return n, nil
}

// PrivateKey returns a crypto.Signer using the private key in slot.
func (d *Dev) PrivateKey(ctx context.Context, slot int) (crypto.Signer, error) {
	pub, err := d.PublicKey(ctx, slot)
	if err != nil {
		return nil, err
	}
	return &privateKey{ctx, pub, d, slot}, nil
}

// privateKey wraps an atecc device and key slot for private cryptography.
//
// privateKey implements crypto.Signer and crypto.PrivateKey.
type privateKey struct {
	ctx  context.Context
	p    crypto.PublicKey
	d    *Dev
	slot int
}

var _ crypto.Signer = &privateKey{}

// Public returns the public key corresponding to the opaque, private key.
//
// This implements crypto.Signer.
func (priv *privateKey) Public() crypto.PublicKey {
	return priv.p
}

// Sign signs digest with the private key. The signature is ASN.1 encoded.
//
// This implements crypto.Signer. The device generates its own nonce, rand is
// not used.
func (priv *privateKey) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	if opts != nil && opts.HashFunc() != crypto.SHA256 {
		return nil, fmt.Errorf("%w: unsupported hash %v", ErrInvalidParameter, opts.HashFunc())
	}
	return priv.d.Sign(priv.ctx, priv.slot, digest)
}
