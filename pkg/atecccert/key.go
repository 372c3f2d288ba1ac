// Package atecccert builds and parses the DER structures used with a secure
// element: public keys, ECDSA signatures, certificate signing requests and
// certificates.
//
// Keys and signatures are exchanged with the device in raw form. A public
// key is X followed by Y and a signature is R followed by S, each 32 bytes
// big endian. The to-be-signed part of a certificate or request is built
// here, hashed and signed by the device, and the result is assembled into
// the final DER.
package atecccert

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	encoding_asn1 "encoding/asn1"
	"errors"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	oidPublicKeyECDSA           = encoding_asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidNamedCurveP256           = encoding_asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}
	oidSignatureECDSAWithSHA256 = encoding_asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
)

// ECDSAPublicKey converts a raw public key to a P256 key. The point must be on
// the curve.
func ECDSAPublicKey(raw [64]byte) (*ecdsa.PublicKey, error) {
	point := append([]byte{0x04}, raw[:]...)
	if _, err := ecdh.P256().NewPublicKey(point); err != nil {
		return nil, malformed("public key point")
	}

	var x, y big.Int
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     x.SetBytes(raw[:32]),
		Y:     y.SetBytes(raw[32:]),
	}, nil
}

// RawPublicKey converts a P256 *ecdsa.PublicKey to its raw form.
func RawPublicKey(pub crypto.PublicKey) ([64]byte, error) {
	var raw [64]byte
	k, ok := pub.(*ecdsa.PublicKey)
	if !ok || k.Curve != elliptic.P256() {
		return raw, errors.New("atecccert: unsupported public key")
	}
	k.X.FillBytes(raw[:32])
	k.Y.FillBytes(raw[32:])
	return raw, nil
}

// MarshalPublicKey returns the SubjectPublicKeyInfo of a raw P256 public key.
func MarshalPublicKey(raw [64]byte) ([]byte, error) {
	var b cryptobyte.Builder
	addPublicKeyInfo(&b, raw)
	return b.Bytes()
}

// ParsePublicKey parses a SubjectPublicKeyInfo holding an uncompressed P256
// public key.
func ParsePublicKey(der []byte) ([64]byte, error) {
	input := cryptobyte.String(der)
	raw, err := readPublicKeyInfo(&input)
	if err != nil {
		return raw, err
	}
	if !input.Empty() {
		return raw, malformed("public key trailing data")
	}
	return raw, nil
}

func addPublicKeyInfo(b *cryptobyte.Builder, raw [64]byte) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidPublicKeyECDSA)
			b.AddASN1ObjectIdentifier(oidNamedCurveP256)
		})
		point := append([]byte{0x04}, raw[:]...)
		b.AddASN1BitString(point)
	})
}

func readPublicKeyInfo(input *cryptobyte.String) ([64]byte, error) {
	var (
		raw              [64]byte
		spki, alg        cryptobyte.String
		algOID, curveOID encoding_asn1.ObjectIdentifier
		point            []byte
	)
	if !input.ReadASN1(&spki, asn1.SEQUENCE) ||
		!spki.ReadASN1(&alg, asn1.SEQUENCE) ||
		!alg.ReadASN1ObjectIdentifier(&algOID) ||
		!alg.ReadASN1ObjectIdentifier(&curveOID) ||
		!alg.Empty() ||
		!spki.ReadASN1BitStringAsBytes(&point) ||
		!spki.Empty() {
		return raw, malformed("public key info")
	}
	if !algOID.Equal(oidPublicKeyECDSA) || !curveOID.Equal(oidNamedCurveP256) {
		return raw, malformed("public key algorithm")
	}
	if len(point) != 65 || point[0] != 0x04 {
		return raw, malformed("public key point")
	}
	copy(raw[:], point[1:])
	return raw, nil
}

// MarshalSignature returns the DER encoding of a raw signature,
// SEQUENCE { r INTEGER, s INTEGER }.
func MarshalSignature(sig [64]byte) ([]byte, error) {
	var r, s big.Int
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r.SetBytes(sig[:32]))
		b.AddASN1BigInt(s.SetBytes(sig[32:]))
	})
	return b.Bytes()
}

// ParseSignature parses a DER encoded ECDSA signature into raw form.
func ParseSignature(der []byte) ([64]byte, error) {
	var (
		sig   [64]byte
		r, s  = big.Int{}, big.Int{}
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(&r) ||
		!inner.ReadASN1Integer(&s) ||
		!inner.Empty() {
		return sig, malformed("signature")
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.BitLen() > 256 || s.BitLen() > 256 {
		return sig, malformed("signature value")
	}
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}

func addSignatureAlgorithm(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oidSignatureECDSAWithSHA256)
	})
}

func readSignatureAlgorithm(input *cryptobyte.String) error {
	var (
		alg cryptobyte.String
		oid encoding_asn1.ObjectIdentifier
	)
	if !input.ReadASN1(&alg, asn1.SEQUENCE) || !alg.ReadASN1ObjectIdentifier(&oid) {
		return malformed("signature algorithm")
	}
	if !oid.Equal(oidSignatureECDSAWithSHA256) {
		return malformed("signature algorithm")
	}
	return nil
}
