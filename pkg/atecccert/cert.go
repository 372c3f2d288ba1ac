package atecccert

import (
	"math/big"
	"time"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// CertificateTemplate describes a version 3 certificate without
// extensions, signed with ecdsa-with-SHA256.
type CertificateTemplate struct {
	SerialNumber *big.Int
	Issuer       Name
	Subject      Name
	NotBefore    time.Time
	NotAfter     time.Time
	PublicKey    [64]byte
}

// TBS returns the DER encoded TBSCertificate.
func (t *CertificateTemplate) TBS() ([]byte, error) {
	if t.SerialNumber == nil || t.SerialNumber.Sign() <= 0 {
		return nil, malformed("serial number")
	}

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
			b.AddASN1Int64(2)
		})
		b.AddASN1BigInt(t.SerialNumber)
		addSignatureAlgorithm(b)
		t.Issuer.marshal(b)
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			addTime(b, t.NotBefore)
			addTime(b, t.NotAfter)
		})
		t.Subject.marshal(b)
		addPublicKeyInfo(b, t.PublicKey)
	})
	return b.Bytes()
}

// MarshalCertificate assembles a certificate from its TBS and the raw
// signature over SHA-256(tbs).
func MarshalCertificate(tbs []byte, sig [64]byte) ([]byte, error) {
	return signed(tbs, sig)
}

// CreateCertificate builds and signs a certificate.
func CreateCertificate(t *CertificateTemplate, sign SignFunc) ([]byte, error) {
	tbs, err := t.TBS()
	if err != nil {
		return nil, err
	}
	return signTBS(tbs, sign)
}

// Certificate is a parsed certificate. Extensions are not parsed.
type Certificate struct {
	Raw          []byte
	RawTBS       []byte
	Version      int
	SerialNumber *big.Int
	Issuer       Name
	Subject      Name
	NotBefore    time.Time
	NotAfter     time.Time
	PublicKey    [64]byte
	Signature    [64]byte
}

// ParseCertificate parses a DER encoded certificate with a P256 key signed
// with ecdsa-with-SHA256.
func ParseCertificate(der []byte) (*Certificate, error) {
	body, rawTBS, sig, err := readSigned(der, "certificate")
	if err != nil {
		return nil, err
	}

	c := &Certificate{
		Raw:          der,
		RawTBS:       rawTBS,
		Version:      1,
		SerialNumber: new(big.Int),
		Signature:    sig,
	}

	var (
		version    cryptobyte.String
		hasVersion bool
	)
	versionTag := asn1.Tag(0).ContextSpecific().Constructed()
	if !body.ReadOptionalASN1(&version, &hasVersion, versionTag) {
		return nil, malformed("certificate version")
	}
	if hasVersion {
		var v int64
		if !version.ReadASN1Integer(&v) || v < 0 || v > 2 {
			return nil, malformed("certificate version")
		}
		c.Version = int(v) + 1
	}

	if !body.ReadASN1Integer(c.SerialNumber) {
		return nil, malformed("serial number")
	}
	if err := readSignatureAlgorithm(&body); err != nil {
		return nil, err
	}
	if c.Issuer, err = readName(&body); err != nil {
		return nil, err
	}

	var validity cryptobyte.String
	if !body.ReadASN1(&validity, asn1.SEQUENCE) {
		return nil, malformed("validity")
	}
	if c.NotBefore, err = readTime(&validity); err != nil {
		return nil, err
	}
	if c.NotAfter, err = readTime(&validity); err != nil {
		return nil, err
	}

	if c.Subject, err = readName(&body); err != nil {
		return nil, err
	}
	if c.PublicKey, err = readPublicKeyInfo(&body); err != nil {
		return nil, err
	}
	// unique identifiers and extensions are skipped
	return c, nil
}

// CheckSignatureFrom verifies the certificate signature using the issuer's
// raw public key.
func (c *Certificate) CheckSignatureFrom(issuer [64]byte) error {
	return verify(issuer, c.RawTBS, c.Signature)
}
