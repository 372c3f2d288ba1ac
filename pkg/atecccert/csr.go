package atecccert

import (
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// CSRTemplate describes a PKCS #10 certificate signing request.
type CSRTemplate struct {
	Subject   Name
	PublicKey [64]byte
}

// TBS returns the DER encoded CertificationRequestInfo.
func (t *CSRTemplate) TBS() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(0)
		t.Subject.marshal(b)
		addPublicKeyInfo(b, t.PublicKey)
		// no attributes
		b.AddASN1(asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {})
	})
	return b.Bytes()
}

// MarshalCSR assembles a signing request from its TBS and the raw signature
// over SHA-256(tbs).
func MarshalCSR(tbs []byte, sig [64]byte) ([]byte, error) {
	return signed(tbs, sig)
}

// CreateCSR builds and signs a signing request.
func CreateCSR(t *CSRTemplate, sign SignFunc) ([]byte, error) {
	tbs, err := t.TBS()
	if err != nil {
		return nil, err
	}
	return signTBS(tbs, sign)
}

// CSR is a parsed certificate signing request.
type CSR struct {
	Raw       []byte
	RawTBS    []byte
	Subject   Name
	PublicKey [64]byte
	Signature [64]byte
}

// ParseCSR parses a DER encoded signing request.
func ParseCSR(der []byte) (*CSR, error) {
	body, rawTBS, sig, err := readSigned(der, "csr")
	if err != nil {
		return nil, err
	}

	var version int64
	if !body.ReadASN1Integer(&version) || version != 0 {
		return nil, malformed("csr version")
	}
	subject, err := readName(&body)
	if err != nil {
		return nil, err
	}
	pub, err := readPublicKeyInfo(&body)
	if err != nil {
		return nil, err
	}
	// attributes are ignored
	if !body.SkipOptionalASN1(asn1.Tag(0).ContextSpecific().Constructed()) || !body.Empty() {
		return nil, malformed("csr attributes")
	}

	return &CSR{
		Raw:       der,
		RawTBS:    rawTBS,
		Subject:   subject,
		PublicKey: pub,
		Signature: sig,
	}, nil
}

// CheckSignature verifies that the request is signed by its own key.
func (c *CSR) CheckSignature() error {
	return verify(c.PublicKey, c.RawTBS, c.Signature)
}
