package atecccert

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// SignFunc signs a SHA-256 digest and returns the raw signature. A secure
// element's ECDSASign bound to a slot is a SignFunc.
type SignFunc func(digest [32]byte) ([64]byte, error)

// signed assembles SEQUENCE { tbs, algorithm, BIT STRING signature }, the
// outer structure shared by certificates and signing requests.
func signed(tbs []byte, sig [64]byte) ([]byte, error) {
	sigDER, err := MarshalSignature(sig)
	if err != nil {
		return nil, err
	}

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(tbs)
		addSignatureAlgorithm(b)
		b.AddASN1BitString(sigDER)
	})
	return b.Bytes()
}

// signTBS hashes tbs, signs it and assembles the result.
func signTBS(tbs []byte, sign SignFunc) ([]byte, error) {
	if sign == nil {
		return nil, errors.New("atecccert: no sign function")
	}
	sig, err := sign(sha256.Sum256(tbs))
	if err != nil {
		return nil, err
	}
	return signed(tbs, sig)
}

// readSigned splits the outer structure into the raw tbs and signature.
func readSigned(der []byte, what string) (cryptobyte.String, []byte, [64]byte, error) {
	var (
		sig        [64]byte
		outer, tbs cryptobyte.String
		sigDER     []byte
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&outer, asn1.SEQUENCE) || !input.Empty() {
		return nil, nil, sig, malformed(what)
	}
	raw := outer
	if !raw.ReadASN1Element(&tbs, asn1.SEQUENCE) {
		return nil, nil, sig, malformed(what)
	}
	if err := readSignatureAlgorithm(&raw); err != nil {
		return nil, nil, sig, err
	}
	if !raw.ReadASN1BitStringAsBytes(&sigDER) || !raw.Empty() {
		return nil, nil, sig, malformed(what + " signature")
	}
	sig, err := ParseSignature(sigDER)
	if err != nil {
		return nil, nil, sig, err
	}

	rawTBS := []byte(tbs)
	var body cryptobyte.String
	if !tbs.ReadASN1(&body, asn1.SEQUENCE) {
		return nil, nil, sig, malformed(what)
	}
	return body, rawTBS, sig, nil
}

// verify checks sig over tbs with a raw public key.
func verify(pub [64]byte, tbs []byte, sig [64]byte) error {
	key, err := ECDSAPublicKey(pub)
	if err != nil {
		return err
	}
	var r, s big.Int
	digest := sha256.Sum256(tbs)
	if !ecdsa.Verify(key, digest[:], r.SetBytes(sig[:32]), s.SetBytes(sig[32:])) {
		return errors.New("atecccert: signature verification failed")
	}
	return nil
}
