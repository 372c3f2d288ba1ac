package main

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"flag"
	"fmt"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/northvolt/go-secureelement/pkg/atecc"
)

const (
	onDevice = "device"
	onHost   = "host"
)

type signConfig struct {
	rootConfig *rootConfig
	in         io.Reader
	out        io.Writer
	err        io.Writer
	key        int
	signer     string
	verifier   string
}

func (c *signConfig) Exec(ctx context.Context, _ []string) error {
	if c.rootConfig.verbose {
		fmt.Fprintln(c.err, "sign")
	}
	for _, v := range []string{c.signer, c.verifier} {
		if v != onDevice && v != onHost {
			return fmt.Errorf("atecc: %q is neither %s nor %s", v, onDevice, onHost)
		}
	}

	d, bus, err := newATECC(ctx, c.rootConfig)
	if err != nil {
		return err
	}
	defer bus.Close()
	defer d.Sleep()

	if locked, err := d.IsDataZoneLocked(ctx); err != nil {
		return err
	} else if !locked {
		return fmt.Errorf("atecc: device need to be locked before using it")
	}

	signer, err := c.newSigner(ctx, d)
	if err != nil {
		return err
	}
	pem, err := pemEncodePublicKey(signer.Public())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signing Public Key (%s):\n%s\n", c.signer, pem)

	h := sha256.New()
	if _, err := io.Copy(h, c.in); err != nil {
		return err
	}
	digest := h.Sum(nil)
	fmt.Fprintf(c.out, "\nMessage Digest:\n%s\n", prettyHex(digest))

	signature, err := signer.Sign(rand.Reader, digest, crypto.SHA256)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "\nSignature:\n%s\n", prettyHex(signature))

	var verified bool
	switch c.verifier {
	case onDevice:
		verified, err = d.VerifyExtern(ctx, digest, signature, signer.Public())
	case onHost:
		verified = ecdsa.VerifyASN1(signer.Public().(*ecdsa.PublicKey), digest, signature)
	}
	if err != nil {
		return err
	}

	result := "invalid"
	if verified {
		result = "valid"
	}
	fmt.Fprintf(c.out, "\nVerifying the signature (%s):\n    Signature is %s\n", c.verifier, result)
	return nil
}

// newSigner returns the device key in the configured slot or an ephemeral
// host key.
func (c *signConfig) newSigner(ctx context.Context, d *atecc.Dev) (crypto.Signer, error) {
	if c.signer == onDevice {
		return d.PrivateKey(ctx, c.key)
	}
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

func newSignCmd(
	rootConfig *rootConfig, in io.Reader, out io.Writer, err io.Writer,
) *ffcli.Command {
	cfg := signConfig{
		rootConfig: rootConfig,
		in:         in,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("atecc sign", flag.ExitOnError)
	fs.IntVar(&cfg.key, "key", 0, "key id (slot number)")
	fs.StringVar(&cfg.signer, "signer", onDevice, "generate signature on device or host")
	fs.StringVar(&cfg.verifier, "verifier", onHost, "verify signature on device or host")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "sign",
		ShortUsage: "sign",
		ShortHelp:  "Signs stdin and verifies the signature using the hardware.",
		FlagSet:    fs,
		Exec:       cfg.Exec,
	})
}
