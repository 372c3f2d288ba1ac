package main

import (
	"context"
	"encoding/pem"
	"flag"
	"fmt"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/northvolt/go-secureelement/pkg/atecc"
	"github.com/northvolt/go-secureelement/pkg/atecccert"
)

type csrConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
	key        int
	subject    nameFlags
}

func (c *csrConfig) Exec(ctx context.Context, _ []string) error {
	if c.rootConfig.verbose {
		fmt.Fprintln(c.err, "csr")
	}

	d, bus, err := newATECC(ctx, c.rootConfig)
	if err != nil {
		return err
	}
	defer bus.Close()
	defer d.Sleep()

	pub, sn, err := deviceIdentity(ctx, d, c.key)
	if err != nil {
		return err
	}

	der, err := atecccert.CreateCSR(&atecccert.CSRTemplate{
		Subject:   c.subject.name(sn),
		PublicKey: pub,
	}, deviceSigner(ctx, d, c.key))
	if err != nil {
		return err
	}

	return pem.Encode(c.out, &pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})
}

// deviceIdentity reads the public key of slot and the device serial number.
func deviceIdentity(ctx context.Context, d *atecc.Dev, slot int) ([64]byte, []byte, error) {
	var raw [64]byte
	pk, err := d.PublicKey(ctx, slot)
	if err != nil {
		return raw, nil, err
	}
	if raw, err = atecccert.RawPublicKey(pk); err != nil {
		return raw, nil, err
	}
	sn, err := d.SerialNumber(ctx)
	if err != nil {
		return raw, nil, err
	}
	return raw, sn, nil
}

func newCSRCmd(rootConfig *rootConfig, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := csrConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("atecc csr", flag.ExitOnError)
	fs.IntVar(&cfg.key, "key", 0, "key id (slot number)")
	cfg.subject.registerFlags(fs, "")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "csr",
		ShortUsage: "csr [-cn name] [-o org]",
		ShortHelp:  "Creates a certificate signing request signed by the device key.",
		FlagSet:    fs,
		Exec:       cfg.Exec,
	})
}
