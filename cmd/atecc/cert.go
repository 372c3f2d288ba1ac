package main

import (
	"context"
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/northvolt/go-secureelement/pkg/atecccert"
)

type certConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
	key        int
	serial     string
	days       int
	subject    nameFlags
}

func (c *certConfig) Exec(ctx context.Context, _ []string) error {
	if c.rootConfig.verbose {
		fmt.Fprintln(c.err, "cert")
	}
	if c.days <= 0 {
		return fmt.Errorf("atecc: validity must be at least one day")
	}

	serial, err := parseSerial(c.serial)
	if err != nil {
		return err
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

	name := c.subject.name(sn)
	notBefore := time.Now().UTC().Truncate(time.Second)
	der, err := atecccert.CreateCertificate(&atecccert.CertificateTemplate{
		SerialNumber: serial,
		Issuer:       name,
		Subject:      name,
		NotBefore:    notBefore,
		NotAfter:     notBefore.AddDate(0, 0, c.days),
		PublicKey:    pub,
	}, deviceSigner(ctx, d, c.key))
	if err != nil {
		return err
	}

	return pem.Encode(c.out, &pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func newCertCmd(rootConfig *rootConfig, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := certConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("atecc cert", flag.ExitOnError)
	fs.IntVar(&cfg.key, "key", 0, "key id (slot number)")
	fs.StringVar(&cfg.serial, "serial", "01", "certificate serial number in hex")
	fs.IntVar(&cfg.days, "days", 365, "validity in days")
	cfg.subject.registerFlags(fs, "")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "cert",
		ShortUsage: "cert [-serial hex] [-days n] [-cn name]",
		ShortHelp:  "Creates a self-signed certificate for a device key.",
		FlagSet:    fs,
		Exec:       cfg.Exec,
	})
}
