package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"
)

type randConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
	bytes      int64
	timeout    time.Duration
	dump       bool
}

func (c *randConfig) Exec(ctx context.Context, _ []string) error {
	if c.rootConfig.verbose {
		fmt.Fprintln(c.err, "random")
	}

	d, bus, err := newATECC(ctx, c.rootConfig)
	if err != nil {
		return err
	}
	defer bus.Close()
	defer d.Sleep()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	w := c.out
	if c.dump {
		dumper := hex.Dumper(c.out)
		defer dumper.Close()
		w = dumper
	}

	var written int64
	r := d.RandomReader(ctx)
	if c.bytes > 0 {
		written, err = io.CopyN(w, r, c.bytes)
	} else {
		written, err = io.Copy(w, r)
	}
	// -timeout bounds the read and is not a failure
	if err != nil && !(c.timeout > 0 && errors.Is(err, context.DeadlineExceeded)) {
		return err
	}
	if c.rootConfig.verbose {
		fmt.Fprintln(c.err, "wrote", written)
	}

	return nil
}

func newRandCmd(rootConfig *rootConfig, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := randConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("atecc random", flag.ExitOnError)
	fs.Int64Var(&cfg.bytes, "bytes", 0, "maximum bytes to read")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "maximum time to read eg 1s, 500ms")
	fs.BoolVar(&cfg.dump, "x", false, "write a hex dump instead of raw bytes")
	rootConfig.registerFlags(fs)

	return &ffcli.Command{
		Name:       "random",
		ShortUsage: "random",
		ShortHelp:  "Reads random bytes from device and outputs on stdout.",
		FlagSet:    fs,
		Exec:       cfg.Exec,
	}
}
