package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/schollz/progressbar/v3"
)

type shaConfig struct {
	rootConfig *rootConfig
	in         io.Reader
	out        io.Writer
	err        io.Writer
	progress   bool
}

func (c *shaConfig) Exec(ctx context.Context, args []string) error {
	if c.rootConfig.verbose {
		fmt.Fprintln(c.err, "sha")
	}

	var (
		r    = c.in
		size int64 = -1
	)
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		if fi, err := f.Stat(); err == nil {
			size = fi.Size()
		}
		r = f
	}

	d, bus, err := newATECC(ctx, c.rootConfig)
	if err != nil {
		return err
	}
	defer bus.Close()
	defer d.Sleep()

	s, err := d.StartSHA256(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	host := sha256.New()
	w := io.MultiWriter(s, host)
	if c.progress {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(c.err),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetDescription("sha256"),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(c.err) }),
		)
		w = io.MultiWriter(s, host, bar)
	}

	if _, err := io.Copy(w, r); err != nil {
		return err
	}

	digest, err := s.Sum(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, prettyHex(digest[:]))
	if !bytes.Equal(digest[:], host.Sum(nil)) {
		return fmt.Errorf("atecc: device digest does not match host digest")
	}
	return nil
}

func newSHACmd(
	rootConfig *rootConfig, in io.Reader, out io.Writer, err io.Writer,
) *ffcli.Command {
	cfg := shaConfig{
		rootConfig: rootConfig,
		in:         in,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("atecc sha", flag.ExitOnError)
	fs.BoolVar(&cfg.progress, "progress", true, "show progress on stderr")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "sha",
		ShortUsage: "sha [file]",
		ShortHelp:  "Computes the SHA-256 digest of a file or stdin on the device.",
		FlagSet:    fs,
		Exec:       cfg.Exec,
	})
}
