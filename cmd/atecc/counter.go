package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"
)

type counterConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
	id         int
	inc        bool
}

func (c *counterConfig) Exec(ctx context.Context, _ []string) error {
	if c.rootConfig.verbose {
		fmt.Fprintln(c.err, "counter")
	}

	d, bus, err := newATECC(ctx, c.rootConfig)
	if err != nil {
		return err
	}
	defer bus.Close()
	defer d.Sleep()

	var v uint32
	if c.inc {
		v, err = d.CounterIncrement(ctx, c.id)
	} else {
		v, err = d.CounterRead(ctx, c.id)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, v)
	return nil
}

func newCounterCmd(rootConfig *rootConfig, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := counterConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("atecc counter", flag.ExitOnError)
	fs.IntVar(&cfg.id, "id", 0, "counter id (0 or 1)")
	fs.BoolVar(&cfg.inc, "inc", false, "increment the counter before printing it")
	rootConfig.registerFlags(fs)

	return &ffcli.Command{
		Name:       "counter",
		ShortUsage: "counter [-id n] [-inc]",
		ShortHelp:  "Reads or increments a monotonic counter.",
		FlagSet:    fs,
		Exec:       cfg.Exec,
	}
}
