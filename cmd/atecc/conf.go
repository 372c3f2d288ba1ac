package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/northvolt/go-secureelement/pkg/atecc"
	"github.com/northvolt/go-secureelement/pkg/ateccconf"
)

// Configuration sources.
const (
	inputDefault = "default"
	inputHex     = "hex"
	inputJSON    = "json"
	inputDevice  = "device"
)

// Configuration sinks.
const (
	outputGo     = "go"
	outputHex    = "hex"
	outputJSON   = "json"
	outputDevice = "device"
)

var (
	allInputs  = []string{inputDefault, inputHex, inputJSON, inputDevice}
	allOutputs = []string{outputGo, outputHex, outputJSON, outputDevice}
)

const lockWarning = `
WARNING! This operation is irreversible! Once you lock the configuration to the
device, you will not be able to change it.

To continue with this operation, re-run with -dry=false.`

type confConfig struct {
	rootConfig *rootConfig
	in         io.Reader
	out        io.Writer
	err        io.Writer
	input      string
	output     string
	dry        bool
	genKeys    bool
	newAddr    string
}

func (c *confConfig) Exec(ctx context.Context, _ []string) error {
	if c.rootConfig.verbose {
		fmt.Fprintln(c.err, "config")
	}

	// The device is only opened when it takes part, which allows converting
	// configurations between formats without hardware.
	var d *atecc.Dev
	if c.input == inputDevice || c.output == outputDevice || c.genKeys {
		dev, bus, err := newATECC(ctx, c.rootConfig)
		if err != nil {
			return err
		}
		defer bus.Close()
		defer dev.Sleep()
		d = dev
	}

	conf, err := loadConfig(ctx, c.input, c.in, d)
	if err != nil {
		return err
	}

	if c.newAddr != "" {
		addr, err := getI2CAddress(c.newAddr, c.rootConfig.trustPlatformFormat)
		if err != nil {
			return err
		}
		conf.I2CAddress = byte(addr << 1)
	}

	if c.output == outputDevice {
		if err := provision(ctx, c.out, d, conf, c.dry); err != nil {
			return err
		}
	} else if err := renderConfig(c.out, c.output, conf); err != nil {
		return err
	}

	if !c.genKeys {
		return nil
	}
	locked, err := d.IsDataZoneLocked(ctx)
	if err != nil {
		return err
	}
	if !locked {
		fmt.Fprintln(c.out, "Data zone is unlocked, keys are generated when it is activated")
		return nil
	}
	fmt.Fprintln(c.out, "Generating New Keys")
	return keyGen(ctx, c.out, c.dry, d)
}

// loadConfig reads the configuration to provision from one of the sources.
func loadConfig(ctx context.Context, input string, r io.Reader, d *atecc.Dev) (*ateccconf.Config608, error) {
	var conf ateccconf.Config608
	switch input {
	case inputDefault:
		return ateccconf.DefaultConfig608(), nil
	case inputHex:
		in, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		b, err := hex.DecodeString(strings.Join(strings.Fields(string(in)), ""))
		if err != nil {
			return nil, err
		}
		if err := ateccconf.UnmarshalPartial(b, ateccconf.PermanentOffset608, &conf); err != nil {
			return nil, err
		}
		return &conf, nil
	case inputJSON:
		if err := json.NewDecoder(r).Decode(&conf); err != nil {
			return nil, err
		}
		return &conf, nil
	case inputDevice:
		current, err := d.Config(ctx)
		if err != nil {
			return nil, err
		}
		conf = *current
		return &conf, nil
	default:
		return nil, fmt.Errorf("atecc: valid config inputs are %s", strings.Join(allInputs, ", "))
	}
}

// renderConfig writes the writable part of conf in one of the text formats.
func renderConfig(w io.Writer, output string, conf *ateccconf.Config608) error {
	if output == outputJSON {
		return writeJSON(w, conf)
	}

	b, err := ateccconf.Marshal(conf)
	if err != nil {
		return err
	}
	writable := b[ateccconf.PermanentOffset608:]

	switch output {
	case outputHex:
		fmt.Fprintln(w, prettyHexIndent(writable, "", " "))
	case outputGo:
		fmt.Fprintln(w, goByteArray(writable))
	default:
		return fmt.Errorf("atecc: valid config outputs are %s", strings.Join(allOutputs, ", "))
	}
	return nil
}

func goByteArray(b []byte) string {
	var src strings.Builder
	src.WriteString("[...]byte{")
	for i, v := range b {
		if i%8 == 0 {
			src.WriteString("\n ")
		}
		fmt.Fprintf(&src, " 0x%02x,", v)
	}
	src.WriteString("\n}")
	return src.String()
}

// provision writes conf to the device, locks the configuration zone against
// the content read back and activates the data zone.
func provision(ctx context.Context, w io.Writer, d *atecc.Dev, conf *ateccconf.Config608, dry bool) error {
	current, err := d.Config(ctx)
	if err != nil {
		return err
	}
	want, err := ateccconf.Marshal(conf)
	if err != nil {
		return err
	}

	sn := current.SerialNumber()
	fmt.Fprintf(w, "Serial number:\n%s\n", prettyHex(sn[:]))
	fmt.Fprintf(w, "I2C address: %#02x -> %#02x\n", current.I2CAddress, conf.I2CAddress)

	if dry {
		fmt.Fprintf(w, "Configuration:\n%s\n", prettyHex(want[ateccconf.PermanentOffset608:]))
		fmt.Fprintln(w, lockWarning)
		return nil
	}

	fmt.Fprintln(w, "\nWriting Configuration")
	if current.LockConfig.IsLocked() {
		fmt.Fprintln(w, "    Locked, skipping")
	} else if err := writeAndLockConfig(ctx, d, want); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nActivating Configuration")
	locked, err := d.IsDataZoneLocked(ctx)
	if err != nil {
		return err
	}
	if locked {
		fmt.Fprintln(w, "    Already active")
		return nil
	}
	if err := keyGen(ctx, w, false, d); err != nil {
		return err
	}
	return d.LockDataZone(ctx)
}

func writeAndLockConfig(ctx context.Context, d *atecc.Dev, want []byte) error {
	if err := d.WriteConfigZone(ctx, want); err != nil {
		return err
	}

	got, err := d.ReadConfigZone(ctx)
	if err != nil {
		return err
	}
	// the permanent header is factory programmed and differs per device
	if !bytes.Equal(got[ateccconf.PermanentOffset608:ateccconf.LockOffset], want[ateccconf.PermanentOffset608:ateccconf.LockOffset]) {
		return fmt.Errorf("atecc: configuration read from device does not match")
	}

	// the device refuses to lock if its content changed after the read
	return d.LockConfigZoneCRC(ctx, got)
}

// keyGen generates a new private key in every slot that allows it.
func keyGen(ctx context.Context, w io.Writer, dry bool, d *atecc.Dev) error {
	conf, err := d.Config(ctx)
	if err != nil {
		return err
	}

	for slot := 0; slot < ateccconf.NumSlots; slot++ {
		if !conf.IsECCPrivateKey(slot) {
			continue
		}
		reason := keyGenSkipReason(conf, slot)
		if reason == "" && dry {
			reason = "Re-run with -dry=false to generate new key"
		}
		if reason != "" {
			fmt.Fprintf(w, "    Skipping key pair generation in slot %d: %s\n", slot, reason)
			continue
		}

		fmt.Fprintln(w, "    Generating key pair in slot", slot)
		pub, err := d.GenerateKeyECDSA(ctx, slot)
		if err != nil {
			return err
		}
		p, err := pemEncodePublicKey(pub)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, p)
	}
	return nil
}

// keyGenSkipReason explains why GenKey may not create a key in a private key
// slot, or returns "" if it may.
func keyGenSkipReason(conf *ateccconf.Config608, slot int) string {
	if conf.CanGenerateKey(slot) {
		return ""
	}
	kc := conf.KeyConfig[slot]
	switch {
	case !conf.IsECCPrivateKey(slot):
		return "Not a private key slot"
	case !conf.SlotConfig[slot].WriteConfig().GenKeyEnabled():
		return "GenKey is disabled"
	case conf.SlotLocked.IsLocked(slot):
		return "Slot has been locked"
	case kc.RequireAuth():
		return "Slot requires authorization"
	default:
		return "Slot requires persistent latch"
	}
}

func newConfCmd(
	rootConfig *rootConfig, in io.Reader, out io.Writer, err io.Writer,
) *ffcli.Command {
	cfg := confConfig{
		rootConfig: rootConfig,
		in:         in,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("atecc config", flag.ExitOnError)
	fs.StringVar(&cfg.input, "input", inputDefault, "Use this input for creating the provisioning configuration of the device: default (built-in), hex (stdin), json (stdin), device (read from device)")
	fs.StringVar(&cfg.output, "output", outputHex, "Use this output for the provisioning configuration: go, hex, json, device (write to device)")
	fs.BoolVar(&cfg.dry, "dry", true, "When disabled, data will be committed to device (this is irreversible!)")
	fs.StringVar(&cfg.newAddr, "new-addr", "", "Change I2C address to this")
	fs.BoolVar(&cfg.genKeys, "gen", false, "Generate new keys")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "config",
		ShortUsage: "config",
		ShortHelp:  "Writes a general purpose configuration to test the hardware.",
		FlagSet:    fs,
		Exec:       cfg.Exec,
	})
}
