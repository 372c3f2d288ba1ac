package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/northvolt/go-secureelement/pkg/ateccconf"
)

func TestLoadConfigHex(t *testing.T) {
	in := strings.NewReader(prettyHex(ateccconf.Default608))
	conf, err := loadConfig(context.Background(), inputHex, in, nil)
	if err != nil {
		t.Fatal(err)
	}
	if *conf != *ateccconf.DefaultConfig608() {
		t.Errorf("hex input does not match the default configuration")
	}

	if _, err := loadConfig(context.Background(), inputHex, strings.NewReader("zz"), nil); err == nil {
		t.Error("expected error for invalid hex")
	}
	if _, err := loadConfig(context.Background(), "yaml", nil, nil); err == nil {
		t.Error("expected error for unknown input")
	}
}

func TestRenderConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := renderConfig(&buf, outputHex, ateccconf.DefaultConfig608()); err != nil {
		t.Fatal(err)
	}
	want := prettyHexIndent(ateccconf.Default608, "", " ") + "\n"
	if buf.String() != want {
		t.Errorf("want %q, got %q", want, buf.String())
	}

	buf.Reset()
	if err := renderConfig(&buf, outputGo, ateccconf.DefaultConfig608()); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "[...]byte{\n  0x6a,") {
		t.Errorf("unexpected go output %q", buf.String())
	}

	if err := renderConfig(&buf, "yaml", ateccconf.DefaultConfig608()); err == nil {
		t.Error("expected error for unknown output")
	}
}

func TestGoByteArray(t *testing.T) {
	got := goByteArray([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8})
	want := "[...]byte{\n" +
		"  0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,\n" +
		"  0x08,\n}"
	if got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestKeyGenSkipReason(t *testing.T) {
	conf := ateccconf.DefaultConfig608()
	for _, slot := range []int{0, 1, 2} {
		if reason := keyGenSkipReason(conf, slot); reason != "" {
			t.Errorf("slot %d: unlocked data zone should allow GenKey, got %q", slot, reason)
		}
	}

	conf.LockValue = ateccconf.LockStateLocked
	testCases := []struct {
		slot int
		want string
	}{
		{0, "GenKey is disabled"},
		{2, ""},
		{8, "Not a private key slot"},
	}
	for _, tc := range testCases {
		if got := keyGenSkipReason(conf, tc.slot); got != tc.want {
			t.Errorf("slot %d: want %q, got %q", tc.slot, tc.want, got)
		}
	}

	conf.SlotLocked = conf.SlotLocked.Lock(2)
	if got := keyGenSkipReason(conf, 2); got != "Slot has been locked" {
		t.Errorf("slot 2: got %q", got)
	}
}
