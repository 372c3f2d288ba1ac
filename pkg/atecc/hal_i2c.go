package atecc

import (
	"context"
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	// wakeSpeed makes a single zero byte hold SDA low for longer than tWLO.
	wakeSpeed = 100 * physic.KiloHertz

	// tWLO is the minimum wake low duration.
	tWLO = 60 * time.Microsecond
)

// NewI2CDev returns a device communicating over I²C.
func NewI2CDev(ctx context.Context, cfg IfaceConfig) (*Dev, error) {
	if cfg.I2C.Bus == nil {
		return nil, errors.New("atecc: no i2c bus configured")
	}
	return New(ctx, newHALI2C(cfg.I2C), cfg)
}

type halI2C struct {
	dev i2c.Dev
	cfg I2CConfig
}

func newHALI2C(cfg I2CConfig) *halI2C {
	return &halI2C{
		dev: i2c.Dev{Bus: cfg.Bus, Addr: cfg.Address},
		cfg: cfg,
	}
}

// Read reads the count byte followed by the rest of the frame.
func (h *halI2C) Read(p []byte) (int, error) {
	if len(p) < 1 {
		return 0, errRecvBuffer
	}

	var count [1]byte
	if err := h.dev.Tx(nil, count[:]); err != nil {
		return 0, err
	}
	p[0] = count[0]

	n := int(count[0])
	if count[0] == 0xff || n < atcaRspSizeMin {
		return 1, nil
	}
	if n > len(p) {
		return 0, errRecvBuffer
	}
	if err := h.dev.Tx(nil, p[1:n]); err != nil {
		return 1, err
	}
	return n, nil
}

func (h *halI2C) Write(p []byte) (int, error) {
	if err := h.dev.Tx(p, nil); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (h *halI2C) Idle() error {
	return h.dev.Tx([]byte{wordAddressIdle}, nil)
}

func (h *halI2C) Sleep() error {
	return h.dev.Tx([]byte{wordAddressSleep}, nil)
}

// Wake holds SDA low for at least tWLO.
//
// Without a wake pin, a zero byte is sent to address 0x00 at 100kHz. The
// device does not acknowledge it.
func (h *halI2C) Wake() error {
	if pin := h.cfg.WakePin; pin != nil {
		if err := pin.Out(gpio.Low); err != nil {
			return err
		}
		time.Sleep(tWLO)
		return pin.Out(gpio.High)
	}

	// not every bus can change speed, a bus at 100kHz works anyway
	_ = h.cfg.Bus.SetSpeed(wakeSpeed)
	_ = h.cfg.Bus.Tx(0x00, []byte{0x00}, nil)
	if h.cfg.Speed != 0 {
		_ = h.cfg.Bus.SetSpeed(h.cfg.Speed)
	}
	return nil
}
