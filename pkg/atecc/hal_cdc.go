package atecc

import (
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// NewCDCDev returns an object that communicates with a kit over a USB serial
// port.
//
// The returned io.Closer closes the port.
func NewCDCDev(ctx context.Context, cfg IfaceConfig) (*Dev, io.Closer, error) {
	port, err := serial.Open(cfg.CDC.Port, &serial.Mode{BaudRate: cfg.CDC.BaudRate})
	if err != nil {
		return nil, nil, fmt.Errorf("atecc: failed to open %s: %w", cfg.CDC.Port, err)
	}
	if cfg.CDC.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.CDC.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, nil, fmt.Errorf("atecc: failed to configure %s: %w", cfg.CDC.Port, err)
		}
	}

	hal, err := newHALKit(ctx, port, cfg)
	if err != nil {
		_ = port.Close()
		return nil, nil, err
	}
	d, err := New(ctx, hal, cfg)
	if err != nil {
		_ = port.Close()
		return nil, nil, err
	}
	return d, port, nil
}
