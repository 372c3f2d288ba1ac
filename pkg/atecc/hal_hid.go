package atecc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/karalabe/usb"
)

// ErrUSBNotSupported is returned when the USB support is missing.
//
// When building, CGO is required for USB support. If CGO is not enabled, the
// HID interface will not be available.
var ErrUSBNotSupported = errors.New("atecc: usb support is missing")

// NewHIDDev returns an object that communicates over HID.
//
// The returned io.Closer closes the USB device.
func NewHIDDev(ctx context.Context, cfg IfaceConfig) (*Dev, io.Closer, error) {
	if !usb.Supported() {
		return nil, nil, ErrUSBNotSupported
	}

	deviceInfos, err := usb.EnumerateHid(cfg.HID.VendorID, cfg.HID.ProductID)
	if err != nil {
		return nil, nil, fmt.Errorf("atecc: failed to get hid devices: %w", err)
	}
	for _, di := range deviceInfos {
		hid, e := di.Open()
		if e != nil {
			err = e
			continue
		}

		hal, err := newHALKit(ctx, hid, cfg)
		if err != nil {
			_ = hid.Close()
			return nil, nil, err
		}
		d, err := New(ctx, hal, cfg)
		if err != nil {
			_ = hid.Close()
			return nil, nil, err
		}
		return d, hid, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("atecc: %w", err)
	}
	return nil, nil, errors.New("atecc: no hid devices found")
}
