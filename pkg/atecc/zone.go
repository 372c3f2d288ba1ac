package atecc

import (
	"context"
	"fmt"

	"github.com/northvolt/go-secureelement/pkg/ateccconf"
)

// Zone is a memory zone of the device.
type Zone uint8

// Memory zones.
const (
	ZoneConfig Zone = 0x00
	ZoneOTP    Zone = 0x01
	ZoneData   Zone = 0x02
)

func (z Zone) String() string {
	switch z {
	case ZoneConfig:
		return "config"
	case ZoneOTP:
		return "otp"
	case ZoneData:
		return "data"
	default:
		return "unknown"
	}
}

const (
	zoneSizeConfig = ateccconf.Size
	zoneSizeOTP    = 64
)

func validSlot(slot int) bool {
	return slot >= 0 && slot < ateccconf.NumSlots
}

func getZoneSize(zone Zone, slot int) (int, error) {
	switch zone {
	case ZoneConfig:
		return zoneSizeConfig, nil
	case ZoneOTP:
		return zoneSizeOTP, nil
	case ZoneData:
		switch {
		case !validSlot(slot):
			return 0, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
		case slot < 8:
			return 36, nil
		case slot == 8:
			return 416, nil
		default:
			return 72, nil
		}
	default:
		return 0, fmt.Errorf("%w: invalid zone %d", ErrInvalidParameter, zone)
	}
}

// getAddr returns the address used by Read and Write.
func getAddr(zone Zone, slot int, block uint8, offset uint8) (uint16, error) {
	// Mask the offset
	offset = offset & 0x07

	switch zone {
	case ZoneConfig, ZoneOTP:
		return uint16(block)<<3 | uint16(offset), nil
	case ZoneData:
		if !validSlot(slot) {
			return 0, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
		}
		return uint16(slot)<<3 | uint16(offset) | uint16(block)<<8, nil
	default:
		return 0, fmt.Errorf("%w: invalid zone %d", ErrInvalidParameter, zone)
	}
}

// ReadZone reads a word or a block, depending on the size of b, from zone.
func (d *Dev) ReadZone(ctx context.Context, zone Zone, slot int, block uint8, offset uint8, b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readZone(ctx, zone, slot, block, offset, b)
}

// ReadBytesZone reads len(b) bytes from zone starting at offset.
func (d *Dev) ReadBytesZone(ctx context.Context, zone Zone, slot int, offset int, b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readBytesZone(ctx, zone, slot, offset, b)
}

// ReadConfigZone reads the complete device configuration zone.
func (d *Dev) ReadConfigZone(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf [zoneSizeConfig]byte
	n, err := d.readBytesZone(ctx, ZoneConfig, 0, 0, buf[:])
	return buf[:n], err
}

func (d *Dev) readZone(ctx context.Context, zone Zone, slot int, block uint8, offset uint8, data []byte) (int, error) {
	if len(data) != atcaWordSize && len(data) != atcaBlockSize {
		return 0, fmt.Errorf("%w: read size must be a word or a block", ErrInvalidParameter)
	}

	addr, err := getAddr(zone, slot, block, offset)
	if err != nil {
		return 0, err
	}
	p, err := newReadCommand(zone, addr, len(data) == atcaBlockSize)
	if err != nil {
		return 0, err
	}
	return d.execute(ctx, p, data)
}

// readBytesZone reads len(data) bytes starting at offset.
//
// Whole blocks are read when the block fits within the zone, words
// otherwise.
func (d *Dev) readBytesZone(ctx context.Context, zone Zone, slot int, offset int, data []byte) (int, error) {
	size, err := getZoneSize(zone, slot)
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset+len(data) > size {
		return 0, fmt.Errorf("%w: read of %d bytes at %d exceeds %v zone", ErrInvalidParameter, len(data), offset, zone)
	}

	var buf [atcaBlockSize]byte
	n := 0
	for n < len(data) {
		pos := offset + n
		block := pos / atcaBlockSize

		if (block+1)*atcaBlockSize <= size {
			if _, err := d.readZone(ctx, zone, slot, uint8(block), 0, buf[:]); err != nil {
				return n, err
			}
			n += copy(data[n:], buf[pos%atcaBlockSize:])
			continue
		}

		word := (pos % atcaBlockSize) / atcaWordSize
		if _, err := d.readZone(ctx, zone, slot, uint8(block), uint8(word), buf[:atcaWordSize]); err != nil {
			return n, err
		}
		n += copy(data[n:], buf[pos%atcaWordSize:atcaWordSize])
	}
	return n, nil
}

// WriteZone writes a word or a block, depending on the size of data, to
// zone.
func (d *Dev) WriteZone(ctx context.Context, zone Zone, slot int, block uint8, offset uint8, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkWrite(ctx, zone, slot); err != nil {
		return err
	}
	err := d.writeZone(ctx, zone, slot, block, offset, data)
	if zone == ZoneConfig {
		d.conf = nil
	}
	return err
}

// WriteBytesZone writes the data into the config, OTP or data zone.
//
// If ZoneConfig is unlocked, it may be written to. If ZoneData is unlocked,
// any slot and OTP may be written. Once locked, only slots configured for
// clear text writes that are not individually locked are writable.
//
// Offset and length must be multiples of 4.
func (d *Dev) WriteBytesZone(ctx context.Context, zone Zone, slot int, offset int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkWrite(ctx, zone, slot); err != nil {
		return err
	}
	_, err := d.writeBytesZone(ctx, zone, slot, offset, data)
	if zone == ZoneConfig {
		d.conf = nil
	}
	return err
}

// WriteConfigZone writes the data into the config zone.
//
// This method works similar to how WriteBytesZone work except that it skips
// the first 16 bytes, and also writes the UserExtra and UserExtraAdd bytes if
// all other data was written successfully.
//
// Warning: if UserExtra or UserExtraAdd is not 0x00, these values will be
// permanent. If so, this is irreversible!
func (d *Dev) WriteConfigZone(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkWrite(ctx, ZoneConfig, 0); err != nil {
		return err
	}
	_, err := d.writeConfigZone(ctx, data)
	d.conf = nil
	return err
}

// checkWrite rejects writes the configuration does not allow without
// talking to the device.
func (d *Dev) checkWrite(ctx context.Context, zone Zone, slot int) error {
	conf, err := d.config(ctx)
	if err != nil {
		return err
	}

	switch zone {
	case ZoneConfig:
		if conf.LockConfig.IsLocked() {
			return fmt.Errorf("%w: config", ErrZoneLocked)
		}
	case ZoneOTP:
		if conf.LockValue.IsLocked() {
			return fmt.Errorf("%w: otp", ErrZoneLocked)
		}
	case ZoneData:
		if !validSlot(slot) {
			return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
		}
		if !conf.CanWriteSlot(slot) {
			return fmt.Errorf("%w: slot %d is not writable", ErrZoneLocked, slot)
		}
	default:
		return fmt.Errorf("%w: invalid zone %d", ErrInvalidParameter, zone)
	}
	return nil
}

func (d *Dev) write(ctx context.Context, zone Zone, addr uint16, data []byte, mac []byte) error {
	p, err := newWriteCommand(zone, addr, data, mac)
	if err != nil {
		return err
	}
	var status [1]byte
	_, err = d.execute(ctx, p, status[:])
	return err
}

func (d *Dev) writeZone(ctx context.Context, zone Zone, slot int, block uint8, offset uint8, data []byte) error {
	if len(data) != atcaBlockSize && len(data) != atcaWordSize {
		return fmt.Errorf("%w: write size must be a word or a block", ErrInvalidParameter)
	}

	// The get address function checks the remaining variables
	addr, err := getAddr(zone, slot, block, offset)
	if err != nil {
		return err
	}
	return d.write(ctx, zone, addr, data, nil)
}

// writeBytesZone writes data at offset, a block at a time where possible.
//
// The word holding UserExtra, UserExtraAdd and the lock bytes is skipped.
// Those are written using UpdateExtra and Lock.
func (d *Dev) writeBytesZone(ctx context.Context, zone Zone, slot int, offset int, data []byte) (int, error) {
	if offset%atcaWordSize != 0 || len(data)%atcaWordSize != 0 {
		return 0, fmt.Errorf("%w: offset and length must be multiples of %d", ErrInvalidParameter, atcaWordSize)
	}
	size, err := getZoneSize(zone, slot)
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset+len(data) > size {
		return 0, fmt.Errorf("%w: write of %d bytes at %d exceeds %v zone", ErrInvalidParameter, len(data), offset, zone)
	}

	n := 0
	for n < len(data) {
		pos := offset + n
		block := uint8(pos / atcaBlockSize)
		word := uint8((pos % atcaBlockSize) / atcaWordSize)
		inLockBlock := zone == ZoneConfig && block == ateccconf.LockOffsetBlock

		if word == 0 && len(data)-n >= atcaBlockSize && !inLockBlock {
			if err := d.writeZone(ctx, zone, slot, block, 0, data[n:n+atcaBlockSize]); err != nil {
				return n, err
			}
			n += atcaBlockSize
			continue
		}

		if !inLockBlock || word != ateccconf.LockOffsetWord {
			if err := d.writeZone(ctx, zone, slot, block, word, data[n:n+atcaWordSize]); err != nil {
				return n, err
			}
		}
		n += atcaWordSize
	}
	return n, nil
}

func (d *Dev) writeConfigZone(ctx context.Context, data []byte) (int, error) {
	// Be very strict about the size. We don't want anyone to accidentally miss
	// that this function actually skips the first 16 bytes, which is unexpected.
	if zoneSizeConfig != len(data) {
		return 0, fmt.Errorf("%w: config data must be %d bytes", ErrInvalidParameter, zoneSizeConfig)
	}

	// Write config zone excluding UserExtra and UserExtraAdd
	const offset = ateccconf.PermanentOffset608
	n, err := d.writeBytesZone(ctx, ZoneConfig, 0, offset, data[offset:])
	if err != nil {
		return n, err
	}

	// Write the UserExtra and UserExtraAdd. This may fail if either value is
	// already non-zero.
	const extra = ateccconf.UserExtraOffset
	if data[extra] != 0 {
		if err := d.updateExtra(ctx, updateModeUserExtra, data[extra]); err != nil {
			return n, err
		}
	}
	if data[extra+1] != 0 {
		if err := d.updateExtra(ctx, updateModeUserExtraAdd, data[extra+1]); err != nil {
			return n, err
		}
	}
	return n, nil
}

// updateExtra updates the two extra bytes within the configuration zone.
//
// This function executes the UpdateExtra command to update the values of the
// extra bytes within the configuration zone (bytes 84 and 85).
func (d *Dev) updateExtra(ctx context.Context, mode updateMode, newValue byte) error {
	p, err := newUpdateExtraCommand(mode, newValue)
	if err != nil {
		return err
	}
	var status [1]byte
	_, err = d.execute(ctx, p, status[:])
	return err
}

// SerialNumber returns the serial number of the device.
//
// The returned serial number will be 9 bytes.
func (d *Dev) SerialNumber(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var block [atcaBlockSize]byte
	if _, err := d.readZone(ctx, ZoneConfig, 0, 0, 0, block[:]); err != nil {
		return nil, err
	}
	sn := make([]byte, 0, 9)
	sn = append(sn, block[0:4]...)
	return append(sn, block[8:13]...), nil
}
