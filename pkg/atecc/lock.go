package atecc

import (
	"context"
	"fmt"

	"github.com/northvolt/go-secureelement/pkg/ateccconf"
)

// IsConfigZoneLocked returns true if the configuration zone is locked.
//
// This is the same as calling IsLocked(ctx, ZoneConfig).
func (d *Dev) IsConfigZoneLocked(ctx context.Context) (bool, error) {
	return d.IsLocked(ctx, ZoneConfig)
}

// IsDataZoneLocked returns true if the data zone is locked.
//
// This is the same as calling IsLocked(ctx, ZoneData).
func (d *Dev) IsDataZoneLocked(ctx context.Context) (bool, error) {
	return d.IsLocked(ctx, ZoneData)
}

// IsLocked reads the lock bytes from the device. The OTP zone is locked
// together with the data zone.
func (d *Dev) IsLocked(ctx context.Context, zone Zone) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Read the word with the lock bytes
	// (UserExtra, UserExtraAdd, LockValue, LockConfig)
	var buf [atcaWordSize]byte
	const block = ateccconf.LockOffsetBlock
	const offset = ateccconf.LockOffsetWord
	if _, err := d.readZone(ctx, ZoneConfig, 0, block, offset, buf[:]); err != nil {
		return false, err
	}

	var conf ateccconf.Config608
	err := ateccconf.UnmarshalPartial(buf[:], ateccconf.LockOffset, &conf)
	if err != nil {
		return false, err
	}

	if d.conf != nil {
		d.conf.LockValue = conf.LockValue
		d.conf.LockConfig = conf.LockConfig
	}

	switch zone {
	case ZoneConfig:
		return conf.LockConfig.IsLocked(), nil
	case ZoneData, ZoneOTP:
		return conf.LockValue.IsLocked(), nil
	default:
		return false, fmt.Errorf("%w: invalid zone %d", ErrInvalidParameter, zone)
	}
}

// LockZone locks zone. Locking ZoneData also locks ZoneOTP.
//
// Warning: locking is irreversible!
func (d *Dev) LockZone(ctx context.Context, zone Zone) error {
	switch zone {
	case ZoneConfig:
		return d.LockConfigZone(ctx)
	case ZoneData, ZoneOTP:
		return d.LockDataZone(ctx)
	default:
		return fmt.Errorf("%w: invalid zone %d", ErrInvalidParameter, zone)
	}
}

// LockConfigZone locks the configuration zone without verifying its content.
//
// Warning: locking is irreversible!
func (d *Dev) LockConfigZone(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lockConfigZone(ctx, lockModeNoCRC, 0)
}

// LockConfigZoneCRC locks the configuration zone if its content matches
// expected, which must hold the complete 128 byte zone.
//
// Warning: locking is irreversible!
func (d *Dev) LockConfigZoneCRC(ctx context.Context, expected []byte) error {
	if len(expected) != zoneSizeConfig {
		return fmt.Errorf("%w: config data must be %d bytes", ErrInvalidParameter, zoneSizeConfig)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lockConfigZone(ctx, lockModeCRC, crc16(expected))
}

func (d *Dev) lockConfigZone(ctx context.Context, mode lockMode, crc uint16) error {
	conf, err := d.config(ctx)
	if err != nil {
		return err
	}
	if conf.LockConfig.IsLocked() {
		return fmt.Errorf("%w: config", ErrZoneLocked)
	}

	p, err := newLockCommand(lockZoneConfig, mode, crc)
	if err != nil {
		return err
	}
	if err := d.lock(ctx, p); err != nil {
		return err
	}
	conf.LockConfig = ateccconf.LockStateLocked
	return nil
}

// LockDataZone locks the data and OTP zones. The configuration zone must be
// locked first.
//
// Warning: locking is irreversible!
func (d *Dev) LockDataZone(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	conf, err := d.config(ctx)
	if err != nil {
		return err
	}
	if !conf.LockConfig.IsLocked() {
		return fmt.Errorf("%w: config zone must be locked before the data zone", ErrSequence)
	}
	if conf.LockValue.IsLocked() {
		return fmt.Errorf("%w: data", ErrZoneLocked)
	}

	p, err := newLockCommand(lockZoneData, lockModeNoCRC, 0)
	if err != nil {
		return err
	}
	if err := d.lock(ctx, p); err != nil {
		return err
	}
	conf.LockValue = ateccconf.LockStateLocked
	return nil
}

// LockDataSlot locks a single slot. The slot must be configured as lockable.
//
// Warning: locking is irreversible!
func (d *Dev) LockDataSlot(ctx context.Context, slot int) error {
	if !validSlot(slot) {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conf, err := d.config(ctx)
	if err != nil {
		return err
	}
	if !conf.KeyConfig[slot].Lockable() {
		return fmt.Errorf("%w: slot %d is not lockable", ErrInvalidSlot, slot)
	}
	if conf.SlotLocked.IsLocked(slot) {
		return fmt.Errorf("%w: slot %d", ErrZoneLocked, slot)
	}

	p, err := newLockSlotCommand(slot)
	if err != nil {
		return err
	}
	if err := d.lock(ctx, p); err != nil {
		return err
	}
	conf.SlotLocked = conf.SlotLocked.Lock(slot)
	return nil
}

func (d *Dev) lock(ctx context.Context, p *packet) error {
	var status [1]byte
	_, err := d.execute(ctx, p, status[:])
	return err
}
