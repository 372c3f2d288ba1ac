package atecc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
)

type powerState int

const (
	// powerStateSleep is also used when the state is unknown, which forces a
	// wake before the next command.
	powerStateSleep powerState = iota
	powerStateAwake
	powerStateIdle
)

func (s powerState) String() string {
	switch s {
	case powerStateSleep:
		return "sleep"
	case powerStateAwake:
		return "awake"
	case powerStateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// wakeResponse is the status response sent after a successful wake.
var wakeResponse = [atcaRspSizeMin]byte{0x04, 0x11, 0x33, 0x43}

// checkWakeUp validates the response read after the wake token. A device
// whose power on self test failed answers with a self test status instead.
func checkWakeUp(b []byte) error {
	if bytes.Equal(b, wakeResponse[:]) {
		return nil
	}

	var enc packetEncoder
	if len(b) == atcaRspSizeMin {
		if _, err := enc.Decode(0, b); errors.Is(err, ErrSelfTest) {
			return err
		}
	}
	return fmt.Errorf("%w: unexpected wake response % x", ErrWake, b)
}

// watchdogMargin is kept free before the watchdog expires.
const watchdogMargin = 50 * time.Millisecond

// power tracks the power state of the device.
//
// The watchdog starts when the device wakes up and puts it to sleep, losing
// all volatile state, once it expires. Idle stops the watchdog.
type power struct {
	hal       HAL
	log       Logger
	wakeDelay time.Duration
	retries   int
	watchdog  time.Duration
	now       func() time.Time

	state  powerState
	wokeAt time.Time
}

func newPower(hal HAL, cfg IfaceConfig, watchdog time.Duration) *power {
	return &power{
		hal:       hal,
		log:       getLogger(cfg),
		wakeDelay: cfg.WakeDelay,
		retries:   cfg.WakeRetries,
		watchdog:  watchdog,
		now:       time.Now,
		state:     powerStateSleep,
	}
}

// ready reports if the device is awake and can run for d before the watchdog
// expires.
func (p *power) ready(d time.Duration) bool {
	if p.state != powerStateAwake {
		return false
	}
	deadline := p.wokeAt.Add(p.watchdog - watchdogMargin)
	return p.now().Add(d).Before(deadline)
}

// wake wakes the device, retrying until it acknowledges.
func (p *power) wake(ctx context.Context) error {
	var err error
	for i := 0; i < p.retries; i++ {
		if err = p.wakeOnce(ctx); err == nil {
			p.state = powerStateAwake
			p.wokeAt = p.now()
			return nil
		}
		p.log.Printf("wake attempt %d failed: %v", i+1, err)
		if ctx.Err() != nil || errors.Is(err, ErrSelfTest) {
			break
		}
		// an awake device ignores the wake token
		if err := p.hal.Sleep(); err != nil {
			p.log.Printf("sleep before wake: %v", err)
		}
	}

	p.state = powerStateSleep
	if errors.Is(err, ErrWake) || errors.Is(err, ErrSelfTest) || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrWake, err)
}

func (p *power) wakeOnce(ctx context.Context) error {
	if err := p.hal.Wake(); err != nil {
		return &IOError{Op: "wake", Err: err}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.wakeDelay):
	}

	var ack [atcaRspSizeMin]byte
	n, err := p.hal.Read(ack[:])
	if err != nil {
		return &IOError{Op: "wake", Err: err}
	}
	return checkWakeUp(ack[:n])
}

// sleep puts the device to sleep. It never fails, errors are only logged.
func (p *power) sleep() {
	if err := p.hal.Sleep(); err != nil {
		p.log.Printf("sleep: %v", err)
	}
	p.state = powerStateSleep
}

// idle puts the device into idle. It never fails, errors are only logged.
func (p *power) idle() {
	if p.state != powerStateAwake {
		return
	}
	if err := p.hal.Idle(); err != nil {
		p.log.Printf("idle: %v", err)
		p.state = powerStateSleep
		return
	}
	p.state = powerStateIdle
}

// reset forgets the power state after a transport failure.
func (p *power) reset() {
	p.state = powerStateSleep
}
