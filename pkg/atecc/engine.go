package atecc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/northvolt/go-secureelement/pkg/ateccconf"
)

// Dev is a secure element.
//
// All methods are safe for concurrent use. A method holds the device for the
// whole command sequence it runs, so commands from different goroutines
// never interleave.
type Dev struct {
	mu  sync.Mutex
	hal HAL
	cfg IfaceConfig
	enc packetEncoder
	log Logger
	pwr *power

	// conf caches the configuration zone. It is reloaded when nil.
	conf         *ateccconf.Config608
	clockDivider ateccconf.ClockDivider

	// seq is non-zero while a multi-command sequence is running.
	seq int
	// sha is the open SHA-256 session, if any.
	sha *SHA256Session
}

// New returns a new ATECC device using the supplied HAL for communication.
//
// The configuration zone is read to learn the clock divider, the watchdog
// timeout and the lock state.
func New(ctx context.Context, hal HAL, cfg IfaceConfig) (*Dev, error) {
	d := newDev(hal, cfg)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d, d.init(ctx)
}

func newDev(hal HAL, cfg IfaceConfig) *Dev {
	cfg = withDefaults(cfg)
	l := getLogger(cfg)
	hal = newHALDebug("ecc", l, hal)

	watchdog := cfg.Watchdog
	if watchdog == 0 {
		watchdog = ateccconf.WatchdogShort
	}
	return &Dev{
		hal: hal,
		cfg: cfg,
		log: l,
		pwr: newPower(hal, cfg, watchdog),
		// slowest divider until the configuration has been read
		clockDivider: ateccconf.ClockDividerM2,
	}
}

func (d *Dev) init(ctx context.Context) error {
	_, err := d.config(ctx)
	return err
}

// config returns the cached configuration zone, reading it when needed.
func (d *Dev) config(ctx context.Context) (*ateccconf.Config608, error) {
	if d.conf != nil {
		return d.conf, nil
	}

	var buf [ateccconf.Size]byte
	if _, err := d.readBytesZone(ctx, ZoneConfig, 0, 0, buf[:]); err != nil {
		return nil, err
	}
	var conf ateccconf.Config608
	if err := ateccconf.Unmarshal(buf[:], &conf); err != nil {
		return nil, err
	}
	d.setConfig(&conf)
	return d.conf, nil
}

func (d *Dev) setConfig(conf *ateccconf.Config608) {
	d.conf = conf
	if d.cfg.DeviceType == DeviceATECC608 {
		d.clockDivider = conf.ChipMode.ClockDivider()
		if d.cfg.Watchdog == 0 {
			d.pwr.watchdog = conf.Watchdog()
		}
	}
}

// Config returns the configuration zone as read when the device was opened
// or after the last configuration change.
func (d *Dev) Config(ctx context.Context) (*ateccconf.Config608, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	conf, err := d.config(ctx)
	if err != nil {
		return nil, err
	}
	c := *conf
	return &c, nil
}

// Sleep puts the device to sleep, clearing all volatile state.
//
// Sleep never fails. An open SHA-256 session is aborted.
func (d *Dev) Sleep() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sha != nil {
		d.sha.abort(fmt.Errorf("%w: device put to sleep", ErrSequence))
	}
	d.pwr.sleep()
}

// Idle puts the device into idle mode, keeping volatile state.
//
// Idle never fails. It does nothing while a SHA-256 session is open, since
// the session relies on the watchdog started by its wake.
func (d *Dev) Idle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endCommand()
}

// sequence runs fn as one uninterrupted command sequence.
//
// The device is woken up with enough watchdog time left for budget and is
// not put into idle between the commands. A command in the sequence that
// would need to wake the device again fails with ErrSequence instead, since
// the volatile state the sequence depends on would be lost.
func (d *Dev) sequence(ctx context.Context, budget time.Duration, fn func() error) error {
	if d.sha != nil {
		return fmt.Errorf("%w: sha-256 session is open", ErrSequence)
	}
	if d.seq == 0 {
		if err := d.ensureAwake(ctx, budget); err != nil {
			return err
		}
	}

	d.seq++
	defer func() {
		d.seq--
		d.endCommand()
	}()
	return fn()
}

// budget returns the total execution time of opcodes.
func (d *Dev) budget(opcodes ...uint8) (time.Duration, error) {
	var total time.Duration
	for _, op := range opcodes {
		t, err := getExecutionTime(d.cfg.DeviceType, d.clockDivider, op)
		if err != nil {
			return 0, err
		}
		total += t
	}
	return total, nil
}

// ensureAwake makes sure the device is awake for at least t.
func (d *Dev) ensureAwake(ctx context.Context, t time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s := d.sha; s != nil && s.started {
		return d.keepSHAContext(ctx, t)
	}
	if d.pwr.ready(t) {
		return nil
	}
	if d.seq > 0 {
		return fmt.Errorf("%w: device would be woken up during a sequence", ErrSequence)
	}

	if d.pwr.state == powerStateAwake {
		d.log.Printf("watchdog about to expire, putting device to sleep")
		d.pwr.sleep()
	}
	return d.pwr.wake(ctx)
}

// endCommand puts the device into idle unless a sequence is still running.
func (d *Dev) endCommand() {
	if d.seq == 0 && d.sha == nil {
		d.pwr.idle()
	}
}

// execute runs a single command and copies the response payload to recv.
//
// If the device reports that its watchdog is about to expire, it is put to
// sleep and the command is sent once more.
func (d *Dev) execute(ctx context.Context, p *packet, recv []byte) (int, error) {
	n, err := d.transact(ctx, p, recv)
	if errors.Is(err, ErrWatchdog) && d.seq == 0 && d.sha == nil {
		d.log.Printf("watchdog about to expire, retrying %v", p)
		d.pwr.sleep()
		n, err = d.transact(ctx, p, recv)
	}
	d.endCommand()
	return n, err
}

// transact wakes the device if needed and runs the command.
func (d *Dev) transact(ctx context.Context, p *packet, recv []byte) (int, error) {
	t, err := getExecutionTime(d.cfg.DeviceType, d.clockDivider, p.opcode)
	if err != nil {
		return 0, err
	}
	if d.sha != nil && d.sha.started && p.opcode != atcaSHA {
		return 0, fmt.Errorf("%w: sha-256 session is open", ErrSequence)
	}
	if err := d.ensureAwake(ctx, t); err != nil {
		return 0, err
	}
	return d.run(p, t, recv)
}

// run sends the command to an awake device and reads its response.
//
// Once the command has been written it runs to completion; only the bounded
// number of polls limits how long run may take.
func (d *Dev) run(p *packet, t time.Duration, recv []byte) (int, error) {
	b, err := d.enc.Encode(p)
	if err != nil {
		return 0, err
	}

	if _, err := d.hal.Write(b); err != nil {
		d.pwr.reset()
		return 0, &IOError{Op: "send", Err: err}
	}

	// wait for the operation to finish
	time.Sleep(t)

	rsp, err := d.poll(p.respSize)
	if err != nil {
		d.pwr.reset()
		return 0, err
	}

	payload, err := d.enc.Decode(p.opcode, rsp)
	if err != nil {
		d.log.Printf("%v: %v", p, err)
		return 0, err
	}
	if len(payload) > len(recv) {
		return 0, errRecvBuffer
	}
	return copy(recv, payload), nil
}

// poll reads the response, retrying while the device is busy.
func (d *Dev) poll(size int) ([]byte, error) {
	// make room for 1 byte size and 2 byte crc
	buf := make([]byte, size+3)
	if len(buf) < atcaRspSizeMin {
		buf = make([]byte, atcaRspSizeMin)
	}

	var err error
	for i := 0; i < d.cfg.RxRetries; i++ {
		if i > 0 {
			time.Sleep(d.cfg.PollInterval)
		}

		var n int
		n, err = d.hal.Read(buf)
		if errors.Is(err, errRecvBuffer) {
			return nil, err
		}
		if err == nil && n > 0 && buf[0] != 0xff {
			return buf[:n], nil
		}
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return nil, ErrTimeout
}
