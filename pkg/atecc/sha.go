package atecc

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SHA256Session computes a SHA-256 digest on the device.
//
// Only one session may be open at a time. While it is open the device is
// kept awake and other commands fail with ErrSequence. The hash state lives
// in the device, so a failed command ends the session and the digest has to
// be computed again from the start.
//
// A session implements io.Writer using the context it was started with.
type SHA256Session struct {
	ctx context.Context
	d   *Dev

	buf  [shaBlockSize]byte
	nbuf int
	len  uint64

	// started is set once the device accepted the start command.
	started bool
	err     error
}

// StartSHA256 starts a SHA-256 session.
func (d *Dev) StartSHA256(ctx context.Context) (*SHA256Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sha != nil {
		return nil, fmt.Errorf("%w: sha-256 session already open", ErrSequence)
	}
	if d.seq > 0 {
		return nil, fmt.Errorf("%w: sequence in progress", ErrSequence)
	}

	p, err := newSHACommand(shaModeStart, nil)
	if err != nil {
		return nil, err
	}

	// registered before the start command so that the device is not put
	// into idle afterwards
	s := &SHA256Session{ctx: ctx, d: d}
	d.sha = s

	var status [1]byte
	if _, err := d.execute(ctx, p, status[:]); err != nil {
		s.abort(err)
		return nil, err
	}
	s.started = true
	return s, nil
}

// Update hashes b, sending every complete 64 byte block to the device.
func (s *SHA256Session) Update(ctx context.Context, b []byte) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	if err := s.check(); err != nil {
		return err
	}

	for len(b) > 0 {
		n := copy(s.buf[s.nbuf:], b)
		s.nbuf += n
		s.len += uint64(n)
		b = b[n:]

		if s.nbuf == shaBlockSize {
			if err := s.send(ctx, shaModeUpdate, s.buf[:], nil); err != nil {
				return err
			}
			s.nbuf = 0
		}
	}
	return nil
}

// Write implements io.Writer.
func (s *SHA256Session) Write(p []byte) (int, error) {
	if err := s.Update(s.ctx, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Len returns the number of bytes hashed so far.
func (s *SHA256Session) Len() uint64 {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.len
}

// Sum finishes the digest and closes the session.
func (s *SHA256Session) Sum(ctx context.Context) ([32]byte, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var digest [32]byte
	if err := s.check(); err != nil {
		return digest, err
	}
	if err := s.send(ctx, shaModeEnd, s.buf[:s.nbuf], digest[:]); err != nil {
		return digest, err
	}

	s.abort(fmt.Errorf("%w: sha-256 session closed", ErrSequence))
	return digest, nil
}

// Close aborts the session. It is safe to call Close after Sum.
func (s *SHA256Session) Close() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	if s.d.sha == s {
		s.abort(fmt.Errorf("%w: sha-256 session closed", ErrSequence))
	}
	return nil
}

func (s *SHA256Session) check() error {
	if s.err != nil {
		return s.err
	}
	if s.d.sha != s {
		return fmt.Errorf("%w: sha-256 session is not open", ErrSequence)
	}
	return nil
}

// send runs one SHA command. Any error ends the session.
func (s *SHA256Session) send(ctx context.Context, mode shaMode, data []byte, recv []byte) error {
	p, err := newSHACommand(mode, data)
	if err != nil {
		return err
	}
	if recv == nil {
		var status [1]byte
		recv = status[:]
	}
	n, err := s.d.execute(ctx, p, recv)
	if err == nil && n != len(recv) {
		err = fmt.Errorf("atecc: unexpected sha response size: %d", n)
	}
	if err != nil {
		s.abort(err)
		return err
	}
	return nil
}

// abort ends the session, every later call returns err.
func (s *SHA256Session) abort(err error) {
	if s.err == nil {
		s.err = err
	}
	if s.d.sha == s {
		s.d.sha = nil
		s.d.pwr.idle()
	}
}

// keepSHAContext keeps the open session alive across the watchdog.
//
// When the watchdog would expire before the next command completes, the
// context is read from the device, the watchdog is restarted by putting the
// device to sleep and waking it up, and the context is written back.
func (d *Dev) keepSHAContext(ctx context.Context, t time.Duration) error {
	s := d.sha
	shaTime, err := d.budget(atcaSHA)
	if err != nil {
		return err
	}
	if d.pwr.ready(t + 2*shaTime) {
		return nil
	}

	fail := func(err error) error {
		err = fmt.Errorf("%w: sha-256 context lost: %w", ErrSequence, err)
		s.abort(err)
		return err
	}
	if d.cfg.DeviceType != DeviceATECC608 || !d.pwr.ready(shaTime) {
		return fail(errors.New("watchdog expired"))
	}

	d.log.Printf("saving sha-256 context before the watchdog expires")
	p, err := newSHACommand(shaModeReadContext, nil)
	if err != nil {
		return fail(err)
	}
	var shaCtx [shaContextMaxSize]byte
	n, err := d.run(p, shaTime, shaCtx[:])
	if err != nil {
		return fail(err)
	}

	d.pwr.sleep()
	if err := d.pwr.wake(ctx); err != nil {
		return fail(err)
	}

	if p, err = newSHACommand(shaModeWriteContext, shaCtx[:n]); err != nil {
		return fail(err)
	}
	var status [1]byte
	if _, err := d.run(p, shaTime, status[:]); err != nil {
		return fail(err)
	}
	return nil
}

// SHA256 computes the SHA-256 digest of msg on the device.
//
// If the digest fails half way, it is computed once more from the start. It
// is not retried when the session could not be opened because another
// session or sequence is in progress.
func (d *Dev) SHA256(ctx context.Context, msg []byte) ([32]byte, error) {
	digest, started, err := d.sha256(ctx, msg)
	if err == nil || ctx.Err() != nil || errors.Is(err, ErrInvalidParameter) {
		return digest, err
	}
	if !started && errors.Is(err, ErrSequence) {
		return digest, err
	}
	d.log.Printf("sha-256 failed, restarting: %v", err)
	digest, _, err = d.sha256(ctx, msg)
	return digest, err
}

func (d *Dev) sha256(ctx context.Context, msg []byte) ([32]byte, bool, error) {
	s, err := d.StartSHA256(ctx)
	if err != nil {
		return [32]byte{}, false, err
	}
	defer s.Close()

	if err := s.Update(ctx, msg); err != nil {
		return [32]byte{}, true, err
	}
	digest, err := s.Sum(ctx)
	return digest, true, err
}
