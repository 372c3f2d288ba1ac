package atecc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northvolt/go-secureelement/pkg/ateccconf"
)

func TestNew(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	conf, err := d.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [9]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x01}, conf.SerialNumber())
	assert.Equal(t, ateccconf.ClockDividerM0, d.clockDivider)
	assert.Equal(t, ateccconf.WatchdogShort, d.pwr.watchdog)
	assert.False(t, conf.LockConfig.IsLocked())

	// the configuration is cached
	assert.Equal(t, 0, m.total())

	// a copy is returned
	conf.SN03[0] = 0xff
	again, err := d.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), again.SN03[0])
}

func TestNewWakeFailure(t *testing.T) {
	m := newMockHAL(t)
	m.wakeFailures = 100
	_, err := New(context.Background(), m, IfaceConfig{RxRetries: 2, PollInterval: time.Millisecond})
	require.ErrorIs(t, err, ErrWake)
}

func TestRevision(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	rev, err := d.Revision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x60, 0x02}, rev)

	dt, err := DeviceTypeFromInfo(rev)
	require.NoError(t, err)
	assert.Equal(t, DeviceATECC608, dt)

	assert.Equal(t, 1, m.count("wake"))
	assert.Equal(t, 1, m.count("write"))
	assert.Equal(t, 1, m.count("idle"))
	assert.Equal(t, powerStateIdle, d.pwr.state)
}

func TestBusyPolling(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	m.busyPolls = 4
	_, err := d.Revision(context.Background())
	require.NoError(t, err)
}

func TestTimeout(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	m.busyPolls = 10
	_, err := d.Revision(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, powerStateSleep, d.pwr.state)

	// the device is woken up again
	m.busyPolls = 0
	m.resetCalls()
	_, err = d.Revision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, m.count("wake"))
}

func TestNotReadyPolling(t *testing.T) {
	tests := []struct {
		name    string
		notRdy  int
		timeout bool
	}{
		{"none", 0, false},
		{"last attempt", 4, false},
		{"exhausted", 5, true},
		{"beyond", 6, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockHAL(t)
			d := newTestDev(t, m)
			require.Equal(t, 5, d.cfg.RxRetries)

			m.busyFF = true
			m.busyPolls = tt.notRdy
			_, err := d.Revision(context.Background())
			if tt.timeout {
				require.ErrorIs(t, err, ErrTimeout)
				// wake ack plus every poll
				assert.Equal(t, 1+5, m.count("read"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1+tt.notRdy+1, m.count("read"))
		})
	}
}

func TestChecksumError(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	m.corrupt = true
	_, err := d.Revision(context.Background())
	require.ErrorIs(t, err, ErrChecksum)

	_, err = d.Revision(context.Background())
	require.NoError(t, err)
}

func TestCommandStatusError(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	m.status[atcaRandom] = 0x0f
	_, err := d.Random(context.Background(), false)
	require.ErrorIs(t, err, ErrExecution)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, uint8(atcaRandom), se.Opcode)
	assert.Equal(t, uint8(0x0f), se.Status)
}

func TestWatchdogRetry(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	m.status[atcaInfo] = 0xee
	rev, err := d.Revision(context.Background())
	require.NoError(t, err)
	assert.Len(t, rev, 4)
	assert.Equal(t, 2, m.count("wake"))
	assert.Equal(t, 1, m.count("sleep"))
	assert.Equal(t, []uint8{atcaInfo, atcaInfo}, m.commands)
}

func TestWriteFailure(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	// the device ignores commands while it is idle
	d.pwr.state = powerStateAwake
	d.pwr.wokeAt = time.Now()
	_, err := d.Revision(context.Background())

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "send", ioErr.Op)
	assert.Equal(t, powerStateSleep, d.pwr.state)
}

func TestCanceled(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Revision(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.count("write"))
}

func TestEnsureAwakeWatchdog(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	now := time.Now()
	d.pwr.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, d.ensureAwake(ctx, 10*time.Millisecond))
	require.NoError(t, d.ensureAwake(ctx, 10*time.Millisecond))
	assert.Equal(t, 1, m.count("wake"))

	// too close to the watchdog, the device is restarted
	now = now.Add(ateccconf.WatchdogShort - watchdogMargin)
	require.NoError(t, d.ensureAwake(ctx, 10*time.Millisecond))
	assert.Equal(t, 2, m.count("wake"))
	assert.Equal(t, 1, m.count("sleep"))
}

func TestSequence(t *testing.T) {
	m := newMockHAL(t).lock()
	d := newTestDev(t, m)

	now := time.Now()
	d.pwr.now = func() time.Time { return now }

	ctx := context.Background()
	budget, err := d.budget(atcaRandom, atcaRandom)
	require.NoError(t, err)

	err = d.sequence(ctx, budget, func() error {
		for i := 0; i < 2; i++ {
			if _, err := d.random(ctx, randomModeNoUpdateSeed); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.count("wake"))
	assert.Equal(t, 1, m.count("idle"))

	m.resetCalls()
	err = d.sequence(ctx, budget, func() error {
		if _, err := d.random(ctx, randomModeNoUpdateSeed); err != nil {
			return err
		}
		now = now.Add(ateccconf.WatchdogShort)
		_, err := d.random(ctx, randomModeNoUpdateSeed)
		return err
	})
	require.ErrorIs(t, err, ErrSequence)
	assert.Equal(t, 1, m.count("wake"))
	assert.Equal(t, 1, m.count("write"))
}

func TestConcurrentCommands(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.Random(context.Background(), false)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 4, m.count("write"))
}

func TestDevice508(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m, func(cfg *IfaceConfig) {
		cfg.DeviceType = DeviceATECC508
	})

	// the 608 chip mode is not applied
	assert.Equal(t, ateccconf.ClockDividerM2, d.clockDivider)
	target, sign, verify := d.digestTarget()
	assert.Equal(t, nonceTargetTempKey, target)
	assert.Equal(t, signSourceTempKey, sign)
	assert.Equal(t, verifySourceTempKey, verify)

	_, err := d.Random(context.Background(), false)
	require.NoError(t, err)
}

func TestExecutionTime(t *testing.T) {
	m0, err := getExecutionTime(DeviceATECC608, ateccconf.ClockDividerM0, atcaSign)
	require.NoError(t, err)
	m2, err := getExecutionTime(DeviceATECC608, ateccconf.ClockDividerM2, atcaSign)
	require.NoError(t, err)
	assert.Less(t, m0, m2)

	_, err = getExecutionTime(DeviceATECC508, ateccconf.ClockDividerM0, atcaSHA)
	require.NoError(t, err)

	_, err = getExecutionTime(DeviceType(42), ateccconf.ClockDividerM0, atcaSHA)
	require.Error(t, err)
}
