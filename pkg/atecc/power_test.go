package atecc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckWakeUp(t *testing.T) {
	assert.NoError(t, checkWakeUp(wakeResponse[:]))
	assert.ErrorIs(t, checkWakeUp(encodeResponse([]byte{0x07})), ErrSelfTest)
	assert.ErrorIs(t, checkWakeUp(encodeResponse([]byte{0x00})), ErrWake)
	assert.ErrorIs(t, checkWakeUp([]byte{0x04, 0x11}), ErrWake)
	assert.ErrorIs(t, checkWakeUp(nil), ErrWake)
}

func TestPowerWake(t *testing.T) {
	m := newMockHAL(t)
	p := newPower(m, withDefaults(IfaceConfig{}), time.Second)

	require.NoError(t, p.wake(context.Background()))
	assert.Equal(t, powerStateAwake, p.state)
	assert.Equal(t, 1, m.count("wake"))
	assert.True(t, p.ready(10*time.Millisecond))
	assert.False(t, p.ready(time.Second))

	p.idle()
	assert.Equal(t, powerStateIdle, p.state)
	assert.False(t, p.ready(0))
}

func TestPowerWakeRetries(t *testing.T) {
	m := newMockHAL(t)
	m.wakeFailures = 2
	p := newPower(m, withDefaults(IfaceConfig{}), time.Second)

	require.NoError(t, p.wake(context.Background()))
	assert.Equal(t, 3, m.count("wake"))
}

func TestPowerWakeFailure(t *testing.T) {
	m := newMockHAL(t)
	m.wakeFailures = 10
	p := newPower(m, withDefaults(IfaceConfig{WakeRetries: 4}), time.Second)

	err := p.wake(context.Background())
	require.ErrorIs(t, err, ErrWake)
	assert.Equal(t, 4, m.count("wake"))
	assert.Equal(t, powerStateSleep, p.state)
}

func TestPowerWakeAwakeDevice(t *testing.T) {
	m := newMockHAL(t)
	p := newPower(m, withDefaults(IfaceConfig{}), time.Second)
	require.NoError(t, p.wake(context.Background()))

	// the driver lost track of the state while the device stayed awake
	p.reset()
	require.NoError(t, p.wake(context.Background()))
	assert.Equal(t, 3, m.count("wake"))
	assert.Equal(t, 1, m.count("sleep"))
}

func TestPowerWakeCanceled(t *testing.T) {
	m := newMockHAL(t)
	m.wakeFailures = 10
	p := newPower(m, withDefaults(IfaceConfig{}), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.wake(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, m.count("wake"))
}

type selfTestHAL struct {
	*mockHAL
}

func (h *selfTestHAL) Read(p []byte) (int, error) {
	h.calls["read"]++
	return copy(p, encodeResponse([]byte{0x07})), nil
}

func TestPowerWakeSelfTest(t *testing.T) {
	h := &selfTestHAL{newMockHAL(t)}
	p := newPower(h, withDefaults(IfaceConfig{}), time.Second)

	err := p.wake(context.Background())
	require.ErrorIs(t, err, ErrSelfTest)
	assert.NotErrorIs(t, err, ErrWake)
	assert.Equal(t, 1, h.count("wake"))
}

func TestPowerSleepNeverFails(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	d.Sleep()
	d.Sleep()
	d.Idle()
	assert.Equal(t, 2, m.count("sleep"))
	assert.Equal(t, powerStateSleep, d.pwr.state)

	_, err := d.Revision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.count("wake"))
}
