package atecc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northvolt/go-secureelement/pkg/ateccconf"
)

func TestSHA256(t *testing.T) {
	tests := []struct {
		name string
		msg  []byte
	}{
		{"empty", nil},
		{"abc", []byte("abc")},
		{"block", bytes.Repeat([]byte{0x61}, 64)},
		{"blocks", bytes.Repeat([]byte("0123456789"), 20)},
		{"55 bytes", bytes.Repeat([]byte{0x01}, 55)},
		{"56 bytes", bytes.Repeat([]byte{0x02}, 56)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockHAL(t)
			d := newTestDev(t, m)

			got, err := d.SHA256(context.Background(), tt.msg)
			require.NoError(t, err)
			assert.Equal(t, sha256.Sum256(tt.msg), got)
			assert.Equal(t, 1, m.count("idle"))
		})
	}
}

func TestSHA256Session(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)
	ctx := context.Background()

	s, err := d.StartSHA256(ctx)
	require.NoError(t, err)
	defer s.Close()

	msg := bytes.Repeat([]byte("abcdefg"), 30)
	for _, chunk := range [][]byte{msg[:1], msg[1:100], msg[100:]} {
		_, err := s.Write(chunk)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(len(msg)), s.Len())

	// the device stays awake while the session is open
	assert.Equal(t, 0, m.count("idle"))
	assert.Equal(t, 1, m.count("wake"))

	sum, err := s.Sum(ctx)
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(msg), sum)
	assert.Equal(t, 1, m.count("idle"))

	_, err = s.Sum(ctx)
	require.ErrorIs(t, err, ErrSequence)
	require.NoError(t, s.Close())
}

func TestSHA256Exclusive(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)
	ctx := context.Background()

	s, err := d.StartSHA256(ctx)
	require.NoError(t, err)

	_, err = d.StartSHA256(ctx)
	require.ErrorIs(t, err, ErrSequence)

	_, err = d.Random(ctx, false)
	require.ErrorIs(t, err, ErrSequence)

	_, err = d.ECDSASign(ctx, 0, [32]byte{})
	require.Error(t, err)

	require.NoError(t, s.Close())
	_, err = d.Random(ctx, false)
	require.NoError(t, err)

	_, err = io.WriteString(s, "abc")
	require.ErrorIs(t, err, ErrSequence)
}

func TestSHA256SessionFailure(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)
	ctx := context.Background()

	s, err := d.StartSHA256(ctx)
	require.NoError(t, err)

	m.status[atcaSHA] = 0x0f
	err = s.Update(ctx, make([]byte, 64))
	require.ErrorIs(t, err, ErrExecution)

	// the session is gone
	_, err = s.Sum(ctx)
	require.ErrorIs(t, err, ErrExecution)
	assert.Nil(t, d.sha)

	_, err = d.Random(ctx, false)
	require.NoError(t, err)
}

func TestSHA256Sleep(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)
	ctx := context.Background()

	s, err := d.StartSHA256(ctx)
	require.NoError(t, err)

	d.Sleep()
	_, err = s.Sum(ctx)
	require.ErrorIs(t, err, ErrSequence)
}

func TestSHA256Restart(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)

	msg := bytes.Repeat([]byte{0x33}, 130)
	m.status[atcaSHA] = 0x0f
	got, err := d.SHA256(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(msg), got)
}

func TestSHA256SessionOpen(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)
	ctx := context.Background()

	s, err := d.StartSHA256(ctx)
	require.NoError(t, err)
	defer s.Close()

	// no second attempt while the session is open
	m.resetCalls()
	_, err = d.SHA256(ctx, []byte("abc"))
	require.ErrorIs(t, err, ErrSequence)
	assert.Equal(t, 0, m.total())
}

func TestSHA256Idle(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)
	ctx := context.Background()

	s, err := d.StartSHA256(ctx)
	require.NoError(t, err)
	defer s.Close()

	msg := bytes.Repeat([]byte{0x42}, 2*shaBlockSize+3)
	require.NoError(t, s.Update(ctx, msg[:shaBlockSize]))

	d.Idle()
	assert.Equal(t, 0, m.count("idle"))
	assert.Equal(t, powerStateAwake, d.pwr.state)

	require.NoError(t, s.Update(ctx, msg[shaBlockSize:]))
	sum, err := s.Sum(ctx)
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(msg), sum)
	assert.Equal(t, powerStateIdle, d.pwr.state)
}

func TestSHA256ContextHandoff(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)
	ctx := context.Background()

	now := time.Now()
	d.pwr.now = func() time.Time { return now }

	shaTime, err := d.budget(atcaSHA)
	require.NoError(t, err)

	s, err := d.StartSHA256(ctx)
	require.NoError(t, err)
	msg := bytes.Repeat([]byte{0x5a}, 3*shaBlockSize+10)
	require.NoError(t, s.Update(ctx, msg[:shaBlockSize]))

	// close to the watchdog, but there is time to save the context
	now = now.Add(ateccconf.WatchdogShort - watchdogMargin - 2*shaTime)
	m.resetCalls()
	require.NoError(t, s.Update(ctx, msg[shaBlockSize:]))
	assert.Equal(t, 1, m.count("sleep"))
	assert.Equal(t, 1, m.count("wake"))
	assert.Equal(t, []uint8{atcaSHA, atcaSHA, atcaSHA, atcaSHA}, m.commands)

	sum, err := s.Sum(ctx)
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(msg), sum)
}

func TestSHA256WatchdogExpired(t *testing.T) {
	m := newMockHAL(t)
	d := newTestDev(t, m)
	ctx := context.Background()

	now := time.Now()
	d.pwr.now = func() time.Time { return now }

	s, err := d.StartSHA256(ctx)
	require.NoError(t, err)

	now = now.Add(ateccconf.WatchdogShort)
	err = s.Update(ctx, make([]byte, shaBlockSize))
	require.ErrorIs(t, err, ErrSequence)
	assert.Nil(t, d.sha)
}
