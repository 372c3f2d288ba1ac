package atecc

import (
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding"
	"encoding/binary"
	"errors"
	"hash"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/northvolt/go-secureelement/pkg/ateccconf"
)

var errNAK = errors.New("i2c: nack")

// encodeResponse frames payload the way the device does.
func encodeResponse(payload []byte) []byte {
	b := make([]byte, 0, len(payload)+3)
	b = append(b, uint8(len(payload)+3))
	b = append(b, payload...)
	return binary.LittleEndian.AppendUint16(b, crc16(b))
}

// mockHAL emulates a device behind the HAL interface.
type mockHAL struct {
	mu sync.Mutex

	calls map[string]int
	state powerState
	rsp   []byte

	// busy is the number of reads answered with a NAK before the response.
	busy int
	// busyFF answers the busy reads with a single 0xff byte instead of a NAK.
	busyFF bool
	// busyPolls is assigned to busy after every command.
	busyPolls int
	// wakeFailures is the number of wake tokens that are not acknowledged.
	wakeFailures int
	// status forces the status of the next command with the opcode.
	status map[uint8]uint8
	// corrupt flips the CRC of the next response.
	corrupt bool

	commands []uint8
	config   [ateccconf.Size]byte
	data     [ateccconf.NumSlots][]byte
	keys     [ateccconf.NumSlots]*ecdsa.PrivateKey
	tempKey  []byte
	msgDig   []byte
	sha      hash.Hash
	counters [2]uint32
	random   byte
}

func newMockHAL(t *testing.T) *mockHAL {
	t.Helper()
	m := &mockHAL{
		calls:  map[string]int{},
		status: map[uint8]uint8{},
	}
	copy(m.config[:], []byte{
		0x01, 0x23, 0x45, 0x67, 0x00, 0x00, 0x60, 0x02,
		0x89, 0xab, 0xcd, 0xef, 0x01, 0x00, 0x01, 0x00,
	})
	copy(m.config[ateccconf.PermanentOffset608:], ateccconf.Default608)
	for i := range m.data {
		size, err := getZoneSize(ZoneData, i)
		require.NoError(t, err)
		m.data[i] = make([]byte, size)
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	m.keys[0] = key
	return m
}

// lock marks the configuration and data zones as locked.
func (m *mockHAL) lock() *mockHAL {
	m.config[ateccconf.LockOffset+2] = 0x00
	m.config[ateccconf.LockOffset+3] = 0x00
	return m
}

func (m *mockHAL) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockHAL) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func (m *mockHAL) resetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = map[string]int{}
	m.commands = nil
}

func (m *mockHAL) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["read"]++

	if m.busy > 0 {
		m.busy--
		if m.busyFF && len(p) > 0 {
			p[0] = 0xff
			return 1, nil
		}
		return 0, errNAK
	}
	if m.rsp == nil {
		return 0, errNAK
	}
	if len(m.rsp) > len(p) {
		return 0, errRecvBuffer
	}
	n := copy(p, m.rsp)
	m.rsp = nil
	return n, nil
}

func (m *mockHAL) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["write"]++

	if m.state != powerStateAwake {
		return 0, errNAK
	}
	if len(b) < 1+atcaCmdSizeMin || b[0] != wordAddressCommand || int(b[1]) != len(b)-1 {
		m.rsp = encodeResponse([]byte{0x03})
		return len(b), nil
	}
	frame := b[1:]
	n := len(frame)
	if crc16(frame[:n-2]) != binary.LittleEndian.Uint16(frame[n-2:]) {
		m.rsp = encodeResponse([]byte{0xff})
		return len(b), nil
	}

	op, p1, p2 := frame[1], frame[2], binary.LittleEndian.Uint16(frame[3:5])
	data := frame[5 : n-2]
	m.commands = append(m.commands, op)

	var payload []byte
	if st, ok := m.status[op]; ok {
		delete(m.status, op)
		payload = []byte{st}
	} else {
		payload = m.handle(op, p1, p2, data)
	}

	m.rsp = encodeResponse(payload)
	if m.corrupt {
		m.rsp[len(m.rsp)-1] ^= 0xff
		m.corrupt = false
	}
	m.busy = m.busyPolls
	return len(b), nil
}

func (m *mockHAL) Idle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["idle"]++
	if m.state == powerStateAwake {
		m.state = powerStateIdle
	}
	return nil
}

func (m *mockHAL) Sleep() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["sleep"]++
	if m.state == powerStateSleep {
		return errNAK
	}
	m.state = powerStateSleep
	m.sha = nil
	m.tempKey = nil
	m.msgDig = nil
	return nil
}

func (m *mockHAL) Wake() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["wake"]++

	m.rsp = nil
	m.busy = 0
	if m.wakeFailures > 0 {
		m.wakeFailures--
		return nil
	}
	if m.state != powerStateAwake {
		m.state = powerStateAwake
		m.rsp = wakeResponse[:]
	}
	return nil
}

var (
	statusOK        = []byte{0x00}
	statusMismatch  = []byte{0x01}
	statusParse     = []byte{0x03}
	statusExecution = []byte{0x0f}
)

func (m *mockHAL) handle(op, p1 uint8, p2 uint16, data []byte) []byte {
	switch op {
	case atcaInfo:
		return []byte{0x00, 0x00, 0x60, 0x02}
	case atcaRead:
		b, ok := m.memory(Zone(p1&0x03), p2, p1&atcaZoneReadWrite32 != 0)
		if !ok {
			return statusParse
		}
		return append([]byte{}, b...)
	case atcaWrite:
		b, ok := m.memory(Zone(p1&0x03), p2, p1&atcaZoneReadWrite32 != 0)
		if !ok || len(data) < len(b) {
			return statusParse
		}
		if Zone(p1&0x03) == ZoneConfig && m.config[ateccconf.LockOffset+3] != 0x55 {
			return statusExecution
		}
		copy(b, data)
		return statusOK
	case atcaRandom:
		out := make([]byte, 32)
		for i := range out {
			m.random++
			out[i] = m.random
		}
		return out
	case atcaNonce:
		if p1&0x03 != uint8(nonceModePassthrough) {
			m.tempKey = make([]byte, 32)
			return m.handle(atcaRandom, 0, 0, nil)
		}
		if p1&0xc0 == uint8(nonceTargetMsgDigBuf) {
			m.msgDig = append([]byte{}, data...)
		} else {
			m.tempKey = append([]byte{}, data...)
		}
		return statusOK
	case atcaSign:
		key := m.keys[p2&0x0f]
		if key == nil || m.msgDig == nil {
			return statusExecution
		}
		r, s, err := ecdsa.Sign(rand.Reader, key, m.msgDig)
		if err != nil {
			return statusExecution
		}
		sig := make([]byte, 64)
		r.FillBytes(sig[:32])
		s.FillBytes(sig[32:])
		return sig
	case atcaVerify:
		if len(data) != 128 || m.msgDig == nil {
			return statusParse
		}
		var x, y, r, s big.Int
		pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x.SetBytes(data[64:96]), Y: y.SetBytes(data[96:])}
		if !ecdsa.Verify(pub, m.msgDig, r.SetBytes(data[:32]), s.SetBytes(data[32:64])) {
			return statusMismatch
		}
		return statusOK
	case atcaGenKey:
		slot := p2 & 0x0f
		if p1 == genKeyModePrivate {
			key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
			if err != nil {
				return statusExecution
			}
			m.keys[slot] = key
		}
		key := m.keys[slot]
		if key == nil {
			return statusExecution
		}
		pub := make([]byte, 64)
		key.X.FillBytes(pub[:32])
		key.Y.FillBytes(pub[32:])
		return pub
	case atcaECDH:
		key := m.keys[p2&0x0f]
		if key == nil {
			return statusExecution
		}
		priv, err := key.ECDH()
		if err != nil {
			return statusExecution
		}
		peer, err := ecdh.P256().NewPublicKey(append([]byte{0x04}, data...))
		if err != nil {
			return statusExecution
		}
		secret, err := priv.ECDH(peer)
		if err != nil {
			return statusExecution
		}
		return secret
	case atcaSHA:
		return m.handleSHA(shaMode(p1), data)
	case atcaCounter:
		id := p2
		if id > 1 {
			return statusParse
		}
		if counterMode(p1) == counterModeIncrement {
			if m.counters[id] >= CounterMax {
				return statusExecution
			}
			m.counters[id]++
		}
		return binary.LittleEndian.AppendUint32(nil, m.counters[id])
	case atcaLock:
		switch lockZone(p1 & 0x03) {
		case lockZoneConfig:
			if lockMode(p1&0x80) == lockModeCRC && crc16(m.config[:]) != p2 {
				return statusExecution
			}
			m.config[ateccconf.LockOffset+3] = 0x00
		case lockZoneData:
			m.config[ateccconf.LockOffset+2] = 0x00
		case lockZoneDataSlot:
			slot := (p1 >> 2) & 0x0f
			m.config[88+slot/8] &^= 1 << (slot % 8)
		}
		return statusOK
	case atcaUpdateExtra:
		m.config[ateccconf.UserExtraOffset+int(p1&0x01)] = byte(p2)
		return statusOK
	default:
		return statusParse
	}
}

func (m *mockHAL) handleSHA(mode shaMode, data []byte) []byte {
	switch mode {
	case shaModeStart:
		m.sha = sha256.New()
		return statusOK
	case shaModeWriteContext:
		h := sha256.New()
		if err := h.(encoding.BinaryUnmarshaler).UnmarshalBinary(data); err != nil {
			return statusExecution
		}
		m.sha = h
		return statusOK
	}

	if m.sha == nil {
		return statusExecution
	}
	switch mode {
	case shaModeUpdate:
		m.sha.Write(data)
		return statusOK
	case shaModeEnd:
		m.sha.Write(data)
		sum := m.sha.Sum(nil)
		m.sha = nil
		return sum
	case shaModeReadContext:
		b, err := m.sha.(encoding.BinaryMarshaler).MarshalBinary()
		if err != nil {
			return statusExecution
		}
		return b
	default:
		return statusParse
	}
}

// memory returns the word or block addressed by a Read or Write.
func (m *mockHAL) memory(zone Zone, addr uint16, block bool) ([]byte, bool) {
	size := atcaWordSize
	if block {
		size = atcaBlockSize
	}

	var mem []byte
	var start int
	switch zone {
	case ZoneConfig:
		mem = m.config[:]
		start = int(addr>>3) * atcaBlockSize
	case ZoneData:
		mem = m.data[(addr>>3)&0x0f]
		start = int(addr>>8) * atcaBlockSize
	default:
		return nil, false
	}
	if !block {
		start += int(addr&0x07) * atcaWordSize
	}
	if start+size > len(mem) {
		return nil, false
	}
	return mem[start : start+size], true
}

// newTestDev opens a device on top of m.
func newTestDev(t *testing.T, m *mockHAL, opts ...func(*IfaceConfig)) *Dev {
	t.Helper()
	cfg := IfaceConfig{
		IfaceType:    IfaceI2C,
		DeviceType:   DeviceATECC608,
		RxRetries:    5,
		PollInterval: time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	d, err := New(context.Background(), m, cfg)
	require.NoError(t, err)
	m.resetCalls()
	return d
}
