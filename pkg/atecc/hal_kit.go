package atecc

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// halKit speaks the ASCII kit protocol of Microchip's evaluation boards.
//
// Every request is a line such as "E:t(0730...)" and the kit answers with a
// line holding a status and hex encoded data, "00(...)". The kit handles the
// physical bus, including waking the device.
type halKit struct {
	phy io.ReadWriter
	buf []byte
	// pad fills every write up to the packet size, as HID reports have a
	// fixed length.
	pad bool
	cfg IfaceConfig

	// wake holds the wake response until it is read.
	wake []byte
}

var (
	errNoDevice  = errors.New("atecc: no device found")
	errKitStatus = errors.New("atecc: kit error")
	errKitSilent = errors.New("atecc: no reply from kit")
)

func newHALKit(ctx context.Context, phy io.ReadWriter, cfg IfaceConfig) (*halKit, error) {
	size, pad := getPacketSize(cfg)
	kit := &halKit{
		phy: &rwDebug{"kit", getLogger(cfg), phy},
		buf: make([]byte, size),
		pad: pad,
		cfg: cfg,
	}
	return kit, kit.init(ctx)
}

func kitIDFromDeviceType(deviceType DeviceType) string {
	switch deviceType {
	case DeviceATECC608:
		return "ECC608"
	case DeviceATECC508:
		return "ECC508"
	default:
		return "unknown"
	}
}

func deviceTypeFromKitID(id string) (DeviceType, error) {
	switch {
	case strings.HasPrefix(id, "ECC6"):
		return DeviceATECC608, nil
	case strings.HasPrefix(id, "ECC5"):
		return DeviceATECC508, nil
	default:
		return DeviceType(0), fmt.Errorf("atecc: unknown device type %q", id)
	}
}

func kitTypeFromKitIface(iface string) (KitType, error) {
	switch iface {
	case "TWI":
		return KitTypeI2C, nil
	case "SWI":
		return KitTypeSWI, nil
	case "SPI":
		return KitTypeSPI, nil
	default:
		return KitType(0), fmt.Errorf("atecc: unknown kit type %q", iface)
	}
}

func kitIface(kitType KitType) string {
	switch kitType {
	case KitTypeI2C:
		return "TWI"
	case KitTypeSWI:
		return "SWI"
	case KitTypeSPI:
		return "SPI"
	default:
		return "unknown"
	}
}

const (
	kitMaxScanCount = 8

	kitMsgSize    = 32
	kitRxWrapSize = kitMsgSize + 6
)

func (h *halKit) init(ctx context.Context) error {
	var (
		devIndex    int
		kitType     KitType
		devIdentity uint8
	)
	switch h.cfg.IfaceType {
	case IfaceHID:
		devIndex = h.cfg.HID.DevIndex
		kitType = h.cfg.HID.KitType
		devIdentity = h.cfg.HID.DevIdentity
	case IfaceCDC:
		kitType = h.cfg.CDC.KitType
	default:
		kitType = KitTypeAuto
	}

	// Iterate to find the target device
	for i := 0; i < kitMaxScanCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		dev, err := h.getKitDeviceByIndex(i)
		if errors.Is(err, errNoDevice) {
			continue
		} else if err != nil {
			return err
		}

		// Check if the returned device is a device we want to pick
		if devIndex != 0 && devIndex != i {
			continue
		}
		if devIdentity != 0 && devIdentity != dev.Address {
			continue
		}
		if h.cfg.DeviceType != dev.DeviceType {
			continue
		}
		if kitType != KitTypeAuto && kitType != dev.KitType {
			continue
		}

		if kitType != KitTypeAuto {
			if err := h.selectInterface(kitType); err != nil {
				return err
			}
		}

		return h.selectDevice(dev.Address)
	}

	return errors.New("atecc: failed to discover device")
}

// command formats a request for the selected device.
func (h *halKit) command(format string, args ...any) []byte {
	kitID := kitIDFromDeviceType(h.cfg.DeviceType)
	return []byte(fmt.Sprintf("%c:", kitID[0]) + fmt.Sprintf(format, args...) + "\n")
}

// Wake asks the kit to wake the device. The wake response is returned by
// the next Read.
func (h *halKit) Wake() error {
	var data [atcaRspSizeMin]byte
	n, err := h.executeResponse(h.command("w()"), data[:])
	if err != nil {
		return err
	}
	h.wake = append(h.wake[:0], data[:n]...)
	return nil
}

func (h *halKit) Idle() error {
	return h.execute(h.command("i()"))
}

func (h *halKit) Sleep() error {
	return h.execute(h.command("s()"))
}

// Write sends a command. The kit adds the word address itself.
func (h *halKit) Write(data []byte) (int, error) {
	frame := data
	if len(frame) > 0 && frame[0] == wordAddressCommand {
		frame = frame[1:]
	}
	payload := strings.ToUpper(hex.EncodeToString(frame))
	if _, err := h.phySend(h.command("t(%s)", payload)); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (h *halKit) Read(dst []byte) (int, error) {
	if len(h.wake) > 0 {
		if len(h.wake) > len(dst) {
			return 0, errRecvBuffer
		}
		n := copy(dst, h.wake)
		h.wake = h.wake[:0]
		return n, nil
	}

	msg := hex.EncodedLen(len(dst)) + kitRxWrapSize
	pkt := len(h.buf)
	buf := make([]byte, (msg/pkt+1)*pkt)

	n, err := h.phyRecv(buf)
	if err != nil {
		return 0, err
	}
	return kitParseRsp(buf[:n], dst)
}

func (h *halKit) execute(command []byte) error {
	var data [10]byte
	_, err := h.executeResponse(command, data[:])
	return err
}

func (h *halKit) executeResponse(command []byte, data []byte) (int, error) {
	if _, err := h.phySend(command); err != nil {
		return 0, err
	}

	reply := make([]byte, len(h.buf)*2)
	n, err := h.phyRecv(reply)
	if err != nil {
		return 0, err
	}
	return kitParseRsp(reply[:n], data)
}

func (h *halKit) getKitDeviceByIndex(index int) (kitDevice, error) {
	command := fmt.Sprintf("board:device(%02X)\n", index)
	if _, err := h.phySend([]byte(command)); err != nil {
		return kitDevice{}, err
	}

	reply := make([]byte, len(h.buf)*2)
	n, err := h.phyRecv(reply)
	if err != nil {
		return kitDevice{}, err
	}
	return parseKitDevice(reply[:n])
}

func (h *halKit) selectInterface(kitType KitType) error {
	return h.execute(h.command("physical:interface(%s)", kitIface(kitType)))
}

func (h *halKit) selectDevice(address uint8) error {
	return h.execute(h.command("physical:select(%02X)", address))
}

type kitDevice struct {
	DeviceType DeviceType
	KitType    KitType
	Address    uint8
}

func parseKitDevice(buf []byte) (kitDevice, error) {
	var (
		kitID    string
		kitIface string
		index    uint8
		address  uint8
	)
	if bytes.HasPrefix(buf, []byte("no_device")) {
		return kitDevice{}, errNoDevice
	}
	_, err := fmt.Sscanf(
		string(buf), "%s %s %02X(%02X)", &kitID, &kitIface, &index, &address,
	)
	if err != nil {
		return kitDevice{}, fmt.Errorf("atecc: invalid kit device: %w", err)
	}

	if dt, err := deviceTypeFromKitID(kitID); err != nil {
		return kitDevice{}, err
	} else if kt, err := kitTypeFromKitIface(kitIface); err != nil {
		return kitDevice{}, err
	} else {
		return kitDevice{dt, kt, address}, nil
	}
}

// phySend writes txData in packet sized chunks.
func (h *halKit) phySend(txData []byte) (int, error) {
	sent := 0
	for sent < len(txData) {
		n := copy(h.buf, txData[sent:])
		chunk := h.buf[:n]
		if h.pad {
			clear(h.buf[n:])
			chunk = h.buf
		}

		if _, err := h.phy.Write(chunk); err != nil {
			return sent, err
		}
		sent += n
	}
	return sent, nil
}

// phyRecv reads one reply line into data, without the newline.
func (h *halKit) phyRecv(data []byte) (int, error) {
	read := 0
	for {
		n, err := h.phy.Read(h.buf)
		if err != nil {
			return read, err
		}
		if n == 0 {
			return read, errKitSilent
		}

		chunk := h.buf[:n]
		end := bytes.IndexByte(chunk, '\n')
		if end != -1 {
			chunk = chunk[:end]
		}

		// error out to make sure we never loose any data
		if read+len(chunk) > len(data) {
			return read, errors.New("atecc: buffer overflow")
		}
		read += copy(data[read:], chunk)

		if end != -1 {
			return read, nil
		}
	}
}

// kitParseRsp decodes a reply such as "00(04113343)" into dst.
func kitParseRsp(reply []byte, dst []byte) (int, error) {
	if len(reply) < 3 || reply[2] != '(' {
		return 0, fmt.Errorf("atecc: invalid kit reply %q", reply)
	}

	var status [1]byte
	if _, err := hex.Decode(status[:], reply[0:2]); err != nil {
		return 0, err
	} else if status[0] != 0x00 {
		return 0, fmt.Errorf("%w: status %#02x", errKitStatus, status[0])
	}

	index := bytes.IndexByte(reply[3:], ')')
	if index == -1 {
		return 0, errors.New("atecc: failed to find end of frame")
	}
	size := hex.DecodedLen(index)
	if size > len(dst) {
		return 0, errRecvBuffer
	}

	body := reply[3 : 3+index]
	return hex.Decode(dst, body)
}

// getPacketSize returns the transfer size and if writes are padded to it.
func getPacketSize(cfg IfaceConfig) (int, bool) {
	switch cfg.IfaceType {
	case IfaceHID:
		return cfg.HID.PacketSize, true
	default:
		return 64, false
	}
}
