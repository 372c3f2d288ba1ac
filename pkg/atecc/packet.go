package atecc

import (
	"encoding/binary"
	"fmt"
)

// Word address values. The first byte sent on I²C selects what the device does
// with the rest of the transfer.
const (
	wordAddressReset   = 0x00
	wordAddressSleep   = 0x01
	wordAddressIdle    = 0x02
	wordAddressCommand = 0x03
)

// Command definitions
const (
	// atcaCmdSizeMin is the minimum size of a command.
	//
	// It includes count, opcode, param1, param2 and crc.
	atcaCmdSizeMin = 7
	atcaCmdSizeMax = 4*36 + 7

	// atcaRspSizeMin is the size of a status response.
	//
	// It includes count, status and crc.
	atcaRspSizeMin = 4
)

const (
	// atcaBlockSize is the size of a block
	atcaBlockSize = 32
	// atcaWordSize is the size of a word
	atcaWordSize = 4
)

// packet represents an ATCA packet
type packet struct {
	opcode uint8
	param1 uint8
	param2 uint16
	data   []byte

	// respSize is the size of the payload returned on success. Commands that
	// only report a status use 1.
	respSize int
}

func newPacket(opcode uint8, param1 uint8, param2 uint16, data []byte, respSize int) (*packet, error) {
	if len(data) > atcaCmdSizeMax-atcaCmdSizeMin {
		return nil, fmt.Errorf("%w: data size %d exceeds maximum size", ErrEncoding, len(data))
	}
	if respSize < 1 {
		respSize = 1
	}
	return &packet{
		opcode:   opcode,
		param1:   param1,
		param2:   param2,
		data:     data,
		respSize: respSize,
	}, nil
}

func (p *packet) Size() uint8 {
	return atcaCmdSizeMin + uint8(len(p.data))
}

func (p *packet) String() string {
	return fmt.Sprintf("op=%#02x p1=%#02x p2=%#04x len=%d", p.opcode, p.param1, p.param2, len(p.data))
}

// packetEncoder encodes commands and decodes responses.
type packetEncoder struct {
}

// Encode returns the bytes to write to the device, word address included.
func (e *packetEncoder) Encode(p *packet) ([]byte, error) {
	if len(p.data) > atcaCmdSizeMax-atcaCmdSizeMin {
		return nil, fmt.Errorf("%w: data size %d exceeds maximum size", ErrEncoding, len(p.data))
	}
	size := p.Size()
	b := make([]byte, 0, int(size)+1)
	b = append(b, wordAddressCommand)
	b = append(b, size)
	b = append(b, p.opcode)
	b = append(b, p.param1)
	b = binary.LittleEndian.AppendUint16(b, p.param2)
	b = append(b, p.data...)
	return binary.LittleEndian.AppendUint16(b, crc16(b[1:])), nil
}

// Decode validates a complete response frame and returns its payload.
//
// A response is 1 byte count, payload and 2 bytes crc. Responses of 4 bytes
// carry a status code, which is returned as a *StatusError unless it reports
// success.
func (e *packetEncoder) Decode(opcode uint8, b []byte) ([]byte, error) {
	if len(b) < atcaRspSizeMin {
		return nil, fmt.Errorf("%w: got %d bytes", ErrFraming, len(b))
	}
	if int(b[0]) != len(b) {
		return nil, fmt.Errorf("%w: count %d, got %d bytes", ErrFraming, b[0], len(b))
	}

	n := len(b)
	if crc16(b[:n-2]) != binary.LittleEndian.Uint16(b[n-2:]) {
		return nil, ErrChecksum
	}

	payload := b[1 : n-2]
	if n == atcaRspSizeMin {
		if err := validateResponseStatusCode(opcode, payload[0]); err != nil {
			return nil, err
		}
	}
	return payload, nil
}
