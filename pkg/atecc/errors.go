package atecc

import (
	"errors"
	"fmt"
)

// Driver errors.
var (
	// ErrWake is returned when the device did not acknowledge the wake token
	// after all wake attempts.
	ErrWake = errors.New("atecc: device did not wake up")

	// ErrTimeout is returned when no response was received within the polling
	// budget. The device state is unknown afterwards and it will be woken up
	// again before the next command.
	ErrTimeout = errors.New("atecc: timeout waiting for response")

	ErrInvalidSlot      = errors.New("atecc: invalid slot")
	ErrZoneLocked       = errors.New("atecc: zone is locked")
	ErrInvalidParameter = errors.New("atecc: invalid parameter")

	// ErrSequence is returned when a multi-command sequence can not be
	// started or continued, such as a second SHA-256 session.
	ErrSequence = errors.New("atecc: command sequence error")

	// ErrEncoding is returned when a command could not be framed.
	ErrEncoding = errors.New("atecc: command encoding error")

	ErrCounterSaturated = errors.New("atecc: counter reached its maximum value")

	// ErrChecksum is returned when the CRC of a response does not match.
	ErrChecksum = errors.New("atecc: received crc mismatch")

	// ErrFraming is returned when the length of a response does not match its
	// count byte.
	ErrFraming = errors.New("atecc: invalid response length")
)

// Status errors reported by the device. See datasheet for specification.
var (
	// ErrMiscompare is reported by CheckMac and Verify when the input did not
	// match.
	ErrMiscompare = errors.New("atecc: check mac or verify miscompare")

	// ErrParse is used when protocol was not understood.
	//
	// Received length, op-code or any parameter was illegal.
	ErrParse = errors.New("atecc: protocol error")

	ErrECCFault   = errors.New("atecc: ecc failed to process")
	ErrSelfTest   = errors.New("atecc: self-test failed")
	ErrHealthTest = errors.New("atecc: health test failed")
	ErrExecution  = errors.New("atecc: execution error")

	// ErrWakeSuccessful is used when device is successfully woken up.
	//
	// This is an error for any command except for wake.
	ErrWakeSuccessful = errors.New("atecc: wake successful")

	// ErrWatchdog is reported when there is not enough time left before the
	// watchdog expires to execute the command.
	ErrWatchdog = errors.New("atecc: watchdog about to expire")

	// ErrCommunication is used for checksum mismatch or other communication
	// error detected by the device.
	//
	// This is a transient error and the command should be re-transmitted.
	ErrCommunication = errors.New("atecc: crc or communication error")

	ErrUnknownStatus = errors.New("atecc: unknown status")
)

// StatusError is returned when the device answers a command with a non-zero
// status code. It unwraps to one of the status errors above.
type StatusError struct {
	Opcode uint8
	Status uint8
	err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (opcode %#02x, status %#02x)", e.err, e.Opcode, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.err
}

func statusErr(status uint8) error {
	switch status {
	case 0x00:
		return nil
	case 0x01:
		return ErrMiscompare
	case 0x03:
		return ErrParse
	case 0x05:
		return ErrECCFault
	case 0x07:
		return ErrSelfTest
	case 0x08:
		return ErrHealthTest
	case 0x0f:
		return ErrExecution
	case 0x11:
		return ErrWakeSuccessful
	case 0xee:
		return ErrWatchdog
	case 0xff:
		return ErrCommunication
	default:
		return ErrUnknownStatus
	}
}

// validateResponseStatusCode validates the status code returned by protocol.
//
// The status code is the only byte of a 4 byte response and indicates how
// the command was processed by the device.
func validateResponseStatusCode(opcode uint8, status uint8) error {
	if err := statusErr(status); err != nil {
		return &StatusError{Opcode: opcode, Status: status, err: err}
	}
	return nil
}

// IOError is returned when the transport failed. The device state is unknown
// afterwards.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return "atecc: " + e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Package errors.
var (
	errRecvBuffer = errors.New("atecc: recv buffer too small")
)
