package atecc

// HAL is the transport used to reach the device.
type HAL interface {
	// Read reads a response frame of at most len(p) bytes into p.
	//
	// An error or a first byte of 0xff means that the device is still busy.
	Read(p []byte) (int, error)
	// Write writes len(p) bytes from p to the device.
	Write(p []byte) (int, error)
	// Idle puts the device into idle state.
	Idle() error
	// Sleep puts the device into sleep state.
	Sleep() error
	// Wake sends the wake token. The wake response is read using Read.
	Wake() error
}
