package atecc

import "io"

// rwDebug logs every transfer on a byte transport.
type rwDebug struct {
	id   string
	l    Logger
	next io.ReadWriter
}

func (h *rwDebug) Read(p []byte) (int, error) {
	h.l.Printf("%5s >>  recv(%d)", h.id, len(p))
	n, err := h.next.Read(p)
	h.l.Printf("%5s <<  recv %d(%d) %+v", h.id, n, len(p), err)
	if n > 0 {
		h.l.Printf("%s", hexDump(p[:n]))
	}
	return n, err
}

func (h *rwDebug) Write(p []byte) (int, error) {
	h.l.Printf("%5s >>  send", h.id)
	if len(p) > 0 {
		h.l.Printf("%s", hexDump(p))
	}
	n, err := h.next.Write(p)
	h.l.Printf("%5s <<  send %d %+v", h.id, n, err)
	return n, err
}

// halDebug adds the power transitions to rwDebug.
type halDebug struct {
	rwDebug
	hal HAL
}

func newHALDebug(id string, l Logger, hal HAL) HAL {
	if l == nullLogger {
		return hal
	}
	return &halDebug{rwDebug{id, l, hal}, hal}
}

func (h *halDebug) Idle() error {
	h.l.Printf("%5s >>  idle", h.id)
	err := h.hal.Idle()
	h.l.Printf("%5s <<  idle %#v", h.id, err)
	return err
}

func (h *halDebug) Sleep() error {
	h.l.Printf("%5s >>  sleep", h.id)
	err := h.hal.Sleep()
	h.l.Printf("%5s <<  sleep %#v", h.id, err)
	return err
}

func (h *halDebug) Wake() error {
	h.l.Printf("%5s >>  wake", h.id)
	err := h.hal.Wake()
	h.l.Printf("%5s <<  wake %#v", h.id, err)
	return err
}
