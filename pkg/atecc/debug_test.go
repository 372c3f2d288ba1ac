package atecc

import (
	"fmt"
	"testing"
)

func TestHexDump(t *testing.T) {
	want := "h -> \n00000000  66 6f 6f 62 61 72                                 |foobar|\n\n <- h"
	got := fmt.Sprintf("h -> %s <- h", hexDump([]byte("foobar")))
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

type bufLogger struct {
	lines []string
}

func (l *bufLogger) Printf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestHALDebug(t *testing.T) {
	m := newMockHAL(t)
	if hal := newHALDebug("ecc", nullLogger, m); hal != HAL(m) {
		t.Error("null logger should not wrap the hal")
	}

	var l bufLogger
	hal := newHALDebug("ecc", &l, m)
	if err := hal.Wake(); err != nil {
		t.Fatal(err)
	}
	var ack [4]byte
	if _, err := hal.Read(ack[:]); err != nil {
		t.Fatal(err)
	}
	if len(l.lines) != 5 {
		t.Errorf("got %d lines: %q", len(l.lines), l.lines)
	}
}
