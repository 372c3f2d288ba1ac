package atecc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

// CounterMax is the largest value of a monotonic counter.
const CounterMax = 2097151

// CounterRead returns the value of monotonic counter id, 0 or 1.
func (d *Dev) CounterRead(ctx context.Context, id int) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counter(ctx, counterModeRead, id)
}

// CounterIncrement increments monotonic counter id, 0 or 1, and returns the
// new value.
//
// ErrCounterSaturated is returned once the counter has reached CounterMax.
func (d *Dev) CounterIncrement(ctx context.Context, id int) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.counter(ctx, counterModeIncrement, id)
	if errors.Is(err, ErrExecution) {
		cur, rerr := d.counter(ctx, counterModeRead, id)
		if rerr == nil && cur >= CounterMax {
			return cur, fmt.Errorf("%w: counter %d", ErrCounterSaturated, id)
		}
	}
	return v, err
}

func (d *Dev) counter(ctx context.Context, mode counterMode, id int) (uint32, error) {
	if id != 0 && id != 1 {
		return 0, fmt.Errorf("%w: counter %d", ErrInvalidParameter, id)
	}
	p, err := newCounterCommand(mode, uint16(id))
	if err != nil {
		return 0, err
	}

	var buf [4]byte
	n, err := d.execute(ctx, p, buf[:])
	if err != nil {
		return 0, err
	} else if n != len(buf) {
		return 0, fmt.Errorf("atecc: unexpected counter size: %d", n)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
