package hw

import (
	"errors"
	"fmt"
)

// ErrTransport is returned when a bus transaction cannot complete. It is never retried.
var ErrTransport = errors.New("bus transport failure")

// Conn is a full-duplex byte transport. spi.Conn satisfies it.
type Conn interface {
	Tx(w, r []byte) error
}

// Bus performs select-transfer-deselect transactions on one physical bus.
// It is not safe for concurrent use; callers are expected to issue transactions
// from a single goroutine.
type Bus struct {
	name string
	conn Conn
}

func NewBus(name string, conn Conn) *Bus {
	return &Bus{name: name, conn: conn}
}

// Transact asserts sel, clocks out w followed by n dummy bytes, and releases sel.
// It returns the n bytes clocked in after w, or nil when n is zero.
// The select line is released even when the transfer fails.
func (b *Bus) Transact(sel SelectLine, w []byte, n int) (resp []byte, err error) {
	if n < 0 {
		return nil, fmt.Errorf("%s: negative read length %d", b.name, n)
	}

	tx := make([]byte, len(w)+n)
	copy(tx, w)
	rx := make([]byte, len(tx))

	if err = sel.Assert(); err != nil {
		return nil, err
	}
	defer func() {
		if rErr := sel.Release(); rErr != nil && err == nil {
			err = rErr
			resp = nil
		}
	}()

	if err = b.conn.Tx(tx, rx); err != nil {
		return nil, fmt.Errorf("%w: %s transfer via %s: %w", ErrTransport, b.name, sel, err)
	}

	if n == 0 {
		return nil, nil
	}
	return rx[len(w):], nil
}

// Write is Transact without a read phase.
func (b *Bus) Write(sel SelectLine, w []byte) error {
	_, err := b.Transact(sel, w, 0)
	return err
}

func (b *Bus) String() string { return b.name }
