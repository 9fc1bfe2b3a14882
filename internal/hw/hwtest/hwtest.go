// Package hwtest provides recording fakes for the hw capability interfaces.
package hwtest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// Event is one observed pin change or bus transfer.
type Event struct {
	Source string
	Level  gpio.Level // pin events
	Tx     []byte     // bus events, nil for pin events
}

func (e Event) String() string {
	if e.Tx != nil {
		return fmt.Sprintf("%s tx % X", e.Source, e.Tx)
	}
	return fmt.Sprintf("%s=%v", e.Source, e.Level)
}

// Log is a shared, ordered record of events across pins and buses.
type Log struct {
	mu     sync.Mutex
	events []Event
}

func (l *Log) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Reset discards all recorded events.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// String renders the log one event per line, handy in failure messages.
func (l *Log) String() string {
	var sb strings.Builder
	for _, e := range l.Events() {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Pin is a fake digital output.
type Pin struct {
	Name string
	Log  *Log
	Fail bool

	mu      sync.Mutex
	level   gpio.Level
	history []gpio.Level
}

func NewPin(name string, log *Log) *Pin {
	return &Pin{Name: name, Log: log}
}

func (p *Pin) Out(l gpio.Level) error {
	if p.Fail {
		return ErrInjected
	}
	p.mu.Lock()
	p.level = l
	p.history = append(p.history, l)
	p.mu.Unlock()

	if p.Log != nil {
		p.Log.add(Event{Source: p.Name, Level: l})
	}
	return nil
}

// Level returns the last driven level.
func (p *Pin) Level() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// History returns every level driven so far.
func (p *Pin) History() []gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]gpio.Level, len(p.history))
	copy(out, p.history)
	return out
}

// Conn is a fake full-duplex transport. Each Tx consumes the next queued reply and
// copies it into the tail of the read buffer.
type Conn struct {
	Name string
	Log  *Log
	Fail bool

	mu      sync.Mutex
	replies [][]byte
	writes  [][]byte
}

func NewConn(name string, log *Log) *Conn {
	return &Conn{Name: name, Log: log}
}

// QueueReply adds bytes to be clocked in by a future transfer.
func (c *Conn) QueueReply(reply ...byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, reply)
}

func (c *Conn) Tx(w, r []byte) error {
	if c.Fail {
		return ErrInjected
	}
	if len(r) != len(w) {
		return fmt.Errorf("hwtest: read buffer %d bytes, write buffer %d bytes", len(r), len(w))
	}

	out := make([]byte, len(w))
	copy(out, w)

	c.mu.Lock()
	c.writes = append(c.writes, out)
	if len(c.replies) > 0 {
		reply := c.replies[0]
		c.replies = c.replies[1:]
		if len(reply) <= len(r) {
			copy(r[len(r)-len(reply):], reply)
		}
	}
	c.mu.Unlock()

	if c.Log != nil {
		c.Log.add(Event{Source: c.Name, Tx: out})
	}
	return nil
}

// Writes returns every buffer clocked out so far.
func (c *Conn) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// Reset discards recorded writes and pending replies.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = nil
	c.replies = nil
}
