package ddcci

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

// Addr is the 7-bit I²C address of the DDC/CI interface of a display.
const Addr uint16 = 0x37

// DefaultDelay is the minimum gap between two bus operations.
const DefaultDelay = 50 * time.Millisecond

// ErrHalted is returned by every operation after Halt.
var ErrHalted = errors.New("ddcci: halted")

// Opts is the configuration for a DDC/CI device.
type Opts struct {
	Addr   uint16      // 7-bit address (default: 0x37)
	Logger *zap.Logger // Transfer dumps and reply diagnostics (default: no-op)
}

// Dev is a handle to the DDC/CI interface of one display.
//
// All operations on a Dev are serialized; a request and its reply are never
// interleaved with another caller's traffic.
type Dev struct {
	mu  sync.Mutex
	c   conn.Conn
	log *zap.Logger

	// Pacing
	last   time.Time     // End of the previous bus operation
	settle time.Duration // Extra gap required by the previous operation

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	halted bool
}

// NewI2C returns a device talking DDC/CI on the I²C bus b.
//
// opts can be nil to use defaults.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if b == nil {
		return nil, errors.New("ddcci: nil bus")
	}
	if opts == nil {
		opts = &Opts{}
	}
	addr := opts.Addr
	if addr == 0 {
		addr = Addr
	}
	if addr > 0x7f {
		return nil, fmt.Errorf("ddcci: address 0x%x is not a 7-bit address", addr)
	}
	return New(&i2c.Dev{Bus: b, Addr: addr}, opts), nil
}

// New returns a device using an already bound connection. Every byte written
// to c must reach the display at the DDC/CI address.
func New(c conn.Conn, opts *Opts) *Dev {
	log := zap.NewNop()
	if opts != nil && opts.Logger != nil {
		log = opts.Logger
	}
	return &Dev{
		c:     &dumpConn{Conn: c, log: log},
		log:   log,
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Send writes cmd once at least minDelay has passed since the previous bus
// operation.
//
// ctx is only checked before the write; a started transfer is never aborted.
// A failed write is not retried.
func (d *Dev) Send(ctx context.Context, cmd Command, minDelay time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.send(ctx, cmd, minDelay)
}

// Receive reads a reply carrying n payload bytes once minDelay has passed
// since the previous bus operation. n must fit the 7-bit length byte.
//
// The returned Validation describes the integrity of the reply; the payload is
// returned even when it is not OK.
func (d *Dev) Receive(ctx context.Context, n int, minDelay time.Duration) ([]byte, Validation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.receive(ctx, n, minDelay)
}

// Halt makes the device unusable. The display itself is left untouched.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halted = true
	return nil
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	if dc, ok := d.c.(*dumpConn); ok {
		return fmt.Sprintf("ddcci.Dev{%s}", dc.Conn)
	}
	return fmt.Sprintf("ddcci.Dev{%s}", d.c)
}

func (d *Dev) send(ctx context.Context, cmd Command, minDelay time.Duration) error {
	if d.halted {
		return ErrHalted
	}
	frame := Encode(cmd.Opcode, cmd.Args...)
	if err := d.pace(ctx, minDelay); err != nil {
		return err
	}
	err := d.c.Tx(frame[1:], nil)
	d.last = d.now()
	if err != nil {
		return fmt.Errorf("ddcci: write %s: %w", Dump(frame), err)
	}
	return nil
}

func (d *Dev) receive(ctx context.Context, n int, minDelay time.Duration) ([]byte, Validation, error) {
	if d.halted {
		return nil, Validation{}, ErrHalted
	}
	if n < 0 || n > maxPayload {
		return nil, Validation{}, fmt.Errorf("ddcci: reply length %d out of range 0-%d", n, maxPayload)
	}
	if err := d.pace(ctx, minDelay); err != nil {
		return nil, Validation{}, err
	}
	raw := make([]byte, n+3)
	err := d.c.Tx(nil, raw)
	d.last = d.now()
	if err != nil {
		return nil, Validation{}, fmt.Errorf("ddcci: read %d bytes: %w", len(raw), err)
	}
	payload, v := Decode(raw, DisplaySource)
	if !v.OK() {
		d.log.Warn("reply failed checks",
			zap.Strings("failed", v.Failed()),
			zap.String("raw", Dump(raw)),
		)
	}
	return payload, v, nil
}

// pace blocks until the gap required since the previous operation has passed.
// Gaps never stack: the longer of minDelay and the pending settle time wins.
func (d *Dev) pace(ctx context.Context, minDelay time.Duration) error {
	gap := minDelay
	if d.settle > gap {
		gap = d.settle
	}
	if !d.last.IsZero() {
		if wait := gap - d.now().Sub(d.last); wait > 0 {
			if err := d.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.settle = 0
	return nil
}

// hold requires at least gap between the operation just issued and the next.
func (d *Dev) hold(gap time.Duration) {
	if gap > d.settle {
		d.settle = gap
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
