// internal/keyence/client.go
package keyence

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/kvlogger/internal/logger"
)

const (
	DefaultTimeout     = 2 * time.Second
	DefaultMaxResponse = 1024
)

var errResponseTooLong = errors.New("response exceeds bound without terminator")

// Address is the PLC endpoint. Timeout governs the dial and every
// subsequent round trip.
type Address struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Descriptor maps a measurement name to a register read.
type Descriptor struct {
	Name    string
	Address string // e.g. "DM1000"
	Format  DataFormat
	Count   int
}

// Frame is the result of one poll cycle, keys in configuration order.
type Frame struct {
	Keys   []string
	Values map[string]Value
}

// Len returns the number of values in the frame.
func (f Frame) Len() int { return len(f.Keys) }

// Dialer is satisfied by *net.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithMaxResponse bounds the length of a single response line.
func WithMaxResponse(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResp = n
		}
	}
}

// Client talks to one PLC. One request is in flight at a time;
// all public operations are serialized.
type Client struct {
	mu      sync.Mutex
	status  atomic.Int32
	conn    net.Conn
	rd      *bufio.Reader
	timeout time.Duration

	descs    []Descriptor
	commands []string // parallel to descs

	dialer  Dialer
	maxResp int
	log     *logger.Logger
}

// New validates descs and prebuilds the read command for each one.
func New(descs []Descriptor, opts ...Option) (*Client, error) {
	c := &Client{
		timeout: DefaultTimeout,
		dialer:  &net.Dialer{},
		maxResp: DefaultMaxResponse,
		log:     logger.Nop(),
	}
	for _, o := range opts {
		o(c)
	}

	seen := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		if d.Name == "" {
			return nil, opErr("new", ErrInvalidArgument, errors.New("descriptor name required"))
		}
		if _, dup := seen[d.Name]; dup {
			return nil, opErr("new", ErrInvalidArgument, fmt.Errorf("duplicate descriptor %q", d.Name))
		}
		seen[d.Name] = struct{}{}

		cmd, err := BuildRead(d.Address, d.Format, d.Count)
		if err != nil {
			return nil, fmt.Errorf("descriptor %q: %w", d.Name, err)
		}
		c.descs = append(c.descs, d)
		c.commands = append(c.commands, cmd)
	}

	c.status.Store(int32(StatusNotConnected))
	return c, nil
}

// Status returns the current connection state. Safe to call at any time.
func (c *Client) Status() Status {
	return Status(c.status.Load())
}

// Descriptors returns a copy of the configured descriptors.
func (c *Client) Descriptors() []Descriptor {
	out := make([]Descriptor, len(c.descs))
	copy(out, c.descs)
	return out
}

func (c *Client) setStatus(s Status) {
	c.status.Store(int32(s))
}

// Connect dials the PLC. Calling it while connected is a no-op.
func (c *Client) Connect(ctx context.Context, addr Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Status() == StatusConnected {
		return nil
	}
	if addr.Host == "" || addr.Port <= 0 || addr.Port > 65535 {
		return opErr("connect", ErrInvalidArgument, fmt.Errorf("bad address %q", addr.String()))
	}

	timeout := addr.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(dctx, "tcp", addr.String())
	if err != nil {
		c.resetLocked()
		kind := classifyDialErr(ctx, err)
		c.log.Warnw("plc_connect_failed", "addr", addr.String(), "kind", kind.Error(), "err", err)
		return opErr("connect", kind, err)
	}

	c.conn = conn
	c.rd = bufio.NewReaderSize(conn, 256)
	c.timeout = timeout
	c.setStatus(StatusConnected)

	c.log.Infow("plc_connected", "addr", addr.String())
	return nil
}

// classifyDialErr maps a dial failure to a kind. A caller that gave up
// is not a device timeout.
func classifyDialErr(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return ErrCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrConnectionTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrConnectionTimeout
	}
	return ErrConnectionRefused
}

// Disconnect closes the socket and returns to NotConnected.
// Accepted from every state and idempotent.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasOpen := c.conn != nil
	err := c.resetLocked()
	if wasOpen {
		c.log.Infow("plc_disconnected")
	}
	return err
}

func (c *Client) resetLocked() error {
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.conn = nil
	c.rd = nil
	c.setStatus(StatusNotConnected)
	return err
}

// failLocked drops the connection after an I/O failure.
func (c *Client) failLocked(op string, kind error, cause error) error {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.rd = nil
	c.setStatus(StatusError)

	c.log.Errorw("plc_io_failed", "op", op, "err", cause)
	return opErr(op, kind, cause)
}

// ReadDeviceIdentity sends ?K and returns the model text.
func (c *Client) ReadDeviceIdentity() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundTrip("identity", CmdDeviceIdentity)
}

// ReadErrorNumber sends ?E and returns the error number text.
func (c *Client) ReadErrorNumber() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundTrip("error_number", CmdErrorNumber)
}

// ClearError sends ER.
func (c *Client) ClearError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expectOK("clear_error", CmdClearError)
}

// SetClock writes t into the PLC calendar.
func (c *Client) SetClock(t time.Time) error {
	cmd, err := ClockSetFromTime(t)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expectOK("set_clock", cmd)
}

func (c *Client) expectOK(op, cmd string) error {
	resp, err := c.roundTrip(op, cmd)
	if err != nil {
		return err
	}
	if resp != "OK" {
		return opErr(op, ErrMalformedResponse, fmt.Errorf("unexpected reply %q", resp))
	}
	return nil
}

// ReadValue reads exactly one value at d.Address, ignoring d.Count.
func (c *Client) ReadValue(d Descriptor) (Value, error) {
	cmd, err := BuildRead(d.Address, d.Format, 1)
	if err != nil {
		return Value{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	vals, err := c.readLocked(d.Format, 1, cmd)
	if err != nil {
		return Value{}, err
	}
	return vals[0], nil
}

// ReadValues reads d.Count consecutive values.
func (c *Client) ReadValues(d Descriptor) ([]Value, error) {
	count := d.Count
	if count < 1 {
		count = 1
	}
	cmd, err := BuildRead(d.Address, d.Format, count)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked(d.Format, count, cmd)
}

// PollAll reads every configured descriptor in order.
// Not atomic: the first failure aborts the cycle and nothing is returned.
func (c *Client) PollAll() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := Frame{
		Keys:   make([]string, 0, len(c.descs)),
		Values: make(map[string]Value, len(c.descs)),
	}

	for i, d := range c.descs {
		count := d.Count
		if count < 1 {
			count = 1
		}

		vals, err := c.readLocked(d.Format, count, c.commands[i])
		if err != nil {
			return Frame{}, err
		}

		if count == 1 {
			frame.Keys = append(frame.Keys, d.Name)
			frame.Values[d.Name] = vals[0]
			continue
		}
		for j, v := range vals {
			key := ElementKey(d.Name, j)
			frame.Keys = append(frame.Keys, key)
			frame.Values[key] = v
		}
	}

	return frame, nil
}

// ElementKey names element i of a multi-word descriptor.
func ElementKey(name string, i int) string {
	return name + "[" + strconv.Itoa(i) + "]"
}

func (c *Client) readLocked(f DataFormat, count int, cmd string) ([]Value, error) {
	resp, err := c.roundTrip("read", cmd)
	if err != nil {
		return nil, err
	}
	if count == 1 {
		v, err := DecodeValue(resp, f)
		if err != nil {
			return nil, err
		}
		return []Value{v}, nil
	}
	return DecodeValues(resp, f, count)
}

// roundTrip sends one command and reads one response line.
// Caller holds c.mu.
func (c *Client) roundTrip(op, cmd string) (string, error) {
	if c.Status() != StatusConnected || c.conn == nil {
		return "", opErr(op, ErrNotConnected, nil)
	}

	_ = c.conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := io.WriteString(c.conn, cmd); err != nil {
		return "", c.failLocked(op, ErrCommunication, err)
	}

	resp, err := c.readResponse()
	if err != nil {
		if errors.Is(err, errResponseTooLong) {
			return "", c.failLocked(op, ErrMalformedResponse, err)
		}
		return "", c.failLocked(op, ErrCommunication, err)
	}

	if de := deviceError(resp); de != nil {
		return "", opErr(op, ErrDeviceRejected, de)
	}
	return resp, nil
}

// readResponse reads up to CR. A LF left over from a previous CR LF
// is skipped.
func (c *Client) readResponse() (string, error) {
	buf := make([]byte, 0, 64)
	for {
		b, err := c.rd.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case '\n':
			if len(buf) == 0 {
				continue
			}
			return string(buf), nil
		case '\r':
			return string(buf), nil
		}
		if len(buf) >= c.maxResp {
			return "", fmt.Errorf("%w (%d bytes)", errResponseTooLong, c.maxResp)
		}
		buf = append(buf, b)
	}
}
