// internal/keyence/client_test.go
package keyence

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ---- mock PLC ----

const (
	replyDrop = "\x00drop" // close the connection instead of answering
	replyHang = "\x00hang" // never answer
)

type mockPLC struct {
	ln     net.Listener
	handle func(cmd string) string

	mu   sync.Mutex
	cmds []string
}

func newMockPLC(t *testing.T, handle func(cmd string) string) *mockPLC {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	m := &mockPLC{ln: ln, handle: handle}
	go m.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return m
}

func (m *mockPLC) serve() {
	for {
		conn, err := m.ln.Accept()
		if err != nil {
			return
		}
		go m.serveConn(conn)
	}
}

func (m *mockPLC) serveConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\r')
		if err != nil {
			return
		}
		cmd := strings.TrimSuffix(line, "\r")

		m.mu.Lock()
		m.cmds = append(m.cmds, cmd)
		m.mu.Unlock()

		switch resp := m.handle(cmd); resp {
		case replyDrop:
			return
		case replyHang:
			continue
		default:
			if _, err := io.WriteString(conn, resp+"\r\n"); err != nil {
				return
			}
		}
	}
}

func (m *mockPLC) commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.cmds))
	copy(out, m.cmds)
	return out
}

func (m *mockPLC) address(timeout time.Duration) Address {
	tcp := m.ln.Addr().(*net.TCPAddr)
	return Address{Host: "127.0.0.1", Port: tcp.Port, Timeout: timeout}
}

func table(replies map[string]string) func(string) string {
	return func(cmd string) string {
		if r, ok := replies[cmd]; ok {
			return r
		}
		return "E1"
	}
}

func mustNew(t *testing.T, descs []Descriptor, opts ...Option) *Client {
	t.Helper()
	c, err := New(descs, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// ---- lifecycle ----

func TestClient_ConnectDisconnect(t *testing.T) {
	plc := newMockPLC(t, table(nil))
	c := mustNew(t, nil)

	if c.Status() != StatusNotConnected {
		t.Fatalf("initial status=%v", c.Status())
	}
	if err := c.Connect(context.Background(), plc.address(time.Second)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c.Status() != StatusConnected {
		t.Fatalf("status after connect=%v", c.Status())
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if c.Status() != StatusNotConnected {
		t.Fatalf("status after disconnect=%v", c.Status())
	}

	// second disconnect is harmless
	if err := c.Disconnect(); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
	if c.Status() != StatusNotConnected {
		t.Fatalf("status after second disconnect=%v", c.Status())
	}
}

func TestClient_ConnectWhileConnectedIsNoop(t *testing.T) {
	plc := newMockPLC(t, table(map[string]string{"?K": "55"}))
	c := mustNew(t, nil)
	ctx := context.Background()

	if err := c.Connect(ctx, plc.address(time.Second)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	// Bogus address proves no dial is attempted.
	if err := c.Connect(ctx, Address{Host: "", Port: 0}); err != nil {
		t.Fatalf("second Connect should be a no-op, got %v", err)
	}
	if _, err := c.ReadDeviceIdentity(); err != nil {
		t.Fatalf("first connection should still work: %v", err)
	}
}

func TestClient_ConnectInvalidAddress(t *testing.T) {
	c := mustNew(t, nil)
	for _, a := range []Address{{Host: "", Port: 8501}, {Host: "127.0.0.1", Port: 0}, {Host: "127.0.0.1", Port: 70000}} {
		if err := c.Connect(context.Background(), a); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%+v: expected ErrInvalidArgument, got %v", a, err)
		}
	}
}

type blockingDialer struct{}

func (blockingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestClient_ConnectTimeout(t *testing.T) {
	c := mustNew(t, nil, WithDialer(blockingDialer{}))

	start := time.Now()
	err := c.Connect(context.Background(), Address{Host: "192.0.2.1", Port: 8501, Timeout: 100 * time.Millisecond})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrConnectionTimeout) {
		t.Fatalf("expected ErrConnectionTimeout, got %v", err)
	}
	if elapsed < 90*time.Millisecond || elapsed > time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}
	if c.Status() != StatusNotConnected {
		t.Fatalf("status=%v want not_connected", c.Status())
	}
}

func TestClient_ConnectCanceled(t *testing.T) {
	c := mustNew(t, nil, WithDialer(blockingDialer{}))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := c.Connect(ctx, Address{Host: "192.0.2.1", Port: 8501, Timeout: 5 * time.Second})
	if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if errors.Is(err, ErrConnectionTimeout) {
		t.Fatalf("cancellation reported as timeout: %v", err)
	}
	var oe *OpError
	if !errors.As(err, &oe) || oe.Code() != 23 {
		t.Fatalf("code = %v", err)
	}
	if c.Status() != StatusNotConnected {
		t.Fatalf("status=%v want not_connected", c.Status())
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	c := mustNew(t, nil)
	err = c.Connect(context.Background(), Address{Host: "127.0.0.1", Port: port, Timeout: time.Second})
	if !errors.Is(err, ErrConnectionRefused) {
		t.Fatalf("expected ErrConnectionRefused, got %v", err)
	}
	if c.Status() != StatusNotConnected {
		t.Fatalf("status=%v want not_connected", c.Status())
	}
}

// ---- polling ----

func TestClient_PollAll_Order(t *testing.T) {
	plc := newMockPLC(t, table(map[string]string{
		"RD DM100.U": "12",
		"RD DM200.L": "-34",
	}))
	c := mustNew(t, []Descriptor{
		{Name: "a", Address: "DM100", Format: FormatUnsigned16, Count: 1},
		{Name: "b", Address: "DM200", Format: FormatSigned32, Count: 1},
	})
	if err := c.Connect(context.Background(), plc.address(time.Second)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	frame, err := c.PollAll()
	if err != nil {
		t.Fatalf("PollAll: %v", err)
	}
	if frame.Len() != 2 || frame.Keys[0] != "a" || frame.Keys[1] != "b" {
		t.Fatalf("keys=%v", frame.Keys)
	}
	if frame.Values["a"].Int != 12 || frame.Values["b"].Int != -34 {
		t.Fatalf("values=%+v", frame.Values)
	}

	cmds := plc.commands()
	if len(cmds) != 2 || cmds[0] != "RD DM100.U" || cmds[1] != "RD DM200.L" {
		t.Fatalf("commands=%q", cmds)
	}
}

func TestClient_PollAll_PackedFloatAndMultiWord(t *testing.T) {
	plc := newMockPLC(t, table(map[string]string{
		"RD DM1000.D":   "1078530011", // 0x40490FDB
		"RDS DM300.S 3": "1 -2 3",
	}))
	c := mustNew(t, []Descriptor{
		{Name: "temp", Address: "DM1000", Format: FormatUnsigned32, Count: 1},
		{Name: "vec", Address: "DM300", Format: FormatSigned16, Count: 3},
	})
	if err := c.Connect(context.Background(), plc.address(time.Second)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	frame, err := c.PollAll()
	if err != nil {
		t.Fatalf("PollAll: %v", err)
	}

	want := []string{"temp", "vec[0]", "vec[1]", "vec[2]"}
	if len(frame.Keys) != len(want) {
		t.Fatalf("keys=%v", frame.Keys)
	}
	for i := range want {
		if frame.Keys[i] != want[i] {
			t.Fatalf("keys=%v want %v", frame.Keys, want)
		}
	}

	temp := frame.Values["temp"]
	if !temp.IsFloat() || temp.Float != PackedFloatFromWord(0x40490FDB) {
		t.Fatalf("temp=%+v", temp)
	}
	if frame.Values["vec[1]"].Int != -2 {
		t.Fatalf("vec[1]=%+v", frame.Values["vec[1]"])
	}
}

func TestClient_PollAll_FailureDiscardsPartial(t *testing.T) {
	plc := newMockPLC(t, table(map[string]string{
		"RD DM100.U": "12",
		"RD DM200.U": "oops",
	}))
	c := mustNew(t, []Descriptor{
		{Name: "a", Address: "DM100", Format: FormatUnsigned16, Count: 1},
		{Name: "b", Address: "DM200", Format: FormatUnsigned16, Count: 1},
	})
	if err := c.Connect(context.Background(), plc.address(time.Second)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	frame, err := c.PollAll()
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if frame.Len() != 0 || frame.Values != nil {
		t.Fatalf("expected empty frame, got %+v", frame)
	}
	// a decode failure leaves the stream aligned
	if c.Status() != StatusConnected {
		t.Fatalf("status=%v want connected", c.Status())
	}
}

// ---- failure transitions ----

func TestClient_IOFailureThenReconnect(t *testing.T) {
	var broken atomic.Bool
	broken.Store(true)

	plc := newMockPLC(t, func(cmd string) string {
		if broken.Load() {
			return replyDrop
		}
		return "7"
	})
	d := Descriptor{Name: "x", Address: "DM0", Format: FormatUnsigned16, Count: 1}
	c := mustNew(t, []Descriptor{d})
	ctx := context.Background()

	if err := c.Connect(ctx, plc.address(time.Second)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if _, err := c.ReadValue(d); !errors.Is(err, ErrCommunication) {
		t.Fatalf("expected ErrCommunication, got %v", err)
	}
	if c.Status() != StatusError {
		t.Fatalf("status=%v want error", c.Status())
	}

	// only connect (or disconnect) is meaningful from ERROR
	if _, err := c.ReadValue(d); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected from error state, got %v", err)
	}

	broken.Store(false)
	if err := c.Connect(ctx, plc.address(time.Second)); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if c.Status() != StatusConnected {
		t.Fatalf("status=%v want connected", c.Status())
	}
	v, err := c.ReadValue(d)
	if err != nil || v.Int != 7 {
		t.Fatalf("ReadValue after reconnect=%+v,%v", v, err)
	}
}

func TestClient_DisconnectFromError(t *testing.T) {
	plc := newMockPLC(t, func(string) string { return replyDrop })
	c := mustNew(t, nil)

	if err := c.Connect(context.Background(), plc.address(time.Second)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := c.ReadDeviceIdentity(); !errors.Is(err, ErrCommunication) {
		t.Fatalf("expected ErrCommunication, got %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if c.Status() != StatusNotConnected {
		t.Fatalf("status=%v want not_connected", c.Status())
	}
}

func TestClient_ReadTimeout(t *testing.T) {
	plc := newMockPLC(t, func(string) string { return replyHang })
	d := Descriptor{Name: "x", Address: "DM0", Format: FormatUnsigned16, Count: 1}
	c := mustNew(t, []Descriptor{d})

	if err := c.Connect(context.Background(), plc.address(100*time.Millisecond)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := c.ReadValue(d); !errors.Is(err, ErrCommunication) {
		t.Fatalf("expected ErrCommunication, got %v", err)
	}
	if c.Status() != StatusError {
		t.Fatalf("status=%v want error", c.Status())
	}
}

func TestClient_NotConnected(t *testing.T) {
	d := Descriptor{Name: "x", Address: "DM0", Format: FormatUnsigned16, Count: 1}
	c := mustNew(t, []Descriptor{d})

	if _, err := c.ReadValue(d); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("ReadValue: expected ErrNotConnected, got %v", err)
	}
	if _, err := c.PollAll(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("PollAll: expected ErrNotConnected, got %v", err)
	}
	if c.Status() != StatusNotConnected {
		t.Fatalf("status=%v", c.Status())
	}
}

func TestClient_DeviceRejected(t *testing.T) {
	plc := newMockPLC(t, table(map[string]string{"RD DM9999.U": "E0"}))
	d := Descriptor{Name: "x", Address: "DM9999", Format: FormatUnsigned16, Count: 1}
	c := mustNew(t, []Descriptor{d})

	if err := c.Connect(context.Background(), plc.address(time.Second)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_, err := c.ReadValue(d)
	if !errors.Is(err, ErrDeviceRejected) {
		t.Fatalf("expected ErrDeviceRejected, got %v", err)
	}
	var de *DeviceError
	if !errors.As(err, &de) || de.Code != "E0" {
		t.Fatalf("expected DeviceError E0, got %v", err)
	}
	if c.Status() != StatusConnected {
		t.Fatalf("status=%v want connected", c.Status())
	}
}

func TestClient_ResponseTooLong(t *testing.T) {
	plc := newMockPLC(t, func(string) string { return strings.Repeat("9", 64) })
	d := Descriptor{Name: "x", Address: "DM0", Format: FormatUnsigned16, Count: 1}
	c := mustNew(t, []Descriptor{d}, WithMaxResponse(16))

	if err := c.Connect(context.Background(), plc.address(time.Second)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := c.ReadValue(d); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if c.Status() != StatusError {
		t.Fatalf("status=%v want error", c.Status())
	}
}

// ---- static commands ----

func TestClient_StaticCommands(t *testing.T) {
	plc := newMockPLC(t, func(cmd string) string {
		switch {
		case cmd == "?K":
			return "55"
		case cmd == "?E":
			return "000"
		case cmd == "ER":
			return "OK"
		case strings.HasPrefix(cmd, "WRT "):
			return "OK"
		}
		return "E1"
	})
	c := mustNew(t, nil)
	if err := c.Connect(context.Background(), plc.address(time.Second)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	id, err := c.ReadDeviceIdentity()
	if err != nil || id != "55" {
		t.Fatalf("identity=%q,%v", id, err)
	}
	num, err := c.ReadErrorNumber()
	if err != nil || num != "000" {
		t.Fatalf("error number=%q,%v", num, err)
	}
	if err := c.ClearError(); err != nil {
		t.Fatalf("ClearError: %v", err)
	}
	if err := c.SetClock(time.Date(2021, 3, 5, 9, 7, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SetClock: %v", err)
	}

	cmds := plc.commands()
	if cmds[len(cmds)-1] != "WRT 21 03 05 09 07 00 5" {
		t.Fatalf("last command=%q", cmds[len(cmds)-1])
	}
}

// ---- construction ----

func TestNew_Validation(t *testing.T) {
	cases := []struct {
		name  string
		descs []Descriptor
		kind  error
	}{
		{"empty name", []Descriptor{{Address: "DM0", Format: FormatUnsigned16, Count: 1}}, ErrInvalidArgument},
		{"duplicate", []Descriptor{
			{Name: "a", Address: "DM0", Format: FormatUnsigned16, Count: 1},
			{Name: "a", Address: "DM1", Format: FormatUnsigned16, Count: 1},
		}, ErrInvalidArgument},
		{"bad format", []Descriptor{{Name: "a", Address: "DM0", Format: ".Z", Count: 1}}, ErrInvalidFormat},
		{"zero count", []Descriptor{{Name: "a", Address: "DM0", Format: FormatUnsigned16, Count: 0}}, ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.descs); !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
		})
	}
}
