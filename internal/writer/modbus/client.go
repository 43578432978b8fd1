// internal/writer/modbus/client.go
package modbus

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// MaxRegistersPerWrite is the FC16 quantity limit.
const MaxRegistersPerWrite = 123

// EndpointClient is a single TCP connection to one Modbus server.
// It serializes requests because it mutates SlaveId per write.
// The connection is opened on first use and dropped after a failure,
// so the next write reconnects.
type EndpointClient struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	return &EndpointClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters issues FC16, split into chunks the protocol accepts.
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	for len(regs) > 0 {
		n := len(regs)
		if n > MaxRegistersPerWrite {
			n = MaxRegistersPerWrite
		}

		if _, err := c.client.WriteMultipleRegisters(addr, uint16(n), packRegisters(regs[:n])); err != nil {
			_ = c.handler.Close()
			return err
		}

		regs = regs[n:]
		addr += uint16(n)
	}
	return nil
}

// Modbus register memory order (BIG-ENDIAN)
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
