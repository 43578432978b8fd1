// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/kvlogger/internal/keyence"
	"github.com/tamzrod/kvlogger/internal/logger"
)

// Client abstracts the PLC operations needed by the poller.
// *keyence.Client satisfies it.
type Client interface {
	Status() keyence.Status
	Connect(ctx context.Context, addr keyence.Address) error
	PollAll() (keyence.Frame, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	DeviceID string
	Interval time.Duration
	Address  keyence.Address
}

// Poller is a dumb, clock-driven reader.
// When the client is not connected it makes one connect attempt per cycle.
type Poller struct {
	cfg    Config
	client Client
	log    *logger.Logger

	addr      atomic.Pointer[keyence.Address]
	suspended atomic.Bool
}

// New creates a poller with immutable config.
func New(cfg Config, client Client, log *logger.Logger) (*Poller, error) {
	if cfg.DeviceID == "" {
		return nil, errors.New("poller: device id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	p := &Poller{cfg: cfg, client: client, log: log}
	addr := cfg.Address
	p.addr.Store(&addr)
	return p, nil
}

// Suspend stops automatic reconnects. Used after an operator disconnect.
func (p *Poller) Suspend() { p.suspended.Store(true) }

// Resume re-enables automatic reconnects.
func (p *Poller) Resume() { p.suspended.Store(false) }

// Suspended reports whether automatic reconnects are off.
func (p *Poller) Suspended() bool { return p.suspended.Load() }

// Address returns the endpoint used for reconnects.
func (p *Poller) Address() keyence.Address { return *p.addr.Load() }

// SetAddress replaces the endpoint used for reconnects.
func (p *Poller) SetAddress(a keyence.Address) { p.addr.Store(&a) }

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{
		DeviceID: p.cfg.DeviceID,
		CycleID:  uuid.New(),
		At:       time.Now(),
	}

	if p.client.Status() != keyence.StatusConnected {
		// one attempt; the ticker is the retry policy
		if err := p.client.Connect(ctx, p.Address()); err != nil {
			res.Status = p.client.Status()
			res.Err = err
			return res
		}
		p.log.Infow("poller_reconnected", "device", p.cfg.DeviceID)
	}

	frame, err := p.client.PollAll()
	res.Status = p.client.Status()
	if err != nil {
		res.Err = err
		return res
	}

	// Commit only if all reads succeeded
	res.Frame = frame
	return res
}
