// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"time"

	"github.com/tamzrod/kvlogger/internal/history"
	"github.com/tamzrod/kvlogger/internal/logger"
	"github.com/tamzrod/kvlogger/internal/poller"
	"github.com/tamzrod/kvlogger/internal/status"
	"github.com/tamzrod/kvlogger/internal/writer"
)

const eventTimeout = 2 * time.Second

// EventRecorder stores health transitions. *history.SQLite satisfies it.
type EventRecorder interface {
	AppendEvent(ctx context.Context, e history.Event) error
}

// Config wires the orchestrator. StatusWriter and Events may be nil.
type Config struct {
	DeviceID     string
	Sinks        writer.Writer
	Tracker      *status.Tracker
	StatusWriter writer.StatusWriter
	Events       EventRecorder
	TickInterval time.Duration // seconds_in_error clock, default 1s
}

// Orchestrator is the single consumer of poll results. It owns the
// status snapshot and delivers data and status to the writers.
type Orchestrator struct {
	cfg Config
	log *logger.Logger

	written    status.Snapshot
	hasWritten bool
	lastHealth uint16
	lastErr    string
}

func New(cfg Config, log *logger.Logger) *Orchestrator {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Tracker == nil {
		cfg.Tracker = status.NewTracker()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		cfg:        cfg,
		log:        log,
		lastHealth: cfg.Tracker.Snapshot().Health,
	}
}

// Run consumes results until ctx is done or in is closed.
func (o *Orchestrator) Run(ctx context.Context, in <-chan poller.PollResult) {
	secTicker := time.NewTicker(o.cfg.TickInterval)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert) if enabled.
	o.flushStatus()

	for {
		select {
		case <-ctx.Done():
			return

		case res, ok := <-in:
			if !ok {
				return
			}
			o.Handle(res)

		case <-secTicker.C:
			// seconds_in_error advances here only
			o.cfg.Tracker.Tick()
			o.recordTransition()
			o.flushStatus()
		}
	}
}

// Handle processes one poll result.
func (o *Orchestrator) Handle(res poller.PollResult) {
	// --- data delivery ---
	if o.cfg.Sinks != nil {
		if err := o.cfg.Sinks.Write(res); err != nil {
			o.log.Errorw("writer_error", "device", res.DeviceID, "err", err)
		}
	}

	// --- status update (device-level truth) ---
	values := 0
	if res.Err == nil {
		values = res.Frame.Len()
		o.lastErr = ""
	} else {
		o.lastErr = res.Err.Error()
		o.log.Warnw("poll_failed", "device", res.DeviceID, "status", res.Status.String(), "err", res.Err)
	}
	o.cfg.Tracker.Observe(res.Err, res.Status, values)

	o.recordTransition()
	o.flushStatus()
}

// flushStatus writes the snapshot when it differs from what was last delivered.
func (o *Orchestrator) flushStatus() {
	if o.cfg.StatusWriter == nil {
		return
	}
	snap := o.cfg.Tracker.Snapshot()
	if o.hasWritten && snap == o.written {
		return
	}
	if err := o.cfg.StatusWriter.WriteStatus(snap); err != nil {
		o.log.Errorw("status_write_failed", "device", o.cfg.DeviceID, "err", err)
		return
	}
	o.written = snap
	o.hasWritten = true
}

// recordTransition logs and stores health changes.
func (o *Orchestrator) recordTransition() {
	snap := o.cfg.Tracker.Snapshot()
	if snap.Health == o.lastHealth {
		return
	}

	from := status.HealthName(o.lastHealth)
	to := status.HealthName(snap.Health)
	o.lastHealth = snap.Health
	o.log.Infow("device_health_changed", "device", o.cfg.DeviceID, "from", from, "to", to, "code", snap.LastErrorCode)

	if o.cfg.Events == nil {
		return
	}

	msg := o.lastErr
	if snap.Health == status.HealthOK || snap.Health == status.HealthDisabled {
		msg = from + " -> " + to
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if err := o.cfg.Events.AppendEvent(ctx, history.Event{
		Device:  o.cfg.DeviceID,
		Status:  to,
		Code:    snap.LastErrorCode,
		Message: msg,
	}); err != nil {
		o.log.Errorw("event_append_failed", "err", err)
	}
}
