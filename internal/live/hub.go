// internal/live/hub.go
package live

import (
	"sync"
	"time"

	"github.com/tamzrod/kvlogger/internal/keyence"
	"github.com/tamzrod/kvlogger/internal/poller"
)

const DefaultSubscriberBuffer = 16

// Update is what subscribers receive for every poll cycle.
// Values is empty for failed cycles.
type Update struct {
	Device  string                   `json:"device"`
	CycleID string                   `json:"cycle_id"`
	At      time.Time                `json:"at"`
	Status  keyence.Status           `json:"status"`
	Error   string                   `json:"error,omitempty"`
	Keys    []string                 `json:"keys,omitempty"`
	Values  map[string]keyence.Value `json:"values,omitempty"`
}

// Point is one sample of a rolling window.
type Point struct {
	At    time.Time     `json:"t"`
	Value keyence.Value `json:"v"`
}

// Hub keeps the latest frame, a rolling window per key, and fans updates
// out to subscribers. Slow subscribers drop updates rather than block.
type Hub struct {
	mu     sync.RWMutex
	window int

	last    Update // last good frame
	hasLast bool
	status  keyence.Status
	lastErr string
	series  map[string]*ring
	subs    map[chan Update]struct{}
	dropped uint64
}

func NewHub(window int) *Hub {
	if window <= 0 {
		window = 600
	}
	return &Hub{
		window: window,
		series: make(map[string]*ring),
		subs:   make(map[chan Update]struct{}),
	}
}

// Write records one poll result and notifies subscribers.
func (h *Hub) Write(res poller.PollResult) error {
	u := Update{
		Device:  res.DeviceID,
		CycleID: res.CycleID.String(),
		At:      res.At,
		Status:  res.Status,
	}
	if res.Err != nil {
		u.Error = res.Err.Error()
	} else {
		u.Keys = res.Frame.Keys
		u.Values = res.Frame.Values
	}

	h.mu.Lock()
	h.status = res.Status
	h.lastErr = u.Error
	if res.Err == nil {
		h.last = u
		h.hasLast = true
		for _, k := range res.Frame.Keys {
			r, ok := h.series[k]
			if !ok {
				r = newRing(h.window)
				h.series[k] = r
			}
			r.push(Point{At: res.At, Value: res.Frame.Values[k]})
		}
	}
	for ch := range h.subs {
		select {
		case ch <- u:
		default:
			h.dropped++
		}
	}
	h.mu.Unlock()

	return nil
}

// Latest returns the last good frame with the current status and error.
func (h *Hub) Latest() (Update, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	u := h.last
	u.Status = h.status
	u.Error = h.lastErr
	return u, h.hasLast
}

// Window returns the rolling window for key, oldest first.
func (h *Hub) Window(key string) ([]Point, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.series[key]
	if !ok {
		return nil, false
	}
	return r.snapshot(), true
}

// Subscribe registers a buffered channel. The returned cancel func
// unregisters and closes it; calling it twice is safe.
func (h *Hub) Subscribe(buf int) (<-chan Update, func()) {
	if buf <= 0 {
		buf = DefaultSubscriberBuffer
	}
	ch := make(chan Update, buf)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many updates slow subscribers missed.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// ring is a fixed-capacity FIFO of points.
type ring struct {
	buf  []Point
	next int
	full bool
}

func newRing(n int) *ring { return &ring{buf: make([]Point, n)} }

func (r *ring) push(p Point) {
	r.buf[r.next] = p
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *ring) snapshot() []Point {
	if !r.full {
		return append([]Point(nil), r.buf[:r.next]...)
	}
	out := make([]Point, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
