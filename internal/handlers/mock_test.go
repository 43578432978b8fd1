// internal/handlers/mock_test.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/kvlogger/internal/config"
	"github.com/tamzrod/kvlogger/internal/history"
	"github.com/tamzrod/kvlogger/internal/keyence"
	"github.com/tamzrod/kvlogger/internal/live"
	"github.com/tamzrod/kvlogger/internal/status"
)

func init() { gin.SetMode(gin.TestMode) }

type mockDevice struct {
	mu sync.Mutex

	status     keyence.Status
	connectErr error
	opErr      error
	identity   string
	errNumber  string

	connectedTo keyence.Address
	clock       time.Time
	cleared     bool
}

func (m *mockDevice) Status() keyence.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockDevice) Connect(_ context.Context, addr keyence.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connectedTo = addr
	m.status = keyence.StatusConnected
	return nil
}

func (m *mockDevice) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = keyence.StatusNotConnected
	return nil
}

func (m *mockDevice) ReadDeviceIdentity() (string, error) { return m.identity, m.opErr }
func (m *mockDevice) ReadErrorNumber() (string, error)    { return m.errNumber, m.opErr }

func (m *mockDevice) ClearError() error {
	if m.opErr != nil {
		return m.opErr
	}
	m.cleared = true
	return nil
}

func (m *mockDevice) SetClock(t time.Time) error {
	if m.opErr != nil {
		return m.opErr
	}
	m.clock = t
	return nil
}

type mockPoller struct {
	suspended bool
	addr      keyence.Address
}

func (m *mockPoller) Suspend()                     { m.suspended = true }
func (m *mockPoller) Resume()                      { m.suspended = false }
func (m *mockPoller) Suspended() bool              { return m.suspended }
func (m *mockPoller) Address() keyence.Address     { return m.addr }
func (m *mockPoller) SetAddress(a keyence.Address) { m.addr = a }

type mockHistory struct {
	samples []history.Sample
	events  []history.Event
	err     error
	filter  history.Filter
}

func (m *mockHistory) List(_ context.Context, f history.Filter) ([]history.Sample, error) {
	m.filter = f
	return m.samples, m.err
}

func (m *mockHistory) ListEvents(context.Context, int) ([]history.Event, error) {
	return m.events, m.err
}

type fixture struct {
	dev     *mockDevice
	poller  *mockPoller
	tracker *status.Tracker
	hub     *live.Hub
	hist    *mockHistory
	h       *Handler
	router  *gin.Engine
}

func newFixture() *fixture {
	f := &fixture{
		dev:     &mockDevice{identity: "KV-8000", errNumber: "0"},
		poller:  &mockPoller{addr: keyence.Address{Host: "192.168.0.10", Port: 8501, Timeout: 2 * time.Second}},
		tracker: status.NewTracker(),
		hub:     live.NewHub(10),
		hist:    &mockHistory{},
	}
	f.h = NewHandler(Deps{
		DeviceName: "plc1",
		Device:     f.dev,
		Poller:     f.poller,
		Status:     f.tracker,
		Live:       f.hub,
		History:    f.hist,
		Groups: []config.Group{
			{Label: "oven", Measurements: []config.MeasurementConfig{{Name: "temp", Address: "DM1000", Format: ".D", Count: 1, Unit: "C"}}},
		},
	}, nil)
	f.router = f.h.InitRoutes()
	return f
}
