// internal/handlers/handler.go
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/kvlogger/internal/config"
	"github.com/tamzrod/kvlogger/internal/history"
	"github.com/tamzrod/kvlogger/internal/keyence"
	"github.com/tamzrod/kvlogger/internal/live"
	"github.com/tamzrod/kvlogger/internal/logger"
	"github.com/tamzrod/kvlogger/internal/status"
)

// Device is the PLC control surface. *keyence.Client satisfies it.
type Device interface {
	Status() keyence.Status
	Connect(ctx context.Context, addr keyence.Address) error
	Disconnect() error
	ReadDeviceIdentity() (string, error)
	ReadErrorNumber() (string, error)
	ClearError() error
	SetClock(t time.Time) error
}

// Poller controls automatic reconnects. *poller.Poller satisfies it.
type Poller interface {
	Suspend()
	Resume()
	Suspended() bool
	Address() keyence.Address
	SetAddress(a keyence.Address)
}

// StatusTracker exposes the status snapshot. *status.Tracker satisfies it.
type StatusTracker interface {
	Snapshot() status.Snapshot
	Disable() bool
	Enable() bool
}

// Live is the in-memory frame store. *live.Hub satisfies it.
type Live interface {
	Latest() (live.Update, bool)
	Window(key string) ([]live.Point, bool)
	Subscribe(buf int) (<-chan live.Update, func())
}

// History is the sample store. *history.SQLite satisfies it.
type History interface {
	List(ctx context.Context, f history.Filter) ([]history.Sample, error)
	ListEvents(ctx context.Context, limit int) ([]history.Event, error)
}

// Deps are the collaborators of the HTTP layer. History may be nil.
type Deps struct {
	DeviceName string
	Device     Device
	Poller     Poller
	Status     StatusTracker
	Live       Live
	History    History
	Groups     []config.Group
}

// Handler wires HTTP layer to the device and logging.
type Handler struct {
	deps Deps
	log  *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(deps Deps, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{deps: deps, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	{
		h.registerDeviceRoutes(api)
		h.registerValueRoutes(api)
		h.registerHistoryRoutes(api)
	}

	// live stream, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	device := api.Group("/device")
	{
		device.GET("/status", h.getStatus)
		// Body (optional): {"host":"192.168.0.10","port":8501,"timeout_ms":2000}
		device.POST("/connect", h.connect)
		device.POST("/disconnect", h.disconnect)
		device.GET("/identity", h.identity)
		device.GET("/error", h.errorNumber)
		device.POST("/clear-error", h.clearError)
		// Body (optional): {"time":"2025-01-01T10:00:00+09:00"}
		device.POST("/clock", h.setClock)
	}
}

func (h *Handler) registerValueRoutes(api *gin.RouterGroup) {
	api.GET("/measurements", h.measurements)
	api.GET("/values", h.values)
	api.GET("/values/:name/window", h.window)
}

func (h *Handler) registerHistoryRoutes(api *gin.RouterGroup) {
	api.GET("/history", h.history)
	api.GET("/events", h.events)
}
