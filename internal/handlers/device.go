// internal/handlers/device.go
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/kvlogger/internal/keyence"
	"github.com/tamzrod/kvlogger/internal/status"
)

const statusOK = "ok"

// connectRequest overrides parts of the configured address.
type connectRequest struct {
	Host      string `json:"host"`
	Port      int    `json:"port" binding:"omitempty,min=1,max=65535"`
	TimeoutMs int    `json:"timeout_ms" binding:"omitempty,min=1"`
}

type clockRequest struct {
	Time *time.Time `json:"time"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

func (h *Handler) getStatus(c *gin.Context) {
	snap := h.deps.Status.Snapshot()
	addr := h.deps.Poller.Address()

	c.JSON(http.StatusOK, gin.H{
		"device":    h.deps.DeviceName,
		"status":    h.deps.Device.Status(),
		"health":    status.HealthName(snap.Health),
		"snapshot":  snap,
		"address":   addr.String(),
		"suspended": h.deps.Poller.Suspended(),
	})
}

func (h *Handler) connect(c *gin.Context) {
	var req connectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}

	current := h.deps.Poller.Address()
	addr := current
	if req.Host != "" {
		addr.Host = req.Host
	}
	if req.Port != 0 {
		addr.Port = req.Port
	}
	if req.TimeoutMs != 0 {
		addr.Timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	// Connect is a no-op on a live link, so a new endpoint would never be dialed.
	if h.deps.Device.Status() == keyence.StatusConnected {
		if !sameEndpoint(addr, current) {
			h.deviceError(c, "device_connect_rejected",
				fmt.Errorf("%w to %s, disconnect before switching to %s", errAlreadyConnected, current, addr))
			return
		}
		addr = current
	}

	if err := h.deps.Device.Connect(c.Request.Context(), addr); err != nil {
		h.deviceError(c, "device_connect_failed", err)
		return
	}

	h.deps.Poller.SetAddress(addr)
	h.deps.Poller.Resume()
	h.deps.Status.Enable()
	h.log.Infow("device_connect_requested", "addr", addr.String())

	c.JSON(http.StatusOK, gin.H{
		"status":  h.deps.Device.Status(),
		"address": addr.String(),
	})
}

func sameEndpoint(a, b keyence.Address) bool {
	return a.Host == b.Host && a.Port == b.Port
}

func (h *Handler) disconnect(c *gin.Context) {
	h.deps.Poller.Suspend()
	if err := h.deps.Device.Disconnect(); err != nil {
		// socket close errors do not change the outcome
		h.log.Warnw("device_disconnect_close_failed", "err", err)
	}
	h.deps.Status.Disable()
	h.log.Infow("device_disconnect_requested")

	c.JSON(http.StatusOK, gin.H{"status": h.deps.Device.Status()})
}

func (h *Handler) identity(c *gin.Context) {
	model, err := h.deps.Device.ReadDeviceIdentity()
	if err != nil {
		h.deviceError(c, "device_identity_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": model})
}

func (h *Handler) errorNumber(c *gin.Context) {
	n, err := h.deps.Device.ReadErrorNumber()
	if err != nil {
		h.deviceError(c, "device_error_number_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error_number": n})
}

func (h *Handler) clearError(c *gin.Context) {
	if err := h.deps.Device.ClearError(); err != nil {
		h.deviceError(c, "device_clear_error_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

func (h *Handler) setClock(c *gin.Context) {
	var req clockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}

	t := time.Now()
	if req.Time != nil {
		t = *req.Time
	}

	if err := h.deps.Device.SetClock(t); err != nil {
		h.deviceError(c, "device_set_clock_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "time": t.Format(time.RFC3339)})
}

var _ Device = (*keyence.Client)(nil)
