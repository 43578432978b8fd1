// internal/handlers/values.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/kvlogger/internal/history"
)

func (h *Handler) measurements(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"device": h.deps.DeviceName,
		"groups": h.deps.Groups,
	})
}

func (h *Handler) values(c *gin.Context) {
	u, ok := h.deps.Live.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame yet", "status": u.Status, "last_error": u.Error})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) window(c *gin.Context) {
	name := c.Param("name")
	pts, ok := h.deps.Live.Window(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown measurement " + strconv.Quote(name)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "points": pts})
}

// history serves /history?name=&from=&to=&limit= ; times are RFC3339.
func (h *Handler) history(c *gin.Context) {
	if h.deps.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history disabled"})
		return
	}

	f := history.Filter{Name: c.Query("name")}

	var err error
	if f.From, err = parseTimeQuery(c, "from"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.To, err = parseTimeQuery(c, "to"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		f.Limit = n
	}

	samples, err := h.deps.History.List(c.Request.Context(), f)
	if err != nil {
		h.log.Errorw("history_list_failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"samples": samples})
}

func (h *Handler) events(c *gin.Context) {
	if h.deps.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	evs, err := h.deps.History.ListEvents(c.Request.Context(), limit)
	if err != nil {
		h.log.Errorw("history_events_failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, error) {
	s := c.Query(key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return t, nil
}
