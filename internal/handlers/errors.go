// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/kvlogger/internal/keyence"
)

const errInvalidBodyPref = "invalid body: "

// statusClientClosedRequest is reported when the caller went away mid-dial.
const statusClientClosedRequest = 499

// errAlreadyConnected rejects a connect to a different endpoint while the
// link is up.
var errAlreadyConnected = errors.New("already connected")

// kindStatus maps error kinds to HTTP status codes, first match wins.
var kindStatus = []struct {
	kind error
	code int
}{
	{keyence.ErrInvalidArgument, http.StatusBadRequest},
	{keyence.ErrInvalidFormat, http.StatusBadRequest},
	{keyence.ErrNotConnected, http.StatusConflict},
	{errAlreadyConnected, http.StatusConflict},
	{keyence.ErrCanceled, statusClientClosedRequest},
	{keyence.ErrConnectionTimeout, http.StatusGatewayTimeout},
	{keyence.ErrConnectionRefused, http.StatusBadGateway},
	{keyence.ErrCommunication, http.StatusBadGateway},
	{keyence.ErrMalformedResponse, http.StatusBadGateway},
	{keyence.ErrDeviceRejected, http.StatusUnprocessableEntity},
}

func httpStatus(err error) int {
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return ks.code
		}
	}
	return http.StatusInternalServerError
}

// deviceError logs and writes a device failure.
func (h *Handler) deviceError(c *gin.Context, logKey string, err error) {
	code := httpStatus(err)
	resp := gin.H{"error": err.Error()}

	var de *keyence.DeviceError
	if errors.As(err, &de) {
		resp["device_code"] = de.Code
	}

	if code >= http.StatusInternalServerError {
		h.log.Errorw(logKey, "err", err, "http", code)
	} else {
		h.log.Warnw(logKey, "err", err, "http", code)
	}
	c.JSON(code, resp)
}
