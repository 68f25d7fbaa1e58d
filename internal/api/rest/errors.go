package rest

import (
	"errors"
	"net/http"

	"github.com/KevinKickass/OpenPLCConsole/internal/devices"
	"github.com/KevinKickass/OpenPLCConsole/internal/modbus"
	"github.com/KevinKickass/OpenPLCConsole/internal/storage"
	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps domain errors onto HTTP statuses and error codes.
func (s *Server) respondError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, types.CodeDeviceStorage, "Internal error"

	switch {
	case errors.Is(err, devices.ErrSessionNotFound):
		status, code, message = http.StatusNotFound, types.CodeSessionNotFound, "Edit session not found"
	case errors.Is(err, devices.ErrSessionClosed):
		status, code, message = http.StatusConflict, types.CodeSessionConflict, "Edit session already submitted"
	case errors.Is(err, devices.ErrNotFound):
		status, code, message = http.StatusNotFound, types.CodeDeviceTypeNotFound, "Device type not found"
	case errors.Is(err, storage.ErrDeviceNotFound):
		status, code, message = http.StatusNotFound, types.CodeDeviceNotFound, "Device not found"
	case errors.Is(err, devices.ErrInvalidField):
		// Clients only send fields the form offered them.
		s.logger.Error("Edit names an unknown field", zap.Error(err))
		status, code, message = http.StatusBadRequest, types.CodeFieldInvalid, "Unknown field"
	case errors.Is(err, devices.ErrFieldFixed), errors.Is(err, devices.ErrFieldNotApplicable):
		status, code, message = http.StatusConflict, types.CodeFieldLocked, "Field cannot be edited"
	case errors.Is(err, devices.ErrInvalidValue):
		status, code, message = http.StatusUnprocessableEntity, types.CodeValueInvalid, "Invalid value"
	case errors.Is(err, modbus.ErrUnsupportedProtocol),
		errors.Is(err, modbus.ErrIncompleteAddress),
		errors.Is(err, modbus.ErrInvalidUnitID):
		status, code, message = http.StatusUnprocessableEntity, types.CodeDeviceInvalid, "Device cannot be probed"
	case errors.Is(err, devices.ErrNoDeviceType):
		status, code, message = http.StatusUnprocessableEntity, types.CodeDeviceInvalid, "No device type selected"
	default:
		s.logger.Error("Request failed", zap.Error(err))
	}

	c.JSON(status, types.NewErrorResponse(code, message, err.Error()))
}
