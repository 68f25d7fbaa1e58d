package rest

import (
	"errors"
	"net/http"

	"github.com/KevinKickass/OpenPLCConsole/internal/api/websocket"
	"github.com/KevinKickass/OpenPLCConsole/internal/devices"
	"github.com/KevinKickass/OpenPLCConsole/internal/storage"
	"github.com/KevinKickass/OpenPLCConsole/internal/telemetry"
	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GET /api/v1/device-types
func (s *Server) listDeviceTypes(c *gin.Context) {
	deviceTypes := s.lm.Catalog().List()

	c.JSON(http.StatusOK, gin.H{
		"device_types": deviceTypes,
		"count":        len(deviceTypes),
	})
}

// GET /api/v1/device-types/:id
func (s *Server) getDeviceType(c *gin.Context) {
	def, err := s.lm.Catalog().Lookup(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_type": def,
		"fields":      devices.Resolve(def, devices.ReseedFrom(def), nil),
		"registers":   devices.ResolveRegisters(&def, devices.ReseedFrom(def)),
	})
}

// GET /api/v1/ports
func (s *Server) listPorts(c *gin.Context) {
	ports, err := s.lm.Ports().List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodePortsUnavailable, "Failed to enumerate serial ports", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ports": ports,
		"count": len(ports),
	})
}

// GET /api/v1/devices
func (s *Server) listDevices(c *gin.Context) {
	records, err := s.lm.Storage().ListDevices(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"devices": records,
		"count":   len(records),
	})
}

// GET /api/v1/devices/:id
func (s *Server) getDevice(c *gin.Context) {
	rec, err := s.lm.Storage().GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	var def *devices.DeviceType
	if found, err := s.lm.Catalog().Lookup(rec.ConstraintID); err == nil {
		def = &found
	}

	c.JSON(http.StatusOK, gin.H{
		"device": rec,
		"form":   s.lm.Composer().Compose(c.Request.Context(), def, rec),
	})
}

// POST /api/v1/devices
//
// Saves a complete record in one request. The record is bound to its
// device type the same way a submitted edit session is.
func (s *Server) saveDevice(c *gin.Context) {
	var rec types.DeviceRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeviceBadRequest, "Invalid request body", err.Error()))
		return
	}

	if rec.ID != "" {
		if _, err := uuid.Parse(rec.ID); err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeviceBadRequest, "Invalid device ID", err.Error()))
			return
		}
	}

	if rec.ConstraintID == "" {
		s.respondError(c, devices.ErrNoDeviceType)
		return
	}

	def, err := s.lm.Catalog().Lookup(rec.ConstraintID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	rec = devices.Conform(def, rec)
	if err := devices.ValidateRecord(rec); err != nil {
		s.respondError(c, err)
		return
	}

	created := rec.ID == ""
	if !created {
		_, err := s.lm.Storage().GetDevice(c.Request.Context(), rec.ID)
		switch {
		case errors.Is(err, storage.ErrDeviceNotFound):
			created = true
		case err != nil:
			s.respondError(c, err)
			return
		}
	}

	saved, err := s.lm.Storage().SaveDevice(c.Request.Context(), rec)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.lm.Telemetry().IncDeviceSaved(telemetry.SourceAPI)

	s.logger.Info("Device saved",
		zap.String("device_id", saved.ID),
		zap.String("device_type", saved.ConstraintID),
		zap.Bool("created", created))

	s.broadcast(websocket.NewDeviceSavedMessage(saved.ID, saved.Name, saved.ConstraintID))

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"device": saved})
}

// DELETE /api/v1/devices/:id
func (s *Server) deleteDevice(c *gin.Context) {
	id := c.Param("id")

	if err := s.lm.Storage().DeleteDevice(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("Device deleted", zap.String("device_id", id))
	s.broadcast(websocket.NewDeviceDeletedMessage(id))

	c.JSON(http.StatusOK, gin.H{
		"message": "Device deleted successfully",
	})
}
