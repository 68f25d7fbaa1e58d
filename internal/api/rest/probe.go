package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenPLCConsole/internal/devices"
	"github.com/gin-gonic/gin"
)

// POST /api/v1/devices/:id/probe
func (s *Server) probeDevice(c *gin.Context) {
	rec, err := s.lm.Storage().GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.lm.Prober().Probe(c.Request.Context(), rec)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// POST /api/v1/device-sessions/:id/probe
//
// Probes the draft record so the operator can check a device before
// submitting it.
func (s *Server) probeSession(c *gin.Context) {
	session := s.lookupSession(c)
	if session == nil {
		return
	}

	snap := session.Snapshot()
	rec := snap.Record
	if snap.DeviceType != nil {
		rec = devices.Conform(*snap.DeviceType, rec)
	}

	result, err := s.lm.Prober().Probe(c.Request.Context(), rec)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
