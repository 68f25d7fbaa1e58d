package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/KevinKickass/OpenPLCConsole/internal/api/websocket"
	"github.com/KevinKickass/OpenPLCConsole/internal/devices"
	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type sessionResponse struct {
	ID           uuid.UUID            `json:"id"`
	State        devices.SessionState `json:"state"`
	Record       types.DeviceRecord   `json:"record"`
	Edits        int                  `json:"edits"`
	LastActivity time.Time            `json:"last_activity"`
	Form         devices.Form         `json:"form"`
}

func (s *Server) sessionView(c *gin.Context, session *devices.Session) sessionResponse {
	snap := session.Snapshot()
	return sessionResponse{
		ID:           snap.ID,
		State:        snap.State,
		Record:       snap.Record,
		Edits:        snap.Edits,
		LastActivity: snap.LastActivity,
		Form:         s.lm.Composer().Compose(c.Request.Context(), snap.DeviceType, snap.Record),
	}
}

// lookupSession resolves the :id parameter. It writes the error response
// itself and returns nil when the session cannot be used.
func (s *Server) lookupSession(c *gin.Context) *devices.Session {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSessionBadRequest, "Invalid session ID", err.Error()))
		return nil
	}

	session, err := s.lm.Sessions().Get(id)
	if err != nil {
		s.respondError(c, err)
		return nil
	}
	return session
}

// POST /api/v1/device-sessions
func (s *Server) openSession(c *gin.Context) {
	var req struct {
		DeviceType string `json:"device_type"`
		DeviceID   string `json:"device_id"`
	}

	// An empty body opens a new device of the default type.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSessionBadRequest, "Invalid request body", err.Error()))
		return
	}

	if req.DeviceType != "" && req.DeviceID != "" {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSessionBadRequest, "Invalid request body", "device_type and device_id are mutually exclusive"))
		return
	}

	var session *devices.Session
	if req.DeviceID != "" {
		rec, err := s.lm.Storage().GetDevice(c.Request.Context(), req.DeviceID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		session = s.lm.Sessions().OpenExisting(rec)
	} else {
		var err error
		session, err = s.lm.Sessions().OpenNew(req.DeviceType)
		if err != nil {
			s.respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, s.sessionView(c, session))
}

// GET /api/v1/device-sessions/:id
func (s *Server) getSession(c *gin.Context) {
	session := s.lookupSession(c)
	if session == nil {
		return
	}

	c.JSON(http.StatusOK, s.sessionView(c, session))
}

// PATCH /api/v1/device-sessions/:id/fields
func (s *Server) editField(c *gin.Context) {
	var req struct {
		Field string          `json:"field" binding:"required"`
		Value json.RawMessage `json:"value"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSessionBadRequest, "Invalid request body", err.Error()))
		return
	}

	session := s.lookupSession(c)
	if session == nil {
		return
	}

	field, err := devices.ParseScalarField(req.Field)
	if err != nil {
		s.respondError(c, err)
		return
	}

	value, err := decodeFieldValue(field, req.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := session.SetScalar(field, value); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.sessionView(c, session))
}

// decodeFieldValue reads a JSON number for numeric fields and a JSON
// string for text fields.
func decodeFieldValue(field devices.ScalarField, raw json.RawMessage) (any, error) {
	if field.Numeric() {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("%w: %s expects an integer", devices.ErrInvalidValue, field)
		}
		return n, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("%w: %s expects text", devices.ErrInvalidValue, field)
	}
	return text, nil
}

// PATCH /api/v1/device-sessions/:id/registers
func (s *Server) editRegister(c *gin.Context) {
	var req struct {
		Register string `json:"register" binding:"required"`
		SubField string `json:"sub_field" binding:"required"`
		Value    *int   `json:"value" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSessionBadRequest, "Invalid request body", err.Error()))
		return
	}

	session := s.lookupSession(c)
	if session == nil {
		return
	}

	register, err := devices.ParseRegisterName(req.Register)
	if err != nil {
		s.respondError(c, err)
		return
	}
	sub, err := devices.ParseSubField(req.SubField)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := session.SetRegister(register, sub, *req.Value); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.sessionView(c, session))
}

// PUT /api/v1/device-sessions/:id/type
func (s *Server) switchSessionType(c *gin.Context) {
	var req struct {
		DeviceType string `json:"device_type" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSessionBadRequest, "Invalid request body", err.Error()))
		return
	}

	session := s.lookupSession(c)
	if session == nil {
		return
	}

	if err := session.SwitchType(req.DeviceType); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.sessionView(c, session))
}

// POST /api/v1/device-sessions/:id/submit
func (s *Server) submitSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSessionBadRequest, "Invalid session ID", err.Error()))
		return
	}

	saved, err := s.lm.Sessions().Submit(c.Request.Context(), id, s.lm.Storage())
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.broadcast(websocket.NewSessionSubmittedMessage(id.String(), saved.ID))
	s.broadcast(websocket.NewDeviceSavedMessage(saved.ID, saved.Name, saved.ConstraintID))

	c.JSON(http.StatusOK, gin.H{"device": saved})
}

// DELETE /api/v1/device-sessions/:id
func (s *Server) cancelSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeSessionBadRequest, "Invalid session ID", err.Error()))
		return
	}

	if err := s.lm.Sessions().Cancel(id); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Edit session cancelled",
	})
}
