package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/services"
	"arkham-nexus/internal/transport/httpdto"
)

type SessionHandler struct {
	service *services.SessionService
}

func NewSessionHandler(service *services.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req httpdto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	groupID, err := parseUUIDPtr(&req.GroupID)
	if err != nil {
		badRequest(c, "invalid group_id")
		return
	}
	scenarioID, err := parseUUIDPtr(req.ScenarioID)
	if err != nil {
		badRequest(c, "invalid scenario_id")
		return
	}
	sess, err := h.service.Create(c.Request.Context(), actorID, services.CreateSessionInput{
		GroupID:         *groupID,
		Title:           req.Title,
		Date:            req.Date,
		DurationMinutes: req.DurationMinutes,
		ScenarioID:      scenarioID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(sess))
}

func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	sess, err := h.service.Get(c.Request.Context(), actorID, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(sess))
}

// GetShared serves the public share-link view without authentication.
func (h *SessionHandler) GetShared(c *gin.Context) {
	token, ok := parseUUIDParam(c, "token")
	if !ok {
		return
	}
	sess, err := h.service.GetShared(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(sess))
}

func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.UpdateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	sess, err := h.service.UpdateStatus(c.Request.Context(), actorID, sessionID, schedule.SessionStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(sess))
}
