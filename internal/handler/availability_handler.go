package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"arkham-nexus/internal/domain/availability"
	"arkham-nexus/internal/services"
	"arkham-nexus/internal/transport/httpdto"
)

type AvailabilityHandler struct {
	service *services.AvailabilityService
}

func NewAvailabilityHandler(service *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

func (h *AvailabilityHandler) Set(c *gin.Context) {
	var req httpdto.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	sessionID, err := parseUUIDPtr(req.SessionID)
	if err != nil {
		badRequest(c, "invalid session_id")
		return
	}
	occurrenceID, err := parseUUIDPtr(req.OccurrenceID)
	if err != nil {
		badRequest(c, "invalid occurrence_id")
		return
	}
	a, err := h.service.Set(c.Request.Context(), actorID, services.SetAvailabilityInput{
		SessionID:    sessionID,
		OccurrenceID: occurrenceID,
		ProposedDate: req.ProposedDate,
		Status:       availability.Status(req.Status),
		Comment:      req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(a))
}

func (h *AvailabilityHandler) Clear(c *gin.Context) {
	var req httpdto.ClearAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	sessionID, err := parseUUIDPtr(req.SessionID)
	if err != nil {
		badRequest(c, "invalid session_id")
		return
	}
	occurrenceID, err := parseUUIDPtr(req.OccurrenceID)
	if err != nil {
		badRequest(c, "invalid occurrence_id")
		return
	}
	err = h.service.Clear(c.Request.Context(), actorID, services.SetAvailabilityInput{
		SessionID:    sessionID,
		OccurrenceID: occurrenceID,
		ProposedDate: req.ProposedDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *AvailabilityHandler) ListForSession(c *gin.Context) {
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	items, err := h.service.ListForSession(c.Request.Context(), actorID, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewListResponse(items)))
}

func (h *AvailabilityHandler) ListForOccurrence(c *gin.Context) {
	occurrenceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	items, err := h.service.ListForOccurrence(c.Request.Context(), actorID, occurrenceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewListResponse(items)))
}
