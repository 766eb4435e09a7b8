package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"arkham-nexus/internal/domain/user"
	"arkham-nexus/internal/services"
	"arkham-nexus/internal/transport/httpdto"
)

type GroupHandler struct {
	service  *services.GroupService
	sessions *services.SessionService
}

func NewGroupHandler(service *services.GroupService, sessions *services.SessionService) *GroupHandler {
	return &GroupHandler{service: service, sessions: sessions}
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req httpdto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	g, err := h.service.CreateGroup(c.Request.Context(), actorID, services.CreateGroupInput{
		Name:                  req.Name,
		Description:           req.Description,
		DefaultSessionMinutes: req.DefaultSessionMinutes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(g))
}

func (h *GroupHandler) Get(c *gin.Context) {
	groupID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	g, err := h.service.GetGroup(c.Request.Context(), actorID, groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(g))
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		badRequest(c, "invalid user_id")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	role := user.MemberRole(req.Role)
	if req.Role == "" {
		role = user.RoleMember
	}
	if err := h.service.AddMember(c.Request.Context(), actorID, groupID, userID, role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *GroupHandler) ListSessions(c *gin.Context) {
	groupID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	items, err := h.sessions.ListByGroup(c.Request.Context(), actorID, groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewListResponse(items)))
}
