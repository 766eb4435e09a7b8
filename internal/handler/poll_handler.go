package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"arkham-nexus/internal/domain/poll"
	"arkham-nexus/internal/services"
	"arkham-nexus/internal/transport/httpdto"
)

type PollHandler struct {
	service *services.PollService
}

func NewPollHandler(service *services.PollService) *PollHandler {
	return &PollHandler{service: service}
}

func (h *PollHandler) Create(c *gin.Context) {
	var req httpdto.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		badRequest(c, "invalid group_id")
		return
	}
	in := services.CreatePollInput{
		GroupID:                groupID,
		Title:                  req.Title,
		Description:            req.Description,
		Deadline:               req.Deadline,
		CreateSessionOnConfirm: req.CreateSessionOnConfirm,
		DurationMinutes:        req.DurationMinutes,
	}
	for _, opt := range req.Options {
		in.Options = append(in.Options, services.PollOptionInput{
			Datetime: opt.Datetime,
			Note:     opt.Note,
		})
	}
	p, err := h.service.Create(c.Request.Context(), actorID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(p))
}

func (h *PollHandler) Get(c *gin.Context) {
	pollID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	p, err := h.service.Get(c.Request.Context(), actorID, pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(p))
}

func (h *PollHandler) CastVote(c *gin.Context) {
	pollID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	optionID, err := uuid.Parse(req.OptionID)
	if err != nil {
		badRequest(c, "invalid option_id")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	v, err := h.service.CastVote(c.Request.Context(), actorID, pollID, optionID, poll.VoteStatus(req.Status), req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(v))
}

func (h *PollHandler) WithdrawVote(c *gin.Context) {
	pollID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	optionID, ok := parseUUIDParam(c, "option_id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	if err := h.service.WithdrawVote(c.Request.Context(), actorID, pollID, optionID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PollHandler) PostComment(c *gin.Context) {
	pollID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.PostCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	comment, err := h.service.PostComment(c.Request.Context(), actorID, pollID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(comment))
}

func (h *PollHandler) ListComments(c *gin.Context) {
	pollID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	items, err := h.service.ListComments(c.Request.Context(), actorID, pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewListResponse(items)))
}

func (h *PollHandler) Close(c *gin.Context) {
	pollID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	p, err := h.service.Close(c.Request.Context(), actorID, pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(p))
}

// ConfirmPollResponse bundles the closed poll with the session bound or
// created by the confirmation.
type ConfirmPollResponse struct {
	Poll    poll.DatePoll `json:"poll"`
	Session any           `json:"session,omitempty"`
}

func (h *PollHandler) Confirm(c *gin.Context) {
	pollID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.ConfirmPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	optionID, err := uuid.Parse(req.OptionID)
	if err != nil {
		badRequest(c, "invalid option_id")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	p, sess, err := h.service.Confirm(c.Request.Context(), actorID, pollID, optionID)
	if err != nil {
		respondError(c, err)
		return
	}
	res := ConfirmPollResponse{Poll: p}
	if sess != nil {
		res.Session = sess
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(res))
}

func (h *PollHandler) Tally(c *gin.Context) {
	pollID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	res, err := h.service.Tally(c.Request.Context(), actorID, pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(res))
}
