package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"arkham-nexus/internal/clock"
	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/repository"
	"arkham-nexus/internal/services"
	"arkham-nexus/internal/transport/httpdto"
)

type SeriesHandler struct {
	service      *services.SeriesService
	orchestrator *services.Orchestrator
	clock        clock.Clock
}

func NewSeriesHandler(service *services.SeriesService, orchestrator *services.Orchestrator, clk clock.Clock) *SeriesHandler {
	return &SeriesHandler{service: service, orchestrator: orchestrator, clock: clk}
}

func (h *SeriesHandler) Create(c *gin.Context) {
	var req httpdto.CreateSeriesRequest
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
	loc := h.clock.Location()
	startDate, err := parseDate(req.StartDate, loc)
	if err != nil {
		badRequest(c, "invalid start_date")
		return
	}
	endDate, err := parseDatePtr(req.EndDate, loc)
	if err != nil {
		badRequest(c, "invalid end_date")
		return
	}
	scenarioID, err := parseUUIDPtr(req.ScenarioID)
	if err != nil {
		badRequest(c, "invalid scenario_id")
		return
	}

	series, err := h.service.Create(c.Request.Context(), actorID, services.CreateSeriesInput{
		GroupID:              groupID,
		Title:                req.Title,
		Description:          req.Description,
		Recurrence:           schedule.RecurrenceType(req.Recurrence),
		Weekday:              req.Weekday,
		DayOfMonth:           req.DayOfMonth,
		CustomIntervalDays:   req.CustomIntervalDays,
		StartTime:            req.StartTime,
		DurationMinutes:      req.DurationMinutes,
		StartDate:            startDate,
		EndDate:              endDate,
		AutoCreate:           req.AutoCreate,
		AutoCreateWeeksAhead: req.AutoCreateWeeksAhead,
		ScenarioID:           scenarioID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(series))
}

func (h *SeriesHandler) Get(c *gin.Context) {
	seriesID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	series, err := h.service.Get(c.Request.Context(), actorID, seriesID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(series))
}

func (h *SeriesHandler) Update(c *gin.Context) {
	seriesID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.UpdateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	loc := h.clock.Location()
	startDate, err := parseDatePtr(req.StartDate, loc)
	if err != nil {
		badRequest(c, "invalid start_date")
		return
	}
	endDate, err := parseDatePtr(req.EndDate, loc)
	if err != nil {
		badRequest(c, "invalid end_date")
		return
	}
	in := services.UpdateSeriesInput{
		Title:                req.Title,
		Description:          req.Description,
		Weekday:              req.Weekday,
		DayOfMonth:           req.DayOfMonth,
		CustomIntervalDays:   req.CustomIntervalDays,
		StartTime:            req.StartTime,
		DurationMinutes:      req.DurationMinutes,
		StartDate:            startDate,
		EndDate:              endDate,
		AutoCreate:           req.AutoCreate,
		AutoCreateWeeksAhead: req.AutoCreateWeeksAhead,
		IsActive:             req.IsActive,
	}
	if req.Recurrence != nil {
		r := schedule.RecurrenceType(*req.Recurrence)
		in.Recurrence = &r
	}
	series, err := h.service.Update(c.Request.Context(), actorID, seriesID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(series))
}

func (h *SeriesHandler) Delete(c *gin.Context) {
	seriesID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actorID, seriesID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *SeriesHandler) ListOccurrences(c *gin.Context) {
	seriesID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	var f repository.OccurrenceFilter
	if s := c.Query("status"); s != "" {
		status := schedule.OccurrenceStatus(s)
		f.Status = &status
	}
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			badRequest(c, "invalid from")
			return
		}
		f.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			badRequest(c, "invalid to")
			return
		}
		f.To = &t
	}
	items, err := h.service.ListOccurrences(c.Request.Context(), actorID, seriesID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewListResponse(items)))
}

// advanceTime reads the optional `now` override from the request body,
// falling back to the service clock. The body may be absent entirely.
func (h *SeriesHandler) advanceTime(c *gin.Context) (time.Time, bool) {
	if c.Request.ContentLength == 0 {
		return h.clock.Now(), true
	}
	var req httpdto.AdvanceSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return time.Time{}, false
	}
	if req.Now != nil {
		return *req.Now, true
	}
	return h.clock.Now(), true
}

// Advance forces one horizon-advance pass for the series, outside the
// periodic tick.
func (h *SeriesHandler) Advance(c *gin.Context) {
	seriesID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	now, ok := h.advanceTime(c)
	if !ok {
		return
	}
	if _, err := h.service.Get(c.Request.Context(), actorID, seriesID); err != nil {
		respondError(c, err)
		return
	}
	created, err := h.orchestrator.AdvanceSeries(c.Request.Context(), seriesID, now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewListResponse(created)))
}

func (h *SeriesHandler) CancelOccurrence(c *gin.Context) {
	occurrenceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	occ, err := h.service.CancelOccurrence(c.Request.Context(), actorID, occurrenceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(occ))
}

func (h *SeriesHandler) BindSession(c *gin.Context) {
	occurrenceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.BindSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		badRequest(c, "invalid session_id")
		return
	}
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	if err := h.service.BindSession(c.Request.Context(), actorID, occurrenceID, sessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}
