package planner

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/pkg/response"
)

// MeetingBody is the body for POST /meetings and PATCH /meetings/:id.
// Omitting attendee_ids keeps the preselected (or current) attendees.
type MeetingBody struct {
	Title       string      `json:"title" binding:"required"`
	Key         string      `json:"key"`
	Duration    int         `json:"duration"`
	AttendeeIDs []uuid.UUID `json:"attendee_ids"`
}

func (b MeetingBody) request() (MeetingRequest, error) {
	req := MeetingRequest{Title: b.Title, DurationMinutes: b.Duration, AttendeeIDs: b.AttendeeIDs}
	if b.Key != "" {
		k, err := grid.ParseKey(b.Key)
		if err != nil {
			return req, err
		}
		req.Key = &k
	}
	return req, nil
}

// Compose handles GET /meetings/compose?key=Monday-ts-1000.
func (h *Handler) Compose(c *gin.Context) {
	key, err := grid.ParseKey(c.Query("key"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	comp, err := h.svc.Compose(c.Request.Context(), userID(c), key)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, comp)
}

// CreateMeeting handles POST /meetings.
func (h *Handler) CreateMeeting(c *gin.Context) {
	var body MeetingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Invalid(c, err)
		return
	}
	if body.Key == "" {
		response.BadRequest(c, "key is required")
		return
	}
	req, err := body.request()
	if err != nil {
		h.fail(c, err)
		return
	}
	m, err := h.svc.Schedule(c.Request.Context(), userID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, m)
}

// EditMeeting handles GET /meetings/:id/edit.
func (h *Handler) EditMeeting(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	v, err := h.svc.EditTarget(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, v)
}

// UpdateMeeting handles PATCH /meetings/:id.
func (h *Handler) UpdateMeeting(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	var body MeetingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Invalid(c, err)
		return
	}
	req, err := body.request()
	if err != nil {
		h.fail(c, err)
		return
	}
	m, err := h.svc.Reschedule(c.Request.Context(), userID(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, m)
}

// CancelMeeting handles DELETE /meetings/:id.
func (h *Handler) CancelMeeting(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), userID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}
