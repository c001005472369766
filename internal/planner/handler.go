package planner

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/meetings"
	"github.com/teamslot/backend/internal/middleware"
	"github.com/teamslot/backend/internal/models"
	"github.com/teamslot/backend/pkg/response"
)

// Handler serves the availability grid and meeting endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a planner handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// SetStatusRequest is the body for PUT /availability/draft and POST /availability/draft/toggle.
type SetStatusRequest struct {
	Key    string `json:"key" binding:"required"`
	Status string `json:"status" binding:"required"`
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNoTeam):
		response.Conflict(c, err.Error())
	case errors.Is(err, grid.ErrInvalidKey), errors.Is(err, grid.ErrUnknownSlot), errors.Is(err, grid.ErrUnknownWeekday):
		response.BadRequest(c, err.Error())
	case errors.Is(err, meetings.ErrEmptyTitle), errors.Is(err, meetings.ErrMissingDate),
		errors.Is(err, meetings.ErrInvalidDuration), errors.Is(err, meetings.ErrNoAttendees),
		errors.Is(err, ErrUnknownMember):
		response.BadRequest(c, err.Error())
	case errors.Is(err, meetings.ErrMeetingNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, meetings.ErrOutsideWeek), errors.Is(err, meetings.ErrSelfRequired), errors.Is(err, meetings.ErrLastAttendee):
		response.Unprocessable(c, err.Error())
	default:
		h.logger.Error("planner request failed", zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, "request failed")
	}
}

func userID(c *gin.Context) uuid.UUID {
	return c.MustGet(middleware.ContextUserID).(uuid.UUID)
}

// Grid handles GET /availability.
func (h *Handler) Grid(c *gin.Context) {
	v, err := h.svc.Grid(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, v)
}

// BestSlots handles GET /availability/best-slots.
func (h *Handler) BestSlots(c *gin.Context) {
	best, err := h.svc.BestSlots(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, best)
}

func (h *Handler) setStatus(c *gin.Context, toggle bool) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	key, err := grid.ParseKey(req.Key)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	status, err := models.ParseAvailabilityStatus(req.Status)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.svc.SetStatus(c.Request.Context(), userID(c), key, status, toggle)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"key": key, "status": result, "dirty": true})
}

// SetStatus handles PUT /availability/draft.
func (h *Handler) SetStatus(c *gin.Context) { h.setStatus(c, false) }

// ToggleStatus handles POST /availability/draft/toggle.
func (h *Handler) ToggleStatus(c *gin.Context) { h.setStatus(c, true) }

// Commit handles POST /availability/commit.
func (h *Handler) Commit(c *gin.Context) {
	snapshot, err := h.svc.Commit(c.Request.Context(), userID(c), false)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"slots": snapshot})
}

// CommitDefault handles POST /availability/commit-default.
func (h *Handler) CommitDefault(c *gin.Context) {
	snapshot, err := h.svc.Commit(c.Request.Context(), userID(c), true)
	if errors.Is(err, ErrDefaultNotSaved) {
		response.OK(c, gin.H{"slots": snapshot, "default": false, "warning": ErrDefaultNotSaved.Error()})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"slots": snapshot, "default": true})
}

// ListMeetings handles GET /meetings. Query ?past_limit=N truncates past meetings.
func (h *Handler) ListMeetings(c *gin.Context) {
	limit := 0
	if v := c.Query("past_limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(c, "invalid past_limit")
			return
		}
		limit = n
	}
	lists, err := h.svc.Meetings(c.Request.Context(), userID(c), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, lists)
}
