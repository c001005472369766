package teams

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamslot/backend/internal/middleware"
	"github.com/teamslot/backend/internal/models"
	"github.com/teamslot/backend/pkg/response"
)

// Roster events published to a team.
const (
	EventMemberJoined = "member_joined"
	EventMemberLeft   = "member_left"
)

// ErrOwnerRemoval is returned when an owner tries to remove themselves.
var ErrOwnerRemoval = errors.New("owners cannot remove themselves from their team")

// Slug must be lowercase alphanumeric and hyphens only, 2–64 chars.
var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// Store is the team persistence the handler needs.
type Store interface {
	Create(ctx context.Context, team *models.Team, ownerID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error)
	GetBySlug(ctx context.Context, slug string) (*models.Team, error)
	AddMember(ctx context.Context, teamID, userID uuid.UUID, role string) error
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error
	Membership(ctx context.Context, userID uuid.UUID) (uuid.UUID, string, error)
	Roster(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error)
}

// Presence reports which members hold an open realtime connection and closes the connections
// of members who left a team.
type Presence interface {
	OnlineMembers(teamID uuid.UUID) map[uuid.UUID]bool
	PublishTeamEvent(teamID uuid.UUID, event string, payload interface{})
	Disconnect(teamID, userID uuid.UUID) int
}

// AvatarSigner signs avatar object keys into temporary URLs.
type AvatarSigner interface {
	PresignAvatar(ctx context.Context, key string) (string, error)
}

// SessionInvalidator drops cached planning state for a user whose team changed.
type SessionInvalidator interface {
	Forget(userID uuid.UUID)
}

// Handler handles team HTTP endpoints.
type Handler struct {
	repo     Store
	presence Presence
	avatars  AvatarSigner
	sessions SessionInvalidator
	logger   *zap.Logger
}

// NewHandler creates a teams handler. presence and avatars may be nil.
func NewHandler(repo Store, presence Presence, avatars AvatarSigner, sessions SessionInvalidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, presence: presence, avatars: avatars, sessions: sessions, logger: logger}
}

// CreateTeamRequest is the body for POST /teams.
type CreateTeamRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

// JoinTeamRequest is the body for POST /teams/join.
type JoinTeamRequest struct {
	Slug string `json:"slug" binding:"required"`
}

// TeamView is a team with the caller's role and its roster.
type TeamView struct {
	models.Team
	Role    string              `json:"role"`
	Members []models.TeamMember `json:"members"`
}

func (h *Handler) changed(userID, oldTeam, newTeam uuid.UUID) {
	if h.sessions != nil {
		h.sessions.Forget(userID)
	}
	if h.presence == nil {
		return
	}
	if oldTeam != uuid.Nil && oldTeam != newTeam {
		h.presence.Disconnect(oldTeam, userID)
		h.presence.PublishTeamEvent(oldTeam, EventMemberLeft, map[string]uuid.UUID{"user_id": userID})
	}
	if newTeam != uuid.Nil {
		h.presence.PublishTeamEvent(newTeam, EventMemberJoined, map[string]uuid.UUID{"user_id": userID})
	}
}

func currentTeam(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(middleware.ContextTeamID); ok {
		return v.(uuid.UUID)
	}
	return uuid.Nil
}

func (h *Handler) roster(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	members, err := h.repo.Roster(ctx, teamID)
	if err != nil {
		return nil, err
	}
	var online map[uuid.UUID]bool
	if h.presence != nil {
		online = h.presence.OnlineMembers(teamID)
	}
	for i := range members {
		members[i].Online = online[members[i].ID]
		if h.avatars != nil && members[i].AvatarKey != "" {
			url, err := h.avatars.PresignAvatar(ctx, members[i].AvatarKey)
			if err != nil {
				h.logger.Warn("presign avatar failed", zap.Error(err), zap.String("user_id", members[i].ID.String()))
				continue
			}
			members[i].AvatarURL = url
		}
	}
	return members, nil
}

// CreateTeam handles POST /teams. Creates the team and adds the caller as owner.
func (h *Handler) CreateTeam(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body CreateTeamRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name and slug required")
		return
	}
	body.Slug = strings.ToLower(strings.TrimSpace(body.Slug))
	if !slugRegex.MatchString(body.Slug) {
		response.BadRequest(c, "slug must be 2–64 chars, lowercase letters, numbers, hyphens only")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if len(body.Name) < 1 || len(body.Name) > 255 {
		response.BadRequest(c, "name must be 1–255 characters")
		return
	}
	old, _, err := h.repo.Membership(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("load membership failed", zap.Error(err))
		response.Internal(c, "failed to create team")
		return
	}
	team := &models.Team{Name: body.Name, Slug: body.Slug}
	if err := h.repo.Create(c.Request.Context(), team, userID); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			response.Conflict(c, err.Error())
			return
		}
		h.logger.Error("create team failed", zap.Error(err))
		response.Internal(c, "failed to create team")
		return
	}
	h.logger.Info("team created", zap.String("team_id", team.ID.String()), zap.String("owner_id", userID.String()))
	h.changed(userID, old, team.ID)
	response.Created(c, team)
}

// JoinTeam handles POST /teams/join. Moves the caller into the team with the given slug.
func (h *Handler) JoinTeam(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body JoinTeamRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "slug required")
		return
	}
	slug := strings.ToLower(strings.TrimSpace(body.Slug))
	team, err := h.repo.GetBySlug(c.Request.Context(), slug)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("load team failed", zap.Error(err))
		response.Internal(c, "failed to join team")
		return
	}
	old, _, err := h.repo.Membership(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("load membership failed", zap.Error(err))
		response.Internal(c, "failed to join team")
		return
	}
	if old == team.ID {
		response.OK(c, team)
		return
	}
	if err := h.repo.AddMember(c.Request.Context(), team.ID, userID, models.TeamRoleMember); err != nil {
		h.logger.Error("join team failed", zap.Error(err))
		response.Internal(c, "failed to join team")
		return
	}
	h.changed(userID, old, team.ID)
	response.OK(c, team)
}

// MyTeam handles GET /teams/mine.
func (h *Handler) MyTeam(c *gin.Context) {
	teamID := currentTeam(c)
	team, err := h.repo.GetByID(c.Request.Context(), teamID)
	if err != nil {
		h.logger.Error("load team failed", zap.Error(err))
		response.Internal(c, "failed to load team")
		return
	}
	members, err := h.roster(c.Request.Context(), teamID)
	if err != nil {
		h.logger.Error("load roster failed", zap.Error(err))
		response.Internal(c, "failed to load members")
		return
	}
	role, _ := c.Get(middleware.ContextTeamRole)
	r, _ := role.(string)
	response.OK(c, TeamView{Team: *team, Role: r, Members: members})
}

// ListMembers handles GET /teams/members.
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.roster(c.Request.Context(), currentTeam(c))
	if err != nil {
		h.logger.Error("load roster failed", zap.Error(err))
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, members)
}

// RemoveMember handles DELETE /teams/members/:id (owners only).
func (h *Handler) RemoveMember(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}
	if memberID == c.MustGet(middleware.ContextUserID).(uuid.UUID) {
		response.Unprocessable(c, ErrOwnerRemoval.Error())
		return
	}
	teamID := currentTeam(c)
	if err := h.repo.RemoveMember(c.Request.Context(), teamID, memberID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "member not found")
			return
		}
		h.logger.Error("remove member failed", zap.Error(err))
		response.Internal(c, "failed to remove member")
		return
	}
	h.changed(memberID, teamID, uuid.Nil)
	response.NoContent(c)
}
