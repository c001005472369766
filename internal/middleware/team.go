package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamslot/backend/pkg/response"
)

const (
	// ContextTeamID is the key for the caller's team ID in gin context.
	ContextTeamID = "team_id"
	// ContextTeamRole is the key for the caller's team role in gin context.
	ContextTeamRole = "team_role"
)

// MembershipResolver returns the team and role of a user. teamID is uuid.Nil when the user has no team.
type MembershipResolver interface {
	Membership(ctx context.Context, userID uuid.UUID) (teamID uuid.UUID, role string, err error)
}

// RequireTeam loads the caller's membership into context and rejects users without a team.
// It must run after JWT.
func RequireTeam(teams MembershipResolver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		userID, ok := c.Get(ContextUserID)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		teamID, role, err := teams.Membership(c.Request.Context(), userID.(uuid.UUID))
		if err != nil {
			logger.Error("resolve team membership failed", zap.Error(err))
			response.Internal(c, "request failed")
			c.Abort()
			return
		}
		if teamID == uuid.Nil {
			response.Conflict(c, "join or create a team first")
			c.Abort()
			return
		}
		c.Set(ContextTeamID, teamID)
		c.Set(ContextTeamRole, role)
		c.Next()
	}
}

// RequireTeamRole allows only callers holding one of roles in their team. It must run after RequireTeam.
func RequireTeamRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextTeamRole)
		if !ok {
			response.Unauthorized(c, "missing team context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
