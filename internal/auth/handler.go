package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamslot/backend/internal/middleware"
	"github.com/teamslot/backend/internal/models"
	"github.com/teamslot/backend/pkg/response"
	"github.com/teamslot/backend/pkg/storage"
	"github.com/teamslot/backend/pkg/utils"
)

// ErrNotAuthorized is returned when registration is restricted and the address is not listed.
var ErrNotAuthorized = errors.New("this email is not authorized to use the scheduler")

// UserStore is the user persistence the handler needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, name string) (*models.User, error)
	SetAvatarKey(ctx context.Context, id uuid.UUID, key string) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// AvatarStore keeps avatar images.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignAvatar(ctx context.Context, key string) (string, error)
	DeleteAvatar(ctx context.Context, key string) error
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo      UserStore
	jwt       *JWTService
	avatars   AvatarStore
	passwords *utils.PasswordHasher
	allowed   map[string]bool
	logger    *zap.Logger
}

// NewHandler creates an auth handler. avatars may be nil when S3 is not configured.
func NewHandler(repo UserStore, jwt *JWTService, avatars AvatarStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, avatars: avatars, passwords: utils.NewPasswordHasher(0), logger: logger}
}

// SetPasswordHasher replaces the hasher used for new and upgraded password hashes.
func (h *Handler) SetPasswordHasher(p *utils.PasswordHasher) {
	h.passwords = p
}

// SetAuthorizedEmails restricts registration and login to the given addresses. An empty list
// lifts the restriction.
func (h *Handler) SetAuthorizedEmails(emails []string) {
	h.allowed = utils.EmailSet(emails)
}

func (h *Handler) authorized(email string) bool {
	return len(h.allowed) == 0 || h.allowed[email]
}

func (h *Handler) withAvatarURL(ctx context.Context, u *models.User) {
	if h.avatars == nil || u.AvatarKey == "" {
		return
	}
	url, err := h.avatars.PresignAvatar(ctx, u.AvatarKey)
	if err != nil {
		h.logger.Warn("presign avatar failed", zap.Error(err), zap.String("user_id", u.ID.String()))
		return
	}
	u.AvatarURL = url
}

func (h *Handler) issue(c *gin.Context, status int, u *models.User) {
	token, err := h.jwt.Generate(u.ID, u.Email)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	h.withAvatarURL(c.Request.Context(), u)
	response.JSON(c, status, TokenResponse{Token: token, User: *u})
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	email := utils.NormalizeEmail(req.Email)
	if !h.authorized(email) {
		response.Forbidden(c, ErrNotAuthorized.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		response.BadRequest(c, "name is required")
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user, err := h.repo.Create(c.Request.Context(), email, hash, name)
	if errors.Is(err, ErrEmailTaken) {
		response.Conflict(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	h.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	h.issue(c, http.StatusCreated, user)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}
	email := utils.NormalizeEmail(req.Email)
	if !h.authorized(email) {
		response.Forbidden(c, ErrNotAuthorized.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			h.logger.Error("load user failed", zap.Error(err))
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !h.passwords.Matches(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if h.passwords.Outdated(user.Password) {
		h.upgradeHash(c.Request.Context(), user.ID, req.Password)
	}
	h.issue(c, http.StatusOK, user)
}

// upgradeHash rehashes a password stored at an old cost. Failures only cost the upgrade.
func (h *Handler) upgradeHash(ctx context.Context, userID uuid.UUID, plain string) {
	hash, err := h.passwords.Hash(plain)
	if err == nil {
		err = h.repo.SetPasswordHash(ctx, userID, hash)
	}
	if err != nil {
		h.logger.Warn("password rehash failed", zap.Error(err), zap.String("user_id", userID.String()))
		return
	}
	h.logger.Info("password rehashed", zap.String("user_id", userID.String()), zap.Int("cost", h.passwords.Cost()))
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("load user failed", zap.Error(err))
		response.Internal(c, "failed to load user")
		return
	}
	h.withAvatarURL(c.Request.Context(), user)
	response.OK(c, user)
}

// UploadAvatar handles POST /me/avatar (multipart field "file").
func (h *Handler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		response.ServiceUnavailable(c, "avatar storage is not configured")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fh.Size > storage.MaxAvatarSize {
		response.BadRequest(c, "avatar must be 2MB or smaller")
		return
	}
	contentType, err := storage.AvatarContentType(fh.Header.Get("Content-Type"), fh.Filename)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, ErrNotFound.Error())
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "cannot read file")
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	key := storage.AvatarKey(userID, contentType)
	if err := h.avatars.UploadAvatar(ctx, key, contentType, f, fh.Size); err != nil {
		h.logger.Error("avatar upload failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to store avatar")
		return
	}
	if err := h.repo.SetAvatarKey(ctx, userID, key); err != nil {
		h.logger.Error("save avatar key failed", zap.Error(err), zap.String("user_id", userID.String()))
		_ = h.avatars.DeleteAvatar(ctx, key)
		response.Internal(c, "failed to store avatar")
		return
	}
	if old := user.AvatarKey; old != "" {
		if err := h.avatars.DeleteAvatar(ctx, old); err != nil {
			h.logger.Warn("delete previous avatar failed", zap.Error(err), zap.String("key", old))
		}
	}
	user.AvatarKey = key
	h.withAvatarURL(ctx, user)
	response.OK(c, user)
}
