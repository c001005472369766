package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamslot/backend/internal/middleware"
	"github.com/teamslot/backend/internal/models"
	"github.com/teamslot/backend/pkg/utils"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[uuid.UUID]*models.User{}} }

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) Create(_ context.Context, email, hash, name string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, ErrEmailTaken
		}
	}
	u := &models.User{ID: uuid.New(), Email: email, Password: hash, Name: name, CreatedAt: time.Now()}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetAvatarKey(_ context.Context, id uuid.UUID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.AvatarKey = key
	return nil
}

func (m *memUsers) SetPasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Password = hash
	return nil
}

func (m *memUsers) hashOf(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u.Password
		}
	}
	return ""
}

type memAvatars struct {
	objects map[string][]byte
	deleted []string
}

func (m *memAvatars) UploadAvatar(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *memAvatars) PresignAvatar(_ context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func (m *memAvatars) DeleteAvatar(_ context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type authEnv struct {
	users   *memUsers
	avatars *memAvatars
	jwt     *JWTService
	handler *Handler
	router  *gin.Engine
}

func newAuthEnv() *authEnv {
	gin.SetMode(gin.TestMode)
	e := &authEnv{users: newMemUsers(), avatars: &memAvatars{objects: map[string][]byte{}}, jwt: NewJWTService("test-secret", 1)}
	e.handler = NewHandler(e.users, e.jwt, e.avatars, nil)
	e.handler.SetPasswordHasher(utils.NewPasswordHasher(bcrypt.MinCost))
	r := gin.New()
	r.POST("/auth/register", e.handler.Register)
	r.POST("/auth/login", e.handler.Login)
	me := r.Group("/me", middleware.JWT(e.jwt))
	me.GET("", e.handler.Me)
	me.POST("/avatar", e.handler.UploadAvatar)
	e.router = r
	return e
}

func (e *authEnv) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type tokenEnvelope struct {
	Data  TokenResponse `json:"data"`
	Error string        `json:"error"`
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	id := uuid.New()
	tok, err := svc.Generate(id, "a@example.com")
	require.NoError(t, err)

	got, err := svc.UserID(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = NewJWTService("other", 1).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.Generate(id, "a@example.com")
	require.NoError(t, err)
	_, err = svc.Validate(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterLoginMe(t *testing.T) {
	e := newAuthEnv()

	w := e.postJSON("/auth/register", gin.H{"email": "Ada@Example.com", "password": "hunter22", "name": "Ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg tokenEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.Equal(t, "ada@example.com", reg.Data.User.Email)
	assert.NotContains(t, w.Body.String(), "hunter22")

	w = e.postJSON("/auth/register", gin.H{"email": "ada@example.com", "password": "another1", "name": "Ada 2"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.postJSON("/auth/login", gin.H{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.postJSON("/auth/login", gin.H{"email": "ADA@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	var login tokenEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Data.Token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Ada"`)
}

func TestLoginUpgradesPasswordCost(t *testing.T) {
	e := newAuthEnv()
	w := e.postJSON("/auth/register", gin.H{"email": "ada@example.com", "password": "hunter22", "name": "Ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	old := e.users.hashOf("ada@example.com")
	cost, err := bcrypt.Cost([]byte(old))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	e.handler.SetPasswordHasher(utils.NewPasswordHasher(bcrypt.MinCost + 1))
	w = e.postJSON("/auth/login", gin.H{"email": "ada@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	upgraded := e.users.hashOf("ada@example.com")
	assert.NotEqual(t, old, upgraded)
	cost, err = bcrypt.Cost([]byte(upgraded))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	// The upgraded hash still signs in, and is left alone from now on.
	w = e.postJSON("/auth/login", gin.H{"email": "ada@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, upgraded, e.users.hashOf("ada@example.com"))
}

func TestRegisterValidationMessages(t *testing.T) {
	e := newAuthEnv()
	w := e.postJSON("/auth/register", gin.H{"email": "not-an-email", "password": "abc", "name": "Ada"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var env tokenEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "email must be a valid email; password must be at least 6 characters", env.Error)
}

func TestAuthorizedEmails(t *testing.T) {
	e := newAuthEnv()
	e.handler.SetAuthorizedEmails([]string{"Team@Example.com"})

	w := e.postJSON("/auth/register", gin.H{"email": "stranger@example.com", "password": "hunter22", "name": "S"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), ErrNotAuthorized.Error())

	w = e.postJSON("/auth/register", gin.H{"email": "team@example.com", "password": "hunter22", "name": "T"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func avatarRequest(t *testing.T, token, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadAvatarReplacesPrevious(t *testing.T) {
	e := newAuthEnv()
	u, err := e.users.Create(context.Background(), "ada@example.com", "x", "Ada")
	require.NoError(t, err)
	tok, err := e.jwt.Generate(u.ID, u.Email)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, avatarRequest(t, tok, "me.png", "image/png", []byte("png-1")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := e.users.users[u.ID].AvatarKey
	require.NotEmpty(t, first)
	assert.Contains(t, w.Body.String(), "https://signed.example/"+first)

	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, avatarRequest(t, tok, "me.png", "image/png", []byte("png-2")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{first}, e.avatars.deleted)
	assert.Len(t, e.avatars.objects, 1)

	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, avatarRequest(t, tok, "notes.txt", "text/plain", []byte("nope")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
