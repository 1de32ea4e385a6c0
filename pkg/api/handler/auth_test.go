package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dskvich/ai-chat-server/pkg/api/middleware"
	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type mockAuthService struct {
	profile domain.Profile
	token   string
	err     error

	loggedOutToken  string
	changedOld      string
	changedNew      string
	updatedFullName string
	updatedEmail    string
}

func (m *mockAuthService) Register(_ context.Context, username, email, password, fullName string) (domain.Profile, error) {
	return m.profile, m.err
}

func (m *mockAuthService) Login(_ context.Context, usernameOrEmail, password string) (domain.Profile, string, error) {
	return m.profile, m.token, m.err
}

func (m *mockAuthService) Logout(_ context.Context, token string) error {
	m.loggedOutToken = token
	return m.err
}

func (m *mockAuthService) UpdateProfile(_ context.Context, userID, fullName, email string) (domain.Profile, error) {
	m.updatedFullName = fullName
	m.updatedEmail = email
	return m.profile, m.err
}

func (m *mockAuthService) ChangePassword(_ context.Context, userID, oldPassword, newPassword string) error {
	m.changedOld = oldPassword
	m.changedNew = newPassword
	return m.err
}

func authedRequest(method, target, body string, profile domain.Profile) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.ContextWithProfile(req.Context(), profile))
}

func TestAuth_Register(t *testing.T) {
	svc := &mockAuthService{profile: domain.Profile{ID: "u1", Username: "alice"}}
	h := NewAuth(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"alice","email":"alice@example.com","password":"secret1"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got domain.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "alice", got.Username)
}

func TestAuth_Register_Duplicate(t *testing.T) {
	h := NewAuth(&mockAuthService{err: domain.NewValidationError("username already exists")})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"alice","email":"alice@example.com","password":"secret1"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "username already exists")
}

func TestAuth_Login(t *testing.T) {
	svc := &mockAuthService{profile: domain.Profile{ID: "u1", Username: "alice"}, token: "tok-1"}
	h := NewAuth(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"login":"alice","password":"secret1"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "tok-1", got.SessionToken)
	require.Equal(t, "alice", got.User.Username)
}

func TestAuth_Login_InvalidCredentials(t *testing.T) {
	h := NewAuth(&mockAuthService{err: domain.ErrInvalidCredentials})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"login":"alice","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_Logout_UsesBearerToken(t *testing.T) {
	svc := &mockAuthService{}
	h := NewAuth(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "tok-1", svc.loggedOutToken)
}

func TestAuth_Me(t *testing.T) {
	h := NewAuth(&mockAuthService{})
	profile := domain.Profile{ID: "u1", Username: "alice"}

	rec := httptest.NewRecorder()
	h.Me(rec, authedRequest(http.MethodGet, "/api/auth/me", "", profile))

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "u1", got.ID)
}

func TestAuth_Me_Unauthenticated(t *testing.T) {
	h := NewAuth(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_UpdateProfile(t *testing.T) {
	svc := &mockAuthService{profile: domain.Profile{ID: "u1", FullName: "Alice B"}}
	h := NewAuth(svc)

	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, authedRequest(http.MethodPut, "/api/auth/profile",
		`{"full_name":"Alice B","email":"new@example.com"}`, domain.Profile{ID: "u1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Alice B", svc.updatedFullName)
	require.Equal(t, "new@example.com", svc.updatedEmail)
}

func TestAuth_ChangePassword(t *testing.T) {
	svc := &mockAuthService{}
	h := NewAuth(svc)

	rec := httptest.NewRecorder()
	h.ChangePassword(rec, authedRequest(http.MethodPut, "/api/auth/password",
		`{"old_password":"secret1","new_password":"newsecret"}`, domain.Profile{ID: "u1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "secret1", svc.changedOld)
	require.Equal(t, "newsecret", svc.changedNew)
}

func TestAuth_ChangePassword_WrongOld(t *testing.T) {
	h := NewAuth(&mockAuthService{err: domain.ErrInvalidCredentials})

	rec := httptest.NewRecorder()
	h.ChangePassword(rec, authedRequest(http.MethodPut, "/api/auth/password",
		`{"old_password":"wrong","new_password":"newsecret"}`, domain.Profile{ID: "u1"}))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
