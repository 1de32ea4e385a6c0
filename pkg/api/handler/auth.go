package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dskvich/ai-chat-server/pkg/api/middleware"
	"github.com/dskvich/ai-chat-server/pkg/api/response"
	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, email, password, fullName string) (domain.Profile, error)
	Login(ctx context.Context, usernameOrEmail, password string) (domain.Profile, string, error)
	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, userID, fullName, email string) (domain.Profile, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

type auth struct {
	service AuthService
	writer  response.JSONResponseWriter
}

func NewAuth(service AuthService) *auth {
	return &auth{service: service}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

func (a *auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writer.WriteErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	profile, err := a.service.Register(r.Context(), req.Username, req.Email, req.Password, req.FullName)
	if err != nil {
		writeError(&a.writer, w, err)
		return
	}
	a.writer.WriteResponse(w, http.StatusCreated, profile)
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         domain.Profile `json:"user"`
	SessionToken string         `json:"session_token"`
}

func (a *auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writer.WriteErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	profile, token, err := a.service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(&a.writer, w, err)
		return
	}
	a.writer.WriteSuccessResponse(w, loginResponse{User: profile, SessionToken: token})
}

func (a *auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		writeError(&a.writer, w, err)
		return
	}
	a.writer.WriteSuccessResponse(w, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated profile resolved by the auth middleware.
func (a *auth) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		a.writer.WriteErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	a.writer.WriteSuccessResponse(w, profile)
}

type updateProfileRequest struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (a *auth) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		a.writer.WriteErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writer.WriteErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, err := a.service.UpdateProfile(r.Context(), profile.ID, req.FullName, req.Email)
	if err != nil {
		writeError(&a.writer, w, err)
		return
	}
	a.writer.WriteSuccessResponse(w, updated)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (a *auth) ChangePassword(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		a.writer.WriteErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writer.WriteErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := a.service.ChangePassword(r.Context(), profile.ID, req.OldPassword, req.NewPassword); err != nil {
		writeError(&a.writer, w, err)
		return
	}
	a.writer.WriteSuccessResponse(w, map[string]string{"message": "Password changed successfully"})
}
