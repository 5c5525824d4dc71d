package api

import (
	"net/http"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/metrics"
)

type signUpRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// @Summary     Sign up
// @Description Creates an unverified account and mails an activation link.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      signUpRequest      true  "Account"
// @Success     201      {object}  user.User
// @Failure     400      {object}  map[string]string  "invalid input or weak password"
// @Failure     409      {object}  map[string]string  "email taken"
// @Failure     500      {object}  map[string]string  "server error"
// @Router      /auth/signup [post]
func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	u, err := h.userSvc.SignUp(r.Context(), req.Name, req.Email, req.Password)
	metrics.IncAuthEvent("signup", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// @Summary     Log in
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      loginRequest       true  "Credentials"
// @Success     200      {object}  user.LoginResult
// @Failure     401      {object}  map[string]string  "invalid credentials or not verified"
// @Failure     404      {object}  map[string]string  "user not found"
// @Router      /auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	res, err := h.userSvc.Login(r.Context(), req.Email, req.Password)
	metrics.IncAuthEvent("login", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary     Activate account
// @Tags        auth
// @Produce     json
// @Param       token  query     string             true  "Activation token"
// @Success     200    {object}  map[string]string
// @Failure     400    {object}  map[string]string  "invalid or expired token"
// @Failure     409    {object}  map[string]string  "already activated"
// @Router      /auth/verify [get]
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	_, err := h.userSvc.Activate(r.Context(), r.URL.Query().Get("token"))
	metrics.IncAuthEvent("activate", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "account activated")
}

// @Summary     Request a password reset
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      forgotPasswordRequest  true  "Email"
// @Success     200      {object}  map[string]string
// @Failure     404      {object}  map[string]string  "invalid email"
// @Router      /auth/forgotPassword [post]
func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	_, err := h.userSvc.ForgotPassword(r.Context(), req.Email)
	metrics.IncAuthEvent("forgot_password", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "reset token sent to your email")
}

// @Summary     Reset password with a mailed token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      resetPasswordRequest  true  "Token and new password"
// @Success     200      {object}  map[string]string
// @Failure     400      {object}  map[string]string  "invalid or expired token"
// @Router      /auth/verifyResetCode [post]
func (h *Handler) handleVerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	_, err := h.userSvc.ConfirmForgotPassword(r.Context(), req.Token, req.Password)
	metrics.IncAuthEvent("reset_password", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "password updated")
}

// @Summary     Refresh tokens
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      refreshRequest     true  "Refresh token"
// @Success     200      {object}  user.Tokens
// @Failure     401      {object}  map[string]string  "invalid or expired refresh token"
// @Router      /auth/refresh [post]
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	tokens, err := h.userSvc.Refresh(r.Context(), req.RefreshToken)
	metrics.IncAuthEvent("refresh", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// @Summary     Change password
// @Tags        auth
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      changePasswordRequest  true  "Old and new password"
// @Success     200      {object}  map[string]string
// @Failure     400      {object}  map[string]string  "missing or weak password"
// @Failure     401      {object}  map[string]string  "wrong old password"
// @Router      /auth/change-password [put]
func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	err := h.userSvc.ChangePassword(r.Context(), userIDFromCtx(r), req.OldPassword, req.NewPassword)
	metrics.IncAuthEvent("change_password", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "password changed")
}
