package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/apperr"
	jwtpkg "github.com/BigBr41n/Dz-Stores-Finder/internal/platform/jwt"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	appErr := apperr.FromError(err)
	if appErr.Kind == apperr.KindUnauthorized && errors.Is(err, jwtpkg.ErrTokenExpired) {
		return apperr.Unauthorized("token_expired", "token expired, log in again", err)
	}
	if appErr.Kind == apperr.KindInternal {
		// Collaborator detail stays in the logs.
		return apperr.Internal(appErr.Code, "internal server error", err)
	}
	return appErr
}

// fail logs internal failures with request context and renders err.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r)),
			zap.Error(err),
		)
	}
	errorResponse(w, err)
}
