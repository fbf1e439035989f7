package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	apperrors "github.com/civicdesk/civicdesk/internal/errors"
)

// authStatus maps taxonomy kinds to response statuses.
var authStatus = map[domainauth.ErrorKind]int{ //nolint:gochecknoglobals // read-only lookup table
	domainauth.KindInvalidCredentials:     http.StatusUnauthorized,
	domainauth.KindEmailUnconfirmed:       http.StatusForbidden,
	domainauth.KindEmailAlreadyRegistered: http.StatusConflict,
	domainauth.KindWeakPassword:           http.StatusUnprocessableEntity,
	domainauth.KindRateLimited:            http.StatusTooManyRequests,
	domainauth.KindUnknownRole:            http.StatusForbidden,
	domainauth.KindAuthenticationFailed:   http.StatusUnauthorized,
}

// appStatus maps AppError codes to response statuses.
var appStatus = map[apperrors.ErrorCode]int{ //nolint:gochecknoglobals // read-only lookup table
	apperrors.ErrCodeNotFound:    http.StatusNotFound,
	apperrors.ErrCodeConflict:    http.StatusConflict,
	apperrors.ErrCodeValidation:  http.StatusBadRequest,
	apperrors.ErrCodeForbidden:   http.StatusForbidden,
	apperrors.ErrCodeUnavailable: http.StatusServiceUnavailable,
	apperrors.ErrCodeTimeout:     http.StatusGatewayTimeout,
	apperrors.ErrCodeCanceled:    http.StatusServiceUnavailable,
	apperrors.ErrCodeInternal:    http.StatusInternalServerError,
}

// errorResponse picks the status, error code and user-facing message for err.
// Unclassified errors become a generic 500 so internal details never reach the client.
func errorResponse(err error) ErrorParams {
	if kind := domainauth.KindOf(err); kind != "" {
		return ErrorParams{
			Code:    authStatus[kind],
			ErrCode: string(kind),
			Err:     errors.New(domainauth.UserMessage(err)),
		}
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status, ok := appStatus[appErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		msg := appErr.Message
		if status == http.StatusInternalServerError {
			msg = "Something went wrong. Please try again."
		}
		return ErrorParams{Code: status, ErrCode: string(appErr.Code), Err: errors.New(msg)}
	}

	return ErrorParams{
		Code:    http.StatusInternalServerError,
		ErrCode: string(apperrors.ErrCodeInternal),
		Err:     errors.New("Something went wrong. Please try again."),
	}
}

// writeServiceError logs err with its cause chain and writes the mapped response.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	p := errorResponse(err)
	level := slog.LevelInfo
	if p.Code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", p.Code,
		"code", p.ErrCode,
		"error", err,
	)
	WriteError(w, p)
}
