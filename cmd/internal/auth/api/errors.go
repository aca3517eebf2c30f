package authapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"authgate/cmd/identity"
	"authgate/cmd/internal/auth/session"
)

// WriteUnauthorized writes the 401 body for r.
func WriteUnauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	writeStatus(w, r, http.StatusUnauthorized, msg)
}

// WriteForbidden writes the 403 body for an authenticated caller lacking a role.
func WriteForbidden(w http.ResponseWriter, r *http.Request, msg string) {
	writeStatus(w, r, http.StatusForbidden, msg)
}

func writeStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, statusBody{
		Status:  status,
		Error:   http.StatusText(status),
		Message: msg,
		Path:    r.URL.Path,
	})
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorMessage{Message: msg, Description: "uri=" + r.URL.Path})
}

// writeDomainError maps session and identity errors to a status and message.
// Unrecognised errors are logged and reported as 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := translate(err)
	if status == http.StatusInternalServerError {
		log.Error("auth.request.fail", "path", r.URL.Path, "err", err)
	}
	writeMessage(w, r, status, msg)
}

func translate(err error) (int, string) {
	var (
		lookup   *session.UserLookupError
		conflict identity.ConflictError
		opErr    identity.OpError
	)

	switch {
	case errors.Is(err, session.ErrTokenNotFound):
		return http.StatusForbidden, "Refresh token not found"
	case errors.Is(err, session.ErrExpired):
		return http.StatusForbidden, "Refresh token was expired. Repeat signin action!"
	case errors.As(err, &lookup):
		return http.StatusForbidden, fmt.Sprintf("Exception trying to get token for userId: %s", lookup.UserID)
	case errors.Is(err, session.ErrUserLookupFailed):
		return http.StatusForbidden, "Exception trying to get token"
	case errors.As(err, &conflict):
		switch conflict.Field {
		case "username":
			return http.StatusBadRequest, "Username already exists: " + conflict.Value
		case "email":
			return http.StatusBadRequest, "Email already exists: " + conflict.Value
		default:
			return http.StatusBadRequest, "Already exists"
		}
	case errors.Is(err, identity.ErrConflict):
		return http.StatusBadRequest, "Already exists"
	case errors.Is(err, identity.ErrNotFound):
		return http.StatusBadRequest, "Not found"
	case errors.As(err, &opErr) && errors.Is(opErr.Kind, identity.ErrInvalidInput) && opErr.Msg != "":
		return http.StatusBadRequest, opErr.Msg
	case errors.Is(err, identity.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid input"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
