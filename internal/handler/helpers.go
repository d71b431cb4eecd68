package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"studysync/internal/domain"
	"studysync/internal/httputil"
)

// handleError converts domain errors to problem responses with a
// machine-readable code. Authorization failures always carry the same detail
// so a response never reveals which part of the document's access control
// rejected the caller.
func handleError(w http.ResponseWriter, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.Is(err, domain.ErrInvalidInvitee):
		respondCode(w, http.StatusBadRequest, "invalid_invitee", err.Error())
	case errors.Is(err, domain.ErrValidation):
		respondCode(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondCode(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondCode(w, http.StatusForbidden, "permission_denied", domain.PermissionDeniedMessage)
	case errors.Is(err, domain.ErrNotFound):
		respondCode(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &conflict):
		extras := map[string]any{"code": "conflict"}
		if errors.Is(err, domain.ErrAlreadyCollaborator) {
			extras["code"] = "already_collaborator"
		}
		if conflict.ResourceType != "" {
			extras["resource_type"] = conflict.ResourceType
		}
		if conflict.ResourceID != "" {
			extras["resource_id"] = conflict.ResourceID
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, err.Error(), extras)
	case errors.Is(err, domain.ErrConflict):
		respondCode(w, http.StatusConflict, "conflict", err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondCode(w http.ResponseWriter, status int, code, detail string) {
	httputil.RespondErrorWithExtras(w, status, detail, map[string]any{"code": code})
}

// requireUser returns the authenticated user ID, or writes a 401 and returns false
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "sign in required")
		return "", false
	}
	return userID, true
}

// pathUUID reads a UUID path value, or writes a 400 and returns false
func pathUUID(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid "+label+" ID format")
		return "", false
	}
	return id.String(), true
}
