package handler

import (
	"log/slog"
	"net/http"

	"studysync/internal/domain/services"
	"studysync/internal/httputil"
)

// SharingHandler handles collaborator and visibility HTTP requests
type SharingHandler struct {
	sharingService services.SharingService
	logger         *slog.Logger
}

// NewSharingHandler creates a new sharing handler
func NewSharingHandler(sharingService services.SharingService, logger *slog.Logger) *SharingHandler {
	return &SharingHandler{
		sharingService: sharingService,
		logger:         logger,
	}
}

type visibilityBody struct {
	ShareStatus string `json:"share_status"`
}

// target reads the caller and document ID shared by every sharing route
func (h *SharingHandler) target(w http.ResponseWriter, r *http.Request) (userID, documentID string, ok bool) {
	if userID, ok = requireUser(w, r); !ok {
		return "", "", false
	}
	if documentID, ok = pathUUID(w, r, "id", "document"); !ok {
		return "", "", false
	}
	return userID, documentID, true
}

// Invite adds a collaborator by email
// POST /api/documents/{id}/collaborators
func (h *SharingHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, documentID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req services.InviteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.DocumentID = documentID
	req.CallerID = userID
	req.CallerEmail = httputil.GetUserEmail(r)

	result, err := h.sharingService.Invite(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}

// SetRole moves a collaborator between editor and viewer
// PATCH /api/documents/{id}/collaborators/{userId}
func (h *SharingHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID, documentID, ok := h.target(w, r)
	if !ok {
		return
	}
	targetID, ok := pathUUID(w, r, "userId", "user")
	if !ok {
		return
	}

	var req services.SetRoleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.DocumentID = documentID
	req.CallerID = userID
	req.TargetID = targetID

	collabs, err := h.sharingService.SetRole(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, collabs)
}

// Remove revokes a collaborator's access
// DELETE /api/documents/{id}/collaborators/{userId}
func (h *SharingHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, documentID, ok := h.target(w, r)
	if !ok {
		return
	}
	targetID, ok := pathUUID(w, r, "userId", "user")
	if !ok {
		return
	}

	collabs, err := h.sharingService.Remove(r.Context(), documentID, userID, targetID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, collabs)
}

// SetVisibility switches between invite-only and anyone-with-link
// PUT /api/documents/{id}/visibility
func (h *SharingHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	userID, documentID, ok := h.target(w, r)
	if !ok {
		return
	}

	var body visibilityBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	access, err := h.sharingService.SetVisibility(r.Context(), documentID, userID, body.ShareStatus)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, access)
}

// Publish lists the document in the community feed
// POST /api/documents/{id}/publish
func (h *SharingHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, documentID, ok := h.target(w, r)
	if !ok {
		return
	}

	access, err := h.sharingService.Publish(r.Context(), documentID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, access)
}

// Unpublish returns the document to invite-only
// DELETE /api/documents/{id}/publish
func (h *SharingHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	userID, documentID, ok := h.target(w, r)
	if !ok {
		return
	}

	access, err := h.sharingService.Unpublish(r.Context(), documentID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, access)
}
