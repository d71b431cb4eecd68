package handler

import (
	"log/slog"
	"net/http"

	"studysync/internal/domain/models"
	"studysync/internal/domain/services"
	"studysync/internal/httputil"
)

// CommunityHandler serves the public feed of published documents
type CommunityHandler struct {
	communityService services.CommunityService
	logger           *slog.Logger
}

// NewCommunityHandler creates a new community handler
func NewCommunityHandler(communityService services.CommunityService, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{
		communityService: communityService,
		logger:           logger,
	}
}

// ListPublished returns a page of the feed
// GET /api/community?limit=&offset=
func (h *CommunityHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	page, err := h.communityService.ListPublished(r.Context(), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// Search finds published documents
// GET /api/community/search?q=&limit=&offset=
func (h *CommunityHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	page, err := h.communityService.Search(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

func pageParams(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, err := httputil.QueryInt(r, "limit", models.DefaultCommunityPageSize)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	offset, err = httputil.QueryInt(r, "offset", 0)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return limit, offset, true
}
