package models

import "time"

// PublishedDocument is a community feed entry.
type PublishedDocument struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	PublishedAt time.Time `json:"published_at"`
}

// CommunityPage is one page of the community feed or of a feed search.
type CommunityPage struct {
	Documents []PublishedDocument `json:"documents"`
	Total     int                 `json:"total"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
	Query     string              `json:"query,omitempty"`
}

const (
	// DefaultCommunityPageSize is used when the caller sends no limit.
	DefaultCommunityPageSize = 20
	// MaxCommunityPageSize caps a single community page.
	MaxCommunityPageSize = 100
)

// NormalizePage clamps limit and offset into the accepted range.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultCommunityPageSize
	}
	if limit > MaxCommunityPageSize {
		limit = MaxCommunityPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
