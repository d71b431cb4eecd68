package models

import (
	"time"

	"studysync/internal/domain/models/sharing"
)

// Document is a study-notes document together with its access-control fields.
// Content is the editor's serialized body; this service never interprets it.
type Document struct {
	ID          string              `json:"id" db:"id"`
	OwnerID     string              `json:"owner_id" db:"owner_id"`
	Title       string              `json:"title" db:"title"`
	Content     string              `json:"content" db:"content"`
	Editors     []string            `json:"-" db:"editors"`
	Viewers     []string            `json:"-" db:"viewers"`
	ShareStatus sharing.ShareStatus `json:"share_status" db:"share_status"`
	PublishedAt *time.Time          `json:"published_at,omitempty" db:"published_at"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// AccessControl returns the access-control subset of the document.
func (d *Document) AccessControl() *sharing.AccessControl {
	return &sharing.AccessControl{
		DocumentID:  d.ID,
		OwnerID:     d.OwnerID,
		Editors:     d.Editors,
		Viewers:     d.Viewers,
		ShareStatus: d.ShareStatus,
		PublishedAt: d.PublishedAt,
	}
}

// DocumentView is a document as seen by one requester.
type DocumentView struct {
	Document
	Capabilities sharing.Capabilities `json:"capabilities"`
}

// DocumentSummary is a document listing entry (no content).
type DocumentSummary struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"owner_id"`
	Title       string              `json:"title"`
	ShareStatus sharing.ShareStatus `json:"share_status"`
	AccessLevel sharing.AccessLevel `json:"access_level"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// AccessView is the sharing panel for one requester. Collaborator lists are
// only included for callers with edit access or better.
type AccessView struct {
	DocumentID    string                 `json:"document_id"`
	OwnerID       string                 `json:"owner_id"`
	ShareStatus   sharing.ShareStatus    `json:"share_status"`
	Capabilities  sharing.Capabilities   `json:"capabilities"`
	Collaborators *sharing.Collaborators `json:"collaborators,omitempty"`
}

// CreateDocumentRequest is the input for creating a document.
type CreateDocumentRequest struct {
	OwnerID string `json:"-"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateDocumentRequest is a partial update; nil fields are left unchanged.
type UpdateDocumentRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}
