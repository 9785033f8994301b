package models

import "time"

type Node struct {
	ID         string    `json:"id"`
	OwnerID    int64     `json:"owner_id"`
	ParentID   *string   `json:"parent_id"`
	Name       string    `json:"name"`
	NodeType   string    `json:"node_type"`
	Path       string    `json:"path"`
	SizeBytes  *int64    `json:"size_bytes"`
	MimeType   *string   `json:"mime_type"`
	ContentRef *string   `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}
