package models

import (
	"database/sql"
	"time"
)

// File is the persistence model for a row of the files table.
type File struct {
	FileID      string         `db:"file_id"`
	StorageKey  string         `db:"storage_key"`
	FileName    string         `db:"file_name"`
	SizeBytes   int64          `db:"size_bytes"`
	ContentType string         `db:"content_type"`
	Description sql.NullString `db:"description"`
	Tags        []string       `db:"tags"`

	OwnerID  string `db:"owner_id"`
	IsPublic bool   `db:"is_public"`

	DownloadCount  int64        `db:"download_count"`
	LastAccessedAt sql.NullTime `db:"last_accessed_at"`

	IsDeleted bool       `db:"is_deleted"`
	DeletedAt *time.Time `db:"deleted_at"`

	AuditFields
}

// FileShare is the persistence model for a row of the file_shares table.
// Primary key is (file_id, user_id), which is what caps grants at one per user.
type FileShare struct {
	FileID     string    `db:"file_id"`
	UserID     string    `db:"user_id"`
	Permission string    `db:"permission"`
	GrantedAt  time.Time `db:"granted_at"`
}
