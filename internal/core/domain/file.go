package domain

import "time"

// SharePermission is the level of an explicit share grant on a file.
type SharePermission string

const (
	PermissionRead  SharePermission = "READ"
	PermissionWrite SharePermission = "WRITE"
)

// Satisfies reports whether a grant of this level satisfies the requested one.
// WRITE implies READ; READ never satisfies WRITE.
func (p SharePermission) Satisfies(requested SharePermission) bool {
	if p == PermissionWrite {
		return true
	}
	return p == requested
}

// ShareGrant is an explicit permission entry on a file for one non-owner user.
// A file carries at most one grant per user; re-sharing replaces the old grant.
type ShareGrant struct {
	UserID     string          `json:"userID"`
	Permission SharePermission `json:"permission"`
	GrantedAt  time.Time       `json:"grantedAt"`
}

// File represents stored file metadata in the domain. The bytes themselves
// live in the blob store under StorageKey.
type File struct {
	FileID      string   `json:"fileID"`     // Primary Key (UUID)
	StorageKey  string   `json:"storageKey"` // Unique key in the blob store
	FileName    string   `json:"fileName"`
	SizeBytes   int64    `json:"sizeBytes"`
	ContentType string   `json:"contentType"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	OwnerID  string `json:"ownerID"` // Immutable after creation
	IsPublic bool   `json:"isPublic"`

	SharedWith []ShareGrant `json:"sharedWith,omitempty"`

	DownloadCount  int64      `json:"downloadCount"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`

	IsDeleted bool       `json:"-"`
	DeletedAt *time.Time `json:"-"`

	AuditFields
}

// GrantFor returns the explicit share grant for the given user, if any.
func (f *File) GrantFor(userID string) (ShareGrant, bool) {
	for _, g := range f.SharedWith {
		if g.UserID == userID {
			return g, true
		}
	}
	return ShareGrant{}, false
}
