package dto

import (
	"time"

	"github.com/filevaulthq/filevault_app/internal/core/domain"
)

// --- File DTOs ---

// UploadFileRequest carries the metadata fields of a multipart upload. The
// file part itself is read from the multipart form directly.
type UploadFileRequest struct {
	Description string   `form:"description" binding:"omitempty,max=2000"`
	Tags        []string `form:"tags" binding:"omitempty,max=20,dive,min=1,max=50"`
	IsPublic    bool     `form:"isPublic"`
}

// UpdateFileRequest defines the metadata fields a writer may change.
// Pointers distinguish "leave as is" from explicit zero values.
type UpdateFileRequest struct {
	FileName    *string   `json:"fileName" binding:"omitempty,min=1,max=255"`
	Description *string   `json:"description" binding:"omitempty,max=2000"`
	Tags        *[]string `json:"tags" binding:"omitempty,max=20,dive,min=1,max=50"`
	IsPublic    *bool     `json:"isPublic"`
}

// ListFilesParams defines query parameters for listing files. NextToken is an
// opaque keyset-pagination cursor from a previous response.
type ListFilesParams struct {
	Limit     int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	NextToken string `form:"nextToken"`
	Tag       string `form:"tag" binding:"omitempty,min=1,max=50"`
}

// ShareFileRequest grants or replaces a share on a file for one user.
type ShareFileRequest struct {
	UserID     string `json:"userID" binding:"required,uuid"`
	Permission string `json:"permission" binding:"required,oneof=READ WRITE"`
}

// ShareGrantResponse describes one explicit grant on a file.
type ShareGrantResponse struct {
	UserID     string    `json:"userID"`
	Permission string    `json:"permission"`
	GrantedAt  time.Time `json:"grantedAt"`
}

// FileResponse defines the file metadata returned to clients.
type FileResponse struct {
	FileID         string               `json:"fileID"`
	FileName       string               `json:"fileName"`
	SizeBytes      int64                `json:"sizeBytes"`
	ContentType    string               `json:"contentType"`
	Description    string               `json:"description,omitempty"`
	Tags           []string             `json:"tags,omitempty"`
	OwnerID        string               `json:"ownerID"`
	IsPublic       bool                 `json:"isPublic"`
	SharedWith     []ShareGrantResponse `json:"sharedWith,omitempty"`
	DownloadCount  int64                `json:"downloadCount"`
	LastAccessedAt *time.Time           `json:"lastAccessedAt,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	LastUpdatedAt  time.Time            `json:"lastUpdatedAt"`
}

// ToFileResponse converts a domain.File to its response DTO. Share grants are
// only included when includeShares is set (owner or admin view); other readers
// have no business seeing who else a file is shared with.
func ToFileResponse(f *domain.File, includeShares bool) FileResponse {
	resp := FileResponse{
		FileID:         f.FileID,
		FileName:       f.FileName,
		SizeBytes:      f.SizeBytes,
		ContentType:    f.ContentType,
		Description:    f.Description,
		Tags:           f.Tags,
		OwnerID:        f.OwnerID,
		IsPublic:       f.IsPublic,
		DownloadCount:  f.DownloadCount,
		LastAccessedAt: f.LastAccessedAt,
		CreatedAt:      f.CreatedAt,
		LastUpdatedAt:  f.LastUpdatedAt,
	}
	if includeShares {
		grants := make([]ShareGrantResponse, len(f.SharedWith))
		for i, g := range f.SharedWith {
			grants[i] = ShareGrantResponse{
				UserID:     g.UserID,
				Permission: string(g.Permission),
				GrantedAt:  g.GrantedAt,
			}
		}
		resp.SharedWith = grants
	}
	return resp
}

// ListFilesResponse wraps a page of files plus the cursor for the next page.
type ListFilesResponse struct {
	Files     []FileResponse `json:"files"`
	NextToken string         `json:"nextToken,omitempty"`
}

// DownloadURLResponse carries a presigned download URL for a file.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
