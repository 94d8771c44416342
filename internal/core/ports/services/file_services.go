package services

import (
	"context"
	"io"
	"time"

	"github.com/filevaulthq/filevault_app/internal/core/domain"
	"github.com/filevaulthq/filevault_app/internal/dto"
)

// AccessSvcFacade resolves whether an actor may perform an action on a file.
type AccessSvcFacade interface {
	// HasAccess applies the resolution order: soft-deleted files fail closed,
	// the owner always passes, public files grant read to everyone including
	// a nil (anonymous) actor, then explicit grants are consulted. A WRITE
	// grant satisfies a read request; a READ grant never satisfies write.
	HasAccess(actor *domain.User, file *domain.File, perm domain.SharePermission) bool
}

// FileUpload carries the content and metadata of one upload.
type FileUpload struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Description string
	Tags        []string
	IsPublic    bool
	Body        io.Reader
}

// FileDownload is an open stream of file content plus the metadata needed to
// serve it. The caller closes Body.
type FileDownload struct {
	File *domain.File
	Body io.ReadCloser
}

// FileSvcFacade defines file metadata CRUD, content transfer and sharing.
// Every operation authorises the actor before touching data; actor may be nil
// for read paths that serve anonymous callers.
type FileSvcFacade interface {
	// Upload stores the content in the blob store and persists metadata.
	Upload(ctx context.Context, actor *domain.User, upload FileUpload) (*domain.File, error)

	// GetFile returns metadata if the actor has read access.
	GetFile(ctx context.Context, actor *domain.User, fileID string) (*domain.File, error)

	// ListFiles returns the page of files visible to the actor, newest first,
	// with an opaque cursor for the next page.
	ListFiles(ctx context.Context, actor *domain.User, params dto.ListFilesParams) ([]domain.File, string, error)

	// Download opens the content stream and records the access.
	Download(ctx context.Context, actor *domain.User, fileID string) (*FileDownload, error)

	// PresignDownload records the access and returns a short-lived direct URL.
	PresignDownload(ctx context.Context, actor *domain.User, fileID string, expiry time.Duration) (string, error)

	// UpdateFile changes mutable metadata; requires write access.
	UpdateFile(ctx context.Context, actor *domain.User, fileID string, req dto.UpdateFileRequest) (*domain.File, error)

	// DeleteFile soft deletes metadata and removes the blob; owner only.
	DeleteFile(ctx context.Context, actor *domain.User, fileID string) error

	// ShareFile upserts a grant for one user; owner only. Re-sharing replaces
	// the previous grant for that user.
	ShareFile(ctx context.Context, actor *domain.User, fileID string, granteeID string, perm domain.SharePermission) (*domain.File, error)

	// RevokeShare removes a grant; owner only, no-op when absent.
	RevokeShare(ctx context.Context, actor *domain.User, fileID string, granteeID string) error
}
