package repositories

import (
	"context"
	"time"

	"github.com/filevaulthq/filevault_app/internal/core/domain"
)

// FileListFilter narrows a file listing query. Zero values mean "no filter".
type FileListFilter struct {
	// ViewerID includes files owned by or shared with this user in addition
	// to public files. Empty means anonymous: public files only.
	ViewerID string

	// Tag restricts the listing to files carrying this tag.
	Tag string

	// CreatedBefore is the keyset-pagination cursor: only files created
	// strictly before this instant are returned. Zero means first page.
	CreatedBefore time.Time

	Limit int
}

// FileReader defines read operations for file metadata. Soft-deleted files
// are excluded from every method here; a deleted file behaves as not found.
type FileReader interface {
	// FindFileByID retrieves file metadata including its share grants.
	FindFileByID(ctx context.Context, fileID string) (*domain.File, error)

	// FindFiles retrieves a page of files visible under the filter, newest
	// first.
	FindFiles(ctx context.Context, filter FileListFilter) ([]domain.File, error)
}

// FileWriter defines write operations for file metadata.
type FileWriter interface {
	// SaveFile persists a new file record.
	SaveFile(ctx context.Context, file domain.File) error

	// UpdateFile updates mutable metadata (name, description, tags,
	// visibility). The write is conditioned on last_updated_at being
	// unchanged since the row was read; a lost race returns ErrDuplicate-free
	// conflict via apperrors.ErrNotFound semantics at the caller's retry.
	UpdateFile(ctx context.Context, file domain.File) error

	// RecordDownload increments the download counter and stamps last access.
	RecordDownload(ctx context.Context, fileID string, accessedAt time.Time) error

	// MarkFileDeleted soft deletes a file.
	MarkFileDeleted(ctx context.Context, fileID string, deletedAt time.Time, deletedBy string) error
}

// ShareWriter defines operations on the per-file share grants. Each mutation
// is atomic per (file, user) row.
type ShareWriter interface {
	// UpsertShare inserts or replaces the grant for one user on one file.
	UpsertShare(ctx context.Context, fileID string, grant domain.ShareGrant) error

	// DeleteShare removes a grant. Removing an absent grant is a no-op.
	DeleteShare(ctx context.Context, fileID string, userID string) error
}

// FileRepositoryFacade combines all file-related repository interfaces.
type FileRepositoryFacade interface {
	FileReader
	FileWriter
	ShareWriter
}
