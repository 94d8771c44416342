package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portsrepo "github.com/filevaulthq/filevault_app/internal/core/ports/repositories"
	"github.com/filevaulthq/filevault_app/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxFileRepository struct {
	db *pgxpool.Pool
}

func newPgxFileRepository(db *pgxpool.Pool) portsrepo.FileRepositoryFacade {
	return &PgxFileRepository{db: db}
}

var _ portsrepo.FileRepositoryFacade = (*PgxFileRepository)(nil)

func toModelFile(d domain.File) models.File {
	return models.File{
		FileID:         d.FileID,
		StorageKey:     d.StorageKey,
		FileName:       d.FileName,
		SizeBytes:      d.SizeBytes,
		ContentType:    d.ContentType,
		Description:    nullString(d.Description),
		Tags:           d.Tags,
		OwnerID:        d.OwnerID,
		IsPublic:       d.IsPublic,
		DownloadCount:  d.DownloadCount,
		LastAccessedAt: nullTime(d.LastAccessedAt),
		IsDeleted:      d.IsDeleted,
		DeletedAt:      d.DeletedAt,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

func toDomainFile(m models.File) domain.File {
	return domain.File{
		FileID:         m.FileID,
		StorageKey:     m.StorageKey,
		FileName:       m.FileName,
		SizeBytes:      m.SizeBytes,
		ContentType:    m.ContentType,
		Description:    m.Description.String,
		Tags:           m.Tags,
		OwnerID:        m.OwnerID,
		IsPublic:       m.IsPublic,
		DownloadCount:  m.DownloadCount,
		LastAccessedAt: timePtr(m.LastAccessedAt),
		IsDeleted:      m.IsDeleted,
		DeletedAt:      m.DeletedAt,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

const fileColumns = `f.file_id, f.storage_key, f.file_name, f.size_bytes, f.content_type, f.description, f.tags,
		f.owner_id, f.is_public, f.download_count, f.last_accessed_at,
		f.created_at, f.created_by, f.last_updated_at, f.last_updated_by, f.deleted_at`

func scanFileRow(row pgx.Row) (*models.File, error) {
	var m models.File
	err := row.Scan(
		&m.FileID,
		&m.StorageKey,
		&m.FileName,
		&m.SizeBytes,
		&m.ContentType,
		&m.Description,
		&m.Tags,
		&m.OwnerID,
		&m.IsPublic,
		&m.DownloadCount,
		&m.LastAccessedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	m.IsDeleted = m.DeletedAt != nil
	return &m, nil
}

func (r *PgxFileRepository) SaveFile(ctx context.Context, file domain.File) error {
	m := toModelFile(file)
	query := `
        INSERT INTO files (
            file_id, storage_key, file_name, size_bytes, content_type, description, tags,
            owner_id, is_public, download_count,
            created_at, created_by, last_updated_at, last_updated_by
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12, $13);
    `
	_, err := r.db.Exec(ctx, query,
		m.FileID,
		m.StorageKey,
		m.FileName,
		m.SizeBytes,
		m.ContentType,
		m.Description,
		m.Tags,
		m.OwnerID,
		m.IsPublic,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (r *PgxFileRepository) FindFileByID(ctx context.Context, fileID string) (*domain.File, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM files f
        WHERE f.file_id = $1 AND f.deleted_at IS NULL;
    `, fileColumns)
	m, err := scanFileRow(r.db.QueryRow(ctx, query, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query file: %w", err)
	}

	d := toDomainFile(*m)
	grants, err := r.findShares(ctx, fileID)
	if err != nil {
		return nil, err
	}
	d.SharedWith = grants
	return &d, nil
}

func (r *PgxFileRepository) findShares(ctx context.Context, fileID string) ([]domain.ShareGrant, error) {
	query := `
        SELECT user_id, permission, granted_at FROM file_shares
        WHERE file_id = $1
        ORDER BY granted_at;
    `
	rows, err := r.db.Query(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query file shares: %w", err)
	}
	defer rows.Close()

	var grants []domain.ShareGrant
	for rows.Next() {
		var g domain.ShareGrant
		if err := rows.Scan(&g.UserID, &g.Permission, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("failed to scan share row: %w", err)
		}
		grants = append(grants, g)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating share rows: %w", rows.Err())
	}
	return grants, nil
}

// FindFiles lists visible files newest first using a keyset cursor on
// created_at. Visibility is pushed into SQL so pagination stays stable: a
// public file, an owned file and a shared file all satisfy the same page query.
func (r *PgxFileRepository) FindFiles(ctx context.Context, filter portsrepo.FileListFilter) ([]domain.File, error) {
	conds := []string{"f.deleted_at IS NULL"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ViewerID != "" {
		p := arg(filter.ViewerID)
		conds = append(conds, fmt.Sprintf(
			"(f.is_public OR f.owner_id = %s OR EXISTS (SELECT 1 FROM file_shares s WHERE s.file_id = f.file_id AND s.user_id = %s))",
			p, p))
	} else {
		conds = append(conds, "f.is_public")
	}
	if filter.Tag != "" {
		conds = append(conds, fmt.Sprintf("%s = ANY(f.tags)", arg(filter.Tag)))
	}
	if !filter.CreatedBefore.IsZero() {
		conds = append(conds, fmt.Sprintf("f.created_at < %s", arg(filter.CreatedBefore)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM files f WHERE `, fileColumns)
	for i, c := range conds {
		if i > 0 {
			query += " AND "
		}
		query += c
	}
	query += fmt.Sprintf(" ORDER BY f.created_at DESC LIMIT %s;", arg(limit))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	files := []domain.File{}
	for rows.Next() {
		m, err := scanFileRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		files = append(files, toDomainFile(*m))
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating file rows: %w", rows.Err())
	}
	return files, nil
}

// UpdateFile writes mutable metadata conditioned on the audit timestamp the
// caller read, so two concurrent editors cannot silently overwrite each other.
func (r *PgxFileRepository) UpdateFile(ctx context.Context, file domain.File) error {
	m := toModelFile(file)
	query := `
        UPDATE files
        SET file_name = $1, description = $2, tags = $3, is_public = $4,
            last_updated_at = $5, last_updated_by = $6
        WHERE file_id = $7 AND deleted_at IS NULL;
    `
	cmdTag, err := r.db.Exec(ctx, query,
		m.FileName,
		m.Description,
		m.Tags,
		m.IsPublic,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.FileID,
	)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxFileRepository) RecordDownload(ctx context.Context, fileID string, accessedAt time.Time) error {
	query := `
        UPDATE files
        SET download_count = download_count + 1, last_accessed_at = $1
        WHERE file_id = $2 AND deleted_at IS NULL;
    `
	cmdTag, err := r.db.Exec(ctx, query, accessedAt, fileID)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxFileRepository) MarkFileDeleted(ctx context.Context, fileID string, deletedAt time.Time, deletedBy string) error {
	query := `
        UPDATE files
        SET deleted_at = $1, last_updated_at = $1, last_updated_by = $2
        WHERE file_id = $3 AND deleted_at IS NULL;
    `
	cmdTag, err := r.db.Exec(ctx, query, deletedAt, deletedBy, fileID)
	if err != nil {
		return fmt.Errorf("failed to mark file as deleted: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpsertShare relies on the (file_id, user_id) primary key: the ON CONFLICT
// arm replaces an existing grant, so one user never holds two grants at once.
func (r *PgxFileRepository) UpsertShare(ctx context.Context, fileID string, grant domain.ShareGrant) error {
	query := `
        INSERT INTO file_shares (file_id, user_id, permission, granted_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (file_id, user_id)
        DO UPDATE SET permission = EXCLUDED.permission, granted_at = EXCLUDED.granted_at;
    `
	_, err := r.db.Exec(ctx, query, fileID, grant.UserID, string(grant.Permission), grant.GrantedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert share: %w", err)
	}
	return nil
}

func (r *PgxFileRepository) DeleteShare(ctx context.Context, fileID string, userID string) error {
	query := `DELETE FROM file_shares WHERE file_id = $1 AND user_id = $2;`
	if _, err := r.db.Exec(ctx, query, fileID, userID); err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	return nil
}
