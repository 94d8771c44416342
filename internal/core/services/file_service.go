package services

import (
	"context"
	"fmt"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portsrepo "github.com/filevaulthq/filevault_app/internal/core/ports/repositories"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/core/ports/storage"
	"github.com/filevaulthq/filevault_app/internal/dto"
	"github.com/filevaulthq/filevault_app/internal/utils/pagination"
	"github.com/google/uuid"
)

// fileService implements FileSvcFacade. Every mutation and read authorises
// the actor through the access service before touching data.
type fileService struct {
	fileRepo  portsrepo.FileRepositoryFacade
	blobStore storage.BlobStore
	access    portssvc.AccessSvcFacade
}

// NewFileService creates a new file service.
func NewFileService(fileRepo portsrepo.FileRepositoryFacade, blobStore storage.BlobStore, access portssvc.AccessSvcFacade) portssvc.FileSvcFacade {
	return &fileService{
		fileRepo:  fileRepo,
		blobStore: blobStore,
		access:    access,
	}
}

func (s *fileService) Upload(ctx context.Context, actor *domain.User, upload portssvc.FileUpload) (*domain.File, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if upload.FileName == "" || upload.SizeBytes <= 0 {
		return nil, apperrors.NewBadRequestError("file name and non-empty content are required")
	}

	fileID := uuid.NewString()
	// Namespacing keys by owner keeps bucket listings debuggable; the unique
	// uuid component is what actually prevents collisions.
	storageKey := fmt.Sprintf("%s/%s", actor.UserID, fileID)

	if err := s.blobStore.StoreObject(ctx, storageKey, upload.ContentType, upload.SizeBytes, upload.Body); err != nil {
		return nil, fmt.Errorf("failed to store file content: %w", err)
	}

	now := time.Now()
	file := domain.File{
		FileID:      fileID,
		StorageKey:  storageKey,
		FileName:    upload.FileName,
		SizeBytes:   upload.SizeBytes,
		ContentType: upload.ContentType,
		Description: upload.Description,
		Tags:        upload.Tags,
		OwnerID:     actor.UserID,
		IsPublic:    upload.IsPublic,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor.UserID,
			LastUpdatedAt: now,
			LastUpdatedBy: actor.UserID,
		},
	}

	if err := s.fileRepo.SaveFile(ctx, file); err != nil {
		// Orphaned blobs are worse than a failed upload; best-effort undo.
		_ = s.blobStore.DeleteObject(ctx, storageKey)
		return nil, fmt.Errorf("failed to save file metadata: %w", err)
	}

	return &file, nil
}

// loadWithAccess fetches a file and checks the requested permission. A file
// the actor may not even read surfaces as not found rather than forbidden, so
// the response does not confirm the file exists.
func (s *fileService) loadWithAccess(ctx context.Context, actor *domain.User, fileID string, perm domain.SharePermission) (*domain.File, error) {
	file, err := s.fileRepo.FindFileByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !s.access.HasAccess(actor, file, perm) {
		if !s.access.HasAccess(actor, file, domain.PermissionRead) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.ErrForbidden
	}
	return file, nil
}

func (s *fileService) GetFile(ctx context.Context, actor *domain.User, fileID string) (*domain.File, error) {
	return s.loadWithAccess(ctx, actor, fileID, domain.PermissionRead)
}

func (s *fileService) ListFiles(ctx context.Context, actor *domain.User, params dto.ListFilesParams) ([]domain.File, string, error) {
	filter := portsrepo.FileListFilter{
		Tag:   params.Tag,
		Limit: params.Limit,
	}
	if actor != nil {
		filter.ViewerID = actor.UserID
	}
	if params.NextToken != "" {
		before, err := pagination.DecodeDateBasedToken(params.NextToken)
		if err != nil {
			return nil, "", apperrors.NewBadRequestError("invalid pagination token")
		}
		filter.CreatedBefore = before
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	files, err := s.fileRepo.FindFiles(ctx, filter)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list files: %w", err)
	}

	nextToken := ""
	if len(files) == filter.Limit {
		nextToken = pagination.EncodeDateBasedToken(files[len(files)-1].CreatedAt)
	}
	return files, nextToken, nil
}

func (s *fileService) Download(ctx context.Context, actor *domain.User, fileID string) (*portssvc.FileDownload, error) {
	file, err := s.loadWithAccess(ctx, actor, fileID, domain.PermissionRead)
	if err != nil {
		return nil, err
	}

	body, err := s.blobStore.StreamObject(ctx, file.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open file content: %w", err)
	}

	if err := s.fileRepo.RecordDownload(ctx, file.FileID, time.Now()); err != nil {
		body.Close()
		return nil, fmt.Errorf("failed to record download: %w", err)
	}

	return &portssvc.FileDownload{File: file, Body: body}, nil
}

func (s *fileService) PresignDownload(ctx context.Context, actor *domain.User, fileID string, expiry time.Duration) (string, error) {
	file, err := s.loadWithAccess(ctx, actor, fileID, domain.PermissionRead)
	if err != nil {
		return "", err
	}

	url, err := s.blobStore.PresignDownload(ctx, file.StorageKey, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}

	if err := s.fileRepo.RecordDownload(ctx, file.FileID, time.Now()); err != nil {
		return "", fmt.Errorf("failed to record download: %w", err)
	}
	return url, nil
}

func (s *fileService) UpdateFile(ctx context.Context, actor *domain.User, fileID string, req dto.UpdateFileRequest) (*domain.File, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	file, err := s.loadWithAccess(ctx, actor, fileID, domain.PermissionWrite)
	if err != nil {
		return nil, err
	}

	if req.FileName != nil {
		file.FileName = *req.FileName
	}
	if req.Description != nil {
		file.Description = *req.Description
	}
	if req.Tags != nil {
		file.Tags = *req.Tags
	}
	if req.IsPublic != nil {
		// Visibility is owner-only: a write-grantee may edit metadata but not
		// expose the file to the world.
		if actor.UserID != file.OwnerID {
			return nil, apperrors.ErrForbidden
		}
		file.IsPublic = *req.IsPublic
	}
	file.LastUpdatedAt = time.Now()
	file.LastUpdatedBy = actor.UserID

	if err := s.fileRepo.UpdateFile(ctx, *file); err != nil {
		return nil, fmt.Errorf("failed to update file: %w", err)
	}
	return file, nil
}

func (s *fileService) DeleteFile(ctx context.Context, actor *domain.User, fileID string) error {
	if actor == nil {
		return apperrors.ErrUnauthorized
	}
	file, err := s.fileRepo.FindFileByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file.OwnerID != actor.UserID && !actor.IsAdmin() {
		return apperrors.ErrForbidden
	}

	if err := s.fileRepo.MarkFileDeleted(ctx, fileID, time.Now(), actor.UserID); err != nil {
		return fmt.Errorf("failed to delete file metadata: %w", err)
	}

	// Metadata is the source of truth; the blob delete is best effort and a
	// leftover object is invisible once the row is marked deleted.
	if err := s.blobStore.DeleteObject(ctx, file.StorageKey); err != nil {
		return fmt.Errorf("failed to delete file content: %w", err)
	}
	return nil
}

func (s *fileService) ShareFile(ctx context.Context, actor *domain.User, fileID string, granteeID string, perm domain.SharePermission) (*domain.File, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	file, err := s.fileRepo.FindFileByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != actor.UserID {
		return nil, apperrors.ErrForbidden
	}
	if granteeID == file.OwnerID {
		return nil, apperrors.NewBadRequestError("cannot share a file with its owner")
	}

	grant := domain.ShareGrant{
		UserID:     granteeID,
		Permission: perm,
		GrantedAt:  time.Now(),
	}
	if err := s.fileRepo.UpsertShare(ctx, fileID, grant); err != nil {
		return nil, fmt.Errorf("failed to share file: %w", err)
	}

	return s.fileRepo.FindFileByID(ctx, fileID)
}

func (s *fileService) RevokeShare(ctx context.Context, actor *domain.User, fileID string, granteeID string) error {
	if actor == nil {
		return apperrors.ErrUnauthorized
	}
	file, err := s.fileRepo.FindFileByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file.OwnerID != actor.UserID {
		return apperrors.ErrForbidden
	}

	// Idempotent: revoking an absent grant is a no-op.
	if err := s.fileRepo.DeleteShare(ctx, fileID, granteeID); err != nil {
		return fmt.Errorf("failed to revoke share: %w", err)
	}
	return nil
}
