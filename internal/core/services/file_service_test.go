package services_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portsrepo "github.com/filevaulthq/filevault_app/internal/core/ports/repositories"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/core/services"
	"github.com/filevaulthq/filevault_app/internal/dto"
	"github.com/filevaulthq/filevault_app/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock FileRepository (implements portsrepo.FileRepositoryFacade) ---
type MockFileRepository struct {
	mock.Mock
	FindFileByIDFn    func(ctx context.Context, fileID string) (*domain.File, error)
	FindFilesFn       func(ctx context.Context, filter portsrepo.FileListFilter) ([]domain.File, error)
	SaveFileFn        func(ctx context.Context, file domain.File) error
	UpdateFileFn      func(ctx context.Context, file domain.File) error
	RecordDownloadFn  func(ctx context.Context, fileID string, accessedAt time.Time) error
	MarkFileDeletedFn func(ctx context.Context, fileID string, deletedAt time.Time, deletedBy string) error
	UpsertShareFn     func(ctx context.Context, fileID string, grant domain.ShareGrant) error
	DeleteShareFn     func(ctx context.Context, fileID string, userID string) error
}

func (m *MockFileRepository) FindFileByID(ctx context.Context, fileID string) (*domain.File, error) {
	if m.FindFileByIDFn != nil {
		return m.FindFileByIDFn(ctx, fileID)
	}
	args := m.Called(ctx, fileID)
	var file *domain.File
	if args.Get(0) != nil {
		file = args.Get(0).(*domain.File)
	}
	return file, args.Error(1)
}

func (m *MockFileRepository) FindFiles(ctx context.Context, filter portsrepo.FileListFilter) ([]domain.File, error) {
	if m.FindFilesFn != nil {
		return m.FindFilesFn(ctx, filter)
	}
	args := m.Called(ctx, filter)
	var files []domain.File
	if args.Get(0) != nil {
		files = args.Get(0).([]domain.File)
	}
	return files, args.Error(1)
}

func (m *MockFileRepository) SaveFile(ctx context.Context, file domain.File) error {
	if m.SaveFileFn != nil {
		return m.SaveFileFn(ctx, file)
	}
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockFileRepository) UpdateFile(ctx context.Context, file domain.File) error {
	if m.UpdateFileFn != nil {
		return m.UpdateFileFn(ctx, file)
	}
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockFileRepository) RecordDownload(ctx context.Context, fileID string, accessedAt time.Time) error {
	if m.RecordDownloadFn != nil {
		return m.RecordDownloadFn(ctx, fileID, accessedAt)
	}
	args := m.Called(ctx, fileID, accessedAt)
	return args.Error(0)
}

func (m *MockFileRepository) MarkFileDeleted(ctx context.Context, fileID string, deletedAt time.Time, deletedBy string) error {
	if m.MarkFileDeletedFn != nil {
		return m.MarkFileDeletedFn(ctx, fileID, deletedAt, deletedBy)
	}
	args := m.Called(ctx, fileID, deletedAt, deletedBy)
	return args.Error(0)
}

func (m *MockFileRepository) UpsertShare(ctx context.Context, fileID string, grant domain.ShareGrant) error {
	if m.UpsertShareFn != nil {
		return m.UpsertShareFn(ctx, fileID, grant)
	}
	args := m.Called(ctx, fileID, grant)
	return args.Error(0)
}

func (m *MockFileRepository) DeleteShare(ctx context.Context, fileID string, userID string) error {
	if m.DeleteShareFn != nil {
		return m.DeleteShareFn(ctx, fileID, userID)
	}
	args := m.Called(ctx, fileID, userID)
	return args.Error(0)
}

// --- Mock BlobStore (implements storage.BlobStore) ---
type MockBlobStore struct {
	mock.Mock
	StoreObjectFn func(ctx context.Context, key, contentType string, size int64, body io.Reader) error
}

func (m *MockBlobStore) StoreObject(ctx context.Context, key string, contentType string, size int64, body io.Reader) error {
	if m.StoreObjectFn != nil {
		return m.StoreObjectFn(ctx, key, contentType, size, body)
	}
	args := m.Called(ctx, key, contentType, size, body)
	return args.Error(0)
}

func (m *MockBlobStore) StreamObject(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	var body io.ReadCloser
	if args.Get(0) != nil {
		body = args.Get(0).(io.ReadCloser)
	}
	return body, args.Error(1)
}

func (m *MockBlobStore) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockBlobStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockBlobStore) PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

// --- Test Suite ---
type FileServiceTestSuite struct {
	suite.Suite
	mockFileRepo  *MockFileRepository
	mockBlobStore *MockBlobStore
	service       portssvc.FileSvcFacade

	owner    *domain.User
	reader   *domain.User
	stranger *domain.User
	admin    *domain.User
}

func (suite *FileServiceTestSuite) SetupTest() {
	suite.mockFileRepo = new(MockFileRepository)
	suite.mockBlobStore = new(MockBlobStore)
	suite.service = services.NewFileService(suite.mockFileRepo, suite.mockBlobStore, services.NewAccessService())

	suite.owner = &domain.User{UserID: uuid.NewString(), Role: domain.RoleUser}
	suite.reader = &domain.User{UserID: uuid.NewString(), Role: domain.RoleUser}
	suite.stranger = &domain.User{UserID: uuid.NewString(), Role: domain.RoleUser}
	suite.admin = &domain.User{UserID: uuid.NewString(), Role: domain.RoleAdmin}
}

func (suite *FileServiceTestSuite) privateFile() *domain.File {
	return &domain.File{
		FileID:     uuid.NewString(),
		StorageKey: suite.owner.UserID + "/" + uuid.NewString(),
		FileName:   "report.pdf",
		OwnerID:    suite.owner.UserID,
		SharedWith: []domain.ShareGrant{
			{UserID: suite.reader.UserID, Permission: domain.PermissionRead, GrantedAt: time.Now()},
		},
	}
}

// --- Upload ---

func (suite *FileServiceTestSuite) TestUpload_Success() {
	ctx := context.Background()
	content := []byte("file content")
	upload := portssvc.FileUpload{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		SizeBytes:   int64(len(content)),
		Tags:        []string{"notes"},
		Body:        bytes.NewReader(content),
	}

	suite.mockBlobStore.On("StoreObject", ctx,
		mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, suite.owner.UserID+"/") }),
		"text/plain", upload.SizeBytes, mock.Anything).Return(nil).Once()
	suite.mockFileRepo.On("SaveFile", ctx, mock.MatchedBy(func(f domain.File) bool {
		return f.OwnerID == suite.owner.UserID &&
			f.FileName == "notes.txt" &&
			strings.HasPrefix(f.StorageKey, suite.owner.UserID+"/") &&
			f.CreatedBy == suite.owner.UserID
	})).Return(nil).Once()

	file, err := suite.service.Upload(ctx, suite.owner, upload)

	suite.Require().NoError(err)
	suite.NotEmpty(file.FileID)
	suite.mockBlobStore.AssertExpectations(suite.T())
	suite.mockFileRepo.AssertExpectations(suite.T())
}

func (suite *FileServiceTestSuite) TestUpload_Anonymous() {
	_, err := suite.service.Upload(context.Background(), nil, portssvc.FileUpload{FileName: "x", SizeBytes: 1})
	suite.ErrorIs(err, apperrors.ErrUnauthorized)
}

func (suite *FileServiceTestSuite) TestUpload_EmptyContentRejected() {
	_, err := suite.service.Upload(context.Background(), suite.owner, portssvc.FileUpload{FileName: "x", SizeBytes: 0})
	suite.Error(err)
	suite.mockBlobStore.AssertNotCalled(suite.T(), "StoreObject",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// A metadata insert failure must not leave the uploaded blob behind.
func (suite *FileServiceTestSuite) TestUpload_CleansUpBlobWhenSaveFails() {
	ctx := context.Background()
	var storedKey string
	suite.mockBlobStore.StoreObjectFn = func(ctx context.Context, key, contentType string, size int64, body io.Reader) error {
		storedKey = key
		return nil
	}
	suite.mockFileRepo.On("SaveFile", ctx, mock.Anything).Return(errors.New("insert failed")).Once()
	suite.mockBlobStore.On("DeleteObject", ctx, mock.MatchedBy(func(key string) bool { return key == storedKey })).
		Return(nil).Once()

	_, err := suite.service.Upload(ctx, suite.owner, portssvc.FileUpload{
		FileName:  "doomed.txt",
		SizeBytes: 4,
		Body:      strings.NewReader("data"),
	})

	suite.Error(err)
	suite.mockBlobStore.AssertExpectations(suite.T())
}

// --- GetFile ---

func (suite *FileServiceTestSuite) TestGetFile_OwnerReadsPrivateFile() {
	ctx := context.Background()
	file := suite.privateFile()
	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()

	got, err := suite.service.GetFile(ctx, suite.owner, file.FileID)

	suite.Require().NoError(err)
	suite.Equal(file.FileID, got.FileID)
}

// A file the actor cannot even read must look like it does not exist.
func (suite *FileServiceTestSuite) TestGetFile_NoReadAccessMasksAsNotFound() {
	ctx := context.Background()
	file := suite.privateFile()
	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()

	_, err := suite.service.GetFile(ctx, suite.stranger, file.FileID)

	suite.ErrorIs(err, apperrors.ErrNotFound)
}

// --- ListFiles ---

func (suite *FileServiceTestSuite) TestListFiles_EmitsNextTokenOnlyWhenPageIsFull() {
	ctx := context.Background()
	oldest := time.Now().Add(-2 * time.Hour)
	fullPage := []domain.File{
		{FileID: "f1", AuditFields: domain.AuditFields{CreatedAt: time.Now()}},
		{FileID: "f2", AuditFields: domain.AuditFields{CreatedAt: oldest}},
	}
	suite.mockFileRepo.On("FindFiles", ctx, mock.MatchedBy(func(f portsrepo.FileListFilter) bool {
		return f.ViewerID == suite.owner.UserID && f.Limit == 2
	})).Return(fullPage, nil).Once()

	files, nextToken, err := suite.service.ListFiles(ctx, suite.owner, dto.ListFilesParams{Limit: 2})
	suite.Require().NoError(err)
	suite.Len(files, 2)
	suite.Equal(pagination.EncodeDateBasedToken(oldest), nextToken)

	// A short page is the last page.
	suite.mockFileRepo.On("FindFiles", ctx, mock.Anything).Return(fullPage[:1], nil).Once()
	_, nextToken, err = suite.service.ListFiles(ctx, suite.owner, dto.ListFilesParams{Limit: 2})
	suite.Require().NoError(err)
	suite.Empty(nextToken)
}

func (suite *FileServiceTestSuite) TestListFiles_CursorDecodesIntoFilter() {
	ctx := context.Background()
	cursor := time.Now().Add(-time.Hour).Truncate(time.Second)
	suite.mockFileRepo.On("FindFiles", ctx, mock.MatchedBy(func(f portsrepo.FileListFilter) bool {
		return f.CreatedBefore.Equal(cursor) && f.ViewerID == ""
	})).Return(nil, nil).Once()

	_, _, err := suite.service.ListFiles(ctx, nil, dto.ListFilesParams{
		Limit:     20,
		NextToken: pagination.EncodeDateBasedToken(cursor),
	})

	suite.Require().NoError(err)
	suite.mockFileRepo.AssertExpectations(suite.T())
}

func (suite *FileServiceTestSuite) TestListFiles_InvalidCursor() {
	_, _, err := suite.service.ListFiles(context.Background(), suite.owner, dto.ListFilesParams{NextToken: "!!not-a-cursor!!"})

	var appErr *apperrors.AppError
	suite.Require().ErrorAs(err, &appErr)
	suite.Equal(400, appErr.Code)
	suite.mockFileRepo.AssertNotCalled(suite.T(), "FindFiles", mock.Anything, mock.Anything)
}

// --- Download ---

func (suite *FileServiceTestSuite) TestDownload_StreamsAndRecordsAccess() {
	ctx := context.Background()
	file := suite.privateFile()
	body := io.NopCloser(strings.NewReader("content"))

	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()
	suite.mockBlobStore.On("StreamObject", ctx, file.StorageKey).Return(body, nil).Once()
	suite.mockFileRepo.On("RecordDownload", ctx, file.FileID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	download, err := suite.service.Download(ctx, suite.reader, file.FileID)

	suite.Require().NoError(err)
	suite.Equal(file.FileID, download.File.FileID)
	data, err := io.ReadAll(download.Body)
	suite.Require().NoError(err)
	suite.Equal("content", string(data))
	suite.mockFileRepo.AssertExpectations(suite.T())
}

func (suite *FileServiceTestSuite) TestPresignDownload_ReturnsURL() {
	ctx := context.Background()
	file := suite.privateFile()
	file.IsPublic = true

	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()
	suite.mockBlobStore.On("PresignDownload", ctx, file.StorageKey, 15*time.Minute).
		Return("https://blobs.example.com/signed", nil).Once()
	suite.mockFileRepo.On("RecordDownload", ctx, file.FileID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	url, err := suite.service.PresignDownload(ctx, nil, file.FileID, 15*time.Minute)

	suite.Require().NoError(err)
	suite.Equal("https://blobs.example.com/signed", url)
}

// --- UpdateFile ---

func (suite *FileServiceTestSuite) TestUpdateFile_ReadGranteeGetsForbidden() {
	ctx := context.Background()
	file := suite.privateFile()
	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()

	newName := "renamed.pdf"
	_, err := suite.service.UpdateFile(ctx, suite.reader, file.FileID, dto.UpdateFileRequest{FileName: &newName})

	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockFileRepo.AssertNotCalled(suite.T(), "UpdateFile", mock.Anything, mock.Anything)
}

// Only the owner may flip visibility, even though a write grantee can edit the
// rest of the metadata.
func (suite *FileServiceTestSuite) TestUpdateFile_VisibilityIsOwnerOnly() {
	ctx := context.Background()
	writer := &domain.User{UserID: uuid.NewString()}
	file := suite.privateFile()
	file.SharedWith = append(file.SharedWith, domain.ShareGrant{UserID: writer.UserID, Permission: domain.PermissionWrite})
	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()

	public := true
	_, err := suite.service.UpdateFile(ctx, writer, file.FileID, dto.UpdateFileRequest{IsPublic: &public})

	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockFileRepo.AssertNotCalled(suite.T(), "UpdateFile", mock.Anything, mock.Anything)
}

func (suite *FileServiceTestSuite) TestUpdateFile_OwnerUpdatesMetadata() {
	ctx := context.Background()
	file := suite.privateFile()
	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()

	newName := "renamed.pdf"
	public := true
	suite.mockFileRepo.On("UpdateFile", ctx, mock.MatchedBy(func(f domain.File) bool {
		return f.FileName == newName && f.IsPublic && f.LastUpdatedBy == suite.owner.UserID
	})).Return(nil).Once()

	updated, err := suite.service.UpdateFile(ctx, suite.owner, file.FileID, dto.UpdateFileRequest{FileName: &newName, IsPublic: &public})

	suite.Require().NoError(err)
	suite.Equal(newName, updated.FileName)
	suite.True(updated.IsPublic)
	suite.mockFileRepo.AssertExpectations(suite.T())
}

// --- DeleteFile ---

func (suite *FileServiceTestSuite) TestDeleteFile_OwnerDeletes() {
	ctx := context.Background()
	file := suite.privateFile()

	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()
	suite.mockFileRepo.On("MarkFileDeleted", ctx, file.FileID, mock.AnythingOfType("time.Time"), suite.owner.UserID).Return(nil).Once()
	suite.mockBlobStore.On("DeleteObject", ctx, file.StorageKey).Return(nil).Once()

	suite.Require().NoError(suite.service.DeleteFile(ctx, suite.owner, file.FileID))
	suite.mockFileRepo.AssertExpectations(suite.T())
	suite.mockBlobStore.AssertExpectations(suite.T())
}

// Delete is the one place where the admin role overrides ownership.
func (suite *FileServiceTestSuite) TestDeleteFile_AdminDeletesForeignFile() {
	ctx := context.Background()
	file := suite.privateFile()

	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()
	suite.mockFileRepo.On("MarkFileDeleted", ctx, file.FileID, mock.AnythingOfType("time.Time"), suite.admin.UserID).Return(nil).Once()
	suite.mockBlobStore.On("DeleteObject", ctx, file.StorageKey).Return(nil).Once()

	suite.Require().NoError(suite.service.DeleteFile(ctx, suite.admin, file.FileID))
}

func (suite *FileServiceTestSuite) TestDeleteFile_GranteeCannotDelete() {
	ctx := context.Background()
	file := suite.privateFile()
	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()

	err := suite.service.DeleteFile(ctx, suite.reader, file.FileID)

	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockFileRepo.AssertNotCalled(suite.T(), "MarkFileDeleted",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Sharing ---

func (suite *FileServiceTestSuite) TestShareFile_OwnerGrantsWrite() {
	ctx := context.Background()
	file := suite.privateFile()

	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Twice()
	suite.mockFileRepo.On("UpsertShare", ctx, file.FileID, mock.MatchedBy(func(g domain.ShareGrant) bool {
		return g.UserID == suite.stranger.UserID && g.Permission == domain.PermissionWrite
	})).Return(nil).Once()

	shared, err := suite.service.ShareFile(ctx, suite.owner, file.FileID, suite.stranger.UserID, domain.PermissionWrite)

	suite.Require().NoError(err)
	suite.NotNil(shared)
	suite.mockFileRepo.AssertExpectations(suite.T())
}

func (suite *FileServiceTestSuite) TestShareFile_NonOwnerForbidden() {
	ctx := context.Background()
	file := suite.privateFile()
	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()

	_, err := suite.service.ShareFile(ctx, suite.reader, file.FileID, suite.stranger.UserID, domain.PermissionRead)

	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *FileServiceTestSuite) TestShareFile_SelfShareRejected() {
	ctx := context.Background()
	file := suite.privateFile()
	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()

	_, err := suite.service.ShareFile(ctx, suite.owner, file.FileID, suite.owner.UserID, domain.PermissionRead)

	suite.Error(err)
	suite.mockFileRepo.AssertNotCalled(suite.T(), "UpsertShare", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *FileServiceTestSuite) TestRevokeShare_AbsentGrantIsNoOp() {
	ctx := context.Background()
	file := suite.privateFile()

	suite.mockFileRepo.On("FindFileByID", ctx, file.FileID).Return(file, nil).Once()
	suite.mockFileRepo.On("DeleteShare", ctx, file.FileID, suite.stranger.UserID).Return(nil).Once()

	suite.Require().NoError(suite.service.RevokeShare(ctx, suite.owner, file.FileID, suite.stranger.UserID))
	suite.mockFileRepo.AssertExpectations(suite.T())
}

func TestFileServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FileServiceTestSuite))
}
