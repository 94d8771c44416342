package handlers

import (
	"net/http"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/dto"
	"github.com/filevaulthq/filevault_app/internal/middleware"
	"github.com/filevaulthq/filevault_app/internal/platform/config"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps a single upload at 100 MiB.
const maxUploadBytes = 100 << 20

// FileHandler handles file metadata, content and sharing requests.
type FileHandler struct {
	fileService portssvc.FileSvcFacade
	cfg         *config.Config
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(fileService portssvc.FileSvcFacade, cfg *config.Config) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		cfg:         cfg,
	}
}

// registerFileRoutes sets up file routes. Read endpoints take optional auth so
// public files work for anonymous visitors; mutations require a session.
func registerFileRoutes(r *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer) {
	h := NewFileHandler(services.File, cfg)

	authRequired := middleware.Authenticate(cfg, services.Token, services.User)
	authOptional := middleware.OptionalAuthenticate(cfg, services.Token, services.User)

	files := r.Group("/api/v1/files")
	{
		files.GET("", authOptional, h.ListFiles)
		files.GET("/:id", authOptional, h.GetFile)
		files.GET("/:id/download", authOptional, h.DownloadFile)
		files.GET("/:id/download-url", authOptional, h.GetDownloadURL)

		files.POST("", authRequired, h.UploadFile)
		files.PUT("/:id", authRequired, h.UpdateFile)
		files.DELETE("/:id", authRequired, h.DeleteFile)
		files.POST("/:id/share", authRequired, h.ShareFile)
		files.DELETE("/:id/share/:userID", authRequired, h.RevokeShare)
	}
}

// actorFromContext returns the authenticated user or nil for anonymous reads.
func actorFromContext(c *gin.Context) *domain.User {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		return nil
	}
	return user
}

// canSeeShares reports whether the actor may see a file's grant list.
func canSeeShares(actor *domain.User, file *domain.File) bool {
	if actor == nil {
		return false
	}
	return actor.UserID == file.OwnerID || actor.IsAdmin()
}

// UploadFile godoc
// @Summary Upload a file
// @Description Stores the file content and its metadata. Multipart form with a "file" part.
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File content"
// @Param description formData string false "Description"
// @Param tags formData []string false "Tags"
// @Param isPublic formData bool false "Public visibility"
// @Success 201 {object} dto.FileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /files [post]
func (h *FileHandler) UploadFile(c *gin.Context) {
	actor, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrNoToken)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	var req dto.UploadFileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperrors.NewBadRequestError("a \"file\" part is required"))
		return
	}

	part, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperrors.NewBadRequestError("failed to read uploaded file"))
		return
	}
	defer part.Close()

	upload := portssvc.FileUpload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		SizeBytes:   fileHeader.Size,
		Description: req.Description,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
		Body:        part,
	}
	if upload.ContentType == "" {
		upload.ContentType = "application/octet-stream"
	}

	file, err := h.fileService.Upload(c.Request.Context(), actor, upload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToFileResponse(file, true))
}

// ListFiles godoc
// @Summary List visible files
// @Description Returns files visible to the caller (own, shared and public), newest first.
// @Tags files
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param nextToken query string false "Cursor from a previous page"
// @Param tag query string false "Filter by tag"
// @Success 200 {object} dto.ListFilesResponse
// @Failure 400 {object} ErrorResponse
// @Router /files [get]
func (h *FileHandler) ListFiles(c *gin.Context) {
	var params dto.ListFilesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondValidationError(c, err)
		return
	}

	actor := actorFromContext(c)
	files, nextToken, err := h.fileService.ListFiles(c.Request.Context(), actor, params)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.ListFilesResponse{
		Files:     make([]dto.FileResponse, len(files)),
		NextToken: nextToken,
	}
	for i := range files {
		resp.Files[i] = dto.ToFileResponse(&files[i], canSeeShares(actor, &files[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetFile godoc
// @Summary Get file metadata
// @Description Returns metadata for one file the caller may read.
// @Tags files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} dto.FileResponse
// @Failure 404 {object} ErrorResponse
// @Router /files/{id} [get]
func (h *FileHandler) GetFile(c *gin.Context) {
	actor := actorFromContext(c)
	file, err := h.fileService.GetFile(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToFileResponse(file, canSeeShares(actor, file)))
}

// DownloadFile godoc
// @Summary Download file content
// @Description Streams the file content and records the access.
// @Tags files
// @Produce octet-stream
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /files/{id}/download [get]
func (h *FileHandler) DownloadFile(c *gin.Context) {
	actor := actorFromContext(c)
	download, err := h.fileService.Download(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer download.Body.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": `attachment; filename="` + download.File.FileName + `"`,
	}
	c.DataFromReader(http.StatusOK, download.File.SizeBytes, download.File.ContentType, download.Body, extraHeaders)
}

// GetDownloadURL godoc
// @Summary Get a presigned download URL
// @Description Returns a short-lived URL serving the content directly from storage.
// @Tags files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} dto.DownloadURLResponse
// @Failure 404 {object} ErrorResponse
// @Router /files/{id}/download-url [get]
func (h *FileHandler) GetDownloadURL(c *gin.Context) {
	actor := actorFromContext(c)
	expiry := h.cfg.DownloadURLExpiryDuration

	url, err := h.fileService.PresignDownload(c.Request.Context(), actor, c.Param("id"), expiry)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DownloadURLResponse{
		URL:       url,
		ExpiresAt: time.Now().Add(expiry),
	})
}

// UpdateFile godoc
// @Summary Update file metadata
// @Description Updates name, description, tags or visibility. Visibility changes are owner only.
// @Tags files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param file body dto.UpdateFileRequest true "Fields to update"
// @Success 200 {object} dto.FileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /files/{id} [put]
func (h *FileHandler) UpdateFile(c *gin.Context) {
	actor, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrNoToken)
		return
	}

	var req dto.UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	file, err := h.fileService.UpdateFile(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToFileResponse(file, canSeeShares(actor, file)))
}

// DeleteFile godoc
// @Summary Delete a file
// @Description Soft deletes the metadata and removes the stored content. Owner or admin only.
// @Tags files
// @Produce json
// @Param id path string true "File ID"
// @Success 204 "File deleted"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /files/{id} [delete]
func (h *FileHandler) DeleteFile(c *gin.Context) {
	actor, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrNoToken)
		return
	}

	if err := h.fileService.DeleteFile(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ShareFile godoc
// @Summary Share a file
// @Description Grants or replaces READ/WRITE access for one user. Owner only.
// @Tags files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param share body dto.ShareFileRequest true "Grantee and permission"
// @Success 200 {object} dto.FileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /files/{id}/share [post]
func (h *FileHandler) ShareFile(c *gin.Context) {
	actor, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrNoToken)
		return
	}

	var req dto.ShareFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	file, err := h.fileService.ShareFile(c.Request.Context(), actor, c.Param("id"), req.UserID, domain.SharePermission(req.Permission))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToFileResponse(file, true))
}

// RevokeShare godoc
// @Summary Revoke a share
// @Description Removes a user's grant on a file. Owner only, no-op when absent.
// @Tags files
// @Produce json
// @Param id path string true "File ID"
// @Param userID path string true "Grantee user ID"
// @Success 204 "Share revoked"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /files/{id}/share/{userID} [delete]
func (h *FileHandler) RevokeShare(c *gin.Context) {
	actor, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrNoToken)
		return
	}

	if err := h.fileService.RevokeShare(c.Request.Context(), actor, c.Param("id"), c.Param("userID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
