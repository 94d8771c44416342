package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error body returned by every handler.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps a service error to its HTTP response. AppErrors carry
// their own status and message; sentinel errors go through StatusAndCode.
// Anything unrecognised becomes an opaque 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, ErrorResponse{Code: appErr.ErrorCode, Message: appErr.Message})
		return
	}

	status, code := apperrors.StatusAndCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Unhandled error", slog.String("error", err.Error()))
		msg = "internal server error"
	}
	c.JSON(status, ErrorResponse{Code: code, Message: msg})
}

// respondValidationError turns a binding failure into a 400.
func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: apperrors.CodeValidation, Message: "Invalid request: " + err.Error()})
}
