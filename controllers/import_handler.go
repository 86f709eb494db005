package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "catalog-service/common/errors"
	"catalog-service/common/logger"
	"catalog-service/importer"
	"catalog-service/repository"
	"catalog-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImportHandler exposes catalog import operations
type ImportHandler struct {
	svc       ImportServiceAPI
	validator *RequestValidator
}

func NewImportHandler(svc ImportServiceAPI, validator *RequestValidator) *ImportHandler {
	return &ImportHandler{
		svc:       svc,
		validator: validator,
	}
}

// StartImport imports an uploaded file. With ?async=true the file is queued
// for the background worker and 202 is returned right away.
func (h *ImportHandler) StartImport(c *gin.Context) {
	file, ext, opts, err := h.validator.ParseImportRequest(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	fileHandle, err := file.Open()
	if err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer fileHandle.Close()

	log := logger.FromContext(c.Request.Context())

	if strings.EqualFold(strings.TrimSpace(c.Query("async")), "true") {
		rec, err := h.svc.Enqueue(c.Request.Context(), fileHandle, ext, opts)
		if err != nil {
			log.Error("Failed to queue import", zap.Error(err))
			_ = c.Error(mapImportError(err))
			return
		}
		c.JSON(http.StatusAccepted, QueuedJobResponse{
			JobID:   rec.ID,
			Status:  rec.Status,
			Message: "Import queued for processing",
		})
		return
	}

	// Only the cancel endpoint stops a running import; a dropped client does not.
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.svc.Import(ctx, "", fileHandle, ext, opts)
	if err != nil {
		appErr := mapImportError(err)
		if result == nil {
			_ = c.Error(appErr)
			return
		}
		log.Error("Import failed", zap.String("job_id", result.JobID), zap.Error(err))
		c.JSON(appErr.Code, FailedImportResponse{
			Error:   appErr.Message,
			Details: err.Error(),
			Result:  result,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetProgress returns the live progress of the current or last import
func (h *ImportHandler) GetProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Progress())
}

// CancelImport requests cancellation of the running import
func (h *ImportHandler) CancelImport(c *gin.Context) {
	if !h.svc.Cancel() {
		c.JSON(http.StatusOK, gin.H{
			"cancelled": false,
			"message":   "No import is running",
		})
		return
	}
	logger.FromContext(c.Request.Context()).Info("Import cancellation requested")
	c.JSON(http.StatusAccepted, gin.H{
		"cancelled": true,
		"message":   "Cancellation requested",
	})
}

// PreviewImport decodes the uploaded file and returns its first rows without importing
func (h *ImportHandler) PreviewImport(c *gin.Context) {
	file, ext, err := h.validator.ParseUpload(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	fileHandle, err := file.Open()
	if err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer fileHandle.Close()

	preview, err := h.svc.Preview(fileHandle, ext)
	if err != nil {
		_ = c.Error(mapImportError(err))
		return
	}
	c.JSON(http.StatusOK, preview)
}

// DownloadTemplate serves an example import file as CSV (default) or XLSX
func (h *ImportHandler) DownloadTemplate(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		if err := importer.WriteTemplateCSV(&buf); err != nil {
			_ = c.Error(apperrors.Wrap(apperrors.ErrInternalServer, err))
			return
		}
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		if err := importer.WriteTemplateXLSX(&buf); err != nil {
			_ = c.Error(apperrors.Wrap(apperrors.ErrInternalServer, err))
			return
		}
	default:
		_ = c.Error(apperrors.Wrap(apperrors.ErrValidation, errors.New("format must be csv or xlsx")))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="catalog_import_template.`+format+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// GetJobStatus returns the stored record of a queued import
func (h *ImportHandler) GetJobStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		_ = c.Error(apperrors.Wrap(apperrors.ErrValidation, errors.New("job ID required")))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), StatusLookupTimeout)
	defer cancel()

	rec, err := h.svc.Job(ctx, id)
	if err != nil {
		if !errors.Is(err, services.ErrJobNotFound) {
			logger.FromContext(ctx).Error("Failed to get job status", zap.String("job_id", id), zap.Error(err))
		}
		_ = c.Error(mapImportError(err))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// mapImportError turns service errors into HTTP errors.
func mapImportError(err error) *apperrors.Error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	var decodeErr *importer.DecodeError
	switch {
	case errors.Is(err, importer.ErrJobRunning):
		return apperrors.Wrap(apperrors.ErrImportRunning, err)
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return apperrors.Wrap(apperrors.ErrUnsupportedFormat, err)
	case errors.As(err, &decodeErr):
		return apperrors.Wrap(apperrors.ErrFileUnreadable, err)
	case errors.Is(err, repository.ErrStoreUnavailable):
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	case errors.Is(err, services.ErrJobNotFound):
		return apperrors.Wrap(apperrors.ErrNotFound, err)
	case errors.Is(err, services.ErrQueueUnavailable):
		return apperrors.Wrap(apperrors.ErrServiceUnavailable, err)
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}
