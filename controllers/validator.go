package controllers

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	apperrors "catalog-service/common/errors"
	"catalog-service/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Validation constants
const (
	MaxUploadSize = 50 * 1024 * 1024 // 50MB
)

// Allowed file types
var allowedImportExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".xlsx": true,
	".json": true,
}

// ImportRequest defines the form fields accepted next to an uploaded file
type ImportRequest struct {
	UpdateExisting bool   `form:"update_existing"`
	DeleteMissing  bool   `form:"delete_missing"`
	CategoryID     string `form:"category_id" validate:"omitempty,uuid"`
}

// RequestValidator handles all input validation
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(),
	}
}

// ParseImportRequest reads the uploaded file header, its extension and the import options.
func (rv *RequestValidator) ParseImportRequest(c *gin.Context) (*multipart.FileHeader, string, models.ImportOptions, error) {
	file, ext, err := rv.ParseUpload(c)
	if err != nil {
		return nil, "", models.ImportOptions{}, err
	}

	var req ImportRequest
	if err := c.ShouldBind(&req); err != nil {
		return nil, "", models.ImportOptions{}, apperrors.Wrap(apperrors.ErrValidation, fmt.Errorf("invalid form data: %w", err))
	}
	req.CategoryID = strings.TrimSpace(req.CategoryID)
	if err := rv.validate.Struct(&req); err != nil {
		return nil, "", models.ImportOptions{}, apperrors.Wrap(apperrors.ErrValidation, fmt.Errorf("category_id must be a UUID"))
	}

	opts := models.ImportOptions{
		UpdateExisting: req.UpdateExisting,
		DeleteMissing:  req.DeleteMissing,
	}
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, "", models.ImportOptions{}, apperrors.Wrap(apperrors.ErrValidation, err)
		}
		opts.CategoryOverrideID = &id
	}
	return file, ext, opts, nil
}

// ParseUpload returns the "file" form field and its lowercased extension.
func (rv *RequestValidator) ParseUpload(c *gin.Context) (*multipart.FileHeader, string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrValidation, fmt.Errorf("file is required"))
	}
	ext, err := rv.ValidateImportFile(file)
	if err != nil {
		return nil, "", err
	}
	if err := rv.ValidateFileSize(file); err != nil {
		return nil, "", err
	}
	return file, ext, nil
}

// ValidateImportFile checks the file extension against the supported formats
func (rv *RequestValidator) ValidateImportFile(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImportExtensions[ext] {
		return "", apperrors.Wrap(apperrors.ErrUnsupportedFormat,
			fmt.Errorf("%q is not supported, use .csv, .txt, .xlsx or .json", file.Filename))
	}
	return ext, nil
}

// ValidateFileSize checks if file size is within limits
func (rv *RequestValidator) ValidateFileSize(file *multipart.FileHeader) error {
	if file.Size > MaxUploadSize {
		return apperrors.Wrap(apperrors.ErrPayloadTooLarge, fmt.Errorf("file too large (max %dMB)", MaxUploadSize/(1024*1024)))
	}
	return nil
}
