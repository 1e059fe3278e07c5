/**
 * A drop-in Go data service for the chineav2 inventory web application.
 * Copyright (c) 2026 Nikita Kofman (https://github.com/nikitakofman)
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published
 * by the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */
package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nikitakofman/chinea-dataservice/internal/models"
	"github.com/nikitakofman/chinea-dataservice/internal/storage"
	"github.com/nikitakofman/chinea-dataservice/internal/types"
	"gorm.io/gorm"
)

// Default upload constraints, overridable per call.
const (
	DefaultMaxImageSizeMB    = 10
	DefaultMaxDocumentSizeMB = 25
)

var defaultImageMimeTypes = []string{
	"image/jpeg", "image/png", "image/gif", "image/webp", "image/avif",
}

var defaultDocumentMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/plain", "text/csv",
	"image/jpeg", "image/png",
}

// FileUpload is one inbound file.
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// FileOptions tunes one file operation.
type FileOptions struct {
	SkipAuth         bool
	SkipValidation   bool
	MaxSizeMB        int
	AllowedMimeTypes []string
	IsPrimary        bool
	Position         int
	AltText          string
	Title            string
	Description      string
	DocumentTypeID   *uint64
}

// FileService orchestrates binary attachments: bytes go to object storage,
// metadata rows go to the primary database. Storage write strictly precedes
// the metadata write so a failed upload leaves no dangling record.
type FileService struct {
	db     *gorm.DB
	access *AccessControlService
	store  storage.ObjectStorage
}

// NewFileService wires a FileService from its collaborators.
func NewFileService(db *gorm.DB, access *AccessControlService, store storage.ObjectStorage) *FileService {
	return &FileService{db: db, access: access, store: store}
}

func (f *FileService) authorize(ctx context.Context, entityType EntityType, entityID uint64, opts *FileOptions) *OperationResult {
	if !opts.SkipAuth {
		ownership := f.access.CheckEntityOwnership(ctx, entityType, entityID)
		if !ownership.IsOwner {
			message := ownership.Error
			if message == "" {
				message = "Access denied"
			}
			r := errorResult(message)
			return &r
		}
	}
	if f.access.GetCurrentUserID(ctx) == "" {
		r := errorResult("User ID not found")
		return &r
	}
	return nil
}

func validateFile(file FileUpload, maxSizeMB int, allowed []string) []string {
	var errs []string
	limit := int64(maxSizeMB) * 1024 * 1024
	if file.Size > limit {
		errs = append(errs, fmt.Sprintf("%s: File size %.1fMB exceeds maximum %dMB",
			file.Name, float64(file.Size)/(1024*1024), maxSizeMB))
	}
	permitted := false
	for _, mime := range allowed {
		if strings.EqualFold(mime, file.ContentType) {
			permitted = true
			break
		}
	}
	if !permitted {
		errs = append(errs, fmt.Sprintf("%s: File type %s is not allowed", file.Name, file.ContentType))
	}
	return errs
}

// storageKey builds the object key: entityType/entityID/<uuid><ext>.
func storageKey(entityType EntityType, entityID uint64, originalName string) (string, string) {
	fileName := uuid.New().String() + strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s/%d/%s", entityType, entityID, fileName), fileName
}

// UploadImage stores one image and persists its metadata record.
func (f *FileService) UploadImage(ctx context.Context, file FileUpload, entityType EntityType, entityID uint64, opts *FileOptions) OperationResult {
	if opts == nil {
		opts = &FileOptions{}
	}
	if failure := f.authorize(ctx, entityType, entityID, opts); failure != nil {
		return *failure
	}

	if !opts.SkipValidation {
		maxSize := opts.MaxSizeMB
		if maxSize == 0 {
			maxSize = DefaultMaxImageSizeMB
		}
		allowed := opts.AllowedMimeTypes
		if allowed == nil {
			allowed = defaultImageMimeTypes
		}
		if errs := validateFile(file, maxSize, allowed); len(errs) > 0 {
			return validationFailure(errs)
		}
	}

	key, fileName := storageKey(entityType, entityID, file.Name)
	stored, err := f.store.Upload(ctx, key, file.Reader, file.Size, file.ContentType)
	if err != nil {
		log.Printf("image upload to storage failed for %s/%d: %v", entityType, entityID, err)
		return errorResult("Failed to upload image")
	}

	image := &models.EntityImage{
		EntityType:   string(entityType),
		EntityID:     entityID,
		URL:          stored.URL,
		StoragePath:  stored.Path,
		OriginalName: file.Name,
		FileName:     fileName,
		FileSize:     types.BigInt(file.Size),
		MimeType:     file.ContentType,
		IsPrimary:    opts.IsPrimary,
		Position:     opts.Position,
		AltText:      opts.AltText,
		Title:        opts.Title,
	}
	if err := f.db.WithContext(ctx).Create(image).Error; err != nil {
		// The object is already in storage; keep it and report the split.
		log.Printf("image metadata write failed after storage upload %s: %v", stored.Path, err)
		return errorResult("Failed to save image record")
	}

	return successResult(Serialize(image, nil))
}

// UploadImages uploads a batch sequentially. Only the first file is a
// candidate for the primary flag. Per-file failures are aggregated while the
// successful subset is still returned.
func (f *FileService) UploadImages(ctx context.Context, files []FileUpload, entityType EntityType, entityID uint64, opts *FileOptions) OperationResult {
	if opts == nil {
		opts = &FileOptions{}
	}

	var uploaded []interface{}
	var failures []string
	for i, file := range files {
		fileOpts := *opts
		fileOpts.IsPrimary = opts.IsPrimary && i == 0
		fileOpts.Position = opts.Position + i

		result := f.UploadImage(ctx, file, entityType, entityID, &fileOpts)
		if !result.Success {
			if len(result.ValidationErrors) > 0 {
				failures = append(failures, result.ValidationErrors...)
			} else {
				failures = append(failures, fmt.Sprintf("%s: %s", file.Name, result.Error))
			}
			continue
		}
		uploaded = append(uploaded, result.Data)
	}

	if len(failures) > 0 {
		return OperationResult{Success: false, Data: uploaded, ValidationErrors: failures}
	}
	return successResult(uploaded)
}

// GetImages lists an entity's live images, primary first, then by position,
// then by creation order.
func (f *FileService) GetImages(ctx context.Context, entityType EntityType, entityID uint64, opts *FileOptions) OperationResult {
	if opts == nil {
		opts = &FileOptions{}
	}
	if failure := f.authorize(ctx, entityType, entityID, opts); failure != nil {
		return *failure
	}

	var images []models.EntityImage
	err := f.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND deleted = ?", string(entityType), entityID, false).
		Order("is_primary DESC, position ASC, created_at ASC").
		Find(&images).Error
	if err != nil {
		log.Printf("list images failed for %s/%d: %v", entityType, entityID, err)
		return errorResult("Failed to get images")
	}
	return successResult(Serialize(images, nil))
}

// ImagePatch carries the mutable image metadata fields. Nil means unchanged.
type ImagePatch struct {
	IsPrimary *bool   `json:"is_primary,omitempty"`
	Position  *int    `json:"position,omitempty"`
	AltText   *string `json:"alt_text,omitempty"`
	Title     *string `json:"title,omitempty"`
}

// UpdateImage edits image metadata. Setting the primary flag unsets every
// other primary flag for the same owning entity inside one transaction, so
// at most one primary image per entity survives any sequence of updates.
func (f *FileService) UpdateImage(ctx context.Context, imageID uint64, patch ImagePatch, opts *FileOptions) OperationResult {
	if opts == nil {
		opts = &FileOptions{}
	}

	var image models.EntityImage
	if err := f.db.WithContext(ctx).Where("deleted = ?", false).First(&image, imageID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errorResult("Image not found")
		}
		log.Printf("load image %d failed: %v", imageID, err)
		return errorResult("Failed to update image")
	}

	if failure := f.authorize(ctx, EntityType(image.EntityType), image.EntityID, opts); failure != nil {
		return *failure
	}

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if patch.IsPrimary != nil && *patch.IsPrimary {
			err := tx.Model(&models.EntityImage{}).
				Where("entity_type = ? AND entity_id = ? AND id <> ?", image.EntityType, image.EntityID, image.ID).
				Update("is_primary", false).Error
			if err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		if patch.IsPrimary != nil {
			updates["is_primary"] = *patch.IsPrimary
		}
		if patch.Position != nil {
			updates["position"] = *patch.Position
		}
		if patch.AltText != nil {
			updates["alt_text"] = *patch.AltText
		}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&image).Updates(updates).Error
	})
	if err != nil {
		log.Printf("update image %d failed: %v", imageID, err)
		return errorResult("Failed to update image")
	}

	if err := f.db.WithContext(ctx).First(&image, imageID).Error; err != nil {
		log.Printf("reload image %d failed: %v", imageID, err)
		return errorResult("Failed to update image")
	}
	return successResult(Serialize(image, nil))
}

// DeleteImage removes the stored object and soft-deletes the metadata row.
// A storage failure does not abort the soft delete: an orphaned object is
// preferable to a record that claims deletion never happened.
func (f *FileService) DeleteImage(ctx context.Context, imageID uint64, opts *FileOptions) OperationResult {
	if opts == nil {
		opts = &FileOptions{}
	}

	var image models.EntityImage
	if err := f.db.WithContext(ctx).Where("deleted = ?", false).First(&image, imageID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errorResult("Image not found")
		}
		log.Printf("load image %d failed: %v", imageID, err)
		return errorResult("Failed to delete image")
	}

	if failure := f.authorize(ctx, EntityType(image.EntityType), image.EntityID, opts); failure != nil {
		return *failure
	}

	if image.StoragePath != "" {
		if err := f.store.Delete(ctx, image.StoragePath); err != nil {
			log.Printf("storage delete failed for %s, continuing with soft delete: %v", image.StoragePath, err)
		}
	}

	if err := f.db.WithContext(ctx).Model(&image).Update("deleted", true).Error; err != nil {
		log.Printf("soft delete image %d failed: %v", imageID, err)
		return errorResult("Failed to delete image")
	}
	return successResult(map[string]interface{}{"id": imageID})
}

// UploadDocument stores one document and persists its metadata record.
func (f *FileService) UploadDocument(ctx context.Context, file FileUpload, entityType EntityType, entityID uint64, opts *FileOptions) OperationResult {
	if opts == nil {
		opts = &FileOptions{}
	}
	if failure := f.authorize(ctx, entityType, entityID, opts); failure != nil {
		return *failure
	}

	if !opts.SkipValidation {
		maxSize := opts.MaxSizeMB
		if maxSize == 0 {
			maxSize = DefaultMaxDocumentSizeMB
		}
		allowed := opts.AllowedMimeTypes
		if allowed == nil {
			allowed = defaultDocumentMimeTypes
		}
		if errs := validateFile(file, maxSize, allowed); len(errs) > 0 {
			return validationFailure(errs)
		}
	}

	key, fileName := storageKey(entityType, entityID, file.Name)
	stored, err := f.store.Upload(ctx, key, file.Reader, file.Size, file.ContentType)
	if err != nil {
		log.Printf("document upload to storage failed for %s/%d: %v", entityType, entityID, err)
		return errorResult("Failed to upload document")
	}

	title := opts.Title
	if title == "" {
		title = file.Name
	}
	document := &models.EntityDocument{
		EntityType:     string(entityType),
		EntityID:       entityID,
		URL:            stored.URL,
		StoragePath:    stored.Path,
		OriginalName:   file.Name,
		FileName:       fileName,
		FileSize:       types.BigInt(file.Size),
		MimeType:       file.ContentType,
		Title:          title,
		Description:    opts.Description,
		DocumentTypeID: opts.DocumentTypeID,
	}
	if err := f.db.WithContext(ctx).Create(document).Error; err != nil {
		log.Printf("document metadata write failed after storage upload %s: %v", stored.Path, err)
		return errorResult("Failed to save document record")
	}

	return successResult(Serialize(document, nil))
}

// GetDocuments lists an entity's live documents, newest first.
func (f *FileService) GetDocuments(ctx context.Context, entityType EntityType, entityID uint64, opts *FileOptions) OperationResult {
	if opts == nil {
		opts = &FileOptions{}
	}
	if failure := f.authorize(ctx, entityType, entityID, opts); failure != nil {
		return *failure
	}

	var documents []models.EntityDocument
	err := f.db.WithContext(ctx).
		Preload("DocumentType").
		Where("entity_type = ? AND entity_id = ? AND deleted = ?", string(entityType), entityID, false).
		Order("created_at DESC").
		Find(&documents).Error
	if err != nil {
		log.Printf("list documents failed for %s/%d: %v", entityType, entityID, err)
		return errorResult("Failed to get documents")
	}
	return successResult(Serialize(documents, nil))
}

// DocumentPatch carries the mutable document metadata fields.
type DocumentPatch struct {
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	DocumentTypeID *uint64 `json:"document_type_id,omitempty"`
}

// UpdateDocument edits document metadata after authorizing against the
// owning entity.
func (f *FileService) UpdateDocument(ctx context.Context, documentID uint64, patch DocumentPatch, opts *FileOptions) OperationResult {
	if opts == nil {
		opts = &FileOptions{}
	}

	var document models.EntityDocument
	if err := f.db.WithContext(ctx).Where("deleted = ?", false).First(&document, documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errorResult("Document not found")
		}
		log.Printf("load document %d failed: %v", documentID, err)
		return errorResult("Failed to update document")
	}

	if failure := f.authorize(ctx, EntityType(document.EntityType), document.EntityID, opts); failure != nil {
		return *failure
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.DocumentTypeID != nil {
		updates["document_type_id"] = *patch.DocumentTypeID
	}
	if len(updates) > 0 {
		if err := f.db.WithContext(ctx).Model(&document).Updates(updates).Error; err != nil {
			log.Printf("update document %d failed: %v", documentID, err)
			return errorResult("Failed to update document")
		}
	}

	if err := f.db.WithContext(ctx).First(&document, documentID).Error; err != nil {
		log.Printf("reload document %d failed: %v", documentID, err)
		return errorResult("Failed to update document")
	}
	return successResult(Serialize(document, nil))
}

// DeleteDocument removes the stored object and soft-deletes the metadata
// row, same failure policy as DeleteImage.
func (f *FileService) DeleteDocument(ctx context.Context, documentID uint64, opts *FileOptions) OperationResult {
	if opts == nil {
		opts = &FileOptions{}
	}

	var document models.EntityDocument
	if err := f.db.WithContext(ctx).Where("deleted = ?", false).First(&document, documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errorResult("Document not found")
		}
		log.Printf("load document %d failed: %v", documentID, err)
		return errorResult("Failed to delete document")
	}

	if failure := f.authorize(ctx, EntityType(document.EntityType), document.EntityID, opts); failure != nil {
		return *failure
	}

	if document.StoragePath != "" {
		if err := f.store.Delete(ctx, document.StoragePath); err != nil {
			log.Printf("storage delete failed for %s, continuing with soft delete: %v", document.StoragePath, err)
		}
	}

	if err := f.db.WithContext(ctx).Model(&document).Update("deleted", true).Error; err != nil {
		log.Printf("soft delete document %d failed: %v", documentID, err)
		return errorResult("Failed to delete document")
	}
	return successResult(map[string]interface{}{"id": documentID})
}

// File kinds accepted by GetFileURL.
const (
	FileTypeImage    = "image"
	FileTypeDocument = "document"
)

// GetFileURL resolves an attachment's owning entity from the record itself,
// authorizes, and returns the stored URL.
func (f *FileService) GetFileURL(ctx context.Context, fileType string, fileID uint64, opts *FileOptions) OperationResult {
	if opts == nil {
		opts = &FileOptions{}
	}

	var entityType EntityType
	var entityID uint64
	var url string

	switch fileType {
	case FileTypeImage:
		var image models.EntityImage
		if err := f.db.WithContext(ctx).Where("deleted = ?", false).First(&image, fileID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errorResult("Image not found")
			}
			log.Printf("load image %d failed: %v", fileID, err)
			return errorResult("Failed to get file URL")
		}
		entityType, entityID, url = EntityType(image.EntityType), image.EntityID, image.URL
	case FileTypeDocument:
		var document models.EntityDocument
		if err := f.db.WithContext(ctx).Where("deleted = ?", false).First(&document, fileID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errorResult("Document not found")
			}
			log.Printf("load document %d failed: %v", fileID, err)
			return errorResult("Failed to get file URL")
		}
		entityType, entityID, url = EntityType(document.EntityType), document.EntityID, document.URL
	default:
		return errorResult(fmt.Sprintf("Unsupported file type: %s", fileType))
	}

	if failure := f.authorize(ctx, entityType, entityID, opts); failure != nil {
		return *failure
	}
	if url == "" {
		return errorResult("File URL not available")
	}
	return successResult(map[string]interface{}{"url": url})
}
