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
package handlers

import (
	"fmt"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/nikitakofman/chinea-dataservice/internal/services"
	"github.com/nikitakofman/chinea-dataservice/internal/utils"
)

// FileDataHandler handles attachment routes. The size limits come from
// configuration; zero falls back to the service defaults.
type FileDataHandler struct {
	Files             *services.FileService
	MaxImageSizeMB    int
	MaxDocumentSizeMB int
}

// collectUploads opens every file in the multipart form field "files".
// The returned closer releases the opened readers.
func collectUploads(form *multipart.Form) ([]services.FileUpload, func(), error) {
	headers := form.File["files"]
	uploads := make([]services.FileUpload, 0, len(headers))
	var opened []multipart.File

	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open %s: %w", header.Filename, err)
		}
		opened = append(opened, f)
		uploads = append(uploads, services.FileUpload{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      f,
		})
	}
	return uploads, closeAll, nil
}

func formOptions(form *multipart.Form) *services.FileOptions {
	value := func(key string) string {
		if vals := form.Value[key]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	opts := &services.FileOptions{
		IsPrimary:   value("is_primary") == "true",
		AltText:     value("alt_text"),
		Title:       value("title"),
		Description: value("description"),
	}
	if raw := value("document_type_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			opts.DocumentTypeID = &id
		}
	}
	if raw := value("position"); raw != "" {
		if position, err := strconv.Atoi(raw); err == nil {
			opts.Position = position
		}
	}
	return opts
}

// UploadImages handles POST /api/files/:entityType/:id/images
// @Summary Upload images
// @Description Upload one or more images for an owned entity; only the first file may become primary
// @Tags FileData
// @Accept multipart/form-data
// @Produce json
// @Param entityType path string true "Owning entity type"
// @Param id path int true "Owning entity ID"
// @Param files formData file true "Image files"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ValidationErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/{entityType}/{id}/images [post]
func (h *FileDataHandler) UploadImages(c *fiber.Ctx) error {
	entityType, ok := services.ParseEntityType(c.Params("entityType"))
	if !ok {
		return unsupportedEntityType(c, "files.uploadImages")
	}
	entityID, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid entity id", fiber.StatusBadRequest, "files.uploadImages")
	}
	form, err := c.MultipartForm()
	if err != nil {
		return utils.ErrorResponse(c, "Invalid multipart form", fiber.StatusBadRequest, "files.uploadImages")
	}
	uploads, release, err := collectUploads(form)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "files.uploadImages")
	}
	defer release()
	if len(uploads) == 0 {
		return utils.ErrorResponse(c, "No files provided", fiber.StatusBadRequest, "files.uploadImages")
	}

	opts := formOptions(form)
	opts.MaxSizeMB = h.MaxImageSizeMB
	result := h.Files.UploadImages(c.UserContext(), uploads, entityType, entityID, opts)
	if !result.Success && len(result.ValidationErrors) > 0 && result.Data != nil {
		// Partial success keeps the uploaded subset visible alongside the failures
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}
	return sendResult(c, result, "files.uploadImages")
}

// GetImages handles GET /api/files/:entityType/:id/images
// @Summary List images
// @Description List an entity's images, primary first
// @Tags FileData
// @Produce json
// @Param entityType path string true "Owning entity type"
// @Param id path int true "Owning entity ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/{entityType}/{id}/images [get]
func (h *FileDataHandler) GetImages(c *fiber.Ctx) error {
	entityType, ok := services.ParseEntityType(c.Params("entityType"))
	if !ok {
		return unsupportedEntityType(c, "files.getImages")
	}
	entityID, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid entity id", fiber.StatusBadRequest, "files.getImages")
	}
	result := h.Files.GetImages(c.UserContext(), entityType, entityID, nil)
	return sendResult(c, result, "files.getImages")
}

// UpdateImage handles PATCH /api/files/images/:imageId
// @Summary Update image metadata
// @Description Edit image metadata; setting is_primary demotes every other primary image of the entity
// @Tags FileData
// @Accept json
// @Produce json
// @Param imageId path int true "Image ID"
// @Param body body services.ImagePatch true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/images/{imageId} [patch]
func (h *FileDataHandler) UpdateImage(c *fiber.Ctx) error {
	imageID, err := parseID(c, "imageId")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid image id", fiber.StatusBadRequest, "files.updateImage")
	}
	var patch services.ImagePatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "files.updateImage")
	}
	result := h.Files.UpdateImage(c.UserContext(), imageID, patch, nil)
	return sendResult(c, result, "files.updateImage")
}

// DeleteImage handles DELETE /api/files/images/:imageId
// @Summary Delete an image
// @Description Remove the stored object and soft-delete the metadata record
// @Tags FileData
// @Produce json
// @Param imageId path int true "Image ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/images/{imageId} [delete]
func (h *FileDataHandler) DeleteImage(c *fiber.Ctx) error {
	imageID, err := parseID(c, "imageId")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid image id", fiber.StatusBadRequest, "files.deleteImage")
	}
	result := h.Files.DeleteImage(c.UserContext(), imageID, nil)
	return sendResult(c, result, "files.deleteImage")
}

// UploadDocument handles POST /api/files/:entityType/:id/documents
// @Summary Upload a document
// @Description Upload one document for an owned entity
// @Tags FileData
// @Accept multipart/form-data
// @Produce json
// @Param entityType path string true "Owning entity type"
// @Param id path int true "Owning entity ID"
// @Param files formData file true "Document file"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ValidationErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/{entityType}/{id}/documents [post]
func (h *FileDataHandler) UploadDocument(c *fiber.Ctx) error {
	entityType, ok := services.ParseEntityType(c.Params("entityType"))
	if !ok {
		return unsupportedEntityType(c, "files.uploadDocument")
	}
	entityID, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid entity id", fiber.StatusBadRequest, "files.uploadDocument")
	}
	form, err := c.MultipartForm()
	if err != nil {
		return utils.ErrorResponse(c, "Invalid multipart form", fiber.StatusBadRequest, "files.uploadDocument")
	}
	uploads, release, err := collectUploads(form)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "files.uploadDocument")
	}
	defer release()
	if len(uploads) != 1 {
		return utils.ErrorResponse(c, "Exactly one file required", fiber.StatusBadRequest, "files.uploadDocument")
	}

	opts := formOptions(form)
	opts.MaxSizeMB = h.MaxDocumentSizeMB
	result := h.Files.UploadDocument(c.UserContext(), uploads[0], entityType, entityID, opts)
	return sendResult(c, result, "files.uploadDocument")
}

// GetDocuments handles GET /api/files/:entityType/:id/documents
// @Summary List documents
// @Description List an entity's documents, newest first
// @Tags FileData
// @Produce json
// @Param entityType path string true "Owning entity type"
// @Param id path int true "Owning entity ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/{entityType}/{id}/documents [get]
func (h *FileDataHandler) GetDocuments(c *fiber.Ctx) error {
	entityType, ok := services.ParseEntityType(c.Params("entityType"))
	if !ok {
		return unsupportedEntityType(c, "files.getDocuments")
	}
	entityID, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid entity id", fiber.StatusBadRequest, "files.getDocuments")
	}
	result := h.Files.GetDocuments(c.UserContext(), entityType, entityID, nil)
	return sendResult(c, result, "files.getDocuments")
}

// UpdateDocument handles PATCH /api/files/documents/:documentId
// @Summary Update document metadata
// @Tags FileData
// @Accept json
// @Produce json
// @Param documentId path int true "Document ID"
// @Param body body services.DocumentPatch true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/documents/{documentId} [patch]
func (h *FileDataHandler) UpdateDocument(c *fiber.Ctx) error {
	documentID, err := parseID(c, "documentId")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "files.updateDocument")
	}
	var patch services.DocumentPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "files.updateDocument")
	}
	result := h.Files.UpdateDocument(c.UserContext(), documentID, patch, nil)
	return sendResult(c, result, "files.updateDocument")
}

// DeleteDocument handles DELETE /api/files/documents/:documentId
// @Summary Delete a document
// @Tags FileData
// @Produce json
// @Param documentId path int true "Document ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/documents/{documentId} [delete]
func (h *FileDataHandler) DeleteDocument(c *fiber.Ctx) error {
	documentID, err := parseID(c, "documentId")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "files.deleteDocument")
	}
	result := h.Files.DeleteDocument(c.UserContext(), documentID, nil)
	return sendResult(c, result, "files.deleteDocument")
}

// GetFileURL handles GET /api/files/:fileType/:fileId/url
// @Summary Resolve a file URL
// @Description Resolve an attachment's public URL after authorizing against its owning entity
// @Tags FileData
// @Produce json
// @Param fileType path string true "File kind" Enums(image, document)
// @Param fileId path int true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/{fileType}/{fileId}/url [get]
func (h *FileDataHandler) GetFileURL(c *fiber.Ctx) error {
	fileID, err := parseID(c, "fileId")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid file id", fiber.StatusBadRequest, "files.getFileUrl")
	}
	result := h.Files.GetFileURL(c.UserContext(), c.Params("fileType"), fileID, nil)
	return sendResult(c, result, "files.getFileUrl")
}
