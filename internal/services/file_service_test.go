package services

import (
	"strings"
	"testing"

	"github.com/nikitakofman/chinea-dataservice/internal/models"
	"gorm.io/gorm"
)

func newTestFileService(db *gorm.DB) (*FileService, *memoryStorage) {
	access := NewAccessControlService(db, ContextSession{})
	store := newMemoryStorage()
	return NewFileService(db, access, store), store
}

func TestUploadImageStoresObjectAndRecord(t *testing.T) {
	db := setupServiceDB(t)
	service, store := newTestFileService(db)
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")

	result := service.UploadImage(actorContext("user-a"), imageUpload("vase.jpg", 2048), EntityItem, item.ID, &FileOptions{
		IsPrimary: true,
		AltText:   "Ming vase",
	})
	if !result.Success {
		t.Fatalf("Expected success, got %q %v", result.Error, result.ValidationErrors)
	}

	serialized := result.Data.(map[string]interface{})
	if serialized["original_name"] != "vase.jpg" {
		t.Errorf("Expected original name kept, got %v", serialized["original_name"])
	}
	if serialized["file_size"] != "2048" {
		t.Errorf("Expected file_size as string, got %v (%T)", serialized["file_size"], serialized["file_size"])
	}
	if serialized["is_primary"] != true {
		t.Errorf("Expected primary flag, got %v", serialized["is_primary"])
	}

	path, ok := serialized["storage_path"].(string)
	if !ok || !strings.HasPrefix(path, "item/") {
		t.Fatalf("Expected storage path under item/, got %v", serialized["storage_path"])
	}
	if _, present := store.objects[path]; !present {
		t.Error("Expected object bytes in storage")
	}
	if !strings.HasSuffix(path, ".jpg") {
		t.Errorf("Expected original extension kept, got %q", path)
	}
}

func TestUploadImageDeniedForNonOwner(t *testing.T) {
	db := setupServiceDB(t)
	service, store := newTestFileService(db)
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")

	result := service.UploadImage(actorContext("user-b"), imageUpload("vase.jpg", 2048), EntityItem, item.ID, nil)
	if result.Success {
		t.Fatal("Expected non-owner upload to fail")
	}
	if result.Error != "Access denied" {
		t.Errorf("Expected Access denied, got %q", result.Error)
	}
	if len(store.objects) != 0 {
		t.Error("Expected nothing written to storage")
	}
}

func TestUploadImageValidatesSizeAndType(t *testing.T) {
	db := setupServiceDB(t)
	service, store := newTestFileService(db)
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")

	oversized := imageUpload("huge.jpg", 11*1024*1024)
	result := service.UploadImage(actorContext("user-a"), oversized, EntityItem, item.ID, nil)
	if result.Success {
		t.Fatal("Expected oversized upload to fail")
	}
	expectErrors(t, result.ValidationErrors, "huge.jpg: File size 11.0MB exceeds maximum 10MB")

	executable := FileUpload{Name: "run.exe", Size: 100, ContentType: "application/x-msdownload", Reader: strings.NewReader("x")}
	result = service.UploadImage(actorContext("user-a"), executable, EntityItem, item.ID, nil)
	if result.Success {
		t.Fatal("Expected disallowed type to fail")
	}
	expectErrors(t, result.ValidationErrors, "run.exe: File type application/x-msdownload is not allowed")

	if len(store.objects) != 0 {
		t.Error("Expected rejected files to never reach storage")
	}
}

func TestUploadImageStorageFailureLeavesNoRecord(t *testing.T) {
	db := setupServiceDB(t)
	service, store := newTestFileService(db)
	store.failUpload = true
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")

	result := service.UploadImage(actorContext("user-a"), imageUpload("vase.jpg", 2048), EntityItem, item.ID, nil)
	if result.Success {
		t.Fatal("Expected storage failure to fail the upload")
	}
	if result.Error != "Failed to upload image" {
		t.Errorf("Expected upload failure message, got %q", result.Error)
	}

	var count int64
	db.Model(&models.EntityImage{}).Count(&count)
	if count != 0 {
		t.Error("Expected no metadata row after a storage failure")
	}
}

func TestUploadImagesBatchPartialFailure(t *testing.T) {
	db := setupServiceDB(t)
	service, _ := newTestFileService(db)
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")

	files := []FileUpload{
		imageUpload("front.jpg", 2048),
		imageUpload("huge.jpg", 11*1024*1024),
		imageUpload("back.jpg", 4096),
	}
	result := service.UploadImages(actorContext("user-a"), files, EntityItem, item.ID, &FileOptions{IsPrimary: true})
	if result.Success {
		t.Fatal("Expected batch with a failing file to report failure")
	}
	mustContain(t, result.ValidationErrors, "huge.jpg: File size 11.0MB exceeds maximum 10MB")

	uploaded, ok := result.Data.([]interface{})
	if !ok || len(uploaded) != 2 {
		t.Fatalf("Expected 2 successful uploads alongside the failure, got %v", result.Data)
	}

	// Only the first file of the batch carries the primary flag
	first := uploaded[0].(map[string]interface{})
	second := uploaded[1].(map[string]interface{})
	if first["is_primary"] != true {
		t.Error("Expected first upload to be primary")
	}
	if second["is_primary"] != false {
		t.Error("Expected later uploads to not be primary")
	}
}

func TestGetImagesOrderingAndSoftDeleteFilter(t *testing.T) {
	db := setupServiceDB(t)
	service, _ := newTestFileService(db)
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")
	ctx := actorContext("user-a")

	service.UploadImage(ctx, imageUpload("second.jpg", 100), EntityItem, item.ID, &FileOptions{Position: 2})
	service.UploadImage(ctx, imageUpload("primary.jpg", 100), EntityItem, item.ID, &FileOptions{IsPrimary: true, Position: 5})
	service.UploadImage(ctx, imageUpload("first.jpg", 100), EntityItem, item.ID, &FileOptions{Position: 1})

	result := service.GetImages(ctx, EntityItem, item.ID, nil)
	if !result.Success {
		t.Fatalf("Expected success, got %q", result.Error)
	}
	rows := result.Data.([]interface{})
	if len(rows) != 3 {
		t.Fatalf("Expected 3 images, got %d", len(rows))
	}
	names := []string{
		rows[0].(map[string]interface{})["original_name"].(string),
		rows[1].(map[string]interface{})["original_name"].(string),
		rows[2].(map[string]interface{})["original_name"].(string),
	}
	if names[0] != "primary.jpg" || names[1] != "first.jpg" || names[2] != "second.jpg" {
		t.Errorf("Expected primary first then by position, got %v", names)
	}
}

func TestUpdateImagePrimaryIsSingleton(t *testing.T) {
	db := setupServiceDB(t)
	service, _ := newTestFileService(db)
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")
	ctx := actorContext("user-a")

	first := service.UploadImage(ctx, imageUpload("first.jpg", 100), EntityItem, item.ID, &FileOptions{IsPrimary: true})
	second := service.UploadImage(ctx, imageUpload("second.jpg", 100), EntityItem, item.ID, nil)
	if !first.Success || !second.Success {
		t.Fatal("Failed to seed images")
	}
	secondID := second.Data.(map[string]interface{})["id"].(uint64)

	isPrimary := true
	result := service.UpdateImage(ctx, secondID, ImagePatch{IsPrimary: &isPrimary}, nil)
	if !result.Success {
		t.Fatalf("Expected success, got %q", result.Error)
	}

	var primaries []models.EntityImage
	if err := db.Where("entity_type = ? AND entity_id = ? AND is_primary = ?", "item", item.ID, true).Find(&primaries).Error; err != nil {
		t.Fatalf("Failed to query primaries: %v", err)
	}
	if len(primaries) != 1 {
		t.Fatalf("Expected exactly one primary image, got %d", len(primaries))
	}
	if primaries[0].ID != secondID {
		t.Errorf("Expected primary to move to image %d, got %d", secondID, primaries[0].ID)
	}
}

func TestDeleteImageSoftDeletesDespiteStorageFailure(t *testing.T) {
	db := setupServiceDB(t)
	service, store := newTestFileService(db)
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")
	ctx := actorContext("user-a")

	uploaded := service.UploadImage(ctx, imageUpload("vase.jpg", 100), EntityItem, item.ID, nil)
	if !uploaded.Success {
		t.Fatal("Failed to seed image")
	}
	imageID := uploaded.Data.(map[string]interface{})["id"].(uint64)

	store.failDelete = true
	result := service.DeleteImage(ctx, imageID, nil)
	if !result.Success {
		t.Fatalf("Expected soft delete to proceed past storage failure, got %q", result.Error)
	}

	var image models.EntityImage
	if err := db.First(&image, imageID).Error; err != nil {
		t.Fatalf("Expected row to survive as soft deleted: %v", err)
	}
	if !image.Deleted {
		t.Error("Expected deleted flag set")
	}

	listed := service.GetImages(ctx, EntityItem, item.ID, nil)
	if rows := listed.Data.([]interface{}); len(rows) != 0 {
		t.Errorf("Expected soft-deleted image hidden from listing, got %d rows", len(rows))
	}

	// A second delete no longer finds the record
	result = service.DeleteImage(ctx, imageID, nil)
	if result.Success || result.Error != "Image not found" {
		t.Errorf("Expected Image not found on repeat delete, got %+v", result)
	}
}

func TestUploadAndListDocuments(t *testing.T) {
	db := setupServiceDB(t)
	service, _ := newTestFileService(db)
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")
	ctx := actorContext("user-a")

	upload := FileUpload{Name: "appraisal.pdf", Size: 4096, ContentType: "application/pdf", Reader: strings.NewReader("%PDF-1.4")}
	result := service.UploadDocument(ctx, upload, EntityItem, item.ID, &FileOptions{Description: "2024 appraisal"})
	if !result.Success {
		t.Fatalf("Expected success, got %q %v", result.Error, result.ValidationErrors)
	}
	serialized := result.Data.(map[string]interface{})
	// Title falls back to the original file name
	if serialized["title"] != "appraisal.pdf" {
		t.Errorf("Expected title fallback, got %v", serialized["title"])
	}

	listed := service.GetDocuments(ctx, EntityItem, item.ID, nil)
	if !listed.Success {
		t.Fatalf("Expected success, got %q", listed.Error)
	}
	rows := listed.Data.([]interface{})
	if len(rows) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(rows))
	}
}

func TestUpdateDocumentMetadata(t *testing.T) {
	db := setupServiceDB(t)
	service, _ := newTestFileService(db)
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")
	ctx := actorContext("user-a")

	upload := FileUpload{Name: "appraisal.pdf", Size: 4096, ContentType: "application/pdf", Reader: strings.NewReader("%PDF-1.4")}
	created := service.UploadDocument(ctx, upload, EntityItem, item.ID, nil)
	if !created.Success {
		t.Fatal("Failed to seed document")
	}
	documentID := created.Data.(map[string]interface{})["id"].(uint64)

	title := "Estate appraisal"
	result := service.UpdateDocument(ctx, documentID, DocumentPatch{Title: &title}, nil)
	if !result.Success {
		t.Fatalf("Expected success, got %q", result.Error)
	}
	if result.Data.(map[string]interface{})["title"] != "Estate appraisal" {
		t.Errorf("Expected updated title, got %v", result.Data.(map[string]interface{})["title"])
	}

	// A different user cannot touch the document
	denied := service.UpdateDocument(actorContext("user-b"), documentID, DocumentPatch{Title: &title}, nil)
	if denied.Success {
		t.Fatal("Expected non-owner update to fail")
	}
}

func TestGetFileURL(t *testing.T) {
	db := setupServiceDB(t)
	service, _ := newTestFileService(db)
	book := createBook(t, db, "user-a", "B-1")
	item := createItem(t, db, book.ID, "A-1")
	ctx := actorContext("user-a")

	uploaded := service.UploadImage(ctx, imageUpload("vase.jpg", 100), EntityItem, item.ID, nil)
	if !uploaded.Success {
		t.Fatal("Failed to seed image")
	}
	imageID := uploaded.Data.(map[string]interface{})["id"].(uint64)

	result := service.GetFileURL(ctx, FileTypeImage, imageID, nil)
	if !result.Success {
		t.Fatalf("Expected success, got %q", result.Error)
	}
	url := result.Data.(map[string]interface{})["url"].(string)
	if !strings.HasPrefix(url, "http://storage.test/bucket/item/") {
		t.Errorf("Expected stored URL, got %q", url)
	}

	if denied := service.GetFileURL(actorContext("user-b"), FileTypeImage, imageID, nil); denied.Success {
		t.Error("Expected non-owner URL request to fail")
	}
	if missing := service.GetFileURL(ctx, FileTypeDocument, imageID, nil); missing.Success || missing.Error != "Document not found" {
		t.Errorf("Expected Document not found, got %+v", missing)
	}
	if unsupported := service.GetFileURL(ctx, "archive", 1, nil); unsupported.Success || unsupported.Error != "Unsupported file type: archive" {
		t.Errorf("Expected unsupported file type error, got %+v", unsupported)
	}
}
