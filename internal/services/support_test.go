package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/nikitakofman/chinea-dataservice/internal/models"
	"github.com/nikitakofman/chinea-dataservice/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServiceDB creates an in-memory SQLite database with the full schema
func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Book{},
		&models.Category{},
		&models.CostEventType{},
		&models.Person{},
		&models.Item{},
		&models.Incident{},
		&models.Purchase{},
		&models.Sale{},
		&models.Cost{},
		&models.EntityImage{},
		&models.EntityDocument{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// actorContext returns a request context authenticated as the given user id.
func actorContext(userID string) context.Context {
	return WithActor(context.Background(), &Actor{ID: userID, Email: userID + "@example.com"})
}

// recordingRevalidator captures revalidated paths for assertions.
type recordingRevalidator struct {
	paths []string
}

func (r *recordingRevalidator) Revalidate(_ context.Context, path string) error {
	r.paths = append(r.paths, path)
	return nil
}

// memoryStorage is an in-process ObjectStorage for file service tests.
type memoryStorage struct {
	objects    map[string][]byte
	deleted    []string
	failUpload bool
	failDelete bool
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (*storage.StoredObject, error) {
	if m.failUpload {
		return nil, errors.New("storage unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	m.objects[key] = data
	return &storage.StoredObject{URL: m.PublicURL(key), Path: key}, nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	if m.failDelete {
		return errors.New("storage unavailable")
	}
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) PublicURL(key string) string {
	return "http://storage.test/bucket/" + key
}

func createBook(t *testing.T, db *gorm.DB, userID, reference string) *models.Book {
	t.Helper()
	book := &models.Book{UserID: userID, Reference: reference, Name: "Book " + reference}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("Failed to create book: %v", err)
	}
	return book
}

func createItem(t *testing.T, db *gorm.DB, bookID uint64, number string) *models.Item {
	t.Helper()
	item := &models.Item{BookID: bookID, ItemNumber: number, Name: "Item " + number}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to create item: %v", err)
	}
	return item
}

func createCategory(t *testing.T, db *gorm.DB, userID, name string) *models.Category {
	t.Helper()
	category := &models.Category{UserID: userID, Name: name}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	return category
}

func imageUpload(name string, size int64) FileUpload {
	return FileUpload{
		Name:        name,
		Size:        size,
		ContentType: "image/jpeg",
		Reader:      bytes.NewReader(bytes.Repeat([]byte{0xFF}, 16)),
	}
}

func expectErrors(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d errors, got %d: %v", len(want), len(got), got)
	}
	for i, message := range want {
		if got[i] != message {
			t.Errorf("Expected error %q at position %d, got %q", message, i, got[i])
		}
	}
}

func mustContain(t *testing.T, haystack []string, needle string) {
	t.Helper()
	for _, s := range haystack {
		if s == needle {
			return
		}
	}
	t.Errorf("Expected %v to contain %q", haystack, needle)
}
