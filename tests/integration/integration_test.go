package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nikitakofman/chinea-dataservice/internal/config"
	"github.com/nikitakofman/chinea-dataservice/internal/database"
	"github.com/nikitakofman/chinea-dataservice/internal/handlers"
	"github.com/nikitakofman/chinea-dataservice/internal/services"
	"github.com/nikitakofman/chinea-dataservice/tests/helpers"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// TestWithMariaDB tests the service pipeline with a real MariaDB container
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start MariaDB container
	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	// Get container host and port
	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create config
	cfg := &config.Config{
		DBType:            "mysql",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 5,
	}

	// Wait for database to be ready
	time.Sleep(5 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Run tests
	t.Run("EntityLifecycle", func(t *testing.T) {
		testEntityLifecycle(t, db)
	})

	t.Run("OwnershipIsolation", func(t *testing.T) {
		testOwnershipIsolation(t, db)
	})

	t.Run("DeletionDependencies", func(t *testing.T) {
		testDeletionDependencies(t, db)
	})

	t.Run("SaleUniqueness", func(t *testing.T) {
		testSaleUniqueness(t, db)
	})

	t.Run("HandlerPipeline", func(t *testing.T) {
		testHandlerPipeline(t, db)
	})
}

func newEntityService(db *gorm.DB) *services.EntityService {
	access := services.NewAccessControlService(db, services.ContextSession{})
	validation := services.NewValidationService(db)
	return services.NewEntityService(db, access, validation, nil)
}

func actorContext(userID string) context.Context {
	return services.WithActor(context.Background(), &services.Actor{ID: userID})
}

// testEntityLifecycle tests create, update, get and delete through the pipeline
func testEntityLifecycle(t *testing.T, db *gorm.DB) {
	service := newEntityService(db)
	ctx := actorContext("11111111-1111-1111-1111-111111111111")

	// Create a book
	created := service.Create(ctx, services.EntityBook, map[string]interface{}{
		"reference": "LIFE-1",
		"name":      "Estate inventory",
	}, nil)
	if !created.Success {
		t.Fatalf("Failed to create book: %q %v", created.Error, created.ValidationErrors)
	}
	bookID := created.Data.(map[string]interface{})["id"].(uint64)

	// Duplicate reference is rejected
	duplicate := service.Create(ctx, services.EntityBook, map[string]interface{}{
		"reference": "LIFE-1",
	}, nil)
	if duplicate.Success {
		t.Error("Expected duplicate reference to be rejected")
	}

	// Update
	updated := service.Update(ctx, services.EntityBook, bookID, map[string]interface{}{
		"name": "Renamed inventory",
	}, nil)
	if !updated.Success {
		t.Fatalf("Failed to update book: %q %v", updated.Error, updated.ValidationErrors)
	}

	// Get reflects the update
	fetched := service.Get(ctx, services.EntityBook, bookID, nil)
	if !fetched.Success {
		t.Fatalf("Failed to get book: %q", fetched.Error)
	}
	if fetched.Data.(map[string]interface{})["name"] != "Renamed inventory" {
		t.Errorf("Expected renamed book, got %v", fetched.Data)
	}

	// Delete
	deleted := service.Delete(ctx, services.EntityBook, bookID, nil)
	if !deleted.Success {
		t.Fatalf("Failed to delete book: %q", deleted.Error)
	}
	if again := service.Get(ctx, services.EntityBook, bookID, nil); again.Success {
		t.Error("Expected deleted book to be gone")
	}
}

// testOwnershipIsolation verifies that one user's records never leak to another
func testOwnershipIsolation(t *testing.T, db *gorm.DB) {
	service := newEntityService(db)
	owner := actorContext("22222222-2222-2222-2222-222222222222")
	stranger := actorContext("33333333-3333-3333-3333-333333333333")

	book := helpers.CreateTestBook(t, db, "22222222-2222-2222-2222-222222222222", "ISO-1")
	helpers.CreateTestItem(t, db, book.ID, "ISO-ITEM-1")

	// Stranger's list of items is empty
	listed := service.List(stranger, services.EntityItem, services.ListQuery{}, nil)
	if !listed.Success {
		t.Fatalf("Failed to list items: %q", listed.Error)
	}
	if rows := listed.Data.([]interface{}); len(rows) != 0 {
		t.Errorf("Expected no items for stranger, got %d", len(rows))
	}

	// Stranger's update is denied
	updated := service.Update(stranger, services.EntityBook, book.ID, map[string]interface{}{
		"name": "Hijacked",
	}, nil)
	if updated.Success {
		t.Error("Expected stranger update to be denied")
	}
	if updated.Error != "Access denied" {
		t.Errorf("Expected Access denied, got %q", updated.Error)
	}

	// Owner still sees the book
	fetched := service.Get(owner, services.EntityBook, book.ID, nil)
	if !fetched.Success {
		t.Errorf("Expected owner to still see the book, got %q", fetched.Error)
	}
}

// testDeletionDependencies verifies delete is blocked while dependents exist
func testDeletionDependencies(t *testing.T, db *gorm.DB) {
	service := newEntityService(db)
	userID := "44444444-4444-4444-4444-444444444444"
	ctx := actorContext(userID)

	book := helpers.CreateTestBook(t, db, userID, "DEP-1")
	category := helpers.CreateTestCategory(t, db, userID, "Dep Furniture", nil)
	item := helpers.CreateTestItem(t, db, book.ID, "DEP-ITEM-1")
	if err := db.Model(item).Update("category_id", category.ID).Error; err != nil {
		t.Fatalf("Failed to attach category: %v", err)
	}

	blocked := service.Delete(ctx, services.EntityCategory, category.ID, nil)
	if blocked.Success {
		t.Fatal("Expected delete to be blocked by the associated item")
	}
	if len(blocked.ValidationErrors) == 0 {
		t.Fatalf("Expected validation errors, got %q", blocked.Error)
	}

	// After detaching the item the delete goes through
	if err := db.Model(item).Update("category_id", nil).Error; err != nil {
		t.Fatalf("Failed to detach category: %v", err)
	}
	allowed := service.Delete(ctx, services.EntityCategory, category.ID, nil)
	if !allowed.Success {
		t.Errorf("Expected delete after detach, got %q %v", allowed.Error, allowed.ValidationErrors)
	}
}

// testSaleUniqueness verifies the one-sale-per-item rule under a real database
func testSaleUniqueness(t *testing.T, db *gorm.DB) {
	service := newEntityService(db)
	userID := "55555555-5555-5555-5555-555555555555"
	ctx := actorContext(userID)

	book := helpers.CreateTestBook(t, db, userID, "SALE-1")
	item := helpers.CreateTestItem(t, db, book.ID, "SALE-ITEM-1")

	first := service.Create(ctx, services.EntitySale, map[string]interface{}{
		"item_id":    item.ID,
		"sale_price": "150.00",
		"sale_date":  time.Now().UTC().Format(time.RFC3339),
	}, nil)
	if !first.Success {
		t.Fatalf("Failed to record sale: %q %v", first.Error, first.ValidationErrors)
	}

	second := service.Create(ctx, services.EntitySale, map[string]interface{}{
		"item_id":    item.ID,
		"sale_price": "200.00",
		"sale_date":  time.Now().UTC().Format(time.RFC3339),
	}, nil)
	if second.Success {
		t.Fatal("Expected second sale of the same item to be rejected")
	}
	found := false
	for _, message := range second.ValidationErrors {
		if message == "This item has already been sold" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected already-sold error, got %v", second.ValidationErrors)
	}
}

// stubActor injects a fixed authenticated actor, standing in for the
// authorizer cookie middleware.
func stubActor(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(services.WithActor(c.UserContext(), &services.Actor{ID: userID}))
		return c.Next()
	}
}

// testHandlerPipeline tests the HTTP layer against the real database
func testHandlerPipeline(t *testing.T, db *gorm.DB) {
	userID := "66666666-6666-6666-6666-666666666666"
	service := newEntityService(db)

	app := fiber.New()
	handler := &handlers.EntityDataHandler{Entity: service}
	data := app.Group("/api/data", stubActor(userID))
	data.Get("/:entityType", handler.ListEntities)
	data.Get("/:entityType/:id", handler.GetEntity)
	data.Post("/:entityType", handler.CreateEntity)
	data.Delete("/:entityType/:id", handler.DeleteEntity)

	// Create through the handler
	body, _ := json.Marshal(map[string]interface{}{
		"name": "Handler Ceramics",
	})
	req := httptest.NewRequest("POST", "/api/data/category", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 200)

	var created struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	helpers.ParseJSON(t, resp, &created)
	if !created.Success || created.Data["user_id"] != userID {
		t.Fatalf("Expected created category owned by caller, got %+v", created)
	}

	// Duplicate create returns 422 with the collision message
	req = httptest.NewRequest("POST", "/api/data/category", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 422)

	var conflict struct {
		Success          bool     `json:"success"`
		ValidationErrors []string `json:"validationErrors"`
	}
	helpers.ParseJSON(t, resp, &conflict)
	if len(conflict.ValidationErrors) == 0 {
		t.Error("Expected validation errors in the 422 body")
	}

	// Unknown entity type returns 400
	req = httptest.NewRequest("GET", "/api/data/gadget", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 400)

	// Missing id returns 404
	req = httptest.NewRequest("GET", "/api/data/category/999999", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 404)
}

// TestHealthCheck tests the health check against a live database and a dead authorizer
func TestHealthCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start MariaDB container
	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.Config{
		DBType:     "mysql",
		DBHost:     host,
		DBPort:     port.Port(),
		DBDatabase: "testdb",
		DBUser:     "testuser",
		DBPassword: "testpass",
		AuthzURL:   "http://localhost:9999", // Non-existent service
	}

	time.Sleep(5 * time.Second)

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run health check
	result := services.HealthCheck(ctx, cfg, db, nil)

	// Database should be healthy
	if result.Database != "ok" {
		t.Errorf("Expected database to be ok, got: %s", result.Database)
	}

	// Authorizer should be unreachable
	if result.Authorizer != "unreachable" {
		t.Errorf("Expected authorizer to be unreachable, got: %s", result.Authorizer)
	}

	// Overall status should be unhealthy
	if result.Status != "unhealthy" {
		t.Errorf("Expected status to be unhealthy, got: %s", result.Status)
	}
}
