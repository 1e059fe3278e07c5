package services

import (
	"context"

	"github.com/nikitakofman/chinea-dataservice/internal/models"
	"gorm.io/gorm"
)

// EntityType identifies one of the closed set of domain record kinds this
// layer knows how to authorize, validate, persist and serialize.
type EntityType string

// Supported entity types.
const (
	EntityBook          EntityType = "book"
	EntityCategory      EntityType = "category"
	EntityCostEventType EntityType = "cost_event_type"
	EntityPerson        EntityType = "person"
	EntityCost          EntityType = "cost"
	EntityItem          EntityType = "item"
	EntityIncident      EntityType = "incident"
	EntityPurchase      EntityType = "purchase"
	EntitySale          EntityType = "sale"
)

// entityDescriptor holds everything type-specific: ownership resolution,
// owner-column injection, model construction and validation. Adding an entity
// type is one new entry in the registry, nothing else.
type entityDescriptor struct {
	entityType EntityType
	table      string
	// direct is true when the row carries its own user_id column; false when
	// ownership resolves transitively through the parent chain to a book.
	direct bool
	// label is the singular human name used in error messages.
	label     string
	newRecord func() interface{}
	newSlice  func() interface{}
	setOwner  func(record interface{}, userID string)
	// ownerScope narrows a query to rows the given user owns. For direct
	// types this is a user_id filter; for transitive types it joins down to
	// the owning book.
	ownerScope func(tx *gorm.DB, userID string) *gorm.DB
	// parentRef returns the parent a transitive record points at, so writes
	// can authorize the target chain before touching it. Nil for direct types.
	parentRef func(record interface{}) (EntityType, uint64)
	// validate runs the type's composite validator. excludeID is non-zero on
	// updates so uniqueness checks skip the row being edited.
	validate func(ctx context.Context, v *ValidationService, record interface{}, excludeID uint64, userID string) ValidationResult
}

var entityRegistry = map[EntityType]*entityDescriptor{
	EntityBook: {
		entityType: EntityBook,
		table:      "books",
		direct:     true,
		label:      "book",
		newRecord:  func() interface{} { return &models.Book{} },
		newSlice:   func() interface{} { return &[]models.Book{} },
		setOwner:   func(r interface{}, userID string) { r.(*models.Book).UserID = userID },
		ownerScope: func(tx *gorm.DB, userID string) *gorm.DB {
			return tx.Model(&models.Book{}).Where("books.user_id = ?", userID)
		},
		validate: func(ctx context.Context, v *ValidationService, r interface{}, excludeID uint64, userID string) ValidationResult {
			return v.validateBook(ctx, r.(*models.Book), excludeID, userID)
		},
	},
	EntityCategory: {
		entityType: EntityCategory,
		table:      "categories",
		direct:     true,
		label:      "category",
		newRecord:  func() interface{} { return &models.Category{} },
		newSlice:   func() interface{} { return &[]models.Category{} },
		setOwner:   func(r interface{}, userID string) { r.(*models.Category).UserID = userID },
		ownerScope: func(tx *gorm.DB, userID string) *gorm.DB {
			return tx.Model(&models.Category{}).Where("categories.user_id = ?", userID)
		},
		validate: func(ctx context.Context, v *ValidationService, r interface{}, excludeID uint64, userID string) ValidationResult {
			return v.validateCategory(ctx, r.(*models.Category), excludeID, userID)
		},
	},
	EntityCostEventType: {
		entityType: EntityCostEventType,
		table:      "cost_event_types",
		direct:     true,
		label:      "cost event type",
		newRecord:  func() interface{} { return &models.CostEventType{} },
		newSlice:   func() interface{} { return &[]models.CostEventType{} },
		setOwner:   func(r interface{}, userID string) { r.(*models.CostEventType).UserID = userID },
		ownerScope: func(tx *gorm.DB, userID string) *gorm.DB {
			return tx.Model(&models.CostEventType{}).Where("cost_event_types.user_id = ?", userID)
		},
		validate: func(ctx context.Context, v *ValidationService, r interface{}, excludeID uint64, userID string) ValidationResult {
			return v.validateCostEventType(ctx, r.(*models.CostEventType), excludeID, userID)
		},
	},
	EntityPerson: {
		entityType: EntityPerson,
		table:      "people",
		direct:     true,
		label:      "person",
		newRecord:  func() interface{} { return &models.Person{} },
		newSlice:   func() interface{} { return &[]models.Person{} },
		setOwner:   func(r interface{}, userID string) { r.(*models.Person).UserID = userID },
		ownerScope: func(tx *gorm.DB, userID string) *gorm.DB {
			return tx.Model(&models.Person{}).Where("people.user_id = ?", userID)
		},
		validate: func(ctx context.Context, v *ValidationService, r interface{}, excludeID uint64, userID string) ValidationResult {
			return v.validatePerson(ctx, r.(*models.Person), excludeID, userID)
		},
	},
	EntityCost: {
		entityType: EntityCost,
		table:      "costs",
		direct:     true,
		label:      "cost",
		newRecord:  func() interface{} { return &models.Cost{} },
		newSlice:   func() interface{} { return &[]models.Cost{} },
		setOwner:   func(r interface{}, userID string) { r.(*models.Cost).UserID = userID },
		ownerScope: func(tx *gorm.DB, userID string) *gorm.DB {
			return tx.Model(&models.Cost{}).Where("costs.user_id = ?", userID)
		},
		validate: func(ctx context.Context, v *ValidationService, r interface{}, excludeID uint64, userID string) ValidationResult {
			return v.ValidateCost(ctx, r.(*models.Cost))
		},
	},
	EntityItem: {
		entityType: EntityItem,
		table:      "items",
		direct:     false,
		label:      "item",
		newRecord:  func() interface{} { return &models.Item{} },
		newSlice:   func() interface{} { return &[]models.Item{} },
		ownerScope: func(tx *gorm.DB, userID string) *gorm.DB {
			return tx.Model(&models.Item{}).
				Joins("JOIN books ON books.id = items.book_id").
				Where("books.user_id = ?", userID)
		},
		parentRef: func(r interface{}) (EntityType, uint64) {
			return EntityBook, r.(*models.Item).BookID
		},
		validate: func(ctx context.Context, v *ValidationService, r interface{}, excludeID uint64, userID string) ValidationResult {
			return v.ValidateItem(ctx, r.(*models.Item), excludeID)
		},
	},
	EntityIncident: {
		entityType: EntityIncident,
		table:      "incidents",
		direct:     false,
		label:      "incident",
		newRecord:  func() interface{} { return &models.Incident{} },
		newSlice:   func() interface{} { return &[]models.Incident{} },
		ownerScope: func(tx *gorm.DB, userID string) *gorm.DB {
			return tx.Model(&models.Incident{}).
				Joins("JOIN items ON items.id = incidents.item_id").
				Joins("JOIN books ON books.id = items.book_id").
				Where("books.user_id = ?", userID)
		},
		parentRef: func(r interface{}) (EntityType, uint64) {
			return EntityItem, r.(*models.Incident).ItemID
		},
		validate: func(ctx context.Context, v *ValidationService, r interface{}, excludeID uint64, userID string) ValidationResult {
			return v.validateIncident(r.(*models.Incident))
		},
	},
	EntityPurchase: {
		entityType: EntityPurchase,
		table:      "purchases",
		direct:     false,
		label:      "purchase",
		newRecord:  func() interface{} { return &models.Purchase{} },
		newSlice:   func() interface{} { return &[]models.Purchase{} },
		ownerScope: func(tx *gorm.DB, userID string) *gorm.DB {
			return tx.Model(&models.Purchase{}).
				Joins("JOIN items ON items.id = purchases.item_id").
				Joins("JOIN books ON books.id = items.book_id").
				Where("books.user_id = ?", userID)
		},
		parentRef: func(r interface{}) (EntityType, uint64) {
			return EntityItem, r.(*models.Purchase).ItemID
		},
		validate: func(ctx context.Context, v *ValidationService, r interface{}, excludeID uint64, userID string) ValidationResult {
			return v.ValidatePurchase(ctx, r.(*models.Purchase))
		},
	},
	EntitySale: {
		entityType: EntitySale,
		table:      "sales",
		direct:     false,
		label:      "sale",
		newRecord:  func() interface{} { return &models.Sale{} },
		newSlice:   func() interface{} { return &[]models.Sale{} },
		ownerScope: func(tx *gorm.DB, userID string) *gorm.DB {
			return tx.Model(&models.Sale{}).
				Joins("JOIN items ON items.id = sales.item_id").
				Joins("JOIN books ON books.id = items.book_id").
				Where("books.user_id = ?", userID)
		},
		parentRef: func(r interface{}) (EntityType, uint64) {
			return EntityItem, r.(*models.Sale).ItemID
		},
		validate: func(ctx context.Context, v *ValidationService, r interface{}, excludeID uint64, userID string) ValidationResult {
			return v.ValidateSale(ctx, r.(*models.Sale), excludeID)
		},
	},
}

// lookupEntity returns the descriptor for an entity type, or nil.
func lookupEntity(entityType EntityType) *entityDescriptor {
	return entityRegistry[entityType]
}

// ParseEntityType maps a route parameter to a registered EntityType.
func ParseEntityType(s string) (EntityType, bool) {
	et := EntityType(s)
	if _, ok := entityRegistry[et]; ok {
		return et, true
	}
	return "", false
}
