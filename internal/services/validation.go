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
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nikitakofman/chinea-dataservice/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ValidationService enforces the business rules the schema alone cannot:
// per-user uniqueness, deletion safety, and composable field rules.
// Every method returns a ValidationResult; lookup failures degrade to an
// invalid result instead of propagating.
type ValidationService struct {
	db *gorm.DB
}

// NewValidationService creates a ValidationService over the given connection.
func NewValidationService(db *gorm.DB) *ValidationService {
	return &ValidationService{db: db}
}

// UniquenessCheck describes one scoped uniqueness lookup.
type UniquenessCheck struct {
	EntityType EntityType
	Field      string
	Value      string
	UserID     string
	ExcludeID  uint64
}

// uniquenessTargets maps the entity types with a guarded unique field to the
// table, column and collision message used for the lookup.
var uniquenessTargets = map[EntityType]struct {
	model     interface{}
	column    string
	collision string
}{
	EntityCategory:      {&models.Category{}, "name", "A category with this name already exists"},
	EntityPerson:        {&models.Person{}, "name", "A person with this name already exists"},
	EntityBook:          {&models.Book{}, "reference", "A book with this reference already exists"},
	EntityCostEventType: {&models.CostEventType{}, "name", "A cost event type with this name already exists"},
}

// CheckUniqueness verifies that a field value is unused by any other record
// of the same type owned by the same user. ExcludeID skips the record's own
// row during updates so saving an unchanged value never collides.
func (v *ValidationService) CheckUniqueness(ctx context.Context, check UniquenessCheck) ValidationResult {
	value := strings.TrimSpace(check.Value)
	if value == "" {
		return invalidResult(fmt.Sprintf("%s is required", check.Field))
	}

	target, ok := uniquenessTargets[check.EntityType]
	if !ok {
		return invalidResult(fmt.Sprintf("Unsupported entity type: %s", check.EntityType))
	}

	query := v.db.WithContext(ctx).Model(target.model).
		Where("user_id = ? AND "+target.column+" = ?", check.UserID, value)
	if check.ExcludeID != 0 {
		query = query.Where("id <> ?", check.ExcludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		log.Printf("uniqueness check failed for %s.%s: %v", check.EntityType, check.Field, err)
		return invalidResult(fmt.Sprintf("Failed to check %s uniqueness", check.Field))
	}
	if count > 0 {
		return invalidResult(target.collision)
	}
	return validResult()
}

// DependencyCheck describes one deletion-safety lookup.
type DependencyCheck struct {
	EntityType EntityType
	EntityID   uint64
	UserID     string
}

// CheckDeletionDependencies reports every dependency that blocks deleting a
// record, one error per dependency kind. Types without a modeled dependency
// always report valid.
func (v *ValidationService) CheckDeletionDependencies(ctx context.Context, check DependencyCheck) ValidationResult {
	var errs []string
	tx := v.db.WithContext(ctx)

	count := func(model interface{}, cond string, args ...interface{}) (int64, error) {
		var n int64
		err := tx.Model(model).Where(cond, args...).Count(&n).Error
		return n, err
	}

	switch check.EntityType {
	case EntityCategory:
		items, err := count(&models.Item{}, "category_id = ?", check.EntityID)
		if err != nil {
			log.Printf("deletion dependency check failed for category %d: %v", check.EntityID, err)
			return invalidResult("Failed to check category dependencies")
		}
		children, err := count(&models.Category{}, "parent_category_id = ?", check.EntityID)
		if err != nil {
			log.Printf("deletion dependency check failed for category %d: %v", check.EntityID, err)
			return invalidResult("Failed to check category dependencies")
		}
		if items > 0 {
			errs = append(errs, fmt.Sprintf("Cannot delete category with %d associated items", items))
		}
		if children > 0 {
			errs = append(errs, fmt.Sprintf("Cannot delete category with %d child categories", children))
		}

	case EntityPerson:
		purchases, err := count(&models.Purchase{}, "seller_id = ?", check.EntityID)
		if err != nil {
			log.Printf("deletion dependency check failed for person %d: %v", check.EntityID, err)
			return invalidResult("Failed to check person dependencies")
		}
		sales, err := count(&models.Sale{}, "client_id = ?", check.EntityID)
		if err != nil {
			log.Printf("deletion dependency check failed for person %d: %v", check.EntityID, err)
			return invalidResult("Failed to check person dependencies")
		}
		if purchases > 0 {
			errs = append(errs, fmt.Sprintf("Cannot delete person with %d associated purchases", purchases))
		}
		if sales > 0 {
			errs = append(errs, fmt.Sprintf("Cannot delete person with %d associated sales", sales))
		}

	case EntityCostEventType:
		costs, err := count(&models.Cost{}, "event_type_id = ?", check.EntityID)
		if err != nil {
			log.Printf("deletion dependency check failed for cost event type %d: %v", check.EntityID, err)
			return invalidResult("Failed to check cost event type dependencies")
		}
		if costs > 0 {
			errs = append(errs, fmt.Sprintf("Cannot delete cost event type with %d associated costs", costs))
		}
	}

	if len(errs) > 0 {
		return invalidResult(errs...)
	}
	return validResult()
}

// Rule is one declarative field check. Check returns whether the value is
// acceptable; a returned error or panic counts as a failed check.
type Rule struct {
	Message string
	Check   func(value interface{}) (bool, error)
}

// ValidateWithRules runs each rule against the value, collecting one error
// message per failing rule. Rule panics and errors never escape.
func (v *ValidationService) ValidateWithRules(value interface{}, rules []Rule) ValidationResult {
	var errs []string
	for _, rule := range rules {
		ok, err := runRule(rule, value)
		if err != nil {
			errs = append(errs, "Validation rule failed")
			continue
		}
		if !ok {
			errs = append(errs, rule.Message)
		}
	}
	if len(errs) > 0 {
		return invalidResult(errs...)
	}
	return validResult()
}

func runRule(rule Rule, value interface{}) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return rule.Check(value)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Required fails for nil values and empty or whitespace-only strings.
func Required(field string) Rule {
	return Rule{
		Message: fmt.Sprintf("%s is required", field),
		Check: func(value interface{}) (bool, error) {
			if value == nil {
				return false, nil
			}
			if s, ok := value.(string); ok {
				return strings.TrimSpace(s) != "", nil
			}
			return true, nil
		},
	}
}

// MinLength fails for strings shorter than min. Missing values pass.
func MinLength(field string, min int) Rule {
	return Rule{
		Message: fmt.Sprintf("%s must be at least %d characters", field, min),
		Check: func(value interface{}) (bool, error) {
			s, ok := value.(string)
			if !ok || s == "" {
				return true, nil
			}
			return len(s) >= min, nil
		},
	}
}

// MaxLength fails for strings longer than max.
func MaxLength(field string, max int) Rule {
	return Rule{
		Message: fmt.Sprintf("%s must be at most %d characters", field, max),
		Check: func(value interface{}) (bool, error) {
			s, ok := value.(string)
			if !ok {
				return true, nil
			}
			return len(s) <= max, nil
		},
	}
}

// Email checks a simple local@domain.tld shape. Missing values pass.
func Email(field string) Rule {
	return Rule{
		Message: fmt.Sprintf("%s must be a valid email address", field),
		Check: func(value interface{}) (bool, error) {
			s, ok := value.(string)
			if !ok || s == "" {
				return true, nil
			}
			return emailPattern.MatchString(s), nil
		},
	}
}

// URL checks that the value parses as an absolute URL. Missing values pass.
func URL(field string) Rule {
	return Rule{
		Message: fmt.Sprintf("%s must be a valid URL", field),
		Check: func(value interface{}) (bool, error) {
			s, ok := value.(string)
			if !ok || s == "" {
				return true, nil
			}
			parsed, err := url.Parse(s)
			if err != nil {
				return false, nil
			}
			return parsed.Scheme != "" && parsed.Host != "", nil
		},
	}
}

// PositiveNumber fails for zero or negative amounts. A nil value passes:
// absence is not a violation, only presence with a bad value is.
func PositiveNumber(field string) Rule {
	return Rule{
		Message: fmt.Sprintf("%s must be a positive number", field),
		Check: func(value interface{}) (bool, error) {
			if value == nil {
				return true, nil
			}
			switch n := value.(type) {
			case decimal.Decimal:
				return n.IsPositive(), nil
			case *decimal.Decimal:
				if n == nil {
					return true, nil
				}
				return n.IsPositive(), nil
			case int:
				return n > 0, nil
			case int64:
				return n > 0, nil
			case uint64:
				return n > 0, nil
			case float64:
				return n > 0, nil
			}
			return false, nil
		},
	}
}

func asTime(value interface{}) (time.Time, bool) {
	switch t := value.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}

// ValidDate fails for values that do not carry a usable calendar date.
func ValidDate(field string) Rule {
	return Rule{
		Message: fmt.Sprintf("%s must be a valid date", field),
		Check: func(value interface{}) (bool, error) {
			if value == nil {
				return false, nil
			}
			t, ok := asTime(value)
			return ok && !t.IsZero(), nil
		},
	}
}

// FutureDate fails for dates at or before now.
func FutureDate(field string) Rule {
	return Rule{
		Message: fmt.Sprintf("%s must be in the future", field),
		Check: func(value interface{}) (bool, error) {
			t, ok := asTime(value)
			if !ok {
				return false, nil
			}
			return t.After(time.Now()), nil
		},
	}
}

// PastDate fails for dates after now.
func PastDate(field string) Rule {
	return Rule{
		Message: fmt.Sprintf("%s must be in the past", field),
		Check: func(value interface{}) (bool, error) {
			t, ok := asTime(value)
			if !ok {
				return false, nil
			}
			return t.Before(time.Now()), nil
		},
	}
}

func (v *ValidationService) validateBook(ctx context.Context, book *models.Book, excludeID uint64, userID string) ValidationResult {
	return v.CheckUniqueness(ctx, UniquenessCheck{
		EntityType: EntityBook,
		Field:      "reference",
		Value:      book.Reference,
		UserID:     userID,
		ExcludeID:  excludeID,
	})
}

func (v *ValidationService) validateCategory(ctx context.Context, category *models.Category, excludeID uint64, userID string) ValidationResult {
	return v.CheckUniqueness(ctx, UniquenessCheck{
		EntityType: EntityCategory,
		Field:      "name",
		Value:      category.Name,
		UserID:     userID,
		ExcludeID:  excludeID,
	})
}

func (v *ValidationService) validateCostEventType(ctx context.Context, eventType *models.CostEventType, excludeID uint64, userID string) ValidationResult {
	return v.CheckUniqueness(ctx, UniquenessCheck{
		EntityType: EntityCostEventType,
		Field:      "name",
		Value:      eventType.Name,
		UserID:     userID,
		ExcludeID:  excludeID,
	})
}

func (v *ValidationService) validatePerson(ctx context.Context, person *models.Person, excludeID uint64, userID string) ValidationResult {
	result := v.CheckUniqueness(ctx, UniquenessCheck{
		EntityType: EntityPerson,
		Field:      "name",
		Value:      person.Name,
		UserID:     userID,
		ExcludeID:  excludeID,
	})
	email := v.ValidateWithRules(person.Email, []Rule{Email("email")})
	return mergeResults(result, email)
}

func (v *ValidationService) validateIncident(incident *models.Incident) ValidationResult {
	description := v.ValidateWithRules(incident.Description, []Rule{Required("description")})
	date := v.ValidateWithRules(incident.IncidentDate, []Rule{ValidDate("incident_date")})
	return mergeResults(description, date)
}

// ValidateItem runs the item field pipeline and checks that the item number
// is unused within the item's book.
func (v *ValidationService) ValidateItem(ctx context.Context, item *models.Item, excludeID uint64) ValidationResult {
	fields := v.ValidateWithRules(item.ItemNumber, []Rule{
		Required("item_number"),
		MaxLength("item_number", 64),
	})
	if !fields.IsValid {
		return fields
	}
	if item.BookID == 0 {
		return invalidResult("book_id is required")
	}

	query := v.db.WithContext(ctx).Model(&models.Item{}).
		Where("book_id = ? AND item_number = ?", item.BookID, strings.TrimSpace(item.ItemNumber))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		log.Printf("item number uniqueness check failed for book %d: %v", item.BookID, err)
		return invalidResult("Failed to validate item")
	}
	if count > 0 {
		return invalidResult("An item with this number already exists in this book")
	}
	return validResult()
}

// ValidatePurchase runs the generic purchase rule pipeline.
func (v *ValidationService) ValidatePurchase(ctx context.Context, purchase *models.Purchase) ValidationResult {
	if purchase.ItemID == 0 {
		return invalidResult("item_id is required")
	}
	price := v.ValidateWithRules(purchase.PurchasePrice, []Rule{PositiveNumber("purchase_price")})
	date := v.ValidateWithRules(purchase.PurchaseDate, []Rule{ValidDate("purchase_date")})
	return mergeResults(price, date)
}

// ValidateCost runs the generic cost rule pipeline.
func (v *ValidationService) ValidateCost(ctx context.Context, cost *models.Cost) ValidationResult {
	amount := v.ValidateWithRules(cost.Amount, []Rule{PositiveNumber("amount")})
	date := v.ValidateWithRules(cost.CostDate, []Rule{ValidDate("cost_date")})
	return mergeResults(amount, date)
}

// ValidateSale runs the sale field pipeline and enforces at most one sale per
// item at write time.
func (v *ValidationService) ValidateSale(ctx context.Context, sale *models.Sale, excludeID uint64) ValidationResult {
	if sale.ItemID == 0 {
		return invalidResult("item_id is required")
	}
	price := v.ValidateWithRules(sale.SalePrice, []Rule{PositiveNumber("sale_price")})
	date := v.ValidateWithRules(sale.SaleDate, []Rule{ValidDate("sale_date")})
	fields := mergeResults(price, date)
	if !fields.IsValid {
		return fields
	}

	query := v.db.WithContext(ctx).Model(&models.Sale{}).Where("item_id = ?", sale.ItemID)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		log.Printf("sale uniqueness check failed for item %d: %v", sale.ItemID, err)
		return invalidResult("Failed to validate sale")
	}
	if count > 0 {
		return invalidResult("This item has already been sold")
	}
	return validResult()
}

// mergeResults combines validation results, concatenating errors and
// warnings in order.
func mergeResults(results ...ValidationResult) ValidationResult {
	merged := validResult()
	for _, r := range results {
		merged.Errors = append(merged.Errors, r.Errors...)
		merged.Warnings = append(merged.Warnings, r.Warnings...)
	}
	merged.IsValid = len(merged.Errors) == 0
	return merged
}
