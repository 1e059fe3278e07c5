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
package helpers

import (
	"testing"
	"time"

	"github.com/nikitakofman/chinea-dataservice/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateTestBook creates a book owned by userID
func CreateTestBook(t *testing.T, db *gorm.DB, userID, reference string) *models.Book {
	t.Helper()
	book := &models.Book{
		UserID:    userID,
		Reference: reference,
		Name:      "Book " + reference,
	}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("Failed to create book: %v", err)
	}
	return book
}

// CreateTestCategory creates a category owned by userID
func CreateTestCategory(t *testing.T, db *gorm.DB, userID, name string, parentID *uint64) *models.Category {
	t.Helper()
	category := &models.Category{
		UserID:           userID,
		Name:             name,
		ParentCategoryID: parentID,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	return category
}

// CreateTestPerson creates a person owned by userID
func CreateTestPerson(t *testing.T, db *gorm.DB, userID, name, personType string) *models.Person {
	t.Helper()
	person := &models.Person{
		UserID: userID,
		Name:   name,
		Type:   personType,
	}
	if err := db.Create(person).Error; err != nil {
		t.Fatalf("Failed to create person: %v", err)
	}
	return person
}

// CreateTestItem creates an item in a book
func CreateTestItem(t *testing.T, db *gorm.DB, bookID uint64, itemNumber string) *models.Item {
	t.Helper()
	item := &models.Item{
		BookID:     bookID,
		ItemNumber: itemNumber,
		Name:       "Item " + itemNumber,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to create item: %v", err)
	}
	return item
}

// CreateTestSale creates a sale for an item
func CreateTestSale(t *testing.T, db *gorm.DB, itemID uint64, price string) *models.Sale {
	t.Helper()
	sale := &models.Sale{
		ItemID:    itemID,
		SalePrice: decimal.RequireFromString(price),
		SaleDate:  time.Now(),
	}
	if err := db.Create(sale).Error; err != nil {
		t.Fatalf("Failed to create sale: %v", err)
	}
	return sale
}
