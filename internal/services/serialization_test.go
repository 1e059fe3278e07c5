package services

import (
	"testing"
	"time"

	"github.com/nikitakofman/chinea-dataservice/internal/models"
	"github.com/nikitakofman/chinea-dataservice/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func TestSerializeDefaultConversions(t *testing.T) {
	sale := models.Sale{
		ID:        1,
		ItemID:    2,
		SalePrice: decimal.RequireFromString("19.99"),
		SaleDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	serialized, ok := Serialize(sale, nil).(map[string]interface{})
	if !ok {
		t.Fatalf("Expected map, got %T", Serialize(sale, nil))
	}

	if price, ok := serialized["sale_price"].(float64); !ok || price != 19.99 {
		t.Errorf("Expected sale_price 19.99 as number, got %v (%T)", serialized["sale_price"], serialized["sale_price"])
	}
	if date := serialized["sale_date"]; date != "2024-01-01T00:00:00.000Z" {
		t.Errorf("Expected ISO date, got %v", date)
	}
}

func TestSerializeBigIntToString(t *testing.T) {
	image := models.EntityImage{
		ID:       1,
		FileSize: types.BigInt(5000000000),
	}

	serialized := Serialize(image, nil).(map[string]interface{})
	if size, ok := serialized["file_size"].(string); !ok || size != "5000000000" {
		t.Errorf("Expected file_size \"5000000000\", got %v (%T)", serialized["file_size"], serialized["file_size"])
	}
}

func TestSerializeDatabasePreset(t *testing.T) {
	image := models.EntityImage{FileSize: types.BigInt(1024)}
	sale := models.Sale{SalePrice: decimal.RequireFromString("42.50")}
	opts := DatabaseSerialization()

	serializedImage := Serialize(image, opts).(map[string]interface{})
	if size, ok := serializedImage["file_size"].(int64); !ok || size != 1024 {
		t.Errorf("Expected numeric file_size 1024, got %v (%T)", serializedImage["file_size"], serializedImage["file_size"])
	}

	serializedSale := Serialize(sale, opts).(map[string]interface{})
	if price, ok := serializedSale["sale_price"].(string); !ok || price != "42.5" {
		t.Errorf("Expected string sale_price \"42.5\", got %v (%T)", serializedSale["sale_price"], serializedSale["sale_price"])
	}
}

func TestSerializeDateFormats(t *testing.T) {
	stamp := time.Date(2024, 6, 15, 12, 30, 45, 0, time.UTC)

	millis := Serialize(stamp, &SerializationOptions{DateFormat: DateFormatMillis})
	if got, ok := millis.(int64); !ok || got != stamp.UnixMilli() {
		t.Errorf("Expected millis %d, got %v", stamp.UnixMilli(), millis)
	}

	iso := Serialize(stamp, &SerializationOptions{DateFormat: DateFormatISO})
	if iso != "2024-06-15T12:30:45.000Z" {
		t.Errorf("Expected ISO timestamp, got %v", iso)
	}
}

func TestSerializeNilPointers(t *testing.T) {
	item := models.Item{ID: 1, BookID: 2, ItemNumber: "A-1"}

	serialized := Serialize(&item, nil).(map[string]interface{})
	if serialized["category_id"] != nil {
		t.Errorf("Expected nil category_id to be kept as null, got %v", serialized["category_id"])
	}
	// Unloaded associations carry omitempty and stay out of the payload
	if _, present := serialized["book"]; present {
		t.Error("Expected unloaded book association to be omitted")
	}

	dropped := Serialize(&item, &SerializationOptions{
		ConvertBigIntToString:  true,
		ConvertDecimalToNumber: true,
		DateFormat:             DateFormatISO,
		IncludeNulls:           false,
	}).(map[string]interface{})
	if _, present := dropped["category_id"]; present {
		t.Error("Expected null category_id to be dropped when IncludeNulls is false")
	}
}

func TestSerializeNestedAssociations(t *testing.T) {
	book := models.Book{ID: 7, UserID: "user-a", Reference: "B-7"}
	item := models.Item{
		ID:         3,
		BookID:     7,
		ItemNumber: "A-3",
		Book:       &book,
	}

	serialized := Serialize(item, nil).(map[string]interface{})
	nested, ok := serialized["book"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected nested book map, got %T", serialized["book"])
	}
	if nested["reference"] != "B-7" {
		t.Errorf("Expected nested reference B-7, got %v", nested["reference"])
	}
}

func TestSerializeSliceRecursion(t *testing.T) {
	sales := []models.Sale{
		{ID: 1, SalePrice: decimal.RequireFromString("10")},
		{ID: 2, SalePrice: decimal.RequireFromString("20")},
	}

	serialized, ok := Serialize(sales, nil).([]interface{})
	if !ok {
		t.Fatalf("Expected slice, got %T", Serialize(sales, nil))
	}
	if len(serialized) != 2 {
		t.Fatalf("Expected 2 elements, got %d", len(serialized))
	}
	first := serialized[0].(map[string]interface{})
	if first["sale_price"] != 10.0 {
		t.Errorf("Expected first sale_price 10, got %v", first["sale_price"])
	}
}

func TestSerializeJSONColumn(t *testing.T) {
	item := models.Item{
		ID:         1,
		BookID:     2,
		ItemNumber: "A-1",
		Attributes: models.JSON{JSON: datatypes.JSON(`{"width":"40cm"}`)},
	}

	serialized := Serialize(item, nil).(map[string]interface{})
	attributes, ok := serialized["attributes"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected decoded attributes map, got %T", serialized["attributes"])
	}
	if attributes["width"] != "40cm" {
		t.Errorf("Expected width 40cm, got %v", attributes["width"])
	}
}

func TestSerializeWithFields(t *testing.T) {
	book := models.Book{ID: 7, Reference: "B-7", Name: "Estate"}
	item := models.Item{ID: 3, BookID: 7, ItemNumber: "A-3", Name: "Vase", Book: &book}

	projected, ok := SerializeWithFields(item, []string{"id", "item_number", "book.reference"}, nil).(map[string]interface{})
	if !ok {
		t.Fatal("Expected projected map")
	}
	if len(projected) != 3 {
		t.Errorf("Expected 3 fields, got %d: %v", len(projected), projected)
	}
	if projected["item_number"] != "A-3" {
		t.Errorf("Expected item_number A-3, got %v", projected["item_number"])
	}
	nested, ok := projected["book"].(map[string]interface{})
	if !ok || nested["reference"] != "B-7" {
		t.Errorf("Expected nested book.reference B-7, got %v", projected["book"])
	}
	if _, present := nested["name"]; present {
		t.Error("Expected unrequested nested field to be dropped")
	}
}

func TestSerializeExcluding(t *testing.T) {
	book := models.Book{ID: 7, UserID: "user-a", Reference: "B-7"}

	serialized, ok := SerializeExcluding(book, []string{"user_id", "created_at", "updated_at"}, nil).(map[string]interface{})
	if !ok {
		t.Fatal("Expected map")
	}
	if _, present := serialized["user_id"]; present {
		t.Error("Expected user_id to be excluded")
	}
	if serialized["reference"] != "B-7" {
		t.Errorf("Expected reference to survive, got %v", serialized["reference"])
	}
}

func TestSerializeWithTransform(t *testing.T) {
	book := models.Book{ID: 7, Reference: "b-7"}

	serialized, ok := SerializeWithTransform(book, func(key string, value interface{}) interface{} {
		if key == "reference" {
			return "B-7"
		}
		return value
	}, nil).(map[string]interface{})
	if !ok {
		t.Fatal("Expected map")
	}
	if serialized["reference"] != "B-7" {
		t.Errorf("Expected transformed reference B-7, got %v", serialized["reference"])
	}
}

func TestSerializePaginatedResult(t *testing.T) {
	books := []models.Book{{ID: 1, Reference: "B-1"}, {ID: 2, Reference: "B-2"}}

	page2 := SerializePaginatedResult(books, 25, 2, 10, nil)
	if page2.TotalPages != 3 {
		t.Errorf("Expected 3 total pages, got %d", page2.TotalPages)
	}
	if !page2.HasMore {
		t.Error("Expected HasMore on page 2 of 3")
	}

	page3 := SerializePaginatedResult(books, 25, 3, 10, nil)
	if page3.HasMore {
		t.Error("Expected no more pages after page 3 of 3")
	}

	rows, ok := page2.Data.([]interface{})
	if !ok || len(rows) != 2 {
		t.Fatalf("Expected 2 serialized rows, got %v", page2.Data)
	}
}
