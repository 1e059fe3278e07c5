package services

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/nikitakofman/chinea-dataservice/internal/models"
	"github.com/nikitakofman/chinea-dataservice/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DateFormat selects the wire representation for timestamps.
type DateFormat string

// Supported date formats.
const (
	DateFormatISO    DateFormat = "iso"
	DateFormatMillis DateFormat = "millis"
	DateFormatLocale DateFormat = "locale"
)

// SerializationOptions controls how persistence-native values are converted
// for the JSON boundary.
type SerializationOptions struct {
	ConvertBigIntToString  bool
	ConvertDecimalToNumber bool
	DateFormat             DateFormat
	IncludeNulls           bool
}

// DefaultSerializationOptions returns the default conversion set: big
// integers to strings, decimals to numbers, ISO-8601 dates, nulls kept.
func DefaultSerializationOptions() *SerializationOptions {
	return &SerializationOptions{
		ConvertBigIntToString:  true,
		ConvertDecimalToNumber: true,
		DateFormat:             DateFormatISO,
		IncludeNulls:           true,
	}
}

// APISerialization is the preset for responses returned to the frontend.
func APISerialization() *SerializationOptions {
	return DefaultSerializationOptions()
}

// DatabaseSerialization keeps exact textual representations for values that
// will be written back to a store: decimals stay strings, big ints stay
// numbers.
func DatabaseSerialization() *SerializationOptions {
	return &SerializationOptions{
		ConvertBigIntToString:  false,
		ConvertDecimalToNumber: false,
		DateFormat:             DateFormatISO,
		IncludeNulls:           true,
	}
}

// ExportSerialization is the preset for CSV/report exports: everything
// stringly, locale dates, empty fields dropped.
func ExportSerialization() *SerializationOptions {
	return &SerializationOptions{
		ConvertBigIntToString:  true,
		ConvertDecimalToNumber: false,
		DateFormat:             DateFormatLocale,
		IncludeNulls:           false,
	}
}

// Serialize recursively converts a persisted value into a JSON-transportable
// shape: types.BigInt, decimal.Decimal and time.Time become primitives per
// the options, structs and maps become map[string]interface{}, slices recurse
// element-wise, everything else passes through unchanged.
func Serialize(value interface{}, opts *SerializationOptions) interface{} {
	if opts == nil {
		opts = DefaultSerializationOptions()
	}
	return serializeValue(value, opts)
}

func serializeValue(value interface{}, opts *SerializationOptions) interface{} {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case types.BigInt:
		if opts.ConvertBigIntToString {
			return strconv.FormatInt(v.Int64(), 10)
		}
		return v.Int64()
	case decimal.Decimal:
		if opts.ConvertDecimalToNumber {
			f, _ := v.Float64()
			return f
		}
		return v.String()
	case time.Time:
		return serializeTime(v, opts)
	case *time.Time:
		if v == nil {
			return nil
		}
		return serializeTime(*v, opts)
	case datatypes.JSON:
		return parseJSONColumn([]byte(v))
	case models.JSON:
		return parseJSONColumn([]byte(v.JSON))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return serializeValue(rv.Elem().Interface(), opts)

	case reflect.Struct:
		return serializeStruct(rv, opts)

	case reflect.Map:
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, ok := iter.Key().Interface().(string)
			if !ok {
				continue
			}
			serialized := serializeValue(iter.Value().Interface(), opts)
			if serialized == nil && !opts.IncludeNulls {
				continue
			}
			out[key] = serialized
		}
		return out

	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// Raw byte payloads pass through for the JSON encoder
			return value
		}
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = serializeValue(rv.Index(i).Interface(), opts)
		}
		return out
	}

	return value
}

func serializeStruct(rv reflect.Value, opts *SerializationOptions) map[string]interface{} {
	out := make(map[string]interface{})
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}
		if field.Anonymous {
			// Flatten embedded structs
			if embedded, ok := serializeValue(rv.Field(i).Interface(), opts).(map[string]interface{}); ok {
				for k, v := range embedded {
					out[k] = v
				}
			}
			continue
		}

		name := jsonFieldName(field)
		if name == "" {
			continue
		}

		serialized := serializeValue(rv.Field(i).Interface(), opts)
		if serialized == nil && !opts.IncludeNulls {
			continue
		}
		if serialized == nil {
			// Association slices/pointers GORM left unloaded stay out of the payload
			kind := field.Type.Kind()
			if kind == reflect.Ptr || kind == reflect.Slice {
				if strings.Contains(field.Tag.Get("json"), "omitempty") {
					continue
				}
			}
		}
		out[name] = serialized
	}

	return out
}

func serializeTime(t time.Time, opts *SerializationOptions) interface{} {
	switch opts.DateFormat {
	case DateFormatMillis:
		return t.UnixMilli()
	case DateFormatLocale:
		return t.Local().Format("1/2/2006, 3:04:05 PM")
	default:
		return t.UTC().Format("2006-01-02T15:04:05.000Z")
	}
}

func parseJSONColumn(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}
	return value
}

func jsonFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name := strings.Split(tag, ",")[0]
	if name == "" {
		name = field.Name
	}
	return name
}

// SerializeWithFields serializes a value and projects only the named fields.
// A field may address one level of nesting with a dot path ("book.name").
func SerializeWithFields(value interface{}, fields []string, opts *SerializationOptions) interface{} {
	serialized, ok := Serialize(value, opts).(map[string]interface{})
	if !ok {
		return Serialize(value, opts)
	}

	out := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		if parent, child, found := strings.Cut(field, "."); found {
			nested, ok := serialized[parent].(map[string]interface{})
			if !ok {
				continue
			}
			childValue, ok := nested[child]
			if !ok {
				continue
			}
			target, ok := out[parent].(map[string]interface{})
			if !ok {
				target = make(map[string]interface{})
				out[parent] = target
			}
			target[child] = childValue
			continue
		}
		if fieldValue, ok := serialized[field]; ok {
			out[field] = fieldValue
		}
	}
	return out
}

// SerializeExcluding serializes a value and drops the named top-level fields.
func SerializeExcluding(value interface{}, exclude []string, opts *SerializationOptions) interface{} {
	serialized := Serialize(value, opts)
	m, ok := serialized.(map[string]interface{})
	if !ok {
		return serialized
	}
	for _, field := range exclude {
		delete(m, field)
	}
	return m
}

// SerializeWithTransform applies a per-key transform to the raw top-level
// values before the standard serialization pass.
func SerializeWithTransform(value interface{}, transform func(key string, value interface{}) interface{}, opts *SerializationOptions) interface{} {
	raw := toRawMap(value)
	if raw == nil {
		return Serialize(value, opts)
	}
	for key, fieldValue := range raw {
		raw[key] = transform(key, fieldValue)
	}
	return Serialize(raw, opts)
}

// toRawMap converts a struct or map into a map of unconverted field values.
func toRawMap(value interface{}) map[string]interface{} {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if key, ok := iter.Key().Interface().(string); ok {
				out[key] = iter.Value().Interface()
			}
		}
		return out
	case reflect.Struct:
		rt := rv.Type()
		out := make(map[string]interface{}, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if field.PkgPath != "" {
				continue
			}
			if name := jsonFieldName(field); name != "" {
				out[name] = rv.Field(i).Interface()
			}
		}
		return out
	}
	return nil
}

// PaginatedResult wraps one page of serialized rows with paging metadata.
type PaginatedResult struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
	HasMore    bool        `json:"hasMore"`
}

// SerializePaginatedResult serializes one page of rows and computes the
// paging metadata from the total row count.
func SerializePaginatedResult(data interface{}, total int64, page, pageSize int, opts *SerializationOptions) *PaginatedResult {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &PaginatedResult{
		Data:       Serialize(data, opts),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

// SerializePaginatedOffset serializes one window of rows addressed by a raw
// row offset. Page labels the window containing the first returned row;
// hasMore compares the window end against the total, so it stays correct
// when the offset is not a multiple of the page size.
func SerializePaginatedOffset(data interface{}, total int64, skip, pageSize int, opts *SerializationOptions) *PaginatedResult {
	page := 1
	if pageSize > 0 {
		page = skip/pageSize + 1
	}
	result := SerializePaginatedResult(data, total, page, pageSize, opts)
	result.HasMore = int64(skip+pageSize) < total
	return result
}
