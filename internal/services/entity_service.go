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
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/nikitakofman/chinea-dataservice/internal/cache"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// EntityService is the single write/read path for all entity types. Every
// operation authenticates, authorizes, validates, persists, invalidates
// cached views and serializes, in that order, so no call site can skip a
// guard by accident.
type EntityService struct {
	db          *gorm.DB
	access      *AccessControlService
	validation  *ValidationService
	revalidator cache.Revalidator
}

// NewEntityService wires an EntityService from its collaborators.
func NewEntityService(db *gorm.DB, access *AccessControlService, validation *ValidationService, revalidator cache.Revalidator) *EntityService {
	if revalidator == nil {
		revalidator = cache.NoopRevalidator{}
	}
	return &EntityService{db: db, access: access, validation: validation, revalidator: revalidator}
}

// EntityOptions tunes one EntityService call. The zero value runs the full
// pipeline with default serialization.
type EntityOptions struct {
	SkipAuth          bool
	SkipValidation    bool
	SkipSerialization bool
	RevalidatePaths   []string
	Serialization     *SerializationOptions
}

// ListQuery describes one list call. Where keys are column names, Include
// values are association names to preload, OrderBy is a column name with an
// optional "desc" suffix. Take > 0 switches the result to a paginated shape.
type ListQuery struct {
	Where   map[string]interface{}
	Include []string
	OrderBy string
	Skip    int
	Take    int
}

// Payload field names the client may never set directly.
var protectedFields = []string{"id", "user_id", "created_at", "updated_at"}

var (
	columnPattern      = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	associationPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z.]*$`)
)

func (s *EntityService) resolveActor(ctx context.Context, opts *EntityOptions) (string, *OperationResult) {
	if opts.SkipAuth {
		return s.access.GetCurrentUserID(ctx), nil
	}
	auth := s.access.CheckAuthentication(ctx)
	if !auth.HasAccess {
		r := errorResult(auth.Error)
		return "", &r
	}
	if auth.User == nil || auth.User.ID == "" {
		r := errorResult("User ID not found")
		return "", &r
	}
	return auth.User.ID, nil
}

// Create validates and persists one new record. Directly-owned types get the
// actor id injected as owner; transitively-owned types must reference a
// parent chain the actor owns.
func (s *EntityService) Create(ctx context.Context, entityType EntityType, data map[string]interface{}, opts *EntityOptions) OperationResult {
	if opts == nil {
		opts = &EntityOptions{}
	}
	userID, failure := s.resolveActor(ctx, opts)
	if failure != nil {
		return *failure
	}

	desc := lookupEntity(entityType)
	if desc == nil {
		return errorResult(fmt.Sprintf("Unsupported entity type: %s", entityType))
	}

	record := desc.newRecord()
	if err := decodePayload(data, record); err != nil {
		return errorResult(fmt.Sprintf("Invalid %s payload", desc.label))
	}
	if desc.direct && userID != "" {
		desc.setOwner(record, userID)
	}

	// The parent check runs before validation so an actor probing another
	// user's chain learns nothing from the field rules.
	if failure := s.authorizeParent(ctx, desc, record, opts); failure != nil {
		return *failure
	}

	if !opts.SkipValidation {
		if result := desc.validate(ctx, s.validation, record, 0, userID); !result.IsValid {
			return validationFailure(result.Errors)
		}
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		log.Printf("create %s failed: %v", desc.label, err)
		return errorResult(fmt.Sprintf("Failed to create %s", desc.label))
	}

	s.revalidate(ctx, opts.RevalidatePaths)
	return s.finish(record, opts)
}

// Update loads, authorizes, merges and saves one record. The ownership check
// runs before validation so a non-owner learns nothing about field rules.
func (s *EntityService) Update(ctx context.Context, entityType EntityType, id uint64, data map[string]interface{}, opts *EntityOptions) OperationResult {
	if opts == nil {
		opts = &EntityOptions{}
	}
	userID, failure := s.resolveActor(ctx, opts)
	if failure != nil {
		return *failure
	}

	desc := lookupEntity(entityType)
	if desc == nil {
		return errorResult(fmt.Sprintf("Unsupported entity type: %s", entityType))
	}

	ownership := s.access.CheckEntityOwnership(ctx, entityType, id)
	if !ownership.IsOwner {
		if ownership.Error != "" {
			return errorResult(ownership.Error)
		}
		return errorResult("Access denied")
	}

	record := desc.newRecord()
	if err := s.db.WithContext(ctx).First(record, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errorResult("Entity not found")
		}
		log.Printf("load %s %d failed: %v", desc.label, id, err)
		return errorResult(fmt.Sprintf("Failed to update %s", desc.label))
	}

	if err := decodePayload(data, record); err != nil {
		return errorResult(fmt.Sprintf("Invalid %s payload", desc.label))
	}

	// The payload may have moved the parent FK; the merged record must still
	// point inside the actor's own chain.
	if failure := s.authorizeParent(ctx, desc, record, opts); failure != nil {
		return *failure
	}

	if !opts.SkipValidation {
		if result := desc.validate(ctx, s.validation, record, id, userID); !result.IsValid {
			return validationFailure(result.Errors)
		}
	}

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		log.Printf("update %s %d failed: %v", desc.label, id, err)
		return errorResult(fmt.Sprintf("Failed to update %s", desc.label))
	}

	s.revalidate(ctx, opts.RevalidatePaths)
	return s.finish(record, opts)
}

// Delete authorizes, runs the deletion-dependency check where one is
// modeled, and removes the row. Dependency violations abort before any write.
func (s *EntityService) Delete(ctx context.Context, entityType EntityType, id uint64, opts *EntityOptions) OperationResult {
	if opts == nil {
		opts = &EntityOptions{}
	}
	userID, failure := s.resolveActor(ctx, opts)
	if failure != nil {
		return *failure
	}

	desc := lookupEntity(entityType)
	if desc == nil {
		return errorResult(fmt.Sprintf("Unsupported entity type: %s", entityType))
	}

	ownership := s.access.CheckEntityOwnership(ctx, entityType, id)
	if !ownership.IsOwner {
		if ownership.Error != "" {
			return errorResult(ownership.Error)
		}
		return errorResult("Access denied")
	}

	switch entityType {
	case EntityCategory, EntityPerson, EntityCostEventType:
		deps := s.validation.CheckDeletionDependencies(ctx, DependencyCheck{
			EntityType: entityType,
			EntityID:   id,
			UserID:     userID,
		})
		if !deps.IsValid {
			return validationFailure(deps.Errors)
		}
	}

	result := s.db.WithContext(ctx).Delete(desc.newRecord(), id)
	if result.Error != nil {
		log.Printf("delete %s %d failed: %v", desc.label, id, result.Error)
		return errorResult(fmt.Sprintf("Failed to delete %s", desc.label))
	}
	if result.RowsAffected == 0 {
		return errorResult("Entity not found")
	}

	s.revalidate(ctx, opts.RevalidatePaths)
	return successResult(map[string]interface{}{"id": id})
}

// Get fetches one record through the owner scope, so a row belonging to a
// different user is indistinguishable from a missing one.
func (s *EntityService) Get(ctx context.Context, entityType EntityType, id uint64, opts *EntityOptions) OperationResult {
	if opts == nil {
		opts = &EntityOptions{}
	}
	userID, failure := s.resolveActor(ctx, opts)
	if failure != nil {
		return *failure
	}

	desc := lookupEntity(entityType)
	if desc == nil {
		return errorResult(fmt.Sprintf("Unsupported entity type: %s", entityType))
	}

	record := desc.newRecord()
	err := desc.ownerScope(s.db.WithContext(ctx), userID).
		Where(desc.table+".id = ?", id).
		First(record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errorResult("Entity not found")
		}
		log.Printf("get %s %d failed: %v", desc.label, id, err)
		return errorResult(fmt.Sprintf("Failed to get %s", desc.label))
	}

	return s.finish(record, opts)
}

// List fetches records through the owner scope with optional column filters,
// preloads, ordering and pagination. Caller filters can only narrow the
// owner scope, never widen it.
func (s *EntityService) List(ctx context.Context, entityType EntityType, query ListQuery, opts *EntityOptions) OperationResult {
	if opts == nil {
		opts = &EntityOptions{}
	}
	userID, failure := s.resolveActor(ctx, opts)
	if failure != nil {
		return *failure
	}

	desc := lookupEntity(entityType)
	if desc == nil {
		return errorResult(fmt.Sprintf("Unsupported entity type: %s", entityType))
	}

	scope := desc.ownerScope(s.db.WithContext(ctx), userID)
	if s.db.Dialector.Name() == "mysql" {
		scope = scope.Clauses(hints.New("MAX_EXECUTION_TIME(5000)"))
	}

	for column, value := range query.Where {
		if !columnPattern.MatchString(column) || column == "user_id" {
			return errorResult(fmt.Sprintf("Invalid filter column: %s", column))
		}
		scope = scope.Where(desc.table+"."+column+" = ?", value)
	}

	for _, association := range query.Include {
		if !associationPattern.MatchString(association) {
			return errorResult(fmt.Sprintf("Invalid include: %s", association))
		}
		scope = scope.Preload(association)
	}

	scope = scope.Order(desc.table + "." + orderClause(query.OrderBy))

	records := desc.newSlice()

	if query.Take > 0 {
		var total int64
		if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			log.Printf("count %s failed: %v", desc.label, err)
			return errorResult(fmt.Sprintf("Failed to list %s", desc.label))
		}
		if err := scope.Offset(query.Skip).Limit(query.Take).Find(records).Error; err != nil {
			log.Printf("list %s failed: %v", desc.label, err)
			return errorResult(fmt.Sprintf("Failed to list %s", desc.label))
		}
		if opts.SkipSerialization {
			return successResult(records)
		}
		return successResult(SerializePaginatedOffset(records, total, query.Skip, query.Take, opts.Serialization))
	}

	if err := scope.Find(records).Error; err != nil {
		log.Printf("list %s failed: %v", desc.label, err)
		return errorResult(fmt.Sprintf("Failed to list %s", desc.label))
	}
	return s.finish(records, opts)
}

// authorizeParent verifies the actor owns the parent a transitive record
// references. A zero parent id is left for the field validators to report.
func (s *EntityService) authorizeParent(ctx context.Context, desc *entityDescriptor, record interface{}, opts *EntityOptions) *OperationResult {
	if desc.parentRef == nil || opts.SkipAuth {
		return nil
	}
	parentType, parentID := desc.parentRef(record)
	if parentID == 0 {
		return nil
	}
	ownership := s.access.CheckEntityOwnership(ctx, parentType, parentID)
	if !ownership.IsOwner {
		var r OperationResult
		if ownership.Error != "" {
			r = errorResult(ownership.Error)
		} else {
			r = errorResult("Access denied")
		}
		return &r
	}
	return nil
}

func (s *EntityService) finish(record interface{}, opts *EntityOptions) OperationResult {
	if opts.SkipSerialization {
		return successResult(record)
	}
	return successResult(Serialize(record, opts.Serialization))
}

func (s *EntityService) revalidate(ctx context.Context, paths []string) {
	for _, path := range paths {
		if err := s.revalidator.Revalidate(ctx, path); err != nil {
			log.Printf("revalidate %s failed: %v", path, err)
		}
	}
}

// decodePayload merges a client payload into a model struct by JSON
// round-trip, dropping fields the client may not set. Keys in the payload
// overwrite the struct's current values; absent keys leave them alone.
func decodePayload(data map[string]interface{}, record interface{}) error {
	if data == nil {
		return nil
	}
	sanitized := make(map[string]interface{}, len(data))
	for key, value := range data {
		sanitized[key] = value
	}
	for _, field := range protectedFields {
		delete(sanitized, field)
	}
	raw, err := json.Marshal(sanitized)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, record); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

func orderClause(orderBy string) string {
	if orderBy == "" {
		return "id"
	}
	column, direction, _ := strings.Cut(strings.TrimSpace(orderBy), " ")
	if !columnPattern.MatchString(column) {
		return "id"
	}
	if strings.EqualFold(direction, "desc") {
		return column + " DESC"
	}
	return column
}
