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
	"github.com/gofiber/fiber/v2"
	"github.com/nikitakofman/chinea-dataservice/internal/services"
	"github.com/nikitakofman/chinea-dataservice/internal/types"
	"github.com/nikitakofman/chinea-dataservice/internal/utils"
)

// EntityDataHandler handles the generic entity routes
type EntityDataHandler struct {
	Entity *services.EntityService
	Access *services.AccessControlService
}

// ListEntities handles GET /api/data/:entityType
// @Summary List entities
// @Description List the caller's records of one entity type with optional filters, preloads and pagination
// @Tags EntityData
// @Accept json
// @Produce json
// @Param entityType path string true "Entity type"
// @Param order_by query string false "Order column, optional 'desc' suffix"
// @Param include query string false "Comma-separated association names to preload"
// @Param skip query int false "Rows to skip"
// @Param take query int false "Page size; enables pagination metadata"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /data/{entityType} [get]
func (h *EntityDataHandler) ListEntities(c *fiber.Ctx) error {
	entityType, ok := services.ParseEntityType(c.Params("entityType"))
	if !ok {
		return unsupportedEntityType(c, "data.list")
	}
	result := h.Entity.List(c.UserContext(), entityType, parseListQuery(c), nil)
	return sendResult(c, result, "data.list")
}

// GetEntity handles GET /api/data/:entityType/:id
// @Summary Get one entity
// @Description Get one record by id; rows owned by other users read as not found
// @Tags EntityData
// @Accept json
// @Produce json
// @Param entityType path string true "Entity type"
// @Param id path int true "Entity ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /data/{entityType}/{id} [get]
func (h *EntityDataHandler) GetEntity(c *fiber.Ctx) error {
	entityType, ok := services.ParseEntityType(c.Params("entityType"))
	if !ok {
		return unsupportedEntityType(c, "data.get")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid entity id", fiber.StatusBadRequest, "data.get")
	}
	result := h.Entity.Get(c.UserContext(), entityType, id, nil)
	return sendResult(c, result, "data.get")
}

// CreateEntity handles POST /api/data/:entityType
// @Summary Create an entity
// @Description Validate and persist one new record; the owner is the authenticated caller
// @Tags EntityData
// @Accept json
// @Produce json
// @Param entityType path string true "Entity type"
// @Param revalidate query string false "Comma-separated view paths to invalidate"
// @Param body body map[string]interface{} true "Entity fields"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ValidationErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /data/{entityType} [post]
func (h *EntityDataHandler) CreateEntity(c *fiber.Ctx) error {
	entityType, ok := services.ParseEntityType(c.Params("entityType"))
	if !ok {
		return unsupportedEntityType(c, "data.create")
	}
	var data map[string]interface{}
	if err := c.BodyParser(&data); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "data.create")
	}
	opts := &services.EntityOptions{RevalidatePaths: parseRevalidatePaths(c)}
	result := h.Entity.Create(c.UserContext(), entityType, data, opts)
	return sendResult(c, result, "data.create")
}

// UpdateEntity handles PUT /api/data/:entityType/:id
// @Summary Update an entity
// @Description Authorize against the owning chain, validate, and save the merged record
// @Tags EntityData
// @Accept json
// @Produce json
// @Param entityType path string true "Entity type"
// @Param id path int true "Entity ID"
// @Param revalidate query string false "Comma-separated view paths to invalidate"
// @Param body body map[string]interface{} true "Changed fields"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ValidationErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /data/{entityType}/{id} [put]
func (h *EntityDataHandler) UpdateEntity(c *fiber.Ctx) error {
	entityType, ok := services.ParseEntityType(c.Params("entityType"))
	if !ok {
		return unsupportedEntityType(c, "data.update")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid entity id", fiber.StatusBadRequest, "data.update")
	}
	var data map[string]interface{}
	if err := c.BodyParser(&data); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "data.update")
	}
	opts := &services.EntityOptions{RevalidatePaths: parseRevalidatePaths(c)}
	result := h.Entity.Update(c.UserContext(), entityType, id, data, opts)
	return sendResult(c, result, "data.update")
}

// DeleteEntity handles DELETE /api/data/:entityType/:id
// @Summary Delete an entity
// @Description Authorize, check deletion dependencies where modeled, and remove the row
// @Tags EntityData
// @Accept json
// @Produce json
// @Param entityType path string true "Entity type"
// @Param id path int true "Entity ID"
// @Param revalidate query string false "Comma-separated view paths to invalidate"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ValidationErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /data/{entityType}/{id} [delete]
func (h *EntityDataHandler) DeleteEntity(c *fiber.Ctx) error {
	entityType, ok := services.ParseEntityType(c.Params("entityType"))
	if !ok {
		return unsupportedEntityType(c, "data.delete")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid entity id", fiber.StatusBadRequest, "data.delete")
	}
	opts := &services.EntityOptions{RevalidatePaths: parseRevalidatePaths(c)}
	result := h.Entity.Delete(c.UserContext(), entityType, id, opts)
	return sendResult(c, result, "data.delete")
}

// ownershipRequest accepts ids as a single value or an array, numeric or
// string, matching the shapes the nextjs client serializes.
type ownershipRequest struct {
	IDs types.FlexList[types.FlexUint64] `json:"ids"`
}

// CheckOwnership handles POST /api/data/:entityType/ownership
// @Summary Check ownership in bulk
// @Description Report for each id whether the caller owns the record
// @Tags EntityData
// @Accept json
// @Produce json
// @Param entityType path string true "Entity type"
// @Param body body handlers.ownershipRequest true "Entity ids, single value or array"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /data/{entityType}/ownership [post]
func (h *EntityDataHandler) CheckOwnership(c *fiber.Ctx) error {
	entityType, ok := services.ParseEntityType(c.Params("entityType"))
	if !ok {
		return unsupportedEntityType(c, "data.ownership")
	}
	var req ownershipRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "data.ownership")
	}
	if len(req.IDs) == 0 {
		return utils.ErrorResponse(c, "No entity ids provided", fiber.StatusBadRequest, "data.ownership")
	}
	checks := make([]services.OwnershipQuery, 0, len(req.IDs))
	for _, id := range req.IDs.Slice() {
		checks = append(checks, services.OwnershipQuery{EntityType: entityType, EntityID: id.Uint64()})
	}
	results := h.Access.CheckBulkOwnership(c.UserContext(), checks)
	return utils.SuccessResponse(c, results, fiber.StatusOK)
}
