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
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/nikitakofman/chinea-dataservice/internal/services"
	"github.com/nikitakofman/chinea-dataservice/internal/utils"
)

// sendResult maps a service result onto an HTTP response: validation errors
// to 422, auth failures to 401, ownership failures to 403, missing rows to
// 404, unsupported or malformed input to 400, everything else to 500.
func sendResult(c *fiber.Ctx, result services.OperationResult, errorType string) error {
	if result.Success {
		return utils.SuccessResponse(c, result.Data, fiber.StatusOK)
	}
	if len(result.ValidationErrors) > 0 {
		return utils.ValidationErrorResponse(c, result.ValidationErrors)
	}
	return utils.ErrorResponse(c, result.Error, statusForError(result.Error), errorType)
}

func statusForError(message string) int {
	switch {
	case message == "Not authenticated" || message == "User ID not found":
		return fiber.StatusUnauthorized
	case message == "Access denied":
		return fiber.StatusForbidden
	case strings.HasSuffix(message, "not found") || strings.HasSuffix(message, "not available"):
		return fiber.StatusNotFound
	case strings.HasPrefix(message, "Unsupported") || strings.HasPrefix(message, "Invalid"):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// parseID parses a numeric path parameter.
func parseID(c *fiber.Ctx, name string) (uint64, error) {
	return strconv.ParseUint(c.Params(name), 10, 64)
}

// unsupportedEntityType writes the 400 for an unrecognized entity type
// route parameter.
func unsupportedEntityType(c *fiber.Ctx, errorType string) error {
	return utils.ErrorResponse(c,
		fmt.Sprintf("Unsupported entity type: %s", c.Params("entityType")),
		fiber.StatusBadRequest, errorType)
}

// parseListQuery builds a list query from the request's query string.
// Column filters arrive as "where.<column>=<value>" keys, associations as a
// comma-separated "include", ordering as "order_by", paging as skip/take.
func parseListQuery(c *fiber.Ctx) services.ListQuery {
	query := services.ListQuery{
		OrderBy: c.Query("order_by"),
		Skip:    c.QueryInt("skip", 0),
		Take:    c.QueryInt("take", 0),
	}

	args := c.Context().QueryArgs()
	for key, value := range args.All() {
		column, found := strings.CutPrefix(string(key), "where.")
		if !found || column == "" {
			continue
		}
		if query.Where == nil {
			query.Where = make(map[string]interface{})
		}
		query.Where[column] = string(value)
	}

	if include := c.Query("include"); include != "" {
		for _, association := range strings.Split(include, ",") {
			if association = strings.TrimSpace(association); association != "" {
				query.Include = append(query.Include, association)
			}
		}
	}

	return query
}

// parseRevalidatePaths extracts cache paths to invalidate after a mutation.
func parseRevalidatePaths(c *fiber.Ctx) []string {
	raw := c.Query("revalidate")
	if raw == "" {
		return nil
	}
	var paths []string
	for _, path := range strings.Split(raw, ",") {
		if path = strings.TrimSpace(path); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}
