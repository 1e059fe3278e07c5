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
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/nikitakofman/chinea-dataservice/internal/cache"
	"github.com/nikitakofman/chinea-dataservice/internal/config"
	"github.com/nikitakofman/chinea-dataservice/internal/database"
	"github.com/nikitakofman/chinea-dataservice/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	var revalidator cache.Revalidator = cache.NoopRevalidator{}
	if cfg.RedisAddr != "" {
		redisRevalidator := cache.NewRedisRevalidator(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisRevalidator.Close()
		revalidator = redisRevalidator
	}

	// Perform health check
	result := services.HealthCheck(context.Background(), cfg, db, revalidator)

	// Output result as JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal health check result: %v", err)
	}

	fmt.Println(string(output))

	// Exit with appropriate code
	if result.Status != "healthy" {
		os.Exit(1)
	}
	os.Exit(0)
}
