package services

import (
	"context"
	"fmt"
	"log"

	"github.com/nikitakofman/chinea-dataservice/internal/cache"
	"github.com/nikitakofman/chinea-dataservice/internal/config"
	"github.com/nikitakofman/chinea-dataservice/internal/utils"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Authorizer   string            `json:"authorizer"`
	Cache        string            `json:"cache,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

func (r *HealthCheckResult) fail(message string) {
	r.Status = "unhealthy"
	if r.ErrorMessage == "" {
		r.ErrorMessage = message
	} else {
		r.ErrorMessage += "; " + message
	}
}

// HealthCheck performs a comprehensive health check of the service
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB, revalidator cache.Revalidator) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		result.Details["database_error"] = err.Error()
		result.fail(fmt.Sprintf("Database connection error: %v", err))
		log.Printf("Health check failed - database connection: %v", err)
	} else {
		if err := sqlDB.PingContext(ctx); err != nil {
			result.Database = "unreachable"
			result.Details["database_ping_error"] = err.Error()
			result.fail(fmt.Sprintf("Database ping failed: %v", err))
			log.Printf("Health check failed - database ping: %v", err)
		} else {
			result.Database = "ok"
			result.Details["database_type"] = cfg.DBType
			result.Details["database_name"] = cfg.DBDatabase
		}
	}

	// Check Authorizer connectivity
	if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
		result.Authorizer = "unreachable"
		result.Details["authorizer_error"] = err.Error()
		result.fail(fmt.Sprintf("Authorizer ping failed: %v", err))
		log.Printf("Health check failed - authorizer ping: %v", err)
	} else {
		result.Authorizer = "ok"
		result.Details["authorizer_url"] = cfg.AuthzURL
	}

	// Check the revalidation cache when one is configured
	if pinger, ok := revalidator.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			result.Cache = "unreachable"
			result.Details["cache_error"] = err.Error()
			result.fail(fmt.Sprintf("Cache ping failed: %v", err))
			log.Printf("Health check failed - cache ping: %v", err)
		} else {
			result.Cache = "ok"
		}
	}

	if result.Status == "healthy" {
		log.Println("Health check passed - all systems operational")
	}

	return result
}
