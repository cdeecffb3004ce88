package services

import (
	"context"

	"gorm.io/gorm"

	"ranchops/internal/config"
	"ranchops/internal/database"
)

// HealthService implements the health check
type HealthService struct {
	db *gorm.DB
}

// NewHealthService creates a new health service
func NewHealthService(db *gorm.DB) *HealthService {
	return &HealthService{db: db}
}

// HealthResult is the health check response
type HealthResult struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Check reports service health including database reachability
func (s *HealthService) Check(ctx context.Context) *HealthResult {
	status := "healthy"
	if err := database.Ping(s.db); err != nil {
		status = "degraded"
	}
	return &HealthResult{
		Status:  status,
		Service: config.Get().App.Name,
	}
}
