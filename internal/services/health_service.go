package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"purepresenter/internal/config"
	"purepresenter/internal/infrastructure"
)

// ClientCounter reports connected status stream clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	licenses  *LicenseService
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service with injected dependencies
func NewHealthService(licenses *LicenseService, hub ClientCounter, logger *slog.Logger) *HealthService {
	return &HealthService{
		version:   config.AppVersion,
		licenses:  licenses,
		hub:       hub,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns overall health status. An unlicensed installation is
// still healthy; the license service entry reports the verdict.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
		Services: make(map[string]interface{}),
	}

	if hs.licenses != nil {
		verdict := hs.licenses.Status(ctx)
		licenseHealth := ServiceHealth{Status: "ready", Message: string(verdict.Status)}
		if !verdict.Authorized {
			licenseHealth.Status = "unlicensed"
		}
		status.Services["license"] = licenseHealth
	}

	if hs.hub != nil {
		status.Services["websocket"] = map[string]interface{}{
			"status":  "ready",
			"clients": hs.hub.ClientCount(),
		}
	}

	hs.logger.DebugContext(ctx, "HealthCheck: completed", slog.String("status", status.Status))
	return status
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"name":       config.AppName,
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}
