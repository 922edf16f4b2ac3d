package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"purepresenter/internal/config"
)

type fixedCounter int

func (c fixedCounter) ClientCount() int { return int(c) }

func TestHealthService_HealthCheck(t *testing.T) {
	tests := []struct {
		name          string
		verdict       interface{}
		wantLicStatus string
	}{
		{"licensed", active, "ready"},
		{"unlicensed", noLic, "unlicensed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := &MockLicenseManager{}
			manager.On("Check", mock.Anything).Return(tt.verdict)
			hs := NewHealthService(NewLicenseService(manager, discardLogger()), fixedCounter(2), discardLogger())

			status := hs.HealthCheck(context.Background())
			assert.Equal(t, "ok", status.Status)
			assert.Equal(t, config.AppVersion, status.Version)

			lic, ok := status.Services["license"].(ServiceHealth)
			assert.True(t, ok)
			assert.Equal(t, tt.wantLicStatus, lic.Status)

			ws := status.Services["websocket"].(map[string]interface{})
			assert.Equal(t, 2, ws["clients"])
		})
	}
}

func TestHealthService_Version(t *testing.T) {
	hs := NewHealthService(nil, nil, discardLogger())
	v := hs.Version()
	assert.Equal(t, config.AppName, v["name"])
	assert.Equal(t, config.AppVersion, v["version"])

	status := hs.HealthCheck(context.Background())
	assert.Empty(t, status.Services)
}
