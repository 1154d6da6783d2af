package handlers

import (
	"testing"

	"github.com/maruel/salesdb/internal/server/dto"
)

func TestHealthHandler_Health(t *testing.T) {
	for _, version := range []string{"1.0.0", "dev", ""} {
		t.Run(version, func(t *testing.T) {
			resp, err := NewHealthHandler(version).Health(t.Context(), &dto.HealthRequest{})
			if err != nil {
				t.Fatalf("Health() error = %v", err)
			}
			if resp.Status != "ok" {
				t.Errorf("Status = %q, want %q", resp.Status, "ok")
			}
			if resp.Version != version {
				t.Errorf("Version = %q, want %q", resp.Version, version)
			}
		})
	}
}
