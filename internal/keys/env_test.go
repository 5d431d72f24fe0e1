package keys

import (
	"context"
	"testing"
	"time"

	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/ratelimit"
)

func TestEnvSelect_ReturnsConfiguredSecret(t *testing.T) {
	manager := NewEnvManager("sk-env", 0, ratelimit.NewManager(nil, nil, nil))

	lease, err := manager.Select(context.Background())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if lease.Secret != "sk-env" {
		t.Fatalf("lease secret = %q", lease.Secret)
	}
	if lease.CredentialID != 0 {
		t.Fatalf("env lease should have no credential id")
	}
}

func TestEnvSelect_EmptySecret(t *testing.T) {
	manager := NewEnvManager("", 0, ratelimit.NewManager(nil, nil, nil))

	if _, err := manager.Select(context.Background()); err != ErrNoCredentialAvailable {
		t.Fatalf("expected ErrNoCredentialAvailable, got %v", err)
	}
}

func TestEnvReportFailure_RateLimitCoolsDown(t *testing.T) {
	manager := NewEnvManager("sk-env", 0, ratelimit.NewManager(nil, nil, nil))

	manager.ReportFailure(context.Background(), Lease{}, "429", true)

	if _, err := manager.Select(context.Background()); err != ErrNoCredentialAvailable {
		t.Fatalf("expected cooldown to block selection, got %v", err)
	}

	// A success clears the cooldown.
	manager.ReportSuccess(context.Background(), Lease{}, 80*time.Millisecond)
	if _, err := manager.Select(context.Background()); err != nil {
		t.Fatalf("Select after recovery: %v", err)
	}
}

func TestEnvSelect_CooldownExpires(t *testing.T) {
	manager := NewEnvManager("sk-env", 0, ratelimit.NewManager(nil, nil, nil))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	manager.nowFn = func() time.Time { return base }

	manager.ReportFailure(context.Background(), Lease{}, "429", true)

	if _, err := manager.Select(context.Background()); err != ErrNoCredentialAvailable {
		t.Fatalf("expected cooldown to block selection, got %v", err)
	}

	manager.nowFn = func() time.Time { return base.Add(models.CredentialCooldown + time.Second) }

	lease, err := manager.Select(context.Background())
	if err != nil {
		t.Fatalf("Select after cooldown expiry: %v", err)
	}
	if lease.Secret != "sk-env" {
		t.Fatalf("lease secret = %q", lease.Secret)
	}
}

func TestEnvReportFailure_StreakDisables(t *testing.T) {
	manager := NewEnvManager("sk-env", 0, ratelimit.NewManager(nil, nil, nil))

	for i := 0; i < models.CredentialErrorThreshold; i++ {
		manager.ReportFailure(context.Background(), Lease{}, "boom", false)
	}

	if _, err := manager.Select(context.Background()); err != ErrNoCredentialAvailable {
		t.Fatalf("expected disabled credential, got %v", err)
	}

	health, errHealth := manager.HealthStatus(context.Background())
	if errHealth != nil {
		t.Fatalf("HealthStatus: %v", errHealth)
	}
	if len(health) != 1 || !health[0].Disabled {
		t.Fatalf("expected disabled health entry, got %+v", health)
	}
}
