package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/registry"
	badgerstorage "github.com/praecohq/praeco/internal/storage/badger"
)

func newTestBroker(t *testing.T) (*Service, interfaces.StorageManager) {
	t.Helper()
	logger := arbor.NewLogger()

	sm, err := badgerstorage.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { sm.Close() })

	reg, err := registry.NewDefault()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	svc := NewService(reg, sm.IntegrationStorage(), sm.UsageStorage(), sm.KeyValueStorage(), &common.Config{}, logger)
	return svc, sm
}

func newBinding(id, owner, provider string, caps ...models.Capability) *models.IntegrationBinding {
	now := time.Now().UTC()
	return &models.IntegrationBinding{
		ID:               id,
		OwnerID:          owner,
		ProviderID:       provider,
		Category:         models.CategoryAIText,
		Capabilities:     caps,
		Config:           map[string]interface{}{"api_key": "test"},
		Enabled:          true,
		Status:           models.IntegrationActive,
		LastResetDaily:   now,
		LastResetMonthly: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func intPtr(n int) *int { return &n }

func TestResolveOrdering(t *testing.T) {
	ctx := context.Background()
	svc, sm := newTestBroker(t)
	store := sm.IntegrationStorage()

	low := newBinding("int-low", "owner-1", "anthropic", models.CapabilityTextGeneration)
	low.Priority = 10
	low.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	high := newBinding("int-high", "owner-1", "gemini", models.CapabilityTextGeneration)
	high.Priority = 50
	high.CreatedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	def := newBinding("int-default", "owner-1", "anthropic", models.CapabilityTextGeneration)
	def.IsDefault = true
	def.Priority = 0
	def.CreatedAt = time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)

	for _, b := range []*models.IntegrationBinding{low, high, def} {
		if err := store.Save(ctx, b); err != nil {
			t.Fatalf("failed to save binding %s: %v", b.ID, err)
		}
	}

	// Default wins over higher priority.
	got, err := svc.Resolve(ctx, "owner-1", models.CapabilityTextGeneration, nil, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.ID != "int-default" {
		t.Errorf("resolved %s, want int-default", got.ID)
	}

	// With the default disabled, priority decides.
	def.Enabled = false
	if err := store.Update(ctx, def); err != nil {
		t.Fatalf("failed to disable default: %v", err)
	}
	got, err = svc.Resolve(ctx, "owner-1", models.CapabilityTextGeneration, nil, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.ID != "int-high" {
		t.Errorf("resolved %s, want int-high", got.ID)
	}
}

func TestResolveSkipsErrorBinding(t *testing.T) {
	ctx := context.Background()
	svc, sm := newTestBroker(t)
	store := sm.IntegrationStorage()

	broken := newBinding("int-broken", "owner-1", "gemini", models.CapabilityTextGeneration)
	broken.Priority = 100
	broken.Status = models.IntegrationError

	working := newBinding("int-working", "owner-1", "anthropic", models.CapabilityTextGeneration)
	working.Priority = 1

	for _, b := range []*models.IntegrationBinding{broken, working} {
		if err := store.Save(ctx, b); err != nil {
			t.Fatalf("failed to save binding: %v", err)
		}
	}

	// The highest-priority binding sits in error status and must never win.
	got, err := svc.Resolve(ctx, "owner-1", models.CapabilityTextGeneration, nil, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.ID != "int-working" {
		t.Errorf("resolved %s, want int-working", got.ID)
	}
}

func TestResolvePreferredProvider(t *testing.T) {
	ctx := context.Background()
	svc, sm := newTestBroker(t)
	store := sm.IntegrationStorage()

	def := newBinding("int-a", "owner-1", "anthropic", models.CapabilityTextGeneration)
	def.IsDefault = true
	other := newBinding("int-b", "owner-1", "gemini", models.CapabilityTextGeneration)

	for _, b := range []*models.IntegrationBinding{def, other} {
		if err := store.Save(ctx, b); err != nil {
			t.Fatalf("failed to save binding: %v", err)
		}
	}

	got, err := svc.Resolve(ctx, "owner-1", models.CapabilityTextGeneration, nil, "gemini")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.ID != "int-b" {
		t.Errorf("resolved %s, want preferred int-b", got.ID)
	}

	// An unhealthy preferred provider falls back to the normal order.
	other.Status = models.IntegrationError
	if err := store.Update(ctx, other); err != nil {
		t.Fatalf("failed to update binding: %v", err)
	}
	got, err = svc.Resolve(ctx, "owner-1", models.CapabilityTextGeneration, nil, "gemini")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.ID != "int-a" {
		t.Errorf("resolved %s, want fallback int-a", got.ID)
	}
}

func TestResolveNoProvider(t *testing.T) {
	ctx := context.Background()
	svc, sm := newTestBroker(t)

	if _, err := svc.Resolve(ctx, "owner-1", models.CapabilityTextGeneration, nil, ""); !errors.Is(err, ErrNoProvider) {
		t.Errorf("Resolve on empty store = %v, want ErrNoProvider", err)
	}

	// A binding without the capability does not count.
	img := newBinding("int-img", "owner-1", "gemini", models.CapabilityImageGeneration)
	if err := sm.IntegrationStorage().Save(ctx, img); err != nil {
		t.Fatalf("failed to save binding: %v", err)
	}
	if _, err := svc.Resolve(ctx, "owner-1", models.CapabilityTextGeneration, nil, ""); !errors.Is(err, ErrNoProvider) {
		t.Errorf("Resolve with mismatched capability = %v, want ErrNoProvider", err)
	}
}

func TestCheckHealthQuota(t *testing.T) {
	ctx := context.Background()
	svc, sm := newTestBroker(t)
	store := sm.IntegrationStorage()

	b := newBinding("int-quota", "owner-1", "anthropic", models.CapabilityTextGeneration)
	b.DailyLimit = intPtr(10)
	b.UsageToday = 10
	if err := store.Save(ctx, b); err != nil {
		t.Fatalf("failed to save binding: %v", err)
	}

	if svc.CheckHealth(ctx, b) {
		t.Error("binding at daily limit reported healthy")
	}
	if b.Status != models.IntegrationRateLimited {
		t.Errorf("status = %v, want rate_limited", b.Status)
	}

	// The transition is persisted.
	stored, err := store.Get(ctx, "int-quota")
	if err != nil {
		t.Fatalf("failed to reload binding: %v", err)
	}
	if stored.Status != models.IntegrationRateLimited {
		t.Errorf("persisted status = %v, want rate_limited", stored.Status)
	}
}

func TestCheckHealthDailyReset(t *testing.T) {
	ctx := context.Background()
	svc, sm := newTestBroker(t)
	store := sm.IntegrationStorage()

	day1 := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return day2 })

	b := newBinding("int-reset", "owner-1", "anthropic", models.CapabilityTextGeneration)
	b.DailyLimit = intPtr(10)
	b.UsageToday = 10
	b.Status = models.IntegrationRateLimited
	b.LastResetDaily = day1
	b.LastResetMonthly = day1
	if err := store.Save(ctx, b); err != nil {
		t.Fatalf("failed to save binding: %v", err)
	}

	// Crossing the UTC day boundary zeroes the counter and heals the
	// rate_limited status.
	if !svc.CheckHealth(ctx, b) {
		t.Error("binding not healthy after daily reset")
	}
	if b.UsageToday != 0 {
		t.Errorf("usage_today = %d, want 0", b.UsageToday)
	}
	if b.Status != models.IntegrationActive {
		t.Errorf("status = %v, want active", b.Status)
	}

	// A second check on the same day must not reset again.
	b.UsageToday = 5
	if !svc.CheckHealth(ctx, b) {
		t.Error("binding under limit reported unhealthy")
	}
	if b.UsageToday != 5 {
		t.Errorf("usage_today = %d after same-day recheck, want 5", b.UsageToday)
	}
}

func TestCheckHealthMonthlyReset(t *testing.T) {
	ctx := context.Background()
	svc, sm := newTestBroker(t)
	store := sm.IntegrationStorage()

	jan := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 30, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return feb })

	b := newBinding("int-month", "owner-1", "anthropic", models.CapabilityTextGeneration)
	b.MonthlyLimit = intPtr(100)
	b.UsageThisMonth = 100
	b.Status = models.IntegrationRateLimited
	b.LastResetDaily = jan
	b.LastResetMonthly = jan
	if err := store.Save(ctx, b); err != nil {
		t.Fatalf("failed to save binding: %v", err)
	}

	if !svc.CheckHealth(ctx, b) {
		t.Error("binding not healthy after monthly reset")
	}
	if b.UsageThisMonth != 0 {
		t.Errorf("usage_this_month = %d, want 0", b.UsageThisMonth)
	}
}

func TestCheckHealthErrorStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBroker(t)

	b := newBinding("int-err", "owner-1", "anthropic", models.CapabilityTextGeneration)
	b.Status = models.IntegrationError
	// Error status is sticky: only an explicit successful test clears it,
	// period resets do not.
	b.LastResetDaily = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if svc.CheckHealth(ctx, b) {
		t.Error("binding in error status reported healthy")
	}

	b.Status = models.IntegrationDisabled
	if svc.CheckHealth(ctx, b) {
		t.Error("disabled binding reported healthy")
	}
}

func TestTrackUsage(t *testing.T) {
	ctx := context.Background()
	svc, sm := newTestBroker(t)
	store := sm.IntegrationStorage()

	b := newBinding("int-usage", "owner-1", "anthropic", models.CapabilityTextGeneration)
	if err := store.Save(ctx, b); err != nil {
		t.Fatalf("failed to save binding: %v", err)
	}

	svc.TrackUsage(ctx, "int-usage", interfaces.UsageRecord{
		Operation: "text_generation",
		Units:     3,
		Cost:      0.02,
		Success:   true,
	})

	stored, err := store.Get(ctx, "int-usage")
	if err != nil {
		t.Fatalf("failed to reload binding: %v", err)
	}
	if stored.UsageToday != 3 || stored.UsageThisMonth != 3 {
		t.Errorf("counters = %d/%d, want 3/3", stored.UsageToday, stored.UsageThisMonth)
	}
	if stored.TotalCost != 0.02 {
		t.Errorf("total_cost = %v, want 0.02", stored.TotalCost)
	}
	if stored.LastUsed == nil {
		t.Error("last_used not stamped")
	}

	events, err := sm.UsageStorage().ListForIntegration(ctx, "int-usage", 10)
	if err != nil {
		t.Fatalf("failed to list usage events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("usage events = %d, want 1", len(events))
	}
	if events[0].Operation != "text_generation" || events[0].UnitsUsed != 3 {
		t.Errorf("unexpected event %+v", events[0])
	}

	// A failed call still lands in the ledger, with zero units.
	svc.TrackUsage(ctx, "int-usage", interfaces.UsageRecord{
		Operation:    "text_generation",
		Success:      false,
		ErrorMessage: "rate limited upstream",
	})
	events, err = sm.UsageStorage().ListForIntegration(ctx, "int-usage", 10)
	if err != nil {
		t.Fatalf("failed to list usage events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("usage events = %d, want 2", len(events))
	}

	// Unknown binding: accounting never propagates failures.
	svc.TrackUsage(ctx, "does-not-exist", interfaces.UsageRecord{Operation: "text_generation", Units: 1})
}
