package services

import (
	"context"
	"testing"
	"time"

	"vitalsense/internal/models"
)

func TestInsightCacheStabilityTTL(t *testing.T) {
	c := NewInsightCache(nil, 200*time.Millisecond)
	ctx := context.Background()

	if _, found := c.GetStability(ctx, "user-1"); found {
		t.Fatal("expected a miss on an empty cache")
	}

	want := &models.StabilityAssessment{
		Score:        82,
		Summary:      "Vitals steady across the window.",
		RiskForecast: "Low risk of change over the next 48 hours.",
	}
	c.SetStability(ctx, "user-1", want)

	got, found := c.GetStability(ctx, "user-1")
	if !found {
		t.Fatal("expected a hit within the TTL")
	}
	if got.Score != want.Score || got.Summary != want.Summary || got.RiskForecast != want.RiskForecast {
		t.Fatalf("cached assessment = %+v, want %+v", got, want)
	}

	// Entries are keyed per user
	if _, found := c.GetStability(ctx, "user-2"); found {
		t.Fatal("expected a miss for a different user")
	}

	time.Sleep(250 * time.Millisecond)
	if _, found := c.GetStability(ctx, "user-1"); found {
		t.Fatal("expected a miss after the TTL elapsed")
	}
}

func TestInsightCacheInvalidateDropsBothEntries(t *testing.T) {
	c := NewInsightCache(nil, time.Minute)
	ctx := context.Background()

	c.SetStability(ctx, "user-1", &models.StabilityAssessment{
		Score:        70,
		Summary:      "Holding steady.",
		RiskForecast: "Stable for the next 48-72 hours.",
	})
	c.SetNudges(ctx, "user-1", &models.NudgeSet{
		Diet:         "Add a vegetable to lunch today.",
		PersonalCare: "Take a ten minute walk.",
		Social:       "Check in with a friend.",
	})

	if _, found := c.GetStability(ctx, "user-1"); !found {
		t.Fatal("expected a stability hit before invalidation")
	}
	if nudges, found := c.GetNudges(ctx, "user-1"); !found || nudges.Diet == "" {
		t.Fatal("expected a nudge hit before invalidation")
	}

	c.Invalidate(ctx, "user-1")

	if _, found := c.GetStability(ctx, "user-1"); found {
		t.Fatal("expected a stability miss after invalidation")
	}
	if _, found := c.GetNudges(ctx, "user-1"); found {
		t.Fatal("expected a nudge miss after invalidation")
	}
}
