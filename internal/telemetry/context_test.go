package telemetry_test

import (
	"context"
	"strings"
	"testing"

	"github.com/petasbytes/shop-agent/internal/telemetry"
)

func TestTurnID_RoundTrip(t *testing.T) {
	ctx := telemetry.WithTurnID(context.Background(), "turn-123")
	got, ok := telemetry.TurnIDFromContext(ctx)
	if !ok || got != "turn-123" {
		t.Fatalf("want turn-123,true; got %q,%v", got, ok)
	}
}

func TestTurnID_EmptyRejectedOnRead(t *testing.T) {
	ctx := telemetry.WithTurnID(context.Background(), "")
	if got, ok := telemetry.TurnIDFromContext(ctx); ok || got != "" {
		t.Fatalf("want empty,false; got %q,%v", got, ok)
	}
}

func TestTurnID_Missing(t *testing.T) {
	if got, ok := telemetry.TurnIDFromContext(context.Background()); ok || got != "" {
		t.Fatalf("want empty,false; got %q,%v", got, ok)
	}
}

func TestEnsureTurnID(t *testing.T) {
	ctx, id := telemetry.EnsureTurnID(context.Background())
	if !strings.HasPrefix(id, "turn-") {
		t.Fatalf("generated id: %q", id)
	}
	again, id2 := telemetry.EnsureTurnID(ctx)
	if id2 != id {
		t.Fatalf("existing id not reused: %q vs %q", id2, id)
	}
	if got, _ := telemetry.TurnIDFromContext(again); got != id {
		t.Fatalf("context lost id: %q", got)
	}
	_, other := telemetry.EnsureTurnID(context.Background())
	if other == id {
		t.Fatal("fresh contexts should get distinct ids")
	}
}
