package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gurman-sys/rentbuddy/pkg/models"
	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

func TestNewStore_Usable(t *testing.T) {
	db := NewStore(t)
	if err := db.DB().PingContext(context.Background()); err != nil {
		t.Fatalf("PingContext: %v", err)
	}
}

func TestNewKeyValue_Migrated(t *testing.T) {
	kv := NewKeyValue(t)
	if err := kv.Set(context.Background(), "1", "k", `"v"`); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestMockBus_RecordsTopicsInOrder(t *testing.T) {
	bus := NewMockBus()
	_ = bus.Publish(context.Background(), plugin.Event{Topic: "wallet.credited"})
	bus.PublishAsync(context.Background(), plugin.Event{Topic: "rewards.won"})

	topics := bus.Topics()
	if len(topics) != 2 || topics[0] != "wallet.credited" || topics[1] != "rewards.won" {
		t.Errorf("Topics() = %v, want [wallet.credited rewards.won]", topics)
	}
	if len(bus.Events()) != 2 {
		t.Errorf("Events() len = %d, want 2", len(bus.Events()))
	}
}

func TestClock_Advance(t *testing.T) {
	c := NewClock()
	start := c.Now()
	c.Advance(24 * time.Hour)
	if got := c.Now().Sub(start); got != 24*time.Hour {
		t.Errorf("elapsed = %v, want 24h", got)
	}
}

func TestNewItem_Options(t *testing.T) {
	it := NewItem(WithID("42"), WithPrice(800), WithCategory(models.CategoryGaming), Unavailable())
	if it.ID != "42" || it.Price != 800 || it.Category != models.CategoryGaming {
		t.Errorf("NewItem options not applied: %+v", it)
	}
	if it.IsAvailable {
		t.Error("Unavailable() should clear IsAvailable")
	}
	if d := NewItem(); d.ID == "" || !d.IsAvailable {
		t.Errorf("defaults = %+v, want id and availability", d)
	}
}
