package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/pikestaff/cartridge/internal/event"
	"github.com/pikestaff/cartridge/internal/game"
	"github.com/pikestaff/cartridge/internal/metrics"
)

func TestPersisterWritesBatch(t *testing.T) {
	s := NewStore(setupTestDB(t))
	p := NewPersister(s, metrics.New(), testLogger())

	p.HandleEvent(event.Event{
		Type: event.GamesDiscovered,
		Data: map[string]any{
			"batch_id": "test-batch",
			"query":    "zelda",
			"games": []game.Candidate{
				testGame(1, "Breath of the Wild"),
				testGame(2, "Tears of the Kingdom"),
			},
		},
	})

	count, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestPersisterIgnoresMalformedEvents(t *testing.T) {
	s := NewStore(setupTestDB(t))
	p := NewPersister(s, metrics.New(), testLogger())

	p.HandleEvent(event.Event{Type: event.GamesDiscovered})
	p.HandleEvent(event.Event{
		Type: event.GamesDiscovered,
		Data: map[string]any{"games": "not a slice"},
	})
	p.HandleEvent(event.Event{
		Type: event.GamesDiscovered,
		Data: map[string]any{"games": []game.Candidate{}},
	})

	count, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestPersisterSubscribedToBus(t *testing.T) {
	s := NewStore(setupTestDB(t))
	p := NewPersister(s, metrics.New(), testLogger())

	bus := event.NewBus(testLogger(), 16)
	bus.Subscribe(event.GamesDiscovered, p.HandleEvent)
	go bus.Start()
	defer bus.Stop()

	bus.Publish(event.Event{
		Type: event.GamesDiscovered,
		Data: map[string]any{
			"batch_id": "bus-batch",
			"games":    []game.Candidate{testGame(7, "Super Mario Odyssey")},
		},
	})

	deadline := time.Now().Add(3 * time.Second)
	for {
		count, err := s.Count(context.Background())
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if count == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("count = %d after waiting, want 1", count)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
