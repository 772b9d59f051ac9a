package app

import (
	"testing"

	"debate-lab-service/internal/domain"
)

func TestBattleHubDeliversLatestToSlowReaders(t *testing.T) {
	hub := NewBattleHub()
	ch, cancel := hub.Subscribe("b1", domain.Battle{ID: "b1"})

	for round := 1; round <= 20; round++ {
		hub.Publish(domain.Battle{ID: "b1", Round: round})
	}
	hub.Publish(domain.Battle{ID: "other", Round: 99})

	var last domain.Battle
	for i := 0; i < 8; i++ {
		last = <-ch
	}
	if last.Round != 20 {
		t.Fatalf("expected newest snapshot last, got round %d", last.Round)
	}
	select {
	case b := <-ch:
		t.Fatalf("unexpected extra snapshot %+v", b)
	default:
	}

	if hub.Subscribers("b1") != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()
	cancel()
	if hub.Subscribers("b1") != 0 {
		t.Fatalf("expected subscriber removed")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed")
	}
}
