package app

import (
	"sync"

	"debate-lab-service/internal/domain"
)

// BattleHub fans battle snapshots out to live subscribers (websocket clients).
// It is per process; clients of other instances see updates on their next read.
type BattleHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Battle]struct{}
}

func NewBattleHub() *BattleHub {
	return &BattleHub{subscribers: make(map[string]map[chan domain.Battle]struct{})}
}

// Subscribe registers a listener for battleID and delivers initial first.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *BattleHub) Subscribe(battleID string, initial domain.Battle) (<-chan domain.Battle, func()) {
	ch := make(chan domain.Battle, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[battleID]
	if !ok {
		subs = make(map[chan domain.Battle]struct{})
		h.subscribers[battleID] = subs
	}
	subs[ch] = struct{}{}
	ch <- initial
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[battleID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, battleID)
		}
	}
	return ch, cancel
}

// Publish sends the snapshot to every subscriber of the battle.
func (h *BattleHub) Publish(battle domain.Battle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[battle.ID] {
		select {
		case ch <- battle:
		default:
			// slow reader: drop its oldest snapshot, the newest one supersedes it
			select {
			case <-ch:
			default:
			}
			ch <- battle
		}
	}
}

// Subscribers reports how many listeners a battle has.
func (h *BattleHub) Subscribers(battleID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[battleID])
}
