package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"debate-lab-service/internal/domain"
)

// BattleRepository is an in-memory implementation of app.BattleRepository.
type BattleRepository struct {
	mu      sync.RWMutex
	battles map[string]domain.Battle
}

func NewBattleRepository() *BattleRepository {
	return &BattleRepository{battles: make(map[string]domain.Battle)}
}

func (r *BattleRepository) Create(_ context.Context, battle domain.Battle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.battles[battle.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.battles[battle.ID] = copyBattle(battle)
	return nil
}

func (r *BattleRepository) Get(_ context.Context, id string) (domain.Battle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	battle, ok := r.battles[id]
	if !ok {
		return domain.Battle{}, domain.ErrBattleNotFound
	}
	return copyBattle(battle), nil
}

func (r *BattleRepository) AppendRound(_ context.Context, id string, expectedRound int, turns []domain.Turn, status domain.BattleStatus, at time.Time) (domain.Battle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	battle, ok := r.battles[id]
	if !ok {
		return domain.Battle{}, domain.ErrBattleNotFound
	}
	if battle.Round != expectedRound {
		return domain.Battle{}, domain.ErrRoundConflict
	}
	battle = copyBattle(battle)
	battle.Logs = append(battle.Logs, turns...)
	battle.Round++
	battle.Status = status
	battle.UpdatedAt = at
	r.battles[id] = battle
	return copyBattle(battle), nil
}

func (r *BattleRepository) ListByClass(_ context.Context, classCode string) ([]domain.Battle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Battle, 0)
	for _, b := range r.battles {
		if b.ClassCode == classCode {
			out = append(out, copyBattle(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func copyBattle(b domain.Battle) domain.Battle {
	b.Participants = append([]domain.Participant(nil), b.Participants...)
	b.Logs = append([]domain.Turn{}, b.Logs...)
	return b
}
