package app

import (
	"context"
	"time"

	"debate-lab-service/internal/domain"
	"debate-lab-service/internal/llm"
)

// ClassRepository persists classes (in-memory, Postgres, etc).
type ClassRepository interface {
	// Create fails with domain.ErrAlreadyExists when the code is taken.
	Create(ctx context.Context, class domain.Class) error
	Get(ctx context.Context, code string) (domain.Class, error)
	AddStudent(ctx context.Context, code, studentID string) (domain.Class, error)
	SetCommonTopic(ctx context.Context, code, topic string) (domain.Class, error)
}

// ClassCache serves class lookups from a cache that falls back to a loader.
type ClassCache interface {
	GetClass(ctx context.Context, code string) (domain.Class, error)
	Invalidate(ctx context.Context, code string)
}

// QueueRepository holds students waiting for an opponent, oldest first.
type QueueRepository interface {
	// Enqueue adds the student or refreshes their nickname, keeping queue position.
	Enqueue(ctx context.Context, entry domain.QueueEntry) error
	Remove(ctx context.Context, classCode, studentID string) error
	List(ctx context.Context, classCode string) ([]domain.QueueEntry, error)
	// ClaimPair atomically removes and returns the two oldest entries.
	// ok is false, and nothing is removed, when fewer than two are waiting.
	ClaimPair(ctx context.Context, classCode string) (entries []domain.QueueEntry, ok bool, err error)
	// Restore puts claimed entries back with their original timestamps.
	Restore(ctx context.Context, entries []domain.QueueEntry) error
}

// BattleRepository persists battle documents.
type BattleRepository interface {
	Create(ctx context.Context, battle domain.Battle) error
	Get(ctx context.Context, id string) (domain.Battle, error)
	// AppendRound appends turns and bumps the round counter only if the stored
	// round still equals expectedRound; otherwise it returns domain.ErrRoundConflict.
	AppendRound(ctx context.Context, id string, expectedRound int, turns []domain.Turn, status domain.BattleStatus, at time.Time) (domain.Battle, error)
	ListByClass(ctx context.Context, classCode string) ([]domain.Battle, error)
}

// Completer is the LLM port; *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, purpose string, messages []llm.Message) (string, error)
}
