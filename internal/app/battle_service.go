package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"debate-lab-service/internal/domain"
	"debate-lab-service/internal/logging"
	"debate-lab-service/internal/metrics"
	"github.com/google/uuid"
)

const restoreTimeout = 5 * time.Second

// BattleService contains the queue, matching and battle round use cases.
type BattleService struct {
	queue     QueueRepository
	battles   BattleRepository
	classes   ClassCache
	eval      *EvalService
	hub       *BattleHub
	maxRounds int
	now       func() time.Time
	newID     func() string
}

func NewBattleService(queue QueueRepository, battles BattleRepository, classes ClassCache, eval *EvalService, hub *BattleHub, maxRounds int) *BattleService {
	if maxRounds <= 0 {
		maxRounds = 5
	}
	return &BattleService{
		queue:     queue,
		battles:   battles,
		classes:   classes,
		eval:      eval,
		hub:       hub,
		maxRounds: maxRounds,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *BattleService) WithClock(now func() time.Time) *BattleService {
	s.now = now
	return s
}

// Enqueue puts a student in the class's waiting list.
func (s *BattleService) Enqueue(ctx context.Context, classCode, studentID, nickname string) error {
	classCode = normalizeCode(classCode)
	if _, err := s.classes.GetClass(ctx, classCode); err != nil {
		return err
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = studentID
	}
	return s.queue.Enqueue(ctx, domain.QueueEntry{
		ClassCode:  classCode,
		StudentID:  studentID,
		Nickname:   nickname,
		EnqueuedAt: s.now().UTC(),
	})
}

// Dequeue removes a student from the waiting list.
func (s *BattleService) Dequeue(ctx context.Context, classCode, studentID string) error {
	return s.queue.Remove(ctx, normalizeCode(classCode), studentID)
}

// Queue lists waiting students, oldest first.
func (s *BattleService) Queue(ctx context.Context, classCode string) ([]domain.QueueEntry, error) {
	return s.queue.List(ctx, normalizeCode(classCode))
}

// Match pairs the two longest-waiting students of a class into a new battle.
// With fewer than two waiting nothing changes. If the topic or the battle
// cannot be created the claimed students go back to the queue in place.
func (s *BattleService) Match(ctx context.Context, classCode string) (domain.MatchResult, error) {
	classCode = normalizeCode(classCode)
	class, err := s.classes.GetClass(ctx, classCode)
	if err != nil {
		return domain.MatchResult{}, err
	}

	pair, ok, err := s.queue.ClaimPair(ctx, classCode)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("claim queue pair: %w", err)
	}
	if !ok {
		return domain.MatchResult{Matched: false}, nil
	}

	battle, err := s.openBattle(ctx, class, pair)
	if err != nil {
		if rerr := s.restore(ctx, pair); rerr != nil {
			logging.Ctx(ctx).Error().Err(rerr).Str("classCode", classCode).Msg("restore queue entries failed")
		}
		return domain.MatchResult{}, err
	}

	metrics.BattlesMatched.Inc()
	logging.Ctx(ctx).Info().
		Str("classCode", classCode).
		Str("battleId", battle.ID).
		Str("a", pair[0].StudentID).
		Str("b", pair[1].StudentID).
		Msg("battle matched")

	return domain.MatchResult{
		Matched:      true,
		BattleID:     battle.ID,
		Participants: battle.Participants,
		Topic:        battle.Topic,
	}, nil
}

// restore puts claimed entries back even when the caller has gone away,
// otherwise both students would silently lose their place.
func (s *BattleService) restore(ctx context.Context, pair []domain.QueueEntry) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()
	return s.queue.Restore(ctx, pair)
}

func (s *BattleService) openBattle(ctx context.Context, class domain.Class, pair []domain.QueueEntry) (domain.Battle, error) {
	topic := class.CommonTopic
	if topic == "" {
		var err error
		if topic, err = s.eval.Topic(ctx); err != nil {
			return domain.Battle{}, err
		}
	}

	now := s.now().UTC()
	battle := domain.Battle{
		ID:        s.newID(),
		ClassCode: class.Code,
		Participants: []domain.Participant{
			{StudentID: pair[0].StudentID, Nickname: pair[0].Nickname},
			{StudentID: pair[1].StudentID, Nickname: pair[1].Nickname},
		},
		Topic:     topic,
		Logs:      []domain.Turn{},
		Round:     0,
		Status:    domain.BattleActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.battles.Create(ctx, battle); err != nil {
		return domain.Battle{}, fmt.Errorf("create battle: %w", err)
	}
	return battle, nil
}

// SubmitRound records a student's statement and the AI's rebuttal as one round.
// Scoring is best effort: when it fails the turn is stored without a score.
func (s *BattleService) SubmitRound(ctx context.Context, battleID, studentID, text string) (domain.RoundResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.RoundResult{}, fmt.Errorf("%w: text is empty", domain.ErrInvalidInput)
	}
	battle, err := s.battles.Get(ctx, battleID)
	if err != nil {
		return domain.RoundResult{}, err
	}
	speaker, ok := battle.Participant(studentID)
	if !ok {
		return domain.RoundResult{}, domain.ErrNotParticipant
	}
	if battle.Status == domain.BattleCompleted {
		return domain.RoundResult{}, domain.ErrBattleCompleted
	}

	var score *domain.Score
	if sc, err := s.eval.Score(ctx, text); err != nil {
		metrics.ScoresDropped.Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("battleId", battleID).Msg("score dropped for battle turn")
	} else {
		score = &sc
	}

	reply, err := s.eval.Rebuttal(ctx, battle, speaker, text)
	if err != nil {
		metrics.BattleRounds.WithLabelValues("ai_error").Inc()
		return domain.RoundResult{}, err
	}

	now := s.now().UTC()
	studentTurn := domain.Turn{
		Speaker:   speaker.StudentID,
		Nickname:  speaker.Nickname,
		Text:      text,
		Timestamp: now,
		Score:     score,
	}
	aiTurn := domain.Turn{
		Speaker:   domain.AISpeaker,
		Nickname:  "AI",
		Text:      reply,
		Timestamp: now,
	}

	next := battle.Round + 1
	status := domain.BattleStarted
	if next >= s.maxRounds {
		status = domain.BattleCompleted
	}

	updated, err := s.battles.AppendRound(ctx, battleID, battle.Round, []domain.Turn{studentTurn, aiTurn}, status, now)
	if err != nil {
		outcome := "store_error"
		if errors.Is(err, domain.ErrRoundConflict) {
			outcome = "conflict"
		}
		metrics.BattleRounds.WithLabelValues(outcome).Inc()
		return domain.RoundResult{}, err
	}
	metrics.BattleRounds.WithLabelValues("ok").Inc()
	s.hub.Publish(updated)

	return domain.RoundResult{
		Success:    true,
		StudentLog: studentTurn,
		AILog:      aiTurn,
		NextRound:  updated.Round,
		Battle:     updated,
	}, nil
}

// GetBattle returns a battle document.
func (s *BattleService) GetBattle(ctx context.Context, battleID string) (domain.Battle, error) {
	return s.battles.Get(ctx, battleID)
}

// Subscribe streams snapshots of a battle, starting with its current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *BattleService) Subscribe(ctx context.Context, battleID string) (<-chan domain.Battle, func(), error) {
	battle, err := s.battles.Get(ctx, battleID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(battleID, battle)
	return ch, cancel, nil
}
