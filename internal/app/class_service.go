package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"
	"time"

	"debate-lab-service/internal/domain"
	"debate-lab-service/internal/logging"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 5
	codeAttempts = 10
)

// ClassService manages class rosters and class-level views.
type ClassService struct {
	classes ClassRepository
	cache   ClassCache
	battles BattleRepository
	newCode func() string
	now     func() time.Time
}

func NewClassService(classes ClassRepository, cache ClassCache, battles BattleRepository) *ClassService {
	return &ClassService{
		classes: classes,
		cache:   cache,
		battles: battles,
		newCode: randomCode,
		now:     time.Now,
	}
}

// NewClassServiceWithCodes is test-only for deterministic class codes.
func NewClassServiceWithCodes(classes ClassRepository, cache ClassCache, battles BattleRepository, codes func() string, now func() time.Time) *ClassService {
	s := NewClassService(classes, cache, battles)
	s.newCode = codes
	s.now = now
	return s
}

// CreateClass allocates a unique code for a teacher's new class.
func (s *ClassService) CreateClass(ctx context.Context, teacher domain.User, name string) (domain.Class, error) {
	if teacher.Role != domain.RoleTeacher {
		return domain.Class{}, domain.ErrForbidden
	}
	for attempt := 0; attempt < codeAttempts; attempt++ {
		class := domain.Class{
			Code:       s.newCode(),
			TeacherID:  teacher.ID,
			Name:       strings.TrimSpace(name),
			StudentIDs: []string{},
			CreatedAt:  s.now().UTC(),
		}
		err := s.classes.Create(ctx, class)
		if err == nil {
			logging.Ctx(ctx).Info().Str("classCode", class.Code).Str("teacherId", teacher.ID).Msg("class created")
			return class, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Class{}, err
		}
	}
	return domain.Class{}, domain.ErrCodeExhausted
}

// GetClass returns a class through the cache.
func (s *ClassService) GetClass(ctx context.Context, code string) (domain.Class, error) {
	return s.cache.GetClass(ctx, normalizeCode(code))
}

// JoinClass adds a student to the roster; joining twice is a no-op.
func (s *ClassService) JoinClass(ctx context.Context, code string, student domain.User) (domain.Class, error) {
	if student.Role != domain.RoleStudent {
		return domain.Class{}, domain.ErrForbidden
	}
	code = normalizeCode(code)
	class, err := s.classes.AddStudent(ctx, code, student.ID)
	if err != nil {
		return domain.Class{}, err
	}
	s.cache.Invalidate(ctx, code)
	return class, nil
}

// SetCommonTopic fixes the motion used for every battle in the class.
// An empty topic clears it so topics are generated again.
func (s *ClassService) SetCommonTopic(ctx context.Context, code string, teacher domain.User, topic string) (domain.Class, error) {
	code = normalizeCode(code)
	class, err := s.classes.Get(ctx, code)
	if err != nil {
		return domain.Class{}, err
	}
	if teacher.Role != domain.RoleTeacher || class.TeacherID != teacher.ID {
		return domain.Class{}, domain.ErrForbidden
	}
	class, err = s.classes.SetCommonTopic(ctx, code, strings.TrimSpace(topic))
	if err != nil {
		return domain.Class{}, err
	}
	s.cache.Invalidate(ctx, code)
	return class, nil
}

// Ranking aggregates scored battle turns of a class into a leaderboard.
func (s *ClassService) Ranking(ctx context.Context, code string) (domain.Ranking, error) {
	code = normalizeCode(code)
	if _, err := s.cache.GetClass(ctx, code); err != nil {
		return domain.Ranking{}, err
	}
	battles, err := s.battles.ListByClass(ctx, code)
	if err != nil {
		return domain.Ranking{}, fmt.Errorf("list battles: %w", err)
	}
	return domain.Ranking{
		ClassCode: code,
		Entries:   rankBattles(battles),
		UpdatedAt: s.now().UTC(),
	}, nil
}

type tally struct {
	entry domain.RankingEntry
	sum   int
	count int
}

func rankBattles(battles []domain.Battle) []domain.RankingEntry {
	tallies := make(map[string]*tally)
	for _, b := range battles {
		for _, p := range b.Participants {
			t, ok := tallies[p.StudentID]
			if !ok {
				t = &tally{entry: domain.RankingEntry{StudentID: p.StudentID, Nickname: p.Nickname}}
				tallies[p.StudentID] = t
			}
			t.entry.Battles++
		}
		for _, turn := range b.Logs {
			if turn.Score == nil || turn.Speaker == domain.AISpeaker {
				continue
			}
			t, ok := tallies[turn.Speaker]
			if !ok {
				continue
			}
			t.sum += turn.Score.Overall
			t.count++
			if turn.Score.Overall > t.entry.BestScore {
				t.entry.BestScore = turn.Score.Overall
			}
			if turn.Timestamp.After(t.entry.LastUpdated) {
				t.entry.LastUpdated = turn.Timestamp
			}
		}
	}

	entries := make([]domain.RankingEntry, 0, len(tallies))
	for _, t := range tallies {
		if t.count > 0 {
			t.entry.AverageScore = math.Round(float64(t.sum)/float64(t.count)*10) / 10
		}
		entries = append(entries, t.entry)
	}

	// average desc, then whoever reached it earlier, then nickname
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AverageScore != entries[j].AverageScore {
			return entries[i].AverageScore > entries[j].AverageScore
		}
		if !entries[i].LastUpdated.Equal(entries[j].LastUpdated) {
			return entries[i].LastUpdated.Before(entries[j].LastUpdated)
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	return entries
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomCode() string {
	b := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand: %v", err))
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b)
}
