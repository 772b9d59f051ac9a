package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"debate-lab-service/internal/app"
	"debate-lab-service/internal/domain"
	"debate-lab-service/internal/infra/memory"
	"debate-lab-service/internal/llm/llmtest"
)

const validScore = `{"logic": 70, "clarity": 80, "evidence": 60, "empathy": 75, "engagement": 66}`

type fixture struct {
	classes *memory.ClassRepository
	cache   *memory.ClassCache
	queue   *memory.Queue
	battles *memory.BattleRepository
	fake    *llmtest.Fake
	hub     *app.BattleHub
	svc     *app.BattleService
	clock   *stepClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		classes: memory.NewClassRepository(),
		queue:   memory.NewQueue(),
		battles: memory.NewBattleRepository(),
		fake: llmtest.New().
			Reply("topic", "Robots in Wall-E should be allowed to own property").
			Reply("score", validScore).
			Reply("rebuttal", "But who maintains the robots?"),
		hub:   app.NewBattleHub(),
		clock: &stepClock{at: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	}
	f.cache = memory.NewClassCache(f.classes, time.Minute)
	f.svc = app.NewBattleService(f.queue, f.battles, f.cache, app.NewEvalService(f.fake), f.hub, 3).WithClock(f.clock.Now)

	if err := f.classes.Create(context.Background(), domain.Class{
		Code:       "AB12C",
		TeacherID:  "t1",
		Name:       "Film & Rhetoric",
		StudentIDs: []string{"s1", "s2", "s3"},
		CreatedAt:  f.clock.Now(),
	}); err != nil {
		t.Fatalf("seed class: %v", err)
	}
	return f
}

// stepClock advances one second per reading so queue order is deterministic.
type stepClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(time.Second)
	return c.at
}
