package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"debate-lab-service/internal/app"
	"debate-lab-service/internal/domain"
	"debate-lab-service/internal/infra/memory"
	infraredis "debate-lab-service/internal/infra/redis"
	"debate-lab-service/internal/llm"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestMatchNeedsTwoWaitingStudents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.svc.Enqueue(ctx, "ab12c", "s1", "Neo"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := f.svc.Match(ctx, "AB12C")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res.Matched {
		t.Fatalf("expected no match with one student, got %+v", res)
	}
	waiting, _ := f.svc.Queue(ctx, "AB12C")
	if len(waiting) != 1 {
		t.Fatalf("expected queue untouched, got %+v", waiting)
	}
	battles, _ := f.battles.ListByClass(ctx, "AB12C")
	if len(battles) != 0 {
		t.Fatalf("expected no battle, got %d", len(battles))
	}
	if f.fake.Calls("topic") != 0 {
		t.Fatalf("expected no topic request")
	}
}

func TestMatchPairsOldestTwo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, s := range [][2]string{{"s1", "Neo"}, {"s2", "Trinity"}, {"s3", "Morpheus"}} {
		if err := f.svc.Enqueue(ctx, "AB12C", s[0], s[1]); err != nil {
			t.Fatalf("enqueue %s: %v", s[0], err)
		}
	}

	res, err := f.svc.Match(ctx, "AB12C")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !res.Matched || res.BattleID == "" {
		t.Fatalf("expected match, got %+v", res)
	}
	if res.Participants[0].StudentID != "s1" || res.Participants[1].StudentID != "s2" {
		t.Fatalf("expected s1 vs s2, got %+v", res.Participants)
	}
	if res.Topic != "Robots in Wall-E should be allowed to own property" {
		t.Fatalf("unexpected topic %q", res.Topic)
	}

	waiting, _ := f.svc.Queue(ctx, "AB12C")
	if len(waiting) != 1 || waiting[0].StudentID != "s3" {
		t.Fatalf("expected only s3 waiting, got %+v", waiting)
	}
	battles, _ := f.battles.ListByClass(ctx, "AB12C")
	if len(battles) != 1 {
		t.Fatalf("expected exactly one battle, got %d", len(battles))
	}
	b := battles[0]
	if b.Status != domain.BattleActive || b.Round != 0 || len(b.Logs) != 0 {
		t.Fatalf("unexpected new battle %+v", b)
	}
}

func TestMatchUsesCommonTopic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.classes.SetCommonTopic(ctx, "AB12C", "Homework should be banned"); err != nil {
		t.Fatalf("set topic: %v", err)
	}
	f.cache.Invalidate(ctx, "AB12C")

	_ = f.svc.Enqueue(ctx, "AB12C", "s1", "Neo")
	_ = f.svc.Enqueue(ctx, "AB12C", "s2", "Trinity")
	res, err := f.svc.Match(ctx, "AB12C")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res.Topic != "Homework should be banned" {
		t.Fatalf("expected common topic, got %q", res.Topic)
	}
	if f.fake.Calls("topic") != 0 {
		t.Fatalf("expected no topic generation")
	}
}

func TestMatchRestoresQueueWhenTopicFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.Reply("topic", "   ")

	_ = f.svc.Enqueue(ctx, "AB12C", "s1", "Neo")
	_ = f.svc.Enqueue(ctx, "AB12C", "s2", "Trinity")
	before, _ := f.svc.Queue(ctx, "AB12C")

	if _, err := f.svc.Match(ctx, "AB12C"); !errors.Is(err, domain.ErrMalformedAI) {
		t.Fatalf("expected malformed AI error, got %v", err)
	}
	after, _ := f.svc.Queue(ctx, "AB12C")
	if len(after) != 2 {
		t.Fatalf("expected both students back in queue, got %+v", after)
	}
	for i := range before {
		if after[i].StudentID != before[i].StudentID || !after[i].EnqueuedAt.Equal(before[i].EnqueuedAt) {
			t.Fatalf("expected original order and timestamps, before=%+v after=%+v", before, after)
		}
	}
	battles, _ := f.battles.ListByClass(ctx, "AB12C")
	if len(battles) != 0 {
		t.Fatalf("expected no battle persisted, got %d", len(battles))
	}
}

func TestEnqueueUnknownClass(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Enqueue(context.Background(), "ZZZZZ", "s1", "Neo"); !errors.Is(err, domain.ErrClassNotFound) {
		t.Fatalf("expected class not found, got %v", err)
	}
}

func TestConcurrentMatchesNeverShareStudents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		if err := f.svc.Enqueue(ctx, "AB12C", id, "nick-"+id); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Match(ctx, "AB12C")
		}()
	}
	wg.Wait()

	battles, _ := f.battles.ListByClass(ctx, "AB12C")
	if len(battles) != 3 {
		t.Fatalf("expected 3 battles, got %d", len(battles))
	}
	seen := make(map[string]bool)
	for _, b := range battles {
		for _, p := range b.Participants {
			if seen[p.StudentID] {
				t.Fatalf("student %s matched twice", p.StudentID)
			}
			seen[p.StudentID] = true
		}
	}
}

func TestSubmitRoundAppendsTwoTurns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	battleID := matchedBattle(t, f)

	res, err := f.svc.SubmitRound(ctx, battleID, "s1", "  Property rights need accountability.  ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Success || res.NextRound != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.StudentLog.Speaker != "s1" || res.StudentLog.Text != "Property rights need accountability." {
		t.Fatalf("unexpected student log %+v", res.StudentLog)
	}
	if res.StudentLog.Score == nil || res.StudentLog.Score.Overall != 70 {
		t.Fatalf("expected overall 70, got %+v", res.StudentLog.Score)
	}
	if res.AILog.Speaker != domain.AISpeaker || res.AILog.Text != "But who maintains the robots?" {
		t.Fatalf("unexpected ai log %+v", res.AILog)
	}

	b, _ := f.svc.GetBattle(ctx, battleID)
	if len(b.Logs) != 2 || b.Round != 1 || b.Status != domain.BattleStarted {
		t.Fatalf("expected 2 logs, round 1, started; got %d logs round %d %s", len(b.Logs), b.Round, b.Status)
	}

	msgs := f.fake.LastMessages("rebuttal")
	if len(msgs) != 2 || msgs[1].Content != "Neo: Property rights need accountability." {
		t.Fatalf("unexpected rebuttal prompt %+v", msgs)
	}
}

func TestSubmitRoundKeepsTurnWhenScoringFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	battleID := matchedBattle(t, f)
	f.fake.Reply("score", "I think this is a 7/10")

	res, err := f.svc.SubmitRound(ctx, battleID, "s2", "Robots cannot sign contracts.")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.StudentLog.Score != nil {
		t.Fatalf("expected unscored turn, got %+v", res.StudentLog.Score)
	}
	b, _ := f.svc.GetBattle(ctx, battleID)
	if len(b.Logs) != 2 {
		t.Fatalf("expected turn stored, got %d logs", len(b.Logs))
	}
}

func TestSubmitRoundMalformedReplyPersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	battleID := matchedBattle(t, f)
	f.fake.Reply("rebuttal", "```\n\n```")

	if _, err := f.svc.SubmitRound(ctx, battleID, "s1", "Hello"); !errors.Is(err, domain.ErrMalformedAI) {
		t.Fatalf("expected malformed AI error, got %v", err)
	}
	b, _ := f.svc.GetBattle(ctx, battleID)
	if len(b.Logs) != 0 || b.Round != 0 {
		t.Fatalf("expected untouched battle, got %+v", b)
	}
}

func TestSubmitRoundRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	battleID := matchedBattle(t, f)

	cases := []struct {
		name     string
		battleID string
		student  string
		text     string
		want     error
	}{
		{"empty text", battleID, "s1", "  ", domain.ErrInvalidInput},
		{"unknown battle", "missing", "s1", "hi", domain.ErrBattleNotFound},
		{"outsider", battleID, "s3", "hi", domain.ErrNotParticipant},
	}
	for _, tc := range cases {
		if _, err := f.svc.SubmitRound(ctx, tc.battleID, tc.student, tc.text); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestBattleCompletesAfterMaxRounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	battleID := matchedBattle(t, f)

	for i, student := range []string{"s1", "s2", "s1"} {
		res, err := f.svc.SubmitRound(ctx, battleID, student, "point")
		if err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
		if res.NextRound != i+1 {
			t.Fatalf("expected next round %d, got %d", i+1, res.NextRound)
		}
	}
	b, _ := f.svc.GetBattle(ctx, battleID)
	if b.Status != domain.BattleCompleted || len(b.Logs) != 6 {
		t.Fatalf("expected completed battle with 6 logs, got %s with %d", b.Status, len(b.Logs))
	}
	if _, err := f.svc.SubmitRound(ctx, battleID, "s2", "one more"); !errors.Is(err, domain.ErrBattleCompleted) {
		t.Fatalf("expected completed error, got %v", err)
	}
}

func TestSubmitRoundConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	battleID := matchedBattle(t, f)

	racing := &racingBattles{BattleRepository: f.battles}
	svc := app.NewBattleService(f.queue, racing, f.cache, app.NewEvalService(f.fake), f.hub, 5)

	if _, err := svc.SubmitRound(ctx, battleID, "s1", "first"); !errors.Is(err, domain.ErrRoundConflict) {
		t.Fatalf("expected round conflict, got %v", err)
	}
	b, _ := f.battles.Get(ctx, battleID)
	if len(b.Logs) != 2 || b.Round != 1 {
		t.Fatalf("expected only the competing round stored, got %d logs round %d", len(b.Logs), b.Round)
	}
}

func TestSubscribeReceivesRounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	battleID := matchedBattle(t, f)

	ch, cancel, err := f.svc.Subscribe(ctx, battleID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if initial := <-ch; initial.Round != 0 {
		t.Fatalf("expected initial snapshot at round 0, got %d", initial.Round)
	}
	if _, err := f.svc.SubmitRound(ctx, battleID, "s1", "go"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case b := <-ch:
		if b.Round != 1 || len(b.Logs) != 2 {
			t.Fatalf("unexpected update %+v", b)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for update")
	}

	if _, _, err := f.svc.Subscribe(ctx, "missing"); !errors.Is(err, domain.ErrBattleNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func matchedBattle(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()
	_ = f.svc.Enqueue(ctx, "AB12C", "s1", "Neo")
	_ = f.svc.Enqueue(ctx, "AB12C", "s2", "Trinity")
	res, err := f.svc.Match(ctx, "AB12C")
	if err != nil || !res.Matched {
		t.Fatalf("match: %+v %v", res, err)
	}
	return res.BattleID
}

// racingBattles lets another round land between the read and the append.
type racingBattles struct {
	app.BattleRepository
	once sync.Once
}

func (r *racingBattles) Get(ctx context.Context, id string) (domain.Battle, error) {
	b, err := r.BattleRepository.Get(ctx, id)
	if err != nil {
		return b, err
	}
	r.once.Do(func() {
		turns := []domain.Turn{{Speaker: "s2", Text: "sneaky"}, {Speaker: domain.AISpeaker, Text: "reply"}}
		_, _ = r.BattleRepository.AppendRound(ctx, id, b.Round, turns, domain.BattleStarted, time.Now())
	})
	return b, nil
}

// hangUpCompleter simulates a client that disconnects while the topic is
// being generated.
type hangUpCompleter struct {
	cancel context.CancelFunc
}

func (c hangUpCompleter) Complete(ctx context.Context, _ string, _ []llm.Message) (string, error) {
	c.cancel()
	return "", ctx.Err()
}

func TestMatchRestoresPairAfterClientDisconnect(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	classes := memory.NewClassRepository()
	if err := classes.Create(context.Background(), domain.Class{
		Code:       "AB12C",
		TeacherID:  "t1",
		StudentIDs: []string{"s1", "s2"},
	}); err != nil {
		t.Fatalf("seed class: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := infraredis.NewQueue(client)
	clock := &stepClock{at: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	svc := app.NewBattleService(
		queue,
		memory.NewBattleRepository(),
		memory.NewClassCache(classes, time.Minute),
		app.NewEvalService(hangUpCompleter{cancel: cancel}),
		app.NewBattleHub(),
		5,
	).WithClock(clock.Now)

	if err := svc.Enqueue(ctx, "AB12C", "s1", "Neo"); err != nil {
		t.Fatalf("enqueue s1: %v", err)
	}
	if err := svc.Enqueue(ctx, "AB12C", "s2", "Trinity"); err != nil {
		t.Fatalf("enqueue s2: %v", err)
	}

	if _, err := svc.Match(ctx, "AB12C"); err == nil {
		t.Fatalf("expected match to fail after disconnect")
	}

	waiting, err := queue.List(context.Background(), "AB12C")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(waiting) != 2 || waiting[0].StudentID != "s1" || waiting[1].StudentID != "s2" {
		t.Fatalf("expected both students back in order, got %+v", waiting)
	}
}
