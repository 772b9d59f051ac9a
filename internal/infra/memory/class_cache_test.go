package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"debate-lab-service/internal/domain"
)

func TestClassCacheCaches(t *testing.T) {
	repo := NewClassRepository()
	if err := repo.Create(context.Background(), sampleClass()); err != nil {
		t.Fatalf("create: %v", err)
	}
	loader := &countingLoader{ClassLoader: repo}
	cache := NewClassCache(loader, time.Minute)

	if _, err := cache.GetClass(context.Background(), "AB12C"); err != nil {
		t.Fatalf("get class: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.GetClass(context.Background(), "AB12C"); err != nil {
		t.Fatalf("get class 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}

	cache.Invalidate(context.Background(), "AB12C")
	if _, err := cache.GetClass(context.Background(), "AB12C"); err != nil {
		t.Fatalf("get class 3: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestClassCacheDoesNotCacheMisses(t *testing.T) {
	loader := &countingLoader{ClassLoader: NewClassRepository()}
	cache := NewClassCache(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.GetClass(context.Background(), "NOPE1"); !errors.Is(err, domain.ErrClassNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected every miss to reach the loader, got %d", loader.calls)
	}
}

func TestClassCacheDropsFillOverlappingInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := NewClassRepository()
	if err := repo.Create(ctx, sampleClass()); err != nil {
		t.Fatalf("create: %v", err)
	}
	loader := newGatedLoader(repo)
	cache := NewClassCache(loader, time.Minute)

	done := make(chan domain.Class, 1)
	go func() {
		class, err := cache.GetClass(ctx, "AB12C")
		if err != nil {
			t.Errorf("slow get: %v", err)
		}
		done <- class
	}()

	<-loader.entered
	if _, err := repo.SetCommonTopic(ctx, "AB12C", "Is the Truman Show ethical?"); err != nil {
		t.Fatalf("set topic: %v", err)
	}
	cache.Invalidate(ctx, "AB12C")
	close(loader.release)

	if slow := <-done; slow.CommonTopic != "" {
		t.Fatalf("expected slow read to see the old class, got %q", slow.CommonTopic)
	}

	got, err := cache.GetClass(ctx, "AB12C")
	if err != nil {
		t.Fatalf("get class: %v", err)
	}
	if got.CommonTopic != "Is the Truman Show ethical?" {
		t.Fatalf("expected fresh topic after invalidate, got %q", got.CommonTopic)
	}
}

// gatedLoader holds its first read open until release is closed.
type gatedLoader struct {
	ClassLoader
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedLoader(l ClassLoader) *gatedLoader {
	return &gatedLoader{ClassLoader: l, entered: make(chan struct{}), release: make(chan struct{})}
}

func (l *gatedLoader) Get(ctx context.Context, code string) (domain.Class, error) {
	class, err := l.ClassLoader.Get(ctx, code)
	first := false
	l.once.Do(func() { first = true })
	if first {
		close(l.entered)
		<-l.release
	}
	return class, err
}

type countingLoader struct {
	ClassLoader
	calls int
}

func (l *countingLoader) Get(ctx context.Context, code string) (domain.Class, error) {
	l.calls++
	return l.ClassLoader.Get(ctx, code)
}

func sampleClass() domain.Class {
	return domain.Class{
		Code:       "AB12C",
		TeacherID:  "t1",
		Name:       "Film & Rhetoric",
		StudentIDs: []string{},
		CreatedAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}
