package memory

import (
	"context"
	"sort"
	"sync"

	"debate-lab-service/internal/domain"
)

// Queue is an in-memory implementation of app.QueueRepository.
// One mutex guards all classes so a claim can never hand out an entry twice.
type Queue struct {
	mu      sync.Mutex
	classes map[string]map[string]domain.QueueEntry
}

func NewQueue() *Queue {
	return &Queue{
		classes: make(map[string]map[string]domain.QueueEntry),
	}
}

func (q *Queue) Enqueue(_ context.Context, entry domain.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries, ok := q.classes[entry.ClassCode]
	if !ok {
		entries = make(map[string]domain.QueueEntry)
		q.classes[entry.ClassCode] = entries
	}
	if existing, ok := entries[entry.StudentID]; ok {
		existing.Nickname = entry.Nickname
		entries[entry.StudentID] = existing
		return nil
	}
	entries[entry.StudentID] = entry
	return nil
}

func (q *Queue) Remove(_ context.Context, classCode, studentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(classCode, studentID)
	return nil
}

func (q *Queue) List(_ context.Context, classCode string) ([]domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sortedLocked(classCode), nil
}

func (q *Queue) ClaimPair(_ context.Context, classCode string) ([]domain.QueueEntry, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	sorted := q.sortedLocked(classCode)
	if len(sorted) < 2 {
		return nil, false, nil
	}
	pair := sorted[:2]
	for _, e := range pair {
		q.removeLocked(classCode, e.StudentID)
	}
	return pair, true, nil
}

// Restore re-adds claimed entries unless the student already queued again.
func (q *Queue) Restore(_ context.Context, entries []domain.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range entries {
		class, ok := q.classes[e.ClassCode]
		if !ok {
			class = make(map[string]domain.QueueEntry)
			q.classes[e.ClassCode] = class
		}
		if _, ok := class[e.StudentID]; !ok {
			class[e.StudentID] = e
		}
	}
	return nil
}

func (q *Queue) removeLocked(classCode, studentID string) {
	entries, ok := q.classes[classCode]
	if !ok {
		return
	}
	delete(entries, studentID)
	if len(entries) == 0 {
		delete(q.classes, classCode)
	}
}

func (q *Queue) sortedLocked(classCode string) []domain.QueueEntry {
	entries := q.classes[classCode]
	out := make([]domain.QueueEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnqueuedAt.Equal(out[j].EnqueuedAt) {
			return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}
