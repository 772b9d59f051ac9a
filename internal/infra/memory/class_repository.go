package memory

import (
	"context"
	"sync"

	"debate-lab-service/internal/domain"
)

// ClassRepository is an in-memory implementation of app.ClassRepository.
type ClassRepository struct {
	mu      sync.RWMutex
	classes map[string]domain.Class
}

func NewClassRepository() *ClassRepository {
	return &ClassRepository{classes: make(map[string]domain.Class)}
}

func (r *ClassRepository) Create(_ context.Context, class domain.Class) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.classes[class.Code]; ok {
		return domain.ErrAlreadyExists
	}
	r.classes[class.Code] = copyClass(class)
	return nil
}

func (r *ClassRepository) Get(_ context.Context, code string) (domain.Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	class, ok := r.classes[code]
	if !ok {
		return domain.Class{}, domain.ErrClassNotFound
	}
	return copyClass(class), nil
}

func (r *ClassRepository) AddStudent(_ context.Context, code, studentID string) (domain.Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class, ok := r.classes[code]
	if !ok {
		return domain.Class{}, domain.ErrClassNotFound
	}
	if !class.HasStudent(studentID) {
		class.StudentIDs = append(class.StudentIDs, studentID)
		r.classes[code] = class
	}
	return copyClass(class), nil
}

func (r *ClassRepository) SetCommonTopic(_ context.Context, code, topic string) (domain.Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class, ok := r.classes[code]
	if !ok {
		return domain.Class{}, domain.ErrClassNotFound
	}
	class.CommonTopic = topic
	r.classes[code] = class
	return copyClass(class), nil
}

func copyClass(c domain.Class) domain.Class {
	c.StudentIDs = append([]string(nil), c.StudentIDs...)
	if c.StudentIDs == nil {
		c.StudentIDs = []string{}
	}
	return c
}
