// Package llmtest provides a scripted chat-completion fake for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"debate-lab-service/internal/llm"
)

// Fake answers Complete calls from per-purpose canned replies.
// Purposes without a reply or error fail with llm.ErrNotConfigured.
type Fake struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   map[string]int
	last    map[string][]llm.Message
}

func New() *Fake {
	return &Fake{
		replies: make(map[string]string),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
		last:    make(map[string][]llm.Message),
	}
}

// Reply scripts the raw completion returned for purpose.
func (f *Fake) Reply(purpose, raw string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[purpose] = raw
	delete(f.errs, purpose)
	return f
}

// Fail makes every call for purpose return err.
func (f *Fake) Fail(purpose string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[purpose] = err
	return f
}

func (f *Fake) Complete(_ context.Context, purpose string, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[purpose]++
	f.last[purpose] = append([]llm.Message(nil), messages...)
	if err, ok := f.errs[purpose]; ok {
		return "", err
	}
	raw, ok := f.replies[purpose]
	if !ok {
		return "", errors.Join(llm.ErrNotConfigured, errors.New("no scripted reply for "+purpose))
	}
	return raw, nil
}

// Calls reports how many times purpose was requested.
func (f *Fake) Calls(purpose string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[purpose]
}

// LastMessages returns the messages of the latest call for purpose.
func (f *Fake) LastMessages(purpose string) []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last[purpose]
}
