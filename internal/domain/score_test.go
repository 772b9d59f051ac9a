package domain

import (
	"errors"
	"testing"
)

func TestNewScoreRoundsMean(t *testing.T) {
	s, err := NewScore(80, 75, 90, 60, 71)
	if err != nil {
		t.Fatalf("new score: %v", err)
	}
	// (80+75+90+60+71)/5 = 75.2
	if s.Overall != 75 {
		t.Fatalf("expected overall 75, got %d", s.Overall)
	}

	s, err = NewScore(81, 80, 80, 80, 81)
	if err != nil {
		t.Fatalf("new score: %v", err)
	}
	// 80.4 rounds down, 80.5 would round up
	if s.Overall != 80 {
		t.Fatalf("expected overall 80, got %d", s.Overall)
	}

	s, _ = NewScore(81, 81, 80, 80, 80.5)
	if s.Overall != 81 {
		t.Fatalf("expected overall 81 for 80.5 mean, got %d", s.Overall)
	}
}

func TestNewScoreOverallMatchesReturnedParts(t *testing.T) {
	s, err := NewScore(0.5, 0.5, 0.5, 0.5, 0)
	if err != nil {
		t.Fatalf("new score: %v", err)
	}
	// parts round to 1,1,1,1,0; their mean 0.8 rounds to 1
	if s.Logic != 1 || s.Engagement != 0 || s.Overall != 1 {
		t.Fatalf("expected overall 1 from rounded parts, got %+v", s)
	}
}

func TestNewScoreRejectsOutOfRange(t *testing.T) {
	if _, err := NewScore(101, 50, 50, 50, 50); !errors.Is(err, ErrMalformedAI) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if _, err := NewScore(50, 50, -1, 50, 50); !errors.Is(err, ErrMalformedAI) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}
