package domain

import (
	"fmt"
	"math"
)

// Score holds the five evaluation dimensions and their rounded mean.
type Score struct {
	Logic      int `json:"logic"`
	Clarity    int `json:"clarity"`
	Evidence   int `json:"evidence"`
	Empathy    int `json:"empathy"`
	Engagement int `json:"engagement"`
	Overall    int `json:"overall"`
}

// NewScore validates the sub-scores and fills in Overall.
func NewScore(logic, clarity, evidence, empathy, engagement float64) (Score, error) {
	parts := map[string]float64{
		"logic":      logic,
		"clarity":    clarity,
		"evidence":   evidence,
		"empathy":    empathy,
		"engagement": engagement,
	}
	for name, v := range parts {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return Score{}, fmt.Errorf("%w: %s out of range: %v", ErrMalformedAI, name, v)
		}
	}
	s := Score{
		Logic:      int(math.Round(logic)),
		Clarity:    int(math.Round(clarity)),
		Evidence:   int(math.Round(evidence)),
		Empathy:    int(math.Round(empathy)),
		Engagement: int(math.Round(engagement)),
	}
	// overall follows the rounded parts so clients can recompute it
	s.Overall = int(math.Round(float64(s.Logic+s.Clarity+s.Evidence+s.Empathy+s.Engagement) / 5))
	return s, nil
}
