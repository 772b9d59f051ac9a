package app

import (
	"context"
	"fmt"
	"strings"

	"debate-lab-service/internal/domain"
	"debate-lab-service/internal/llm"
)

// EvalService wraps single-shot LLM calls: scoring, reports, portfolios,
// topics and AI rebuttals. There are no retries; errors end the request.
type EvalService struct {
	llm Completer
}

func NewEvalService(completer Completer) *EvalService {
	return &EvalService{llm: completer}
}

// Score grades an argument on the five dimensions.
func (s *EvalService) Score(ctx context.Context, text string) (domain.Score, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Score{}, fmt.Errorf("%w: text is empty", domain.ErrInvalidInput)
	}
	raw, err := s.llm.Complete(ctx, "score", []llm.Message{
		{Role: "system", Content: scorePrompt},
		{Role: "user", Content: text},
	})
	if err != nil {
		return domain.Score{}, err
	}
	obj, err := llm.DecodeObject(raw)
	if err != nil {
		return domain.Score{}, err
	}

	var vals [5]float64
	for i, key := range []string{"logic", "clarity", "evidence", "empathy", "engagement"} {
		if vals[i], err = llm.Number(obj, key); err != nil {
			return domain.Score{}, err
		}
	}
	return domain.NewScore(vals[0], vals[1], vals[2], vals[3], vals[4])
}

// Report summarizes debate logs into strengths and improvements.
func (s *EvalService) Report(ctx context.Context, logs []domain.LogLine) (domain.Report, error) {
	if len(logs) == 0 {
		return domain.Report{}, fmt.Errorf("%w: logs are empty", domain.ErrInvalidInput)
	}
	raw, err := s.llm.Complete(ctx, "report", []llm.Message{
		{Role: "system", Content: reportPrompt},
		{Role: "user", Content: formatLogs(logs)},
	})
	if err != nil {
		return domain.Report{}, err
	}
	obj, err := llm.DecodeObject(raw)
	if err != nil {
		return domain.Report{}, err
	}

	var r domain.Report
	if r.Summary, err = llm.String(obj, "summary"); err != nil {
		return domain.Report{}, err
	}
	if strings.TrimSpace(r.Summary) == "" {
		return domain.Report{}, fmt.Errorf("%w: summary is empty", domain.ErrMalformedAI)
	}
	if r.Strengths, err = llm.Strings(obj, "strengths"); err != nil {
		return domain.Report{}, err
	}
	if r.Improvements, err = llm.Strings(obj, "improvements"); err != nil {
		return domain.Report{}, err
	}
	return r, nil
}

// Portfolio builds a growth timeline, badges and a level tier from logs.
func (s *EvalService) Portfolio(ctx context.Context, logs []domain.LogLine) (domain.Portfolio, error) {
	if len(logs) == 0 {
		return domain.Portfolio{}, fmt.Errorf("%w: logs are empty", domain.ErrInvalidInput)
	}
	raw, err := s.llm.Complete(ctx, "portfolio", []llm.Message{
		{Role: "system", Content: portfolioPrompt},
		{Role: "user", Content: formatLogs(logs)},
	})
	if err != nil {
		return domain.Portfolio{}, err
	}
	obj, err := llm.DecodeObject(raw)
	if err != nil {
		return domain.Portfolio{}, err
	}

	var p domain.Portfolio
	items, err := llm.Objects(obj, "growthTimeline")
	if err != nil {
		return domain.Portfolio{}, err
	}
	p.GrowthTimeline = make([]domain.Milestone, 0, len(items))
	for _, item := range items {
		var m domain.Milestone
		if m.Stage, err = llm.String(item, "stage"); err != nil {
			return domain.Portfolio{}, err
		}
		if m.Description, err = llm.String(item, "description"); err != nil {
			return domain.Portfolio{}, err
		}
		p.GrowthTimeline = append(p.GrowthTimeline, m)
	}
	if p.Badges, err = llm.Strings(obj, "badges"); err != nil {
		return domain.Portfolio{}, err
	}
	if p.Level, err = llm.String(obj, "level"); err != nil {
		return domain.Portfolio{}, err
	}
	if strings.TrimSpace(p.Level) == "" {
		return domain.Portfolio{}, fmt.Errorf("%w: level is empty", domain.ErrMalformedAI)
	}
	return p, nil
}

// Topic asks for a fresh debate motion.
func (s *EvalService) Topic(ctx context.Context) (string, error) {
	raw, err := s.llm.Complete(ctx, "topic", []llm.Message{
		{Role: "system", Content: topicPrompt},
		{Role: "user", Content: "Give me a new motion."},
	})
	if err != nil {
		return "", err
	}
	topic := cleanLine(raw)
	if topic == "" {
		return "", fmt.Errorf("%w: empty topic", domain.ErrMalformedAI)
	}
	return topic, nil
}

// Rebuttal produces the AI's reply to the latest student statement of a battle.
func (s *EvalService) Rebuttal(ctx context.Context, battle domain.Battle, speaker domain.Participant, text string) (string, error) {
	messages := []llm.Message{{Role: "system", Content: rebuttalPrompt(battle.Topic)}}
	messages = append(messages, battleHistory(battle.Logs)...)
	messages = append(messages, llm.Message{Role: "user", Content: speaker.Nickname + ": " + text})
	return s.reply(ctx, "rebuttal", messages)
}

// DebateTurn answers one turn of a single-player practice debate.
func (s *EvalService) DebateTurn(ctx context.Context, topic string, history []domain.ChatMessage, text string) (string, error) {
	if strings.TrimSpace(topic) == "" || strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: topic and text are required", domain.ErrInvalidInput)
	}
	messages := []llm.Message{{Role: "system", Content: rebuttalPrompt(topic)}}
	messages = append(messages, chatHistory(history)...)
	messages = append(messages, llm.Message{Role: "user", Content: text})
	return s.reply(ctx, "debate_turn", messages)
}

func (s *EvalService) reply(ctx context.Context, purpose string, messages []llm.Message) (string, error) {
	raw, err := s.llm.Complete(ctx, purpose, messages)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(llm.StripFences(raw))
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", domain.ErrMalformedAI)
	}
	return reply, nil
}
