package app

import (
	"fmt"
	"strings"

	"debate-lab-service/internal/domain"
	"debate-lab-service/internal/llm"
)

const scorePrompt = `You are a debate coach grading a student's argument.
Rate it on five dimensions, each an integer from 0 to 100:
logic, clarity, evidence, empathy, engagement.
Reply with a single JSON object and nothing else, for example:
{"logic": 70, "clarity": 80, "evidence": 60, "empathy": 75, "engagement": 65}`

const reportPrompt = `You are a teacher writing feedback on a student's debate.
Read the debate log and reply with a single JSON object and nothing else:
{"summary": "<two or three sentences>", "strengths": ["..."], "improvements": ["..."]}`

const portfolioPrompt = `You are building a student's debate portfolio from their debate logs.
Reply with a single JSON object and nothing else:
{"growthTimeline": [{"stage": "...", "description": "..."}], "badges": ["..."], "level": "Bronze|Silver|Gold|Platinum"}`

const topicPrompt = `Suggest one debate motion that students aged 12 to 16 can argue for or against,
inspired by themes from well-known movies. Reply with the motion only, one sentence, no quotes.`

func rebuttalPrompt(topic string) string {
	return fmt.Sprintf(`You are the AI opponent in a classroom debate on the motion: %q.
Reply to the student's latest statement with a short, respectful counterargument (at most four sentences).
Do not grade the student and do not use Markdown.`, topic)
}

func formatLogs(logs []domain.LogLine) string {
	var b strings.Builder
	for _, l := range logs {
		fmt.Fprintf(&b, "%s: %s\n", l.Speaker, strings.TrimSpace(l.Text))
	}
	return b.String()
}

// battleHistory replays a battle log as chat messages from the AI's point of view.
func battleHistory(turns []domain.Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		if t.Speaker == domain.AISpeaker {
			out = append(out, llm.Message{Role: "assistant", Content: t.Text})
			continue
		}
		name := t.Nickname
		if name == "" {
			name = t.Speaker
		}
		out = append(out, llm.Message{Role: "user", Content: name + ": " + t.Text})
	}
	return out
}

func chatHistory(history []domain.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == "ai" || m.Role == "assistant" {
			role = "assistant"
		}
		out = append(out, llm.Message{Role: role, Content: m.Text})
	}
	return out
}

// cleanLine trims whitespace and wrapping quotes and keeps only the first line.
func cleanLine(s string) string {
	s = strings.TrimSpace(llm.StripFences(s))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), `"'“”`)
}
