package domain

import "time"

// Role distinguishes teachers from students.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// User is the authenticated caller, built from verified token claims.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	ClassCode string `json:"classCode,omitempty"`
}

// Class is a teacher's roster joined by students through its code.
type Class struct {
	Code        string    `json:"code"`
	TeacherID   string    `json:"teacherId"`
	Name        string    `json:"name"`
	StudentIDs  []string  `json:"studentIds"`
	CommonTopic string    `json:"commonTopic,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasStudent reports whether the student is on the roster.
func (c Class) HasStudent(studentID string) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// QueueEntry is a student waiting for an opponent.
type QueueEntry struct {
	ClassCode  string    `json:"classCode"`
	StudentID  string    `json:"studentId"`
	Nickname   string    `json:"nickname"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// BattleStatus tracks a battle through its rounds.
type BattleStatus string

const (
	BattleActive    BattleStatus = "active"
	BattleStarted   BattleStatus = "started"
	BattleCompleted BattleStatus = "completed"
)

// AISpeaker is the speaker id used for AI rebuttals in a battle log.
const AISpeaker = "ai"

// Participant is one of the two students in a battle.
type Participant struct {
	StudentID string `json:"studentId"`
	Nickname  string `json:"nickname"`
}

// Turn is one entry of a battle log.
type Turn struct {
	Speaker   string    `json:"speaker"`
	Nickname  string    `json:"nickname,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Score     *Score    `json:"score,omitempty"`
}

// Battle is a two-student debate mediated by AI rebuttals.
type Battle struct {
	ID           string        `json:"id"`
	ClassCode    string        `json:"classCode"`
	Participants []Participant `json:"participants"`
	Topic        string        `json:"topic"`
	Logs         []Turn        `json:"logs"`
	Round        int           `json:"round"`
	Status       BattleStatus  `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Participant returns the participant with the given student id.
func (b Battle) Participant(studentID string) (Participant, bool) {
	for _, p := range b.Participants {
		if p.StudentID == studentID {
			return p, true
		}
	}
	return Participant{}, false
}

// MatchResult is the outcome of a matching attempt.
type MatchResult struct {
	Matched      bool          `json:"matched"`
	BattleID     string        `json:"battleId,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Topic        string        `json:"topic,omitempty"`
}

// RoundResult is returned after a battle round has been recorded.
type RoundResult struct {
	Success    bool   `json:"success"`
	StudentLog Turn   `json:"studentLog"`
	AILog      Turn   `json:"aiLog"`
	NextRound  int    `json:"nextRound"`
	Battle     Battle `json:"-"`
}

// LogLine is a speaker/text pair fed to report and portfolio generation.
type LogLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// ChatMessage is one line of a single-player debate history.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Report summarizes a student's debate logs.
type Report struct {
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Milestone is one step of a portfolio growth timeline.
type Milestone struct {
	Stage       string `json:"stage"`
	Description string `json:"description"`
}

// Portfolio is an AI-generated growth record.
type Portfolio struct {
	GrowthTimeline []Milestone `json:"growthTimeline"`
	Badges         []string    `json:"badges"`
	Level          string      `json:"level"`
}

// RankingEntry is a per-student aggregate of scored battle turns.
type RankingEntry struct {
	StudentID    string    `json:"studentId"`
	Nickname     string    `json:"nickname"`
	Battles      int       `json:"battles"`
	AverageScore float64   `json:"averageScore"`
	BestScore    int       `json:"bestScore"`
	LastUpdated  time.Time `json:"-"`
}

// Ranking captures the ordered scoreboard for a class.
type Ranking struct {
	ClassCode string         `json:"classCode"`
	Entries   []RankingEntry `json:"entries"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
