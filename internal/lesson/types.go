// Package lesson holds the structured lesson model, the prompt templates for
// all generation flows, and the DynamoDB lesson store.
package lesson

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTopic is used when an employee record carries no skill gaps.
const DefaultTopic = "Productivity Tips"

// Theory is one concept entry in a lesson.
type Theory struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Question is a single quiz question with a zero-based correct-option index.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Difficulty    string   `json:"difficulty"`
}

// Quiz is the quiz block of a lesson. Hidden initially; attempt counters
// start at zero.
type Quiz struct {
	IsVisible    bool       `json:"isVisible"`
	AttemptsMade int        `json:"attemptsMade"`
	MaxAttempts  int        `json:"maxAttempts"`
	Questions    []Question `json:"questions"`
}

// Lesson is a generated micro-lesson.
type Lesson struct {
	LessonID        string   `json:"lessonId"`
	UserID          string   `json:"userId"`
	Topic           string   `json:"topic"`
	SubTopics       []string `json:"subTopics"`
	Theories        []Theory `json:"theories"`
	Quiz            *Quiz    `json:"quiz"`
	DurationMinutes int      `json:"durationMinutes"`
	Level           string   `json:"level"`
	Feedback        string   `json:"feedback"`
	CreatedAt       string   `json:"createdAt"`
	Done            bool     `json:"done"`
	FinishedAt      string   `json:"finishedAt,omitempty"`
}

// DeriveTopic picks the lesson topic from an employee's skill gaps: first
// entry when present, otherwise DefaultTopic. Deterministic.
func DeriveTopic(skillGaps []string) string {
	if len(skillGaps) > 0 {
		return skillGaps[0]
	}
	return DefaultTopic
}

// Decode parses a generated JSON document into a Lesson.
func Decode(data []byte) (*Lesson, error) {
	var l Lesson
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to decode lesson: %w", err)
	}
	return &l, nil
}

// StampCreatedAt sets the createdAt field on a decoded lesson object to now
// (UTC, ISO-8601 with trailing Z) only when the field is absent. An existing
// value is never overwritten.
func StampCreatedAt(obj map[string]any, now time.Time) {
	if _, ok := obj["createdAt"]; !ok {
		obj["createdAt"] = now.UTC().Format(time.RFC3339)
	}
}
