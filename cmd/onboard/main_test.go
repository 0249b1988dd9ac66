package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pehyanbin/swin-learning/internal/bedrock"
	"github.com/pehyanbin/swin-learning/internal/lesson"
)

// MockChatGenerator implements ChatGenerator for testing
type MockChatGenerator struct {
	Text       string
	Err        error
	LastPrompt string
	Calls      int
}

func (m *MockChatGenerator) GenerateChat(ctx context.Context, route bedrock.Route, prompt string, cfg bedrock.ChatConfig) (string, error) {
	m.Calls++
	m.LastPrompt = prompt
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// MockLessonStore implements LessonStore for testing
type MockLessonStore struct {
	Err     error
	PutIDs  []string
	Lessons []*lesson.Lesson
}

func (m *MockLessonStore) Put(ctx context.Context, employeeID string, l *lesson.Lesson) error {
	m.PutIDs = append(m.PutIDs, employeeID)
	m.Lessons = append(m.Lessons, l)
	return m.Err
}

const generatedLesson = `{
	"lessonId": "LESSON#<unique_id>",
	"topic": "Go Interfaces",
	"theories": [{"title": "Small interfaces", "content": "Keep them small."}],
	"quiz": {"isVisible": true, "maxAttempts": 2, "questions": [
		{"question": "Best size?", "options": ["Small", "Large", "Huge"], "correctAnswer": 0, "difficulty": "easy"}
	]},
	"durationMinutes": 5,
	"level": "Beginner"
}`

var fourAnswers = []string{"5 years backend", "Go, SQL", "Concurrency", "Become a tech lead"}

func setupDeps(gen *MockChatGenerator, store *MockLessonStore) {
	deps = &Dependencies{
		Generator:   gen,
		Lessons:     store,
		NewLessonID: func() string { return "LESSON#fixed" },
		Now:         func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) },
	}
}

func TestHandlerMissingUserID(t *testing.T) {
	setupDeps(&MockChatGenerator{}, &MockLessonStore{})

	response, err := handler(context.Background(), Request{Answers: fourAnswers})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if response.StatusCode != 400 {
		t.Errorf("expected status 400, got %d", response.StatusCode)
	}
	if response.Body != `"Missing userId"` {
		t.Errorf("unexpected body: %s", response.Body)
	}
}

func TestHandlerWrongAnswerCount(t *testing.T) {
	gen := &MockChatGenerator{}
	setupDeps(gen, &MockLessonStore{})

	for _, answers := range [][]string{nil, {"one"}, {"a", "b", "c", "d", "e"}} {
		response, err := handler(context.Background(), Request{UserID: "USER#007", Answers: answers})
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if response.StatusCode != 400 {
			t.Errorf("answers=%v: expected status 400, got %d", answers, response.StatusCode)
		}
	}
	if gen.Calls != 0 {
		t.Error("invalid requests must not invoke the model")
	}
}

func TestHandlerSuccess(t *testing.T) {
	gen := &MockChatGenerator{Text: "Here you go:\n" + generatedLesson}
	store := &MockLessonStore{}
	setupDeps(gen, store)

	response, err := handler(context.Background(), Request{
		UserID:       "USER#007",
		Answers:      fourAnswers,
		CurrentLevel: "Intermediate",
	})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if response.StatusCode != 200 {
		t.Fatalf("expected status 200, got %d (body: %s)", response.StatusCode, response.Body)
	}

	var body SuccessBody
	if err := json.Unmarshal([]byte(response.Body), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Message != "Learning path created" {
		t.Errorf("unexpected message: %s", body.Message)
	}
	if body.Lesson.LessonID != "LESSON#fixed" {
		t.Errorf("expected generated lesson id, got %s", body.Lesson.LessonID)
	}
	if body.Lesson.UserID != "USER#007" {
		t.Errorf("unexpected user id: %s", body.Lesson.UserID)
	}
	if body.Lesson.Done {
		t.Error("new lesson must not be done")
	}
	if body.Lesson.Quiz == nil || body.Lesson.Quiz.IsVisible {
		t.Error("quiz must start hidden")
	}
	if body.Lesson.CreatedAt != "2026-03-14T09:00:00Z" {
		t.Errorf("unexpected createdAt: %s", body.Lesson.CreatedAt)
	}

	if len(store.PutIDs) != 1 || store.PutIDs[0] != "USER#007" {
		t.Errorf("expected one persisted lesson for USER#007, got %v", store.PutIDs)
	}
	for _, answer := range fourAnswers {
		if !strings.Contains(gen.LastPrompt, answer) {
			t.Errorf("prompt missing answer %q", answer)
		}
	}
}

func TestHandlerLevelFallsBackToRequest(t *testing.T) {
	gen := &MockChatGenerator{Text: `{"topic":"Topic","level":""}`}
	setupDeps(gen, &MockLessonStore{})

	response, err := handler(context.Background(), Request{
		UserID:       "USER#007",
		Answers:      fourAnswers,
		CurrentLevel: "Advanced",
	})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	var body SuccessBody
	if err := json.Unmarshal([]byte(response.Body), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Lesson.Level != "Advanced" {
		t.Errorf("expected request level fallback, got %s", body.Lesson.Level)
	}
}

func TestHandlerGenerationFailure(t *testing.T) {
	store := &MockLessonStore{}
	setupDeps(&MockChatGenerator{Err: errors.New("throttled")}, store)

	response, err := handler(context.Background(), Request{UserID: "USER#007", Answers: fourAnswers})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if response.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", response.StatusCode)
	}
	if len(store.PutIDs) != 0 {
		t.Error("nothing should be persisted when generation fails")
	}
}

func TestHandlerUnparseableOutput(t *testing.T) {
	setupDeps(&MockChatGenerator{Text: "no json here"}, &MockLessonStore{})

	response, err := handler(context.Background(), Request{UserID: "USER#007", Answers: fourAnswers})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if response.StatusCode != 500 {
		t.Errorf("expected status 500 for unparseable output, got %d", response.StatusCode)
	}
}

func TestHandlerPersistFailure(t *testing.T) {
	setupDeps(&MockChatGenerator{Text: generatedLesson}, &MockLessonStore{Err: errors.New("capacity exceeded")})

	response, err := handler(context.Background(), Request{UserID: "USER#007", Answers: fourAnswers})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if response.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", response.StatusCode)
	}
	if response.Body != `"Failed to save lesson"` {
		t.Errorf("unexpected body: %s", response.Body)
	}
}
