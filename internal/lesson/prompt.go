package lesson

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DeliveryPrompt is the fixed template for the emailed micro-lesson. The
// word ceiling and formatting rules are communicated to the model but not
// enforced on the response.
func DeliveryPrompt(topic string) string {
	return fmt.Sprintf(`You are a friendly corporate trainer.
Create a 5-minute micro-lesson on '%s' for a busy professional.
Include:
- Simple definition
- One real-world example
- One practical tip they can use today
Keep it under 200 words. No markdown. No bullet points. Just plain, clear, friendly text
and use emoji's to make the text look friendly.`, topic)
}

// structuredLessonPrompt specifies the exact JSON shape and authoring rules
// for structured lesson generation.
const structuredLessonPrompt = `You are an AI lesson generator for a personalized micro-learning platform.
Generate a new lesson for a user based on their learning goals, current skill mastery, and preferred topic.
The lesson must follow this JSON format:

{
  "lessonId": "LESSON#<unique_id>",
  "userId": "<user_id>",
  "topic": "<lesson_topic>",
  "subTopics": ["<subtopic_1>", "<subtopic_2>"],
  "theories": [
    {"title": "<theory_title>", "content": "<theory_content>"}
  ],
  "quiz": {
    "isVisible": false,
    "attemptsMade": 0,
    "maxAttempts": 3,
    "questions": [
      {
        "question": "<quiz_question>",
        "options": ["<option1>", "<option2>", "<option3>"],
        "correctAnswer": <index_of_correct_option>,
        "difficulty": "<Easy/Medium/Hard>"
      }
    ]
  },
  "durationMinutes": 5,
  "level": "<Beginner/Intermediate/Advanced>",
  "feedback": "",
  "createdAt": "<ISO_timestamp>"
}

Rules:
1. Generate 1 topic and 2-3 subtopics per lesson.
2. Theories should explain key concepts concisely to fit ~5 min reading.
3. Include 1 quiz with 3 options; mark correct answer index 0-based.
4. Quiz hidden initially (isVisible: false).
5. Duration <= 5 min.
6. Lesson level matches user's current level.
7. Use user interests, skill gaps, or summaries to decide lesson topic.
8. Output only valid JSON, no extra text.`

// Profile is the user profile fragment driving structured generation.
type Profile struct {
	UserID       string   `json:"userId"`
	CurrentLevel string   `json:"currentLevel"`
	SkillGaps    []string `json:"skillGaps"`
	Interests    []string `json:"interests"`
	Goals        string   `json:"goals"`
}

// WithDefaults fills absent profile fields with the fixed placeholders.
func (p Profile) WithDefaults() Profile {
	if p.UserID == "" {
		p.UserID = "USER#001"
	}
	if p.CurrentLevel == "" {
		p.CurrentLevel = "Beginner"
	}
	if p.SkillGaps == nil {
		p.SkillGaps = []string{}
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}
	if p.Goals == "" {
		p.Goals = "Learn something new"
	}
	return p
}

// GenerationPrompt combines the structured lesson template with the user
// profile.
func GenerationPrompt(p Profile) string {
	skillGaps, _ := json.Marshal(p.SkillGaps)
	interests, _ := json.Marshal(p.Interests)

	return fmt.Sprintf(`%s
Input Variables:
- userId: %s
- currentLevel: %s
- skillGaps: %s
- interests: %s
- goals: %s
`, structuredLessonPrompt, p.UserID, p.CurrentLevel, skillGaps, interests, p.Goals)
}

// OnboardingPrompt builds the learning-path prompt from the four onboarding
// answers.
func OnboardingPrompt(userID string, answers []string) string {
	return fmt.Sprintf(`You are an AI learning path generator for a personalized micro-learning platform.
The employee has provided these answers:

1. Experience/Resume Summary: %s
2. Skills/Topics to focus on: %s
3. Skill gaps: %s
4. Goals to improve: %s

Generate a personalized learning path and the first lesson in this JSON format:

%s

Rules:
1. Generate 3 concise theories (~5 min reading).
2. Include 1 quiz with 3 options, correct index 0-based.
3. Quiz hidden initially.
4. Level matches employee current skill.
5. Use employee answers to decide topic.
6. Output ONLY valid JSON, no extra text.`,
		answers[0], answers[1], answers[2], answers[3],
		lessonShapeFor(userID))
}

// NextLessonPrompt builds the prompt for the lesson following a completed
// one, using the employee's learning summary and the finished lesson.
func NextLessonPrompt(summary string, completed *Lesson, newLessonID, userID string) string {
	theories, _ := json.Marshal(completed.Theories)
	quiz, _ := json.Marshal(completed.Quiz)

	return fmt.Sprintf(`You are an AI lesson generator for a personalized micro-learning platform.
Here is the employee's current learning summary:
"%s"

Here is the lesson they just completed:
- Topic: %s
- Theories: %s
- Quiz: %s

Based on this information, generate the NEXT lesson as a single JSON object with this exact structure:

%s

Rules:
1. Generate 3 concise theories (~5 min reading).
2. Include 1 quiz with 3 options, correct index 0-based.
3. Quiz hidden initially (isVisible=false).
4. Level matches employee skill level based on their summary and last lesson.
5. Use the completed lesson and summary to pick a logical next topic.
6. Output ONLY valid JSON, no extra text.`,
		summary, completed.Topic, theories, quiz,
		strings.Replace(lessonShapeFor(userID), `"LESSON#<unique_id>"`, fmt.Sprintf("%q", newLessonID), 1))
}

// lessonShapeFor returns the required JSON shape with the user id filled in.
func lessonShapeFor(userID string) string {
	return fmt.Sprintf(`{
  "lessonId": "LESSON#<unique_id>",
  "userId": %q,
  "topic": "<lesson_topic>",
  "subTopics": ["<subtopic_1>", "<subtopic_2>"],
  "theories": [
    {"title": "<theory_title>", "content": "<theory_content>"}
  ],
  "quiz": {
    "isVisible": false,
    "attemptsMade": 0,
    "maxAttempts": 3,
    "questions": [
      {
        "question": "<quiz_question>",
        "options": ["<option1>", "<option2>", "<option3>"],
        "correctAnswer": <index_of_correct_option>,
        "difficulty": "<Easy/Medium/Hard>"
      }
    ]
  },
  "durationMinutes": 5,
  "level": "<Beginner/Intermediate/Advanced>",
  "feedback": "",
  "createdAt": "<ISO_timestamp>"
}`, userID)
}
