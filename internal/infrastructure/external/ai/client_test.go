package ai

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

func TestParseJudgment(t *testing.T) {
	j, err := parseJudgment(`{"response_text": "¡Muy bien!", "completion_score": 80}`)
	require.NoError(t, err)
	assert.Equal(t, "¡Muy bien!", j.ResponseText)
	assert.Equal(t, 80, j.CompletionScore)
}

func TestParseJudgment_StripsCodeFences(t *testing.T) {
	raw := "```json\n{\"response_text\": \"ok\", \"completion_score\": 100}\n```"

	j, err := parseJudgment(raw)
	require.NoError(t, err)
	assert.Equal(t, 100, j.CompletionScore)
}

func TestParseJudgment_ClampsScore(t *testing.T) {
	j, err := parseJudgment(`{"response_text": "ok", "completion_score": 150}`)
	require.NoError(t, err)
	assert.Equal(t, 100, j.CompletionScore)

	j, err = parseJudgment(`{"response_text": "ok", "completion_score": -3}`)
	require.NoError(t, err)
	assert.Equal(t, 0, j.CompletionScore)
}

func TestParseJudgment_Rejects(t *testing.T) {
	_, err := parseJudgment("not json at all")
	assert.Error(t, err)

	_, err = parseJudgment(`{"response_text": "  ", "completion_score": 10}`)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestParseGeneratedLesson(t *testing.T) {
	raw := `{"title": "Greetings", "units": [
		{"title": "Hello", "body": "Hola means hello."},
		{"title": "Goodbye", "body": "Adiós means goodbye."}
	]}`

	g, err := parseGeneratedLesson(raw)
	require.NoError(t, err)
	assert.Equal(t, "Greetings", g.Title)
	require.Len(t, g.Units, 2)
	assert.Equal(t, "Hello", g.Units[0].Title)
}

func TestParseGeneratedLesson_Rejects(t *testing.T) {
	_, err := parseGeneratedLesson(`{"title": "", "units": [{"title": "a", "body": "b"}]}`)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = parseGeneratedLesson(`{"title": "Greetings", "units": []}`)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = parseGeneratedLesson(`{"title": "Greetings", "units": [{"title": "a", "body": " "}]}`)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestBuildJudgeMessages_Order(t *testing.T) {
	in := JudgeInput{
		StudentName:    "Dana",
		NativeLanguage: "en",
		TargetLanguage: "es",
		LessonTitle:    "Spanish Greetings",
		UnitTitle:      "Hello",
		UnitBody:       "Hola means hello.",
		History: []Turn{
			{FromUser: true, Text: "first"},
			{FromUser: false, Text: "second"},
		},
		Message: "hola!",
	}

	msgs := buildJudgeMessages(in, 10)

	require.Len(t, msgs, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Spanish Greetings")
	assert.Contains(t, msgs[0].Content, "Dana")
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, "hola!", msgs[3].Content)
}

func TestBuildJudgeMessages_HistoryWindow(t *testing.T) {
	in := JudgeInput{Message: "hi"}
	for i := 0; i < 20; i++ {
		in.History = append(in.History, Turn{FromUser: true, Text: "old"})
	}
	in.History = append(in.History, Turn{FromUser: false, Text: "newest"})

	msgs := buildJudgeMessages(in, 5)

	// system + 5 history + resolved message
	require.Len(t, msgs, 7)
	assert.Equal(t, "newest", msgs[5].Content, "window keeps the most recent turns")
}

func TestBuildJudgeMessages_MasteryAddendum(t *testing.T) {
	in := JudgeInput{Message: "I think I got it", CompletionRequested: true, NextUnitTitle: "Numbers"}
	msgs := buildJudgeMessages(in, 10)
	assert.Contains(t, msgs[0].Content, `"Numbers"`)

	in.NextUnitTitle = ""
	msgs = buildJudgeMessages(in, 10)
	assert.Contains(t, msgs[0].Content, "entire lesson")
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}
