package ai

import (
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// judgeSystemPrompt frames the tutoring-and-grading role. The verdict must
// come back as a JSON object so parseJudgment can do its work.
const judgeSystemPrompt = `You are a language tutor guiding a student through one unit of a lesson.
Reply to the student in the target language at a level appropriate for a learner, gently correcting mistakes.
After composing your reply, grade how completely the student has mastered the current unit on a 0-100 scale.
Report 100 only when the unit is genuinely mastered.
Respond with a single JSON object: {"response_text": "<your reply to the student>", "completion_score": <0-100>}.`

// judgeMasteryAddendum is appended when the student signalled they feel
// done with the unit.
const judgeMasteryAddendum = `The student has indicated they feel they understand this unit.
Assess their mastery against the unit content. If and only if mastery is demonstrated, set completion_score to 100 and %s. Otherwise keep teaching and score honestly.`

// buildJudgeMessages assembles the chat-completion messages for one
// judging call: system framing, student/lesson context, the recent
// history in chronological order, and the resolved message last.
func buildJudgeMessages(in JudgeInput, historyWindow int) []openai.ChatCompletionMessage {
	var sb strings.Builder
	sb.WriteString(judgeSystemPrompt)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Student: %s (native language: %s, learning: %s)\n",
		in.StudentName, in.NativeLanguage, in.TargetLanguage)
	fmt.Fprintf(&sb, "Lesson: %s\n", in.LessonTitle)
	fmt.Fprintf(&sb, "Current unit: %s\n%s\n", in.UnitTitle, in.UnitBody)

	if in.CompletionRequested {
		transition := "congratulate the student on completing the entire lesson"
		if in.NextUnitTitle != "" {
			transition = fmt.Sprintf("tell the student the next unit is %q", in.NextUnitTitle)
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, judgeMasteryAddendum, transition)
		sb.WriteString("\n")
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: sb.String()},
	}

	history := in.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleAssistant
		if turn.FromUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: in.Message,
	})

	return messages
}

// generatorSystemPrompt frames lesson generation.
const generatorSystemPrompt = `You are a curriculum designer for a language-learning platform.
Given a student's request, produce one lesson as a JSON object:
{"title": "<lesson title>", "units": [{"title": "<unit title>", "body": "<unit teaching content>"}, ...]}.
Produce between 3 and 6 units, ordered from easiest to hardest, each teaching one self-contained piece of the topic in the target language.`

// buildGeneratorMessages assembles the messages for one generation call.
func buildGeneratorMessages(in GenerateInput) []openai.ChatCompletionMessage {
	user := fmt.Sprintf("Target language: %s. Student's native language: %s.\nRequest: %s",
		in.TargetLanguage, in.NativeLanguage, in.Request)

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: generatorSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}
