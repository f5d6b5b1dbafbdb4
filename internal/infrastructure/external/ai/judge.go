package ai

import (
	"encoding/json"
	"strings"

	"context"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

// Judge sends the assembled context to the judging capability and parses
// its verdict. On retry exhaustion the error wraps
// shared.ErrJudgeUnavailable; an unparseable verdict wraps
// shared.ErrJudgeInvalidResponse. The caller treats both as a typed
// external-service failure and persists nothing.
func (c *Client) Judge(ctx context.Context, in JudgeInput) (*Judgment, error) {
	messages := buildJudgeMessages(in, c.config.HistoryWindow)

	content, err := c.complete(ctx, c.judgeRetrier, c.judgeBreaker, messages)
	if err != nil {
		c.logger.Error("judge call failed after retries", "error", err)
		return nil, shared.WrapError("ai", "Judge", shared.ErrServiceUnavailable, "AI judge is unavailable", err)
	}

	judgment, err := parseJudgment(content)
	if err != nil {
		c.logger.Error("judge returned unparseable verdict", "error", err)
		return nil, shared.WrapError("ai", "Judge", shared.ErrInvalidFormat, "unparseable response from AI judge", err)
	}

	return judgment, nil
}

// parseJudgment extracts the verdict from the model output. Models
// occasionally wrap JSON in code fences despite the response-format hint,
// so fences are stripped before unmarshalling. Scores are clamped to
// [0, 100].
func parseJudgment(content string) (*Judgment, error) {
	cleaned := stripCodeFences(content)

	var j Judgment
	if err := json.Unmarshal([]byte(cleaned), &j); err != nil {
		return nil, err
	}
	if strings.TrimSpace(j.ResponseText) == "" {
		return nil, shared.NewDomainError("ai", "Parse", shared.ErrEmptyValue, "judgment has no response text")
	}

	if j.CompletionScore < 0 {
		j.CompletionScore = 0
	}
	if j.CompletionScore > 100 {
		j.CompletionScore = 100
	}

	return &j, nil
}

// stripCodeFences removes a surrounding ```...``` block if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
