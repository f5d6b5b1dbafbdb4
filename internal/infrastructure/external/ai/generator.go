package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

// Generate asks the generation capability for a complete lesson: a title
// and an ordered list of content units. Runs under the generator's own
// retry policy and breaker since it lives on the background-job path.
func (c *Client) Generate(ctx context.Context, in GenerateInput) (*GeneratedLesson, error) {
	messages := buildGeneratorMessages(in)

	content, err := c.complete(ctx, c.generatorRetrier, c.generatorBreaker, messages)
	if err != nil {
		c.logger.Error("generator call failed after retries", "error", err)
		return nil, shared.WrapError("ai", "Generate", shared.ErrServiceUnavailable, "AI generator is unavailable", err)
	}

	generated, err := parseGeneratedLesson(content)
	if err != nil {
		c.logger.Error("generator returned unparseable output", "error", err)
		return nil, shared.WrapError("ai", "Generate", shared.ErrInvalidFormat, "unparseable output from AI generator", err)
	}

	return generated, nil
}

// parseGeneratedLesson validates the generator output: a lesson needs a
// title and at least one non-empty unit.
func parseGeneratedLesson(content string) (*GeneratedLesson, error) {
	cleaned := stripCodeFences(content)

	var g GeneratedLesson
	if err := json.Unmarshal([]byte(cleaned), &g); err != nil {
		return nil, err
	}
	if strings.TrimSpace(g.Title) == "" {
		return nil, shared.NewDomainError("ai", "Parse", shared.ErrEmptyValue, "generated lesson has no title")
	}
	if len(g.Units) == 0 {
		return nil, shared.NewDomainError("ai", "Parse", shared.ErrEmptyValue, "generated lesson has no units")
	}
	for _, u := range g.Units {
		if strings.TrimSpace(u.Title) == "" || strings.TrimSpace(u.Body) == "" {
			return nil, shared.NewDomainError("ai", "Parse", shared.ErrEmptyValue, "generated unit missing title or body")
		}
	}

	return &g, nil
}
