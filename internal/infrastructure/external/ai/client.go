// Package ai implements the clients for the two external AI capabilities:
// the judge, which scores a learner's grasp of the active content unit and
// produces the tutor's reply, and the generator, which produces lesson
// content. Both are opaque collaborators reached over an OpenAI-compatible
// chat-completions API, guarded by bounded retry and a circuit breaker.
package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/pkg/circuitbreaker"
	"github.com/lingoquest/lingoquest-backend/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// Turn is one prior conversation turn presented to the judge, in
// chronological order.
type Turn struct {
	// FromUser is true for learner turns, false for tutor turns.
	FromUser bool
	Text     string
}

// JudgeInput is the full context assembled for one judging call.
type JudgeInput struct {
	StudentName    string
	NativeLanguage string
	TargetLanguage string

	LessonTitle string
	UnitTitle   string
	UnitBody    string

	// NextUnitTitle names the unit after the active one, empty when the
	// active unit is the last.
	NextUnitTitle string

	// History holds the last turns in chronological order.
	History []Turn

	// Message is the resolved learner message (bootstrap or verbatim).
	Message string

	// CompletionRequested is set when the raw message carried
	// completion-request language; the judge is then asked to assess
	// mastery and report a score of 100 only if it is met.
	CompletionRequested bool
}

// Judgment is the judge's verdict on one interaction.
type Judgment struct {
	ResponseText    string `json:"response_text"`
	CompletionScore int    `json:"completion_score"`
}

// Judge scores learner interactions.
type Judge interface {
	Judge(ctx context.Context, in JudgeInput) (*Judgment, error)
}

// GenerateInput describes one lesson-generation request.
type GenerateInput struct {
	Request        string
	TargetLanguage string
	NativeLanguage string
}

// GeneratedUnit is one unit of generated lesson content.
type GeneratedUnit struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// GeneratedLesson is the generator's complete output.
type GeneratedLesson struct {
	Title string          `json:"title"`
	Units []GeneratedUnit `json:"units"`
}

// Generator produces lesson content.
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (*GeneratedLesson, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the AI client.
type ClientConfig struct {
	// APIKey authenticates against the chat-completions API.
	APIKey string

	// BaseURL overrides the API endpoint (OpenAI-compatible providers).
	BaseURL string

	// Model is the chat model ID.
	Model string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// HistoryWindow is the number of recent turns included in judge context.
	HistoryWindow int

	// Temperature for chat completions.
	Temperature float32

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:        apiKey,
		Model:         openai.GPT4oMini,
		Timeout:       60 * time.Second,
		HistoryWindow: 10,
		Temperature:   0.7,
	}
}

// Client talks to the chat-completions API and implements both Judge and
// Generator.
type Client struct {
	config ClientConfig
	api    *openai.Client
	logger *slog.Logger

	judgeRetrier     *retry.Retrier
	generatorRetrier *retry.Retrier
	judgeBreaker     *circuitbreaker.CircuitBreaker
	generatorBreaker *circuitbreaker.CircuitBreaker
}

// NewClient creates a new AI client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, shared.NewDomainError("ai", "Configure", shared.ErrEmptyValue, "AI API key is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.HistoryWindow <= 0 {
		config.HistoryWindow = 10
	}

	apiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		apiConfig.BaseURL = config.BaseURL
	}
	apiConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	onStateChange := func(name string, from, to circuitbreaker.State) {
		config.Logger.Warn("circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Client{
		config:           config,
		api:              openai.NewClientWithConfig(apiConfig),
		logger:           config.Logger,
		judgeRetrier:     retry.JudgeRetrier(),
		generatorRetrier: retry.GeneratorRetrier(),
		judgeBreaker:     circuitbreaker.JudgeBreaker(onStateChange),
		generatorBreaker: circuitbreaker.GeneratorBreaker(onStateChange),
	}, nil
}

// complete performs one guarded chat completion: circuit breaker inside,
// retry policy outside, so retries observe breaker rejections too.
func (c *Client) complete(
	ctx context.Context,
	retrier *retry.Retrier,
	breaker *circuitbreaker.CircuitBreaker,
	messages []openai.ChatCompletionMessage,
) (string, error) {
	return retry.DoWithDataRetrier(ctx, retrier, func(ctx context.Context) (string, error) {
		var content string
		err := breaker.Execute(ctx, func(ctx context.Context) error {
			resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.config.Model,
				Messages:    messages,
				Temperature: c.config.Temperature,
				ResponseFormat: &openai.ChatCompletionResponseFormat{
					Type: openai.ChatCompletionResponseFormatTypeJSONObject,
				},
			})
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return errors.New("no choices in completion response")
			}
			content = resp.Choices[0].Message.Content
			return nil
		})
		if err != nil {
			return "", classifyError(err)
		}
		return content, nil
	})
}

// classifyError decides whether an API failure is worth retrying.
// Rate limits and server-side failures are transient; everything else
// (bad request, auth) is permanent.
func classifyError(err error) error {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) ||
		errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return retry.Retryable(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return retry.Retryable(err)
		case apiErr.HTTPStatusCode >= 500:
			return retry.Retryable(err)
		default:
			return retry.Permanent(err)
		}
	}

	// Network-level errors (timeouts, refused connections) are transient.
	return retry.Retryable(err)
}
