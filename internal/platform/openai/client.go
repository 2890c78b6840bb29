package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

const (
	defaultModel       = "gpt-4.1-mini"
	defaultMaxRetries  = 2
	defaultMaxTokens   = 16384
	defaultTemperature = 0.7
)

// Client is the text-only OpenAI surface the generator needs.
type Client interface {
	// GenerateText returns the first choice. jsonMode asks for a single JSON object.
	GenerateText(ctx context.Context, system, user string, jsonMode bool) (string, error)
	Model() string
}

type client struct {
	log         *logger.Logger
	api         openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewClient reads OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL, OPENAI_MAX_RETRIES and OPENAI_TEMPERATURE.
func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = defaultModel
	}
	retries := defaultMaxRetries
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv("OPENAI_MAX_RETRIES"))); err == nil && v >= 0 {
		retries = v
	}
	temperature := defaultTemperature
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv("OPENAI_TEMPERATURE")), 64); err == nil {
		temperature = v
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(retries)}
	if base := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	c := &client{
		log:         log.With("client", "OpenAIClient"),
		api:         openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   defaultMaxTokens,
	}
	c.log.Info("OpenAI client ready", "model", model, "max_retries", retries)
	return c, nil
}

func (c *client) Model() string { return c.model }

func (c *client) GenerateText(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: param.Opt[string]{Value: system},
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: param.Opt[string]{Value: user},
					},
				},
			},
		},
		MaxCompletionTokens: openai.Int(c.maxTokens),
		Temperature:         openai.Float(c.temperature),
	}
	if jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	out := resp.Choices[0].Message.Content
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("openai: empty completion (finish_reason=%s)", resp.Choices[0].FinishReason)
	}
	c.log.Debug("OpenAI completion",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return out, nil
}
