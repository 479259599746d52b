package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/constants"
	"github.com/kapu/tsundoku-go/internal/util"
	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

// Client talks to an OpenAI-compatible chat completions endpoint. Both the
// translator and the scout fallback go through it; only the base URL, key and
// model differ.
type Client struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewClient(apiKey, baseURL, model string, logger *zap.Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(constants.ModelConfig.RequestTimeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	return &Client{
		client: &client,
		model:  model,
		logger: logger,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Complete performs a single non-streaming chat completion.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toParams(messages),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", perrors.NewParseError("model returned no choices", nil)
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream performs a streaming chat completion, aggregating the delta
// fragments into the full reply. onDelta, when non-nil, receives each
// fragment as it arrives.
func (c *Client) Stream(ctx context.Context, messages []Message, onDelta func(string)) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toParams(messages),
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}

	if err := stream.Err(); err != nil {
		return "", classifyError(err)
	}

	return full.String(), nil
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}
	return params
}

// classifyError maps transport-level failures and HTTP error responses onto
// the pipeline error taxonomy.
func classifyError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		body := util.TruncateString(apierr.Error(), constants.HTTPConfig.ErrorBodyMax)
		return perrors.NewAPIError("chat completion failed", apierr.StatusCode, body)
	}
	return perrors.NewTransportError("chat completion request failed", err)
}
