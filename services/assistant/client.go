// Package assistant produces the Greek replies sent back to customers:
// intent classification, prompt composition, chat completion with
// calendar tools, and tattoo image analysis.
package assistant

import (
	"context"
	"errors"
	"net"

	"github.com/openai/openai-go"
	"go.uber.org/zap"

	"inkflow/utils"
)

// Client wraps the OpenAI API with bounded retries on transient
// failures.
type Client struct {
	API    *openai.Client
	Logger *zap.Logger
	Policy utils.RetryPolicy

	DefaultModel  string
	VisionModel   string
	ClassifyModel string
}

func NewClient(api *openai.Client, logger *zap.Logger, defaultModel, visionModel, classifyModel string) *Client {
	return &Client{
		API:           api,
		Logger:        logger,
		Policy:        utils.DefaultRetryPolicy,
		DefaultModel:  defaultModel,
		VisionModel:   visionModel,
		ClassifyModel: classifyModel,
	}
}

// IsTransient reports whether an API failure is worth retrying.
// Rate limits, timeouts and server errors are; auth and request
// errors are not.
func IsTransient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429, apiErr.StatusCode == 408:
			return true
		case apiErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// complete runs one chat completion under the retry policy.
func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	var completion *openai.ChatCompletion
	err := utils.Retry(ctx, c.Policy, IsTransient, func(ctx context.Context) error {
		resp, err := c.API.Chat.Completions.New(ctx, params)
		if err != nil {
			c.Logger.Warn("chat completion attempt failed", zap.Error(err))
			return err
		}
		completion = resp
		return nil
	})
	if err != nil {
		return nil, utils.NewServiceError("openai", err)
	}
	if len(completion.Choices) == 0 {
		return nil, utils.NewServiceError("openai", errors.New("completion has no choices"))
	}
	return completion, nil
}
