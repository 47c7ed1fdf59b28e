package assistant

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"go.uber.org/zap"

	"inkflow/models"
)

// maxToolRounds bounds how many times the model may chain calendar
// calls before it must answer the customer.
const maxToolRounds = 3

// Retriever supplies few-shot examples for the prompt.
type Retriever interface {
	SimilarConversations(ctx context.Context, query, intent string) []models.RetrievedExample
}

// Service turns a batch of customer messages into a Greek reply.
type Service struct {
	Client    *Client
	Retrieval Retriever
	Prompts   *Prompts
	Executor  *Executor
	Logger    *zap.Logger

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func NewService(client *Client, retrieval Retriever, prompts *Prompts, executor *Executor, logger *zap.Logger) *Service {
	return &Service{
		Client:    client,
		Retrieval: retrieval,
		Prompts:   prompts,
		Executor:  executor,
		Logger:    logger,
		Now:       time.Now,
	}
}

// Reply produces the assistant's answer for the combined message batch.
// history already contains the current user turn. Failures never
// propagate: the worst case is the Greek fallback apology.
func (s *Service) Reply(ctx context.Context, userID, combinedMessage, textOnly string, history []models.ChatMessage, imageAnalyses []string) string {
	previousAssistant := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" {
			previousAssistant = history[i].Content
			break
		}
	}

	intents := s.Client.ClassifyIntents(ctx, s.Prompts.Load("classification"), combinedMessage, previousAssistant)
	sorted := SortIntents(intents)
	primary := PrimaryIntent(sorted)

	var others []models.Intent
	for _, in := range sorted {
		if in.Primary != primary.Primary {
			others = append(others, in)
		}
	}
	// A booking request that also asks about price gets the price
	// answered first.
	if primary.Primary == IntentBooking && hasIntent(others, IntentPricing) {
		for _, in := range others {
			if in.Primary == IntentPricing {
				primary = in
				break
			}
		}
	}

	s.Logger.Info("answering message",
		zap.String("user", userID),
		zap.String("intent", primary.Primary),
		zap.String("subcategory", primary.Subcategory),
		zap.Int("intents", len(intents)))

	examples := s.Retrieval.SimilarConversations(ctx, textOnly, primary.Primary)

	system := s.Prompts.Compose(promptInput{
		Primary:       primary,
		Others:        others,
		Examples:      examples,
		ImageAnalyses: imageAnalyses,
		UserID:        userID,
		ContextPhone:  PhoneFromContext(history),
		Now:           s.Now(),
	})

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(system))
	for _, m := range history {
		switch m.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		case "user":
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	temperature := 1.0
	if primary.Primary == IntentPricing && primary.Subcategory == SubQuoteWithImage {
		temperature = 0.3
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(s.Client.DefaultModel),
		Messages:    messages,
		Temperature: openai.Float(temperature),
	}
	if primary.Primary == IntentBooking {
		params.Tools = calendarTools()
	}

	completion, err := s.Client.complete(ctx, params)
	if err != nil {
		s.Logger.Error("completion failed", zap.String("user", userID), zap.Error(err))
		return FallbackReply
	}
	result := parseResult(completion)

	for round := 0; len(result.ToolCalls) > 0 && round < maxToolRounds; round++ {
		s.Logger.Debug("tool call round",
			zap.String("user", userID),
			zap.Int("round", round+1),
			zap.Int("calls", len(result.ToolCalls)))

		params.Messages = append(params.Messages, completion.Choices[0].Message.ToParam())
		for _, call := range result.ToolCalls {
			outcome := s.Executor.Execute(ctx, call, userID)
			params.Messages = append(params.Messages, openai.ToolMessage(outcome, call.ID))
		}

		// After tools have run, steer the model toward summarizing the
		// outcomes instead of replaying the intent prompt.
		params.Messages[0] = openai.SystemMessage(toolFollowupPrompt)
		params.Tools = calendarTools()

		completion, err = s.Client.complete(ctx, params)
		if err != nil {
			s.Logger.Error("tool follow-up completion failed", zap.String("user", userID), zap.Error(err))
			return FallbackReply
		}
		result = parseResult(completion)
	}

	return result.SafeText()
}
