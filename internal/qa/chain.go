// Package qa answers questions over retrieved document chunks with an
// OpenAI-compatible chat model.
package qa

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/config"
	"github.com/fyrsmithlabs/docqa/internal/logging"
	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

// FallbackAnswer is returned when the retrieved context cannot answer the
// question, and when nothing was retrieved at all.
const FallbackAnswer = "answer is not available in the context"

// maxHistoryTurns bounds how many prior exchanges the prompt carries.
const maxHistoryTurns = 6

var (
	// ErrInvalidConfig indicates invalid chat configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

const systemPrompt = `Answer the question as detailed as possible from the provided context.
If the answer is not in the provided context, say exactly "` + FallbackAnswer + `".
Do not invent information that is not in the context.`

// Exchange is one prior question and answer in a conversation.
type Exchange struct {
	Question string
	Answer   string
}

// Answer is an answered question with the source filenames that grounded it.
type Answer struct {
	Text    string
	Sources []string
}

// ChatModel is the slice of the langchaingo model surface the chain uses.
type ChatModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Chain answers questions grounded in chunks pulled from a Retriever.
type Chain struct {
	model       ChatModel
	temperature float64
	logger      *logging.Logger
}

// NewChain creates a Chain backed by an OpenAI-compatible chat endpoint.
func NewChain(cfg config.ChatConfig, logger *logging.Logger) (*Chain, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}

	apiKey := cfg.APIKey.Value()
	if apiKey == "" {
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}

	return &Chain{
		model:       llm,
		temperature: cfg.Temperature,
		logger:      logger.Named("qa"),
	}, nil
}

// NewChainWithModel creates a Chain over an existing model. Used by tests
// and by callers that manage the client themselves.
func NewChainWithModel(model ChatModel, temperature float64, logger *logging.Logger) *Chain {
	return &Chain{model: model, temperature: temperature, logger: logger.Named("qa")}
}

// Ask retrieves context for the question and generates a grounded answer.
// History is truncated to the most recent turns. When retrieval yields
// nothing the fallback answer is returned without calling the model.
func (c *Chain) Ask(ctx context.Context, question string, retriever vectorstore.Retriever, history []Exchange) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrEmptyQuestion
	}

	results, err := retriever.Retrieve(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieving context: %w", err)
	}
	if len(results) == 0 {
		c.logger.Debug(ctx, "no context retrieved, returning fallback", zap.String("question", question))
		return Answer{Text: FallbackAnswer}, nil
	}

	messages := c.buildMessages(question, results, history)
	resp, err := c.model.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Answer{}, errors.New("model returned no choices")
	}

	return Answer{
		Text:    strings.TrimSpace(resp.Choices[0].Content),
		Sources: sourceFilenames(results),
	}, nil
}

func (c *Chain) buildMessages(question string, results []vectorstore.Result, history []Exchange) []llms.MessageContent {
	var contextBuilder strings.Builder
	for i, r := range results {
		if i > 0 {
			contextBuilder.WriteString("\n\n")
		}
		fmt.Fprintf(&contextBuilder, "[%s]\n%s", r.Filename, r.Text)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt+"\n\nContext:\n"+contextBuilder.String()),
	}

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, turn := range history {
		messages = append(messages,
			llms.TextParts(llms.ChatMessageTypeHuman, turn.Question),
			llms.TextParts(llms.ChatMessageTypeAI, turn.Answer),
		)
	}

	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))
	return messages
}

// sourceFilenames returns the sorted distinct filenames backing the answer.
func sourceFilenames(results []vectorstore.Result) []string {
	seen := make(map[string]struct{})
	for _, r := range results {
		if r.Filename != "" {
			seen[r.Filename] = struct{}{}
		}
	}
	sources := make([]string, 0, len(seen))
	for f := range seen {
		sources = append(sources, f)
	}
	sort.Strings(sources)
	return sources
}
