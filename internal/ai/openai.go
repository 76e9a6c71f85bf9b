// Package ai implements the text-generation backend used by the chatbot.
package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const answerInstruction = "You are a helpful assistant that answers questions based on the provided context. " +
	"If the answer is not in the context, say that you don't have enough information to answer the question. " +
	"Keep your answers concise and to the point."

const citeInstruction = answerInstruction +
	" You must cite your sources using [doc_id] notation when you use information from the context. " +
	"Each document has a unique ID that you should include in your citations."

// OpenAI calls the chat completion API with a per-request timeout. All errors
// are returned to the caller; degradation policy lives in the chatbot.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAI(apiKey, model string, timeout time.Duration) *OpenAI {
	return &OpenAI{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// GenerateAnswer answers a question from a plain context string.
func (o *OpenAI) GenerateAnswer(ctx context.Context, question, promptContext string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: answerInstruction},
	}
	if promptContext != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Here is the context to use for answering the question: " + promptContext,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: question,
	})

	return o.complete(ctx, messages, 500)
}

// GenerateAnswerWithSources answers a question from per-document snippets,
// instructing the model to mark used sources with [doc_<id>] tokens. The
// snippets are rendered in ascending document-id order so the prompt is
// deterministic.
func (o *OpenAI) GenerateAnswerWithSources(ctx context.Context, question string, references map[int64]string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: citeInstruction},
	}

	if len(references) > 0 {
		ids := make([]int64, 0, len(references))
		for id := range references {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		var b strings.Builder
		b.WriteString("Here is the context to use for answering the question:\n\n")
		for _, id := range ids {
			fmt.Fprintf(&b, "[doc_%d]: %s\n\n", id, references[id])
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: b.String(),
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: question,
	})

	return o.complete(ctx, messages, 800)
}

func (o *OpenAI) complete(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
