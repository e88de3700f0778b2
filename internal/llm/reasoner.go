package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/adviserops/chaser/internal/service"
	"github.com/adviserops/chaser/internal/tools"
)

const (
	// DefaultChatModel is the OpenAI model used for the reasoning loop
	DefaultChatModel = openai.GPT4oMini
)

// ErrNoChoices is returned when the chat completion has no choices
var ErrNoChoices = errors.New("no completion choices returned")

const systemPrompt = `You are the reasoning engine of a chase management system for financial advisers.
You answer questions about a firm's chase book and client base by calling the provided tools.
Call one tool at a time and read its result before deciding the next step.
When you have enough information, reply with a JSON object of the form
{"answer": "<plain-English answer>", "intent": "<one- or two-word label for what the user asked>", "confidence": <0.0-1.0>}
and nothing else. Never invent data the tools did not return.`

// ChatAPI defines the interface for chat completion calls
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Reasoner drives the reasoning loop with OpenAI chat completions and
// function calling. It is stateless: each Decide call rebuilds the full
// transcript from the request's observations.
type Reasoner struct {
	api   ChatAPI
	model string
}

type Config struct {
	APIKey string
	Model  string
}

// NewReasonerWithConfig creates a Reasoner with explicit configuration
func NewReasonerWithConfig(cfg Config) *Reasoner {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	return &Reasoner{
		api:   openai.NewClient(cfg.APIKey),
		model: model,
	}
}

// Decide asks the model for the next step: a tool call or a final answer
func (r *Reasoner) Decide(ctx context.Context, req service.ReasonerRequest) (*service.Decision, error) {
	resp, err := r.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: buildMessages(req),
		Tools:    toolDefinitions(req.Tools),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		return &service.Decision{
			Call: &service.ToolCall{
				Name:      call.Function.Name,
				Arguments: json.RawMessage(call.Function.Arguments),
			},
		}, nil
	}

	return &service.Decision{Final: parseFinalAnswer(msg.Content)}, nil
}

// buildMessages reconstructs the conversation: the system prompt, the user
// query, and one assistant/tool message pair per observation so the model
// sees every result and error from earlier rounds.
func buildMessages(req service.ReasonerRequest) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: req.Query},
	}

	for _, obs := range req.Observations {
		callID := fmt.Sprintf("call_%d", obs.Round)
		if obs.Tool == "" {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: obs.Err,
			})
			continue
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:   callID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      obs.Tool,
					Arguments: string(obs.Arguments),
				},
			}},
		})

		content := obs.Err
		if content == "" {
			encoded, err := json.Marshal(obs.Result)
			if err != nil {
				content = fmt.Sprintf("failed to encode tool result: %v", err)
			} else {
				content = string(encoded)
			}
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			ToolCallID: callID,
			Content:    content,
		})
	}

	return messages
}

// toolDefinitions converts catalog descriptors into OpenAI function tools
func toolDefinitions(descriptors []*tools.Descriptor) []openai.Tool {
	defs := make([]openai.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return defs
}

// parseFinalAnswer decodes the structured answer the system prompt asks for,
// falling back to the raw content when the model answered in prose.
func parseFinalAnswer(content string) *service.FinalAnswer {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var structured struct {
		Answer     string  `json:"answer"`
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(trimmed), &structured); err == nil && structured.Answer != "" {
		confidence := structured.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 0.5
		}
		return &service.FinalAnswer{
			Answer:     structured.Answer,
			Intent:     structured.Intent,
			Confidence: confidence,
		}
	}

	return &service.FinalAnswer{
		Answer:     content,
		Intent:     "answer",
		Confidence: 0.5,
	}
}
