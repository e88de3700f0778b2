package llm

import (
	"context"
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adviserops/chaser/internal/service"
	"github.com/adviserops/chaser/internal/tools"
)

// fakeChatAPI returns a canned response and records the request it received
type fakeChatAPI struct {
	response openai.ChatCompletionResponse
	err      error
	requests []openai.ChatCompletionRequest
}

func (f *fakeChatAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return f.response, nil
}

func chatResponse(msg openai.ChatCompletionMessage) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: msg}},
	}
}

func testDescriptors() []*tools.Descriptor {
	return []*tools.Descriptor{
		{
			Name:        "list_items_needing_chase",
			Description: "List open chase items",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
			Invoke: func(context.Context, string, json.RawMessage) (any, error) {
				return nil, nil
			},
		},
	}
}

func TestReasoner_Decide_ToolCall(t *testing.T) {
	api := &fakeChatAPI{response: chatResponse(openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:   "call_1",
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      "list_items_needing_chase",
				Arguments: `{"chase_type":"authorization_request"}`,
			},
		}},
	})}
	reasoner := &Reasoner{api: api, model: DefaultChatModel}

	decision, err := reasoner.Decide(context.Background(), service.ReasonerRequest{
		Query: "what needs chasing?",
		Tools: testDescriptors(),
	})

	require.NoError(t, err)
	require.NotNil(t, decision.Call)
	assert.Nil(t, decision.Final)
	assert.Equal(t, "list_items_needing_chase", decision.Call.Name)
	assert.JSONEq(t, `{"chase_type":"authorization_request"}`, string(decision.Call.Arguments))

	// The tool catalog is offered to the model as function definitions.
	require.Len(t, api.requests, 1)
	require.Len(t, api.requests[0].Tools, 1)
	assert.Equal(t, "list_items_needing_chase", api.requests[0].Tools[0].Function.Name)
}

func TestReasoner_Decide_StructuredAnswer(t *testing.T) {
	api := &fakeChatAPI{response: chatResponse(openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: `{"answer": "Three authority requests are overdue.", "intent": "chase status", "confidence": 0.85}`,
	})}
	reasoner := &Reasoner{api: api, model: DefaultChatModel}

	decision, err := reasoner.Decide(context.Background(), service.ReasonerRequest{
		Query: "what needs chasing?",
		Tools: testDescriptors(),
	})

	require.NoError(t, err)
	require.NotNil(t, decision.Final)
	assert.Nil(t, decision.Call)
	assert.Equal(t, "Three authority requests are overdue.", decision.Final.Answer)
	assert.Equal(t, "chase status", decision.Final.Intent)
	assert.InDelta(t, 0.85, decision.Final.Confidence, 0.001)
}

func TestReasoner_Decide_FencedAnswer(t *testing.T) {
	api := &fakeChatAPI{response: chatResponse(openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: "```json\n{\"answer\": \"Nothing is overdue.\", \"intent\": \"chase status\", \"confidence\": 0.9}\n```",
	})}
	reasoner := &Reasoner{api: api, model: DefaultChatModel}

	decision, err := reasoner.Decide(context.Background(), service.ReasonerRequest{Query: "anything overdue?"})

	require.NoError(t, err)
	require.NotNil(t, decision.Final)
	assert.Equal(t, "Nothing is overdue.", decision.Final.Answer)
}

func TestReasoner_Decide_ProseFallback(t *testing.T) {
	api := &fakeChatAPI{response: chatResponse(openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: "Everything looks fine, no chases outstanding.",
	})}
	reasoner := &Reasoner{api: api, model: DefaultChatModel}

	decision, err := reasoner.Decide(context.Background(), service.ReasonerRequest{Query: "anything overdue?"})

	require.NoError(t, err)
	require.NotNil(t, decision.Final)
	assert.Equal(t, "Everything looks fine, no chases outstanding.", decision.Final.Answer)
	assert.Equal(t, "answer", decision.Final.Intent)
	assert.InDelta(t, 0.5, decision.Final.Confidence, 0.001)
}

func TestReasoner_Decide_ReplaysObservations(t *testing.T) {
	api := &fakeChatAPI{response: chatResponse(openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: `{"answer": "Done.", "intent": "chase status", "confidence": 0.8}`,
	})}
	reasoner := &Reasoner{api: api, model: DefaultChatModel}

	_, err := reasoner.Decide(context.Background(), service.ReasonerRequest{
		Query: "what needs chasing?",
		Tools: testDescriptors(),
		Observations: []service.Observation{
			{
				Round:     1,
				Tool:      "list_items_needing_chase",
				Arguments: json.RawMessage(`{}`),
				Result:    []string{"item-1", "item-2"},
			},
			{
				Round:     2,
				Tool:      "find_stuck_items",
				Arguments: json.RawMessage(`{}`),
				Err:       "[TOOL_EXECUTION] backend unavailable",
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	messages := api.requests[0].Messages

	// system + user + two assistant/tool pairs
	require.Len(t, messages, 6)
	assert.Equal(t, openai.ChatMessageRoleSystem, messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, messages[1].Role)

	assert.Equal(t, openai.ChatMessageRoleAssistant, messages[2].Role)
	require.Len(t, messages[2].ToolCalls, 1)
	assert.Equal(t, "list_items_needing_chase", messages[2].ToolCalls[0].Function.Name)
	assert.Equal(t, openai.ChatMessageRoleTool, messages[3].Role)
	assert.JSONEq(t, `["item-1","item-2"]`, messages[3].Content)

	// Errors flow back as tool content so the model can recover.
	assert.Equal(t, openai.ChatMessageRoleTool, messages[5].Role)
	assert.Contains(t, messages[5].Content, "TOOL_EXECUTION")
}

func TestReasoner_Decide_APIError(t *testing.T) {
	api := &fakeChatAPI{err: assert.AnError}
	reasoner := &Reasoner{api: api, model: DefaultChatModel}

	_, err := reasoner.Decide(context.Background(), service.ReasonerRequest{Query: "what needs chasing?"})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestReasoner_Decide_NoChoices(t *testing.T) {
	api := &fakeChatAPI{response: openai.ChatCompletionResponse{}}
	reasoner := &Reasoner{api: api, model: DefaultChatModel}

	_, err := reasoner.Decide(context.Background(), service.ReasonerRequest{Query: "what needs chasing?"})
	assert.ErrorIs(t, err, ErrNoChoices)
}
