package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements agent.ChatClient for OpenAI's GPT models.
// It provides streaming completions, tool/function calling, vision support, and
// automatic retry logic for production use.
//
// Key Differences from the Anthropic provider:
//   - System messages are included in the messages array (not separate)
//   - Tool calls stream incrementally and must be accumulated
//   - Vision support uses multi-content message format
//   - Tool results each arrive as their own "tool" role message
//
// Thread Safety:
// OpenAIProvider is safe for concurrent use across multiple goroutines.
// Each Complete() call creates an independent stream and goroutine.
type OpenAIProvider struct {
	// client is the underlying OpenAI SDK client used for API calls.
	client *openai.Client

	// apiKey stores the OpenAI API key for authentication.
	apiKey string

	// maxRetries defines the maximum number of retry attempts for failed requests.
	maxRetries int

	// retryDelay is the base delay between retry attempts (linear backoff).
	retryDelay time.Duration
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// If an empty API key is provided, the provider will be created but Complete()
// will return an error when called. This allows for delayed configuration.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	if apiKey == "" {
		return &OpenAIProvider{
			apiKey:     "",
			maxRetries: 3,
			retryDelay: time.Second,
		}
	}

	return &OpenAIProvider{
		client:     openai.NewClient(apiKey),
		apiKey:     apiKey,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Name returns the provider identifier used for routing and logging.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Models returns the list of available GPT models with their capabilities.
//
// Current Models:
//   - GPT-4o: Latest multimodal model (128K context, vision)
//   - GPT-4 Turbo: Fast GPT-4 variant (128K context, vision)
//   - GPT-3.5 Turbo: Cost-effective for simple tasks (16K context, no vision)
//   - GPT-4: Original GPT-4 (8K context, no vision)
func (p *OpenAIProvider) Models() []agent.Model {
	return []agent.Model{
		{
			ID:             "gpt-4o",
			Name:           "GPT-4o",
			ContextSize:    128000,
			SupportsVision: true,
		},
		{
			ID:             "gpt-4-turbo",
			Name:           "GPT-4 Turbo",
			ContextSize:    128000,
			SupportsVision: true,
		},
		{
			ID:             "gpt-3.5-turbo",
			Name:           "GPT-3.5 Turbo",
			ContextSize:    16385,
			SupportsVision: false,
		},
		{
			ID:             "gpt-4",
			Name:           "GPT-4",
			ContextSize:    8192,
			SupportsVision: false,
		},
	}
}

// SupportsTools indicates whether this provider supports tool/function calling.
func (p *OpenAIProvider) SupportsTools() bool {
	return true
}

// Complete sends a completion request to GPT and returns a streaming response channel.
//
// OpenAI Streaming Specifics:
//   - Tool calls arrive incrementally (ID, name, args streamed separately)
//   - Must accumulate tool arguments across multiple delta chunks
//   - Tool calls complete when FinishReason is "tool_calls"
//   - Multiple tool calls can be in progress simultaneously (tracked by index)
func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	if p.client == nil {
		return nil, errors.New("OpenAI API key not configured")
	}

	messages, err := p.convertToOpenAIMessages(req.Messages, req.System)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	}

	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	if len(req.Tools) > 0 {
		chatReq.Tools = p.convertToOpenAITools(req.Tools)
	}

	var stream *openai.ChatCompletionStream
	var lastErr error

	// Linear backoff retry loop (delay increases linearly: 0s, 1s, 2s, 3s)
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}

		stream, lastErr = p.client.CreateChatCompletionStream(ctx, chatReq)
		if lastErr == nil {
			break
		}

		if !p.isRetryableError(lastErr) {
			return nil, fmt.Errorf("non-retryable error: %w", lastErr)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	}

	chunks := make(chan *agent.CompletionChunk)
	go p.processStream(ctx, stream, chunks)

	return chunks, nil
}

// processStream processes OpenAI's streaming response and converts to internal format.
//
// Tool Call Accumulation:
// OpenAI streams tool calls incrementally across multiple chunks:
//  1. First chunk contains ID and function name
//  2. Subsequent chunks contain argument fragments (streamed JSON)
//  3. FinishReason "tool_calls" signals all tool calls are complete
//  4. Multiple tool calls can be in progress (tracked by index in map)
func (p *OpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *agent.CompletionChunk) {
	defer close(chunks)
	defer stream.Close()

	// Map key is the tool call index (OpenAI can return multiple tool calls)
	toolCalls := make(map[int]*models.ToolCall)

	for {
		select {
		case <-ctx.Done():
			chunks <- &agent.CompletionChunk{Error: ctx.Err(), Done: true}
			return
		default:
		}

		response, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				for _, tc := range toolCalls {
					if tc.ID != "" && tc.Name != "" {
						chunks <- &agent.CompletionChunk{ToolCall: tc}
					}
				}
				chunks <- &agent.CompletionChunk{Done: true}
				return
			}
			chunks <- &agent.CompletionChunk{Error: err, Done: true}
			return
		}

		if len(response.Choices) == 0 {
			continue
		}

		delta := response.Choices[0].Delta

		if delta.Content != "" {
			chunks <- &agent.CompletionChunk{Text: delta.Content}
		}

		if len(delta.ToolCalls) > 0 {
			for _, tc := range delta.ToolCalls {
				index := 0
				if tc.Index != nil {
					index = *tc.Index
				}

				if toolCalls[index] == nil {
					toolCalls[index] = &models.ToolCall{}
				}

				if tc.ID != "" {
					toolCalls[index].ID = tc.ID
				}
				if tc.Function.Name != "" {
					toolCalls[index].Name = tc.Function.Name
				}
				if tc.Function.Arguments != "" {
					var currentArgs string
					if toolCalls[index].Arguments != nil {
						currentArgs = string(toolCalls[index].Arguments)
					}
					currentArgs += tc.Function.Arguments
					toolCalls[index].Arguments = json.RawMessage(currentArgs)
				}
			}
		}

		if response.Choices[0].FinishReason == "tool_calls" {
			for _, tc := range toolCalls {
				if tc.ID != "" && tc.Name != "" {
					chunks <- &agent.CompletionChunk{ToolCall: tc}
				}
			}
			toolCalls = make(map[int]*models.ToolCall)
		}
	}
}

// convertToOpenAIMessages converts the task's transcript to OpenAI API format.
//
// OpenAI Format Specifics:
//   - System message is part of the messages array (unlike Anthropic)
//   - Tool results each arrive as their own Role=tool message already, so
//     they map to OpenAI's role="tool" message one-to-one
//   - Vision uses the MultiContent field instead of a plain Content string
func (p *OpenAIProvider) convertToOpenAIMessages(messages []models.Message, system string) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleTool:
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
			continue

		case models.RoleAssistant:
			oaiMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			if len(msg.ToolCalls) > 0 {
				oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					oaiMsg.ToolCalls[i] = openai.ToolCall{
						ID:   tc.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      tc.Name,
							Arguments: string(tc.Arguments),
						},
					}
				}
			}
			result = append(result, oaiMsg)

		default:
			oaiMsg := openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleUser,
			}
			if len(msg.Images) > 0 {
				contentParts := make([]openai.ChatMessagePart, 0, len(msg.Images)+1)
				if msg.Content != "" {
					contentParts = append(contentParts, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: msg.Content,
					})
				}
				for _, img := range msg.Images {
					if img.URL == "" {
						continue
					}
					contentParts = append(contentParts, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    img.URL,
							Detail: openai.ImageURLDetailAuto,
						},
					})
				}
				oaiMsg.MultiContent = contentParts
			} else {
				oaiMsg.Content = msg.Content
			}
			result = append(result, oaiMsg)
		}
	}

	return result, nil
}

// convertToOpenAITools converts the cycle's visible tool schemas to OpenAI's
// function-calling format.
//
// Error Handling:
// If a tool's schema is invalid JSON, it's replaced with an empty object
// schema so one bad tool doesn't break function calling for the rest.
func (p *OpenAIProvider) convertToOpenAITools(tools []agent.ToolSchema) []openai.Tool {
	result := make([]openai.Tool, len(tools))

	for i, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.Parameters, &schemaMap); err != nil {
			schemaMap = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}
		}

		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schemaMap,
			},
		}
	}

	return result
}

// isRetryableError determines if an error should trigger a retry attempt.
//
// Retryable Error Categories:
//   - Rate limits: "rate limit", "429"
//   - Server errors: "500", "502", "503", "504"
//   - Timeouts: "timeout", "deadline exceeded"
func (p *OpenAIProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()

	if contains(errMsg, "rate limit") || contains(errMsg, "429") {
		return true
	}

	if contains(errMsg, "500") || contains(errMsg, "502") || contains(errMsg, "503") || contains(errMsg, "504") {
		return true
	}

	if contains(errMsg, "timeout") || contains(errMsg, "deadline exceeded") {
		return true
	}

	return false
}

// contains checks if s contains substr (case-sensitive).
func contains(s, substr string) bool {
	return len(s) >= len(substr) &&
		(s == substr || len(s) > len(substr) &&
			(findSubstring(s, substr) >= 0))
}

// findSubstring finds the first occurrence of substr in s, or -1.
func findSubstring(s, substr string) int {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
