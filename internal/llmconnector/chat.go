package llmconnector

import (
	"context"
	"encoding/json"
	"errors"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/harpou-com/llm-gateway/internal/backend"
	"github.com/harpou-com/llm-gateway/internal/llmerr"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/metrics"
	"github.com/harpou-com/llm-gateway/internal/types"
)

// ChatOptions carries the caller-supplied request shape (spec 6: the
// OpenAI Chat Completions contract v1 fields the gateway actually acts on).
type ChatOptions struct {
	Tools        []types.ToolDefinition
	JSONMode     bool
	SystemPrompt string // when non-empty, prepended/replaces the first system message
}

// ChatResult is the outcome of a non-streaming chat completion.
type ChatResult struct {
	ID             string
	Created        int64
	Model          string // raw model actually used
	BackendUsed    string
	Content        string
	NormalizedJSON any // non-nil only when JSON-mode normalization succeeded
	FinishReason   string
	Attempts       int
	FailedOver     bool
}

// ChatCompletion executes a non-streaming chat completion with failover
// (spec 4.1). The tried-backend set is threaded through an explicit loop
// over the registry in configuration order (design note 9: prefer
// iteration over recursion to keep the tried-set obviously bounded).
func (c *Connector) ChatCompletion(ctx context.Context, modelID string, messages []types.Message, opts ChatOptions) (*ChatResult, *llmerr.Error) {
	resolved, rErr := c.Resolve(modelID)
	if rErr != nil {
		return nil, rErr
	}

	inlined, substituted, err := InlineImages(ctx, messages)
	if err != nil {
		return nil, llmerr.New(llmerr.KindConfigMissing, "multimodal pre-processing failed", err)
	}
	jsonMode := opts.JSONMode && !substituted // spec 4.1: disable JSON mode on substitution

	tried := map[string]bool{}
	current := resolved.Backend
	rawModel := resolved.RawModel

	var lastErr *llmerr.Error
	attempts := 0

	for {
		attempts++
		tried[current.Name] = true

		result, cErr := c.callOnce(ctx, current, rawModel, inlined, opts, jsonMode)
		if cErr == nil {
			result.Attempts = attempts
			result.FailedOver = attempts > 1
			return result, nil
		}

		lastErr = cErr
		if !c.failoverEnabled() || !llmerr.IsFailoverError(cErr) {
			return nil, cErr
		}

		next, ok := c.nextUntried(tried)
		if !ok {
			return nil, lastErr
		}
		L_warn("llmconnector: failing over", "attempt", attempts, "next_backend", next.Name)
		metrics.RecordFailover(current.Name)
		current = next
	}
}

// nextUntried returns the next backend in registry order not yet attempted.
func (c *Connector) nextUntried(tried map[string]bool) (backend.Descriptor, bool) {
	for _, name := range c.registry.OrderedNames() {
		if tried[name] {
			continue
		}
		d, exists := c.registry.Get(name)
		if !exists {
			continue
		}
		return d, true
	}
	return backend.Descriptor{}, false
}

// callOnce performs a single request against one backend, through its
// circuit breaker, and classifies any failure.
func (c *Connector) callOnce(ctx context.Context, d backend.Descriptor, rawModel string, messages []types.Message, opts ChatOptions, jsonMode bool) (*ChatResult, *llmerr.Error) {
	breaker := c.breakerFor(d.Name)

	raw, err := breaker.Execute(func() (interface{}, error) {
		client := c.clientFor(d)
		req := buildRequest(rawModel, messages, opts, jsonMode)
		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, llmerr.New(llmerr.KindConnectionFailed, "circuit breaker open for "+d.Name, err)
		}
		return nil, llmerr.Classify(err)
	}

	resp := raw.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return nil, llmerr.NewUpstream(502, "upstream returned no choices", nil)
	}

	content := resp.Choices[0].Message.Content
	result := &ChatResult{
		ID:           resp.ID,
		Created:      resp.Created,
		Model:        rawModel,
		BackendUsed:  d.Name,
		Content:      content,
		FinishReason: string(resp.Choices[0].FinishReason),
	}

	if jsonMode {
		// spec 4.1: attempt to parse as JSON; parse failure is logged but
		// not fatal — return the raw string (SPEC_FULL.md keeps the
		// original's granular non-fatal handling).
		var parsed any
		if err := json.Unmarshal([]byte(content), &parsed); err == nil {
			result.NormalizedJSON = parsed
		} else {
			L_debug("llmconnector: json-mode content did not parse as JSON, returning raw string", "backend", d.Name)
		}
	}

	return result, nil
}

func buildRequest(rawModel string, messages []types.Message, opts ChatOptions, jsonMode bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    rawModel,
		Messages: toOpenAIMessages(messages, opts.SystemPrompt),
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return req
}

func toOpenAIMessages(messages []types.Message, systemPrompt string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	replaced := false
	for _, m := range messages {
		if systemPrompt != "" && m.Role == "system" && !replaced {
			replaced = true
			continue // replaced, not duplicated (spec 4.3 step 7)
		}
		parts, err := m.Parts()
		if err != nil {
			continue
		}
		if len(parts) == 1 && parts[0].Kind == "text" {
			out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: parts[0].Text})
			continue
		}
		var multi []openai.ChatMessagePart
		for _, p := range parts {
			switch p.Kind {
			case "text":
				multi = append(multi, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: p.Text})
			case "image_url":
				multi = append(multi, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: p.URL},
				})
			}
		}
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, MultiContent: multi})
	}
	return out
}
