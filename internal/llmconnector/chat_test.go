package llmconnector

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harpou-com/llm-gateway/internal/types"
)

func textMessage(role, text string) types.Message {
	return types.Message{Role: role, RawContent: []byte(`"` + text + `"`)}
}

func TestToOpenAIMessagesPlainText(t *testing.T) {
	messages := []types.Message{textMessage("user", "hi")}
	out := toOpenAIMessages(messages, "")
	if len(out) != 1 || out[0].Role != "user" || out[0].Content != "hi" {
		t.Errorf("toOpenAIMessages() = %+v", out)
	}
}

func TestToOpenAIMessagesSystemPromptReplacesOriginalSystemMessage(t *testing.T) {
	messages := []types.Message{
		textMessage("system", "old system prompt"),
		textMessage("user", "hello"),
	}
	out := toOpenAIMessages(messages, "new system prompt")

	if len(out) != 2 {
		t.Fatalf("toOpenAIMessages() len = %d, want 2 (replaced, not duplicated)", len(out))
	}
	if out[0].Role != openai.ChatMessageRoleSystem || out[0].Content != "new system prompt" {
		t.Errorf("first message = %+v, want the injected system prompt", out[0])
	}
	if out[1].Content != "hello" {
		t.Errorf("second message = %+v, want the user message preserved", out[1])
	}
}

func TestToOpenAIMessagesMultimodal(t *testing.T) {
	messages := []types.Message{
		{Role: "user", RawContent: []byte(`[{"type":"text","text":"describe"},{"type":"image_url","url":"data:image/png;base64,Zm9v"}]`)},
	}
	out := toOpenAIMessages(messages, "")
	if len(out) != 1 {
		t.Fatalf("toOpenAIMessages() len = %d, want 1", len(out))
	}
	if len(out[0].MultiContent) != 2 {
		t.Fatalf("MultiContent len = %d, want 2", len(out[0].MultiContent))
	}
	if out[0].MultiContent[0].Type != openai.ChatMessagePartTypeText {
		t.Errorf("first part type = %v, want text", out[0].MultiContent[0].Type)
	}
	if out[0].MultiContent[1].Type != openai.ChatMessagePartTypeImageURL {
		t.Errorf("second part type = %v, want image_url", out[0].MultiContent[1].Type)
	}
}

func TestBuildRequestJSONMode(t *testing.T) {
	req := buildRequest("gpt-4o", []types.Message{textMessage("user", "hi")}, ChatOptions{}, true)
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Error("buildRequest() with jsonMode=true should set JSON response format")
	}

	req2 := buildRequest("gpt-4o", []types.Message{textMessage("user", "hi")}, ChatOptions{}, false)
	if req2.ResponseFormat != nil {
		t.Error("buildRequest() with jsonMode=false should leave ResponseFormat nil")
	}
}
