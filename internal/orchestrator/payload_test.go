package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/harpou-com/llm-gateway/internal/principal"
	"github.com/harpou-com/llm-gateway/internal/types"
)

func TestEncodeDecodePayloadRoundTrip(t *testing.T) {
	in := TaskInput{
		Conversation: []types.Message{
			textMsg("user", "what's 2+2?"),
			{Role: "user", RawContent: []byte(`[{"type":"text","text":"and this?"},{"type":"image_url","url":"http://x/img.png"}]`)},
		},
		SID:     "sid-123",
		ModelID: "harpou-agent/openai/gpt-4o",
		Principal: principal.Principal{
			Username:  "alice",
			RateLimit: "100/hour",
		},
	}

	payload, err := EncodePayload(in)
	if err != nil {
		t.Fatalf("EncodePayload() error = %v", err)
	}

	out, err := DecodePayload(payload)
	if err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}

	if out.SID != in.SID || out.ModelID != in.ModelID || out.Principal.Username != in.Principal.Username {
		t.Errorf("DecodePayload() = %+v, want round-trip of %+v", out, in)
	}
	if len(out.Conversation) != len(in.Conversation) {
		t.Fatalf("Conversation len = %d, want %d", len(out.Conversation), len(in.Conversation))
	}
	if out.Conversation[1].Text() != "and this?" {
		t.Errorf("multimodal message text = %q, want %q", out.Conversation[1].Text(), "and this?")
	}
}

// TestEncodeDecodePayloadSurvivesGenericJSONRoundTrip simulates what
// RedisStore does: the map[string]any payload itself gets marshaled and
// unmarshaled as part of storing/loading the wrapping Spec, which would
// mangle a field-by-field encoding but must leave this single-string
// encoding untouched.
func TestEncodeDecodePayloadSurvivesGenericJSONRoundTrip(t *testing.T) {
	in := TaskInput{
		Conversation: []types.Message{textMsg("user", "hello")},
		SID:          "sid-456",
		ModelID:      "openai/gpt-4o",
	}

	payload, err := EncodePayload(in)
	if err != nil {
		t.Fatalf("EncodePayload() error = %v", err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload map: %v", err)
	}
	var reloaded map[string]any
	if err := json.Unmarshal(raw, &reloaded); err != nil {
		t.Fatalf("unmarshal payload map: %v", err)
	}

	out, err := DecodePayload(reloaded)
	if err != nil {
		t.Fatalf("DecodePayload() after generic JSON round trip error = %v", err)
	}
	if out.SID != in.SID || out.ModelID != in.ModelID {
		t.Errorf("DecodePayload() after round trip = %+v, want %+v", out, in)
	}
}

func TestDecodePayloadRejectsMissingDataKey(t *testing.T) {
	if _, err := DecodePayload(map[string]any{"other": "value"}); err == nil {
		t.Error("DecodePayload() should reject a payload missing the \"data\" key")
	}
}
