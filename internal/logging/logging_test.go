package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestHasFmtVerb(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"plain message", false},
		{"value is %d", true},
		{"literal percent %%", false},
		{"%s and %v", true},
		{"trailing percent %", false},
		{"loaded config", false},
	}
	for _, tt := range tests {
		if got := hasFmtVerb(tt.s); got != tt.want {
			t.Errorf("hasFmtVerb(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestAuditRequestWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetAuditWriter(&buf)
	defer SetAuditWriter(os.Stdout)

	AuditRequest("req-1", map[string]string{"model": "gpt-4o"}, map[string][]string{"Authorization": {"Bearer x"}})

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("AuditRequest() did not write valid JSON: %v (line=%q)", err, line)
	}
	if decoded["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want %q", decoded["request_id"], "req-1")
	}
	if decoded["type"] != "request" {
		t.Errorf("type = %v, want %q", decoded["type"], "request")
	}
}

func TestAuditResponseWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetAuditWriter(&buf)
	defer SetAuditWriter(os.Stdout)

	AuditResponse("req-2", map[string]string{"status": "ok"}, 200)

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("AuditResponse() did not write valid JSON: %v (line=%q)", err, line)
	}
	if decoded["request_id"] != "req-2" {
		t.Errorf("request_id = %v, want %q", decoded["request_id"], "req-2")
	}
	if decoded["status_code"].(float64) != 200 {
		t.Errorf("status_code = %v, want 200", decoded["status_code"])
	}
}

func TestSetLevelAndGetLevel(t *testing.T) {
	SetLevel(LevelDebug)
	if GetLevel() != LevelDebug {
		t.Errorf("GetLevel() = %d, want %d", GetLevel(), LevelDebug)
	}
	SetLevel(LevelInfo)
	if GetLevel() != LevelInfo {
		t.Errorf("GetLevel() = %d, want %d", GetLevel(), LevelInfo)
	}
}
