package gemini

import (
	"context"
	"testing"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced with tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
		{"fence glued to payload", "```{\"a\":1}```", `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := stripFences(tc.in)
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestUnmarshalModelJSON(t *testing.T) {
	var out struct {
		Word string `json:"word"`
	}

	if err := unmarshalModelJSON("```json\n{\"word\": \"logos\"}\n```", &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out.Word != "logos" {
		t.Errorf("Expected %q, got %q", "logos", out.Word)
	}

	// Trailing comma is repairable.
	if err := unmarshalModelJSON(`{"word": "logos",}`, &out); err != nil {
		t.Errorf("Expected repair to succeed, got %v", err)
	}

	// Not JSON at all is a hard failure.
	if err := unmarshalModelJSON("sorry, I cannot do that", &out); err == nil {
		t.Error("Expected error for non-JSON reply, got nil")
	}
}

func TestUnmarshalModelJSON_AlignmentSegments(t *testing.T) {
	reply := "```json\n" + `[
		{"translatedWord": "In the beginning", "originalWord": "בְּרֵאשִׁית", "startTimeMs": 0, "endTimeMs": 820},
		{"translatedWord": "created", "originalWord": "בָּרָא", "startTimeMs": 820, "endTimeMs": 1500}
	]` + "\n```"

	var segments []AlignmentSegment
	if err := unmarshalModelJSON(reply, &segments); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segments))
	}
	if segments[0].StartTimeMS != 0 || segments[1].StartTimeMS != segments[0].EndTimeMS {
		t.Errorf("Expected contiguous segments, got %+v", segments)
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New(context.Background(), "")
	if err != ErrMissingAPIKey {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
}
