package gemini

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// stripFences removes a surrounding markdown code fence from a model reply,
// with or without a language tag.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", ...).
		first := strings.TrimSpace(trimmed[:idx])
		if len(first) <= 8 && !strings.ContainsAny(first, "{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// unmarshalModelJSON unmarshals a model reply into v, stripping code fences
// first and running the payload through jsonrepair when a plain unmarshal
// hits a syntax error.
func unmarshalModelJSON(text string, v any) error {
	data := []byte(stripFences(text))
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}
