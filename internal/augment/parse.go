package augment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSONBlock unmarshals a model response into v. Models often wrap
// JSON in markdown fences or lead-in prose, so this strips fences and, if
// plain decoding still fails, retries from the first '{' or '['.
func decodeJSONBlock(raw string, v any) error {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON in model response")
	}
	end := strings.LastIndexAny(text, "}]")
	if end < start {
		return fmt.Errorf("unterminated JSON in model response")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}
