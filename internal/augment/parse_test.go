package augment

import "testing"

func TestDecodeJSONBlockPlain(t *testing.T) {
	var terms []string
	err := decodeJSONBlock(`["compost", "mulching"]`, &terms)
	if err != nil {
		t.Fatalf("decode plain array: %v", err)
	}
	if len(terms) != 2 || terms[0] != "compost" {
		t.Fatalf("unexpected terms: %v", terms)
	}
}

func TestDecodeJSONBlockFenced(t *testing.T) {
	raw := "```json\n{\"relevance_score\": 0.85, \"practical_value\": \"High\"}\n```"
	var parsed struct {
		RelevanceScore float64 `json:"relevance_score"`
		PracticalValue string  `json:"practical_value"`
	}
	if err := decodeJSONBlock(raw, &parsed); err != nil {
		t.Fatalf("decode fenced object: %v", err)
	}
	if parsed.RelevanceScore != 0.85 || parsed.PracticalValue != "High" {
		t.Fatalf("unexpected parse: %+v", parsed)
	}
}

func TestDecodeJSONBlockWithLeadInProse(t *testing.T) {
	raw := "Here are the suggested tags:\n[\"tomatoes\", \"fertilizer\", \"organic\"]\nHope that helps!"
	var tags []string
	if err := decodeJSONBlock(raw, &tags); err != nil {
		t.Fatalf("decode prose-wrapped array: %v", err)
	}
	if len(tags) != 3 || tags[2] != "organic" {
		t.Fatalf("unexpected tags: %v", tags)
	}
}

func TestDecodeJSONBlockRejectsNonJSON(t *testing.T) {
	var v any
	if err := decodeJSONBlock("I could not process that request.", &v); err == nil {
		t.Fatal("expected error for prose-only response")
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"pest-control":                         "pest-control",
		"  Pest-Control  ":                     "pest-control",
		"\"urban-gardening\"":                  "urban-gardening",
		"The best category is plant-diseases.": "plant-diseases",
		"houseplants":                          "",
		"":                                     "",
	}
	for raw, want := range cases {
		if got := normalizeCategory(raw); got != want {
			t.Errorf("normalizeCategory(%q) = %q, want %q", raw, got, want)
		}
	}
}
