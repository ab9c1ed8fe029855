package classify

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractJSONFencedBlock(t *testing.T) {
	raw := "Here is the classification you asked for:\n" +
		"```json\n{\"summary\": \"A study of attention.\", \"key_points\": [\"a\", \"b\"], \"methods\": \"ablation\", \"paper_type\": \"empirical\"}\n```\n" +
		"Let me know if you need anything else."

	candidate := ExtractJSON(raw)

	var got map[string]any
	if err := json.Unmarshal([]byte(candidate), &got); err != nil {
		t.Fatalf("candidate does not parse: %v\ncandidate: %s", err, candidate)
	}
	if got["summary"] != "A study of attention." {
		t.Errorf("summary = %v, want %q", got["summary"], "A study of attention.")
	}
	if got["paper_type"] != "empirical" {
		t.Errorf("paper_type = %v, want empirical", got["paper_type"])
	}
}

func TestExtractJSONRecoveryPasses(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "untagged fence",
			raw:  "```\n{\"a\": 1}\n```",
		},
		{
			name: "prose around bare object",
			raw:  "Sure! The result is {\"a\": 1} as requested.",
		},
		{
			name: "doubled braces",
			raw:  "{{\"a\": 1}}",
		},
		{
			name: "trailing commas",
			raw:  `{"a": [1, 2,], "b": 3,}`,
		},
		{
			name: "unquoted keys",
			raw:  `{a: 1, key_points: [2]}`,
		},
		{
			name: "single-quoted values",
			raw:  `{"reasoning": 'fits the catalog', "tags": ['foundational']}`,
		},
		{
			name: "raw newline inside string",
			raw:  "{\"summary\": \"line one\nline two\"}",
		},
		{
			name: "raw tab inside string",
			raw:  "{\"summary\": \"col one\tcol two\"}",
		},
		{
			name: "trailing comma with unquoted keys and single quotes",
			raw:  `{collections: ['ML'], tags: [], confidence: 0.9, reasoning: 'it fits',}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := ExtractJSON(tt.raw)
			if !json.Valid([]byte(candidate)) {
				t.Errorf("candidate is not valid JSON:\nraw: %s\ncandidate: %s", tt.raw, candidate)
			}
		})
	}
}

func TestExtractJSONPreservesApostrophes(t *testing.T) {
	raw := `{"reasoning": "the paper's method is standard"}`
	candidate := ExtractJSON(raw)

	var got map[string]string
	if err := json.Unmarshal([]byte(candidate), &got); err != nil {
		t.Fatalf("candidate does not parse: %v", err)
	}
	if got["reasoning"] != "the paper's method is standard" {
		t.Errorf("reasoning = %q, apostrophe was mangled", got["reasoning"])
	}
}

func TestExtractJSONNeverFails(t *testing.T) {
	// Unparseable input still yields a candidate; the parse attempt
	// downstream surfaces the failure.
	tests := []string{
		"",
		"no json here at all",
		"{\"broken\": ",
		"\x00\x01\x02 {]",
	}
	for _, raw := range tests {
		candidate := ExtractJSON(raw)
		if strings.ContainsAny(candidate, "\x00\x01\x02") {
			t.Errorf("control characters survived the final sweep: %q", candidate)
		}
	}
}

func TestExtractJSONControlCharacterSweep(t *testing.T) {
	// An unparseable candidate gets control characters stripped and
	// whitespace collapsed on the way out.
	raw := "{\"a\": \x01\x02 broken   here"
	candidate := ExtractJSON(raw)
	if strings.Contains(candidate, "\x01") {
		t.Errorf("control character survived: %q", candidate)
	}
	if strings.Contains(candidate, "  ") {
		t.Errorf("whitespace not collapsed: %q", candidate)
	}
}

// The bare-key quoting pass cannot tell a real bare key from a key-like
// substring inside an already-quoted value. This pins the current behavior
// rather than fixing it; the stage loop treats the resulting parse failure
// as a retryable bad sample.
func TestExtractJSONBareKeyHazard(t *testing.T) {
	raw := `{"tags": ["a"], "reasoning": "commas, inside: values break"}`
	candidate := ExtractJSON(raw)
	if json.Valid([]byte(candidate)) {
		t.Fatalf("expected the bare-key pass to mangle this input; candidate: %s", candidate)
	}
	if !strings.Contains(candidate, `"inside":`) {
		t.Errorf("expected the key-like substring to be quoted: %s", candidate)
	}
}
