// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Recovery passes for near-miss JSON. Providers intermittently return
// fenced blocks, doubled braces, trailing commas, bare keys, single-quoted
// strings, or raw control characters even when asked for strict JSON output.
var (
	fenceRE         = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
	braceRE         = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaRE = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRE       = regexp.MustCompile(`([{,])\s*(\w+)\s*:`)
	sqValueRE       = regexp.MustCompile(`:\s*'([^']*)'`)
	sqListOpenRE    = regexp.MustCompile(`\[\s*'([^']*)'`)
	sqListSepRE     = regexp.MustCompile(`',\s*'`)
	sqListCloseRE   = regexp.MustCompile(`'\s*\]`)
	stringSpanRE    = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
	controlRE       = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
	whitespaceRE    = regexp.MustCompile(`\s+`)
)

// ExtractJSON recovers a best-effort JSON candidate from raw model output.
// It is deterministic, does no I/O, and always returns something; whether
// the candidate actually parses is the validator's problem.
//
// The passes run in a fixed order, each on the output of the previous:
// fence/brace isolation, trim, doubled-brace collapse, trailing-comma
// removal, bare-key quoting, single-quote normalization, in-string
// whitespace escaping, and a last-resort control-character sweep.
func ExtractJSON(raw string) string {
	candidate := raw
	if m := fenceRE.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	} else if m := braceRE.FindString(raw); m != "" {
		candidate = m
	}
	candidate = strings.TrimSpace(candidate)

	// Some providers double-wrap the object: {{...}}. A leading "{{" is
	// never valid JSON (the first key must be quoted), so collapsing one
	// brace from each end is safe.
	if strings.HasPrefix(candidate, "{{") && strings.HasSuffix(candidate, "}}") {
		candidate = strings.TrimSpace(candidate[1 : len(candidate)-1])
	}

	candidate = trailingCommaRE.ReplaceAllString(candidate, "${1}")

	// Quote bare keys: {key: 1, other: 2} -> {"key": 1, "other": 2}.
	// Known hazard: a word followed by a colon inside an already-quoted
	// value also matches when it happens to follow a brace or comma.
	candidate = bareKeyRE.ReplaceAllString(candidate, `${1}"${2}":`)

	// Normalize single-quoted values and list items. Scoped to value and
	// list positions so apostrophes inside double-quoted text survive.
	candidate = sqValueRE.ReplaceAllString(candidate, `: "${1}"`)
	candidate = sqListOpenRE.ReplaceAllString(candidate, `["${1}"`)
	candidate = sqListSepRE.ReplaceAllString(candidate, `", "`)
	candidate = sqListCloseRE.ReplaceAllString(candidate, `"]`)

	// Escape raw newlines, carriage returns, and tabs inside string spans.
	candidate = stringSpanRE.ReplaceAllStringFunc(candidate, escapeSpanWhitespace)

	if json.Valid([]byte(candidate)) {
		return candidate
	}

	// Still broken: sweep control characters and collapse whitespace.
	// Returned regardless of whether it parses now; the caller's parse
	// attempt surfaces the failure.
	candidate = controlRE.ReplaceAllString(candidate, " ")
	return whitespaceRE.ReplaceAllString(candidate, " ")
}

func escapeSpanWhitespace(span string) string {
	content := span[1 : len(span)-1]
	content = strings.ReplaceAll(content, "\n", `\n`)
	content = strings.ReplaceAll(content, "\r", `\r`)
	content = strings.ReplaceAll(content, "\t", `\t`)
	return `"` + content + `"`
}
