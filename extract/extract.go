// Package extract recovers structured payloads from raw model completions.
//
// Completions rarely arrive as clean JSON. The payload may be wrapped in
// prose or markdown fences, use single quotes, embed unescaped newlines or
// quotes inside file bodies, or stop mid-array when the token budget runs
// out. Extraction walks a fixed ladder of strategies from cheapest to most
// aggressive and returns the first parse that has the expected shape.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slipwaylabs/slipway/project"
)

const (
	filesKey   = "files"
	projectKey = "projectName"
	previewLen = 160
)

// Kind classifies why an extraction failed.
type Kind string

const (
	// NoJSONFound means the response contained no object literal at all.
	NoJSONFound Kind = "no_json_found"
	// ParseError means candidate text was found but never parsed, even
	// after normalization.
	ParseError Kind = "parse_error"
	// TruncatedRecoverable means the payload was cut off and not even one
	// complete entry could be salvaged from it.
	TruncatedRecoverable Kind = "truncated_recoverable"
	// TruncatedUnrecoverable means the payload was cut off and the repaired
	// text still failed to parse.
	TruncatedUnrecoverable Kind = "truncated_unrecoverable"
)

// Error reports a failed extraction with a bounded preview of the offending
// response. The preview is for logs only; retry prompts never include it.
type Error struct {
	Kind    Kind
	Preview string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction failed (%s): %s", e.Kind, e.Preview)
}

func preview(s string) string {
	return project.Truncate(strings.TrimSpace(s), previewLen)
}

// Files recovers the generated file collection from a raw completion.
//
// Strategies, in order: parse the whole trimmed response; parse the first
// brace-matched object literal keyed by "files"; parse each fenced code
// block; repair a truncated payload by dropping its trailing incomplete
// entry; parse the span between the outermost braces. Every candidate is
// normalized before parsing. The first strategy that yields the expected
// shape wins.
func Files(raw string) (project.Collection, error) {
	trimmed := strings.TrimSpace(raw)
	if files, ok := parseFiles(Normalize(trimmed)); ok {
		return files, nil
	}

	start, end, closed, found := objectSpan(raw, filesKey)
	if found && closed {
		if files, ok := parseFiles(Normalize(raw[start:end])); ok {
			return files, nil
		}
	}

	for _, block := range fencedBlocks(raw) {
		body := strings.TrimSpace(block)
		if !strings.HasPrefix(body, "{") {
			continue
		}
		if files, ok := parseFiles(Normalize(body)); ok {
			return files, nil
		}
	}

	candidate := trimmed
	if found {
		candidate = raw[start:]
		if closed {
			candidate = raw[start:end]
		}
	}
	var truncKind Kind
	if endsTruncated(candidate) {
		if repaired, ok := repairFiles(candidate); ok {
			if files, ok := parseFiles(Normalize(repaired)); ok {
				return files, nil
			}
			truncKind = TruncatedUnrecoverable
		} else {
			truncKind = TruncatedRecoverable
		}
	}

	if cut, ok := braceTrim(raw); ok {
		if files, ok := parseFiles(Normalize(cut)); ok {
			return files, nil
		}
	}

	switch {
	case truncKind != "":
		return nil, &Error{Kind: truncKind, Preview: preview(candidate)}
	case !strings.ContainsRune(raw, '{'):
		return nil, &Error{Kind: NoJSONFound, Preview: preview(trimmed)}
	default:
		return nil, &Error{Kind: ParseError, Preview: preview(trimmed)}
	}
}

// Manifest recovers the project plan from a raw completion. The plan payload
// is small enough that truncation repair would never leave anything usable,
// so that strategy is skipped.
func Manifest(raw string) (*project.Manifest, error) {
	trimmed := strings.TrimSpace(raw)
	if m, ok := parseManifest(Normalize(trimmed)); ok {
		return m, nil
	}

	start, end, closed, found := objectSpan(raw, projectKey)
	if found && closed {
		if m, ok := parseManifest(Normalize(raw[start:end])); ok {
			return m, nil
		}
	}

	for _, block := range fencedBlocks(raw) {
		body := strings.TrimSpace(block)
		if !strings.HasPrefix(body, "{") {
			continue
		}
		if m, ok := parseManifest(Normalize(body)); ok {
			return m, nil
		}
	}

	if cut, ok := braceTrim(raw); ok {
		if m, ok := parseManifest(Normalize(cut)); ok {
			return m, nil
		}
	}

	if !strings.ContainsRune(raw, '{') {
		return nil, &Error{Kind: NoJSONFound, Preview: preview(trimmed)}
	}
	return nil, &Error{Kind: ParseError, Preview: preview(trimmed)}
}

type filesEnvelope struct {
	Files json.RawMessage `json:"files"`
}

// parseFiles accepts only objects that carry a files array. Responses often
// contain other JSON-shaped fragments, so anything without the expected key
// is rejected rather than silently read as an empty collection.
func parseFiles(s string) (project.Collection, bool) {
	var env filesEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, false
	}
	body := bytes.TrimSpace(env.Files)
	if len(body) == 0 || body[0] != '[' {
		return nil, false
	}
	var files []project.File
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, false
	}
	return project.Collection(files), true
}

type manifestEnvelope struct {
	ProjectName *string            `json:"projectName"`
	Stack       project.Stack      `json:"stack"`
	FileSpecs   []project.FileSpec `json:"fileSpecs"`
	Features    []string           `json:"features"`
}

func parseManifest(s string) (*project.Manifest, bool) {
	var env manifestEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, false
	}
	if env.ProjectName == nil {
		return nil, false
	}
	return &project.Manifest{
		ProjectName: *env.ProjectName,
		Stack:       env.Stack,
		FileSpecs:   env.FileSpecs,
		Features:    env.Features,
	}, true
}

// repairFiles cuts a truncated files payload back to its last fully closed
// entry and closes the array and object. It never invents content: when no
// complete entry survives, ok is false. Entry boundaries come from the
// string-aware brace scanner, so "}," sequences inside file bodies do not
// split an entry.
func repairFiles(candidate string) (string, bool) {
	arr := arrayStart(candidate, filesKey)
	if arr < 0 {
		return "", false
	}
	last := -1
	i := arr + 1
scan:
	for i < len(candidate) {
		i = skipSpace(candidate, i)
		if i >= len(candidate) {
			break
		}
		switch candidate[i] {
		case ']':
			// The array survived; only the outer object is open. Anything
			// after the bracket was cut off mid-field and is dropped.
			return candidate[:i+1] + "}", true
		case ',':
			i++
		case '{':
			end, ok := matchBrace(candidate, i)
			if !ok {
				break scan
			}
			last = end
			i = end
		default:
			break scan
		}
	}
	if last < 0 {
		return "", false
	}
	return candidate[:last] + "]}", true
}
