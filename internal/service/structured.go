package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// tagsAndDescriptionSchema is the shape expected from tagsAndDescription
// replies. Tags may be bare names or {"name": ...} objects.
const tagsAndDescriptionSchema = `{
  "type": "object",
  "properties": {
    "description": {"type": "string"},
    "tags": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {
          "anyOf": [
            {"type": "string"},
            {"type": "object", "properties": {"name": {"type": "string"}}, "required": ["name"]}
          ]
        }
      }
    }
  }
}`

var compiledTagsSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tags.json", strings.NewReader(tagsAndDescriptionSchema)); err != nil {
		return nil, fmt.Errorf("failed to load tags schema: %w", err)
	}
	return compiler.Compile("tags.json")
})

// parseStructuredJSON parses JSON from model output, with lightweight recovery
// for markdown code fences and surrounding text.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONObject(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}
	return nil, fmt.Errorf("failed to parse structured JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop the opening fence line, and the closing one if present.
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

// validateTagsJSON checks parsed output against tagsAndDescriptionSchema.
func validateTagsJSON(parsed json.RawMessage) error {
	schema, err := compiledTagsSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := json.NewDecoder(bytes.NewReader(parsed)).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}
