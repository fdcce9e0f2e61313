package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/storyloom/storyloom-server/internal/llm"
)

// ErrMessagesNotArray is returned by DecodeMessages when the payload is not
// a JSON array.
var ErrMessagesNotArray = errors.New("messages must be an array")

// DecodeMessages reads the client's chat transcript. Only the outer array
// is required: elements that are not {role, content} objects are kept as
// best-effort text, and content may be a string, a scalar or an array of
// {type, text} parts.
func DecodeMessages(raw json.RawMessage) ([]llm.Message, error) {
	var elems []json.RawMessage
	if !isArray(raw) || json.Unmarshal(raw, &elems) != nil {
		return nil, ErrMessagesNotArray
	}

	out := make([]llm.Message, 0, len(elems))
	for _, e := range elems {
		out = append(out, decodeMessage(e))
	}
	return out, nil
}

func decodeMessage(raw json.RawMessage) llm.Message {
	var obj struct {
		Role    json.RawMessage `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) && json.Unmarshal(raw, &obj) == nil {
		return llm.Message{
			Role:    llm.Role(plainText(obj.Role)),
			Content: plainText(obj.Content),
		}
	}
	return llm.Message{Content: plainText(raw)}
}

// plainText renders a JSON value as prompt text. Strings are unquoted,
// arrays of content parts are joined by their text, null is empty and
// anything else keeps its JSON form.
func plainText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var parts []json.RawMessage
	if json.Unmarshal(raw, &parts) == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			var part struct {
				Text *string `json:"text"`
			}
			if bytes.HasPrefix(bytes.TrimSpace(p), []byte("{")) && json.Unmarshal(p, &part) == nil {
				if part.Text != nil {
					texts = append(texts, *part.Text)
				}
				continue
			}
			if t := plainText(p); t != "" {
				texts = append(texts, t)
			}
		}
		return strings.Join(texts, "\n")
	}

	return string(raw)
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
