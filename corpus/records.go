package corpus

import (
	"encoding/json"
	"time"
)

// rawRecord mirrors one JSONL line's on-disk record shape.
// Every recognised type carries at least `type` and `timestamp`; unknown
// types are preserved as no-op records (they still count toward the file's
// byte size for hashing purposes, but produce no Message).
type rawRecord struct {
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`

	Message *rawMessage `json:"message"`

	// assistant: model recorded beside the message
	Model string `json:"model"`

	// tool_use
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`

	// tool_result
	ToolName string          `json:"tool_name"`
	Output   json.RawMessage `json:"output"`

	// summary
	Summary string `json:"summary"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Model   string          `json:"model"`
}

type rawContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`

	// tool_use
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`

	// tool_result
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
}

// parseTimestamp parses an ISO-8601 timestamp from a raw JSON value that may
// be a string or a number (epoch seconds/millis), returning ok=false for
// anything unparseable so the caller can skip the record.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999Z07:00"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f <= 0 {
			return time.Time{}, false
		}
		// Heuristic: values above 1e12 are already milliseconds.
		if f > 1e12 {
			return time.UnixMilli(int64(f)), true
		}
		return time.Unix(int64(f), 0), true
	}
	return time.Time{}, false
}

// decodeContent turns the `content` field (either a plain string or an array
// of content blocks) into Blocks.
func decodeContent(raw json.RawMessage) []Block {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []Block{{Kind: BlockText, Text: s}}
	}

	var blocks []rawContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil
	}

	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if b.Text != "" {
				out = append(out, Block{Kind: BlockText, Text: b.Text})
			}
		case "tool_use":
			out = append(out, Block{
				Kind:      BlockToolUse,
				ToolName:  b.Name,
				ToolInput: rawToString(b.Input),
			})
		case "tool_result":
			out = append(out, Block{
				Kind:          BlockToolResult,
				ToolResultFor: b.ToolUseID,
				OutputText:    contentToString(b.Content),
			})
		}
	}
	return out
}

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return string(raw)
}

// contentToString handles tool_result's `content` field, which may be a
// plain string or a nested JSON value.
func contentToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
