package corpus

import (
	"regexp"
	"strings"
	"time"
)

// buildMessage converts a recognised record type into a Message. ok is false
// for record types that never produce a Message ("summary" and unknown
// types are no-ops).
func buildMessage(raw rawRecord, ts time.Time) (Message, bool) {
	switch raw.Type {
	case "user":
		if raw.Message == nil {
			return Message{}, false
		}
		return Message{
			Role:      RoleUser,
			Timestamp: ts,
			Content:   decodeContent(raw.Message.Content),
		}, true
	case "assistant":
		if raw.Message == nil {
			return Message{}, false
		}
		model := raw.Model
		if model == "" {
			model = raw.Message.Model
		}
		return Message{
			Role:      RoleAssistant,
			Timestamp: ts,
			Model:     model,
			Content:   decodeContent(raw.Message.Content),
		}, true
	case "system":
		if raw.Message == nil {
			return Message{}, false
		}
		return Message{
			Role:      RoleSystem,
			Timestamp: ts,
			Content:   decodeContent(raw.Message.Content),
		}, true
	case "tool_use":
		return Message{
			Role:      RoleAssistant,
			Timestamp: ts,
			Content: []Block{{
				Kind:      BlockToolUse,
				ToolName:  raw.Name,
				ToolInput: rawToString(raw.Input),
			}},
		}, true
	case "tool_result":
		return Message{
			Role:      RoleTool,
			Timestamp: ts,
			Content: []Block{{
				Kind:       BlockToolResult,
				OutputText: contentToString(raw.Output),
			}},
		}, true
	default:
		// "summary" and any unrecognised type: no-op record.
		return Message{}, false
	}
}

// accumulateDerived folds one message into the conversation's running
// derived fields, computed incrementally once per conversation rather
// than recomputed on every read.
func accumulateDerived(c *Conversation, m Message) {
	if m.HasTimestamp() {
		if c.FirstTS.IsZero() || m.Timestamp.Before(c.FirstTS) {
			c.FirstTS = m.Timestamp
		}
		if c.LastTS.IsZero() || m.Timestamp.After(c.LastTS) {
			c.LastTS = m.Timestamp
		}
	}

	c.MessageCountByRole[m.Role]++

	if m.Role == RoleAssistant && m.Model != "" {
		c.Models[m.Model] = struct{}{}
	}
	for _, name := range m.ToolNames() {
		c.ToolNames[name] = struct{}{}
	}
	for _, b := range m.Content {
		if b.Kind == BlockToolUse && b.ToolName != "" {
			c.ToolNames[b.ToolName] = struct{}{}
		}
	}

	if c.Title == "" && m.Role == RoleUser {
		if candidate := extractTitle(m); candidate != "" {
			c.Title = candidate
		}
	}
}

// finalizeDerived computes fields that depend on the whole message
// sequence (title/cost fallbacks), run once after all lines are parsed.
func finalizeDerived(c *Conversation) {
	if c.Title == "" {
		c.Title = shortID(c.ID)
	}
	c.EstCost = estimateCost(c)
}

var xmlTagRegex = regexp.MustCompile(`<[^>]+>`)

// extractTitle derives a display title from a user message: strip
// wrapper tags, skip trivial slash-commands, truncate for display.
func extractTitle(m Message) string {
	var text strings.Builder
	for _, b := range m.Content {
		if b.Kind == BlockText {
			text.WriteString(b.Text)
		}
	}
	s := text.String()
	if s == "" {
		return ""
	}

	if start := strings.Index(s, "<user_query>"); start >= 0 {
		if end := strings.Index(s, "</user_query>"); end > start {
			s = strings.TrimSpace(s[start+len("<user_query>") : end])
		}
	} else {
		s = xmlTagRegex.ReplaceAllString(s, " ")
		s = strings.Join(strings.Fields(s), " ")
	}
	s = strings.TrimSpace(s)

	if isTrivialCommand(s) {
		return ""
	}

	const maxLen = 120
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > maxLen {
		s = s[:maxLen-3] + "..."
	}
	return s
}

var trivialCommands = []string{
	"/clear", "/compact", "/config", "/help", "/init",
	"/bug", "/cost", "/doctor", "/feedback", "/login", "/logout",
}

func isTrivialCommand(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return true
	}
	for _, cmd := range trivialCommands {
		if lower == cmd || strings.HasPrefix(lower, cmd+" ") || strings.HasPrefix(lower, cmd+":") {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// modelCostRates holds a rough per-model rate table, $ per million tokens.
var modelCostRates = []struct {
	substr  string
	inRate  float64
	outRate float64
}{
	{"opus", 15.0, 75.0},
	{"sonnet", 3.0, 15.0},
	{"haiku", 0.25, 1.25},
}

func ratesFor(model string) (in, out float64) {
	for _, r := range modelCostRates {
		if strings.Contains(model, r.substr) {
			return r.inRate, r.outRate
		}
	}
	return 3.0, 15.0
}

// estimateCost is a display/analytics-only derived field. Message does
// not carry raw token-usage counts, so cost is estimated purely from
// per-model assistant-message counts as a coarse proxy (one "unit" per
// assistant message under that model).
func estimateCost(c *Conversation) float64 {
	if len(c.Models) == 0 {
		return 0
	}
	var total float64
	perModelMsgs := make(map[string]int)
	for _, m := range c.Messages {
		if m.Role == RoleAssistant && m.Model != "" {
			perModelMsgs[m.Model]++
		}
	}
	const assumedTokensPerMsg = 500
	for model, count := range perModelMsgs {
		inRate, outRate := ratesFor(model)
		total += float64(count) * assumedTokensPerMsg * (inRate + outRate) / 1_000_000
	}
	return total
}
