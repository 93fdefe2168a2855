// Package corpus implements the conversation loader and the canonical
// in-memory representation of a user's on-disk conversation history.
package corpus

import "time"

// Role identifies who produced a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool-result"
)

// BlockKind discriminates the kind of content a Block carries.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool-use"
	BlockToolResult BlockKind = "tool-result"
)

// Block is the smallest unit of content inside a Message.
type Block struct {
	Kind BlockKind

	// Text holds the literal text for BlockText.
	Text string

	// ToolName/ToolInput hold the tool-use payload for BlockToolUse.
	ToolName  string
	ToolInput string

	// ToolResultFor/OutputText hold the tool-result payload for
	// BlockToolResult. ToolResultFor is the tool_use_id the result
	// answers; OutputText is indexed as searchable text the same as plain
	// text (open question (i)).
	ToolResultFor string
	OutputText    string
}

// SearchableText returns the text of the block that the tokenizer should
// index, or "" if the block carries no searchable text.
func (b Block) SearchableText() string {
	switch b.Kind {
	case BlockText:
		return b.Text
	case BlockToolResult:
		return b.OutputText
	default:
		return ""
	}
}

// Message is one line of conversation, built once during parsing.
type Message struct {
	Role      Role
	Timestamp time.Time
	Model     string // empty unless Role == RoleAssistant and a model was recorded
	Content   []Block
}

// HasTimestamp reports whether Timestamp was successfully parsed.
func (m Message) HasTimestamp() bool { return !m.Timestamp.IsZero() }

// ToolNames returns the set of distinct tool names used in tool-use blocks
// of this message.
func (m Message) ToolNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, b := range m.Content {
		if b.Kind == BlockToolUse && b.ToolName != "" {
			if _, ok := seen[b.ToolName]; !ok {
				seen[b.ToolName] = struct{}{}
				names = append(names, b.ToolName)
			}
		}
	}
	return names
}

// Conversation is the canonical in-memory representation of one JSONL
// session file. It is immutable once built by the Loader.
type Conversation struct {
	ID      string // filename stem
	Project string // parent directory name
	Path    string // absolute path to the source file

	Messages []Message

	FirstTS time.Time // zero if no timestamp was ever parsed
	LastTS  time.Time

	MessageCountByRole map[Role]int
	ToolNames          map[string]struct{}
	Models             map[string]struct{}

	// IsSubAgent marks a session spawned as a sub-agent (filename prefix
	// "agent-").
	IsSubAgent bool

	// Title is a display-only derived field; it never participates in
	// indexing, filtering, or ranking.
	Title string

	// EstCost is a display/analytics-only derived field.
	EstCost float64

	// MalformedLines counts JSONL lines in this file that failed to parse
	// or carried an unparseable timestamp.
	MalformedLines int
}

// Duration returns LastTS-FirstTS, or zero if fewer than two timestamps
// were observed.
func (c *Conversation) Duration() time.Duration {
	if c.FirstTS.IsZero() || c.LastTS.IsZero() {
		return 0
	}
	d := c.LastTS.Sub(c.FirstTS)
	if d < 0 {
		return 0
	}
	return d
}

// MessageCount returns the total number of messages in the conversation.
func (c *Conversation) MessageCount() int { return len(c.Messages) }

// HasRole reports whether any message in the conversation has the given role.
func (c *Conversation) HasRole(r Role) bool {
	return c.MessageCountByRole[r] > 0
}

// HasModel reports whether the conversation used the given model identifier.
func (c *Conversation) HasModel(model string) bool {
	_, ok := c.Models[model]
	return ok
}

// HasTool reports whether the conversation invoked the given tool name.
func (c *Conversation) HasTool(name string) bool {
	_, ok := c.ToolNames[name]
	return ok
}

// FinalRole returns the role of the last message, or "" if there are none.
func (c *Conversation) FinalRole() Role {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[len(c.Messages)-1].Role
}

// Diagnostic records a non-fatal condition encountered while loading a file.
type Diagnostic struct {
	Kind    string // "file_unreadable" | "record_malformed" | "empty_file"
	Path    string
	Line    int // 1-based, 0 if not line-specific
	Message string
}

// Corpus is an immutable, ordered collection of Conversations plus its
// content hash and the diagnostics accumulated while it was built.
type Corpus struct {
	Conversations []*Conversation
	Hash          uint64
	Diagnostics   []Diagnostic
	BuiltAt       time.Time
}

// ByID returns the conversation with the given ID, or nil if absent.
func (c *Corpus) ByID(id string) *Conversation {
	for _, conv := range c.Conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

// Empty reports whether the corpus has no conversations. An empty
// corpus is a valid, non-error state.
func (c *Corpus) Empty() bool { return len(c.Conversations) == 0 }
