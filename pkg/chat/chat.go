package chat

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Narrator reply
	ChatRoleSystem = "system"    // Case framing and instructions
)

// ChatMessage represents a single chat message in a conversation.
// The shape follows the Ollama/OpenAI message format and is shared
// by all narrative backends.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}
