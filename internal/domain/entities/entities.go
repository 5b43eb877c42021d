// Package entities contains core business entities.
// These are pure domain objects with no external dependencies.
package entities

import "time"

// NoContextAnswer is returned when retrieval finds nothing to ground an answer on.
const NoContextAnswer = "Sorry, I couldn't find relevant information in the documents."

// Document represents a source document (PDF, TXT, MD).
type Document struct {
	ID        string
	Name      string
	Path      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk represents a piece of a document for embedding.
type Chunk struct {
	ID         string
	DocumentID string
	SourceDoc  string    // Document name for citation
	Content    string
	Index      int       // Position in document
	Embedding  []float32 // Vector representation (populated by adapter)
}

// QueryResult represents a vector search hit with relevance.
type QueryResult struct {
	Chunk     Chunk
	Score     float64 // Similarity score
	SourceDoc string
}

// Excerpt is a retrieved fragment handed to context assembly. Never mutated.
type Excerpt struct {
	Text   string
	Source map[string]string
}

// Role tags the speaker of a conversation turn.
type Role int

const (
	RoleHuman Role = iota
	RoleAssistant
)

// Label is the fixed prefix used when rendering history into a prompt.
func (r Role) Label() string {
	if r == RoleAssistant {
		return "Bot"
	}
	return "User"
}

// String returns the wire name of the role.
func (r Role) String() string {
	if r == RoleAssistant {
		return "assistant"
	}
	return "human"
}

// ParseRole is the inverse of String. Unknown names map to RoleHuman.
func ParseRole(s string) Role {
	if s == "assistant" {
		return RoleAssistant
	}
	return RoleHuman
}

// ConversationTurn is one message in a conversation.
type ConversationTurn struct {
	Role    Role
	Content string
}

// HumanTurn and AssistantTurn build the two halves of a QA round.
func HumanTurn(content string) ConversationTurn {
	return ConversationTurn{Role: RoleHuman, Content: content}
}

// AssistantTurn builds a turn spoken by the assistant.
func AssistantTurn(content string) ConversationTurn {
	return ConversationTurn{Role: RoleAssistant, Content: content}
}

// ChatRequest is a question asked within a conversation session.
type ChatRequest struct {
	SessionID string
	Question  string
}

// ChatResponse carries the answer and how it was produced.
type ChatResponse struct {
	SessionID string
	Question  string
	Answer    string
	Sources   []Excerpt
	Cached    bool // served from the answer cache
	NoContext bool // retrieval found nothing; Answer is NoContextAnswer
}
