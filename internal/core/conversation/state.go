// Package conversation runs chat turns for a chatbot session.
package conversation

import (
	"slices"
	"strings"
	"time"

	"github.com/markdave123-py/botdesk/internal/models"
)

const (
	sentimentHistoryLimit = 5
	transcriptLimit       = 100
)

// MessageKind marks assistant messages that did not come from the model.
type MessageKind string

const (
	KindChat       MessageKind = ""
	KindEscalation MessageKind = "escalation"
	KindApology    MessageKind = "apology"
)

type Message struct {
	ID        string             `json:"id"`
	Role      models.MessageRole `json:"role"`
	Content   string             `json:"content"`
	Kind      MessageKind        `json:"kind,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// State is the per-conversation record threaded through HandleTurn. Methods
// return modified copies and never touch the receiver's slices.
type State struct {
	SessionID        string            `json:"session_id"`
	ChatbotID        string            `json:"chatbot_id"`
	Escalated        bool              `json:"escalated"`
	SentimentHistory []SentimentResult `json:"sentiment_history,omitempty"`
	Messages         []Message         `json:"messages,omitempty"`
	UserTurns        int               `json:"user_turns"`
}

func NewState(chatbotID string) State {
	return State{ChatbotID: chatbotID}
}

func (s State) withSession(newID func() string) State {
	if s.SessionID == "" {
		s.SessionID = newID()
	}
	return s
}

func (s State) withMessage(m Message) State {
	msgs := append(slices.Clone(s.Messages), m)
	if len(msgs) > transcriptLimit {
		msgs = msgs[len(msgs)-transcriptLimit:]
	}
	s.Messages = msgs
	if m.Role == models.RoleUser {
		s.UserTurns++
	}
	return s
}

func (s State) withSentiment(r SentimentResult) State {
	h := append(slices.Clone(s.SentimentHistory), r)
	if len(h) > sentimentHistoryLimit {
		h = h[len(h)-sentimentHistoryLimit:]
	}
	s.SentimentHistory = h
	// Escalation is one-way for the life of the session.
	s.Escalated = s.Escalated || r.Escalate
	return s
}

// Reset starts a new chat: fresh session id, empty transcript, no escalation.
func (s State) Reset(newID func() string) State {
	return State{ChatbotID: s.ChatbotID, SessionID: newID()}
}

// RecentUserTexts returns up to n of the latest user messages, oldest first.
func (s State) RecentUserTexts(n int) []string {
	var out []string
	for i := len(s.Messages) - 1; i >= 0 && len(out) < n; i-- {
		if s.Messages[i].Role == models.RoleUser {
			out = append(out, s.Messages[i].Content)
		}
	}
	slices.Reverse(out)
	return out
}

// Message looks up a transcript entry by id.
func (s State) Message(id string) (Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Transcript renders the conversation as "role: content" lines.
func (s State) Transcript() string {
	var b strings.Builder
	for i, m := range s.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
