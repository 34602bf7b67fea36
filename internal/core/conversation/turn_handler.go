package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/core/retrieval"
	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/models"
)

// Fixed assistant messages that never go through the model.
const (
	EscalationMessage = "I'm really sorry this has been frustrating. I want to make sure you get the help you need, " +
		"so I'll take extra care from here. If you'd like, share your contact details and a member of our team will follow up with you."
	ApologyMessage = "Sorry, I'm having trouble responding right now. Please try again in a moment."

	escalatedTone = "The user is frustrated. Respond with extra empathy, acknowledge their concerns, " +
		"keep the answer short and offer to connect them with a human."
)

// ConversationContext carries the chatbot and request metadata for a turn.
// A nil context still produces replies but skips persistence and retrieval.
type ConversationContext struct {
	Chatbot *models.Chatbot
	// Public turns retrieve within the chatbot's knowledge base, owner
	// previews within the owner's documents.
	Public    bool
	IPAddress string
	UserAgent string
}

func (c *ConversationContext) chatbotID() string {
	if c == nil || c.Chatbot == nil {
		return ""
	}
	return c.Chatbot.ID
}

func (c *ConversationContext) config() models.ChatbotConfig {
	if c == nil || c.Chatbot == nil {
		return models.DefaultChatbotConfig()
	}
	return c.Chatbot.Config.WithDefaults()
}

type TurnConfig struct {
	HistoryWindow   int
	TopK            int
	SentimentEvery  int
	SentimentWindow int
}

func (c TurnConfig) withDefaults() TurnConfig {
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 5
	}
	if c.TopK <= 0 {
		c.TopK = retrieval.DefaultTopK
	}
	if c.SentimentEvery <= 0 {
		c.SentimentEvery = 1
	}
	if c.SentimentWindow <= 0 {
		c.SentimentWindow = 5
	}
	return c
}

// Result describes what one turn added to the transcript.
type Result struct {
	UserMessage Message          `json:"user_message"`
	Escalation  *Message         `json:"escalation,omitempty"`
	Reply       Message          `json:"reply"`
	Sentiment   *SentimentResult `json:"sentiment,omitempty"`
	// Err is the failure that produced an apology reply, if any.
	Err error `json:"-"`
}

type TurnHandler struct {
	messages  core.MessageStore
	searcher  retrieval.Searcher
	llm       core.LLMProvider
	sentiment SentimentAnalyzer
	cfg       TurnConfig
	newID     func() string
	now       func() time.Time
}

func NewTurnHandler(
	messages core.MessageStore,
	searcher retrieval.Searcher,
	llm core.LLMProvider,
	sentiment SentimentAnalyzer,
	cfg TurnConfig,
) *TurnHandler {
	return &TurnHandler{
		messages:  messages,
		searcher:  searcher,
		llm:       llm,
		sentiment: sentiment,
		cfg:       cfg.withDefaults(),
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// HandleTurn runs one user message through the conversation and returns the
// next state. Only an empty message is an error; every other failure ends the
// turn with ApologyMessage.
func (h *TurnHandler) HandleTurn(ctx context.Context, conv *ConversationContext, st State, text string) (State, Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return st, Result{}, fmt.Errorf("empty message: %w", core.ErrValidation)
	}
	if id := conv.chatbotID(); id != "" {
		st.ChatbotID = id
	}

	prior := st.Messages

	userMsg := h.message(models.RoleUser, text, KindChat)
	st = st.withMessage(userMsg)
	st = st.withSession(h.newID)

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"chatbot_id": st.ChatbotID,
		"session_id": st.SessionID,
	})
	ctx = logger.WithContext(ctx, log)
	res := Result{UserMessage: userMsg}

	if err := h.persist(ctx, conv, st.SessionID, userMsg); err != nil {
		return h.apologize(ctx, st, res, fmt.Errorf("persist user message: %w", err))
	}

	st, res = h.monitor(ctx, conv, st, res)

	var contextBlock string
	if conv != nil && conv.Chatbot != nil && conv.Chatbot.HasKnowledgeBase() && h.searcher != nil {
		scope := retrieval.ChatbotScope(conv.Chatbot.ID)
		if !conv.Public {
			scope = retrieval.OwnerScope(conv.Chatbot.OwnerID)
		}
		contextBlock = retrieval.FormatContext(h.searcher.Search(ctx, text, h.cfg.TopK, scope))
	}

	if h.llm == nil {
		return h.apologize(ctx, st, res, fmt.Errorf("no chat model: %w", core.ErrConfiguration))
	}
	reply, err := h.llm.Complete(ctx, core.CompletionRequest{
		SystemPrompt: h.systemPrompt(conv, st.Escalated),
		Context:      contextBlock,
		History:      historyWindow(prior, h.cfg.HistoryWindow),
		Prompt:       text,
	})
	if err != nil {
		return h.apologize(ctx, st, res, fmt.Errorf("completion: %w", err))
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return h.apologize(ctx, st, res, fmt.Errorf("completion: empty reply: %w", core.ErrUpstream))
	}

	botMsg := h.message(models.RoleAssistant, reply, KindChat)
	st = st.withMessage(botMsg)
	res.Reply = botMsg

	if err := h.persist(ctx, conv, st.SessionID, botMsg); err != nil {
		log.WithError(err).Warn("assistant reply shown but not persisted")
	}
	return st, res, nil
}

// monitor runs sentiment analysis every SentimentEvery user turns until the
// conversation escalates.
func (h *TurnHandler) monitor(ctx context.Context, conv *ConversationContext, st State, res Result) (State, Result) {
	if st.Escalated || h.sentiment == nil || !conv.config().SentimentEnabled() {
		return st, res
	}
	if st.UserTurns%h.cfg.SentimentEvery != 0 {
		return st, res
	}

	reading := h.sentiment.Analyze(ctx, st.RecentUserTexts(h.cfg.SentimentWindow))
	res.Sentiment = &reading
	wasEscalated := st.Escalated
	st = st.withSentiment(reading)

	if st.Escalated && !wasEscalated {
		msg := h.message(models.RoleAssistant, EscalationMessage, KindEscalation)
		st = st.withMessage(msg)
		res.Escalation = &msg
		logger.FromContext(ctx).WithField("confidence", reading.Confidence).Info("conversation escalated")
	}

	h.snapshot(ctx, conv, st, reading)
	return st, res
}

// snapshot records a UserInteraction. Failures are ignored.
func (h *TurnHandler) snapshot(ctx context.Context, conv *ConversationContext, st State, r SentimentResult) {
	if h.messages == nil || conv.chatbotID() == "" {
		return
	}
	err := h.messages.CreateUserInteraction(ctx, &models.UserInteraction{
		ID:         h.newID(),
		ChatbotID:  conv.chatbotID(),
		SessionID:  st.SessionID,
		Sentiment:  r.Sentiment,
		Confidence: r.Confidence,
		Escalated:  st.Escalated,
		Transcript: st.Transcript(),
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Debug("interaction snapshot not stored")
	}
}

func (h *TurnHandler) persist(ctx context.Context, conv *ConversationContext, sessionID string, m Message) error {
	if h.messages == nil || conv.chatbotID() == "" {
		return nil
	}
	return h.messages.AddSessionMessage(ctx, &models.ConversationMessage{
		ChatbotID: conv.chatbotID(),
		SessionID: sessionID,
		Role:      m.Role,
		Content:   m.Content,
		IPAddress: conv.IPAddress,
		UserAgent: conv.UserAgent,
	})
}

func (h *TurnHandler) apologize(ctx context.Context, st State, res Result, cause error) (State, Result, error) {
	logger.FromContext(ctx).WithError(cause).Error("chat turn failed")
	msg := h.message(models.RoleAssistant, ApologyMessage, KindApology)
	st = st.withMessage(msg)
	res.Reply = msg
	res.Err = cause
	return st, res, nil
}

func (h *TurnHandler) systemPrompt(conv *ConversationContext, escalated bool) string {
	cfg := conv.config()
	var b strings.Builder
	b.WriteString(cfg.Personality)
	if conv != nil && conv.Chatbot != nil && conv.Chatbot.Name != "" {
		fmt.Fprintf(&b, "\nYou are %q, the assistant embedded on this website.", conv.Chatbot.Name)
	}
	if escalated {
		b.WriteString("\n")
		b.WriteString(escalatedTone)
	}
	return b.String()
}

func (h *TurnHandler) message(role models.MessageRole, content string, kind MessageKind) Message {
	return Message{ID: h.newID(), Role: role, Content: content, Kind: kind, CreatedAt: h.now()}
}

// historyWindow converts the last n prior messages into chat turns.
func historyWindow(prior []Message, n int) []core.ChatTurn {
	if len(prior) > n {
		prior = prior[len(prior)-n:]
	}
	out := make([]core.ChatTurn, 0, len(prior))
	for _, m := range prior {
		role := core.RoleUser
		if m.Role == models.RoleAssistant {
			role = core.RoleAssistant
		}
		out = append(out, core.ChatTurn{Role: role, Content: m.Content})
	}
	return out
}
